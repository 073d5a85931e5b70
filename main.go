// zhdoc translates the comments and docstrings of Python sources into Chinese.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/minios-linux/zhdoc/batch"
	"github.com/minios-linux/zhdoc/config"
	"github.com/minios-linux/zhdoc/discover"
	"github.com/minios-linux/zhdoc/i18n"
	"github.com/minios-linux/zhdoc/lockfile"
	"github.com/minios-linux/zhdoc/memory"
	"github.com/minios-linux/zhdoc/settings"
	"github.com/minios-linux/zhdoc/translate"
)

// Version information (set via -ldflags during build)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// ANSI colors
const (
	colorReset  = "\033[0m"
	colorRed    = "\033[0;31m"
	colorGreen  = "\033[0;32m"
	colorYellow = "\033[1;33m"
	colorBlue   = "\033[0;34m"
)

func logInfo(format string, args ...any) {
	fmt.Fprintf(os.Stderr, colorBlue+"[INFO]"+colorReset+" "+format+"\n", args...)
}

func logSuccess(format string, args ...any) {
	fmt.Fprintf(os.Stderr, colorGreen+"[OK]"+colorReset+" "+format+"\n", args...)
}

func logWarning(format string, args ...any) {
	fmt.Fprintf(os.Stderr, colorYellow+"[WARN]"+colorReset+" "+format+"\n", args...)
}

func logError(format string, args ...any) {
	fmt.Fprintf(os.Stderr, colorRed+"[ERROR]"+colorReset+" "+format+"\n", args...)
}

// Environment variables read on top of the flags.
const (
	envBaseURL = "ZHDOC_BASE_URL"
	envModel   = "ZHDOC_MODEL"
)

// ---------------------------------------------------------------------------
// Root command
// ---------------------------------------------------------------------------

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "zhdoc",
		Short: "Translate Python comments and docstrings into Chinese",
		Long: `zhdoc: translate Python comments and docstrings into Chinese.

Scans a directory for Python sources, finds "#" comments and triple-quoted
docstrings line by line, and rewrites the English ones in Simplified Chinese
through an OpenAI-compatible or Gemini backend. Code, layout and text that is
already Chinese are left untouched, so running it twice changes nothing.

Commands:
  translate   Translate comments and docstrings under a directory
  scan        List comments and docstrings without calling the backend
  auth        Manage provider credentials
  version     Show version information

Providers:
  custom-openai  Self-hosted OpenAI-compatible server (default, localhost:8000)
  ollama         Ollama local server
  openai         OpenAI API key
  groq           Groq API key
  google         Google AI (Gemini) API key`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		newTranslateCmd(),
		newScanCmd(),
		newAuthCmd(),
		newVersionCmd(),
	)

	return root
}

func main() {
	i18n.Init("")
	if err := newRootCmd().Execute(); err != nil {
		logError("%v", err)
		os.Exit(1)
	}
}

// ---------------------------------------------------------------------------
// version (display version information)
// ---------------------------------------------------------------------------

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long:  `Display version, commit hash, and build date.`,
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "zhdoc version %s\n", version)
			fmt.Fprintf(out, "  commit:    %s\n", commit)
			fmt.Fprintf(out, "  built:     %s\n", date)
		},
	}
}

// ---------------------------------------------------------------------------
// Provider flags
// ---------------------------------------------------------------------------

type providerFlags struct {
	provider, apiKey, model, baseURL string
	proxy                            string
	timeout                          time.Duration
	maxRetries                       int
	verbose                          bool
}

func (f *providerFlags) register(fs *pflag.FlagSet) {
	fs.StringVar(&f.provider, "provider", "", "Backend provider: "+strings.Join(translate.ProviderIDs(), ", ")+" (default custom-openai)")
	fs.StringVar(&f.model, "model", "", "Model name (or "+envModel+" env var)")
	fs.StringVar(&f.apiKey, "api-key", "", "API key (or "+settings.EnvAPIKey+" env var)")
	fs.StringVar(&f.baseURL, "base-url", "", "Backend base URL (or "+envBaseURL+" env var)")
	fs.DurationVar(&f.timeout, "timeout", 0, "Request timeout (0 = provider default)")
	fs.StringVar(&f.proxy, "proxy", "", "HTTP/HTTPS proxy URL")
	fs.IntVar(&f.maxRetries, "max-retries", 3, "Maximum retries on rate limits and server errors")
	fs.BoolVar(&f.verbose, "verbose", false, "Enable detailed logging")
}

// providerID maps a provider name to a known ID; unknown names are custom
// OpenAI-compatible endpoints.
func providerID(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	if _, ok := translate.DefaultProviders()[name]; ok {
		return name
	}
	return translate.ProviderCustomOpenAI
}

// resolveProvider merges flags, environment, the project file and stored
// credentials, in that order of precedence.
func resolveProvider(f providerFlags, cfg *config.File) translate.Provider {
	name := settings.First(f.provider, cfg.Provider)
	id := providerID(name)

	baseURL := settings.First(f.baseURL, os.Getenv(envBaseURL), cfg.BaseURL, settings.GetBaseURL(id))
	model := settings.First(f.model, os.Getenv(envModel), cfg.Model, settings.GetModel(id))
	apiKey := settings.ResolveAPIKey(id, f.apiKey, cfg.APIKey)
	proxy := settings.First(f.proxy, cfg.Proxy)

	timeout := f.timeout
	if timeout == 0 {
		timeout = cfg.TimeoutDuration()
	}
	return translate.ResolveProvider(name, baseURL, apiKey, model, proxy, timeout)
}

// ---------------------------------------------------------------------------
// translate
// ---------------------------------------------------------------------------

type translateArgs struct {
	providerFlags
	dryRun   bool
	force    bool
	noMemory bool
	exclude  []string
}

func newTranslateCmd() *cobra.Command {
	var a translateArgs

	cmd := &cobra.Command{
		Use:   "translate DIR",
		Short: "Translate comments and docstrings under DIR",
		Long: `Translate the comments and docstrings of every Python file under DIR.

Files are rewritten in place, one at a time. Spans that are too short, have
no letters, are already Chinese, or are source directives (shebang, coding
declaration, noqa and other tool pragmas) are never sent to the backend.
A .zhdoc.lock file in DIR records processed files so later runs only look at
files that changed; --force ignores it.

Examples:
  # Local OpenAI-compatible server on localhost:8000
  zhdoc translate ./src

  # Ollama
  zhdoc translate ./src --provider ollama --model qwen2.5:7b

  # Preview the edits without writing anything
  zhdoc translate ./src --dry-run`,
		Args: cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
			code := runTranslate(ctx, args[0], a)
			stop()
			os.Exit(code)
		},
	}

	a.register(cmd.Flags())
	cmd.Flags().BoolVar(&a.dryRun, "dry-run", false, "Show the edits without writing files")
	cmd.Flags().BoolVar(&a.force, "force", false, "Process files the lock file marks as done")
	cmd.Flags().BoolVar(&a.noMemory, "no-memory", false, "Do not use the translation memory")
	cmd.Flags().StringSliceVar(&a.exclude, "exclude", nil, "Extra directory names to skip (comma-separated)")

	_ = cmd.RegisterFlagCompletionFunc("provider", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		defaults := translate.DefaultProviders()
		var out []string
		for _, id := range translate.ProviderIDs() {
			out = append(out, id+"\t"+defaults[id].Name)
		}
		return out, cobra.ShellCompDirectiveNoFileComp
	})

	return cmd
}

// runTranslate runs the translate command and returns the exit code.
func runTranslate(ctx context.Context, dir string, a translateArgs) int {
	if !isDir(dir) {
		logError(i18n.T("Directory not found: %s"), dir)
		return 1
	}

	cfg, err := config.Load(dir)
	if err != nil {
		logWarning(i18n.T("Ignoring project config: %v"), err)
		cfg = &config.File{}
	}

	files, err := discover.Find(dir, discover.Options{
		Extensions: cfg.EffectiveExtensions(),
		Exclude:    cfg.EffectiveExclude(a.exclude...),
	})
	if err != nil {
		logError("%v", err)
		return 1
	}
	if len(files) == 0 {
		logWarning(i18n.T("No Python files found in %s"), dir)
		return 0
	}

	prov := resolveProvider(a.providerFlags, cfg)
	client := translate.New(translate.Options{
		Provider:   prov,
		Prompts:    loadPrompts(cfg),
		Language:   cfg.Language,
		Timeout:    a.timeout,
		MaxRetries: a.maxRetries,
		Verbose:    a.verbose,
	})
	if err := client.Validate(); err != nil {
		logError("%v", err)
		return 1
	}
	if a.verbose {
		if dataDir, err := settings.DataDir(); err == nil {
			logInfo(i18n.T("Data directory: %s"), dataDir)
		}
	}

	runID := uuid.NewString()
	var tr translate.Translator = client
	if cached, closeFn := openMemory(cfg, a, client, prov.Model, runID); cached != nil {
		defer closeFn()
		tr = cached
		defer func() {
			hits, misses := cached.Stats()
			logInfo(i18n.T("Translation memory: %d hits, %d backend calls"), hits, misses)
		}()
	}

	lf, err := lockfile.Load(dir)
	if err != nil {
		logWarning(i18n.T("Ignoring lock file: %v"), err)
		lf = lockfile.New(dir)
	}
	if lf.Reset(prov.Model) {
		logInfo("%s", i18n.T("Model changed, reprocessing all files"))
	} else if a.verbose {
		logInfo(i18n.T("Lock file: %s"), lf.Summary())
	}

	proc, err := batch.New(batch.Options{
		Translator: tr,
		Root:       dir,
		DryRun:     a.dryRun,
		Force:      a.force,
		Lock:       lf,
		RunID:      runID,
		OnFile: func(res batch.FileResult) {
			printFileResult(res, a.dryRun, a.verbose)
		},
		OnLog:   logInfo,
		OnError: logWarning,
	})
	if err != nil {
		logError("%v", err)
		return 1
	}

	logInfo(i18n.T("Provider: %s, model: %s"), prov.Name, prov.Model)
	logInfo(i18n.N("Found %d file", "Found %d files", len(files)), len(files))
	if a.dryRun {
		logInfo("%s", i18n.T("Dry run: no files will be written"))
	}

	rep := proc.Run(ctx, files)
	printSummary(rep)
	return 0
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// loadPrompts merges the project prompts over the user's prompts.json.
func loadPrompts(cfg *config.File) translate.Prompts {
	user := translate.DefaultPrompts()
	if path, err := settings.PromptsFilePath(); err == nil {
		p, err := translate.LoadPrompts(path)
		if err != nil {
			logWarning(i18n.T("Using built-in prompts: %v"), err)
		}
		user = p
	}
	return cfg.Prompts.Merge(user)
}

// openMemory wraps client with the translation memory unless disabled.
func openMemory(cfg *config.File, a translateArgs, client translate.Translator, model, runID string) (*memory.Cached, func()) {
	if a.noMemory || !cfg.MemoryEnabled() {
		return nil, nil
	}
	path, err := settings.MemoryFilePath()
	if err != nil {
		logWarning(i18n.T("Translation memory disabled: %v"), err)
		return nil, nil
	}
	store, err := memory.Open(path)
	if err != nil {
		logWarning(i18n.T("Translation memory disabled: %v"), err)
		return nil, nil
	}
	if a.verbose {
		logInfo(i18n.T("Translation memory: %v"), store.Path())
	}
	cached := &memory.Cached{
		Next:  client,
		Store: store,
		Model: model,
		RunID: runID,
		OnError: func(err error) {
			logWarning(i18n.T("Translation memory: %v"), err)
		},
	}
	return cached, func() { store.Close() }
}

func printFileResult(res batch.FileResult, dryRun, verbose bool) {
	switch res.Status {
	case batch.StatusTranslated:
		logSuccess(i18n.N("%s: %d span translated", "%s: %d spans translated", len(res.Edits)), res.Rel, len(res.Edits))
		if verbose {
			logInfo(i18n.N("%s: %d region changed", "%s: %d regions changed", len(res.Regions)), res.Rel, len(res.Regions))
		}
		if dryRun {
			printEdits(os.Stdout, res)
		}
	case batch.StatusSkipped:
		logInfo(i18n.T("%s: nothing to translate"), res.Rel)
	case batch.StatusUnchanged:
		if verbose {
			logInfo(i18n.T("%s: unchanged since last run"), res.Rel)
		}
	case batch.StatusFailed:
		logError("%s: %v", res.Rel, res.Err)
	}
}

func printEdits(w io.Writer, res batch.FileResult) {
	for _, e := range res.Edits {
		fmt.Fprintf(w, "%s%s:%d%s\n", colorBlue, res.Rel, e.Start+1, colorReset)
		for _, l := range e.Old {
			fmt.Fprintf(w, "%s- %s%s\n", colorRed, l, colorReset)
		}
		for _, l := range e.New {
			fmt.Fprintf(w, "%s+ %s%s\n", colorGreen, l, colorReset)
		}
	}
}

func printSummary(rep batch.Report) {
	if rep.Interrupted {
		logWarning("%s", i18n.T("Interrupted, remaining files were not processed"))
	}
	logInfo(i18n.T("Done in %s: %d translated, %d skipped, %d unchanged, %d failed"),
		rep.Elapsed.Round(time.Millisecond), rep.Translated, rep.Skipped, rep.Unchanged, rep.Failed)
}

// ---------------------------------------------------------------------------
// scan (read-only: spans and gate decisions)
// ---------------------------------------------------------------------------

func newScanCmd() *cobra.Command {
	var (
		exclude []string
		all     bool
	)

	cmd := &cobra.Command{
		Use:   "scan DIR",
		Short: "List comments and docstrings without calling the backend",
		Long: `List the comments and docstrings found under DIR and whether each one
would be sent for translation. Nothing is written and no backend is called.

By default only spans that would be translated are listed; --all also shows
rejected spans with the reason.`,
		Args: cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			os.Exit(runScan(cmd, args[0], exclude, all))
		},
	}

	cmd.Flags().StringSliceVar(&exclude, "exclude", nil, "Extra directory names to skip (comma-separated)")
	cmd.Flags().BoolVar(&all, "all", false, "Also list spans that would be skipped")
	return cmd
}

func runScan(cmd *cobra.Command, dir string, exclude []string, all bool) int {
	if !isDir(dir) {
		logError(i18n.T("Directory not found: %s"), dir)
		return 1
	}
	cfg, err := config.Load(dir)
	if err != nil {
		logWarning(i18n.T("Ignoring project config: %v"), err)
		cfg = &config.File{}
	}
	files, err := discover.Find(dir, discover.Options{
		Extensions: cfg.EffectiveExtensions(),
		Exclude:    cfg.EffectiveExclude(exclude...),
	})
	if err != nil {
		logError("%v", err)
		return 1
	}

	out := cmd.OutOrStdout()
	eligible, total := 0, 0
	for _, path := range files {
		rel := discover.Rel(dir, path)
		data, err := os.ReadFile(path)
		if err != nil {
			logError("%s: %v", rel, err)
			continue
		}
		decisions, dangling := batch.Inspect(string(data))
		if dangling != nil {
			logWarning(i18n.T("%s:%d: unterminated docstring"), rel, dangling.Start+1)
		}
		for _, d := range decisions {
			total++
			if d.Eligible() {
				eligible++
			} else if !all {
				continue
			}
			fmt.Fprintln(out, formatDecision(rel, d))
		}
	}

	logInfo(i18n.T("%d of %d spans in %d files would be translated"), eligible, total, len(files))
	return 0
}

// formatDecision renders one scan line: location, kind, verdict, preview.
func formatDecision(rel string, d batch.Decision) string {
	verdict := "translate"
	if !d.Eligible() {
		verdict = "skip: " + string(d.Reason)
	}
	return fmt.Sprintf("%s:%d\t%s\t%s\t%s", rel, d.Span.Anchor+1, d.Span.Kind, verdict, preview(d.Span.Text, 60))
}

// preview returns the first line of text cut to max runes.
func preview(text string, max int) string {
	text = strings.TrimSpace(text)
	if i := strings.IndexByte(text, '\n'); i >= 0 {
		text = text[:i] + " ..."
	}
	r := []rune(text)
	if len(r) > max {
		return string(r[:max]) + "..."
	}
	return text
}
