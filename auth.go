package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/minios-linux/zhdoc/i18n"
	"github.com/minios-linux/zhdoc/settings"
	"github.com/minios-linux/zhdoc/translate"
)

// ---------------------------------------------------------------------------
// auth (stored credentials)
// ---------------------------------------------------------------------------

func newAuthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage provider credentials",
		Long: `Manage the credentials stored in auth.json under the user data directory.

API key providers (paste your key):
  openai        OpenAI
  groq          Groq Cloud (free tier available)
  google        Google AI Studio (Gemini API key)

Endpoint providers (URL, optional key and default model):
  custom-openai Self-hosted OpenAI-compatible server

No auth required:
  ollama        Local Ollama server

Examples:
  zhdoc auth login                         Interactive provider selection
  zhdoc auth login --provider groq         Store a Groq API key
  zhdoc auth logout --provider groq        Remove the Groq API key
  zhdoc auth logout                        Remove all credentials
  zhdoc auth list                          Show all stored credentials`,
	}

	cmd.AddCommand(
		newAuthLoginCmd(),
		newAuthLogoutCmd(),
		newAuthListCmd(),
	)

	return cmd
}

// authProviders is the ordered list of providers for the interactive menu.
var authProviders = []struct {
	id      string
	desc    string
	helpURL string
	example string
}{
	{translate.ProviderCustomOpenAI, "any OpenAI-compatible endpoint", "",
		"zhdoc translate DIR"},
	{translate.ProviderOpenAI, "OpenAI API", "https://platform.openai.com/api-keys",
		"zhdoc translate DIR --provider openai --model gpt-4o-mini"},
	{translate.ProviderGroq, "fast inference, free tier available", "https://console.groq.com/keys",
		"zhdoc translate DIR --provider groq --model llama-3.3-70b-versatile"},
	{translate.ProviderGoogle, "Gemini API key, free tier available", "https://aistudio.google.com/apikey",
		"zhdoc translate DIR --provider google --model gemini-2.5-flash"},
}

// chooseProvider maps a menu answer (number or ID) to a provider ID.
func chooseProvider(choice string) (string, bool) {
	choice = strings.TrimSpace(choice)
	for i, p := range authProviders {
		if choice == fmt.Sprint(i+1) || choice == p.id {
			return p.id, true
		}
	}
	return "", false
}

func providerCompletion(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	defaults := translate.DefaultProviders()
	out := make([]string, 0, len(authProviders))
	for _, p := range authProviders {
		out = append(out, p.id+"\t"+defaults[p.id].Name)
	}
	return out, cobra.ShellCompDirectiveNoFileComp
}

func newAuthLoginCmd() *cobra.Command {
	var provider string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Store credentials for a provider",
		Long: `Store an API key, or an endpoint for custom-openai.

If --provider is not specified, you will be prompted to choose.`,
		Run: func(cmd *cobra.Command, args []string) {
			in := bufio.NewScanner(cmd.InOrStdin())

			if provider == "" {
				fmt.Fprintln(os.Stderr)
				fmt.Fprintf(os.Stderr, "%s%s%s\n\n", colorBlue, i18n.T("Select provider to authenticate:"), colorReset)
				for i, p := range authProviders {
					fmt.Fprintf(os.Stderr, "  %d. %s%-13s%s %s\n", i+1, colorYellow, p.id, colorReset, p.desc)
				}
				fmt.Fprintln(os.Stderr)
				fmt.Fprint(os.Stderr, i18n.T("Enter choice (number or name): "))

				if !in.Scan() {
					logError("%s", i18n.T("No input received"))
					os.Exit(1)
				}
				id, ok := chooseProvider(in.Text())
				if !ok {
					logError("%s", i18n.T("Invalid choice. Use: zhdoc auth login --provider PROVIDER"))
					os.Exit(1)
				}
				provider = id
			}

			var err error
			switch provider {
			case translate.ProviderOpenAI, translate.ProviderGroq, translate.ProviderGoogle:
				err = authLoginAPIKey(in, provider)
			case translate.ProviderCustomOpenAI:
				err = authLoginCustomOpenAI(in)
			case translate.ProviderOllama:
				logInfo("%s", i18n.T("Ollama needs no credentials"))
			default:
				err = fmt.Errorf(i18n.T("unknown provider '%s'. Run 'zhdoc auth login' for options"), provider)
			}
			if err != nil {
				logError("%v", err)
				os.Exit(1)
			}
		},
	}

	cmd.Flags().StringVar(&provider, "provider", "", "Provider to authenticate")
	_ = cmd.RegisterFlagCompletionFunc("provider", providerCompletion)

	return cmd
}

var errNoInput = errors.New("no input received")

// readLine prints a prompt and reads one trimmed line.
func readLine(in *bufio.Scanner, prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	if !in.Scan() {
		if err := in.Err(); err != nil {
			return "", err
		}
		return "", errNoInput
	}
	return strings.TrimSpace(in.Text()), nil
}

func authProviderInfo(id string) (desc, helpURL, example string) {
	for _, p := range authProviders {
		if p.id == id {
			return p.desc, p.helpURL, p.example
		}
	}
	return "", "", ""
}

func authLoginAPIKey(in *bufio.Scanner, providerID string) error {
	name := translate.DefaultProviders()[providerID].Name
	_, helpURL, example := authProviderInfo(providerID)

	fmt.Fprintf(os.Stderr, "\n%s%s: %s%s\n", colorBlue, name, i18n.T("API Key Setup"), colorReset)
	fmt.Fprintln(os.Stderr, strings.Repeat("─", 60))
	fmt.Fprintln(os.Stderr)
	if helpURL != "" {
		fmt.Fprintf(os.Stderr, "  %s %s%s%s\n\n", i18n.T("Get your API key from:"), colorGreen, helpURL, colorReset)
	}

	existing := settings.Get(providerID)
	prompt := "  " + i18n.T("Enter API key: ")
	if existing != nil && existing.Key != "" {
		fmt.Fprintf(os.Stderr, "  %s %s%s%s\n", i18n.T("Current key:"), colorYellow, settings.MaskKey(existing.Key), colorReset)
		prompt = "  " + i18n.T("Enter new key to replace, or press Enter to keep: ")
	}

	key, err := readLine(in, prompt)
	if err != nil {
		return err
	}
	if key == "" {
		if existing != nil && existing.Key != "" {
			logInfo("%s", i18n.T("Keeping existing key"))
			return nil
		}
		return errors.New(i18n.T("no API key provided"))
	}

	info := &settings.Info{Key: key}
	if existing != nil {
		info.BaseURL = existing.BaseURL
		info.Model = existing.Model
	}
	if err := settings.Set(providerID, info); err != nil {
		return fmt.Errorf(i18n.T("failed to save API key: %w"), err)
	}

	logSuccess(i18n.T("%s API key saved"), name)
	fmt.Fprintf(os.Stderr, "\n  %s %s\n\n", i18n.T("You can now use:"), example)
	return nil
}

func authLoginCustomOpenAI(in *bufio.Scanner) error {
	fmt.Fprintf(os.Stderr, "\n%s%s%s\n", colorBlue, i18n.T("Custom OpenAI-Compatible Endpoint"), colorReset)
	fmt.Fprintln(os.Stderr, strings.Repeat("─", 60))
	fmt.Fprintln(os.Stderr)

	existing := settings.Get(translate.ProviderCustomOpenAI)
	if existing == nil {
		existing = &settings.Info{}
	}

	ask := func(label, current, fallback string) (string, error) {
		prompt := fmt.Sprintf("  %s [%s]: ", label, settings.First(current, fallback))
		v, err := readLine(in, prompt)
		if err != nil {
			return "", err
		}
		return settings.First(v, current, fallback), nil
	}

	baseURL, err := ask(i18n.T("Endpoint URL"), existing.BaseURL, translate.DefaultBaseURL)
	if err != nil {
		return err
	}

	keyPrompt := "  " + i18n.T("API key (Enter for none): ")
	if existing.Key != "" {
		keyPrompt = fmt.Sprintf("  %s [%s]: ", i18n.T("API key"), settings.MaskKey(existing.Key))
	}
	key, err := readLine(in, keyPrompt)
	if err != nil {
		return err
	}
	key = settings.First(key, existing.Key)

	model, err := ask(i18n.T("Default model"), existing.Model, translate.DefaultModel)
	if err != nil {
		return err
	}

	info := &settings.Info{Key: key, BaseURL: baseURL, Model: model}
	if err := settings.Set(translate.ProviderCustomOpenAI, info); err != nil {
		return fmt.Errorf(i18n.T("failed to save credentials: %w"), err)
	}

	logSuccess("%s", i18n.T("Custom OpenAI endpoint saved"))
	fmt.Fprintf(os.Stderr, "\n  %s zhdoc translate DIR\n\n", i18n.T("You can now use:"))
	return nil
}

func newAuthLogoutCmd() *cobra.Command {
	var provider string

	cmd := &cobra.Command{
		Use:   "logout",
		Short: "Remove stored credentials",
		Long: `Remove stored credentials for one or all providers.

If --provider is not specified, credentials for ALL providers are removed.`,
		Run: func(cmd *cobra.Command, args []string) {
			if err := authLogout(provider); err != nil {
				logError("%v", err)
				os.Exit(1)
			}
		},
	}

	cmd.Flags().StringVar(&provider, "provider", "", "Provider to logout (default: all)")
	_ = cmd.RegisterFlagCompletionFunc("provider", providerCompletion)

	return cmd
}

func authLogout(provider string) error {
	if provider == "" {
		if err := settings.RemoveAll(); err != nil {
			return fmt.Errorf(i18n.T("failed to remove credentials: %w"), err)
		}
		logSuccess("%s", i18n.T("All stored credentials removed"))
		return nil
	}
	if _, ok := translate.DefaultProviders()[provider]; !ok {
		return fmt.Errorf(i18n.T("unknown provider '%s'. Run 'zhdoc auth list' to see providers"), provider)
	}
	if err := settings.Remove(provider); err != nil {
		return fmt.Errorf(i18n.T("failed to remove %s credentials: %w"), provider, err)
	}
	logSuccess(i18n.T("%s credentials removed"), provider)
	return nil
}

func newAuthListCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "Show stored credentials and status",
		Run: func(cmd *cobra.Command, args []string) {
			writeAuthList(cmd.OutOrStderr())
		},
	}
}

func writeAuthList(w io.Writer) {
	fmt.Fprintf(w, "\n%s%s%s\n", colorBlue, i18n.T("Stored Credentials"), colorReset)
	fmt.Fprintln(w, strings.Repeat("─", 60))
	fmt.Fprintf(w, "  %s\n\n", settings.FilePath())

	for _, p := range authProviders {
		fmt.Fprintf(w, "  %-14s %s\n", p.id, credentialStatus(settings.Get(p.id)))
	}

	fmt.Fprintf(w, "\n  %s%s%s\n", colorYellow, i18n.T("Environment Variables"), colorReset)
	vars := []string{settings.EnvAPIKey}
	for _, p := range authProviders {
		if env := settings.EnvVarForProvider(p.id); env != "" {
			vars = append(vars, env)
		}
	}
	for _, env := range vars {
		if v := os.Getenv(env); v != "" {
			fmt.Fprintf(w, "  %-16s %s%s%s\n", env, colorGreen, settings.MaskKey(v), colorReset)
		} else {
			fmt.Fprintf(w, "  %-16s %s%s%s\n", env, colorRed, i18n.T("not set"), colorReset)
		}
	}
	fmt.Fprintln(w)
}

// credentialStatus renders one auth list row.
func credentialStatus(info *settings.Info) string {
	if info == nil || (info.Key == "" && info.BaseURL == "" && info.Model == "") {
		return colorRed + i18n.T("not configured") + colorReset
	}
	var parts []string
	if info.Key != "" {
		parts = append(parts, "key: "+settings.MaskKey(info.Key))
	} else {
		parts = append(parts, i18n.T("no key"))
	}
	if info.BaseURL != "" {
		parts = append(parts, "endpoint: "+info.BaseURL)
	}
	if info.Model != "" {
		parts = append(parts, "model: "+info.Model)
	}
	return fmt.Sprintf("%s%s%s (%s)", colorGreen, i18n.T("configured"), colorReset, strings.Join(parts, ", "))
}
