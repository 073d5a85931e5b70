package main

import (
	"bufio"
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/minios-linux/zhdoc/batch"
	"github.com/minios-linux/zhdoc/config"
	"github.com/minios-linux/zhdoc/gate"
	"github.com/minios-linux/zhdoc/lockfile"
	"github.com/minios-linux/zhdoc/scanner"
	"github.com/minios-linux/zhdoc/settings"
	"github.com/minios-linux/zhdoc/translate"
)

// isolate points the credential store at a temp dir and clears the
// variables that feed provider resolution.
func isolate(t *testing.T) {
	t.Helper()
	t.Setenv("XDG_DATA_HOME", t.TempDir())
	for _, env := range []string{settings.EnvAPIKey, "OPENAI_API_KEY", "GROQ_API_KEY", "GOOGLE_API_KEY", envBaseURL, envModel} {
		t.Setenv(env, "")
	}
}

func TestRootCommandStructure(t *testing.T) {
	root := newRootCmd()
	var names []string
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	sort.Strings(names)

	for _, want := range []string{"auth", "scan", "translate", "version"} {
		i := sort.SearchStrings(names, want)
		if i >= len(names) || names[i] != want {
			t.Errorf("missing subcommand %q in %v", want, names)
		}
	}

	tr, _, err := root.Find([]string{"translate"})
	if err != nil {
		t.Fatalf("Find(translate): %v", err)
	}
	for _, flag := range []string{"provider", "model", "api-key", "base-url", "dry-run", "exclude", "force", "no-memory", "verbose", "timeout", "proxy", "max-retries"} {
		if tr.Flags().Lookup(flag) == nil {
			t.Errorf("translate is missing --%s", flag)
		}
	}
	if got := tr.Flags().Lookup("max-retries").DefValue; got != "3" {
		t.Errorf("--max-retries default = %q, want %q", got, "3")
	}
}

func TestVersionCommand(t *testing.T) {
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"version"})
	if err := root.Execute(); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !strings.HasPrefix(out.String(), "zhdoc version "+version) {
		t.Errorf("version output = %q", out.String())
	}
}

func TestProviderID(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", translate.ProviderCustomOpenAI},
		{"ollama", translate.ProviderOllama},
		{" Groq ", translate.ProviderGroq},
		{"google", translate.ProviderGoogle},
		{"my-vllm", translate.ProviderCustomOpenAI},
	}
	for _, tt := range tests {
		if got := providerID(tt.in); got != tt.want {
			t.Errorf("providerID(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestResolveProviderDefaults(t *testing.T) {
	isolate(t)

	prov := resolveProvider(providerFlags{}, &config.File{})
	if prov.ID != translate.ProviderCustomOpenAI {
		t.Errorf("ID = %q, want %q", prov.ID, translate.ProviderCustomOpenAI)
	}
	if prov.BaseURL != translate.DefaultBaseURL || prov.Model != translate.DefaultModel {
		t.Errorf("defaults = %q %q", prov.BaseURL, prov.Model)
	}
	if err := translate.ValidateProvider(prov); err != nil {
		t.Errorf("ValidateProvider(defaults) = %v", err)
	}
}

func TestResolveProviderPrecedence(t *testing.T) {
	isolate(t)

	if err := settings.Set(translate.ProviderCustomOpenAI, &settings.Info{
		Key: "stored-key", BaseURL: "http://stored/v1", Model: "stored-model",
	}); err != nil {
		t.Fatal(err)
	}
	cfg := &config.File{BaseURL: "http://project/v1", Model: "project-model", APIKey: "project-key"}

	// Project file beats the credential store.
	prov := resolveProvider(providerFlags{}, cfg)
	if prov.BaseURL != "http://project/v1" || prov.Model != "project-model" || prov.APIKey != "project-key" {
		t.Errorf("project layer = %q %q %q", prov.BaseURL, prov.Model, prov.APIKey)
	}

	// Environment beats the project file.
	t.Setenv(envBaseURL, "http://env/v1")
	t.Setenv(envModel, "env-model")
	t.Setenv(settings.EnvAPIKey, "env-key")
	prov = resolveProvider(providerFlags{}, cfg)
	if prov.BaseURL != "http://env/v1" || prov.Model != "env-model" || prov.APIKey != "env-key" {
		t.Errorf("env layer = %q %q %q", prov.BaseURL, prov.Model, prov.APIKey)
	}

	// Flags beat everything.
	f := providerFlags{baseURL: "http://flag/v1", model: "flag-model", apiKey: "flag-key", timeout: 5 * time.Second}
	prov = resolveProvider(f, cfg)
	if prov.BaseURL != "http://flag/v1" || prov.Model != "flag-model" || prov.APIKey != "flag-key" {
		t.Errorf("flag layer = %q %q %q", prov.BaseURL, prov.Model, prov.APIKey)
	}
	if prov.Timeout != 5*time.Second {
		t.Errorf("Timeout = %v, want 5s", prov.Timeout)
	}
}

func TestResolveProviderStoredCredentials(t *testing.T) {
	isolate(t)
	settings.Set(translate.ProviderGroq, &settings.Info{Key: "gsk-stored"})

	prov := resolveProvider(providerFlags{provider: "groq", model: "llama"}, &config.File{})
	if prov.ID != translate.ProviderGroq || prov.APIKey != "gsk-stored" {
		t.Errorf("groq = %q key %q", prov.ID, prov.APIKey)
	}

	t.Setenv("GROQ_API_KEY", "gsk-env")
	if got := resolveProvider(providerFlags{provider: "groq"}, &config.File{}).APIKey; got != "gsk-env" {
		t.Errorf("APIKey = %q, want provider env var", got)
	}
}

func TestRunTranslateMissingDir(t *testing.T) {
	isolate(t)
	dir := filepath.Join(t.TempDir(), "does-not-exist")
	if code := runTranslate(context.Background(), dir, translateArgs{}); code != 1 {
		t.Errorf("runTranslate(missing) = %d, want 1", code)
	}

	file := filepath.Join(t.TempDir(), "a.py")
	os.WriteFile(file, []byte("x = 1\n"), 0644)
	if code := runTranslate(context.Background(), file, translateArgs{}); code != 1 {
		t.Errorf("runTranslate(file) = %d, want 1", code)
	}
}

func TestRunTranslateEndToEnd(t *testing.T) {
	isolate(t)

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"choices":[{"message":{"content":"计数器加一"}}]}`))
	}))
	defer srv.Close()

	dir := t.TempDir()
	src := "count = 0\n# increment the counter\ncount += 1\n"
	path := filepath.Join(dir, "app.py")
	if err := os.WriteFile(path, []byte(src), 0644); err != nil {
		t.Fatal(err)
	}

	args := translateArgs{providerFlags: providerFlags{baseURL: srv.URL + "/v1", model: "test-model", maxRetries: 1}}
	if code := runTranslate(context.Background(), dir, args); code != 0 {
		t.Fatalf("runTranslate = %d, want 0", code)
	}

	got, _ := os.ReadFile(path)
	want := "count = 0\n# 计数器加一\ncount += 1\n"
	if string(got) != want {
		t.Fatalf("rewritten file = %q, want %q", got, want)
	}
	if calls.Load() != 1 {
		t.Errorf("backend calls = %d, want 1", calls.Load())
	}

	lf, err := lockfile.Load(dir)
	if err != nil {
		t.Fatalf("lockfile.Load: %v", err)
	}
	if lf.Model != "test-model" || lf.IsChanged("app.py", got) {
		t.Errorf("lock file not updated: model %q, %v", lf.Model, lf.Paths())
	}

	// Second run: the lock file skips the file without a backend call.
	if code := runTranslate(context.Background(), dir, args); code != 0 {
		t.Fatalf("second runTranslate = %d", code)
	}
	if calls.Load() != 1 {
		t.Errorf("backend calls after second run = %d, want 1", calls.Load())
	}

	// The memory answers a forced rerun of the same source.
	os.WriteFile(path, []byte(src), 0644)
	args.force = true
	if code := runTranslate(context.Background(), dir, args); code != 0 {
		t.Fatalf("forced runTranslate = %d", code)
	}
	if calls.Load() != 1 {
		t.Errorf("backend calls after forced run = %d, want 1 (memory hit)", calls.Load())
	}
	if got, _ := os.ReadFile(path); string(got) != want {
		t.Errorf("forced run file = %q", got)
	}
}

func TestRunTranslateDryRun(t *testing.T) {
	isolate(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices":[{"message":{"content":"计数器加一"}}]}`))
	}))
	defer srv.Close()

	dir := t.TempDir()
	src := "# increment the counter\n"
	path := filepath.Join(dir, "app.py")
	os.WriteFile(path, []byte(src), 0644)

	args := translateArgs{
		providerFlags: providerFlags{baseURL: srv.URL, model: "m"},
		dryRun:        true,
		noMemory:      true,
	}
	if code := runTranslate(context.Background(), dir, args); code != 0 {
		t.Fatalf("runTranslate = %d", code)
	}
	if got, _ := os.ReadFile(path); string(got) != src {
		t.Errorf("dry run modified the file: %q", got)
	}
	if _, err := os.Stat(filepath.Join(dir, lockfile.LockFileName)); !os.IsNotExist(err) {
		t.Errorf("dry run wrote the lock file: %v", err)
	}
}

func TestChooseProvider(t *testing.T) {
	tests := []struct {
		in     string
		want   string
		wantOK bool
	}{
		{"1", translate.ProviderCustomOpenAI, true},
		{" 3 ", translate.ProviderGroq, true},
		{"google", translate.ProviderGoogle, true},
		{"0", "", false},
		{"ollama", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := chooseProvider(tt.in)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("chooseProvider(%q) = %q, %v, want %q, %v", tt.in, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestAuthLoginAPIKey(t *testing.T) {
	isolate(t)

	in := bufio.NewScanner(strings.NewReader("gsk-1234567890abcdef\n"))
	if err := authLoginAPIKey(in, translate.ProviderGroq); err != nil {
		t.Fatalf("authLoginAPIKey: %v", err)
	}
	if got := settings.GetAPIKey(translate.ProviderGroq); got != "gsk-1234567890abcdef" {
		t.Fatalf("stored key = %q", got)
	}

	// Empty answer keeps the existing key.
	in = bufio.NewScanner(strings.NewReader("\n"))
	if err := authLoginAPIKey(in, translate.ProviderGroq); err != nil {
		t.Fatalf("keep existing: %v", err)
	}
	if got := settings.GetAPIKey(translate.ProviderGroq); got != "gsk-1234567890abcdef" {
		t.Errorf("key after keep = %q", got)
	}

	// No key at all is an error.
	in = bufio.NewScanner(strings.NewReader("\n"))
	if err := authLoginAPIKey(in, translate.ProviderOpenAI); err == nil {
		t.Error("empty key for new provider: want error")
	}

	in = bufio.NewScanner(strings.NewReader(""))
	if err := authLoginAPIKey(in, translate.ProviderGoogle); err != errNoInput {
		t.Errorf("EOF = %v, want errNoInput", err)
	}
}

func TestAuthLoginCustomOpenAI(t *testing.T) {
	isolate(t)

	// Defaults for URL and model, no key.
	in := bufio.NewScanner(strings.NewReader("\n\n\n"))
	if err := authLoginCustomOpenAI(in); err != nil {
		t.Fatalf("authLoginCustomOpenAI: %v", err)
	}
	info := settings.Get(translate.ProviderCustomOpenAI)
	if info == nil || info.BaseURL != translate.DefaultBaseURL || info.Model != translate.DefaultModel || info.Key != "" {
		t.Fatalf("stored = %+v", info)
	}

	in = bufio.NewScanner(strings.NewReader("http://gpu:9000/v1\nsecret\nqwen\n"))
	if err := authLoginCustomOpenAI(in); err != nil {
		t.Fatal(err)
	}
	info = settings.Get(translate.ProviderCustomOpenAI)
	if info.BaseURL != "http://gpu:9000/v1" || info.Key != "secret" || info.Model != "qwen" {
		t.Errorf("stored = %+v", info)
	}
}

func TestAuthLogout(t *testing.T) {
	isolate(t)
	settings.Set(translate.ProviderGroq, &settings.Info{Key: "a"})
	settings.Set(translate.ProviderOpenAI, &settings.Info{Key: "b"})

	if err := authLogout("nope"); err == nil {
		t.Error("authLogout(unknown) = nil error")
	}
	if err := authLogout(translate.ProviderGroq); err != nil {
		t.Fatal(err)
	}
	if settings.Get(translate.ProviderGroq) != nil || settings.Get(translate.ProviderOpenAI) == nil {
		t.Error("logout --provider groq removed the wrong entries")
	}
	if err := authLogout(""); err != nil {
		t.Fatal(err)
	}
	if len(settings.Load()) != 0 {
		t.Errorf("store after logout all = %v", settings.Load())
	}
}

func TestWriteAuthList(t *testing.T) {
	isolate(t)
	settings.Set(translate.ProviderGroq, &settings.Info{Key: "gsk-1234567890abcdef"})
	t.Setenv(settings.EnvAPIKey, "zk-abcdefghijklmnop")

	var buf bytes.Buffer
	writeAuthList(&buf)
	out := buf.String()

	for _, want := range []string{"groq", settings.MaskKey("gsk-1234567890abcdef"), settings.EnvAPIKey, "not configured"} {
		if !strings.Contains(out, want) {
			t.Errorf("auth list output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "gsk-1234567890abcdef") {
		t.Error("auth list printed an unmasked key")
	}
}

func TestCredentialStatus(t *testing.T) {
	tests := []struct {
		name string
		info *settings.Info
		want []string
	}{
		{"nil", nil, []string{"not configured"}},
		{"empty", &settings.Info{}, []string{"not configured"}},
		{"endpoint only", &settings.Info{BaseURL: "http://x/v1"}, []string{"configured", "no key", "endpoint: http://x/v1"}},
		{"model", &settings.Info{Key: "k", Model: "qwen"}, []string{"key: ", "model: qwen"}},
	}
	for _, tt := range tests {
		got := credentialStatus(tt.info)
		for _, w := range tt.want {
			if !strings.Contains(got, w) {
				t.Errorf("%s: credentialStatus = %q, want it to contain %q", tt.name, got, w)
			}
		}
	}
}

func TestPreview(t *testing.T) {
	tests := []struct {
		in   string
		max  int
		want string
	}{
		{"  short  ", 10, "short"},
		{"first\nsecond", 40, "first ..."},
		{"abcdefghij", 4, "abcd..."},
		{"中文注释内容", 3, "中文注..."},
	}
	for _, tt := range tests {
		if got := preview(tt.in, tt.max); got != tt.want {
			t.Errorf("preview(%q, %d) = %q, want %q", tt.in, tt.max, got, tt.want)
		}
	}
}

func TestFormatDecision(t *testing.T) {
	d := batch.Decision{
		Span:   scanner.Span{Kind: scanner.KindComment, Text: "TODO", Anchor: 4},
		Reason: gate.ReasonTooShort,
	}
	want := "pkg/a.py:5\tcomment\tskip: too short\tTODO"
	if got := formatDecision("pkg/a.py", d); got != want {
		t.Errorf("formatDecision = %q, want %q", got, want)
	}

	d.Reason = gate.ReasonAccepted
	d.Span.Text = "Return the sum."
	if got := formatDecision("a.py", d); !strings.Contains(got, "\ttranslate\t") {
		t.Errorf("formatDecision(eligible) = %q", got)
	}
}

func TestRunScan(t *testing.T) {
	dir := t.TempDir()
	src := "#!/usr/bin/env python3\n# -*- coding: utf-8 -*-\n# Compute the answer.\nx = 42  # noqa\n# 已经是中文了\n"
	os.WriteFile(filepath.Join(dir, "a.py"), []byte(src), 0644)

	cmd := newScanCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)

	if code := runScan(cmd, dir, nil, false); code != 0 {
		t.Fatalf("runScan = %d", code)
	}
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 1 || !strings.HasPrefix(lines[0], "a.py:3\tcomment\ttranslate") {
		t.Fatalf("scan output = %q", out.String())
	}

	out.Reset()
	runScan(cmd, dir, nil, true)
	if n := strings.Count(out.String(), "\n"); n != 5 {
		t.Errorf("scan --all listed %d spans, want 5:\n%s", n, out.String())
	}

	if code := runScan(cmd, filepath.Join(dir, "missing"), nil, false); code != 1 {
		t.Errorf("runScan(missing) = %d, want 1", code)
	}
}
