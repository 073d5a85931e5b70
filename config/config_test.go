package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, FileName), []byte(body), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return dir
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	f, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if f.Found() || f.Path() != "" {
		t.Fatalf("Found() = true for missing file")
	}
	if !f.MemoryEnabled() {
		t.Error("memory should default to enabled")
	}
	if got := f.EffectiveExtensions(); !reflect.DeepEqual(got, DefaultExtensions) {
		t.Errorf("EffectiveExtensions() = %v, want %v", got, DefaultExtensions)
	}
	if f.TimeoutDuration() != 0 {
		t.Errorf("TimeoutDuration() = %v, want 0", f.TimeoutDuration())
	}
}

func TestLoadFullFile(t *testing.T) {
	dir := writeConfig(t, `
provider: ollama
model: qwen2.5:7b
base_url: http://gpu-box:11434/v1
timeout: 90s
exclude: [migrations, vendor]
extensions: [py, .pyi]
memory: false
prompts:
  comment: "翻译注释：{{text}}"
  docstring: "翻译文档：{{text}}"
`)
	f, err := Load(dir)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if !f.Found() || f.Path() != filepath.Join(dir, FileName) {
		t.Fatalf("Path() = %q", f.Path())
	}
	if f.Provider != "ollama" || f.Model != "qwen2.5:7b" || f.BaseURL != "http://gpu-box:11434/v1" {
		t.Errorf("provider fields = %q %q %q", f.Provider, f.Model, f.BaseURL)
	}
	if f.TimeoutDuration() != 90*time.Second {
		t.Errorf("TimeoutDuration() = %v, want 90s", f.TimeoutDuration())
	}
	if f.MemoryEnabled() {
		t.Error("memory: false was ignored")
	}
	if got, want := f.EffectiveExtensions(), []string{".py", ".pyi"}; !reflect.DeepEqual(got, want) {
		t.Errorf("EffectiveExtensions() = %v, want %v", got, want)
	}
	if f.Prompts.Comment != "翻译注释：{{text}}" || f.Prompts.Docstring != "翻译文档：{{text}}" {
		t.Errorf("Prompts = %+v", f.Prompts)
	}
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{name: "bad timeout", body: "timeout: soon\n", want: "invalid timeout"},
		{name: "negative timeout", body: "timeout: -5s\n", want: "invalid timeout"},
		{name: "empty extension", body: "extensions: ['']\n", want: "extensions[0]"},
		{name: "exclude path", body: "exclude: [src/gen]\n", want: "directory name"},
		{name: "malformed yaml", body: "provider: [\n", want: "parsing"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tc.body))
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("Load() error = %v, want containing %q", err, tc.want)
			}
		})
	}
}

func TestEffectiveExclude(t *testing.T) {
	f := &File{Exclude: []string{"vendor", ".git"}}
	got := f.EffectiveExclude("generated", "vendor", " ")

	count := make(map[string]int)
	for _, name := range got {
		count[name]++
	}
	for _, want := range []string{".git", "venv", "__pycache__", "vendor", "generated"} {
		if count[want] != 1 {
			t.Errorf("EffectiveExclude() has %q %d times, want once: %v", want, count[want], got)
		}
	}
	if count[""] != 0 {
		t.Errorf("EffectiveExclude() kept a blank name: %v", got)
	}
}
