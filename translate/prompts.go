package translate

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ---------------------------------------------------------------------------
// Prompt templates
// ---------------------------------------------------------------------------

// Placeholders substituted into prompt templates.
const (
	placeholderText = "{{text}}"
	placeholderLang = "{{targetLang}}"
)

// DefaultCommentPrompt frames a "#" comment.
const DefaultCommentPrompt = `请将以下Python注释从英文翻译为{{targetLang}}：

{{text}}

只返回翻译后的{{targetLang}}文本，不要添加#符号或其他前缀。`

// DefaultDocstringPrompt frames a docstring and asks to keep its layout.
const DefaultDocstringPrompt = `请将以下Python文档字符串从英文翻译为{{targetLang}}，保持格式和结构：

{{text}}

只返回翻译后的{{targetLang}}文本，不要添加任何解释。`

// DefaultSystemPrompt is sent as the system message when non-empty.
const DefaultSystemPrompt = `You are a professional translator of source code documentation. Keep identifiers, parameter names, code samples, URLs and reStructuredText or Markdown markup unchanged. Never wrap the answer in quotes or code fences.`

// Prompts holds the templates used to frame each span kind.
type Prompts struct {
	System    string `json:"system,omitempty" yaml:"system,omitempty"`
	Comment   string `json:"comment,omitempty" yaml:"comment,omitempty"`
	Docstring string `json:"docstring,omitempty" yaml:"docstring,omitempty"`
}

// DefaultPrompts returns the built-in templates.
func DefaultPrompts() Prompts {
	return Prompts{
		System:    DefaultSystemPrompt,
		Comment:   DefaultCommentPrompt,
		Docstring: DefaultDocstringPrompt,
	}
}

// Merge returns p with empty fields taken from fallback.
func (p Prompts) Merge(fallback Prompts) Prompts {
	if p.System == "" {
		p.System = fallback.System
	}
	if p.Comment == "" {
		p.Comment = fallback.Comment
	}
	if p.Docstring == "" {
		p.Docstring = fallback.Docstring
	}
	return p
}

// Render builds the user prompt for text of the given kind.
func (p Prompts) Render(text, kind, langName string) string {
	tmpl := p.Comment
	if kind == KindDocstring {
		tmpl = p.Docstring
	}
	if !strings.Contains(tmpl, placeholderText) {
		tmpl += "\n\n" + placeholderText
	}
	out := strings.ReplaceAll(tmpl, placeholderLang, langName)
	return strings.ReplaceAll(out, placeholderText, text)
}

// ---------------------------------------------------------------------------
// prompts.json
// ---------------------------------------------------------------------------

// promptsFile is the on-disk shape of prompts.json.
type promptsFile struct {
	Prompts Prompts `json:"prompts"`
}

// LoadPromptsFromFile loads templates from a JSON file. A missing file is not
// an error and yields empty Prompts, so callers merge with the defaults.
func LoadPromptsFromFile(path string) (Prompts, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Prompts{}, nil
		}
		return Prompts{}, fmt.Errorf("failed to read prompts file: %w", err)
	}

	var f promptsFile
	if err := json.Unmarshal(data, &f); err != nil {
		return Prompts{}, fmt.Errorf("failed to parse prompts file: %w", err)
	}
	return f.Prompts, nil
}

// WriteDefaultPrompts writes the built-in templates to path as formatted JSON.
func WriteDefaultPrompts(path string) error {
	data, err := json.MarshalIndent(promptsFile{Prompts: DefaultPrompts()}, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling default prompts: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("creating prompts directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing default prompts file: %w", err)
	}
	return nil
}

// LoadPrompts reads path, creating it with the defaults when it does not
// exist yet, and returns the templates merged with the defaults.
func LoadPrompts(path string) (Prompts, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := WriteDefaultPrompts(path); err != nil {
			return DefaultPrompts(), err
		}
	}
	p, err := LoadPromptsFromFile(path)
	if err != nil {
		return DefaultPrompts(), err
	}
	return p.Merge(DefaultPrompts()), nil
}
