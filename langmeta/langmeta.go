// Package langmeta provides target-language metadata and the script
// detection used to decide whether a text fragment is already translated.
package langmeta

import (
	"strings"
	"unicode"
)

// Meta describes language display metadata.
type Meta struct {
	Code string
	Name string
	// English is the language name used inside backend prompts.
	English string
}

// Target is the language comments are translated into.
const Target = "zh-CN"

// Registry contains the Chinese variants the tool can target.
// Locale variants are resolved in Resolve() via normalization and base fallback.
var Registry = map[string]Meta{
	"zh":    {Code: "zh", Name: "中文", English: "Chinese"},
	"zh-CN": {Code: "zh-CN", Name: "简体中文", English: "Simplified Chinese"},
	"zh-SG": {Code: "zh-SG", Name: "简体中文（新加坡）", English: "Simplified Chinese"},
	"zh-TW": {Code: "zh-TW", Name: "繁體中文", English: "Traditional Chinese"},
	"zh-HK": {Code: "zh-HK", Name: "繁體中文（香港）", English: "Traditional Chinese"},
}

func canonicalize(lang string) string {
	normalized := strings.ReplaceAll(strings.TrimSpace(lang), "_", "-")
	if normalized == "" {
		return ""
	}
	parts := strings.Split(normalized, "-")
	parts[0] = strings.ToLower(parts[0])
	if len(parts) >= 2 {
		parts[1] = strings.ToUpper(parts[1])
	}
	return strings.Join(parts, "-")
}

// Resolve returns best-effort language metadata for language codes,
// supporting variants like zh_CN, zh-cn, and locale fallbacks.
func Resolve(lang string) Meta {
	if m, ok := Registry[lang]; ok {
		return m
	}
	normalized := canonicalize(lang)
	if m, ok := Registry[normalized]; ok {
		return m
	}
	if parts := strings.SplitN(normalized, "-", 2); len(parts) == 2 {
		if m, ok := Registry[parts[0]]; ok {
			return m
		}
	}
	return Meta{Code: lang, Name: lang, English: lang}
}

// ContainsChinese reports whether text holds at least one CJK unified
// ideograph (U+4E00..U+9FFF).
func ContainsChinese(text string) bool {
	for _, r := range text {
		if r >= 0x4e00 && r <= 0x9fff {
			return true
		}
	}
	return false
}

// HasLetter reports whether text contains any alphabetic rune.
func HasLetter(text string) bool {
	for _, r := range text {
		if unicode.IsLetter(r) {
			return true
		}
	}
	return false
}

// VisibleLen counts the non-whitespace runes of text.
func VisibleLen(text string) int {
	n := 0
	for _, r := range text {
		if !unicode.IsSpace(r) {
			n++
		}
	}
	return n
}
