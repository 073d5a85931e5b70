// Package gate decides which spans are sent to the translation backend and
// whether a backend answer may be written back into the source.
package gate

import (
	"regexp"
	"strings"

	"github.com/minios-linux/zhdoc/langmeta"
	"github.com/minios-linux/zhdoc/scanner"
)

// MinVisibleChars is the minimum number of non-space characters a span needs
// before it is worth translating.
const MinVisibleChars = 3

// Context kinds passed to the backend.
const (
	ContextComment   = "comment"
	ContextDocstring = "docstring"
)

// Reason explains a gate decision.
type Reason string

const (
	ReasonAccepted  Reason = ""
	ReasonTooShort  Reason = "too short"
	ReasonNoLetters Reason = "no letters"
	ReasonChinese   Reason = "already Chinese"
	ReasonDirective Reason = "source directive"
)

// Outcome is the result of translating one span.
type Outcome struct {
	Original   string
	Translated string
	Applied    bool
}

var (
	// PEP 263 source encoding declaration.
	codingPattern = regexp.MustCompile(`^[ \t\f]*(?:-\*-\s*)?(?:vim?:.*)?coding[:=]\s*[-\w.]+`)
	// Tool pragmas that linters and type checkers read back verbatim.
	pragmaPattern = regexp.MustCompile(`^(?:noqa\b|type:|pylint:|fmt:\s*(?:on|off|skip)|isort:|pragma:|mypy:|pyright:|nosec\b)`)
)

// Check returns the rejection reason for span, or ReasonAccepted.
func Check(span scanner.Span) Reason {
	text := strings.TrimSpace(span.Text)

	if span.Kind == scanner.KindComment && isDirective(span, text) {
		return ReasonDirective
	}
	if langmeta.VisibleLen(text) < MinVisibleChars {
		return ReasonTooShort
	}
	if !langmeta.HasLetter(text) {
		return ReasonNoLetters
	}
	if langmeta.ContainsChinese(text) {
		return ReasonChinese
	}
	return ReasonAccepted
}

// ShouldTranslate reports whether span is eligible for translation.
func ShouldTranslate(span scanner.Span) bool {
	return Check(span) == ReasonAccepted
}

// ContextKind returns the backend prompt hint for span.
func ContextKind(span scanner.Span) string {
	if span.IsDocstring() {
		return ContextDocstring
	}
	return ContextComment
}

func isDirective(span scanner.Span, text string) bool {
	if span.Anchor == 0 && strings.HasPrefix(text, "!") && span.CodePart() == "" {
		return true
	}
	if span.Anchor <= 1 && codingPattern.MatchString(text) {
		return true
	}
	return pragmaPattern.MatchString(strings.ToLower(text))
}

// Accept turns a backend answer for span into an Outcome.
//
// The answer is trimmed of whitespace and wrapping quotes. It is not applied
// when empty, unchanged, or when it contains the span's triple-quote
// delimiter, which would terminate the docstring early. A single-line
// docstring answer ending in an unpaired backslash is refused too, since the
// backslash would escape the closing delimiter.
func Accept(span scanner.Span, translated string) Outcome {
	original := strings.TrimSpace(span.Text)
	out := Outcome{Original: original, Translated: Clean(translated)}

	switch {
	case out.Translated == "":
	case out.Translated == original:
	case span.IsDocstring() && strings.Contains(out.Translated, span.Delimiter):
	case span.Kind == scanner.KindDocstringSingle && endsWithEscape(out.Translated):
	default:
		out.Applied = true
	}
	return out
}

// endsWithEscape reports whether s ends in an odd run of backslashes.
func endsWithEscape(s string) bool {
	n := len(s) - len(strings.TrimRight(s, `\`))
	return n%2 == 1
}

// Reject returns the Outcome for a span that keeps its original text.
func Reject(span scanner.Span) Outcome {
	return Outcome{Original: strings.TrimSpace(span.Text)}
}

// Clean strips surrounding whitespace and stray quote characters that models
// tend to wrap answers in.
func Clean(s string) string {
	s = strings.TrimSpace(s)
	s = strings.Trim(s, `"'`)
	return strings.TrimSpace(s)
}
