// Package scanner separates comments and docstrings from code in Python
// source without a full parser.
//
// The scanner works line by line. Split finds the boundary between code and
// a trailing "#" comment while honoring quoted literals, and Scan folds a
// small state machine over the lines of a file to delimit single-line and
// multi-line triple-quoted docstrings. Both are pure: they never touch the
// file system, so a file pass reads once, scans, and hands the spans to the
// gate and rewriter.
package scanner

import "strings"

// Kind classifies a span.
type Kind int

const (
	// KindComment is a "#" comment, either on its own line or after code.
	KindComment Kind = iota
	// KindDocstringSingle is a docstring opened and closed on one line.
	KindDocstringSingle
	// KindDocstringMulti is a docstring spanning several lines.
	KindDocstringMulti
)

func (k Kind) String() string {
	switch k {
	case KindComment:
		return "comment"
	case KindDocstringSingle:
		return "docstring"
	case KindDocstringMulti:
		return "docstring-multi"
	default:
		return "unknown"
	}
}

// Delimiters.
const (
	DelimHash         = "#"
	DelimDoubleTriple = `"""`
	DelimSingleTriple = `'''`
)

// Span is a contiguous line range holding one comment or docstring.
//
// Start <= Anchor <= End always holds; single-line kinds have
// Start == End == Anchor.
type Span struct {
	Kind      Kind
	Delimiter string
	// Text is the comment or docstring body without delimiters.
	Text string

	Anchor int
	Start  int
	End    int

	// Indent is the width of the anchor line's leading whitespace and
	// IndentText the whitespace itself.
	Indent     int
	IndentText string

	// Prefix is the raw text before "#" for comments, or the string prefix
	// letter (r, u) before a docstring delimiter.
	Prefix string
	// Suffix is anything after the closing delimiter on the closing line.
	Suffix string
}

// Lines returns the number of source lines covered by the span.
func (s Span) Lines() int {
	return s.End - s.Start + 1
}

// IsDocstring reports whether the span is a docstring of either kind.
func (s Span) IsDocstring() bool {
	return s.Kind == KindDocstringSingle || s.Kind == KindDocstringMulti
}

// CodePart returns the code before a comment, right-trimmed. It is empty for
// docstrings and for comments on their own line.
func (s Span) CodePart() string {
	if s.Kind != KindComment {
		return ""
	}
	return strings.TrimRight(s.Prefix, " \t")
}

// leadingWhitespace returns the leading run of spaces and tabs in line.
func leadingWhitespace(line string) string {
	return line[:len(line)-len(strings.TrimLeft(line, " \t"))]
}
