// Package rewrite reassembles source lines with translated spans put back in
// place.
package rewrite

import (
	"strings"

	"github.com/minios-linux/zhdoc/gate"
	"github.com/minios-linux/zhdoc/scanner"
)

// Edit replaces the original lines Start..End (inclusive) with New.
type Edit struct {
	Start int
	End   int
	Old   []string
	New   []string
}

// Edits returns the replacements produced by applied outcomes, in file order.
// outcomes is parallel to spans; spans without an applied outcome keep
// their original lines and produce no edit.
func Edits(lines []string, spans []scanner.Span, outcomes []gate.Outcome) []Edit {
	var edits []Edit
	next := 0
	for i, span := range spans {
		if i >= len(outcomes) || !outcomes[i].Applied {
			continue
		}
		if span.Start < next || span.End >= len(lines) {
			continue
		}
		old := lines[span.Start : span.End+1]
		repl := Format(span, outcomes[i].Translated)
		if strings.HasSuffix(lines[span.End], "\r") {
			repl = withCR(repl)
		}
		next = span.End + 1
		if equalLines(old, repl) {
			continue
		}
		edits = append(edits, Edit{Start: span.Start, End: span.End, Old: old, New: repl})
	}
	return edits
}

// Apply returns a new line slice with all applied outcomes written in. The
// line count may differ from the input when multi-line docstrings change
// length.
func Apply(lines []string, spans []scanner.Span, outcomes []gate.Outcome) []string {
	edits := Edits(lines, spans, outcomes)
	if len(edits) == 0 {
		return append([]string(nil), lines...)
	}

	out := make([]string, 0, len(lines))
	next := 0
	for _, e := range edits {
		out = append(out, lines[next:e.Start]...)
		out = append(out, e.New...)
		next = e.End + 1
	}
	return append(out, lines[next:]...)
}

// Format renders span with text as its new body.
func Format(span scanner.Span, text string) []string {
	switch span.Kind {
	case scanner.KindComment:
		return []string{span.Prefix + "# " + oneLine(text)}

	case scanner.KindDocstringSingle:
		return []string{span.IndentText + span.Prefix + span.Delimiter + oneLine(text) + span.Delimiter + span.Suffix}

	default:
		indent := span.IndentText
		out := []string{indent + span.Prefix + span.Delimiter}
		for _, line := range strings.Split(text, "\n") {
			if strings.TrimSpace(line) == "" {
				continue
			}
			out = append(out, indent+strings.TrimRight(line, " \t\r"))
		}
		return append(out, indent+span.Delimiter+span.Suffix)
	}
}

// oneLine collapses a possibly multi-line answer for single-line spans. A
// newline inside a comment would turn the rest of it into code.
func oneLine(text string) string {
	var parts []string
	for _, line := range strings.Split(text, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			parts = append(parts, line)
		}
	}
	return strings.Join(parts, " ")
}

// withCR ends every line in a single carriage return. Files with mixed line
// endings keep CRLF on the lines that had it.
func withCR(lines []string) []string {
	out := make([]string, len(lines))
	for i, l := range lines {
		out[i] = strings.TrimRight(l, "\r") + "\r"
	}
	return out
}

func equalLines(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
