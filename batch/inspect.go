package batch

import (
	"strings"

	"github.com/minios-linux/zhdoc/gate"
	"github.com/minios-linux/zhdoc/scanner"
)

// Decision is the gate verdict on one span.
type Decision struct {
	Span   scanner.Span
	Reason gate.Reason
}

// Eligible reports whether the span would be sent to the backend.
func (d Decision) Eligible() bool {
	return d.Reason == gate.ReasonAccepted
}

// Inspect scans content and returns the gate decision for every span,
// without calling any backend.
func Inspect(content string) ([]Decision, *scanner.Dangling) {
	text, _ := normalizeNewlines(content)
	res := scanner.Scan(strings.Split(text, "\n"))

	out := make([]Decision, 0, len(res.Spans))
	for _, span := range res.Spans {
		out = append(out, Decision{Span: span, Reason: gate.Check(span)})
	}
	return out, res.Dangling
}
