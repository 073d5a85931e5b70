package scanner

import "strings"

// State is the extractor state.
type State int

const (
	// Idle is outside any docstring block.
	Idle State = iota
	// InBlock is inside an open multi-line docstring.
	InBlock
	// InString is inside a triple-quoted literal opened after code, such as
	// `x = """`. Its lines are data and yield no spans.
	InString
)

func (s State) String() string {
	switch s {
	case InBlock:
		return "in-block"
	case InString:
		return "in-string"
	}
	return "idle"
}

// ScanState is the value threaded through Step. The zero value is Idle.
type ScanState struct {
	State     State
	Delimiter string
	// Prefix is the string prefix letter of the open block, if any.
	Prefix    string
	Collected []string
	Start     int
}

// Dangling describes a docstring block still open at end of input.
type Dangling struct {
	Start     int
	Delimiter string
}

// Result is the outcome of scanning one file.
type Result struct {
	// Spans are in file order and never overlap.
	Spans []Span
	// Dangling is set when the last block was never closed. Its lines are
	// left untouched and belong to no span.
	Dangling *Dangling
}

// Scan folds Step over lines and collects the emitted spans.
func Scan(lines []string) Result {
	var (
		st  ScanState
		res Result
	)
	for i, line := range lines {
		var span *Span
		st, span = Step(st, i, line)
		if span != nil {
			res.Spans = append(res.Spans, *span)
		}
	}
	if st.State == InBlock {
		res.Dangling = &Dangling{Start: st.Start, Delimiter: st.Delimiter}
	}
	return res
}

// Step consumes line number i in state st and returns the next state and the
// span completed by this line, if any.
func Step(st ScanState, i int, line string) (ScanState, *Span) {
	switch st.State {
	case InBlock:
		return stepInBlock(st, i, line)
	case InString:
		return stepInString(st, i, line)
	}
	return stepIdle(i, line)
}

func stepIdle(i int, line string) (ScanState, *Span) {
	stripped := strings.TrimSpace(line)
	indent := leadingWhitespace(line)

	if prefix, delim, ok := openDelimiter(stripped); ok {
		rest := stripped[len(prefix):]
		body := rest[len(delim):]
		if end := strings.Index(body, delim); end >= 0 {
			if len(rest) == 2*len(delim) {
				// Empty docstring: complete, nothing to translate.
				return ScanState{}, nil
			}
			return ScanState{}, &Span{
				Kind:       KindDocstringSingle,
				Delimiter:  delim,
				Text:       body[:end],
				Anchor:     i,
				Start:      i,
				End:        i,
				Indent:     len(indent),
				IndentText: indent,
				Prefix:     prefix,
				Suffix:     body[end+len(delim):],
			}
		}
		return ScanState{
			State:     InBlock,
			Delimiter: delim,
			Prefix:    prefix,
			Collected: []string{line},
			Start:     i,
		}, nil
	}

	if delim := OpenTriple(line); delim != "" {
		return ScanState{State: InString, Delimiter: delim, Start: i}, nil
	}
	return ScanState{}, commentSpan(i, line, 0)
}

// stepInString skips the lines of a literal opened after code. A comment
// after the closing delimiter is still a comment.
func stepInString(st ScanState, i int, line string) (ScanState, *Span) {
	end := strings.Index(line, st.Delimiter)
	if end < 0 {
		return st, nil
	}
	from := end + len(st.Delimiter)
	if delim := OpenTriple(line[from:]); delim != "" {
		return ScanState{State: InString, Delimiter: delim, Start: i}, nil
	}
	return ScanState{}, commentSpan(i, line, from)
}

// commentSpan returns the comment of line found at or after byte from.
func commentSpan(i int, line string, from int) *Span {
	idx := CommentIndex(line[from:])
	if idx < 0 {
		return nil
	}
	idx += from
	indent := leadingWhitespace(line)
	return &Span{
		Kind:       KindComment,
		Delimiter:  DelimHash,
		Text:       strings.TrimSpace(line[idx+1:]),
		Anchor:     i,
		Start:      i,
		End:        i,
		Indent:     len(indent),
		IndentText: indent,
		Prefix:     line[:idx],
	}
}

func stepInBlock(st ScanState, i int, line string) (ScanState, *Span) {
	st.Collected = append(st.Collected, line)
	stripped := strings.TrimSpace(line)
	if !strings.Contains(stripped, st.Delimiter) {
		return st, nil
	}

	first := st.Collected[0]
	indent := leadingWhitespace(first)
	text, suffix := blockText(st.Collected, st.Prefix, st.Delimiter)

	return ScanState{}, &Span{
		Kind:       KindDocstringMulti,
		Delimiter:  st.Delimiter,
		Text:       text,
		Anchor:     st.Start,
		Start:      st.Start,
		End:        i,
		Indent:     len(indent),
		IndentText: indent,
		Prefix:     st.Prefix,
		Suffix:     suffix,
	}
}

// blockText joins the body of a closed block. The first line loses its
// opening delimiter, the last line everything from the closing delimiter on
// (returned as suffix), and interior lines their leading indentation.
func blockText(collected []string, prefix, delim string) (text, suffix string) {
	var parts []string
	last := len(collected) - 1

	opening := strings.TrimSpace(collected[0])
	opening = strings.TrimSpace(opening[len(prefix)+len(delim):])
	if opening != "" {
		parts = append(parts, opening)
	}

	for _, line := range collected[1:last] {
		parts = append(parts, strings.TrimLeft(line, " \t"))
	}

	closing := strings.TrimSpace(collected[last])
	end := strings.Index(closing, delim)
	if body := strings.TrimSpace(closing[:end]); body != "" {
		parts = append(parts, body)
	}
	suffix = closing[end+len(delim):]

	return strings.Join(parts, "\n"), suffix
}

// openDelimiter reports whether a stripped line opens a docstring and returns
// its optional prefix letter and the triple-quote delimiter.
func openDelimiter(stripped string) (prefix, delim string, ok bool) {
	rest := stripped
	if len(rest) > 0 && strings.IndexByte("rRuU", rest[0]) >= 0 {
		if !strings.HasPrefix(rest[1:], DelimDoubleTriple) && !strings.HasPrefix(rest[1:], DelimSingleTriple) {
			return "", "", false
		}
		prefix, rest = rest[:1], rest[1:]
	}
	for _, d := range []string{DelimDoubleTriple, DelimSingleTriple} {
		if strings.HasPrefix(rest, d) {
			return prefix, d, true
		}
	}
	return "", "", false
}
