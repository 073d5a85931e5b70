package scanner

import (
	"strings"
	"unicode"
)

// lexState is the state of the quote tracker used by CommentIndex.
type lexState int

const (
	lexCode lexState = iota
	lexQuoted
)

// CommentIndex returns the byte offset of the first "#" outside any quoted
// literal, or -1 when the line has no comment.
//
// A backslash marks the following character as escaped, so `\"` never
// toggles the quoted state and `\\"` closes it. Only the quote character
// that opened a literal can close it.
func CommentIndex(line string) int {
	state := lexCode
	var quote byte
	escapePending := false

	for i := 0; i < len(line); i++ {
		c := line[i]
		if escapePending {
			escapePending = false
			continue
		}
		switch {
		case c == '\\':
			escapePending = true
		case state == lexQuoted:
			if c == quote {
				state = lexCode
				quote = 0
			}
		case c == '"' || c == '\'':
			state = lexQuoted
			quote = c
		case c == '#':
			return i
		}
	}
	return -1
}

// OpenTriple returns the delimiter of a triple-quoted literal that starts in
// the code part of line and is still open at its end, or "" when there is
// none. Quotes inside single-quoted literals and after the comment "#" do
// not count.
func OpenTriple(line string) string {
	var quote byte
	triple := ""

	for i := 0; i < len(line); i++ {
		c := line[i]
		switch {
		case c == '\\' && (quote != 0 || triple != ""):
			i++
		case triple != "":
			if strings.HasPrefix(line[i:], triple) {
				i += len(triple) - 1
				triple = ""
			}
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '"' || c == '\'':
			if d := strings.Repeat(string(c), 3); strings.HasPrefix(line[i:], d) {
				triple = d
				i += len(d) - 1
			} else {
				quote = c
			}
		case c == '#':
			return ""
		}
	}
	return triple
}

// Split separates line into its code part (right-trimmed) and the comment
// after the first unquoted "#" (left-trimmed). Without a comment it returns
// (line, "").
func Split(line string) (code, comment string) {
	idx := CommentIndex(line)
	if idx < 0 {
		return line, ""
	}
	code = strings.TrimRightFunc(line[:idx], unicode.IsSpace)
	comment = strings.TrimLeftFunc(line[idx+1:], unicode.IsSpace)
	return code, comment
}
