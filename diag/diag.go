// Package diag defines the compile-time error taxonomy shared by the lexer, the
// parser and the lowering pass, and renders errors against their source text.
package diag

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies a compile-time error.
type Kind int

const (
	SyntaxError Kind = iota
	ParseError
	LoweringInvariantViolation
)

var kindNames = map[Kind]string{
	SyntaxError:                "SyntaxError",
	ParseError:                 "ParseError",
	LoweringInvariantViolation: "LoweringInvariantViolation",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "Error"
}

// Error is a structured diagnostic. Line and Column are 1-based; zero means unknown.
type Error struct {
	Kind    Kind
	Message string
	File    string
	Line    int
	Column  int

	// Incomplete marks errors caused by input that ended too early (an unterminated
	// string, a missing end). An interactive reader keeps reading when it sees one.
	Incomplete bool
}

// Errorf builds an Error of the given kind at line:col.
func Errorf(kind Kind, line, col int, format string, args ...any) *Error {
	return &Error{Kind: kind, Line: line, Column: col, Message: fmt.Sprintf(format, args...)}
}

// Incompletef is Errorf for errors caused by premature end of input.
func Incompletef(kind Kind, line, col int, format string, args ...any) *Error {
	e := Errorf(kind, line, col, format, args...)
	e.Incomplete = true
	return e
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.File != "" {
		b.WriteString(e.File)
		b.WriteByte(':')
	}
	if e.Line > 0 {
		fmt.Fprintf(&b, "%d:", e.Line)
		if e.Column > 0 {
			fmt.Fprintf(&b, "%d:", e.Column)
		}
		b.WriteByte(' ')
	}
	b.WriteString(e.Message)
	fmt.Fprintf(&b, " (%s)", e.Kind)
	return b.String()
}

// IsIncomplete reports whether err was caused by premature end of input.
func IsIncomplete(err error) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Incomplete
	}
	return false
}

// IsKind reports whether err is a diagnostic of kind k.
func IsKind(err error, k Kind) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind == k
	}
	return false
}

// Render returns the error with a caret snippet of src: one line of context on each
// side, line numbers, and a caret under the column.
func (e *Error) Render(src string) string {
	lines := strings.Split(src, "\n")
	line := e.Line
	if line < 1 {
		line = 1
	}
	if line > len(lines) {
		line = len(lines)
	}
	col := e.Column
	if col < 1 {
		col = 1
	}

	var b strings.Builder
	b.WriteString(e.Error())
	b.WriteString("\n\n")
	if line > 1 {
		fmt.Fprintf(&b, "%4d | %s\n", line-1, lines[line-2])
	}
	fmt.Fprintf(&b, "%4d | %s\n", line, lines[line-1])
	fmt.Fprintf(&b, "     | %s^\n", strings.Repeat(" ", col-1))
	if line < len(lines) {
		fmt.Fprintf(&b, "%4d | %s\n", line+1, lines[line])
	}
	return b.String()
}
