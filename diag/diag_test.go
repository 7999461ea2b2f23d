package diag

import (
	"fmt"
	"strings"
	"testing"
)

func TestErrorString(t *testing.T) {
	tests := []struct {
		err  *Error
		want string
	}{
		{Errorf(SyntaxError, 3, 7, "unterminated string meets end of file"),
			"3:7: unterminated string meets end of file (SyntaxError)"},
		{&Error{Kind: ParseError, File: "a.rb", Line: 2, Message: "unexpected end"},
			"a.rb:2: unexpected end (ParseError)"},
		{&Error{Kind: LoweringInvariantViolation, Message: "bad target"},
			"bad target (LoweringInvariantViolation)"},
	}
	for i, tt := range tests {
		if got := tt.err.Error(); got != tt.want {
			t.Fatalf("test[%d]: expected %q, got %q", i, tt.want, got)
		}
	}
}

func TestIsIncompleteThroughWrapping(t *testing.T) {
	err := fmt.Errorf("compile: %w", Incompletef(SyntaxError, 1, 1, "unterminated heredoc"))
	if !IsIncomplete(err) {
		t.Fatalf("expected wrapped incomplete error to be detected")
	}
	if IsIncomplete(Errorf(ParseError, 1, 1, "unexpected token")) {
		t.Fatalf("plain parse error reported as incomplete")
	}
	if !IsKind(err, SyntaxError) || IsKind(err, ParseError) {
		t.Fatalf("IsKind mismatch for %v", err)
	}
}

func TestRenderCaret(t *testing.T) {
	src := "x = 1\ny = (2 +\nz = 3"
	out := Errorf(ParseError, 2, 9, "unexpected newline").Render(src)
	lines := strings.Split(out, "\n")
	if !strings.HasPrefix(lines[0], "2:9: unexpected newline") {
		t.Fatalf("unexpected header %q", lines[0])
	}
	var caret string
	for _, l := range lines {
		if strings.HasSuffix(l, "^") {
			caret = l
		}
	}
	if caret != "     |         ^" {
		t.Fatalf("caret line misplaced: %q", caret)
	}
	if !strings.Contains(out, "   1 | x = 1") || !strings.Contains(out, "   3 | z = 3") {
		t.Fatalf("missing context lines:\n%s", out)
	}
}
