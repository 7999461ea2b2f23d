package repl

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/alexisbouchez/rubyvm/diag"
)

func TestPipedSession(t *testing.T) {
	input := strings.Join([]string{
		"x = 1",
		"def sq(n)",
		"  n * n",
		"end",
		"sq(x + 2)",
		"puts :hi",
		"exit",
	}, "\n") + "\n"

	var out bytes.Buffer
	if err := Start(context.Background(), strings.NewReader(input), &out, Options{}); err != nil {
		t.Fatalf("Start: %v", err)
	}
	want := "irb> => 1\n" +
		"irb> ...  ...  => :sq\n" +
		"irb> => 9\n" +
		"irb> hi\n=> nil\n" +
		"irb> Goodbye!\n"
	if out.String() != want {
		t.Fatalf("got:\n%s\nwant:\n%s", out.String(), want)
	}
}

func TestPipedSessionReportsErrors(t *testing.T) {
	input := "raise ArgumentError, 'nope'\n1 +\n2\n"
	var out bytes.Buffer
	if err := Start(context.Background(), strings.NewReader(input), &out, Options{Prompt: "> "}); err != nil {
		t.Fatalf("Start: %v", err)
	}
	got := out.String()
	if !strings.Contains(got, "ArgumentError: nope\n") {
		t.Fatalf("missing runtime error in %q", got)
	}
	if !strings.Contains(got, "> ...  => 3\n") {
		t.Fatalf("continuation line not joined in %q", got)
	}
}

func TestSessionKeepsLocals(t *testing.T) {
	var out bytes.Buffer
	s := NewSession(&out, Options{})
	ctx := context.Background()
	for _, src := range []string{"a = [1, 2]", "b = a.map { |x| x * 10 }", "class Box; def v; 7; end; end"} {
		if _, err := s.Eval(ctx, src); err != nil {
			t.Fatalf("%q: %v", src, err)
		}
	}
	v, err := s.Eval(ctx, "b.sum + Box.new.v")
	if err != nil {
		t.Fatal(err)
	}
	if got := s.Inspect(v); got != "37" {
		t.Fatalf("got %s", got)
	}
}

func TestSessionIncompleteInput(t *testing.T) {
	s := NewSession(&bytes.Buffer{}, Options{})
	for _, src := range []string{"def f", "[1, 2", "x = \"open", "if true"} {
		_, err := s.Eval(context.Background(), src)
		if !diag.IsIncomplete(err) {
			t.Fatalf("%q: expected incomplete input, got %v", src, err)
		}
	}
	if _, err := s.Eval(context.Background(), "1 + )"); err == nil || diag.IsIncomplete(err) {
		t.Fatalf("expected a complete syntax error, got %v", err)
	}
}
