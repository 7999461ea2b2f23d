package compiler

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/alexisbouchez/rubyvm/code"
	"github.com/alexisbouchez/rubyvm/diag"
	"github.com/alexisbouchez/rubyvm/lexer"
	"github.com/alexisbouchez/rubyvm/parser"
)

func compile(t *testing.T, input string) *code.Proto {
	t.Helper()
	program, err := parser.New(lexer.New(input)).ParseProgram()
	if err != nil {
		t.Fatalf("parse %q: %v", input, err)
	}
	p, err := Compile(program, "t.rb")
	if err != nil {
		t.Fatalf("compile %q: %v", input, err)
	}
	return p
}

func compileError(t *testing.T, input string) *diag.Error {
	t.Helper()
	program, err := parser.New(lexer.New(input)).ParseProgram()
	if err != nil {
		t.Fatalf("parse %q: %v", input, err)
	}
	_, err = Compile(program, "t.rb")
	var de *diag.Error
	if !errors.As(err, &de) {
		t.Fatalf("expected a diagnostic for %q, got %v", input, err)
	}
	return de
}

func child(t *testing.T, p *code.Proto, name string) *code.Proto {
	t.Helper()
	for _, c := range p.Children {
		if c.Name == name {
			return c
		}
		if found := findChild(c, name); found != nil {
			return found
		}
	}
	t.Fatalf("no unit %q in\n%s", name, code.Disassemble(p))
	return nil
}

func findChild(p *code.Proto, name string) *code.Proto {
	for _, c := range p.Children {
		if c.Name == name {
			return c
		}
		if found := findChild(c, name); found != nil {
			return found
		}
	}
	return nil
}

func count(p *code.Proto, op code.Opcode) int {
	n := 0
	for _, in := range p.Code {
		if in.Op == op {
			n++
		}
	}
	return n
}

func find(t *testing.T, p *code.Proto, op code.Opcode) code.Instr {
	t.Helper()
	for _, in := range p.Code {
		if in.Op == op {
			return in
		}
	}
	t.Fatalf("no %s in\n%s", op, code.Disassemble(p))
	return code.Instr{}
}

func TestCompoundPops(t *testing.T) {
	tests := []struct {
		input string
		pops  int
	}{
		{"foo", 0},
		{"foo; bar", 1},
		{"foo\nbar\nbaz", 2},
		{"1; 2; foo; 3", 1},
	}
	for _, tt := range tests {
		p := compile(t, tt.input)
		if got := count(p, code.Pop); got != tt.pops {
			t.Errorf("%q: expected %d pops, got %d\n%s", tt.input, tt.pops, got, code.Disassemble(p))
		}
	}
}

func TestEmptyProgram(t *testing.T) {
	p := compile(t, "")
	if diff := cmp.Diff([]string{"putnil", "leave"}, code.Ops(p)); diff != "" {
		t.Fatalf("ops mismatch (-want +got):\n%s", diff)
	}
}

func TestShortCircuit(t *testing.T) {
	tests := []struct {
		input  string
		branch string
	}{
		{"a && b", "branchunless"},
		{"a and b", "branchunless"},
		{"a || b", "branchif"},
		{"a or b", "branchif"},
	}
	for _, tt := range tests {
		p := compile(t, tt.input)
		want := []string{"putself", "send", "dup", tt.branch, "pop", "putself", "send", "leave"}
		if diff := cmp.Diff(want, code.Ops(p)); diff != "" {
			t.Errorf("%q: ops mismatch (-want +got):\n%s", tt.input, diff)
		}
		if target := p.Code[3].A; target != 7 {
			t.Errorf("%q: expected branch to 7, got %d", tt.input, target)
		}
	}
}

func TestYieldSplat(t *testing.T) {
	p := compile(t, "def foo(x); yield *x; end; def bar(x); yield x; end")

	foo := child(t, p, "foo")
	if diff := cmp.Diff([]string{"getlocal", "splatarray", "invokeblock", "leave"}, code.Ops(foo)); diff != "" {
		t.Fatalf("yield *x ops mismatch (-want +got):\n%s", diff)
	}
	if in := find(t, foo, code.InvokeBlock); in.A != 1 || in.B != 1 {
		t.Fatalf("expected invokeblock argc:1 splat, got %+v", in)
	}

	bar := child(t, p, "bar")
	if count(bar, code.SplatArray) != 0 {
		t.Fatalf("yield x must not splat:\n%s", code.Disassemble(bar))
	}
	if in := find(t, bar, code.InvokeBlock); in.A != 1 || in.B != 0 {
		t.Fatalf("expected invokeblock argc:1, got %+v", in)
	}
}

func TestRescueClassArray(t *testing.T) {
	p := compile(t, "begin; foo; rescue; bar; end")
	if in := find(t, p, code.GetConst); p.Str(in.A) != "StandardError" {
		t.Fatalf("expected StandardError, got %s", p.Str(in.A))
	}
	if in := find(t, p, code.NewArray); in.A != 1 {
		t.Fatalf("expected a one-element class array, got %+v", in)
	}
	if in := find(t, p, code.CheckMatch); in.A&code.MatchRescue == 0 {
		t.Fatalf("checkmatch without rescue flag")
	}
	if len(p.Handlers) != 1 || p.Handlers[0].Kind != code.Rescue {
		t.Fatalf("expected one rescue handler, got %+v", p.Handlers)
	}

	p = compile(t, "begin; foo; rescue ArgumentError, TypeError => e; e; end")
	if in := find(t, p, code.NewArray); in.A != 2 {
		t.Fatalf("expected a two-element class array, got %+v", in)
	}
	if got := count(p, code.GetException); got != 2 {
		t.Fatalf("expected the exception read for the match and the variable, got %d", got)
	}
}

func TestArity(t *testing.T) {
	p := compile(t, "def a; end; def b(x); end; def c(x, y = 1); end; def d(*r); end; def e(x, y); end")
	tests := []struct {
		name  string
		arity code.Arity
	}{
		{"a", code.NoArg},
		{"b", code.OneArg},
		{"c", code.VarArg},
		{"d", code.VarArg},
		{"e", code.VarArg},
	}
	for _, tt := range tests {
		if got := child(t, p, tt.name).Arity; got != tt.arity {
			t.Errorf("%s: expected %s, got %s", tt.name, tt.arity, got)
		}
	}
	c := child(t, p, "c")
	if len(c.OptEntry) != 2 || c.OptEntry[0] != 0 {
		t.Fatalf("unexpected OptEntry %v", c.OptEntry)
	}
	if c.DefaultArgc != 1 || c.Argc != 1 {
		t.Fatalf("unexpected counts argc=%d opt=%d", c.Argc, c.DefaultArgc)
	}
}

func TestUnitNames(t *testing.T) {
	p := compile(t, `
def foo
  [1].each { |x| [x].each { |y| y } }
end
class Foo
  bar { }
end
module Baz; end
class << self; end
`)
	for _, name := range []string{"foo", "block in foo", "block (2 levels) in foo", "<class:Foo>", "block in <class:Foo>", "<module:Baz>", "singleton class"} {
		child(t, p, name)
	}
}

func TestLocalDepth(t *testing.T) {
	p := compile(t, "x = 1; [1].each { |y| x + y }")
	blk := child(t, p, "block in <main>")
	gets := []code.Instr{}
	for _, in := range blk.Code {
		if in.Op == code.GetLocal {
			gets = append(gets, in)
		}
	}
	if len(gets) != 2 || gets[0].B != 1 || gets[1].B != 0 {
		t.Fatalf("unexpected local accesses %+v", gets)
	}
	if blk.LocalName(gets[0].A, gets[0].B) != "x" {
		t.Fatalf("expected x, got %s", blk.LocalName(gets[0].A, gets[0].B))
	}
}

func TestMultipleAssignment(t *testing.T) {
	p := compile(t, "a, *b, c = 1, 2, 3, 4")
	in := find(t, p, code.ExpandArray)
	if in.A != 1 || in.B != 1 || in.C != 1 {
		t.Fatalf("unexpected expandarray %+v", in)
	}
	if got := count(p, code.SetLocal); got != 3 {
		t.Fatalf("expected 3 stores, got %d", got)
	}
}

func TestForLowering(t *testing.T) {
	p := compile(t, "for i in 1..3; puts i; end")
	var sends []string
	for _, in := range p.Code {
		if in.Op == code.Send {
			sends = append(sends, p.Calls[in.A].Name)
		}
	}
	want := []string{"to_a", "size", "<", "[]", "puts", "+"}
	if diff := cmp.Diff(want, sends); diff != "" {
		t.Fatalf("sends mismatch (-want +got):\n%s", diff)
	}
	if len(p.Locals) != 4 {
		t.Fatalf("expected i and three hidden slots, got %v", p.Locals)
	}
}

func TestEnsureInlinedOnBreak(t *testing.T) {
	p := compile(t, "while true; begin; break; ensure; foo; end; end")
	calls := 0
	for _, in := range p.Code {
		if in.Op == code.Send && p.Calls[in.A].Name == "foo" {
			calls++
		}
	}
	if calls != 3 {
		t.Fatalf("expected the ensure body inlined, normal and handler copies, got %d\n%s", calls, code.Disassemble(p))
	}
	for _, h := range p.Handlers {
		for pc := h.Start; pc < h.End; pc++ {
			in := p.Code[pc]
			if in.Op == code.Send && p.Calls[in.A].Name == "foo" {
				t.Fatalf("inlined ensure body covered by its own handler\n%s", code.Disassemble(p))
			}
		}
	}
}

func TestJumpsInBlocks(t *testing.T) {
	p := compile(t, "foo { break 1 }; foo { next 2 }; foo { return 3 }")
	if in := find(t, child(t, p, "block in <main>"), code.Throw); code.ThrowKind(in.A) != code.ThrowBreak {
		t.Fatalf("expected throw break")
	}
	var kinds []code.Opcode
	for _, c := range p.Children {
		kinds = append(kinds, c.Code[1].Op)
	}
	if diff := cmp.Diff([]code.Opcode{code.Throw, code.Leave, code.Throw}, kinds); diff != "" {
		t.Fatalf("jump lowering mismatch (-want +got):\n%s", diff)
	}
}

func TestInvalidJumps(t *testing.T) {
	tests := []struct {
		input   string
		message string
	}{
		{"break", "Invalid break"},
		{"next", "Invalid next"},
		{"redo", "Invalid redo"},
		{"retry", "Invalid retry"},
		{"class Foo; return; end", "Invalid return in class/module body"},
	}
	for _, tt := range tests {
		err := compileError(t, tt.input)
		if err.Kind != diag.SyntaxError || err.Message != tt.message {
			t.Errorf("%q: unexpected error %v", tt.input, err)
		}
	}
}

func TestInterpolation(t *testing.T) {
	p := compile(t, `x = 1; "a#{x}b"`)
	want := []string{"putobject", "dup", "setlocal", "pop", "putstring", "getlocal", "tostring", "putstring", "concatstrings", "leave"}
	if diff := cmp.Diff(want, code.Ops(p)); diff != "" {
		t.Fatalf("ops mismatch (-want +got):\n%s", diff)
	}
}

func TestAttributeOpAssignment(t *testing.T) {
	p := compile(t, "h = {}; h[:a] ||= 1")
	var sends []string
	for _, in := range p.Code {
		if in.Op == code.Send {
			sends = append(sends, p.Calls[in.A].Name)
		}
	}
	if diff := cmp.Diff([]string{"[]", "[]="}, sends); diff != "" {
		t.Fatalf("receiver and index should be evaluated once (-want +got):\n%s", diff)
	}
}
