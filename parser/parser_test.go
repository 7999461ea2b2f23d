package parser

import (
	"errors"
	"testing"

	"github.com/alexisbouchez/rubyvm/ast"
	"github.com/alexisbouchez/rubyvm/diag"
	"github.com/alexisbouchez/rubyvm/lexer"
)

func parse(t *testing.T, input string) *ast.Program {
	t.Helper()
	p := New(lexer.New(input))
	program, err := p.ParseProgram()
	if err != nil {
		t.Fatalf("parse %q: %v", input, err)
	}
	return program
}

func parseError(t *testing.T, input string) error {
	t.Helper()
	p := New(lexer.New(input))
	_, err := p.ParseProgram()
	if err == nil {
		t.Fatalf("parse %q: expected an error", input)
	}
	return err
}

// onlyExpression returns the expression of the single statement of input.
func onlyExpression(t *testing.T, input string) ast.Expression {
	t.Helper()
	program := parse(t, input)
	if len(program.Body.Statements) != 1 {
		t.Fatalf("%q: expected 1 statement, got %d", input, len(program.Body.Statements))
	}
	stmt, ok := program.Body.Statements[0].(*ast.ExpressionStatement)
	if !ok {
		t.Fatalf("%q: expected ExpressionStatement, got %T", input, program.Body.Statements[0])
	}
	return stmt.Expression
}

func TestIntegerLiteral(t *testing.T) {
	tests := []struct {
		input    string
		expected int64
	}{
		{"5", 5},
		{"1_000_000", 1000000},
		{"0x2A", 42},
		{"0o52", 42},
		{"0b101010", 42},
		{"-7", -7},
	}

	for _, tt := range tests {
		literal, ok := onlyExpression(t, tt.input).(*ast.IntegerLiteral)
		if !ok {
			t.Fatalf("%q: expected IntegerLiteral", tt.input)
		}
		if literal.Value != tt.expected {
			t.Errorf("%q: expected %d, got %d", tt.input, tt.expected, literal.Value)
		}
	}
}

func TestIntegerOutOfRange(t *testing.T) {
	err := parseError(t, "99999999999999999999")
	if diag.IsIncomplete(err) {
		t.Fatalf("range error reported as incomplete: %v", err)
	}
}

func TestFloatLiteral(t *testing.T) {
	literal, ok := onlyExpression(t, "1.5e3").(*ast.FloatLiteral)
	if !ok || literal.Value != 1500 {
		t.Fatalf("unexpected float %v", literal)
	}
}

func TestStringLiterals(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{`"hello"`, "hello"},
		{`'a\nb'`, `a\nb`},
		{`"a" "b"`, "ab"},
		{`"tab\t"`, "tab\t"},
	}

	for _, tt := range tests {
		literal, ok := onlyExpression(t, tt.input).(*ast.StringLiteral)
		if !ok {
			t.Fatalf("%q: expected StringLiteral", tt.input)
		}
		if literal.Value != tt.expected {
			t.Errorf("%q: expected %q, got %q", tt.input, tt.expected, literal.Value)
		}
	}
}

func TestInterpolation(t *testing.T) {
	str, ok := onlyExpression(t, `"a#{1 + 2}b"`).(*ast.InterpolatedString)
	if !ok {
		t.Fatalf("expected InterpolatedString")
	}
	if len(str.Parts) != 3 {
		t.Fatalf("expected 3 parts, got %d", len(str.Parts))
	}
	if _, ok := str.Parts[1].(*ast.InfixExpression); !ok {
		t.Fatalf("expected embedded InfixExpression, got %T", str.Parts[1])
	}
	if got := str.String(); got != `"a#{(1 + 2)}b"` {
		t.Errorf("unexpected string %q", got)
	}
}

func TestInterpolationSeesLocals(t *testing.T) {
	program := parse(t, "x = 1\n\"#{x}\"")
	stmt := program.Body.Statements[1].(*ast.ExpressionStatement)
	str := stmt.Expression.(*ast.InterpolatedString)
	if _, ok := str.Parts[0].(*ast.LocalVariable); !ok {
		t.Fatalf("expected LocalVariable, got %T", str.Parts[0])
	}
}

func TestHeredoc(t *testing.T) {
	program := parse(t, "x = <<EOS\nhello #{1}\nEOS\ny = 2\n")
	if len(program.Body.Statements) != 2 {
		t.Fatalf("expected 2 statements, got %d", len(program.Body.Statements))
	}
	asg := program.Body.Statements[0].(*ast.ExpressionStatement).Expression.(*ast.Assignment)
	doc, ok := asg.Value.(*ast.InterpolatedString)
	if !ok {
		t.Fatalf("expected InterpolatedString, got %T", asg.Value)
	}
	if got := doc.String(); got != "\"hello #{1}\n\"" {
		t.Errorf("unexpected heredoc %q", got)
	}
}

func TestHeredocUnterminated(t *testing.T) {
	err := parseError(t, "x = <<EOS\nabc\n")
	if !diag.IsIncomplete(err) {
		t.Fatalf("expected incomplete error, got %v", err)
	}
}

func TestSymbolsAndWords(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{":foo", ":foo"},
		{`:"a#{1}"`, `:"a#{1}"`},
		{"%w[a b]", `["a", "b"]`},
		{"%i[a b]", "[:a, :b]"},
		{"/ab+/i", "/ab+/i"},
	}
	for _, tt := range tests {
		if got := onlyExpression(t, tt.input).String(); got != tt.expected {
			t.Errorf("%q: expected %q, got %q", tt.input, tt.expected, got)
		}
	}
}

func TestOperatorPrecedence(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"1 + 2 * 3", "(1 + (2 * 3))"},
		{"1 * 2 + 3", "((1 * 2) + 3)"},
		{"1 - 2 - 3", "((1 - 2) - 3)"},
		{"2 ** 3 ** 2", "(2 ** (3 ** 2))"},
		{"-2 ** 2", "(-(2 ** 2))"},
		{"-1 + 2", "(-1 + 2)"},
		{"!true == false", "((!true) == false)"},
		{"1 < 2 == true", "((1 < 2) == true)"},
		{"1 && 2 || 3", "((1 && 2) || 3)"},
		{"1 || 2 && 3", "(1 || (2 && 3))"},
		{"(1 + 2) * 3", "((1 + 2) * 3)"},
		{"1 | 2 & 3", "(1 | (2 & 3))"},
		{"1 << 2 + 3", "(1 << (2 + 3))"},
		{"1..2 + 3", "(1..(2 + 3))"},
		{"1...", "(1...)"},
		{"true ? 1 : 2", "if true; 1; else 2; end"},
		{"not true && false", "(!(true && false))"},
		{"~5", "(~5)"},
	}

	for _, tt := range tests {
		if got := parse(t, tt.input).String(); got != tt.expected {
			t.Errorf("%q: expected %q, got %q", tt.input, tt.expected, got)
		}
	}
}

func TestLocalOrCall(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"x = 1; x -1", "x = 1; (x - 1)"},
		{"foo -1", "foo(-1)"},
		{"foo - 1", "(foo - 1)"},
		{"foo [1]", "foo([1])"},
		{"foo[1]", "foo[1]"},
		{"foo", "foo"},
		{"foo()", "foo()"},
		{"foo.bar(1, 2)", "foo.bar(1, 2)"},
		{"a&.b", "a&.b()"},
		{"Foo::Bar", "Foo::Bar"},
		{"::Foo", "::Foo"},
		{"Foo::bar 1", "Foo.bar(1)"},
		{"a.b = 1", "a.b() = 1"},
		{"a[0] += 1", "a[0] += 1"},
		{"puts a: 1, **h", "puts({:a => 1, **h})"},
		{"foo(*args, &blk)", "foo(*args, &blk)"},
		{"foo(1,)", "foo(1)"},
	}
	for _, tt := range tests {
		if got := parse(t, tt.input).String(); got != tt.expected {
			t.Errorf("%q: expected %q, got %q", tt.input, tt.expected, got)
		}
	}
}

func TestVCall(t *testing.T) {
	call, ok := onlyExpression(t, "foo").(*ast.MethodCall)
	if !ok || !call.VCall {
		t.Fatalf("expected vcall, got %#v", call)
	}
	call = onlyExpression(t, "foo()").(*ast.MethodCall)
	if call.VCall {
		t.Fatalf("foo() marked as vcall")
	}
}

func TestBlocks(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"foo { |x| x }", "foo() { |x| x }"},
		{"foo a do |x| x end", "foo(a) { |x| x }"},
		{"foo a { 1 }", "foo(a() { 1 })"},
		{"[1].each do |a, (b, c)| end", "[1].each() { |a, (b, c)|  }"},
		{"foo { |a, *r, &b| }", "foo() { |a, *r, &b|  }"},
		{"foo { || 1 }", "foo() { 1 }"},
	}
	for _, tt := range tests {
		if got := parse(t, tt.input).String(); got != tt.expected {
			t.Errorf("%q: expected %q, got %q", tt.input, tt.expected, got)
		}
	}
}

func TestBlockLocalsShadow(t *testing.T) {
	program := parse(t, "x = 1\nfoo { |a; x| x = 2 }")
	call := program.Body.Statements[1].(*ast.ExpressionStatement).Expression.(*ast.MethodCall)
	sym, depth, ok := call.Block.Scope.Resolve("x")
	if !ok || depth != 0 || sym.Name != "x" {
		t.Fatalf("x not block-local: %v %d %v", sym, depth, ok)
	}
}

func TestLambda(t *testing.T) {
	for _, input := range []string{"->(x) { x }", "-> x { x }", "->(x) do x end"} {
		blk, ok := onlyExpression(t, input).(*ast.BlockLiteral)
		if !ok || !blk.Lambda {
			t.Fatalf("%q: expected lambda", input)
		}
		if blk.Params.Argc() != 1 {
			t.Errorf("%q: expected 1 parameter, got %d", input, blk.Params.Argc())
		}
	}
}

func TestAssignments(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"a = b = 1", "a = b = 1"},
		{"a = 1, 2", "a = [1, 2]"},
		{"a, b = 1, 2", "(a, b) = 1, 2"},
		{"a, *b = 1, 2, 3", "(a, *b) = 1, 2, 3"},
		{"*a, b = [1, 2]", "(*a, b) = [1, 2]"},
		{"(a, b), c = [1, 2], 3", "((a, b), c) = [1, 2], 3"},
		{"a, = list", "(a, *) = list"},
		{"a = *b", "a = *b"},
		{"@a ||= 1", "@a ||= 1"},
		{"x = foo rescue nil", "x = (foo rescue nil)"},
		{"a = 1 and b", "(a = 1 && b)"},
	}
	for _, tt := range tests {
		if got := parse(t, tt.input).String(); got != tt.expected {
			t.Errorf("%q: expected %q, got %q", tt.input, tt.expected, got)
		}
	}
}

func TestAssignmentDefinesLocal(t *testing.T) {
	program := parse(t, "a = a")
	asg := program.Body.Statements[0].(*ast.ExpressionStatement).Expression.(*ast.Assignment)
	if _, ok := asg.Value.(*ast.LocalVariable); !ok {
		t.Fatalf("right side should read the new local, got %T", asg.Value)
	}
	if !program.Scope.IsLocal("a") {
		t.Fatalf("a not defined in program scope")
	}
}

func TestModifiers(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"x = 1 if true", "if true; x = 1; end"},
		{"foo unless bar", "unless bar; foo; end"},
		{"foo while false", "while false; foo; end"},
		{"foo rescue nil", "(foo rescue nil)"},
		{"foo if a if b", "if b; if a; foo; end; end"},
	}
	for _, tt := range tests {
		if got := parse(t, tt.input).String(); got != tt.expected {
			t.Errorf("%q: expected %q, got %q", tt.input, tt.expected, got)
		}
	}

	loop := onlyExpression(t, "begin\nfoo\nend while false").(*ast.WhileExpression)
	if !loop.DoWhile {
		t.Fatalf("begin...end while should run its body first")
	}
}

func TestIfExpression(t *testing.T) {
	expr, ok := onlyExpression(t, "if a\n1\nelsif b\n2\nelse\n3\nend").(*ast.IfExpression)
	if !ok {
		t.Fatalf("expected IfExpression")
	}
	nested, ok := expr.Alternative.Statements[0].(*ast.ExpressionStatement).Expression.(*ast.IfExpression)
	if !ok {
		t.Fatalf("elsif should nest an IfExpression")
	}
	if nested.Alternative.Empty() {
		t.Fatalf("else branch lost")
	}
	if got := onlyExpression(t, "unless a then 1 end").String(); got != "unless a; 1; end" {
		t.Errorf("unexpected unless %q", got)
	}
}

func TestDeadStatementsDropped(t *testing.T) {
	program := parse(t, "1\n:a\nfoo\n2")
	if len(program.Body.Statements) != 2 {
		t.Fatalf("expected pure statements dropped, got %q", program.String())
	}
}

func TestLoops(t *testing.T) {
	w := onlyExpression(t, "while x do foo end").(*ast.WhileExpression)
	if w.Until || w.Body.Empty() {
		t.Fatalf("bad while %q", w.String())
	}
	u := onlyExpression(t, "until x\nfoo\nend").(*ast.WhileExpression)
	if !u.Until {
		t.Fatalf("until not marked")
	}
	f := onlyExpression(t, "for a, b in [[1, 2]]\nputs a\nend").(*ast.ForExpression)
	m, ok := f.Target.(*ast.Mlhs)
	if !ok || len(m.Pre) != 2 {
		t.Fatalf("expected two targets, got %v", f.Target)
	}
	f = onlyExpression(t, "for i in 1..3 do end").(*ast.ForExpression)
	if _, ok := f.Target.(*ast.LocalVariable); !ok {
		t.Fatalf("expected local target, got %T", f.Target)
	}
}

func TestCaseExpression(t *testing.T) {
	c := onlyExpression(t, "case x\nwhen 1, 2 then :a\nwhen *list\n:b\nelse :c\nend").(*ast.CaseExpression)
	if c.Subject == nil || len(c.Whens) != 2 || c.Else.Empty() {
		t.Fatalf("unexpected case %q", c.String())
	}
	if len(c.Whens[0].Conditions) != 2 {
		t.Fatalf("expected 2 conditions, got %d", len(c.Whens[0].Conditions))
	}
	if _, ok := c.Whens[1].Conditions[0].(*ast.SplatExpression); !ok {
		t.Fatalf("expected splat condition")
	}
	c = onlyExpression(t, "case\nwhen a then 1\nend").(*ast.CaseExpression)
	if c.Subject != nil {
		t.Fatalf("case without subject got %v", c.Subject)
	}
}

func TestBeginRescue(t *testing.T) {
	be := onlyExpression(t, "begin\n1\nrescue A, B => e\n2\nrescue\n3\nelse\n4\nensure\n5\nend").(*ast.BeginExpression)
	if len(be.Rescues) != 2 {
		t.Fatalf("expected 2 rescue clauses, got %d", len(be.Rescues))
	}
	if len(be.Rescues[0].Classes) != 2 {
		t.Fatalf("expected 2 classes")
	}
	if _, ok := be.Rescues[0].Variable.(*ast.LocalVariable); !ok {
		t.Fatalf("expected local rescue variable, got %T", be.Rescues[0].Variable)
	}
	if be.Else.Empty() || be.Ensure.Empty() {
		t.Fatalf("else/ensure lost")
	}
}

func TestMethodDefinition(t *testing.T) {
	def := onlyExpression(t, "def f(a, b = 1, *r, c, &blk)\na\nend").(*ast.MethodDefinition)
	if def.Name != "f" || def.Singleton != nil {
		t.Fatalf("unexpected def %q", def.String())
	}
	if def.Params.Argc() != 2 || def.Params.DefaultArgc() != 1 || !def.Params.HasSplat() || def.Params.Block == nil {
		t.Fatalf("unexpected params %q", def.Params.String())
	}
	if def.Scope.IsLocal("a") == false || def.Scope.Len() != 5 {
		t.Fatalf("params not in method scope: %v", def.Scope.Names())
	}

	tests := []struct {
		input string
		name  string
	}{
		{"def self.create; end", "create"},
		{"def ==(o) end", "=="},
		{"def name=(v); end", "name="},
		{"def empty?; end", "empty?"},
		{"def -@; end", "-@"},
		{"def [](i) end", "[]"},
		{"def end?; end", "end?"},
		{"def f a, b\nend", "f"},
	}
	for _, tt := range tests {
		def := onlyExpression(t, tt.input).(*ast.MethodDefinition)
		if def.Name != tt.name {
			t.Errorf("%q: expected name %q, got %q", tt.input, tt.name, def.Name)
		}
	}

	def = onlyExpression(t, "def f\n1\nrescue\n2\nend").(*ast.MethodDefinition)
	if _, ok := def.Body.Statements[0].(*ast.ExpressionStatement).Expression.(*ast.BeginExpression); !ok {
		t.Fatalf("def body rescue not wrapped")
	}
}

func TestMethodScopeIsolated(t *testing.T) {
	program := parse(t, "x = 1\ndef f\nx\nend")
	def := program.Body.Statements[1].(*ast.ExpressionStatement).Expression.(*ast.MethodDefinition)
	call, ok := def.Body.Statements[0].(*ast.ExpressionStatement).Expression.(*ast.MethodCall)
	if !ok || !call.VCall {
		t.Fatalf("outer local visible inside def")
	}
}

func TestClassDefinitions(t *testing.T) {
	class := onlyExpression(t, "class Foo < Bar\ndef x; end\nend").(*ast.ClassDefinition)
	if class.Path.String() != "Foo" || class.Superclass.String() != "Bar" {
		t.Fatalf("unexpected class %q", class.String())
	}
	class = onlyExpression(t, "class A::B; end").(*ast.ClassDefinition)
	if _, ok := class.Path.(*ast.ScopedConstant); !ok {
		t.Fatalf("expected scoped path, got %T", class.Path)
	}
	if _, ok := onlyExpression(t, "class << self\nend").(*ast.SingletonClassDefinition); !ok {
		t.Fatalf("expected singleton class")
	}
	if _, ok := onlyExpression(t, "module M\nend").(*ast.ModuleDefinition); !ok {
		t.Fatalf("expected module")
	}
	err := parseError(t, "class foo; end")
	if diag.IsIncomplete(err) {
		t.Fatalf("bad class name reported incomplete")
	}
}

func TestJumpsAndCalls(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"return", "return"},
		{"return 1, 2", "return [1, 2]"},
		{"break 1 if x", "if x; break 1; end"},
		{"yield 1, 2", "yield(1, 2)"},
		{"super", "super"},
		{"super()", "super()"},
		{"super 1 do end", "super(1) {  }"},
		{"defined?(@x)", "defined?(@x)"},
		{"defined? x", "defined?(x)"},
		{"alias foo bar", "alias foo bar"},
		{"alias $a $b", "alias $a $b"},
		{"undef foo, bar", "undef foo, bar"},
	}
	for _, tt := range tests {
		if got := parse(t, tt.input).String(); got != tt.expected {
			t.Errorf("%q: expected %q, got %q", tt.input, tt.expected, got)
		}
	}

	y := onlyExpression(t, "yield *a").(*ast.YieldExpression)
	if !y.Splat {
		t.Fatalf("yield *a should spread its argument")
	}
}

func TestHashLiterals(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"{}", "{}"},
		{`{a: 1, "b" => 2}`, `{:a => 1, "b" => 2}`},
		{`{"k": 1}`, "{:k => 1}"},
		{"{**h, a: 1}", "{**h, :a => 1}"},
	}
	for _, tt := range tests {
		if got := parse(t, tt.input).String(); got != tt.expected {
			t.Errorf("%q: expected %q, got %q", tt.input, tt.expected, got)
		}
	}
}

func TestErrors(t *testing.T) {
	tests := []struct {
		input      string
		incomplete bool
	}{
		{"def foo", true},
		{"foo(", true},
		{"1 +", true},
		{"[1, 2", true},
		{"if x\n1", true},
		{"\"abc", true},
		{"1 2", false},
		{")", false},
		{"end", false},
		{"def f(a: 1); end", false},
		{"def f = 1", false},
		{"1 = 2", false},
	}
	for _, tt := range tests {
		err := parseError(t, tt.input)
		if diag.IsIncomplete(err) != tt.incomplete {
			t.Errorf("%q: incomplete = %v, want %v (%v)", tt.input, !tt.incomplete, tt.incomplete, err)
		}
	}
}

func TestErrorPosition(t *testing.T) {
	err := parseError(t, "x = 1\ny = )")
	var de *diag.Error
	if !errors.As(err, &de) || de.Line != 2 {
		t.Fatalf("expected error on line 2, got %v", err)
	}
}
