package ast

import (
	"testing"

	"github.com/alexisbouchez/rubyvm/token"
)

func expr(e Expression) *ExpressionStatement {
	return &ExpressionStatement{Expression: e}
}

func TestAppendDropsPureStatements(t *testing.T) {
	cs := &CompoundStatement{}
	cs.Append(expr(&IntegerLiteral{Token: token.Token{Literal: "1"}, Value: 1}))
	cs.Append(expr(&LocalVariable{Name: "x"}))
	call := expr(&MethodCall{Method: "puts", VCall: true})
	cs.Append(call)
	cs.Append(expr(&NilLiteral{}))
	cs.Seal()

	if len(cs.Statements) != 2 {
		t.Fatalf("expected 2 statements, got %d: %s", len(cs.Statements), cs.String())
	}
	if cs.Statements[0] != call {
		t.Fatalf("call dropped")
	}
	if got := cs.String(); got != "puts; nil" {
		t.Fatalf("unexpected %q", got)
	}
}

func TestAppendAfterSealPanics(t *testing.T) {
	cs := NewCompound(token.Token{})
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic")
		}
	}()
	cs.Append(expr(&NilLiteral{}))
}

func TestLastStatementHasReturnValue(t *testing.T) {
	tests := []struct {
		stmts    []Statement
		expected bool
	}{
		{nil, false},
		{[]Statement{expr(&IntegerLiteral{Value: 1})}, true},
		{[]Statement{expr(&ReturnExpression{})}, false},
		{[]Statement{expr(&MethodCall{Method: "a"}), expr(&BreakExpression{})}, false},
		{[]Statement{expr(&NextExpression{Value: &NilLiteral{}})}, false},
		{[]Statement{expr(&RedoExpression{})}, false},
	}
	for i, tt := range tests {
		cs := NewCompound(token.Token{}, tt.stmts...)
		if got := cs.LastStatementHasReturnValue(); got != tt.expected {
			t.Errorf("test[%d]: expected %v, got %v", i, tt.expected, got)
		}
	}
	var nilCompound *CompoundStatement
	if !nilCompound.Empty() || nilCompound.LastStatementHasReturnValue() {
		t.Fatalf("nil compound should be empty")
	}
}

func TestIsPure(t *testing.T) {
	if !IsPure(expr(&SelfExpression{})) || IsPure(expr(&InstanceVariable{Name: "@a"})) {
		t.Fatalf("IsPure mismatch")
	}
	if IsPure(NewCompound(token.Token{})) {
		t.Fatalf("compound statements are never pure")
	}
}

func TestParameterList(t *testing.T) {
	pl := &ParameterList{
		Required: []*Param{{Name: "a"}},
		Optional: []*Param{{Name: "b", Default: &IntegerLiteral{Token: token.Token{Literal: "1"}, Value: 1}}},
		Rest:     &Param{Name: "r"},
		Post:     []*Param{{Name: "c"}},
		Block:    &Param{Name: "blk"},
	}
	if pl.Argc() != 2 || pl.DefaultArgc() != 1 || !pl.HasSplat() || pl.Len() != 4 {
		t.Fatalf("unexpected counts %d %d %v %d", pl.Argc(), pl.DefaultArgc(), pl.HasSplat(), pl.Len())
	}
	if got := pl.String(); got != "a, b = 1, *r, c, &blk" {
		t.Fatalf("unexpected %q", got)
	}
	var none *ParameterList
	if none.Argc() != 0 || none.HasSplat() || none.Len() != 0 || none.String() != "" {
		t.Fatalf("nil list should be empty")
	}
}

func TestString(t *testing.T) {
	one := &IntegerLiteral{Token: token.Token{Literal: "1"}, Value: 1}
	tests := []struct {
		node     Node
		expected string
	}{
		{&MethodCall{Receiver: &LocalVariable{Name: "a"}, Method: "[]", Arguments: []Expression{one}}, "a[1]"},
		{&MethodCall{Receiver: &LocalVariable{Name: "a"}, Method: "b", SafeNav: true}, "a&.b()"},
		{&RangeLiteral{Start: one, Exclusive: true}, "(1...)"},
		{&HashLiteral{Pairs: []HashPair{{Key: &SymbolLiteral{Value: "k"}, Value: one}, {Value: &LocalVariable{Name: "h"}}}}, "{:k => 1, **h}"},
		{&MultipleAssignment{Left: &Mlhs{Pre: []Expression{&LocalVariable{Name: "a"}}, Splat: &SplatExpression{}}, Right: []Expression{one}}, "(a, *) = 1"},
		{&PrefixExpression{Operator: "-@", Right: &LocalVariable{Name: "x"}}, "(-x)"},
		{&ScopedConstant{Name: "Foo"}, "::Foo"},
	}
	for i, tt := range tests {
		if got := tt.node.String(); got != tt.expected {
			t.Errorf("test[%d]: expected %q, got %q", i, tt.expected, got)
		}
	}
}
