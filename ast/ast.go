// Package ast defines the Abstract Syntax Tree for Ruby.
package ast

import (
	"bytes"
	"strings"

	"github.com/alexisbouchez/rubyvm/symtab"
	"github.com/alexisbouchez/rubyvm/token"
)

// Node represents a node in the AST.
type Node interface {
	TokenLiteral() string
	String() string
	Pos() token.Position
}

// Statement represents a statement node.
type Statement interface {
	Node
	statementNode()
}

// Expression represents an expression node.
type Expression interface {
	Node
	expressionNode()
}

// Program is the root node of every AST.
type Program struct {
	Body  *CompoundStatement
	Scope *symtab.Scope
}

func (p *Program) TokenLiteral() string {
	if len(p.Body.Statements) > 0 {
		return p.Body.Statements[0].TokenLiteral()
	}
	return ""
}

func (p *Program) String() string { return p.Body.String() }

func (p *Program) Pos() token.Position {
	if len(p.Body.Statements) > 0 {
		return p.Body.Statements[0].Pos()
	}
	return token.Position{Line: 1, Column: 1}
}

// ExpressionStatement wraps an expression as a statement.
type ExpressionStatement struct {
	Token      token.Token
	Expression Expression
}

func (es *ExpressionStatement) statementNode()       {}
func (es *ExpressionStatement) TokenLiteral() string { return es.Token.Literal }
func (es *ExpressionStatement) Pos() token.Position  { return es.Token.Pos() }
func (es *ExpressionStatement) String() string {
	if es.Expression != nil {
		return es.Expression.String()
	}
	return ""
}

// CompoundStatement is an ordered statement sequence. A statement that can have no
// observable effect is dropped as soon as another statement follows it.
type CompoundStatement struct {
	Token      token.Token
	Statements []Statement
	sealed     bool
}

func (cs *CompoundStatement) statementNode()       {}
func (cs *CompoundStatement) TokenLiteral() string { return cs.Token.Literal }
func (cs *CompoundStatement) Pos() token.Position  { return cs.Token.Pos() }
func (cs *CompoundStatement) String() string {
	parts := make([]string, len(cs.Statements))
	for i, s := range cs.Statements {
		parts[i] = s.String()
	}
	return strings.Join(parts, "; ")
}

// Append adds s, first dropping the current last statement if it is dead.
func (cs *CompoundStatement) Append(s Statement) {
	if cs.sealed {
		panic("ast: Append on sealed CompoundStatement")
	}
	if n := len(cs.Statements); n > 0 && IsPure(cs.Statements[n-1]) {
		cs.Statements = cs.Statements[:n-1]
	}
	cs.Statements = append(cs.Statements, s)
}

// Seal ends construction. The trailing statement is kept even when pure, since its
// value is the compound's result.
func (cs *CompoundStatement) Seal() *CompoundStatement {
	cs.sealed = true
	return cs
}

// Empty reports whether the compound has no statements.
func (cs *CompoundStatement) Empty() bool { return cs == nil || len(cs.Statements) == 0 }

// LastStatementHasReturnValue reports whether falling off the end of the compound
// produces a value. It does not when the last statement transfers control.
func (cs *CompoundStatement) LastStatementHasReturnValue() bool {
	if cs.Empty() {
		return false
	}
	last := cs.Statements[len(cs.Statements)-1]
	es, ok := last.(*ExpressionStatement)
	if !ok {
		return true
	}
	switch es.Expression.(type) {
	case *ReturnExpression, *BreakExpression, *NextExpression, *RedoExpression, *RetryExpression:
		return false
	}
	return true
}

// IsPure reports whether evaluating a statement can have no observable effect.
func IsPure(s Statement) bool {
	es, ok := s.(*ExpressionStatement)
	if !ok {
		return false
	}
	switch es.Expression.(type) {
	case *IntegerLiteral, *FloatLiteral, *StringLiteral, *SymbolLiteral, *NilLiteral,
		*BooleanLiteral, *SelfExpression, *LocalVariable:
		return true
	}
	return false
}

// NewCompound builds a sealed compound from statements.
func NewCompound(tok token.Token, stmts ...Statement) *CompoundStatement {
	cs := &CompoundStatement{Token: tok}
	for _, s := range stmts {
		cs.Append(s)
	}
	return cs.Seal()
}

// IntegerLiteral represents an integer value.
type IntegerLiteral struct {
	Token token.Token
	Value int64
}

func (il *IntegerLiteral) expressionNode()      {}
func (il *IntegerLiteral) TokenLiteral() string { return il.Token.Literal }
func (il *IntegerLiteral) Pos() token.Position  { return il.Token.Pos() }
func (il *IntegerLiteral) String() string       { return il.Token.Literal }

// FloatLiteral represents a float value.
type FloatLiteral struct {
	Token token.Token
	Value float64
}

func (fl *FloatLiteral) expressionNode()      {}
func (fl *FloatLiteral) TokenLiteral() string { return fl.Token.Literal }
func (fl *FloatLiteral) Pos() token.Position  { return fl.Token.Pos() }
func (fl *FloatLiteral) String() string       { return fl.Token.Literal }

// StringLiteral represents a string value.
type StringLiteral struct {
	Token token.Token
	Value string
}

func (sl *StringLiteral) expressionNode()      {}
func (sl *StringLiteral) TokenLiteral() string { return sl.Token.Literal }
func (sl *StringLiteral) Pos() token.Position  { return sl.Token.Pos() }
func (sl *StringLiteral) String() string       { return "\"" + sl.Value + "\"" }

// InterpolatedString represents a string with interpolation. Heredocs are always
// InterpolatedStrings; their Parts are filled in when the body has been read.
type InterpolatedString struct {
	Token token.Token
	Parts []Expression // StringLiteral or interpolated expressions
}

func (is *InterpolatedString) expressionNode()      {}
func (is *InterpolatedString) TokenLiteral() string { return is.Token.Literal }
func (is *InterpolatedString) Pos() token.Position  { return is.Token.Pos() }
func (is *InterpolatedString) String() string {
	return "\"" + partsString(is.Parts) + "\""
}

func partsString(parts []Expression) string {
	var out bytes.Buffer
	for _, part := range parts {
		if sl, ok := part.(*StringLiteral); ok {
			out.WriteString(sl.Value)
		} else {
			out.WriteString("#{")
			out.WriteString(part.String())
			out.WriteString("}")
		}
	}
	return out.String()
}

// SymbolLiteral represents a symbol.
type SymbolLiteral struct {
	Token token.Token
	Value string
}

func (sl *SymbolLiteral) expressionNode()      {}
func (sl *SymbolLiteral) TokenLiteral() string { return sl.Token.Literal }
func (sl *SymbolLiteral) Pos() token.Position  { return sl.Token.Pos() }
func (sl *SymbolLiteral) String() string       { return ":" + sl.Value }

// DynamicSymbol represents :"...#{}...".
type DynamicSymbol struct {
	Token token.Token
	Parts []Expression
}

func (ds *DynamicSymbol) expressionNode()      {}
func (ds *DynamicSymbol) TokenLiteral() string { return ds.Token.Literal }
func (ds *DynamicSymbol) Pos() token.Position  { return ds.Token.Pos() }
func (ds *DynamicSymbol) String() string       { return ":\"" + partsString(ds.Parts) + "\"" }

// RegexpLiteral represents a regular expression.
type RegexpLiteral struct {
	Token token.Token
	Parts []Expression
	Flags string
}

func (rl *RegexpLiteral) expressionNode()      {}
func (rl *RegexpLiteral) TokenLiteral() string { return rl.Token.Literal }
func (rl *RegexpLiteral) Pos() token.Position  { return rl.Token.Pos() }
func (rl *RegexpLiteral) String() string       { return "/" + partsString(rl.Parts) + "/" + rl.Flags }

// NilLiteral represents nil.
type NilLiteral struct {
	Token token.Token
}

func (nl *NilLiteral) expressionNode()      {}
func (nl *NilLiteral) TokenLiteral() string { return nl.Token.Literal }
func (nl *NilLiteral) Pos() token.Position  { return nl.Token.Pos() }
func (nl *NilLiteral) String() string       { return "nil" }

// BooleanLiteral represents true or false.
type BooleanLiteral struct {
	Token token.Token
	Value bool
}

func (bl *BooleanLiteral) expressionNode()      {}
func (bl *BooleanLiteral) TokenLiteral() string { return bl.Token.Literal }
func (bl *BooleanLiteral) Pos() token.Position  { return bl.Token.Pos() }
func (bl *BooleanLiteral) String() string {
	if bl.Value {
		return "true"
	}
	return "false"
}

// SelfExpression represents self.
type SelfExpression struct {
	Token token.Token
}

func (se *SelfExpression) expressionNode()      {}
func (se *SelfExpression) TokenLiteral() string { return se.Token.Literal }
func (se *SelfExpression) Pos() token.Position  { return se.Token.Pos() }
func (se *SelfExpression) String() string       { return "self" }

// CurrentFile represents __FILE__.
type CurrentFile struct {
	Token token.Token
}

func (cf *CurrentFile) expressionNode()      {}
func (cf *CurrentFile) TokenLiteral() string { return cf.Token.Literal }
func (cf *CurrentFile) Pos() token.Position  { return cf.Token.Pos() }
func (cf *CurrentFile) String() string       { return "__FILE__" }

// LocalVariable is a read of a name the scope table knows as a local.
type LocalVariable struct {
	Token token.Token
	Name  string
}

func (lv *LocalVariable) expressionNode()      {}
func (lv *LocalVariable) TokenLiteral() string { return lv.Token.Literal }
func (lv *LocalVariable) Pos() token.Position  { return lv.Token.Pos() }
func (lv *LocalVariable) String() string       { return lv.Name }

// Constant represents a constant reference (Foo).
type Constant struct {
	Token token.Token
	Name  string
}

func (c *Constant) expressionNode()      {}
func (c *Constant) TokenLiteral() string { return c.Token.Literal }
func (c *Constant) Pos() token.Position  { return c.Token.Pos() }
func (c *Constant) String() string       { return c.Name }

// ScopedConstant represents Foo::Bar, or ::Bar when Left is nil.
type ScopedConstant struct {
	Token token.Token
	Left  Expression
	Name  string
}

func (sc *ScopedConstant) expressionNode()      {}
func (sc *ScopedConstant) TokenLiteral() string { return sc.Token.Literal }
func (sc *ScopedConstant) Pos() token.Position  { return sc.Token.Pos() }
func (sc *ScopedConstant) String() string {
	if sc.Left == nil {
		return "::" + sc.Name
	}
	return sc.Left.String() + "::" + sc.Name
}

// InstanceVariable represents @foo.
type InstanceVariable struct {
	Token token.Token
	Name  string
}

func (iv *InstanceVariable) expressionNode()      {}
func (iv *InstanceVariable) TokenLiteral() string { return iv.Token.Literal }
func (iv *InstanceVariable) Pos() token.Position  { return iv.Token.Pos() }
func (iv *InstanceVariable) String() string       { return iv.Name }

// ClassVariable represents @@foo.
type ClassVariable struct {
	Token token.Token
	Name  string
}

func (cv *ClassVariable) expressionNode()      {}
func (cv *ClassVariable) TokenLiteral() string { return cv.Token.Literal }
func (cv *ClassVariable) Pos() token.Position  { return cv.Token.Pos() }
func (cv *ClassVariable) String() string       { return cv.Name }

// GlobalVariable represents $foo.
type GlobalVariable struct {
	Token token.Token
	Name  string
}

func (gv *GlobalVariable) expressionNode()      {}
func (gv *GlobalVariable) TokenLiteral() string { return gv.Token.Literal }
func (gv *GlobalVariable) Pos() token.Position  { return gv.Token.Pos() }
func (gv *GlobalVariable) String() string       { return gv.Name }

// NthRef represents $1, $2, ...
type NthRef struct {
	Token token.Token
	N     int
}

func (nr *NthRef) expressionNode()      {}
func (nr *NthRef) TokenLiteral() string { return nr.Token.Literal }
func (nr *NthRef) Pos() token.Position  { return nr.Token.Pos() }
func (nr *NthRef) String() string       { return nr.Token.Literal }

// ArrayLiteral represents [a, b, *c].
type ArrayLiteral struct {
	Token    token.Token
	Elements []Expression
}

func (al *ArrayLiteral) expressionNode()      {}
func (al *ArrayLiteral) TokenLiteral() string { return al.Token.Literal }
func (al *ArrayLiteral) Pos() token.Position  { return al.Token.Pos() }
func (al *ArrayLiteral) String() string {
	return "[" + joinExpressions(al.Elements) + "]"
}

func joinExpressions(exprs []Expression) string {
	parts := make([]string, len(exprs))
	for i, e := range exprs {
		parts[i] = e.String()
	}
	return strings.Join(parts, ", ")
}

// HashPair is one key/value entry. A nil Key marks a **splat of Value.
type HashPair struct {
	Key   Expression
	Value Expression
}

// HashLiteral represents {k => v}. Braces is false for bare trailing hash
// arguments (foo(a: 1)).
type HashLiteral struct {
	Token  token.Token
	Pairs  []HashPair
	Braces bool
}

func (hl *HashLiteral) expressionNode()      {}
func (hl *HashLiteral) TokenLiteral() string { return hl.Token.Literal }
func (hl *HashLiteral) Pos() token.Position  { return hl.Token.Pos() }
func (hl *HashLiteral) String() string {
	pairs := make([]string, len(hl.Pairs))
	for i, p := range hl.Pairs {
		if p.Key == nil {
			pairs[i] = "**" + p.Value.String()
		} else {
			pairs[i] = p.Key.String() + " => " + p.Value.String()
		}
	}
	return "{" + strings.Join(pairs, ", ") + "}"
}

// RangeLiteral represents a..b and a...b. Either end may be nil.
type RangeLiteral struct {
	Token     token.Token
	Start     Expression
	End       Expression
	Exclusive bool
}

func (rl *RangeLiteral) expressionNode()      {}
func (rl *RangeLiteral) TokenLiteral() string { return rl.Token.Literal }
func (rl *RangeLiteral) Pos() token.Position  { return rl.Token.Pos() }
func (rl *RangeLiteral) String() string {
	var out bytes.Buffer
	out.WriteString("(")
	if rl.Start != nil {
		out.WriteString(rl.Start.String())
	}
	if rl.Exclusive {
		out.WriteString("...")
	} else {
		out.WriteString("..")
	}
	if rl.End != nil {
		out.WriteString(rl.End.String())
	}
	out.WriteString(")")
	return out.String()
}

// SplatExpression represents *x in arguments, array literals and rescue lists.
type SplatExpression struct {
	Token token.Token
	Value Expression
}

func (se *SplatExpression) expressionNode()      {}
func (se *SplatExpression) TokenLiteral() string { return se.Token.Literal }
func (se *SplatExpression) Pos() token.Position  { return se.Token.Pos() }
func (se *SplatExpression) String() string {
	if se.Value == nil {
		return "*"
	}
	return "*" + se.Value.String()
}

// BlockPass represents &blk in an argument list.
type BlockPass struct {
	Token token.Token
	Value Expression
}

func (bp *BlockPass) expressionNode()      {}
func (bp *BlockPass) TokenLiteral() string { return bp.Token.Literal }
func (bp *BlockPass) Pos() token.Position  { return bp.Token.Pos() }
func (bp *BlockPass) String() string       { return "&" + bp.Value.String() }

// PrefixExpression is a unary operator sent as a message (-@, +@, ~).
type PrefixExpression struct {
	Token    token.Token
	Operator string
	Right    Expression
}

func (pe *PrefixExpression) expressionNode()      {}
func (pe *PrefixExpression) TokenLiteral() string { return pe.Token.Literal }
func (pe *PrefixExpression) Pos() token.Position  { return pe.Token.Pos() }
func (pe *PrefixExpression) String() string {
	op := strings.TrimSuffix(pe.Operator, "@")
	return "(" + op + pe.Right.String() + ")"
}

// InfixExpression is a binary operator sent as a message to Left.
type InfixExpression struct {
	Token    token.Token
	Left     Expression
	Operator string
	Right    Expression
}

func (ie *InfixExpression) expressionNode()      {}
func (ie *InfixExpression) TokenLiteral() string { return ie.Token.Literal }
func (ie *InfixExpression) Pos() token.Position  { return ie.Token.Pos() }
func (ie *InfixExpression) String() string {
	return "(" + ie.Left.String() + " " + ie.Operator + " " + ie.Right.String() + ")"
}

// ShortCircuitOp selects && or ||.
type ShortCircuitOp int

const (
	And ShortCircuitOp = iota
	Or
)

// ShortCircuit is && / and, || / or. It is control flow, not a message send.
type ShortCircuit struct {
	Token token.Token
	Op    ShortCircuitOp
	Left  Expression
	Right Expression
}

func (sc *ShortCircuit) expressionNode()      {}
func (sc *ShortCircuit) TokenLiteral() string { return sc.Token.Literal }
func (sc *ShortCircuit) Pos() token.Position  { return sc.Token.Pos() }
func (sc *ShortCircuit) String() string {
	op := "&&"
	if sc.Op == Or {
		op = "||"
	}
	return "(" + sc.Left.String() + " " + op + " " + sc.Right.String() + ")"
}

// NotExpression represents ! and not.
type NotExpression struct {
	Token token.Token
	Right Expression
}

func (ne *NotExpression) expressionNode()      {}
func (ne *NotExpression) TokenLiteral() string { return ne.Token.Literal }
func (ne *NotExpression) Pos() token.Position  { return ne.Token.Pos() }
func (ne *NotExpression) String() string       { return "(!" + ne.Right.String() + ")" }

// DefinedExpression represents defined?(expr).
type DefinedExpression struct {
	Token      token.Token
	Expression Expression
}

func (de *DefinedExpression) expressionNode()      {}
func (de *DefinedExpression) TokenLiteral() string { return de.Token.Literal }
func (de *DefinedExpression) Pos() token.Position  { return de.Token.Pos() }
func (de *DefinedExpression) String() string {
	return "defined?(" + de.Expression.String() + ")"
}

// MethodCall represents a method call. Index reads are calls to [].
type MethodCall struct {
	Token     token.Token
	Receiver  Expression // nil if implicit self
	Method    string
	Arguments []Expression // may hold SplatExpression and a trailing bare HashLiteral
	BlockArg  Expression   // *BlockPass for &blk
	Block     *BlockLiteral
	SafeNav   bool // true if using &.
	VCall     bool // bare identifier: no receiver, no arguments, no parentheses
}

func (mc *MethodCall) expressionNode()      {}
func (mc *MethodCall) TokenLiteral() string { return mc.Token.Literal }
func (mc *MethodCall) Pos() token.Position  { return mc.Token.Pos() }
func (mc *MethodCall) String() string {
	var out bytes.Buffer
	if mc.Method == "[]" && mc.Receiver != nil {
		out.WriteString(mc.Receiver.String())
		out.WriteString("[" + joinExpressions(mc.Arguments) + "]")
		return out.String()
	}
	if mc.Receiver != nil {
		out.WriteString(mc.Receiver.String())
		if mc.SafeNav {
			out.WriteString("&.")
		} else {
			out.WriteString(".")
		}
	}
	out.WriteString(mc.Method)
	args := mc.Arguments
	if mc.BlockArg != nil {
		args = append(append([]Expression{}, args...), mc.BlockArg)
	}
	if !mc.VCall {
		out.WriteString("(" + joinExpressions(args) + ")")
	}
	if mc.Block != nil {
		out.WriteString(" ")
		out.WriteString(mc.Block.String())
	}
	return out.String()
}

// Assignment represents target = value. Target is a variable, a constant, or a
// MethodCall naming an attribute (recv.x) or index (recv[i]).
type Assignment struct {
	Token  token.Token
	Target Expression
	Value  Expression
}

func (ae *Assignment) expressionNode()      {}
func (ae *Assignment) TokenLiteral() string { return ae.Token.Literal }
func (ae *Assignment) Pos() token.Position  { return ae.Token.Pos() }
func (ae *Assignment) String() string {
	return ae.Target.String() + " = " + ae.Value.String()
}

// OpAssignment represents target op= value, including ||= and &&=.
type OpAssignment struct {
	Token    token.Token
	Target   Expression
	Operator string // "+", "||", "&&", ...
	Value    Expression
}

func (oa *OpAssignment) expressionNode()      {}
func (oa *OpAssignment) TokenLiteral() string { return oa.Token.Literal }
func (oa *OpAssignment) Pos() token.Position  { return oa.Token.Pos() }
func (oa *OpAssignment) String() string {
	return oa.Target.String() + " " + oa.Operator + "= " + oa.Value.String()
}

// Mlhs is a destructuring target list: a, *b, c or a nested (b, c) group. Splat
// is set when a *target is present; its Value is nil for an anonymous *.
type Mlhs struct {
	Token token.Token
	Pre   []Expression
	Splat *SplatExpression
	Post  []Expression
}

func (m *Mlhs) expressionNode()      {}
func (m *Mlhs) TokenLiteral() string { return m.Token.Literal }
func (m *Mlhs) Pos() token.Position  { return m.Token.Pos() }
func (m *Mlhs) String() string {
	parts := make([]Expression, 0, len(m.Pre)+len(m.Post)+1)
	parts = append(parts, m.Pre...)
	if m.Splat != nil {
		parts = append(parts, m.Splat)
	}
	parts = append(parts, m.Post...)
	return "(" + joinExpressions(parts) + ")"
}

// MultipleAssignment represents a, b = 1, 2. The right side is evaluated completely
// before any target is assigned.
type MultipleAssignment struct {
	Token token.Token
	Left  *Mlhs
	Right []Expression
}

func (ma *MultipleAssignment) expressionNode()      {}
func (ma *MultipleAssignment) TokenLiteral() string { return ma.Token.Literal }
func (ma *MultipleAssignment) Pos() token.Position  { return ma.Token.Pos() }
func (ma *MultipleAssignment) String() string {
	return ma.Left.String() + " = " + joinExpressions(ma.Right)
}
