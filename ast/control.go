package ast

import (
	"bytes"
	"strings"

	"github.com/alexisbouchez/rubyvm/symtab"
	"github.com/alexisbouchez/rubyvm/token"
)

// IfExpression represents if/unless, the ternary operator and modifier forms.
// An elsif chain is a nested IfExpression as the only statement of Alternative.
type IfExpression struct {
	Token       token.Token
	Condition   Expression
	Consequence *CompoundStatement
	Alternative *CompoundStatement
	Unless      bool
}

func (ie *IfExpression) expressionNode()      {}
func (ie *IfExpression) TokenLiteral() string { return ie.Token.Literal }
func (ie *IfExpression) Pos() token.Position  { return ie.Token.Pos() }
func (ie *IfExpression) String() string {
	var out bytes.Buffer
	if ie.Unless {
		out.WriteString("unless ")
	} else {
		out.WriteString("if ")
	}
	out.WriteString(ie.Condition.String())
	out.WriteString("; ")
	if !ie.Consequence.Empty() {
		out.WriteString(ie.Consequence.String())
		out.WriteString("; ")
	}
	if !ie.Alternative.Empty() {
		out.WriteString("else ")
		out.WriteString(ie.Alternative.String())
		out.WriteString("; ")
	}
	out.WriteString("end")
	return out.String()
}

// WhileExpression represents while/until loops. DoWhile is set for
// begin...end while cond, which runs the body before the first test.
type WhileExpression struct {
	Token     token.Token
	Condition Expression
	Body      *CompoundStatement
	Until     bool
	DoWhile   bool
}

func (we *WhileExpression) expressionNode()      {}
func (we *WhileExpression) TokenLiteral() string { return we.Token.Literal }
func (we *WhileExpression) Pos() token.Position  { return we.Token.Pos() }
func (we *WhileExpression) String() string {
	kw := "while"
	if we.Until {
		kw = "until"
	}
	if we.DoWhile {
		return "begin; " + we.Body.String() + "; end " + kw + " " + we.Condition.String()
	}
	return kw + " " + we.Condition.String() + "; " + we.Body.String() + "; end"
}

// ForExpression represents for x in iterable.
type ForExpression struct {
	Token    token.Token
	Target   Expression // LocalVariable or *Mlhs
	Iterable Expression
	Body     *CompoundStatement
}

func (fe *ForExpression) expressionNode()      {}
func (fe *ForExpression) TokenLiteral() string { return fe.Token.Literal }
func (fe *ForExpression) Pos() token.Position  { return fe.Token.Pos() }
func (fe *ForExpression) String() string {
	return "for " + fe.Target.String() + " in " + fe.Iterable.String() + "; " + fe.Body.String() + "; end"
}

// WhenClause is one when branch. Conditions may contain SplatExpressions.
type WhenClause struct {
	Token      token.Token
	Conditions []Expression
	Body       *CompoundStatement
}

func (wc *WhenClause) String() string {
	return "when " + joinExpressions(wc.Conditions) + "; " + wc.Body.String()
}

// CaseExpression represents case/when. Subject is nil for a bare case.
type CaseExpression struct {
	Token   token.Token
	Subject Expression
	Whens   []*WhenClause
	Else    *CompoundStatement
}

func (ce *CaseExpression) expressionNode()      {}
func (ce *CaseExpression) TokenLiteral() string { return ce.Token.Literal }
func (ce *CaseExpression) Pos() token.Position  { return ce.Token.Pos() }
func (ce *CaseExpression) String() string {
	var out bytes.Buffer
	out.WriteString("case")
	if ce.Subject != nil {
		out.WriteString(" " + ce.Subject.String())
	}
	for _, w := range ce.Whens {
		out.WriteString("; " + w.String())
	}
	if ce.Else != nil {
		out.WriteString("; else " + ce.Else.String())
	}
	out.WriteString("; end")
	return out.String()
}

// RescueClause is one rescue branch of a begin body. Classes empty means
// StandardError.
type RescueClause struct {
	Token    token.Token
	Classes  []Expression
	Variable Expression // assignment target for => e, or nil
	Body     *CompoundStatement
}

func (rc *RescueClause) String() string {
	var out bytes.Buffer
	out.WriteString("rescue")
	if len(rc.Classes) > 0 {
		out.WriteString(" " + joinExpressions(rc.Classes))
	}
	if rc.Variable != nil {
		out.WriteString(" => " + rc.Variable.String())
	}
	out.WriteString("; " + rc.Body.String())
	return out.String()
}

// BeginExpression represents begin/rescue/else/ensure. Method, class and block bodies
// with rescue clauses are wrapped in one as well.
type BeginExpression struct {
	Token   token.Token
	Body    *CompoundStatement
	Rescues []*RescueClause
	Else    *CompoundStatement
	Ensure  *CompoundStatement
}

func (be *BeginExpression) expressionNode()      {}
func (be *BeginExpression) TokenLiteral() string { return be.Token.Literal }
func (be *BeginExpression) Pos() token.Position  { return be.Token.Pos() }
func (be *BeginExpression) String() string {
	var out bytes.Buffer
	out.WriteString("begin; ")
	out.WriteString(be.Body.String())
	for _, r := range be.Rescues {
		out.WriteString("; " + r.String())
	}
	if be.Else != nil {
		out.WriteString("; else " + be.Else.String())
	}
	if be.Ensure != nil {
		out.WriteString("; ensure " + be.Ensure.String())
	}
	out.WriteString("; end")
	return out.String()
}

// RescueModifier represents expr rescue fallback.
type RescueModifier struct {
	Token      token.Token
	Expression Expression
	Rescue     Expression
}

func (rm *RescueModifier) expressionNode()      {}
func (rm *RescueModifier) TokenLiteral() string { return rm.Token.Literal }
func (rm *RescueModifier) Pos() token.Position  { return rm.Token.Pos() }
func (rm *RescueModifier) String() string {
	return "(" + rm.Expression.String() + " rescue " + rm.Rescue.String() + ")"
}

// Param is one formal parameter. Group is set for a destructuring block
// parameter |(a, b)|.
type Param struct {
	Token   token.Token
	Name    string
	Default Expression
	Group   *Mlhs
}

func (p *Param) String() string {
	if p.Group != nil {
		return p.Group.String()
	}
	if p.Default != nil {
		return p.Name + " = " + p.Default.String()
	}
	return p.Name
}

// ParameterList holds a method or block signature in declaration order:
// required, optional, *rest, post-required, &block.
type ParameterList struct {
	Required []*Param
	Optional []*Param
	Rest     *Param // Name is "" for an anonymous *
	Post     []*Param
	Block    *Param
}

// Argc is the number of required positional parameters.
func (pl *ParameterList) Argc() int {
	if pl == nil {
		return 0
	}
	return len(pl.Required) + len(pl.Post)
}

// HasSplat reports a *rest parameter.
func (pl *ParameterList) HasSplat() bool { return pl != nil && pl.Rest != nil }

// DefaultArgc is the number of optional parameters.
func (pl *ParameterList) DefaultArgc() int {
	if pl == nil {
		return 0
	}
	return len(pl.Optional)
}

// Len is the total number of positional parameters.
func (pl *ParameterList) Len() int {
	if pl == nil {
		return 0
	}
	n := len(pl.Required) + len(pl.Optional) + len(pl.Post)
	if pl.Rest != nil {
		n++
	}
	return n
}

func (pl *ParameterList) String() string {
	if pl == nil {
		return ""
	}
	var parts []string
	for _, p := range pl.Required {
		parts = append(parts, p.String())
	}
	for _, p := range pl.Optional {
		parts = append(parts, p.String())
	}
	if pl.Rest != nil {
		parts = append(parts, "*"+pl.Rest.Name)
	}
	for _, p := range pl.Post {
		parts = append(parts, p.String())
	}
	if pl.Block != nil {
		parts = append(parts, "&"+pl.Block.Name)
	}
	return strings.Join(parts, ", ")
}

// BlockLiteral represents a closure literal: { |x| ... }, do |x| ... end, or a
// lambda -> (x) { ... }.
type BlockLiteral struct {
	Token  token.Token
	Params *ParameterList
	Body   *CompoundStatement
	Scope  *symtab.Scope
	Lambda bool
}

func (bl *BlockLiteral) expressionNode()      {}
func (bl *BlockLiteral) TokenLiteral() string { return bl.Token.Literal }
func (bl *BlockLiteral) Pos() token.Position  { return bl.Token.Pos() }
func (bl *BlockLiteral) String() string {
	var out bytes.Buffer
	if bl.Lambda {
		out.WriteString("->(" + bl.Params.String() + ") ")
	}
	out.WriteString("{ ")
	if !bl.Lambda && bl.Params.Len() > 0 {
		out.WriteString("|" + bl.Params.String() + "| ")
	}
	out.WriteString(bl.Body.String())
	out.WriteString(" }")
	return out.String()
}

// MethodDefinition represents def name(params) ... end. Singleton is set for
// def self.name and def obj.name.
type MethodDefinition struct {
	Token     token.Token
	Name      string
	Singleton Expression
	Params    *ParameterList
	Body      *CompoundStatement
	Scope     *symtab.Scope
}

func (md *MethodDefinition) expressionNode()      {}
func (md *MethodDefinition) TokenLiteral() string { return md.Token.Literal }
func (md *MethodDefinition) Pos() token.Position  { return md.Token.Pos() }
func (md *MethodDefinition) String() string {
	var out bytes.Buffer
	out.WriteString("def ")
	if md.Singleton != nil {
		out.WriteString(md.Singleton.String() + ".")
	}
	out.WriteString(md.Name)
	out.WriteString("(" + md.Params.String() + ")")
	if !md.Body.Empty() {
		out.WriteString("; " + md.Body.String())
	}
	out.WriteString("; end")
	return out.String()
}

// ClassDefinition represents class Path < Superclass ... end.
type ClassDefinition struct {
	Token      token.Token
	Path       Expression // Constant or ScopedConstant
	Superclass Expression
	Body       *CompoundStatement
	Scope      *symtab.Scope
}

func (cd *ClassDefinition) expressionNode()      {}
func (cd *ClassDefinition) TokenLiteral() string { return cd.Token.Literal }
func (cd *ClassDefinition) Pos() token.Position  { return cd.Token.Pos() }
func (cd *ClassDefinition) String() string {
	var out bytes.Buffer
	out.WriteString("class " + cd.Path.String())
	if cd.Superclass != nil {
		out.WriteString(" < " + cd.Superclass.String())
	}
	if !cd.Body.Empty() {
		out.WriteString("; " + cd.Body.String())
	}
	out.WriteString("; end")
	return out.String()
}

// ModuleDefinition represents module Path ... end.
type ModuleDefinition struct {
	Token token.Token
	Path  Expression
	Body  *CompoundStatement
	Scope *symtab.Scope
}

func (md *ModuleDefinition) expressionNode()      {}
func (md *ModuleDefinition) TokenLiteral() string { return md.Token.Literal }
func (md *ModuleDefinition) Pos() token.Position  { return md.Token.Pos() }
func (md *ModuleDefinition) String() string {
	if md.Body.Empty() {
		return "module " + md.Path.String() + "; end"
	}
	return "module " + md.Path.String() + "; " + md.Body.String() + "; end"
}

// SingletonClassDefinition represents class << obj ... end.
type SingletonClassDefinition struct {
	Token  token.Token
	Object Expression
	Body   *CompoundStatement
	Scope  *symtab.Scope
}

func (sc *SingletonClassDefinition) expressionNode()      {}
func (sc *SingletonClassDefinition) TokenLiteral() string { return sc.Token.Literal }
func (sc *SingletonClassDefinition) Pos() token.Position  { return sc.Token.Pos() }
func (sc *SingletonClassDefinition) String() string {
	return "class << " + sc.Object.String() + "; " + sc.Body.String() + "; end"
}

// ReturnExpression represents return [value].
type ReturnExpression struct {
	Token token.Token
	Value Expression
}

func (re *ReturnExpression) expressionNode()      {}
func (re *ReturnExpression) TokenLiteral() string { return re.Token.Literal }
func (re *ReturnExpression) Pos() token.Position  { return re.Token.Pos() }
func (re *ReturnExpression) String() string       { return jumpString("return", re.Value) }

func jumpString(kw string, value Expression) string {
	if value == nil {
		return kw
	}
	return kw + " " + value.String()
}

// BreakExpression represents break [value].
type BreakExpression struct {
	Token token.Token
	Value Expression
}

func (be *BreakExpression) expressionNode()      {}
func (be *BreakExpression) TokenLiteral() string { return be.Token.Literal }
func (be *BreakExpression) Pos() token.Position  { return be.Token.Pos() }
func (be *BreakExpression) String() string       { return jumpString("break", be.Value) }

// NextExpression represents next [value].
type NextExpression struct {
	Token token.Token
	Value Expression
}

func (ne *NextExpression) expressionNode()      {}
func (ne *NextExpression) TokenLiteral() string { return ne.Token.Literal }
func (ne *NextExpression) Pos() token.Position  { return ne.Token.Pos() }
func (ne *NextExpression) String() string       { return jumpString("next", ne.Value) }

// RedoExpression represents redo.
type RedoExpression struct {
	Token token.Token
}

func (re *RedoExpression) expressionNode()      {}
func (re *RedoExpression) TokenLiteral() string { return re.Token.Literal }
func (re *RedoExpression) Pos() token.Position  { return re.Token.Pos() }
func (re *RedoExpression) String() string       { return "redo" }

// RetryExpression represents retry.
type RetryExpression struct {
	Token token.Token
}

func (re *RetryExpression) expressionNode()      {}
func (re *RetryExpression) TokenLiteral() string { return re.Token.Literal }
func (re *RetryExpression) Pos() token.Position  { return re.Token.Pos() }
func (re *RetryExpression) String() string       { return "retry" }

// YieldExpression represents yield args. Splat is fixed by the parser: it is set
// when an argument is a *splat, and the arguments are then flattened into the
// block's positional parameters.
type YieldExpression struct {
	Token     token.Token
	Arguments []Expression
	Splat     bool
}

func (ye *YieldExpression) expressionNode()      {}
func (ye *YieldExpression) TokenLiteral() string { return ye.Token.Literal }
func (ye *YieldExpression) Pos() token.Position  { return ye.Token.Pos() }
func (ye *YieldExpression) String() string {
	if len(ye.Arguments) == 0 {
		return "yield"
	}
	return "yield(" + joinExpressions(ye.Arguments) + ")"
}

// SuperExpression represents super. Without HasArgs it is a zsuper, forwarding
// the current method's arguments.
type SuperExpression struct {
	Token     token.Token
	Arguments []Expression
	HasArgs   bool
	BlockArg  Expression
	Block     *BlockLiteral
}

func (se *SuperExpression) expressionNode()      {}
func (se *SuperExpression) TokenLiteral() string { return se.Token.Literal }
func (se *SuperExpression) Pos() token.Position  { return se.Token.Pos() }
func (se *SuperExpression) String() string {
	var out bytes.Buffer
	out.WriteString("super")
	if se.HasArgs {
		out.WriteString("(" + joinExpressions(se.Arguments) + ")")
	}
	if se.Block != nil {
		out.WriteString(" " + se.Block.String())
	}
	return out.String()
}

// AliasExpression represents alias new old, for methods or global variables.
type AliasExpression struct {
	Token  token.Token
	New    string
	Old    string
	Global bool
}

func (ae *AliasExpression) expressionNode()      {}
func (ae *AliasExpression) TokenLiteral() string { return ae.Token.Literal }
func (ae *AliasExpression) Pos() token.Position  { return ae.Token.Pos() }
func (ae *AliasExpression) String() string       { return "alias " + ae.New + " " + ae.Old }

// UndefExpression represents undef a, b.
type UndefExpression struct {
	Token token.Token
	Names []string
}

func (ue *UndefExpression) expressionNode()      {}
func (ue *UndefExpression) TokenLiteral() string { return ue.Token.Literal }
func (ue *UndefExpression) Pos() token.Position  { return ue.Token.Pos() }
func (ue *UndefExpression) String() string       { return "undef " + strings.Join(ue.Names, ", ") }
