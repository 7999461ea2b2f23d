// Package compiler lowers a parsed program to code.Protos.
package compiler

import (
	"fmt"

	"github.com/alexisbouchez/rubyvm/ast"
	"github.com/alexisbouchez/rubyvm/code"
	"github.com/alexisbouchez/rubyvm/diag"
	"github.com/alexisbouchez/rubyvm/symtab"
)

// Compiler holds the state of one lowering run. Each method, block and class
// body gets its own unit; units nest the way the source does.
type Compiler struct {
	file string
	u    *unit
	line int
	err  error // first error; checked at Compile boundaries
}

type unit struct {
	proto     *code.Proto
	scope     *symtab.Scope
	outer     *unit
	label     string // "foo", "<main>", "<class:Foo>"; blocks inherit it
	blocks    int    // block nesting depth below label's unit
	regions   []*region
	level     int
	bodyStart int
}

type regionKind int

const (
	loopRegion regionKind = iota
	ensureRegion
	rescueRegion
	rescueClauseRegion
)

// region is a lexical construct that local jumps must know about.
type region struct {
	kind regionKind
	mark int

	// loops
	breaks []int
	nexts  []int
	redo   int

	// ensure regions
	ensure   *ast.CompoundStatement
	start    int
	handlers []int
	level    int

	// rescue clauses
	retry int
}

// Compile lowers program to the proto of its top-level unit.
func Compile(program *ast.Program, file string) (*code.Proto, error) {
	c := &Compiler{file: file}
	p := c.enter("<main>", code.ProgramUnit, program.Scope, 1)
	c.u.label = "<main>"
	c.compileBody(program.Body)
	c.leave()
	if c.err != nil {
		return nil, c.err
	}
	return p, nil
}

func (c *Compiler) enter(name string, kind code.Kind, scope *symtab.Scope, line int) *code.Proto {
	p := code.New(name, kind, c.file, line)
	u := &unit{proto: p, scope: scope, outer: c.u}
	if c.u != nil {
		c.u.proto.AddChild(p)
		u.label = c.u.label
	}
	c.u = u
	return p
}

func (c *Compiler) leave() {
	u := c.u
	if u.scope != nil {
		for _, sym := range u.scope.Symbols() {
			u.proto.Locals = append(u.proto.Locals, sym.Name)
		}
	}
	c.u = u.outer
}

func (c *Compiler) childIndex(p *code.Proto) int {
	for i, child := range c.u.proto.Children {
		if child == p {
			return i
		}
	}
	c.fail(diag.LoweringInvariantViolation, "lost child unit %s", p.Name)
	return 0
}

// compileBody lowers a unit body and returns from it.
func (c *Compiler) compileBody(body *ast.CompoundStatement) {
	c.compileCompound(body)
	if body.Empty() || body.LastStatementHasReturnValue() {
		c.emit(code.Leave)
	}
}

func (c *Compiler) fail(kind diag.Kind, format string, args ...any) {
	if c.err != nil {
		return
	}
	e := diag.Errorf(kind, c.line, 0, format, args...)
	e.File = c.file
	c.err = e
}

func (c *Compiler) emit(op code.Opcode, operands ...int) int {
	return c.u.proto.Emit(c.line, op, operands...)
}

func (c *Compiler) pc() int { return c.u.proto.PC() }

func (c *Compiler) patch(pos int) { c.u.proto.Patch(pos) }

func (c *Compiler) patchTo(pos, target int) { c.u.proto.Code[pos].A = target }

func (c *Compiler) constant(v any) int { return c.u.proto.Const(v) }

func (c *Compiler) putString(s string) { c.emit(code.PutString, c.constant(s)) }

func (c *Compiler) send(name string, argc, flags int) {
	c.emit(code.Send, c.u.proto.AddCall(code.CallInfo{Name: name, Argc: argc, Flags: flags, Block: -1}))
}

func (c *Compiler) getHidden(sym symtab.Symbol) { c.emit(code.GetLocal, sym.Index, 0) }

func (c *Compiler) setHidden(sym symtab.Symbol) { c.emit(code.SetLocal, sym.Index, 0) }

func (c *Compiler) hidden(prefix string) symtab.Symbol {
	return c.u.scope.DefineHidden(prefix)
}

// compileCompound leaves the value of the last statement, discarding the others.
func (c *Compiler) compileCompound(cs *ast.CompoundStatement) {
	if cs.Empty() {
		c.emit(code.PutNil)
		return
	}
	for i, stmt := range cs.Statements {
		c.compile(stmt)
		if i < len(cs.Statements)-1 {
			c.emit(code.Pop)
		}
	}
}

// compile emits code that leaves exactly one value on the stack. Jumps leave
// nothing; the code after them is unreachable.
func (c *Compiler) compile(node ast.Node) {
	if c.err != nil || node == nil {
		return
	}
	if line := node.Pos().Line; line > 0 {
		c.line = line
	}

	switch node := node.(type) {
	case *ast.CompoundStatement:
		c.compileCompound(node)
	case *ast.ExpressionStatement:
		c.compile(node.Expression)

	// Literals
	case *ast.IntegerLiteral:
		c.emit(code.PutObject, c.constant(node.Value))
	case *ast.FloatLiteral:
		c.emit(code.PutObject, c.constant(node.Value))
	case *ast.StringLiteral:
		c.putString(node.Value)
	case *ast.InterpolatedString:
		c.compileParts(node.Parts)
	case *ast.SymbolLiteral:
		c.emit(code.PutObject, c.constant(code.Sym(node.Value)))
	case *ast.DynamicSymbol:
		c.compileParts(node.Parts)
		c.emit(code.ToSymbol)
	case *ast.RegexpLiteral:
		c.compileParts(node.Parts)
		c.emit(code.NewRegexp, c.constant(node.Flags))
	case *ast.NilLiteral:
		c.emit(code.PutNil)
	case *ast.BooleanLiteral:
		if node.Value {
			c.emit(code.PutTrue)
		} else {
			c.emit(code.PutFalse)
		}
	case *ast.SelfExpression:
		c.emit(code.PutSelf)
	case *ast.CurrentFile:
		c.putString(c.file)
	case *ast.ArrayLiteral:
		c.compileList(node.Elements)
	case *ast.HashLiteral:
		c.compileHash(node)
	case *ast.RangeLiteral:
		c.compileOrNil(node.Start)
		c.compileOrNil(node.End)
		c.emit(code.NewRange, 0, boolOperand(node.Exclusive))
	case *ast.SplatExpression:
		if node.Value == nil {
			c.fail(diag.LoweringInvariantViolation, "anonymous splat used as a value")
			return
		}
		c.compile(node.Value)
		c.emit(code.SplatArray)

	// Variables
	case *ast.LocalVariable:
		sym, depth, ok := c.u.scope.Resolve(node.Name)
		if !ok {
			c.fail(diag.LoweringInvariantViolation, "unresolved local variable %s", node.Name)
			return
		}
		c.emit(code.GetLocal, sym.Index, depth)
	case *ast.InstanceVariable:
		c.emit(code.GetIvar, c.constant(node.Name))
	case *ast.ClassVariable:
		c.emit(code.GetCvar, c.constant(node.Name))
	case *ast.GlobalVariable:
		c.emit(code.GetGlobal, c.constant(node.Name))
	case *ast.NthRef:
		c.emit(code.GetGlobal, c.constant(fmt.Sprintf("$%d", node.N)))
	case *ast.Constant:
		c.emit(code.GetConst, c.constant(node.Name))
	case *ast.ScopedConstant:
		if node.Left == nil {
			c.emit(code.GetTopConst, c.constant(node.Name))
			return
		}
		c.compile(node.Left)
		c.emit(code.GetScopedConst, c.constant(node.Name))

	// Operators
	case *ast.PrefixExpression:
		c.compile(node.Right)
		c.send(node.Operator, 0, 0)
	case *ast.InfixExpression:
		c.compile(node.Left)
		c.compile(node.Right)
		c.send(node.Operator, 1, 0)
	case *ast.ShortCircuit:
		c.compileShortCircuit(node)
	case *ast.NotExpression:
		c.compile(node.Right)
		c.emit(code.Not)
	case *ast.DefinedExpression:
		c.compileDefined(node.Expression)

	// Calls
	case *ast.MethodCall:
		c.compileCall(node)
	case *ast.YieldExpression:
		c.compileYield(node)
	case *ast.SuperExpression:
		c.compileSuper(node)
	case *ast.BlockLiteral:
		if !node.Lambda {
			c.fail(diag.LoweringInvariantViolation, "block literal outside a call")
			return
		}
		c.emit(code.MakeBlock, c.compileBlock(node), 1)
	case *ast.BlockPass:
		c.fail(diag.LoweringInvariantViolation, "block argument outside a call")

	// Assignment
	case *ast.Assignment:
		c.compileAssignment(node)
	case *ast.OpAssignment:
		c.compileOpAssignment(node)
	case *ast.MultipleAssignment:
		c.compileMultipleAssignment(node)

	// Control flow
	case *ast.IfExpression:
		c.compileIf(node)
	case *ast.WhileExpression:
		c.compileWhile(node)
	case *ast.ForExpression:
		c.compileFor(node)
	case *ast.CaseExpression:
		c.compileCase(node)
	case *ast.BeginExpression:
		c.compileBegin(node)
	case *ast.RescueModifier:
		c.compileBegin(&ast.BeginExpression{
			Token:   node.Token,
			Body:    ast.NewCompound(node.Token, &ast.ExpressionStatement{Token: node.Token, Expression: node.Expression}),
			Rescues: []*ast.RescueClause{{Token: node.Token, Body: ast.NewCompound(node.Token, &ast.ExpressionStatement{Token: node.Token, Expression: node.Rescue})}},
		})
	case *ast.ReturnExpression:
		c.compileReturn(node)
	case *ast.BreakExpression:
		c.compileBreak(node)
	case *ast.NextExpression:
		c.compileNext(node)
	case *ast.RedoExpression:
		c.compileRedo()
	case *ast.RetryExpression:
		c.compileRetry()

	// Definitions
	case *ast.MethodDefinition:
		c.compileMethodDefinition(node)
	case *ast.ClassDefinition:
		c.compileClassDefinition(node)
	case *ast.ModuleDefinition:
		c.compileModuleDefinition(node)
	case *ast.SingletonClassDefinition:
		c.compile(node.Object)
		child := c.enter("singleton class", code.ClassUnit, node.Scope, node.Token.Line)
		c.u.label = "singleton class"
		c.compileBody(node.Body)
		c.leave()
		c.emit(code.DefineClass, c.constant("singleton class"), c.childIndex(child), code.ClassSingleton)
	case *ast.AliasExpression:
		c.emit(code.Alias, c.constant(node.New), c.constant(node.Old), boolOperand(node.Global))
		c.emit(code.PutNil)
	case *ast.UndefExpression:
		for _, name := range node.Names {
			c.emit(code.Undef, c.constant(name))
		}
		c.emit(code.PutNil)

	default:
		c.fail(diag.LoweringInvariantViolation, "unexpected node %T", node)
	}
}

func (c *Compiler) compileOrNil(e ast.Expression) {
	if e == nil {
		c.emit(code.PutNil)
		return
	}
	c.compile(e)
}

func boolOperand(b bool) int {
	if b {
		return 1
	}
	return 0
}

// compileParts converts each part to a string and joins them.
func (c *Compiler) compileParts(parts []ast.Expression) {
	for _, part := range parts {
		if s, ok := part.(*ast.StringLiteral); ok {
			c.putString(s.Value)
			continue
		}
		c.compile(part)
		c.emit(code.ToString)
	}
	if len(parts) == 1 {
		if _, ok := parts[0].(*ast.StringLiteral); ok {
			return
		}
	}
	c.emit(code.ConcatStrings, len(parts))
}

// compileList builds one array from elements, expanding splats in place.
func (c *Compiler) compileList(elements []ast.Expression) {
	pending, acc := 0, false
	flush := func() {
		c.emit(code.NewArray, pending)
		if acc {
			c.emit(code.ConcatArray)
		}
		acc, pending = true, 0
	}
	for _, e := range elements {
		splat, ok := e.(*ast.SplatExpression)
		if !ok {
			c.compile(e)
			pending++
			continue
		}
		if pending > 0 {
			flush()
		}
		c.compile(splat)
		if acc {
			c.emit(code.ConcatArray)
		}
		acc = true
	}
	if pending > 0 || !acc {
		flush()
	}
}

func hasSplat(args []ast.Expression) bool {
	for _, a := range args {
		if _, ok := a.(*ast.SplatExpression); ok {
			return true
		}
	}
	return false
}

func (c *Compiler) compileHash(h *ast.HashLiteral) {
	pending, acc := 0, false
	flush := func() {
		c.emit(code.NewHash, pending)
		if acc {
			c.emit(code.MergeHash)
		}
		acc, pending = true, 0
	}
	for _, pair := range h.Pairs {
		if pair.Key == nil {
			if pending > 0 || !acc {
				flush()
			}
			c.compile(pair.Value)
			c.emit(code.MergeHash)
			continue
		}
		c.compile(pair.Key)
		c.compile(pair.Value)
		pending++
	}
	if pending > 0 || !acc {
		flush()
	}
}

// compileShortCircuit keeps the left value when it decides the result.
func (c *Compiler) compileShortCircuit(sc *ast.ShortCircuit) {
	c.compile(sc.Left)
	c.emit(code.Dup)
	var j int
	if sc.Op == ast.And {
		j = c.emit(code.BranchUnless, -1)
	} else {
		j = c.emit(code.BranchIf, -1)
	}
	c.emit(code.Pop)
	c.compile(sc.Right)
	c.patch(j)
}

func (c *Compiler) compileDefined(e ast.Expression) {
	defined := func(kind code.DefinedKind, name string, recv bool) {
		c.emit(code.Defined, int(kind), c.constant(name), boolOperand(recv))
	}
	switch e := e.(type) {
	case *ast.LocalVariable:
		c.putString("local-variable")
	case *ast.InstanceVariable:
		defined(code.DefinedIvar, e.Name, false)
	case *ast.GlobalVariable:
		defined(code.DefinedGlobal, e.Name, false)
	case *ast.ClassVariable:
		defined(code.DefinedCvar, e.Name, false)
	case *ast.Constant:
		defined(code.DefinedConst, e.Name, false)
	case *ast.ScopedConstant:
		defined(code.DefinedConst, e.Name, false)
	case *ast.MethodCall:
		if e.Receiver == nil {
			defined(code.DefinedMethod, e.Method, false)
			return
		}
		c.compile(e.Receiver)
		defined(code.DefinedMethod, e.Method, true)
	case *ast.YieldExpression:
		defined(code.DefinedYield, "", false)
	case *ast.SuperExpression:
		defined(code.DefinedSuper, "", false)
	case *ast.SelfExpression:
		c.putString("self")
	case *ast.NilLiteral:
		c.putString("expression")
	case *ast.Assignment, *ast.OpAssignment, *ast.MultipleAssignment:
		c.putString("assignment")
	default:
		c.putString("expression")
	}
}
