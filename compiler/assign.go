package compiler

import (
	"github.com/alexisbouchez/rubyvm/ast"
	"github.com/alexisbouchez/rubyvm/code"
	"github.com/alexisbouchez/rubyvm/diag"
)

func (c *Compiler) compileAssignment(a *ast.Assignment) {
	if call, ok := a.Target.(*ast.MethodCall); ok {
		c.compileAttributeAssignment(call, a.Value)
		return
	}
	c.compile(a.Value)
	c.emit(code.Dup)
	c.assign(a.Target)
}

// compileAttributeAssignment lowers recv.name = v and recv[i] = v. The value
// of the expression is v, not the setter's result.
func (c *Compiler) compileAttributeAssignment(call *ast.MethodCall, value ast.Expression) {
	c.emit(code.PutNil)
	c.compile(call.Receiver)
	argc := c.indexArgs(call)
	c.compile(value)
	c.emit(code.SetN, argc+2)
	c.send(setterName(call), argc+1, 0)
	c.emit(code.Pop)
}

func (c *Compiler) indexArgs(call *ast.MethodCall) int {
	if call.Method != "[]" {
		return 0
	}
	if hasSplat(call.Arguments) {
		c.fail(diag.LoweringInvariantViolation, "splat in an index assignment")
		return 0
	}
	for _, a := range call.Arguments {
		c.compile(a)
	}
	return len(call.Arguments)
}

func setterName(call *ast.MethodCall) string {
	if call.Method == "[]" {
		return "[]="
	}
	return call.Method + "="
}

// assign stores the value on top of the stack into target, consuming it.
func (c *Compiler) assign(target ast.Expression) {
	switch t := target.(type) {
	case *ast.LocalVariable:
		sym, depth, ok := c.u.scope.Resolve(t.Name)
		if !ok {
			c.fail(diag.LoweringInvariantViolation, "unresolved local variable %s", t.Name)
			return
		}
		c.emit(code.SetLocal, sym.Index, depth)
	case *ast.InstanceVariable:
		c.emit(code.SetIvar, c.constant(t.Name))
	case *ast.ClassVariable:
		c.emit(code.SetCvar, c.constant(t.Name))
	case *ast.GlobalVariable:
		c.emit(code.SetGlobal, c.constant(t.Name))
	case *ast.Constant:
		c.emit(code.SetConst, c.constant(t.Name))
	case *ast.ScopedConstant:
		if t.Left == nil {
			c.emit(code.GetTopConst, c.constant("Object"))
		} else {
			c.compile(t.Left)
		}
		c.emit(code.SetScopedConst, c.constant(t.Name))
	case *ast.MethodCall:
		c.compile(t.Receiver)
		argc := c.indexArgs(t)
		c.emit(code.TopN, argc+1)
		c.send(setterName(t), argc+1, 0)
		c.emit(code.Pop)
		c.emit(code.Pop)
	case *ast.Mlhs:
		c.expandInto(t)
	case *ast.SplatExpression:
		if t.Value == nil {
			c.emit(code.Pop)
			return
		}
		c.assign(t.Value)
	default:
		c.fail(diag.LoweringInvariantViolation, "unexpected assignment target %T", target)
	}
}

// expandInto destructures the value on top of the stack into m's targets.
func (c *Compiler) expandInto(m *ast.Mlhs) {
	c.emit(code.ExpandArray, len(m.Pre), len(m.Post), boolOperand(m.Splat != nil))
	for _, t := range m.Pre {
		c.assign(t)
	}
	if m.Splat != nil {
		c.assign(m.Splat)
	}
	for _, t := range m.Post {
		c.assign(t)
	}
}

// compileMultipleAssignment evaluates the right-hand side left to right, keeps
// it as the expression value, and assigns targets from a copy.
func (c *Compiler) compileMultipleAssignment(ma *ast.MultipleAssignment) {
	if len(ma.Right) == 1 && !hasSplat(ma.Right) {
		c.compile(ma.Right[0])
	} else {
		c.compileList(ma.Right)
	}
	c.emit(code.Dup)
	c.expandInto(ma.Left)
}

func (c *Compiler) compileOpAssignment(oa *ast.OpAssignment) {
	if call, ok := oa.Target.(*ast.MethodCall); ok {
		c.compileAttributeOpAssignment(call, oa)
		return
	}

	undefined := -1
	switch t := oa.Target.(type) {
	case *ast.Constant:
		if oa.Operator == "||" {
			c.emit(code.Defined, int(code.DefinedConst), c.constant(t.Name), 0)
			undefined = c.emit(code.BranchUnless, -1)
		}
	case *ast.ClassVariable:
		if oa.Operator == "||" {
			c.emit(code.Defined, int(code.DefinedCvar), c.constant(t.Name), 0)
			undefined = c.emit(code.BranchUnless, -1)
		}
	}
	c.compile(oa.Target)

	switch oa.Operator {
	case "||", "&&":
		c.emit(code.Dup)
		var done int
		if oa.Operator == "||" {
			done = c.emit(code.BranchIf, -1)
		} else {
			done = c.emit(code.BranchUnless, -1)
		}
		c.emit(code.Pop)
		if undefined >= 0 {
			c.patch(undefined)
		}
		c.compile(oa.Value)
		c.emit(code.Dup)
		c.assign(oa.Target)
		c.patch(done)
	default:
		c.compile(oa.Value)
		c.send(oa.Operator, 1, 0)
		c.emit(code.Dup)
		c.assign(oa.Target)
	}
}

// compileAttributeOpAssignment evaluates the receiver and index arguments once.
func (c *Compiler) compileAttributeOpAssignment(call *ast.MethodCall, oa *ast.OpAssignment) {
	c.emit(code.PutNil)
	c.compile(call.Receiver)
	argc := c.indexArgs(call)
	c.emit(code.DupN, argc+1)
	c.send(call.Method, argc, 0)

	switch oa.Operator {
	case "||", "&&":
		c.emit(code.Dup)
		var keep int
		if oa.Operator == "||" {
			keep = c.emit(code.BranchIf, -1)
		} else {
			keep = c.emit(code.BranchUnless, -1)
		}
		c.emit(code.Pop)
		c.compile(oa.Value)
		c.emit(code.SetN, argc+2)
		c.send(setterName(call), argc+1, 0)
		c.emit(code.Pop)
		done := c.emit(code.Jump, -1)
		c.patch(keep)
		// The current value stands; drop the receiver and arguments.
		c.emit(code.SetN, argc+2)
		for i := 0; i < argc+2; i++ {
			c.emit(code.Pop)
		}
		c.patch(done)
	default:
		c.compile(oa.Value)
		c.send(oa.Operator, 1, 0)
		c.emit(code.SetN, argc+2)
		c.send(setterName(call), argc+1, 0)
		c.emit(code.Pop)
	}
}
