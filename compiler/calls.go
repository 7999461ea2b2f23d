package compiler

import (
	"fmt"

	"github.com/alexisbouchez/rubyvm/ast"
	"github.com/alexisbouchez/rubyvm/code"
	"github.com/alexisbouchez/rubyvm/diag"
	"github.com/alexisbouchez/rubyvm/symtab"
)

func (c *Compiler) compileCall(mc *ast.MethodCall) {
	flags := 0
	switch mc.Receiver.(type) {
	case nil:
		c.emit(code.PutSelf)
		flags |= code.FCall
		if mc.VCall {
			flags |= code.VCall
		}
	case *ast.SelfExpression:
		c.emit(code.PutSelf)
		flags |= code.FCall
	default:
		c.compile(mc.Receiver)
	}

	skip := -1
	if mc.SafeNav {
		flags |= code.SafeNav
		c.emit(code.Dup)
		skip = c.emit(code.BranchNil, -1)
	}
	argc, argFlags := c.compileArgs(mc.Arguments, mc.BlockArg)
	ci := code.CallInfo{Name: mc.Method, Argc: argc, Flags: flags | argFlags, Block: -1}
	if mc.Block != nil {
		ci.Block = c.compileBlock(mc.Block)
	}
	c.emit(code.Send, c.u.proto.AddCall(ci))
	if skip >= 0 {
		c.patch(skip)
	}
}

// compileArgs pushes call arguments. With a splat anywhere the arguments
// become a single array.
func (c *Compiler) compileArgs(args []ast.Expression, blockArg ast.Expression) (int, int) {
	argc, flags := len(args), 0
	if hasSplat(args) {
		c.compileList(args)
		argc, flags = 1, code.ArgsSplat
	} else {
		for _, a := range args {
			c.compile(a)
		}
	}
	if blockArg != nil {
		bp, ok := blockArg.(*ast.BlockPass)
		if !ok {
			c.fail(diag.LoweringInvariantViolation, "unexpected block argument %T", blockArg)
			return argc, flags
		}
		c.compile(bp.Value)
		flags |= code.ArgsBlockArg
	}
	return argc, flags
}

func (c *Compiler) compileYield(y *ast.YieldExpression) {
	if y.Splat {
		c.compileList(y.Arguments)
		c.emit(code.InvokeBlock, 1, 1)
		return
	}
	for _, a := range y.Arguments {
		c.compile(a)
	}
	c.emit(code.InvokeBlock, len(y.Arguments), 0)
}

func (c *Compiler) compileSuper(s *ast.SuperExpression) {
	ci := code.CallInfo{Name: "super", Block: -1}
	if s.HasArgs {
		ci.Argc, ci.Flags = c.compileArgs(s.Arguments, s.BlockArg)
	} else {
		ci.Flags = code.ZSuper
		if s.BlockArg != nil {
			_, ci.Flags = c.compileArgs(nil, s.BlockArg)
			ci.Flags |= code.ZSuper
		}
	}
	if s.Block != nil {
		ci.Block = c.compileBlock(s.Block)
	}
	c.emit(code.InvokeSuper, c.u.proto.AddCall(ci))
}

// compileBlock lowers a closure literal into a child unit and returns its index.
func (c *Compiler) compileBlock(b *ast.BlockLiteral) int {
	label, blocks := c.u.label, c.u.blocks+1
	name := "block in " + label
	if blocks > 1 {
		name = fmt.Sprintf("block (%d levels) in %s", blocks, label)
	}
	line := c.line
	p := c.enter(name, code.BlockUnit, b.Scope, b.Token.Line)
	c.u.blocks = blocks
	p.Lambda = b.Lambda
	c.compileParams(b.Params)
	c.compileBody(b.Body)
	c.leave()
	c.line = line
	return c.childIndex(p)
}

// compileParams fills in the signature of the current unit and emits the
// prologue: default values, then destructuring of grouped parameters.
func (c *Compiler) compileParams(params *ast.ParameterList) {
	p := c.u.proto
	if params == nil {
		p.Arity = code.NoArg
		c.u.bodyStart = c.pc()
		return
	}
	slot := func(name string) int {
		sym, depth, ok := c.u.scope.Resolve(name)
		if !ok || depth != 0 {
			c.fail(diag.LoweringInvariantViolation, "parameter %s is not in its scope", name)
			return 0
		}
		return sym.Index
	}
	type group struct {
		slot int
		mlhs *ast.Mlhs
	}
	var groups []group
	positional := func(param *ast.Param) {
		if param.Group != nil {
			sym := c.hidden("group")
			groups = append(groups, group{sym.Index, param.Group})
			p.ParamSlots = append(p.ParamSlots, sym.Index)
			return
		}
		p.ParamSlots = append(p.ParamSlots, slot(param.Name))
	}

	for _, param := range params.Required {
		positional(param)
	}
	for _, param := range params.Optional {
		p.ParamSlots = append(p.ParamSlots, slot(param.Name))
	}
	for _, param := range params.Post {
		positional(param)
	}
	if params.Rest != nil && params.Rest.Name != "" {
		p.RestSlot = slot(params.Rest.Name)
	}
	if params.Block != nil && params.Block.Name != "" {
		p.BlockSlot = slot(params.Block.Name)
	}
	p.Argc = len(params.Required)
	p.DefaultArgc = len(params.Optional)
	p.PostArgc = len(params.Post)
	p.HasSplat = params.Rest != nil
	p.Arity = code.ArityOf(p.Argc, p.DefaultArgc, p.PostArgc, p.HasSplat)

	if len(params.Optional) > 0 {
		for _, param := range params.Optional {
			p.OptEntry = append(p.OptEntry, c.pc())
			c.compile(param.Default)
			c.emit(code.SetLocal, slot(param.Name), 0)
		}
		p.OptEntry = append(p.OptEntry, c.pc())
	}
	for _, g := range groups {
		c.emit(code.GetLocal, g.slot, 0)
		c.expandInto(g.mlhs)
	}
	c.u.bodyStart = c.pc()
}

func (c *Compiler) compileMethodDefinition(md *ast.MethodDefinition) {
	singleton := md.Singleton != nil
	if singleton {
		c.compile(md.Singleton)
	}
	line := c.line
	p := c.enter(md.Name, code.MethodUnit, md.Scope, md.Token.Line)
	c.u.label = md.Name
	c.compileParams(md.Params)
	c.compileBody(md.Body)
	c.leave()
	c.line = line
	c.emit(code.DefineMethod, c.constant(md.Name), c.childIndex(p), boolOperand(singleton))
}

// definitionPath pushes the namespace of a class or module path when it has
// one and returns the constant name.
func (c *Compiler) definitionPath(path ast.Expression) (string, int) {
	switch path := path.(type) {
	case *ast.Constant:
		return path.Name, 0
	case *ast.ScopedConstant:
		if path.Left == nil {
			c.emit(code.GetTopConst, c.constant("Object"))
		} else {
			c.compile(path.Left)
		}
		return path.Name, code.ClassScoped
	}
	c.fail(diag.LoweringInvariantViolation, "unexpected class path %T", path)
	return "", 0
}

func (c *Compiler) compileClassDefinition(cd *ast.ClassDefinition) {
	name, flags := c.definitionPath(cd.Path)
	if cd.Superclass != nil {
		c.compile(cd.Superclass)
		flags |= code.ClassHasSuper
	}
	c.compileClassBody("<class:"+name+">", name, flags, cd.Scope, cd.Body, cd.Token.Line)
}

func (c *Compiler) compileModuleDefinition(md *ast.ModuleDefinition) {
	name, flags := c.definitionPath(md.Path)
	c.compileClassBody("<module:"+name+">", name, flags|code.ClassModule, md.Scope, md.Body, md.Token.Line)
}

func (c *Compiler) compileClassBody(label, name string, flags int, scope *symtab.Scope, body *ast.CompoundStatement, line int) {
	saved := c.line
	p := c.enter(label, code.ClassUnit, scope, line)
	c.u.label = label
	c.compileBody(body)
	c.leave()
	c.line = saved
	c.emit(code.DefineClass, c.constant(name), c.childIndex(p), flags)
}
