package vm

import (
	"fmt"
	"strings"

	"github.com/alexisbouchez/rubyvm/code"
	"github.com/alexisbouchez/rubyvm/object"
)

// Raise builds an exception of class and returns it as a RaiseStop.
func (vm *VM) Raise(class *object.RubyClass, format string, args ...any) (object.Value, object.Stop) {
	return vm.raiseException(object.NewException(class, fmt.Sprintf(format, args...)))
}

func (vm *VM) raiseException(exc *object.Exception) (object.Value, object.Stop) {
	if exc.Backtrace == nil {
		exc.Backtrace = vm.backtrace()
	}
	return exc, object.RaiseStop
}

func (vm *VM) backtrace() []string {
	var out []string
	for f := vm.frame; f != nil; f = f.caller {
		out = append(out, fmt.Sprintf("%s:%d:in '%s'", f.proto.File, f.line, f.proto.Name))
	}
	if out == nil {
		out = []string{}
	}
	return out
}

// Send calls name on recv as an explicit-receiver call.
func (vm *VM) Send(recv object.Value, name string, args []object.Value, blk *object.Proc) (object.Value, object.Stop) {
	return vm.send(recv, name, args, blk, false)
}

// callSite performs a Send instruction.
func (vm *VM) callSite(f *frame, ci code.CallInfo) (object.Value, object.Stop) {
	blk, v, stop := vm.blockArg(f, ci)
	if stop != object.NoStop {
		return v, stop
	}
	var args []object.Value
	if ci.Has(code.ArgsSplat) {
		args = f.pop().(*object.Array).Elements
	} else {
		args = f.popN(ci.Argc)
	}
	recv := f.pop()

	var site *object.Frame
	if ci.Block >= 0 {
		blk = vm.makeBlock(f, ci.Block)
		site = &object.Frame{Name: ci.Name}
		blk.Site = site
	}
	v, stop = vm.dispatch(recv, ci.Name, args, blk, ci.Has(code.FCall), ci.Has(code.VCall))
	if site != nil {
		site.Done = true
		v, stop = caughtJump(v, stop, site, object.BreakStop)
	}
	return v, stop
}

// blockArg pops and converts a &blk argument.
func (vm *VM) blockArg(f *frame, ci code.CallInfo) (*object.Proc, object.Value, object.Stop) {
	if !ci.Has(code.ArgsBlockArg) {
		return nil, nil, object.NoStop
	}
	v := f.pop()
	switch b := v.(type) {
	case *object.Nil:
		return nil, nil, object.NoStop
	case *object.Proc:
		return b, nil, object.NoStop
	case *object.Symbol:
		return vm.symbolProc(b.Name), nil, object.NoStop
	}
	res, stop := vm.send(v, "to_proc", nil, nil, false)
	if stop != object.NoStop {
		return nil, res, stop
	}
	p, ok := res.(*object.Proc)
	if !ok {
		res, stop = vm.Raise(vm.rt.TypeErrorClass, "wrong argument type %s (expected Proc)", vm.rt.RealClassOf(v).Name)
		return nil, res, stop
	}
	return p, nil, object.NoStop
}

func (vm *VM) symbolProc(name string) *object.Proc {
	return &object.Proc{
		Lambda: true,
		Argc:   1,
		Fn: func(it object.Interp, _ object.Value, args []object.Value, blk *object.Proc) (object.Value, object.Stop) {
			if len(args) == 0 {
				return vm.Raise(vm.rt.ArgumentErrorClass, "no receiver given")
			}
			return vm.send(args[0], name, args[1:], blk, false)
		},
	}
}

// makeBlock closes over the current activation.
func (vm *VM) makeBlock(f *frame, child int) *object.Proc {
	p := object.NewProc(f.proto.Children[child], f.env, f.self, f.lexical)
	p.Home = f.home
	p.OuterBlock = f.block
	p.Method = f.method
	p.DefClass = f.defClass
	p.Args = f.args
	return p
}

func (vm *VM) send(recv object.Value, name string, args []object.Value, blk *object.Proc, fcall bool) (object.Value, object.Stop) {
	return vm.dispatch(recv, name, args, blk, fcall, false)
}

func (vm *VM) dispatch(recv object.Value, name string, args []object.Value, blk *object.Proc, fcall, vcall bool) (object.Value, object.Stop) {
	m := object.FindMethod(vm.rt.ClassOf(recv), name)
	if m == nil {
		return vm.methodMissing(recv, name, args, blk, vcall)
	}
	if m.Visibility == object.Private && !fcall && !strings.HasSuffix(name, "=") {
		return vm.Raise(vm.rt.NoMethodErrorClass, "private method '%s' called for %s", name, vm.describe(recv))
	}
	return vm.callMethod(recv, m, args, blk)
}

func (vm *VM) methodMissing(recv object.Value, name string, args []object.Value, blk *object.Proc, vcall bool) (object.Value, object.Stop) {
	if mm := object.FindMethod(vm.rt.ClassOf(recv), "method_missing"); mm != nil && mm.Builtin == nil {
		margs := append([]object.Value{vm.rt.Intern(name)}, args...)
		return vm.callMethod(recv, mm, margs, blk)
	}
	return vm.noMethod(recv, name, vcall)
}

func (vm *VM) noMethod(recv object.Value, name string, vcall bool) (object.Value, object.Stop) {
	if vcall {
		return vm.Raise(vm.rt.NameErrorClass, "undefined local variable or method '%s' for %s", name, vm.describe(recv))
	}
	return vm.Raise(vm.rt.NoMethodErrorClass, "undefined method '%s' for %s", name, vm.describe(recv))
}

// describe names a receiver the way NameError messages do.
func (vm *VM) describe(v object.Value) string {
	switch v := v.(type) {
	case *object.Nil:
		return "nil"
	case *object.Boolean:
		return v.Inspect()
	case *object.RubyClass:
		if v.IsModule {
			return "module " + v.Inspect()
		}
		return "class " + v.Inspect()
	}
	if v == object.Value(vm.rt.Main) {
		return "main:Object"
	}
	return "an instance of " + vm.rt.RealClassOf(v).Name
}

// callMethod invokes m with self bound to recv.
func (vm *VM) callMethod(recv object.Value, m *object.Method, args []object.Value, blk *object.Proc) (object.Value, object.Stop) {
	switch {
	case m.Builtin != nil:
		if m.Argc >= 0 && len(args) != m.Argc {
			return vm.argumentError(len(args), fmt.Sprint(m.Argc))
		}
		return m.Builtin(vm, recv, args, blk)
	case m.Proc != nil:
		return vm.callProc(m.Proc, recv, args, blk, m)
	}

	p := m.Proto
	env := object.NewEnv(p.NumLocals())
	lexical := m.Lexical
	if lexical == nil {
		lexical = object.NewLexical(m.Owner, vm.topLexical)
	}
	f := vm.newFrame(p, env, recv, lexical)
	f.block, f.method, f.defClass, f.args = blk, m, m.Owner, args
	f.marker = &object.Frame{Name: m.Name}
	f.home = f.marker
	if v, stop := vm.bindArgs(f, args, blk, true); stop != object.NoStop {
		return v, stop
	}
	v, stop := vm.execute(f)
	f.marker.Done = true
	return caughtJump(v, stop, f.marker, object.ReturnStop)
}

func (vm *VM) argumentError(given int, expected string) (object.Value, object.Stop) {
	return vm.Raise(vm.rt.ArgumentErrorClass, "wrong number of arguments (given %d, expected %s)", given, expected)
}

// bindArgs stores arguments into the parameter slots of f and picks the
// entry point. Strict binding rejects a wrong count; loose binding pads and
// truncates, and spreads a lone array over several parameters.
func (vm *VM) bindArgs(f *frame, args []object.Value, blk *object.Proc, strict bool) (object.Value, object.Stop) {
	p := f.proto
	switch p.Arity {
	case code.NoArg:
		if strict && len(args) != 0 {
			return vm.argumentError(len(args), p.ArgcString())
		}
	case code.OneArg:
		if strict && len(args) != 1 {
			return vm.argumentError(len(args), p.ArgcString())
		}
		var arg object.Value = object.NIL
		if len(args) > 0 {
			arg = args[0]
		}
		f.env.Slots[p.ParamSlots[0]] = arg
	default:
		return vm.bindVarArgs(f, args, blk, strict)
	}
	vm.bindBlockParam(f, blk)
	return nil, object.NoStop
}

// bindVarArgs handles signatures with defaults, a splat, post parameters or
// more than one required parameter.
func (vm *VM) bindVarArgs(f *frame, args []object.Value, blk *object.Proc, strict bool) (object.Value, object.Stop) {
	p := f.proto
	required := p.Argc + p.PostArgc
	positional := required + p.DefaultArgc

	if strict {
		if len(args) < required || (!p.HasSplat && len(args) > positional) {
			return vm.argumentError(len(args), p.ArgcString())
		}
	} else {
		if len(args) == 1 && (positional > 1 || (p.HasSplat && positional > 0)) {
			if arr, ok := args[0].(*object.Array); ok {
				args = arr.Elements
			}
		}
		if len(args) < required {
			padded := make([]object.Value, required)
			copy(padded, args)
			for i := len(args); i < required; i++ {
				padded[i] = object.NIL
			}
			args = padded
		}
		if !p.HasSplat && len(args) > positional {
			args = args[:positional]
		}
	}

	n := len(args)
	opt := n - required
	if opt > p.DefaultArgc {
		opt = p.DefaultArgc
	}
	slots := p.ParamSlots
	for i := 0; i < p.Argc; i++ {
		f.env.Slots[slots[i]] = args[i]
	}
	for i := 0; i < opt; i++ {
		f.env.Slots[slots[p.Argc+i]] = args[p.Argc+i]
	}
	restStart := p.Argc + opt
	restEnd := n - p.PostArgc
	for i := 0; i < p.PostArgc; i++ {
		f.env.Slots[slots[p.Argc+p.DefaultArgc+i]] = args[restEnd+i]
	}
	if p.RestSlot >= 0 {
		var rest []object.Value
		if restEnd > restStart {
			rest = append(rest, args[restStart:restEnd]...)
		}
		f.env.Slots[p.RestSlot] = object.NewArray(rest...)
	}
	vm.bindBlockParam(f, blk)
	if len(p.OptEntry) > 0 {
		f.pc = p.OptEntry[opt]
	}
	return nil, object.NoStop
}

func (vm *VM) bindBlockParam(f *frame, blk *object.Proc) {
	if f.proto.BlockSlot < 0 {
		return
	}
	if blk != nil {
		f.env.Slots[f.proto.BlockSlot] = blk
	} else {
		f.env.Slots[f.proto.BlockSlot] = object.NIL
	}
}

// CallBlock invokes a block with its captured self.
func (vm *VM) CallBlock(blk *object.Proc, args []object.Value) (object.Value, object.Stop) {
	return vm.callBlock(blk, blk.Self, nil, args, nil)
}

// callBlock runs blk. self and lexical override the captured ones for
// instance_eval and class_eval.
func (vm *VM) callBlock(blk *object.Proc, self object.Value, lexical *object.Lexical, args []object.Value, blkArg *object.Proc) (object.Value, object.Stop) {
	if blk.Fn != nil {
		return blk.Fn(vm, self, args, blkArg)
	}
	if lexical == nil {
		lexical = blk.Lexical
	}
	p := blk.Proto
	f := vm.newFrame(p, object.NewEnclosedEnv(blk.Env, p.NumLocals()), self, lexical)
	f.block, f.method, f.defClass, f.args = blk.OuterBlock, blk.Method, blk.DefClass, blk.Args

	if !blk.Lambda {
		f.home, f.breakTarget = blk.Home, blk.Site
		if v, stop := vm.bindArgs(f, args, blkArg, false); stop != object.NoStop {
			return v, stop
		}
		return vm.execute(f)
	}

	f.marker = &object.Frame{Name: "lambda"}
	f.home, f.breakTarget = f.marker, f.marker
	if v, stop := vm.bindArgs(f, args, blkArg, true); stop != object.NoStop {
		return v, stop
	}
	v, stop := vm.execute(f)
	f.marker.Done = true
	return caughtJump(v, stop, f.marker, object.BreakStop, object.ReturnStop)
}

// callProc runs a define_method body as a method: strict arguments, self
// rebound, return ends the call.
func (vm *VM) callProc(blk *object.Proc, self object.Value, args []object.Value, blkArg *object.Proc, m *object.Method) (object.Value, object.Stop) {
	lambda := *blk
	lambda.Lambda = true
	lambda.Method, lambda.DefClass, lambda.Args = m, m.Owner, args
	lambda.OuterBlock = blkArg
	return vm.callBlock(&lambda, self, nil, args, blkArg)
}

func (vm *VM) invokeBlock(f *frame, argc int, splat bool) (object.Value, object.Stop) {
	var args []object.Value
	if splat {
		args = f.pop().(*object.Array).Elements
	} else {
		args = f.popN(argc)
	}
	if f.block == nil {
		return vm.Raise(vm.rt.LocalJumpErrorClass, "no block given (yield)")
	}
	return vm.CallBlock(f.block, args)
}

func (vm *VM) invokeSuper(f *frame, ci code.CallInfo) (object.Value, object.Stop) {
	blk, v, stop := vm.blockArg(f, ci)
	if stop != object.NoStop {
		return v, stop
	}
	var args []object.Value
	switch {
	case ci.Has(code.ZSuper):
		args = f.args
	case ci.Has(code.ArgsSplat):
		args = f.pop().(*object.Array).Elements
	default:
		args = f.popN(ci.Argc)
	}
	if blk == nil && !ci.Has(code.ArgsBlockArg) {
		blk = f.block
	}
	var site *object.Frame
	if ci.Block >= 0 {
		blk = vm.makeBlock(f, ci.Block)
		site = &object.Frame{Name: "super"}
		blk.Site = site
	}

	if f.method == nil || f.defClass == nil {
		return vm.Raise(vm.rt.RuntimeErrorClass, "super called outside of method")
	}
	name := f.method.Name
	m := object.FindSuperMethod(vm.rt.ClassOf(f.self), f.defClass, name)
	if m == nil {
		if name == "method_missing" && len(args) > 0 {
			if sym, ok := args[0].(*object.Symbol); ok {
				return vm.noMethod(f.self, sym.Name, false)
			}
		}
		return vm.Raise(vm.rt.NoMethodErrorClass, "super: no superclass method '%s' for %s", name, vm.describe(f.self))
	}
	v, stop = vm.callMethod(f.self, m, args, blk)
	if site != nil {
		site.Done = true
		v, stop = caughtJump(v, stop, site, object.BreakStop)
	}
	return v, stop
}

// respondTo reports whether recv has a method called name.
func (vm *VM) respondTo(recv object.Value, name string, private bool) bool {
	m := object.FindMethod(vm.rt.ClassOf(recv), name)
	return m != nil && (private || m.Visibility != object.Private)
}

// userDefined reports whether name resolves to a method written in source.
func (vm *VM) userDefined(recv object.Value, name string) bool {
	m := object.FindMethod(vm.rt.ClassOf(recv), name)
	return m != nil && m.Builtin == nil
}
