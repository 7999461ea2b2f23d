// Package vm executes lowered code against an object.Runtime.
package vm

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/alexisbouchez/rubyvm/code"
	"github.com/alexisbouchez/rubyvm/object"
)

// DefaultMaxCallDepth bounds nested activations before SystemStackError.
const DefaultMaxCallDepth = 10000

// Option configures a VM.
type Option func(*VM)

// WithMaxCallDepth sets the activation depth that raises SystemStackError.
func WithMaxCallDepth(n int) Option {
	return func(vm *VM) {
		if n > 0 {
			vm.maxDepth = n
		}
	}
}

// WithOutput redirects puts, print and p.
func WithOutput(w io.Writer) Option {
	return func(vm *VM) { vm.rt.Out = w }
}

// VM runs programs. The top-level environment survives between Run calls so
// a REPL can keep its locals.
type VM struct {
	rt       *object.Runtime
	maxDepth int
	depth    int

	ctx   context.Context
	steps int
	halt  error

	frame      *frame
	top        *object.Env
	topLexical *object.Lexical
	lastMatch  *object.MatchData

	catches []catchTag
	ids     map[object.Value]int64
	nextID  int64

	domainError     *object.RubyClass
	yamlSyntaxError *object.RubyClass
}

// catchTag is an active Kernel#catch.
type catchTag struct {
	tag    object.Value
	marker *object.Frame
}

// New creates a VM and installs the core library into rt.
func New(rt *object.Runtime, opts ...Option) *VM {
	vm := &VM{
		rt:         rt,
		maxDepth:   DefaultMaxCallDepth,
		topLexical: object.NewLexical(rt.ObjectClass, nil),
		ids:        map[object.Value]int64{},
		nextID:     8,
	}
	vm.topLexical.Visibility = object.Private
	for _, opt := range opts {
		opt(vm)
	}
	vm.defineBuiltins()
	return vm
}

// Runtime returns the runtime the VM executes against.
func (vm *VM) Runtime() *object.Runtime { return vm.rt }

// RubyError is an exception that nothing rescued.
type RubyError struct {
	Class     string
	Message   string
	File      string
	Line      int
	Exception *object.Exception
}

func (e *RubyError) Error() string {
	if e.File != "" {
		return fmt.Sprintf("%s:%d: %s (%s)", e.File, e.Line, e.Message, e.Class)
	}
	return fmt.Sprintf("%s (%s)", e.Message, e.Class)
}

// Run executes a program unit and returns the value of its last statement.
func (vm *VM) Run(ctx context.Context, proto *code.Proto) (object.Value, error) {
	vm.ctx, vm.halt, vm.depth = ctx, nil, 0
	if vm.top == nil {
		vm.top = object.NewEnv(proto.NumLocals())
	}
	vm.top.Grow(proto.NumLocals())

	marker := &object.Frame{Name: proto.Name}
	f := vm.newFrame(proto, vm.top, vm.rt.Main, vm.topLexical)
	f.marker, f.home = marker, marker
	v, stop := vm.execute(f)
	marker.Done = true
	if vm.halt != nil {
		return nil, vm.halt
	}

	switch stop {
	case object.NoStop:
		return v, nil
	case object.ReturnStop:
		if j := v.(*object.Jump); j.Target == marker {
			return j.Value, nil
		}
		v, _ = vm.Raise(vm.rt.LocalJumpErrorClass, "unexpected return")
	case object.BreakStop:
		v, _ = vm.Raise(vm.rt.LocalJumpErrorClass, "break from proc-closure")
	}
	return nil, vm.rubyError(v.(*object.Exception))
}

func (vm *VM) rubyError(exc *object.Exception) *RubyError {
	e := &RubyError{
		Class:     exc.Class().Name,
		Message:   vm.messageOf(exc),
		Exception: exc,
	}
	if len(exc.Backtrace) > 0 {
		// "file:line:in 'name'"
		parts := strings.SplitN(exc.Backtrace[0], ":", 3)
		if len(parts) == 3 {
			e.File = parts[0]
			fmt.Sscanf(parts[1], "%d", &e.Line)
		}
	}
	return e
}

type pending struct {
	value object.Value
	stop  object.Stop
}

// frame is one activation of a proto.
type frame struct {
	proto   *code.Proto
	pc      int
	line    int
	stack   []object.Value
	env     *object.Env
	self    object.Value
	lexical *object.Lexical

	block    *object.Proc   // the block yield calls
	method   *object.Method // the method being run, for super
	defClass *object.RubyClass
	args     []object.Value // arguments as passed, for zsuper

	marker      *object.Frame // this activation
	home        *object.Frame // return target
	breakTarget *object.Frame // break target

	marks   []int
	pending []pending
	caught  []*object.Exception
	caller  *frame
}

func (vm *VM) newFrame(proto *code.Proto, env *object.Env, self object.Value, lexical *object.Lexical) *frame {
	return &frame{
		proto:   proto,
		env:     env,
		self:    self,
		lexical: lexical,
		line:    proto.Line,
		stack:   make([]object.Value, 0, 16),
		marks:   make([]int, proto.NumMarks),
		pending: make([]pending, proto.NumMarks),
		caught:  make([]*object.Exception, proto.NumMarks),
	}
}

func (f *frame) push(v object.Value) { f.stack = append(f.stack, v) }

func (f *frame) pop() object.Value {
	v := f.stack[len(f.stack)-1]
	f.stack = f.stack[:len(f.stack)-1]
	return v
}

func (f *frame) top() object.Value { return f.stack[len(f.stack)-1] }

// popN removes the top n values and returns them in push order.
func (f *frame) popN(n int) []object.Value {
	out := make([]object.Value, n)
	copy(out, f.stack[len(f.stack)-n:])
	f.stack = f.stack[:len(f.stack)-n]
	return out
}

// handle routes a non-local stop to the innermost handler covering the
// faulting instruction. It reports false when the frame has none.
func (vm *VM) handle(f *frame, v object.Value, stop object.Stop) bool {
	pc := f.pc - 1
	best := -1
	for i, h := range f.proto.Handlers {
		if !h.Covers(pc) {
			continue
		}
		if h.Kind == code.Rescue && (stop != object.RaiseStop || vm.halt != nil) {
			continue
		}
		if best < 0 || h.Level > f.proto.Handlers[best].Level {
			best = i
		}
	}
	if best < 0 {
		return false
	}
	h := f.proto.Handlers[best]
	f.stack = f.stack[:f.marks[h.Mark]]
	if h.Kind == code.Rescue {
		exc := v.(*object.Exception)
		f.caught[h.Mark] = exc
		vm.rt.Globals["$!"] = exc
	} else {
		f.pending[h.Mark] = pending{value: v, stop: stop}
	}
	f.pc = h.Target
	return true
}

func (vm *VM) constant(f *frame, i int) object.Value {
	switch c := f.proto.Consts[i].(type) {
	case int64:
		return &object.Integer{Value: c}
	case float64:
		return &object.Float{Value: c}
	case string:
		return object.NewString(c)
	case code.Sym:
		return vm.rt.Intern(string(c))
	}
	return object.NIL
}

// execute runs f until it leaves or a stop escapes it.
func (vm *VM) execute(f *frame) (object.Value, object.Stop) {
	if vm.depth >= vm.maxDepth {
		return vm.Raise(vm.rt.SystemStackErrorClass, "stack level too deep")
	}
	vm.depth++
	f.caller = vm.frame
	vm.frame = f
	defer func() {
		vm.frame = f.caller
		vm.depth--
	}()

	instrs := f.proto.Code
	for f.pc < len(instrs) {
		in := instrs[f.pc]
		f.pc++
		f.line = in.Line

		var v object.Value
		stop := object.NoStop

		if v, stop = vm.tick(); stop != object.NoStop {
			if !vm.handle(f, v, stop) {
				return v, stop
			}
			continue
		}

		switch in.Op {
		case code.Nop:
		case code.PutNil:
			f.push(object.NIL)
		case code.PutSelf:
			f.push(f.self)
		case code.PutTrue:
			f.push(object.TRUE)
		case code.PutFalse:
			f.push(object.FALSE)
		case code.PutObject:
			f.push(vm.constant(f, in.A))
		case code.PutString:
			f.push(object.NewString(f.proto.Str(in.A)))

		case code.Pop:
			f.pop()
		case code.Dup:
			f.push(f.top())
		case code.DupN:
			f.stack = append(f.stack, f.stack[len(f.stack)-in.A:]...)
		case code.Swap:
			n := len(f.stack)
			f.stack[n-1], f.stack[n-2] = f.stack[n-2], f.stack[n-1]
		case code.TopN:
			f.push(f.stack[len(f.stack)-1-in.A])
		case code.SetN:
			f.stack[len(f.stack)-1-in.A] = f.top()

		case code.GetLocal:
			f.push(f.env.Get(in.A, in.B))
		case code.SetLocal:
			f.env.Set(in.A, in.B, f.pop())
		case code.GetIvar:
			f.push(vm.ivarGet(f.self, f.proto.Str(in.A)))
		case code.SetIvar:
			v, stop = vm.ivarSet(f.self, f.proto.Str(in.A), f.pop())
		case code.GetCvar:
			v, stop = vm.cvarGet(f, f.proto.Str(in.A))
			if stop == object.NoStop {
				f.push(v)
			}
		case code.SetCvar:
			object.SetClassVar(vm.cvarBase(f), f.proto.Str(in.A), f.pop())
		case code.GetGlobal:
			f.push(vm.globalGet(f.proto.Str(in.A)))
		case code.SetGlobal:
			vm.rt.Globals[f.proto.Str(in.A)] = f.pop()
		case code.GetConst:
			v, stop = vm.constGet(f, f.proto.Str(in.A))
			if stop == object.NoStop {
				f.push(v)
			}
		case code.GetScopedConst:
			v, stop = vm.scopedConstGet(f.pop(), f.proto.Str(in.A))
			if stop == object.NoStop {
				f.push(v)
			}
		case code.GetTopConst:
			v, stop = vm.scopedConstGet(vm.rt.ObjectClass, f.proto.Str(in.A))
			if stop == object.NoStop {
				f.push(v)
			}
		case code.SetConst:
			vm.constSet(f.lexical.Module, f.proto.Str(in.A), f.pop())
		case code.SetScopedConst:
			ns := f.pop()
			value := f.pop()
			mod, ok := ns.(*object.RubyClass)
			if !ok {
				v, stop = vm.Raise(vm.rt.TypeErrorClass, "%s is not a class/module", vm.inspect(ns))
				break
			}
			vm.constSet(mod, f.proto.Str(in.A), value)

		case code.NewArray:
			f.push(object.NewArray(f.popN(in.A)...))
		case code.SplatArray:
			v, stop = vm.splat(f.pop())
			if stop == object.NoStop {
				f.push(v)
			}
		case code.ConcatArray:
			tail := f.pop().(*object.Array)
			head := f.top().(*object.Array)
			head.Elements = append(head.Elements, tail.Elements...)
		case code.NewHash:
			items := f.popN(2 * in.A)
			h := object.NewHash()
			for i := 0; i < len(items); i += 2 {
				h.Set(items[i], items[i+1])
			}
			f.push(h)
		case code.MergeHash:
			src := f.pop()
			dst := f.top().(*object.Hash)
			switch src := src.(type) {
			case *object.Hash:
				src.Each(func(k, v object.Value) bool {
					dst.Set(k, v)
					return true
				})
			case *object.Nil:
			default:
				v, stop = vm.Raise(vm.rt.TypeErrorClass, "no implicit conversion of %s into Hash", vm.rt.RealClassOf(src).Name)
			}
		case code.NewRange:
			end := f.pop()
			start := f.pop()
			v, stop = vm.newRange(start, end, in.B == 1)
			if stop == object.NoStop {
				f.push(v)
			}
		case code.ToString:
			v, stop = vm.toS(f.pop())
			if stop == object.NoStop {
				f.push(v)
			}
		case code.ConcatStrings:
			parts := f.popN(in.A)
			var sb strings.Builder
			for _, p := range parts {
				sb.WriteString(p.(*object.String).Value)
			}
			f.push(object.NewString(sb.String()))
		case code.NewRegexp:
			src := f.pop().(*object.String)
			re, err := object.NewRegexp(src.Value, f.proto.Str(in.A))
			if err != nil {
				v, stop = vm.Raise(vm.rt.ArgumentErrorClass, "%s: /%s/", err, src.Value)
				break
			}
			f.push(re)
		case code.ToSymbol:
			f.push(vm.rt.Intern(f.pop().(*object.String).Value))

		case code.Send:
			v, stop = vm.callSite(f, f.proto.Calls[in.A])
			if stop == object.NoStop {
				f.push(v)
			}
		case code.InvokeSuper:
			v, stop = vm.invokeSuper(f, f.proto.Calls[in.A])
			if stop == object.NoStop {
				f.push(v)
			}
		case code.InvokeBlock:
			v, stop = vm.invokeBlock(f, in.A, in.B == 1)
			if stop == object.NoStop {
				f.push(v)
			}
		case code.MakeBlock:
			p := vm.makeBlock(f, in.A)
			p.Lambda = in.B == 1
			f.push(p)

		case code.Jump:
			f.pc = in.A
		case code.BranchIf:
			if object.Truthy(f.pop()) {
				f.pc = in.A
			}
		case code.BranchUnless:
			if !object.Truthy(f.pop()) {
				f.pc = in.A
			}
		case code.BranchNil:
			if _, ok := f.pop().(*object.Nil); ok {
				f.pc = in.A
			}
		case code.Leave:
			return f.pop(), object.NoStop
		case code.Throw:
			v, stop = vm.throw(f, code.ThrowKind(in.A), f.pop())
		case code.Not:
			f.push(object.NativeToBool(!object.Truthy(f.pop())))

		case code.DefineMethod:
			v, stop = vm.defineMethod(f, f.proto.Str(in.A), f.proto.Children[in.B], in.C == 1)
			if stop == object.NoStop {
				f.push(v)
			}
		case code.DefineClass:
			v, stop = vm.defineClass(f, f.proto.Str(in.A), f.proto.Children[in.B], in.C)
			if stop == object.NoStop {
				f.push(v)
			}

		case code.CheckMatch:
			pattern := f.pop()
			target := f.pop()
			var matched bool
			matched, v, stop = vm.checkMatch(target, pattern, in.A)
			if stop == object.NoStop {
				f.push(object.NativeToBool(matched))
			}
		case code.ExpandArray:
			vm.expandArray(f, f.pop(), in.A, in.B, in.C == 1)

		case code.Mark:
			f.marks[in.A] = len(f.stack)
			f.pending[in.A] = pending{}
		case code.Unwind:
			base := 0
			if in.A >= 0 {
				base = f.marks[in.A]
			}
			if in.B == 1 {
				keep := f.pop()
				f.stack = append(f.stack[:base], keep)
			} else {
				f.stack = f.stack[:base]
			}
		case code.GetException:
			if exc := f.caught[in.A]; exc != nil {
				f.push(exc)
			} else {
				f.push(object.NIL)
			}
		case code.Reraise:
			v, stop = f.caught[in.A], object.RaiseStop
		case code.EnsureEnd:
			p := f.pending[in.A]
			f.pending[in.A] = pending{}
			v, stop = p.value, p.stop

		case code.Defined:
			v, stop = vm.defined(f, code.DefinedKind(in.A), f.proto.Str(in.B), in.C == 1)
			if stop == object.NoStop {
				f.push(v)
			}
		case code.Alias:
			v, stop = vm.alias(f, f.proto.Str(in.A), f.proto.Str(in.B), in.C == 1)
		case code.Undef:
			v, stop = vm.undef(f, f.proto.Str(in.A))

		default:
			v, stop = vm.Raise(vm.rt.NotImplementedErrorClass, "unknown instruction %s", in.Op)
		}

		if stop != object.NoStop && !vm.handle(f, v, stop) {
			return v, stop
		}
	}
	return object.NIL, object.NoStop
}

// throw starts a break or return out of a block.
func (vm *VM) throw(f *frame, kind code.ThrowKind, v object.Value) (object.Value, object.Stop) {
	if kind == code.ThrowBreak {
		if f.breakTarget == nil || f.breakTarget.Done {
			return vm.Raise(vm.rt.LocalJumpErrorClass, "break from proc-closure")
		}
		return &object.Jump{Target: f.breakTarget, Value: v}, object.BreakStop
	}
	if f.home == nil || f.home.Done {
		return vm.Raise(vm.rt.LocalJumpErrorClass, "unexpected return")
	}
	return &object.Jump{Target: f.home, Value: v}, object.ReturnStop
}

// caughtJump converts a break or return aimed at target into a value.
func caughtJump(v object.Value, stop object.Stop, target *object.Frame, kinds ...object.Stop) (object.Value, object.Stop) {
	for _, k := range kinds {
		if stop == k {
			if j := v.(*object.Jump); j.Target == target {
				return j.Value, object.NoStop
			}
		}
	}
	return v, stop
}

func (vm *VM) expandArray(f *frame, v object.Value, pre, post int, splat bool) {
	var elems []object.Value
	if arr, ok := v.(*object.Array); ok {
		elems = arr.Elements
	} else {
		elems = []object.Value{v}
	}
	at := func(i int) object.Value {
		if i < len(elems) {
			return elems[i]
		}
		return object.NIL
	}
	postStart := pre
	if splat && len(elems)-post > pre {
		postStart = len(elems) - post
	}
	for j := post - 1; j >= 0; j-- {
		f.push(at(postStart + j))
	}
	if splat {
		var rest []object.Value
		if postStart > pre {
			rest = append(rest, elems[pre:postStart]...)
		}
		f.push(object.NewArray(rest...))
	}
	for i := pre - 1; i >= 0; i-- {
		f.push(at(i))
	}
}

func (vm *VM) splat(v object.Value) (object.Value, object.Stop) {
	switch v := v.(type) {
	case *object.Array:
		return object.NewArray(append([]object.Value(nil), v.Elements...)...), object.NoStop
	case *object.Nil:
		return object.NewArray(), object.NoStop
	case *object.Hash, *object.Range:
		return vm.send(v, "to_a", nil, nil, true)
	}
	if vm.respondTo(v, "to_a", true) {
		res, stop := vm.send(v, "to_a", nil, nil, true)
		if stop != object.NoStop {
			return res, stop
		}
		if arr, ok := res.(*object.Array); ok {
			return arr, object.NoStop
		}
	}
	return object.NewArray(v), object.NoStop
}

func (vm *VM) newRange(start, end object.Value, exclusive bool) (object.Value, object.Stop) {
	_, startNil := start.(*object.Nil)
	_, endNil := end.(*object.Nil)
	if !startNil && !endNil {
		_, si := start.(*object.Integer)
		_, ei := end.(*object.Integer)
		_, sf := start.(*object.Float)
		_, ef := end.(*object.Float)
		numeric := (si || sf) && (ei || ef)
		if !numeric && vm.rt.RealClassOf(start) != vm.rt.RealClassOf(end) {
			return vm.Raise(vm.rt.ArgumentErrorClass, "bad value for range")
		}
	}
	return &object.Range{Start: start, End: end, Exclusive: exclusive}, object.NoStop
}

func (vm *VM) checkMatch(target, pattern object.Value, flags int) (bool, object.Value, object.Stop) {
	if flags&code.MatchRescue != 0 {
		classes, ok := pattern.(*object.Array)
		if !ok {
			classes = object.NewArray(pattern)
		}
		for _, c := range classes.Elements {
			cls, ok := c.(*object.RubyClass)
			if !ok {
				v, stop := vm.Raise(vm.rt.TypeErrorClass, "class or module required for rescue clause")
				return false, v, stop
			}
			if vm.rt.IsA(target, cls) {
				return true, nil, object.NoStop
			}
		}
		return false, nil, object.NoStop
	}
	if flags&code.MatchSplat != 0 {
		for _, p := range pattern.(*object.Array).Elements {
			res, stop := vm.send(p, "===", []object.Value{target}, nil, false)
			if stop != object.NoStop {
				return false, res, stop
			}
			if object.Truthy(res) {
				return true, nil, object.NoStop
			}
		}
		return false, nil, object.NoStop
	}
	res, stop := vm.send(pattern, "===", []object.Value{target}, nil, false)
	if stop != object.NoStop {
		return false, res, stop
	}
	return object.Truthy(res), nil, object.NoStop
}

// tick counts one step of work and raises once the run's context is done.
// Builtin loops that never enter bytecode call it too.
func (vm *VM) tick() (object.Value, object.Stop) {
	vm.steps++
	if vm.steps&1023 != 0 || vm.ctx == nil || vm.halt != nil {
		return nil, object.NoStop
	}
	if err := vm.ctx.Err(); err != nil {
		vm.halt = err
		return vm.Raise(vm.rt.ExceptionClass, "execution cancelled")
	}
	return nil, object.NoStop
}
