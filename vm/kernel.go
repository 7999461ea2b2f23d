package vm

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/alexisbouchez/rubyvm/object"
)

func basicObjectMethods() map[string]builtin {
	return map[string]builtin{
		"initialize": {-1, func(vm *VM, self object.Value, args []object.Value, _ *object.Proc) (object.Value, object.Stop) {
			if len(args) > 0 {
				if _, isObj := self.(*object.Object); isObj {
					return vm.argumentError(len(args), "0")
				}
			}
			return object.NIL, object.NoStop
		}},
		"==":      {1, objEqual},
		"equal?":  {1, objEqual},
		"!":       {0, objNot},
		"!=":      {1, objNotEqual},
		"__id__":  {0, objID},
		"__send__": {-1, objSend},
		"instance_eval": {-1, objInstanceEval},
		"instance_exec": {-1, objInstanceExec},
		"method_missing": {-1, func(vm *VM, self object.Value, args []object.Value, _ *object.Proc) (object.Value, object.Stop) {
			if len(args) == 0 {
				return vm.Raise(vm.rt.ArgumentErrorClass, "no method name given")
			}
			sym, ok := args[0].(*object.Symbol)
			if !ok {
				return vm.Raise(vm.rt.TypeErrorClass, "%s is not a symbol", vm.inspect(args[0]))
			}
			return vm.noMethod(self, sym.Name, false)
		}},
	}
}

func objEqual(vm *VM, self object.Value, args []object.Value, _ *object.Proc) (object.Value, object.Stop) {
	return object.NativeToBool(self == args[0]), object.NoStop
}

func objNot(vm *VM, self object.Value, _ []object.Value, _ *object.Proc) (object.Value, object.Stop) {
	return object.NativeToBool(!object.Truthy(self)), object.NoStop
}

func objNotEqual(vm *VM, self object.Value, args []object.Value, _ *object.Proc) (object.Value, object.Stop) {
	eq, v, stop := vm.equal(self, args[0])
	if stop != object.NoStop {
		return v, stop
	}
	return object.NativeToBool(!eq), object.NoStop
}

func objID(vm *VM, self object.Value, _ []object.Value, _ *object.Proc) (object.Value, object.Stop) {
	return &object.Integer{Value: vm.objectID(self)}, object.NoStop
}

// objectID numbers values the way CRuby does for immediates and
// sequentially for everything else.
func (vm *VM) objectID(v object.Value) int64 {
	switch v := v.(type) {
	case *object.Integer:
		return 2*v.Value + 1
	case *object.Nil:
		return 8
	case *object.Boolean:
		if v.Value {
			return 20
		}
		return 0
	}
	if id, ok := vm.ids[v]; ok {
		return id
	}
	vm.nextID += 8
	vm.ids[v] = vm.nextID
	return vm.nextID
}

func objSend(vm *VM, self object.Value, args []object.Value, blk *object.Proc) (object.Value, object.Stop) {
	if len(args) == 0 {
		return vm.Raise(vm.rt.ArgumentErrorClass, "no method name given")
	}
	name, v, stop := vm.symbolName(args[0])
	if stop != object.NoStop {
		return v, stop
	}
	return vm.send(self, name, args[1:], blk, true)
}

func objPublicSend(vm *VM, self object.Value, args []object.Value, blk *object.Proc) (object.Value, object.Stop) {
	if len(args) == 0 {
		return vm.Raise(vm.rt.ArgumentErrorClass, "no method name given")
	}
	name, v, stop := vm.symbolName(args[0])
	if stop != object.NoStop {
		return v, stop
	}
	return vm.send(self, name, args[1:], blk, false)
}

// symbolName accepts a Symbol or String naming a method or variable.
func (vm *VM) symbolName(v object.Value) (string, object.Value, object.Stop) {
	switch v := v.(type) {
	case *object.Symbol:
		return v.Name, nil, object.NoStop
	case *object.String:
		return v.Value, nil, object.NoStop
	}
	res, stop := vm.Raise(vm.rt.TypeErrorClass, "%s is not a symbol nor a string", vm.inspect(v))
	return "", res, stop
}

// evalLexical is the scope def sees inside instance_eval: the receiver's
// singleton class when it can have one.
func (vm *VM) evalLexical(self object.Value, blk *object.Proc) *object.Lexical {
	if sc, err := vm.rt.SingletonClass(self); err == nil {
		return object.NewLexical(sc, blk.Lexical)
	}
	return blk.Lexical
}

func objInstanceEval(vm *VM, self object.Value, args []object.Value, blk *object.Proc) (object.Value, object.Stop) {
	if blk == nil {
		return vm.Raise(vm.rt.ArgumentErrorClass, "wrong number of arguments (given %d, expected 1..3)", len(args))
	}
	return vm.callBlock(blk, self, vm.evalLexical(self, blk), []object.Value{self}, nil)
}

func objInstanceExec(vm *VM, self object.Value, args []object.Value, blk *object.Proc) (object.Value, object.Stop) {
	if blk == nil {
		return vm.Raise(vm.rt.LocalJumpErrorClass, "no block given (yield)")
	}
	return vm.callBlock(blk, self, vm.evalLexical(self, blk), args, nil)
}

func kernelMethods() map[string]builtin {
	return map[string]builtin{
		"class": {0, func(vm *VM, self object.Value, _ []object.Value, _ *object.Proc) (object.Value, object.Stop) {
			return vm.rt.RealClassOf(self), object.NoStop
		}},
		"singleton_class": {0, func(vm *VM, self object.Value, _ []object.Value, _ *object.Proc) (object.Value, object.Stop) {
			sc, err := vm.rt.SingletonClass(self)
			if err != nil {
				return vm.Raise(vm.rt.TypeErrorClass, "%s", err)
			}
			return sc, object.NoStop
		}},
		"frozen?": {0, func(vm *VM, self object.Value, _ []object.Value, _ *object.Proc) (object.Value, object.Stop) {
			return object.NativeToBool(isFrozen(self)), object.NoStop
		}},
		"freeze": {0, func(vm *VM, self object.Value, _ []object.Value, _ *object.Proc) (object.Value, object.Stop) {
			freeze(self)
			return self, object.NoStop
		}},
		"nil?": {0, func(vm *VM, self object.Value, _ []object.Value, _ *object.Proc) (object.Value, object.Stop) {
			_, ok := self.(*object.Nil)
			return object.NativeToBool(ok), object.NoStop
		}},
		"is_a?":       {1, objIsA},
		"kind_of?":    {1, objIsA},
		"instance_of?": {1, func(vm *VM, self object.Value, args []object.Value, _ *object.Proc) (object.Value, object.Stop) {
			cls, ok := args[0].(*object.RubyClass)
			if !ok {
				return vm.Raise(vm.rt.TypeErrorClass, "class or module required")
			}
			return object.NativeToBool(vm.rt.RealClassOf(self) == cls), object.NoStop
		}},
		"respond_to?": {-1, func(vm *VM, self object.Value, args []object.Value, _ *object.Proc) (object.Value, object.Stop) {
			if v, stop := vm.arity(args, 1, 2); stop != object.NoStop {
				return v, stop
			}
			name, v, stop := vm.symbolName(args[0])
			if stop != object.NoStop {
				return v, stop
			}
			includePrivate := len(args) > 1 && object.Truthy(args[1])
			if vm.respondTo(self, name, includePrivate) {
				return object.TRUE, object.NoStop
			}
			if vm.userDefined(self, "respond_to_missing?") {
				return vm.send(self, "respond_to_missing?", []object.Value{vm.rt.Intern(name), object.NativeToBool(includePrivate)}, nil, true)
			}
			return object.FALSE, object.NoStop
		}},
		"send":        {-1, objSend},
		"public_send": {-1, objPublicSend},
		"method": {1, func(vm *VM, self object.Value, args []object.Value, _ *object.Proc) (object.Value, object.Stop) {
			name, v, stop := vm.symbolName(args[0])
			if stop != object.NoStop {
				return v, stop
			}
			m := object.FindMethod(vm.rt.ClassOf(self), name)
			if m == nil {
				return vm.Raise(vm.rt.NameErrorClass, "undefined method '%s' for %s", name, vm.describe(self))
			}
			argc := m.Arity()
			p := &object.Proc{Lambda: true, Self: self, Argc: argc, Fn: func(_ object.Interp, _ object.Value, args []object.Value, blk *object.Proc) (object.Value, object.Stop) {
				return vm.callMethod(self, m, args, blk)
			}}
			if argc < 0 {
				p.Argc, p.HasSplat = -argc-1, true
			}
			return p, object.NoStop
		}},
		"methods": {-1, func(vm *VM, self object.Value, _ []object.Value, _ *object.Proc) (object.Value, object.Stop) {
			return vm.methodList(vm.rt.ClassOf(self), true, object.Public, object.Protected), object.NoStop
		}},
		"public_methods": {-1, func(vm *VM, self object.Value, _ []object.Value, _ *object.Proc) (object.Value, object.Stop) {
			return vm.methodList(vm.rt.ClassOf(self), true, object.Public), object.NoStop
		}},
		"singleton_methods": {-1, func(vm *VM, self object.Value, _ []object.Value, _ *object.Proc) (object.Value, object.Stop) {
			cls := vm.rt.ClassOf(self)
			if !cls.IsSingleton {
				return object.NewArray(), object.NoStop
			}
			return vm.methodList(cls, false, object.Public, object.Protected), object.NoStop
		}},
		"instance_variable_get": {1, func(vm *VM, self object.Value, args []object.Value, _ *object.Proc) (object.Value, object.Stop) {
			name, v, stop := vm.ivarName(args[0])
			if stop != object.NoStop {
				return v, stop
			}
			return vm.ivarGet(self, name), object.NoStop
		}},
		"instance_variable_set": {2, func(vm *VM, self object.Value, args []object.Value, _ *object.Proc) (object.Value, object.Stop) {
			name, v, stop := vm.ivarName(args[0])
			if stop != object.NoStop {
				return v, stop
			}
			if v, stop := vm.ivarSet(self, name, args[1]); stop != object.NoStop {
				return v, stop
			}
			return args[1], object.NoStop
		}},
		"instance_variable_defined?": {1, func(vm *VM, self object.Value, args []object.Value, _ *object.Proc) (object.Value, object.Stop) {
			name, v, stop := vm.ivarName(args[0])
			if stop != object.NoStop {
				return v, stop
			}
			if iv := object.IvarsOf(self); iv != nil {
				_, ok := iv.Get(name)
				return object.NativeToBool(ok), object.NoStop
			}
			return object.FALSE, object.NoStop
		}},
		"instance_variables": {0, func(vm *VM, self object.Value, _ []object.Value, _ *object.Proc) (object.Value, object.Stop) {
			out := object.NewArray()
			if iv := object.IvarsOf(self); iv != nil {
				for _, name := range iv.Names() {
					out.Elements = append(out.Elements, vm.rt.Intern(name))
				}
			}
			return out, object.NoStop
		}},
		"object_id": {0, objID},
		"hash": {0, func(vm *VM, self object.Value, _ []object.Value, _ *object.Proc) (object.Value, object.Stop) {
			return &object.Integer{Value: hashOf(object.HashKeyOf(self), vm)}, object.NoStop
		}},
		"inspect": {0, func(vm *VM, self object.Value, _ []object.Value, _ *object.Proc) (object.Value, object.Stop) {
			if o, ok := self.(*object.Object); ok && vm.userDefined(self, "to_s") && len(o.Ivars.Names()) == 0 {
				return vm.toS(self)
			}
			return object.NewString(vm.builtinInspect(self)), object.NoStop
		}},
		"to_s": {0, func(vm *VM, self object.Value, _ []object.Value, _ *object.Proc) (object.Value, object.Stop) {
			if self == object.Value(vm.rt.Main) {
				return object.NewString("main"), object.NoStop
			}
			return object.NewString(vm.anyToS(self)), object.NoStop
		}},
		"dup": {0, func(vm *VM, self object.Value, _ []object.Value, _ *object.Proc) (object.Value, object.Stop) {
			return vm.copyObject(self, false)
		}},
		"clone": {-1, func(vm *VM, self object.Value, _ []object.Value, _ *object.Proc) (object.Value, object.Stop) {
			return vm.copyObject(self, true)
		}},
		"tap": {0, func(vm *VM, self object.Value, _ []object.Value, blk *object.Proc) (object.Value, object.Stop) {
			if blk == nil {
				return vm.Raise(vm.rt.LocalJumpErrorClass, "no block given (yield)")
			}
			if v, stop := vm.yield1(blk, self); stop != object.NoStop {
				return v, stop
			}
			return self, object.NoStop
		}},
		"then":       {0, objThen},
		"yield_self": {0, objThen},
		"itself": {0, func(vm *VM, self object.Value, _ []object.Value, _ *object.Proc) (object.Value, object.Stop) {
			return self, object.NoStop
		}},
		"extend": {-1, func(vm *VM, self object.Value, args []object.Value, _ *object.Proc) (object.Value, object.Stop) {
			sc, err := vm.rt.SingletonClass(self)
			if err != nil {
				return vm.Raise(vm.rt.TypeErrorClass, "%s", err)
			}
			for _, a := range args {
				mod, ok := a.(*object.RubyClass)
				if !ok || !mod.IsModule {
					return vm.Raise(vm.rt.TypeErrorClass, "wrong argument type %s (expected Module)", vm.rt.RealClassOf(a).Name)
				}
				sc.Include(mod)
				if vm.userDefined(mod, "extended") {
					if v, stop := vm.send(mod, "extended", []object.Value{self}, nil, true); stop != object.NoStop {
						return v, stop
					}
				}
			}
			return self, object.NoStop
		}},
		"define_singleton_method": {-1, func(vm *VM, self object.Value, args []object.Value, blk *object.Proc) (object.Value, object.Stop) {
			sc, err := vm.rt.SingletonClass(self)
			if err != nil {
				return vm.Raise(vm.rt.TypeErrorClass, "%s", err)
			}
			return vm.defineMethodFromBlock(sc, args, blk)
		}},
		"enum_for": {-1, objEnumFor},
		"to_enum":  {-1, objEnumFor},
		"display": {0, func(vm *VM, self object.Value, _ []object.Value, _ *object.Proc) (object.Value, object.Stop) {
			s, v, stop := vm.str(self)
			if stop != object.NoStop {
				return v, stop
			}
			fmt.Fprint(vm.rt.Out, s)
			return object.NIL, object.NoStop
		}},
		"===": {1, func(vm *VM, self object.Value, args []object.Value, _ *object.Proc) (object.Value, object.Stop) {
			if self == args[0] {
				return object.TRUE, object.NoStop
			}
			eq, v, stop := vm.equal(self, args[0])
			if stop != object.NoStop {
				return v, stop
			}
			return object.NativeToBool(eq), object.NoStop
		}},
		"eql?": {1, func(vm *VM, self object.Value, args []object.Value, _ *object.Proc) (object.Value, object.Stop) {
			return object.NativeToBool(eql(self, args[0])), object.NoStop
		}},
		"=~": {1, func(vm *VM, _ object.Value, _ []object.Value, _ *object.Proc) (object.Value, object.Stop) {
			return object.NIL, object.NoStop
		}},
		"!~": {1, func(vm *VM, self object.Value, args []object.Value, _ *object.Proc) (object.Value, object.Stop) {
			v, stop := vm.send(self, "=~", args, nil, false)
			if stop != object.NoStop {
				return v, stop
			}
			return object.NativeToBool(!object.Truthy(v)), object.NoStop
		}},
		"<=>": {1, func(vm *VM, self object.Value, args []object.Value, _ *object.Proc) (object.Value, object.Stop) {
			eq, v, stop := vm.equal(self, args[0])
			if stop != object.NoStop {
				return v, stop
			}
			if eq {
				return &object.Integer{Value: 0}, object.NoStop
			}
			return object.NIL, object.NoStop
		}},
	}
}

func objIsA(vm *VM, self object.Value, args []object.Value, _ *object.Proc) (object.Value, object.Stop) {
	cls, ok := args[0].(*object.RubyClass)
	if !ok {
		return vm.Raise(vm.rt.TypeErrorClass, "class or module required")
	}
	return object.NativeToBool(vm.rt.IsA(self, cls)), object.NoStop
}

func objThen(vm *VM, self object.Value, _ []object.Value, blk *object.Proc) (object.Value, object.Stop) {
	if blk == nil {
		return enumFor(self, "then", nil), object.NoStop
	}
	return vm.yield1(blk, self)
}

func objEnumFor(vm *VM, self object.Value, args []object.Value, _ *object.Proc) (object.Value, object.Stop) {
	method := "each"
	if len(args) > 0 {
		name, v, stop := vm.symbolName(args[0])
		if stop != object.NoStop {
			return v, stop
		}
		method, args = name, args[1:]
	}
	return enumFor(self, method, args), object.NoStop
}

func (vm *VM) ivarName(v object.Value) (string, object.Value, object.Stop) {
	name, res, stop := vm.symbolName(v)
	if stop != object.NoStop {
		return "", res, stop
	}
	if !strings.HasPrefix(name, "@") || strings.HasPrefix(name, "@@") || len(name) < 2 {
		res, stop := vm.Raise(vm.rt.NameErrorClass, "'%s' is not allowed as an instance variable name", name)
		return "", res, stop
	}
	return name, nil, object.NoStop
}

// hashOf folds a hash key into an Integer#hash value.
func hashOf(k object.HashKey, vm *VM) int64 {
	if k.Ref != nil {
		return vm.objectID(k.Ref)
	}
	h := int64(14695981039346656037 & math.MaxInt64)
	for _, c := range string(k.Type) + k.Str {
		h = (h ^ int64(c)) * 1099511628211
	}
	return h ^ k.Int
}

// builtinInspect is Kernel#inspect, ignoring user overrides on self.
func (vm *VM) builtinInspect(self object.Value) string {
	o, ok := self.(*object.Object)
	if !ok {
		return self.Inspect()
	}
	if self == object.Value(vm.rt.Main) {
		return "main"
	}
	names := o.Ivars.Names()
	if len(names) == 0 {
		return "#<" + o.Class().Name + ">"
	}
	parts := make([]string, len(names))
	for i, name := range names {
		val, _ := o.Ivars.Get(name)
		parts[i] = name + "=" + vm.inspect(val)
	}
	return "#<" + o.Class().Name + " " + strings.Join(parts, ", ") + ">"
}

func isFrozen(v object.Value) bool {
	switch v := v.(type) {
	case *object.String:
		return v.Frozen
	case *object.Array:
		return v.Frozen
	case *object.Hash:
		return v.Frozen
	case *object.Object:
		return v.Frozen
	case *object.Exception:
		return v.Frozen
	case *object.RubyClass:
		return false
	}
	return true
}

func freeze(v object.Value) {
	switch v := v.(type) {
	case *object.String:
		v.Frozen = true
	case *object.Array:
		v.Frozen = true
	case *object.Hash:
		v.Frozen = true
	case *object.Object:
		v.Frozen = true
	case *object.Exception:
		v.Frozen = true
	}
}

// copyObject implements dup and clone. Immediates copy to themselves.
func (vm *VM) copyObject(self object.Value, keepFrozen bool) (object.Value, object.Stop) {
	var out object.Value
	switch v := self.(type) {
	case *object.String:
		out = &object.String{Value: v.Value, Frozen: keepFrozen && v.Frozen}
	case *object.Array:
		out = &object.Array{Elements: append([]object.Value(nil), v.Elements...), Frozen: keepFrozen && v.Frozen}
	case *object.Hash:
		h := object.NewHash()
		v.Each(func(k, val object.Value) bool {
			h.Set(k, val)
			return true
		})
		h.Default, h.DefaultProc = v.Default, v.DefaultProc
		h.Frozen = keepFrozen && v.Frozen
		out = h
	case *object.Object:
		o := object.NewObject(v.Class())
		for _, name := range v.Ivars.Names() {
			val, _ := v.Ivars.Get(name)
			o.Ivars.Set(name, val)
		}
		o.Frozen = keepFrozen && v.Frozen
		out = o
	case *object.Exception:
		e := &object.Exception{Object: *object.NewObject(v.Class()), Message: v.Message, Backtrace: v.Backtrace}
		for _, name := range v.Ivars.Names() {
			val, _ := v.Ivars.Get(name)
			e.Ivars.Set(name, val)
		}
		out = e
	case *object.RubyClass:
		c := vm.rt.NewAnonymousClass(v.Superclass)
		c.IsModule = v.IsModule
		for name, m := range v.Methods {
			copied := *m
			c.Methods[name] = &copied
			copied.Owner = c
		}
		for name, val := range v.Constants {
			c.Constants[name] = val
		}
		c.Includes = append(c.Includes, v.Includes...)
		out = c
	default:
		return self, object.NoStop
	}
	if vm.userDefined(out, "initialize_copy") {
		if v, stop := vm.send(out, "initialize_copy", []object.Value{self}, nil, true); stop != object.NoStop {
			return v, stop
		}
	}
	return out, object.NoStop
}

// kernelFunctions are the private Kernel methods called without a receiver.
func kernelFunctions() map[string]builtin {
	return map[string]builtin{
		"puts": {-1, func(vm *VM, _ object.Value, args []object.Value, _ *object.Proc) (object.Value, object.Stop) {
			var sb strings.Builder
			if len(args) == 0 {
				sb.WriteString("\n")
			}
			for _, a := range args {
				if v, stop := vm.putsLines(&sb, a, 0); stop != object.NoStop {
					return v, stop
				}
			}
			fmt.Fprint(vm.rt.Out, sb.String())
			return object.NIL, object.NoStop
		}},
		"print": {-1, func(vm *VM, _ object.Value, args []object.Value, _ *object.Proc) (object.Value, object.Stop) {
			var sb strings.Builder
			for _, a := range args {
				s, v, stop := vm.str(a)
				if stop != object.NoStop {
					return v, stop
				}
				sb.WriteString(s)
			}
			fmt.Fprint(vm.rt.Out, sb.String())
			return object.NIL, object.NoStop
		}},
		"p":  {-1, kernelP},
		"pp": {-1, kernelP},
		"printf": {-1, func(vm *VM, _ object.Value, args []object.Value, _ *object.Proc) (object.Value, object.Stop) {
			if len(args) == 0 {
				return object.NIL, object.NoStop
			}
			s, v, stop := vm.formatArgs(args)
			if stop != object.NoStop {
				return v, stop
			}
			fmt.Fprint(vm.rt.Out, s)
			return object.NIL, object.NoStop
		}},
		"format":  {-1, kernelFormat},
		"sprintf": {-1, kernelFormat},
		"raise":   {-1, kernelRaise},
		"fail":    {-1, kernelRaise},
		"loop": {0, func(vm *VM, self object.Value, _ []object.Value, blk *object.Proc) (object.Value, object.Stop) {
			if blk == nil {
				return enumFor(self, "loop", nil), object.NoStop
			}
			for {
				v, stop := vm.CallBlock(blk, nil)
				if stop == object.RaiseStop {
					if exc, ok := v.(*object.Exception); ok && vm.rt.IsA(exc, vm.rt.StopIterationClass) && vm.halt == nil {
						if res, ok := exc.Ivars.Get("@result"); ok {
							return res, object.NoStop
						}
						return object.NIL, object.NoStop
					}
				}
				if stop != object.NoStop {
					return v, stop
				}
			}
		}},
		"lambda": {0, func(vm *VM, _ object.Value, _ []object.Value, blk *object.Proc) (object.Value, object.Stop) {
			if blk == nil {
				return vm.Raise(vm.rt.ArgumentErrorClass, "tried to create Proc object without a block")
			}
			if blk.Site != nil && !blk.Lambda {
				l := *blk
				l.Lambda = true
				return &l, object.NoStop
			}
			return blk, object.NoStop
		}},
		"proc": {0, func(vm *VM, _ object.Value, _ []object.Value, blk *object.Proc) (object.Value, object.Stop) {
			if blk == nil {
				return vm.Raise(vm.rt.ArgumentErrorClass, "tried to create Proc object without a block")
			}
			return blk, object.NoStop
		}},
		"block_given?": {0, func(vm *VM, _ object.Value, _ []object.Value, _ *object.Proc) (object.Value, object.Stop) {
			return object.NativeToBool(vm.frame != nil && vm.frame.block != nil), object.NoStop
		}},
		"catch": {-1, func(vm *VM, _ object.Value, args []object.Value, blk *object.Proc) (object.Value, object.Stop) {
			if v, stop := vm.arity(args, 0, 1); stop != object.NoStop {
				return v, stop
			}
			if blk == nil {
				return vm.Raise(vm.rt.LocalJumpErrorClass, "no block given (yield)")
			}
			var tag object.Value
			if len(args) == 1 {
				tag = args[0]
			} else {
				tag = object.NewObject(vm.rt.ObjectClass)
			}
			marker := &object.Frame{Name: "catch"}
			vm.catches = append(vm.catches, catchTag{tag: tag, marker: marker})
			v, stop := vm.yield1(blk, tag)
			vm.catches = vm.catches[:len(vm.catches)-1]
			marker.Done = true
			return caughtJump(v, stop, marker, object.BreakStop)
		}},
		"throw": {-1, func(vm *VM, _ object.Value, args []object.Value, _ *object.Proc) (object.Value, object.Stop) {
			if v, stop := vm.arity(args, 1, 2); stop != object.NoStop {
				return v, stop
			}
			value := object.Value(object.NIL)
			if len(args) == 2 {
				value = args[1]
			}
			for i := len(vm.catches) - 1; i >= 0; i-- {
				c := vm.catches[i]
				if c.tag == args[0] {
					return &object.Jump{Target: c.marker, Value: value}, object.BreakStop
				}
				if eq, ok := builtinEqual(c.tag, args[0]); ok && eq {
					return &object.Jump{Target: c.marker, Value: value}, object.BreakStop
				}
			}
			exc := object.NewException(vm.rt.UncaughtThrowErrorClass, "uncaught throw "+vm.inspect(args[0]))
			exc.Ivars.Set("@tag", args[0])
			exc.Ivars.Set("@value", value)
			return vm.raiseException(exc)
		}},
		"__method__": {0, func(vm *VM, _ object.Value, _ []object.Value, _ *object.Proc) (object.Value, object.Stop) {
			if vm.frame == nil || vm.frame.method == nil {
				return object.NIL, object.NoStop
			}
			return vm.rt.Intern(vm.frame.method.Name), object.NoStop
		}},
		"caller": {-1, func(vm *VM, _ object.Value, _ []object.Value, _ *object.Proc) (object.Value, object.Stop) {
			out := object.NewArray()
			bt := vm.backtrace()
			if len(bt) > 1 {
				for _, line := range bt[1:] {
					out.Elements = append(out.Elements, object.NewString(line))
				}
			}
			return out, object.NoStop
		}},
		"binding": {0, func(vm *VM, _ object.Value, _ []object.Value, _ *object.Proc) (object.Value, object.Stop) {
			return vm.Raise(vm.rt.NotImplementedErrorClass, "binding is not supported")
		}},
		"Integer": {-1, kernelInteger},
		"Float": {1, func(vm *VM, _ object.Value, args []object.Value, _ *object.Proc) (object.Value, object.Stop) {
			return vm.toFloat(args[0], true)
		}},
		"String": {1, func(vm *VM, _ object.Value, args []object.Value, _ *object.Proc) (object.Value, object.Stop) {
			return vm.toS(args[0])
		}},
		"Array": {1, func(vm *VM, _ object.Value, args []object.Value, _ *object.Proc) (object.Value, object.Stop) {
			switch a := args[0].(type) {
			case *object.Array:
				return a, object.NoStop
			case *object.Nil:
				return object.NewArray(), object.NoStop
			}
			if vm.respondTo(args[0], "to_a", true) {
				return vm.send(args[0], "to_a", nil, nil, true)
			}
			return object.NewArray(args[0]), object.NoStop
		}},
		"Hash": {1, func(vm *VM, _ object.Value, args []object.Value, _ *object.Proc) (object.Value, object.Stop) {
			switch a := args[0].(type) {
			case *object.Hash:
				return a, object.NoStop
			case *object.Nil:
				return object.NewHash(), object.NoStop
			case *object.Array:
				if len(a.Elements) == 0 {
					return object.NewHash(), object.NoStop
				}
			}
			return vm.send(args[0], "to_h", nil, nil, true)
		}},
		"require": {1, func(vm *VM, _ object.Value, _ []object.Value, _ *object.Proc) (object.Value, object.Stop) {
			return object.FALSE, object.NoStop
		}},
		"require_relative": {1, func(vm *VM, _ object.Value, _ []object.Value, _ *object.Proc) (object.Value, object.Stop) {
			return object.FALSE, object.NoStop
		}},
	}
}

// putsLines writes a, flattening arrays one element per line.
func (vm *VM) putsLines(sb *strings.Builder, a object.Value, depth int) (object.Value, object.Stop) {
	if arr, ok := a.(*object.Array); ok {
		if depth > 0 && len(arr.Elements) > 0 && arr.Elements[0] == a {
			sb.WriteString("[...]\n")
			return nil, object.NoStop
		}
		for _, e := range arr.Elements {
			if e == a {
				sb.WriteString("[...]\n")
				continue
			}
			if v, stop := vm.putsLines(sb, e, depth+1); stop != object.NoStop {
				return v, stop
			}
		}
		return nil, object.NoStop
	}
	if _, ok := a.(*object.Nil); ok && depth > 0 {
		sb.WriteString("\n")
		return nil, object.NoStop
	}
	s, v, stop := vm.str(a)
	if stop != object.NoStop {
		return v, stop
	}
	sb.WriteString(s)
	if !strings.HasSuffix(s, "\n") {
		sb.WriteString("\n")
	}
	return nil, object.NoStop
}

func kernelP(vm *VM, _ object.Value, args []object.Value, _ *object.Proc) (object.Value, object.Stop) {
	var sb strings.Builder
	for _, a := range args {
		sb.WriteString(vm.inspect(a))
		sb.WriteString("\n")
	}
	fmt.Fprint(vm.rt.Out, sb.String())
	switch len(args) {
	case 0:
		return object.NIL, object.NoStop
	case 1:
		return args[0], object.NoStop
	}
	return object.NewArray(args...), object.NoStop
}

func (vm *VM) formatArgs(args []object.Value) (string, object.Value, object.Stop) {
	format, v, stop := vm.strArg(args[0])
	if stop != object.NoStop {
		return "", v, stop
	}
	return vm.sprintf(format, args[1:])
}

func kernelFormat(vm *VM, _ object.Value, args []object.Value, _ *object.Proc) (object.Value, object.Stop) {
	if v, stop := vm.arity(args, 1, -1); stop != object.NoStop {
		return v, stop
	}
	s, v, stop := vm.formatArgs(args)
	if stop != object.NoStop {
		return v, stop
	}
	return object.NewString(s), object.NoStop
}

// kernelRaise accepts a message, an exception class with an optional
// message, or an exception instance. With no arguments it re-raises $!.
func kernelRaise(vm *VM, _ object.Value, args []object.Value, _ *object.Proc) (object.Value, object.Stop) {
	if v, stop := vm.arity(args, 0, 2); stop != object.NoStop {
		return v, stop
	}
	if len(args) == 0 {
		if exc, ok := vm.rt.Globals["$!"].(*object.Exception); ok {
			return exc, object.RaiseStop
		}
		return vm.Raise(vm.rt.RuntimeErrorClass, "unhandled exception")
	}
	if s, ok := args[0].(*object.String); ok {
		if len(args) > 1 {
			return vm.Raise(vm.rt.TypeErrorClass, "exception class/object expected")
		}
		return vm.Raise(vm.rt.RuntimeErrorClass, "%s", s.Value)
	}
	v, stop := vm.send(args[0], "exception", args[1:], nil, false)
	if stop != object.NoStop {
		if stop == object.RaiseStop {
			if exc, ok := v.(*object.Exception); ok && exc.Class() == vm.rt.NoMethodErrorClass {
				return vm.Raise(vm.rt.TypeErrorClass, "exception class/object expected")
			}
		}
		return v, stop
	}
	exc, ok := v.(*object.Exception)
	if !ok {
		return vm.Raise(vm.rt.TypeErrorClass, "exception object expected")
	}
	return vm.raiseException(exc)
}

func kernelInteger(vm *VM, _ object.Value, args []object.Value, _ *object.Proc) (object.Value, object.Stop) {
	if v, stop := vm.arity(args, 1, 2); stop != object.NoStop {
		return v, stop
	}
	switch a := args[0].(type) {
	case *object.Integer:
		return a, object.NoStop
	case *object.Float:
		if math.IsNaN(a.Value) || math.IsInf(a.Value, 0) {
			return vm.Raise(vm.rt.FloatDomainErrorClass, "%s", object.FormatFloat(a.Value))
		}
		return &object.Integer{Value: int64(a.Value)}, object.NoStop
	case *object.String:
		base := 10
		if len(args) == 2 {
			b, v, stop := vm.intArg(args[1])
			if stop != object.NoStop {
				return v, stop
			}
			base = int(b)
		}
		n, ok := parseIntStrict(a.Value, base)
		if !ok {
			return vm.Raise(vm.rt.ArgumentErrorClass, "invalid value for Integer(): %s", a.Inspect())
		}
		return &object.Integer{Value: n}, object.NoStop
	case *object.Nil:
		return vm.Raise(vm.rt.TypeErrorClass, "can't convert nil into Integer")
	}
	return vm.send(args[0], "to_i", nil, nil, true)
}

// parseIntStrict parses an Integer() literal: optional sign, radix prefix
// and underscores between digits.
func parseIntStrict(s string, base int) (int64, bool) {
	s = strings.TrimSpace(s)
	neg := false
	if strings.HasPrefix(s, "-") || strings.HasPrefix(s, "+") {
		neg = s[0] == '-'
		s = s[1:]
	}
	lower := strings.ToLower(s)
	switch {
	case (base == 16 || base == 10) && strings.HasPrefix(lower, "0x"):
		base, s = 16, s[2:]
	case (base == 2 || base == 10) && strings.HasPrefix(lower, "0b"):
		base, s = 2, s[2:]
	case (base == 8 || base == 10) && strings.HasPrefix(lower, "0o"):
		base, s = 8, s[2:]
	case base == 10 && len(s) > 1 && s[0] == '0':
		base, s = 8, s[1:]
	}
	if s == "" || strings.HasPrefix(s, "_") || strings.HasSuffix(s, "_") || strings.Contains(s, "__") {
		return 0, false
	}
	n, err := strconv.ParseInt(strings.ReplaceAll(s, "_", ""), base, 64)
	if err != nil {
		return 0, false
	}
	if neg {
		n = -n
	}
	return n, true
}

// toFloat implements Float() and to_f conversions. strict rejects strings
// that are not entirely a number.
func (vm *VM) toFloat(v object.Value, strict bool) (object.Value, object.Stop) {
	switch a := v.(type) {
	case *object.Float:
		return a, object.NoStop
	case *object.Integer:
		return &object.Float{Value: float64(a.Value)}, object.NoStop
	case *object.String:
		s := strings.ReplaceAll(strings.TrimSpace(a.Value), "_", "")
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			if strict {
				return vm.Raise(vm.rt.ArgumentErrorClass, "invalid value for Float(): %s", a.Inspect())
			}
			return &object.Float{Value: leadingFloat(a.Value)}, object.NoStop
		}
		return &object.Float{Value: f}, object.NoStop
	case *object.Nil:
		return vm.Raise(vm.rt.TypeErrorClass, "can't convert nil into Float")
	}
	return vm.send(v, "to_f", nil, nil, true)
}
