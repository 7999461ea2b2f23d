package vm

import (
	"strconv"

	"github.com/alexisbouchez/rubyvm/object"
)

// builtinFunc is a core method implemented in Go.
type builtinFunc func(vm *VM, self object.Value, args []object.Value, blk *object.Proc) (object.Value, object.Stop)

// builtin is a method table entry. argc is the fixed argument count, or -1
// when the function checks its own arguments.
type builtin struct {
	argc int
	fn   builtinFunc
}

func (vm *VM) install(cls *object.RubyClass, methods map[string]builtin) {
	for name, b := range methods {
		fn := b.fn
		cls.DefineBuiltin(name, b.argc, func(_ object.Interp, self object.Value, args []object.Value, blk *object.Proc) (object.Value, object.Stop) {
			return fn(vm, self, args, blk)
		})
	}
}

// installPrivate installs methods that may only be called without a
// receiver, such as Kernel#puts.
func (vm *VM) installPrivate(cls *object.RubyClass, methods map[string]builtin) {
	vm.install(cls, methods)
	for name := range methods {
		cls.Methods[name].Visibility = object.Private
	}
}

// installSingleton installs class methods such as Integer.sqrt.
func (vm *VM) installSingleton(cls *object.RubyClass, methods map[string]builtin) {
	meta, _ := vm.rt.SingletonClass(cls)
	vm.install(meta, methods)
}

// mainMethods forwards the top-level include and visibility calls to Object.
func mainMethods() map[string]builtin {
	forward := func(name string) builtin {
		return builtin{-1, func(vm *VM, _ object.Value, args []object.Value, blk *object.Proc) (object.Value, object.Stop) {
			return vm.send(vm.rt.ObjectClass, name, args, blk, true)
		}}
	}
	return map[string]builtin{
		"include":       forward("include"),
		"public":        forward("public"),
		"private":       forward("private"),
		"define_method": forward("define_method"),
	}
}

func (vm *VM) defineBuiltins() {
	rt := vm.rt
	vm.install(rt.BasicObjectClass, basicObjectMethods())
	vm.install(rt.KernelModule, kernelMethods())
	vm.installPrivate(rt.KernelModule, kernelFunctions())
	vm.install(rt.ModuleClass, moduleMethods())
	vm.installPrivate(rt.ModuleClass, modulePrivateMethods())
	vm.install(rt.ClassClass, classMethods())
	vm.install(rt.ComparableModule, comparableMethods())
	vm.install(rt.EnumerableModule, enumerableMethods())

	vm.install(rt.NilClass, nilMethods())
	vm.install(rt.TrueClass, trueMethods())
	vm.install(rt.FalseClass, falseMethods())
	vm.install(rt.NumericClass, numericMethods())
	vm.install(rt.IntegerClass, integerMethods())
	vm.installSingleton(rt.IntegerClass, integerClassMethods())
	vm.install(rt.FloatClass, floatMethods())
	vm.install(rt.StringClass, stringMethods())
	vm.installSingleton(rt.StringClass, stringClassMethods())
	vm.install(rt.SymbolClass, symbolMethods())
	vm.install(rt.ArrayClass, arrayMethods())
	vm.installSingleton(rt.ArrayClass, arrayClassMethods())
	vm.install(rt.HashClass, hashMethods())
	vm.installSingleton(rt.HashClass, hashClassMethods())
	vm.install(rt.RangeClass, rangeMethods())
	vm.installSingleton(rt.RangeClass, rangeClassMethods())
	vm.install(rt.ProcClass, procMethods())
	vm.installSingleton(rt.ProcClass, procClassMethods())
	vm.install(rt.RegexpClass, regexpMethods())
	vm.installSingleton(rt.RegexpClass, regexpClassMethods())
	vm.install(rt.MatchDataClass, matchDataMethods())
	vm.install(rt.EnumeratorClass, enumeratorMethods())
	vm.install(rt.ExceptionClass, exceptionMethods())
	vm.installSingleton(rt.ExceptionClass, exceptionClassMethods())
	vm.install(rt.StopIterationClass, stopIterationMethods())
	vm.install(rt.UncaughtThrowErrorClass, uncaughtThrowMethods())
	vm.install(rt.KeyErrorClass, keyErrorMethods())

	if meta, err := rt.SingletonClass(rt.Main); err == nil {
		vm.installPrivate(meta, mainMethods())
	}

	vm.undefNew()
	vm.defineMath()
	vm.defineYAML()

	rt.Globals["$,"] = object.NIL
	rt.Globals["$/"] = object.NewString("\n")
	rt.ObjectClass.Constants["RUBY_VERSION"] = object.NewString("3.4.0")
	rt.ObjectClass.Constants["ARGV"] = object.NewArray()
}

// arity checks a builtin with optional arguments.
func (vm *VM) arity(args []object.Value, min, max int) (object.Value, object.Stop) {
	if len(args) >= min && (max < 0 || len(args) <= max) {
		return nil, object.NoStop
	}
	switch {
	case max < 0:
		return vm.argumentError(len(args), itoa(min)+"+")
	case min == max:
		return vm.argumentError(len(args), itoa(min))
	}
	return vm.argumentError(len(args), itoa(min)+".."+itoa(max))
}

// frozenError reports a mutation of a frozen value.
func (vm *VM) frozenError(v object.Value) (object.Value, object.Stop) {
	return vm.Raise(vm.rt.FrozenErrorClass, "can't modify frozen %s: %s", vm.rt.RealClassOf(v).Name, vm.inspect(v))
}

// yieldValue packs block arguments into the single value an element-wise
// method sees.
func yieldValue(args []object.Value) object.Value {
	switch len(args) {
	case 0:
		return object.NIL
	case 1:
		return args[0]
	}
	return object.NewArray(args...)
}

// iterate feeds every element of v to fn. Arrays, hashes, integer ranges
// and enumerators are walked directly; anything else goes through its each
// method. fn returns false to stop early.
func (vm *VM) iterate(v object.Value, fn func(args []object.Value) (bool, object.Value, object.Stop)) (object.Value, object.Stop) {
	each := fn
	fn = func(args []object.Value) (bool, object.Value, object.Stop) {
		if res, stop := vm.tick(); stop != object.NoStop {
			return false, res, stop
		}
		return each(args)
	}
	switch v := v.(type) {
	case *object.Array:
		if vm.userDefined(v, "each") {
			break
		}
		for i := 0; i < len(v.Elements); i++ {
			cont, res, stop := fn([]object.Value{v.Elements[i]})
			if stop != object.NoStop {
				return res, stop
			}
			if !cont {
				break
			}
		}
		return v, object.NoStop
	case *object.Hash:
		if vm.userDefined(v, "each") {
			break
		}
		var res object.Value
		stop := object.NoStop
		v.Each(func(k, val object.Value) bool {
			var cont bool
			cont, res, stop = fn([]object.Value{object.NewArray(k, val)})
			return cont && stop == object.NoStop
		})
		if stop != object.NoStop {
			return res, stop
		}
		return v, object.NoStop
	case *object.Range:
		if _, ok := v.Start.(*object.Integer); ok {
			return vm.rangeEach(v, fn)
		}
	}

	marker := &object.Frame{Name: "each"}
	blk := &object.Proc{Fn: func(_ object.Interp, _ object.Value, args []object.Value, _ *object.Proc) (object.Value, object.Stop) {
		cont, res, stop := fn(args)
		if stop != object.NoStop {
			return res, stop
		}
		if !cont {
			return &object.Jump{Target: marker, Value: object.NIL}, object.BreakStop
		}
		return object.NIL, object.NoStop
	}}
	var res object.Value
	var stop object.Stop
	if e, ok := v.(*object.Enumerator); ok {
		res, stop = vm.send(e.Receiver, e.Method, e.Args, blk, true)
	} else {
		res, stop = vm.send(v, "each", nil, blk, false)
	}
	marker.Done = true
	return caughtJump(res, stop, marker, object.BreakStop)
}

// collect returns every element v yields.
func (vm *VM) collect(v object.Value) ([]object.Value, object.Value, object.Stop) {
	if arr, ok := v.(*object.Array); ok && !vm.userDefined(v, "each") {
		return arr.Elements, nil, object.NoStop
	}
	var out []object.Value
	res, stop := vm.iterate(v, func(args []object.Value) (bool, object.Value, object.Stop) {
		out = append(out, yieldValue(args))
		return true, nil, object.NoStop
	})
	if stop != object.NoStop {
		return nil, res, stop
	}
	return out, nil, object.NoStop
}

// yield1 calls blk with one element.
func (vm *VM) yield1(blk *object.Proc, v object.Value) (object.Value, object.Stop) {
	return vm.CallBlock(blk, []object.Value{v})
}

// enumFor returns an enumerator for a blockless call of method on self.
func enumFor(self object.Value, method string, args []object.Value) *object.Enumerator {
	return &object.Enumerator{Receiver: self, Method: method, Args: args}
}

func itoa(n int) string { return strconv.Itoa(n) }
