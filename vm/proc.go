package vm

import (
	"github.com/alexisbouchez/rubyvm/object"
)

func procOf(v object.Value) *object.Proc { return v.(*object.Proc) }

func procCall(vm *VM, self object.Value, args []object.Value, blk *object.Proc) (object.Value, object.Stop) {
	p := procOf(self)
	return vm.callBlock(p, p.Self, nil, args, blk)
}

// callable invokes a composition operand: a Proc directly, anything else
// through its call method.
func (vm *VM) callable(f object.Value, args []object.Value) (object.Value, object.Stop) {
	if p, ok := f.(*object.Proc); ok {
		return vm.callBlock(p, p.Self, nil, args, nil)
	}
	return vm.send(f, "call", args, nil, false)
}

// curry collects arguments until arity of them have been given.
func (vm *VM) curry(p *object.Proc, arity int, got []object.Value) *object.Proc {
	return &object.Proc{
		Lambda: p.Lambda,
		Argc:   1,
		Fn: func(_ object.Interp, _ object.Value, args []object.Value, blk *object.Proc) (object.Value, object.Stop) {
			all := append(append([]object.Value(nil), got...), args...)
			if len(all) >= arity {
				return vm.callBlock(p, p.Self, nil, all, blk)
			}
			return vm.curry(p, arity, all), object.NoStop
		},
	}
}

func procClassMethods() map[string]builtin {
	return map[string]builtin{
		"new": {-1, func(vm *VM, _ object.Value, _ []object.Value, blk *object.Proc) (object.Value, object.Stop) {
			if blk == nil {
				return vm.Raise(vm.rt.ArgumentErrorClass, "tried to create Proc object without a block")
			}
			return blk, object.NoStop
		}},
	}
}

func procMethods() map[string]builtin {
	return map[string]builtin{
		"call":  {-1, procCall},
		"()":    {-1, procCall},
		"yield": {-1, procCall},
		"[]":    {-1, procCall},
		"===":   {-1, procCall},
		"to_proc": {0, func(vm *VM, self object.Value, _ []object.Value, _ *object.Proc) (object.Value, object.Stop) {
			return self, object.NoStop
		}},
		"arity": {0, func(vm *VM, self object.Value, _ []object.Value, _ *object.Proc) (object.Value, object.Stop) {
			return &object.Integer{Value: int64(procOf(self).Arity())}, object.NoStop
		}},
		"lambda?": {0, func(vm *VM, self object.Value, _ []object.Value, _ *object.Proc) (object.Value, object.Stop) {
			return object.NativeToBool(procOf(self).Lambda), object.NoStop
		}},
		"parameters": {0, func(vm *VM, self object.Value, _ []object.Value, _ *object.Proc) (object.Value, object.Stop) {
			p := procOf(self)
			kind := "opt"
			if p.Lambda {
				kind = "req"
			}
			var out []object.Value
			required := p.Argc - p.DefaultArgc
			for i := 0; i < p.Argc; i++ {
				k := kind
				if i >= required {
					k = "opt"
				}
				out = append(out, object.NewArray(vm.rt.Intern(k)))
			}
			if p.HasSplat {
				out = append(out, object.NewArray(vm.rt.Intern("rest")))
			}
			return object.NewArray(out...), object.NoStop
		}},
		"curry": {-1, func(vm *VM, self object.Value, args []object.Value, _ *object.Proc) (object.Value, object.Stop) {
			if v, stop := vm.arity(args, 0, 1); stop != object.NoStop {
				return v, stop
			}
			p := procOf(self)
			arity := p.Arity()
			if arity < 0 {
				arity = -arity - 1
			}
			if len(args) == 1 {
				n, v, stop := vm.intArg(args[0])
				if stop != object.NoStop {
					return v, stop
				}
				if p.Lambda && p.Arity() >= 0 && int(n) != p.Arity() {
					return vm.argumentError(int(n), itoa(p.Arity()))
				}
				arity = int(n)
			}
			return vm.curry(p, arity, nil), object.NoStop
		}},
		">>": {1, func(vm *VM, self object.Value, args []object.Value, _ *object.Proc) (object.Value, object.Stop) {
			first, second := self, args[0]
			return vm.compose(procOf(self), first, second)
		}},
		"<<": {1, func(vm *VM, self object.Value, args []object.Value, _ *object.Proc) (object.Value, object.Stop) {
			first, second := args[0], self
			return vm.compose(procOf(self), first, second)
		}},
		"inspect": {0, func(vm *VM, self object.Value, _ []object.Value, _ *object.Proc) (object.Value, object.Stop) {
			return newStr(self.Inspect())
		}},
		"to_s": {0, func(vm *VM, self object.Value, _ []object.Value, _ *object.Proc) (object.Value, object.Stop) {
			return newStr(self.Inspect())
		}},
	}
}

// compose returns a proc that feeds first's result to second.
func (vm *VM) compose(self *object.Proc, first, second object.Value) (object.Value, object.Stop) {
	for _, f := range []object.Value{first, second} {
		if _, ok := f.(*object.Proc); !ok && !vm.respondTo(f, "call", false) {
			return vm.Raise(vm.rt.TypeErrorClass, "callable object is expected")
		}
	}
	return &object.Proc{
		Lambda:   self.Lambda,
		Argc:     self.Argc,
		HasSplat: true,
		Fn: func(_ object.Interp, _ object.Value, args []object.Value, _ *object.Proc) (object.Value, object.Stop) {
			mid, stop := vm.callable(first, args)
			if stop != object.NoStop {
				return mid, stop
			}
			return vm.callable(second, []object.Value{mid})
		},
	}, object.NoStop
}
