package vm

import (
	"github.com/alexisbouchez/rubyvm/object"
)

func enumOf(v object.Value) *object.Enumerator { return v.(*object.Enumerator) }

// replay reruns the enumerator's underlying call with blk.
func (vm *VM) replay(e *object.Enumerator, blk *object.Proc) (object.Value, object.Stop) {
	return vm.send(e.Receiver, e.Method, e.Args, blk, true)
}

// buffer makes element e.Pos available to next and peek. The source is
// replayed from its start and stopped early, so infinite sources work; each
// replay asks for at least twice what is already held.
func (vm *VM) buffer(e *object.Enumerator) (object.Value, object.Stop) {
	if e.Exhausted || e.Pos < len(e.Buffer) {
		return nil, object.NoStop
	}
	want := max(e.Pos+1, 2*len(e.Buffer))
	vals := make([]object.Value, 0, want)
	v, stop := vm.iterate(e, func(args []object.Value) (bool, object.Value, object.Stop) {
		vals = append(vals, yieldValue(args))
		return len(vals) < want, nil, object.NoStop
	})
	if stop != object.NoStop {
		return v, stop
	}
	e.Buffer, e.Exhausted = vals, len(vals) < want
	return nil, object.NoStop
}

func (vm *VM) stopIteration(e *object.Enumerator) (object.Value, object.Stop) {
	exc := object.NewException(vm.rt.StopIterationClass, "iteration reached an end")
	exc.Ivars.Set("@result", e.Receiver)
	return vm.raiseException(exc)
}

// withIndex replays the call, passing each element and its index to blk.
// The block's results flow back to the underlying method, so
// map.with_index maps.
func (vm *VM) withIndex(e *object.Enumerator, offset int64, blk *object.Proc) (object.Value, object.Stop) {
	i := offset
	return vm.replay(e, &object.Proc{Argc: 1, HasSplat: true, Fn: func(_ object.Interp, _ object.Value, args []object.Value, _ *object.Proc) (object.Value, object.Stop) {
		idx := &object.Integer{Value: i}
		i++
		return vm.CallBlock(blk, []object.Value{yieldValue(args), idx})
	}})
}

// enumSize reports the element count when it is known without iterating.
func (vm *VM) enumSize(e *object.Enumerator) object.Value {
	switch r := e.Receiver.(type) {
	case *object.Array:
		if e.Method == "combination" || e.Method == "permutation" || e.Method == "each_slice" || e.Method == "each_cons" {
			return object.NIL
		}
		return &object.Integer{Value: int64(len(r.Elements))}
	case *object.Hash:
		return &object.Integer{Value: int64(r.Len())}
	case *object.Range:
		if lo, hi, endless, ok := intRange(r); ok && !endless && e.Method == "each" {
			if r.Exclusive {
				hi--
			}
			return &object.Integer{Value: max(0, hi-lo+1)}
		}
	case *object.Integer:
		if e.Method == "times" {
			return &object.Integer{Value: max(0, r.Value)}
		}
	case *object.Enumerator:
		return vm.enumSize(r)
	}
	return object.NIL
}

func enumeratorMethods() map[string]builtin {
	return map[string]builtin{
		"each": {-1, func(vm *VM, self object.Value, args []object.Value, blk *object.Proc) (object.Value, object.Stop) {
			if blk == nil && len(args) == 0 {
				return self, object.NoStop
			}
			e := enumOf(self)
			if len(args) > 0 {
				e = &object.Enumerator{Receiver: e.Receiver, Method: e.Method, Args: append(append([]object.Value(nil), e.Args...), args...)}
				if blk == nil {
					return e, object.NoStop
				}
			}
			return vm.replay(e, blk)
		}},
		"next": {0, func(vm *VM, self object.Value, _ []object.Value, _ *object.Proc) (object.Value, object.Stop) {
			e := enumOf(self)
			if v, stop := vm.buffer(e); stop != object.NoStop {
				return v, stop
			}
			if e.Pos >= len(e.Buffer) {
				return vm.stopIteration(e)
			}
			e.Pos++
			return e.Buffer[e.Pos-1], object.NoStop
		}},
		"peek": {0, func(vm *VM, self object.Value, _ []object.Value, _ *object.Proc) (object.Value, object.Stop) {
			e := enumOf(self)
			if v, stop := vm.buffer(e); stop != object.NoStop {
				return v, stop
			}
			if e.Pos >= len(e.Buffer) {
				return vm.stopIteration(e)
			}
			return e.Buffer[e.Pos], object.NoStop
		}},
		"rewind": {0, func(vm *VM, self object.Value, _ []object.Value, _ *object.Proc) (object.Value, object.Stop) {
			e := enumOf(self)
			e.Buffer, e.Exhausted, e.Pos = nil, false, 0
			return self, object.NoStop
		}},
		"size": {0, func(vm *VM, self object.Value, _ []object.Value, _ *object.Proc) (object.Value, object.Stop) {
			return vm.enumSize(enumOf(self)), object.NoStop
		}},
		"with_index": {-1, func(vm *VM, self object.Value, args []object.Value, blk *object.Proc) (object.Value, object.Stop) {
			if v, stop := vm.arity(args, 0, 1); stop != object.NoStop {
				return v, stop
			}
			if blk == nil {
				return enumFor(self, "with_index", args), object.NoStop
			}
			var offset int64
			if len(args) == 1 && !isNil(args[0]) {
				n, v, stop := vm.intArg(args[0])
				if stop != object.NoStop {
					return v, stop
				}
				offset = n
			}
			return vm.withIndex(enumOf(self), offset, blk)
		}},
		"each_with_index": {0, func(vm *VM, self object.Value, _ []object.Value, blk *object.Proc) (object.Value, object.Stop) {
			if blk == nil {
				return enumFor(self, "each_with_index", nil), object.NoStop
			}
			return vm.withIndex(enumOf(self), 0, blk)
		}},
		"with_object": {1, func(vm *VM, self object.Value, args []object.Value, blk *object.Proc) (object.Value, object.Stop) {
			if blk == nil {
				return enumFor(self, "with_object", args), object.NoStop
			}
			memo := args[0]
			v, stop := vm.replay(enumOf(self), &object.Proc{Argc: 1, HasSplat: true, Fn: func(_ object.Interp, _ object.Value, args []object.Value, _ *object.Proc) (object.Value, object.Stop) {
				return vm.CallBlock(blk, []object.Value{yieldValue(args), memo})
			}})
			if stop != object.NoStop {
				return v, stop
			}
			return memo, object.NoStop
		}},
		"inspect": {0, func(vm *VM, self object.Value, _ []object.Value, _ *object.Proc) (object.Value, object.Stop) {
			e := enumOf(self)
			return newStr("#<Enumerator: " + vm.inspect(e.Receiver) + ":" + e.Method + ">")
		}},
		"to_s": {0, func(vm *VM, self object.Value, _ []object.Value, _ *object.Proc) (object.Value, object.Stop) {
			e := enumOf(self)
			return newStr("#<Enumerator: " + vm.inspect(e.Receiver) + ":" + e.Method + ">")
		}},
	}
}
