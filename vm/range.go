package vm

import (
	"math"

	"github.com/alexisbouchez/rubyvm/object"
)

func rangeOf(v object.Value) *object.Range { return v.(*object.Range) }

func isNil(v object.Value) bool {
	_, ok := v.(*object.Nil)
	return ok || v == nil
}

// intRange returns the integer bounds of r. endless is set when r has no
// end; hi is then meaningless.
func intRange(r *object.Range) (lo, hi int64, endless, ok bool) {
	s, sok := r.Start.(*object.Integer)
	if !sok {
		return 0, 0, false, false
	}
	switch e := r.End.(type) {
	case *object.Integer:
		hi = e.Value
		if r.Exclusive {
			hi--
		}
	case *object.Float:
		hi = int64(math.Floor(e.Value))
		if r.Exclusive && float64(hi) == e.Value {
			hi--
		}
	default:
		if !isNil(r.End) {
			return 0, 0, false, false
		}
		endless = true
	}
	return s.Value, hi, endless, true
}

// rangeEach walks r, calling fn with each element until fn returns false.
func (vm *VM) rangeEach(r *object.Range, fn func(args []object.Value) (bool, object.Value, object.Stop)) (object.Value, object.Stop) {
	if lo, hi, endless, ok := intRange(r); ok {
		for i := lo; endless || i <= hi; i++ {
			cont, res, stop := fn([]object.Value{&object.Integer{Value: i}})
			if stop != object.NoStop {
				return res, stop
			}
			if !cont {
				break
			}
		}
		return r, object.NoStop
	}

	switch s := r.Start.(type) {
	case *object.Nil:
		return vm.Raise(vm.rt.TypeErrorClass, "can't iterate from NilClass")
	case *object.Float:
		return vm.Raise(vm.rt.TypeErrorClass, "can't iterate from Float")
	case *object.String:
		last, isStr := r.End.(*object.String)
		if !isStr && !isNil(r.End) {
			return vm.Raise(vm.rt.TypeErrorClass, "can't iterate from String")
		}
		for cur := s.Value; ; cur = succString(cur) {
			if isStr {
				if len(cur) > len(last.Value) || (cur == last.Value && r.Exclusive) {
					break
				}
			}
			cont, res, stop := fn([]object.Value{object.NewString(cur)})
			if stop != object.NoStop {
				return res, stop
			}
			if !cont || (isStr && cur == last.Value) || cur == "" {
				break
			}
		}
		return r, object.NoStop
	}

	if !vm.respondTo(r.Start, "succ", false) {
		return vm.Raise(vm.rt.TypeErrorClass, "can't iterate from %s", vm.rt.RealClassOf(r.Start).Name)
	}
	cur := r.Start
	for {
		if !isNil(r.End) {
			c, v, stop := vm.compare(cur, r.End)
			if stop != object.NoStop {
				return v, stop
			}
			if c > 0 || (c == 0 && r.Exclusive) {
				break
			}
		}
		cont, res, stop := fn([]object.Value{cur})
		if stop != object.NoStop {
			return res, stop
		}
		if !cont {
			break
		}
		next, stop := vm.send(cur, "succ", nil, nil, false)
		if stop != object.NoStop {
			return next, stop
		}
		cur = next
	}
	return r, object.NoStop
}

// covers reports whether v lies between the bounds of r.
func (vm *VM) covers(r *object.Range, v object.Value) (bool, object.Value, object.Stop) {
	if !isNil(r.Start) {
		c, res, stop := vm.rangeCompare(r.Start, v)
		if stop != object.NoStop || c == nil {
			return false, res, stop
		}
		if *c > 0 {
			return false, nil, object.NoStop
		}
	}
	if !isNil(r.End) {
		c, res, stop := vm.rangeCompare(v, r.End)
		if stop != object.NoStop || c == nil {
			return false, res, stop
		}
		if *c > 0 || (*c == 0 && r.Exclusive) {
			return false, nil, object.NoStop
		}
	}
	return true, nil, object.NoStop
}

// rangeCompare is <=> that yields nil for incomparable values instead of
// raising.
func (vm *VM) rangeCompare(a, b object.Value) (*int, object.Value, object.Stop) {
	if c, ok := builtinCompare(a, b); ok {
		return &c, nil, object.NoStop
	}
	if !vm.respondTo(a, "<=>", false) {
		return nil, nil, object.NoStop
	}
	res, stop := vm.send(a, "<=>", []object.Value{b}, nil, false)
	if stop != object.NoStop {
		return nil, res, stop
	}
	i, ok := res.(*object.Integer)
	if !ok {
		return nil, nil, object.NoStop
	}
	c := int(i.Value)
	return &c, nil, object.NoStop
}

func (vm *VM) rangeToA(r *object.Range) ([]object.Value, object.Value, object.Stop) {
	if isNil(r.End) {
		v, stop := vm.Raise(vm.rt.RangeErrorClass, "cannot convert endless range to an array")
		return nil, v, stop
	}
	var out []object.Value
	res, stop := vm.rangeEach(r, func(args []object.Value) (bool, object.Value, object.Stop) {
		out = append(out, args[0])
		return true, nil, object.NoStop
	})
	if stop != object.NoStop {
		return nil, res, stop
	}
	return out, nil, object.NoStop
}

func rangeClassMethods() map[string]builtin {
	return map[string]builtin{
		"new": {-1, func(vm *VM, _ object.Value, args []object.Value, _ *object.Proc) (object.Value, object.Stop) {
			if v, stop := vm.arity(args, 2, 3); stop != object.NoStop {
				return v, stop
			}
			return vm.newRange(args[0], args[1], len(args) == 3 && object.Truthy(args[2]))
		}},
	}
}

func rangeMethods() map[string]builtin {
	return map[string]builtin{
		"begin": {0, func(vm *VM, self object.Value, _ []object.Value, _ *object.Proc) (object.Value, object.Stop) {
			return rangeOf(self).Start, object.NoStop
		}},
		"end": {0, func(vm *VM, self object.Value, _ []object.Value, _ *object.Proc) (object.Value, object.Stop) {
			return rangeOf(self).End, object.NoStop
		}},
		"first": {-1, func(vm *VM, self object.Value, args []object.Value, _ *object.Proc) (object.Value, object.Stop) {
			if v, stop := vm.arity(args, 0, 1); stop != object.NoStop {
				return v, stop
			}
			r := rangeOf(self)
			if len(args) == 0 {
				if isNil(r.Start) {
					return vm.Raise(vm.rt.RangeErrorClass, "cannot get the first element of beginless range")
				}
				return r.Start, object.NoStop
			}
			n, v, stop := vm.intArg(args[0])
			if stop != object.NoStop {
				return v, stop
			}
			if n < 0 {
				return vm.Raise(vm.rt.ArgumentErrorClass, "negative array size (or size too big)")
			}
			out := []object.Value{}
			if n == 0 {
				return object.NewArray(), object.NoStop
			}
			res, stop := vm.rangeEach(r, func(args []object.Value) (bool, object.Value, object.Stop) {
				out = append(out, args[0])
				return int64(len(out)) < n, nil, object.NoStop
			})
			if stop != object.NoStop {
				return res, stop
			}
			return object.NewArray(out...), object.NoStop
		}},
		"last": {-1, func(vm *VM, self object.Value, args []object.Value, _ *object.Proc) (object.Value, object.Stop) {
			if v, stop := vm.arity(args, 0, 1); stop != object.NoStop {
				return v, stop
			}
			r := rangeOf(self)
			if len(args) == 0 {
				if isNil(r.End) {
					return vm.Raise(vm.rt.RangeErrorClass, "cannot get the last element of endless range")
				}
				return r.End, object.NoStop
			}
			all, v, stop := vm.rangeToA(r)
			if stop != object.NoStop {
				return v, stop
			}
			return vm.arrayEnd(object.NewArray(all...), args, true)
		}},
		"min": {-1, func(vm *VM, self object.Value, args []object.Value, blk *object.Proc) (object.Value, object.Stop) {
			r := rangeOf(self)
			if blk != nil || len(args) > 0 {
				return enumMinMax(-1)(vm, self, args, blk)
			}
			c, v, stop := vm.rangeCompare(r.Start, r.End)
			if stop != object.NoStop {
				return v, stop
			}
			if c != nil && (*c > 0 || (*c == 0 && r.Exclusive)) {
				return object.NIL, object.NoStop
			}
			return r.Start, object.NoStop
		}},
		"max": {-1, func(vm *VM, self object.Value, args []object.Value, blk *object.Proc) (object.Value, object.Stop) {
			r := rangeOf(self)
			if blk != nil || len(args) > 0 {
				return enumMinMax(1)(vm, self, args, blk)
			}
			if isNil(r.End) {
				return vm.Raise(vm.rt.RangeErrorClass, "cannot get the maximum of endless range")
			}
			c, v, stop := vm.rangeCompare(r.Start, r.End)
			if stop != object.NoStop {
				return v, stop
			}
			if c != nil && (*c > 0 || (*c == 0 && r.Exclusive)) {
				return object.NIL, object.NoStop
			}
			if r.Exclusive {
				if _, ok := r.End.(*object.Integer); !ok {
					return vm.Raise(vm.rt.TypeErrorClass, "cannot exclude non Integer end value")
				}
				return &object.Integer{Value: r.End.(*object.Integer).Value - 1}, object.NoStop
			}
			return r.End, object.NoStop
		}},
		"sum": {-1, func(vm *VM, self object.Value, args []object.Value, blk *object.Proc) (object.Value, object.Stop) {
			if lo, hi, endless, ok := intRange(rangeOf(self)); ok && !endless && blk == nil && len(args) == 0 {
				if hi < lo {
					return &object.Integer{Value: 0}, object.NoStop
				}
				n := hi - lo + 1
				return &object.Integer{Value: (lo + hi) * n / 2}, object.NoStop
			}
			return enumSum(vm, self, args, blk)
		}},
		"size": {0, rangeSize},
		"count": {-1, func(vm *VM, self object.Value, args []object.Value, blk *object.Proc) (object.Value, object.Stop) {
			if len(args) == 0 && blk == nil {
				if _, _, endless, ok := intRange(rangeOf(self)); ok && endless {
					return &object.Float{Value: math.Inf(1)}, object.NoStop
				}
				return rangeSize(vm, self, nil, nil)
			}
			return enumCount(vm, self, args, blk)
		}},
		"each": {0, func(vm *VM, self object.Value, _ []object.Value, blk *object.Proc) (object.Value, object.Stop) {
			if blk == nil {
				return enumFor(self, "each", nil), object.NoStop
			}
			return vm.rangeEach(rangeOf(self), func(args []object.Value) (bool, object.Value, object.Stop) {
				v, stop := vm.CallBlock(blk, args)
				return true, v, stop
			})
		}},
		"reverse_each": {0, func(vm *VM, self object.Value, _ []object.Value, blk *object.Proc) (object.Value, object.Stop) {
			if blk == nil {
				return enumFor(self, "reverse_each", nil), object.NoStop
			}
			if lo, hi, endless, ok := intRange(rangeOf(self)); ok && !endless {
				for i := hi; i >= lo; i-- {
					if v, stop := vm.yield1(blk, &object.Integer{Value: i}); stop != object.NoStop {
						return v, stop
					}
				}
				return self, object.NoStop
			}
			all, v, stop := vm.rangeToA(rangeOf(self))
			if stop != object.NoStop {
				return v, stop
			}
			for i := len(all) - 1; i >= 0; i-- {
				if v, stop := vm.yield1(blk, all[i]); stop != object.NoStop {
					return v, stop
				}
			}
			return self, object.NoStop
		}},
		"step": {-1, rangeStep},
		"%":    {1, rangeStep},
		"to_a":    {0, rangeToArray},
		"to_ary":  {0, rangeToArray},
		"entries": {0, rangeToArray},
		"include?": {1, rangeInclude},
		"member?":  {1, rangeInclude},
		"===":      {1, rangeCover},
		"cover?":   {1, rangeCover},
		"exclude_end?": {0, func(vm *VM, self object.Value, _ []object.Value, _ *object.Proc) (object.Value, object.Stop) {
			return object.NativeToBool(rangeOf(self).Exclusive), object.NoStop
		}},
		"==": {1, rangeEqual},
		"eql?": {1, func(vm *VM, self object.Value, args []object.Value, _ *object.Proc) (object.Value, object.Stop) {
			other, ok := args[0].(*object.Range)
			r := rangeOf(self)
			return object.NativeToBool(ok && r.Exclusive == other.Exclusive && eql(r.Start, other.Start) && eql(r.End, other.End)), object.NoStop
		}},
		"hash": {0, func(vm *VM, self object.Value, _ []object.Value, _ *object.Proc) (object.Value, object.Stop) {
			return &object.Integer{Value: hashOf(object.HashKeyOf(object.NewString(vm.inspect(self))), vm)}, object.NoStop
		}},
		"inspect": {0, func(vm *VM, self object.Value, _ []object.Value, _ *object.Proc) (object.Value, object.Stop) {
			return newStr(vm.inspectRange(rangeOf(self)))
		}},
		"to_s": {0, func(vm *VM, self object.Value, _ []object.Value, _ *object.Proc) (object.Value, object.Stop) {
			r := rangeOf(self)
			op := ".."
			if r.Exclusive {
				op = "..."
			}
			var start, end string
			if !isNil(r.Start) {
				s, v, stop := vm.str(r.Start)
				if stop != object.NoStop {
					return v, stop
				}
				start = s
			}
			if !isNil(r.End) {
				s, v, stop := vm.str(r.End)
				if stop != object.NoStop {
					return v, stop
				}
				end = s
			}
			return newStr(start + op + end)
		}},
	}
}

func rangeSize(vm *VM, self object.Value, _ []object.Value, _ *object.Proc) (object.Value, object.Stop) {
	r := rangeOf(self)
	lo, hi, endless, ok := intRange(r)
	if !ok {
		if _, isFloat := r.Start.(*object.Float); isFloat && isNumeric(r.End) {
			span := math.Floor(toF(r.End) - toF(r.Start))
			if r.Exclusive && toF(r.Start)+span == toF(r.End) {
				span--
			}
			if span < 0 {
				return &object.Integer{Value: 0}, object.NoStop
			}
			return &object.Integer{Value: int64(span) + 1}, object.NoStop
		}
		if !isNumeric(r.Start) {
			return vm.Raise(vm.rt.TypeErrorClass, "can't iterate from %s", vm.rt.RealClassOf(r.Start).Name)
		}
		return object.NIL, object.NoStop
	}
	if endless {
		return &object.Float{Value: math.Inf(1)}, object.NoStop
	}
	if hi < lo {
		return &object.Integer{Value: 0}, object.NoStop
	}
	return &object.Integer{Value: hi - lo + 1}, object.NoStop
}

func rangeToArray(vm *VM, self object.Value, _ []object.Value, _ *object.Proc) (object.Value, object.Stop) {
	all, v, stop := vm.rangeToA(rangeOf(self))
	if stop != object.NoStop {
		return v, stop
	}
	return object.NewArray(all...), object.NoStop
}

func rangeCover(vm *VM, self object.Value, args []object.Value, _ *object.Proc) (object.Value, object.Stop) {
	if other, ok := args[0].(*object.Range); ok {
		r := rangeOf(self)
		lo, v, stop := vm.covers(r, other.Start)
		if stop != object.NoStop {
			return v, stop
		}
		if !lo || isNil(other.End) {
			return object.NativeToBool(lo && isNil(r.End)), object.NoStop
		}
		probe := &object.Range{Start: r.Start, End: r.End, Exclusive: r.Exclusive && !other.Exclusive}
		hi, v, stop := vm.covers(probe, other.End)
		if stop != object.NoStop {
			return v, stop
		}
		return object.NativeToBool(hi), object.NoStop
	}
	in, v, stop := vm.covers(rangeOf(self), args[0])
	if stop != object.NoStop {
		return v, stop
	}
	return object.NativeToBool(in), object.NoStop
}

func rangeInclude(vm *VM, self object.Value, args []object.Value, _ *object.Proc) (object.Value, object.Stop) {
	r := rangeOf(self)
	if _, isStr := r.Start.(*object.String); isStr {
		if _, argStr := args[0].(*object.String); !argStr {
			return object.FALSE, object.NoStop
		}
	}
	in, v, stop := vm.covers(r, args[0])
	if stop != object.NoStop {
		return v, stop
	}
	return object.NativeToBool(in), object.NoStop
}

func rangeEqual(vm *VM, self object.Value, args []object.Value, _ *object.Proc) (object.Value, object.Stop) {
	other, ok := args[0].(*object.Range)
	if !ok {
		return object.FALSE, object.NoStop
	}
	r := rangeOf(self)
	if r.Exclusive != other.Exclusive {
		return object.FALSE, object.NoStop
	}
	eq, v, stop := vm.equal(r.Start, other.Start)
	if stop != object.NoStop {
		return v, stop
	}
	if !eq {
		return object.FALSE, object.NoStop
	}
	eq, v, stop = vm.equal(r.End, other.End)
	if stop != object.NoStop {
		return v, stop
	}
	return object.NativeToBool(eq), object.NoStop
}

func rangeStep(vm *VM, self object.Value, args []object.Value, blk *object.Proc) (object.Value, object.Stop) {
	if v, stop := vm.arity(args, 0, 1); stop != object.NoStop {
		return v, stop
	}
	if blk == nil {
		return enumFor(self, "step", args), object.NoStop
	}
	var step object.Value = &object.Integer{Value: 1}
	if len(args) == 1 {
		step = args[0]
	}
	r := rangeOf(self)
	if !isNumeric(r.Start) {
		n, v, stop := vm.intArg(step)
		if stop != object.NoStop {
			return v, stop
		}
		if n <= 0 {
			return vm.Raise(vm.rt.ArgumentErrorClass, "step can't be negative")
		}
		i := int64(0)
		return vm.rangeEach(r, func(args []object.Value) (bool, object.Value, object.Stop) {
			defer func() { i++ }()
			if i%n != 0 {
				return true, nil, object.NoStop
			}
			v, stop := vm.CallBlock(blk, args)
			return true, v, stop
		})
	}
	if !isNumeric(step) {
		return vm.coerceError(r.Start, step)
	}
	if toF(step) < 0 {
		return vm.Raise(vm.rt.ArgumentErrorClass, "step can't be negative")
	}
	if toF(step) == 0 {
		return vm.Raise(vm.rt.ArgumentErrorClass, "step can't be 0")
	}

	s, sok := r.Start.(*object.Integer)
	by, bok := step.(*object.Integer)
	_, endFloat := r.End.(*object.Float)
	if sok && bok && !endFloat {
		e, eok := r.End.(*object.Integer)
		for i := s.Value; ; i += by.Value {
			if eok && (i > e.Value || (i == e.Value && r.Exclusive)) {
				break
			}
			if v, stop := vm.yield1(blk, &object.Integer{Value: i}); stop != object.NoStop {
				return v, stop
			}
		}
		return self, object.NoStop
	}

	start, inc := toF(r.Start), toF(step)
	end := math.Inf(1)
	if !isNil(r.End) {
		end = toF(r.End)
	}
	n := math.Floor((end-start)/inc + 1e-9)
	for i := 0.0; i <= n; i++ {
		x := start + i*inc
		if r.Exclusive && x >= end {
			break
		}
		if v, stop := vm.yield1(blk, &object.Float{Value: x}); stop != object.NoStop {
			return v, stop
		}
	}
	return self, object.NoStop
}
