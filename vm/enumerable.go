package vm

import (
	"math"
	"sort"

	"github.com/alexisbouchez/rubyvm/object"
)

// each feeds every element of self to fn as a single value.
func (vm *VM) each(self object.Value, fn func(x object.Value) (bool, object.Value, object.Stop)) (object.Value, object.Stop) {
	return vm.iterate(self, func(args []object.Value) (bool, object.Value, object.Stop) {
		return fn(yieldValue(args))
	})
}

// eachWithBlock runs blk on every element and hands its result to fn.
func (vm *VM) eachWithBlock(self object.Value, blk *object.Proc, fn func(x, res object.Value) bool) (object.Value, object.Stop) {
	return vm.each(self, func(x object.Value) (bool, object.Value, object.Stop) {
		res, stop := vm.yield1(blk, x)
		if stop != object.NoStop {
			return false, res, stop
		}
		return fn(x, res), nil, object.NoStop
	})
}

// sortBy orders vals by the keys blk maps them to.
func (vm *VM) sortBy(vals []object.Value, blk *object.Proc) ([]object.Value, object.Value, object.Stop) {
	type keyed struct{ key, val object.Value }
	pairs := make([]keyed, len(vals))
	for i, v := range vals {
		k, stop := vm.yield1(blk, v)
		if stop != object.NoStop {
			return nil, k, stop
		}
		pairs[i] = keyed{k, v}
	}
	var failed object.Value
	stop := object.NoStop
	sort.SliceStable(pairs, func(i, j int) bool {
		if stop != object.NoStop {
			return false
		}
		c, v, s := vm.compare(pairs[i].key, pairs[j].key)
		if s != object.NoStop {
			failed, stop = v, s
			return false
		}
		return c < 0
	})
	if stop != object.NoStop {
		return nil, failed, stop
	}
	out := make([]object.Value, len(pairs))
	for i, p := range pairs {
		out[i] = p.val
	}
	return out, nil, object.NoStop
}

// enumMinMax implements min (dir -1) and max (dir 1), with an optional
// count and comparison block.
func enumMinMax(dir int) builtinFunc {
	return func(vm *VM, self object.Value, args []object.Value, blk *object.Proc) (object.Value, object.Stop) {
		if v, stop := vm.arity(args, 0, 1); stop != object.NoStop {
			return v, stop
		}
		vals, v, stop := vm.collect(self)
		if stop != object.NoStop {
			return v, stop
		}
		cmp := vm.blockCompare(blk)
		if len(args) == 1 {
			n, v, stop := vm.intArg(args[0])
			if stop != object.NoStop {
				return v, stop
			}
			if n < 0 {
				return vm.Raise(vm.rt.ArgumentErrorClass, "negative size (%d)", n)
			}
			sorted := append([]object.Value(nil), vals...)
			if v, stop := vm.sortValues(sorted, func(a, b object.Value) (int, object.Value, object.Stop) {
				c, v, stop := cmp(a, b)
				return c * -dir, v, stop
			}); stop != object.NoStop {
				return v, stop
			}
			if int(n) < len(sorted) {
				sorted = sorted[:n]
			}
			return object.NewArray(sorted...), object.NoStop
		}
		if len(vals) == 0 {
			return object.NIL, object.NoStop
		}
		best := vals[0]
		for _, x := range vals[1:] {
			c, v, stop := cmp(x, best)
			if stop != object.NoStop {
				return v, stop
			}
			if c*dir > 0 {
				best = x
			}
		}
		return best, object.NoStop
	}
}

// enumMinMaxBy implements min_by and max_by.
func enumMinMaxBy(dir int, name string) builtinFunc {
	return func(vm *VM, self object.Value, args []object.Value, blk *object.Proc) (object.Value, object.Stop) {
		if v, stop := vm.arity(args, 0, 1); stop != object.NoStop {
			return v, stop
		}
		if blk == nil {
			return enumFor(self, name, args), object.NoStop
		}
		vals, v, stop := vm.collect(self)
		if stop != object.NoStop {
			return v, stop
		}
		sorted, v, stop := vm.sortBy(vals, blk)
		if stop != object.NoStop {
			return v, stop
		}
		if dir > 0 {
			for i, j := 0, len(sorted)-1; i < j; i, j = i+1, j-1 {
				sorted[i], sorted[j] = sorted[j], sorted[i]
			}
		}
		if len(args) == 1 {
			n, v, stop := vm.intArg(args[0])
			if stop != object.NoStop {
				return v, stop
			}
			if int(n) < len(sorted) {
				sorted = sorted[:n]
			}
			return object.NewArray(sorted...), object.NoStop
		}
		if len(sorted) == 0 {
			return object.NIL, object.NoStop
		}
		return sorted[0], object.NoStop
	}
}

// enumSum adds the elements, or the block's results, to init. Float
// additions are compensated so that [0.1, 0.2, 0.3].sum is 0.6.
func enumSum(vm *VM, self object.Value, args []object.Value, blk *object.Proc) (object.Value, object.Stop) {
	if v, stop := vm.arity(args, 0, 1); stop != object.NoStop {
		return v, stop
	}
	var acc object.Value = &object.Integer{Value: 0}
	if len(args) == 1 {
		acc = args[0]
	}
	var sum, comp float64
	floating := false
	kahan := func(x float64) {
		t := sum + x
		if math.Abs(sum) >= math.Abs(x) {
			comp += (sum - t) + x
		} else {
			comp += (x - t) + sum
		}
		sum = t
	}
	add := func(x object.Value) (object.Value, object.Stop) {
		if floating {
			if isNumeric(x) {
				kahan(toF(x))
				return nil, object.NoStop
			}
			acc, floating = &object.Float{Value: sum + comp}, false
		}
		switch a := acc.(type) {
		case *object.Integer:
			switch b := x.(type) {
			case *object.Integer:
				v, stop := vm.checkedInt(addInt(a.Value, b.Value))
				if stop != object.NoStop {
					return v, stop
				}
				acc = v
				return nil, object.NoStop
			case *object.Float:
				floating, sum, comp = true, float64(a.Value), 0
				kahan(b.Value)
				return nil, object.NoStop
			}
		case *object.Float:
			if isNumeric(x) {
				floating, sum, comp = true, a.Value, 0
				kahan(toF(x))
				return nil, object.NoStop
			}
		}
		res, stop := vm.send(acc, "+", []object.Value{x}, nil, false)
		if stop != object.NoStop {
			return res, stop
		}
		acc = res
		return nil, object.NoStop
	}
	res, stop := vm.each(self, func(x object.Value) (bool, object.Value, object.Stop) {
		if blk != nil {
			v, stop := vm.yield1(blk, x)
			if stop != object.NoStop {
				return false, v, stop
			}
			x = v
		}
		if v, stop := add(x); stop != object.NoStop {
			return false, v, stop
		}
		return true, nil, object.NoStop
	})
	if stop != object.NoStop {
		return res, stop
	}
	if floating {
		return &object.Float{Value: sum + comp}, object.NoStop
	}
	return acc, object.NoStop
}

// enumCount counts all elements, those equal to the argument, or those the
// block accepts.
func enumCount(vm *VM, self object.Value, args []object.Value, blk *object.Proc) (object.Value, object.Stop) {
	if v, stop := vm.arity(args, 0, 1); stop != object.NoStop {
		return v, stop
	}
	var n int64
	res, stop := vm.each(self, func(x object.Value) (bool, object.Value, object.Stop) {
		switch {
		case len(args) == 1:
			eq, v, stop := vm.equal(x, args[0])
			if stop != object.NoStop {
				return false, v, stop
			}
			if eq {
				n++
			}
		case blk != nil:
			v, stop := vm.yield1(blk, x)
			if stop != object.NoStop {
				return false, v, stop
			}
			if object.Truthy(v) {
				n++
			}
		default:
			n++
		}
		return true, nil, object.NoStop
	})
	if stop != object.NoStop {
		return res, stop
	}
	return &object.Integer{Value: n}, object.NoStop
}

// test applies the pattern, block or plain truthiness used by any? and
// friends.
func (vm *VM) test(x object.Value, args []object.Value, blk *object.Proc) (bool, object.Value, object.Stop) {
	if len(args) == 1 {
		res, stop := vm.send(args[0], "===", []object.Value{x}, nil, false)
		if stop != object.NoStop {
			return false, res, stop
		}
		return object.Truthy(res), nil, object.NoStop
	}
	if blk != nil {
		res, stop := vm.yield1(blk, x)
		if stop != object.NoStop {
			return false, res, stop
		}
		return object.Truthy(res), nil, object.NoStop
	}
	return object.Truthy(x), nil, object.NoStop
}

// enumQuantifier counts passing elements and stops as soon as done says the
// answer is known.
func enumQuantifier(done func(passed, failed int) bool, result func(passed, failed int) bool) builtinFunc {
	return func(vm *VM, self object.Value, args []object.Value, blk *object.Proc) (object.Value, object.Stop) {
		if v, stop := vm.arity(args, 0, 1); stop != object.NoStop {
			return v, stop
		}
		passed, failed := 0, 0
		res, stop := vm.each(self, func(x object.Value) (bool, object.Value, object.Stop) {
			ok, v, stop := vm.test(x, args, blk)
			if stop != object.NoStop {
				return false, v, stop
			}
			if ok {
				passed++
			} else {
				failed++
			}
			return !done(passed, failed), nil, object.NoStop
		})
		if stop != object.NoStop {
			return res, stop
		}
		return object.NativeToBool(result(passed, failed)), object.NoStop
	}
}

var (
	enumAny = enumQuantifier(
		func(p, _ int) bool { return p > 0 },
		func(p, _ int) bool { return p > 0 })
	enumAll = enumQuantifier(
		func(_, f int) bool { return f > 0 },
		func(_, f int) bool { return f == 0 })
	enumNone = enumQuantifier(
		func(p, _ int) bool { return p > 0 },
		func(p, _ int) bool { return p == 0 })
	enumOne = enumQuantifier(
		func(p, _ int) bool { return p > 1 },
		func(p, _ int) bool { return p == 1 })
)

// enumMap builds the results of blk, flattening one level for flat_map.
func enumMap(name string, flat bool) builtinFunc {
	return func(vm *VM, self object.Value, _ []object.Value, blk *object.Proc) (object.Value, object.Stop) {
		if blk == nil {
			return enumFor(self, name, nil), object.NoStop
		}
		var out []object.Value
		res, stop := vm.eachWithBlock(self, blk, func(_, v object.Value) bool {
			if arr, ok := v.(*object.Array); ok && flat {
				out = append(out, arr.Elements...)
			} else {
				out = append(out, v)
			}
			return true
		})
		if stop != object.NoStop {
			return res, stop
		}
		return object.NewArray(out...), object.NoStop
	}
}

// enumFilter keeps the elements whose block result has truthiness keep.
func enumFilter(name string, keep bool) builtinFunc {
	return func(vm *VM, self object.Value, _ []object.Value, blk *object.Proc) (object.Value, object.Stop) {
		if blk == nil {
			return enumFor(self, name, nil), object.NoStop
		}
		var out []object.Value
		res, stop := vm.eachWithBlock(self, blk, func(x, v object.Value) bool {
			if object.Truthy(v) == keep {
				out = append(out, x)
			}
			return true
		})
		if stop != object.NoStop {
			return res, stop
		}
		return object.NewArray(out...), object.NoStop
	}
}

func enumFind(vm *VM, self object.Value, args []object.Value, blk *object.Proc) (object.Value, object.Stop) {
	if blk == nil {
		return enumFor(self, "find", args), object.NoStop
	}
	var found object.Value = object.NIL
	res, stop := vm.eachWithBlock(self, blk, func(x, v object.Value) bool {
		if object.Truthy(v) {
			found = x
			return false
		}
		return true
	})
	if stop != object.NoStop {
		return res, stop
	}
	return found, object.NoStop
}

func enumFindIndex(vm *VM, self object.Value, args []object.Value, blk *object.Proc) (object.Value, object.Stop) {
	if v, stop := vm.arity(args, 0, 1); stop != object.NoStop {
		return v, stop
	}
	if blk == nil && len(args) == 0 {
		return enumFor(self, "find_index", nil), object.NoStop
	}
	var i int64
	var found object.Value = object.NIL
	res, stop := vm.each(self, func(x object.Value) (bool, object.Value, object.Stop) {
		var hit bool
		if len(args) == 1 {
			eq, v, stop := vm.equal(x, args[0])
			if stop != object.NoStop {
				return false, v, stop
			}
			hit = eq
		} else {
			v, stop := vm.yield1(blk, x)
			if stop != object.NoStop {
				return false, v, stop
			}
			hit = object.Truthy(v)
		}
		if hit {
			found = &object.Integer{Value: i}
			return false, nil, object.NoStop
		}
		i++
		return true, nil, object.NoStop
	})
	if stop != object.NoStop {
		return res, stop
	}
	return found, object.NoStop
}

// enumInject implements inject and reduce: an optional initial value and
// either a block or an operator symbol.
func enumInject(vm *VM, self object.Value, args []object.Value, blk *object.Proc) (object.Value, object.Stop) {
	if v, stop := vm.arity(args, 0, 2); stop != object.NoStop {
		return v, stop
	}
	var acc object.Value
	op := ""
	switch {
	case len(args) == 2:
		acc = args[0]
		name, v, stop := vm.symbolName(args[1])
		if stop != object.NoStop {
			return v, stop
		}
		op = name
	case len(args) == 1 && blk == nil:
		name, v, stop := vm.symbolName(args[0])
		if stop != object.NoStop {
			return v, stop
		}
		op = name
	case len(args) == 1:
		acc = args[0]
	case blk == nil:
		return vm.Raise(vm.rt.LocalJumpErrorClass, "no block given")
	}
	res, stop := vm.each(self, func(x object.Value) (bool, object.Value, object.Stop) {
		if acc == nil {
			acc = x
			return true, nil, object.NoStop
		}
		var v object.Value
		var stop object.Stop
		if op != "" {
			v, stop = vm.send(acc, op, []object.Value{x}, nil, true)
		} else {
			v, stop = vm.CallBlock(blk, []object.Value{acc, x})
		}
		if stop != object.NoStop {
			return false, v, stop
		}
		acc = v
		return true, nil, object.NoStop
	})
	if stop != object.NoStop {
		return res, stop
	}
	if acc == nil {
		return object.NIL, object.NoStop
	}
	return acc, object.NoStop
}

func enumEachWithIndex(vm *VM, self object.Value, args []object.Value, blk *object.Proc) (object.Value, object.Stop) {
	if blk == nil {
		return enumFor(self, "each_with_index", args), object.NoStop
	}
	var i int64
	res, stop := vm.each(self, func(x object.Value) (bool, object.Value, object.Stop) {
		v, stop := vm.CallBlock(blk, []object.Value{x, &object.Integer{Value: i}})
		if stop != object.NoStop {
			return false, v, stop
		}
		i++
		return true, nil, object.NoStop
	})
	if stop != object.NoStop {
		return res, stop
	}
	return self, object.NoStop
}

func enumEachWithObject(vm *VM, self object.Value, args []object.Value, blk *object.Proc) (object.Value, object.Stop) {
	if blk == nil {
		return enumFor(self, "each_with_object", args), object.NoStop
	}
	memo := args[0]
	res, stop := vm.each(self, func(x object.Value) (bool, object.Value, object.Stop) {
		v, stop := vm.CallBlock(blk, []object.Value{x, memo})
		if stop != object.NoStop {
			return false, v, stop
		}
		return true, nil, object.NoStop
	})
	if stop != object.NoStop {
		return res, stop
	}
	return memo, object.NoStop
}

// enumGroups implements each_slice (cons false) and each_cons.
func enumGroups(name string, cons bool) builtinFunc {
	return func(vm *VM, self object.Value, args []object.Value, blk *object.Proc) (object.Value, object.Stop) {
		n, v, stop := vm.intArg(args[0])
		if stop != object.NoStop {
			return v, stop
		}
		if n <= 0 {
			if cons {
				return vm.Raise(vm.rt.ArgumentErrorClass, "invalid size")
			}
			return vm.Raise(vm.rt.ArgumentErrorClass, "invalid slice size")
		}
		if blk == nil {
			return enumFor(self, name, args), object.NoStop
		}
		var window []object.Value
		emit := func() (object.Value, object.Stop) {
			return vm.yield1(blk, object.NewArray(append([]object.Value(nil), window...)...))
		}
		res, stop := vm.each(self, func(x object.Value) (bool, object.Value, object.Stop) {
			window = append(window, x)
			if len(window) < int(n) {
				return true, nil, object.NoStop
			}
			if v, stop := emit(); stop != object.NoStop {
				return false, v, stop
			}
			if cons {
				window = window[1:]
			} else {
				window = nil
			}
			return true, nil, object.NoStop
		})
		if stop != object.NoStop {
			return res, stop
		}
		if !cons && len(window) > 0 {
			if v, stop := emit(); stop != object.NoStop {
				return v, stop
			}
		}
		return self, object.NoStop
	}
}

// enumChunk implements chunk_while and its negation slice_when.
func enumChunk(splitWhen bool) builtinFunc {
	return func(vm *VM, self object.Value, _ []object.Value, blk *object.Proc) (object.Value, object.Stop) {
		if blk == nil {
			return vm.Raise(vm.rt.ArgumentErrorClass, "tried to create Proc object without a block")
		}
		vals, v, stop := vm.collect(self)
		if stop != object.NoStop {
			return v, stop
		}
		var out []object.Value
		if len(vals) == 0 {
			return object.NewArray(), object.NoStop
		}
		cur := []object.Value{vals[0]}
		for i := 1; i < len(vals); i++ {
			res, stop := vm.CallBlock(blk, []object.Value{vals[i-1], vals[i]})
			if stop != object.NoStop {
				return res, stop
			}
			if object.Truthy(res) == splitWhen {
				out = append(out, object.NewArray(cur...))
				cur = nil
			}
			cur = append(cur, vals[i])
		}
		out = append(out, object.NewArray(cur...))
		return object.NewArray(out...), object.NoStop
	}
}

// pairArray checks that v is a [key, value] pair for to_h.
func (vm *VM) pairArray(v object.Value, i int) (*object.Array, object.Value, object.Stop) {
	arr, ok := v.(*object.Array)
	if !ok {
		res, stop := vm.Raise(vm.rt.TypeErrorClass, "wrong element type %s at %d (expected array)", vm.typeName(v), i)
		return nil, res, stop
	}
	if len(arr.Elements) != 2 {
		res, stop := vm.Raise(vm.rt.ArgumentErrorClass, "wrong array length at %d (expected 2, was %d)", i, len(arr.Elements))
		return nil, res, stop
	}
	return arr, nil, object.NoStop
}

func enumToH(vm *VM, self object.Value, _ []object.Value, blk *object.Proc) (object.Value, object.Stop) {
	h := object.NewHash()
	i := 0
	res, stop := vm.each(self, func(x object.Value) (bool, object.Value, object.Stop) {
		if blk != nil {
			v, stop := vm.yield1(blk, x)
			if stop != object.NoStop {
				return false, v, stop
			}
			x = v
		}
		pair, v, stop := vm.pairArray(x, i)
		if stop != object.NoStop {
			return false, v, stop
		}
		h.Set(pair.Elements[0], pair.Elements[1])
		i++
		return true, nil, object.NoStop
	})
	if stop != object.NoStop {
		return res, stop
	}
	return h, object.NoStop
}

func enumToA(vm *VM, self object.Value, _ []object.Value, _ *object.Proc) (object.Value, object.Stop) {
	vals, v, stop := vm.collect(self)
	if stop != object.NoStop {
		return v, stop
	}
	return object.NewArray(append([]object.Value(nil), vals...)...), object.NoStop
}

// enumTake implements first(n) and take(n), stopping after n elements.
func enumTake(vm *VM, self object.Value, n int64) (object.Value, object.Stop) {
	if n < 0 {
		return vm.Raise(vm.rt.ArgumentErrorClass, "attempt to take negative size")
	}
	out := []object.Value{}
	if n == 0 {
		return object.NewArray(), object.NoStop
	}
	res, stop := vm.each(self, func(x object.Value) (bool, object.Value, object.Stop) {
		out = append(out, x)
		return int64(len(out)) < n, nil, object.NoStop
	})
	if stop != object.NoStop {
		return res, stop
	}
	return object.NewArray(out...), object.NoStop
}

func enumInclude(vm *VM, self object.Value, args []object.Value, _ *object.Proc) (object.Value, object.Stop) {
	found := false
	res, stop := vm.each(self, func(x object.Value) (bool, object.Value, object.Stop) {
		eq, v, stop := vm.equal(x, args[0])
		if stop != object.NoStop {
			return false, v, stop
		}
		found = eq
		return !eq, nil, object.NoStop
	})
	if stop != object.NoStop {
		return res, stop
	}
	return object.NativeToBool(found), object.NoStop
}

func enumerableMethods() map[string]builtin {
	return map[string]builtin{
		"map":        {0, enumMap("map", false)},
		"collect":    {0, enumMap("collect", false)},
		"flat_map":   {0, enumMap("flat_map", true)},
		"select":     {0, enumFilter("select", true)},
		"filter":     {0, enumFilter("filter", true)},
		"find_all":   {0, enumFilter("find_all", true)},
		"reject":     {0, enumFilter("reject", false)},
		"find":       {-1, enumFind},
		"detect":     {-1, enumFind},
		"find_index": {-1, enumFindIndex},
		"filter_map": {0, func(vm *VM, self object.Value, _ []object.Value, blk *object.Proc) (object.Value, object.Stop) {
			if blk == nil {
				return enumFor(self, "filter_map", nil), object.NoStop
			}
			var out []object.Value
			res, stop := vm.eachWithBlock(self, blk, func(_, v object.Value) bool {
				if object.Truthy(v) {
					out = append(out, v)
				}
				return true
			})
			if stop != object.NoStop {
				return res, stop
			}
			return object.NewArray(out...), object.NoStop
		}},
		"inject":  {-1, enumInject},
		"reduce":  {-1, enumInject},
		"sum":     {-1, enumSum},
		"count":   {-1, enumCount},
		"min":     {-1, enumMinMax(-1)},
		"max":     {-1, enumMinMax(1)},
		"min_by":  {-1, enumMinMaxBy(-1, "min_by")},
		"max_by":  {-1, enumMinMaxBy(1, "max_by")},
		"minmax": {0, func(vm *VM, self object.Value, _ []object.Value, blk *object.Proc) (object.Value, object.Stop) {
			lo, stop := enumMinMax(-1)(vm, self, nil, blk)
			if stop != object.NoStop {
				return lo, stop
			}
			hi, stop := enumMinMax(1)(vm, self, nil, blk)
			if stop != object.NoStop {
				return hi, stop
			}
			return object.NewArray(lo, hi), object.NoStop
		}},
		"sort": {0, func(vm *VM, self object.Value, _ []object.Value, blk *object.Proc) (object.Value, object.Stop) {
			vals, v, stop := vm.collect(self)
			if stop != object.NoStop {
				return v, stop
			}
			sorted := append([]object.Value(nil), vals...)
			if v, stop := vm.sortValues(sorted, vm.blockCompare(blk)); stop != object.NoStop {
				return v, stop
			}
			return object.NewArray(sorted...), object.NoStop
		}},
		"sort_by": {0, func(vm *VM, self object.Value, _ []object.Value, blk *object.Proc) (object.Value, object.Stop) {
			if blk == nil {
				return enumFor(self, "sort_by", nil), object.NoStop
			}
			vals, v, stop := vm.collect(self)
			if stop != object.NoStop {
				return v, stop
			}
			sorted, v, stop := vm.sortBy(vals, blk)
			if stop != object.NoStop {
				return v, stop
			}
			return object.NewArray(sorted...), object.NoStop
		}},
		"group_by": {0, func(vm *VM, self object.Value, _ []object.Value, blk *object.Proc) (object.Value, object.Stop) {
			if blk == nil {
				return enumFor(self, "group_by", nil), object.NoStop
			}
			h := object.NewHash()
			res, stop := vm.eachWithBlock(self, blk, func(x, k object.Value) bool {
				if g, ok := h.Get(k); ok {
					arr := g.(*object.Array)
					arr.Elements = append(arr.Elements, x)
				} else {
					h.Set(k, object.NewArray(x))
				}
				return true
			})
			if stop != object.NoStop {
				return res, stop
			}
			return h, object.NoStop
		}},
		"partition": {0, func(vm *VM, self object.Value, _ []object.Value, blk *object.Proc) (object.Value, object.Stop) {
			if blk == nil {
				return enumFor(self, "partition", nil), object.NoStop
			}
			yes, no := []object.Value{}, []object.Value{}
			res, stop := vm.eachWithBlock(self, blk, func(x, v object.Value) bool {
				if object.Truthy(v) {
					yes = append(yes, x)
				} else {
					no = append(no, x)
				}
				return true
			})
			if stop != object.NoStop {
				return res, stop
			}
			return object.NewArray(object.NewArray(yes...), object.NewArray(no...)), object.NoStop
		}},
		"tally": {0, func(vm *VM, self object.Value, _ []object.Value, _ *object.Proc) (object.Value, object.Stop) {
			h := object.NewHash()
			res, stop := vm.each(self, func(x object.Value) (bool, object.Value, object.Stop) {
				var n int64
				if c, ok := h.Get(x); ok {
					n = c.(*object.Integer).Value
				}
				h.Set(x, &object.Integer{Value: n + 1})
				return true, nil, object.NoStop
			})
			if stop != object.NoStop {
				return res, stop
			}
			return h, object.NoStop
		}},
		"each_with_index":  {-1, enumEachWithIndex},
		"each_with_object": {1, enumEachWithObject},
		"each_slice":       {1, enumGroups("each_slice", false)},
		"each_cons":        {1, enumGroups("each_cons", true)},
		"each_entry": {-1, func(vm *VM, self object.Value, args []object.Value, blk *object.Proc) (object.Value, object.Stop) {
			if blk == nil {
				return enumFor(self, "each_entry", args), object.NoStop
			}
			res, stop := vm.each(self, func(x object.Value) (bool, object.Value, object.Stop) {
				v, stop := vm.yield1(blk, x)
				return true, v, stop
			})
			if stop != object.NoStop {
				return res, stop
			}
			return self, object.NoStop
		}},
		"reverse_each": {0, func(vm *VM, self object.Value, _ []object.Value, blk *object.Proc) (object.Value, object.Stop) {
			if blk == nil {
				return enumFor(self, "reverse_each", nil), object.NoStop
			}
			vals, v, stop := vm.collect(self)
			if stop != object.NoStop {
				return v, stop
			}
			for i := len(vals) - 1; i >= 0; i-- {
				if v, stop := vm.yield1(blk, vals[i]); stop != object.NoStop {
					return v, stop
				}
			}
			return self, object.NoStop
		}},
		"zip": {-1, func(vm *VM, self object.Value, args []object.Value, blk *object.Proc) (object.Value, object.Stop) {
			vals, v, stop := vm.collect(self)
			if stop != object.NoStop {
				return v, stop
			}
			others := make([][]object.Value, len(args))
			for i, a := range args {
				o, v, stop := vm.collect(a)
				if stop != object.NoStop {
					return v, stop
				}
				others[i] = o
			}
			out := make([]object.Value, len(vals))
			for i, x := range vals {
				row := []object.Value{x}
				for _, o := range others {
					if i < len(o) {
						row = append(row, o[i])
					} else {
						row = append(row, object.NIL)
					}
				}
				out[i] = object.NewArray(row...)
			}
			if blk != nil {
				for _, row := range out {
					if v, stop := vm.yield1(blk, row); stop != object.NoStop {
						return v, stop
					}
				}
				return object.NIL, object.NoStop
			}
			return object.NewArray(out...), object.NoStop
		}},
		"uniq": {0, func(vm *VM, self object.Value, _ []object.Value, blk *object.Proc) (object.Value, object.Stop) {
			vals, v, stop := vm.collect(self)
			if stop != object.NoStop {
				return v, stop
			}
			out, v, stop := vm.uniq(vals, blk)
			if stop != object.NoStop {
				return v, stop
			}
			return object.NewArray(out...), object.NoStop
		}},
		"first": {-1, func(vm *VM, self object.Value, args []object.Value, _ *object.Proc) (object.Value, object.Stop) {
			if v, stop := vm.arity(args, 0, 1); stop != object.NoStop {
				return v, stop
			}
			if len(args) == 1 {
				n, v, stop := vm.intArg(args[0])
				if stop != object.NoStop {
					return v, stop
				}
				return enumTake(vm, self, n)
			}
			var first object.Value = object.NIL
			res, stop := vm.each(self, func(x object.Value) (bool, object.Value, object.Stop) {
				first = x
				return false, nil, object.NoStop
			})
			if stop != object.NoStop {
				return res, stop
			}
			return first, object.NoStop
		}},
		"take": {1, func(vm *VM, self object.Value, args []object.Value, _ *object.Proc) (object.Value, object.Stop) {
			n, v, stop := vm.intArg(args[0])
			if stop != object.NoStop {
				return v, stop
			}
			return enumTake(vm, self, n)
		}},
		"take_while": {0, func(vm *VM, self object.Value, _ []object.Value, blk *object.Proc) (object.Value, object.Stop) {
			if blk == nil {
				return enumFor(self, "take_while", nil), object.NoStop
			}
			var out []object.Value
			res, stop := vm.eachWithBlock(self, blk, func(x, v object.Value) bool {
				if !object.Truthy(v) {
					return false
				}
				out = append(out, x)
				return true
			})
			if stop != object.NoStop {
				return res, stop
			}
			return object.NewArray(out...), object.NoStop
		}},
		"drop": {1, func(vm *VM, self object.Value, args []object.Value, _ *object.Proc) (object.Value, object.Stop) {
			n, v, stop := vm.intArg(args[0])
			if stop != object.NoStop {
				return v, stop
			}
			if n < 0 {
				return vm.Raise(vm.rt.ArgumentErrorClass, "attempt to drop negative size")
			}
			vals, v, stop := vm.collect(self)
			if stop != object.NoStop {
				return v, stop
			}
			if int(n) > len(vals) {
				n = int64(len(vals))
			}
			return object.NewArray(append([]object.Value(nil), vals[n:]...)...), object.NoStop
		}},
		"drop_while": {0, func(vm *VM, self object.Value, _ []object.Value, blk *object.Proc) (object.Value, object.Stop) {
			if blk == nil {
				return enumFor(self, "drop_while", nil), object.NoStop
			}
			var out []object.Value
			dropping := true
			res, stop := vm.each(self, func(x object.Value) (bool, object.Value, object.Stop) {
				if dropping {
					v, stop := vm.yield1(blk, x)
					if stop != object.NoStop {
						return false, v, stop
					}
					if object.Truthy(v) {
						return true, nil, object.NoStop
					}
					dropping = false
				}
				out = append(out, x)
				return true, nil, object.NoStop
			})
			if stop != object.NoStop {
				return res, stop
			}
			return object.NewArray(out...), object.NoStop
		}},
		"include?":    {1, enumInclude},
		"member?":     {1, enumInclude},
		"to_a":        {-1, enumToA},
		"entries":     {-1, enumToA},
		"to_h":        {0, enumToH},
		"any?":        {-1, enumAny},
		"all?":        {-1, enumAll},
		"none?":       {-1, enumNone},
		"one?":        {-1, enumOne},
		"chunk_while": {0, enumChunk(false)},
		"slice_when":  {0, enumChunk(true)},
	}
}

// comparison is the <=> result Comparable builds on. ok is false when <=>
// returns nil.
func (vm *VM) comparison(a, b object.Value) (int, bool, object.Value, object.Stop) {
	res, stop := vm.send(a, "<=>", []object.Value{b}, nil, true)
	if stop != object.NoStop {
		return 0, false, res, stop
	}
	switch r := res.(type) {
	case *object.Integer:
		return cmp3(r.Value, 0), true, nil, object.NoStop
	case *object.Float:
		return cmpFloat(r.Value, 0), true, nil, object.NoStop
	}
	return 0, false, nil, object.NoStop
}

func comparableOp(accept func(c int) bool) builtinFunc {
	return func(vm *VM, self object.Value, args []object.Value, _ *object.Proc) (object.Value, object.Stop) {
		c, ok, v, stop := vm.comparison(self, args[0])
		if stop != object.NoStop {
			return v, stop
		}
		if !ok {
			return vm.Raise(vm.rt.ArgumentErrorClass, "comparison of %s with %s failed", vm.rt.RealClassOf(self).Name, vm.describeValue(args[0]))
		}
		return object.NativeToBool(accept(c)), object.NoStop
	}
}

func comparableMethods() map[string]builtin {
	return map[string]builtin{
		"==": {1, func(vm *VM, self object.Value, args []object.Value, _ *object.Proc) (object.Value, object.Stop) {
			if self == args[0] {
				return object.TRUE, object.NoStop
			}
			c, ok, v, stop := vm.comparison(self, args[0])
			if stop != object.NoStop {
				return v, stop
			}
			return object.NativeToBool(ok && c == 0), object.NoStop
		}},
		"<":  {1, comparableOp(func(c int) bool { return c < 0 })},
		"<=": {1, comparableOp(func(c int) bool { return c <= 0 })},
		">":  {1, comparableOp(func(c int) bool { return c > 0 })},
		">=": {1, comparableOp(func(c int) bool { return c >= 0 })},
		"between?": {2, func(vm *VM, self object.Value, args []object.Value, _ *object.Proc) (object.Value, object.Stop) {
			lo, v, stop := vm.compare(self, args[0])
			if stop != object.NoStop {
				return v, stop
			}
			hi, v, stop := vm.compare(self, args[1])
			if stop != object.NoStop {
				return v, stop
			}
			return object.NativeToBool(lo >= 0 && hi <= 0), object.NoStop
		}},
		"clamp": {-1, func(vm *VM, self object.Value, args []object.Value, _ *object.Proc) (object.Value, object.Stop) {
			if v, stop := vm.arity(args, 1, 2); stop != object.NoStop {
				return v, stop
			}
			var lo, hi object.Value
			if len(args) == 2 {
				lo, hi = args[0], args[1]
			} else {
				r, ok := args[0].(*object.Range)
				if !ok {
					return vm.Raise(vm.rt.TypeErrorClass, "wrong argument type %s (expected Range)", vm.typeName(args[0]))
				}
				if r.Exclusive && !isNil(r.End) {
					return vm.Raise(vm.rt.ArgumentErrorClass, "cannot clamp with an exclusive range")
				}
				lo, hi = r.Start, r.End
			}
			if !isNil(lo) && !isNil(hi) {
				c, v, stop := vm.compare(lo, hi)
				if stop != object.NoStop {
					return v, stop
				}
				if c > 0 {
					return vm.Raise(vm.rt.ArgumentErrorClass, "min argument must be less than or equal to max argument")
				}
			}
			if !isNil(lo) {
				c, v, stop := vm.compare(self, lo)
				if stop != object.NoStop {
					return v, stop
				}
				if c < 0 {
					return lo, object.NoStop
				}
			}
			if !isNil(hi) {
				c, v, stop := vm.compare(self, hi)
				if stop != object.NoStop {
					return v, stop
				}
				if c > 0 {
					return hi, object.NoStop
				}
			}
			return self, object.NoStop
		}},
	}
}
