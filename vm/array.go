package vm

import (
	"math/rand"
	"sort"
	"strings"

	"github.com/alexisbouchez/rubyvm/object"
)

func arrOf(v object.Value) *object.Array { return v.(*object.Array) }

// modifiable raises FrozenError when v may not change.
func (vm *VM) modifiable(v object.Value) (object.Value, object.Stop) {
	if isFrozen(v) {
		return vm.frozenError(v)
	}
	return nil, object.NoStop
}

// sortValues sorts vals in place with a comparison that may raise. The first
// failure stops the sort and is returned.
func (vm *VM) sortValues(vals []object.Value, cmp func(a, b object.Value) (int, object.Value, object.Stop)) (object.Value, object.Stop) {
	var failed object.Value
	stop := object.NoStop
	sort.SliceStable(vals, func(i, j int) bool {
		if stop != object.NoStop {
			return false
		}
		c, v, s := cmp(vals[i], vals[j])
		if s != object.NoStop {
			failed, stop = v, s
			return false
		}
		return c < 0
	})
	return failed, stop
}

// blockCompare orders by the block's <=> result.
func (vm *VM) blockCompare(blk *object.Proc) func(a, b object.Value) (int, object.Value, object.Stop) {
	if blk == nil {
		return vm.compare
	}
	return func(a, b object.Value) (int, object.Value, object.Stop) {
		res, stop := vm.CallBlock(blk, []object.Value{a, b})
		if stop != object.NoStop {
			return 0, res, stop
		}
		i, ok := res.(*object.Integer)
		if !ok {
			v, stop := vm.Raise(vm.rt.ArgumentErrorClass, "comparison of %s with %s failed", vm.rt.RealClassOf(a).Name, vm.describeValue(b))
			return 0, v, stop
		}
		return int(i.Value), nil, object.NoStop
	}
}

// arrayIndex resolves a possibly negative index, reporting false when it is
// out of range.
func arrayIndex(i int64, n int) (int, bool) {
	if i < 0 {
		i += int64(n)
	}
	return int(i), i >= 0 && i < int64(n)
}

// flatten appends the elements of vals to out, descending depth levels into
// nested arrays (all levels when depth < 0).
func (vm *VM) flatten(out []object.Value, vals []object.Value, depth int, seen map[*object.Array]bool) ([]object.Value, object.Value, object.Stop) {
	for _, v := range vals {
		arr, ok := v.(*object.Array)
		if !ok || depth == 0 {
			out = append(out, v)
			continue
		}
		if seen[arr] {
			res, stop := vm.Raise(vm.rt.ArgumentErrorClass, "tried to flatten recursive array")
			return nil, res, stop
		}
		seen[arr] = true
		var res object.Value
		var stop object.Stop
		out, res, stop = vm.flatten(out, arr.Elements, depth-1, seen)
		if stop != object.NoStop {
			return nil, res, stop
		}
		delete(seen, arr)
	}
	return out, nil, object.NoStop
}

// join renders elements with sep, joining nested arrays recursively.
func (vm *VM) join(sb *strings.Builder, arr *object.Array, sep string, seen map[*object.Array]bool) (object.Value, object.Stop) {
	if seen[arr] {
		return vm.Raise(vm.rt.ArgumentErrorClass, "recursive array join")
	}
	seen[arr] = true
	defer delete(seen, arr)
	for i, e := range arr.Elements {
		if i > 0 {
			sb.WriteString(sep)
		}
		if nested, ok := e.(*object.Array); ok {
			if v, stop := vm.join(sb, nested, sep, seen); stop != object.NoStop {
				return v, stop
			}
			continue
		}
		s, v, stop := vm.str(e)
		if stop != object.NoStop {
			return v, stop
		}
		sb.WriteString(s)
	}
	return nil, object.NoStop
}

// indexOf finds the first element equal to target, or matching blk.
func (vm *VM) indexOf(vals []object.Value, args []object.Value, blk *object.Proc, reverse bool) (object.Value, object.Stop) {
	for k := range vals {
		i := k
		if reverse {
			i = len(vals) - 1 - k
		}
		var hit bool
		if len(args) > 0 {
			eq, v, stop := vm.equal(vals[i], args[0])
			if stop != object.NoStop {
				return v, stop
			}
			hit = eq
		} else {
			res, stop := vm.yield1(blk, vals[i])
			if stop != object.NoStop {
				return res, stop
			}
			hit = object.Truthy(res)
		}
		if hit {
			return &object.Integer{Value: int64(i)}, object.NoStop
		}
	}
	return object.NIL, object.NoStop
}

// uniq keeps the first element of each hash-key class, keyed by the block
// result when given.
func (vm *VM) uniq(vals []object.Value, blk *object.Proc) ([]object.Value, object.Value, object.Stop) {
	seen := map[object.HashKey]bool{}
	out := make([]object.Value, 0, len(vals))
	for _, v := range vals {
		key := v
		if blk != nil {
			res, stop := vm.yield1(blk, v)
			if stop != object.NoStop {
				return nil, res, stop
			}
			key = res
		}
		hk := object.HashKeyOf(key)
		if seen[hk] {
			continue
		}
		seen[hk] = true
		out = append(out, v)
	}
	return out, nil, object.NoStop
}

// filterInPlace keeps the elements for which blk's truthiness equals keep,
// reporting whether anything was removed.
func (vm *VM) filterInPlace(arr *object.Array, blk *object.Proc, keep bool) (bool, object.Value, object.Stop) {
	out := arr.Elements[:0:0]
	for _, e := range arr.Elements {
		res, stop := vm.yield1(blk, e)
		if stop != object.NoStop {
			return false, res, stop
		}
		if object.Truthy(res) == keep {
			out = append(out, e)
		}
	}
	changed := len(out) != len(arr.Elements)
	arr.Elements = out
	return changed, nil, object.NoStop
}

func (vm *VM) arrayArg(v object.Value) (*object.Array, object.Value, object.Stop) {
	if arr, ok := v.(*object.Array); ok {
		return arr, nil, object.NoStop
	}
	if vm.respondTo(v, "to_ary", true) {
		res, stop := vm.send(v, "to_ary", nil, nil, true)
		if stop != object.NoStop {
			return nil, res, stop
		}
		if arr, ok := res.(*object.Array); ok {
			return arr, nil, object.NoStop
		}
	}
	res, stop := vm.Raise(vm.rt.TypeErrorClass, "no implicit conversion of %s into Array", vm.typeName(v))
	return nil, res, stop
}

func arrayClassMethods() map[string]builtin {
	return map[string]builtin{
		"[]": {-1, func(vm *VM, _ object.Value, args []object.Value, _ *object.Proc) (object.Value, object.Stop) {
			return object.NewArray(append([]object.Value(nil), args...)...), object.NoStop
		}},
	}
}

func arrayMethods() map[string]builtin {
	return map[string]builtin{
		"initialize": {-1, func(vm *VM, self object.Value, args []object.Value, blk *object.Proc) (object.Value, object.Stop) {
			if v, stop := vm.arity(args, 0, 2); stop != object.NoStop {
				return v, stop
			}
			arr := arrOf(self)
			if len(args) == 0 {
				return object.NIL, object.NoStop
			}
			if src, ok := args[0].(*object.Array); ok && len(args) == 1 {
				arr.Elements = append([]object.Value(nil), src.Elements...)
				return object.NIL, object.NoStop
			}
			n, v, stop := vm.intArg(args[0])
			if stop != object.NoStop {
				return v, stop
			}
			if n < 0 {
				return vm.Raise(vm.rt.ArgumentErrorClass, "negative array size")
			}
			var fill object.Value = object.NIL
			if len(args) == 2 {
				fill = args[1]
			}
			arr.Elements = make([]object.Value, n)
			for i := range arr.Elements {
				if blk != nil {
					res, stop := vm.yield1(blk, &object.Integer{Value: int64(i)})
					if stop != object.NoStop {
						return res, stop
					}
					arr.Elements[i] = res
					continue
				}
				arr.Elements[i] = fill
			}
			return object.NIL, object.NoStop
		}},
		"initialize_copy": {1, arrReplace},
		"replace":         {1, arrReplace},
		"inspect":         {0, arrInspect},
		"to_s":            {0, arrInspect},
		"to_a":            {0, arrSelf},
		"to_ary":          {0, arrSelf},
		"entries":         {0, arrSelf},
		"==": {1, func(vm *VM, self object.Value, args []object.Value, _ *object.Proc) (object.Value, object.Stop) {
			other, ok := args[0].(*object.Array)
			if !ok {
				return object.FALSE, object.NoStop
			}
			a := arrOf(self)
			if a == other {
				return object.TRUE, object.NoStop
			}
			if len(a.Elements) != len(other.Elements) {
				return object.FALSE, object.NoStop
			}
			for i := range a.Elements {
				eq, v, stop := vm.equal(a.Elements[i], other.Elements[i])
				if stop != object.NoStop {
					return v, stop
				}
				if !eq {
					return object.FALSE, object.NoStop
				}
			}
			return object.TRUE, object.NoStop
		}},
		"eql?": {1, func(vm *VM, self object.Value, args []object.Value, _ *object.Proc) (object.Value, object.Stop) {
			_, ok := args[0].(*object.Array)
			return object.NativeToBool(ok && eql(self, args[0])), object.NoStop
		}},
		"<=>": {1, func(vm *VM, self object.Value, args []object.Value, _ *object.Proc) (object.Value, object.Stop) {
			other, ok := args[0].(*object.Array)
			if !ok {
				return object.NIL, object.NoStop
			}
			a := arrOf(self).Elements
			for i := 0; i < len(a) && i < len(other.Elements); i++ {
				c, v, stop := vm.compare(a[i], other.Elements[i])
				if stop != object.NoStop {
					return v, stop
				}
				if c != 0 {
					return &object.Integer{Value: int64(c)}, object.NoStop
				}
			}
			return &object.Integer{Value: int64(cmp3(int64(len(a)), int64(len(other.Elements))))}, object.NoStop
		}},
		"[]":    {-1, arrSlice},
		"slice": {-1, arrSlice},
		"[]=":   {-1, arrSetIndex},
		"at": {1, func(vm *VM, self object.Value, args []object.Value, _ *object.Proc) (object.Value, object.Stop) {
			return arrSlice(vm, self, args, nil)
		}},
		"dig": {-1, func(vm *VM, self object.Value, args []object.Value, _ *object.Proc) (object.Value, object.Stop) {
			return vm.dig(self, args)
		}},
		"fetch": {-1, func(vm *VM, self object.Value, args []object.Value, blk *object.Proc) (object.Value, object.Stop) {
			if v, stop := vm.arity(args, 1, 2); stop != object.NoStop {
				return v, stop
			}
			n, v, stop := vm.intArg(args[0])
			if stop != object.NoStop {
				return v, stop
			}
			a := arrOf(self).Elements
			if i, ok := arrayIndex(n, len(a)); ok {
				return a[i], object.NoStop
			}
			switch {
			case blk != nil:
				return vm.yield1(blk, args[0])
			case len(args) == 2:
				return args[1], object.NoStop
			}
			return vm.Raise(vm.rt.IndexErrorClass, "index %d outside of array bounds: %d...%d", n, -len(a), len(a))
		}},
		"first": {-1, func(vm *VM, self object.Value, args []object.Value, _ *object.Proc) (object.Value, object.Stop) {
			return vm.arrayEnd(arrOf(self), args, false)
		}},
		"last": {-1, func(vm *VM, self object.Value, args []object.Value, _ *object.Proc) (object.Value, object.Stop) {
			return vm.arrayEnd(arrOf(self), args, true)
		}},
		"push":   {-1, arrPush},
		"append": {-1, arrPush},
		"<<": {1, func(vm *VM, self object.Value, args []object.Value, blk *object.Proc) (object.Value, object.Stop) {
			return arrPush(vm, self, args, blk)
		}},
		"pop": {-1, func(vm *VM, self object.Value, args []object.Value, _ *object.Proc) (object.Value, object.Stop) {
			return vm.arrayTake(self, args, true)
		}},
		"shift": {-1, func(vm *VM, self object.Value, args []object.Value, _ *object.Proc) (object.Value, object.Stop) {
			return vm.arrayTake(self, args, false)
		}},
		"unshift": {-1, arrUnshift},
		"prepend": {-1, arrUnshift},
		"insert": {-1, func(vm *VM, self object.Value, args []object.Value, _ *object.Proc) (object.Value, object.Stop) {
			if v, stop := vm.modifiable(self); stop != object.NoStop {
				return v, stop
			}
			if v, stop := vm.arity(args, 1, -1); stop != object.NoStop {
				return v, stop
			}
			n, v, stop := vm.intArg(args[0])
			if stop != object.NoStop {
				return v, stop
			}
			arr := arrOf(self)
			size := int64(len(arr.Elements))
			if n < 0 {
				n += size + 1
			}
			if n < 0 {
				return vm.Raise(vm.rt.IndexErrorClass, "index %d too small for array; minimum: -%d", n-size-1, size+1)
			}
			for int64(len(arr.Elements)) < n {
				arr.Elements = append(arr.Elements, object.NIL)
			}
			rest := append([]object.Value(nil), arr.Elements[n:]...)
			arr.Elements = append(append(arr.Elements[:n], args[1:]...), rest...)
			return self, object.NoStop
		}},
		"concat": {-1, func(vm *VM, self object.Value, args []object.Value, _ *object.Proc) (object.Value, object.Stop) {
			if v, stop := vm.modifiable(self); stop != object.NoStop {
				return v, stop
			}
			arr := arrOf(self)
			var add []object.Value
			for _, a := range args {
				other, v, stop := vm.arrayArg(a)
				if stop != object.NoStop {
					return v, stop
				}
				add = append(add, other.Elements...)
			}
			arr.Elements = append(arr.Elements, add...)
			return self, object.NoStop
		}},
		"+": {1, func(vm *VM, self object.Value, args []object.Value, _ *object.Proc) (object.Value, object.Stop) {
			other, v, stop := vm.arrayArg(args[0])
			if stop != object.NoStop {
				return v, stop
			}
			a := arrOf(self).Elements
			out := make([]object.Value, 0, len(a)+len(other.Elements))
			return object.NewArray(append(append(out, a...), other.Elements...)...), object.NoStop
		}},
		"-":          {1, arrDifference},
		"difference": {-1, arrDifference},
		"*": {1, func(vm *VM, self object.Value, args []object.Value, _ *object.Proc) (object.Value, object.Stop) {
			if sep, ok := args[0].(*object.String); ok {
				var sb strings.Builder
				if v, stop := vm.join(&sb, arrOf(self), sep.Value, map[*object.Array]bool{}); stop != object.NoStop {
					return v, stop
				}
				return newStr(sb.String())
			}
			n, v, stop := vm.intArg(args[0])
			if stop != object.NoStop {
				return v, stop
			}
			if n < 0 {
				return vm.Raise(vm.rt.ArgumentErrorClass, "negative argument")
			}
			var out []object.Value
			for i := int64(0); i < n; i++ {
				out = append(out, arrOf(self).Elements...)
			}
			return object.NewArray(out...), object.NoStop
		}},
		"&":            {1, arrIntersection},
		"intersection": {-1, arrIntersection},
		"intersect?": {1, func(vm *VM, self object.Value, args []object.Value, blk *object.Proc) (object.Value, object.Stop) {
			res, stop := arrIntersection(vm, self, args, blk)
			if stop != object.NoStop {
				return res, stop
			}
			return object.NativeToBool(len(arrOf(res).Elements) > 0), object.NoStop
		}},
		"|":     {1, arrUnion},
		"union": {-1, arrUnion},
		"length": {0, arrLength},
		"size":   {0, arrLength},
		"empty?": {0, func(vm *VM, self object.Value, _ []object.Value, _ *object.Proc) (object.Value, object.Stop) {
			return object.NativeToBool(len(arrOf(self).Elements) == 0), object.NoStop
		}},
		"include?": {1, arrInclude},
		"member?":  {1, arrInclude},
		"index":      {-1, arrIndex(false)},
		"find_index": {-1, arrIndex(false)},
		"rindex":     {-1, arrIndex(true)},
		"join": {-1, func(vm *VM, self object.Value, args []object.Value, _ *object.Proc) (object.Value, object.Stop) {
			if v, stop := vm.arity(args, 0, 1); stop != object.NoStop {
				return v, stop
			}
			sep := ""
			sepValue := vm.globalGet("$,")
			if len(args) == 1 {
				sepValue = args[0]
			}
			if _, isNil := sepValue.(*object.Nil); !isNil {
				s, v, stop := vm.strArg(sepValue)
				if stop != object.NoStop {
					return v, stop
				}
				sep = s
			}
			var sb strings.Builder
			if v, stop := vm.join(&sb, arrOf(self), sep, map[*object.Array]bool{}); stop != object.NoStop {
				return v, stop
			}
			return newStr(sb.String())
		}},
		"reverse": {0, func(vm *VM, self object.Value, _ []object.Value, _ *object.Proc) (object.Value, object.Stop) {
			a := arrOf(self).Elements
			out := make([]object.Value, len(a))
			for i, e := range a {
				out[len(a)-1-i] = e
			}
			return object.NewArray(out...), object.NoStop
		}},
		"reverse!": {0, func(vm *VM, self object.Value, _ []object.Value, _ *object.Proc) (object.Value, object.Stop) {
			if v, stop := vm.modifiable(self); stop != object.NoStop {
				return v, stop
			}
			a := arrOf(self).Elements
			for i, j := 0, len(a)-1; i < j; i, j = i+1, j-1 {
				a[i], a[j] = a[j], a[i]
			}
			return self, object.NoStop
		}},
		"rotate": {-1, func(vm *VM, self object.Value, args []object.Value, _ *object.Proc) (object.Value, object.Stop) {
			if v, stop := vm.arity(args, 0, 1); stop != object.NoStop {
				return v, stop
			}
			n := int64(1)
			if len(args) == 1 {
				k, v, stop := vm.intArg(args[0])
				if stop != object.NoStop {
					return v, stop
				}
				n = k
			}
			a := arrOf(self).Elements
			if len(a) == 0 {
				return object.NewArray(), object.NoStop
			}
			r, _ := floorMod(n, int64(len(a)))
			k := int(r)
			out := append(append([]object.Value(nil), a[k:]...), a[:k]...)
			return object.NewArray(out...), object.NoStop
		}},
		"sort": {0, func(vm *VM, self object.Value, _ []object.Value, blk *object.Proc) (object.Value, object.Stop) {
			out := append([]object.Value(nil), arrOf(self).Elements...)
			if v, stop := vm.sortValues(out, vm.blockCompare(blk)); stop != object.NoStop {
				return v, stop
			}
			return object.NewArray(out...), object.NoStop
		}},
		"sort!": {0, func(vm *VM, self object.Value, _ []object.Value, blk *object.Proc) (object.Value, object.Stop) {
			if v, stop := vm.modifiable(self); stop != object.NoStop {
				return v, stop
			}
			if v, stop := vm.sortValues(arrOf(self).Elements, vm.blockCompare(blk)); stop != object.NoStop {
				return v, stop
			}
			return self, object.NoStop
		}},
		"sort_by!": {0, func(vm *VM, self object.Value, _ []object.Value, blk *object.Proc) (object.Value, object.Stop) {
			if blk == nil {
				return enumFor(self, "sort_by!", nil), object.NoStop
			}
			if v, stop := vm.modifiable(self); stop != object.NoStop {
				return v, stop
			}
			sorted, v, stop := vm.sortBy(arrOf(self).Elements, blk)
			if stop != object.NoStop {
				return v, stop
			}
			arrOf(self).Elements = sorted
			return self, object.NoStop
		}},
		"map!":     {0, arrMapInPlace},
		"collect!": {0, arrMapInPlace},
		"select!":  {0, arrFilterBang("select!", true, true)},
		"filter!":  {0, arrFilterBang("filter!", true, true)},
		"keep_if":  {0, arrFilterBang("keep_if", true, false)},
		"reject!":  {0, arrFilterBang("reject!", false, true)},
		"delete_if": {0, arrFilterBang("delete_if", false, false)},
		"uniq": {0, func(vm *VM, self object.Value, _ []object.Value, blk *object.Proc) (object.Value, object.Stop) {
			out, v, stop := vm.uniq(arrOf(self).Elements, blk)
			if stop != object.NoStop {
				return v, stop
			}
			return object.NewArray(out...), object.NoStop
		}},
		"uniq!": {0, func(vm *VM, self object.Value, _ []object.Value, blk *object.Proc) (object.Value, object.Stop) {
			if v, stop := vm.modifiable(self); stop != object.NoStop {
				return v, stop
			}
			arr := arrOf(self)
			out, v, stop := vm.uniq(arr.Elements, blk)
			if stop != object.NoStop {
				return v, stop
			}
			if len(out) == len(arr.Elements) {
				return object.NIL, object.NoStop
			}
			arr.Elements = out
			return self, object.NoStop
		}},
		"compact": {0, func(vm *VM, self object.Value, _ []object.Value, _ *object.Proc) (object.Value, object.Stop) {
			return object.NewArray(compact(arrOf(self).Elements)...), object.NoStop
		}},
		"compact!": {0, func(vm *VM, self object.Value, _ []object.Value, _ *object.Proc) (object.Value, object.Stop) {
			if v, stop := vm.modifiable(self); stop != object.NoStop {
				return v, stop
			}
			arr := arrOf(self)
			out := compact(arr.Elements)
			if len(out) == len(arr.Elements) {
				return object.NIL, object.NoStop
			}
			arr.Elements = out
			return self, object.NoStop
		}},
		"flatten": {-1, func(vm *VM, self object.Value, args []object.Value, _ *object.Proc) (object.Value, object.Stop) {
			depth, v, stop := vm.flattenDepth(args)
			if stop != object.NoStop {
				return v, stop
			}
			out, v, stop := vm.flatten(nil, arrOf(self).Elements, depth, map[*object.Array]bool{arrOf(self): true})
			if stop != object.NoStop {
				return v, stop
			}
			return object.NewArray(out...), object.NoStop
		}},
		"flatten!": {-1, func(vm *VM, self object.Value, args []object.Value, _ *object.Proc) (object.Value, object.Stop) {
			if v, stop := vm.modifiable(self); stop != object.NoStop {
				return v, stop
			}
			depth, v, stop := vm.flattenDepth(args)
			if stop != object.NoStop {
				return v, stop
			}
			arr := arrOf(self)
			out, v, stop := vm.flatten(nil, arr.Elements, depth, map[*object.Array]bool{arr: true})
			if stop != object.NoStop {
				return v, stop
			}
			arr.Elements = out
			return self, object.NoStop
		}},
		"delete": {1, func(vm *VM, self object.Value, args []object.Value, blk *object.Proc) (object.Value, object.Stop) {
			if v, stop := vm.modifiable(self); stop != object.NoStop {
				return v, stop
			}
			arr := arrOf(self)
			var found object.Value
			out := arr.Elements[:0:0]
			for _, e := range arr.Elements {
				eq, v, stop := vm.equal(e, args[0])
				if stop != object.NoStop {
					return v, stop
				}
				if eq {
					found = e
					continue
				}
				out = append(out, e)
			}
			arr.Elements = out
			if found == nil {
				if blk != nil {
					return vm.yield1(blk, args[0])
				}
				return object.NIL, object.NoStop
			}
			return found, object.NoStop
		}},
		"delete_at": {1, func(vm *VM, self object.Value, args []object.Value, _ *object.Proc) (object.Value, object.Stop) {
			if v, stop := vm.modifiable(self); stop != object.NoStop {
				return v, stop
			}
			n, v, stop := vm.intArg(args[0])
			if stop != object.NoStop {
				return v, stop
			}
			arr := arrOf(self)
			i, ok := arrayIndex(n, len(arr.Elements))
			if !ok {
				return object.NIL, object.NoStop
			}
			e := arr.Elements[i]
			arr.Elements = append(arr.Elements[:i:i], arr.Elements[i+1:]...)
			return e, object.NoStop
		}},
		"slice!": {-1, func(vm *VM, self object.Value, args []object.Value, blk *object.Proc) (object.Value, object.Stop) {
			if v, stop := vm.modifiable(self); stop != object.NoStop {
				return v, stop
			}
			arr := arrOf(self)
			start, length, single, ok, v, stop := vm.sliceBounds(args, len(arr.Elements))
			if stop != object.NoStop {
				return v, stop
			}
			if !ok {
				return object.NIL, object.NoStop
			}
			removed := append([]object.Value(nil), arr.Elements[start:start+length]...)
			arr.Elements = append(arr.Elements[:start:start], arr.Elements[start+length:]...)
			if single {
				return removed[0], object.NoStop
			}
			return object.NewArray(removed...), object.NoStop
		}},
		"clear": {0, func(vm *VM, self object.Value, _ []object.Value, _ *object.Proc) (object.Value, object.Stop) {
			if v, stop := vm.modifiable(self); stop != object.NoStop {
				return v, stop
			}
			arrOf(self).Elements = []object.Value{}
			return self, object.NoStop
		}},
		"fill": {-1, func(vm *VM, self object.Value, args []object.Value, blk *object.Proc) (object.Value, object.Stop) {
			if v, stop := vm.modifiable(self); stop != object.NoStop {
				return v, stop
			}
			arr := arrOf(self)
			if blk == nil {
				if v, stop := vm.arity(args, 1, 1); stop != object.NoStop {
					return v, stop
				}
				for i := range arr.Elements {
					arr.Elements[i] = args[0]
				}
				return self, object.NoStop
			}
			for i := range arr.Elements {
				res, stop := vm.yield1(blk, &object.Integer{Value: int64(i)})
				if stop != object.NoStop {
					return res, stop
				}
				arr.Elements[i] = res
			}
			return self, object.NoStop
		}},
		"each": {0, func(vm *VM, self object.Value, _ []object.Value, blk *object.Proc) (object.Value, object.Stop) {
			if blk == nil {
				return enumFor(self, "each", nil), object.NoStop
			}
			arr := arrOf(self)
			for i := 0; i < len(arr.Elements); i++ {
				if v, stop := vm.yield1(blk, arr.Elements[i]); stop != object.NoStop {
					return v, stop
				}
			}
			return self, object.NoStop
		}},
		"each_index": {0, func(vm *VM, self object.Value, _ []object.Value, blk *object.Proc) (object.Value, object.Stop) {
			if blk == nil {
				return enumFor(self, "each_index", nil), object.NoStop
			}
			arr := arrOf(self)
			for i := 0; i < len(arr.Elements); i++ {
				if v, stop := vm.yield1(blk, &object.Integer{Value: int64(i)}); stop != object.NoStop {
					return v, stop
				}
			}
			return self, object.NoStop
		}},
		"map": {0, func(vm *VM, self object.Value, _ []object.Value, blk *object.Proc) (object.Value, object.Stop) {
			if blk == nil {
				return enumFor(self, "map", nil), object.NoStop
			}
			arr := arrOf(self)
			out := make([]object.Value, 0, len(arr.Elements))
			for i := 0; i < len(arr.Elements); i++ {
				v, stop := vm.yield1(blk, arr.Elements[i])
				if stop != object.NoStop {
					return v, stop
				}
				out = append(out, v)
			}
			return object.NewArray(out...), object.NoStop
		}},
		"values_at": {-1, func(vm *VM, self object.Value, args []object.Value, _ *object.Proc) (object.Value, object.Stop) {
			a := arrOf(self).Elements
			out := make([]object.Value, 0, len(args))
			for _, arg := range args {
				n, v, stop := vm.intArg(arg)
				if stop != object.NoStop {
					return v, stop
				}
				if i, ok := arrayIndex(n, len(a)); ok {
					out = append(out, a[i])
				} else {
					out = append(out, object.NIL)
				}
			}
			return object.NewArray(out...), object.NoStop
		}},
		"assoc": {1, func(vm *VM, self object.Value, args []object.Value, _ *object.Proc) (object.Value, object.Stop) {
			for _, e := range arrOf(self).Elements {
				pair, ok := e.(*object.Array)
				if !ok || len(pair.Elements) == 0 {
					continue
				}
				eq, v, stop := vm.equal(pair.Elements[0], args[0])
				if stop != object.NoStop {
					return v, stop
				}
				if eq {
					return pair, object.NoStop
				}
			}
			return object.NIL, object.NoStop
		}},
		"transpose": {0, func(vm *VM, self object.Value, _ []object.Value, _ *object.Proc) (object.Value, object.Stop) {
			rows := arrOf(self).Elements
			if len(rows) == 0 {
				return object.NewArray(), object.NoStop
			}
			width := -1
			var matrix [][]object.Value
			for _, r := range rows {
				row, v, stop := vm.arrayArg(r)
				if stop != object.NoStop {
					return v, stop
				}
				if width >= 0 && len(row.Elements) != width {
					return vm.Raise(vm.rt.IndexErrorClass, "element size differs (%d should be %d)", len(row.Elements), width)
				}
				width = len(row.Elements)
				matrix = append(matrix, row.Elements)
			}
			out := make([]object.Value, width)
			for j := 0; j < width; j++ {
				col := make([]object.Value, len(matrix))
				for i := range matrix {
					col[i] = matrix[i][j]
				}
				out[j] = object.NewArray(col...)
			}
			return object.NewArray(out...), object.NoStop
		}},
		"product": {-1, func(vm *VM, self object.Value, args []object.Value, _ *object.Proc) (object.Value, object.Stop) {
			lists := [][]object.Value{arrOf(self).Elements}
			for _, a := range args {
				arr, v, stop := vm.arrayArg(a)
				if stop != object.NoStop {
					return v, stop
				}
				lists = append(lists, arr.Elements)
			}
			combos := [][]object.Value{{}}
			for _, list := range lists {
				var next [][]object.Value
				for _, c := range combos {
					for _, e := range list {
						next = append(next, append(append([]object.Value(nil), c...), e))
					}
				}
				combos = next
			}
			out := make([]object.Value, len(combos))
			for i, c := range combos {
				out[i] = object.NewArray(c...)
			}
			return object.NewArray(out...), object.NoStop
		}},
		"combination": {1, func(vm *VM, self object.Value, args []object.Value, blk *object.Proc) (object.Value, object.Stop) {
			k, v, stop := vm.intArg(args[0])
			if stop != object.NoStop {
				return v, stop
			}
			return vm.emitAll(self, "combination", args, blk, combinations(arrOf(self).Elements, int(k)))
		}},
		"permutation": {-1, func(vm *VM, self object.Value, args []object.Value, blk *object.Proc) (object.Value, object.Stop) {
			if v, stop := vm.arity(args, 0, 1); stop != object.NoStop {
				return v, stop
			}
			a := arrOf(self).Elements
			k := int64(len(a))
			if len(args) == 1 {
				n, v, stop := vm.intArg(args[0])
				if stop != object.NoStop {
					return v, stop
				}
				k = n
			}
			return vm.emitAll(self, "permutation", args, blk, permutations(a, int(k)))
		}},
		"shuffle": {-1, func(vm *VM, self object.Value, _ []object.Value, _ *object.Proc) (object.Value, object.Stop) {
			out := append([]object.Value(nil), arrOf(self).Elements...)
			rand.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
			return object.NewArray(out...), object.NoStop
		}},
		"sample": {-1, func(vm *VM, self object.Value, _ []object.Value, _ *object.Proc) (object.Value, object.Stop) {
			a := arrOf(self).Elements
			if len(a) == 0 {
				return object.NIL, object.NoStop
			}
			return a[rand.Intn(len(a))], object.NoStop
		}},
		"cycle": {-1, func(vm *VM, self object.Value, args []object.Value, blk *object.Proc) (object.Value, object.Stop) {
			if v, stop := vm.arity(args, 0, 1); stop != object.NoStop {
				return v, stop
			}
			if blk == nil {
				return enumFor(self, "cycle", args), object.NoStop
			}
			forever, times := true, int64(0)
			if len(args) == 1 && !isNil(args[0]) {
				n, v, stop := vm.intArg(args[0])
				if stop != object.NoStop {
					return v, stop
				}
				forever, times = false, n
			}
			arr := arrOf(self)
			for round := int64(0); forever || round < times; round++ {
				if len(arr.Elements) == 0 {
					break
				}
				for i := 0; i < len(arr.Elements); i++ {
					if v, stop := vm.tick(); stop != object.NoStop {
						return v, stop
					}
					if v, stop := vm.yield1(blk, arr.Elements[i]); stop != object.NoStop {
						return v, stop
					}
				}
			}
			return object.NIL, object.NoStop
		}},
		"bsearch": {0, func(vm *VM, self object.Value, _ []object.Value, blk *object.Proc) (object.Value, object.Stop) {
			if blk == nil {
				return enumFor(self, "bsearch", nil), object.NoStop
			}
			a := arrOf(self).Elements
			lo, hi := 0, len(a)
			for lo < hi {
				mid := (lo + hi) / 2
				res, stop := vm.yield1(blk, a[mid])
				if stop != object.NoStop {
					return res, stop
				}
				if i, ok := res.(*object.Integer); ok {
					switch {
					case i.Value == 0:
						return a[mid], object.NoStop
					case i.Value < 0:
						hi = mid
					default:
						lo = mid + 1
					}
					continue
				}
				if object.Truthy(res) {
					hi = mid
				} else {
					lo = mid + 1
				}
			}
			if lo < len(a) {
				res, stop := vm.yield1(blk, a[lo])
				if stop != object.NoStop {
					return res, stop
				}
				if res == object.Value(object.TRUE) {
					return a[lo], object.NoStop
				}
			}
			return object.NIL, object.NoStop
		}},
		"hash": {0, func(vm *VM, self object.Value, _ []object.Value, _ *object.Proc) (object.Value, object.Stop) {
			return &object.Integer{Value: hashOf(object.HashKeyOf(self), vm)}, object.NoStop
		}},
	}
}

func arrSelf(vm *VM, self object.Value, _ []object.Value, _ *object.Proc) (object.Value, object.Stop) {
	return self, object.NoStop
}

func arrInspect(vm *VM, self object.Value, _ []object.Value, _ *object.Proc) (object.Value, object.Stop) {
	return newStr(vm.inspect(self))
}

func arrLength(vm *VM, self object.Value, _ []object.Value, _ *object.Proc) (object.Value, object.Stop) {
	return &object.Integer{Value: int64(len(arrOf(self).Elements))}, object.NoStop
}

func arrReplace(vm *VM, self object.Value, args []object.Value, _ *object.Proc) (object.Value, object.Stop) {
	if v, stop := vm.modifiable(self); stop != object.NoStop {
		return v, stop
	}
	other, v, stop := vm.arrayArg(args[0])
	if stop != object.NoStop {
		return v, stop
	}
	arrOf(self).Elements = append([]object.Value(nil), other.Elements...)
	return self, object.NoStop
}

func arrPush(vm *VM, self object.Value, args []object.Value, _ *object.Proc) (object.Value, object.Stop) {
	if v, stop := vm.modifiable(self); stop != object.NoStop {
		return v, stop
	}
	arr := arrOf(self)
	arr.Elements = append(arr.Elements, args...)
	return self, object.NoStop
}

func arrUnshift(vm *VM, self object.Value, args []object.Value, _ *object.Proc) (object.Value, object.Stop) {
	if v, stop := vm.modifiable(self); stop != object.NoStop {
		return v, stop
	}
	arr := arrOf(self)
	arr.Elements = append(append([]object.Value(nil), args...), arr.Elements...)
	return self, object.NoStop
}

func arrInclude(vm *VM, self object.Value, args []object.Value, _ *object.Proc) (object.Value, object.Stop) {
	for _, e := range arrOf(self).Elements {
		eq, v, stop := vm.equal(e, args[0])
		if stop != object.NoStop {
			return v, stop
		}
		if eq {
			return object.TRUE, object.NoStop
		}
	}
	return object.FALSE, object.NoStop
}

func arrIndex(reverse bool) builtinFunc {
	return func(vm *VM, self object.Value, args []object.Value, blk *object.Proc) (object.Value, object.Stop) {
		if v, stop := vm.arity(args, 0, 1); stop != object.NoStop {
			return v, stop
		}
		if len(args) == 0 && blk == nil {
			return enumFor(self, "index", nil), object.NoStop
		}
		return vm.indexOf(arrOf(self).Elements, args, blk, reverse)
	}
}

func arrSlice(vm *VM, self object.Value, args []object.Value, _ *object.Proc) (object.Value, object.Stop) {
	a := arrOf(self).Elements
	start, length, single, ok, v, stop := vm.sliceBounds(args, len(a))
	if stop != object.NoStop {
		return v, stop
	}
	if !ok {
		return object.NIL, object.NoStop
	}
	if single {
		return a[start], object.NoStop
	}
	return object.NewArray(append([]object.Value(nil), a[start:start+length]...)...), object.NoStop
}

func arrSetIndex(vm *VM, self object.Value, args []object.Value, _ *object.Proc) (object.Value, object.Stop) {
	if v, stop := vm.modifiable(self); stop != object.NoStop {
		return v, stop
	}
	if v, stop := vm.arity(args, 2, 3); stop != object.NoStop {
		return v, stop
	}
	arr := arrOf(self)
	value := args[len(args)-1]
	if idx, ok := args[0].(*object.Integer); ok && len(args) == 2 {
		i := idx.Value
		if i < 0 {
			i += int64(len(arr.Elements))
		}
		if i < 0 {
			return vm.Raise(vm.rt.IndexErrorClass, "index %d too small for array; minimum: -%d", idx.Value, len(arr.Elements))
		}
		for int64(len(arr.Elements)) <= i {
			arr.Elements = append(arr.Elements, object.NIL)
		}
		arr.Elements[i] = value
		return value, object.NoStop
	}

	var start, length int
	sel := args[:len(args)-1]
	if r, ok := sel[0].(*object.Range); ok && len(sel) == 1 {
		lo, hi, okb := r.IntBounds(len(arr.Elements))
		if !okb || lo < 0 {
			return vm.Raise(vm.rt.RangeErrorClass, "%s out of range", vm.inspect(r))
		}
		start, length = lo, hi-lo+1
	} else {
		s, v, stop := vm.intArg(sel[0])
		if stop != object.NoStop {
			return v, stop
		}
		l, v, stop := vm.intArg(sel[1])
		if stop != object.NoStop {
			return v, stop
		}
		if s < 0 {
			s += int64(len(arr.Elements))
		}
		if s < 0 || l < 0 {
			return vm.Raise(vm.rt.IndexErrorClass, "index %d too small for array", s)
		}
		start, length = int(s), int(l)
	}
	if length < 0 {
		length = 0
	}
	for len(arr.Elements) < start {
		arr.Elements = append(arr.Elements, object.NIL)
	}
	if start+length > len(arr.Elements) {
		length = len(arr.Elements) - start
	}
	repl := []object.Value{value}
	if a, ok := value.(*object.Array); ok {
		repl = a.Elements
	}
	tail := append([]object.Value(nil), arr.Elements[start+length:]...)
	arr.Elements = append(append(arr.Elements[:start], repl...), tail...)
	return value, object.NoStop
}

// arrayEnd implements first and last.
func (vm *VM) arrayEnd(arr *object.Array, args []object.Value, last bool) (object.Value, object.Stop) {
	if v, stop := vm.arity(args, 0, 1); stop != object.NoStop {
		return v, stop
	}
	a := arr.Elements
	if len(args) == 0 {
		if len(a) == 0 {
			return object.NIL, object.NoStop
		}
		if last {
			return a[len(a)-1], object.NoStop
		}
		return a[0], object.NoStop
	}
	n, v, stop := vm.intArg(args[0])
	if stop != object.NoStop {
		return v, stop
	}
	if n < 0 {
		return vm.Raise(vm.rt.ArgumentErrorClass, "negative array size")
	}
	if int(n) > len(a) {
		n = int64(len(a))
	}
	if last {
		return object.NewArray(append([]object.Value(nil), a[len(a)-int(n):]...)...), object.NoStop
	}
	return object.NewArray(append([]object.Value(nil), a[:n]...)...), object.NoStop
}

// arrayTake implements pop and shift.
func (vm *VM) arrayTake(self object.Value, args []object.Value, last bool) (object.Value, object.Stop) {
	if v, stop := vm.modifiable(self); stop != object.NoStop {
		return v, stop
	}
	arr := arrOf(self)
	res, stop := vm.arrayEnd(arr, args, last)
	if stop != object.NoStop {
		return res, stop
	}
	n := 1
	if len(args) == 1 {
		n = len(arrOf(res).Elements)
	} else if len(arr.Elements) == 0 {
		return object.NIL, object.NoStop
	}
	if last {
		arr.Elements = arr.Elements[:len(arr.Elements)-n]
	} else {
		arr.Elements = append([]object.Value(nil), arr.Elements[n:]...)
	}
	return res, object.NoStop
}

func (vm *VM) flattenDepth(args []object.Value) (int, object.Value, object.Stop) {
	if v, stop := vm.arity(args, 0, 1); stop != object.NoStop {
		return 0, v, stop
	}
	if len(args) == 0 {
		return -1, nil, object.NoStop
	}
	if _, isNil := args[0].(*object.Nil); isNil {
		return -1, nil, object.NoStop
	}
	n, v, stop := vm.intArg(args[0])
	return int(n), v, stop
}

func arrMapInPlace(vm *VM, self object.Value, _ []object.Value, blk *object.Proc) (object.Value, object.Stop) {
	if blk == nil {
		return enumFor(self, "map!", nil), object.NoStop
	}
	if v, stop := vm.modifiable(self); stop != object.NoStop {
		return v, stop
	}
	arr := arrOf(self)
	for i := 0; i < len(arr.Elements); i++ {
		res, stop := vm.yield1(blk, arr.Elements[i])
		if stop != object.NoStop {
			return res, stop
		}
		arr.Elements[i] = res
	}
	return self, object.NoStop
}

// arrFilterBang builds select!, keep_if, reject! and delete_if. The bang
// forms return nil when nothing was removed.
func arrFilterBang(name string, keep, nilIfSame bool) builtinFunc {
	return func(vm *VM, self object.Value, _ []object.Value, blk *object.Proc) (object.Value, object.Stop) {
		if blk == nil {
			return enumFor(self, name, nil), object.NoStop
		}
		if v, stop := vm.modifiable(self); stop != object.NoStop {
			return v, stop
		}
		changed, v, stop := vm.filterInPlace(arrOf(self), blk, keep)
		if stop != object.NoStop {
			return v, stop
		}
		if nilIfSame && !changed {
			return object.NIL, object.NoStop
		}
		return self, object.NoStop
	}
}

func compact(vals []object.Value) []object.Value {
	out := make([]object.Value, 0, len(vals))
	for _, v := range vals {
		if _, isNil := v.(*object.Nil); !isNil {
			out = append(out, v)
		}
	}
	return out
}

// keySet collects the hash keys of every element of the argument arrays.
func (vm *VM) keySet(args []object.Value) (map[object.HashKey]bool, object.Value, object.Stop) {
	set := map[object.HashKey]bool{}
	for _, a := range args {
		arr, v, stop := vm.arrayArg(a)
		if stop != object.NoStop {
			return nil, v, stop
		}
		for _, e := range arr.Elements {
			set[object.HashKeyOf(e)] = true
		}
	}
	return set, nil, object.NoStop
}

func arrDifference(vm *VM, self object.Value, args []object.Value, _ *object.Proc) (object.Value, object.Stop) {
	drop, v, stop := vm.keySet(args)
	if stop != object.NoStop {
		return v, stop
	}
	var out []object.Value
	for _, e := range arrOf(self).Elements {
		if !drop[object.HashKeyOf(e)] {
			out = append(out, e)
		}
	}
	return object.NewArray(out...), object.NoStop
}

func arrIntersection(vm *VM, self object.Value, args []object.Value, _ *object.Proc) (object.Value, object.Stop) {
	vals, v, stop := vm.uniq(arrOf(self).Elements, nil)
	if stop != object.NoStop {
		return v, stop
	}
	for _, a := range args {
		keep, v, stop := vm.keySet([]object.Value{a})
		if stop != object.NoStop {
			return v, stop
		}
		var out []object.Value
		for _, e := range vals {
			if keep[object.HashKeyOf(e)] {
				out = append(out, e)
			}
		}
		vals = out
	}
	return object.NewArray(vals...), object.NoStop
}

func arrUnion(vm *VM, self object.Value, args []object.Value, _ *object.Proc) (object.Value, object.Stop) {
	all := append([]object.Value(nil), arrOf(self).Elements...)
	for _, a := range args {
		arr, v, stop := vm.arrayArg(a)
		if stop != object.NoStop {
			return v, stop
		}
		all = append(all, arr.Elements...)
	}
	out, v, stop := vm.uniq(all, nil)
	if stop != object.NoStop {
		return v, stop
	}
	return object.NewArray(out...), object.NoStop
}

// dig follows a chain of [] lookups, stopping at the first nil.
func (vm *VM) dig(self object.Value, args []object.Value) (object.Value, object.Stop) {
	if v, stop := vm.arity(args, 1, -1); stop != object.NoStop {
		return v, stop
	}
	cur := self
	for _, key := range args {
		if _, isNil := cur.(*object.Nil); isNil {
			return cur, object.NoStop
		}
		var stop object.Stop
		cur, stop = vm.send(cur, "[]", []object.Value{key}, nil, false)
		if stop != object.NoStop {
			return cur, stop
		}
	}
	return cur, object.NoStop
}

// emitAll yields each array in groups, or returns an enumerator over them
// when no block is given.
func (vm *VM) emitAll(self object.Value, method string, args []object.Value, blk *object.Proc, groups [][]object.Value) (object.Value, object.Stop) {
	if blk == nil {
		return enumFor(self, method, args), object.NoStop
	}
	for _, g := range groups {
		if v, stop := vm.yield1(blk, object.NewArray(g...)); stop != object.NoStop {
			return v, stop
		}
	}
	return self, object.NoStop
}

func combinations(vals []object.Value, k int) [][]object.Value {
	if k < 0 || k > len(vals) {
		return nil
	}
	var out [][]object.Value
	var pick func(start int, cur []object.Value)
	pick = func(start int, cur []object.Value) {
		if len(cur) == k {
			out = append(out, append([]object.Value(nil), cur...))
			return
		}
		for i := start; i < len(vals); i++ {
			pick(i+1, append(cur, vals[i]))
		}
	}
	pick(0, nil)
	return out
}

func permutations(vals []object.Value, k int) [][]object.Value {
	if k < 0 || k > len(vals) {
		return nil
	}
	var out [][]object.Value
	used := make([]bool, len(vals))
	var pick func(cur []object.Value)
	pick = func(cur []object.Value) {
		if len(cur) == k {
			out = append(out, append([]object.Value(nil), cur...))
			return
		}
		for i := range vals {
			if used[i] {
				continue
			}
			used[i] = true
			pick(append(cur, vals[i]))
			used[i] = false
		}
	}
	pick(nil)
	return out
}
