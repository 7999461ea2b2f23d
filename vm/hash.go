package vm

import (
	"github.com/alexisbouchez/rubyvm/object"
)

func hashOfValue(v object.Value) *object.Hash { return v.(*object.Hash) }

// hashGet looks key up, falling back to the default proc or value.
func (vm *VM) hashGet(h *object.Hash, key object.Value) (object.Value, object.Stop) {
	if v, ok := h.Get(key); ok {
		return v, object.NoStop
	}
	if h.DefaultProc != nil {
		return vm.CallBlock(h.DefaultProc, []object.Value{h, key})
	}
	if h.Default == nil {
		return object.NIL, object.NoStop
	}
	return h.Default, object.NoStop
}

// hashArg converts v to a Hash through to_hash.
func (vm *VM) hashArg(v object.Value) (*object.Hash, object.Value, object.Stop) {
	if h, ok := v.(*object.Hash); ok {
		return h, nil, object.NoStop
	}
	if vm.respondTo(v, "to_hash", true) {
		res, stop := vm.send(v, "to_hash", nil, nil, true)
		if stop != object.NoStop {
			return nil, res, stop
		}
		if h, ok := res.(*object.Hash); ok {
			return h, nil, object.NoStop
		}
	}
	res, stop := vm.Raise(vm.rt.TypeErrorClass, "no implicit conversion of %s into Hash", vm.typeName(v))
	return nil, res, stop
}

// eachPair calls fn for every entry, over a snapshot so fn may modify h.
func eachPair(h *object.Hash, fn func(k, v object.Value) (object.Value, object.Stop)) (object.Value, object.Stop) {
	type pair struct{ k, v object.Value }
	pairs := make([]pair, 0, h.Len())
	h.Each(func(k, v object.Value) bool {
		pairs = append(pairs, pair{k, v})
		return true
	})
	for _, p := range pairs {
		if res, stop := fn(p.k, p.v); stop != object.NoStop {
			return res, stop
		}
	}
	return nil, object.NoStop
}

// yieldPair passes a key and value to a block the way Hash#each does.
func (vm *VM) yieldPair(blk *object.Proc, k, v object.Value) (object.Value, object.Stop) {
	if blk.Lambda && blk.Arity() == 2 {
		return vm.CallBlock(blk, []object.Value{k, v})
	}
	return vm.yield1(blk, object.NewArray(k, v))
}

// filterHash builds a new hash of the entries where blk's truthiness equals
// keep.
func (vm *VM) filterHash(h *object.Hash, blk *object.Proc, keep bool) (*object.Hash, object.Value, object.Stop) {
	out := object.NewHash()
	res, stop := eachPair(h, func(k, v object.Value) (object.Value, object.Stop) {
		res, stop := vm.yieldPair(blk, k, v)
		if stop != object.NoStop {
			return res, stop
		}
		if object.Truthy(res) == keep {
			out.Set(k, v)
		}
		return nil, object.NoStop
	})
	if stop != object.NoStop {
		return nil, res, stop
	}
	return out, nil, object.NoStop
}

// replaceContents makes dst hold exactly the entries of src.
func replaceContents(dst, src *object.Hash) {
	fresh := object.NewHash()
	src.Each(func(k, v object.Value) bool {
		fresh.Set(k, v)
		return true
	})
	dst.Pairs, dst.Order = fresh.Pairs, fresh.Order
}

func hashClassMethods() map[string]builtin {
	return map[string]builtin{
		"[]": {-1, func(vm *VM, _ object.Value, args []object.Value, _ *object.Proc) (object.Value, object.Stop) {
			out := object.NewHash()
			if len(args) == 1 {
				switch a := args[0].(type) {
				case *object.Hash:
					a.Each(func(k, v object.Value) bool {
						out.Set(k, v)
						return true
					})
					return out, object.NoStop
				case *object.Array:
					for _, e := range a.Elements {
						pair, ok := e.(*object.Array)
						if !ok || len(pair.Elements) < 1 || len(pair.Elements) > 2 {
							return vm.Raise(vm.rt.ArgumentErrorClass, "invalid number of elements (%d for 1..2)", len(pair.Elements))
						}
						var v object.Value = object.NIL
						if len(pair.Elements) == 2 {
							v = pair.Elements[1]
						}
						out.Set(pair.Elements[0], v)
					}
					return out, object.NoStop
				}
			}
			if len(args)%2 != 0 {
				return vm.Raise(vm.rt.ArgumentErrorClass, "odd number of arguments for Hash")
			}
			for i := 0; i < len(args); i += 2 {
				out.Set(args[i], args[i+1])
			}
			return out, object.NoStop
		}},
	}
}

func hashMethods() map[string]builtin {
	return map[string]builtin{
		"initialize": {-1, func(vm *VM, self object.Value, args []object.Value, blk *object.Proc) (object.Value, object.Stop) {
			if v, stop := vm.arity(args, 0, 1); stop != object.NoStop {
				return v, stop
			}
			h := hashOfValue(self)
			if blk != nil {
				if len(args) > 0 {
					return vm.argumentError(len(args), "0")
				}
				h.DefaultProc = blk
				return object.NIL, object.NoStop
			}
			if len(args) == 1 {
				h.Default = args[0]
			}
			return object.NIL, object.NoStop
		}},
		"initialize_copy": {1, hashReplace},
		"replace":         {1, hashReplace},
		"inspect": {0, func(vm *VM, self object.Value, _ []object.Value, _ *object.Proc) (object.Value, object.Stop) {
			return newStr(vm.inspect(self))
		}},
		"to_s": {0, func(vm *VM, self object.Value, _ []object.Value, _ *object.Proc) (object.Value, object.Stop) {
			return newStr(vm.inspect(self))
		}},
		"to_hash": {0, func(vm *VM, self object.Value, _ []object.Value, _ *object.Proc) (object.Value, object.Stop) {
			return self, object.NoStop
		}},
		"to_h": {0, func(vm *VM, self object.Value, _ []object.Value, blk *object.Proc) (object.Value, object.Stop) {
			if blk == nil {
				return self, object.NoStop
			}
			out := object.NewHash()
			res, stop := eachPair(hashOfValue(self), func(k, v object.Value) (object.Value, object.Stop) {
				res, stop := vm.yieldPair(blk, k, v)
				if stop != object.NoStop {
					return res, stop
				}
				pair, ok := res.(*object.Array)
				if !ok || len(pair.Elements) != 2 {
					return vm.Raise(vm.rt.TypeErrorClass, "wrong element type %s (expected array)", vm.typeName(res))
				}
				out.Set(pair.Elements[0], pair.Elements[1])
				return nil, object.NoStop
			})
			if stop != object.NoStop {
				return res, stop
			}
			return out, object.NoStop
		}},
		"to_a": {0, func(vm *VM, self object.Value, _ []object.Value, _ *object.Proc) (object.Value, object.Stop) {
			var out []object.Value
			hashOfValue(self).Each(func(k, v object.Value) bool {
				out = append(out, object.NewArray(k, v))
				return true
			})
			return object.NewArray(out...), object.NoStop
		}},
		"==": {1, func(vm *VM, self object.Value, args []object.Value, _ *object.Proc) (object.Value, object.Stop) {
			other, ok := args[0].(*object.Hash)
			h := hashOfValue(self)
			if !ok || other.Len() != h.Len() {
				return object.FALSE, object.NoStop
			}
			equal := true
			var res object.Value
			stop := object.NoStop
			h.Each(func(k, v object.Value) bool {
				ov, found := other.Get(k)
				if !found {
					equal = false
					return false
				}
				var eq bool
				eq, res, stop = vm.equal(v, ov)
				if stop != object.NoStop || !eq {
					equal = false
					return false
				}
				return true
			})
			if stop != object.NoStop {
				return res, stop
			}
			return object.NativeToBool(equal), object.NoStop
		}},
		"[]": {1, func(vm *VM, self object.Value, args []object.Value, _ *object.Proc) (object.Value, object.Stop) {
			return vm.hashGet(hashOfValue(self), args[0])
		}},
		"[]=":   {2, hashStore},
		"store": {2, hashStore},
		"fetch": {-1, func(vm *VM, self object.Value, args []object.Value, blk *object.Proc) (object.Value, object.Stop) {
			if v, stop := vm.arity(args, 1, 2); stop != object.NoStop {
				return v, stop
			}
			if v, ok := hashOfValue(self).Get(args[0]); ok {
				return v, object.NoStop
			}
			switch {
			case blk != nil:
				return vm.yield1(blk, args[0])
			case len(args) == 2:
				return args[1], object.NoStop
			}
			return vm.keyError(self, args[0])
		}},
		"fetch_values": {-1, func(vm *VM, self object.Value, args []object.Value, blk *object.Proc) (object.Value, object.Stop) {
			out := make([]object.Value, 0, len(args))
			for _, k := range args {
				v, ok := hashOfValue(self).Get(k)
				if !ok {
					if blk == nil {
						return vm.keyError(self, k)
					}
					var stop object.Stop
					if v, stop = vm.yield1(blk, k); stop != object.NoStop {
						return v, stop
					}
				}
				out = append(out, v)
			}
			return object.NewArray(out...), object.NoStop
		}},
		"values_at": {-1, func(vm *VM, self object.Value, args []object.Value, _ *object.Proc) (object.Value, object.Stop) {
			out := make([]object.Value, 0, len(args))
			for _, k := range args {
				v, stop := vm.hashGet(hashOfValue(self), k)
				if stop != object.NoStop {
					return v, stop
				}
				out = append(out, v)
			}
			return object.NewArray(out...), object.NoStop
		}},
		"dig": {-1, func(vm *VM, self object.Value, args []object.Value, _ *object.Proc) (object.Value, object.Stop) {
			return vm.dig(self, args)
		}},
		"key?":     {1, hashHasKey},
		"has_key?": {1, hashHasKey},
		"include?": {1, hashHasKey},
		"member?":  {1, hashHasKey},
		"value?":     {1, hashHasValue},
		"has_value?": {1, hashHasValue},
		"key": {1, func(vm *VM, self object.Value, args []object.Value, _ *object.Proc) (object.Value, object.Stop) {
			var found object.Value = object.NIL
			var res object.Value
			stop := object.NoStop
			hashOfValue(self).Each(func(k, v object.Value) bool {
				var eq bool
				eq, res, stop = vm.equal(v, args[0])
				if stop != object.NoStop {
					return false
				}
				if eq {
					found = k
					return false
				}
				return true
			})
			if stop != object.NoStop {
				return res, stop
			}
			return found, object.NoStop
		}},
		"keys": {0, func(vm *VM, self object.Value, _ []object.Value, _ *object.Proc) (object.Value, object.Stop) {
			var out []object.Value
			hashOfValue(self).Each(func(k, _ object.Value) bool {
				out = append(out, k)
				return true
			})
			return object.NewArray(out...), object.NoStop
		}},
		"values": {0, func(vm *VM, self object.Value, _ []object.Value, _ *object.Proc) (object.Value, object.Stop) {
			var out []object.Value
			hashOfValue(self).Each(func(_, v object.Value) bool {
				out = append(out, v)
				return true
			})
			return object.NewArray(out...), object.NoStop
		}},
		"length": {0, hashLength},
		"size":   {0, hashLength},
		"count": {-1, func(vm *VM, self object.Value, args []object.Value, blk *object.Proc) (object.Value, object.Stop) {
			if len(args) == 0 && blk == nil {
				return hashLength(vm, self, nil, nil)
			}
			return enumCount(vm, self, args, blk)
		}},
		"empty?": {0, func(vm *VM, self object.Value, _ []object.Value, _ *object.Proc) (object.Value, object.Stop) {
			return object.NativeToBool(hashOfValue(self).Len() == 0), object.NoStop
		}},
		"delete": {1, func(vm *VM, self object.Value, args []object.Value, blk *object.Proc) (object.Value, object.Stop) {
			if v, stop := vm.modifiable(self); stop != object.NoStop {
				return v, stop
			}
			if v, ok := hashOfValue(self).Delete(args[0]); ok {
				return v, object.NoStop
			}
			if blk != nil {
				return vm.yield1(blk, args[0])
			}
			return object.NIL, object.NoStop
		}},
		"delete_if": {0, hashFilterBang("delete_if", false, false)},
		"reject!":   {0, hashFilterBang("reject!", false, true)},
		"keep_if":   {0, hashFilterBang("keep_if", true, false)},
		"select!":   {0, hashFilterBang("select!", true, true)},
		"filter!":   {0, hashFilterBang("filter!", true, true)},
		"select":    {0, hashFilter("select", true)},
		"filter":    {0, hashFilter("filter", true)},
		"reject":    {0, hashFilter("reject", false)},
		"each":      {0, hashEach},
		"each_pair": {0, hashEach},
		"each_key": {0, func(vm *VM, self object.Value, _ []object.Value, blk *object.Proc) (object.Value, object.Stop) {
			if blk == nil {
				return enumFor(self, "each_key", nil), object.NoStop
			}
			if res, stop := eachPair(hashOfValue(self), func(k, _ object.Value) (object.Value, object.Stop) {
				return vm.yield1(blk, k)
			}); stop != object.NoStop {
				return res, stop
			}
			return self, object.NoStop
		}},
		"each_value": {0, func(vm *VM, self object.Value, _ []object.Value, blk *object.Proc) (object.Value, object.Stop) {
			if blk == nil {
				return enumFor(self, "each_value", nil), object.NoStop
			}
			if res, stop := eachPair(hashOfValue(self), func(_, v object.Value) (object.Value, object.Stop) {
				return vm.yield1(blk, v)
			}); stop != object.NoStop {
				return res, stop
			}
			return self, object.NoStop
		}},
		"merge": {-1, func(vm *VM, self object.Value, args []object.Value, blk *object.Proc) (object.Value, object.Stop) {
			out := object.NewHash()
			h := hashOfValue(self)
			out.Default, out.DefaultProc = h.Default, h.DefaultProc
			replaceContents(out, h)
			return vm.mergeInto(out, args, blk)
		}},
		"merge!": {-1, hashUpdate},
		"update": {-1, hashUpdate},
		"transform_values": {0, func(vm *VM, self object.Value, _ []object.Value, blk *object.Proc) (object.Value, object.Stop) {
			if blk == nil {
				return enumFor(self, "transform_values", nil), object.NoStop
			}
			out, v, stop := vm.transform(hashOfValue(self), blk, false)
			if stop != object.NoStop {
				return v, stop
			}
			return out, object.NoStop
		}},
		"transform_values!": {0, func(vm *VM, self object.Value, _ []object.Value, blk *object.Proc) (object.Value, object.Stop) {
			if v, stop := vm.modifiable(self); stop != object.NoStop {
				return v, stop
			}
			out, v, stop := vm.transform(hashOfValue(self), blk, false)
			if stop != object.NoStop {
				return v, stop
			}
			replaceContents(hashOfValue(self), out)
			return self, object.NoStop
		}},
		"transform_keys": {-1, func(vm *VM, self object.Value, args []object.Value, blk *object.Proc) (object.Value, object.Stop) {
			if len(args) == 1 {
				mapping, v, stop := vm.hashArg(args[0])
				if stop != object.NoStop {
					return v, stop
				}
				out := object.NewHash()
				hashOfValue(self).Each(func(k, v object.Value) bool {
					if nk, ok := mapping.Get(k); ok {
						k = nk
					}
					out.Set(k, v)
					return true
				})
				return out, object.NoStop
			}
			if blk == nil {
				return enumFor(self, "transform_keys", nil), object.NoStop
			}
			out, v, stop := vm.transform(hashOfValue(self), blk, true)
			if stop != object.NoStop {
				return v, stop
			}
			return out, object.NoStop
		}},
		"transform_keys!": {0, func(vm *VM, self object.Value, _ []object.Value, blk *object.Proc) (object.Value, object.Stop) {
			if v, stop := vm.modifiable(self); stop != object.NoStop {
				return v, stop
			}
			out, v, stop := vm.transform(hashOfValue(self), blk, true)
			if stop != object.NoStop {
				return v, stop
			}
			replaceContents(hashOfValue(self), out)
			return self, object.NoStop
		}},
		"invert": {0, func(vm *VM, self object.Value, _ []object.Value, _ *object.Proc) (object.Value, object.Stop) {
			out := object.NewHash()
			hashOfValue(self).Each(func(k, v object.Value) bool {
				out.Set(v, k)
				return true
			})
			return out, object.NoStop
		}},
		"slice": {-1, func(vm *VM, self object.Value, args []object.Value, _ *object.Proc) (object.Value, object.Stop) {
			out := object.NewHash()
			for _, k := range args {
				if v, ok := hashOfValue(self).Get(k); ok {
					out.Set(k, v)
				}
			}
			return out, object.NoStop
		}},
		"except": {-1, func(vm *VM, self object.Value, args []object.Value, _ *object.Proc) (object.Value, object.Stop) {
			out := object.NewHash()
			replaceContents(out, hashOfValue(self))
			for _, k := range args {
				out.Delete(k)
			}
			return out, object.NoStop
		}},
		"compact": {0, func(vm *VM, self object.Value, _ []object.Value, _ *object.Proc) (object.Value, object.Stop) {
			out := object.NewHash()
			hashOfValue(self).Each(func(k, v object.Value) bool {
				if _, isNil := v.(*object.Nil); !isNil {
					out.Set(k, v)
				}
				return true
			})
			return out, object.NoStop
		}},
		"clear": {0, func(vm *VM, self object.Value, _ []object.Value, _ *object.Proc) (object.Value, object.Stop) {
			if v, stop := vm.modifiable(self); stop != object.NoStop {
				return v, stop
			}
			replaceContents(hashOfValue(self), object.NewHash())
			return self, object.NoStop
		}},
		"shift": {0, func(vm *VM, self object.Value, _ []object.Value, _ *object.Proc) (object.Value, object.Stop) {
			if v, stop := vm.modifiable(self); stop != object.NoStop {
				return v, stop
			}
			h := hashOfValue(self)
			if h.Len() == 0 {
				return object.NIL, object.NoStop
			}
			pair := h.Pairs[h.Order[0]]
			h.Delete(pair.Key)
			return object.NewArray(pair.Key, pair.Value), object.NoStop
		}},
		"default": {-1, func(vm *VM, self object.Value, args []object.Value, _ *object.Proc) (object.Value, object.Stop) {
			h := hashOfValue(self)
			if len(args) == 1 && h.DefaultProc != nil {
				return vm.CallBlock(h.DefaultProc, []object.Value{h, args[0]})
			}
			return h.Default, object.NoStop
		}},
		"default=": {1, func(vm *VM, self object.Value, args []object.Value, _ *object.Proc) (object.Value, object.Stop) {
			if v, stop := vm.modifiable(self); stop != object.NoStop {
				return v, stop
			}
			h := hashOfValue(self)
			h.Default, h.DefaultProc = args[0], nil
			return args[0], object.NoStop
		}},
		"default_proc": {0, func(vm *VM, self object.Value, _ []object.Value, _ *object.Proc) (object.Value, object.Stop) {
			if p := hashOfValue(self).DefaultProc; p != nil {
				return p, object.NoStop
			}
			return object.NIL, object.NoStop
		}},
		"any?": {-1, func(vm *VM, self object.Value, args []object.Value, blk *object.Proc) (object.Value, object.Stop) {
			if len(args) == 0 && blk == nil {
				return object.NativeToBool(hashOfValue(self).Len() > 0), object.NoStop
			}
			return enumAny(vm, self, args, blk)
		}},
		"hash": {0, func(vm *VM, self object.Value, _ []object.Value, _ *object.Proc) (object.Value, object.Stop) {
			return &object.Integer{Value: hashOf(object.HashKeyOf(object.NewString(vm.inspect(self))), vm)}, object.NoStop
		}},
	}
}

func hashLength(vm *VM, self object.Value, _ []object.Value, _ *object.Proc) (object.Value, object.Stop) {
	return &object.Integer{Value: int64(hashOfValue(self).Len())}, object.NoStop
}

func hashStore(vm *VM, self object.Value, args []object.Value, _ *object.Proc) (object.Value, object.Stop) {
	if v, stop := vm.modifiable(self); stop != object.NoStop {
		return v, stop
	}
	hashOfValue(self).Set(args[0], args[1])
	return args[1], object.NoStop
}

func hashReplace(vm *VM, self object.Value, args []object.Value, _ *object.Proc) (object.Value, object.Stop) {
	if v, stop := vm.modifiable(self); stop != object.NoStop {
		return v, stop
	}
	src, v, stop := vm.hashArg(args[0])
	if stop != object.NoStop {
		return v, stop
	}
	h := hashOfValue(self)
	replaceContents(h, src)
	h.Default, h.DefaultProc = src.Default, src.DefaultProc
	return self, object.NoStop
}

func hashHasKey(vm *VM, self object.Value, args []object.Value, _ *object.Proc) (object.Value, object.Stop) {
	_, ok := hashOfValue(self).Get(args[0])
	return object.NativeToBool(ok), object.NoStop
}

func hashHasValue(vm *VM, self object.Value, args []object.Value, _ *object.Proc) (object.Value, object.Stop) {
	found := false
	var res object.Value
	stop := object.NoStop
	hashOfValue(self).Each(func(_, v object.Value) bool {
		found, res, stop = vm.equal(v, args[0])
		return !found && stop == object.NoStop
	})
	if stop != object.NoStop {
		return res, stop
	}
	return object.NativeToBool(found), object.NoStop
}

func hashEach(vm *VM, self object.Value, _ []object.Value, blk *object.Proc) (object.Value, object.Stop) {
	if blk == nil {
		return enumFor(self, "each", nil), object.NoStop
	}
	if res, stop := eachPair(hashOfValue(self), func(k, v object.Value) (object.Value, object.Stop) {
		return vm.yieldPair(blk, k, v)
	}); stop != object.NoStop {
		return res, stop
	}
	return self, object.NoStop
}

func hashFilter(name string, keep bool) builtinFunc {
	return func(vm *VM, self object.Value, _ []object.Value, blk *object.Proc) (object.Value, object.Stop) {
		if blk == nil {
			return enumFor(self, name, nil), object.NoStop
		}
		out, v, stop := vm.filterHash(hashOfValue(self), blk, keep)
		if stop != object.NoStop {
			return v, stop
		}
		return out, object.NoStop
	}
}

func hashFilterBang(name string, keep, nilIfSame bool) builtinFunc {
	return func(vm *VM, self object.Value, _ []object.Value, blk *object.Proc) (object.Value, object.Stop) {
		if blk == nil {
			return enumFor(self, name, nil), object.NoStop
		}
		if v, stop := vm.modifiable(self); stop != object.NoStop {
			return v, stop
		}
		h := hashOfValue(self)
		out, v, stop := vm.filterHash(h, blk, keep)
		if stop != object.NoStop {
			return v, stop
		}
		changed := out.Len() != h.Len()
		replaceContents(h, out)
		if nilIfSame && !changed {
			return object.NIL, object.NoStop
		}
		return self, object.NoStop
	}
}

func hashUpdate(vm *VM, self object.Value, args []object.Value, blk *object.Proc) (object.Value, object.Stop) {
	if v, stop := vm.modifiable(self); stop != object.NoStop {
		return v, stop
	}
	return vm.mergeInto(hashOfValue(self), args, blk)
}

// mergeInto adds the entries of each argument hash to dst. blk resolves
// keys present on both sides.
func (vm *VM) mergeInto(dst *object.Hash, args []object.Value, blk *object.Proc) (object.Value, object.Stop) {
	for _, a := range args {
		src, v, stop := vm.hashArg(a)
		if stop != object.NoStop {
			return v, stop
		}
		if res, stop := eachPair(src, func(k, v object.Value) (object.Value, object.Stop) {
			if old, ok := dst.Get(k); ok && blk != nil {
				res, stop := vm.CallBlock(blk, []object.Value{k, old, v})
				if stop != object.NoStop {
					return res, stop
				}
				v = res
			}
			dst.Set(k, v)
			return nil, object.NoStop
		}); stop != object.NoStop {
			return res, stop
		}
	}
	return dst, object.NoStop
}

// transform maps the keys or the values of h through blk.
func (vm *VM) transform(h *object.Hash, blk *object.Proc, keys bool) (*object.Hash, object.Value, object.Stop) {
	if blk == nil {
		res, stop := vm.Raise(vm.rt.ArgumentErrorClass, "no block given")
		return nil, res, stop
	}
	out := object.NewHash()
	res, stop := eachPair(h, func(k, v object.Value) (object.Value, object.Stop) {
		if keys {
			nk, stop := vm.yield1(blk, k)
			if stop != object.NoStop {
				return nk, stop
			}
			out.Set(nk, v)
			return nil, object.NoStop
		}
		nv, stop := vm.yield1(blk, v)
		if stop != object.NoStop {
			return nv, stop
		}
		out.Set(k, nv)
		return nil, object.NoStop
	})
	if stop != object.NoStop {
		return nil, res, stop
	}
	return out, nil, object.NoStop
}

// keyError raises KeyError for a missing key of recv.
func (vm *VM) keyError(recv, key object.Value) (object.Value, object.Stop) {
	exc := object.NewException(vm.rt.KeyErrorClass, "key not found: "+vm.inspect(key))
	exc.Ivars.Set("@key", key)
	exc.Ivars.Set("@receiver", recv)
	return vm.raiseException(exc)
}
