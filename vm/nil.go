package vm

import (
	"github.com/alexisbouchez/rubyvm/object"
)

func constant(v object.Value) builtin {
	return builtin{0, func(*VM, object.Value, []object.Value, *object.Proc) (object.Value, object.Stop) {
		return v, object.NoStop
	}}
}

// boolOp is a logical operator on a boolean receiver and a truthy argument.
func boolOp(fn func(arg bool) bool) builtin {
	return builtin{1, func(_ *VM, _ object.Value, args []object.Value, _ *object.Proc) (object.Value, object.Stop) {
		return object.NativeToBool(fn(object.Truthy(args[0]))), object.NoStop
	}}
}

func nilMethods() map[string]builtin {
	return map[string]builtin{
		"to_s": {0, func(*VM, object.Value, []object.Value, *object.Proc) (object.Value, object.Stop) {
			return object.NewString(""), object.NoStop
		}},
		"to_a": {0, func(*VM, object.Value, []object.Value, *object.Proc) (object.Value, object.Stop) {
			return object.NewArray(), object.NoStop
		}},
		"to_h": {0, func(*VM, object.Value, []object.Value, *object.Proc) (object.Value, object.Stop) {
			return object.NewHash(), object.NoStop
		}},
		"to_i":    constant(&object.Integer{Value: 0}),
		"to_f":    constant(&object.Float{Value: 0}),
		"inspect": {0, func(*VM, object.Value, []object.Value, *object.Proc) (object.Value, object.Stop) { return newStr("nil") }},
		"nil?":    constant(object.TRUE),
		"&":       boolOp(func(bool) bool { return false }),
		"|":       boolOp(func(b bool) bool { return b }),
		"^":       boolOp(func(b bool) bool { return b }),
	}
}

func trueMethods() map[string]builtin {
	return map[string]builtin{
		"to_s":    {0, func(*VM, object.Value, []object.Value, *object.Proc) (object.Value, object.Stop) { return newStr("true") }},
		"inspect": {0, func(*VM, object.Value, []object.Value, *object.Proc) (object.Value, object.Stop) { return newStr("true") }},
		"&":       boolOp(func(b bool) bool { return b }),
		"|":       boolOp(func(bool) bool { return true }),
		"^":       boolOp(func(b bool) bool { return !b }),
	}
}

func falseMethods() map[string]builtin {
	return map[string]builtin{
		"to_s":    {0, func(*VM, object.Value, []object.Value, *object.Proc) (object.Value, object.Stop) { return newStr("false") }},
		"inspect": {0, func(*VM, object.Value, []object.Value, *object.Proc) (object.Value, object.Stop) { return newStr("false") }},
		"&":       boolOp(func(bool) bool { return false }),
		"|":       boolOp(func(b bool) bool { return b }),
		"^":       boolOp(func(b bool) bool { return b }),
	}
}
