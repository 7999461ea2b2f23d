package vm

import (
	"math"

	"github.com/alexisbouchez/rubyvm/object"
)

// floatArg converts a numeric argument for a Math function.
func (vm *VM) floatArg(v object.Value) (float64, object.Value, object.Stop) {
	if isNumeric(v) {
		return toF(v), nil, object.NoStop
	}
	if isNil(v) {
		res, stop := vm.Raise(vm.rt.TypeErrorClass, "can't convert nil into Float")
		return 0, res, stop
	}
	res, stop := vm.Raise(vm.rt.TypeErrorClass, "can't convert %s into Float", vm.rt.RealClassOf(v).Name)
	return 0, res, stop
}

// mathFunc wraps a one-argument function. inDomain, when set, rejects
// arguments outside the function's domain.
func mathFunc(name string, fn func(float64) float64, inDomain func(float64) bool) builtin {
	return builtin{1, func(vm *VM, _ object.Value, args []object.Value, _ *object.Proc) (object.Value, object.Stop) {
		x, v, stop := vm.floatArg(args[0])
		if stop != object.NoStop {
			return v, stop
		}
		if inDomain != nil && !inDomain(x) {
			return vm.Raise(vm.domainError, "Numerical argument is out of domain - \"%s\"", name)
		}
		return &object.Float{Value: fn(x)}, object.NoStop
	}}
}

func mathFunc2(fn func(a, b float64) float64) builtin {
	return builtin{2, func(vm *VM, _ object.Value, args []object.Value, _ *object.Proc) (object.Value, object.Stop) {
		a, v, stop := vm.floatArg(args[0])
		if stop != object.NoStop {
			return v, stop
		}
		b, v, stop := vm.floatArg(args[1])
		if stop != object.NoStop {
			return v, stop
		}
		return &object.Float{Value: fn(a, b)}, object.NoStop
	}}
}

func nonNegative(x float64) bool { return x >= 0 || math.IsNaN(x) }
func unitRange(x float64) bool   { return x >= -1 && x <= 1 || math.IsNaN(x) }

func mathLog(vm *VM, _ object.Value, args []object.Value, _ *object.Proc) (object.Value, object.Stop) {
	if v, stop := vm.arity(args, 1, 2); stop != object.NoStop {
		return v, stop
	}
	x, v, stop := vm.floatArg(args[0])
	if stop != object.NoStop {
		return v, stop
	}
	if !nonNegative(x) {
		return vm.Raise(vm.domainError, "Numerical argument is out of domain - \"log\"")
	}
	r := math.Log(x)
	if len(args) == 2 {
		base, v, stop := vm.floatArg(args[1])
		if stop != object.NoStop {
			return v, stop
		}
		if !nonNegative(base) {
			return vm.Raise(vm.domainError, "Numerical argument is out of domain - \"log\"")
		}
		r /= math.Log(base)
	}
	return &object.Float{Value: r}, object.NoStop
}

func mathFunctions() map[string]builtin {
	return map[string]builtin{
		"sqrt":  mathFunc("sqrt", math.Sqrt, nonNegative),
		"cbrt":  mathFunc("cbrt", math.Cbrt, nil),
		"sin":   mathFunc("sin", math.Sin, nil),
		"cos":   mathFunc("cos", math.Cos, nil),
		"tan":   mathFunc("tan", math.Tan, nil),
		"asin":  mathFunc("asin", math.Asin, unitRange),
		"acos":  mathFunc("acos", math.Acos, unitRange),
		"atan":  mathFunc("atan", math.Atan, nil),
		"sinh":  mathFunc("sinh", math.Sinh, nil),
		"cosh":  mathFunc("cosh", math.Cosh, nil),
		"tanh":  mathFunc("tanh", math.Tanh, nil),
		"exp":   mathFunc("exp", math.Exp, nil),
		"log2":  mathFunc("log2", math.Log2, nonNegative),
		"log10": mathFunc("log10", math.Log10, nonNegative),
		"log":   {-1, mathLog},
		"atan2": mathFunc2(math.Atan2),
		"hypot": mathFunc2(math.Hypot),
	}
}

// defineMath installs Math as a module of module functions.
func (vm *VM) defineMath() {
	rt := vm.rt
	mod := rt.DefineModule("Math")
	mod.Constants["PI"] = &object.Float{Value: math.Pi}
	mod.Constants["E"] = &object.Float{Value: math.E}
	vm.domainError = rt.DefineClassUnder(mod, "DomainError", rt.ArgumentErrorClass)
	vm.installSingleton(mod, mathFunctions())
	vm.installPrivate(mod, mathFunctions())
}
