package vm

import (
	"math"
	"math/bits"
	"strconv"
	"strings"
	"unicode"

	"github.com/alexisbouchez/rubyvm/object"
)

func numericMethods() map[string]builtin {
	return map[string]builtin{
		"integer?": {0, func(vm *VM, self object.Value, _ []object.Value, _ *object.Proc) (object.Value, object.Stop) {
			_, ok := self.(*object.Integer)
			return object.NativeToBool(ok), object.NoStop
		}},
		"zero?": {0, func(vm *VM, self object.Value, _ []object.Value, _ *object.Proc) (object.Value, object.Stop) {
			return object.NativeToBool(toF(self) == 0), object.NoStop
		}},
		"positive?": {0, func(vm *VM, self object.Value, _ []object.Value, _ *object.Proc) (object.Value, object.Stop) {
			return object.NativeToBool(toF(self) > 0), object.NoStop
		}},
		"negative?": {0, func(vm *VM, self object.Value, _ []object.Value, _ *object.Proc) (object.Value, object.Stop) {
			return object.NativeToBool(toF(self) < 0), object.NoStop
		}},
		"nonzero?": {0, func(vm *VM, self object.Value, _ []object.Value, _ *object.Proc) (object.Value, object.Stop) {
			if toF(self) == 0 {
				return object.NIL, object.NoStop
			}
			return self, object.NoStop
		}},
		"step": {-1, numStep},
		"coerce": {1, func(vm *VM, self object.Value, args []object.Value, _ *object.Proc) (object.Value, object.Stop) {
			if a, ok := args[0].(*object.Integer); ok {
				if _, selfInt := self.(*object.Integer); selfInt {
					return object.NewArray(a, self), object.NoStop
				}
			}
			other, stop := vm.toFloat(args[0], true)
			if stop != object.NoStop {
				return other, stop
			}
			return object.NewArray(other, &object.Float{Value: toF(self)}), object.NoStop
		}},
		"abs":       {0, numAbs},
		"magnitude": {0, numAbs},
		"-@": {0, func(vm *VM, self object.Value, _ []object.Value, _ *object.Proc) (object.Value, object.Stop) {
			if i, ok := self.(*object.Integer); ok {
				return vm.checkedInt(subInt(0, i.Value))
			}
			return &object.Float{Value: -toF(self)}, object.NoStop
		}},
		"+@": {0, func(vm *VM, self object.Value, _ []object.Value, _ *object.Proc) (object.Value, object.Stop) {
			return self, object.NoStop
		}},
		"+":      {1, numAdd},
		"-":      {1, numSub},
		"*":      {1, numMul},
		"/":      {1, numDiv},
		"div":    {1, numIntDiv},
		"%":      {1, numMod},
		"modulo": {1, numMod},
		"**":     {1, numPow},
		"pow":    {1, numPow},
		"fdiv": {1, func(vm *VM, self object.Value, args []object.Value, _ *object.Proc) (object.Value, object.Stop) {
			if !isNumeric(args[0]) {
				return vm.coerceError(self, args[0])
			}
			return &object.Float{Value: toF(self) / toF(args[0])}, object.NoStop
		}},
		"divmod": {1, func(vm *VM, self object.Value, args []object.Value, _ *object.Proc) (object.Value, object.Stop) {
			q, stop := numIntDiv(vm, self, args, nil)
			if stop != object.NoStop {
				return q, stop
			}
			r, stop := numMod(vm, self, args, nil)
			if stop != object.NoStop {
				return r, stop
			}
			return object.NewArray(q, r), object.NoStop
		}},
		"remainder": {1, func(vm *VM, self object.Value, args []object.Value, _ *object.Proc) (object.Value, object.Stop) {
			a, aok := self.(*object.Integer)
			b, bok := args[0].(*object.Integer)
			if aok && bok {
				if b.Value == 0 {
					return vm.Raise(vm.rt.ZeroDivisionErrorClass, "divided by 0")
				}
				return &object.Integer{Value: a.Value % b.Value}, object.NoStop
			}
			if !isNumeric(args[0]) {
				return vm.coerceError(self, args[0])
			}
			return &object.Float{Value: math.Mod(toF(self), toF(args[0]))}, object.NoStop
		}},
		"<=>": {1, func(vm *VM, self object.Value, args []object.Value, _ *object.Proc) (object.Value, object.Stop) {
			if !isNumeric(args[0]) {
				return object.NIL, object.NoStop
			}
			if c, ok := builtinCompare(self, args[0]); ok {
				return &object.Integer{Value: int64(c)}, object.NoStop
			}
			return object.NIL, object.NoStop
		}},
		"==": {1, numEqual},
		"===": {1, numEqual},
		"eql?": {1, func(vm *VM, self object.Value, args []object.Value, _ *object.Proc) (object.Value, object.Stop) {
			return object.NativeToBool(eql(self, args[0])), object.NoStop
		}},
		"<":  {1, numCompare(func(c int) bool { return c < 0 })},
		">":  {1, numCompare(func(c int) bool { return c > 0 })},
		"<=": {1, numCompare(func(c int) bool { return c <= 0 })},
		">=": {1, numCompare(func(c int) bool { return c >= 0 })},
		"to_i": {0, numToI},
		"to_int": {0, numToI},
		"truncate": {-1, numToI},
		"to_f": {0, func(vm *VM, self object.Value, _ []object.Value, _ *object.Proc) (object.Value, object.Stop) {
			return &object.Float{Value: toF(self)}, object.NoStop
		}},
		"to_c": {0, func(vm *VM, self object.Value, _ []object.Value, _ *object.Proc) (object.Value, object.Stop) {
			return vm.Raise(vm.rt.NotImplementedErrorClass, "Complex is not supported")
		}},
		"round": {-1, func(vm *VM, self object.Value, args []object.Value, _ *object.Proc) (object.Value, object.Stop) {
			return vm.roundNum(self, args, math.Round)
		}},
		"floor": {-1, func(vm *VM, self object.Value, args []object.Value, _ *object.Proc) (object.Value, object.Stop) {
			return vm.roundNum(self, args, math.Floor)
		}},
		"ceil": {-1, func(vm *VM, self object.Value, args []object.Value, _ *object.Proc) (object.Value, object.Stop) {
			return vm.roundNum(self, args, math.Ceil)
		}},
		"hash": {0, func(vm *VM, self object.Value, _ []object.Value, _ *object.Proc) (object.Value, object.Stop) {
			return &object.Integer{Value: hashOf(object.HashKeyOf(self), vm)}, object.NoStop
		}},
		"dup": {0, func(vm *VM, self object.Value, _ []object.Value, _ *object.Proc) (object.Value, object.Stop) {
			return self, object.NoStop
		}},
	}
}

func integerMethods() map[string]builtin {
	return map[string]builtin{
		"to_s": {-1, intToS},
		"inspect": {-1, intToS},
		"times": {0, func(vm *VM, self object.Value, _ []object.Value, blk *object.Proc) (object.Value, object.Stop) {
			if blk == nil {
				return enumFor(self, "times", nil), object.NoStop
			}
			n := self.(*object.Integer).Value
			for i := int64(0); i < n; i++ {
				if v, stop := vm.yield1(blk, &object.Integer{Value: i}); stop != object.NoStop {
					return v, stop
				}
			}
			return self, object.NoStop
		}},
		"upto": {1, func(vm *VM, self object.Value, args []object.Value, blk *object.Proc) (object.Value, object.Stop) {
			if blk == nil {
				return enumFor(self, "upto", args), object.NoStop
			}
			limit, v, stop := vm.intArg(args[0])
			if stop != object.NoStop {
				return v, stop
			}
			for i := self.(*object.Integer).Value; i <= limit; i++ {
				if v, stop := vm.yield1(blk, &object.Integer{Value: i}); stop != object.NoStop {
					return v, stop
				}
			}
			return self, object.NoStop
		}},
		"downto": {1, func(vm *VM, self object.Value, args []object.Value, blk *object.Proc) (object.Value, object.Stop) {
			if blk == nil {
				return enumFor(self, "downto", args), object.NoStop
			}
			limit, v, stop := vm.intArg(args[0])
			if stop != object.NoStop {
				return v, stop
			}
			for i := self.(*object.Integer).Value; i >= limit; i-- {
				if v, stop := vm.yield1(blk, &object.Integer{Value: i}); stop != object.NoStop {
					return v, stop
				}
			}
			return self, object.NoStop
		}},
		"succ": {0, intSucc},
		"next": {0, intSucc},
		"pred": {0, func(vm *VM, self object.Value, _ []object.Value, _ *object.Proc) (object.Value, object.Stop) {
			return vm.checkedInt(subInt(self.(*object.Integer).Value, 1))
		}},
		"chr": {0, func(vm *VM, self object.Value, _ []object.Value, _ *object.Proc) (object.Value, object.Stop) {
			n := self.(*object.Integer).Value
			if n < 0 || n > unicode.MaxRune {
				return vm.Raise(vm.rt.RangeErrorClass, "%d out of char range", n)
			}
			return object.NewString(string(rune(n))), object.NoStop
		}},
		"ord": {0, func(vm *VM, self object.Value, _ []object.Value, _ *object.Proc) (object.Value, object.Stop) {
			return self, object.NoStop
		}},
		"even?": {0, func(vm *VM, self object.Value, _ []object.Value, _ *object.Proc) (object.Value, object.Stop) {
			return object.NativeToBool(self.(*object.Integer).Value%2 == 0), object.NoStop
		}},
		"odd?": {0, func(vm *VM, self object.Value, _ []object.Value, _ *object.Proc) (object.Value, object.Stop) {
			return object.NativeToBool(self.(*object.Integer).Value%2 != 0), object.NoStop
		}},
		"allbits?": {1, intBits(func(a, b int64) bool { return a&b == b })},
		"anybits?": {1, intBits(func(a, b int64) bool { return a&b != 0 })},
		"nobits?":  {1, intBits(func(a, b int64) bool { return a&b == 0 })},
		"~": {0, func(vm *VM, self object.Value, _ []object.Value, _ *object.Proc) (object.Value, object.Stop) {
			return &object.Integer{Value: ^self.(*object.Integer).Value}, object.NoStop
		}},
		"&":  {1, intBitOp(func(a, b int64) int64 { return a & b })},
		"|":  {1, intBitOp(func(a, b int64) int64 { return a | b })},
		"^":  {1, intBitOp(func(a, b int64) int64 { return a ^ b })},
		"<<": {1, intShift(false)},
		">>": {1, intShift(true)},
		"[]": {1, intBitOp(func(a, b int64) int64 {
			if b < 0 {
				return 0
			}
			if b > 63 {
				b = 63
			}
			return (a >> uint(b)) & 1
		})},
		"gcd": {1, intBitOp(gcd)},
		"lcm": {1, intBitOp(func(a, b int64) int64 {
			if a == 0 || b == 0 {
				return 0
			}
			l := a / gcd(a, b) * b
			if l < 0 {
				return -l
			}
			return l
		})},
		"bit_length": {0, func(vm *VM, self object.Value, _ []object.Value, _ *object.Proc) (object.Value, object.Stop) {
			n := self.(*object.Integer).Value
			if n < 0 {
				n = ^n
			}
			return &object.Integer{Value: int64(bits.Len64(uint64(n)))}, object.NoStop
		}},
		"digits": {-1, func(vm *VM, self object.Value, args []object.Value, _ *object.Proc) (object.Value, object.Stop) {
			base := int64(10)
			if len(args) > 0 {
				b, v, stop := vm.intArg(args[0])
				if stop != object.NoStop {
					return v, stop
				}
				if b < 2 {
					return vm.Raise(vm.rt.ArgumentErrorClass, "invalid radix %d", b)
				}
				base = b
			}
			n := self.(*object.Integer).Value
			if n < 0 {
				return vm.Raise(vm.rt.FloatDomainErrorClass, "out of domain")
			}
			out := object.NewArray()
			for {
				out.Elements = append(out.Elements, &object.Integer{Value: n % base})
				n /= base
				if n == 0 {
					break
				}
			}
			return out, object.NoStop
		}},
		"size": {0, func(vm *VM, _ object.Value, _ []object.Value, _ *object.Proc) (object.Value, object.Stop) {
			return &object.Integer{Value: 8}, object.NoStop
		}},
		"finite?": {0, func(vm *VM, _ object.Value, _ []object.Value, _ *object.Proc) (object.Value, object.Stop) {
			return object.TRUE, object.NoStop
		}},
		"infinite?": {0, func(vm *VM, _ object.Value, _ []object.Value, _ *object.Proc) (object.Value, object.Stop) {
			return object.NIL, object.NoStop
		}},
	}
}

func integerClassMethods() map[string]builtin {
	return map[string]builtin{
		"sqrt": {1, func(vm *VM, _ object.Value, args []object.Value, _ *object.Proc) (object.Value, object.Stop) {
			n, v, stop := vm.intArg(args[0])
			if stop != object.NoStop {
				return v, stop
			}
			if n < 0 {
				return vm.Raise(vm.domainError, "Numerical argument is out of domain - \"isqrt\"")
			}
			r := int64(math.Sqrt(float64(n)))
			for r*r > n {
				r--
			}
			for (r+1)*(r+1) <= n {
				r++
			}
			return &object.Integer{Value: r}, object.NoStop
		}},
	}
}

func floatMethods() map[string]builtin {
	return map[string]builtin{
		"to_s": {0, floatToS},
		"inspect": {0, floatToS},
		"nan?": {0, func(vm *VM, self object.Value, _ []object.Value, _ *object.Proc) (object.Value, object.Stop) {
			return object.NativeToBool(math.IsNaN(toF(self))), object.NoStop
		}},
		"infinite?": {0, func(vm *VM, self object.Value, _ []object.Value, _ *object.Proc) (object.Value, object.Stop) {
			f := toF(self)
			switch {
			case math.IsInf(f, 1):
				return &object.Integer{Value: 1}, object.NoStop
			case math.IsInf(f, -1):
				return &object.Integer{Value: -1}, object.NoStop
			}
			return object.NIL, object.NoStop
		}},
		"finite?": {0, func(vm *VM, self object.Value, _ []object.Value, _ *object.Proc) (object.Value, object.Stop) {
			f := toF(self)
			return object.NativeToBool(!math.IsInf(f, 0) && !math.IsNaN(f)), object.NoStop
		}},
		"next_float": {0, func(vm *VM, self object.Value, _ []object.Value, _ *object.Proc) (object.Value, object.Stop) {
			return &object.Float{Value: math.Nextafter(toF(self), math.Inf(1))}, object.NoStop
		}},
		"prev_float": {0, func(vm *VM, self object.Value, _ []object.Value, _ *object.Proc) (object.Value, object.Stop) {
			return &object.Float{Value: math.Nextafter(toF(self), math.Inf(-1))}, object.NoStop
		}},
	}
}

func intToS(vm *VM, self object.Value, args []object.Value, _ *object.Proc) (object.Value, object.Stop) {
	base := int64(10)
	if len(args) > 0 {
		b, v, stop := vm.intArg(args[0])
		if stop != object.NoStop {
			return v, stop
		}
		if b < 2 || b > 36 {
			return vm.Raise(vm.rt.ArgumentErrorClass, "invalid radix %d", b)
		}
		base = b
	}
	return object.NewString(strconv.FormatInt(self.(*object.Integer).Value, int(base))), object.NoStop
}

func floatToS(vm *VM, self object.Value, _ []object.Value, _ *object.Proc) (object.Value, object.Stop) {
	return object.NewString(object.FormatFloat(toF(self))), object.NoStop
}

func intSucc(vm *VM, self object.Value, _ []object.Value, _ *object.Proc) (object.Value, object.Stop) {
	return vm.checkedInt(addInt(self.(*object.Integer).Value, 1))
}

func intBits(pred func(a, b int64) bool) builtinFunc {
	return func(vm *VM, self object.Value, args []object.Value, _ *object.Proc) (object.Value, object.Stop) {
		b, v, stop := vm.intArg(args[0])
		if stop != object.NoStop {
			return v, stop
		}
		return object.NativeToBool(pred(self.(*object.Integer).Value, b)), object.NoStop
	}
}

func intBitOp(op func(a, b int64) int64) builtinFunc {
	return func(vm *VM, self object.Value, args []object.Value, _ *object.Proc) (object.Value, object.Stop) {
		b, ok := args[0].(*object.Integer)
		if !ok {
			return vm.coerceError(self, args[0])
		}
		return &object.Integer{Value: op(self.(*object.Integer).Value, b.Value)}, object.NoStop
	}
}

// intShift implements << and >>. A negative count shifts the other way.
func intShift(right bool) builtinFunc {
	return func(vm *VM, self object.Value, args []object.Value, _ *object.Proc) (object.Value, object.Stop) {
		b, ok := args[0].(*object.Integer)
		if !ok {
			return vm.coerceError(self, args[0])
		}
		n := b.Value
		if right {
			if n == math.MinInt64 {
				n = math.MaxInt64
			} else {
				n = -n
			}
		}
		return vm.checkedInt(shiftLeft(self.(*object.Integer).Value, n))
	}
}

// shiftLeft shifts a by b bits; ok is false when bits would be lost off the
// top.
func shiftLeft(a, b int64) (r int64, ok bool) {
	switch {
	case a == 0:
		return 0, true
	case b >= 64:
		return 0, false
	case b >= 0:
		r = a << uint(b)
		return r, r>>uint(b) == a
	case b <= -64:
		if a < 0 {
			return -1, true
		}
		return 0, true
	}
	return a >> uint(-b), true
}

func gcd(a, b int64) int64 {
	if a < 0 {
		a = -a
	}
	if b < 0 {
		b = -b
	}
	for b != 0 {
		a, b = b, a%b
	}
	return a
}

func isNumeric(v object.Value) bool {
	switch v.(type) {
	case *object.Integer, *object.Float:
		return true
	}
	return false
}

// toF widens a numeric value. Callers check isNumeric first.
func toF(v object.Value) float64 {
	switch v := v.(type) {
	case *object.Integer:
		return float64(v.Value)
	case *object.Float:
		return v.Value
	}
	return 0
}

// coerceError is raised when arithmetic meets a non-number.
func (vm *VM) coerceError(self, other object.Value) (object.Value, object.Stop) {
	name := vm.rt.RealClassOf(other).Name
	switch other.(type) {
	case *object.Nil:
		name = "nil"
	case *object.Boolean:
		name = other.Inspect()
	}
	return vm.Raise(vm.rt.TypeErrorClass, "%s can't be coerced into %s", name, vm.rt.RealClassOf(self).Name)
}

// coerceBinop retries an arithmetic operator through other.coerce(self).
func (vm *VM) coerceBinop(self, other object.Value, op string) (object.Value, object.Stop) {
	if _, ok := other.(*object.Object); !ok || !vm.respondTo(other, "coerce", true) {
		return vm.coerceError(self, other)
	}
	pair, stop := vm.send(other, "coerce", []object.Value{self}, nil, true)
	if stop != object.NoStop {
		return pair, stop
	}
	arr, ok := pair.(*object.Array)
	if !ok || len(arr.Elements) != 2 {
		return vm.Raise(vm.rt.TypeErrorClass, "coerce must return [x, y]")
	}
	return vm.send(arr.Elements[0], op, []object.Value{arr.Elements[1]}, nil, false)
}

// intOp is an Integer operator. ok is false when the result does not fit in
// 64 bits.
type intOp func(a, b int64) (r int64, ok bool)

// arith applies an operator to two numbers, staying in Integer when both
// are integers.
func (vm *VM) arith(self, other object.Value, op string, ints intOp, floats func(a, b float64) float64) (object.Value, object.Stop) {
	if !isNumeric(other) {
		return vm.coerceBinop(self, other, op)
	}
	a, aok := self.(*object.Integer)
	b, bok := other.(*object.Integer)
	if aok && bok {
		return vm.checkedInt(ints(a.Value, b.Value))
	}
	return &object.Float{Value: floats(toF(self), toF(other))}, object.NoStop
}

// checkedInt boxes r, raising RangeError when an operation overflowed.
func (vm *VM) checkedInt(r int64, ok bool) (object.Value, object.Stop) {
	if !ok {
		return vm.Raise(vm.rt.RangeErrorClass, "integer overflow")
	}
	return &object.Integer{Value: r}, object.NoStop
}

func addInt(a, b int64) (int64, bool) {
	r := a + b
	return r, (a^r)&(b^r) >= 0
}

func subInt(a, b int64) (int64, bool) {
	r := a - b
	return r, (a^b)&(a^r) >= 0
}

func mulInt(a, b int64) (int64, bool) {
	if a == 0 || b == 0 {
		return 0, true
	}
	hi, lo := bits.Mul64(absInt(a), absInt(b))
	neg := (a < 0) != (b < 0)
	switch {
	case hi != 0, lo > 1<<63, lo == 1<<63 && !neg:
		return 0, false
	case neg:
		return -int64(lo), true
	}
	return int64(lo), true
}

// absInt is |a| as an unsigned magnitude; MinInt64 maps to 1<<63.
func absInt(a int64) uint64 {
	if a < 0 {
		return uint64(-(a + 1)) + 1
	}
	return uint64(a)
}

func numAdd(vm *VM, self object.Value, args []object.Value, _ *object.Proc) (object.Value, object.Stop) {
	return vm.arith(self, args[0], "+", addInt, func(a, b float64) float64 { return a + b })
}

func numSub(vm *VM, self object.Value, args []object.Value, _ *object.Proc) (object.Value, object.Stop) {
	return vm.arith(self, args[0], "-", subInt, func(a, b float64) float64 { return a - b })
}

func numMul(vm *VM, self object.Value, args []object.Value, _ *object.Proc) (object.Value, object.Stop) {
	return vm.arith(self, args[0], "*", mulInt, func(a, b float64) float64 { return a * b })
}

// floorDiv rounds towards negative infinity like Integer#/.
func floorDiv(a, b int64) (int64, bool) {
	if a == math.MinInt64 && b == -1 {
		return 0, false
	}
	q := a / b
	if a%b != 0 && (a < 0) != (b < 0) {
		q--
	}
	return q, true
}

func floorMod(a, b int64) (int64, bool) {
	if b == -1 {
		return 0, true
	}
	r := a % b
	if r != 0 && (r < 0) != (b < 0) {
		r += b
	}
	return r, true
}

func floatMod(a, b float64) float64 {
	r := math.Mod(a, b)
	if r != 0 && (r < 0) != (b < 0) {
		r += b
	}
	return r
}

func intZero(v object.Value) bool {
	i, ok := v.(*object.Integer)
	return ok && i.Value == 0
}

func numDiv(vm *VM, self object.Value, args []object.Value, _ *object.Proc) (object.Value, object.Stop) {
	if _, ok := self.(*object.Integer); ok && intZero(args[0]) {
		return vm.Raise(vm.rt.ZeroDivisionErrorClass, "divided by 0")
	}
	return vm.arith(self, args[0], "/", floorDiv, func(a, b float64) float64 { return a / b })
}

func numIntDiv(vm *VM, self object.Value, args []object.Value, _ *object.Proc) (object.Value, object.Stop) {
	if intZero(args[0]) || (isNumeric(args[0]) && toF(args[0]) == 0) {
		return vm.Raise(vm.rt.ZeroDivisionErrorClass, "divided by 0")
	}
	v, stop := vm.arith(self, args[0], "div", floorDiv, func(a, b float64) float64 { return math.Floor(a / b) })
	if f, ok := v.(*object.Float); ok && stop == object.NoStop {
		return &object.Integer{Value: int64(f.Value)}, object.NoStop
	}
	return v, stop
}

func numMod(vm *VM, self object.Value, args []object.Value, _ *object.Proc) (object.Value, object.Stop) {
	if _, ok := self.(*object.Integer); ok && intZero(args[0]) {
		return vm.Raise(vm.rt.ZeroDivisionErrorClass, "divided by 0")
	}
	return vm.arith(self, args[0], "%", floorMod, floatMod)
}

func numPow(vm *VM, self object.Value, args []object.Value, _ *object.Proc) (object.Value, object.Stop) {
	if b, ok := args[0].(*object.Integer); ok && b.Value < 0 {
		if a, ok := self.(*object.Integer); ok {
			return &object.Float{Value: math.Pow(float64(a.Value), float64(b.Value))}, object.NoStop
		}
	}
	return vm.arith(self, args[0], "**", ipow, math.Pow)
}

func ipow(a, b int64) (int64, bool) {
	result := int64(1)
	for {
		var ok bool
		if b&1 == 1 {
			if result, ok = mulInt(result, a); !ok {
				return 0, false
			}
		}
		b >>= 1
		if b == 0 {
			return result, true
		}
		if a, ok = mulInt(a, a); !ok {
			return 0, false
		}
	}
}

func numEqual(vm *VM, self object.Value, args []object.Value, _ *object.Proc) (object.Value, object.Stop) {
	if isNumeric(args[0]) {
		eq, _ := builtinEqual(self, args[0])
		return object.NativeToBool(eq), object.NoStop
	}
	if _, ok := args[0].(*object.Object); ok && vm.userDefined(args[0], "==") {
		return vm.send(args[0], "==", []object.Value{self}, nil, false)
	}
	return object.FALSE, object.NoStop
}

func numCompare(pred func(int) bool) builtinFunc {
	return func(vm *VM, self object.Value, args []object.Value, _ *object.Proc) (object.Value, object.Stop) {
		c, ok := builtinCompare(self, args[0])
		if !ok {
			return vm.Raise(vm.rt.ArgumentErrorClass, "comparison of %s with %s failed", vm.rt.RealClassOf(self).Name, vm.describeValue(args[0]))
		}
		if math.IsNaN(toF(self)) || math.IsNaN(toF(args[0])) {
			return object.FALSE, object.NoStop
		}
		return object.NativeToBool(pred(c)), object.NoStop
	}
}

func numAbs(vm *VM, self object.Value, _ []object.Value, _ *object.Proc) (object.Value, object.Stop) {
	if i, ok := self.(*object.Integer); ok {
		if i.Value < 0 {
			return vm.checkedInt(subInt(0, i.Value))
		}
		return i, object.NoStop
	}
	return &object.Float{Value: math.Abs(toF(self))}, object.NoStop
}

func numToI(vm *VM, self object.Value, _ []object.Value, _ *object.Proc) (object.Value, object.Stop) {
	if i, ok := self.(*object.Integer); ok {
		return i, object.NoStop
	}
	f := toF(self)
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return vm.Raise(vm.rt.FloatDomainErrorClass, "%s", object.FormatFloat(f))
	}
	return &object.Integer{Value: int64(f)}, object.NoStop
}

// roundNum implements round, floor and ceil with an optional digit count.
// Integers only change for negative digit counts.
func (vm *VM) roundNum(self object.Value, args []object.Value, fn func(float64) float64) (object.Value, object.Stop) {
	if v, stop := vm.arity(args, 0, 1); stop != object.NoStop {
		return v, stop
	}
	digits := int64(0)
	if len(args) == 1 {
		if _, ok := args[0].(*object.Hash); !ok {
			d, v, stop := vm.intArg(args[0])
			if stop != object.NoStop {
				return v, stop
			}
			digits = d
		}
	}
	if i, ok := self.(*object.Integer); ok {
		if digits >= 0 {
			return i, object.NoStop
		}
		scale, ok := ipow(10, -digits)
		if !ok {
			return &object.Integer{Value: 0}, object.NoStop
		}
		return &object.Integer{Value: int64(fn(float64(i.Value)/float64(scale))) * scale}, object.NoStop
	}
	f := toF(self)
	if digits > 0 {
		if math.IsInf(f, 0) || math.IsNaN(f) {
			return self, object.NoStop
		}
		scale := math.Pow(10, float64(digits))
		r := fn(f*scale) / scale
		if s := strconv.FormatFloat(f, 'f', -1, 64); !strings.Contains(s, ".") || len(s)-strings.Index(s, ".")-1 <= int(digits) {
			r = f
		}
		return &object.Float{Value: r}, object.NoStop
	}
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return vm.Raise(vm.rt.FloatDomainErrorClass, "%s", object.FormatFloat(f))
	}
	scale := math.Pow(10, float64(-digits))
	return &object.Integer{Value: int64(fn(f/scale) * scale)}, object.NoStop
}

// numStep implements Numeric#step(limit, step) and step(by:, to:).
func numStep(vm *VM, self object.Value, args []object.Value, blk *object.Proc) (object.Value, object.Stop) {
	if blk == nil {
		return enumFor(self, "step", args), object.NoStop
	}
	var limit, step object.Value = object.NIL, &object.Integer{Value: 1}
	if len(args) > 0 {
		if h, ok := args[len(args)-1].(*object.Hash); ok {
			args = args[:len(args)-1]
			if v, ok := h.Get(vm.rt.Intern("by")); ok {
				step = v
			}
			if v, ok := h.Get(vm.rt.Intern("to")); ok {
				limit = v
			}
		}
	}
	if len(args) > 0 {
		limit = args[0]
	}
	if len(args) > 1 {
		step = args[1]
	}
	if !isNumeric(step) {
		return vm.coerceError(self, step)
	}
	if toF(step) == 0 {
		return vm.Raise(vm.rt.ArgumentErrorClass, "step can't be 0")
	}
	_, unbounded := limit.(*object.Nil)
	if !unbounded && !isNumeric(limit) {
		return vm.coerceError(self, limit)
	}

	a, aok := self.(*object.Integer)
	s, sok := step.(*object.Integer)
	l, lok := limit.(*object.Integer)
	if aok && sok && (lok || unbounded) {
		for i := a.Value; unbounded || (s.Value > 0 && i <= l.Value) || (s.Value < 0 && i >= l.Value); i += s.Value {
			if v, stop := vm.yield1(blk, &object.Integer{Value: i}); stop != object.NoStop {
				return v, stop
			}
		}
		return self, object.NoStop
	}

	start, by := toF(self), toF(step)
	end := math.Inf(1)
	if by < 0 {
		end = math.Inf(-1)
	}
	if !unbounded {
		end = toF(limit)
	}
	n := math.Floor((end-start)/by + 1e-9)
	for i := 0.0; unbounded || i <= n; i++ {
		if v, stop := vm.yield1(blk, &object.Float{Value: start + i*by}); stop != object.NoStop {
			return v, stop
		}
	}
	return self, object.NoStop
}

// leadingFloat parses the numeric prefix of s, as String#to_f does.
func leadingFloat(s string) float64 {
	s = strings.TrimLeft(s, " \t\n")
	end := 0
	seenDigit, seenDot, seenExp := false, false, false
	for end < len(s) {
		c := s[end]
		switch {
		case c >= '0' && c <= '9':
			seenDigit = true
		case c == '_' && seenDigit && end+1 < len(s) && s[end+1] >= '0' && s[end+1] <= '9':
		case (c == '-' || c == '+') && (end == 0 || s[end-1] == 'e' || s[end-1] == 'E'):
		case c == '.' && !seenDot && !seenExp && end+1 < len(s) && s[end+1] >= '0' && s[end+1] <= '9':
			seenDot = true
		case (c == 'e' || c == 'E') && seenDigit && !seenExp:
			seenExp = true
		default:
			goto done
		}
		end++
	}
done:
	num := strings.ReplaceAll(s[:end], "_", "")
	for num != "" {
		if f, err := strconv.ParseFloat(num, 64); err == nil {
			return f
		}
		num = num[:len(num)-1]
	}
	return 0
}

// leadingInt parses the integer prefix of s in base, as String#to_i does.
func leadingInt(s string, base int) int64 {
	s = strings.TrimLeft(s, " \t\n")
	neg := false
	if s != "" && (s[0] == '-' || s[0] == '+') {
		neg = s[0] == '-'
		s = s[1:]
	}
	lower := strings.ToLower(s)
	switch {
	case base == 16 && strings.HasPrefix(lower, "0x"),
		base == 2 && strings.HasPrefix(lower, "0b"),
		base == 8 && strings.HasPrefix(lower, "0o"):
		s = s[2:]
	}
	var n int64
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '_' && i > 0 && i+1 < len(s) && s[i+1] != '_' {
			continue
		}
		d := digitValue(c)
		if d < 0 || d >= base {
			break
		}
		n = n*int64(base) + int64(d)
	}
	if neg {
		return -n
	}
	return n
}

func digitValue(c byte) int {
	switch {
	case c >= '0' && c <= '9':
		return int(c - '0')
	case c >= 'a' && c <= 'z':
		return int(c-'a') + 10
	case c >= 'A' && c <= 'Z':
		return int(c-'A') + 10
	}
	return -1
}
