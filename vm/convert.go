package vm

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/alexisbouchez/rubyvm/object"
)

// toS converts v with to_s, for interpolation.
func (vm *VM) toS(v object.Value) (object.Value, object.Stop) {
	if s, ok := v.(*object.String); ok {
		return s, object.NoStop
	}
	res, stop := vm.send(v, "to_s", nil, nil, true)
	if stop != object.NoStop {
		return res, stop
	}
	if s, ok := res.(*object.String); ok {
		return s, object.NoStop
	}
	return object.NewString(vm.anyToS(v)), object.NoStop
}

// str is toS for Go callers.
func (vm *VM) str(v object.Value) (string, object.Value, object.Stop) {
	res, stop := vm.toS(v)
	if stop != object.NoStop {
		return "", res, stop
	}
	return res.(*object.String).Value, nil, object.NoStop
}

func (vm *VM) anyToS(v object.Value) string {
	return "#<" + vm.rt.RealClassOf(v).Name + ">"
}

// Inspect renders v the way Kernel#p does.
func (vm *VM) Inspect(v object.Value) string { return vm.inspect(v) }

// inspect renders v with user-defined inspect methods taken into account.
// Errors raised by those methods fall back to the built-in rendering.
func (vm *VM) inspect(v object.Value) string {
	switch v := v.(type) {
	case *object.Array:
		parts := make([]string, len(v.Elements))
		for i, e := range v.Elements {
			if e == object.Value(v) {
				parts[i] = "[...]"
				continue
			}
			parts[i] = vm.inspect(e)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case *object.Hash:
		parts := make([]string, 0, v.Len())
		v.Each(func(k, val object.Value) bool {
			if sym, ok := k.(*object.Symbol); ok && !strings.HasPrefix(sym.Inspect(), `:"`) && sym.Name[0] != '@' && sym.Name[0] != '$' {
				parts = append(parts, sym.Name+": "+vm.inspect(val))
			} else {
				parts = append(parts, vm.inspect(k)+" => "+vm.inspect(val))
			}
			return true
		})
		return "{" + strings.Join(parts, ", ") + "}"
	case *object.Object:
		if vm.userDefined(v, "inspect") {
			break
		}
		names := v.Ivars.Names()
		if len(names) == 0 {
			return "#<" + v.Class().Name + ">"
		}
		parts := make([]string, len(names))
		for i, name := range names {
			val, _ := v.Ivars.Get(name)
			if val == object.Value(v) {
				parts[i] = name + "=#<" + v.Class().Name + " ...>"
				continue
			}
			parts[i] = name + "=" + vm.inspect(val)
		}
		return "#<" + v.Class().Name + " " + strings.Join(parts, ", ") + ">"
	case *object.Exception:
		if !vm.userDefined(v, "inspect") {
			msg := vm.messageOf(v)
			if msg == v.Class().Name {
				return msg
			}
			return fmt.Sprintf("#<%s: %s>", v.Class().Name, msg)
		}
	case *object.Nil, *object.Boolean, *object.Integer, *object.Float, *object.Symbol, *object.Range:
		if !vm.userDefined(v, "inspect") {
			if r, ok := v.(*object.Range); ok {
				return vm.inspectRange(r)
			}
			return v.Inspect()
		}
	case *object.String:
		if !vm.userDefined(v, "inspect") {
			return v.Inspect()
		}
	}
	res, stop := vm.send(v, "inspect", nil, nil, true)
	if stop != object.NoStop {
		return v.Inspect()
	}
	if s, ok := res.(*object.String); ok {
		return s.Value
	}
	return v.Inspect()
}

func (vm *VM) inspectRange(r *object.Range) string {
	op := ".."
	if r.Exclusive {
		op = "..."
	}
	var start, end string
	if _, ok := r.Start.(*object.Nil); !ok {
		start = vm.inspect(r.Start)
	}
	if _, ok := r.End.(*object.Nil); !ok {
		end = vm.inspect(r.End)
	}
	return start + op + end
}

// messageOf returns an exception's message through its message method.
func (vm *VM) messageOf(exc *object.Exception) string {
	if vm.userDefined(exc, "message") || vm.userDefined(exc, "to_s") {
		if res, stop := vm.send(exc, "message", nil, nil, true); stop == object.NoStop {
			if s, ok := res.(*object.String); ok {
				return s.Value
			}
		}
	}
	return exc.MessageString()
}

// equal is ==, with a fast path for built-in values.
func (vm *VM) equal(a, b object.Value) (bool, object.Value, object.Stop) {
	if eq, ok := builtinEqual(a, b); ok && !vm.userDefined(a, "==") {
		return eq, nil, object.NoStop
	}
	res, stop := vm.send(a, "==", []object.Value{b}, nil, true)
	if stop != object.NoStop {
		return false, res, stop
	}
	return object.Truthy(res), nil, object.NoStop
}

// builtinEqual compares values whose equality needs no dispatch. ok is false
// for values that need ==.
func builtinEqual(a, b object.Value) (eq, ok bool) {
	switch a := a.(type) {
	case *object.Integer:
		switch b := b.(type) {
		case *object.Integer:
			return a.Value == b.Value, true
		case *object.Float:
			return float64(a.Value) == b.Value, true
		}
		return false, true
	case *object.Float:
		switch b := b.(type) {
		case *object.Integer:
			return a.Value == float64(b.Value), true
		case *object.Float:
			return a.Value == b.Value, true
		}
		return false, true
	case *object.String:
		if b, isStr := b.(*object.String); isStr {
			return a.Value == b.Value, true
		}
		return false, true
	case *object.Symbol, *object.Nil, *object.Boolean:
		return a == b, true
	}
	return false, false
}

// eql is eql?, used for hash keys and uniq.
func eql(a, b object.Value) bool {
	return object.HashKeyOf(a) == object.HashKeyOf(b)
}

// compare calls <=> and converts the result.
func (vm *VM) compare(a, b object.Value) (int, object.Value, object.Stop) {
	if c, ok := builtinCompare(a, b); ok {
		return c, nil, object.NoStop
	}
	res, stop := vm.send(a, "<=>", []object.Value{b}, nil, true)
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

func (vm *VM) describeValue(v object.Value) string {
	switch v.(type) {
	case *object.Object, *object.Exception:
		return vm.rt.RealClassOf(v).Name
	}
	return vm.inspect(v)
}

func builtinCompare(a, b object.Value) (int, bool) {
	switch a := a.(type) {
	case *object.Integer:
		switch b := b.(type) {
		case *object.Integer:
			return cmp3(a.Value, b.Value), true
		case *object.Float:
			return cmpFloat(float64(a.Value), b.Value), true
		}
	case *object.Float:
		switch b := b.(type) {
		case *object.Integer:
			return cmpFloat(a.Value, float64(b.Value)), true
		case *object.Float:
			return cmpFloat(a.Value, b.Value), true
		}
	case *object.String:
		if b, ok := b.(*object.String); ok {
			return strings.Compare(a.Value, b.Value), true
		}
	}
	return 0, false
}

func cmp3(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func cmpFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func (vm *VM) intArg(v object.Value) (int64, object.Value, object.Stop) {
	switch v := v.(type) {
	case *object.Integer:
		return v.Value, nil, object.NoStop
	case *object.Float:
		return int64(v.Value), nil, object.NoStop
	case *object.Nil:
		res, stop := vm.Raise(vm.rt.TypeErrorClass, "no implicit conversion from nil to integer")
		return 0, res, stop
	}
	res, stop := vm.Raise(vm.rt.TypeErrorClass, "no implicit conversion of %s into Integer", vm.rt.RealClassOf(v).Name)
	return 0, res, stop
}

func (vm *VM) strArg(v object.Value) (string, object.Value, object.Stop) {
	if s, ok := v.(*object.String); ok {
		return s.Value, nil, object.NoStop
	}
	res, stop := vm.Raise(vm.rt.TypeErrorClass, "no implicit conversion of %s into String", vm.typeName(v))
	return "", res, stop
}

// typeName names v's class for conversion errors.
func (vm *VM) typeName(v object.Value) string {
	switch v.(type) {
	case *object.Nil:
		return "nil"
	case *object.Boolean:
		return v.Inspect()
	}
	return vm.rt.RealClassOf(v).Name
}

// sprintf implements format and String#%.
func (vm *VM) sprintf(format string, args []object.Value) (string, object.Value, object.Stop) {
	var out strings.Builder
	next := 0
	arg := func() (object.Value, object.Value, object.Stop) {
		if next >= len(args) {
			v, stop := vm.Raise(vm.rt.ArgumentErrorClass, "too few arguments")
			return nil, v, stop
		}
		next++
		return args[next-1], nil, object.NoStop
	}
	for i := 0; i < len(format); i++ {
		ch := format[i]
		if ch != '%' {
			out.WriteByte(ch)
			continue
		}
		if i+1 < len(format) && format[i+1] == '%' {
			out.WriteByte('%')
			i++
			continue
		}
		j := i + 1
		for j < len(format) && strings.IndexByte("-+ 0#.123456789*", format[j]) >= 0 {
			j++
		}
		if j >= len(format) {
			out.WriteString(format[i:])
			break
		}
		spec := format[i+1 : j]
		verb := format[j]
		i = j
		if strings.Contains(spec, "*") {
			w, v, stop := arg()
			if stop != object.NoStop {
				return "", v, stop
			}
			n, v, stop := vm.intArg(w)
			if stop != object.NoStop {
				return "", v, stop
			}
			spec = strings.Replace(spec, "*", strconv.FormatInt(n, 10), 1)
		}
		a, v, stop := arg()
		if stop != object.NoStop {
			return "", v, stop
		}
		switch verb {
		case 'd', 'i', 'u':
			n, v, stop := vm.intArg(a)
			if stop != object.NoStop {
				return "", v, stop
			}
			fmt.Fprintf(&out, "%"+spec+"d", n)
		case 'f', 'e', 'E', 'g', 'G':
			var f float64
			switch a := a.(type) {
			case *object.Float:
				f = a.Value
			case *object.Integer:
				f = float64(a.Value)
			default:
				v, stop := vm.Raise(vm.rt.TypeErrorClass, "can't convert %s into Float", vm.typeName(a))
				return "", v, stop
			}
			fmt.Fprintf(&out, "%"+spec+string(verb), f)
		case 'x', 'X', 'o', 'b', 'B':
			n, v, stop := vm.intArg(a)
			if stop != object.NoStop {
				return "", v, stop
			}
			if verb == 'B' {
				verb = 'b'
			}
			fmt.Fprintf(&out, "%"+spec+string(verb), n)
		case 'c':
			if s, ok := a.(*object.String); ok && s.Value != "" {
				out.WriteString(s.Value[:1])
				break
			}
			n, v, stop := vm.intArg(a)
			if stop != object.NoStop {
				return "", v, stop
			}
			out.WriteRune(rune(n))
		case 'p':
			fmt.Fprintf(&out, "%"+spec+"s", vm.inspect(a))
		default:
			s, v, stop := vm.str(a)
			if stop != object.NoStop {
				return "", v, stop
			}
			fmt.Fprintf(&out, "%"+spec+"s", s)
		}
	}
	return out.String(), nil, object.NoStop
}
