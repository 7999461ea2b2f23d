package vm

import (
	"strings"

	"github.com/alexisbouchez/rubyvm/object"
)

func excOf(v object.Value) *object.Exception { return v.(*object.Exception) }

// fullMessage renders an exception the way an uncaught one is reported.
func (vm *VM) fullMessage(exc *object.Exception) string {
	var sb strings.Builder
	if len(exc.Backtrace) > 0 {
		sb.WriteString(exc.Backtrace[0])
		sb.WriteString(": ")
	}
	sb.WriteString(vm.messageOf(exc))
	sb.WriteString(" (")
	sb.WriteString(exc.Class().Name)
	sb.WriteString(")")
	for _, line := range exc.Backtrace[min(1, len(exc.Backtrace)):] {
		sb.WriteString("\n\tfrom ")
		sb.WriteString(line)
	}
	return sb.String()
}

func excToS(vm *VM, self object.Value, _ []object.Value, _ *object.Proc) (object.Value, object.Stop) {
	exc := excOf(self)
	switch m := exc.Message.(type) {
	case *object.Nil:
		return object.NewString(exc.Class().Name), object.NoStop
	case *object.String:
		return m, object.NoStop
	}
	return vm.toS(exc.Message)
}

func excMessage(vm *VM, self object.Value, _ []object.Value, _ *object.Proc) (object.Value, object.Stop) {
	return vm.send(self, "to_s", nil, nil, true)
}

func exceptionClassMethods() map[string]builtin {
	return map[string]builtin{
		"exception": {-1, func(vm *VM, self object.Value, args []object.Value, blk *object.Proc) (object.Value, object.Stop) {
			return vm.send(self, "new", args, blk, false)
		}},
	}
}

func exceptionMethods() map[string]builtin {
	return map[string]builtin{
		"initialize": {-1, func(vm *VM, self object.Value, args []object.Value, _ *object.Proc) (object.Value, object.Stop) {
			if v, stop := vm.arity(args, 0, 1); stop != object.NoStop {
				return v, stop
			}
			exc := excOf(self)
			exc.Message = object.NIL
			if len(args) == 1 {
				exc.Message = args[0]
			}
			return object.NIL, object.NoStop
		}},
		"message": {0, excMessage},
		"to_s":    {0, excToS},
		"to_str":  {0, excToS},
		"inspect": {0, func(vm *VM, self object.Value, _ []object.Value, _ *object.Proc) (object.Value, object.Stop) {
			exc := excOf(self)
			name := exc.Class().Name
			msg := vm.messageOf(exc)
			if msg == "" || msg == name {
				return object.NewString(name), object.NoStop
			}
			return object.NewString("#<" + name + ": " + msg + ">"), object.NoStop
		}},
		"full_message": {-1, func(vm *VM, self object.Value, _ []object.Value, _ *object.Proc) (object.Value, object.Stop) {
			return object.NewString(vm.fullMessage(excOf(self))), object.NoStop
		}},
		"backtrace": {0, func(vm *VM, self object.Value, _ []object.Value, _ *object.Proc) (object.Value, object.Stop) {
			exc := excOf(self)
			if exc.Backtrace == nil {
				return object.NIL, object.NoStop
			}
			return stringsArray(exc.Backtrace), object.NoStop
		}},
		"set_backtrace": {1, func(vm *VM, self object.Value, args []object.Value, _ *object.Proc) (object.Value, object.Stop) {
			exc := excOf(self)
			switch bt := args[0].(type) {
			case *object.Nil:
				exc.Backtrace = nil
			case *object.String:
				exc.Backtrace = []string{bt.Value}
			case *object.Array:
				lines := make([]string, 0, len(bt.Elements))
				for _, e := range bt.Elements {
					s, ok := e.(*object.String)
					if !ok {
						return vm.Raise(vm.rt.TypeErrorClass, "backtrace must be an Array of String or an Array of Thread::Backtrace::Location")
					}
					lines = append(lines, s.Value)
				}
				exc.Backtrace = lines
			default:
				return vm.Raise(vm.rt.TypeErrorClass, "backtrace must be an Array of String or an Array of Thread::Backtrace::Location")
			}
			return args[0], object.NoStop
		}},
		"exception": {-1, func(vm *VM, self object.Value, args []object.Value, _ *object.Proc) (object.Value, object.Stop) {
			if v, stop := vm.arity(args, 0, 1); stop != object.NoStop {
				return v, stop
			}
			if len(args) == 0 || args[0] == self {
				return self, object.NoStop
			}
			dup, stop := vm.copyObject(self, false)
			if stop != object.NoStop {
				return dup, stop
			}
			e := excOf(dup)
			e.Message = args[0]
			e.Backtrace = nil
			return e, object.NoStop
		}},
		"==": {1, func(vm *VM, self object.Value, args []object.Value, _ *object.Proc) (object.Value, object.Stop) {
			other, ok := args[0].(*object.Exception)
			if !ok || other.Class() != excOf(self).Class() {
				return object.FALSE, object.NoStop
			}
			eq, v, stop := vm.equal(excOf(self).Message, other.Message)
			if stop != object.NoStop {
				return v, stop
			}
			return object.NativeToBool(eq), object.NoStop
		}},
	}
}

// ivarReader returns a method that reads one hidden instance variable.
func ivarReader(name string) builtin {
	return builtin{0, func(vm *VM, self object.Value, _ []object.Value, _ *object.Proc) (object.Value, object.Stop) {
		return vm.ivarGet(self, name), object.NoStop
	}}
}

func stopIterationMethods() map[string]builtin {
	return map[string]builtin{
		"result": ivarReader("@result"),
	}
}

func uncaughtThrowMethods() map[string]builtin {
	return map[string]builtin{
		"tag":   ivarReader("@tag"),
		"value": ivarReader("@value"),
	}
}

func keyErrorMethods() map[string]builtin {
	return map[string]builtin{
		"key":      ivarReader("@key"),
		"receiver": ivarReader("@receiver"),
	}
}
