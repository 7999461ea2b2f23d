package vm

import (
	"sort"
	"strings"

	"github.com/alexisbouchez/rubyvm/object"
)

func modOf(v object.Value) *object.RubyClass { return v.(*object.RubyClass) }

// undefNew removes new from classes whose instances are literals.
func (vm *VM) undefNew() {
	rt := vm.rt
	for _, cls := range []*object.RubyClass{rt.IntegerClass, rt.FloatClass, rt.SymbolClass, rt.NilClass, rt.TrueClass, rt.FalseClass} {
		meta, _ := rt.SingletonClass(cls)
		meta.DefineMethod("new", &object.Method{Undefined: true})
		meta.DefineMethod("allocate", &object.Method{Undefined: true})
	}
}

// methodList returns the sorted names of the methods visible from cls with
// one of the given visibilities. Without inherit only cls's own table
// counts.
func (vm *VM) methodList(cls *object.RubyClass, inherit bool, vis ...object.Visibility) object.Value {
	want := func(v object.Visibility) bool {
		for _, w := range vis {
			if w == v {
				return true
			}
		}
		return false
	}
	seen := map[string]bool{}
	var names []string
	add := func(c *object.RubyClass) {
		for name, m := range c.Methods {
			if seen[name] {
				continue
			}
			seen[name] = true
			if !m.Undefined && want(m.Visibility) {
				names = append(names, name)
			}
		}
	}
	if inherit {
		for _, c := range object.Ancestors(cls) {
			add(c)
		}
	} else {
		add(cls)
	}
	sort.Strings(names)
	out := make([]object.Value, len(names))
	for i, n := range names {
		out[i] = vm.rt.Intern(n)
	}
	return object.NewArray(out...)
}

// scopeVisibility is the default visibility for methods made by cls's own
// body, such as attr_reader after private.
func (vm *VM) scopeVisibility(cls *object.RubyClass) object.Visibility {
	if f := vm.frame; f != nil && f.lexical != nil && f.lexical.Module == cls {
		return f.lexical.Visibility
	}
	return object.Public
}

// defineMethodFromBlock implements define_method(name, body = nil, &blk).
func (vm *VM) defineMethodFromBlock(cls *object.RubyClass, args []object.Value, blk *object.Proc) (object.Value, object.Stop) {
	if v, stop := vm.arity(args, 1, 2); stop != object.NoStop {
		return v, stop
	}
	name, v, stop := vm.symbolName(args[0])
	if stop != object.NoStop {
		return v, stop
	}
	body := blk
	if len(args) == 2 {
		p, ok := args[1].(*object.Proc)
		if !ok {
			return vm.Raise(vm.rt.TypeErrorClass, "wrong argument type %s (expected Proc/Method/UnboundMethod)", vm.typeName(args[1]))
		}
		body = p
	}
	if body == nil {
		return vm.Raise(vm.rt.ArgumentErrorClass, "tried to create Proc object without a block")
	}
	cls.DefineMethod(name, &object.Method{Proc: body, Argc: -1, Visibility: vm.scopeVisibility(cls)})
	return vm.rt.Intern(name), object.NoStop
}

func isAttrName(name string) bool {
	if name == "" {
		return false
	}
	for i, r := range name {
		switch {
		case r == '_' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r > 0x7f:
		case i > 0 && r >= '0' && r <= '9':
		default:
			return false
		}
	}
	return true
}

// defineAttrs backs attr_reader, attr_writer and attr_accessor.
func (vm *VM) defineAttrs(cls *object.RubyClass, args []object.Value, reader, writer bool) (object.Value, object.Stop) {
	vis := vm.scopeVisibility(cls)
	var defined []object.Value
	for _, a := range args {
		name, v, stop := vm.symbolName(a)
		if stop != object.NoStop {
			return v, stop
		}
		if !isAttrName(name) {
			return vm.Raise(vm.rt.NameErrorClass, "invalid attribute name '%s'", name)
		}
		ivar := "@" + name
		if reader {
			cls.DefineMethod(name, &object.Method{
				Argc:       0,
				Visibility: vis,
				Builtin: func(_ object.Interp, self object.Value, _ []object.Value, _ *object.Proc) (object.Value, object.Stop) {
					return vm.ivarGet(self, ivar), object.NoStop
				},
			})
			defined = append(defined, vm.rt.Intern(name))
		}
		if writer {
			cls.DefineMethod(name+"=", &object.Method{
				Argc:       1,
				Visibility: vis,
				Builtin: func(_ object.Interp, self object.Value, args []object.Value, _ *object.Proc) (object.Value, object.Stop) {
					if v, stop := vm.ivarSet(self, ivar, args[0]); stop != object.NoStop {
						return v, stop
					}
					return args[0], object.NoStop
				},
			})
			defined = append(defined, vm.rt.Intern(name+"="))
		}
	}
	return object.NewArray(defined...), object.NoStop
}

// methodNames flattens the symbol, string and array arguments of private
// and friends.
func (vm *VM) methodNames(args []object.Value) ([]string, object.Value, object.Stop) {
	var names []string
	for _, a := range args {
		if arr, ok := a.(*object.Array); ok {
			sub, v, stop := vm.methodNames(arr.Elements)
			if stop != object.NoStop {
				return nil, v, stop
			}
			names = append(names, sub...)
			continue
		}
		name, v, stop := vm.symbolName(a)
		if stop != object.NoStop {
			return nil, v, stop
		}
		names = append(names, name)
	}
	return names, nil, object.NoStop
}

// setVisibility changes the visibility of named methods in cls. A method
// inherited from elsewhere is copied into cls first.
func (vm *VM) setVisibility(cls *object.RubyClass, names []string, vis object.Visibility) (object.Value, object.Stop) {
	for _, name := range names {
		m := object.FindMethod(cls, name)
		if m == nil {
			return vm.Raise(vm.rt.NameErrorClass, "undefined method '%s' for %s '%s'", name, kindOf(cls), cls.Inspect())
		}
		if m.Owner == cls {
			m.Visibility = vis
			continue
		}
		copied := *m
		owner := m.Owner
		cls.DefineMethod(name, &copied)
		copied.Owner = owner
		copied.Visibility = vis
	}
	return nil, object.NoStop
}

func kindOf(cls *object.RubyClass) string {
	if cls.IsModule {
		return "module"
	}
	return "class"
}

// visibilityResult is what private and friends return: nil, the single
// argument, or the argument list.
func visibilityResult(args []object.Value) object.Value {
	switch len(args) {
	case 0:
		return object.NIL
	case 1:
		return args[0]
	}
	return object.NewArray(args...)
}

func visibilityMethod(vis object.Visibility) builtinFunc {
	return func(vm *VM, self object.Value, args []object.Value, _ *object.Proc) (object.Value, object.Stop) {
		cls := modOf(self)
		if len(args) == 0 {
			if f := vm.frame; f != nil && f.lexical != nil && f.lexical.Module == cls {
				f.lexical.Visibility = vis
				f.lexical.ModuleFunction = false
			}
			return object.NIL, object.NoStop
		}
		names, v, stop := vm.methodNames(args)
		if stop != object.NoStop {
			return v, stop
		}
		if v, stop := vm.setVisibility(cls, names, vis); stop != object.NoStop {
			return v, stop
		}
		return visibilityResult(args), object.NoStop
	}
}

func classVisibilityMethod(vis object.Visibility) builtinFunc {
	return func(vm *VM, self object.Value, args []object.Value, _ *object.Proc) (object.Value, object.Stop) {
		meta, _ := vm.rt.SingletonClass(self)
		names, v, stop := vm.methodNames(args)
		if stop != object.NoStop {
			return v, stop
		}
		if v, stop := vm.setVisibility(meta, names, vis); stop != object.NoStop {
			return v, stop
		}
		return visibilityResult(args), object.NoStop
	}
}

func moduleFunction(vm *VM, self object.Value, args []object.Value, _ *object.Proc) (object.Value, object.Stop) {
	cls := modOf(self)
	if !cls.IsModule {
		return vm.noMethod(self, "module_function", false)
	}
	if len(args) == 0 {
		if f := vm.frame; f != nil && f.lexical != nil && f.lexical.Module == cls {
			f.lexical.Visibility = object.Private
			f.lexical.ModuleFunction = true
		}
		return object.NIL, object.NoStop
	}
	names, v, stop := vm.methodNames(args)
	if stop != object.NoStop {
		return v, stop
	}
	meta, _ := vm.rt.SingletonClass(cls)
	for _, name := range names {
		m := object.FindMethod(cls, name)
		if m == nil {
			return vm.Raise(vm.rt.NameErrorClass, "undefined method '%s' for module '%s'", name, cls.Inspect())
		}
		copied := *m
		meta.DefineMethod(name, &copied)
		copied.Visibility = object.Public
	}
	if v, stop := vm.setVisibility(cls, names, object.Private); stop != object.NoStop {
		return v, stop
	}
	return visibilityResult(args), object.NoStop
}

// compareModules orders modules by ancestry: -1 when a descends from b, 1
// when b descends from a, and ok is false when they are unrelated.
func compareModules(a, b *object.RubyClass) (int, bool) {
	switch {
	case a == b:
		return 0, true
	case a.IsSubclassOf(b):
		return -1, true
	case b.IsSubclassOf(a):
		return 1, true
	}
	return 0, false
}

func moduleCompare(accept func(c int) bool) builtinFunc {
	return func(vm *VM, self object.Value, args []object.Value, _ *object.Proc) (object.Value, object.Stop) {
		other, ok := args[0].(*object.RubyClass)
		if !ok {
			return vm.Raise(vm.rt.TypeErrorClass, "compared with non class/module")
		}
		c, ok := compareModules(modOf(self), other)
		if !ok {
			return object.NIL, object.NoStop
		}
		return object.NativeToBool(accept(c)), object.NoStop
	}
}

func (vm *VM) cvarName(v object.Value) (string, object.Value, object.Stop) {
	name, res, stop := vm.symbolName(v)
	if stop != object.NoStop {
		return "", res, stop
	}
	if !strings.HasPrefix(name, "@@") || len(name) < 3 {
		res, stop := vm.Raise(vm.rt.NameErrorClass, "'%s' is not allowed as a class variable name", name)
		return "", res, stop
	}
	return name, nil, object.NoStop
}

func isConstName(name string) bool {
	return name != "" && name[0] >= 'A' && name[0] <= 'Z' && isAttrName(name)
}

// resolveConst looks name up in mod, following A::B paths. Modules also
// see the constants of Object.
func (vm *VM) resolveConst(mod *object.RubyClass, path string) (object.Value, bool, object.Value, object.Stop) {
	cur := mod
	var found object.Value
	for i, name := range strings.Split(path, "::") {
		if name == "" && i == 0 {
			cur = vm.rt.ObjectClass
			continue
		}
		if !isConstName(name) {
			v, stop := vm.Raise(vm.rt.NameErrorClass, "wrong constant name %s", path)
			return nil, false, v, stop
		}
		if cur == nil {
			v, stop := vm.Raise(vm.rt.TypeErrorClass, "%s does not refer to class/module", vm.inspect(found))
			return nil, false, v, stop
		}
		v, ok := object.LookupConst(cur, name)
		if !ok && cur.IsModule {
			v, ok = vm.rt.ObjectClass.Constants[name]
		}
		if !ok {
			return nil, false, nil, object.NoStop
		}
		found = v
		cur, _ = v.(*object.RubyClass)
	}
	return found, true, nil, object.NoStop
}

func moduleEval(withArgs bool) builtinFunc {
	return func(vm *VM, self object.Value, args []object.Value, blk *object.Proc) (object.Value, object.Stop) {
		cls := modOf(self)
		if blk == nil {
			if len(args) > 0 && !withArgs {
				if _, ok := args[0].(*object.String); ok {
					return vm.Raise(vm.rt.NotImplementedErrorClass, "class_eval with a string is not supported")
				}
			}
			if withArgs {
				return vm.Raise(vm.rt.LocalJumpErrorClass, "no block given (yield)")
			}
			return vm.argumentError(len(args), "1..3")
		}
		blockArgs := []object.Value{cls}
		if withArgs {
			blockArgs = args
		}
		return vm.callBlock(blk, cls, object.NewLexical(cls, blk.Lexical), blockArgs, nil)
	}
}

func instanceMethodsBy(vis ...object.Visibility) builtinFunc {
	return func(vm *VM, self object.Value, args []object.Value, _ *object.Proc) (object.Value, object.Stop) {
		if v, stop := vm.arity(args, 0, 1); stop != object.NoStop {
			return v, stop
		}
		inherit := len(args) == 0 || object.Truthy(args[0])
		return vm.methodList(modOf(self), inherit, vis...), object.NoStop
	}
}

func methodDefinedBy(vis ...object.Visibility) builtinFunc {
	return func(vm *VM, self object.Value, args []object.Value, _ *object.Proc) (object.Value, object.Stop) {
		if v, stop := vm.arity(args, 1, 2); stop != object.NoStop {
			return v, stop
		}
		name, v, stop := vm.symbolName(args[0])
		if stop != object.NoStop {
			return v, stop
		}
		cls := modOf(self)
		var m *object.Method
		if len(args) == 2 && !object.Truthy(args[1]) {
			if own, ok := cls.Methods[name]; ok && !own.Undefined {
				m = own
			}
		} else {
			m = object.FindMethod(cls, name)
		}
		if m == nil {
			return object.FALSE, object.NoStop
		}
		for _, w := range vis {
			if m.Visibility == w {
				return object.TRUE, object.NoStop
			}
		}
		return object.FALSE, object.NoStop
	}
}

func symbolsSorted(vm *VM, names []string) object.Value {
	sort.Strings(names)
	out := make([]object.Value, len(names))
	for i, n := range names {
		out[i] = vm.rt.Intern(n)
	}
	return object.NewArray(out...)
}

func moduleMethods() map[string]builtin {
	return map[string]builtin{
		"name": {0, func(vm *VM, self object.Value, _ []object.Value, _ *object.Proc) (object.Value, object.Stop) {
			cls := modOf(self)
			if cls.Name == "" || cls.IsSingleton {
				return object.NIL, object.NoStop
			}
			return object.NewString(cls.Name), object.NoStop
		}},
		"to_s": {0, func(vm *VM, self object.Value, _ []object.Value, _ *object.Proc) (object.Value, object.Stop) {
			return newStr(self.Inspect())
		}},
		"inspect": {0, func(vm *VM, self object.Value, _ []object.Value, _ *object.Proc) (object.Value, object.Stop) {
			return newStr(self.Inspect())
		}},
		"===": {1, func(vm *VM, self object.Value, args []object.Value, _ *object.Proc) (object.Value, object.Stop) {
			return object.NativeToBool(vm.rt.IsA(args[0], modOf(self))), object.NoStop
		}},
		"<":  {1, moduleCompare(func(c int) bool { return c < 0 })},
		"<=": {1, moduleCompare(func(c int) bool { return c <= 0 })},
		">":  {1, moduleCompare(func(c int) bool { return c > 0 })},
		">=": {1, moduleCompare(func(c int) bool { return c >= 0 })},
		"<=>": {1, func(vm *VM, self object.Value, args []object.Value, _ *object.Proc) (object.Value, object.Stop) {
			other, ok := args[0].(*object.RubyClass)
			if !ok {
				return object.NIL, object.NoStop
			}
			c, ok := compareModules(modOf(self), other)
			if !ok {
				return object.NIL, object.NoStop
			}
			return &object.Integer{Value: int64(c)}, object.NoStop
		}},
		"ancestors": {0, func(vm *VM, self object.Value, _ []object.Value, _ *object.Proc) (object.Value, object.Stop) {
			var out []object.Value
			for _, c := range object.Ancestors(modOf(self)) {
				out = append(out, c)
			}
			return object.NewArray(out...), object.NoStop
		}},
		"include": {-1, func(vm *VM, self object.Value, args []object.Value, _ *object.Proc) (object.Value, object.Stop) {
			if v, stop := vm.arity(args, 1, -1); stop != object.NoStop {
				return v, stop
			}
			cls := modOf(self)
			for i := len(args) - 1; i >= 0; i-- {
				mod, ok := args[i].(*object.RubyClass)
				if !ok || !mod.IsModule {
					return vm.Raise(vm.rt.TypeErrorClass, "wrong argument type %s (expected Module)", vm.typeName(args[i]))
				}
				if mod == cls {
					return vm.Raise(vm.rt.ArgumentErrorClass, "cyclic include detected")
				}
				cls.Include(mod)
				if vm.userDefined(mod, "included") {
					if v, stop := vm.send(mod, "included", []object.Value{cls}, nil, true); stop != object.NoStop {
						return v, stop
					}
				}
			}
			return self, object.NoStop
		}},
		"include?": {1, func(vm *VM, self object.Value, args []object.Value, _ *object.Proc) (object.Value, object.Stop) {
			mod, ok := args[0].(*object.RubyClass)
			if !ok || !mod.IsModule {
				return vm.Raise(vm.rt.TypeErrorClass, "wrong argument type %s (expected Module)", vm.typeName(args[0]))
			}
			cls := modOf(self)
			return object.NativeToBool(cls != mod && cls.IsSubclassOf(mod)), object.NoStop
		}},
		"included_modules": {0, func(vm *VM, self object.Value, _ []object.Value, _ *object.Proc) (object.Value, object.Stop) {
			var out []object.Value
			for _, c := range object.Ancestors(modOf(self)) {
				if c.IsModule {
					out = append(out, c)
				}
			}
			return object.NewArray(out...), object.NoStop
		}},
		"instance_methods":           {-1, instanceMethodsBy(object.Public, object.Protected)},
		"public_instance_methods":    {-1, instanceMethodsBy(object.Public)},
		"protected_instance_methods": {-1, instanceMethodsBy(object.Protected)},
		"private_instance_methods":   {-1, instanceMethodsBy(object.Private)},
		"method_defined?":            {-1, methodDefinedBy(object.Public, object.Protected)},
		"public_method_defined?":     {-1, methodDefinedBy(object.Public)},
		"protected_method_defined?":  {-1, methodDefinedBy(object.Protected)},
		"private_method_defined?":    {-1, methodDefinedBy(object.Private)},
		"instance_method": {1, func(vm *VM, self object.Value, args []object.Value, _ *object.Proc) (object.Value, object.Stop) {
			name, v, stop := vm.symbolName(args[0])
			if stop != object.NoStop {
				return v, stop
			}
			cls := modOf(self)
			m := object.FindMethod(cls, name)
			if m == nil {
				return vm.Raise(vm.rt.NameErrorClass, "undefined method '%s' for %s '%s'", name, kindOf(cls), cls.Inspect())
			}
			// Unbound: the receiver is the first argument.
			return &object.Proc{
				Lambda:   true,
				Argc:     1,
				HasSplat: true,
				Fn: func(_ object.Interp, _ object.Value, args []object.Value, blk *object.Proc) (object.Value, object.Stop) {
					if len(args) == 0 {
						return vm.argumentError(0, "1+")
					}
					return vm.callMethod(args[0], m, args[1:], blk)
				},
			}, object.NoStop
		}},
		"attr_reader": {-1, func(vm *VM, self object.Value, args []object.Value, _ *object.Proc) (object.Value, object.Stop) {
			return vm.defineAttrs(modOf(self), args, true, false)
		}},
		"attr": {-1, func(vm *VM, self object.Value, args []object.Value, _ *object.Proc) (object.Value, object.Stop) {
			return vm.defineAttrs(modOf(self), args, true, false)
		}},
		"attr_writer": {-1, func(vm *VM, self object.Value, args []object.Value, _ *object.Proc) (object.Value, object.Stop) {
			return vm.defineAttrs(modOf(self), args, false, true)
		}},
		"attr_accessor": {-1, func(vm *VM, self object.Value, args []object.Value, _ *object.Proc) (object.Value, object.Stop) {
			return vm.defineAttrs(modOf(self), args, true, true)
		}},
		"define_method": {-1, func(vm *VM, self object.Value, args []object.Value, blk *object.Proc) (object.Value, object.Stop) {
			return vm.defineMethodFromBlock(modOf(self), args, blk)
		}},
		"alias_method": {2, func(vm *VM, self object.Value, args []object.Value, _ *object.Proc) (object.Value, object.Stop) {
			newName, v, stop := vm.symbolName(args[0])
			if stop != object.NoStop {
				return v, stop
			}
			oldName, v, stop := vm.symbolName(args[1])
			if stop != object.NoStop {
				return v, stop
			}
			if v, stop := vm.aliasMethod(modOf(self), newName, oldName); stop != object.NoStop {
				return v, stop
			}
			return vm.rt.Intern(newName), object.NoStop
		}},
		"remove_method": {-1, func(vm *VM, self object.Value, args []object.Value, _ *object.Proc) (object.Value, object.Stop) {
			cls := modOf(self)
			names, v, stop := vm.methodNames(args)
			if stop != object.NoStop {
				return v, stop
			}
			for _, name := range names {
				if m, ok := cls.Methods[name]; !ok || m.Undefined {
					return vm.Raise(vm.rt.NameErrorClass, "method '%s' not defined in %s", name, cls.Inspect())
				}
				delete(cls.Methods, name)
			}
			return self, object.NoStop
		}},
		"undef_method": {-1, func(vm *VM, self object.Value, args []object.Value, _ *object.Proc) (object.Value, object.Stop) {
			cls := modOf(self)
			names, v, stop := vm.methodNames(args)
			if stop != object.NoStop {
				return v, stop
			}
			for _, name := range names {
				if object.FindMethod(cls, name) == nil {
					return vm.Raise(vm.rt.NameErrorClass, "undefined method '%s' for %s '%s'", name, kindOf(cls), cls.Inspect())
				}
				cls.DefineMethod(name, &object.Method{Undefined: true})
			}
			return self, object.NoStop
		}},
		"const_get": {-1, func(vm *VM, self object.Value, args []object.Value, _ *object.Proc) (object.Value, object.Stop) {
			if v, stop := vm.arity(args, 1, 2); stop != object.NoStop {
				return v, stop
			}
			path, v, stop := vm.symbolName(args[0])
			if stop != object.NoStop {
				return v, stop
			}
			found, ok, v, stop := vm.resolveConst(modOf(self), path)
			if stop != object.NoStop {
				return v, stop
			}
			if !ok {
				cls := modOf(self)
				if cls == vm.rt.ObjectClass {
					return vm.Raise(vm.rt.NameErrorClass, "uninitialized constant %s", path)
				}
				return vm.Raise(vm.rt.NameErrorClass, "uninitialized constant %s::%s", cls.Inspect(), path)
			}
			return found, object.NoStop
		}},
		"const_set": {2, func(vm *VM, self object.Value, args []object.Value, _ *object.Proc) (object.Value, object.Stop) {
			name, v, stop := vm.symbolName(args[0])
			if stop != object.NoStop {
				return v, stop
			}
			if !isConstName(name) {
				return vm.Raise(vm.rt.NameErrorClass, "wrong constant name %s", name)
			}
			vm.constSet(modOf(self), name, args[1])
			return args[1], object.NoStop
		}},
		"const_defined?": {-1, func(vm *VM, self object.Value, args []object.Value, _ *object.Proc) (object.Value, object.Stop) {
			if v, stop := vm.arity(args, 1, 2); stop != object.NoStop {
				return v, stop
			}
			path, v, stop := vm.symbolName(args[0])
			if stop != object.NoStop {
				return v, stop
			}
			_, ok, v, stop := vm.resolveConst(modOf(self), path)
			if stop != object.NoStop {
				return v, stop
			}
			return object.NativeToBool(ok), object.NoStop
		}},
		"constants": {-1, func(vm *VM, self object.Value, args []object.Value, _ *object.Proc) (object.Value, object.Stop) {
			if v, stop := vm.arity(args, 0, 1); stop != object.NoStop {
				return v, stop
			}
			cls := modOf(self)
			classes := []*object.RubyClass{cls}
			if len(args) == 0 || object.Truthy(args[0]) {
				classes = object.Ancestors(cls)
			}
			seen := map[string]bool{}
			var names []string
			for _, c := range classes {
				if c == vm.rt.ObjectClass && cls != vm.rt.ObjectClass {
					break
				}
				for name := range c.Constants {
					if !seen[name] {
						seen[name] = true
						names = append(names, name)
					}
				}
			}
			return symbolsSorted(vm, names), object.NoStop
		}},
		"private_constant": {-1, func(vm *VM, self object.Value, _ []object.Value, _ *object.Proc) (object.Value, object.Stop) {
			return object.NIL, object.NoStop
		}},
		"class_variable_get": {1, func(vm *VM, self object.Value, args []object.Value, _ *object.Proc) (object.Value, object.Stop) {
			name, v, stop := vm.cvarName(args[0])
			if stop != object.NoStop {
				return v, stop
			}
			cls := modOf(self)
			owner, ok := object.LookupClassVar(cls, name)
			if !ok {
				return vm.Raise(vm.rt.NameErrorClass, "uninitialized class variable %s in %s", name, cls.Inspect())
			}
			return owner.ClassVars[name], object.NoStop
		}},
		"class_variable_set": {2, func(vm *VM, self object.Value, args []object.Value, _ *object.Proc) (object.Value, object.Stop) {
			name, v, stop := vm.cvarName(args[0])
			if stop != object.NoStop {
				return v, stop
			}
			object.SetClassVar(modOf(self), name, args[1])
			return args[1], object.NoStop
		}},
		"class_variable_defined?": {1, func(vm *VM, self object.Value, args []object.Value, _ *object.Proc) (object.Value, object.Stop) {
			name, v, stop := vm.cvarName(args[0])
			if stop != object.NoStop {
				return v, stop
			}
			_, ok := object.LookupClassVar(modOf(self), name)
			return object.NativeToBool(ok), object.NoStop
		}},
		"class_variables": {-1, func(vm *VM, self object.Value, _ []object.Value, _ *object.Proc) (object.Value, object.Stop) {
			seen := map[string]bool{}
			var names []string
			for _, c := range object.Ancestors(modOf(self)) {
				for name := range c.ClassVars {
					if !seen[name] {
						seen[name] = true
						names = append(names, name)
					}
				}
			}
			return symbolsSorted(vm, names), object.NoStop
		}},
		"class_eval":           {-1, moduleEval(false)},
		"module_eval":          {-1, moduleEval(false)},
		"class_exec":           {-1, moduleEval(true)},
		"module_exec":          {-1, moduleEval(true)},
		"private_class_method": {-1, classVisibilityMethod(object.Private)},
		"public_class_method":  {-1, classVisibilityMethod(object.Public)},
	}
}

func modulePrivateMethods() map[string]builtin {
	return map[string]builtin{
		"public":          {-1, visibilityMethod(object.Public)},
		"private":         {-1, visibilityMethod(object.Private)},
		"protected":       {-1, visibilityMethod(object.Protected)},
		"module_function": {-1, moduleFunction},
	}
}

func classMethods() map[string]builtin {
	return map[string]builtin{
		"new": {-1, func(vm *VM, self object.Value, args []object.Value, blk *object.Proc) (object.Value, object.Stop) {
			cls := modOf(self)
			switch cls {
			case vm.rt.ClassClass:
				return vm.newClass(args, blk)
			case vm.rt.ModuleClass:
				if v, stop := vm.arity(args, 0, 0); stop != object.NoStop {
					return v, stop
				}
				mod := vm.rt.NewAnonymousModule()
				if blk != nil {
					if v, stop := vm.callBlock(blk, mod, object.NewLexical(mod, blk.Lexical), []object.Value{mod}, nil); stop != object.NoStop {
						return v, stop
					}
				}
				return mod, object.NoStop
			}
			obj, v, stop := vm.allocate(cls)
			if stop != object.NoStop {
				return v, stop
			}
			if v, stop := vm.send(obj, "initialize", args, blk, true); stop != object.NoStop {
				return v, stop
			}
			return obj, object.NoStop
		}},
		"allocate": {0, func(vm *VM, self object.Value, _ []object.Value, _ *object.Proc) (object.Value, object.Stop) {
			obj, v, stop := vm.allocate(modOf(self))
			if stop != object.NoStop {
				return v, stop
			}
			return obj, object.NoStop
		}},
		"superclass": {0, func(vm *VM, self object.Value, _ []object.Value, _ *object.Proc) (object.Value, object.Stop) {
			super := modOf(self).Superclass
			for super != nil && super.IsSingleton && !modOf(self).IsSingleton {
				super = super.Superclass
			}
			if super == nil {
				return object.NIL, object.NoStop
			}
			return super, object.NoStop
		}},
	}
}

func (vm *VM) allocate(cls *object.RubyClass) (object.Value, object.Value, object.Stop) {
	if cls.IsSingleton {
		v, stop := vm.Raise(vm.rt.TypeErrorClass, "can't create instance of singleton class")
		return nil, v, stop
	}
	alloc := cls.Allocator()
	if alloc == nil {
		v, stop := vm.Raise(vm.rt.TypeErrorClass, "allocator undefined for %s", cls.Inspect())
		return nil, v, stop
	}
	return alloc(cls), nil, object.NoStop
}

// newClass implements Class.new(super = Object) { body }.
func (vm *VM) newClass(args []object.Value, blk *object.Proc) (object.Value, object.Stop) {
	if v, stop := vm.arity(args, 0, 1); stop != object.NoStop {
		return v, stop
	}
	var super *object.RubyClass
	if len(args) == 1 {
		s, ok := args[0].(*object.RubyClass)
		if !ok || s.IsModule {
			return vm.Raise(vm.rt.TypeErrorClass, "superclass must be an instance of Class (given an instance of %s)", vm.typeName(args[0]))
		}
		if s.IsSingleton {
			return vm.Raise(vm.rt.TypeErrorClass, "can't make subclass of singleton class")
		}
		if s == vm.rt.ClassClass {
			return vm.Raise(vm.rt.TypeErrorClass, "can't make subclass of Class")
		}
		super = s
	}
	cls := vm.rt.NewAnonymousClass(super)
	if v, stop := vm.inherited(cls); stop != object.NoStop {
		return v, stop
	}
	if blk != nil {
		if v, stop := vm.callBlock(blk, cls, object.NewLexical(cls, blk.Lexical), []object.Value{cls}, nil); stop != object.NoStop {
			return v, stop
		}
	}
	return cls, object.NoStop
}
