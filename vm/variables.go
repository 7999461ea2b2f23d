package vm

import (
	"strconv"

	"github.com/alexisbouchez/rubyvm/code"
	"github.com/alexisbouchez/rubyvm/object"
)

func (vm *VM) ivarGet(self object.Value, name string) object.Value {
	if iv := object.IvarsOf(self); iv != nil {
		if v, ok := iv.Get(name); ok {
			return v
		}
	}
	return object.NIL
}

func (vm *VM) ivarSet(self object.Value, name string, v object.Value) (object.Value, object.Stop) {
	if o, ok := self.(*object.Object); ok && o.Frozen {
		return vm.Raise(vm.rt.FrozenErrorClass, "can't modify frozen %s: %s", o.Class().Name, vm.inspect(o))
	}
	iv := object.IvarsOf(self)
	if iv == nil {
		return vm.Raise(vm.rt.FrozenErrorClass, "can't modify frozen %s", vm.rt.RealClassOf(self).Name)
	}
	iv.Set(name, v)
	return nil, object.NoStop
}

// cvarBase is the class whose class variables the current code sees.
func (vm *VM) cvarBase(f *frame) *object.RubyClass {
	for l := f.lexical; l != nil; l = l.Outer {
		mod := l.Module
		if mod.IsSingleton {
			if attached, ok := mod.Attached.(*object.RubyClass); ok {
				return attached
			}
			continue
		}
		return mod
	}
	return vm.rt.ObjectClass
}

func (vm *VM) cvarGet(f *frame, name string) (object.Value, object.Stop) {
	base := vm.cvarBase(f)
	if owner, ok := object.LookupClassVar(base, name); ok {
		return owner.ClassVars[name], object.NoStop
	}
	return vm.Raise(vm.rt.NameErrorClass, "uninitialized class variable %s in %s", name, base.Name)
}

func (vm *VM) globalGet(name string) object.Value {
	switch name {
	case "$~":
		if vm.lastMatch != nil {
			return vm.lastMatch
		}
		return object.NIL
	case "$0", "$PROGRAM_NAME":
		if f := vm.frame; f != nil {
			return object.NewString(f.proto.File)
		}
	}
	if len(name) > 1 && name[1] >= '1' && name[1] <= '9' {
		n, err := strconv.Atoi(name[1:])
		if err == nil {
			if vm.lastMatch == nil {
				return object.NIL
			}
			if g, ok := vm.lastMatch.GroupOK(n); ok {
				return object.NewString(g)
			}
			return object.NIL
		}
	}
	if v, ok := vm.rt.Globals[name]; ok {
		return v
	}
	return object.NIL
}

// lookupConst searches the lexical nesting, then the ancestors of the
// innermost module, then Object.
func (vm *VM) lookupConst(lexical *object.Lexical, name string) (object.Value, bool) {
	for l := lexical; l != nil && l.Outer != nil; l = l.Outer {
		if v, ok := l.Module.Constants[name]; ok {
			return v, true
		}
	}
	if lexical != nil {
		if v, ok := object.LookupConst(lexical.Module, name); ok {
			return v, true
		}
	}
	return object.LookupConst(vm.rt.ObjectClass, name)
}

func (vm *VM) constGet(f *frame, name string) (object.Value, object.Stop) {
	if v, ok := vm.lookupConst(f.lexical, name); ok {
		return v, object.NoStop
	}
	if mod := f.lexical.Module; mod != vm.rt.ObjectClass && !mod.IsSingleton {
		return vm.Raise(vm.rt.NameErrorClass, "uninitialized constant %s::%s", mod.Name, name)
	}
	return vm.Raise(vm.rt.NameErrorClass, "uninitialized constant %s", name)
}

func (vm *VM) scopedConstGet(ns object.Value, name string) (object.Value, object.Stop) {
	mod, ok := ns.(*object.RubyClass)
	if !ok {
		return vm.Raise(vm.rt.TypeErrorClass, "%s is not a class/module", vm.inspect(ns))
	}
	if v, ok := object.LookupConst(mod, name); ok {
		return v, object.NoStop
	}
	if mod == vm.rt.ObjectClass {
		return vm.Raise(vm.rt.NameErrorClass, "uninitialized constant %s", name)
	}
	return vm.Raise(vm.rt.NameErrorClass, "uninitialized constant %s::%s", mod.Name, name)
}

// constSet binds a constant, naming an anonymous class after it.
func (vm *VM) constSet(mod *object.RubyClass, name string, v object.Value) {
	if c, ok := v.(*object.RubyClass); ok && c.Name == "" && !c.IsSingleton {
		if mod == vm.rt.ObjectClass {
			c.Name = name
		} else {
			c.Name = mod.Name + "::" + name
		}
	}
	mod.Constants[name] = v
}

func (vm *VM) defined(f *frame, kind code.DefinedKind, name string, hasRecv bool) (object.Value, object.Stop) {
	var result string
	switch kind {
	case code.DefinedIvar:
		if iv := object.IvarsOf(f.self); iv != nil {
			if _, ok := iv.Get(name); ok {
				result = "instance-variable"
			}
		}
	case code.DefinedGlobal:
		if _, ok := vm.rt.Globals[name]; ok {
			result = "global-variable"
		}
	case code.DefinedCvar:
		if _, ok := object.LookupClassVar(vm.cvarBase(f), name); ok {
			result = "class variable"
		}
	case code.DefinedConst:
		if _, ok := vm.lookupConst(f.lexical, name); ok {
			result = "constant"
		}
	case code.DefinedMethod:
		if hasRecv {
			if vm.respondTo(f.pop(), name, false) {
				result = "method"
			}
		} else if vm.respondTo(f.self, name, true) {
			result = "method"
		}
	case code.DefinedYield:
		if f.block != nil {
			result = "yield"
		}
	case code.DefinedSuper:
		if f.method != nil && f.defClass != nil &&
			object.FindSuperMethod(vm.rt.ClassOf(f.self), f.defClass, f.method.Name) != nil {
			result = "super"
		}
	}
	if result == "" {
		return object.NIL, object.NoStop
	}
	return object.NewString(result), object.NoStop
}
