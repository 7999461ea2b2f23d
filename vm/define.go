package vm

import (
	"github.com/alexisbouchez/rubyvm/code"
	"github.com/alexisbouchez/rubyvm/object"
)

// defineMethod handles def. A top-level def becomes a private method of
// Object.
func (vm *VM) defineMethod(f *frame, name string, proto *code.Proto, singleton bool) (object.Value, object.Stop) {
	m := &object.Method{Proto: proto, Lexical: f.lexical, Argc: -1}
	if singleton {
		target := f.pop()
		cls, err := vm.rt.SingletonClass(target)
		if err != nil {
			return vm.Raise(vm.rt.TypeErrorClass, "%s", err)
		}
		cls.DefineMethod(name, m)
		return vm.rt.Intern(name), object.NoStop
	}

	mod := f.lexical.Module
	m.Visibility = f.lexical.Visibility
	if name == "initialize" || name == "initialize_copy" || name == "respond_to_missing?" {
		m.Visibility = object.Private
	}
	mod.DefineMethod(name, m)
	if f.lexical.ModuleFunction {
		meta, _ := vm.rt.SingletonClass(mod)
		meta.DefineMethod(name, &object.Method{Proto: proto, Lexical: f.lexical, Argc: -1})
	}
	return vm.rt.Intern(name), object.NoStop
}

// defineClass opens or creates a class, module or singleton class and runs
// its body with self set to it.
func (vm *VM) defineClass(f *frame, name string, body *code.Proto, flags int) (object.Value, object.Stop) {
	var super object.Value
	if flags&code.ClassHasSuper != 0 {
		super = f.pop()
	}

	var cls *object.RubyClass
	switch {
	case flags&code.ClassSingleton != 0:
		sc, err := vm.rt.SingletonClass(f.pop())
		if err != nil {
			return vm.Raise(vm.rt.TypeErrorClass, "%s", err)
		}
		cls = sc
	default:
		cbase := f.lexical.Module
		if flags&code.ClassScoped != 0 {
			ns, ok := f.pop().(*object.RubyClass)
			if !ok {
				return vm.Raise(vm.rt.TypeErrorClass, "%s is not a class/module", name)
			}
			cbase = ns
		}
		if cbase.IsSingleton {
			cbase = vm.rt.ObjectClass
		}
		var v object.Value
		var stop object.Stop
		if flags&code.ClassModule != 0 {
			v, stop = vm.openModule(cbase, name)
		} else {
			v, stop = vm.openClass(cbase, name, super)
		}
		if stop != object.NoStop {
			return v, stop
		}
		cls = v.(*object.RubyClass)
	}

	lexical := object.NewLexical(cls, f.lexical)
	bf := vm.newFrame(body, object.NewEnv(body.NumLocals()), cls, lexical)
	return vm.execute(bf)
}

func (vm *VM) openModule(cbase *object.RubyClass, name string) (object.Value, object.Stop) {
	if existing, ok := cbase.Constants[name]; ok {
		mod, ok := existing.(*object.RubyClass)
		if !ok || !mod.IsModule {
			return vm.Raise(vm.rt.TypeErrorClass, "%s is not a module", name)
		}
		return mod, object.NoStop
	}
	return vm.rt.DefineModuleUnder(cbase, name), object.NoStop
}

func (vm *VM) openClass(cbase *object.RubyClass, name string, superValue object.Value) (object.Value, object.Stop) {
	var super *object.RubyClass
	if superValue != nil {
		s, ok := superValue.(*object.RubyClass)
		if !ok || s.IsModule {
			return vm.Raise(vm.rt.TypeErrorClass, "superclass must be an instance of Class (given an instance of %s)", vm.rt.RealClassOf(superValue).Name)
		}
		super = s
	}
	if existing, ok := cbase.Constants[name]; ok {
		cls, ok := existing.(*object.RubyClass)
		if !ok || cls.IsModule {
			return vm.Raise(vm.rt.TypeErrorClass, "%s is not a class", name)
		}
		if super != nil && cls.Superclass.RealClass() != super {
			return vm.Raise(vm.rt.TypeErrorClass, "superclass mismatch for class %s", name)
		}
		return cls, object.NoStop
	}
	cls := vm.rt.DefineClassUnder(cbase, name, super)
	if v, stop := vm.inherited(cls); stop != object.NoStop {
		return v, stop
	}
	return cls, object.NoStop
}

// inherited calls a user-defined Class#inherited hook on the superclass.
func (vm *VM) inherited(cls *object.RubyClass) (object.Value, object.Stop) {
	super := cls.Superclass
	if super == nil || !vm.userDefined(super, "inherited") {
		return nil, object.NoStop
	}
	return vm.send(super, "inherited", []object.Value{cls}, nil, true)
}

func (vm *VM) alias(f *frame, newName, oldName string, global bool) (object.Value, object.Stop) {
	if global {
		vm.rt.Globals[newName] = vm.globalGet(oldName)
		return nil, object.NoStop
	}
	return vm.aliasMethod(f.lexical.Module, newName, oldName)
}

func (vm *VM) aliasMethod(mod *object.RubyClass, newName, oldName string) (object.Value, object.Stop) {
	m := object.FindMethod(mod, oldName)
	if m == nil {
		return vm.Raise(vm.rt.NameErrorClass, "undefined method '%s' for class '%s'", oldName, mod.Inspect())
	}
	alias := *m
	owner := m.Owner
	mod.DefineMethod(newName, &alias)
	alias.Owner = owner
	return nil, object.NoStop
}

func (vm *VM) undef(f *frame, name string) (object.Value, object.Stop) {
	mod := f.lexical.Module
	if object.FindMethod(mod, name) == nil {
		return vm.Raise(vm.rt.NameErrorClass, "undefined method '%s' for class '%s'", name, mod.Inspect())
	}
	mod.DefineMethod(name, &object.Method{Undefined: true})
	return nil, object.NoStop
}
