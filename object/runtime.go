package object

import (
	"fmt"
	"io"
	"os"
)

// Runtime owns the class registry, the global variables and the symbol
// table. Independent runtimes share nothing.
type Runtime struct {
	BasicObjectClass *RubyClass
	ObjectClass      *RubyClass
	ModuleClass      *RubyClass
	ClassClass       *RubyClass
	KernelModule     *RubyClass
	ComparableModule *RubyClass
	EnumerableModule *RubyClass

	NilClass        *RubyClass
	TrueClass       *RubyClass
	FalseClass      *RubyClass
	NumericClass    *RubyClass
	IntegerClass    *RubyClass
	FloatClass      *RubyClass
	StringClass     *RubyClass
	SymbolClass     *RubyClass
	ArrayClass      *RubyClass
	HashClass       *RubyClass
	RangeClass      *RubyClass
	ProcClass       *RubyClass
	RegexpClass     *RubyClass
	MatchDataClass  *RubyClass
	EnumeratorClass *RubyClass

	ExceptionClass           *RubyClass
	ScriptErrorClass         *RubyClass
	NotImplementedErrorClass *RubyClass
	StandardErrorClass       *RubyClass
	ArgumentErrorClass       *RubyClass
	UncaughtThrowErrorClass  *RubyClass
	IndexErrorClass          *RubyClass
	KeyErrorClass            *RubyClass
	StopIterationClass       *RubyClass
	LocalJumpErrorClass      *RubyClass
	NameErrorClass           *RubyClass
	NoMethodErrorClass       *RubyClass
	RangeErrorClass          *RubyClass
	FloatDomainErrorClass    *RubyClass
	RuntimeErrorClass        *RubyClass
	FrozenErrorClass         *RubyClass
	TypeErrorClass           *RubyClass
	ZeroDivisionErrorClass   *RubyClass
	SystemStackErrorClass    *RubyClass

	// Main is the top-level self.
	Main    *Object
	Globals map[string]Value
	Out     io.Writer

	symbols map[string]*Symbol
}

// NewRuntime builds the core class hierarchy.
func NewRuntime() *Runtime {
	rt := &Runtime{
		Globals: map[string]Value{},
		Out:     os.Stdout,
		symbols: map[string]*Symbol{},
	}

	rt.BasicObjectClass = newClass("BasicObject", nil, false)
	rt.ObjectClass = newClass("Object", rt.BasicObjectClass, false)
	rt.ModuleClass = newClass("Module", rt.ObjectClass, false)
	rt.ClassClass = newClass("Class", rt.ModuleClass, false)
	for _, c := range []*RubyClass{rt.BasicObjectClass, rt.ObjectClass, rt.ModuleClass, rt.ClassClass} {
		rt.ObjectClass.Constants[c.Name] = c
	}
	rt.BasicObjectClass.DefineAllocMethod(func(class *RubyClass) Value { return NewObject(class) })

	rt.KernelModule = rt.DefineModule("Kernel")
	rt.ComparableModule = rt.DefineModule("Comparable")
	rt.EnumerableModule = rt.DefineModule("Enumerable")
	rt.ObjectClass.Include(rt.KernelModule)

	rt.NilClass = rt.DefineClass("NilClass", nil)
	rt.TrueClass = rt.DefineClass("TrueClass", nil)
	rt.FalseClass = rt.DefineClass("FalseClass", nil)
	rt.NumericClass = rt.DefineClass("Numeric", nil)
	rt.NumericClass.Include(rt.ComparableModule)
	rt.IntegerClass = rt.DefineClass("Integer", rt.NumericClass)
	rt.FloatClass = rt.DefineClass("Float", rt.NumericClass)
	rt.StringClass = rt.DefineClass("String", nil)
	rt.StringClass.Include(rt.ComparableModule)
	rt.SymbolClass = rt.DefineClass("Symbol", nil)
	rt.ArrayClass = rt.DefineClass("Array", nil)
	rt.ArrayClass.Include(rt.EnumerableModule)
	rt.HashClass = rt.DefineClass("Hash", nil)
	rt.HashClass.Include(rt.EnumerableModule)
	rt.RangeClass = rt.DefineClass("Range", nil)
	rt.RangeClass.Include(rt.EnumerableModule)
	rt.ProcClass = rt.DefineClass("Proc", nil)
	rt.RegexpClass = rt.DefineClass("Regexp", nil)
	rt.MatchDataClass = rt.DefineClass("MatchData", nil)
	rt.EnumeratorClass = rt.DefineClass("Enumerator", nil)
	rt.EnumeratorClass.Include(rt.EnumerableModule)

	rt.StringClass.DefineAllocMethod(func(*RubyClass) Value { return NewString("") })
	rt.ArrayClass.DefineAllocMethod(func(*RubyClass) Value { return NewArray() })
	rt.HashClass.DefineAllocMethod(func(*RubyClass) Value { return NewHash() })

	rt.ExceptionClass = rt.DefineClass("Exception", nil)
	rt.ExceptionClass.DefineAllocMethod(func(class *RubyClass) Value {
		return &Exception{Object: Object{class: class}, Message: NIL}
	})
	exc := func(name string, super *RubyClass) *RubyClass { return rt.DefineClass(name, super) }
	rt.ScriptErrorClass = exc("ScriptError", rt.ExceptionClass)
	rt.NotImplementedErrorClass = exc("NotImplementedError", rt.ScriptErrorClass)
	rt.StandardErrorClass = exc("StandardError", rt.ExceptionClass)
	rt.ArgumentErrorClass = exc("ArgumentError", rt.StandardErrorClass)
	rt.UncaughtThrowErrorClass = exc("UncaughtThrowError", rt.ArgumentErrorClass)
	rt.IndexErrorClass = exc("IndexError", rt.StandardErrorClass)
	rt.KeyErrorClass = exc("KeyError", rt.IndexErrorClass)
	rt.StopIterationClass = exc("StopIteration", rt.IndexErrorClass)
	rt.LocalJumpErrorClass = exc("LocalJumpError", rt.StandardErrorClass)
	rt.NameErrorClass = exc("NameError", rt.StandardErrorClass)
	rt.NoMethodErrorClass = exc("NoMethodError", rt.NameErrorClass)
	rt.RangeErrorClass = exc("RangeError", rt.StandardErrorClass)
	rt.FloatDomainErrorClass = exc("FloatDomainError", rt.RangeErrorClass)
	rt.RuntimeErrorClass = exc("RuntimeError", rt.StandardErrorClass)
	rt.FrozenErrorClass = exc("FrozenError", rt.RuntimeErrorClass)
	rt.TypeErrorClass = exc("TypeError", rt.StandardErrorClass)
	rt.ZeroDivisionErrorClass = exc("ZeroDivisionError", rt.StandardErrorClass)
	rt.SystemStackErrorClass = exc("SystemStackError", rt.ExceptionClass)

	rt.Main = NewObject(rt.ObjectClass)
	return rt
}

// DefineClass creates a top-level class. A nil super means Object.
func (rt *Runtime) DefineClass(name string, super *RubyClass) *RubyClass {
	return rt.DefineClassUnder(rt.ObjectClass, name, super)
}

// DefineModule creates a top-level module.
func (rt *Runtime) DefineModule(name string) *RubyClass {
	return rt.DefineModuleUnder(rt.ObjectClass, name)
}

// DefineClassUnder creates a class as a constant of outer.
func (rt *Runtime) DefineClassUnder(outer *RubyClass, name string, super *RubyClass) *RubyClass {
	if super == nil {
		super = rt.ObjectClass
	}
	c := newClass(qualifiedName(rt, outer, name), super, false)
	outer.Constants[name] = c
	return c
}

// DefineModuleUnder creates a module as a constant of outer.
func (rt *Runtime) DefineModuleUnder(outer *RubyClass, name string) *RubyClass {
	m := newClass(qualifiedName(rt, outer, name), nil, true)
	outer.Constants[name] = m
	return m
}

// NewAnonymousClass creates an unnamed class, as Class.new does.
func (rt *Runtime) NewAnonymousClass(super *RubyClass) *RubyClass {
	if super == nil {
		super = rt.ObjectClass
	}
	return newClass("", super, false)
}

// NewAnonymousModule creates an unnamed module, as Module.new does.
func (rt *Runtime) NewAnonymousModule() *RubyClass {
	return newClass("", nil, true)
}

func qualifiedName(rt *Runtime, outer *RubyClass, name string) string {
	if outer == nil || outer == rt.ObjectClass {
		return name
	}
	return outer.Name + "::" + name
}

// Intern returns the unique symbol for name.
func (rt *Runtime) Intern(name string) *Symbol {
	if s, ok := rt.symbols[name]; ok {
		return s
	}
	s := &Symbol{Name: name}
	rt.symbols[name] = s
	return s
}

// Symbols lists every interned symbol.
func (rt *Runtime) Symbols() []*Symbol {
	out := make([]*Symbol, 0, len(rt.symbols))
	for _, s := range rt.symbols {
		out = append(out, s)
	}
	return out
}

// ClassOf returns the class that method lookup starts from: the singleton
// class when one exists.
func (rt *Runtime) ClassOf(v Value) *RubyClass {
	switch v := v.(type) {
	case *Object:
		if v.singleton != nil {
			return v.singleton
		}
		return v.class
	case *Exception:
		if v.singleton != nil {
			return v.singleton
		}
		return v.class
	case *RubyClass:
		return rt.metaclass(v)
	}
	return rt.RealClassOf(v)
}

// RealClassOf returns the class Object#class reports.
func (rt *Runtime) RealClassOf(v Value) *RubyClass {
	switch v := v.(type) {
	case nil, *Nil:
		return rt.NilClass
	case *Boolean:
		if v.Value {
			return rt.TrueClass
		}
		return rt.FalseClass
	case *Integer:
		return rt.IntegerClass
	case *Float:
		return rt.FloatClass
	case *String:
		return rt.StringClass
	case *Symbol:
		return rt.SymbolClass
	case *Array:
		return rt.ArrayClass
	case *Hash:
		return rt.HashClass
	case *Range:
		return rt.RangeClass
	case *Proc:
		return rt.ProcClass
	case *Regexp:
		return rt.RegexpClass
	case *MatchData:
		return rt.MatchDataClass
	case *Enumerator:
		return rt.EnumeratorClass
	case *Object:
		return v.class
	case *Exception:
		return v.class
	case *RubyClass:
		if v.IsModule {
			return rt.ModuleClass
		}
		return rt.ClassClass
	}
	return rt.ObjectClass
}

// metaclass returns the singleton class of a class or module, creating it
// and its superclass's on first use.
func (rt *Runtime) metaclass(c *RubyClass) *RubyClass {
	if c.meta != nil {
		return c.meta
	}
	var super *RubyClass
	switch {
	case c.IsSingleton:
		super = rt.ClassClass
	case c.IsModule:
		super = rt.ModuleClass
	case c.Superclass == nil:
		super = rt.ClassClass
	default:
		super = rt.metaclass(c.Superclass)
	}
	meta := newClass("", super, false)
	meta.IsSingleton = true
	meta.Attached = c
	c.meta = meta
	return meta
}

// SingletonClass returns v's singleton class, creating it when needed.
func (rt *Runtime) SingletonClass(v Value) (*RubyClass, error) {
	switch v := v.(type) {
	case *RubyClass:
		return rt.metaclass(v), nil
	case *Object:
		if v.singleton == nil {
			v.singleton = singletonOf(v.class, v)
		}
		return v.singleton, nil
	case *Exception:
		if v.singleton == nil {
			v.singleton = singletonOf(v.class, v)
		}
		return v.singleton, nil
	}
	return nil, fmt.Errorf("can't define singleton")
}

func singletonOf(class *RubyClass, attached Value) *RubyClass {
	s := newClass("", class, false)
	s.IsSingleton = true
	s.Attached = attached
	return s
}

// IsA reports whether v is an instance of class or one of its descendants.
func (rt *Runtime) IsA(v Value, class *RubyClass) bool {
	return rt.ClassOf(v).IsSubclassOf(class)
}

// NewError builds an exception instance with a formatted message.
func (rt *Runtime) NewError(class *RubyClass, format string, args ...any) *Exception {
	return NewException(class, fmt.Sprintf(format, args...))
}

// IvarsOf returns the instance variable table of v, or nil when v cannot
// hold instance variables.
func IvarsOf(v Value) *Ivars {
	switch v := v.(type) {
	case *Object:
		return &v.Ivars
	case *Exception:
		return &v.Ivars
	case *RubyClass:
		return &v.Ivars
	}
	return nil
}
