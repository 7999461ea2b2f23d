package object

import (
	"github.com/alexisbouchez/rubyvm/code"
)

// Visibility controls which call sites may invoke a method.
type Visibility int

const (
	Public Visibility = iota
	Private
	Protected
)

func (v Visibility) String() string {
	switch v {
	case Private:
		return "private"
	case Protected:
		return "protected"
	}
	return "public"
}

// Interp is the view of the interpreter that builtins get.
type Interp interface {
	Runtime() *Runtime
	Send(recv Value, name string, args []Value, blk *Proc) (Value, Stop)
	CallBlock(blk *Proc, args []Value) (Value, Stop)
	Raise(class *RubyClass, format string, args ...any) (Value, Stop)
}

// BuiltinFunc implements a method in Go.
type BuiltinFunc func(it Interp, self Value, args []Value, blk *Proc) (Value, Stop)

// AllocFunc creates a bare instance of a class.
type AllocFunc func(class *RubyClass) Value

// Method is an entry in a method table. Exactly one of Proto, Builtin and
// Proc is set, unless Undefined marks an undef'd name.
type Method struct {
	Name       string
	Owner      *RubyClass
	Visibility Visibility
	Proto      *code.Proto
	Builtin    BuiltinFunc
	Proc       *Proc // define_method
	// Lexical is the module nesting the method was defined in.
	Lexical *Lexical
	// Argc is the fixed argument count of a builtin, or -1 when it checks
	// its own arguments.
	Argc      int
	Undefined bool
}

// Arity follows Method#arity.
func (m *Method) Arity() int {
	switch {
	case m.Proto != nil:
		p := m.Proto
		required := p.Argc + p.PostArgc
		if p.HasSplat || p.DefaultArgc > 0 {
			return -required - 1
		}
		return required
	case m.Proc != nil:
		return m.Proc.Arity()
	}
	return m.Argc
}

// RubyClass is a class or a module.
type RubyClass struct {
	Name        string
	Superclass  *RubyClass
	IsModule    bool
	IsSingleton bool
	Attached    Value // the object a singleton class belongs to
	Methods     map[string]*Method
	Constants   map[string]Value
	Includes    []*RubyClass
	ClassVars   map[string]Value
	Alloc       AllocFunc
	Ivars       Ivars

	meta *RubyClass
}

func (c *RubyClass) Type() Type {
	if c.IsModule {
		return MODULE_OBJ
	}
	return CLASS_OBJ
}

func (c *RubyClass) Inspect() string {
	if c.IsSingleton {
		if c.Attached != nil {
			return "#<Class:" + c.Attached.Inspect() + ">"
		}
		return "#<Class:?>"
	}
	if c.Name == "" {
		if c.IsModule {
			return "#<Module:anonymous>"
		}
		return "#<Class:anonymous>"
	}
	return c.Name
}

// DefineMethod adds m under name, replacing any previous definition.
func (c *RubyClass) DefineMethod(name string, m *Method) {
	m.Name = name
	m.Owner = c
	c.Methods[name] = m
}

// DefineBuiltin registers a Go method. argc is the fixed argument count, or
// -1 when fn checks its own arguments.
func (c *RubyClass) DefineBuiltin(name string, argc int, fn BuiltinFunc) {
	c.DefineMethod(name, &Method{Builtin: fn, Argc: argc})
}

// DefineAllocMethod sets how new instances are created.
func (c *RubyClass) DefineAllocMethod(fn AllocFunc) { c.Alloc = fn }

// Include appends mod to the include list. Including a module twice has no
// effect.
func (c *RubyClass) Include(mod *RubyClass) {
	for _, m := range c.Includes {
		if m == mod {
			return
		}
	}
	c.Includes = append(c.Includes, mod)
}

// Allocator returns the nearest allocation function up the superclass chain.
func (c *RubyClass) Allocator() AllocFunc {
	for k := c; k != nil; k = k.Superclass {
		if k.Alloc != nil {
			return k.Alloc
		}
	}
	return nil
}

// IsSubclassOf reports whether other is among c's ancestors.
func (c *RubyClass) IsSubclassOf(other *RubyClass) bool {
	for _, a := range Ancestors(c) {
		if a == other {
			return true
		}
	}
	return false
}

// RealClass skips singleton classes.
func (c *RubyClass) RealClass() *RubyClass {
	k := c
	for k != nil && k.IsSingleton {
		k = k.Superclass
	}
	return k
}

// lookup searches c's own table, then its includes, last included first.
func (c *RubyClass) lookup(name string) (*Method, bool) {
	if m, ok := c.Methods[name]; ok {
		return m, true
	}
	for i := len(c.Includes) - 1; i >= 0; i-- {
		if m, ok := c.Includes[i].lookup(name); ok {
			return m, true
		}
	}
	return nil, false
}

// FindMethod resolves name starting at cls: own table, included modules in
// reverse order of inclusion, then the superclass chain. It returns nil for
// a miss or an undefined name.
func FindMethod(cls *RubyClass, name string) *Method {
	for c := cls; c != nil; c = c.Superclass {
		if m, ok := c.lookup(name); ok {
			if m.Undefined {
				return nil
			}
			return m
		}
	}
	return nil
}

// FindSuperMethod resolves name in the ancestors of cls that follow owner.
func FindSuperMethod(cls, owner *RubyClass, name string) *Method {
	ancestors := Ancestors(cls)
	for i, a := range ancestors {
		if a != owner {
			continue
		}
		for _, next := range ancestors[i+1:] {
			if m, ok := next.Methods[name]; ok {
				if m.Undefined {
					return nil
				}
				return m
			}
		}
		return nil
	}
	return nil
}

// Ancestors lists the method resolution order of cls.
func Ancestors(cls *RubyClass) []*RubyClass {
	var out []*RubyClass
	seen := map[*RubyClass]bool{}
	var add func(c *RubyClass)
	add = func(c *RubyClass) {
		if seen[c] {
			return
		}
		seen[c] = true
		out = append(out, c)
		for i := len(c.Includes) - 1; i >= 0; i-- {
			add(c.Includes[i])
		}
	}
	for c := cls; c != nil; c = c.Superclass {
		add(c)
	}
	return out
}

// LookupClassVar finds the class that holds a class variable, searching
// ancestors of base.
func LookupClassVar(base *RubyClass, name string) (*RubyClass, bool) {
	for _, c := range Ancestors(base) {
		if _, ok := c.ClassVars[name]; ok {
			return c, true
		}
	}
	return nil, false
}

// SetClassVar assigns a class variable in the class that first defined it,
// or in base when none has.
func SetClassVar(base *RubyClass, name string, v Value) {
	if owner, ok := LookupClassVar(base, name); ok {
		owner.ClassVars[name] = v
		return
	}
	base.ClassVars[name] = v
}

// LookupConst searches cls and its ancestors.
func LookupConst(cls *RubyClass, name string) (Value, bool) {
	for _, c := range Ancestors(cls) {
		if v, ok := c.Constants[name]; ok {
			return v, true
		}
	}
	return nil, false
}

func newClass(name string, super *RubyClass, module bool) *RubyClass {
	return &RubyClass{
		Name:       name,
		Superclass: super,
		IsModule:   module,
		Methods:    map[string]*Method{},
		Constants:  map[string]Value{},
		ClassVars:  map[string]Value{},
	}
}
