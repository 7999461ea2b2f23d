package object

// Env holds the local variable slots of one method, block or program
// activation. Block environments link to the environment they were created
// in; depth counts links.
type Env struct {
	Slots []Value
	outer *Env
}

// NewEnv creates an environment with size nil slots.
func NewEnv(size int) *Env {
	env := &Env{Slots: make([]Value, size)}
	for i := range env.Slots {
		env.Slots[i] = NIL
	}
	return env
}

// NewEnclosedEnv creates a block environment inside outer.
func NewEnclosedEnv(outer *Env, size int) *Env {
	env := NewEnv(size)
	env.outer = outer
	return env
}

// Outer returns the enclosing environment.
func (e *Env) Outer() *Env { return e.outer }

// Up walks depth environments outwards.
func (e *Env) Up(depth int) *Env {
	env := e
	for i := 0; i < depth && env != nil; i++ {
		env = env.outer
	}
	return env
}

// Get reads a slot depth levels out.
func (e *Env) Get(slot, depth int) Value {
	env := e.Up(depth)
	if env == nil || slot >= len(env.Slots) {
		return NIL
	}
	return env.Slots[slot]
}

// Set writes a slot depth levels out, growing the environment if the slot
// was defined after it was created.
func (e *Env) Set(slot, depth int, v Value) {
	env := e.Up(depth)
	if env == nil {
		return
	}
	env.Grow(slot + 1)
	env.Slots[slot] = v
}

// Grow extends the environment to at least size slots.
func (e *Env) Grow(size int) {
	for len(e.Slots) < size {
		e.Slots = append(e.Slots, NIL)
	}
}

// Lexical is the chain of class and module bodies enclosing a piece of code.
// It drives constant lookup, class variable access and where def puts a
// method.
type Lexical struct {
	Module *RubyClass
	Outer  *Lexical
	// Visibility applies to methods defined by def in this body.
	Visibility Visibility
	// ModuleFunction makes def also define a singleton copy.
	ModuleFunction bool
}

// NewLexical pushes mod onto outer.
func NewLexical(mod *RubyClass, outer *Lexical) *Lexical {
	return &Lexical{Module: mod, Outer: outer}
}

// Top reports whether l is the top-level scope.
func (l *Lexical) Top() bool { return l.Outer == nil }
