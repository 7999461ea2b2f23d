// Package symtab tracks the lexical scopes of local variable names.
//
// The lexer consults it to decide whether a bare identifier is a local variable
// or a method call, the parser defines names as it sees assignments and parameters,
// and the lowering pass resolves names to (depth, index) slots through the same
// scopes.
package symtab

import "fmt"

// Kind is the kind of a local name.
type Kind int

const (
	Local Kind = iota
	BlockLocal
	Param
	Hidden
)

func (k Kind) String() string {
	switch k {
	case Local:
		return "local"
	case BlockLocal:
		return "block-local"
	case Param:
		return "param"
	case Hidden:
		return "hidden"
	}
	return "unknown"
}

// Symbol is a scope entry.
type Symbol struct {
	Name  string
	Kind  Kind
	Index int
}

// ScopeKind tells whether names from enclosing scopes are visible.
type ScopeKind int

const (
	ProgramScope ScopeKind = iota
	MethodScope
	ClassScope
	BlockScope
)

// Scope is one lexical construct's set of locals. Only block scopes see their
// outer scope.
type Scope struct {
	Kind  ScopeKind
	Outer *Scope

	store   map[string]Symbol
	symbols []Symbol
	hidden  int
}

// NewScope returns an empty scope enclosed by outer.
func NewScope(kind ScopeKind, outer *Scope) *Scope {
	return &Scope{Kind: kind, Outer: outer, store: map[string]Symbol{}}
}

// Define adds name to the scope. A plain Local that is already visible through
// the block chain is not redefined; parameters and block-locals always shadow.
func (s *Scope) Define(name string, kind Kind) Symbol {
	if sym, ok := s.store[name]; ok {
		return sym
	}
	if kind == Local {
		if sym, _, ok := s.Resolve(name); ok {
			return sym
		}
	}
	sym := Symbol{Name: name, Kind: kind, Index: len(s.symbols)}
	s.store[name] = sym
	s.symbols = append(s.symbols, sym)
	return sym
}

// DefineHidden allocates a slot that no source identifier can name.
func (s *Scope) DefineHidden(prefix string) Symbol {
	s.hidden++
	name := fmt.Sprintf("%%%s%d", prefix, s.hidden)
	return s.Define(name, Hidden)
}

// Resolve finds name, returning the number of block boundaries crossed.
func (s *Scope) Resolve(name string) (Symbol, int, bool) {
	depth := 0
	for sc := s; sc != nil; sc = sc.Outer {
		if sym, ok := sc.store[name]; ok {
			return sym, depth, true
		}
		if sc.Kind != BlockScope {
			break
		}
		depth++
	}
	return Symbol{}, 0, false
}

// IsLocal reports whether name is a local variable visible from s.
func (s *Scope) IsLocal(name string) bool {
	_, _, ok := s.Resolve(name)
	return ok
}

// Len is the number of slots the scope needs.
func (s *Scope) Len() int { return len(s.symbols) }

// Symbols returns the scope's entries in slot order.
func (s *Scope) Symbols() []Symbol { return s.symbols }

// Names returns the visible (non-hidden) names in slot order.
func (s *Scope) Names() []string {
	names := make([]string, 0, len(s.symbols))
	for _, sym := range s.symbols {
		if sym.Kind != Hidden {
			names = append(names, sym.Name)
		}
	}
	return names
}

// Table is the stack of scopes active while a source unit is lexed and parsed.
type Table struct {
	current *Scope
}

// New returns a table positioned in a fresh program scope.
func New() *Table {
	return &Table{current: NewScope(ProgramScope, nil)}
}

// NewWithScope returns a table positioned in an existing scope. Sub-parsers of
// interpolated strings use it to share their parent's locals.
func NewWithScope(s *Scope) *Table {
	return &Table{current: s}
}

// Current returns the innermost scope.
func (t *Table) Current() *Scope { return t.current }

// Push enters a new scope. Block scopes are linked to the current scope; method
// and class scopes are not visible through, but keep the link so Pop works.
func (t *Table) Push(kind ScopeKind) *Scope {
	t.current = NewScope(kind, t.current)
	return t.current
}

// Pop leaves the innermost scope and returns it.
func (t *Table) Pop() *Scope {
	s := t.current
	if s.Outer != nil {
		t.current = s.Outer
	}
	return s
}

// Define adds name to the innermost scope.
func (t *Table) Define(name string, kind Kind) Symbol {
	return t.current.Define(name, kind)
}

// IsLocal reports whether name is a visible local variable.
func (t *Table) IsLocal(name string) bool {
	return t.current.IsLocal(name)
}
