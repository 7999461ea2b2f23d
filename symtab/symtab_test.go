package symtab

import "testing"

func TestDefineAndResolve(t *testing.T) {
	tbl := New()
	a := tbl.Define("a", Local)
	b := tbl.Define("b", Local)
	if a.Index != 0 || b.Index != 1 {
		t.Fatalf("expected slots 0 and 1, got %d and %d", a.Index, b.Index)
	}
	if again := tbl.Define("a", Local); again.Index != 0 {
		t.Fatalf("redefinition allocated a new slot: %d", again.Index)
	}
	if !tbl.IsLocal("a") || tbl.IsLocal("c") {
		t.Fatalf("IsLocal mismatch")
	}
}

func TestBlockScopesSeeOuter(t *testing.T) {
	tbl := New()
	tbl.Define("x", Local)
	tbl.Push(BlockScope)
	if !tbl.IsLocal("x") {
		t.Fatalf("block scope should see outer local")
	}
	// assignment to an outer name reuses it
	sym := tbl.Define("x", Local)
	if tbl.Current().Len() != 0 || sym.Index != 0 {
		t.Fatalf("assignment inside block shadowed outer local")
	}
	tbl.Define("y", Local)
	inner := tbl.Current()
	tbl.Pop()
	if tbl.IsLocal("y") {
		t.Fatalf("block local leaked to outer scope")
	}

	sym, depth, ok := inner.Resolve("x")
	if !ok || depth != 1 || sym.Index != 0 {
		t.Fatalf("expected x at depth 1 index 0, got %v %d %v", sym, depth, ok)
	}
}

func TestParamsShadow(t *testing.T) {
	tbl := New()
	tbl.Define("x", Local)
	tbl.Push(BlockScope)
	tbl.Define("x", Param)
	if tbl.Current().Len() != 1 {
		t.Fatalf("block parameter did not shadow outer local")
	}
	_, depth, _ := tbl.Current().Resolve("x")
	if depth != 0 {
		t.Fatalf("expected parameter to resolve at depth 0, got %d", depth)
	}
}

func TestMethodScopeIsOpaque(t *testing.T) {
	tbl := New()
	tbl.Define("x", Local)
	tbl.Push(MethodScope)
	if tbl.IsLocal("x") {
		t.Fatalf("method scope must not see top-level locals")
	}
	tbl.Push(BlockScope)
	if tbl.IsLocal("x") {
		t.Fatalf("block inside method must not see top-level locals")
	}
	tbl.Pop()
	tbl.Pop()
	if !tbl.IsLocal("x") {
		t.Fatalf("x lost after popping back to program scope")
	}
}

func TestHiddenSlots(t *testing.T) {
	s := NewScope(ProgramScope, nil)
	s.Define("a", Local)
	h1 := s.DefineHidden("case")
	h2 := s.DefineHidden("case")
	if h1.Name == h2.Name || h1.Index == h2.Index {
		t.Fatalf("hidden slots collide: %v %v", h1, h2)
	}
	if got := s.Names(); len(got) != 1 || got[0] != "a" {
		t.Fatalf("hidden names leaked into Names(): %v", got)
	}
	if s.Len() != 3 {
		t.Fatalf("expected 3 slots, got %d", s.Len())
	}
}
