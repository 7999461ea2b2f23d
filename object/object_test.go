package object

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/alexisbouchez/rubyvm/code"
)

func names(classes []*RubyClass) []string {
	out := make([]string, len(classes))
	for i, c := range classes {
		out[i] = c.Name
	}
	return out
}

func TestLookupOrder(t *testing.T) {
	rt := NewRuntime()
	s := rt.DefineClass("S", nil)
	m1 := rt.DefineModule("M1")
	m2 := rt.DefineModule("M2")
	c := rt.DefineClass("C", s)
	c.Include(m1)
	c.Include(m2)

	s.DefineBuiltin("greet", 0, nil)
	m2.DefineBuiltin("greet", 0, nil)
	m1.DefineBuiltin("greet", 0, nil)

	m := FindMethod(c, "greet")
	if m == nil || m.Owner != m2 {
		t.Fatalf("expected greet from M2, got %+v", m)
	}

	want := []string{"C", "M2", "M1", "S", "Object", "Kernel", "BasicObject"}
	if diff := cmp.Diff(want, names(Ancestors(c))); diff != "" {
		t.Fatalf("ancestors mismatch (-want +got):\n%s", diff)
	}

	if super := FindSuperMethod(c, m2, "greet"); super == nil || super.Owner != m1 {
		t.Fatalf("expected super of M2#greet in M1, got %+v", super)
	}
}

func TestRedefinitionOverwrites(t *testing.T) {
	rt := NewRuntime()
	c := rt.DefineClass("Foo", nil)
	c.DefineBuiltin("to_s", 0, nil)
	first := FindMethod(c, "to_s")
	c.DefineBuiltin("to_s", 0, nil)
	if second := FindMethod(c, "to_s"); second == first {
		t.Fatalf("redefinition kept the old method")
	}

	c.DefineMethod("to_s", &Method{Undefined: true})
	if m := FindMethod(c, "to_s"); m != nil {
		t.Fatalf("undefined method still resolves to %+v", m)
	}
}

func TestClassVariablesShared(t *testing.T) {
	rt := NewRuntime()
	base := rt.DefineClass("Base", nil)
	sub := rt.DefineClass("Sub", base)

	SetClassVar(base, "@@count", &Integer{Value: 1})
	SetClassVar(sub, "@@count", &Integer{Value: 2})

	if _, ok := sub.ClassVars["@@count"]; ok {
		t.Fatalf("subclass got its own copy")
	}
	owner, ok := LookupClassVar(sub, "@@count")
	if !ok || owner != base {
		t.Fatalf("expected the variable in Base, got %v", owner)
	}
	if v := base.ClassVars["@@count"].(*Integer).Value; v != 2 {
		t.Fatalf("expected 2, got %d", v)
	}
}

func TestMetaclassChain(t *testing.T) {
	rt := NewRuntime()
	base := rt.DefineClass("Base", nil)
	sub := rt.DefineClass("Sub", base)

	meta := rt.ClassOf(sub)
	if !meta.IsSingleton || meta.Attached != sub {
		t.Fatalf("expected the metaclass of Sub, got %s", meta.Inspect())
	}
	if meta.Superclass != rt.ClassOf(base) {
		t.Fatalf("metaclass superclass should be Base's metaclass")
	}
	if meta.Inspect() != "#<Class:Sub>" {
		t.Fatalf("unexpected name %s", meta.Inspect())
	}

	rt.ClassOf(base).DefineBuiltin("create", 0, nil)
	if FindMethod(rt.ClassOf(sub), "create") == nil {
		t.Fatalf("class methods are not inherited")
	}
	if FindMethod(rt.ClassOf(sub), "instance_methods") != nil {
		t.Fatalf("nothing defines instance_methods yet")
	}
	rt.ModuleClass.DefineBuiltin("instance_methods", 0, nil)
	if FindMethod(rt.ClassOf(sub), "instance_methods") == nil {
		t.Fatalf("metaclass chain does not reach Module")
	}
}

func TestSingletonClass(t *testing.T) {
	rt := NewRuntime()
	foo := rt.DefineClass("Foo", nil)
	a, b := NewObject(foo), NewObject(foo)

	s, err := rt.SingletonClass(a)
	if err != nil {
		t.Fatal(err)
	}
	s.DefineBuiltin("special", 0, nil)
	if FindMethod(rt.ClassOf(a), "special") == nil {
		t.Fatalf("singleton method not found")
	}
	if FindMethod(rt.ClassOf(b), "special") != nil {
		t.Fatalf("singleton method leaked to another instance")
	}
	if rt.RealClassOf(a) != foo {
		t.Fatalf("class should skip the singleton")
	}
	if _, err := rt.SingletonClass(&Integer{Value: 1}); err == nil {
		t.Fatalf("integers cannot have singleton classes")
	}
}

func TestExceptionHierarchy(t *testing.T) {
	rt := NewRuntime()
	tests := []struct {
		class *RubyClass
		super *RubyClass
	}{
		{rt.NoMethodErrorClass, rt.NameErrorClass},
		{rt.KeyErrorClass, rt.IndexErrorClass},
		{rt.StopIterationClass, rt.IndexErrorClass},
		{rt.FrozenErrorClass, rt.RuntimeErrorClass},
		{rt.FloatDomainErrorClass, rt.RangeErrorClass},
		{rt.NotImplementedErrorClass, rt.ScriptErrorClass},
		{rt.ZeroDivisionErrorClass, rt.StandardErrorClass},
	}
	for _, tt := range tests {
		if tt.class.Superclass != tt.super {
			t.Errorf("%s: expected superclass %s, got %s", tt.class.Name, tt.super.Name, tt.class.Superclass.Name)
		}
	}
	if rt.ScriptErrorClass.IsSubclassOf(rt.StandardErrorClass) {
		t.Errorf("ScriptError must not be a StandardError")
	}
}

func TestIsolatedRuntimes(t *testing.T) {
	a, b := NewRuntime(), NewRuntime()
	a.ObjectClass.DefineBuiltin("only_here", 0, nil)
	if FindMethod(b.ObjectClass, "only_here") != nil {
		t.Fatalf("runtimes share state")
	}
	if a.Intern("x") != a.Intern("x") {
		t.Fatalf("symbols are not interned")
	}
	if a.Intern("x") == b.Intern("x") {
		t.Fatalf("symbol tables are shared")
	}
}

func TestProcArity(t *testing.T) {
	tests := []struct {
		argc, opt, post int
		splat           bool
		want            int
	}{
		{0, 0, 0, false, 0},
		{1, 0, 0, false, 1},
		{2, 0, 0, false, 2},
		{1, 1, 0, false, -2},
		{0, 0, 0, true, -1},
		{1, 0, 0, true, -2},
		{1, 0, 1, true, -3},
	}
	for _, tt := range tests {
		p := code.New("block in <main>", code.BlockUnit, "t.rb", 1)
		p.Argc, p.DefaultArgc, p.PostArgc, p.HasSplat = tt.argc, tt.opt, tt.post, tt.splat
		proc := NewProc(p, NewEnv(0), NIL, nil)
		if got := proc.Arity(); got != tt.want {
			t.Errorf("%+v: expected arity %d, got %d", tt, tt.want, got)
		}
	}
}

func TestHashOrder(t *testing.T) {
	rt := NewRuntime()
	h := NewHash()
	h.Set(rt.Intern("b"), &Integer{Value: 1})
	h.Set(NewString("a"), &Integer{Value: 2})
	h.Set(&Integer{Value: 3}, NIL)
	h.Set(rt.Intern("b"), &Integer{Value: 4})

	if got := h.Inspect(); got != `{b: 4, "a" => 2, 3 => nil}` {
		t.Fatalf("unexpected inspect %s", got)
	}
	if v, ok := h.Get(NewString("a")); !ok || v.(*Integer).Value != 2 {
		t.Fatalf("string keys should match by content")
	}
	if _, ok := h.Get(&Float{Value: 3}); ok {
		t.Fatalf("3.0 must not find the key 3")
	}
	h.Delete(NewString("a"))
	if h.Len() != 2 || h.Inspect() != "{b: 4, 3 => nil}" {
		t.Fatalf("unexpected hash after delete: %s", h.Inspect())
	}
}

func TestInspect(t *testing.T) {
	rt := NewRuntime()
	tests := []struct {
		value Value
		want  string
	}{
		{&Float{Value: 1}, "1.0"},
		{&Float{Value: 2.5}, "2.5"},
		{&Float{Value: 1e20}, "1.0e+20"},
		{NewString("a\nb"), `"a\nb"`},
		{rt.Intern("foo?"), ":foo?"},
		{rt.Intern("foo bar"), `:"foo bar"`},
		{rt.Intern("<=>"), ":<=>"},
		{&Range{Start: &Integer{Value: 1}, End: &Integer{Value: 3}, Exclusive: true}, "1...3"},
		{NewArray(&Integer{Value: 1}, NIL), "[1, nil]"},
		{NewException(rt.RuntimeErrorClass, "boom"), "#<RuntimeError: boom>"},
	}
	for _, tt := range tests {
		if got := tt.value.Inspect(); got != tt.want {
			t.Errorf("expected %s, got %s", tt.want, got)
		}
	}
}

func TestRegexpFlags(t *testing.T) {
	re, err := NewRegexp(`a b # comment`, "xi")
	if err != nil {
		t.Fatal(err)
	}
	if re.Match("xAB", 0) == nil {
		t.Fatalf("extended, case-insensitive pattern did not match")
	}
	re, err = NewRegexp(`(?<year>\d+)-(\d+)?`, "")
	if err != nil {
		t.Fatal(err)
	}
	m := re.Match("on 2024-", 0)
	if m == nil || m.Group(m.Named("year")) != "2024" {
		t.Fatalf("named group failed: %v", m)
	}
	if _, ok := m.GroupOK(2); ok {
		t.Fatalf("group 2 did not participate")
	}
}

func TestEnvGrow(t *testing.T) {
	outer := NewEnv(1)
	inner := NewEnclosedEnv(outer, 0)
	inner.Set(2, 1, &Integer{Value: 7})
	if got := inner.Get(2, 1).(*Integer).Value; got != 7 {
		t.Fatalf("expected 7, got %d", got)
	}
	if inner.Get(1, 1) != NIL {
		t.Fatalf("new slots start as nil")
	}
}
