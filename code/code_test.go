package code

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"gopkg.in/yaml.v3"
)

func TestArityOf(t *testing.T) {
	tests := []struct {
		argc, opt, post int
		splat           bool
		expected        Arity
	}{
		{0, 0, 0, false, NoArg},
		{1, 0, 0, false, OneArg},
		{2, 0, 0, false, VarArg},
		{0, 0, 0, true, VarArg},
		{1, 1, 0, false, VarArg},
		{0, 0, 1, false, VarArg},
	}
	for i, tt := range tests {
		if got := ArityOf(tt.argc, tt.opt, tt.post, tt.splat); got != tt.expected {
			t.Errorf("test[%d]: expected %s, got %s", i, tt.expected, got)
		}
	}
}

func TestExpectedArgs(t *testing.T) {
	tests := []struct {
		required, optional int
		splat              bool
		expected           string
	}{
		{2, 0, false, "2"},
		{1, 2, false, "1..3"},
		{1, 2, true, "1+"},
		{0, 0, true, "0+"},
	}
	for _, tt := range tests {
		if got := ExpectedArgs(tt.required, tt.optional, tt.splat); got != tt.expected {
			t.Errorf("expected %q, got %q", tt.expected, got)
		}
	}
}

func TestConstInterning(t *testing.T) {
	p := New("<main>", ProgramUnit, "t.rb", 1)
	a := p.Const(int64(1))
	b := p.Const("x")
	c := p.Const(int64(1))
	d := p.Const(Sym("x"))
	if a != c {
		t.Fatalf("equal constants should share a slot")
	}
	if b == d {
		t.Fatalf("a string and a symbol must not share a slot")
	}
	if len(p.Consts) != 3 {
		t.Fatalf("expected 3 constants, got %d", len(p.Consts))
	}
}

func TestPatch(t *testing.T) {
	p := New("<main>", ProgramUnit, "t.rb", 1)
	p.Emit(1, PutTrue)
	j := p.Emit(1, BranchUnless, -1)
	p.Emit(1, PutNil)
	p.Patch(j)
	p.Emit(1, Leave)
	if p.Code[j].A != 3 {
		t.Fatalf("expected jump to 3, got %d", p.Code[j].A)
	}
	if diff := cmp.Diff([]string{"puttrue", "branchunless", "putnil", "leave"}, Ops(p)); diff != "" {
		t.Fatalf("ops mismatch (-want +got):\n%s", diff)
	}
}

func sample() *Proto {
	p := New("<main>", ProgramUnit, "t.rb", 1)
	p.Locals = []string{"x"}
	blk := New("block in <main>", BlockUnit, "t.rb", 2)
	blk.Argc = 1
	blk.Arity = OneArg
	blk.Locals = []string{"y"}
	child := p.AddChild(blk)
	blk.Emit(2, GetLocal, 0, 1)
	blk.Emit(2, Leave)

	p.Emit(1, PutObject, p.Const(int64(42)))
	p.Emit(1, SetLocal, 0, 0)
	p.Emit(2, PutSelf)
	call := p.AddCall(CallInfo{Name: "each", Argc: 0, Flags: FCall, Block: child})
	p.Emit(2, Send, call)
	p.Emit(2, Leave)
	return p
}

func TestDisassemble(t *testing.T) {
	got := Disassemble(sample())
	want := strings.Join([]string{
		"== <main> (program) t.rb:1",
		"locals: [x]",
		"0000 putobject      42  (1)",
		"0001 setlocal       x@0, 0",
		"0002 putself  (2)",
		"0003 send           <mid:each, argc:0, FCALL>, block in <main>",
		"0004 leave",
		"",
		"== block in <main> (block) t.rb:2",
		"locals: [y]",
		"params: argc=1 opt=0 post=0 splat=false arity=onearg",
		"0000 getlocal       x@0, 1  (2)",
		"0001 leave",
		"",
	}, "\n")
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("listing mismatch (-want +got):\n%s", diff)
	}
}

func TestDumpYAML(t *testing.T) {
	out, err := DumpYAML(sample())
	if err != nil {
		t.Fatalf("DumpYAML: %v", err)
	}
	var doc struct {
		Name     string   `yaml:"name"`
		Kind     string   `yaml:"kind"`
		Code     []string `yaml:"code"`
		Children []struct {
			Name   string `yaml:"name"`
			Params struct {
				Arity string `yaml:"arity"`
			} `yaml:"params"`
		} `yaml:"children"`
	}
	if err := yaml.Unmarshal([]byte(out), &doc); err != nil {
		t.Fatalf("unmarshal: %v\n%s", err, out)
	}
	if doc.Name != "<main>" || doc.Kind != "program" || len(doc.Code) != 5 {
		t.Fatalf("unexpected document:\n%s", out)
	}
	if len(doc.Children) != 1 || doc.Children[0].Params.Arity != "onearg" {
		t.Fatalf("unexpected children:\n%s", out)
	}
}
