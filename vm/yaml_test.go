package vm

import (
	"testing"

	"github.com/alexisbouchez/rubyvm/object"
)

func TestYAMLDump(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{`1.to_yaml`, "--- 1\n"},
		{`"hi".to_yaml`, "--- hi\n"},
		{`[1, "two", :three].to_yaml`, "---\n- 1\n- two\n- :three\n"},
		{`{"name" => "ruby", "tags" => ["a", "b"]}.to_yaml`, "---\nname: ruby\ntags:\n  - a\n  - b\n"},
		{`YAML.dump({a: 1})`, "---\n:a: 1\n"},
		{`[].to_yaml`, "--- []\n"},
		{`":not_a_symbol".to_yaml`, "--- \":not_a_symbol\"\n"},
	}
	for _, tt := range tests {
		r := execute(t, tt.input)
		if r.err != nil {
			t.Fatalf("%q: %v", tt.input, r.err)
		}
		s, ok := r.value.(*object.String)
		if !ok || s.Value != tt.want {
			t.Fatalf("%q: got %s, want %q", tt.input, r.vm.inspect(r.value), tt.want)
		}
	}
}

func TestYAMLLoad(t *testing.T) {
	runEvalTests(t, []evalTest{
		{`YAML.load("--- 1")`, "1"},
		{`YAML.load("- 1\n- 2.5\n- true\n- ~\n- text")`, `[1, 2.5, true, nil, "text"]`},
		{`YAML.load("a: 1\nb:\n  c: [x, y]")`, `{"a" => 1, "b" => {"c" => ["x", "y"]}}`},
		{`YAML.load(":sym: :val")`, "{sym: :val}"},
		{`YAML.load("base: &b\n  k: 1\nother: *b")["other"]`, `{"k" => 1}`},
		{`YAML.load("")`, "false"},
		{`YAML.load(YAML.dump({"list" => [1, {"n" => nil}]}))`, `{"list" => [1, {"n" => nil}]}`},
		{`
class Pt
  attr_reader :x, :y
  def initialize(x, y); @x, @y = x, y; end
end
p2 = YAML.load(Pt.new(1, [2]).to_yaml)
[p2.class, p2.x, p2.y]`, "[Pt, 1, [2]]"},
	})

	re := rubyError(t, `YAML.load("a: [1, 2")`)
	if re.Class != "YAML::SyntaxError" {
		t.Fatalf("got %s: %s", re.Class, re.Message)
	}
	re = rubyError(t, `a = [1]; a << a; a.to_yaml`)
	if re.Class != "ArgumentError" {
		t.Fatalf("got %s: %s", re.Class, re.Message)
	}
}
