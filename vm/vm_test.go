package vm

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alexisbouchez/rubyvm/compiler"
	"github.com/alexisbouchez/rubyvm/lexer"
	"github.com/alexisbouchez/rubyvm/object"
	"github.com/alexisbouchez/rubyvm/parser"
	"github.com/alexisbouchez/rubyvm/symtab"
)

type result struct {
	vm    *VM
	value object.Value
	out   string
	err   error
}

func execute(t *testing.T, input string, opts ...Option) result {
	t.Helper()
	program, err := parser.New(lexer.New(input)).ParseProgram()
	if err != nil {
		t.Fatalf("parse %q: %v", input, err)
	}
	proto, err := compiler.Compile(program, "t.rb")
	if err != nil {
		t.Fatalf("compile %q: %v", input, err)
	}
	var out bytes.Buffer
	m := New(object.NewRuntime(), append([]Option{WithOutput(&out)}, opts...)...)
	v, err := m.Run(context.Background(), proto)
	return result{vm: m, value: v, out: out.String(), err: err}
}

// eval runs input and returns the inspect form of its value.
func eval(t *testing.T, input string) string {
	t.Helper()
	r := execute(t, input)
	if r.err != nil {
		t.Fatalf("run %q: %v", input, r.err)
	}
	return r.vm.inspect(r.value)
}

func output(t *testing.T, input string) string {
	t.Helper()
	r := execute(t, input)
	if r.err != nil {
		t.Fatalf("run %q: %v", input, r.err)
	}
	return r.out
}

func rubyError(t *testing.T, input string) *RubyError {
	t.Helper()
	r := execute(t, input)
	var re *RubyError
	if !errors.As(r.err, &re) {
		t.Fatalf("run %q: expected a RubyError, got %v (value %v)", input, r.err, r.value)
	}
	return re
}

type evalTest struct {
	input string
	want  string
}

func runEvalTests(t *testing.T, tests []evalTest) {
	t.Helper()
	for _, tt := range tests {
		if got := eval(t, tt.input); got != tt.want {
			t.Fatalf("%q: got %s, want %s", tt.input, got, tt.want)
		}
	}
}

func TestArithmetic(t *testing.T) {
	runEvalTests(t, []evalTest{
		{"1 + 2 * 3", "7"},
		{"(1 + 2) * 3", "9"},
		{"7 / 2", "3"},
		{"-7 / 2", "-4"},
		{"-7 % 3", "2"},
		{"2 ** 10", "1024"},
		{"7.0 / 2", "3.5"},
		{"1_000_000 + 1", "1000001"},
		{"0x1F", "31"},
		{"10.divmod(3)", "[3, 1]"},
		{"3.7.round", "4"},
		{"2.5.round", "3"},
		{"10.fdiv(4)", "2.5"},
		{"-5.abs", "5"},
		{"1 <=> 2", "-1"},
	})
}

func TestIntegerLimits(t *testing.T) {
	runEvalTests(t, []evalTest{
		{"2 ** 62", "4611686018427387904"},
		{"10 ** 18", "1000000000000000000"},
		{"(2 ** 62 - 1) * 2 + 1", "9223372036854775807"},
		{"-(2 ** 62) * 2", "-9223372036854775808"},
		{"1 << 62", "4611686018427387904"},
		{"-1 << 63", "-9223372036854775808"},
		{"5 >> -2", "20"},
		{"-8 >> 100", "-1"},
		{"123.round(-30)", "0"},
		{"(-1) ** 1001", "-1"},
		{"begin; 2 ** 64; rescue RangeError => e; e.message; end", `"integer overflow"`},
	})

	for _, input := range []string{
		"2 ** 100",
		"1 << 200",
		"1 << 64",
		"1 >> -64",
		"9223372036854775807 + 1",
		"-9223372036854775807 - 2",
		"4611686018427387904 * 2",
		"9223372036854775807.succ",
		"[9223372036854775807, 1].sum",
		"-(-9223372036854775807 - 1)",
		"(-9223372036854775807 - 1).abs",
		"(-9223372036854775807 - 1) / -1",
	} {
		re := rubyError(t, input)
		if re.Class != "RangeError" || re.Message != "integer overflow" {
			t.Fatalf("%q: got %s: %s", input, re.Class, re.Message)
		}
	}
}

func TestExplicitOperatorCalls(t *testing.T) {
	runEvalTests(t, []evalTest{
		{"1.+(2)", "3"},
		{"10.-(4)", "6"},
		{"2.*(3) + 1", "7"},
		{"3.<=>(4)", "-1"},
		{"[1, 2].==([1, 2])", "true"},
		{"a = [1]; a.<<(2); a", "[1, 2]"},
		{"x = 5; x&.+(1)", "6"},
		{"[1, 2, 3].reduce { |s, x| s.+(x) }", "6"},
	})
}

func TestParallelAssignmentSwaps(t *testing.T) {
	runEvalTests(t, []evalTest{
		{"a = 1; b = 2; a, b = b, a; [a, b]", "[2, 1]"},
		{"a, *b = 1, 2, 3; [a, b]", "[1, [2, 3]]"},
		{"*a, b = [1, 2, 3]; [a, b]", "[[1, 2], 3]"},
		{"a, (b, c) = 1, [2, 3]; [a, b, c]", "[1, 2, 3]"},
	})
}

func TestShortCircuit(t *testing.T) {
	out := output(t, `
def side(x)
  puts "side"
  x
end
false && side(1)
true || side(2)
nil || side(3)
`)
	if out != "side\n" {
		t.Fatalf("right operands evaluated unexpectedly: %q", out)
	}
	runEvalTests(t, []evalTest{
		{"x = nil; x ||= 5; x", "5"},
		{"x = 1; x &&= x + 1; x", "2"},
		{"nil && 1", "nil"},
		{"false || :b", ":b"},
	})
}

func TestBlocks(t *testing.T) {
	runEvalTests(t, []evalTest{
		{"def foo; yield 1; end; foo { |x| break x + 1 }", "2"},
		{"def foo; yield 1; 99; end; foo { |x| next x + 1 }", "99"},
		{"def two; yield 1, 2; end; two { |a, b| a + b }", "3"},
		{"def arr; yield [1, 2]; end; arr { |a, b| b }", "2"},
		{"def pad; yield 1; end; pad { |a, b| b.inspect }", `"nil"`},
		{"def g; yield; end; g { |*a| a }", "[]"},
		{"def splat_nil; yield *nil; end; splat_nil { |*a| a.size }", "0"},
		{"def plain_nil; yield nil; end; plain_nil { |*a| a.size }", "1"},
		{"def bg; block_given?; end; [bg, bg {}]", "[false, true]"},
		{"x = 10; [1, 2].each { |i| x += i }; x", "13"},
		{"[1, 2, 3].map(&:to_s)", `["1", "2", "3"]`},
	})
}

func TestLambdaStrictness(t *testing.T) {
	runEvalTests(t, []evalTest{
		{"l = ->(a, b) { a + b }; l.call(1, 2)", "3"},
		{"l = lambda { |x| x * 2 }; l.(4)", "8"},
		{"pr = proc { |a, b| [a, b] }; pr.call(1)", "[1, nil]"},
		{"pr = proc { |a, b| [a, b] }; pr.call(1, 2, 3)", "[1, 2]"},
		{"->(a, b = 2, *c) {}.arity", "-2"},
		{"proc { |a| }.arity", "1"},
		{"->() {}.lambda?", "true"},
		{"def m; l = -> { return 1 }; l.call; 2; end; m", "2"},
		{"def m; [1, 2].each { |x| return x * 10 }; 0; end; m", "10"},
	})
	re := rubyError(t, "l = ->(a, b) { a }; l.call(1)")
	if re.Class != "ArgumentError" || re.Message != "wrong number of arguments (given 1, expected 2)" {
		t.Fatalf("got %s: %s", re.Class, re.Message)
	}
}

func TestArgumentBindingPaths(t *testing.T) {
	runEvalTests(t, []evalTest{
		{"def z; :z; end; z", ":z"},
		{"def one(a); a; end; one([1, 2])", "[1, 2]"},
		{"def two(a, b); [a, b]; end; two(1, 2)", "[1, 2]"},
		{"def opt(a, b = 2); [a, b]; end; [opt(1), opt(1, 3)]", "[[1, 2], [1, 3]]"},
		{"def blk(&b); b.call; end; blk { 4 }", "4"},
		{"def one_blk(a, &b); b.call(a); end; one_blk(5) { |x| x * 2 }", "10"},
		{"def z_blk(&b); b; end; z_blk", "nil"},
		{"def rest(*r); r; end; rest", "[]"},
		{"[1, 2].map { 0 }", "[0, 0]"},
		{"[[1, 2]].map { |a| a }", "[[1, 2]]"},
		{"[[1, 2]].map { |a, b| b }", "[2]"},
		{"def y; yield; end; y { |a| a.inspect }", `"nil"`},
		{"-> { 1 }.call", "1"},
		{"->(x) { x }.call(2)", "2"},
	})

	tests := []struct {
		input string
		want  string
	}{
		{"def z; end; z(1)", "wrong number of arguments (given 1, expected 0)"},
		{"def one(a); end; one", "wrong number of arguments (given 0, expected 1)"},
		{"def one(a); end; one(1, 2)", "wrong number of arguments (given 2, expected 1)"},
		{"def two(a, b); end; two(1)", "wrong number of arguments (given 1, expected 2)"},
		{"def opt(a, b = 1); end; opt", "wrong number of arguments (given 0, expected 1..2)"},
		{"def rest(a, *r); end; rest", "wrong number of arguments (given 0, expected 1+)"},
		{"-> { }.call(1)", "wrong number of arguments (given 1, expected 0)"},
		{"->(x) { }.call", "wrong number of arguments (given 0, expected 1)"},
	}
	for _, tt := range tests {
		re := rubyError(t, tt.input)
		if re.Class != "ArgumentError" || re.Message != tt.want {
			t.Fatalf("%q: got %s: %s, want ArgumentError: %s", tt.input, re.Class, re.Message, tt.want)
		}
	}
}

func TestReentrantBlocks(t *testing.T) {
	runEvalTests(t, []evalTest{
		{`def run; [yield(1), yield(2)]; end
f = proc { |x| next :inner if x == 0; [f.call(0), x] }
run(&f)`, "[[:inner, 1], [:inner, 2]]"},
		{`def rec(n, &b)
  return yield(n) if n == 0
  [rec(n - 1, &b), yield(n)]
end
rec(2) { |x| next x * 10 }`, "[[0, 10], 20]"},
		{`def rec(n, &b)
  return b.call(n) if n == 0
  rec(n - 1, &b)
  :unreached
end
def outer
  rec(3) { |x| return [:returned, x] }
  :after
end
outer`, "[:returned, 0]"},
		{`def rec(n, &b)
  return [n, yield(n)] if n == 0
  [n, rec(n - 1, &b)]
end
rec(2) { |x| break :broke }`, ":broke"},
		{`def each_twice; yield 1; yield 2; :done; end
log = []
f = proc { |x| log << x; next :leaf if log.size > 1; each_twice(&f) }
r = each_twice(&f)
[r, log]`, "[:done, [1, 1, 2, 2]]"},
		{`l = ->(n) { return n if n == 0; l.call(n - 1) + 1 }
l.call(3)`, "3"},
	})
}

func TestEscapedReturnRaisesLocalJumpError(t *testing.T) {
	re := rubyError(t, `
def make
  proc { return 1 }
end
make.call
`)
	if re.Class != "LocalJumpError" {
		t.Fatalf("got %s: %s", re.Class, re.Message)
	}
}

func TestEnsureRunsOnce(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{`
def m
  begin
    return 1
  ensure
    puts "ensure"
  end
end
m`, "ensure\n"},
		{`
[1, 2].each do |x|
  begin
    break
  ensure
    puts "ensure"
  end
end`, "ensure\n"},
		{`
begin
  begin
    raise "boom"
  ensure
    puts "ensure"
  end
rescue => e
  puts e.message
end`, "ensure\nboom\n"},
	}
	for _, tt := range tests {
		if got := output(t, tt.input); got != tt.want {
			t.Fatalf("%q: got %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestExceptions(t *testing.T) {
	runEvalTests(t, []evalTest{
		{`begin; raise ArgumentError, "bad"; rescue ArgumentError => e; e.message; end`, `"bad"`},
		{`begin; 1 / 0; rescue ZeroDivisionError => e; e.class; end`, "ZeroDivisionError"},
		{`begin; raise "x"; rescue => e; e.class; end`, "RuntimeError"},
		{`begin; nil.foo; rescue NoMethodError => e; e.message; end`, `"undefined method 'foo' for nil"`},
		{`x = begin; 1; rescue; 2; else; 3; ensure; 4; end; x`, "3"},
		{`n = 0; begin; n += 1; raise "again" if n < 3; rescue; retry; end; n`, "3"},
		{`(raise "x" rescue :rescued)`, ":rescued"},
		{`class MyError < StandardError; end; begin; raise MyError; rescue StandardError => e; e.message; end`, `"MyError"`},
		{`class E2 < StandardError; def initialize(msg = "custom"); super; end; end; begin; raise E2; rescue => e; e.message; end`, `"custom"`},
		{`e = RuntimeError.new("m"); e.inspect`, `"#<RuntimeError: m>"`},
		{`ArgumentError.new.message`, `"ArgumentError"`},
		{`begin; raise IndexError.new("idx"); rescue KeyError; :key; rescue IndexError; :index; end`, ":index"},
		{`begin; {a: 1}.fetch(:b); rescue KeyError => e; [e.message, e.key]; end`, `["key not found: :b", :b]`},
		{`catch(:done) { 10.times { |i| throw :done, i if i == 3 }; :never }`, "3"},
		{`begin; throw :nope; rescue ArgumentError => e; e.message; end`, `"uncaught throw :nope"`},
	})

	re := rubyError(t, "undefined_thing")
	if re.Class != "NameError" || re.Message != "undefined local variable or method 'undefined_thing' for main:Object" {
		t.Fatalf("got %s: %s", re.Class, re.Message)
	}
	re = rubyError(t, "Missing")
	if re.Message != "uninitialized constant Missing" {
		t.Fatalf("got %s", re.Message)
	}
	re = rubyError(t, "\n\nraise 'at line 3'")
	if re.Line != 3 || re.File != "t.rb" {
		t.Fatalf("got %s:%d", re.File, re.Line)
	}
}

func TestClasses(t *testing.T) {
	runEvalTests(t, []evalTest{
		{`
class Point
  attr_reader :x, :y
  def initialize(x, y)
    @x, @y = x, y
  end
  def +(other)
    Point.new(x + other.x, y + other.y)
  end
  def to_s
    "(#{x}, #{y})"
  end
end
(Point.new(1, 2) + Point.new(3, 4)).to_s`, `"(4, 6)"`},
		{`
class Animal
  def speak; "..."; end
  def greet; "I say #{speak}"; end
end
class Dog < Animal
  def speak; "Woof"; end
end
Dog.new.greet`, `"I say Woof"`},
		{`
class Base; def hi(x); "base #{x}"; end; end
class Kid < Base; def hi(x); super + "!"; end; end
Kid.new.hi(1)`, `"base 1!"`},
		{`
class Base; def hi(x); "base #{x}"; end; end
class Kid < Base; def hi(x); super(x * 2); end; end
Kid.new.hi(1)`, `"base 2"`},
		{"class Foo; end; Foo.new.class", "Foo"},
		{"class Foo; end; Foo.superclass", "Object"},
		{"Integer.ancestors.include?(Comparable)", "true"},
		{"class Foo; def self.make; new; end; end; Foo.make.is_a?(Foo)", "true"},
		{"class Foo; class << self; def hi; :hi; end; end; end; Foo.hi", ":hi"},
		{"module M; X = 1; class C; def x; X; end; end; end; M::C.new.x", "1"},
		{"class Foo; private; def secret; 1; end; end; Foo.new.respond_to?(:secret)", "false"},
		{"class Foo; def a; b; end; private def b; 2; end; end; Foo.new.a", "2"},
		{"o = Object.new; def o.hi; :single; end; o.singleton_methods", "[:hi]"},
		{"C = Class.new { def hi; :anon; end }; [C.name, C.new.hi]", `["C", :anon]`},
		{"class Foo; def ==(o); true; end; end; Foo.new == 1", "true"},
		{"class Foo; end; f = Foo.new; f.instance_variable_set(:@a, 1); f.instance_variables", "[:@a]"},
	})

	re := rubyError(t, "class Foo; private; def secret; end; end; Foo.new.secret")
	if re.Class != "NoMethodError" || re.Message != "private method 'secret' called for an instance of Foo" {
		t.Fatalf("got %s: %s", re.Class, re.Message)
	}
	re = rubyError(t, "class Foo; end; Foo.new.bar")
	if re.Message != "undefined method 'bar' for an instance of Foo" {
		t.Fatalf("got %s", re.Message)
	}
}

func TestIncludeLookupOrder(t *testing.T) {
	runEvalTests(t, []evalTest{
		{`
module M1; def who; :m1; end; end
module M2; def who; :m2; end; end
class S; def who; :s; end; end
class C < S
  include M1
  include M2
end
C.new.who`, ":m2"},
		{`
module M1; end
module M2; end
class C; include M1, M2; end
C.ancestors.take(3)`, "[C, M1, M2]"},
		{`
module Greet
  def self.included(base)
    base.extend(ClassMethods)
  end
  module ClassMethods
    def greeting; "hello"; end
  end
end
class Person; include Greet; end
Person.greeting`, `"hello"`},
	})
}

func TestRedefinedToSAppliesToExistingInstances(t *testing.T) {
	got := eval(t, `
class Foo; end
f = Foo.new
class Foo
  def to_s; "redefined"; end
end
"#{f}"`)
	if got != `"redefined"` {
		t.Fatalf("got %s", got)
	}
}

func TestClassVariablesAreShared(t *testing.T) {
	runEvalTests(t, []evalTest{
		{`
class Counter
  @@count = 0
  def self.incr; @@count += 1; end
  def self.count; @@count; end
end
class Sub < Counter; end
Counter.incr
Sub.incr
[Counter.count, Sub.count]`, "[2, 2]"},
		{"class A; @@v = 1; end; A.class_variable_get(:@@v)", "1"},
	})
	re := rubyError(t, "class Foo; def self.get; @@nope; end; end; Foo.get")
	if re.Message != "uninitialized class variable @@nope in Foo" {
		t.Fatalf("got %s", re.Message)
	}
}

func TestMethodMissing(t *testing.T) {
	runEvalTests(t, []evalTest{
		{`
class Ghost
  def method_missing(name, *args)
    "#{name}:#{args.size}"
  end
  def respond_to_missing?(name, include_private = false)
    true
  end
end
Ghost.new.anything(1, 2)`, `"anything:2"`},
		{`
class Ghost
  def method_missing(name, *args)
    return :handled if name == :known
    super
  end
end
begin
  Ghost.new.unknown
rescue NoMethodError => e
  e.message
end`, `"undefined method 'unknown' for an instance of Ghost"`},
	})
}

func TestLexTimeScopeDecisions(t *testing.T) {
	runEvalTests(t, []evalTest{
		{"x = 5; x -1", "4"},
		{"def x(a = 0); a; end; x -1", "-1"},
		{"def y; 10; end; y - 1", "9"},
	})
}

func TestControlFlow(t *testing.T) {
	runEvalTests(t, []evalTest{
		{"x = 0; while x < 5; x += 1; end; x", "5"},
		{"x = 10; until x <= 5; x -= 1; end; x", "5"},
		{"r = []; for i in 1..3; r << i; end; r", "[1, 2, 3]"},
		{"r = []; 1.upto(3) { |i| r << i }; r", "[1, 2, 3]"},
		{"case 5; when 1..3 then :low; when 4..6 then :mid; else :high; end", ":mid"},
		{`case "hi"; when Integer then :int; when String then :str; end`, ":str"},
		{"case 7; when 1, 7 then :hit; end", ":hit"},
		{"x = if false then 1 end; x", "nil"},
		{"x = 3; x > 2 ? :big : :small", ":big"},
		{"r = []; i = 0; loop { i += 1; next if i.odd?; r << i; break if i >= 6 }; r", "[2, 4, 6]"},
		{"x = 5 unless false; x", "5"},
		{"defined?(@foo).inspect", `"nil"`},
		{"defined?(puts)", `"method"`},
		{"a = 1; defined?(a)", `"local-variable"`},
		{"def m; __method__; end; m", ":m"},
	})
}

func TestStrings(t *testing.T) {
	runEvalTests(t, []evalTest{
		{`"a\tb\n".inspect`, `"\"a\\tb\\n\""`},
		{`"abc".upcase`, `"ABC"`},
		{`"hello world".split`, `["hello", "world"]`},
		{`"a,b,,c,,".split(",")`, `["a", "b", "", "c"]`},
		{`"hello"[1..3]`, `"ell"`},
		{`"hello"[-3, 2]`, `"ll"`},
		{`"hello".sub("l", "L")`, `"heLlo"`},
		{`"hello".gsub(/l/) { |m| m.upcase }`, `"heLLo"`},
		{`"a-b-c".tr("-", "_")`, `"a_b_c"`},
		{`"abc".succ`, `"abd"`},
		{`"az".succ`, `"ba"`},
		{`"%05.2f|%-3s|%x" % [3.14159, "a", 255]`, `"03.14|a  |ff"`},
		{`"ruby" * 2`, `"rubyruby"`},
		{`s = "a"; s << "b"; s.frozen?`, "false"},
		{`"hello world".scan(/o/).size`, "2"},
		{`"  pad ".strip.center(7, "*")`, `"**pad**"`},
		{`"Hello" =~ /ll/`, "2"},
		{`"x=1" =~ /(\w)=(\d)/; [$1, $2]`, `["x", "1"]`},
		{`"abc".each_char.to_a`, `["a", "b", "c"]`},
		{`:sym.to_proc.call("str")`, `"str"`},
		{`"snake_case_word".split("_").map(&:capitalize).join`, `"SnakeCaseWord"`},
		{"%w[a b c]", `["a", "b", "c"]`},
		{`"café".length`, "4"},
		{`"café".bytesize`, "5"},
	})
	re := rubyError(t, `s = "x".freeze; s << "y"`)
	if re.Class != "FrozenError" || re.Message != `can't modify frozen String: "x"` {
		t.Fatalf("got %s: %s", re.Class, re.Message)
	}
}

func TestArrays(t *testing.T) {
	runEvalTests(t, []evalTest{
		{"[3, 1, 2].sort", "[1, 2, 3]"},
		{"[3, 1, 2].sort { |a, b| b <=> a }", "[3, 2, 1]"},
		{"[1, 2, 3, 4].select(&:even?)", "[2, 4]"},
		{"[1, 2, 3].inject(:+)", "6"},
		{"[1, 2, 3].reduce(10) { |s, x| s + x }", "16"},
		{"[[1, 2], [3, 4]].to_h", "{1 => 2, 3 => 4}"},
		{"[1, [2, [3, [4]]]].flatten", "[1, 2, 3, 4]"},
		{"[1, [2, [3, [4]]]].flatten(1)", "[1, 2, [3, [4]]]"},
		{"[1, 2, 2, 3, 3, 3].tally", "{1 => 1, 2 => 2, 3 => 3}"},
		{"[1, 2, 3, 4, 5].each_slice(2).to_a", "[[1, 2], [3, 4], [5]]"},
		{"[1, 2, 3].each_cons(2).to_a", "[[1, 2], [2, 3]]"},
		{"[1, 2, 3].zip([4, 5, 6], [7])", "[[1, 4, 7], [2, 5, nil], [3, 6, nil]]"},
		{"%w[apple pie a].group_by(&:size)", `{5 => ["apple"], 3 => ["pie"], 1 => ["a"]}`},
		{"[1, 2, 3, 4].partition(&:odd?)", "[[1, 3], [2, 4]]"},
		{"%w[bb a ccc].sort_by(&:size)", `["a", "bb", "ccc"]`},
		{"%w[bb a ccc].max_by(&:size)", `"ccc"`},
		{"[5, 3, 9].min", "3"},
		{"[5, 3, 9].max(2)", "[9, 5]"},
		{"[0.1, 0.2, 0.3].sum", "0.6"},
		{"[1, 2, 3].sum { |x| x * 2 }", "12"},
		{"a = [1, 2, 3]; a.map!.with_index { |x, i| x * i }; a", "[0, 2, 6]"},
		{"%w[a b c].each_with_index.map { |s, i| s * (i + 1) }", `["a", "bb", "ccc"]`},
		{"[1, 2, 3].each_with_object([]) { |x, acc| acc << x * 2 }", "[2, 4, 6]"},
		{"[1, nil, 2, nil].compact", "[1, 2]"},
		{"[1, 2, 3] - [2]", "[1, 3]"},
		{"[1, 2] & [2, 3]", "[2]"},
		{"[1, 2] | [2, 3]", "[1, 2, 3]"},
		{"[1, 2, 3].first(2)", "[1, 2]"},
		{"[1, 2, 3].last", "3"},
		{"a = [1, 2, 3]; a[5] = 6; a", "[1, 2, 3, nil, nil, 6]"},
		{"a = [1, 2, 3, 4]; a[1..2] = [:x]; a", "[1, :x, 4]"},
		{"[1, 2, 3].combination(2).to_a", "[[1, 2], [1, 3], [2, 3]]"},
		{"[[1, 2], [3, 4]].transpose", "[[1, 3], [2, 4]]"},
		{"[1, 2, 3].include?(2)", "true"},
		{"[3, 1].minmax", "[1, 3]"},
		{"[1, 2, 3, 4].chunk_while { |a, b| b == a + 1 }.to_a", "[[1, 2, 3, 4]]"},
		{"[1, 2, 4, 5, 7].slice_when { |a, b| b != a + 1 }.to_a", "[[1, 2], [4, 5], [7]]"},
		{"[1, 2, 3].each_slice(2).map(&:sum)", "[3, 3]"},
		{"[4, 5].each.with_index(1).to_a", "[[4, 1], [5, 2]]"},
		{"[1, 2, 3].filter_map { |x| x * 2 if x.odd? }", "[2, 6]"},
		{"[1, 2, 3].find { |x| x > 1 }", "2"},
		{"[1, 2, 3].all?(Integer)", "true"},
		{"[1, 2, 3].none? { |x| x > 3 }", "true"},
		{"[1, 2, 3].one?(2)", "true"},
		{"[1, 2, 3].count(&:odd?)", "2"},
		{"Array.new(3) { |i| i * i }", "[0, 1, 4]"},
		{"a = [1, 2]; a.push(3).pop; a", "[1, 2]"},
		{"[1, 2, 3].rotate", "[2, 3, 1]"},
		{"[1, 2, 3].join('-')", `"1-2-3"`},
		{"[[1, :a], [2, :b]].each_with_object({}) { |(n, s), h| h[s] = n }", "{a: 1, b: 2}"},
	})
	re := rubyError(t, "[1, 2].fetch(10)")
	if re.Class != "IndexError" {
		t.Fatalf("got %s: %s", re.Class, re.Message)
	}
}

func TestHashes(t *testing.T) {
	runEvalTests(t, []evalTest{
		{"{a: 1, b: 2}", "{a: 1, b: 2}"},
		{`{"a" => 1}`, `{"a" => 1}`},
		{"h = {a: 1}; h[:b] = 2; h.keys", "[:a, :b]"},
		{"h = Hash.new(0); 'hello'.each_char { |c| h[c] += 1 }; h['l']", "2"},
		{"h = Hash.new { |hash, k| hash[k] = k * 2 }; h[3]; h", "{3 => 6}"},
		{"{a: 1, b: 2}.map { |k, v| [k, v * 10] }.to_h", "{a: 10, b: 20}"},
		{"{a: 1, b: 2}.select { |k, v| v > 1 }", "{b: 2}"},
		{"{a: 1, b: 2}.reject { |k, v| v > 1 }", "{a: 1}"},
		{"{a: 1}.merge({b: 2}) ", "{a: 1, b: 2}"},
		{"{a: 1, b: 2}.merge({b: 3}) { |k, old, new| old + new }", "{a: 1, b: 5}"},
		{"{a: 1, b: 2}.transform_values { |v| v * 2 }", "{a: 2, b: 4}"},
		{"{a: 1, b: 2}.to_a", "[[:a, 1], [:b, 2]]"},
		{"{a: 1, b: 2}.sum { |k, v| v }", "3"},
		{"{a: 1, b: 2}.min_by { |k, v| v }", "[:a, 1]"},
		{"{a: 1, b: 2}.sort_by { |k, v| -v }.first", "[:b, 2]"},
		{"{a: 1, b: 2}.find { |k, v| v == 2 }", "[:b, 2]"},
		{"{a: 1, b: 2}.each_with_object([]) { |(k, v), acc| acc << k }", "[:a, :b]"},
		{"{a: 1, b: 2}.invert", "{1 => :a, 2 => :b}"},
		{"{a: {b: {c: 42}}}.dig(:a, :b, :c)", "42"},
		{"{a: 1}.fetch(:z, :default)", ":default"},
		{"{a: nil}.key?(:a)", "true"},
		{"{b: 1, a: 2}.sort.to_h", "{a: 2, b: 1}"},
		{"h = {a: 1, b: 2}; h.delete(:a); h", "{b: 2}"},
		{"{a: 1, b: 2}.count { |k, v| v.odd? }", "1"},
		{"{a: 1, b: 2}.any? { |k, v| v > 1 }", "true"},
		{"{a: 1}.group_by { |k, v| v.odd? }", "{true => [[:a, 1]]}"},
		{"[[:a, 1]].to_h { |k, v| [v, k] }", "{1 => :a}"},
	})
}

func TestRanges(t *testing.T) {
	runEvalTests(t, []evalTest{
		{"(1..5).to_a", "[1, 2, 3, 4, 5]"},
		{"(1...5).to_a", "[1, 2, 3, 4]"},
		{"(1..10).step(3).to_a", "[1, 4, 7, 10]"},
		{"(1..10).sum", "55"},
		{"(1..4).reduce(:*)", "24"},
		{"('a'..'e').to_a.join", `"abcde"`},
		{"(1..10).select(&:even?)", "[2, 4, 6, 8, 10]"},
		{"(1..10) === 5", "true"},
		{"(1..).first(3)", "[1, 2, 3]"},
		{"(1..3).each_slice(2).to_a", "[[1, 2], [3]]"},
		{"(1..3).map { |x| x * x }", "[1, 4, 9]"},
		{"(1..3).size", "3"},
		{"r = (1..3); [r.min, r.max]", "[1, 3]"},
		{"(1.0..2.0).include?(1.5)", "true"},
	})
}

func TestComparableAndEnumerableMixins(t *testing.T) {
	runEvalTests(t, []evalTest{
		{`
class Version
  include Comparable
  attr_reader :n
  def initialize(n); @n = n; end
  def <=>(o); n <=> o.n; end
end
a, b, c = Version.new(1), Version.new(2), Version.new(3)
[a < b, b.between?(a, c), c.clamp(a, b).n, a == Version.new(1), [c, a, b].max.n]`,
			"[true, true, 2, true, 3]"},
		{`
class NumberList
  include Enumerable
  def initialize(*items); @items = items; end
  def each
    @items.each { |i| yield i }
    self
  end
end
l = NumberList.new(3, 1, 2)
[l.sort, l.map { |x| x * 2 }, l.include?(2), l.min, l.sum, l.first, l.to_a, l.each_slice(2).to_a, l.sort_by { |x| -x }]`,
			"[[1, 2, 3], [6, 2, 4], true, 1, 6, 3, [3, 1, 2], [[3, 1], [2]], [3, 2, 1]]"},
	})
	re := rubyError(t, `
class V; include Comparable; def <=>(o); nil; end; end
V.new < V.new`)
	if re.Class != "ArgumentError" || re.Message != "comparison of V with V failed" {
		t.Fatalf("got %s: %s", re.Class, re.Message)
	}
}

func TestEnumerators(t *testing.T) {
	runEvalTests(t, []evalTest{
		{"e = [1, 2, 3].each; [e.next, e.next, e.next]", "[1, 2, 3]"},
		{"e = [1].each; e.next; begin; e.next; rescue StopIteration => ex; ex.message; end", `"iteration reached an end"`},
		{"e = [1, 2].each; e.next; e.peek", "2"},
		{"e = [1, 2].each; e.next; e.rewind; e.next", "1"},
		{"[1, 2, 3].map.with_index(1) { |x, i| x * i }", "[1, 4, 9]"},
		{"[1, 2, 3].each.with_object([]) { |x, acc| acc.unshift(x) }", "[3, 2, 1]"},
		{"[1, 2, 3].each.size", "3"},
		{"e = [1, 2, 3].select; e.each { |x| x.odd? }", "[1, 3]"},
		{"3.times.to_a", "[0, 1, 2]"},
		{"e = [10, 20].each; r = []; loop { r << e.next }; r", "[10, 20]"},
		{"e = [1, 2].cycle; [e.next, e.next, e.next]", "[1, 2, 1]"},
		{"e = [1, 2, 3].cycle; 7.times { e.next }; [e.peek, e.next]", "[2, 2]"},
		{"e = [1, 2].cycle; e.next; e.next; e.rewind; e.next", "1"},
		{"e = 5.times; [e.next, e.next, e.next, e.next, e.next]", "[0, 1, 2, 3, 4]"},
	})
}

func TestArrayCycleCounts(t *testing.T) {
	runEvalTests(t, []evalTest{
		{"n = 0; [1].cycle(-1) { n += 1 }; n", "0"},
		{"n = 0; [1].cycle(0) { n += 1 }; n", "0"},
		{"r = []; [1, 2].cycle(2) { |x| r << x }; r", "[1, 2, 1, 2]"},
		{"r = []; [1, 2].cycle(nil) { |x| r << x; break if r.size == 5 }; r", "[1, 2, 1, 2, 1]"},
		{"r = []; [1, 2].cycle { |x| r << x; break if r.size == 3 }; r", "[1, 2, 1]"},
		{"[].cycle { }", "nil"},
	})
}

func TestProcs(t *testing.T) {
	runEvalTests(t, []evalTest{
		{"add = ->(a, b) { a + b }; add.curry[1][2]", "3"},
		{"double = ->(x) { x * 2 }; inc = ->(x) { x + 1 }; (double >> inc).call(3)", "7"},
		{"double = ->(x) { x * 2 }; inc = ->(x) { x + 1 }; (double << inc).call(3)", "8"},
		{"sq = proc { |x| x * x }; [1, 2].map(&sq)", "[1, 4]"},
		{"m = 2.method(:+); m.call(3)", "5"},
		{"def counter; n = 0; -> { n += 1 }; end; c = counter; c.call; c.call", "2"},
		{"Proc.new { |x| x }.call(5)", "5"},
		{"is_even = :even?.to_proc; is_even.call(4)", "true"},
	})
}

func TestReflection(t *testing.T) {
	runEvalTests(t, []evalTest{
		{`
class Dyn
  [:a, :b].each do |name|
    define_method("get_#{name}") { name }
  end
end
[Dyn.new.get_a, Dyn.new.get_b]`, "[:a, :b]"},
		{"class Foo; def bar; end; end; Foo.instance_methods(false)", "[:bar]"},
		{"class Foo; def bar; end; end; Foo.method_defined?(:bar)", "true"},
		{"class Foo; def bar; 1; end; alias_method :baz, :bar; end; Foo.new.baz", "1"},
		{"class Foo; def bar; 1; end; alias qux bar; end; Foo.new.qux", "1"},
		{"5.send(:+, 3)", "8"},
		{"[1, 2].public_send(:size)", "2"},
		{"1.respond_to?(:+)", "true"},
		{"Object.const_get(:Integer)", "Integer"},
		{"module Deep; module Er; V = 7; end; end; Object.const_get('Deep::Er::V')", "7"},
		{"class Foo; end; Foo.const_set(:LIMIT, 3); Foo::LIMIT", "3"},
		{"class Foo; attr_accessor :v; end; f = Foo.new; f.v = 9; f.v", "9"},
		{"class Foo; end; Foo.class_eval { def hi; :hi; end }; Foo.new.hi", ":hi"},
		{"o = Object.new; o.instance_eval { @secret = 1 }; o.instance_variable_get(:@secret)", "1"},
		{"o = Object.new; o.define_singleton_method(:hi) { :there }; o.hi", ":there"},
		{"Comparable.instance_of?(Module)", "true"},
		{"Class.superclass", "Module"},
		{"3.frozen?", "true"},
		{"'a'.dup.frozen?", "false"},
		{"[1, 'a', :b, 2.0, nil].map(&:class)", "[Integer, String, Symbol, Float, NilClass]"},
		{"module Util; module_function; def twice(x); x * 2; end; end; Util.twice(4)", "8"},
		{"class Foo; def bar; end; undef_method :bar; end; Foo.new.respond_to?(:bar)", "false"},
		{"class Foo; end; Foo < Object", "true"},
		{"Integer <= Comparable", "true"},
		{"Math.sqrt(16)", "4.0"},
		{"Math::PI.round(2)", "3.14"},
		{"include Math; sqrt(9)", "3.0"},
	})
	re := rubyError(t, "Integer.new")
	if re.Class != "NoMethodError" {
		t.Fatalf("got %s: %s", re.Class, re.Message)
	}
	re = rubyError(t, "Math.sqrt(-1)")
	if re.Class != "Math::DomainError" || re.Message != `Numerical argument is out of domain - "sqrt"` {
		t.Fatalf("got %s: %s", re.Class, re.Message)
	}
}

func TestOutput(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{`puts "hi"`, "hi\n"},
		{`puts [1, [2, 3]]`, "1\n2\n3\n"},
		{`puts nil`, "\n"},
		{`print "a", "b"`, "ab"},
		{`p 1, "two"`, "1\n\"two\"\n"},
		{`p({a: 1})`, "{a: 1}\n"},
		{`printf("%d-%s\n", 5, "x")`, "5-x\n"},
		{`x = 3; puts "x is #{x + 1}"`, "x is 4\n"},
		{"puts <<-EOS\nline one\n  line two\n  EOS", "line one\n  line two\n"},
		{`$counter = 1; $counter += 1; puts $counter`, "2\n"},
	}
	for _, tt := range tests {
		if got := output(t, tt.input); got != tt.want {
			t.Fatalf("%q: got %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestTopLevelLocalsPersistAcrossRuns(t *testing.T) {
	var out bytes.Buffer
	m := New(object.NewRuntime(), WithOutput(&out))
	tbl := symtab.New()
	for _, src := range []string{"x = 41", "def inc(v); v + 1; end", "puts inc(x)"} {
		program, err := parser.New(lexer.New(src, lexer.WithScope(tbl))).ParseProgram()
		if err != nil {
			t.Fatalf("parse %q: %v", src, err)
		}
		proto, err := compiler.Compile(program, "(irb)")
		if err != nil {
			t.Fatalf("compile %q: %v", src, err)
		}
		if _, err := m.Run(context.Background(), proto); err != nil {
			t.Fatalf("run %q: %v", src, err)
		}
	}
	if out.String() != "42\n" {
		t.Fatalf("got %q", out.String())
	}
}

func TestCallDepthLimit(t *testing.T) {
	r := execute(t, "def f(n); f(n + 1); end; f(0)", WithMaxCallDepth(100))
	var re *RubyError
	if !errors.As(r.err, &re) || re.Class != "SystemStackError" {
		t.Fatalf("expected SystemStackError, got %v", r.err)
	}
}

func TestCancellation(t *testing.T) {
	tests := []string{
		"loop { }",
		"[1, 2].cycle.include?(3)",
		"[1].cycle { }",
		"e = [1, 2].cycle; loop { e.next }",
	}
	for _, input := range tests {
		program, err := parser.New(lexer.New(input)).ParseProgram()
		if err != nil {
			t.Fatal(err)
		}
		proto, err := compiler.Compile(program, "t.rb")
		if err != nil {
			t.Fatal(err)
		}
		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		m := New(object.NewRuntime())
		_, err = m.Run(ctx, proto)
		cancel()
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Fatalf("%q: expected the run to be cancelled, got %v", input, err)
		}
	}
}
