// Package object defines the runtime object model: values, classes and
// modules, method tables, procs and the Runtime that owns the class registry.
package object

import (
	"bytes"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// Type represents the type of a value.
type Type string

const (
	INTEGER_OBJ   Type = "INTEGER"
	FLOAT_OBJ     Type = "FLOAT"
	STRING_OBJ    Type = "STRING"
	SYMBOL_OBJ    Type = "SYMBOL"
	BOOLEAN_OBJ   Type = "BOOLEAN"
	NIL_OBJ       Type = "NIL"
	ARRAY_OBJ     Type = "ARRAY"
	HASH_OBJ      Type = "HASH"
	RANGE_OBJ     Type = "RANGE"
	REGEXP_OBJ    Type = "REGEXP"
	MATCHDATA_OBJ Type = "MATCHDATA"
	PROC_OBJ      Type = "PROC"
	CLASS_OBJ     Type = "CLASS"
	MODULE_OBJ    Type = "MODULE"
	INSTANCE_OBJ  Type = "INSTANCE"
	EXCEPTION_OBJ Type = "EXCEPTION"
	JUMP_OBJ      Type = "JUMP"
	ENUM_OBJ      Type = "ENUMERATOR"
)

// Value is the base interface for all runtime values.
type Value interface {
	Type() Type
	Inspect() string
}

// Hashable is implemented by values that hash by content.
type Hashable interface {
	HashKey() HashKey
}

// HashKey identifies a hash entry. Values that are not Hashable hash by
// identity through Ref.
type HashKey struct {
	Type Type
	Int  int64
	Str  string
	Ref  Value
}

// HashKeyOf returns the key v is stored under.
func HashKeyOf(v Value) HashKey {
	if h, ok := v.(Hashable); ok {
		return h.HashKey()
	}
	return HashKey{Type: v.Type(), Ref: v}
}

// Integer represents an Integer.
type Integer struct {
	Value int64
}

func (i *Integer) Type() Type       { return INTEGER_OBJ }
func (i *Integer) Inspect() string  { return strconv.FormatInt(i.Value, 10) }
func (i *Integer) HashKey() HashKey { return HashKey{Type: INTEGER_OBJ, Int: i.Value} }

// Float represents a Float.
type Float struct {
	Value float64
}

func (f *Float) Type() Type      { return FLOAT_OBJ }
func (f *Float) Inspect() string { return FormatFloat(f.Value) }
func (f *Float) HashKey() HashKey {
	return HashKey{Type: FLOAT_OBJ, Int: int64(math.Float64bits(f.Value))}
}

// FormatFloat renders f the way Float#to_s does: integral values keep a
// trailing ".0".
func FormatFloat(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	case f == math.Trunc(f) && math.Abs(f) < 1e16:
		return strconv.FormatFloat(f, 'f', 1, 64)
	}
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if strings.Contains(s, "e") && !strings.Contains(s, ".") {
		mant, exp, _ := strings.Cut(s, "e")
		s = mant + ".0e" + exp
	}
	return s
}

// String represents a mutable String.
type String struct {
	Value  string
	Frozen bool
}

func (s *String) Type() Type       { return STRING_OBJ }
func (s *String) Inspect() string  { return strconv.Quote(s.Value) }
func (s *String) HashKey() HashKey { return HashKey{Type: STRING_OBJ, Str: s.Value} }

// NewString returns a fresh mutable string.
func NewString(s string) *String { return &String{Value: s} }

// Symbol represents an interned Symbol. Symbols are created through
// Runtime.Intern so equal names share one value.
type Symbol struct {
	Name string
}

func (s *Symbol) Type() Type       { return SYMBOL_OBJ }
func (s *Symbol) HashKey() HashKey { return HashKey{Type: SYMBOL_OBJ, Str: s.Name} }
func (s *Symbol) Inspect() string {
	if isPlainSymbol(s.Name) {
		return ":" + s.Name
	}
	return ":" + strconv.Quote(s.Name)
}

func isPlainSymbol(name string) bool {
	if name == "" {
		return false
	}
	switch name {
	case "+", "-", "*", "/", "%", "**", "==", "!=", "<", ">", "<=", ">=", "<=>", "===",
		"<<", ">>", "!", "[]", "[]=", "=~", "&", "|", "^", "~", "+@", "-@", "call":
		return true
	}
	start := 0
	switch name[0] {
	case '@':
		start = 1
		if len(name) > 1 && name[1] == '@' {
			start = 2
		}
	case '$':
		start = 1
	}
	for i := start; i < len(name); i++ {
		ch := name[i]
		last := i == len(name)-1
		switch {
		case ch == '_' || ch >= 'a' && ch <= 'z' || ch >= 'A' && ch <= 'Z' || ch >= 0x80:
		case ch >= '0' && ch <= '9' && i > start:
		case last && (ch == '?' || ch == '!' || ch == '='):
		default:
			return false
		}
	}
	return start < len(name)
}

// Boolean represents true or false.
type Boolean struct {
	Value bool
}

func (b *Boolean) Type() Type      { return BOOLEAN_OBJ }
func (b *Boolean) Inspect() string { return strconv.FormatBool(b.Value) }
func (b *Boolean) HashKey() HashKey {
	var value int64
	if b.Value {
		value = 1
	}
	return HashKey{Type: BOOLEAN_OBJ, Int: value}
}

// Nil represents nil.
type Nil struct{}

func (n *Nil) Type() Type       { return NIL_OBJ }
func (n *Nil) Inspect() string  { return "nil" }
func (n *Nil) HashKey() HashKey { return HashKey{Type: NIL_OBJ} }

// Singleton values. They are immutable.
var (
	TRUE  = &Boolean{Value: true}
	FALSE = &Boolean{Value: false}
	NIL   = &Nil{}
)

// NativeToBool converts a Go bool to a Boolean.
func NativeToBool(b bool) *Boolean {
	if b {
		return TRUE
	}
	return FALSE
}

// Truthy reports whether v counts as true: everything except nil and false.
func Truthy(v Value) bool {
	switch v := v.(type) {
	case nil, *Nil:
		return false
	case *Boolean:
		return v.Value
	}
	return true
}

// Array represents an Array.
type Array struct {
	Elements []Value
	Frozen   bool
}

// NewArray returns an array holding elements.
func NewArray(elements ...Value) *Array {
	if elements == nil {
		elements = []Value{}
	}
	return &Array{Elements: elements}
}

func (a *Array) Type() Type { return ARRAY_OBJ }
func (a *Array) Inspect() string {
	var out bytes.Buffer
	elements := make([]string, len(a.Elements))
	for i, e := range a.Elements {
		if e == Value(a) {
			elements[i] = "[...]"
			continue
		}
		elements[i] = e.Inspect()
	}
	out.WriteString("[")
	out.WriteString(strings.Join(elements, ", "))
	out.WriteString("]")
	return out.String()
}

// HashKey hashes an array by content.
func (a *Array) HashKey() HashKey { return HashKey{Type: ARRAY_OBJ, Str: a.Inspect()} }

// HashPair represents a key-value pair in a Hash.
type HashPair struct {
	Key   Value
	Value Value
}

// Hash represents an insertion-ordered Hash.
type Hash struct {
	Pairs   map[HashKey]HashPair
	Order   []HashKey
	Default Value
	// DefaultProc computes missing values when set, taking precedence over
	// Default.
	DefaultProc *Proc
	Frozen      bool
}

// NewHash returns an empty hash.
func NewHash() *Hash {
	return &Hash{Pairs: map[HashKey]HashPair{}, Default: NIL}
}

func (h *Hash) Type() Type { return HASH_OBJ }
func (h *Hash) Inspect() string {
	var out bytes.Buffer
	pairs := make([]string, 0, len(h.Pairs))
	for _, key := range h.Order {
		pair := h.Pairs[key]
		if sym, ok := pair.Key.(*Symbol); ok && isPlainSymbol(sym.Name) && sym.Name[0] != '@' && sym.Name[0] != '$' {
			pairs = append(pairs, fmt.Sprintf("%s: %s", sym.Name, pair.Value.Inspect()))
			continue
		}
		pairs = append(pairs, fmt.Sprintf("%s => %s", pair.Key.Inspect(), pair.Value.Inspect()))
	}
	out.WriteString("{")
	out.WriteString(strings.Join(pairs, ", "))
	out.WriteString("}")
	return out.String()
}

// Get looks key up.
func (h *Hash) Get(key Value) (Value, bool) {
	pair, ok := h.Pairs[HashKeyOf(key)]
	return pair.Value, ok
}

// Set stores value under key, keeping the original insertion position.
func (h *Hash) Set(key, value Value) {
	hk := HashKeyOf(key)
	if _, ok := h.Pairs[hk]; !ok {
		h.Order = append(h.Order, hk)
	}
	if s, ok := key.(*String); ok && !s.Frozen {
		key = &String{Value: s.Value, Frozen: true}
	}
	h.Pairs[hk] = HashPair{Key: key, Value: value}
}

// Delete removes key and returns its value.
func (h *Hash) Delete(key Value) (Value, bool) {
	hk := HashKeyOf(key)
	pair, ok := h.Pairs[hk]
	if !ok {
		return nil, false
	}
	delete(h.Pairs, hk)
	for i, k := range h.Order {
		if k == hk {
			h.Order = append(h.Order[:i:i], h.Order[i+1:]...)
			break
		}
	}
	return pair.Value, true
}

// Each visits pairs in insertion order.
func (h *Hash) Each(fn func(key, value Value) bool) {
	for _, hk := range h.Order {
		pair := h.Pairs[hk]
		if !fn(pair.Key, pair.Value) {
			return
		}
	}
}

// Len is the number of entries.
func (h *Hash) Len() int { return len(h.Order) }

// Range represents a Range. A nil Start or End is beginless or endless.
type Range struct {
	Start     Value
	End       Value
	Exclusive bool
}

func (r *Range) Type() Type { return RANGE_OBJ }
func (r *Range) Inspect() string {
	op := ".."
	if r.Exclusive {
		op = "..."
	}
	start, end := "", ""
	if _, ok := r.Start.(*Nil); !ok && r.Start != nil {
		start = r.Start.Inspect()
	}
	if _, ok := r.End.(*Nil); !ok && r.End != nil {
		end = r.End.Inspect()
	}
	return start + op + end
}

// IntBounds returns the integer bounds of r as an inclusive [lo, hi] for a
// collection of length n, following negative-index rules when n >= 0.
func (r *Range) IntBounds(n int) (lo, hi int, ok bool) {
	start, end := int64(0), int64(n-1)
	if i, isInt := r.Start.(*Integer); isInt {
		start = i.Value
	} else if _, isNil := r.Start.(*Nil); !isNil && r.Start != nil {
		return 0, 0, false
	}
	if i, isInt := r.End.(*Integer); isInt {
		end = i.Value
		if r.Exclusive {
			end--
		}
	} else if _, isNil := r.End.(*Nil); !isNil && r.End != nil {
		return 0, 0, false
	}
	if n >= 0 {
		if start < 0 {
			start += int64(n)
		}
		if end < 0 {
			end += int64(n)
		}
	}
	return int(start), int(end), true
}

// Regexp represents a Regexp.
type Regexp struct {
	Pattern  string
	Flags    string
	Compiled *regexp.Regexp
}

// NewRegexp compiles pattern, translating the i, m and x flags.
func NewRegexp(pattern, flags string) (*Regexp, error) {
	goPattern := translatePattern(pattern)
	if strings.Contains(flags, "x") {
		goPattern = stripExtended(goPattern)
	}
	if strings.Contains(flags, "i") {
		goPattern = "(?i)" + goPattern
	}
	// m makes . match newlines; ^ and $ always match at line boundaries.
	if strings.Contains(flags, "m") {
		goPattern = "(?s)" + goPattern
	}
	goPattern = "(?m)" + goPattern

	compiled, err := regexp.Compile(goPattern)
	if err != nil {
		return nil, err
	}
	return &Regexp{Pattern: pattern, Flags: flags, Compiled: compiled}, nil
}

// translatePattern rewrites the anchors and group syntax the regexp package
// spells differently.
func translatePattern(p string) string {
	r := strings.NewReplacer(`\A`, `^`, `\z`, `$`, `\Z`, `$`, `\h`, `[0-9a-fA-F]`, `(?<`, `(?P<`)
	return r.Replace(p)
}

func stripExtended(p string) string {
	var out strings.Builder
	escaped, inClass := false, false
	for i := 0; i < len(p); i++ {
		ch := p[i]
		switch {
		case escaped:
			escaped = false
		case ch == '\\':
			escaped = true
		case ch == '[':
			inClass = true
		case ch == ']':
			inClass = false
		case !inClass && (ch == ' ' || ch == '\t' || ch == '\n'):
			continue
		case !inClass && ch == '#':
			for i < len(p) && p[i] != '\n' {
				i++
			}
			continue
		}
		out.WriteByte(ch)
	}
	return out.String()
}

func (r *Regexp) Type() Type       { return REGEXP_OBJ }
func (r *Regexp) Inspect() string  { return "/" + r.Pattern + "/" + r.Flags }
func (r *Regexp) HashKey() HashKey { return HashKey{Type: REGEXP_OBJ, Str: r.Inspect()} }

// Match returns the match data for s starting at byte offset pos, or nil.
func (r *Regexp) Match(s string, pos int) *MatchData {
	if pos < 0 || pos > len(s) {
		return nil
	}
	loc := r.Compiled.FindStringSubmatchIndex(s[pos:])
	if loc == nil {
		return nil
	}
	for i := range loc {
		if loc[i] >= 0 {
			loc[i] += pos
		}
	}
	return &MatchData{Regexp: r, Source: s, Offsets: loc}
}

// MatchData is the result of a successful match.
type MatchData struct {
	Regexp  *Regexp
	Source  string
	Offsets []int
}

func (m *MatchData) Type() Type { return MATCHDATA_OBJ }
func (m *MatchData) Inspect() string {
	var out strings.Builder
	out.WriteString("#<MatchData ")
	out.WriteString(strconv.Quote(m.Group(0)))
	names := m.Regexp.Compiled.SubexpNames()
	for i := 1; i < m.Len(); i++ {
		label := strconv.Itoa(i)
		if names[i] != "" {
			label = names[i]
		}
		if g, ok := m.GroupOK(i); ok {
			fmt.Fprintf(&out, " %s:%s", label, strconv.Quote(g))
		} else {
			fmt.Fprintf(&out, " %s:nil", label)
		}
	}
	out.WriteString(">")
	return out.String()
}

// Len is the number of groups including the whole match.
func (m *MatchData) Len() int { return len(m.Offsets) / 2 }

// GroupOK returns group i and whether it participated in the match.
func (m *MatchData) GroupOK(i int) (string, bool) {
	if i < 0 || i >= m.Len() || m.Offsets[2*i] < 0 {
		return "", false
	}
	return m.Source[m.Offsets[2*i]:m.Offsets[2*i+1]], true
}

// Group returns group i, or "" when it did not participate.
func (m *MatchData) Group(i int) string {
	g, _ := m.GroupOK(i)
	return g
}

// Named returns the index of a named group.
func (m *MatchData) Named(name string) int {
	return m.Regexp.Compiled.SubexpIndex(name)
}

// Ivars is an insertion-ordered instance variable table.
type Ivars struct {
	names  []string
	values map[string]Value
}

// Get returns the named variable.
func (iv *Ivars) Get(name string) (Value, bool) {
	v, ok := iv.values[name]
	return v, ok
}

// Set assigns the named variable.
func (iv *Ivars) Set(name string, v Value) {
	if iv.values == nil {
		iv.values = map[string]Value{}
	}
	if _, ok := iv.values[name]; !ok {
		iv.names = append(iv.names, name)
	}
	iv.values[name] = v
}

// Names lists variables in assignment order.
func (iv *Ivars) Names() []string { return iv.names }

// Object is an instance of a user-visible class.
type Object struct {
	class     *RubyClass
	singleton *RubyClass
	Ivars     Ivars
	Frozen    bool
}

// NewObject allocates a bare instance of class.
func NewObject(class *RubyClass) *Object { return &Object{class: class} }

func (o *Object) Type() Type { return INSTANCE_OBJ }
func (o *Object) Inspect() string {
	if len(o.Ivars.names) == 0 {
		return "#<" + o.class.Name + ">"
	}
	parts := make([]string, 0, len(o.Ivars.names))
	for _, name := range o.Ivars.names {
		parts = append(parts, name+"="+o.Ivars.values[name].Inspect())
	}
	return "#<" + o.class.Name + " " + strings.Join(parts, ", ") + ">"
}

// Class returns the object's class, ignoring any singleton class.
func (o *Object) Class() *RubyClass { return o.class }

// Exception is an instance of Exception or one of its subclasses.
type Exception struct {
	Object
	Message   Value
	Backtrace []string
}

func (e *Exception) Type() Type { return EXCEPTION_OBJ }
func (e *Exception) Inspect() string {
	msg := e.MessageString()
	if msg == "" || msg == e.class.Name {
		return e.class.Name
	}
	return fmt.Sprintf("#<%s: %s>", e.class.Name, msg)
}

// MessageString returns the message, defaulting to the class name.
func (e *Exception) MessageString() string {
	switch m := e.Message.(type) {
	case nil, *Nil:
		return e.class.Name
	case *String:
		return m.Value
	default:
		return m.Inspect()
	}
}

// NewException builds an exception of class with a message.
func NewException(class *RubyClass, msg string) *Exception {
	return &Exception{Object: Object{class: class}, Message: NewString(msg)}
}

// Enumerator stands for a blockless call to an iterating method. Each
// replays the call with a block; Next walks a buffered copy of the elements.
type Enumerator struct {
	Receiver Value
	Method   string
	Args     []Value

	// Buffer holds the elements next has reached so far. Exhausted is set
	// once the source ran out before filling it.
	Buffer    []Value
	Exhausted bool
	Pos       int
}

func (e *Enumerator) Type() Type { return ENUM_OBJ }
func (e *Enumerator) Inspect() string {
	return "#<Enumerator: " + e.Receiver.Inspect() + ":" + e.Method + ">"
}
