package vm

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/alexisbouchez/rubyvm/object"
)

// toRegexp accepts a Regexp, or a String matched literally.
func (vm *VM) toRegexp(v object.Value) (*object.Regexp, object.Value, object.Stop) {
	switch p := v.(type) {
	case *object.Regexp:
		return p, nil, object.NoStop
	case *object.String:
		re, err := object.NewRegexp(regexp.QuoteMeta(p.Value), "")
		if err != nil {
			res, stop := vm.Raise(vm.rt.ArgumentErrorClass, "%s", err)
			return nil, res, stop
		}
		return re, nil, object.NoStop
	}
	res, stop := vm.Raise(vm.rt.TypeErrorClass, "wrong argument type %s (expected Regexp)", vm.typeName(v))
	return nil, res, stop
}

// allMatches returns the successive non-overlapping matches of re in s.
func allMatches(re *object.Regexp, s string) []*object.MatchData {
	locs := re.Compiled.FindAllStringSubmatchIndex(s, -1)
	out := make([]*object.MatchData, len(locs))
	for i, loc := range locs {
		out[i] = &object.MatchData{Regexp: re, Source: s, Offsets: loc}
	}
	return out
}

func (vm *VM) setMatch(m *object.MatchData) object.Value {
	vm.lastMatch = m
	if m == nil {
		return object.NIL
	}
	return m
}

// charIndex converts a byte offset in s to a character offset.
func charIndex(s string, byteOff int) int {
	return utf8.RuneCountInString(s[:byteOff])
}

// byteIndex converts a character offset in s to a byte offset, or -1 when
// it lies past the end.
func byteIndex(s string, charOff int) int {
	if charOff < 0 {
		return -1
	}
	i := 0
	for pos := range s {
		if i == charOff {
			return pos
		}
		i++
	}
	if i == charOff {
		return len(s)
	}
	return -1
}

// expandReplacement substitutes \0, \&, \1..\9, \k<name> and \\ in a sub or
// gsub replacement string.
func expandReplacement(repl string, m *object.MatchData) string {
	if !strings.Contains(repl, `\`) {
		return repl
	}
	var out strings.Builder
	for i := 0; i < len(repl); i++ {
		c := repl[i]
		if c != '\\' || i+1 >= len(repl) {
			out.WriteByte(c)
			continue
		}
		next := repl[i+1]
		switch {
		case next >= '0' && next <= '9':
			out.WriteString(m.Group(int(next - '0')))
			i++
		case next == '&':
			out.WriteString(m.Group(0))
			i++
		case next == '`':
			out.WriteString(m.Source[:m.Offsets[0]])
			i++
		case next == '\'':
			out.WriteString(m.Source[m.Offsets[1]:])
			i++
		case next == '\\':
			out.WriteByte('\\')
			i++
		case next == 'k' && i+2 < len(repl) && repl[i+2] == '<':
			end := strings.IndexByte(repl[i+3:], '>')
			if end < 0 {
				out.WriteByte(c)
				continue
			}
			name := repl[i+3 : i+3+end]
			if idx := m.Named(name); idx >= 0 {
				out.WriteString(m.Group(idx))
			}
			i += 3 + end
		default:
			out.WriteByte(c)
		}
	}
	return out.String()
}

func regexpClassMethods() map[string]builtin {
	return map[string]builtin{
		"new": {-1, regexpNew},
		"compile": {-1, regexpNew},
		"escape": {1, regexpEscape},
		"quote": {1, regexpEscape},
		"union": {-1, func(vm *VM, _ object.Value, args []object.Value, _ *object.Proc) (object.Value, object.Stop) {
			if len(args) == 1 {
				if arr, ok := args[0].(*object.Array); ok {
					args = arr.Elements
				}
			}
			parts := make([]string, len(args))
			for i, a := range args {
				switch a := a.(type) {
				case *object.Regexp:
					parts[i] = a.Pattern
				case *object.String:
					parts[i] = regexp.QuoteMeta(a.Value)
				default:
					return vm.Raise(vm.rt.TypeErrorClass, "no implicit conversion of %s into String", vm.typeName(a))
				}
			}
			re, err := object.NewRegexp(strings.Join(parts, "|"), "")
			if err != nil {
				return vm.Raise(vm.rt.ArgumentErrorClass, "%s", err)
			}
			return re, object.NoStop
		}},
		"last_match": {-1, func(vm *VM, _ object.Value, args []object.Value, _ *object.Proc) (object.Value, object.Stop) {
			if vm.lastMatch == nil {
				return object.NIL, object.NoStop
			}
			if len(args) == 0 {
				return vm.lastMatch, object.NoStop
			}
			return matchIndex(vm, vm.lastMatch, args[0])
		}},
	}
}

func regexpNew(vm *VM, _ object.Value, args []object.Value, _ *object.Proc) (object.Value, object.Stop) {
	if v, stop := vm.arity(args, 1, 2); stop != object.NoStop {
		return v, stop
	}
	var pattern, flags string
	switch p := args[0].(type) {
	case *object.Regexp:
		return p, object.NoStop
	case *object.String:
		pattern = p.Value
	default:
		return vm.Raise(vm.rt.TypeErrorClass, "no implicit conversion of %s into String", vm.typeName(args[0]))
	}
	if len(args) == 2 {
		switch o := args[1].(type) {
		case *object.Integer:
			if o.Value&1 != 0 {
				flags += "i"
			}
			if o.Value&2 != 0 {
				flags += "x"
			}
			if o.Value&4 != 0 {
				flags += "m"
			}
		case *object.String:
			flags = o.Value
		default:
			if object.Truthy(o) {
				flags = "i"
			}
		}
	}
	re, err := object.NewRegexp(pattern, flags)
	if err != nil {
		return vm.Raise(vm.rt.ArgumentErrorClass, "%s: /%s/", err, pattern)
	}
	return re, object.NoStop
}

func regexpEscape(vm *VM, _ object.Value, args []object.Value, _ *object.Proc) (object.Value, object.Stop) {
	s, v, stop := vm.symbolName(args[0])
	if stop != object.NoStop {
		return v, stop
	}
	return object.NewString(regexp.QuoteMeta(s)), object.NoStop
}

func regexpMethods() map[string]builtin {
	return map[string]builtin{
		"match": {-1, func(vm *VM, self object.Value, args []object.Value, blk *object.Proc) (object.Value, object.Stop) {
			if v, stop := vm.arity(args, 1, 2); stop != object.NoStop {
				return v, stop
			}
			if _, ok := args[0].(*object.Nil); ok {
				return vm.setMatch(nil), object.NoStop
			}
			s, v, stop := vm.symbolName(args[0])
			if stop != object.NoStop {
				return v, stop
			}
			pos := 0
			if len(args) == 2 {
				p, v, stop := vm.intArg(args[1])
				if stop != object.NoStop {
					return v, stop
				}
				if pos = byteIndex(s, int(p)); pos < 0 {
					return vm.setMatch(nil), object.NoStop
				}
			}
			m := self.(*object.Regexp).Match(s, pos)
			res := vm.setMatch(m)
			if m != nil && blk != nil {
				return vm.yield1(blk, m)
			}
			return res, object.NoStop
		}},
		"match?": {-1, func(vm *VM, self object.Value, args []object.Value, _ *object.Proc) (object.Value, object.Stop) {
			if v, stop := vm.arity(args, 1, 2); stop != object.NoStop {
				return v, stop
			}
			if _, ok := args[0].(*object.Nil); ok {
				return object.FALSE, object.NoStop
			}
			s, v, stop := vm.symbolName(args[0])
			if stop != object.NoStop {
				return v, stop
			}
			return object.NativeToBool(self.(*object.Regexp).Compiled.MatchString(s)), object.NoStop
		}},
		"=~": {1, func(vm *VM, self object.Value, args []object.Value, _ *object.Proc) (object.Value, object.Stop) {
			return vm.matchOperator(self.(*object.Regexp), args[0])
		}},
		"===": {1, func(vm *VM, self object.Value, args []object.Value, _ *object.Proc) (object.Value, object.Stop) {
			var s string
			switch a := args[0].(type) {
			case *object.String:
				s = a.Value
			case *object.Symbol:
				s = a.Name
			default:
				return object.FALSE, object.NoStop
			}
			m := self.(*object.Regexp).Match(s, 0)
			vm.setMatch(m)
			return object.NativeToBool(m != nil), object.NoStop
		}},
		"source": {0, func(vm *VM, self object.Value, _ []object.Value, _ *object.Proc) (object.Value, object.Stop) {
			return object.NewString(self.(*object.Regexp).Pattern), object.NoStop
		}},
		"to_s": {0, func(vm *VM, self object.Value, _ []object.Value, _ *object.Proc) (object.Value, object.Stop) {
			re := self.(*object.Regexp)
			on, off := "", ""
			for _, f := range "mix" {
				if strings.ContainsRune(re.Flags, f) {
					on += string(f)
				} else {
					off += string(f)
				}
			}
			if off != "" {
				off = "-" + off
			}
			return object.NewString("(?" + on + off + ":" + re.Pattern + ")"), object.NoStop
		}},
		"inspect": {0, func(vm *VM, self object.Value, _ []object.Value, _ *object.Proc) (object.Value, object.Stop) {
			return object.NewString(self.Inspect()), object.NoStop
		}},
		"options": {0, func(vm *VM, self object.Value, _ []object.Value, _ *object.Proc) (object.Value, object.Stop) {
			var n int64
			flags := self.(*object.Regexp).Flags
			if strings.Contains(flags, "i") {
				n |= 1
			}
			if strings.Contains(flags, "x") {
				n |= 2
			}
			if strings.Contains(flags, "m") {
				n |= 4
			}
			return &object.Integer{Value: n}, object.NoStop
		}},
		"casefold?": {0, func(vm *VM, self object.Value, _ []object.Value, _ *object.Proc) (object.Value, object.Stop) {
			return object.NativeToBool(strings.Contains(self.(*object.Regexp).Flags, "i")), object.NoStop
		}},
		"names": {0, func(vm *VM, self object.Value, _ []object.Value, _ *object.Proc) (object.Value, object.Stop) {
			out := object.NewArray()
			for _, n := range self.(*object.Regexp).Compiled.SubexpNames() {
				if n != "" {
					out.Elements = append(out.Elements, object.NewString(n))
				}
			}
			return out, object.NoStop
		}},
		"==": {1, func(vm *VM, self object.Value, args []object.Value, _ *object.Proc) (object.Value, object.Stop) {
			other, ok := args[0].(*object.Regexp)
			re := self.(*object.Regexp)
			return object.NativeToBool(ok && other.Pattern == re.Pattern && other.Flags == re.Flags), object.NoStop
		}},
		"freeze": {0, func(vm *VM, self object.Value, _ []object.Value, _ *object.Proc) (object.Value, object.Stop) {
			return self, object.NoStop
		}},
	}
}

// matchOperator implements Regexp#=~ and String#=~: the character index
// of the first match, or nil.
func (vm *VM) matchOperator(re *object.Regexp, target object.Value) (object.Value, object.Stop) {
	var s string
	switch t := target.(type) {
	case *object.String:
		s = t.Value
	case *object.Symbol:
		s = t.Name
	case *object.Nil:
		return vm.setMatch(nil), object.NoStop
	default:
		return vm.Raise(vm.rt.TypeErrorClass, "no implicit conversion of %s into String", vm.typeName(target))
	}
	m := re.Match(s, 0)
	vm.setMatch(m)
	if m == nil {
		return object.NIL, object.NoStop
	}
	return &object.Integer{Value: int64(charIndex(s, m.Offsets[0]))}, object.NoStop
}

// matchIndex implements MatchData#[] for a group number or name.
func matchIndex(vm *VM, m *object.MatchData, key object.Value) (object.Value, object.Stop) {
	idx := -1
	switch k := key.(type) {
	case *object.Integer:
		idx = int(k.Value)
		if idx < 0 {
			idx += m.Len()
		}
	case *object.String, *object.Symbol:
		name, _, _ := vm.symbolName(k)
		if idx = m.Named(name); idx < 0 {
			return vm.Raise(vm.rt.IndexErrorClass, "undefined group name reference: %s", name)
		}
	default:
		return vm.Raise(vm.rt.TypeErrorClass, "no implicit conversion of %s into Integer", vm.typeName(key))
	}
	if g, ok := m.GroupOK(idx); ok {
		return object.NewString(g), object.NoStop
	}
	return object.NIL, object.NoStop
}

func groupValue(m *object.MatchData, i int) object.Value {
	if g, ok := m.GroupOK(i); ok {
		return object.NewString(g)
	}
	return object.NIL
}

func matchDataMethods() map[string]builtin {
	md := func(v object.Value) *object.MatchData { return v.(*object.MatchData) }
	return map[string]builtin{
		"[]": {1, func(vm *VM, self object.Value, args []object.Value, _ *object.Proc) (object.Value, object.Stop) {
			return matchIndex(vm, md(self), args[0])
		}},
		"captures": {0, func(vm *VM, self object.Value, _ []object.Value, _ *object.Proc) (object.Value, object.Stop) {
			m := md(self)
			out := object.NewArray()
			for i := 1; i < m.Len(); i++ {
				out.Elements = append(out.Elements, groupValue(m, i))
			}
			return out, object.NoStop
		}},
		"named_captures": {0, func(vm *VM, self object.Value, _ []object.Value, _ *object.Proc) (object.Value, object.Stop) {
			m := md(self)
			h := object.NewHash()
			for i, name := range m.Regexp.Compiled.SubexpNames() {
				if name != "" {
					h.Set(object.NewString(name), groupValue(m, i))
				}
			}
			return h, object.NoStop
		}},
		"names": {0, func(vm *VM, self object.Value, _ []object.Value, _ *object.Proc) (object.Value, object.Stop) {
			out := object.NewArray()
			for _, name := range md(self).Regexp.Compiled.SubexpNames() {
				if name != "" {
					out.Elements = append(out.Elements, object.NewString(name))
				}
			}
			return out, object.NoStop
		}},
		"to_a": {0, func(vm *VM, self object.Value, _ []object.Value, _ *object.Proc) (object.Value, object.Stop) {
			m := md(self)
			out := object.NewArray()
			for i := 0; i < m.Len(); i++ {
				out.Elements = append(out.Elements, groupValue(m, i))
			}
			return out, object.NoStop
		}},
		"values_at": {-1, func(vm *VM, self object.Value, args []object.Value, _ *object.Proc) (object.Value, object.Stop) {
			out := object.NewArray()
			for _, a := range args {
				v, stop := matchIndex(vm, md(self), a)
				if stop != object.NoStop {
					return v, stop
				}
				out.Elements = append(out.Elements, v)
			}
			return out, object.NoStop
		}},
		"to_s": {0, func(vm *VM, self object.Value, _ []object.Value, _ *object.Proc) (object.Value, object.Stop) {
			return object.NewString(md(self).Group(0)), object.NoStop
		}},
		"pre_match": {0, func(vm *VM, self object.Value, _ []object.Value, _ *object.Proc) (object.Value, object.Stop) {
			m := md(self)
			return object.NewString(m.Source[:m.Offsets[0]]), object.NoStop
		}},
		"post_match": {0, func(vm *VM, self object.Value, _ []object.Value, _ *object.Proc) (object.Value, object.Stop) {
			m := md(self)
			return object.NewString(m.Source[m.Offsets[1]:]), object.NoStop
		}},
		"begin": {1, func(vm *VM, self object.Value, args []object.Value, _ *object.Proc) (object.Value, object.Stop) {
			return matchOffset(vm, md(self), args[0], 0)
		}},
		"end": {1, func(vm *VM, self object.Value, args []object.Value, _ *object.Proc) (object.Value, object.Stop) {
			return matchOffset(vm, md(self), args[0], 1)
		}},
		"offset": {1, func(vm *VM, self object.Value, args []object.Value, _ *object.Proc) (object.Value, object.Stop) {
			b, stop := matchOffset(vm, md(self), args[0], 0)
			if stop != object.NoStop {
				return b, stop
			}
			e, stop := matchOffset(vm, md(self), args[0], 1)
			if stop != object.NoStop {
				return e, stop
			}
			return object.NewArray(b, e), object.NoStop
		}},
		"size":   {0, matchSize},
		"length": {0, matchSize},
		"string": {0, func(vm *VM, self object.Value, _ []object.Value, _ *object.Proc) (object.Value, object.Stop) {
			return &object.String{Value: md(self).Source, Frozen: true}, object.NoStop
		}},
		"regexp": {0, func(vm *VM, self object.Value, _ []object.Value, _ *object.Proc) (object.Value, object.Stop) {
			return md(self).Regexp, object.NoStop
		}},
		"inspect": {0, func(vm *VM, self object.Value, _ []object.Value, _ *object.Proc) (object.Value, object.Stop) {
			return object.NewString(self.Inspect()), object.NoStop
		}},
	}
}

func matchSize(vm *VM, self object.Value, _ []object.Value, _ *object.Proc) (object.Value, object.Stop) {
	return &object.Integer{Value: int64(self.(*object.MatchData).Len())}, object.NoStop
}

func matchOffset(vm *VM, m *object.MatchData, key object.Value, side int) (object.Value, object.Stop) {
	idx := -1
	switch k := key.(type) {
	case *object.Integer:
		idx = int(k.Value)
	case *object.String, *object.Symbol:
		name, _, _ := vm.symbolName(k)
		idx = m.Named(name)
	}
	if idx < 0 || idx >= m.Len() {
		return vm.Raise(vm.rt.IndexErrorClass, "index %s out of matches", vm.inspect(key))
	}
	off := m.Offsets[2*idx+side]
	if off < 0 {
		return object.NIL, object.NoStop
	}
	return &object.Integer{Value: int64(charIndex(m.Source, off))}, object.NoStop
}
