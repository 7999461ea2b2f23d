package vm

import (
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/alexisbouchez/rubyvm/object"
)

func strOf(v object.Value) *object.String { return v.(*object.String) }

func newStr(s string) (object.Value, object.Stop) { return object.NewString(s), object.NoStop }

// mutable returns self for in-place modification, raising FrozenError for
// frozen strings.
func (vm *VM) mutable(self object.Value) (*object.String, object.Value, object.Stop) {
	s := strOf(self)
	if s.Frozen {
		v, stop := vm.frozenError(s)
		return nil, v, stop
	}
	return s, nil, object.NoStop
}

// bang derives a mutating method from its copying counterpart. It returns
// nil when nothing changed.
func bang(fn builtinFunc) builtinFunc {
	return func(vm *VM, self object.Value, args []object.Value, blk *object.Proc) (object.Value, object.Stop) {
		s, v, stop := vm.mutable(self)
		if stop != object.NoStop {
			return v, stop
		}
		res, stop := fn(vm, self, args, blk)
		if stop != object.NoStop {
			return res, stop
		}
		out := strOf(res).Value
		if out == s.Value {
			return object.NIL, object.NoStop
		}
		s.Value = out
		return s, object.NoStop
	}
}

// strMap derives a method that transforms the receiver's text.
func strMap(fn func(string) string) builtinFunc {
	return func(vm *VM, self object.Value, _ []object.Value, _ *object.Proc) (object.Value, object.Stop) {
		return newStr(fn(strOf(self).Value))
	}
}

func stringClassMethods() map[string]builtin {
	return map[string]builtin{
		"try_convert": {1, func(vm *VM, _ object.Value, args []object.Value, _ *object.Proc) (object.Value, object.Stop) {
			if s, ok := args[0].(*object.String); ok {
				return s, object.NoStop
			}
			return object.NIL, object.NoStop
		}},
	}
}

func stringMethods() map[string]builtin {
	return map[string]builtin{
		"initialize": {-1, func(vm *VM, self object.Value, args []object.Value, _ *object.Proc) (object.Value, object.Stop) {
			if v, stop := vm.arity(args, 0, 2); stop != object.NoStop {
				return v, stop
			}
			if len(args) > 0 {
				src, v, stop := vm.strArg(args[0])
				if stop != object.NoStop {
					return v, stop
				}
				strOf(self).Value = src
			}
			return object.NIL, object.NoStop
		}},
		"initialize_copy": {1, strReplace},
		"to_s":    {0, strSelf},
		"to_str":  {0, strSelf},
		"inspect": {0, func(vm *VM, self object.Value, _ []object.Value, _ *object.Proc) (object.Value, object.Stop) {
			return newStr(self.Inspect())
		}},
		"dump": {0, func(vm *VM, self object.Value, _ []object.Value, _ *object.Proc) (object.Value, object.Stop) {
			return newStr(strconv.QuoteToASCII(strOf(self).Value))
		}},
		"to_sym": {0, strToSym},
		"intern": {0, strToSym},
		"to_i": {-1, func(vm *VM, self object.Value, args []object.Value, _ *object.Proc) (object.Value, object.Stop) {
			base := int64(10)
			if len(args) > 0 {
				b, v, stop := vm.intArg(args[0])
				if stop != object.NoStop {
					return v, stop
				}
				if b < 2 || b > 36 {
					return vm.Raise(vm.rt.ArgumentErrorClass, "invalid radix %d", b)
				}
				base = b
			}
			return &object.Integer{Value: leadingInt(strOf(self).Value, int(base))}, object.NoStop
		}},
		"to_f": {0, func(vm *VM, self object.Value, _ []object.Value, _ *object.Proc) (object.Value, object.Stop) {
			return &object.Float{Value: leadingFloat(strOf(self).Value)}, object.NoStop
		}},
		"hex": {0, func(vm *VM, self object.Value, _ []object.Value, _ *object.Proc) (object.Value, object.Stop) {
			return &object.Integer{Value: leadingInt(strOf(self).Value, 16)}, object.NoStop
		}},
		"oct": {0, func(vm *VM, self object.Value, _ []object.Value, _ *object.Proc) (object.Value, object.Stop) {
			s := strings.ToLower(strings.TrimLeft(strOf(self).Value, "-+"))
			base := 8
			switch {
			case strings.HasPrefix(s, "0x"):
				base = 16
			case strings.HasPrefix(s, "0b"):
				base = 2
			}
			return &object.Integer{Value: leadingInt(strOf(self).Value, base)}, object.NoStop
		}},
		"==":   {1, strEqual},
		"===":  {1, strEqual},
		"eql?": {1, strEqual},
		"<=>": {1, func(vm *VM, self object.Value, args []object.Value, _ *object.Proc) (object.Value, object.Stop) {
			other, ok := args[0].(*object.String)
			if !ok {
				return object.NIL, object.NoStop
			}
			return &object.Integer{Value: int64(strings.Compare(strOf(self).Value, other.Value))}, object.NoStop
		}},
		"<":  {1, strCompare(func(c int) bool { return c < 0 })},
		">":  {1, strCompare(func(c int) bool { return c > 0 })},
		"<=": {1, strCompare(func(c int) bool { return c <= 0 })},
		">=": {1, strCompare(func(c int) bool { return c >= 0 })},
		"+": {1, func(vm *VM, self object.Value, args []object.Value, _ *object.Proc) (object.Value, object.Stop) {
			other, v, stop := vm.strArg(args[0])
			if stop != object.NoStop {
				return v, stop
			}
			return newStr(strOf(self).Value + other)
		}},
		"*": {1, func(vm *VM, self object.Value, args []object.Value, _ *object.Proc) (object.Value, object.Stop) {
			n, v, stop := vm.intArg(args[0])
			if stop != object.NoStop {
				return v, stop
			}
			if n < 0 {
				return vm.Raise(vm.rt.ArgumentErrorClass, "negative argument")
			}
			return newStr(strings.Repeat(strOf(self).Value, int(n)))
		}},
		"%": {1, func(vm *VM, self object.Value, args []object.Value, _ *object.Proc) (object.Value, object.Stop) {
			fargs := []object.Value{args[0]}
			if arr, ok := args[0].(*object.Array); ok {
				fargs = arr.Elements
			}
			s, v, stop := vm.sprintf(strOf(self).Value, fargs)
			if stop != object.NoStop {
				return v, stop
			}
			return newStr(s)
		}},
		"<<":     {1, strAppend},
		"concat": {-1, func(vm *VM, self object.Value, args []object.Value, blk *object.Proc) (object.Value, object.Stop) {
			for _, a := range args {
				if v, stop := strAppend(vm, self, []object.Value{a}, blk); stop != object.NoStop {
					return v, stop
				}
			}
			return self, object.NoStop
		}},
		"prepend": {-1, func(vm *VM, self object.Value, args []object.Value, _ *object.Proc) (object.Value, object.Stop) {
			s, v, stop := vm.mutable(self)
			if stop != object.NoStop {
				return v, stop
			}
			var prefix strings.Builder
			for _, a := range args {
				p, v, stop := vm.strArg(a)
				if stop != object.NoStop {
					return v, stop
				}
				prefix.WriteString(p)
			}
			s.Value = prefix.String() + s.Value
			return s, object.NoStop
		}},
		"insert": {2, func(vm *VM, self object.Value, args []object.Value, _ *object.Proc) (object.Value, object.Stop) {
			s, v, stop := vm.mutable(self)
			if stop != object.NoStop {
				return v, stop
			}
			idx, v, stop := vm.intArg(args[0])
			if stop != object.NoStop {
				return v, stop
			}
			text, v, stop := vm.strArg(args[1])
			if stop != object.NoStop {
				return v, stop
			}
			runes := []rune(s.Value)
			n := int64(len(runes))
			if idx < 0 {
				idx += n + 1
			}
			if idx < 0 || idx > n {
				return vm.Raise(vm.rt.IndexErrorClass, "index %d out of string", idx)
			}
			s.Value = string(runes[:idx]) + text + string(runes[idx:])
			return s, object.NoStop
		}},
		"replace": {1, strReplace},
		"clear": {0, func(vm *VM, self object.Value, _ []object.Value, _ *object.Proc) (object.Value, object.Stop) {
			s, v, stop := vm.mutable(self)
			if stop != object.NoStop {
				return v, stop
			}
			s.Value = ""
			return s, object.NoStop
		}},
		"length": {0, strLength},
		"size":   {0, strLength},
		"bytesize": {0, func(vm *VM, self object.Value, _ []object.Value, _ *object.Proc) (object.Value, object.Stop) {
			return &object.Integer{Value: int64(len(strOf(self).Value))}, object.NoStop
		}},
		"empty?": {0, func(vm *VM, self object.Value, _ []object.Value, _ *object.Proc) (object.Value, object.Stop) {
			return object.NativeToBool(strOf(self).Value == ""), object.NoStop
		}},
		"upcase":      {-1, strMap(strings.ToUpper)},
		"downcase":    {-1, strMap(strings.ToLower)},
		"capitalize":  {-1, strMap(capitalize)},
		"swapcase":    {-1, strMap(swapcase)},
		"reverse":     {0, strMap(reverseString)},
		"strip":       {0, strMap(func(s string) string { return strings.Trim(s, " \t\n\v\f\r\x00") })},
		"lstrip":      {0, strMap(func(s string) string { return strings.TrimLeft(s, " \t\n\v\f\r\x00") })},
		"rstrip":      {0, strMap(func(s string) string { return strings.TrimRight(s, " \t\n\v\f\r\x00") })},
		"chop":        {0, strMap(chop)},
		"chomp":       {-1, strChomp},
		"squeeze":     {-1, strSqueeze},
		"delete":      {-1, strDelete},
		"tr":          {2, strTr},
		"sub":         {-1, strSub},
		"gsub":        {-1, strGsub},
		"upcase!":     {-1, bang(strMap(strings.ToUpper))},
		"downcase!":   {-1, bang(strMap(strings.ToLower))},
		"capitalize!": {-1, bang(strMap(capitalize))},
		"swapcase!":   {-1, bang(strMap(swapcase))},
		"reverse!":    {0, bang(strMap(reverseString))},
		"strip!":      {0, bang(strMap(func(s string) string { return strings.Trim(s, " \t\n\v\f\r\x00") }))},
		"lstrip!":     {0, bang(strMap(func(s string) string { return strings.TrimLeft(s, " \t\n\v\f\r\x00") }))},
		"rstrip!":     {0, bang(strMap(func(s string) string { return strings.TrimRight(s, " \t\n\v\f\r\x00") }))},
		"chop!":       {0, bang(strMap(chop))},
		"chomp!":      {-1, bang(strChomp)},
		"squeeze!":    {-1, bang(strSqueeze)},
		"delete!":     {-1, bang(strDelete)},
		"tr!":         {2, bang(strTr)},
		"sub!":        {-1, bang(strSub)},
		"gsub!":       {-1, bang(strGsub)},
		"delete_prefix": {1, func(vm *VM, self object.Value, args []object.Value, _ *object.Proc) (object.Value, object.Stop) {
			p, v, stop := vm.strArg(args[0])
			if stop != object.NoStop {
				return v, stop
			}
			return newStr(strings.TrimPrefix(strOf(self).Value, p))
		}},
		"delete_suffix": {1, func(vm *VM, self object.Value, args []object.Value, _ *object.Proc) (object.Value, object.Stop) {
			p, v, stop := vm.strArg(args[0])
			if stop != object.NoStop {
				return v, stop
			}
			return newStr(strings.TrimSuffix(strOf(self).Value, p))
		}},
		"include?": {1, func(vm *VM, self object.Value, args []object.Value, _ *object.Proc) (object.Value, object.Stop) {
			sub, v, stop := vm.strArg(args[0])
			if stop != object.NoStop {
				return v, stop
			}
			return object.NativeToBool(strings.Contains(strOf(self).Value, sub)), object.NoStop
		}},
		"start_with?": {-1, func(vm *VM, self object.Value, args []object.Value, _ *object.Proc) (object.Value, object.Stop) {
			s := strOf(self).Value
			for _, a := range args {
				if re, ok := a.(*object.Regexp); ok {
					if m := re.Match(s, 0); m != nil && m.Offsets[0] == 0 {
						vm.setMatch(m)
						return object.TRUE, object.NoStop
					}
					continue
				}
				p, v, stop := vm.strArg(a)
				if stop != object.NoStop {
					return v, stop
				}
				if strings.HasPrefix(s, p) {
					return object.TRUE, object.NoStop
				}
			}
			return object.FALSE, object.NoStop
		}},
		"end_with?": {-1, func(vm *VM, self object.Value, args []object.Value, _ *object.Proc) (object.Value, object.Stop) {
			s := strOf(self).Value
			for _, a := range args {
				p, v, stop := vm.strArg(a)
				if stop != object.NoStop {
					return v, stop
				}
				if strings.HasSuffix(s, p) {
					return object.TRUE, object.NoStop
				}
			}
			return object.FALSE, object.NoStop
		}},
		"index":  {-1, strIndexOf},
		"rindex": {-1, strRindex},
		"[]":     {-1, strSlice},
		"slice":  {-1, strSlice},
		"[]=":    {-1, strSetSlice},
		"slice!": {-1, func(vm *VM, self object.Value, args []object.Value, blk *object.Proc) (object.Value, object.Stop) {
			if _, v, stop := vm.mutable(self); stop != object.NoStop {
				return v, stop
			}
			part, stop := strSlice(vm, self, args, blk)
			if stop != object.NoStop {
				return part, stop
			}
			if _, ok := part.(*object.Nil); ok {
				return part, object.NoStop
			}
			if v, stop := strSetSlice(vm, self, append(append([]object.Value(nil), args...), object.NewString("")), blk); stop != object.NoStop {
				return v, stop
			}
			return part, object.NoStop
		}},
		"chars": {0, func(vm *VM, self object.Value, _ []object.Value, _ *object.Proc) (object.Value, object.Stop) {
			return stringsArray(splitChars(strOf(self).Value)), object.NoStop
		}},
		"bytes": {0, func(vm *VM, self object.Value, _ []object.Value, _ *object.Proc) (object.Value, object.Stop) {
			s := strOf(self).Value
			out := object.NewArray()
			for i := 0; i < len(s); i++ {
				out.Elements = append(out.Elements, &object.Integer{Value: int64(s[i])})
			}
			return out, object.NoStop
		}},
		"lines": {0, func(vm *VM, self object.Value, _ []object.Value, _ *object.Proc) (object.Value, object.Stop) {
			return stringsArray(splitLines(strOf(self).Value)), object.NoStop
		}},
		"each_char": {0, func(vm *VM, self object.Value, _ []object.Value, blk *object.Proc) (object.Value, object.Stop) {
			if blk == nil {
				return enumFor(self, "each_char", nil), object.NoStop
			}
			for _, c := range splitChars(strOf(self).Value) {
				if v, stop := vm.yield1(blk, object.NewString(c)); stop != object.NoStop {
					return v, stop
				}
			}
			return self, object.NoStop
		}},
		"each_line": {0, func(vm *VM, self object.Value, _ []object.Value, blk *object.Proc) (object.Value, object.Stop) {
			if blk == nil {
				return enumFor(self, "each_line", nil), object.NoStop
			}
			for _, l := range splitLines(strOf(self).Value) {
				if v, stop := vm.yield1(blk, object.NewString(l)); stop != object.NoStop {
					return v, stop
				}
			}
			return self, object.NoStop
		}},
		"each_byte": {0, func(vm *VM, self object.Value, _ []object.Value, blk *object.Proc) (object.Value, object.Stop) {
			if blk == nil {
				return enumFor(self, "each_byte", nil), object.NoStop
			}
			s := strOf(self).Value
			for i := 0; i < len(s); i++ {
				if v, stop := vm.yield1(blk, &object.Integer{Value: int64(s[i])}); stop != object.NoStop {
					return v, stop
				}
			}
			return self, object.NoStop
		}},
		"split": {-1, strSplit},
		"center": {-1, strJustify(0)},
		"ljust":  {-1, strJustify(-1)},
		"rjust":  {-1, strJustify(1)},
		"ord": {0, func(vm *VM, self object.Value, _ []object.Value, _ *object.Proc) (object.Value, object.Stop) {
			s := strOf(self).Value
			if s == "" {
				return vm.Raise(vm.rt.ArgumentErrorClass, "empty string")
			}
			r, _ := utf8.DecodeRuneInString(s)
			return &object.Integer{Value: int64(r)}, object.NoStop
		}},
		"chr": {0, func(vm *VM, self object.Value, _ []object.Value, _ *object.Proc) (object.Value, object.Stop) {
			s := strOf(self).Value
			if s == "" {
				return newStr("")
			}
			_, size := utf8.DecodeRuneInString(s)
			return newStr(s[:size])
		}},
		"succ": {0, strSucc},
		"next": {0, strSucc},
		"upto": {-1, func(vm *VM, self object.Value, args []object.Value, blk *object.Proc) (object.Value, object.Stop) {
			if v, stop := vm.arity(args, 1, 2); stop != object.NoStop {
				return v, stop
			}
			if blk == nil {
				return enumFor(self, "upto", args), object.NoStop
			}
			last, v, stop := vm.strArg(args[0])
			if stop != object.NoStop {
				return v, stop
			}
			exclusive := len(args) > 1 && object.Truthy(args[1])
			for cur := strOf(self).Value; len(cur) <= len(last); cur = succString(cur) {
				if cur == last && exclusive {
					break
				}
				if v, stop := vm.yield1(blk, object.NewString(cur)); stop != object.NoStop {
					return v, stop
				}
				if cur == last {
					break
				}
			}
			return self, object.NoStop
		}},
		"count": {-1, func(vm *VM, self object.Value, args []object.Value, _ *object.Proc) (object.Value, object.Stop) {
			if v, stop := vm.arity(args, 1, -1); stop != object.NoStop {
				return v, stop
			}
			match, v, stop := vm.charSets(args)
			if stop != object.NoStop {
				return v, stop
			}
			n := 0
			for _, r := range strOf(self).Value {
				if match(r) {
					n++
				}
			}
			return &object.Integer{Value: int64(n)}, object.NoStop
		}},
		"=~": {1, func(vm *VM, self object.Value, args []object.Value, _ *object.Proc) (object.Value, object.Stop) {
			re, ok := args[0].(*object.Regexp)
			if !ok {
				if _, isStr := args[0].(*object.String); isStr {
					return vm.Raise(vm.rt.TypeErrorClass, "wrong argument type String (expected Regexp)")
				}
				return vm.send(args[0], "=~", []object.Value{self}, nil, false)
			}
			return vm.matchOperator(re, self)
		}},
		"match": {-1, func(vm *VM, self object.Value, args []object.Value, blk *object.Proc) (object.Value, object.Stop) {
			if v, stop := vm.arity(args, 1, 2); stop != object.NoStop {
				return v, stop
			}
			re, v, stop := vm.toRegexp(args[0])
			if stop != object.NoStop {
				return v, stop
			}
			return vm.send(re, "match", append([]object.Value{self}, args[1:]...), blk, false)
		}},
		"match?": {-1, func(vm *VM, self object.Value, args []object.Value, _ *object.Proc) (object.Value, object.Stop) {
			if v, stop := vm.arity(args, 1, 2); stop != object.NoStop {
				return v, stop
			}
			re, v, stop := vm.toRegexp(args[0])
			if stop != object.NoStop {
				return v, stop
			}
			return object.NativeToBool(re.Compiled.MatchString(strOf(self).Value)), object.NoStop
		}},
		"scan": {1, func(vm *VM, self object.Value, args []object.Value, blk *object.Proc) (object.Value, object.Stop) {
			re, v, stop := vm.toRegexp(args[0])
			if stop != object.NoStop {
				return v, stop
			}
			out := object.NewArray()
			for _, m := range allMatches(re, strOf(self).Value) {
				var item object.Value
				if m.Len() == 1 {
					item = object.NewString(m.Group(0))
				} else {
					groups := object.NewArray()
					for i := 1; i < m.Len(); i++ {
						groups.Elements = append(groups.Elements, groupValue(m, i))
					}
					item = groups
				}
				vm.setMatch(m)
				if blk != nil {
					if v, stop := vm.yield1(blk, item); stop != object.NoStop {
						return v, stop
					}
					continue
				}
				out.Elements = append(out.Elements, item)
			}
			if blk != nil {
				return self, object.NoStop
			}
			return out, object.NoStop
		}},
		"partition": {1, func(vm *VM, self object.Value, args []object.Value, _ *object.Proc) (object.Value, object.Stop) {
			s := strOf(self).Value
			start, end, v, stop := vm.findSeparator(s, args[0], false)
			if stop != object.NoStop {
				return v, stop
			}
			if start < 0 {
				return stringsArray([]string{s, "", ""}), object.NoStop
			}
			return stringsArray([]string{s[:start], s[start:end], s[end:]}), object.NoStop
		}},
		"rpartition": {1, func(vm *VM, self object.Value, args []object.Value, _ *object.Proc) (object.Value, object.Stop) {
			s := strOf(self).Value
			start, end, v, stop := vm.findSeparator(s, args[0], true)
			if stop != object.NoStop {
				return v, stop
			}
			if start < 0 {
				return stringsArray([]string{"", "", s}), object.NoStop
			}
			return stringsArray([]string{s[:start], s[start:end], s[end:]}), object.NoStop
		}},
		"casecmp": {1, func(vm *VM, self object.Value, args []object.Value, _ *object.Proc) (object.Value, object.Stop) {
			other, ok := args[0].(*object.String)
			if !ok {
				return object.NIL, object.NoStop
			}
			c := strings.Compare(strings.ToLower(strOf(self).Value), strings.ToLower(other.Value))
			return &object.Integer{Value: int64(c)}, object.NoStop
		}},
		"casecmp?": {1, func(vm *VM, self object.Value, args []object.Value, _ *object.Proc) (object.Value, object.Stop) {
			other, ok := args[0].(*object.String)
			if !ok {
				return object.NIL, object.NoStop
			}
			return object.NativeToBool(strings.EqualFold(strOf(self).Value, other.Value)), object.NoStop
		}},
		"hash": {0, func(vm *VM, self object.Value, _ []object.Value, _ *object.Proc) (object.Value, object.Stop) {
			return &object.Integer{Value: hashOf(object.HashKeyOf(self), vm)}, object.NoStop
		}},
		"freeze": {0, func(vm *VM, self object.Value, _ []object.Value, _ *object.Proc) (object.Value, object.Stop) {
			strOf(self).Frozen = true
			return self, object.NoStop
		}},
		"-@": {0, func(vm *VM, self object.Value, _ []object.Value, _ *object.Proc) (object.Value, object.Stop) {
			if s := strOf(self); !s.Frozen {
				return &object.String{Value: s.Value, Frozen: true}, object.NoStop
			}
			return self, object.NoStop
		}},
		"+@": {0, func(vm *VM, self object.Value, _ []object.Value, _ *object.Proc) (object.Value, object.Stop) {
			if s := strOf(self); s.Frozen {
				return object.NewString(s.Value), object.NoStop
			}
			return self, object.NoStop
		}},
		"force_encoding": {1, strSelf},
		"encode":         {-1, strSelf},
		"unicode_normalize": {-1, strSelf},
		"valid_encoding?": {0, func(vm *VM, self object.Value, _ []object.Value, _ *object.Proc) (object.Value, object.Stop) {
			return object.NativeToBool(utf8.ValidString(strOf(self).Value)), object.NoStop
		}},
		"ascii_only?": {0, func(vm *VM, self object.Value, _ []object.Value, _ *object.Proc) (object.Value, object.Stop) {
			for _, r := range strOf(self).Value {
				if r >= utf8.RuneSelf {
					return object.FALSE, object.NoStop
				}
			}
			return object.TRUE, object.NoStop
		}},
	}
}

func strSelf(vm *VM, self object.Value, _ []object.Value, _ *object.Proc) (object.Value, object.Stop) {
	return self, object.NoStop
}

func strToSym(vm *VM, self object.Value, _ []object.Value, _ *object.Proc) (object.Value, object.Stop) {
	return vm.rt.Intern(strOf(self).Value), object.NoStop
}

func strEqual(vm *VM, self object.Value, args []object.Value, _ *object.Proc) (object.Value, object.Stop) {
	other, ok := args[0].(*object.String)
	return object.NativeToBool(ok && other.Value == strOf(self).Value), object.NoStop
}

func strCompare(pred func(int) bool) builtinFunc {
	return func(vm *VM, self object.Value, args []object.Value, _ *object.Proc) (object.Value, object.Stop) {
		other, ok := args[0].(*object.String)
		if !ok {
			return vm.Raise(vm.rt.ArgumentErrorClass, "comparison of String with %s failed", vm.describeValue(args[0]))
		}
		return object.NativeToBool(pred(strings.Compare(strOf(self).Value, other.Value))), object.NoStop
	}
}

func strLength(vm *VM, self object.Value, _ []object.Value, _ *object.Proc) (object.Value, object.Stop) {
	return &object.Integer{Value: int64(utf8.RuneCountInString(strOf(self).Value))}, object.NoStop
}

func strAppend(vm *VM, self object.Value, args []object.Value, _ *object.Proc) (object.Value, object.Stop) {
	s, v, stop := vm.mutable(self)
	if stop != object.NoStop {
		return v, stop
	}
	switch a := args[0].(type) {
	case *object.String:
		s.Value += a.Value
	case *object.Integer:
		s.Value += string(rune(a.Value))
	default:
		return vm.Raise(vm.rt.TypeErrorClass, "no implicit conversion of %s into String", vm.typeName(a))
	}
	return s, object.NoStop
}

func strReplace(vm *VM, self object.Value, args []object.Value, _ *object.Proc) (object.Value, object.Stop) {
	s, v, stop := vm.mutable(self)
	if stop != object.NoStop {
		return v, stop
	}
	text, v, stop := vm.strArg(args[0])
	if stop != object.NoStop {
		return v, stop
	}
	s.Value = text
	return s, object.NoStop
}

func stringsArray(items []string) *object.Array {
	out := make([]object.Value, len(items))
	for i, s := range items {
		out[i] = object.NewString(s)
	}
	return object.NewArray(out...)
}

func splitChars(s string) []string {
	out := make([]string, 0, len(s))
	for _, r := range s {
		out = append(out, string(r))
	}
	return out
}

// splitLines splits after each newline, keeping it.
func splitLines(s string) []string {
	var out []string
	for s != "" {
		i := strings.IndexByte(s, '\n')
		if i < 0 {
			out = append(out, s)
			break
		}
		out = append(out, s[:i+1])
		s = s[i+1:]
	}
	return out
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	r, size := utf8.DecodeRuneInString(s)
	return string(unicode.ToUpper(r)) + strings.ToLower(s[size:])
}

func swapcase(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case unicode.IsUpper(r):
			return unicode.ToLower(r)
		case unicode.IsLower(r):
			return unicode.ToUpper(r)
		}
		return r
	}, s)
}

func reverseString(s string) string {
	runes := []rune(s)
	for i, j := 0, len(runes)-1; i < j; i, j = i+1, j-1 {
		runes[i], runes[j] = runes[j], runes[i]
	}
	return string(runes)
}

func chop(s string) string {
	if strings.HasSuffix(s, "\r\n") {
		return s[:len(s)-2]
	}
	if s == "" {
		return s
	}
	_, size := utf8.DecodeLastRuneInString(s)
	return s[:len(s)-size]
}

func strChomp(vm *VM, self object.Value, args []object.Value, _ *object.Proc) (object.Value, object.Stop) {
	s := strOf(self).Value
	if len(args) > 0 {
		suffix, v, stop := vm.strArg(args[0])
		if stop != object.NoStop {
			return v, stop
		}
		return newStr(strings.TrimSuffix(s, suffix))
	}
	switch {
	case strings.HasSuffix(s, "\r\n"):
		s = s[:len(s)-2]
	case strings.HasSuffix(s, "\n"), strings.HasSuffix(s, "\r"):
		s = s[:len(s)-1]
	}
	return newStr(s)
}

// charSets builds the predicate for count, delete and squeeze arguments:
// character sets with ranges and ^ negation, intersected.
func (vm *VM) charSets(args []object.Value) (func(rune) bool, object.Value, object.Stop) {
	var preds []func(rune) bool
	for _, a := range args {
		spec, v, stop := vm.strArg(a)
		if stop != object.NoStop {
			return nil, v, stop
		}
		set, negate := expandCharSet(spec)
		preds = append(preds, func(r rune) bool {
			_, in := set[r]
			return in != negate
		})
	}
	return func(r rune) bool {
		for _, p := range preds {
			if !p(r) {
				return false
			}
		}
		return true
	}, nil, object.NoStop
}

func expandCharSet(spec string) (map[rune]struct{}, bool) {
	runes := []rune(spec)
	negate := len(runes) > 1 && runes[0] == '^'
	if negate {
		runes = runes[1:]
	}
	set := map[rune]struct{}{}
	for _, r := range expandTrList(runes) {
		set[r] = struct{}{}
	}
	return set, negate
}

// expandTrList expands a-z style ranges.
func expandTrList(runes []rune) []rune {
	var out []rune
	for i := 0; i < len(runes); i++ {
		if runes[i] == '\\' && i+1 < len(runes) {
			i++
			out = append(out, runes[i])
			continue
		}
		if i+2 < len(runes) && runes[i+1] == '-' && runes[i] <= runes[i+2] {
			for r := runes[i]; r <= runes[i+2]; r++ {
				out = append(out, r)
			}
			i += 2
			continue
		}
		out = append(out, runes[i])
	}
	return out
}

func strDelete(vm *VM, self object.Value, args []object.Value, _ *object.Proc) (object.Value, object.Stop) {
	if v, stop := vm.arity(args, 1, -1); stop != object.NoStop {
		return v, stop
	}
	match, v, stop := vm.charSets(args)
	if stop != object.NoStop {
		return v, stop
	}
	return newStr(strings.Map(func(r rune) rune {
		if match(r) {
			return -1
		}
		return r
	}, strOf(self).Value))
}

func strSqueeze(vm *VM, self object.Value, args []object.Value, _ *object.Proc) (object.Value, object.Stop) {
	match := func(rune) bool { return true }
	if len(args) > 0 {
		m, v, stop := vm.charSets(args)
		if stop != object.NoStop {
			return v, stop
		}
		match = m
	}
	var out strings.Builder
	prev := rune(-1)
	for _, r := range strOf(self).Value {
		if r == prev && match(r) {
			continue
		}
		out.WriteRune(r)
		prev = r
	}
	return newStr(out.String())
}

func strTr(vm *VM, self object.Value, args []object.Value, _ *object.Proc) (object.Value, object.Stop) {
	from, v, stop := vm.strArg(args[0])
	if stop != object.NoStop {
		return v, stop
	}
	to, v, stop := vm.strArg(args[1])
	if stop != object.NoStop {
		return v, stop
	}
	fromRunes := []rune(from)
	negate := len(fromRunes) > 1 && fromRunes[0] == '^'
	if negate {
		fromRunes = fromRunes[1:]
	}
	src := expandTrList(fromRunes)
	dst := expandTrList([]rune(to))
	mapping := map[rune]rune{}
	for i, r := range src {
		switch {
		case len(dst) == 0:
			mapping[r] = -1
		case i < len(dst):
			mapping[r] = dst[i]
		default:
			mapping[r] = dst[len(dst)-1]
		}
	}
	return newStr(strings.Map(func(r rune) rune {
		repl, in := mapping[r]
		if negate {
			if in {
				return r
			}
			if len(dst) == 0 {
				return -1
			}
			return dst[len(dst)-1]
		}
		if in {
			return repl
		}
		return r
	}, strOf(self).Value))
}

// substitute implements sub and gsub. The replacement is a string with
// back-references, a hash keyed by the matched text, or the block.
func (vm *VM) substitute(self object.Value, args []object.Value, blk *object.Proc, global bool) (object.Value, object.Stop) {
	if blk == nil {
		if v, stop := vm.arity(args, 2, 2); stop != object.NoStop {
			return v, stop
		}
	} else if v, stop := vm.arity(args, 1, 2); stop != object.NoStop {
		return v, stop
	}
	s := strOf(self).Value
	re, v, stop := vm.toRegexp(args[0])
	if stop != object.NoStop {
		return v, stop
	}
	matches := allMatches(re, s)
	if !global && len(matches) > 1 {
		matches = matches[:1]
	}
	if len(matches) == 0 {
		vm.setMatch(nil)
		return newStr(s)
	}
	var out strings.Builder
	last := 0
	for _, m := range matches {
		out.WriteString(s[last:m.Offsets[0]])
		vm.setMatch(m)
		var repl string
		switch {
		case len(args) == 2:
			switch r := args[1].(type) {
			case *object.Hash:
				val, ok := r.Get(object.NewString(m.Group(0)))
				if !ok {
					val = object.NIL
				}
				text, v, stop := vm.str(val)
				if stop != object.NoStop {
					return v, stop
				}
				repl = text
			default:
				text, v, stop := vm.strArg(r)
				if stop != object.NoStop {
					return v, stop
				}
				repl = expandReplacement(text, m)
			}
		default:
			res, stop := vm.yield1(blk, object.NewString(m.Group(0)))
			if stop != object.NoStop {
				return res, stop
			}
			text, v, stop := vm.str(res)
			if stop != object.NoStop {
				return v, stop
			}
			repl = text
		}
		out.WriteString(repl)
		last = m.Offsets[1]
	}
	out.WriteString(s[last:])
	vm.setMatch(matches[len(matches)-1])
	return newStr(out.String())
}

func strSub(vm *VM, self object.Value, args []object.Value, blk *object.Proc) (object.Value, object.Stop) {
	return vm.substitute(self, args, blk, false)
}

func strGsub(vm *VM, self object.Value, args []object.Value, blk *object.Proc) (object.Value, object.Stop) {
	return vm.substitute(self, args, blk, true)
}

func strIndexOf(vm *VM, self object.Value, args []object.Value, _ *object.Proc) (object.Value, object.Stop) {
	if v, stop := vm.arity(args, 1, 2); stop != object.NoStop {
		return v, stop
	}
	s := strOf(self).Value
	start := 0
	if len(args) == 2 {
		n, v, stop := vm.intArg(args[1])
		if stop != object.NoStop {
			return v, stop
		}
		if n < 0 {
			n += int64(utf8.RuneCountInString(s))
		}
		if start = byteIndex(s, int(n)); start < 0 {
			return object.NIL, object.NoStop
		}
	}
	if re, ok := args[0].(*object.Regexp); ok {
		m := re.Match(s, start)
		vm.setMatch(m)
		if m == nil {
			return object.NIL, object.NoStop
		}
		return &object.Integer{Value: int64(charIndex(s, m.Offsets[0]))}, object.NoStop
	}
	sub, v, stop := vm.strArg(args[0])
	if stop != object.NoStop {
		return v, stop
	}
	i := strings.Index(s[start:], sub)
	if i < 0 {
		return object.NIL, object.NoStop
	}
	return &object.Integer{Value: int64(charIndex(s, start+i))}, object.NoStop
}

func strRindex(vm *VM, self object.Value, args []object.Value, _ *object.Proc) (object.Value, object.Stop) {
	if v, stop := vm.arity(args, 1, 2); stop != object.NoStop {
		return v, stop
	}
	s := strOf(self).Value
	limit := len(s)
	if len(args) == 2 {
		n, v, stop := vm.intArg(args[1])
		if stop != object.NoStop {
			return v, stop
		}
		if n < 0 {
			n += int64(utf8.RuneCountInString(s))
		}
		if n < 0 {
			return object.NIL, object.NoStop
		}
		if b := byteIndex(s, int(n)); b >= 0 {
			limit = b
		}
	}
	if re, ok := args[0].(*object.Regexp); ok {
		var found *object.MatchData
		for _, m := range allMatches(re, s) {
			if m.Offsets[0] <= limit {
				found = m
			}
		}
		vm.setMatch(found)
		if found == nil {
			return object.NIL, object.NoStop
		}
		return &object.Integer{Value: int64(charIndex(s, found.Offsets[0]))}, object.NoStop
	}
	sub, v, stop := vm.strArg(args[0])
	if stop != object.NoStop {
		return v, stop
	}
	end := limit + len(sub)
	if end > len(s) {
		end = len(s)
	}
	i := strings.LastIndex(s[:end], sub)
	if i < 0 {
		return object.NIL, object.NoStop
	}
	return &object.Integer{Value: int64(charIndex(s, i))}, object.NoStop
}

// sliceBounds resolves [index], [start, len] and [range] against n
// characters. ok is false when the selection is out of range.
func (vm *VM) sliceBounds(args []object.Value, n int) (start, length int, single, ok bool, v object.Value, stop object.Stop) {
	switch len(args) {
	case 1:
		switch a := args[0].(type) {
		case *object.Integer:
			i := int(a.Value)
			if i < 0 {
				i += n
			}
			return i, 1, true, i >= 0 && i < n, nil, object.NoStop
		case *object.Range:
			lo, hi, okb := a.IntBounds(n)
			if !okb {
				v, stop = vm.Raise(vm.rt.TypeErrorClass, "no implicit conversion of Range into Integer")
				return
			}
			if lo < 0 || lo > n {
				return 0, 0, false, false, nil, object.NoStop
			}
			length = hi - lo + 1
			if length < 0 {
				length = 0
			}
			if lo+length > n {
				length = n - lo
			}
			return lo, length, false, true, nil, object.NoStop
		case *object.Float:
			return vm.sliceBounds([]object.Value{&object.Integer{Value: int64(a.Value)}}, n)
		}
		v, stop = vm.Raise(vm.rt.TypeErrorClass, "no implicit conversion of %s into Integer", vm.typeName(args[0]))
		return
	case 2:
		s, v1, stop1 := vm.intArg(args[0])
		if stop1 != object.NoStop {
			return 0, 0, false, false, v1, stop1
		}
		l, v2, stop2 := vm.intArg(args[1])
		if stop2 != object.NoStop {
			return 0, 0, false, false, v2, stop2
		}
		start, length = int(s), int(l)
		if start < 0 {
			start += n
		}
		if start < 0 || start > n || length < 0 {
			return 0, 0, false, false, nil, object.NoStop
		}
		if start+length > n {
			length = n - start
		}
		return start, length, false, true, nil, object.NoStop
	}
	v, stop = vm.argumentError(len(args), "1..2")
	return
}

func strSlice(vm *VM, self object.Value, args []object.Value, _ *object.Proc) (object.Value, object.Stop) {
	s := strOf(self).Value
	if len(args) >= 1 {
		switch a := args[0].(type) {
		case *object.String:
			if strings.Contains(s, a.Value) {
				return newStr(a.Value)
			}
			return object.NIL, object.NoStop
		case *object.Regexp:
			m := a.Match(s, 0)
			vm.setMatch(m)
			if m == nil {
				return object.NIL, object.NoStop
			}
			if len(args) == 2 {
				return matchIndex(vm, m, args[1])
			}
			return newStr(m.Group(0))
		}
	}
	runes := []rune(s)
	start, length, _, ok, v, stop := vm.sliceBounds(args, len(runes))
	if stop != object.NoStop {
		return v, stop
	}
	if !ok {
		return object.NIL, object.NoStop
	}
	return newStr(string(runes[start : start+length]))
}

func strSetSlice(vm *VM, self object.Value, args []object.Value, _ *object.Proc) (object.Value, object.Stop) {
	s, v, stop := vm.mutable(self)
	if stop != object.NoStop {
		return v, stop
	}
	if v, stop := vm.arity(args, 2, 3); stop != object.NoStop {
		return v, stop
	}
	value := args[len(args)-1]
	repl, v, stop := vm.strArg(value)
	if stop != object.NoStop {
		return v, stop
	}
	sel := args[:len(args)-1]
	switch a := sel[0].(type) {
	case *object.String:
		i := strings.Index(s.Value, a.Value)
		if i < 0 {
			return vm.Raise(vm.rt.IndexErrorClass, "string not matched")
		}
		s.Value = s.Value[:i] + repl + s.Value[i+len(a.Value):]
		return value, object.NoStop
	case *object.Regexp:
		m := a.Match(s.Value, 0)
		if m == nil {
			return vm.Raise(vm.rt.IndexErrorClass, "regexp not matched")
		}
		s.Value = s.Value[:m.Offsets[0]] + repl + s.Value[m.Offsets[1]:]
		return value, object.NoStop
	}
	runes := []rune(s.Value)
	start, length, _, ok, v, stop := vm.sliceBounds(sel, len(runes))
	if stop != object.NoStop {
		return v, stop
	}
	if !ok {
		return vm.Raise(vm.rt.IndexErrorClass, "index %s out of string", vm.inspect(sel[0]))
	}
	s.Value = string(runes[:start]) + repl + string(runes[start+length:])
	return value, object.NoStop
}

// findSeparator locates sep in s for partition and rpartition, returning
// byte offsets or -1.
func (vm *VM) findSeparator(s string, sep object.Value, last bool) (int, int, object.Value, object.Stop) {
	if re, ok := sep.(*object.Regexp); ok {
		matches := allMatches(re, s)
		if len(matches) == 0 {
			return -1, -1, nil, object.NoStop
		}
		m := matches[0]
		if last {
			m = matches[len(matches)-1]
		}
		vm.setMatch(m)
		return m.Offsets[0], m.Offsets[1], nil, object.NoStop
	}
	text, v, stop := vm.strArg(sep)
	if stop != object.NoStop {
		return 0, 0, v, stop
	}
	i := strings.Index(s, text)
	if last {
		i = strings.LastIndex(s, text)
	}
	if i < 0 {
		return -1, -1, nil, object.NoStop
	}
	return i, i + len(text), nil, object.NoStop
}

func strSplit(vm *VM, self object.Value, args []object.Value, _ *object.Proc) (object.Value, object.Stop) {
	if v, stop := vm.arity(args, 0, 2); stop != object.NoStop {
		return v, stop
	}
	s := strOf(self).Value
	limit := 0
	if len(args) == 2 {
		n, v, stop := vm.intArg(args[1])
		if stop != object.NoStop {
			return v, stop
		}
		limit = int(n)
	}
	var parts []string
	var sep object.Value = object.NIL
	if len(args) > 0 {
		sep = args[0]
	}
	if str, ok := sep.(*object.String); ok && str.Value == " " {
		sep = object.NIL
	}
	switch p := sep.(type) {
	case *object.Nil:
		if limit > 0 {
			parts = splitFieldsN(s, limit)
		} else {
			parts = strings.Fields(s)
		}
	case *object.String:
		switch {
		case p.Value == "":
			parts = splitChars(s)
			if limit > 0 && len(parts) > limit {
				parts = append(parts[:limit-1], strings.Join(parts[limit-1:], ""))
			}
		case limit > 0:
			parts = strings.SplitN(s, p.Value, limit)
		default:
			parts = strings.Split(s, p.Value)
		}
	case *object.Regexp:
		n := -1
		if limit > 0 {
			n = limit
		}
		parts = p.Compiled.Split(s, n)
		if len(parts) > 0 && parts[0] == "" && s != "" {
			if locs := p.Compiled.FindStringIndex(s); locs != nil && locs[0] == 0 && locs[1] == 0 {
				parts = parts[1:]
			}
		}
	default:
		return vm.Raise(vm.rt.TypeErrorClass, "wrong argument type %s (expected Regexp)", vm.typeName(sep))
	}
	if s == "" {
		parts = nil
	}
	if limit == 0 {
		for len(parts) > 0 && parts[len(parts)-1] == "" {
			parts = parts[:len(parts)-1]
		}
	}
	return stringsArray(parts), object.NoStop
}

// splitFieldsN splits on whitespace runs into at most n fields, the last
// keeping the remainder.
func splitFieldsN(s string, n int) []string {
	var out []string
	s = strings.TrimLeft(s, " \t\n\v\f\r")
	for s != "" {
		if len(out) == n-1 {
			out = append(out, s)
			break
		}
		i := strings.IndexAny(s, " \t\n\v\f\r")
		if i < 0 {
			out = append(out, s)
			break
		}
		out = append(out, s[:i])
		s = strings.TrimLeft(s[i:], " \t\n\v\f\r")
	}
	return out
}

// strJustify pads to a width: dir < 0 pads on the right, dir > 0 on the
// left and 0 on both sides.
func strJustify(dir int) builtinFunc {
	return func(vm *VM, self object.Value, args []object.Value, _ *object.Proc) (object.Value, object.Stop) {
		if v, stop := vm.arity(args, 1, 2); stop != object.NoStop {
			return v, stop
		}
		width, v, stop := vm.intArg(args[0])
		if stop != object.NoStop {
			return v, stop
		}
		pad := " "
		if len(args) == 2 {
			p, v, stop := vm.strArg(args[1])
			if stop != object.NoStop {
				return v, stop
			}
			if p == "" {
				return vm.Raise(vm.rt.ArgumentErrorClass, "zero width padding")
			}
			pad = p
		}
		s := strOf(self).Value
		n := utf8.RuneCountInString(s)
		total := int(width) - n
		if total <= 0 {
			return newStr(s)
		}
		fill := func(k int) string {
			padRunes := []rune(pad)
			out := make([]rune, k)
			for i := range out {
				out[i] = padRunes[i%len(padRunes)]
			}
			return string(out)
		}
		switch {
		case dir < 0:
			return newStr(s + fill(total))
		case dir > 0:
			return newStr(fill(total) + s)
		}
		left := total / 2
		return newStr(fill(left) + s + fill(total-left))
	}
}

func strSucc(vm *VM, self object.Value, _ []object.Value, _ *object.Proc) (object.Value, object.Stop) {
	return newStr(succString(strOf(self).Value))
}

// succString increments the rightmost alphanumeric run with carry, the way
// String#succ does.
func succString(s string) string {
	if s == "" {
		return ""
	}
	runes := []rune(s)
	hasAlnum := false
	for _, r := range runes {
		if isAlnum(r) {
			hasAlnum = true
			break
		}
	}
	i := len(runes) - 1
	if !hasAlnum {
		runes[i]++
		return string(runes)
	}
	for i >= 0 && !isAlnum(runes[i]) {
		i--
	}
	for {
		r := runes[i]
		switch {
		case r == 'z':
			runes[i] = 'a'
		case r == 'Z':
			runes[i] = 'A'
		case r == '9':
			runes[i] = '0'
		default:
			runes[i]++
			return string(runes)
		}
		j := i - 1
		for j >= 0 && !isAlnum(runes[j]) {
			j--
		}
		if j < 0 {
			var carry rune
			switch r {
			case 'z':
				carry = 'a'
			case 'Z':
				carry = 'A'
			default:
				carry = '1'
			}
			out := append([]rune{}, runes[:i]...)
			out = append(out, carry)
			out = append(out, runes[i:]...)
			return string(out)
		}
		i = j
	}
}

func isAlnum(r rune) bool {
	return r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9'
}

func symbolMethods() map[string]builtin {
	sym := func(v object.Value) string { return v.(*object.Symbol).Name }
	symMap := func(fn func(string) string) builtinFunc {
		return func(vm *VM, self object.Value, _ []object.Value, _ *object.Proc) (object.Value, object.Stop) {
			return vm.rt.Intern(fn(sym(self))), object.NoStop
		}
	}
	length := func(vm *VM, self object.Value, _ []object.Value, _ *object.Proc) (object.Value, object.Stop) {
		return &object.Integer{Value: int64(utf8.RuneCountInString(sym(self)))}, object.NoStop
	}
	toS := func(vm *VM, self object.Value, _ []object.Value, _ *object.Proc) (object.Value, object.Stop) {
		return newStr(sym(self))
	}
	return map[string]builtin{
		"to_s":    {0, toS},
		"id2name": {0, toS},
		"name": {0, func(vm *VM, self object.Value, _ []object.Value, _ *object.Proc) (object.Value, object.Stop) {
			return &object.String{Value: sym(self), Frozen: true}, object.NoStop
		}},
		"to_sym": {0, func(vm *VM, self object.Value, _ []object.Value, _ *object.Proc) (object.Value, object.Stop) {
			return self, object.NoStop
		}},
		"to_proc": {0, func(vm *VM, self object.Value, _ []object.Value, _ *object.Proc) (object.Value, object.Stop) {
			return vm.symbolProc(sym(self)), object.NoStop
		}},
		"inspect": {0, func(vm *VM, self object.Value, _ []object.Value, _ *object.Proc) (object.Value, object.Stop) {
			return newStr(self.Inspect())
		}},
		"length":     {0, length},
		"size":       {0, length},
		"upcase":     {0, symMap(strings.ToUpper)},
		"downcase":   {0, symMap(strings.ToLower)},
		"capitalize": {0, symMap(capitalize)},
		"swapcase":   {0, symMap(swapcase)},
		"succ":       {0, symMap(succString)},
		"<=>": {1, func(vm *VM, self object.Value, args []object.Value, _ *object.Proc) (object.Value, object.Stop) {
			other, ok := args[0].(*object.Symbol)
			if !ok {
				return object.NIL, object.NoStop
			}
			return &object.Integer{Value: int64(strings.Compare(sym(self), other.Name))}, object.NoStop
		}},
		"==": {1, func(vm *VM, self object.Value, args []object.Value, _ *object.Proc) (object.Value, object.Stop) {
			return object.NativeToBool(self == args[0]), object.NoStop
		}},
		"[]": {-1, func(vm *VM, self object.Value, args []object.Value, blk *object.Proc) (object.Value, object.Stop) {
			return strSlice(vm, object.NewString(sym(self)), args, blk)
		}},
		"start_with?": {-1, func(vm *VM, self object.Value, args []object.Value, _ *object.Proc) (object.Value, object.Stop) {
			for _, a := range args {
				p, v, stop := vm.strArg(a)
				if stop != object.NoStop {
					return v, stop
				}
				if strings.HasPrefix(sym(self), p) {
					return object.TRUE, object.NoStop
				}
			}
			return object.FALSE, object.NoStop
		}},
		"end_with?": {-1, func(vm *VM, self object.Value, args []object.Value, _ *object.Proc) (object.Value, object.Stop) {
			for _, a := range args {
				p, v, stop := vm.strArg(a)
				if stop != object.NoStop {
					return v, stop
				}
				if strings.HasSuffix(sym(self), p) {
					return object.TRUE, object.NoStop
				}
			}
			return object.FALSE, object.NoStop
		}},
		"empty?": {0, func(vm *VM, self object.Value, _ []object.Value, _ *object.Proc) (object.Value, object.Stop) {
			return object.NativeToBool(sym(self) == ""), object.NoStop
		}},
		"=~": {1, func(vm *VM, self object.Value, args []object.Value, _ *object.Proc) (object.Value, object.Stop) {
			re, ok := args[0].(*object.Regexp)
			if !ok {
				return object.NIL, object.NoStop
			}
			return vm.matchOperator(re, self)
		}},
	}
}
