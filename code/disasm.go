package code

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
)

// Disassemble renders p and its children as a listing.
func Disassemble(p *Proto) string {
	var out bytes.Buffer
	disassemble(&out, p)
	return out.String()
}

func disassemble(out *bytes.Buffer, p *Proto) {
	fmt.Fprintf(out, "== %s (%s) %s:%d\n", p.Name, p.Kind, p.File, p.Line)
	if len(p.Locals) > 0 {
		fmt.Fprintf(out, "locals: [%s]\n", strings.Join(p.Locals, " "))
	}
	if p.Kind == MethodUnit || p.Kind == BlockUnit {
		fmt.Fprintf(out, "params: argc=%d opt=%d post=%d splat=%v arity=%s\n",
			p.Argc, p.DefaultArgc, p.PostArgc, p.HasSplat, p.Arity)
	}
	for _, h := range p.Handlers {
		fmt.Fprintf(out, "%s [%04d, %04d) -> %04d mark=%d\n", h.Kind, h.Start, h.End, h.Target, h.Mark)
	}
	line := 0
	for pc, in := range p.Code {
		fmt.Fprintf(out, "%04d %s", pc, p.InstrString(in))
		if in.Line != line {
			fmt.Fprintf(out, "  (%d)", in.Line)
			line = in.Line
		}
		out.WriteByte('\n')
	}
	for _, child := range p.Children {
		out.WriteByte('\n')
		disassemble(out, child)
	}
}

// InstrString renders one instruction with resolved operands.
func (p *Proto) InstrString(in Instr) string {
	name := in.Op.String()
	switch in.Op {
	case PutObject:
		return fmt.Sprintf("%-14s %s", name, formatConst(p.Consts[in.A]))
	case PutString:
		return fmt.Sprintf("%-14s %q", name, p.Str(in.A))
	case DupN, TopN, SetN, NewArray, NewHash, ConcatStrings, Mark, GetException, Reraise, EnsureEnd:
		return fmt.Sprintf("%-14s %d", name, in.A)
	case GetLocal, SetLocal:
		return fmt.Sprintf("%-14s %s@%d, %d", name, p.LocalName(in.A, in.B), in.A, in.B)
	case GetIvar, SetIvar, GetCvar, SetCvar, GetGlobal, SetGlobal,
		GetConst, GetScopedConst, GetTopConst, SetConst, SetScopedConst, Undef:
		return fmt.Sprintf("%-14s %s", name, p.Str(in.A))
	case NewRange:
		if in.B != 0 {
			return fmt.Sprintf("%-14s exclusive", name)
		}
		return name
	case NewRegexp:
		return fmt.Sprintf("%-14s /%s", name, p.Str(in.A))
	case Send, InvokeSuper:
		return fmt.Sprintf("%-14s %s", name, p.callString(p.Calls[in.A]))
	case InvokeBlock:
		if in.B != 0 {
			return fmt.Sprintf("%-14s argc:%d splat", name, in.A)
		}
		return fmt.Sprintf("%-14s argc:%d", name, in.A)
	case MakeBlock:
		return fmt.Sprintf("%-14s %s", name, p.Children[in.A].Name)
	case Jump, BranchIf, BranchUnless, BranchNil:
		return fmt.Sprintf("%-14s %04d", name, in.A)
	case Throw:
		if ThrowKind(in.A) == ThrowReturn {
			return fmt.Sprintf("%-14s return", name)
		}
		return fmt.Sprintf("%-14s break", name)
	case DefineMethod:
		s := fmt.Sprintf("%-14s %s, %s", name, p.Str(in.A), p.Children[in.B].Name)
		if in.C != 0 {
			s += ", singleton"
		}
		return s
	case DefineClass:
		return fmt.Sprintf("%-14s %s, %s, %d", name, p.Str(in.A), p.Children[in.B].Name, in.C)
	case CheckMatch:
		var flags []string
		if in.A&MatchRescue != 0 {
			flags = append(flags, "rescue")
		}
		if in.A&MatchSplat != 0 {
			flags = append(flags, "splat")
		}
		return strings.TrimSpace(fmt.Sprintf("%-14s %s", name, strings.Join(flags, "|")))
	case ExpandArray:
		return fmt.Sprintf("%-14s %d, %d, %d", name, in.A, in.B, in.C)
	case Unwind:
		return fmt.Sprintf("%-14s %d, %d", name, in.A, in.B)
	case Defined:
		return fmt.Sprintf("%-14s %d, %s", name, in.A, p.Str(in.B))
	case Alias:
		return fmt.Sprintf("%-14s %s, %s", name, p.Str(in.A), p.Str(in.B))
	}
	return name
}

func (p *Proto) callString(ci CallInfo) string {
	var flags []string
	for _, f := range []struct {
		bit  int
		name string
	}{{FCall, "FCALL"}, {VCall, "VCALL"}, {ArgsSplat, "SPLAT"}, {ArgsBlockArg, "BLOCKARG"}, {SafeNav, "SAFENAV"}, {ZSuper, "ZSUPER"}} {
		if ci.Flags&f.bit != 0 {
			flags = append(flags, f.name)
		}
	}
	s := fmt.Sprintf("<mid:%s, argc:%d", ci.Name, ci.Argc)
	if len(flags) > 0 {
		s += ", " + strings.Join(flags, "|")
	}
	s += ">"
	if ci.Block >= 0 {
		s += ", " + p.Children[ci.Block].Name
	}
	return s
}

func formatConst(v any) string {
	switch c := v.(type) {
	case int64:
		return strconv.FormatInt(c, 10)
	case float64:
		return strconv.FormatFloat(c, 'g', -1, 64)
	case string:
		return strconv.Quote(c)
	case Sym:
		return ":" + string(c)
	}
	return fmt.Sprint(v)
}

// Ops lists the opcode names of p's code, without operands.
func Ops(p *Proto) []string {
	ops := make([]string, len(p.Code))
	for i, in := range p.Code {
		ops[i] = in.Op.String()
	}
	return ops
}
