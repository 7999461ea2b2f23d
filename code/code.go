// Package code defines the executable form produced by the compiler: opcodes,
// instructions, call sites, handler tables and the Proto that holds one
// method, block, class body or program.
package code

import "fmt"

// Opcode is a single VM operation.
type Opcode byte

const (
	Nop Opcode = iota

	PutNil
	PutSelf
	PutTrue
	PutFalse
	PutObject // A: const
	PutString // A: const, a fresh mutable string per execution

	Pop
	Dup
	DupN // A: count
	Swap
	TopN // A: distance from the top
	SetN // A: distance from the top; copies the top value down

	GetLocal // A: slot, B: depth
	SetLocal // A: slot, B: depth
	GetIvar  // A: name
	SetIvar
	GetCvar
	SetCvar
	GetGlobal
	SetGlobal
	GetConst       // A: name, looked up lexically
	GetScopedConst // A: name, pops the namespace
	GetTopConst    // A: name
	SetConst       // A: name
	SetScopedConst // A: name, pops the namespace then the value

	NewArray // A: count
	SplatArray
	ConcatArray
	NewHash // A: pair count
	MergeHash
	NewRange // B: exclusive
	ToString
	ConcatStrings // A: count
	NewRegexp     // A: flags const
	ToSymbol

	Send        // A: call site
	InvokeSuper // A: call site
	InvokeBlock // A: argc, B: splat
	MakeBlock   // A: child, B: lambda

	Jump // A: target
	BranchIf
	BranchUnless
	BranchNil
	Leave
	Throw // A: ThrowKind
	Not

	DefineMethod // A: name, B: child, C: singleton
	DefineClass  // A: name, B: child, C: ClassFlags

	CheckMatch  // A: MatchFlags
	ExpandArray // A: pre, B: post, C: splat

	Mark         // A: mark
	Unwind       // A: mark or -1 for the frame base, B: keep top
	GetException // A: mark
	Reraise      // A: mark
	EnsureEnd    // A: mark

	Defined // A: DefinedKind, B: name, C: receiver on stack
	Alias   // A: new, B: old, C: global
	Undef   // A: name
)

var opNames = [...]string{
	Nop:            "nop",
	PutNil:         "putnil",
	PutSelf:        "putself",
	PutTrue:        "puttrue",
	PutFalse:       "putfalse",
	PutObject:      "putobject",
	PutString:      "putstring",
	Pop:            "pop",
	Dup:            "dup",
	DupN:           "dupn",
	Swap:           "swap",
	TopN:           "topn",
	SetN:           "setn",
	GetLocal:       "getlocal",
	SetLocal:       "setlocal",
	GetIvar:        "getivar",
	SetIvar:        "setivar",
	GetCvar:        "getcvar",
	SetCvar:        "setcvar",
	GetGlobal:      "getglobal",
	SetGlobal:      "setglobal",
	GetConst:       "getconst",
	GetScopedConst: "getscopedconst",
	GetTopConst:    "gettopconst",
	SetConst:       "setconst",
	SetScopedConst: "setscopedconst",
	NewArray:       "newarray",
	SplatArray:     "splatarray",
	ConcatArray:    "concatarray",
	NewHash:        "newhash",
	MergeHash:      "mergehash",
	NewRange:       "newrange",
	ToString:       "tostring",
	ConcatStrings:  "concatstrings",
	NewRegexp:      "newregexp",
	ToSymbol:       "tosymbol",
	Send:           "send",
	InvokeSuper:    "invokesuper",
	InvokeBlock:    "invokeblock",
	MakeBlock:      "makeblock",
	Jump:           "jump",
	BranchIf:       "branchif",
	BranchUnless:   "branchunless",
	BranchNil:      "branchnil",
	Leave:          "leave",
	Throw:          "throw",
	Not:            "not",
	DefineMethod:   "definemethod",
	DefineClass:    "defineclass",
	CheckMatch:     "checkmatch",
	ExpandArray:    "expandarray",
	Mark:           "mark",
	Unwind:         "unwind",
	GetException:   "getexception",
	Reraise:        "reraise",
	EnsureEnd:      "ensureend",
	Defined:        "defined",
	Alias:          "alias",
	Undef:          "undef",
}

func (op Opcode) String() string {
	if int(op) < len(opNames) && opNames[op] != "" {
		return opNames[op]
	}
	return fmt.Sprintf("op(%d)", op)
}

// IsJump reports whether A holds a code offset.
func (op Opcode) IsJump() bool {
	switch op {
	case Jump, BranchIf, BranchUnless, BranchNil:
		return true
	}
	return false
}

// ThrowKind says which non-local jump a Throw performs.
type ThrowKind int

const (
	ThrowBreak ThrowKind = iota + 1
	ThrowReturn
)

// ClassFlags qualify a DefineClass.
const (
	ClassHasSuper = 1 << iota
	ClassScoped
	ClassModule
	ClassSingleton
)

// MatchFlags qualify a CheckMatch.
const (
	MatchRescue = 1 << iota
	MatchSplat
)

// DefinedKind selects what a Defined instruction tests.
type DefinedKind int

const (
	DefinedIvar DefinedKind = iota + 1
	DefinedGlobal
	DefinedCvar
	DefinedConst
	DefinedMethod
	DefinedYield
	DefinedSuper
)

// Instr is one instruction.
type Instr struct {
	Op      Opcode
	A, B, C int
	Line    int
}

// Call flags.
const (
	FCall = 1 << iota // implicit or self receiver; private methods allowed
	VCall             // bare identifier
	ArgsSplat         // the arguments are a single array on the stack
	ArgsBlockArg      // a &blk value follows the arguments
	SafeNav           // recv&.name
	ZSuper            // super without arguments
)

// CallInfo describes one call site.
type CallInfo struct {
	Name  string
	Argc  int
	Flags int
	Block int // child index of a literal block, or -1
}

// Has reports whether all of flags are set.
func (ci CallInfo) Has(flags int) bool { return ci.Flags&flags == flags }

// HandlerKind distinguishes rescue from ensure handlers.
type HandlerKind int

const (
	Rescue HandlerKind = iota
	Ensure
)

func (k HandlerKind) String() string {
	if k == Ensure {
		return "ensure"
	}
	return "rescue"
}

// Handler covers the instructions in [Start, End). Mark is the operand-stack
// mark restored before jumping to Target. When several handlers cover a pc,
// the one with the highest Level wins.
type Handler struct {
	Kind   HandlerKind
	Start  int
	End    int
	Target int
	Mark   int
	Level  int
}

// Covers reports whether pc lies in the handler's range.
func (h Handler) Covers(pc int) bool { return pc >= h.Start && pc < h.End }

// Kind is the kind of lowered unit.
type Kind int

const (
	ProgramUnit Kind = iota
	MethodUnit
	BlockUnit
	ClassUnit
)

func (k Kind) String() string {
	switch k {
	case ProgramUnit:
		return "program"
	case MethodUnit:
		return "method"
	case BlockUnit:
		return "block"
	case ClassUnit:
		return "class"
	}
	return "unknown"
}

// Arity selects the VM's argument binding path.
type Arity int

const (
	NoArg Arity = iota
	OneArg
	VarArg
)

func (a Arity) String() string {
	switch a {
	case NoArg:
		return "noarg"
	case OneArg:
		return "onearg"
	}
	return "vararg"
}

// ArityOf picks the binding path for a signature. Any splat, default or post
// parameter forces VarArg.
func ArityOf(argc, defaultArgc, postArgc int, splat bool) Arity {
	switch {
	case splat || defaultArgc > 0 || postArgc > 0:
		return VarArg
	case argc == 0:
		return NoArg
	case argc == 1:
		return OneArg
	}
	return VarArg
}

// Sym is a symbol constant.
type Sym string

// Proto is a lowered method, block, class body or program.
type Proto struct {
	Name     string
	Kind     Kind
	File     string
	Line     int
	Code     []Instr
	Consts   []any // int64, float64, string or Sym
	Calls    []CallInfo
	Children []*Proto
	Handlers []Handler
	Locals   []string
	NumMarks int
	Parent   *Proto

	// Argc counts the required parameters before the optional ones; PostArgc
	// those after the rest parameter.
	Argc        int
	DefaultArgc int
	PostArgc    int
	HasSplat    bool
	Arity       Arity
	// OptEntry[k] is where execution starts when k optional arguments were
	// supplied. It has DefaultArgc+1 entries when there are defaults.
	OptEntry []int
	// ParamSlots lists the slots of required, optional and post parameters in
	// order. RestSlot and BlockSlot are -1 when absent or anonymous.
	ParamSlots []int
	RestSlot   int
	BlockSlot  int
	Lambda     bool

	consts map[any]int
}

// New returns an empty proto.
func New(name string, kind Kind, file string, line int) *Proto {
	return &Proto{Name: name, Kind: kind, File: file, Line: line, RestSlot: -1, BlockSlot: -1}
}

// NumLocals is the size of the proto's environment.
func (p *Proto) NumLocals() int { return len(p.Locals) }

// Emit appends an instruction and returns its offset.
func (p *Proto) Emit(line int, op Opcode, operands ...int) int {
	in := Instr{Op: op, Line: line}
	if len(operands) > 0 {
		in.A = operands[0]
	}
	if len(operands) > 1 {
		in.B = operands[1]
	}
	if len(operands) > 2 {
		in.C = operands[2]
	}
	p.Code = append(p.Code, in)
	return len(p.Code) - 1
}

// Patch points the jump at pos to the current end of code.
func (p *Proto) Patch(pos int) { p.Code[pos].A = len(p.Code) }

// PC is the offset of the next instruction.
func (p *Proto) PC() int { return len(p.Code) }

// Const interns v in the constant pool.
func (p *Proto) Const(v any) int {
	if p.consts == nil {
		p.consts = map[any]int{}
	}
	if i, ok := p.consts[v]; ok {
		return i
	}
	p.Consts = append(p.Consts, v)
	p.consts[v] = len(p.Consts) - 1
	return len(p.Consts) - 1
}

// AddCall registers a call site.
func (p *Proto) AddCall(ci CallInfo) int {
	p.Calls = append(p.Calls, ci)
	return len(p.Calls) - 1
}

// AddChild registers a nested proto.
func (p *Proto) AddChild(child *Proto) int {
	child.Parent = p
	p.Children = append(p.Children, child)
	return len(p.Children) - 1
}

// NewMark allocates an operand-stack mark.
func (p *Proto) NewMark() int {
	p.NumMarks++
	return p.NumMarks - 1
}

// Str returns the string constant at i.
func (p *Proto) Str(i int) string {
	s, _ := p.Consts[i].(string)
	return s
}

// LocalName resolves a slot depth levels up the block chain.
func (p *Proto) LocalName(slot, depth int) string {
	q := p
	for i := 0; i < depth && q != nil; i++ {
		q = q.Parent
	}
	if q == nil || slot < 0 || slot >= len(q.Locals) {
		return fmt.Sprintf("?%d", slot)
	}
	return q.Locals[slot]
}

// ArgcString formats the accepted argument count as ArgumentError shows it.
func (p *Proto) ArgcString() string {
	return ExpectedArgs(p.Argc+p.PostArgc, p.DefaultArgc, p.HasSplat)
}

// ExpectedArgs formats an expected argument count: "1", "1..2" or "1+".
func ExpectedArgs(required, optional int, splat bool) string {
	switch {
	case splat:
		return fmt.Sprintf("%d+", required)
	case optional > 0:
		return fmt.Sprintf("%d..%d", required, required+optional)
	}
	return fmt.Sprintf("%d", required)
}
