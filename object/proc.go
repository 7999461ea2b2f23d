package object

import (
	"fmt"

	"github.com/alexisbouchez/rubyvm/code"
)

// Stop tells the caller how an invocation ended. It travels next to the
// result value instead of being stored on the block.
type Stop int

const (
	// NoStop is a normal completion.
	NoStop Stop = iota
	// NextStop ends the current block invocation with a value.
	NextStop
	// RedoStop restarts the current block invocation.
	RedoStop
	// BreakStop carries a *Jump to the call site that received the block.
	BreakStop
	// ReturnStop carries a *Jump to the home method activation.
	ReturnStop
	// RaiseStop carries an *Exception.
	RaiseStop
)

var stopNames = [...]string{
	NoStop:     "NoStop",
	NextStop:   "NextStop",
	RedoStop:   "RedoStop",
	BreakStop:  "BreakStop",
	ReturnStop: "ReturnStop",
	RaiseStop:  "RaiseStop",
}

func (s Stop) String() string {
	if int(s) < len(stopNames) {
		return stopNames[s]
	}
	return fmt.Sprintf("Stop(%d)", int(s))
}

// Frame identifies an activation that a break or return can target. Done is
// set once the activation has finished.
type Frame struct {
	Name string
	Done bool
}

// Jump is the value of a BreakStop or ReturnStop.
type Jump struct {
	Target *Frame
	Value  Value
}

func (j *Jump) Type() Type      { return JUMP_OBJ }
func (j *Jump) Inspect() string { return "#<jump " + j.Value.Inspect() + ">" }

// Proc is a block, proc or lambda. It captures self, the lexical module
// chain and the environment by reference.
type Proc struct {
	Proto   *code.Proto
	Env     *Env
	Self    Value
	Lexical *Lexical
	// Home is the method activation a return unwinds to; Site the call that
	// received the block literal and that a break unwinds to.
	Home *Frame
	Site *Frame
	// OuterBlock is the block of the defining method, for yield inside a
	// block.
	OuterBlock *Proc
	// Method and DefClass are the defining method, for super and __method__.
	Method   *Method
	DefClass *RubyClass
	// Args are the defining method's arguments, for zsuper.
	Args []Value

	Lambda      bool
	Argc        int
	HasSplat    bool
	DefaultArgc int

	// Fn is set for procs made from a Go function, such as Symbol#to_proc.
	Fn BuiltinFunc
}

// NewProc wraps a lowered block.
func NewProc(proto *code.Proto, env *Env, self Value, lexical *Lexical) *Proc {
	return &Proc{
		Proto:       proto,
		Env:         env,
		Self:        self,
		Lexical:     lexical,
		Lambda:      proto.Lambda,
		Argc:        proto.Argc + proto.DefaultArgc + proto.PostArgc,
		HasSplat:    proto.HasSplat,
		DefaultArgc: proto.DefaultArgc,
	}
}

func (p *Proc) Type() Type { return PROC_OBJ }
func (p *Proc) Inspect() string {
	if p.Lambda {
		return "#<Proc (lambda)>"
	}
	return "#<Proc>"
}

// Arity follows Proc#arity. Argc counts every positional parameter,
// optional ones included.
func (p *Proc) Arity() int {
	if !p.HasSplat && p.DefaultArgc == 0 {
		return p.Argc
	}
	return -(p.Argc - p.DefaultArgc) - 1
}
