package compiler

import (
	"github.com/alexisbouchez/rubyvm/ast"
	"github.com/alexisbouchez/rubyvm/code"
	"github.com/alexisbouchez/rubyvm/diag"
)

func (c *Compiler) compileIf(ie *ast.IfExpression) {
	c.compile(ie.Condition)
	var alt int
	if ie.Unless {
		alt = c.emit(code.BranchIf, -1)
	} else {
		alt = c.emit(code.BranchUnless, -1)
	}
	c.compileCompound(ie.Consequence)
	done := c.emit(code.Jump, -1)
	c.patch(alt)
	c.compileCompound(ie.Alternative)
	c.patch(done)
}

func (c *Compiler) pushRegion(r *region) *region {
	c.u.regions = append(c.u.regions, r)
	return r
}

func (c *Compiler) popRegion() {
	c.u.regions = c.u.regions[:len(c.u.regions)-1]
}

func (c *Compiler) patchAll(jumps []int, target int) {
	for _, j := range jumps {
		c.patchTo(j, target)
	}
}

// compileWhile lowers while/until. The loop's value is nil unless a break
// supplies one.
func (c *Compiler) compileWhile(w *ast.WhileExpression) {
	mark := c.u.proto.NewMark()
	c.emit(code.Mark, mark)
	loop := c.pushRegion(&region{kind: loopRegion, mark: mark})

	exitIf := code.BranchUnless
	loopIf := code.BranchIf
	if w.Until {
		exitIf, loopIf = loopIf, exitIf
	}

	if w.DoWhile {
		body := c.pc()
		loop.redo = body
		c.compileCompound(w.Body)
		c.emit(code.Pop)
		c.patchAll(loop.nexts, c.pc())
		c.compile(w.Condition)
		c.emit(loopIf, body)
	} else {
		cond := c.pc()
		c.compile(w.Condition)
		exit := c.emit(exitIf, -1)
		loop.redo = c.pc()
		c.compileCompound(w.Body)
		c.emit(code.Pop)
		c.patchAll(loop.nexts, cond)
		c.emit(code.Jump, cond)
		c.patch(exit)
	}
	c.popRegion()
	c.emit(code.PutNil)
	c.patchAll(loop.breaks, c.pc())
}

// compileFor walks the iterable's to_a by index in hidden slots. The value of
// the loop is the iterable.
func (c *Compiler) compileFor(f *ast.ForExpression) {
	iter, arr, idx := c.hidden("for"), c.hidden("for"), c.hidden("for")
	c.compile(f.Iterable)
	c.emit(code.Dup)
	c.setHidden(iter)
	c.send("to_a", 0, 0)
	c.setHidden(arr)
	c.emit(code.PutObject, c.constant(int64(0)))
	c.setHidden(idx)

	mark := c.u.proto.NewMark()
	c.emit(code.Mark, mark)
	loop := c.pushRegion(&region{kind: loopRegion, mark: mark})
	cond := c.pc()
	c.getHidden(idx)
	c.getHidden(arr)
	c.send("size", 0, 0)
	c.send("<", 1, 0)
	exit := c.emit(code.BranchUnless, -1)
	c.getHidden(arr)
	c.getHidden(idx)
	c.send("[]", 1, 0)
	if m, ok := f.Target.(*ast.Mlhs); ok {
		c.expandInto(m)
	} else {
		c.assign(f.Target)
	}
	loop.redo = c.pc()
	c.compileCompound(f.Body)
	c.emit(code.Pop)
	c.patchAll(loop.nexts, c.pc())
	c.getHidden(idx)
	c.emit(code.PutObject, c.constant(int64(1)))
	c.send("+", 1, 0)
	c.setHidden(idx)
	c.emit(code.Jump, cond)
	c.patch(exit)
	c.popRegion()
	c.getHidden(iter)
	c.patchAll(loop.breaks, c.pc())
}

// compileCase tests each when condition with === against the subject held in
// a hidden slot.
func (c *Compiler) compileCase(ce *ast.CaseExpression) {
	var subject *int
	if ce.Subject != nil {
		sym := c.hidden("case")
		c.compile(ce.Subject)
		c.setHidden(sym)
		subject = &sym.Index
	}
	var done []int
	for _, w := range ce.Whens {
		var matched []int
		for _, cond := range w.Conditions {
			splat, isSplat := cond.(*ast.SplatExpression)
			switch {
			case subject != nil && isSplat:
				c.emit(code.GetLocal, *subject, 0)
				c.compile(splat)
				c.emit(code.CheckMatch, code.MatchSplat)
			case subject != nil:
				c.compile(cond)
				c.emit(code.GetLocal, *subject, 0)
				c.send("===", 1, 0)
			case isSplat:
				c.compile(splat)
				c.send("any?", 0, 0)
			default:
				c.compile(cond)
			}
			matched = append(matched, c.emit(code.BranchIf, -1))
		}
		next := c.emit(code.Jump, -1)
		c.patchAll(matched, c.pc())
		c.compileCompound(w.Body)
		done = append(done, c.emit(code.Jump, -1))
		c.patch(next)
	}
	c.compileCompound(ce.Else)
	c.patchAll(done, c.pc())
}

// compileBegin lowers begin/rescue/else/ensure. The ensure body is emitted
// twice: inline on the normal path and once more behind the handler that
// catches every other exit.
func (c *Compiler) compileBegin(b *ast.BeginExpression) {
	if b.Ensure == nil {
		c.compileRescue(b)
		return
	}
	mark := c.u.proto.NewMark()
	c.emit(code.Mark, mark)
	c.u.level++
	r := c.pushRegion(&region{kind: ensureRegion, mark: mark, ensure: b.Ensure, start: c.pc(), level: c.u.level})
	c.compileRescue(b)
	c.popRegion()
	c.closeRange(r)
	c.u.level--

	c.compileCompound(b.Ensure)
	c.emit(code.Pop)
	done := c.emit(code.Jump, -1)
	for _, h := range r.handlers {
		c.u.proto.Handlers[h].Target = c.pc()
	}
	c.compileCompound(b.Ensure)
	c.emit(code.Pop)
	c.emit(code.EnsureEnd, mark)
	c.patch(done)
}

func (c *Compiler) closeRange(r *region) {
	if r.start < 0 || r.start == c.pc() {
		r.start = -1
		return
	}
	c.u.proto.Handlers = append(c.u.proto.Handlers, code.Handler{
		Kind:  code.Ensure,
		Start: r.start,
		End:   c.pc(),
		Mark:  r.mark,
		Level: r.level,
	})
	r.handlers = append(r.handlers, len(c.u.proto.Handlers)-1)
	r.start = -1
}

func (c *Compiler) compileRescue(b *ast.BeginExpression) {
	if len(b.Rescues) == 0 {
		c.compileCompound(b.Body)
		if b.Else != nil {
			c.emit(code.Pop)
			c.compileCompound(b.Else)
		}
		return
	}

	mark := c.u.proto.NewMark()
	c.emit(code.Mark, mark)
	c.u.level++
	level := c.u.level
	start := c.pc()
	c.pushRegion(&region{kind: rescueRegion, mark: mark})
	c.compileCompound(b.Body)
	c.popRegion()
	end := c.pc()
	c.u.level--
	if b.Else != nil {
		c.emit(code.Pop)
		c.compileCompound(b.Else)
	}
	done := []int{c.emit(code.Jump, -1)}
	if end > start {
		c.u.proto.Handlers = append(c.u.proto.Handlers, code.Handler{
			Kind:   code.Rescue,
			Start:  start,
			End:    end,
			Target: c.pc(),
			Mark:   mark,
			Level:  level,
		})
	}

	c.pushRegion(&region{kind: rescueClauseRegion, mark: mark, retry: start})
	for _, clause := range b.Rescues {
		if clause.Token.Line > 0 {
			c.line = clause.Token.Line
		}
		c.emit(code.GetException, mark)
		if len(clause.Classes) == 0 {
			c.emit(code.GetConst, c.constant("StandardError"))
			c.emit(code.NewArray, 1)
		} else {
			c.compileList(clause.Classes)
		}
		c.emit(code.CheckMatch, code.MatchRescue)
		next := c.emit(code.BranchUnless, -1)
		if clause.Variable != nil {
			c.emit(code.GetException, mark)
			c.assign(clause.Variable)
		}
		c.compileCompound(clause.Body)
		done = append(done, c.emit(code.Jump, -1))
		c.patch(next)
	}
	c.popRegion()
	c.emit(code.Reraise, mark)
	c.patchAll(done, c.pc())
}

// crossed returns the regions of the current unit inside the innermost one
// that matches, innermost first, and that region. ok is false when none
// matches.
func (c *Compiler) crossed(match func(*region) bool) ([]*region, *region, bool) {
	regions := c.u.regions
	var out []*region
	for i := len(regions) - 1; i >= 0; i-- {
		if match(regions[i]) {
			return out, regions[i], true
		}
		out = append(out, regions[i])
	}
	return out, nil, false
}

// exitRegions runs the ensure bodies of the regions a local jump leaves, with
// their handler ranges split around the inlined code. emitJump emits the
// jump itself; the ranges reopen after it.
func (c *Compiler) exitRegions(regions []*region, emitJump func()) {
	var ensures []*region
	for _, r := range regions {
		if r.kind == ensureRegion {
			ensures = append(ensures, r)
		}
	}
	if len(ensures) == 0 {
		emitJump()
		return
	}
	// Each region's range closes before its own body is inlined, so an
	// exception there still reaches the regions outside it.
	all := c.u.regions
	for _, r := range ensures {
		c.closeRange(r)
		c.u.regions = all[:indexOf(all, r)]
		c.compileCompound(r.ensure)
		c.emit(code.Pop)
	}
	c.u.regions = all
	emitJump()
	for _, r := range ensures {
		r.start = c.pc()
	}
}

func indexOf(regions []*region, r *region) int {
	for i, x := range regions {
		if x == r {
			return i
		}
	}
	return len(regions)
}

func isLoop(r *region) bool { return r.kind == loopRegion }

func (c *Compiler) compileReturn(r *ast.ReturnExpression) {
	switch c.u.proto.Kind {
	case code.ClassUnit:
		c.fail(diag.SyntaxError, "Invalid return in class/module body")
		return
	case code.BlockUnit:
		c.compileOrNil(r.Value)
		c.emit(code.Throw, int(code.ThrowReturn))
		return
	}
	c.compileOrNil(r.Value)
	c.exitRegions(c.u.regions, func() { c.emit(code.Leave) })
}

func (c *Compiler) compileBreak(b *ast.BreakExpression) {
	regions, loop, ok := c.crossed(isLoop)
	c.compileOrNil(b.Value)
	switch {
	case ok:
		c.exitRegions(regions, func() {
			c.emit(code.Unwind, loop.mark, 1)
			loop.breaks = append(loop.breaks, c.emit(code.Jump, -1))
		})
	case c.u.proto.Kind == code.BlockUnit:
		c.emit(code.Throw, int(code.ThrowBreak))
	default:
		c.fail(diag.SyntaxError, "Invalid break")
	}
}

func (c *Compiler) compileNext(n *ast.NextExpression) {
	regions, loop, ok := c.crossed(isLoop)
	c.compileOrNil(n.Value)
	switch {
	case ok:
		c.emit(code.Pop)
		c.exitRegions(regions, func() {
			c.emit(code.Unwind, loop.mark, 0)
			loop.nexts = append(loop.nexts, c.emit(code.Jump, -1))
		})
	case c.u.proto.Kind == code.BlockUnit:
		c.exitRegions(regions, func() { c.emit(code.Leave) })
	default:
		c.fail(diag.SyntaxError, "Invalid next")
	}
}

func (c *Compiler) compileRedo() {
	regions, loop, ok := c.crossed(isLoop)
	switch {
	case ok:
		c.exitRegions(regions, func() {
			c.emit(code.Unwind, loop.mark, 0)
			c.emit(code.Jump, loop.redo)
		})
	case c.u.proto.Kind == code.BlockUnit:
		c.exitRegions(regions, func() {
			c.emit(code.Unwind, -1, 0)
			c.emit(code.Jump, c.u.bodyStart)
		})
	default:
		c.fail(diag.SyntaxError, "Invalid redo")
	}
}

func (c *Compiler) compileRetry() {
	regions, clause, ok := c.crossed(func(r *region) bool { return r.kind == rescueClauseRegion })
	if !ok {
		c.fail(diag.SyntaxError, "Invalid retry")
		return
	}
	c.exitRegions(regions, func() {
		c.emit(code.Unwind, clause.mark, 0)
		c.emit(code.Jump, clause.retry)
	})
}
