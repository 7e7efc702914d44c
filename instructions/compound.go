package instructions

import (
	"github.com/oac-tree/sequencer/attrs"
	"github.com/oac-tree/sequencer/instruction"
	"github.com/oac-tree/sequencer/workspace"
)

// multiChild is embedded by every Compound implementation for the
// halt-all/reset-all/next-leaves boilerplate they share.
type multiChild struct{ base *instruction.Base }

func (m multiChild) haltAll() {
	for _, c := range m.base.Children() {
		c.Halt()
	}
}

func (m multiChild) resetAll(ui instruction.UI) {
	for _, c := range m.base.Children() {
		c.Reset(ui)
	}
}

// firstUnfinishedLeaves returns the next leaves of the first not-yet-
// finished child, for ordered compounds (Sequence, Fallback,
// ReactiveSequence, ReactiveFallback).
func firstUnfinishedLeaves(children []instruction.Instruction) []instruction.Instruction {
	for _, c := range children {
		if !c.Status().IsFinished() {
			return c.NextInstructions()
		}
	}
	return nil
}

// Sequence ticks its children in order, stopping at the first that is not
// SUCCESS; it succeeds only once every child has succeeded.
type Sequence struct {
	*instruction.Base
	multiChild
}

func NewSequence(children ...instruction.Instruction) *Sequence {
	s := &Sequence{}
	s.Base = instruction.NewBase(s, "Sequence", instruction.Compound, instruction.Hooks{
		Execute:    s.execute,
		Halt:       s.haltAll,
		ResetHook:  s.resetAll,
		NextLeaves: s.nextLeaves,
	})
	s.multiChild = multiChild{s.Base}
	for _, c := range children {
		_ = s.AddChild(c)
	}
	return s
}

func (s *Sequence) execute(ui instruction.UI, ws *workspace.Workspace) instruction.Status {
	for _, c := range s.Children() {
		if c.Status().IsFinished() {
			if c.Status() != instruction.Success {
				return c.Status()
			}
			continue
		}
		if status := c.ExecuteSingle(ui, ws); status != instruction.Success {
			return status
		}
	}
	return instruction.Success
}

func (s *Sequence) nextLeaves() []instruction.Instruction {
	return firstUnfinishedLeaves(s.Children())
}

// Fallback ticks its children in order, stopping at the first that is not
// FAILURE; it fails only once every child has failed.
type Fallback struct {
	*instruction.Base
	multiChild
}

func NewFallback(children ...instruction.Instruction) *Fallback {
	f := &Fallback{}
	f.Base = instruction.NewBase(f, "Fallback", instruction.Compound, instruction.Hooks{
		Execute:    f.execute,
		Halt:       f.haltAll,
		ResetHook:  f.resetAll,
		NextLeaves: f.nextLeaves,
	})
	f.multiChild = multiChild{f.Base}
	for _, c := range children {
		_ = f.AddChild(c)
	}
	return f
}

func (f *Fallback) execute(ui instruction.UI, ws *workspace.Workspace) instruction.Status {
	for _, c := range f.Children() {
		if c.Status().IsFinished() {
			if c.Status() != instruction.Failure {
				return c.Status()
			}
			continue
		}
		if status := c.ExecuteSingle(ui, ws); status != instruction.Failure {
			return status
		}
	}
	return instruction.Failure
}

func (f *Fallback) nextLeaves() []instruction.Instruction {
	return firstUnfinishedLeaves(f.Children())
}

// ReactiveSequence re-ticks every already-succeeded child from the start on
// every activation (resetting each first), so a guard that later turns
// false aborts the sequence even after a later child started running; the
// still-in-flight child is ticked without being reset.
type ReactiveSequence struct {
	*instruction.Base
	multiChild
}

func NewReactiveSequence(children ...instruction.Instruction) *ReactiveSequence {
	r := &ReactiveSequence{}
	r.Base = instruction.NewBase(r, "ReactiveSequence", instruction.Compound, instruction.Hooks{
		Execute:    r.execute,
		Halt:       r.haltAll,
		ResetHook:  r.resetAll,
		NextLeaves: r.nextLeaves,
	})
	r.multiChild = multiChild{r.Base}
	for _, c := range children {
		_ = r.AddChild(c)
	}
	return r
}

func (r *ReactiveSequence) execute(ui instruction.UI, ws *workspace.Workspace) instruction.Status {
	for _, c := range r.Children() {
		if c.Status().IsFinished() {
			c.Reset(ui)
		}
		status := c.ExecuteSingle(ui, ws)
		if status != instruction.Success {
			return status
		}
	}
	return instruction.Success
}

func (r *ReactiveSequence) nextLeaves() []instruction.Instruction {
	return firstUnfinishedLeaves(r.Children())
}

// ReactiveFallback mirrors ReactiveSequence for the FAILURE case.
type ReactiveFallback struct {
	*instruction.Base
	multiChild
}

func NewReactiveFallback(children ...instruction.Instruction) *ReactiveFallback {
	r := &ReactiveFallback{}
	r.Base = instruction.NewBase(r, "ReactiveFallback", instruction.Compound, instruction.Hooks{
		Execute:    r.execute,
		Halt:       r.haltAll,
		ResetHook:  r.resetAll,
		NextLeaves: r.nextLeaves,
	})
	r.multiChild = multiChild{r.Base}
	for _, c := range children {
		_ = r.AddChild(c)
	}
	return r
}

func (r *ReactiveFallback) execute(ui instruction.UI, ws *workspace.Workspace) instruction.Status {
	for _, c := range r.Children() {
		if c.Status().IsFinished() {
			c.Reset(ui)
		}
		status := c.ExecuteSingle(ui, ws)
		if status != instruction.Failure {
			return status
		}
	}
	return instruction.Failure
}

func (r *ReactiveFallback) nextLeaves() []instruction.Instruction {
	return firstUnfinishedLeaves(r.Children())
}

// ParallelSequence ticks every not-yet-finished child concurrently on every
// activation, succeeding once successThreshold children have succeeded and
// failing once failureThreshold have failed.
type ParallelSequence struct {
	*instruction.Base
	multiChild
	successThreshold int
	failureThreshold int
}

func NewParallelSequence(children ...instruction.Instruction) *ParallelSequence {
	p := &ParallelSequence{}
	p.Base = instruction.NewBase(p, "ParallelSequence", instruction.Compound, instruction.Hooks{
		Init:       p.init,
		Execute:    p.execute,
		Halt:       p.haltAll,
		ResetHook:  p.resetAll,
		NextLeaves: p.nextLeaves,
	})
	p.multiChild = multiChild{p.Base}
	p.Attributes().Define("successThreshold", attrs.Definition{Mandatory: true, Category: attrs.Literal, Type: "int"})
	p.Attributes().Define("failureThreshold", attrs.Definition{Mandatory: true, Category: attrs.Literal, Type: "int"})
	p.SetConstraints(attrs.Exists("successThreshold"), attrs.Exists("failureThreshold"))
	for _, c := range children {
		_ = p.AddChild(c)
	}
	return p
}

func (p *ParallelSequence) init(ui instruction.UI, ws *workspace.Workspace) bool {
	s, ok1 := p.GetAttributeValueAsIndex("successThreshold", ws, ui)
	f, ok2 := p.GetAttributeValueAsIndex("failureThreshold", ws, ui)
	if !ok1 || !ok2 {
		return false
	}
	p.successThreshold = s
	p.failureThreshold = f
	return true
}

func (p *ParallelSequence) execute(ui instruction.UI, ws *workspace.Workspace) instruction.Status {
	children := p.Children()
	done := make(chan struct{}, len(children))
	runnable := 0
	for _, c := range children {
		if c.Status().IsFinished() {
			continue
		}
		runnable++
		go func(c instruction.Instruction) {
			c.ExecuteSingle(ui, ws)
			done <- struct{}{}
		}(c)
	}
	for i := 0; i < runnable; i++ {
		<-done
	}

	successes, failures := 0, 0
	for _, c := range children {
		switch c.Status() {
		case instruction.Success:
			successes++
		case instruction.Failure:
			failures++
		}
	}
	if successes >= p.successThreshold {
		return instruction.Success
	}
	if failures >= p.failureThreshold {
		return instruction.Failure
	}
	return instruction.NotFinished
}

func (p *ParallelSequence) nextLeaves() []instruction.Instruction {
	var out []instruction.Instruction
	for _, c := range p.Children() {
		if !c.Status().IsFinished() {
			out = append(out, c.NextInstructions()...)
		}
	}
	return out
}
