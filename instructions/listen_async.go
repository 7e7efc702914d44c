package instructions

import (
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/oac-tree/sequencer/anyvalue"
	"github.com/oac-tree/sequencer/attrs"
	"github.com/oac-tree/sequencer/instruction"
	"github.com/oac-tree/sequencer/workspace"
)

// Listen re-ticks its child once per change to any variable named in
// varNames, until the child fails (unless forceSuccess is set, in which
// case a child failure is absorbed and listening continues) or it is
// halted.
type Listen struct {
	*instruction.Base
	singleChild
	names        []string
	forceSuccess bool
	changed      chan struct{}
	guard        *workspace.CallbackGuard
}

func NewListen(children ...instruction.Instruction) *Listen {
	l := &Listen{changed: make(chan struct{}, 1)}
	l.Base = instruction.NewBase(l, "Listen", instruction.Decorator, instruction.Hooks{
		Init:       l.init,
		Execute:    l.execute,
		Halt:       l.haltChild,
		ResetHook:  l.resetChild,
		NextLeaves: l.nextLeaves,
	})
	l.singleChild = singleChild{l.Base}
	l.Attributes().Define("varNames", attrs.Definition{Mandatory: true, Category: attrs.Literal})
	l.Attributes().Define("forceSuccess", attrs.Definition{Category: attrs.Literal, Type: "bool"})
	l.SetConstraints(attrs.Exists("varNames"))
	for _, c := range children {
		_ = l.AddChild(c)
	}
	return l
}

func (l *Listen) init(ui instruction.UI, ws *workspace.Workspace) bool {
	raw, _ := l.Attributes().Raw("varNames")
	l.names = splitTrim(raw, ",")
	if raw2, ok := l.Attributes().Raw("forceSuccess"); ok {
		b, err := strconv.ParseBool(raw2)
		if err != nil {
			if ui != nil {
				ui.Log(instruction.SeverityError, "Listen: forceSuccess attribute: "+err.Error())
			}
			return false
		}
		l.forceSuccess = b
	}
	l.guard = ws.CallbackGuard(l)
	for _, name := range l.names {
		ws.RegisterCallback(l, name, func(n string, v anyvalue.Value, connected bool) {
			select {
			case l.changed <- struct{}{}:
			default:
			}
		})
	}
	return true
}

func (l *Listen) execute(ui instruction.UI, ws *workspace.Workspace) instruction.Status {
	c := l.child()
	if c == nil {
		return instruction.Failure
	}
	select {
	case <-l.changed:
	case <-l.HaltSignal():
		return instruction.Failure
	}
	if l.Halted() {
		return instruction.Failure
	}
	status := c.ExecuteSingle(ui, ws)
	switch status {
	case instruction.Success:
		c.Reset(ui)
		return instruction.NotFinished
	case instruction.Failure:
		if l.forceSuccess {
			c.Reset(ui)
			return instruction.NotFinished
		}
		return instruction.Failure
	default:
		return status
	}
}

func (l *Listen) haltChild() {
	if l.guard != nil {
		l.guard.Release()
	}
	if c := l.child(); c != nil {
		c.Halt()
	}
}

func (l *Listen) resetChild(ui instruction.UI) {
	if l.guard != nil {
		l.guard.Release()
		l.guard = nil
	}
	if c := l.child(); c != nil {
		c.Reset(ui)
	}
}

func (l *Listen) nextLeaves() []instruction.Instruction {
	if c := l.child(); c != nil {
		return c.NextInstructions()
	}
	return nil
}

func splitTrim(s, sep string) []string {
	var out []string
	for _, part := range strings.Split(s, sep) {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Async dispatches its child onto a dedicated worker goroutine the first
// time it is ticked, reporting RUNNING to the caller until the child
// finishes. Halting before the child finishes forces FAILURE.
type Async struct {
	*instruction.Base
	singleChild

	mu         sync.Mutex
	dispatched bool
	result     instruction.Status
}

func NewAsync(children ...instruction.Instruction) *Async {
	a := &Async{}
	a.Base = instruction.NewBase(a, "Async", instruction.Decorator, instruction.Hooks{
		Execute:    a.execute,
		Halt:       a.haltChild,
		ResetHook:  a.resetChild,
		NextLeaves: a.nextLeaves,
	})
	a.singleChild = singleChild{a.Base}
	for _, c := range children {
		_ = a.AddChild(c)
	}
	return a
}

func (a *Async) execute(ui instruction.UI, ws *workspace.Workspace) instruction.Status {
	a.mu.Lock()
	if a.dispatched {
		result := a.result
		a.mu.Unlock()
		return result
	}
	c := a.child()
	if c == nil {
		a.mu.Unlock()
		return instruction.Failure
	}
	a.dispatched = true
	a.result = instruction.Running
	a.mu.Unlock()

	go func() {
		status := instruction.NotFinished
		for {
			status = c.ExecuteSingle(ui, ws)
			if status.IsFinished() {
				break
			}
			if a.Halted() {
				status = instruction.Failure
				break
			}
			time.Sleep(time.Millisecond)
		}
		a.mu.Lock()
		a.result = status
		a.mu.Unlock()
	}()

	return instruction.Running
}

func (a *Async) haltChild() {
	if c := a.child(); c != nil {
		c.Halt()
	}
}

func (a *Async) resetChild(ui instruction.UI) {
	if c := a.child(); c != nil {
		c.Reset(ui)
	}
	a.mu.Lock()
	a.dispatched = false
	a.result = instruction.NotStarted
	a.mu.Unlock()
}

func (a *Async) nextLeaves() []instruction.Instruction {
	if c := a.child(); c != nil {
		return c.NextInstructions()
	}
	return nil
}
