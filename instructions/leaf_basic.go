// Package instructions implements the standard instruction library from
// the Action leaves, Decorators, and Compound nodes built on top
// of package instruction's Base/Hooks. Every constructor wires a *Base via
// instruction.NewBase(self, ...) so UI notifications and jobinfo's
// pointer-keyed maps see the concrete instruction, not a bare Base.
package instructions

import (
	"fmt"

	"github.com/oac-tree/sequencer/attrs"
	"github.com/oac-tree/sequencer/instruction"
	"github.com/oac-tree/sequencer/workspace"
)

// Wait suspends the tick for up to its timeout attribute, polling its own
// halt signal in coarse chunks rather than blocking uninterruptibly.
type Wait struct {
	*instruction.Base
	timeoutSeconds float64
}

func NewWait() *Wait {
	w := &Wait{}
	w.Base = instruction.NewBase(w, "Wait", instruction.Action, instruction.Hooks{
		Init:    w.init,
		Execute: w.execute,
	})
	w.Attributes().Define("timeout", attrs.Definition{Type: "float64", Category: attrs.Both})
	return w
}

func (w *Wait) init(ui instruction.UI, ws *workspace.Workspace) bool {
	seconds, ok := w.GetAttributeValueAsFloat("timeout", ws, ui)
	if !ok {
		return false
	}
	w.timeoutSeconds = seconds
	return true
}

func (w *Wait) execute(ui instruction.UI, ws *workspace.Workspace) instruction.Status {
	return waitOut(w.timeoutSeconds, w.HaltSignal())
}

// Condition reads a boolean variable and succeeds iff it converts to true.
type Condition struct{ *instruction.Base }

func NewCondition() *Condition {
	c := &Condition{}
	c.Base = instruction.NewBase(c, "Condition", instruction.Action, instruction.Hooks{Execute: c.execute})
	c.Attributes().Define("varName", attrs.Definition{Mandatory: true, Category: attrs.VariableName})
	c.SetConstraints(attrs.Exists("varName"))
	return c
}

func (c *Condition) execute(ui instruction.UI, ws *workspace.Workspace) instruction.Status {
	v, ok := c.GetAttributeValue("varName", ws, ui)
	if !ok {
		return instruction.Failure
	}
	b, err := v.ToBool()
	if err != nil {
		logFailure(ui, "Condition", err)
		return instruction.Failure
	}
	if b {
		return instruction.Success
	}
	return instruction.Failure
}

// Copy reads inputVar and writes it to outputVar.
type Copy struct{ *instruction.Base }

func NewCopy() *Copy {
	c := &Copy{}
	c.Base = instruction.NewBase(c, "Copy", instruction.Action, instruction.Hooks{Execute: c.execute})
	c.Attributes().Define("inputVar", attrs.Definition{Mandatory: true, Category: attrs.VariableName})
	c.Attributes().Define("outputVar", attrs.Definition{Mandatory: true, Category: attrs.VariableName})
	c.SetConstraints(attrs.Exists("inputVar"), attrs.Exists("outputVar"))
	return c
}

func (c *Copy) execute(ui instruction.UI, ws *workspace.Workspace) instruction.Status {
	v, ok := c.GetAttributeValue("inputVar", ws, ui)
	if !ok {
		return instruction.Failure
	}
	outPath, _ := c.AttributePath("outputVar")
	if err := ws.SetValue(outPath, v); err != nil {
		logFailure(ui, "Copy", err)
		return instruction.Failure
	}
	return instruction.Success
}

// compareOp identifies which relational operator a Compare instruction
// applies to its two resolved operands.
type compareOp int

const (
	opEquals compareOp = iota
	opLess
	opLessEq
	opGreater
	opGreaterEq
)

// Compare is the shared implementation behind Equals/LessThan/
// LessThanOrEqual/GreaterThan/GreaterThanOrEqual: each reads
// leftVar and rightVar and applies one comparison.
type Compare struct {
	*instruction.Base
	op compareOp
}

func newCompare(typeName string, op compareOp) *Compare {
	c := &Compare{op: op}
	c.Base = instruction.NewBase(c, typeName, instruction.Action, instruction.Hooks{Execute: c.execute})
	c.Attributes().Define("leftVar", attrs.Definition{Mandatory: true, Category: attrs.VariableName})
	c.Attributes().Define("rightVar", attrs.Definition{Mandatory: true, Category: attrs.VariableName})
	c.SetConstraints(attrs.Exists("leftVar"), attrs.Exists("rightVar"))
	return c
}

func NewEquals() *Compare             { return newCompare("Equals", opEquals) }
func NewLessThan() *Compare           { return newCompare("LessThan", opLess) }
func NewLessThanOrEqual() *Compare    { return newCompare("LessThanOrEqual", opLessEq) }
func NewGreaterThan() *Compare        { return newCompare("GreaterThan", opGreater) }
func NewGreaterThanOrEqual() *Compare { return newCompare("GreaterThanOrEqual", opGreaterEq) }

func (c *Compare) execute(ui instruction.UI, ws *workspace.Workspace) instruction.Status {
	left, ok := c.GetAttributeValue("leftVar", ws, ui)
	if !ok {
		return instruction.Failure
	}
	right, ok := c.GetAttributeValue("rightVar", ws, ui)
	if !ok {
		return instruction.Failure
	}
	if c.op == opEquals {
		if left.Equal(right) {
			return instruction.Success
		}
		return instruction.Failure
	}
	cmp, err := left.Compare(right)
	if err != nil {
		logFailure(ui, c.TypeName(), err)
		return instruction.Failure
	}
	var ok2 bool
	switch c.op {
	case opLess:
		ok2 = cmp < 0
	case opLessEq:
		ok2 = cmp <= 0
	case opGreater:
		ok2 = cmp > 0
	case opGreaterEq:
		ok2 = cmp >= 0
	}
	if ok2 {
		return instruction.Success
	}
	return instruction.Failure
}

// Delta is the shared implementation behind Increment/Decrement.
type Delta struct {
	*instruction.Base
	delta float64
}

func newDelta(typeName string, delta float64) *Delta {
	d := &Delta{delta: delta}
	d.Base = instruction.NewBase(d, typeName, instruction.Action, instruction.Hooks{Execute: d.execute})
	d.Attributes().Define("varName", attrs.Definition{Mandatory: true, Category: attrs.VariableName})
	d.SetConstraints(attrs.Exists("varName"))
	return d
}

func NewIncrement() *Delta { return newDelta("Increment", 1) }
func NewDecrement() *Delta { return newDelta("Decrement", -1) }

func (d *Delta) execute(ui instruction.UI, ws *workspace.Workspace) instruction.Status {
	path, _ := d.AttributePath("varName")
	current, err := ws.GetValue(path)
	if err != nil {
		logFailure(ui, d.TypeName(), err)
		return instruction.Failure
	}
	next, err := current.Increment(d.delta)
	if err != nil {
		logFailure(ui, d.TypeName(), err)
		return instruction.Failure
	}
	if err := ws.SetValue(path, next); err != nil {
		logFailure(ui, d.TypeName(), err)
		return instruction.Failure
	}
	return instruction.Success
}

// ResetVariable clears the named variable's stored value, so a subsequent
// read of it fails until something writes to it again.
type ResetVariable struct{ *instruction.Base }

func NewResetVariable() *ResetVariable {
	r := &ResetVariable{}
	r.Base = instruction.NewBase(r, "ResetVariable", instruction.Action, instruction.Hooks{Execute: r.execute})
	r.Attributes().Define("varName", attrs.Definition{Mandatory: true, Category: attrs.VariableName})
	r.SetConstraints(attrs.Exists("varName"))
	return r
}

func (r *ResetVariable) execute(ui instruction.UI, ws *workspace.Workspace) instruction.Status {
	path, _ := r.AttributePath("varName")
	name, _ := workspace.SplitFieldName(path)
	v, ok := ws.Variable(name)
	if !ok {
		logFailure(ui, "ResetVariable", fmt.Errorf("unknown variable %q", name))
		return instruction.Failure
	}
	v.Clear()
	return instruction.Success
}

// VarExists succeeds iff its varName path resolves to a readable value.
type VarExists struct{ *instruction.Base }

func NewVarExists() *VarExists {
	v := &VarExists{}
	v.Base = instruction.NewBase(v, "VarExists", instruction.Action, instruction.Hooks{Execute: v.execute})
	v.Attributes().Define("varName", attrs.Definition{Mandatory: true, Category: attrs.VariableName})
	v.SetConstraints(attrs.Exists("varName"))
	return v
}

func (v *VarExists) execute(ui instruction.UI, ws *workspace.Workspace) instruction.Status {
	path, _ := v.AttributePath("varName")
	if ws.PathExists(path) {
		return instruction.Success
	}
	return instruction.Failure
}

// Succeed and Fail are the fixed-outcome leaves used to terminate a branch
// deliberately (e.g. the non-matching arm of a Fallback).
type Succeed struct{ *instruction.Base }

func NewSucceed() *Succeed {
	s := &Succeed{}
	s.Base = instruction.NewBase(s, "Succeed", instruction.Action, instruction.Hooks{
		Execute: func(ui instruction.UI, ws *workspace.Workspace) instruction.Status { return instruction.Success },
	})
	return s
}

type Fail struct{ *instruction.Base }

func NewFail() *Fail {
	f := &Fail{}
	f.Base = instruction.NewBase(f, "Fail", instruction.Action, instruction.Hooks{
		Execute: func(ui instruction.UI, ws *workspace.Workspace) instruction.Status { return instruction.Failure },
	})
	return f
}

func logFailure(ui instruction.UI, typeName string, err error) {
	if ui == nil {
		return
	}
	ui.Log(instruction.SeverityError, fmt.Sprintf("%s: %v", typeName, err))
}
