package instructions

import (
	"github.com/oac-tree/sequencer/anyvalue"
	"github.com/oac-tree/sequencer/attrs"
	"github.com/oac-tree/sequencer/instruction"
	"github.com/oac-tree/sequencer/workspace"
)

// singleChild is embedded by every Decorator implementation for the
// child-lookup boilerplate every one of them needs.
type singleChild struct{ base *instruction.Base }

func (s singleChild) child() instruction.Instruction {
	children := s.base.Children()
	if len(children) == 0 {
		return nil
	}
	return children[0]
}

// Inverter swaps its child's SUCCESS/FAILURE outcome, passing RUNNING/
// NOT_FINISHED through unchanged.
type Inverter struct {
	*instruction.Base
	singleChild
}

// NewInverter accepts zero children (for registry-driven construction,
// where AddChild is called afterwards) or one.
func NewInverter(children ...instruction.Instruction) *Inverter {
	inv := &Inverter{}
	inv.Base = instruction.NewBase(inv, "Inverter", instruction.Decorator, instruction.Hooks{
		Execute:    inv.execute,
		Halt:       inv.haltChild,
		ResetHook:  inv.resetChild,
		NextLeaves: inv.nextLeaves,
	})
	inv.singleChild = singleChild{inv.Base}
	for _, c := range children {
		_ = inv.AddChild(c)
	}
	return inv
}

func (inv *Inverter) execute(ui instruction.UI, ws *workspace.Workspace) instruction.Status {
	c := inv.child()
	if c == nil {
		return instruction.Failure
	}
	switch status := c.ExecuteSingle(ui, ws); status {
	case instruction.Success:
		return instruction.Failure
	case instruction.Failure:
		return instruction.Success
	default:
		return status
	}
}

func (inv *Inverter) haltChild() {
	if c := inv.child(); c != nil {
		c.Halt()
	}
}

func (inv *Inverter) resetChild(ui instruction.UI) {
	if c := inv.child(); c != nil {
		c.Reset(ui)
	}
}

func (inv *Inverter) nextLeaves() []instruction.Instruction {
	if c := inv.child(); c != nil {
		return c.NextInstructions()
	}
	return nil
}

// ForceSuccess remaps its child's FAILURE to SUCCESS, passing SUCCESS/
// RUNNING/NOT_FINISHED through unchanged.
type ForceSuccess struct {
	*instruction.Base
	singleChild
}

func NewForceSuccess(children ...instruction.Instruction) *ForceSuccess {
	f := &ForceSuccess{}
	f.Base = instruction.NewBase(f, "ForceSuccess", instruction.Decorator, instruction.Hooks{
		Execute:    f.execute,
		Halt:       f.haltChild,
		ResetHook:  f.resetChild,
		NextLeaves: f.nextLeaves,
	})
	f.singleChild = singleChild{f.Base}
	for _, c := range children {
		_ = f.AddChild(c)
	}
	return f
}

func (f *ForceSuccess) execute(ui instruction.UI, ws *workspace.Workspace) instruction.Status {
	c := f.child()
	if c == nil {
		return instruction.Failure
	}
	status := c.ExecuteSingle(ui, ws)
	if status == instruction.Failure {
		return instruction.Success
	}
	return status
}

func (f *ForceSuccess) haltChild() {
	if c := f.child(); c != nil {
		c.Halt()
	}
}

func (f *ForceSuccess) resetChild(ui instruction.UI) {
	if c := f.child(); c != nil {
		c.Reset(ui)
	}
}

func (f *ForceSuccess) nextLeaves() []instruction.Instruction {
	if c := f.child(); c != nil {
		return c.NextInstructions()
	}
	return nil
}

// Repeat re-ticks its child up to maxCount successes (maxCount < 0 means
// unbounded, absent maxCount also means unbounded, maxCount == 0 means
// immediate SUCCESS without ticking the child at all). A child FAILURE
// aborts immediately.
type Repeat struct {
	*instruction.Base
	singleChild
	maxCount int
	count    int
}

func NewRepeat(children ...instruction.Instruction) *Repeat {
	r := &Repeat{maxCount: -1}
	r.Base = instruction.NewBase(r, "Repeat", instruction.Decorator, instruction.Hooks{
		Init:       r.init,
		Execute:    r.execute,
		Halt:       r.haltChild,
		ResetHook:  r.resetChild,
		NextLeaves: r.nextLeaves,
	})
	r.singleChild = singleChild{r.Base}
	r.Attributes().Define("maxCount", attrs.Definition{Category: attrs.Both, Type: "int"})
	for _, c := range children {
		_ = r.AddChild(c)
	}
	return r
}

func (r *Repeat) init(ui instruction.UI, ws *workspace.Workspace) bool {
	r.count = 0
	if !r.Attributes().Has("maxCount") {
		r.maxCount = -1
		return true
	}
	idx, ok := r.GetAttributeValueAsIndex("maxCount", ws, ui)
	if !ok {
		return false
	}
	r.maxCount = idx
	return true
}

func (r *Repeat) execute(ui instruction.UI, ws *workspace.Workspace) instruction.Status {
	if r.maxCount == 0 {
		return instruction.Success
	}
	c := r.child()
	if c == nil {
		return instruction.Failure
	}
	status := c.ExecuteSingle(ui, ws)
	switch status {
	case instruction.Success:
		r.count++
		if r.maxCount >= 0 && r.count >= r.maxCount {
			return instruction.Success
		}
		c.Reset(ui)
		return instruction.NotFinished
	case instruction.Failure:
		return instruction.Failure
	default:
		return status
	}
}

func (r *Repeat) haltChild() {
	if c := r.child(); c != nil {
		c.Halt()
	}
}

func (r *Repeat) resetChild(ui instruction.UI) {
	if c := r.child(); c != nil {
		c.Reset(ui)
	}
	r.count = 0
}

func (r *Repeat) nextLeaves() []instruction.Instruction {
	if c := r.child(); c != nil {
		return c.NextInstructions()
	}
	return nil
}

// For iterates arrayVar, assigning each element to elementVar and ticking
// its child to completion before advancing; a child FAILURE aborts the loop.
type For struct {
	*instruction.Base
	singleChild
	items []anyvalue.Value
	index int
}

func NewFor(children ...instruction.Instruction) *For {
	f := &For{}
	f.Base = instruction.NewBase(f, "For", instruction.Decorator, instruction.Hooks{
		Init:       f.init,
		Execute:    f.execute,
		Halt:       f.haltChild,
		ResetHook:  f.resetChild,
		NextLeaves: f.nextLeaves,
	})
	f.singleChild = singleChild{f.Base}
	f.Attributes().Define("elementVar", attrs.Definition{Mandatory: true, Category: attrs.VariableName})
	f.Attributes().Define("arrayVar", attrs.Definition{Mandatory: true, Category: attrs.VariableName})
	f.SetConstraints(attrs.Exists("elementVar"), attrs.Exists("arrayVar"))
	for _, c := range children {
		_ = f.AddChild(c)
	}
	return f
}

func (f *For) init(ui instruction.UI, ws *workspace.Workspace) bool {
	arr, ok := f.GetAttributeValue("arrayVar", ws, ui)
	if !ok {
		return false
	}
	raw, ok2 := arr.AsInterface().([]any)
	if !ok2 {
		if ui != nil {
			ui.Log(instruction.SeverityError, "For: arrayVar is not an array")
		}
		return false
	}
	items := make([]anyvalue.Value, len(raw))
	for i, it := range raw {
		v, err := anyvalue.New("", it)
		if err != nil {
			if ui != nil {
				ui.Log(instruction.SeverityError, "For: "+err.Error())
			}
			return false
		}
		items[i] = v
	}
	f.items = items
	f.index = 0
	return true
}

func (f *For) execute(ui instruction.UI, ws *workspace.Workspace) instruction.Status {
	if f.index >= len(f.items) {
		return instruction.Success
	}
	elementPath, _ := f.AttributePath("elementVar")
	if err := ws.SetValue(elementPath, f.items[f.index]); err != nil {
		logFailure(ui, "For", err)
		return instruction.Failure
	}
	c := f.child()
	if c == nil {
		return instruction.Failure
	}
	status := c.ExecuteSingle(ui, ws)
	switch status {
	case instruction.Failure:
		return instruction.Failure
	case instruction.Success:
		f.index++
		c.Reset(ui)
		if f.index >= len(f.items) {
			return instruction.Success
		}
		return instruction.NotFinished
	default:
		return status
	}
}

func (f *For) haltChild() {
	if c := f.child(); c != nil {
		c.Halt()
	}
}

func (f *For) resetChild(ui instruction.UI) {
	if c := f.child(); c != nil {
		c.Reset(ui)
	}
	f.items = nil
	f.index = 0
}

func (f *For) nextLeaves() []instruction.Instruction {
	if c := f.child(); c != nil {
		return c.NextInstructions()
	}
	return nil
}
