package instructions

import (
	"fmt"

	"github.com/oac-tree/sequencer/anyvalue"
	"github.com/oac-tree/sequencer/attrs"
	"github.com/oac-tree/sequencer/instruction"
	"github.com/oac-tree/sequencer/workspace"
)

// Choice resolves varName to an index or array of indices, once at Init,
// and ticks the corresponding children in that order to completion; any
// non-SUCCESS child status ends the instruction with that status.
type Choice struct {
	*instruction.Base
	multiChild
	selected []int
}

func NewChoice(children ...instruction.Instruction) *Choice {
	c := &Choice{}
	c.Base = instruction.NewBase(c, "Choice", instruction.Compound, instruction.Hooks{
		Init:       c.init,
		Execute:    c.execute,
		Halt:       c.haltAll,
		ResetHook:  c.resetAll,
		NextLeaves: c.nextLeaves,
	})
	c.multiChild = multiChild{c.Base}
	c.Attributes().Define("varName", attrs.Definition{Mandatory: true, Category: attrs.VariableName})
	c.SetConstraints(attrs.Exists("varName"))
	for _, ch := range children {
		_ = c.AddChild(ch)
	}
	return c
}

func (c *Choice) init(ui instruction.UI, ws *workspace.Workspace) bool {
	v, ok := c.GetAttributeValue("varName", ws, ui)
	if !ok {
		return false
	}
	indices, err := v.ToIndices()
	if err != nil {
		if ui != nil {
			ui.Log(instruction.SeverityError, "Choice: "+err.Error())
		}
		return false
	}
	c.selected = indices
	return true
}

func (c *Choice) execute(ui instruction.UI, ws *workspace.Workspace) instruction.Status {
	children := c.Children()
	for _, idx := range c.selected {
		if idx < 0 || idx >= len(children) {
			logFailure(ui, "Choice", fmt.Errorf("index %d out of range", idx))
			return instruction.Failure
		}
		child := children[idx]
		if child.Status().IsFinished() {
			if child.Status() != instruction.Success {
				return child.Status()
			}
			continue
		}
		if status := child.ExecuteSingle(ui, ws); status != instruction.Success {
			return status
		}
	}
	return instruction.Success
}

func (c *Choice) nextLeaves() []instruction.Instruction {
	children := c.Children()
	for _, idx := range c.selected {
		if idx < 0 || idx >= len(children) {
			continue
		}
		if !children[idx].Status().IsFinished() {
			return children[idx].NextInstructions()
		}
	}
	return nil
}

// UserChoice asks the host UI to pick one child at Init, offering each as
// "name (Type)", or just its type name when it has no name, then ticks
// only that child on every subsequent activation.
type UserChoice struct {
	*instruction.Base
	multiChild
	picked int
}

func NewUserChoice(children ...instruction.Instruction) *UserChoice {
	u := &UserChoice{picked: -1}
	u.Base = instruction.NewBase(u, "UserChoice", instruction.Compound, instruction.Hooks{
		Init:       u.init,
		Execute:    u.execute,
		Halt:       u.haltPicked,
		ResetHook:  u.resetAll2,
		NextLeaves: u.nextLeaves,
	})
	u.multiChild = multiChild{u.Base}
	u.Attributes().Define("description", attrs.Definition{Mandatory: true, Category: attrs.Literal})
	u.SetConstraints(attrs.Exists("description"))
	for _, c := range children {
		_ = u.AddChild(c)
	}
	return u
}

func (u *UserChoice) init(ui instruction.UI, ws *workspace.Workspace) bool {
	description, _ := u.Attributes().Raw("description")
	options := make([]string, 0, len(u.Children()))
	for _, c := range u.Children() {
		label := c.TypeName()
		if name, ok := c.Attributes().Raw("name"); ok && name != "" {
			label = name + " (" + label + ")"
		}
		options = append(options, label)
	}
	if ui == nil {
		return false
	}
	idx, ok := ui.RequestUserChoice(options, anyvalue.NewString(description))
	if !ok {
		return false
	}
	u.picked = idx
	return true
}

func (u *UserChoice) execute(ui instruction.UI, ws *workspace.Workspace) instruction.Status {
	children := u.Children()
	if u.picked < 0 || u.picked >= len(children) {
		return instruction.Failure
	}
	return children[u.picked].ExecuteSingle(ui, ws)
}

func (u *UserChoice) haltPicked() {
	children := u.Children()
	if u.picked >= 0 && u.picked < len(children) {
		children[u.picked].Halt()
	}
}

func (u *UserChoice) resetAll2(ui instruction.UI) {
	u.resetAll(ui)
	u.picked = -1
}

func (u *UserChoice) nextLeaves() []instruction.Instruction {
	children := u.Children()
	if u.picked >= 0 && u.picked < len(children) {
		return children[u.picked].NextInstructions()
	}
	return nil
}

// UserConfirmation is a two-option yes/no prompt: it has no children, and
// succeeds iff the user picks the Ok option.
type UserConfirmation struct{ *instruction.Base }

func NewUserConfirmation() *UserConfirmation {
	u := &UserConfirmation{}
	u.Base = instruction.NewBase(u, "UserConfirmation", instruction.Action, instruction.Hooks{Execute: u.execute})
	u.Attributes().Define("description", attrs.Definition{Mandatory: true, Category: attrs.Literal})
	u.Attributes().Define("okText", attrs.Definition{Category: attrs.Literal})
	u.Attributes().Define("cancelText", attrs.Definition{Category: attrs.Literal})
	u.SetConstraints(attrs.Exists("description"))
	return u
}

func (u *UserConfirmation) execute(ui instruction.UI, ws *workspace.Workspace) instruction.Status {
	description, _ := u.Attributes().Raw("description")
	okText, hasOk := u.Attributes().Raw("okText")
	if !hasOk {
		okText = "Ok"
	}
	cancelText, hasCancel := u.Attributes().Raw("cancelText")
	if !hasCancel {
		cancelText = "Cancel"
	}
	if ui == nil {
		return instruction.Failure
	}
	idx, ok := ui.RequestUserChoice([]string{okText, cancelText}, anyvalue.NewString(description))
	if !ok {
		return instruction.Failure
	}
	if idx == 0 {
		return instruction.Success
	}
	return instruction.Failure
}
