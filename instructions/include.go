package instructions

import (
	"github.com/oac-tree/sequencer/attrs"
	"github.com/oac-tree/sequencer/instruction"
	"github.com/oac-tree/sequencer/workspace"
)

// Include splices a clone of another instruction subtree (named by path,
// optionally in another file) into this tree as its single child, at
// Setup. Placeholder attributes ("$X") on the cloned subtree are resolved
// against Include's own attributes before the clone's Setup runs.
type Include struct {
	*instruction.Base
	singleChild
}

func NewInclude() *Include {
	i := &Include{}
	i.Base = instruction.NewBase(i, "Include", instruction.Decorator, instruction.Hooks{
		Setup:      i.setup,
		Execute:    i.execute,
		Halt:       i.haltChild,
		ResetHook:  i.resetChild,
		NextLeaves: i.nextLeaves,
	})
	i.singleChild = singleChild{i.Base}
	i.Attributes().Define("path", attrs.Definition{Mandatory: true, Category: attrs.Literal})
	i.Attributes().Define("file", attrs.Definition{Category: attrs.Literal})
	i.SetConstraints(attrs.Exists("path"))
	return i
}

func (i *Include) setup(ctx *instruction.SetupContext) error {
	path, _ := i.Attributes().Raw("path")
	file, _ := i.Attributes().Raw("file")
	if ctx.Procedure == nil {
		return &instruction.SetupError{Kind: instruction.KindInstructionSetup, Subject: "Include",
			Failures: []string{"no procedure context available to resolve include path"}}
	}
	clone, err := ctx.Procedure.ResolveInstruction(file, path)
	if err != nil {
		return &instruction.SetupError{Kind: instruction.KindInstructionSetup, Subject: "Include", Cause: err}
	}
	var substitute func(n instruction.Instruction)
	substitute = func(n instruction.Instruction) {
		n.Attributes().InitialisePlaceholderAttributes(i.Attributes())
		for _, c := range n.Children() {
			substitute(c)
		}
	}
	substitute(clone)
	if err := i.AddChild(clone); err != nil {
		return &instruction.SetupError{Kind: instruction.KindInstructionSetup, Subject: "Include", Cause: err}
	}
	childCtx := &instruction.SetupContext{Workspace: ctx.Workspace, Procedure: ctx.Procedure, Includer: i.Attributes()}
	return clone.Setup(childCtx)
}

func (i *Include) execute(ui instruction.UI, ws *workspace.Workspace) instruction.Status {
	c := i.child()
	if c == nil {
		return instruction.Failure
	}
	return c.ExecuteSingle(ui, ws)
}

func (i *Include) haltChild() {
	if c := i.child(); c != nil {
		c.Halt()
	}
}

func (i *Include) resetChild(ui instruction.UI) {
	if c := i.child(); c != nil {
		c.Reset(ui)
	}
}

func (i *Include) nextLeaves() []instruction.Instruction {
	if c := i.child(); c != nil {
		return c.NextInstructions()
	}
	return nil
}
