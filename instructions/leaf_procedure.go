package instructions

import (
	"fmt"

	"github.com/oac-tree/sequencer/attrs"
	"github.com/oac-tree/sequencer/instruction"
	"github.com/oac-tree/sequencer/workspace"
)

// CopyFromProcedure copies a value out of another procedure's workspace
// into a variable in this one. The source workspace is resolved once, at
// Setup, via the procedure context; Execute only ever touches the cached
// reference.
type CopyFromProcedure struct {
	*instruction.Base
	source *workspace.Workspace
}

func NewCopyFromProcedure() *CopyFromProcedure {
	c := &CopyFromProcedure{}
	c.Base = instruction.NewBase(c, "CopyFromProcedure", instruction.Action, instruction.Hooks{
		Setup:   c.setup,
		Execute: c.execute,
	})
	c.Attributes().Define("file", attrs.Definition{Mandatory: true, Category: attrs.Literal})
	c.Attributes().Define("inputVar", attrs.Definition{Mandatory: true, Category: attrs.Literal})
	c.Attributes().Define("outputVar", attrs.Definition{Mandatory: true, Category: attrs.VariableName})
	c.SetConstraints(attrs.Exists("file"), attrs.Exists("inputVar"), attrs.Exists("outputVar"))
	return c
}

func (c *CopyFromProcedure) setup(ctx *instruction.SetupContext) error {
	file, _ := c.Attributes().Raw("file")
	if ctx.Procedure == nil {
		return &instruction.SetupError{Kind: instruction.KindInstructionSetup, Subject: "CopyFromProcedure",
			Failures: []string{"no procedure context available to resolve sub-procedure workspaces"}}
	}
	ws, err := ctx.Procedure.ResolveWorkspace(file)
	if err != nil {
		return &instruction.SetupError{Kind: instruction.KindProcedureSetup, Subject: "CopyFromProcedure", Cause: err}
	}
	c.source = ws
	return nil
}

func (c *CopyFromProcedure) execute(ui instruction.UI, ws *workspace.Workspace) instruction.Status {
	if c.source == nil {
		logFailure(ui, "CopyFromProcedure", fmt.Errorf("source workspace not resolved"))
		return instruction.Failure
	}
	inputPath, _ := c.Attributes().Raw("inputVar")
	outputPath, _ := c.AttributePath("outputVar")
	v, err := c.source.GetValue(inputPath)
	if err != nil {
		logFailure(ui, "CopyFromProcedure", err)
		return instruction.Failure
	}
	if err := ws.SetValue(outputPath, v); err != nil {
		logFailure(ui, "CopyFromProcedure", err)
		return instruction.Failure
	}
	return instruction.Success
}

// CopyToProcedure is CopyFromProcedure's mirror image: it reads a local
// inputVar and writes it into another procedure's workspace at outputVar.
type CopyToProcedure struct {
	*instruction.Base
	target *workspace.Workspace
}

func NewCopyToProcedure() *CopyToProcedure {
	c := &CopyToProcedure{}
	c.Base = instruction.NewBase(c, "CopyToProcedure", instruction.Action, instruction.Hooks{
		Setup:   c.setup,
		Execute: c.execute,
	})
	c.Attributes().Define("file", attrs.Definition{Mandatory: true, Category: attrs.Literal})
	c.Attributes().Define("inputVar", attrs.Definition{Mandatory: true, Category: attrs.VariableName})
	c.Attributes().Define("outputVar", attrs.Definition{Mandatory: true, Category: attrs.Literal})
	c.SetConstraints(attrs.Exists("file"), attrs.Exists("inputVar"), attrs.Exists("outputVar"))
	return c
}

func (c *CopyToProcedure) setup(ctx *instruction.SetupContext) error {
	file, _ := c.Attributes().Raw("file")
	if ctx.Procedure == nil {
		return &instruction.SetupError{Kind: instruction.KindInstructionSetup, Subject: "CopyToProcedure",
			Failures: []string{"no procedure context available to resolve sub-procedure workspaces"}}
	}
	ws, err := ctx.Procedure.ResolveWorkspace(file)
	if err != nil {
		return &instruction.SetupError{Kind: instruction.KindProcedureSetup, Subject: "CopyToProcedure", Cause: err}
	}
	c.target = ws
	return nil
}

func (c *CopyToProcedure) execute(ui instruction.UI, ws *workspace.Workspace) instruction.Status {
	if c.target == nil {
		logFailure(ui, "CopyToProcedure", fmt.Errorf("target workspace not resolved"))
		return instruction.Failure
	}
	v, ok := c.GetAttributeValue("inputVar", ws, ui)
	if !ok {
		return instruction.Failure
	}
	outputPath, _ := c.Attributes().Raw("outputVar")
	if err := c.target.SetValue(outputPath, v); err != nil {
		logFailure(ui, "CopyToProcedure", err)
		return instruction.Failure
	}
	return instruction.Success
}

// IncludeProcedure runs another procedure's root instruction, against that
// procedure's own workspace, as a leaf of this tree. Its status mirrors the
// sub-procedure root's status tick for tick.
type IncludeProcedure struct {
	*instruction.Base
	root         instruction.Instruction
	subWorkspace *workspace.Workspace
}

func NewIncludeProcedure() *IncludeProcedure {
	ip := &IncludeProcedure{}
	ip.Base = instruction.NewBase(ip, "IncludeProcedure", instruction.Action, instruction.Hooks{
		Setup:   ip.setup,
		Execute: ip.execute,
		Halt:    ip.haltChild,
		ResetHook: ip.resetChild,
	})
	ip.Attributes().Define("file", attrs.Definition{Mandatory: true, Category: attrs.Literal})
	ip.Attributes().Define("path", attrs.Definition{Category: attrs.Literal})
	ip.SetConstraints(attrs.Exists("file"))
	return ip
}

func (ip *IncludeProcedure) setup(ctx *instruction.SetupContext) error {
	file, _ := ip.Attributes().Raw("file")
	path, _ := ip.Attributes().Raw("path")
	if ctx.Procedure == nil {
		return &instruction.SetupError{Kind: instruction.KindInstructionSetup, Subject: "IncludeProcedure",
			Failures: []string{"no procedure context available to resolve sub-procedures"}}
	}
	root, err := ctx.Procedure.ResolveInstruction(file, path)
	if err != nil {
		return &instruction.SetupError{Kind: instruction.KindProcedureSetup, Subject: "IncludeProcedure", Cause: err}
	}
	subWs, err := ctx.Procedure.ResolveWorkspace(file)
	if err != nil {
		return &instruction.SetupError{Kind: instruction.KindProcedureSetup, Subject: "IncludeProcedure", Cause: err}
	}
	ip.root = root
	ip.subWorkspace = subWs
	return root.Setup(&instruction.SetupContext{Workspace: subWs, Procedure: ctx.Procedure})
}

func (ip *IncludeProcedure) execute(ui instruction.UI, ws *workspace.Workspace) instruction.Status {
	if ip.root == nil {
		return instruction.Failure
	}
	return ip.root.ExecuteSingle(ui, ip.subWorkspace)
}

func (ip *IncludeProcedure) haltChild() {
	if ip.root != nil {
		ip.root.Halt()
	}
}

func (ip *IncludeProcedure) resetChild(ui instruction.UI) {
	if ip.root != nil {
		ip.root.Reset(ui)
	}
}
