package procedure_test

import (
	"testing"

	"github.com/oac-tree/sequencer/anyvalue"
	"github.com/oac-tree/sequencer/instruction"
	"github.com/oac-tree/sequencer/instructions"
	"github.com/oac-tree/sequencer/procedure"
	"github.com/oac-tree/sequencer/variable"
)

type testUI struct{}

func (testUI) UpdateInstructionStatus(instr instruction.Instruction, status instruction.Status) {}
func (testUI) VariableUpdated(name string, value anyvalue.Value, connected bool)                {}
func (testUI) PutValue(value anyvalue.Value, description string)                                {}
func (testUI) Message(text string)                                                               {}
func (testUI) Log(severity instruction.Severity, text string)                                    {}
func (testUI) RequestUserValue(template anyvalue.Value, description string) (anyvalue.Value, bool) {
	return anyvalue.Value{}, false
}
func (testUI) RequestUserChoice(options []string, metadata anyvalue.Value) (int, bool) {
	return 0, false
}

func newLocalVar(t *testing.T, typeName, value string) *variable.Local {
	t.Helper()
	v := variable.NewLocal()
	v.Attributes().AddAttribute("type", typeName)
	v.Attributes().AddAttribute("value", value)
	return v
}

func tickToFinish(t *testing.T, p *procedure.Procedure, ui instruction.UI, maxTicks int) instruction.Status {
	t.Helper()
	var status instruction.Status
	for i := 0; i < maxTicks; i++ {
		status = p.ExecuteSingle(ui)
		if status.IsFinished() {
			return status
		}
	}
	t.Fatalf("procedure did not finish after %d ticks, last status %v", maxTicks, status)
	return status
}

func TestRootSelectionFirstWhenNoneMarked(t *testing.T) {
	p := procedure.New("unmarked")
	first := instructions.NewSucceed()
	second := instructions.NewFail()
	p.PushInstruction(first)
	p.PushInstruction(second)
	if p.RootInstruction() != instruction.Instruction(first) {
		t.Fatalf("expected first pushed instruction to be root when none is marked isRoot")
	}
}

func TestRootSelectionHonorsIsRoot(t *testing.T) {
	p := procedure.New("marked")
	first := instructions.NewFail()
	second := instructions.NewSucceed()
	second.Attributes().AddAttribute("isRoot", "True")
	p.PushInstruction(first)
	p.PushInstruction(second)
	if p.RootInstruction() != instruction.Instruction(second) {
		t.Fatalf("expected isRoot=True instruction to be selected as root")
	}
}

func TestSetupAndExecuteSucceedRoot(t *testing.T) {
	p := procedure.New("simple")
	if err := p.AddVariable("n", newLocalVar(t, "float64", "41")); err != nil {
		t.Fatalf("AddVariable: %v", err)
	}
	inc := instructions.NewIncrement()
	inc.Attributes().AddAttribute("varName", "n")
	p.PushInstruction(inc)
	if err := p.Setup(); err != nil {
		t.Fatalf("Setup: %v", err)
	}
	if status := tickToFinish(t, p, testUI{}, 2); status != instruction.Success {
		t.Fatalf("expected SUCCESS, got %v", status)
	}
	v, err := p.GetVariableValue("n")
	if err != nil {
		t.Fatalf("GetVariableValue: %v", err)
	}
	f, _ := v.ToFloat()
	if f != 42 {
		t.Fatalf("expected n=42, got %v", f)
	}
}

func TestSetupFailsWithNoRoot(t *testing.T) {
	p := procedure.New("empty")
	if err := p.Setup(); err == nil {
		t.Fatal("expected Setup to fail with no top-level instruction")
	}
}

func TestInsertAndTakeInstruction(t *testing.T) {
	p := procedure.New("ordering")
	a := instructions.NewSucceed()
	b := instructions.NewFail()
	p.PushInstruction(a)
	if err := p.InsertInstruction(0, b); err != nil {
		t.Fatalf("InsertInstruction: %v", err)
	}
	top := p.TopLevelInstructions()
	if len(top) != 2 || top[0] != instruction.Instruction(b) || top[1] != instruction.Instruction(a) {
		t.Fatalf("unexpected ordering after insert: %v", top)
	}
	taken, err := p.TakeInstruction(0)
	if err != nil {
		t.Fatalf("TakeInstruction: %v", err)
	}
	if taken != instruction.Instruction(b) {
		t.Fatalf("expected to take back b")
	}
	if len(p.TopLevelInstructions()) != 1 {
		t.Fatalf("expected one instruction remaining after take")
	}
}

func TestResolveInstructionByNameClonesSubtree(t *testing.T) {
	p := procedure.New("withTemplate")

	template := instructions.NewSequence(instructions.NewSucceed())
	template.Attributes().AddAttribute("name", "template")
	p.PushInstruction(template)

	include := instructions.NewInclude()
	include.Attributes().AddAttribute("path", "template")
	include.Attributes().AddAttribute("isRoot", "True")
	p.PushInstruction(include)

	if err := p.Setup(); err != nil {
		t.Fatalf("Setup: %v", err)
	}
	if status := tickToFinish(t, p, testUI{}, 4); status != instruction.Success {
		t.Fatalf("expected SUCCESS from included clone, got %v", status)
	}
	// the clone must be a distinct instance from the template, so ticking the
	// root never mutates the template's own status.
	if template.Status() != instruction.NotStarted {
		t.Fatalf("expected template instruction untouched, got status %v", template.Status())
	}
}

func TestResolveInstructionUnknownNameErrors(t *testing.T) {
	p := procedure.New("missing")
	include := instructions.NewInclude()
	include.Attributes().AddAttribute("path", "doesNotExist")
	p.PushInstruction(include)
	if err := p.Setup(); err == nil {
		t.Fatal("expected Setup to fail resolving an unknown instruction path")
	}
}

func TestResolveWorkspaceCrossesSubProcedure(t *testing.T) {
	main := procedure.New("main")
	sub := procedure.New("sub")
	if err := sub.AddVariable("x", newLocalVar(t, "float64", "7")); err != nil {
		t.Fatalf("AddVariable: %v", err)
	}
	main.AddSubProcedure("sub.xml", sub)

	ws, err := main.ResolveWorkspace("sub.xml")
	if err != nil {
		t.Fatalf("ResolveWorkspace: %v", err)
	}
	if ws != sub.GetWorkspace() {
		t.Fatalf("expected resolved workspace to be sub's own workspace")
	}
}

func TestHaltPropagatesToRoot(t *testing.T) {
	p := procedure.New("haltable")
	w := instructions.NewWait()
	w.Attributes().AddAttribute("timeout", "5")
	p.PushInstruction(w)
	if err := p.Setup(); err != nil {
		t.Fatalf("Setup: %v", err)
	}
	go p.Halt()
	if status := tickToFinish(t, p, testUI{}, 2); status != instruction.Failure {
		t.Fatalf("expected FAILURE after halt, got %v", status)
	}
}
