package instruction_test

import (
	"testing"

	"github.com/oac-tree/sequencer/anyvalue"
	"github.com/oac-tree/sequencer/instruction"
	"github.com/oac-tree/sequencer/workspace"
)

// recordingUI is a minimal instruction.UI test double recording every
// status notification it receives.
type recordingUI struct {
	statuses []instruction.Status
	logs     []string
}

func (u *recordingUI) UpdateInstructionStatus(instr instruction.Instruction, status instruction.Status) {
	u.statuses = append(u.statuses, status)
}
func (u *recordingUI) VariableUpdated(name string, value anyvalue.Value, connected bool) {}
func (u *recordingUI) PutValue(value anyvalue.Value, description string)                 {}
func (u *recordingUI) Message(text string)                                               {}
func (u *recordingUI) Log(severity instruction.Severity, text string) {
	u.logs = append(u.logs, text)
}
func (u *recordingUI) RequestUserValue(template anyvalue.Value, description string) (anyvalue.Value, bool) {
	return anyvalue.Value{}, false
}
func (u *recordingUI) RequestUserChoice(options []string, metadata anyvalue.Value) (int, bool) {
	return 0, false
}

// selfBase constructs a bare leaf Base for protocol-level tests, which
// don't exercise UpdateInstructionStatus's instr argument.
func selfBase(hooks instruction.Hooks) *instruction.Base {
	b := instruction.NewBase(nil, "TestLeaf", instruction.Action, hooks)
	return b
}

func TestTickMonotonicity(t *testing.T) {
	b := selfBase(instruction.Hooks{Execute: func(ui instruction.UI, ws *workspace.Workspace) instruction.Status {
		return instruction.Success
	}})
	ui := &recordingUI{}
	ws := workspace.New()

	if got := b.ExecuteSingle(ui, ws); got != instruction.Success {
		t.Fatalf("first tick: got %v", got)
	}
	if got := b.ExecuteSingle(ui, ws); got != instruction.Success {
		t.Fatalf("second tick on finished instruction changed status: got %v", got)
	}
}

func TestPreambleTransitionsNotStartedToNotFinishedThenBody(t *testing.T) {
	calls := 0
	b := selfBase(instruction.Hooks{Execute: func(ui instruction.UI, ws *workspace.Workspace) instruction.Status {
		calls++
		return instruction.Success
	}})
	ui := &recordingUI{}
	ws := workspace.New()

	got := b.ExecuteSingle(ui, ws)
	if got != instruction.Success {
		t.Fatalf("got %v", got)
	}
	if calls != 1 {
		t.Fatalf("expected execute hook called once, got %d", calls)
	}
	// NOT_STARTED->NOT_FINISHED, then NOT_FINISHED->SUCCESS: two distinct notifications.
	if len(ui.statuses) != 2 || ui.statuses[0] != instruction.NotFinished || ui.statuses[1] != instruction.Success {
		t.Fatalf("unexpected status notifications: %v", ui.statuses)
	}
}

func TestInitHookFailureGoesStraightToFailure(t *testing.T) {
	b := instruction.NewBase(nil, "TestLeaf", instruction.Action, instruction.Hooks{
		Init: func(ui instruction.UI, ws *workspace.Workspace) bool { return false },
	})
	ui := &recordingUI{}
	ws := workspace.New()
	got := b.ExecuteSingle(ui, ws)
	if got != instruction.Failure {
		t.Fatalf("expected FAILURE from a failing init hook, got %v", got)
	}
}

func TestHaltSoundness(t *testing.T) {
	b := selfBase(instruction.Hooks{Execute: func(ui instruction.UI, ws *workspace.Workspace) instruction.Status {
		return instruction.Success
	}})
	ui := &recordingUI{}
	ws := workspace.New()

	// An unhalted instruction runs its body on the first tick.
	b.ExecuteSingle(ui, ws)
	// A fresh instruction halted before its first tick: the preamble still
	// runs, but the body is skipped, so the tick cannot report SUCCESS.
	b2 := selfBase(instruction.Hooks{Execute: func(ui instruction.UI, ws *workspace.Workspace) instruction.Status {
		return instruction.Success
	}})
	b2.Halt()
	got := b2.ExecuteSingle(ui, ws)
	if got == instruction.Success {
		t.Fatalf("halted instruction must not report SUCCESS, got %v", got)
	}
}

func TestResetRoundTrip(t *testing.T) {
	b := selfBase(instruction.Hooks{Execute: func(ui instruction.UI, ws *workspace.Workspace) instruction.Status {
		return instruction.Success
	}})
	ui := &recordingUI{}
	ws := workspace.New()

	b.ExecuteSingle(ui, ws)
	if b.Status() != instruction.Success {
		t.Fatalf("expected SUCCESS before reset")
	}
	b.Reset(ui)
	if b.Status() != instruction.NotStarted {
		t.Fatalf("expected NOT_STARTED after reset, got %v", b.Status())
	}
	if b.Halted() {
		t.Fatalf("expected halt flag cleared after reset")
	}
}
