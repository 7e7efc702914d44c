package jobinfo_test

import (
	"sync"
	"testing"

	"github.com/oac-tree/sequencer/anyvalue"
	"github.com/oac-tree/sequencer/instruction"
	"github.com/oac-tree/sequencer/instructions"
	"github.com/oac-tree/sequencer/jobinfo"
)

type recordingIO struct {
	mu           sync.Mutex
	initCount    int
	stateUpdates map[int]jobinfo.InstructionStateUpdate
	jobStates    []string
	messages     []string
}

func newRecordingIO() *recordingIO {
	return &recordingIO{stateUpdates: make(map[int]jobinfo.InstructionStateUpdate)}
}

func (r *recordingIO) InitNumberOfInstructions(n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.initCount = n
}

func (r *recordingIO) InstructionStateUpdated(idx int, update jobinfo.InstructionStateUpdate) {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing := r.stateUpdates[idx]
	if update.Status != nil {
		existing.Status = update.Status
	}
	if update.BreakpointSet != nil {
		existing.BreakpointSet = update.BreakpointSet
	}
	r.stateUpdates[idx] = existing
}

func (r *recordingIO) VariableUpdated(idx int, value anyvalue.Value, connected bool) {}
func (r *recordingIO) NextInstructionsUpdated(indices []int)                         {}

func (r *recordingIO) JobStateUpdated(state string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobStates = append(r.jobStates, state)
}

func (r *recordingIO) PutValue(value anyvalue.Value, description string) {}

func (r *recordingIO) Message(text string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, text)
}

func (r *recordingIO) Log(severity instruction.Severity, text string)                       {}
func (r *recordingIO) GetUserValue(requestID uint64, template anyvalue.Value, description string) {}
func (r *recordingIO) GetUserChoice(requestID uint64, options []string, metadata anyvalue.Value)  {}
func (r *recordingIO) Interrupt(requestID uint64)                                            {}

func TestInstructionMapAssignsStableDenseIndices(t *testing.T) {
	im := jobinfo.NewInstructionMap()
	a := instructions.NewSucceed()
	b := instructions.NewFail()

	if idx := im.IndexFor(a); idx != 0 {
		t.Fatalf("expected first instruction to get index 0, got %d", idx)
	}
	if idx := im.IndexFor(b); idx != 1 {
		t.Fatalf("expected second instruction to get index 1, got %d", idx)
	}
	if idx := im.IndexFor(a); idx != 0 {
		t.Fatalf("expected re-exposure of a to return the same index 0, got %d", idx)
	}
	if im.Len() != 2 {
		t.Fatalf("expected Len()=2, got %d", im.Len())
	}
}

func TestBuildInstructionInfoMirrorsTree(t *testing.T) {
	seq := instructions.NewSequence(instructions.NewSucceed(), instructions.NewFail())
	im := jobinfo.NewInstructionMap()
	info := jobinfo.BuildInstructionInfo(seq, im)

	if info.Type != "Sequence" || info.Category != instruction.Compound {
		t.Fatalf("unexpected root info: %+v", info)
	}
	if len(info.Children) != 2 {
		t.Fatalf("expected 2 children, got %d", len(info.Children))
	}
	if info.Children[0].Type != "Succeed" || info.Children[1].Type != "Fail" {
		t.Fatalf("unexpected children order: %+v", info.Children)
	}
}

func TestAppendChildEnforcesCategoryArity(t *testing.T) {
	action := &jobinfo.InstructionInfo{Type: "Succeed", Category: instruction.Action}
	if err := action.AppendChild(&jobinfo.InstructionInfo{Type: "Fail"}); err == nil {
		t.Fatal("expected Action to reject a child")
	}

	decorator := &jobinfo.InstructionInfo{Type: "Inverter", Category: instruction.Decorator}
	if err := decorator.AppendChild(&jobinfo.InstructionInfo{Type: "Fail"}); err != nil {
		t.Fatalf("expected Decorator to accept first child: %v", err)
	}
	if err := decorator.AppendChild(&jobinfo.InstructionInfo{Type: "Succeed"}); err == nil {
		t.Fatal("expected Decorator to reject a second child")
	}

	compound := &jobinfo.InstructionInfo{Type: "Sequence", Category: instruction.Compound}
	for i := 0; i < 5; i++ {
		if err := compound.AppendChild(&jobinfo.InstructionInfo{Type: "Succeed"}); err != nil {
			t.Fatalf("expected Compound to accept child %d: %v", i, err)
		}
	}
}

func TestInstructionInfoRoundTrip(t *testing.T) {
	seq := instructions.NewSequence(instructions.NewSucceed(), instructions.NewFail())
	im := jobinfo.NewInstructionMap()
	info := jobinfo.BuildInstructionInfo(seq, im)

	rebuilt, err := jobinfo.FromAnyValue(info.ToAnyValue())
	if err != nil {
		t.Fatalf("FromAnyValue: %v", err)
	}
	if rebuilt.Type != info.Type || rebuilt.Index != info.Index || len(rebuilt.Children) != len(info.Children) {
		t.Fatalf("round-trip mismatch: got %+v, want %+v", rebuilt, info)
	}
	if rebuilt.Children[0].Type != "Succeed" || rebuilt.Children[1].Type != "Fail" {
		t.Fatalf("round-trip children mismatch: %+v", rebuilt.Children)
	}
}

func TestValidateIndicesRejectsDuplicate(t *testing.T) {
	tree := &jobinfo.InstructionInfo{
		Type: "Sequence", Category: instruction.Compound, Index: 0,
		Children: []*jobinfo.InstructionInfo{
			{Type: "Succeed", Index: 0},
			{Type: "Fail", Index: 1},
		},
	}
	if err := jobinfo.ValidateIndices(tree); err == nil {
		t.Fatal("expected duplicate index 0 to fail validation")
	}
}

func TestValidateIndicesRejectsOutOfRange(t *testing.T) {
	tree := &jobinfo.InstructionInfo{
		Type: "Sequence", Category: instruction.Compound, Index: 0,
		Children: []*jobinfo.InstructionInfo{
			{Type: "Succeed", Index: 5},
		},
	}
	if err := jobinfo.ValidateIndices(tree); err == nil {
		t.Fatal("expected out-of-range index to fail validation")
	}
}

func TestJobInterfaceAdapterForwardsUpdates(t *testing.T) {
	io := newRecordingIO()
	adapter := jobinfo.NewJobInterfaceAdapter(io)

	succeed := instructions.NewSucceed()
	adapter.InitTree(succeed)
	if io.initCount != 1 {
		t.Fatalf("expected InitNumberOfInstructions(1), got %d", io.initCount)
	}

	adapter.UpdateInstructionStatus(succeed, instruction.Success)
	upd, ok := io.stateUpdates[0]
	if !ok || upd.Status == nil || *upd.Status != instruction.Success {
		t.Fatalf("expected status update for index 0, got %+v (ok=%v)", upd, ok)
	}

	adapter.Message("hello")
	if len(io.messages) != 1 || io.messages[0] != "hello" {
		t.Fatalf("expected forwarded message, got %v", io.messages)
	}

	adapter.ReportJobState("Running")
	if len(io.jobStates) != 1 || io.jobStates[0] != "Running" {
		t.Fatalf("expected forwarded job state, got %v", io.jobStates)
	}
}

func TestJobInterfaceAdapterBreakpointReporting(t *testing.T) {
	io := newRecordingIO()
	adapter := jobinfo.NewJobInterfaceAdapter(io)
	w := instructions.NewWait()
	adapter.InitTree(w)

	adapter.ReportBreakpointChange(w, true)
	upd, ok := io.stateUpdates[0]
	if !ok || upd.BreakpointSet == nil || *upd.BreakpointSet {
		t.Fatalf("expected breakpoint released (set=false) for index 0, got %+v", upd)
	}
}
