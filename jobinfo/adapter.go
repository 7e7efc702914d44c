package jobinfo

import (
	"github.com/oac-tree/sequencer/anyvalue"
	"github.com/oac-tree/sequencer/instruction"
	"github.com/oac-tree/sequencer/ui"
)

// InstructionStateUpdate carries the fields that changed on one
// instruction;, breakpoint-set and status updates are
// merged per instruction rather than replacing the whole record.
type InstructionStateUpdate struct {
	Status        *instruction.Status
	BreakpointSet *bool
}

// JobInfoIO is the observer-facing port every job update is routed
// through. A transport (in-process channel, RPC stream, test recorder)
// implements it to receive the job's observable state.
type JobInfoIO interface {
	InitNumberOfInstructions(n int)
	InstructionStateUpdated(idx int, update InstructionStateUpdate)
	VariableUpdated(idx int, value anyvalue.Value, connected bool)
	NextInstructionsUpdated(indices []int)
	JobStateUpdated(state string)
	PutValue(value anyvalue.Value, description string)
	Message(text string)
	Log(severity instruction.Severity, text string)
	GetUserValue(requestID uint64, template anyvalue.Value, description string)
	GetUserChoice(requestID uint64, options []string, metadata anyvalue.Value)
	Interrupt(requestID uint64)
}

// JobInterfaceAdapter implements instruction.UI by translating every call
// into a JobInfoIO update, using an InstructionMap/VariableMap for stable
// indices and a ui.AsyncInputAdapter for the user-input request/reply
// correlation.
type JobInterfaceAdapter struct {
	io    JobInfoIO
	instr *InstructionMap
	vars  *VariableMap
	async *ui.AsyncInputAdapter
}

// NewJobInterfaceAdapter wires io to fresh InstructionMap/VariableMap and
// an AsyncInputAdapter whose request/interrupt hooks forward to io.
func NewJobInterfaceAdapter(io JobInfoIO) *JobInterfaceAdapter {
	a := &JobInterfaceAdapter{io: io, instr: NewInstructionMap(), vars: NewVariableMap()}
	a.async = ui.New(
		func(id uint64, payload any) {
			switch req := payload.(type) {
			case ui.UserValueRequest:
				a.io.GetUserValue(id, req.Template, req.Description)
			case ui.UserChoiceRequest:
				a.io.GetUserChoice(id, req.Options, req.Metadata)
			}
		},
		func(id uint64) { a.io.Interrupt(id) },
	)
	return a
}

// InstructionMap exposes the adapter's index assignment, e.g. for a
// Runner's breakpoint observer to report indices instead of pointers.
func (a *JobInterfaceAdapter) InstructionMap() *InstructionMap { return a.instr }

// VariableMap exposes the adapter's variable index assignment.
func (a *JobInterfaceAdapter) VariableMap() *VariableMap { return a.vars }

// InitTree assigns indices to every instruction in root's tree (in
// traversal order) and reports the resulting count
// "InitNumberOfInstructions(n) once at tree initialization."
func (a *JobInterfaceAdapter) InitTree(root instruction.Instruction) *InstructionInfo {
	info := BuildInstructionInfo(root, a.instr)
	a.io.InitNumberOfInstructions(a.instr.Len())
	return info
}

// ReportNextInstructions translates a slice of live instructions into
// their stable indices and forwards them to io.
func (a *JobInterfaceAdapter) ReportNextInstructions(next []instruction.Instruction) {
	indices := make([]int, len(next))
	for i, n := range next {
		indices[i] = a.instr.IndexFor(n)
	}
	a.io.NextInstructionsUpdated(indices)
}

// ReportBreakpointChange forwards a breakpoint set/released transition
// for instr, keyed by its stable index.
func (a *JobInterfaceAdapter) ReportBreakpointChange(instr instruction.Instruction, released bool) {
	set := !released
	a.io.InstructionStateUpdated(a.instr.IndexFor(instr), InstructionStateUpdate{BreakpointSet: &set})
}

// ReportJobState forwards a job.Controller state transition.
func (a *JobInterfaceAdapter) ReportJobState(state string) {
	a.io.JobStateUpdated(state)
}

// AsyncInputAdapter exposes the adapter's reply channel for a host
// transport to answer pending user-value/choice requests.
func (a *JobInterfaceAdapter) AsyncInputAdapter() *ui.AsyncInputAdapter { return a.async }

func (a *JobInterfaceAdapter) UpdateInstructionStatus(instr instruction.Instruction, status instruction.Status) {
	idx := a.instr.IndexFor(instr)
	a.io.InstructionStateUpdated(idx, InstructionStateUpdate{Status: &status})
}

func (a *JobInterfaceAdapter) VariableUpdated(name string, value anyvalue.Value, connected bool) {
	idx := a.vars.IndexFor(name)
	a.io.VariableUpdated(idx, value, connected)
}

func (a *JobInterfaceAdapter) PutValue(value anyvalue.Value, description string) {
	a.io.PutValue(value, description)
}

func (a *JobInterfaceAdapter) Message(text string) { a.io.Message(text) }

func (a *JobInterfaceAdapter) Log(severity instruction.Severity, text string) {
	a.io.Log(severity, text)
}

func (a *JobInterfaceAdapter) RequestUserValue(template anyvalue.Value, description string) (anyvalue.Value, bool) {
	return a.async.RequestUserValue(template, description, nil)
}

func (a *JobInterfaceAdapter) RequestUserChoice(options []string, metadata anyvalue.Value) (int, bool) {
	return a.async.RequestUserChoice(options, metadata, nil)
}
