package instruction

import "github.com/oac-tree/sequencer/anyvalue"

// UI is the host contract an instruction calls into. It is
// intentionally narrower than the full UserInterface surface the host
// exposes: only the methods instructions themselves need, so that package
// instruction never depends on package ui (the dependency runs the other
// way — ui's adapters are written to satisfy this interface).
type UI interface {
	// UpdateInstructionStatus notifies of a status change on instr.
	UpdateInstructionStatus(instr Instruction, status Status)
	// VariableUpdated notifies of a workspace callback firing.
	VariableUpdated(name string, value anyvalue.Value, connected bool)
	// PutValue surfaces an Output instruction's value to the host.
	PutValue(value anyvalue.Value, description string)
	// Message surfaces a Message instruction's text to the host.
	Message(text string)
	// Log surfaces a severity-tagged line to the host.
	Log(severity Severity, text string)
	// RequestUserValue blocks for a host-supplied value of the given
	// template's type; ok is false on cancellation/interruption.
	RequestUserValue(template anyvalue.Value, description string) (anyvalue.Value, bool)
	// RequestUserChoice blocks for a host-supplied pick among options; ok
	// is false on cancellation/interruption.
	RequestUserChoice(options []string, metadata anyvalue.Value) (int, bool)
}
