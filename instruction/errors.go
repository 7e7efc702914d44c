package instruction

import (
	"fmt"
	"strings"
)

// Kind tags the setup-time exception categories. Setup-time
// failures are returned as errors that abort composition; run-time
// failures never use this type — they log and return FAILURE instead.
type Kind string

const (
	KindInstructionSetup Kind = "InstructionSetupException"
	KindVariableSetup    Kind = "VariableSetupException"
	KindProcedureSetup   Kind = "ProcedureSetupException"
	KindParse            Kind = "ParseException"
	KindInvalidOperation Kind = "InvalidOperationException"
)

// SetupError is the typed error raised by Setup, carrying enough context
// (kind, subject, and the constraint failures) for the caller to report a
// useful diagnostic without re-deriving it.
type SetupError struct {
	Kind     Kind
	Subject  string
	Failures []string
	Cause    error
}

func (e *SetupError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s", e.Kind, e.Subject)
	if len(e.Failures) > 0 {
		b.WriteString(": ")
		b.WriteString(strings.Join(e.Failures, "; "))
	}
	if e.Cause != nil {
		fmt.Fprintf(&b, ": %v", e.Cause)
	}
	return b.String()
}

func (e *SetupError) Unwrap() error { return e.Cause }
