// Package variable implements the abstract typed cell contract
// plus the two reference back-ends, Local and File. A Variable is
// owned exclusively by a workspace.Workspace; the workspace registers a
// single notify callback per variable at setup time.
package variable

import (
	"errors"

	"github.com/oac-tree/sequencer/anyvalue"
	"github.com/oac-tree/sequencer/attrs"
)

// ErrNotAvailable is returned by GetValue when the variable has no current
// value to read.
var ErrNotAvailable = errors.New("variable: value not available")

// NotifyFunc is invoked by a variable whenever its value changes. It is
// always called with the variable's internal value lock released.
type NotifyFunc func(value anyvalue.Value, connected bool)

// SetupAction is a named, deduplicated one-shot setup/teardown pair
// returned from Setup ("supports shared client libraries,
// e.g. one connection per unique broker URL").
type SetupAction struct {
	Name     string
	Setup    func() error
	Teardown func() error
}

// Variable is the abstract typed cell contract implemented by every
// concrete variable back-end.
type Variable interface {
	// TypeName is the back-end type name used by the registry ("Local", "File", ...).
	TypeName() string
	// Attributes exposes the variable's attribute handler for setup-time configuration.
	Attributes() *attrs.Handler
	// GetValue reads the value at the given sub-path ("" for the whole value).
	GetValue(field string) (anyvalue.Value, error)
	// SetValue writes value at the given sub-path.
	SetValue(value anyvalue.Value, field string) error
	// IsAvailable reports whether a value is currently readable.
	IsAvailable() bool
	// Setup parses attributes and connects to the back-end, returning any
	// deduplicated shared setup/teardown actions.
	Setup() ([]SetupAction, error)
	// Reset restores the variable to its post-Setup state.
	Reset()
	// Teardown disconnects the back-end and clears the value.
	Teardown()
	// Clear empties the stored value in place without touching back-end
	// configuration, used by the ResetVariable instruction —
	// distinct from Reset, which restores the post-Setup state.
	Clear()
	// SetNotifyCallback installs the single callback invoked on value change.
	SetNotifyCallback(fn NotifyFunc)
}

// Constructor builds a zero-configured Variable of one back-end type, for
// use by registry.VariableRegistry.
type Constructor func() Variable
