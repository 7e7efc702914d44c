// Package workspace implements the named collection of variables described
// in field-path resolution, generic/per-name callback fan-out
// with CallbackGuard-scoped deregistration, deduplicated setup/teardown
// actions, and a condition-variable-backed wait_for_variable.
package workspace

import (
	"fmt"
	"sync"

	"github.com/oac-tree/sequencer/anyvalue"
	"github.com/oac-tree/sequencer/observability"
	"github.com/oac-tree/sequencer/variable"
)

// EventVariableChanged is emitted through the workspace's observability
// Observer, if any, every time a variable update reaches dispatch —
// independent of and in addition to the generic/named Callback fan-out.
const EventVariableChanged observability.EventType = "workspace.variable.changed"

// Callback is invoked on a variable update with the resolved variable name,
// the new value, and the back-end's connected/available flag.
type Callback func(name string, value anyvalue.Value, connected bool)

// Workspace is the named, ordered collection of variables a Procedure owns.
type Workspace struct {
	mu        sync.RWMutex
	variables map[string]variable.Variable
	order     []string
	setupDone bool
	teardowns []func() error

	callbacks callbackRegistry
	waiter    availabilityWaiter

	obs observability.Observer
}

// New constructs an empty Workspace.
func New() *Workspace {
	w := &Workspace{
		variables: make(map[string]variable.Variable),
	}
	w.callbacks.init()
	w.waiter.init()
	return w
}

// AddVariable inserts a variable under name, preserving insertion order.
// Adding variables after a successful Setup requires a full
// reset (Teardown, which clears setupDone).
func (w *Workspace) AddVariable(name string, v variable.Variable) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.setupDone {
		return fmt.Errorf("workspace: cannot add variable %q after setup without a full reset", name)
	}
	if _, exists := w.variables[name]; exists {
		return fmt.Errorf("workspace: variable %q already exists", name)
	}
	w.variables[name] = v
	w.order = append(w.order, name)
	return nil
}

// SetObserver installs an observability.Observer that receives an
// EventVariableChanged event on every dispatched variable update. Passing
// nil (the default) disables event emission entirely.
func (w *Workspace) SetObserver(obs observability.Observer) {
	w.mu.Lock()
	w.obs = obs
	w.mu.Unlock()
}

// HasVariable reports whether name is a registered variable (exact name,
// not a field path).
func (w *Workspace) HasVariable(name string) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	_, ok := w.variables[name]
	return ok
}

// Variable returns the named variable, for callers that need direct access
// (e.g. WaitForVariables checking IsAvailable per entry).
func (w *Workspace) Variable(name string) (variable.Variable, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	v, ok := w.variables[name]
	return v, ok
}

// VariableNames returns variable names in insertion order.
func (w *Workspace) VariableNames() []string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	out := make([]string, len(w.order))
	copy(out, w.order)
	return out
}

// NamesByType returns, in insertion order, the names of variables whose
// back-end TypeName matches typeName — used by WaitForVariables.
func (w *Workspace) NamesByType(typeName string) []string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	var out []string
	for _, name := range w.order {
		if w.variables[name].TypeName() == typeName {
			out = append(out, name)
		}
	}
	return out
}

// SplitFieldName splits a workspace path into its variable name and
// sub-path, stripping up to the first "." or "[".
func SplitFieldName(path string) (name string, subPath string) {
	for i := 0; i < len(path); i++ {
		switch path[i] {
		case '.':
			return path[:i], path[i+1:]
		case '[':
			return path[:i], path[i:]
		}
	}
	return path, ""
}

func (w *Workspace) lookup(name string) (variable.Variable, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	v, ok := w.variables[name]
	return v, ok
}

// GetValue resolves path to (variable, sub-path) and reads it.
func (w *Workspace) GetValue(path string) (anyvalue.Value, error) {
	name, sub := SplitFieldName(path)
	v, ok := w.lookup(name)
	if !ok {
		return anyvalue.Value{}, fmt.Errorf("workspace: unknown variable %q", name)
	}
	return v.GetValue(sub)
}

// SetValue resolves path to (variable, sub-path) and writes it. The
// variable's own notify callback (installed during Setup) is what drives
// the generic/named listener fan-out — see dispatch in callback.go.
func (w *Workspace) SetValue(path string, value anyvalue.Value) error {
	name, sub := SplitFieldName(path)
	v, ok := w.lookup(name)
	if !ok {
		return fmt.Errorf("workspace: unknown variable %q", name)
	}
	return v.SetValue(value, sub)
}

// PathExists reports whether path resolves to a readable value, used by the
// VarExists instruction.
func (w *Workspace) PathExists(path string) bool {
	name, sub := SplitFieldName(path)
	v, ok := w.lookup(name)
	if !ok || !v.IsAvailable() {
		return false
	}
	_, err := v.GetValue(sub)
	return err == nil
}

// Setup runs each variable's Setup in insertion order, wires each
// variable's notify callback into the workspace's dispatch, and runs each
// uniquely-named shared setup action exactly once, in encounter order.
// Idempotent-after-Teardown: calling Setup twice without an intervening
// Teardown is an error.
func (w *Workspace) Setup() error {
	w.mu.Lock()
	if w.setupDone {
		w.mu.Unlock()
		return fmt.Errorf("workspace: already set up; call Teardown before re-running Setup")
	}
	names := make([]string, len(w.order))
	copy(names, w.order)
	w.mu.Unlock()

	seen := make(map[string]bool)
	var teardowns []func() error
	for _, name := range names {
		v, _ := w.lookup(name)
		actions, err := v.Setup()
		if err != nil {
			return fmt.Errorf("workspace: variable %q setup: %w", name, err)
		}
		varName := name
		v.SetNotifyCallback(func(value anyvalue.Value, connected bool) {
			w.dispatch(varName, value, connected)
		})
		for _, action := range actions {
			if seen[action.Name] {
				continue
			}
			seen[action.Name] = true
			if action.Setup != nil {
				if err := action.Setup(); err != nil {
					return fmt.Errorf("workspace: shared setup action %q: %w", action.Name, err)
				}
			}
			if action.Teardown != nil {
				teardowns = append(teardowns, action.Teardown)
			}
		}
	}

	w.mu.Lock()
	w.setupDone = true
	w.teardowns = teardowns
	w.mu.Unlock()
	return nil
}

// Teardown tears down every variable and runs shared teardown actions in
// reverse registration order, then clears setupDone so AddVariable/Setup
// may run again.
func (w *Workspace) Teardown() {
	w.mu.Lock()
	names := make([]string, len(w.order))
	copy(names, w.order)
	teardowns := w.teardowns
	w.teardowns = nil
	w.setupDone = false
	w.mu.Unlock()

	for _, name := range names {
		v, _ := w.lookup(name)
		v.Teardown()
	}
	for i := len(teardowns) - 1; i >= 0; i-- {
		_ = teardowns[i]()
	}
}
