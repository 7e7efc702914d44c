package instruction

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/oac-tree/sequencer/attrs"
	"github.com/oac-tree/sequencer/observability"
	"github.com/oac-tree/sequencer/workspace"
)

// EventInstructionStatusChanged is emitted through a Base's observability
// Observer, if any, every time ExecuteSingle or Reset changes an
// instruction's status — independent of and in addition to the
// UI.UpdateInstructionStatus notification.
const EventInstructionStatusChanged observability.EventType = "instruction.status.changed"

// Instruction is the tree node contract. Every concrete
// instruction in package instructions embeds a *Base, which implements
// this interface by delegating to the Hooks supplied at construction.
type Instruction interface {
	TypeName() string
	Category() Category
	Attributes() *attrs.Handler
	Children() []Instruction
	Status() Status
	ExecuteSingle(ui UI, ws *workspace.Workspace) Status
	Halt()
	Reset(ui UI)
	NextInstructions() []Instruction
	Setup(ctx *SetupContext) error
	SetObserver(obs observability.Observer)
}

// ProcedureContext resolves sub-procedures by (file, instruction path).
// Declared here, rather than in package procedure, so instructions (Include,
// IncludeProcedure, CopyFromProcedure, CopyToProcedure) can depend on the
// abstraction without importing package procedure, which itself depends on
// package instruction — avoiding an import cycle.
type ProcedureContext interface {
	// ResolveInstruction returns a fresh clone of the instruction at path
	// within the named file ("" means the current procedure).
	ResolveInstruction(file, path string) (Instruction, error)
	// ResolveWorkspace returns the workspace of the named file's procedure.
	ResolveWorkspace(file string) (*workspace.Workspace, error)
}

// SetupContext carries everything Setup needs beyond the instruction's own
// attributes: the owning workspace, the procedure context for sub-procedure
// resolution, and the includer's attribute handler for placeholder
// substitution, keeping the placeholder-substitution pass separate
// from attribute validation.
type SetupContext struct {
	Workspace *workspace.Workspace
	Procedure ProcedureContext
	Includer  *attrs.Handler
}

// Hooks are the per-concrete-type behaviors the single-tick protocol
// dispatches to. Every field is optional; a nil hook is treated as a no-op
// (Halt, ResetHook) or trivial success (Init, NextLeaves, Setup) or
// FAILURE (Execute must normally be set by every real instruction).
type Hooks struct {
	Init       func(ui UI, ws *workspace.Workspace) bool
	Execute    func(ui UI, ws *workspace.Workspace) Status
	Halt       func()
	ResetHook  func(ui UI)
	NextLeaves func() []Instruction
	Setup      func(ctx *SetupContext) error
}

// Base implements the Instruction interface's tick/halt/reset/setup
// protocol generically, so every concrete instruction need
// only supply Hooks and, for Decorator/Compound nodes, children.
type Base struct {
	self     Instruction
	typeName string
	category Category
	attrs    *attrs.Handler

	constraints []attrs.Constraint

	childMu  sync.Mutex
	children []Instruction

	statusMu sync.Mutex
	status   Status

	halted atomic.Bool

	haltMu sync.Mutex
	haltCh chan struct{}

	hooks Hooks

	obsMu sync.Mutex
	obs   observability.Observer
}

// NewBase constructs a Base. self must be the concrete instruction that
// embeds this Base (used to identify it to UI.UpdateInstructionStatus and
// to jobinfo's pointer-keyed InstructionMap).
func NewBase(self Instruction, typeName string, category Category, hooks Hooks) *Base {
	return &Base{
		self:     self,
		typeName: typeName,
		category: category,
		attrs:    attrs.New(),
		haltCh:   make(chan struct{}),
		hooks:    hooks,
	}
}

func (b *Base) TypeName() string            { return b.typeName }
func (b *Base) Category() Category          { return b.category }
func (b *Base) Attributes() *attrs.Handler  { return b.attrs }

// SetConstraints installs the attribute constraints checked during Setup.
func (b *Base) SetConstraints(constraints ...attrs.Constraint) {
	b.constraints = constraints
}

// AddChild appends child, enforcing the category's arity rule.
func (b *Base) AddChild(child Instruction) error {
	b.childMu.Lock()
	defer b.childMu.Unlock()
	switch b.category {
	case Action:
		return fmt.Errorf("instruction: %s is an Action leaf and accepts no children", b.typeName)
	case Decorator:
		if len(b.children) >= 1 {
			return fmt.Errorf("instruction: %s is a Decorator and accepts exactly one child", b.typeName)
		}
	}
	b.children = append(b.children, child)
	return nil
}

func (b *Base) Children() []Instruction {
	b.childMu.Lock()
	defer b.childMu.Unlock()
	out := make([]Instruction, len(b.children))
	copy(out, b.children)
	return out
}

func (b *Base) Status() Status {
	b.statusMu.Lock()
	defer b.statusMu.Unlock()
	return b.status
}

func (b *Base) setStatus(s Status) {
	b.statusMu.Lock()
	b.status = s
	b.statusMu.Unlock()
}

// Halted reports whether Halt has been called since the last Reset.
func (b *Base) Halted() bool { return b.halted.Load() }

// SetObserver installs an observability.Observer that receives an
// EventInstructionStatusChanged event on every status transition. Passing
// nil (the default) disables event emission entirely.
func (b *Base) SetObserver(obs observability.Observer) {
	b.obsMu.Lock()
	b.obs = obs
	b.obsMu.Unlock()
}

func (b *Base) emitStatusChanged(status Status) {
	b.obsMu.Lock()
	obs := b.obs
	b.obsMu.Unlock()
	if obs == nil {
		return
	}
	obs.OnEvent(context.Background(), observability.Event{
		Type:      EventInstructionStatusChanged,
		Level:     observability.LevelVerbose,
		Timestamp: time.Now(),
		Source:    b.typeName,
		Data:      map[string]any{"status": status.String()},
	})
}

// ExecuteSingle is the public tick entry point, implementing the
// preamble/body/postamble protocol.
func (b *Base) ExecuteSingle(ui UI, ws *workspace.Workspace) Status {
	// Preamble.
	if b.Status() == NotStarted {
		ok := true
		if b.hooks.Init != nil {
			ok = b.hooks.Init(ui, ws)
		}
		if ok {
			b.setStatus(NotFinished)
		} else {
			b.setStatus(Failure)
		}
		if ui != nil {
			ui.UpdateInstructionStatus(b.self, b.Status())
		}
		b.emitStatusChanged(b.Status())
	}

	beforeBody := b.Status()

	// Body.
	if beforeBody.NeedsExecute() && !b.halted.Load() {
		result := Failure
		if b.hooks.Execute != nil {
			result = b.hooks.Execute(ui, ws)
		}
		b.setStatus(result)
	}

	// Postamble.
	final := b.Status()
	if final != beforeBody {
		if ui != nil {
			ui.UpdateInstructionStatus(b.self, final)
		}
		b.emitStatusChanged(final)
	}
	return final
}

// Halt atomically sets the halt flag, closes the halt signal channel (so
// any goroutine blocked in HaltSignal wakes immediately), and invokes the
// hook, which for Decorator/Compound instructions propagates to children.
func (b *Base) Halt() {
	b.halted.Store(true)
	b.haltMu.Lock()
	select {
	case <-b.haltCh:
	default:
		close(b.haltCh)
	}
	b.haltMu.Unlock()
	if b.hooks.Halt != nil {
		b.hooks.Halt()
	}
}

// HaltSignal returns a channel closed when Halt is next called, for
// instructions (Wait, WaitForVariable, Listen) that need to wake a blocked
// tick without polling.
func (b *Base) HaltSignal() <-chan struct{} {
	b.haltMu.Lock()
	defer b.haltMu.Unlock()
	return b.haltCh
}

// Reset restores NOT_STARTED, clears the halt flag, replaces the halt
// signal channel, and notifies ui iff the status actually changed.
func (b *Base) Reset(ui UI) {
	if b.hooks.ResetHook != nil {
		b.hooks.ResetHook(ui)
	}
	b.halted.Store(false)
	b.haltMu.Lock()
	b.haltCh = make(chan struct{})
	b.haltMu.Unlock()
	before := b.Status()
	b.setStatus(NotStarted)
	if before != NotStarted {
		if ui != nil {
			ui.UpdateInstructionStatus(b.self, NotStarted)
		}
		b.emitStatusChanged(NotStarted)
	}
}

// NextInstructions returns the leaves that would execute on this
// instruction's next tick. A leaf with no NextLeaves hook is its own next
// instruction whenever it still needs ticking; Decorator/Compound types
// normally supply NextLeaves to forward into their children.
func (b *Base) NextInstructions() []Instruction {
	if b.hooks.NextLeaves != nil {
		return b.hooks.NextLeaves()
	}
	if b.category == Action && b.Status().ReadyForExecute() {
		return []Instruction{b.self}
	}
	return nil
}

// Setup validates attribute constraints, recurses into children, then
// invokes the type-specific setup hook (sub-procedure resolution,
// placeholder forwarding, etc). Children are set up before the hook so a
// Decorator/Compound's hook can assume its children are ready.
func (b *Base) Setup(ctx *SetupContext) error {
	if ok, failed := b.attrs.ValidateAttributes(b.constraints); !ok {
		return &SetupError{Kind: KindInstructionSetup, Subject: b.typeName, Failures: failed}
	}
	if missing := b.attrs.ValidateMandatory(); len(missing) > 0 {
		return &SetupError{Kind: KindInstructionSetup, Subject: b.typeName, Failures: mandatoryMessages(missing)}
	}
	for _, child := range b.Children() {
		if err := child.Setup(ctx); err != nil {
			return err
		}
	}
	if b.hooks.Setup != nil {
		return b.hooks.Setup(ctx)
	}
	return nil
}

func mandatoryMessages(names []string) []string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = fmt.Sprintf("mandatory attribute %q not set", n)
	}
	return out
}
