// Package procedure implements the root container: a Procedure owns an
// ordered list of top-level instruction trees and a
// Workspace, selects a root instruction, and resolves sub-procedure
// references for Include/IncludeProcedure/CopyFromProcedure/
// CopyToProcedure. Construction is programmatic (push/insert/take); XML
// loading of procedures is explicitly out of scope, so the
// preamble here is a plain structural record rather than a parser.
package procedure

import (
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/oac-tree/sequencer/anyvalue"
	"github.com/oac-tree/sequencer/instruction"
	"github.com/oac-tree/sequencer/observability"
	"github.com/oac-tree/sequencer/registry"
	"github.com/oac-tree/sequencer/variable"
	"github.com/oac-tree/sequencer/workspace"
)

// defaultTimingAccuracy mirrors instructions.waitPollInterval's 5ms chunk,
// since both describe the same "a few ms" scheduling granularity.
const defaultTimingAccuracy = 0.005

// TypeRegistration records a <RegisterType> preamble entry:
// exactly one of JSONType/JSONFile is set. Carried as data only — this
// repo never parses the referenced JSON, since the workspace's dynamic
// type registry described alongside it is a separate, unimplemented
// concern and XML/type-registry loading is out of scope.
type TypeRegistration struct {
	JSONType string
	JSONFile string
}

// Preamble is the structural record of a procedure's non-instruction,
// non-workspace declarations: plug-in paths and type registrations.
// Plug-in paths are stored for inspection/display only — Go has no
// equivalent to a dynamic host library loader, so loading a
// plug-in is left to the embedding application.
type Preamble struct {
	PluginPaths       []string
	TypeRegistrations []TypeRegistration
}

// Option configures a Procedure at construction via the functional-options
// pattern.
type Option func(*Procedure)

// WithTickTimeout sets the tickTimeout attribute (seconds; 0 means the
// runner yields instead of sleeping between ticks).
func WithTickTimeout(seconds float64) Option {
	return func(p *Procedure) { p.tickTimeout = seconds }
}

// WithTimingAccuracy sets the timingAccuracy attribute (seconds).
func WithTimingAccuracy(seconds float64) Option {
	return func(p *Procedure) { p.timingAccuracy = seconds }
}

// WithPreamble installs the procedure's preamble record.
func WithPreamble(p2 Preamble) Option {
	return func(p *Procedure) { p.preamble = p2 }
}

// WithInstructionRegistry overrides the registry used to clone
// instructions for Include/IncludeProcedure resolution; defaults to
// registry.Instructions(), the process-wide global.
func WithInstructionRegistry(reg *registry.InstructionRegistry) Option {
	return func(p *Procedure) { p.instrRegistry = reg }
}

// Procedure is the root container holding the instruction tree, the
// workspace, and the preamble declarations.
type Procedure struct {
	id   uuid.UUID
	name string

	tickTimeout    float64
	timingAccuracy float64
	preamble       Preamble

	workspace *workspace.Workspace

	mu       sync.RWMutex
	topLevel []instruction.Instruction

	instrRegistry *registry.InstructionRegistry

	subMu         sync.RWMutex
	subProcedures map[string]*Procedure
}

// New constructs an empty Procedure with its own Workspace.
func New(name string, opts ...Option) *Procedure {
	p := &Procedure{
		id:             uuid.New(),
		name:           name,
		timingAccuracy: defaultTimingAccuracy,
		workspace:      workspace.New(),
		instrRegistry:  registry.Instructions(),
		subProcedures:  make(map[string]*Procedure),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ID returns the procedure's instance identifier, minted once at
// construction (uuid.New(), matching state.New's RunID minting).
func (p *Procedure) ID() uuid.UUID { return p.id }

// Name returns the procedure's name attribute.
func (p *Procedure) Name() string { return p.name }

// TickTimeout returns the configured tick timeout in seconds.
func (p *Procedure) TickTimeout() float64 { return p.tickTimeout }

// TimingAccuracy returns the configured timing accuracy in seconds.
func (p *Procedure) TimingAccuracy() float64 { return p.timingAccuracy }

// GetPreamble returns the procedure's preamble record.
func (p *Procedure) GetPreamble() Preamble { return p.preamble }

// GetWorkspace returns the procedure's workspace.
func (p *Procedure) GetWorkspace() *workspace.Workspace { return p.workspace }

// AddVariable adds a variable to the procedure's workspace.
func (p *Procedure) AddVariable(name string, v variable.Variable) error {
	return p.workspace.AddVariable(name, v)
}

// GetVariableValue reads path from the procedure's workspace.
func (p *Procedure) GetVariableValue(path string) (anyvalue.Value, error) {
	return p.workspace.GetValue(path)
}

// AddSubProcedure registers another Procedure under file, so Include,
// IncludeProcedure, CopyFromProcedure, and CopyToProcedure instructions
// naming that file at setup time can reach it. This is the programmatic
// equivalent of the XML loader resolving a sibling procedure document.
func (p *Procedure) AddSubProcedure(file string, sub *Procedure) {
	p.subMu.Lock()
	defer p.subMu.Unlock()
	p.subProcedures[file] = sub
}

// PushInstruction appends instr as a new top-level tree.
func (p *Procedure) PushInstruction(instr instruction.Instruction) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.topLevel = append(p.topLevel, instr)
}

// InsertInstruction inserts instr at idx among the top-level trees.
func (p *Procedure) InsertInstruction(idx int, instr instruction.Instruction) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if idx < 0 || idx > len(p.topLevel) {
		return fmt.Errorf("procedure: insert index %d out of range [0, %d]", idx, len(p.topLevel))
	}
	p.topLevel = append(p.topLevel, nil)
	copy(p.topLevel[idx+1:], p.topLevel[idx:])
	p.topLevel[idx] = instr
	return nil
}

// TakeInstruction removes and returns the top-level tree at idx.
func (p *Procedure) TakeInstruction(idx int) (instruction.Instruction, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if idx < 0 || idx >= len(p.topLevel) {
		return nil, fmt.Errorf("procedure: take index %d out of range [0, %d)", idx, len(p.topLevel))
	}
	instr := p.topLevel[idx]
	p.topLevel = append(p.topLevel[:idx], p.topLevel[idx+1:]...)
	return instr, nil
}

// TopLevelInstructions returns the procedure's top-level trees in order.
func (p *Procedure) TopLevelInstructions() []instruction.Instruction {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]instruction.Instruction, len(p.topLevel))
	copy(out, p.topLevel)
	return out
}

// isRootTruthy reports whether raw marks a top-level instruction as the
// root fixed truthy-string set.
func isRootTruthy(raw string) bool {
	switch raw {
	case "Yes", "True", "yes", "true", "1":
		return true
	default:
		return false
	}
}

// RootInstruction selects the root: the first top-level
// instruction with a truthy isRoot attribute, or the first top-level
// instruction if none is marked.
func (p *Procedure) RootInstruction() instruction.Instruction {
	p.mu.RLock()
	defer p.mu.RUnlock()
	for _, instr := range p.topLevel {
		if raw, ok := instr.Attributes().Raw("isRoot"); ok && isRootTruthy(raw) {
			return instr
		}
	}
	if len(p.topLevel) == 0 {
		return nil
	}
	return p.topLevel[0]
}

// SetObserver installs an observability.Observer on the procedure's
// workspace and on every instruction reachable from its top-level trees,
// so variable updates and instruction tick status changes are reported
// alongside job-level state transitions. Passing nil disables event
// emission for the whole tree.
func (p *Procedure) SetObserver(obs observability.Observer) {
	p.workspace.SetObserver(obs)
	p.mu.RLock()
	roots := make([]instruction.Instruction, len(p.topLevel))
	copy(roots, p.topLevel)
	p.mu.RUnlock()
	for _, root := range roots {
		setObserverRecursive(root, obs)
	}
}

func setObserverRecursive(instr instruction.Instruction, obs observability.Observer) {
	if instr == nil {
		return
	}
	instr.SetObserver(obs)
	for _, child := range instr.Children() {
		setObserverRecursive(child, obs)
	}
}

// Setup runs workspace setup (deduplicated shared setup actions), then
// walks the selected root's instruction tree fixed order.
// Other top-level trees are left unset-up: they only ever serve as Include
// clone sources, and Include sets up the clone itself.
func (p *Procedure) Setup() error {
	if err := p.workspace.Setup(); err != nil {
		return &instruction.SetupError{Kind: instruction.KindVariableSetup, Subject: p.name, Cause: err}
	}
	root := p.RootInstruction()
	if root == nil {
		return &instruction.SetupError{Kind: instruction.KindProcedureSetup, Subject: p.name,
			Failures: []string{"no root instruction"}}
	}
	ctx := &instruction.SetupContext{Workspace: p.workspace, Procedure: p}
	if err := root.Setup(ctx); err != nil {
		return &instruction.SetupError{Kind: instruction.KindProcedureSetup, Subject: p.name, Cause: err}
	}
	return nil
}

// ExecuteSingle ticks the root instruction once.
func (p *Procedure) ExecuteSingle(ui instruction.UI) instruction.Status {
	root := p.RootInstruction()
	if root == nil {
		return instruction.Failure
	}
	return root.ExecuteSingle(ui, p.workspace)
}

// Status returns the root instruction's current status, or NOT_STARTED if
// there is no root yet.
func (p *Procedure) Status() instruction.Status {
	root := p.RootInstruction()
	if root == nil {
		return instruction.NotStarted
	}
	return root.Status()
}

// Halt propagates a halt to the root instruction.
func (p *Procedure) Halt() {
	if root := p.RootInstruction(); root != nil {
		root.Halt()
	}
}

// Reset resets the root instruction.
func (p *Procedure) Reset(ui instruction.UI) {
	if root := p.RootInstruction(); root != nil {
		root.Reset(ui)
	}
}

// findTopLevel locates a top-level instruction by its "name" attribute.
func (p *Procedure) findTopLevel(name string) (instruction.Instruction, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	for _, instr := range p.topLevel {
		if n, ok := instr.Attributes().Raw("name"); ok && n == name {
			return instr, true
		}
	}
	return nil, false
}

// findNamedChild locates one of instr's direct children by its "name"
// attribute.
func findNamedChild(instr instruction.Instruction, name string) (instruction.Instruction, bool) {
	for _, c := range instr.Children() {
		if n, ok := c.Attributes().Raw("name"); ok && n == name {
			return c, true
		}
	}
	return nil, false
}

// ResolveWorkspace implements instruction.ProcedureContext: "" resolves to
// this procedure's own workspace, otherwise the named sub-procedure's.
func (p *Procedure) ResolveWorkspace(file string) (*workspace.Workspace, error) {
	if file == "" {
		return p.workspace, nil
	}
	p.subMu.RLock()
	sub, ok := p.subProcedures[file]
	p.subMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("procedure: no sub-procedure registered under file %q", file)
	}
	return sub.workspace, nil
}

// ResolveInstruction implements instruction.ProcedureContext: resolves
// path (dot-separated instruction names, traversing from a top-level tree
// down through named children) within file ("" means this procedure), and
// returns a fresh clone built through the instruction registry (attributes
// copied, children cloned recursively) — never the live instruction itself, since a
// resolved subtree may be spliced into several places.
func (p *Procedure) ResolveInstruction(file, path string) (instruction.Instruction, error) {
	target := p
	if file != "" {
		p.subMu.RLock()
		sub, ok := p.subProcedures[file]
		p.subMu.RUnlock()
		if !ok {
			return nil, fmt.Errorf("procedure: no sub-procedure registered under file %q", file)
		}
		target = sub
	}

	var source instruction.Instruction
	if path == "" {
		source = target.RootInstruction()
		if source == nil {
			return nil, fmt.Errorf("procedure: %q has no root instruction to resolve", file)
		}
	} else {
		segments := strings.Split(path, ".")
		current, ok := target.findTopLevel(segments[0])
		if !ok {
			return nil, fmt.Errorf("procedure: no top-level instruction named %q", segments[0])
		}
		for _, seg := range segments[1:] {
			current, ok = findNamedChild(current, seg)
			if !ok {
				return nil, fmt.Errorf("procedure: no child named %q under path %q", seg, path)
			}
		}
		source = current
	}
	return cloneInstruction(source, p.instrRegistry)
}

// cloneInstruction builds a fresh instruction tree of the same shape as
// src: a new instance of each node's type (via the registry, so no
// concrete instruction type needs its own hand-written Clone method),
// its attributes copied verbatim, and its children cloned recursively.
func cloneInstruction(src instruction.Instruction, reg *registry.InstructionRegistry) (instruction.Instruction, error) {
	clone, err := reg.New(src.TypeName())
	if err != nil {
		return nil, fmt.Errorf("procedure: cloning %s: %w", src.TypeName(), err)
	}
	for _, name := range src.Attributes().Names() {
		raw, _ := src.Attributes().Raw(name)
		clone.Attributes().AddAttribute(name, raw)
	}
	for _, child := range src.Children() {
		childClone, err := cloneInstruction(child, reg)
		if err != nil {
			return nil, err
		}
		if err := clone.AddChild(childClone); err != nil {
			return nil, fmt.Errorf("procedure: cloning %s: %w", src.TypeName(), err)
		}
	}
	return clone, nil
}
