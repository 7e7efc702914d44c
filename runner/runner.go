// Package runner implements the single-tick driver from a
// Runner owns a procedure, a UI, a tick callback, and a breakpoint set,
// and exposes execute_single/execute_procedure over them. The iterate-
// until-terminal-or-cancelled shape (a context check at the top of every
// loop, a running iteration count) follows
// orchestrate/state/graph.go's stateGraph.execute loop.
package runner

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/oac-tree/sequencer/instruction"
	"github.com/oac-tree/sequencer/procedure"
)

// TickFunc is invoked after every completed tick, with the procedure's
// post-tick status.
type TickFunc func(p *procedure.Procedure, status instruction.Status)

// BreakpointObserver is notified whenever a breakpoint transitions
// between its set and released states.
type BreakpointObserver func(instr instruction.Instruction, released bool)

// Runner drives a single Procedure one tick at a time. Exactly one
// goroutine may call ExecuteSingle/ExecuteProcedure on a given Runner at
// once; callers above (package job) are responsible for that invariant.
type Runner struct {
	proc *procedure.Procedure
	ui   instruction.UI

	onTick       TickFunc
	onBreakpoint BreakpointObserver

	mu          sync.Mutex
	breakpoints map[instruction.Instruction]bool // true = set (armed), false = released

	pauseRequested atomic.Bool
	yieldWhenIdle  bool
}

// Option configures a Runner at construction.
type Option func(*Runner)

// WithTickCallback installs the post-tick callback.
func WithTickCallback(fn TickFunc) Option {
	return func(r *Runner) { r.onTick = fn }
}

// WithBreakpointObserver installs the breakpoint transition callback.
func WithBreakpointObserver(fn BreakpointObserver) Option {
	return func(r *Runner) { r.onBreakpoint = fn }
}

// WithYieldWhenIdle controls whether a tick with no tickTimeout yields the
// goroutine via runtime.Gosched() (true, the default) or spins straight
// into the next tick (false) — config.RunnerConfig exposes this as the
// *bool-plus-accessor field described in config's doc comment.
func WithYieldWhenIdle(yield bool) Option {
	return func(r *Runner) { r.yieldWhenIdle = yield }
}

// New constructs a Runner bound to proc and ui.
func New(proc *procedure.Procedure, ui instruction.UI, opts ...Option) *Runner {
	r := &Runner{
		proc:          proc,
		ui:            ui,
		breakpoints:   make(map[instruction.Instruction]bool),
		yieldWhenIdle: true,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RequestPause arms the pause flag; the next ExecuteSingle (or the loop in
// ExecuteProcedure) observes it and returns without ticking.
func (r *Runner) RequestPause() { r.pauseRequested.Store(true) }

// ClearPause disarms the pause flag.
func (r *Runner) ClearPause() { r.pauseRequested.Store(false) }

// reachable collects every instruction in the tree rooted at root.
func reachable(root instruction.Instruction) map[instruction.Instruction]bool {
	seen := make(map[instruction.Instruction]bool)
	var walk func(instruction.Instruction)
	walk = func(instr instruction.Instruction) {
		if instr == nil || seen[instr] {
			return
		}
		seen[instr] = true
		for _, c := range instr.Children() {
			walk(c)
		}
	}
	walk(root)
	return seen
}

// SetBreakpoint arms a breakpoint at instr, which must be reachable from
// the procedure's current root; otherwise the call fails loudly.
func (r *Runner) SetBreakpoint(instr instruction.Instruction) error {
	root := r.proc.RootInstruction()
	if root == nil || !reachable(root)[instr] {
		return fmt.Errorf("runner: breakpoint target is not reachable from the procedure's root")
	}
	r.mu.Lock()
	r.breakpoints[instr] = true
	r.mu.Unlock()
	return nil
}

// RemoveBreakpoint disarms and forgets a breakpoint at instr.
func (r *Runner) RemoveBreakpoint(instr instruction.Instruction) {
	r.mu.Lock()
	delete(r.breakpoints, instr)
	r.mu.Unlock()
}

// atBreakpoint reports whether any of the procedure's next leaves sits at
// a currently-armed breakpoint, releasing it as a side effect so the
// set → released transition fires exactly once per arrival.
func (r *Runner) atBreakpoint(next []instruction.Instruction) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	hit := false
	for _, n := range next {
		if set, ok := r.breakpoints[n]; ok && set {
			r.breakpoints[n] = false
			if r.onBreakpoint != nil {
				r.onBreakpoint(n, true)
			}
			hit = true
		}
	}
	return hit
}

// rearm re-arms every released breakpoint once the tick has advanced past
// the leaves that triggered them, so the same breakpoint can fire again
// on a later pass (e.g. inside a Repeat).
func (r *Runner) rearm(next []instruction.Instruction) {
	r.mu.Lock()
	defer r.mu.Unlock()
	inNext := make(map[instruction.Instruction]bool, len(next))
	for _, n := range next {
		inNext[n] = true
	}
	for instr, set := range r.breakpoints {
		if !set && !inNext[instr] {
			r.breakpoints[instr] = true
		}
	}
}

// ExecuteSingle runs exactly one tick, honoring pause and breakpoints. It
// returns the procedure's status after the tick, or its current status
// unchanged if the tick was skipped because of a pause or a breakpoint.
func (r *Runner) ExecuteSingle() instruction.Status {
	if r.pauseRequested.Load() {
		return r.proc.Status()
	}

	start := time.Now()
	status := r.proc.ExecuteSingle(r.ui)
	if r.onTick != nil {
		r.onTick(r.proc, status)
	}

	root := r.proc.RootInstruction()
	var next []instruction.Instruction
	if root != nil {
		next = root.NextInstructions()
	}
	r.rearm(next)
	if !status.IsFinished() {
		r.atBreakpoint(next)
	}

	if tt := r.proc.TickTimeout(); tt > 0 {
		deadline := start.Add(time.Duration(tt * float64(time.Second)))
		if remaining := time.Until(deadline); remaining > 0 {
			time.Sleep(remaining)
		}
	} else if r.yieldWhenIdle {
		runtime.Gosched()
	}
	return status
}

// ExecuteProcedure loops ExecuteSingle until the procedure reaches a
// terminal status, a pause is requested, or ctx is cancelled.
func (r *Runner) ExecuteProcedure(ctx context.Context) instruction.Status {
	for {
		if err := ctx.Err(); err != nil {
			return r.proc.Status()
		}
		if r.pauseRequested.Load() {
			return r.proc.Status()
		}
		status := r.ExecuteSingle()
		if status.IsFinished() {
			return status
		}
	}
}

// Halt propagates to the underlying procedure.
func (r *Runner) Halt() { r.proc.Halt() }

// Procedure returns the runner's bound procedure.
func (r *Runner) Procedure() *procedure.Procedure { return r.proc }
