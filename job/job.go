// Package job implements the JobController/AsyncRunner state machine from
// a controller owns a *runner.Runner plus a dedicated worker
// goroutine, started and torn down per Start/Step call the way
// orchestrate/hub/hub.go spins up its messageLoop goroutine in New and
// tears it down through a cancel signal observed by the loop, rather
// than through any blocking join on every command.
package job

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/oac-tree/sequencer/instruction"
	"github.com/oac-tree/sequencer/observability"
	"github.com/oac-tree/sequencer/runner"
)

// EventJobStateChanged is emitted through the controller's Observability
// observer on every job state transition, alongside the domain-specific
// Observer callback.
const EventJobStateChanged observability.EventType = "job.state.changed"

// State is one of the JobController's seven states.
type State int

const (
	Initial State = iota
	Paused
	Stepping
	Running
	Succeeded
	Failed
	Halted
)

func (s State) String() string {
	switch s {
	case Initial:
		return "Initial"
	case Paused:
		return "Paused"
	case Stepping:
		return "Stepping"
	case Running:
		return "Running"
	case Succeeded:
		return "Succeeded"
	case Failed:
		return "Failed"
	case Halted:
		return "Halted"
	default:
		return "Unknown"
	}
}

// IsTerminal reports whether s is one of Succeeded/Failed/Halted.
func (s State) IsTerminal() bool { return s == Succeeded || s == Failed || s == Halted }

// Observer receives job state transitions, called synchronously from the
// goroutine that makes the transition (the caller of Start, Step, Halt or
// Reset, or the worker goroutine): it must not block indefinitely or call
// back into the Controller.
type Observer func(State)

// Controller drives a Runner through the job state machine.
type Controller struct {
	r  *runner.Runner
	ui instruction.UI

	name     string
	observer Observer
	obs      observability.Observer

	mu    sync.Mutex
	state State

	pauseRequested atomic.Bool
	haltRequested  atomic.Bool
	workerActive   atomic.Bool
}

// Option configures a Controller at construction.
type Option func(*Controller)

// WithName sets the job's name, used only as the observability event
// source.
func WithName(name string) Option {
	return func(c *Controller) { c.name = name }
}

// WithObservability installs an observability.Observer that receives an
// EventJobStateChanged event on every transition, independent of the
// domain-specific Observer callback.
func WithObservability(obs observability.Observer) Option {
	return func(c *Controller) { c.obs = obs }
}

// New constructs a Controller in the Initial state.
func New(r *runner.Runner, ui instruction.UI, observer Observer, opts ...Option) *Controller {
	c := &Controller{r: r, ui: ui, observer: observer, state: Initial}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// State returns the controller's current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Controller) transition(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
	if c.observer != nil {
		c.observer(s)
	}
	if c.obs != nil {
		c.obs.OnEvent(context.Background(), observability.Event{
			Type:      EventJobStateChanged,
			Level:     observability.LevelInfo,
			Timestamp: time.Now(),
			Source:    c.name,
			Data:      map[string]any{"state": s.String()},
		})
	}
}

// Start moves Initial/Paused to Running and launches the tick loop on a
// dedicated goroutine.
func (c *Controller) Start() error {
	c.mu.Lock()
	if c.state != Initial && c.state != Paused {
		s := c.state
		c.mu.Unlock()
		return fmt.Errorf("job: Start not legal from state %s", s)
	}
	c.mu.Unlock()

	c.pauseRequested.Store(false)
	c.r.ClearPause()
	c.transition(Running)
	go c.runLoop(false)
	return nil
}

// Step moves Initial/Paused to Stepping and runs exactly one tick before
// returning to Paused (or a terminal state).
func (c *Controller) Step() error {
	c.mu.Lock()
	if c.state != Initial && c.state != Paused {
		s := c.state
		c.mu.Unlock()
		return fmt.Errorf("job: Step not legal from state %s", s)
	}
	c.mu.Unlock()

	c.transition(Stepping)
	go c.runLoop(true)
	return nil
}

// runLoop is the worker: it ticks the runner until a terminal status, a
// halt request, or (outside single-step mode) a pause request.
func (c *Controller) runLoop(singleStep bool) {
	c.workerActive.Store(true)
	defer c.workerActive.Store(false)

	for {
		if c.haltRequested.Load() {
			c.r.Halt()
			c.transition(Halted)
			return
		}

		status := c.r.ExecuteSingle()

		if c.haltRequested.Load() {
			c.r.Halt()
			c.transition(Halted)
			return
		}
		if status.IsFinished() {
			if status == instruction.Success {
				c.transition(Succeeded)
			} else {
				c.transition(Failed)
			}
			return
		}
		if singleStep {
			c.transition(Paused)
			return
		}
		if c.pauseRequested.Load() {
			c.transition(Paused)
			return
		}
	}
}

// Pause requests a pause; legal only while the worker is actually ticking
// (Running/Stepping). The worker observes the request between ticks.
func (c *Controller) Pause() error {
	c.mu.Lock()
	s := c.state
	c.mu.Unlock()
	if s != Running && s != Stepping {
		return fmt.Errorf("job: Pause not legal from state %s", s)
	}
	c.pauseRequested.Store(true)
	c.r.RequestPause()
	return nil
}

// Halt calls procedure.halt()/runner.halt() and drives the controller to
// Halted. Legal from any non-terminal state.
func (c *Controller) Halt() error {
	c.mu.Lock()
	s := c.state
	c.mu.Unlock()
	if s.IsTerminal() {
		return fmt.Errorf("job: Halt not legal from terminal state %s", s)
	}
	c.haltRequested.Store(true)
	c.r.Halt()
	if !c.workerActive.Load() {
		// No worker loop is running to observe the flag (Initial/Paused):
		// the transition happens here instead.
		c.transition(Halted)
	}
	return nil
}

// Reset calls procedure.reset(ui) and returns the controller to Initial.
// Legal from Halted/Succeeded/Failed/Paused/Initial.
func (c *Controller) Reset() error {
	c.mu.Lock()
	s := c.state
	c.mu.Unlock()
	switch s {
	case Halted, Succeeded, Failed, Paused, Initial:
	default:
		return fmt.Errorf("job: Reset not legal from state %s", s)
	}
	c.pauseRequested.Store(false)
	c.haltRequested.Store(false)
	c.r.ClearPause()
	c.r.Procedure().Reset(c.ui)
	c.transition(Initial)
	return nil
}

// SetBreakpoint and RemoveBreakpoint may be called in any state; they
// only affect ticking while Running/Stepping.
func (c *Controller) SetBreakpoint(instr instruction.Instruction) error {
	return c.r.SetBreakpoint(instr)
}

func (c *Controller) RemoveBreakpoint(instr instruction.Instruction) {
	c.r.RemoveBreakpoint(instr)
}
