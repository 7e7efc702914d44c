package instructions

import (
	"sync/atomic"
	"time"

	"github.com/oac-tree/sequencer/attrs"
	"github.com/oac-tree/sequencer/instruction"
	"github.com/oac-tree/sequencer/workspace"
)

// waitPollInterval is how often Wait rechecks its halt signal while
// sleeping out its timeout ("sleeps in coarse chunks,
// checking the halt flag between chunks, rather than blocking
// uninterruptibly for the full duration").
const waitPollInterval = 5 * time.Millisecond

// waitOut blocks for seconds, in chunks of waitPollInterval, returning
// FAILURE early if halted signals before the deadline.
func waitOut(seconds float64, halted <-chan struct{}) instruction.Status {
	if seconds <= 0 {
		return instruction.Success
	}
	deadline := time.Now().Add(time.Duration(seconds * float64(time.Second)))
	for {
		select {
		case <-halted:
			return instruction.Failure
		default:
		}
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return instruction.Success
		}
		chunk := waitPollInterval
		if remaining < chunk {
			chunk = remaining
		}
		timer := time.NewTimer(chunk)
		select {
		case <-halted:
			timer.Stop()
			return instruction.Failure
		case <-timer.C:
		}
	}
}

// globalCounter backs the Counter test instruction's shared, process-wide
// tally ("a diagnostic counter used by test procedures").
var globalCounter int64

// GlobalCounterValue returns the current value of the shared counter.
func GlobalCounterValue() int64 { return atomic.LoadInt64(&globalCounter) }

// ResetGlobalCounter zeroes the shared counter, for test isolation between
// procedure runs.
func ResetGlobalCounter() { atomic.StoreInt64(&globalCounter, 0) }

// Counter increments the shared diagnostic counter by its incr attribute
// (default 1) and always succeeds.
type Counter struct{ *instruction.Base }

func NewCounter() *Counter {
	c := &Counter{}
	c.Base = instruction.NewBase(c, "Counter", instruction.Action, instruction.Hooks{Execute: c.execute})
	c.Attributes().Define("incr", attrs.Definition{Category: attrs.Literal, Type: "int"})
	return c
}

func (c *Counter) execute(ui instruction.UI, ws *workspace.Workspace) instruction.Status {
	incr := int64(1)
	if v, ok := c.GetAttributeValue("incr", ws, ui); ok && !v.IsEmpty() {
		if idx, err := v.ToIndex(); err == nil {
			incr = int64(idx)
		}
	}
	atomic.AddInt64(&globalCounter, incr)
	return instruction.Success
}
