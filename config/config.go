// Package config follows orchestrate/config's layered-configuration
// pattern for the runner/job subsystem: every constructible component
// takes a Config struct with a Default*Config constructor and a
// Merge(*Config) method, so a loaded document can be merged field-by-field
// onto defaults rather than replacing them wholesale.
package config

import "time"

// RunnerConfig configures a runner.Runner.
type RunnerConfig struct {
	// TickTimeout is loaded and merged like the other fields, but nothing
	// applies it: runner.Runner paces ticks from the procedure's own
	// tickTimeout (procedure.WithTickTimeout), not from this field.
	TickTimeout time.Duration `json:"tick_timeout,omitempty"`

	// YieldWhenIdleNil controls whether an unpaced tick yields the
	// goroutine via runtime.Gosched(). Defaults to true; it is a *bool
	// read through YieldWhenIdle() because a plain bool could not tell an
	// omitted field from an explicit false.
	YieldWhenIdleNil *bool `json:"yield_when_idle,omitempty"`

	// Observer names a registered observability.Observer to attach to
	// the job built from this runner ("noop", "slog", ...).
	Observer string `json:"observer,omitempty"`

	// BreakpointSeeds names instructions (by their "name" attribute, per
	// procedure's path-traversal convention). The list is loaded and
	// merged only; nothing arms these names as breakpoints.
	BreakpointSeeds []string `json:"breakpoint_seeds,omitempty"`
}

// DefaultRunnerConfig returns a RunnerConfig with no pacing, yielding
// enabled, and the noop observer.
func DefaultRunnerConfig() RunnerConfig {
	return RunnerConfig{
		Observer: "noop",
	}
}

// YieldWhenIdle reports whether an unpaced tick should yield the
// goroutine, defaulting to true when unset.
func (c *RunnerConfig) YieldWhenIdle() bool {
	if c.YieldWhenIdleNil == nil {
		return true
	}
	return *c.YieldWhenIdleNil
}

// Merge applies non-zero values from source into c.
func (c *RunnerConfig) Merge(source *RunnerConfig) {
	if source.TickTimeout > 0 {
		c.TickTimeout = source.TickTimeout
	}
	if source.YieldWhenIdleNil != nil {
		c.YieldWhenIdleNil = source.YieldWhenIdleNil
	}
	if source.Observer != "" {
		c.Observer = source.Observer
	}
	if len(source.BreakpointSeeds) > 0 {
		c.BreakpointSeeds = source.BreakpointSeeds
	}
}

// JobConfig configures a job.Controller and the Runner beneath it.
type JobConfig struct {
	Name   string       `json:"name,omitempty"`
	Runner RunnerConfig `json:"runner"`
}

// DefaultJobConfig returns a JobConfig with a generic name and the
// runner's defaults.
func DefaultJobConfig() JobConfig {
	return JobConfig{
		Name:   "job",
		Runner: DefaultRunnerConfig(),
	}
}

// Merge applies non-zero values from source into c, delegating to the
// Runner section's own Merge.
func (c *JobConfig) Merge(source *JobConfig) {
	if source.Name != "" {
		c.Name = source.Name
	}
	c.Runner.Merge(&source.Runner)
}
