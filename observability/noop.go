package observability

import "context"

// NoOpObserver discards all events with zero overhead. It is the default
// Observer wired into a job.Controller, Workspace, or instruction.Base when
// no config.RunnerConfig.Observer name is set.
type NoOpObserver struct{}

func (NoOpObserver) OnEvent(ctx context.Context, event Event) {}
