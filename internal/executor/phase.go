package executor

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// PhaseExecutor runs the tasks of one phase in waves of at most cap tasks.
// A wave fully drains before the next starts.
type PhaseExecutor struct {
	runner *TaskRunner
}

func NewPhaseExecutor(runner *TaskRunner) *PhaseExecutor {
	return &PhaseExecutor{runner: runner}
}

// RunPhase returns one result per task, in the order tasks were given.
func (p *PhaseExecutor) RunPhase(ctx context.Context, tasks []PlannedTask, prior []PhaseResults, concurrencyCap int) []ExecutionResult {
	if concurrencyCap < 1 {
		concurrencyCap = 1
	}
	results := make([]ExecutionResult, len(tasks))

	for waveStart := 0; waveStart < len(tasks); waveStart += concurrencyCap {
		waveEnd := min(waveStart+concurrencyCap, len(tasks))
		logDebug("starting wave", "wave_start", waveStart, "wave_size", waveEnd-waveStart)

		var g errgroup.Group
		for i := waveStart; i < waveEnd; i++ {
			g.Go(func() error {
				results[i] = p.runner.Run(ctx, tasks[i], prior, i-waveStart)
				return nil
			})
		}
		_ = g.Wait()
	}

	return results
}
