package executor

import (
	"context"
	"fmt"
	"time"
)

// Deps are the collaborators an Engine consumes. Any of Prompts, Budget, and
// Mutator may be nil: agents then fall back to the default, the budget is
// unchecked, and actions fail with "content mutator not configured".
type Deps struct {
	Provider ProviderClient
	Prompts  PromptStore
	Budget   BudgetTracker
	Mutator  ContentMutator
}

// Option customises an Engine.
type Option func(*engineOptions)

type engineOptions struct {
	stagger time.Duration
	now     func() time.Time
	sleep   func(context.Context, time.Duration)
}

// WithStagger sets the per-position start delay inside a wave.
func WithStagger(d time.Duration) Option {
	return func(o *engineOptions) {
		if d >= 0 {
			o.stagger = d
		}
	}
}

// WithClock overrides time.Now for execution timing.
func WithClock(now func() time.Time) Option {
	return func(o *engineOptions) {
		if now != nil {
			o.now = now
		}
	}
}

// WithSleep overrides how stagger delays are waited out.
func WithSleep(sleep func(context.Context, time.Duration)) Option {
	return func(o *engineOptions) {
		if sleep != nil {
			o.sleep = sleep
		}
	}
}

// Engine runs a batch of prompt tasks phase by phase.
type Engine struct {
	phases *PhaseExecutor
	now    func() time.Time
}

func NewEngine(deps Deps, opts ...Option) *Engine {
	o := engineOptions{stagger: defaultStagger, now: time.Now, sleep: sleepContext}
	for _, opt := range opts {
		opt(&o)
	}
	runner := newTaskRunner(deps, o.stagger, o.now, o.sleep)
	return &Engine{phases: NewPhaseExecutor(runner), now: o.now}
}

// Run validates the batch, executes every phase in ascending sequence order,
// and aggregates the results. Only *BatchValidationError is returned; task
// failures are reported inside the BatchReport.
func (e *Engine) Run(ctx context.Context, tasks []PromptTask, opts RunOptions) (*BatchReport, error) {
	if len(tasks) == 0 {
		return nil, &BatchValidationError{Err: ErrEmptyBatch}
	}
	if opts.ConcurrencyCap < 1 {
		return nil, &BatchValidationError{Err: ErrInvalidConcurrency, Cap: opts.ConcurrencyCap}
	}

	phases := PlanPhases(normalizeIDs(tasks))
	if largest, ok := largestPhase(phases); ok && len(largest.Tasks) > opts.ConcurrencyCap {
		err := &BatchValidationError{
			Err:           ErrPhaseExceedsCap,
			PhaseSequence: largest.Sequence,
			PhaseSize:     len(largest.Tasks),
			Cap:           opts.ConcurrencyCap,
		}
		logError("batch rejected", "error", err)
		return nil, err
	}

	logInfo("batch started", "tasks", len(tasks), "phases", len(phases), "concurrency", opts.ConcurrencyCap, "merge", opts.MergeResponses)
	start := e.now()

	completed := make([]PhaseResults, 0, len(phases))
	all := make([]ExecutionResult, 0, len(tasks))
	for _, phase := range phases {
		results := e.phases.RunPhase(ctx, phase.Tasks, completed, opts.ConcurrencyCap)
		completed = append(completed, PhaseResults{Sequence: phase.Sequence, Results: results})
		all = append(all, results...)
		logInfo("phase completed", "sequence", phase.Sequence, "tasks", len(phase.Tasks), "failed", countFailed(results))
	}

	elapsed := e.now().Sub(start).Milliseconds()
	report := Aggregate(all, opts.MergeResponses, elapsed)
	logInfo("batch finished", "executed", report.Stats.TasksExecuted, "failed", report.Stats.TasksFailed, "duration_ms", elapsed)
	return report, nil
}

// Execute is Run wrapped in the success/error envelope used by tool layers.
func (e *Engine) Execute(ctx context.Context, tasks []PromptTask, opts RunOptions) Envelope {
	report, err := e.Run(ctx, tasks, opts)
	if err != nil {
		return Envelope{Success: false, Error: err.Error()}
	}
	return Envelope{Success: true, Report: report}
}

// normalizeIDs copies tasks and gives every task without an id a positional
// one ("step-N", 1-based). A positional id already used by another task gets
// a "-2", "-3", ... suffix instead.
func normalizeIDs(tasks []PromptTask) []PromptTask {
	out := make([]PromptTask, len(tasks))
	copy(out, tasks)

	taken := make(map[string]bool, len(out))
	for _, t := range out {
		if t.ID != "" {
			taken[t.ID] = true
		}
	}
	for i := range out {
		if out[i].ID != "" {
			continue
		}
		base := fmt.Sprintf("step-%d", i+1)
		id := base
		for n := 2; taken[id]; n++ {
			id = fmt.Sprintf("%s-%d", base, n)
		}
		taken[id] = true
		out[i].ID = id
	}
	return out
}

func countFailed(results []ExecutionResult) int {
	n := 0
	for _, r := range results {
		if !r.Success {
			n++
		}
	}
	return n
}
