package executor

import (
	"context"
	"fmt"
	"strings"
	"time"

	"promptbatch/internal/utils"
)

const (
	defaultStagger = 100 * time.Millisecond
	defaultAgent   = "default"
)

// TaskRunner executes exactly one task end to end. Every failure is turned
// into a failed ExecutionResult; Run never returns an error.
type TaskRunner struct {
	provider ProviderClient
	prompts  PromptStore
	budget   *BudgetGuard
	actions  *ActionDispatcher
	stagger  time.Duration
	now      func() time.Time
	sleep    func(context.Context, time.Duration)
}

func newTaskRunner(deps Deps, stagger time.Duration, now func() time.Time, sleep func(context.Context, time.Duration)) *TaskRunner {
	return &TaskRunner{
		provider: deps.Provider,
		prompts:  deps.Prompts,
		budget:   NewBudgetGuard(deps.Budget),
		actions:  NewActionDispatcher(deps.Mutator),
		stagger:  stagger,
		now:      now,
		sleep:    sleep,
	}
}

// Run executes pt. waveIndex is the task's position within its wave and
// delays the start by waveIndex * stagger.
func (r *TaskRunner) Run(ctx context.Context, pt PlannedTask, prior []PhaseResults, waveIndex int) (result ExecutionResult) {
	task := pt.Task
	result = ExecutionResult{
		ID:            task.ID,
		Index:         pt.Index,
		Prompt:        task.Text,
		Sequence:      task.Sequence,
		ParallelGroup: task.ParallelGroup,
		Provider:      task.Provider,
		Model:         task.Model,
	}

	if waveIndex > 0 && r.stagger > 0 {
		r.sleep(ctx, time.Duration(waveIndex)*r.stagger)
	}

	start := r.now()
	defer func() {
		if rec := recover(); rec != nil {
			result.Success = false
			result.Response = ""
			result.Error = fmt.Sprintf("task panicked: %v", rec)
			result.ExecutionTimeMs = r.now().Sub(start).Milliseconds()
			logError("task panicked", "task_id", task.ID, "panic", fmt.Sprint(rec))
		}
	}()

	if err := validateTask(task); err != nil {
		result.Error = err.Error()
		logWarn("task rejected", "task_id", task.ID, "error", err)
		return result
	}

	systemPrompt, agentUsed := r.resolveAgent(ctx, task)
	result.Agent = agentUsed

	userPrompt := BuildPrompt(task, prior)

	if err := r.budget.Check(ctx); err != nil {
		result.Error = err.Error()
		result.ExecutionTimeMs = 0
		logWarn("budget check blocked task", "task_id", task.ID, "error", err)
		return result
	}

	logDebug("calling provider", "task_id", task.ID, "provider", task.Provider, "model", task.Model, "sequence", task.Sequence, "prompt_len", len(userPrompt))
	resp, err := r.callProvider(ctx, ProviderRequest{
		SystemPrompt: systemPrompt,
		UserPrompt:   userPrompt,
		ContextFiles: task.ContextFiles,
		Provider:     task.Provider,
		Model:        task.Model,
		Workspace:    task.Workspace,
	})
	if err != nil {
		result.Error = err.Error()
		result.ExecutionTimeMs = r.now().Sub(start).Milliseconds()
		logWarn("provider call failed", "task_id", task.ID, "error", utils.SafeTruncate(err.Error(), 300))
		return result
	}

	result.Success = true
	result.Response = resp.Response
	result.Provider = resp.Provider
	result.Model = resp.Model
	result.Usage = resp.Usage
	result.Cost = resp.Cost
	result.FilesIncluded = resp.FilesIncluded

	r.budget.Record(ctx, resp.Provider, resp.Cost)

	if task.Action != nil && resp.Response != "" {
		outcome := r.actions.Apply(ctx, task.ID, *task.Action, resp.Response)
		result.ActionOutcome = &outcome
	}

	result.ExecutionTimeMs = r.now().Sub(start).Milliseconds()
	logInfo("task completed", "task_id", task.ID, "provider", result.Provider, "model", result.Model, "duration_ms", result.ExecutionTimeMs)
	return result
}

func (r *TaskRunner) callProvider(ctx context.Context, req ProviderRequest) (*ProviderResponse, error) {
	if r.provider == nil {
		return nil, fmt.Errorf("no provider client configured")
	}
	resp, err := r.provider.Execute(ctx, req)
	if err != nil {
		return nil, err
	}
	if resp == nil {
		return nil, fmt.Errorf("provider returned no response")
	}
	return resp, nil
}

// resolveAgent looks up the task's agent. Anything short of an enabled stored
// prompt falls back to the default agent with no system prompt.
func (r *TaskRunner) resolveAgent(ctx context.Context, task PromptTask) (systemPrompt, agentUsed string) {
	name := strings.TrimSpace(task.Agent)
	if name == "" || r.prompts == nil {
		return "", defaultAgent
	}

	stored, err := r.prompts.GetByName(ctx, name)
	switch {
	case err != nil:
		logWarn("agent lookup failed; using default", "task_id", task.ID, "agent", name, "error", err)
		return "", defaultAgent
	case stored == nil:
		logDebug("agent not found; using default", "task_id", task.ID, "agent", name)
		return "", defaultAgent
	case !stored.IsEnabled:
		logDebug("agent disabled; using default", "task_id", task.ID, "agent", name)
		return "", defaultAgent
	}

	if stored.Name != "" {
		name = stored.Name
	}
	return stored.Prompt, name
}

func validateTask(task PromptTask) error {
	if task.InputError != "" {
		return fmt.Errorf("task %q is malformed: %s", task.ID, task.InputError)
	}
	if strings.TrimSpace(task.Text) == "" {
		return fmt.Errorf("task %q has empty prompt text", task.ID)
	}
	if task.Sequence < 0 {
		return fmt.Errorf("task %q has negative sequence %d", task.ID, task.Sequence)
	}
	return nil
}

func sleepContext(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
