package executor

// ActionType names a post-response content mutation.
type ActionType string

const (
	ActionCreate      ActionType = "create"
	ActionAppend      ActionType = "append"
	ActionPrepend     ActionType = "prepend"
	ActionReplace     ActionType = "replace"
	ActionFindReplace ActionType = "findReplace"
)

// ActionSpec describes what to do with a successful response.
type ActionSpec struct {
	Type       ActionType `json:"type"`
	TargetPath string     `json:"target_path"`
	// Position is a 1-based line number for ActionReplace; nil replaces the
	// whole target.
	Position      *int   `json:"position,omitempty"`
	FindText      string `json:"find_text,omitempty"`
	ReplaceAll    bool   `json:"replace_all,omitempty"`
	CaseSensitive *bool  `json:"case_sensitive,omitempty"`
	WholeWord     bool   `json:"whole_word,omitempty"`
}

// PromptTask is one unit of work submitted to the engine.
type PromptTask struct {
	ID                     string      `json:"id,omitempty"`
	Text                   string      `json:"text"`
	Provider               string      `json:"provider,omitempty"`
	Model                  string      `json:"model,omitempty"`
	ContextFiles           []string    `json:"context_files,omitempty"`
	Workspace              string      `json:"workspace,omitempty"`
	Sequence               int         `json:"sequence"`
	ParallelGroup          string      `json:"parallel_group,omitempty"`
	IncludePreviousResults bool        `json:"include_previous_results,omitempty"`
	ContextFromSteps       []string    `json:"context_from_steps,omitempty"`
	Action                 *ActionSpec `json:"action,omitempty"`
	Agent                  string      `json:"agent,omitempty"`

	// InputError is set by input parsers when the task could not be decoded.
	// The task still runs through the engine and yields a failed result.
	InputError string `json:"-"`
}

// Usage is the token accounting reported by a provider.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// ActionOutcome records how a task's action went. It never affects the
// task's own Success flag.
type ActionOutcome struct {
	Type       ActionType `json:"type"`
	TargetPath string     `json:"target_path"`
	Success    bool       `json:"success"`
	Error      string     `json:"error,omitempty"`
}

// ExecutionResult is produced exactly once per PromptTask.
type ExecutionResult struct {
	ID      string `json:"id"`
	Index   int    `json:"-"`
	Prompt  string `json:"prompt"`
	Success bool   `json:"success"`

	Response      string   `json:"response,omitempty"`
	Provider      string   `json:"provider,omitempty"`
	Model         string   `json:"model,omitempty"`
	Agent         string   `json:"agent,omitempty"`
	Usage         *Usage   `json:"usage,omitempty"`
	Cost          *float64 `json:"cost,omitempty"`
	FilesIncluded []string `json:"files_included,omitempty"`

	Error string `json:"error,omitempty"`

	ExecutionTimeMs int64          `json:"execution_time_ms"`
	Sequence        int            `json:"sequence"`
	ParallelGroup   string         `json:"parallel_group,omitempty"`
	ActionOutcome   *ActionOutcome `json:"action_outcome,omitempty"`
}

// MergedReport combines every successful response into one document.
type MergedReport struct {
	TotalTasks       int      `json:"total_tasks"`
	SuccessfulTasks  int      `json:"successful_tasks"`
	CombinedResponse string   `json:"combined_response"`
	ProvidersUsed    []string `json:"providers_used"`
}

// BatchStats summarises one engine run.
type BatchStats struct {
	TotalExecutionTimeMs int64   `json:"total_execution_time_ms"`
	TasksExecuted        int     `json:"tasks_executed"`
	TasksFailed          int     `json:"tasks_failed"`
	AvgExecutionTimeMs   float64 `json:"avg_execution_time_ms"`
	TokensUsed           *int    `json:"tokens_used,omitempty"`
}

// BatchReport is the final output of one run. Exactly one of Results and
// Merged is set.
type BatchReport struct {
	Results []ExecutionResult `json:"results,omitempty"`
	Merged  *MergedReport     `json:"merged,omitempty"`
	Stats   BatchStats        `json:"stats"`
}

// Envelope is the shape handed to callers that want a success flag instead of
// a Go error.
type Envelope struct {
	Success bool         `json:"success"`
	Error   string       `json:"error,omitempty"`
	Report  *BatchReport `json:"report,omitempty"`
}

// RunOptions are the per-run knobs supplied by the caller.
type RunOptions struct {
	ConcurrencyCap int
	MergeResponses bool
}
