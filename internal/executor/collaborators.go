package executor

import "context"

// ProviderRequest is what a TaskRunner hands to the provider client.
type ProviderRequest struct {
	SystemPrompt string
	UserPrompt   string
	ContextFiles []string
	Provider     string
	Model        string
	Workspace    string
}

// ProviderResponse is a completed generation.
type ProviderResponse struct {
	Response      string
	Provider      string
	Model         string
	Usage         *Usage
	Cost          *float64
	FilesIncluded []string
}

// ProviderClient performs one text generation against a named provider.
type ProviderClient interface {
	Execute(ctx context.Context, req ProviderRequest) (*ProviderResponse, error)
}

// StoredPrompt is a named system prompt.
type StoredPrompt struct {
	Name      string
	Prompt    string
	IsEnabled bool
}

// PromptStore resolves agent names to system prompts. A missing name yields
// (nil, nil).
type PromptStore interface {
	GetByName(ctx context.Context, name string) (*StoredPrompt, error)
}

// BudgetStatus is the spend picture for the current period.
type BudgetStatus struct {
	BudgetExceeded  bool
	MonthlyBudget   float64
	CurrentSpending float64
}

// BudgetTracker is the external spend accounting service.
type BudgetTracker interface {
	Status(ctx context.Context) (BudgetStatus, error)
	Track(ctx context.Context, providerID string, cost float64) error
}

// MutationParams carries everything a ContentMutator may need for any action
// type; each type reads only its own fields.
type MutationParams struct {
	TargetPath    string
	Content       string
	Line          int // 1-based; 0 means whole content
	FindText      string
	ReplaceAll    bool
	CaseSensitive bool
	WholeWord     bool
}

// ContentMutator applies an action to a named target.
type ContentMutator interface {
	Apply(ctx context.Context, kind ActionType, params MutationParams) error
}
