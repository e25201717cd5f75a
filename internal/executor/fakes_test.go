package executor

import (
	"context"
	"sync"
	"time"
)

type fakeProvider struct {
	mu       sync.Mutex
	requests []ProviderRequest
	respond  func(req ProviderRequest) (*ProviderResponse, error)
}

func (f *fakeProvider) Execute(_ context.Context, req ProviderRequest) (*ProviderResponse, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()
	if f.respond != nil {
		return f.respond(req)
	}
	provider := req.Provider
	if provider == "" {
		provider = "fake"
	}
	return &ProviderResponse{Response: "echo: " + req.UserPrompt, Provider: provider, Model: "fake-model"}, nil
}

func (f *fakeProvider) calls() []ProviderRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]ProviderRequest, len(f.requests))
	copy(out, f.requests)
	return out
}

func (f *fakeProvider) requestFor(prompt string) (ProviderRequest, bool) {
	for _, req := range f.calls() {
		if req.UserPrompt == prompt {
			return req, true
		}
	}
	return ProviderRequest{}, false
}

type fakePrompts struct {
	prompts map[string]*StoredPrompt
	err     error
}

func (f *fakePrompts) GetByName(_ context.Context, name string) (*StoredPrompt, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.prompts[name], nil
}

type trackCall struct {
	provider string
	cost     float64
}

type fakeBudget struct {
	mu        sync.Mutex
	status    BudgetStatus
	statusErr error
	trackErr  error
	checks    int
	tracked   []trackCall
	// statusFn, when set, decides the status for the n-th check (1-based).
	statusFn func(n int) BudgetStatus
}

func (f *fakeBudget) Status(context.Context) (BudgetStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.checks++
	if f.statusFn != nil {
		return f.statusFn(f.checks), f.statusErr
	}
	return f.status, f.statusErr
}

func (f *fakeBudget) Track(_ context.Context, provider string, cost float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tracked = append(f.tracked, trackCall{provider: provider, cost: cost})
	return f.trackErr
}

type mutationCall struct {
	kind   ActionType
	params MutationParams
}

type fakeMutator struct {
	mu    sync.Mutex
	calls []mutationCall
	err   error
}

func (f *fakeMutator) Apply(_ context.Context, kind ActionType, params MutationParams) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, mutationCall{kind: kind, params: params})
	return f.err
}

func noSleep(context.Context, time.Duration) {}

func floatPtr(v float64) *float64 { return &v }

func intPtr(v int) *int { return &v }

func boolPtr(v bool) *bool { return &v }
