package executor

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var errNoMutator = errors.New("content mutator not configured")

// ActionDispatcher routes a task's ActionSpec to the content mutator.
type ActionDispatcher struct {
	mutator ContentMutator
}

func NewActionDispatcher(mutator ContentMutator) *ActionDispatcher {
	return &ActionDispatcher{mutator: mutator}
}

// Apply runs action with content and reports the outcome. It never panics
// outward and never returns an error; failures live in the outcome.
func (d *ActionDispatcher) Apply(ctx context.Context, taskID string, action ActionSpec, content string) (outcome ActionOutcome) {
	outcome = ActionOutcome{Type: action.Type, TargetPath: action.TargetPath}
	defer func() {
		if r := recover(); r != nil {
			outcome.Success = false
			outcome.Error = fmt.Sprintf("action panicked: %v", r)
		}
	}()

	if err := d.dispatch(ctx, action, content); err != nil {
		outcome.Error = err.Error()
		logWarn("action failed", "task_id", taskID, "action", string(action.Type), "target", action.TargetPath, "error", err)
		return outcome
	}
	outcome.Success = true
	logDebug("action applied", "task_id", taskID, "action", string(action.Type), "target", action.TargetPath)
	return outcome
}

func (d *ActionDispatcher) dispatch(ctx context.Context, action ActionSpec, content string) error {
	params := MutationParams{TargetPath: action.TargetPath, Content: content}

	switch action.Type {
	case ActionCreate, ActionAppend, ActionPrepend:
	case ActionReplace:
		if action.Position != nil {
			if *action.Position < 1 {
				return fmt.Errorf("replace position must be >= 1, got %d", *action.Position)
			}
			params.Line = *action.Position
		}
	case ActionFindReplace:
		if action.FindText == "" {
			return ErrMissingFindText
		}
		params.FindText = action.FindText
		params.ReplaceAll = action.ReplaceAll
		params.CaseSensitive = action.CaseSensitive == nil || *action.CaseSensitive
		params.WholeWord = action.WholeWord
	default:
		return &UnknownActionTypeError{Type: action.Type}
	}

	if strings.TrimSpace(action.TargetPath) == "" {
		return fmt.Errorf("%s action requires a target path", action.Type)
	}
	if d == nil || d.mutator == nil {
		return errNoMutator
	}
	return d.mutator.Apply(ctx, action.Type, params)
}
