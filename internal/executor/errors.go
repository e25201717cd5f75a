package executor

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyBatch         = errors.New("no tasks provided")
	ErrPhaseExceedsCap    = errors.New("phase exceeds concurrency cap")
	ErrInvalidConcurrency = errors.New("concurrency cap must be at least 1")
	ErrMissingFindText    = errors.New("findReplace action requires find text")
)

// BatchValidationError rejects a whole run before any task executes.
type BatchValidationError struct {
	Err           error
	PhaseSequence int
	PhaseSize     int
	Cap           int
}

func (e *BatchValidationError) Error() string {
	switch {
	case errors.Is(e.Err, ErrPhaseExceedsCap):
		return fmt.Sprintf(
			"phase %d has %d tasks but the concurrency cap is %d; raise the cap to at least %d or split the phase with additional sequence numbers",
			e.PhaseSequence, e.PhaseSize, e.Cap, e.PhaseSize)
	case errors.Is(e.Err, ErrInvalidConcurrency):
		return fmt.Sprintf("invalid concurrency cap %d: %v", e.Cap, e.Err)
	default:
		return e.Err.Error()
	}
}

func (e *BatchValidationError) Unwrap() error { return e.Err }

// BudgetExceededError is returned by the budget guard when the period's spend
// has reached its limit.
type BudgetExceededError struct {
	Limit float64
	Spent float64
}

func (e *BudgetExceededError) Error() string {
	return fmt.Sprintf("monthly budget exceeded: spent $%.2f of $%.2f limit", e.Spent, e.Limit)
}

// UnknownActionTypeError names an action type the dispatcher cannot route.
type UnknownActionTypeError struct {
	Type ActionType
}

func (e *UnknownActionTypeError) Error() string {
	return fmt.Sprintf("unknown action type %q", string(e.Type))
}
