package executor

import (
	"context"
	"fmt"
)

// BudgetGuard wraps a BudgetTracker with a pre-flight check and fail-soft
// usage recording. A guard without a tracker allows everything.
type BudgetGuard struct {
	tracker BudgetTracker
}

func NewBudgetGuard(tracker BudgetTracker) *BudgetGuard {
	return &BudgetGuard{tracker: tracker}
}

// Check returns *BudgetExceededError when the period's spend has reached the
// limit. A failed status lookup is returned as-is.
func (g *BudgetGuard) Check(ctx context.Context) error {
	if g == nil || g.tracker == nil {
		return nil
	}
	status, err := g.tracker.Status(ctx)
	if err != nil {
		return fmt.Errorf("budget status unavailable: %w", err)
	}
	if status.BudgetExceeded {
		return &BudgetExceededError{Limit: status.MonthlyBudget, Spent: status.CurrentSpending}
	}
	return nil
}

// Record tracks cost against providerID. Failures are logged and dropped.
func (g *BudgetGuard) Record(ctx context.Context, providerID string, cost *float64) {
	if g == nil || g.tracker == nil || cost == nil || *cost <= 0 {
		return
	}
	if err := g.tracker.Track(ctx, providerID, *cost); err != nil {
		logWarn("failed to record usage", "provider", providerID, "cost", *cost, "error", err)
	}
}
