// Package budget keeps monthly spend against an optional limit.
package budget

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sync"
	"time"

	"promptbatch/internal/executor"

	"github.com/goccy/go-json"
)

const periodLayout = "2006-01"

// ErrInvalidCost rejects negative or non-finite spend.
var ErrInvalidCost = errors.New("cost must be a finite, non-negative amount")

type ledger struct {
	Period     string             `json:"period"`
	Total      float64            `json:"total"`
	ByProvider map[string]float64 `json:"by_provider"`
	UpdatedAt  time.Time          `json:"updated_at"`
}

// Tracker accumulates spend for the current calendar month. A zero limit
// means unlimited. When backed by a file, every Track is persisted.
type Tracker struct {
	mu     sync.Mutex
	limit  float64
	path   string
	now    func() time.Time
	ledger ledger
}

var _ executor.BudgetTracker = (*Tracker)(nil)

// Option customises a Tracker.
type Option func(*Tracker)

// WithClock overrides time.Now for period keys.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) {
		if now != nil {
			t.now = now
		}
	}
}

// New returns an in-memory tracker.
func New(limit float64, opts ...Option) *Tracker {
	t := &Tracker{limit: limit, now: time.Now}
	for _, opt := range opts {
		opt(t)
	}
	t.ledger = t.freshLedger()
	return t
}

// Open returns a tracker persisted at path, loading any existing ledger. A
// ledger from an earlier month starts over.
func Open(path string, limit float64, opts ...Option) (*Tracker, error) {
	t := New(limit, opts...)
	t.path = path

	data, err := os.ReadFile(path) // #nosec G304 -- user-configured ledger path
	if err != nil {
		if os.IsNotExist(err) {
			return t, nil
		}
		return nil, fmt.Errorf("read budget ledger: %w", err)
	}

	var loaded ledger
	if err := json.Unmarshal(data, &loaded); err != nil {
		return nil, fmt.Errorf("parse budget ledger %s: %w", path, err)
	}
	if loaded.Period == t.ledger.Period {
		if loaded.ByProvider == nil {
			loaded.ByProvider = make(map[string]float64)
		}
		t.ledger = loaded
	} else {
		logInfo("budget period rolled over", "previous", loaded.Period, "current", t.ledger.Period, "previous_total", loaded.Total)
	}
	return t, nil
}

// Status reports the current period's spend against the limit.
func (t *Tracker) Status(context.Context) (executor.BudgetStatus, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rollover()
	return executor.BudgetStatus{
		BudgetExceeded:  t.limit > 0 && t.ledger.Total >= t.limit,
		MonthlyBudget:   t.limit,
		CurrentSpending: t.ledger.Total,
	}, nil
}

// Track adds cost to the period total and to providerID's share.
func (t *Tracker) Track(_ context.Context, providerID string, cost float64) error {
	if cost < 0 || math.IsNaN(cost) || math.IsInf(cost, 0) {
		return fmt.Errorf("%w: %v", ErrInvalidCost, cost)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.rollover()
	t.ledger.Total += cost
	t.ledger.ByProvider[providerID] += cost
	t.ledger.UpdatedAt = t.now().UTC()
	logDebug("usage tracked", "provider", providerID, "cost", cost, "total", t.ledger.Total)
	return t.save()
}

// Breakdown returns a copy of this period's spend per provider.
func (t *Tracker) Breakdown() map[string]float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rollover()
	out := make(map[string]float64, len(t.ledger.ByProvider))
	for k, v := range t.ledger.ByProvider {
		out[k] = v
	}
	return out
}

// Period is the current "YYYY-MM" key.
func (t *Tracker) Period() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rollover()
	return t.ledger.Period
}

func (t *Tracker) freshLedger() ledger {
	return ledger{Period: t.now().Format(periodLayout), ByProvider: make(map[string]float64)}
}

// rollover must be called with mu held.
func (t *Tracker) rollover() {
	if current := t.now().Format(periodLayout); current != t.ledger.Period {
		logInfo("budget period rolled over", "previous", t.ledger.Period, "current", current, "previous_total", t.ledger.Total)
		t.ledger = t.freshLedger()
	}
}

// save must be called with mu held.
func (t *Tracker) save() error {
	if t.path == "" {
		return nil
	}
	data, err := json.MarshalIndent(t.ledger, "", "  ")
	if err != nil {
		return fmt.Errorf("encode budget ledger: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(t.path), 0o700); err != nil {
		return fmt.Errorf("create budget ledger dir: %w", err)
	}
	tmp := t.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write budget ledger: %w", err)
	}
	if err := os.Rename(tmp, t.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("replace budget ledger: %w", err)
	}
	return nil
}
