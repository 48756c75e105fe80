package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// BatchState is a stage of a payout batch run.
type BatchState string

const (
	BatchStateEnumerating BatchState = "enumerating"
	BatchStateSubmitting  BatchState = "submitting"
	BatchStateAwaiting    BatchState = "awaiting"
	BatchStateAggregating BatchState = "aggregating"
	BatchStateDone        BatchState = "done"
)

// Window is a half-open time interval [Start, End).
type Window struct {
	Start time.Time
	End   time.Time
}

// Validate checks that the window is non-empty and has whole-second bounds.
func (w Window) Validate() error {
	if w.Start.IsZero() || w.End.IsZero() {
		return fmt.Errorf("%w: start and end are required", ErrInvalidWindow)
	}

	// Keys and vendor queries use Unix seconds; finer bounds would collide.
	if w.Start.Nanosecond() != 0 || w.End.Nanosecond() != 0 {
		return fmt.Errorf("%w: start and end must be whole seconds", ErrInvalidWindow)
	}

	if !w.Start.Before(w.End) {
		return fmt.Errorf("%w: start %s is not before end %s",
			ErrInvalidWindow, w.Start.Format(time.RFC3339), w.End.Format(time.RFC3339))
	}

	return nil
}

// Contains reports whether t falls inside the window.
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}

// Key returns a stable identifier for the window, used for report storage.
func (w Window) Key() string {
	return fmt.Sprintf("%d-%d", w.Start.UTC().Unix(), w.End.UTC().Unix())
}

// AccountFailure records an account whose payouts could not be fetched.
type AccountFailure struct {
	AccountID string
	ClientID  string
	Message   string
}

// PayoutBatch is the outcome of one payout run.
type PayoutBatch struct {
	StartedAt      time.Time
	CompletedAt    time.Time
	Window         Window
	ID             string
	State          BatchState
	Settlements    []*Settlement
	FailedAccounts []AccountFailure
	// Sorted is false when aggregation failed and Settlements are in collection order.
	Sorted bool
}

// ErroredCount returns how many settlements carry at least one error.
func (b *PayoutBatch) ErroredCount() int {
	n := 0
	for _, s := range b.Settlements {
		if s.HasErrors() {
			n++
		}
	}
	return n
}

// TotalsByCurrency sums settlement amounts per currency.
func (b *PayoutBatch) TotalsByCurrency() map[string]decimal.Decimal {
	totals := make(map[string]decimal.Decimal)
	for _, s := range b.Settlements {
		totals[s.Currency] = totals[s.Currency].Add(s.Amount)
	}
	return totals
}
