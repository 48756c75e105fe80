package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestWindow_Validate(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name        string
		window      Window
		expectError bool
	}{
		{
			name:   "valid window",
			window: Window{Start: start, End: start.Add(24 * time.Hour)},
		},
		{
			name:        "zero start",
			window:      Window{End: start},
			expectError: true,
		},
		{
			name:        "empty window",
			window:      Window{Start: start, End: start},
			expectError: true,
		},
		{
			name:        "inverted window",
			window:      Window{Start: start.Add(time.Hour), End: start},
			expectError: true,
		},
		{
			name:        "sub-second start",
			window:      Window{Start: start.Add(250 * time.Millisecond), End: start.Add(time.Hour)},
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.window.Validate()
			if tt.expectError && !errors.Is(err, ErrInvalidWindow) {
				t.Fatalf("expected ErrInvalidWindow, got %v", err)
			}
			if !tt.expectError && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestWindow_Contains(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	w := Window{Start: start, End: start.Add(time.Hour)}

	if !w.Contains(start) {
		t.Fatal("start should be inside the window")
	}

	if w.Contains(start.Add(time.Hour)) {
		t.Fatal("end should be outside the window")
	}
}

func TestPayoutBatch_Summaries(t *testing.T) {
	batch := &PayoutBatch{
		Settlements: []*Settlement{
			{Currency: "USD", Amount: decimal.NewFromInt(10)},
			{Currency: "USD", Amount: decimal.NewFromInt(15), Errors: []ErrorEntry{{SourceID: "po_2", Message: "boom"}}},
			{Currency: "EUR", Amount: decimal.NewFromInt(7)},
		},
	}

	if got := batch.ErroredCount(); got != 1 {
		t.Fatalf("expected 1 errored settlement, got %d", got)
	}

	totals := batch.TotalsByCurrency()
	if !totals["USD"].Equal(decimal.NewFromInt(25)) {
		t.Fatalf("expected USD total 25, got %s", totals["USD"])
	}
	if !totals["EUR"].Equal(decimal.NewFromInt(7)) {
		t.Fatalf("expected EUR total 7, got %s", totals["EUR"])
	}
}
