package dto

import (
	"net/url"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/gopayouts/internal/domain"
)

func TestBatchFromDomain(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0)

	ok := &domain.Settlement{
		SettlementID: "po_1",
		ClientID:     "7",
		Currency:     "usd",
		Amount:       decimal.NewFromInt(100),
		Transactions: []*domain.SettlementTransaction{
			{ID: "txn_1", Net: decimal.NewFromInt(60)},
			{ID: "txn_2", Net: decimal.NewFromInt(40)},
		},
	}
	failed := &domain.Settlement{
		SettlementID: "po_2",
		ClientID:     "8",
		Currency:     "usd",
		Amount:       decimal.NewFromInt(50),
		Errors:       []domain.ErrorEntry{{SourceID: "po_2", Message: "lookup failed"}},
	}

	resp := BatchFromDomain(&domain.PayoutBatch{
		ID:             "batch-1",
		Window:         domain.Window{Start: start, End: end},
		State:          domain.BatchStateDone,
		Sorted:         true,
		Settlements:    []*domain.Settlement{ok, failed},
		FailedAccounts: []domain.AccountFailure{{AccountID: "acc-3", ClientID: "9", Message: "boom"}},
	})

	if resp.ID != "batch-1" || resp.State != "done" || !resp.Sorted {
		t.Fatalf("unexpected header fields: %+v", resp)
	}
	if resp.Key != (domain.Window{Start: start, End: end}).Key() {
		t.Fatalf("unexpected key %s", resp.Key)
	}
	if resp.ErroredCount != 1 {
		t.Fatalf("expected 1 errored settlement, got %d", resp.ErroredCount)
	}
	if !resp.Totals["usd"].Equal(decimal.NewFromInt(150)) {
		t.Fatalf("expected usd total 150, got %s", resp.Totals["usd"])
	}
	if len(resp.Settlements) != 2 || !resp.Settlements[0].TotalNet.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("unexpected settlements: %+v", resp.Settlements)
	}
	if len(resp.Settlements[1].Errors) != 1 || resp.Settlements[1].Errors[0].SourceID != "po_2" {
		t.Fatalf("expected error entry to carry over, got %+v", resp.Settlements[1].Errors)
	}
	if resp.Settlements[1].Transactions == nil {
		t.Fatal("expected empty transactions to encode as an array")
	}
	if len(resp.FailedAccounts) != 1 || resp.FailedAccounts[0].AccountID != "acc-3" {
		t.Fatalf("unexpected failed accounts: %+v", resp.FailedAccounts)
	}
}

func TestPayoutWindowQuery(t *testing.T) {
	q := PayoutWindowQueryFromValues(url.Values{"start": {"2026-01-01"}, "end": {"2026-02-01"}})

	w, err := q.ToWindow()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !w.Start.Equal(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected start %s", w.Start)
	}

	if _, err := (PayoutWindowQuery{Start: "2026-02-01", End: "2026-01-01"}).ToWindow(); err == nil {
		t.Fatal("expected inverted window to fail")
	}
}
