package usecase_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/iho/gopayouts/internal/domain"
	"github.com/iho/gopayouts/internal/usecase"
	"github.com/iho/gopayouts/internal/usecase/mocks"
)

func testAccount(id, clientID string) *domain.Account {
	return &domain.Account{
		ID:         id,
		ExternalID: "acct_" + id,
		ClientID:   clientID,
		Currency:   "USD",
		Active:     true,
	}
}

func testPayout(id, accountID string) *domain.VendorPayout {
	return &domain.VendorPayout{
		ID:        id,
		AccountID: accountID,
		Currency:  "usd",
		Status:    domain.PayoutStatusPaid,
		Amount:    decimal.NewFromInt(100),
	}
}

func testTransaction(id, typ string, amount, fee int64) *domain.VendorTransaction {
	return &domain.VendorTransaction{
		ID:       id,
		Type:     typ,
		Currency: "usd",
		Amount:   decimal.NewFromInt(amount),
		Fee:      decimal.NewFromInt(fee),
	}
}

func TestReconcile_MapsTransactions(t *testing.T) {
	t.Parallel()

	var gotExternalID string
	lookup := &mocks.MockTransactionLookup{
		GetTransactionsFunc: func(_ context.Context, settlementID, externalID string) ([]*domain.VendorTransaction, error) {
			gotExternalID = externalID
			return []*domain.VendorTransaction{
				testTransaction("txn_1", domain.TransactionTypeCharge, 120, 4),
				testTransaction("txn_2", domain.TransactionTypeRefund, -20, 0),
			}, nil
		},
	}

	r := usecase.NewSettlementReconciler(lookup, mocks.NewMockIDGenerator(), zerolog.Nop())
	s := r.Reconcile(context.Background(), testAccount("a1", "client1"), testPayout("po_1", "a1"))

	if gotExternalID != "acct_a1" {
		t.Fatalf("expected lookup by external id acct_a1, got %q", gotExternalID)
	}
	if s.SettlementID != "po_1" || s.ClientID != "client1" || s.AccountID != "a1" {
		t.Fatalf("unexpected settlement identity: %+v", s)
	}
	if s.HasErrors() {
		t.Fatalf("expected no errors, got %+v", s.Errors)
	}
	if len(s.Transactions) != 2 {
		t.Fatalf("expected 2 transactions, got %d", len(s.Transactions))
	}

	first := s.Transactions[0]
	if first.SourceID != "txn_1" || first.Currency != "USD" {
		t.Fatalf("unexpected mapped transaction: %+v", first)
	}
	if !first.Net.Equal(decimal.NewFromInt(116)) {
		t.Fatalf("expected net 116, got %s", first.Net)
	}
	if !s.TotalNet().Equal(decimal.NewFromInt(96)) {
		t.Fatalf("expected total net 96, got %s", s.TotalNet())
	}
}

func TestReconcile_LookupFailure(t *testing.T) {
	t.Parallel()

	lookup := &mocks.MockTransactionLookup{
		GetTransactionsFunc: func(context.Context, string, string) ([]*domain.VendorTransaction, error) {
			return nil, errors.New("vendor returned 500")
		},
	}

	r := usecase.NewSettlementReconciler(lookup, mocks.NewMockIDGenerator(), zerolog.Nop())
	s := r.Reconcile(context.Background(), testAccount("a1", "client1"), testPayout("po_1", "a1"))

	if len(s.Errors) != 1 {
		t.Fatalf("expected exactly one error entry, got %+v", s.Errors)
	}
	if s.Errors[0].SourceID != "po_1" {
		t.Fatalf("expected error tagged with payout id, got %q", s.Errors[0].SourceID)
	}
	if !strings.Contains(s.Errors[0].Message, "vendor returned 500") {
		t.Fatalf("expected lookup message to be kept, got %q", s.Errors[0].Message)
	}
	if len(s.Transactions) != 0 {
		t.Fatalf("expected no transactions, got %d", len(s.Transactions))
	}
}

func TestReconcile_LookupPanicIsRecorded(t *testing.T) {
	t.Parallel()

	lookup := &mocks.MockTransactionLookup{
		GetTransactionsFunc: func(context.Context, string, string) ([]*domain.VendorTransaction, error) {
			panic("boom")
		},
	}

	r := usecase.NewSettlementReconciler(lookup, mocks.NewMockIDGenerator(), zerolog.Nop())
	s := r.Reconcile(context.Background(), testAccount("a1", "client1"), testPayout("po_1", "a1"))

	if len(s.Errors) != 1 || !strings.Contains(s.Errors[0].Message, "boom") {
		t.Fatalf("expected panic recorded as error entry, got %+v", s.Errors)
	}
}

func TestReconcile_TimeoutWithUncooperativeLookup(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	defer close(release)

	lookup := &mocks.MockTransactionLookup{
		GetTransactionsFunc: func(context.Context, string, string) ([]*domain.VendorTransaction, error) {
			<-release
			return nil, nil
		},
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	r := usecase.NewSettlementReconciler(lookup, mocks.NewMockIDGenerator(), zerolog.Nop())

	start := time.Now()
	s := r.Reconcile(ctx, testAccount("a1", "client1"), testPayout("po_1", "a1"))

	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("reconcile did not honor deadline, took %s", elapsed)
	}
	if len(s.Errors) != 1 {
		t.Fatalf("expected one timeout error entry, got %+v", s.Errors)
	}
	if !strings.Contains(s.Errors[0].Message, domain.ErrTaskTimeout.Error()) {
		t.Fatalf("expected timeout message, got %q", s.Errors[0].Message)
	}
}

func TestReconcile_MappingErrors(t *testing.T) {
	t.Parallel()

	eur := testTransaction("txn_eur", domain.TransactionTypeCharge, 10, 0)
	eur.Currency = "eur"

	tests := []struct {
		name     string
		tx       *domain.VendorTransaction
		sourceID string
		contains string
	}{
		{
			name:     "unknown type",
			tx:       testTransaction("txn_x", "mystery", 10, 0),
			sourceID: "txn_x",
			contains: "unknown transaction type",
		},
		{
			name:     "currency mismatch",
			tx:       eur,
			sourceID: "txn_eur",
			contains: "does not match payout currency",
		},
		{
			name:     "negative fee",
			tx:       testTransaction("txn_fee", domain.TransactionTypeCharge, 10, -1),
			sourceID: "txn_fee",
			contains: "negative fee",
		},
		{
			name:     "nil transaction",
			tx:       nil,
			sourceID: "po_1",
			contains: "empty transaction",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			lookup := mocks.NewMockTransactionLookup()
			lookup.AddTransactions("po_1",
				testTransaction("txn_ok", domain.TransactionTypeCharge, 50, 1),
				tt.tx,
			)

			r := usecase.NewSettlementReconciler(lookup, mocks.NewMockIDGenerator(), zerolog.Nop())
			s := r.Reconcile(context.Background(), testAccount("a1", "client1"), testPayout("po_1", "a1"))

			if len(s.Transactions) != 1 || s.Transactions[0].SourceID != "txn_ok" {
				t.Fatalf("expected the valid transaction to be kept, got %+v", s.Transactions)
			}
			if len(s.Errors) != 1 {
				t.Fatalf("expected one error entry, got %+v", s.Errors)
			}
			if s.Errors[0].SourceID != tt.sourceID {
				t.Fatalf("expected source %q, got %q", tt.sourceID, s.Errors[0].SourceID)
			}
			if !strings.Contains(s.Errors[0].Message, tt.contains) {
				t.Fatalf("expected message containing %q, got %q", tt.contains, s.Errors[0].Message)
			}
		})
	}
}
