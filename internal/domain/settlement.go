package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// ErrorEntry records one failure encountered while reconciling a payout.
type ErrorEntry struct {
	SourceID string
	Message  string
}

// SettlementTransaction is a vendor transaction mapped into settlement terms.
type SettlementTransaction struct {
	CreatedAt time.Time
	ID        string
	SourceID  string
	Type      string
	Currency  string
	Gross     decimal.Decimal
	Fee       decimal.Decimal
	Net       decimal.Decimal
}

// Settlement is the reconciled view of a single vendor payout.
// It is owned by the task that builds it until the batch collects it.
type Settlement struct {
	ArrivalDate  time.Time
	SettlementID string
	ClientID     string
	AccountID    string
	Currency     string
	Amount       decimal.Decimal
	Transactions []*SettlementTransaction
	Errors       []ErrorEntry
}

// NewSettlement builds the settlement shell for a payout of the given account.
// Either argument may be nil; the matching fields are then left empty.
func NewSettlement(account *Account, payout *VendorPayout) *Settlement {
	s := &Settlement{
		Transactions: make([]*SettlementTransaction, 0),
		Errors:       make([]ErrorEntry, 0),
	}
	if account != nil {
		s.ClientID = account.ClientID
		s.AccountID = account.ID
	}
	if payout != nil {
		s.SettlementID = payout.ID
		s.Currency = payout.Currency
		s.Amount = payout.Amount
		s.ArrivalDate = payout.ArrivalDate
	}
	return s
}

// AddError appends an error entry.
func (s *Settlement) AddError(sourceID, message string) {
	s.Errors = append(s.Errors, ErrorEntry{SourceID: sourceID, Message: message})
}

// HasErrors reports whether any step of the reconciliation failed.
func (s *Settlement) HasErrors() bool {
	return len(s.Errors) > 0
}

// TotalNet sums the net amount of all mapped transactions.
func (s *Settlement) TotalNet() decimal.Decimal {
	total := decimal.Zero
	for _, tx := range s.Transactions {
		total = total.Add(tx.Net)
	}
	return total
}
