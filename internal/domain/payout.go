package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// PayoutStatus is the vendor-reported state of a payout.
type PayoutStatus string

const (
	PayoutStatusPending   PayoutStatus = "pending"
	PayoutStatusInTransit PayoutStatus = "in_transit"
	PayoutStatusPaid      PayoutStatus = "paid"
	PayoutStatusFailed    PayoutStatus = "failed"
	PayoutStatusCanceled  PayoutStatus = "canceled"
)

// VendorPayout is a payout as reported by the payment vendor. It is never
// modified after it has been fetched.
type VendorPayout struct {
	ArrivalDate time.Time
	CreatedAt   time.Time
	ID          string
	AccountID   string
	Currency    string
	Status      PayoutStatus
	Amount      decimal.Decimal
}

// Vendor balance transaction types.
const (
	TransactionTypeCharge     = "charge"
	TransactionTypeRefund     = "refund"
	TransactionTypeAdjustment = "adjustment"
	TransactionTypeFee        = "stripe_fee"
	TransactionTypePayout     = "payout"
	TransactionTypeDispute    = "dispute"
)

var knownTransactionTypes = map[string]bool{
	TransactionTypeCharge:     true,
	TransactionTypeRefund:     true,
	TransactionTypeAdjustment: true,
	TransactionTypeFee:        true,
	TransactionTypePayout:     true,
	TransactionTypeDispute:    true,
}

// IsKnownTransactionType reports whether t is a balance transaction type the
// reconciler knows how to map.
func IsKnownTransactionType(t string) bool {
	return knownTransactionTypes[t]
}

// VendorTransaction is a raw balance transaction that contributed to a payout.
type VendorTransaction struct {
	CreatedAt   time.Time
	ID          string
	Type        string
	Currency    string
	Description string
	Amount      decimal.Decimal
	Fee         decimal.Decimal
}
