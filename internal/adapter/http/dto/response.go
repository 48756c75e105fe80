package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/gopayouts/internal/domain"
)

// ErrorResponse represents an error in API responses.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// WindowResponse represents a payout window.
type WindowResponse struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// ErrorEntryResponse represents one reconciliation failure.
type ErrorEntryResponse struct {
	SourceID string `json:"source_id"`
	Message  string `json:"message"`
}

// TransactionResponse represents a mapped balance transaction.
type TransactionResponse struct {
	ID        string          `json:"id"`
	SourceID  string          `json:"source_id"`
	Type      string          `json:"type"`
	Currency  string          `json:"currency"`
	Gross     decimal.Decimal `json:"gross"`
	Fee       decimal.Decimal `json:"fee"`
	Net       decimal.Decimal `json:"net"`
	CreatedAt time.Time       `json:"created_at"`
}

// SettlementResponse represents a settlement in API responses.
type SettlementResponse struct {
	SettlementID string                 `json:"settlement_id"`
	ClientID     string                 `json:"client_id"`
	AccountID    string                 `json:"account_id"`
	Currency     string                 `json:"currency"`
	Amount       decimal.Decimal        `json:"amount"`
	TotalNet     decimal.Decimal        `json:"total_net"`
	ArrivalDate  time.Time              `json:"arrival_date"`
	Transactions []*TransactionResponse `json:"transactions"`
	Errors       []ErrorEntryResponse   `json:"errors"`
}

// SettlementFromDomain converts a domain settlement to response.
func SettlementFromDomain(s *domain.Settlement) *SettlementResponse {
	resp := &SettlementResponse{
		SettlementID: s.SettlementID,
		ClientID:     s.ClientID,
		AccountID:    s.AccountID,
		Currency:     s.Currency,
		Amount:       s.Amount,
		TotalNet:     s.TotalNet(),
		ArrivalDate:  s.ArrivalDate,
		Transactions: make([]*TransactionResponse, len(s.Transactions)),
		Errors:       make([]ErrorEntryResponse, len(s.Errors)),
	}

	for i, tx := range s.Transactions {
		resp.Transactions[i] = &TransactionResponse{
			ID:        tx.ID,
			SourceID:  tx.SourceID,
			Type:      tx.Type,
			Currency:  tx.Currency,
			Gross:     tx.Gross,
			Fee:       tx.Fee,
			Net:       tx.Net,
			CreatedAt: tx.CreatedAt,
		}
	}

	for i, e := range s.Errors {
		resp.Errors[i] = ErrorEntryResponse{SourceID: e.SourceID, Message: e.Message}
	}

	return resp
}

// SettlementsFromDomain converts domain settlements to responses.
func SettlementsFromDomain(settlements []*domain.Settlement) []*SettlementResponse {
	result := make([]*SettlementResponse, len(settlements))
	for i, s := range settlements {
		result[i] = SettlementFromDomain(s)
	}
	return result
}

// AccountFailureResponse represents an account whose payouts could not be fetched.
type AccountFailureResponse struct {
	AccountID string `json:"account_id"`
	ClientID  string `json:"client_id"`
	Message   string `json:"message"`
}

// BatchResponse represents a payout batch in API responses.
type BatchResponse struct {
	ID             string                     `json:"id"`
	Key            string                     `json:"key"`
	State          string                     `json:"state"`
	Window         WindowResponse             `json:"window"`
	Sorted         bool                       `json:"sorted"`
	ErroredCount   int                        `json:"errored_count"`
	Totals         map[string]decimal.Decimal `json:"totals"`
	Settlements    []*SettlementResponse      `json:"settlements"`
	FailedAccounts []AccountFailureResponse   `json:"failed_accounts"`
	StartedAt      time.Time                  `json:"started_at"`
	CompletedAt    time.Time                  `json:"completed_at"`
}

// BatchFromDomain converts a domain batch to response.
func BatchFromDomain(b *domain.PayoutBatch) *BatchResponse {
	failed := make([]AccountFailureResponse, len(b.FailedAccounts))
	for i, f := range b.FailedAccounts {
		failed[i] = AccountFailureResponse{AccountID: f.AccountID, ClientID: f.ClientID, Message: f.Message}
	}

	return &BatchResponse{
		ID:             b.ID,
		Key:            b.Window.Key(),
		State:          string(b.State),
		Window:         WindowResponse{Start: b.Window.Start, End: b.Window.End},
		Sorted:         b.Sorted,
		ErroredCount:   b.ErroredCount(),
		Totals:         b.TotalsByCurrency(),
		Settlements:    SettlementsFromDomain(b.Settlements),
		FailedAccounts: failed,
		StartedAt:      b.StartedAt,
		CompletedAt:    b.CompletedAt,
	}
}

// ReportResponse represents a stored settlement report.
type ReportResponse struct {
	Key         string                `json:"key"`
	Settlements []*SettlementResponse `json:"settlements"`
}
