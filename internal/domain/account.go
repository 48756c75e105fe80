package domain

import "time"

// Account represents a client payout account connected to the vendor.
type Account struct {
	ID         string
	ExternalID string // vendor-side account identifier
	ClientID   string
	Name       string
	Currency   string
	Active     bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Validate checks that the account can be queried at the vendor.
func (a *Account) Validate() error {
	if a.ExternalID == "" {
		return ErrMissingExternalID
	}

	if a.Currency != "" {
		return ValidateCurrency(a.Currency)
	}

	return nil
}
