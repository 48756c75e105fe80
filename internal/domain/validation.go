package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Validation errors
var (
	ErrInvalidCurrency  = errors.New("invalid currency code")
	ErrInvalidTimestamp = errors.New("invalid timestamp")
)

// Validation constants
const (
	// MaxWindow is the widest payout window a single run accepts.
	MaxWindow  = 93 * 24 * time.Hour
	DateLayout = "2006-01-02"
)

// Valid currency codes (ISO 4217)
var validCurrencies = map[string]bool{
	"USD": true, "EUR": true, "GBP": true, "JPY": true,
	"CNY": true, "AUD": true, "CAD": true, "CHF": true,
	"SEK": true, "NZD": true, "KRW": true, "SGD": true,
	"NOK": true, "MXN": true, "INR": true, "BRL": true,
	"ZAR": true, "RUB": true, "TRY": true, "HKD": true,
	"DKK": true, "PLN": true,
}

// ValidateCurrency validates currency code
func ValidateCurrency(currency string) error {
	currency = strings.ToUpper(strings.TrimSpace(currency))

	if !validCurrencies[currency] {
		return fmt.Errorf("%w: %s is not a valid ISO 4217 currency code", ErrInvalidCurrency, currency)
	}

	return nil
}

// ParseTimestamp accepts RFC3339 timestamps or plain dates (YYYY-MM-DD, UTC midnight).
func ParseTimestamp(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, fmt.Errorf("%w: empty value", ErrInvalidTimestamp)
	}

	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t.UTC(), nil
	}

	t, err := time.Parse(DateLayout, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidTimestamp, value)
	}

	return t.UTC(), nil
}

// ParseWindow parses and validates a [start, end) payout window.
func ParseWindow(start, end string) (Window, error) {
	s, err := ParseTimestamp(start)
	if err != nil {
		return Window{}, fmt.Errorf("%w: start: %w", ErrInvalidWindow, err)
	}

	e, err := ParseTimestamp(end)
	if err != nil {
		return Window{}, fmt.Errorf("%w: end: %w", ErrInvalidWindow, err)
	}

	w := Window{Start: s, End: e}
	if err := w.Validate(); err != nil {
		return Window{}, err
	}

	if w.End.Sub(w.Start) > MaxWindow {
		return Window{}, fmt.Errorf("%w: window exceeds %s", ErrInvalidWindow, MaxWindow)
	}

	return w, nil
}
