package dto

import (
	"net/url"

	"github.com/iho/gopayouts/internal/domain"
)

// PayoutWindowQuery is the query string of a payout run request.
type PayoutWindowQuery struct {
	Start string `validate:"required"`
	End   string `validate:"required"`
}

// PayoutWindowQueryFromValues reads the window bounds from a query string.
func PayoutWindowQueryFromValues(values url.Values) PayoutWindowQuery {
	return PayoutWindowQuery{
		Start: values.Get("start"),
		End:   values.Get("end"),
	}
}

// ToWindow parses the bounds into a domain window.
func (q PayoutWindowQuery) ToWindow() (domain.Window, error) {
	return domain.ParseWindow(q.Start, q.End)
}
