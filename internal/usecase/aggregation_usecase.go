package usecase

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/iho/gopayouts/internal/domain"
)

// SettlementAggregator orders the settlements of a batch and hands them to
// the configured exporter.
type SettlementAggregator struct {
	exporter ReportExporter
}

// NewSettlementAggregator creates a new SettlementAggregator. exporter may be nil.
func NewSettlementAggregator(exporter ReportExporter) *SettlementAggregator {
	return &SettlementAggregator{exporter: exporter}
}

// Aggregate sorts settlements and exports the sorted list under key.
// Every failure is wrapped in domain.ErrAggregation.
func (a *SettlementAggregator) Aggregate(ctx context.Context, key string, settlements []*domain.Settlement) ([]*domain.Settlement, error) {
	sorted, err := SortSettlements(settlements)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrAggregation, err)
	}

	if a.exporter != nil {
		if err := a.exporter.Export(ctx, key, sorted); err != nil {
			return nil, fmt.Errorf("%w: export: %w", domain.ErrAggregation, err)
		}
	}

	return sorted, nil
}

// SortSettlements returns a new slice ordered by (ClientID, SettlementID)
// ascending. Equal keys keep their input order. The input is not modified.
func SortSettlements(settlements []*domain.Settlement) ([]*domain.Settlement, error) {
	for i, s := range settlements {
		switch {
		case s == nil:
			return nil, fmt.Errorf("%w: settlement at index %d is nil", domain.ErrMissingSortKey, i)
		case s.ClientID == "":
			return nil, fmt.Errorf("%w: settlement %s has no client id", domain.ErrMissingSortKey, s.SettlementID)
		case s.SettlementID == "":
			return nil, fmt.Errorf("%w: settlement of client %s has no settlement id", domain.ErrMissingSortKey, s.ClientID)
		}
	}

	sorted := slices.Clone(settlements)
	slices.SortStableFunc(sorted, compareSettlements)

	return sorted, nil
}

func compareSettlements(a, b *domain.Settlement) int {
	if c := compareKeys(a.ClientID, b.ClientID); c != 0 {
		return c
	}
	return compareKeys(a.SettlementID, b.SettlementID)
}

// compareKeys orders integer keys numerically and before any other key;
// remaining keys compare lexicographically.
func compareKeys(a, b string) int {
	ai, aErr := strconv.ParseInt(a, 10, 64)
	bi, bErr := strconv.ParseInt(b, 10, 64)

	switch {
	case aErr == nil && bErr == nil:
		if c := cmp.Compare(ai, bi); c != 0 {
			return c
		}
		return strings.Compare(a, b)
	case aErr == nil:
		return -1
	case bErr == nil:
		return 1
	default:
		return strings.Compare(a, b)
	}
}

// MultiExporter exports to every exporter in order and joins their errors.
type MultiExporter []ReportExporter

// Export implements ReportExporter.
func (m MultiExporter) Export(ctx context.Context, key string, settlements []*domain.Settlement) error {
	var errs []error
	for _, e := range m {
		if err := e.Export(ctx, key, settlements); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
