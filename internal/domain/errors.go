package domain

import "errors"

var (
	// Account errors
	ErrMissingExternalID = errors.New("account has no external id")
	ErrAccountNotFound   = errors.New("account not found")

	// Batch errors
	ErrInvalidWindow  = errors.New("invalid payout window")
	ErrDirectory      = errors.New("account directory unavailable")
	ErrFetch          = errors.New("vendor payout fetch failed")
	ErrLookup         = errors.New("transaction lookup failed")
	ErrMapping        = errors.New("transaction mapping failed")
	ErrAggregation    = errors.New("settlement aggregation failed")
	ErrMissingSortKey = errors.New("settlement is missing a sort key")
	ErrTaskTimeout    = errors.New("settlement task timed out")
	ErrBatchRunning   = errors.New("payout batch already running for window")
	ErrReportNotFound = errors.New("settlement report not found")
	ErrNilRecord      = errors.New("collaborator returned a nil record")
)

var (
	// Cache errors
	ErrCacheMiss = errors.New("cache miss")
)
