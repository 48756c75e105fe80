package usecase

//go:generate mockgen -source=interfaces.go -destination=gomocks/mock_interfaces.go -package=gomocks

import (
	"context"
	"time"

	"github.com/iho/gopayouts/internal/domain"
)

// AccountDirectory lists the accounts a payout run covers.
type AccountDirectory interface {
	GetActiveAccounts(ctx context.Context) ([]*domain.Account, error)
}

// VendorSource fetches the payouts an account received inside a window.
type VendorSource interface {
	GetPayouts(ctx context.Context, account *domain.Account, window domain.Window) ([]*domain.VendorPayout, error)
}

// TransactionLookup fetches the balance transactions that make up a payout.
type TransactionLookup interface {
	GetTransactions(ctx context.Context, settlementID, accountExternalID string) ([]*domain.VendorTransaction, error)
}

// ReportExporter stores or uploads the sorted settlements of a batch.
type ReportExporter interface {
	Export(ctx context.Context, key string, settlements []*domain.Settlement) error
}

// BatchObserver receives batch lifecycle measurements.
type BatchObserver interface {
	BatchCompleted(batch *domain.PayoutBatch, duration time.Duration)
	AccountFetchFailed()
	AggregationFailed()
}

// IDGenerator generates unique IDs.
type IDGenerator interface {
	Generate() string
}

// Cache defines caching operations.
type Cache interface {
	// Get returns domain.ErrCacheMiss when key is absent.
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}
