package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/iho/gopayouts/internal/domain"
)

// ReportCache implements usecase.ReportExporter by keeping the latest sorted
// settlements of each window in Redis.
type ReportCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewReportCache creates a new ReportCache. Reports expire after ttl.
func NewReportCache(client *redis.Client, ttl time.Duration) *ReportCache {
	return &ReportCache{
		client: client,
		prefix: "report:",
		ttl:    ttl,
	}
}

type cachedTransaction struct {
	CreatedAt time.Time       `json:"created_at"`
	ID        string          `json:"id"`
	SourceID  string          `json:"source_id"`
	Type      string          `json:"type"`
	Currency  string          `json:"currency"`
	Gross     decimal.Decimal `json:"gross"`
	Fee       decimal.Decimal `json:"fee"`
	Net       decimal.Decimal `json:"net"`
}

type cachedError struct {
	SourceID string `json:"source_id"`
	Message  string `json:"message"`
}

type cachedSettlement struct {
	ArrivalDate  time.Time           `json:"arrival_date"`
	SettlementID string              `json:"settlement_id"`
	ClientID     string              `json:"client_id"`
	AccountID    string              `json:"account_id"`
	Currency     string              `json:"currency"`
	Amount       decimal.Decimal     `json:"amount"`
	Transactions []cachedTransaction `json:"transactions"`
	Errors       []cachedError       `json:"errors"`
}

// Export stores settlements under key, replacing any earlier report.
func (c *ReportCache) Export(ctx context.Context, key string, settlements []*domain.Settlement) error {
	records := make([]cachedSettlement, len(settlements))
	for i, s := range settlements {
		records[i] = toCached(s)
	}

	payload, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("encode report %s: %w", key, err)
	}

	return c.client.Set(ctx, c.prefix+key, payload, c.ttl).Err()
}

// Get returns the settlements stored under key in their stored order.
func (c *ReportCache) Get(ctx context.Context, key string) ([]*domain.Settlement, error) {
	payload, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrReportNotFound
	}
	if err != nil {
		return nil, err
	}

	var records []cachedSettlement
	if err := json.Unmarshal(payload, &records); err != nil {
		return nil, fmt.Errorf("decode report %s: %w", key, err)
	}

	settlements := make([]*domain.Settlement, len(records))
	for i, r := range records {
		settlements[i] = fromCached(r)
	}

	return settlements, nil
}

func toCached(s *domain.Settlement) cachedSettlement {
	txs := make([]cachedTransaction, len(s.Transactions))
	for i, tx := range s.Transactions {
		txs[i] = cachedTransaction(*tx)
	}

	errs := make([]cachedError, len(s.Errors))
	for i, e := range s.Errors {
		errs[i] = cachedError(e)
	}

	return cachedSettlement{
		ArrivalDate:  s.ArrivalDate,
		SettlementID: s.SettlementID,
		ClientID:     s.ClientID,
		AccountID:    s.AccountID,
		Currency:     s.Currency,
		Amount:       s.Amount,
		Transactions: txs,
		Errors:       errs,
	}
}

func fromCached(r cachedSettlement) *domain.Settlement {
	s := &domain.Settlement{
		ArrivalDate:  r.ArrivalDate,
		SettlementID: r.SettlementID,
		ClientID:     r.ClientID,
		AccountID:    r.AccountID,
		Currency:     r.Currency,
		Amount:       r.Amount,
		Transactions: make([]*domain.SettlementTransaction, len(r.Transactions)),
		Errors:       make([]domain.ErrorEntry, len(r.Errors)),
	}

	for i, tx := range r.Transactions {
		mapped := domain.SettlementTransaction(tx)
		s.Transactions[i] = &mapped
	}
	for i, e := range r.Errors {
		s.Errors[i] = domain.ErrorEntry(e)
	}

	return s
}
