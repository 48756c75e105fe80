package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/iho/gopayouts/internal/domain"
)

// SettlementReconciler turns one vendor payout into a settlement.
type SettlementReconciler struct {
	lookup TransactionLookup
	idGen  IDGenerator
	logger zerolog.Logger
}

// NewSettlementReconciler creates a new SettlementReconciler.
func NewSettlementReconciler(lookup TransactionLookup, idGen IDGenerator, logger zerolog.Logger) *SettlementReconciler {
	return &SettlementReconciler{
		lookup: lookup,
		idGen:  idGen,
		logger: logger,
	}
}

// Reconcile looks up the transactions behind payout and maps them onto a
// settlement. It always returns a settlement: lookup and mapping failures are
// recorded as error entries on it instead of being returned.
func (r *SettlementReconciler) Reconcile(ctx context.Context, account *domain.Account, payout *domain.VendorPayout) *domain.Settlement {
	settlement := domain.NewSettlement(account, payout)

	txs, err := r.fetch(ctx, payout.ID, account.ExternalID)
	if err != nil {
		r.logger.Warn().
			Err(err).
			Str("settlement_id", payout.ID).
			Str("account_id", account.ID).
			Msg("transaction lookup failed")
		settlement.AddError(payout.ID, err.Error())
		return settlement
	}

	for _, tx := range txs {
		mapped, err := r.mapTransaction(payout, tx)
		if err != nil {
			sourceID := payout.ID
			if tx != nil {
				sourceID = tx.ID
			}
			settlement.AddError(sourceID, err.Error())
			continue
		}
		settlement.Transactions = append(settlement.Transactions, mapped)
	}

	if settlement.HasErrors() {
		r.logger.Debug().
			Str("settlement_id", payout.ID).
			Int("errors", len(settlement.Errors)).
			Msg("settlement reconciled with errors")
	}

	return settlement
}

type lookupResult struct {
	txs []*domain.VendorTransaction
	err error
}

// fetch races the lookup against ctx so a lookup that ignores cancellation
// cannot hold the task past its deadline.
func (r *SettlementReconciler) fetch(ctx context.Context, settlementID, externalID string) ([]*domain.VendorTransaction, error) {
	done := make(chan lookupResult, 1)

	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				done <- lookupResult{err: fmt.Errorf("panic: %v", rec)}
			}
		}()

		txs, err := r.lookup.GetTransactions(ctx, settlementID, externalID)
		done <- lookupResult{txs: txs, err: err}
	}()

	select {
	case res := <-done:
		if res.err != nil {
			return nil, classifyLookupError(res.err)
		}
		return res.txs, nil
	case <-ctx.Done():
		return nil, classifyLookupError(ctx.Err())
	}
}

func classifyLookupError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", domain.ErrTaskTimeout, err)
	}
	return fmt.Errorf("%w: %w", domain.ErrLookup, err)
}

func (r *SettlementReconciler) mapTransaction(payout *domain.VendorPayout, tx *domain.VendorTransaction) (*domain.SettlementTransaction, error) {
	if tx == nil {
		return nil, fmt.Errorf("%w: empty transaction", domain.ErrMapping)
	}

	if !domain.IsKnownTransactionType(tx.Type) {
		return nil, fmt.Errorf("%w: unknown transaction type %q", domain.ErrMapping, tx.Type)
	}

	if !strings.EqualFold(tx.Currency, payout.Currency) {
		return nil, fmt.Errorf("%w: currency %s does not match payout currency %s",
			domain.ErrMapping, tx.Currency, payout.Currency)
	}

	if tx.Fee.IsNegative() {
		return nil, fmt.Errorf("%w: negative fee %s", domain.ErrMapping, tx.Fee)
	}

	return &domain.SettlementTransaction{
		ID:        r.idGen.Generate(),
		SourceID:  tx.ID,
		Type:      tx.Type,
		Currency:  strings.ToUpper(tx.Currency),
		Gross:     tx.Amount,
		Fee:       tx.Fee,
		Net:       tx.Amount.Sub(tx.Fee),
		CreatedAt: tx.CreatedAt,
	}, nil
}
