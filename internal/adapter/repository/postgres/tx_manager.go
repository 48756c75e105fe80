package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

type pgxPool interface {
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
}

// TxManager runs units of work inside a single database transaction.
type TxManager struct {
	pool    pgxPool
	options pgx.TxOptions
	logger  zerolog.Logger
}

// NewTxManager creates a new TxManager using read committed transactions.
func NewTxManager(pool *pgxpool.Pool, logger zerolog.Logger) *TxManager {
	return newTxManagerWithPool(pool, logger)
}

func newTxManagerWithPool(pool pgxPool, logger zerolog.Logger) *TxManager {
	return &TxManager{
		pool:    pool,
		options: pgx.TxOptions{IsoLevel: pgx.ReadCommitted},
		logger:  logger,
	}
}

// InTx calls fn inside a transaction. The transaction commits when fn
// returns nil and rolls back when fn fails or panics.
func (m *TxManager) InTx(ctx context.Context, fn func(tx pgx.Tx) error) (err error) {
	tx, err := m.pool.BeginTx(ctx, m.options)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			m.rollback(ctx, tx)
			panic(p)
		}
		if err != nil {
			m.rollback(ctx, tx)
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	return nil
}

func (m *TxManager) rollback(ctx context.Context, tx pgx.Tx) {
	// the caller's context may be the reason the tx failed
	if err := tx.Rollback(context.WithoutCancel(ctx)); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		m.logger.Error().Err(err).Msg("failed to rollback transaction")
	}
}
