package postgres

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/rs/zerolog"
)

func TestTxManagerInTxCommits(t *testing.T) {
	mockPool := newMockPool(t)
	mockPool.ExpectBeginTx(pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	mockPool.ExpectExec("SELECT 1").WillReturnResult(pgxmock.NewResult("SELECT", 1))
	mockPool.ExpectCommit()

	manager := newTxManagerWithPool(mockPool, zerolog.Nop())
	err := manager.InTx(context.Background(), func(tx pgx.Tx) error {
		_, err := tx.Exec(context.Background(), "SELECT 1")
		return err
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	assertExpectations(t, mockPool)
}

func TestTxManagerBeginError(t *testing.T) {
	mockPool := newMockPool(t)
	mockErr := errors.New("begin failed")
	mockPool.ExpectBeginTx(pgx.TxOptions{IsoLevel: pgx.ReadCommitted}).WillReturnError(mockErr)

	manager := newTxManagerWithPool(mockPool, zerolog.Nop())
	called := false
	err := manager.InTx(context.Background(), func(pgx.Tx) error {
		called = true
		return nil
	})
	if !errors.Is(err, mockErr) {
		t.Fatalf("expected begin error, got %v", err)
	}
	if called {
		t.Fatal("fn must not run without a transaction")
	}
}

func TestTxManagerInTxRollsBackOnError(t *testing.T) {
	mockPool := newMockPool(t)
	mockPool.ExpectBeginTx(pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	mockPool.ExpectRollback()

	fnErr := errors.New("boom")
	manager := newTxManagerWithPool(mockPool, zerolog.Nop())
	err := manager.InTx(context.Background(), func(pgx.Tx) error { return fnErr })
	if !errors.Is(err, fnErr) {
		t.Fatalf("expected fn error, got %v", err)
	}

	assertExpectations(t, mockPool)
}

func TestTxManagerInTxRollsBackOnPanic(t *testing.T) {
	mockPool := newMockPool(t)
	mockPool.ExpectBeginTx(pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	mockPool.ExpectRollback()

	manager := newTxManagerWithPool(mockPool, zerolog.Nop())

	defer func() {
		if recover() == nil {
			t.Fatal("expected panic to propagate")
		}
		assertExpectations(t, mockPool)
	}()

	_ = manager.InTx(context.Background(), func(pgx.Tx) error { panic("boom") })
}

func newMockPool(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	pool, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create pgxmock pool: %v", err)
	}
	t.Cleanup(pool.Close)
	return pool
}

func assertExpectations(t *testing.T, pool pgxmock.PgxPoolIface) {
	t.Helper()
	if err := pool.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations were not met: %v", err)
	}
}
