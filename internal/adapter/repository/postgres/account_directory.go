package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/iho/gopayouts/internal/domain"
)

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

const accountColumns = `id, external_id, client_id, name, currency, active, created_at, updated_at`

// AccountDirectory implements usecase.AccountDirectory on the payout_accounts table.
type AccountDirectory struct {
	db      querier
	retrier *Retrier
}

// NewAccountDirectory creates a new AccountDirectory. db is usually a *pgxpool.Pool.
func NewAccountDirectory(db querier, retrier *Retrier) *AccountDirectory {
	return &AccountDirectory{db: db, retrier: retrier}
}

// GetActiveAccounts lists active accounts ordered by client.
func (d *AccountDirectory) GetActiveAccounts(ctx context.Context) ([]*domain.Account, error) {
	query := `
		SELECT ` + accountColumns + `
		FROM payout_accounts
		WHERE active = TRUE
		ORDER BY client_id, id
	`

	accounts, err := retryValue(ctx, d.retrier, "list_active_accounts", func() ([]*domain.Account, error) {
		rows, err := d.db.Query(ctx, query)
		if err != nil {
			return nil, err
		}
		return pgx.CollectRows(rows, scanAccount)
	})
	if err != nil {
		return nil, fmt.Errorf("list active accounts: %w", err)
	}

	return accounts, nil
}

// Create inserts an account.
func (d *AccountDirectory) Create(ctx context.Context, account *domain.Account) error {
	if err := account.Validate(); err != nil {
		return err
	}

	if account.CreatedAt.IsZero() {
		account.CreatedAt = time.Now().UTC()
	}
	if account.UpdatedAt.IsZero() {
		account.UpdatedAt = account.CreatedAt
	}

	query := `
		INSERT INTO payout_accounts (` + accountColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := d.db.Exec(ctx, query,
		account.ID,
		account.ExternalID,
		account.ClientID,
		account.Name,
		account.Currency,
		account.Active,
		account.CreatedAt,
		account.UpdatedAt,
	)

	return err
}

// SetActive includes or excludes an account from payout runs. The update is
// idempotent, so transient failures are retried.
func (d *AccountDirectory) SetActive(ctx context.Context, id string, active bool) error {
	var tag pgconn.CommandTag
	err := d.retrier.Retry(ctx, "set_account_active", func() error {
		var err error
		tag, err = d.db.Exec(ctx, `UPDATE payout_accounts SET active = $2, updated_at = NOW() WHERE id = $1`, id, active)
		return err
	})
	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		return domain.ErrAccountNotFound
	}

	return nil
}

func scanAccount(row pgx.CollectableRow) (*domain.Account, error) {
	var a domain.Account
	err := row.Scan(
		&a.ID,
		&a.ExternalID,
		&a.ClientID,
		&a.Name,
		&a.Currency,
		&a.Active,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	return &a, nil
}
