package testutil

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/iho/gopayouts/internal/domain"
	"github.com/iho/gopayouts/internal/infrastructure/postgres"
)

// TestDB provides isolated test database connections.
type TestDB struct {
	Pool *pgxpool.Pool
	URL  string
	t    *testing.T
}

// NewTestDB connects to DATABASE_URL, or starts a disposable postgres
// container when it is unset, and applies all migrations. The test is
// skipped when neither is available.
func NewTestDB(t *testing.T) *TestDB {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		dbURL = startContainer(ctx, t)
	}

	if err := postgres.NewMigrator(dbURL, MigrationsPath(), zerolog.Nop()).Up(); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	pool, err := postgres.NewPoolWithConfig(ctx, postgres.PoolConfig{
		DatabaseURL:    dbURL,
		MaxConns:       10,
		ConnectTimeout: 10 * time.Second,
	})
	if err != nil {
		t.Fatalf("failed to connect to test database: %v", err)
	}

	db := &TestDB{Pool: pool, URL: dbURL, t: t}
	t.Cleanup(db.Cleanup)

	return db
}

func startContainer(ctx context.Context, t *testing.T) string {
	t.Helper()

	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("payouts_test"),
		tcpostgres.WithUsername("payouts"),
		tcpostgres.WithPassword("payouts"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	if err != nil {
		t.Skipf("postgres unavailable (set DATABASE_URL or run docker): %v", err)
	}

	t.Cleanup(func() {
		if err := testcontainers.TerminateContainer(container); err != nil {
			t.Logf("failed to terminate postgres container: %v", err)
		}
	})

	dbURL, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("failed to get connection string: %v", err)
	}

	return dbURL
}

// MigrationsPath returns the absolute path of the repository's migrations directory.
func MigrationsPath() string {
	_, file, _, _ := runtime.Caller(0)
	return filepath.Join(filepath.Dir(file), "..", "..", "migrations")
}

// Cleanup closes the database connection.
func (db *TestDB) Cleanup() {
	db.Pool.Close()
}

// TruncateAll removes all data from tables.
func (db *TestDB) TruncateAll(ctx context.Context) {
	db.t.Helper()

	_, err := db.Pool.Exec(ctx, `
		TRUNCATE TABLE settlement_report_lines CASCADE;
		TRUNCATE TABLE settlement_reports CASCADE;
		TRUNCATE TABLE payout_accounts CASCADE;
	`)
	if err != nil {
		db.t.Fatalf("failed to truncate tables: %v", err)
	}
}

// SeedAccount inserts an active payout account.
func (db *TestDB) SeedAccount(ctx context.Context, externalID, clientID string) *domain.Account {
	db.t.Helper()

	now := time.Now().UTC().Truncate(time.Microsecond)
	account := &domain.Account{
		ID:         GenerateID(),
		ExternalID: externalID,
		ClientID:   clientID,
		Name:       "Client " + clientID,
		Currency:   "USD",
		Active:     true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	_, err := db.Pool.Exec(ctx, `
		INSERT INTO payout_accounts (id, external_id, client_id, name, currency, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, account.ID, account.ExternalID, account.ClientID, account.Name, account.Currency, account.Active, account.CreatedAt, account.UpdatedAt)
	if err != nil {
		db.t.Fatalf("failed to seed account: %v", err)
	}

	return account
}

// GenerateID generates a new ULID.
func GenerateID() string {
	return ulid.Make().String()
}
