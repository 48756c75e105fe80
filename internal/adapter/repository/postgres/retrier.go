package postgres

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"
)

// SQLSTATE codes worth another attempt. Class 08 connection exceptions are
// matched by prefix.
const (
	pgErrDeadlock             = "40P01"
	pgErrSerializationFailure = "40001"
	pgErrTooManyConnections   = "53300"
	pgErrAdminShutdown        = "57P01"
	pgErrCannotConnectNow     = "57P03"
	pgClassConnection         = "08"
)

// RetryPolicy bounds how often and how long a directory read is retried.
type RetryPolicy struct {
	MaxRetries      uint64
	InitialInterval time.Duration
	MaxInterval     time.Duration
	MaxElapsedTime  time.Duration
}

// DefaultRetryPolicy suits short reads against a pooled connection.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:      3,
		InitialInterval: 50 * time.Millisecond,
		MaxInterval:     time.Second,
		MaxElapsedTime:  10 * time.Second,
	}
}

// Retrier re-runs database reads that failed with a transient error.
type Retrier struct {
	policy RetryPolicy
	logger zerolog.Logger
}

// NewRetrier creates a Retrier using DefaultRetryPolicy.
func NewRetrier(logger zerolog.Logger) *Retrier {
	return NewRetrierWithPolicy(DefaultRetryPolicy(), logger)
}

func NewRetrierWithPolicy(policy RetryPolicy, logger zerolog.Logger) *Retrier {
	return &Retrier{policy: policy, logger: logger}
}

func (r *Retrier) backOff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = r.policy.InitialInterval
	b.MaxInterval = r.policy.MaxInterval
	b.MaxElapsedTime = r.policy.MaxElapsedTime

	return backoff.WithContext(backoff.WithMaxRetries(b, r.policy.MaxRetries), ctx)
}

func (r *Retrier) notify(op string) backoff.Notify {
	attempt := 0
	return func(err error, wait time.Duration) {
		attempt++
		r.logger.Warn().
			Err(err).
			Str("op", op).
			Int("retry", attempt).
			Dur("wait", wait).
			Msg("transient database error, retrying")
	}
}

// Retry runs fn until it succeeds, fails permanently, or the policy is spent.
func (r *Retrier) Retry(ctx context.Context, op string, fn func() error) error {
	_, err := retryValue(ctx, r, op, func() (struct{}, error) {
		return struct{}{}, fn()
	})
	return err
}

// retryValue is Retry for operations that produce a result.
func retryValue[T any](ctx context.Context, r *Retrier, op string, fn func() (T, error)) (T, error) {
	return backoff.RetryNotifyWithData(func() (T, error) {
		v, err := fn()
		if err != nil && !isRetryableError(err) {
			return v, backoff.Permanent(err)
		}
		return v, err
	}, r.backOff(ctx), r.notify(op))
}

func isRetryableError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgErrDeadlock, pgErrSerializationFailure, pgErrTooManyConnections, pgErrAdminShutdown, pgErrCannotConnectNow:
			return true
		}
		return strings.HasPrefix(pgErr.Code, pgClassConnection)
	}
	return pgconn.SafeToRetry(err)
}
