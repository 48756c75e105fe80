package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/iho/gopayouts/internal/adapter/http/dto"
	"github.com/iho/gopayouts/internal/domain"
)

type payoutServiceStub struct {
	getPayoutsFn func(ctx context.Context, window domain.Window) (*domain.PayoutBatch, error)
}

func (s *payoutServiceStub) GetPayouts(ctx context.Context, window domain.Window) (*domain.PayoutBatch, error) {
	return s.getPayoutsFn(ctx, window)
}

type runLockStub struct {
	acquireFn func(ctx context.Context, key string) (func(context.Context) error, error)
}

func (s *runLockStub) Acquire(ctx context.Context, key string) (func(context.Context) error, error) {
	return s.acquireFn(ctx, key)
}

func TestPayoutHandler_Run_Success(t *testing.T) {
	var captured domain.Window
	h := NewPayoutHandler(&payoutServiceStub{
		getPayoutsFn: func(ctx context.Context, window domain.Window) (*domain.PayoutBatch, error) {
			captured = window
			return &domain.PayoutBatch{
				ID:     "batch-1",
				Window: window,
				State:  domain.BatchStateDone,
				Sorted: true,
				Settlements: []*domain.Settlement{
					{SettlementID: "po_1", ClientID: "1", Currency: "usd", Amount: decimal.NewFromInt(10)},
				},
			}, nil
		},
	}, nil, zerolog.Nop())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/payouts?start=2026-01-01&end=2026-02-01", nil)
	rec := httptest.NewRecorder()

	h.Run(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	if !captured.Start.Equal(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)) ||
		!captured.End.Equal(time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected window %+v", captured)
	}

	var resp dto.BatchResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.ID != "batch-1" || len(resp.Settlements) != 1 || resp.Settlements[0].SettlementID != "po_1" {
		t.Fatalf("unexpected response %+v", resp)
	}
}

func TestPayoutHandler_Run_BadRequest(t *testing.T) {
	tests := []struct {
		name  string
		query string
	}{
		{"missing start", "?end=2026-02-01"},
		{"missing end", "?start=2026-01-01"},
		{"malformed start", "?start=yesterday&end=2026-02-01"},
		{"inverted window", "?start=2026-02-01&end=2026-01-01"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			h := NewPayoutHandler(&payoutServiceStub{
				getPayoutsFn: func(ctx context.Context, window domain.Window) (*domain.PayoutBatch, error) {
					called = true
					return nil, nil
				},
			}, nil, zerolog.Nop())

			rec := httptest.NewRecorder()
			h.Run(rec, httptest.NewRequest(http.MethodGet, "/api/v1/payouts"+tt.query, nil))

			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d", rec.Code)
			}
			if called {
				t.Fatal("expected service not to be called")
			}
		})
	}
}

func TestPayoutHandler_Run_DirectoryFailure(t *testing.T) {
	h := NewPayoutHandler(&payoutServiceStub{
		getPayoutsFn: func(ctx context.Context, window domain.Window) (*domain.PayoutBatch, error) {
			return nil, fmt.Errorf("%w: %w", domain.ErrDirectory, errors.New("connection refused"))
		},
	}, nil, zerolog.Nop())

	rec := httptest.NewRecorder()
	h.Run(rec, httptest.NewRequest(http.MethodGet, "/api/v1/payouts?start=2026-01-01&end=2026-02-01", nil))

	if rec.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", rec.Code)
	}
}

func TestPayoutHandler_Run_LockHeldAndReleased(t *testing.T) {
	var key string
	released := false
	lock := &runLockStub{
		acquireFn: func(ctx context.Context, k string) (func(context.Context) error, error) {
			key = k
			return func(context.Context) error {
				released = true
				return nil
			}, nil
		},
	}

	h := NewPayoutHandler(&payoutServiceStub{
		getPayoutsFn: func(ctx context.Context, window domain.Window) (*domain.PayoutBatch, error) {
			if released {
				t.Error("lock released before the run finished")
			}
			return &domain.PayoutBatch{Window: window}, nil
		},
	}, lock, zerolog.Nop())

	rec := httptest.NewRecorder()
	h.Run(rec, httptest.NewRequest(http.MethodGet, "/api/v1/payouts?start=2026-01-01&end=2026-02-01", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !released {
		t.Fatal("expected lock to be released")
	}

	window, _ := domain.ParseWindow("2026-01-01", "2026-02-01")
	if key != "payouts:"+window.Key() {
		t.Fatalf("unexpected lock key %q", key)
	}
}

func TestPayoutHandler_Run_LockBusy(t *testing.T) {
	lock := &runLockStub{
		acquireFn: func(ctx context.Context, key string) (func(context.Context) error, error) {
			return nil, domain.ErrBatchRunning
		},
	}

	h := NewPayoutHandler(&payoutServiceStub{
		getPayoutsFn: func(ctx context.Context, window domain.Window) (*domain.PayoutBatch, error) {
			t.Fatal("service must not run while the lock is held")
			return nil, nil
		},
	}, lock, zerolog.Nop())

	rec := httptest.NewRecorder()
	h.Run(rec, httptest.NewRequest(http.MethodGet, "/api/v1/payouts?start=2026-01-01&end=2026-02-01", nil))

	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
}
