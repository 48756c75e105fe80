package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/iho/gopayouts/internal/adapter/http/dto"
	"github.com/iho/gopayouts/internal/domain"
)

const releaseTimeout = 5 * time.Second

// PayoutService defines the payout run operation used by the handler.
type PayoutService interface {
	GetPayouts(ctx context.Context, window domain.Window) (*domain.PayoutBatch, error)
}

// RunLocker serializes runs over the same window.
type RunLocker interface {
	Acquire(ctx context.Context, key string) (func(context.Context) error, error)
}

// PayoutHandler handles payout run requests.
type PayoutHandler struct {
	service  PayoutService
	lock     RunLocker
	validate *validator.Validate
	logger   zerolog.Logger
}

// NewPayoutHandler creates a new PayoutHandler. lock may be nil.
func NewPayoutHandler(service PayoutService, lock RunLocker, logger zerolog.Logger) *PayoutHandler {
	return &PayoutHandler{
		service:  service,
		lock:     lock,
		validate: validator.New(),
		logger:   logger,
	}
}

// Run handles GET /api/v1/payouts?start=&end=.
func (h *PayoutHandler) Run(w http.ResponseWriter, r *http.Request) {
	query := dto.PayoutWindowQueryFromValues(r.URL.Query())
	if err := h.validate.Struct(query); err != nil {
		writeError(w, http.StatusBadRequest, "start and end are required", err.Error())
		return
	}

	window, err := query.ToWindow()
	if err != nil {
		writeError(w, mapDomainError(err), "invalid window", err.Error())
		return
	}

	if h.lock != nil {
		release, err := h.lock.Acquire(r.Context(), "payouts:"+window.Key())
		if err != nil {
			writeError(w, mapDomainError(err), "payout run unavailable", err.Error())
			return
		}
		defer func() {
			// the request context may already be canceled
			ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), releaseTimeout)
			defer cancel()
			if err := release(ctx); err != nil {
				h.logger.Warn().Err(err).Str("window", window.Key()).Msg("failed to release run lock")
			}
		}()
	}

	batch, err := h.service.GetPayouts(r.Context(), window)
	if err != nil {
		writeError(w, mapDomainError(err), "payout run failed", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, dto.BatchFromDomain(batch))
}
