package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/iho/gopayouts/internal/adapter/http/dto"
	"github.com/iho/gopayouts/internal/domain"
)

// ReportReader loads the settlements exported for a window key.
type ReportReader interface {
	Get(ctx context.Context, key string) ([]*domain.Settlement, error)
}

// ReportHandler serves stored settlement reports.
type ReportHandler struct {
	reports ReportReader
}

// NewReportHandler creates a new ReportHandler.
func NewReportHandler(reports ReportReader) *ReportHandler {
	return &ReportHandler{reports: reports}
}

// Get handles GET /api/v1/reports/{key}.
func (h *ReportHandler) Get(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")

	settlements, err := h.reports.Get(r.Context(), key)
	if err != nil {
		writeError(w, mapDomainError(err), "report unavailable", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, dto.ReportResponse{
		Key:         key,
		Settlements: dto.SettlementsFromDomain(settlements),
	})
}
