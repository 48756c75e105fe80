package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/iho/gopayouts/internal/domain"
	"github.com/iho/gopayouts/internal/usecase"
)

var reportLineColumns = []string{
	"report_id", "position", "settlement_id", "client_id", "account_id",
	"currency", "amount", "net", "arrival_date", "transactions", "errors",
}

type txRunner interface {
	InTx(ctx context.Context, fn func(tx pgx.Tx) error) error
}

// ReportRepository implements usecase.ReportExporter by persisting each
// exported batch as one settlement_reports row plus its ordered lines.
type ReportRepository struct {
	txManager txRunner
	idGen     usecase.IDGenerator
	logger    zerolog.Logger
}

// NewReportRepository creates a new ReportRepository.
func NewReportRepository(txManager *TxManager, idGen usecase.IDGenerator, logger zerolog.Logger) *ReportRepository {
	return &ReportRepository{
		txManager: txManager,
		idGen:     idGen,
		logger:    logger,
	}
}

type errorEntryRow struct {
	SourceID string `json:"source_id"`
	Message  string `json:"message"`
}

// Export stores settlements under key in a single transaction.
func (r *ReportRepository) Export(ctx context.Context, key string, settlements []*domain.Settlement) error {
	reportID := r.idGen.Generate()

	rows := make([][]any, 0, len(settlements))
	for i, s := range settlements {
		row, err := reportLine(reportID, i, s)
		if err != nil {
			return err
		}
		rows = append(rows, row)
	}

	var n int64
	err := r.txManager.InTx(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx,
			`INSERT INTO settlement_reports (id, report_key, created_at) VALUES ($1, $2, $3)`,
			reportID, key, time.Now().UTC(),
		)
		if err != nil {
			return fmt.Errorf("insert report: %w", err)
		}

		n, err = tx.CopyFrom(ctx, pgx.Identifier{"settlement_report_lines"}, reportLineColumns, pgx.CopyFromRows(rows))
		if err != nil {
			return fmt.Errorf("copy report lines: %w", err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("store report %s: %w", key, err)
	}

	r.logger.Debug().
		Str("report_id", reportID).
		Str("report_key", key).
		Int64("lines", n).
		Msg("settlement report stored")

	return nil
}

func reportLine(reportID string, position int, s *domain.Settlement) ([]any, error) {
	entries := make([]errorEntryRow, 0, len(s.Errors))
	for _, e := range s.Errors {
		entries = append(entries, errorEntryRow{SourceID: e.SourceID, Message: e.Message})
	}

	errorsJSON, err := json.Marshal(entries)
	if err != nil {
		return nil, fmt.Errorf("encode errors of %s: %w", s.SettlementID, err)
	}

	arrival := pgtype.Timestamptz{Time: s.ArrivalDate, Valid: !s.ArrivalDate.IsZero()}

	return []any{
		reportID,
		int32(position),
		s.SettlementID,
		s.ClientID,
		s.AccountID,
		s.Currency,
		decimalToNumeric(s.Amount),
		decimalToNumeric(s.TotalNet()),
		arrival,
		int32(len(s.Transactions)),
		errorsJSON,
	}, nil
}

func decimalToNumeric(d decimal.Decimal) pgtype.Numeric {
	var n pgtype.Numeric

	_ = n.Scan(d.String())

	return n
}
