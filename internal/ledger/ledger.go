// Package ledger prowadzi dziennik runów (etl_run_log), wpisy anomalii
// (etl_error_log) i liczniki taksonomii (etl_run_metric).
package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/Santiago-Beltran/ecommerce-full-ETL-process/internal/db"
	"github.com/Santiago-Beltran/ecommerce-full-ETL-process/internal/dq"
)

var ErrAlreadyFinalized = errors.New("run already finalized")

type Ledger struct {
	db        *gorm.DB
	log       zerolog.Logger
	now       func() time.Time
	batchSize int
}

func New(gdb *gorm.DB, log zerolog.Logger) *Ledger {
	return &Ledger{db: gdb, log: log, now: time.Now, batchSize: 500}
}

// WithClock - zegar dla znaczników czasu (testy).
func (l *Ledger) WithClock(now func() time.Time) *Ledger {
	l.now = now
	return l
}

// Start zakłada rekord runu ze statusem failed; sukces ustawia dopiero Finish.
func (l *Ledger) Start(ctx context.Context, sourceDate db.Date) (*db.RunRecord, error) {
	now := l.now()
	rec := &db.RunRecord{
		RunDate:    db.DateOf(now),
		SourceDate: sourceDate,
		Status:     db.StatusFailed,
		StartedAt:  now,
	}
	if err := l.db.WithContext(ctx).Create(rec).Error; err != nil {
		return nil, fmt.Errorf("create run record: %w", err)
	}
	l.log.Info().Int64("run_id", rec.RunID).Str("source_date", sourceDate.String()).Msg("run started")
	return rec, nil
}

// Record zapisuje wpisy anomalii runu.
func (l *Ledger) Record(ctx context.Context, runID int64, entries []dq.Anomaly) error {
	if len(entries) == 0 {
		return nil
	}
	rows := make([]db.ErrorLogEntry, 0, len(entries))
	for _, a := range entries {
		rows = append(rows, db.ErrorLogEntry{
			RunID:     runID,
			Entity:    string(a.Entity),
			Table:     string(a.Table),
			RecordID:  a.RecordID,
			ErrorType: a.Kind.String(),
			Message:   a.Message,
			Severity:  string(a.Severity),
			CreatedAt: a.At,
		})
	}
	if err := l.db.WithContext(ctx).CreateInBatches(&rows, l.batchSize).Error; err != nil {
		return fmt.Errorf("insert etl_error_log: %w", err)
	}
	return nil
}

// Result - dane do zamknięcia runu.
type Result struct {
	Status  string
	Rows    db.RowCounts
	Summary dq.Summary
	Notes   string
}

// Finish zamyka run dokładnie raz: status, czas, liczniki i etl_run_metric.
func (l *Ledger) Finish(ctx context.Context, rec *db.RunRecord, r Result) error {
	ended := l.now()
	dur := ended.Sub(rec.StartedAt).Milliseconds()

	metrics := make([]db.RunMetric, 0, len(dq.Kinds()))
	for _, k := range dq.Kinds() {
		metrics = append(metrics, db.RunMetric{RunID: rec.RunID, ErrorType: k.String(), Count: r.Summary.Count(k)})
	}

	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&db.RunRecord{}).
			Where("run_id = ? AND ended_at IS NULL", rec.RunID).
			Updates(map[string]any{
				"status":                           r.Status,
				"ended_at":                         ended,
				"duration_ms":                      dur,
				"rows_dim_user_inserted":           r.Rows.DimUserInserted,
				"rows_dim_user_updated":            r.Rows.DimUserUpdated,
				"rows_dim_product_inserted":        r.Rows.DimProductInserted,
				"rows_dim_product_updated":         r.Rows.DimProductUpdated,
				"rows_dim_date_inserted":           r.Rows.DimDateInserted,
				"rows_fact_transactions_inserted":  r.Rows.FactTransactionsInserted,
				"rows_fact_stock_history_inserted": r.Rows.FactStockHistoryInserted,
				"errors":                           r.Summary.Errors,
				"warnings":                         r.Summary.Warnings,
				"notes":                            r.Notes,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("run %d: %w", rec.RunID, ErrAlreadyFinalized)
		}
		return tx.Create(&metrics).Error
	})
	if err != nil {
		return fmt.Errorf("finalize run %d: %w", rec.RunID, err)
	}

	rec.Status = r.Status
	rec.EndedAt = &ended
	rec.DurationMS = dur
	rec.Rows = r.Rows
	rec.Errors = r.Summary.Errors
	rec.Warnings = r.Summary.Warnings
	rec.Notes = r.Notes

	ev := l.log.Info()
	if r.Status != db.StatusSuccess {
		ev = l.log.Error()
	}
	ev.Int64("run_id", rec.RunID).
		Str("status", r.Status).
		Int64("duration_ms", dur).
		Int("errors", r.Summary.Errors).
		Int("warnings", r.Summary.Warnings).
		Msg("run finished")
	return nil
}

// LastSuccessful - ostatni udany run wg source_date (nil gdy brak).
func (l *Ledger) LastSuccessful(ctx context.Context) (*db.RunRecord, error) {
	var rows []db.RunRecord
	err := l.db.WithContext(ctx).
		Where("status = ?", db.StatusSuccess).
		Order("source_date DESC").
		Order("run_id DESC").
		Limit(1).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("last successful run: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

// Recent - ostatnie n runów, najnowsze pierwsze.
func (l *Ledger) Recent(ctx context.Context, n int) ([]db.RunRecord, error) {
	var rows []db.RunRecord
	err := l.db.WithContext(ctx).Order("run_id DESC").Limit(n).Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("recent runs: %w", err)
	}
	return rows, nil
}

// Metrics - liczniki taksonomii zapisane dla runu.
func (l *Ledger) Metrics(ctx context.Context, runID int64) (map[dq.Kind]int, error) {
	var rows []db.RunMetric
	if err := l.db.WithContext(ctx).Where("run_id = ?", runID).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("run metrics: %w", err)
	}
	out := make(map[dq.Kind]int, len(rows))
	for _, r := range rows {
		k, err := dq.ParseKind(r.ErrorType)
		if err != nil {
			l.log.Warn().Err(err).Int64("run_id", runID).Msg("skipping unknown metric")
			continue
		}
		out[k] = r.Count
	}
	return out, nil
}

// Entries - wpisy etl_error_log runu w kolejności zapisu.
func (l *Ledger) Entries(ctx context.Context, runID int64) ([]db.ErrorLogEntry, error) {
	var rows []db.ErrorLogEntry
	if err := l.db.WithContext(ctx).Where("run_id = ?", runID).Order("error_id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("run entries: %w", err)
	}
	return rows, nil
}
