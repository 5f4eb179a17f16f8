// Package pipeline prowadzi jeden run: walidacja snapshotu, synchronizacja
// wymiarów, ładowanie faktów i zamknięcie w dzienniku runów.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	conf "github.com/Santiago-Beltran/ecommerce-full-ETL-process/internal/config"
	"github.com/Santiago-Beltran/ecommerce-full-ETL-process/internal/db"
	"github.com/Santiago-Beltran/ecommerce-full-ETL-process/internal/dq"
	"github.com/Santiago-Beltran/ecommerce-full-ETL-process/internal/ledger"
	"github.com/Santiago-Beltran/ecommerce-full-ETL-process/internal/metrics"
	"github.com/Santiago-Beltran/ecommerce-full-ETL-process/internal/source"
	"github.com/Santiago-Beltran/ecommerce-full-ETL-process/internal/validate"
	"github.com/Santiago-Beltran/ecommerce-full-ETL-process/internal/warehouse"
)

// ErrSourceDateProcessed - udany run dla tej lub późniejszej daty już był.
var ErrSourceDateProcessed = errors.New("source date already processed")

type State string

const (
	StateStarted                 State = "started"
	StateValidating              State = "validating"
	StateSynchronizingDimensions State = "synchronizing_dimensions"
	StateLoadingFacts            State = "loading_facts"
	StateSuccess                 State = "success"
	StateFailed                  State = "failed"
)

// Run - kontekst jednego wykonania, przekazywany jawnie między etapami.
type Run struct {
	Record     *db.RunRecord
	SourceDate db.Date
	State      State
	Anomalies  *dq.Log
	Rows       db.RowCounts

	persisted int // ile wpisów z Anomalies już zapisano do etl_error_log
}

// Report - podsumowanie runu dla wywołującego.
type Report struct {
	RunID      int64
	SourceDate db.Date
	Status     string
	Users      warehouse.DimStats
	Products   warehouse.DimStats
	Stock      warehouse.StockStats
	Facts      warehouse.FactStats
	Rejected   int
	Rows       db.RowCounts
	Summary    dq.Summary
	Totals     *Totals // tylko po sukcesie
}

type Options struct {
	BatchSize int
	Metrics   *metrics.Recorder
	Now       func() time.Time
}

type Orchestrator struct {
	source  source.Reader
	target  *gorm.DB
	ledger  *ledger.Ledger
	metrics *metrics.Recorder
	log     zerolog.Logger
	now     func() time.Time
	batch   int
}

func New(src source.Reader, target *gorm.DB, log zerolog.Logger, opts Options) *Orchestrator {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	batch := opts.BatchSize
	if batch <= 0 {
		batch = conf.DefaultBatchSize
	}
	return &Orchestrator{
		source:  src,
		target:  target,
		ledger:  ledger.New(target, log.With().Str("component", "ledger").Logger()).WithClock(now),
		metrics: opts.Metrics,
		log:     log,
		now:     now,
		batch:   batch,
	}
}

func (o *Orchestrator) Ledger() *ledger.Ledger { return o.ledger }

// Run wykonuje run dla sourceDate. Raport wraca także przy błędzie,
// o ile rekord runu zdążył powstać.
func (o *Orchestrator) Run(ctx context.Context, sourceDate db.Date) (*Report, error) {
	last, err := o.ledger.LastSuccessful(ctx)
	if err != nil {
		return nil, err
	}
	if last != nil && !last.SourceDate.Before(sourceDate) {
		return nil, fmt.Errorf("%w: %s (run %d covered %s)", ErrSourceDateProcessed, sourceDate, last.RunID, last.SourceDate)
	}

	rec, err := o.ledger.Start(ctx, sourceDate)
	if err != nil {
		return nil, err
	}
	run := &Run{
		Record:     rec,
		SourceDate: sourceDate,
		State:      StateStarted,
		Anomalies:  dq.NewLog(o.log.With().Int64("run_id", rec.RunID).Logger()).WithClock(o.now),
	}
	rep := &Report{RunID: rec.RunID, SourceDate: sourceDate}

	runErr := o.execute(ctx, run, rep)
	// zamknięcie runu musi się odbyć nawet po anulowaniu kontekstu
	finErr := o.finish(context.WithoutCancel(ctx), run, rep, runErr)
	return rep, errors.Join(runErr, finErr)
}

func (o *Orchestrator) execute(ctx context.Context, run *Run, rep *Report) error {
	o.transition(run, StateValidating)
	snap, err := o.source.Read(ctx, run.SourceDate)
	if err != nil {
		return fmt.Errorf("read source: %w", err)
	}
	out := validate.New(o.log, run.Anomalies).All(snap)
	rep.Rejected = out.Rejected()
	if err := o.flush(ctx, run); err != nil {
		return err
	}

	o.transition(run, StateSynchronizingDimensions)

	var users warehouse.DimStats
	err = o.stage(ctx, run, "dim_user", func(l *warehouse.Loader) (err error) {
		users, err = l.Users(out.Users.Accepted, run.SourceDate)
		return err
	})
	if err != nil {
		return err
	}
	rep.Users = users
	run.Rows.DimUserInserted = users.Inserted + users.Updated
	run.Rows.DimUserUpdated = users.Updated

	var products warehouse.DimStats
	err = o.stage(ctx, run, "dim_product", func(l *warehouse.Loader) (err error) {
		products, err = l.Products(out.Products.Accepted, run.SourceDate)
		return err
	})
	if err != nil {
		return err
	}
	rep.Products = products
	run.Rows.DimProductInserted = products.Inserted + products.Updated
	run.Rows.DimProductUpdated = products.Updated

	o.transition(run, StateLoadingFacts)

	var (
		stock warehouse.StockStats
		facts warehouse.FactStats
	)
	err = o.stage(ctx, run, "facts", func(l *warehouse.Loader) (err error) {
		if _, err = l.Dates().Ensure(run.SourceDate); err != nil {
			return err
		}
		if stock, err = l.Stock(out.Products.Accepted, run.SourceDate); err != nil {
			return err
		}
		facts, err = l.Transactions(out.Transactions.Accepted, run.SourceDate)
		return err
	})
	if err != nil {
		return err
	}
	rep.Stock = stock
	rep.Facts = facts
	run.Rows.FactStockHistoryInserted = stock.Inserted
	run.Rows.FactTransactionsInserted = facts.Inserted
	return nil
}

// stage wykonuje fn w osobnej transakcji. Błąd wycofuje tylko ten etap;
// anomalie etapu i tak trafiają do dziennika.
func (o *Orchestrator) stage(ctx context.Context, run *Run, name string, fn func(l *warehouse.Loader) error) error {
	log := o.log.With().Int64("run_id", run.Record.RunID).Str("stage", name).Logger()
	stageLog := run.Anomalies.Fork()
	started := o.now()

	var dates int
	err := o.target.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		l := warehouse.NewLoader(tx, stageLog, log).WithBatchSize(o.batch)
		if err := fn(l); err != nil {
			return err
		}
		dates = l.Dates().Inserted()
		return nil
	})
	run.Anomalies.Merge(stageLog)

	if err != nil {
		log.Error().Err(err).Msg("stage rolled back")
		if ferr := o.flush(ctx, run); ferr != nil {
			log.Error().Err(ferr).Msg("could not persist stage anomalies")
		}
		return fmt.Errorf("stage %s: %w", name, err)
	}

	run.Rows.DimDateInserted += dates
	log.Debug().Dur("took", o.now().Sub(started)).Int("anomalies", stageLog.Len()).Msg("stage committed")
	return o.flush(ctx, run)
}

// flush dopisuje do etl_error_log wpisy, których jeszcze nie zapisano.
func (o *Orchestrator) flush(ctx context.Context, run *Run) error {
	pending := run.Anomalies.Since(run.persisted)
	if len(pending) == 0 {
		return nil
	}
	if err := o.ledger.Record(ctx, run.Record.RunID, pending); err != nil {
		return err
	}
	run.persisted += len(pending)
	return nil
}

func (o *Orchestrator) finish(ctx context.Context, run *Run, rep *Report, runErr error) error {
	status := db.StatusSuccess
	state := StateSuccess
	notes := ""
	if runErr != nil {
		status, state = db.StatusFailed, StateFailed
		notes = runErr.Error()
	}
	o.transition(run, state)

	var errs []error
	if err := o.flush(ctx, run); err != nil {
		errs = append(errs, err)
	}

	rep.Status = status
	rep.Rows = run.Rows
	rep.Summary = run.Anomalies.Summary()

	if runErr == nil {
		t, err := o.totals(ctx)
		if err != nil {
			errs = append(errs, err)
		} else {
			rep.Totals = t
			t.log(o.log.Info().Int64("run_id", run.Record.RunID))
		}
	}

	err := o.ledger.Finish(ctx, run.Record, ledger.Result{
		Status:  status,
		Rows:    run.Rows,
		Summary: rep.Summary,
		Notes:   notes,
	})
	if err != nil {
		errs = append(errs, err)
	} else if o.metrics != nil {
		o.metrics.ObserveRun(run.Record, rep.Summary)
	}
	return errors.Join(errs...)
}

func (o *Orchestrator) transition(run *Run, to State) {
	o.log.Info().
		Int64("run_id", run.Record.RunID).
		Str("source_date", run.SourceDate.String()).
		Str("from", string(run.State)).
		Str("state", string(to)).
		Msg("run state")
	run.State = to
}
