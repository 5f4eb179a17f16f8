package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/Santiago-Beltran/ecommerce-full-ETL-process/internal/db"
	"github.com/Santiago-Beltran/ecommerce-full-ETL-process/internal/dq"
	"github.com/Santiago-Beltran/ecommerce-full-ETL-process/internal/metrics"
	"github.com/Santiago-Beltran/ecommerce-full-ETL-process/internal/pipeline"
	"github.com/Santiago-Beltran/ecommerce-full-ETL-process/internal/source"
)

func newRunCmd(a *app) *cobra.Command {
	var today string
	cmd := &cobra.Command{
		Use:   "run --today YYYY-MM-DD",
		Short: "Reconcile one source day into the warehouse",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			day, err := parseToday(today)
			if err != nil {
				return err
			}

			env, err := a.openPipeline()
			if err != nil {
				return err
			}
			defer env.close()

			rep, err := env.orch.Run(cmd.Context(), day)
			a.writeMetrics(env.metrics)
			if rep != nil {
				printReport(cmd.OutOrStdout(), rep)
			}
			return err
		},
	}
	cmd.Flags().StringVar(&today, "today", "", "source date to process (YYYY-MM-DD)")
	_ = cmd.MarkFlagRequired("today")
	return cmd
}

func parseToday(s string) (db.Date, error) {
	day, err := db.ParseDate(s)
	if err != nil {
		return db.Date{}, fmt.Errorf("invalid --today %q: expected YYYY-MM-DD", s)
	}
	return day, nil
}

// pipelineEnv - otwarte źródło i hurtownia z orkiestratorem
type pipelineEnv struct {
	target  *db.Handle
	src     source.Reader
	orch    *pipeline.Orchestrator
	metrics *metrics.Recorder
}

func (a *app) openPipeline() (*pipelineEnv, error) {
	target, err := db.Open(a.cfg.Target, a.log)
	if err != nil {
		return nil, fmt.Errorf("open target: %w", err)
	}
	if err := target.Migrate(); err != nil {
		_ = target.Close()
		return nil, fmt.Errorf("migrate target: %w", err)
	}
	a.log.Info().Str("driver", target.Driver).Str("db", target.Path).Msg("DB ready")

	src, err := source.Open(a.cfg.Source, a.log)
	if err != nil {
		_ = target.Close()
		return nil, fmt.Errorf("open source: %w", err)
	}

	rec := metrics.New()
	return &pipelineEnv{
		target:  target,
		src:     src,
		metrics: rec,
		orch: pipeline.New(src, target.DB, a.log, pipeline.Options{
			BatchSize: a.cfg.BatchSize,
			Metrics:   rec,
		}),
	}, nil
}

func (e *pipelineEnv) close() {
	_ = e.src.Close()
	_ = e.target.Close()
}

func printReport(w io.Writer, r *pipeline.Report) {
	fmt.Fprintf(w, "run %d  source_date %s  status %s\n", r.RunID, r.SourceDate, r.Status)
	fmt.Fprintf(w, "  dim_user      inserted %d  updated %d  unchanged %d\n", r.Users.Inserted, r.Users.Updated, r.Users.Unchanged)
	fmt.Fprintf(w, "  dim_product   inserted %d  updated %d  unchanged %d\n", r.Products.Inserted, r.Products.Updated, r.Products.Unchanged)
	fmt.Fprintf(w, "  stock         inserted %d  unchanged %d  skipped %d\n", r.Stock.Inserted, r.Stock.Unchanged, r.Stock.Skipped)
	fmt.Fprintf(w, "  transactions  inserted %d  already loaded %d  orphaned %d  duplicates %d\n",
		r.Facts.Inserted, r.Facts.AlreadyLoaded, r.Facts.Orphaned, r.Facts.Duplicates)
	fmt.Fprintf(w, "  rejected %d  errors %d  warnings %d\n", r.Rejected, r.Summary.Errors, r.Summary.Warnings)
	for _, k := range dq.Kinds() {
		if n := r.Summary.Count(k); n > 0 {
			fmt.Fprintf(w, "    %-24s %d\n", k, n)
		}
	}
	if t := r.Totals; t != nil {
		fmt.Fprintf(w, "  totals: dim_user %d (%d current)  dim_product %d (%d current)  dim_date %d  facts %d  stock rows %d\n",
			t.DimUser, t.DimUserCurrent, t.DimProduct, t.DimProductCurrent, t.DimDate, t.FactTransactions, t.FactStockHistory)
	}
}
