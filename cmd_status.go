package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/Santiago-Beltran/ecommerce-full-ETL-process/internal/db"
	"github.com/Santiago-Beltran/ecommerce-full-ETL-process/internal/dq"
	"github.com/Santiago-Beltran/ecommerce-full-ETL-process/internal/ledger"
)

func newStatusCmd(a *app) *cobra.Command {
	var (
		limit   int
		details bool
	)
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show recent runs from etl_run_log",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if limit <= 0 {
				return fmt.Errorf("--limit must be positive, got %d", limit)
			}
			target, err := db.Open(a.cfg.Target, a.log)
			if err != nil {
				return fmt.Errorf("open target: %w", err)
			}
			defer target.Close()
			if err := target.Migrate(); err != nil {
				return err
			}

			ctx := cmd.Context()
			l := ledger.New(target.DB, a.log)
			runs, err := l.Recent(ctx, limit)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(runs) == 0 {
				fmt.Fprintln(out, "no runs yet")
				return nil
			}

			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "RUN\tSOURCE DATE\tRUN DATE\tSTATUS\tDURATION\tERRORS\tWARNINGS\tTX\tNOTES")
			for _, r := range runs {
				fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%d\t%d\t%d\t%s\n",
					r.RunID, r.SourceDate, r.RunDate, r.EffectiveStatus(),
					(time.Duration(r.DurationMS) * time.Millisecond).String(),
					r.Errors, r.Warnings, r.Rows.FactTransactionsInserted, r.Notes)
			}
			if err := tw.Flush(); err != nil {
				return err
			}

			if !details {
				return nil
			}
			for _, r := range runs {
				counts, err := l.Metrics(ctx, r.RunID)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "\nrun %d:\n", r.RunID)
				for _, k := range dq.Kinds() {
					if n := counts[k]; n > 0 {
						fmt.Fprintf(out, "  %-24s %d\n", k, n)
					}
				}
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 10, "number of runs to show")
	cmd.Flags().BoolVar(&details, "details", false, "print per-type anomaly counts for each run")
	return cmd
}
