package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	conf "github.com/Santiago-Beltran/ecommerce-full-ETL-process/internal/config"
	"github.com/Santiago-Beltran/ecommerce-full-ETL-process/internal/db"
	"github.com/Santiago-Beltran/ecommerce-full-ETL-process/internal/scheduler"
)

func newScheduleCmd(a *app) *cobra.Command {
	var catchUp, interactive bool
	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Run the ETL daily at schedule.at for today - lag_days",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			env, err := a.openPipeline()
			if err != nil {
				return err
			}
			defer env.close()

			s := scheduler.New(a.log, a.cfg.Schedule, func(ctx context.Context, day db.Date) error {
				rep, err := env.orch.Run(ctx, day)
				a.writeMetrics(env.metrics)
				if rep != nil {
					a.log.Info().Int64("run_id", rep.RunID).Str("status", rep.Status).Msg("scheduled run done")
				}
				return err
			})
			if err := s.Start(ctx); err != nil {
				return err
			}
			defer s.Stop()
			a.log.Info().Msgf("%s %s: harmonogram działa, następny run %s", appName, ver, s.NextRun().Format("2006-01-02 15:04 MST"))

			if catchUp {
				if err := s.RunNow(ctx); err != nil {
					a.log.Error().Err(err).Msg("catch-up run failed")
				}
			}

			if !interactive {
				<-ctx.Done()
				return nil
			}
			return a.console(ctx, s, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
	cmd.Flags().BoolVar(&catchUp, "catch-up", false, "run once for the current source date right after start")
	cmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "read commands from stdin (start | stop | reload | status | run | paths | quit)")
	return cmd
}

// console - prosta pętla poleceń w terminalu
func (a *app) console(ctx context.Context, s *scheduler.Scheduler, in io.Reader, out io.Writer) error {
	const help = "Komendy: start | stop | reload | status | run | paths | quit"
	fmt.Fprintln(out, appName, ver)
	fmt.Fprintln(out, help)

	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			lines <- sc.Text()
		}
	}()

	for {
		fmt.Fprint(out, "> ")
		var line string
		select {
		case <-ctx.Done():
			return nil
		case l, ok := <-lines:
			if !ok {
				return nil
			}
			line = l
		}

		switch strings.TrimSpace(strings.ToLower(line)) {
		case "start":
			if err := s.Start(ctx); err != nil {
				fmt.Fprintln(out, "Błąd startu:", err)
				continue
			}
			fmt.Fprintln(out, "Start OK")
		case "stop":
			s.Stop()
			fmt.Fprintln(out, "Zatrzymano")
		case "reload":
			cfg, _, err := conf.LoadOrCreate(a.cfgPath)
			if err != nil {
				a.log.Error().Err(err).Msg("reload failed")
				fmt.Fprintln(out, "Błąd reloadu:", err)
				continue
			}
			a.cfg = cfg
			if err := s.UpdateConfig(ctx, cfg.Schedule); err != nil {
				fmt.Fprintln(out, "Błąd reloadu:", err)
				continue
			}
			a.log.Info().Msg("Konfiguracja przeładowana")
			fmt.Fprintln(out, "Konfiguracja przeładowana")
		case "status":
			if s.IsRunning() {
				fmt.Fprintln(out, "Status: DZIAŁA, następny run:", s.NextRun().Format("2006-01-02 15:04 MST"))
			} else {
				fmt.Fprintln(out, "Status: ZATRZYMANY")
			}
		case "run":
			if err := s.RunNow(ctx); err != nil {
				fmt.Fprintln(out, "Run nieudany:", err)
				continue
			}
			fmt.Fprintln(out, "Run OK")
		case "paths":
			fmt.Fprintln(out, "Logi:", a.cfg.Log.File)
			fmt.Fprintln(out, "Config:", a.cfgPath)
		case "quit", "exit":
			return nil
		case "":
			// enter – ignoruj
		default:
			fmt.Fprintln(out, "Nieznana komenda.", help)
		}
	}
}
