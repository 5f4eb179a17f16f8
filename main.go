package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	conf "github.com/Santiago-Beltran/ecommerce-full-ETL-process/internal/config"
	logs "github.com/Santiago-Beltran/ecommerce-full-ETL-process/internal/logs"
	"github.com/Santiago-Beltran/ecommerce-full-ETL-process/internal/metrics"
)

var ver = "1.0.0"

const appName = "olapsync"

// app - wspólny stan komend: config i logger
type app struct {
	appDir  string
	cfgPath string
	cfg     *conf.Config
	log     zerolog.Logger
}

func main() {
	// kontekst sterujący życiem procesu (CTRL+C / SIGTERM)
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		cancel()
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:          appName,
		Short:        "Daily OLTP to OLAP reconciliation (SCD2 dimensions, stock history, transaction facts)",
		Version:      ver,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init()
		},
	}
	root.PersistentFlags().StringVar(&a.cfgPath, "config", "", "config file (.json or .yaml), default <user config dir>/"+appName+"/config.json")

	root.AddCommand(
		newRunCmd(a),
		newMigrateCmd(a),
		newStatusCmd(a),
		newScheduleCmd(a),
	)
	return root
}

func (a *app) init() error {
	if a.cfgPath == "" {
		a.appDir = mustAppDataDir(appName)
		a.cfgPath = filepath.Join(a.appDir, "config.json")
	} else {
		a.appDir = filepath.Dir(a.cfgPath)
	}

	cfg, firstRun, err := conf.LoadOrCreate(a.cfgPath)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.log = logs.New(cfg.Log.File, cfg.Log.Console, cfg.Log.Level)
	if firstRun {
		a.log.Info().Msgf("Utworzono domyślną konfigurację: %s", a.cfgPath)
	}
	a.log.Debug().Str("config", a.cfgPath).Str("version", ver).Msg("config loaded")
	return nil
}

func mustAppDataDir(name string) string {
	base, err := os.UserConfigDir()
	if err != nil {
		panic(err)
	}
	p := filepath.Join(base, name)
	_ = os.MkdirAll(p, 0o755)
	return p
}

func (a *app) writeMetrics(rec *metrics.Recorder) {
	if a.cfg.Metrics.Textfile == "" {
		return
	}
	if err := rec.WriteTextfile(a.cfg.Metrics.Textfile); err != nil {
		a.log.Error().Err(err).Str("file", a.cfg.Metrics.Textfile).Msg("metrics textfile write failed")
	}
}
