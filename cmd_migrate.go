package main

import (
	"fmt"

	"github.com/spf13/cobra"

	conf "github.com/Santiago-Beltran/ecommerce-full-ETL-process/internal/config"
	"github.com/Santiago-Beltran/ecommerce-full-ETL-process/internal/db"
	"github.com/Santiago-Beltran/ecommerce-full-ETL-process/internal/source"
)

func newMigrateCmd(a *app) *cobra.Command {
	var withSource bool
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the warehouse schema and indexes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			target, err := db.Open(a.cfg.Target, a.log)
			if err != nil {
				return fmt.Errorf("open target: %w", err)
			}
			defer target.Close()
			if err := target.Migrate(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "target schema ready (%s %s)\n", target.Driver, target.Path)

			if !withSource {
				return nil
			}
			if a.cfg.Source.Driver == conf.DriverXML {
				return fmt.Errorf("--source: driver %q has no schema", conf.DriverXML)
			}
			src, err := db.Open(a.cfg.Source, a.log)
			if err != nil {
				return fmt.Errorf("open source: %w", err)
			}
			defer src.Close()
			if err := source.Migrate(src.DB); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "source schema ready (%s %s)\n", src.Driver, src.Path)
			return nil
		},
	}
	cmd.Flags().BoolVar(&withSource, "source", false, "also create the OLTP tables in the source database (dev/test setups)")
	return cmd
}
