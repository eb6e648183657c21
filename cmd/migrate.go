package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yungbote/commonground-backend/internal/app"
	"github.com/yungbote/commonground-backend/internal/platform/logger"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withConfig(func(log *logger.Logger, cfg app.Config) error {
				if cfg.DBDriver == app.DriverMemory {
					return fmt.Errorf("migrate: DB_DRIVER=memory has no schema")
				}
				st, err := app.OpenStorage(cmd.Context(), cfg, log, true)
				if err != nil {
					return err
				}
				defer st.Close()
				fmt.Fprintf(cmd.OutOrStdout(), "schema up to date (%s)\n", cfg.DBDriver)
				return nil
			})
		},
	}
}
