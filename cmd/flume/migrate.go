package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/flume-app/flume-backend/internal/bootstrap"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the Postgres document table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			pool, err := bootstrap.OpenDB(app.ctx, bootstrap.DBOptions{DSN: app.cfg.Database.DSN})
			if err != nil {
				return err
			}
			defer pool.Close()

			if err := bootstrap.Migrate(app.ctx, pool); err != nil {
				return err
			}
			app.logger.Info("schema applied")
			fmt.Println("✓ Schema is up to date")
			return nil
		},
	}
}
