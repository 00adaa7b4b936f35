package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/flume-app/flume-backend/internal/bootstrap"
)

func remindCmd() *cobra.Command {
	var lookback time.Duration

	cmd := &cobra.Command{
		Use:   "remind",
		Short: "Remind volunteers of recent projects to submit their hours",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log := app.cfg, app.logger
			if lookback <= 0 {
				lookback = cfg.Reminders.Lookback
			}

			b, err := openBackends(app.ctx, cfg, log)
			if err != nil {
				return err
			}
			defer b.close(log)

			profiles := bootstrap.NewProfiles(cfg, b.store, b.redis, log)
			svc := bootstrap.NewProjectService(cfg, b.store, profiles, log)

			res, err := svc.SendReminders(app.ctx, lookback)
			if err != nil {
				return err
			}

			fmt.Printf("\n✓ Reminders completed!\n\n")
			fmt.Printf("Attempted: %d\n", res.Attempted)
			if res.Failed > 0 {
				fmt.Printf("⚠️  Failed:   %d\n", res.Failed)
			}
			if res.Attempted == 0 {
				fmt.Println("No reminders needed - no recent project is waiting on hours.")
			}
			return nil
		},
	}

	cmd.Flags().DurationVar(&lookback, "lookback", 0, "how far back to look for finished projects (default REMINDER_LOOKBACK)")
	return cmd
}
