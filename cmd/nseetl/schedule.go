package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Run the pipeline on the configured cron spec",
	Args:  cobra.NoArgs,
	RunE:  runSchedule,
}

func init() {
	rootCmd.AddCommand(scheduleCmd)
}

func runSchedule(cmd *cobra.Command, args []string) error {
	cfg, log, a, err := setup()
	if err != nil {
		return err
	}
	defer log.Sync()
	defer a.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info("starting scheduler",
		zap.String("spec", cfg.Schedule.Spec),
		zap.String("timezone", cfg.Schedule.Timezone),
		zap.String("metrics", cfg.Metrics.Listen),
	)
	if err := a.Schedule(ctx); err != nil {
		return err
	}
	log.Info("scheduler stopped")
	return nil
}
