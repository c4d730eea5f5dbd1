package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/newthinker/nseetl/internal/config"
	"github.com/newthinker/nseetl/internal/core"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Refresh sectors and download today's reports",
	Args:  cobra.NoArgs,
	RunE:  runFetch,
}

var backfillCmd = &cobra.Command{
	Use:   "backfill",
	Short: "Download reports for every trading day in a range",
	Args:  cobra.NoArgs,
	RunE:  runBackfill,
}

var holidaysCmd = &cobra.Command{
	Use:   "holidays",
	Short: "Rebuild the trading holiday calendar for a year",
	Args:  cobra.NoArgs,
	RunE:  runHolidays,
}

var (
	backfillFrom string
	backfillTo   string
	holidayYear  int
)

func init() {
	backfillCmd.Flags().StringVar(&backfillFrom, "from", "", "first date (dd-Mon-yyyy), defaults to fetch.backfill_start")
	backfillCmd.Flags().StringVar(&backfillTo, "to", "", "last date (dd-Mon-yyyy), defaults to today")
	holidaysCmd.Flags().IntVar(&holidayYear, "year", 0, "calendar year, defaults to the current year")

	rootCmd.AddCommand(fetchCmd)
	rootCmd.AddCommand(backfillCmd)
	rootCmd.AddCommand(holidaysCmd)
}

func runFetch(cmd *cobra.Command, args []string) error {
	_, log, a, err := setup()
	if err != nil {
		return err
	}
	defer log.Sync()
	defer a.Close()

	sum, err := a.Fetch(cmd.Context())
	if err != nil {
		if isFatal(err) {
			return err
		}
		log.Warn("fetch finished with errors", zap.Error(err))
	}
	fmt.Printf("dates=%d saved=%d missing=%d failed=%d\n", sum.Dates, sum.Saved, sum.Missing, sum.Failed)
	return nil
}

func runBackfill(cmd *cobra.Command, args []string) error {
	cfg, log, a, err := setup()
	if err != nil {
		return err
	}
	defer log.Sync()
	defer a.Close()

	start, err := cfg.BackfillStartDate()
	if err != nil {
		return err
	}
	if backfillFrom != "" {
		if start, err = parseDate(backfillFrom); err != nil {
			return err
		}
	}
	end := a.Today()
	if backfillTo != "" {
		if end, err = parseDate(backfillTo); err != nil {
			return err
		}
	}
	if end.Before(start) {
		return fmt.Errorf("--to %s is before --from %s", end.Format(config.DateLayout), start.Format(config.DateLayout))
	}

	sum, err := a.Backfill(cmd.Context(), start, end)
	if err != nil {
		return err
	}
	fmt.Printf("dates=%d saved=%d missing=%d failed=%d\n", sum.Dates, sum.Saved, sum.Missing, sum.Failed)
	return nil
}

func runHolidays(cmd *cobra.Command, args []string) error {
	_, log, a, err := setup()
	if err != nil {
		return err
	}
	defer log.Sync()
	defer a.Close()

	year := holidayYear
	if year == 0 {
		year = a.Today().Year()
	}

	n, err := a.Holidays(cmd.Context(), year)
	if err != nil {
		return err
	}
	fmt.Printf("%d non-trading days saved for %d\n", n, year)
	return nil
}

func parseDate(s string) (time.Time, error) {
	t, err := time.Parse(config.DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("date %q must look like 01-Apr-2023: %w", s, err)
	}
	return t, nil
}

// isFatal reports errors that leave nothing to continue from: missing
// inputs, bad configuration or cancellation.
func isFatal(err error) bool {
	return errors.Is(err, core.ErrCalendarMissing) ||
		errors.Is(err, core.ErrConfigInvalid) ||
		errors.Is(err, core.ErrConfigMissing) ||
		errors.Is(err, context.Canceled)
}
