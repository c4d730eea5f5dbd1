package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var transformCmd = &cobra.Command{
	Use:   "transform",
	Short: "Clean the raw archive and rebuild the star schema",
	Args:  cobra.NoArgs,
	RunE:  runTransform,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Fetch today's reports, then transform",
	Args:  cobra.NoArgs,
	RunE:  runPipeline,
}

func init() {
	rootCmd.AddCommand(transformCmd)
	rootCmd.AddCommand(runCmd)
}

func runTransform(cmd *cobra.Command, args []string) error {
	_, log, a, err := setup()
	if err != nil {
		return err
	}
	defer log.Sync()
	defer a.Close()

	schema, err := a.Transform(cmd.Context())
	if err != nil {
		if isFatal(err) {
			return err
		}
		log.Warn("transform finished with errors", zap.Error(err))
	}
	if schema != nil {
		fmt.Printf("fact_bhavdata=%d fact_MA_report=%d dim_datetime=%d\n",
			len(schema.FactBhav), len(schema.FactMA), len(schema.Dates))
	}
	return nil
}

func runPipeline(cmd *cobra.Command, args []string) error {
	_, log, a, err := setup()
	if err != nil {
		return err
	}
	defer log.Sync()
	defer a.Close()

	if err := a.Run(cmd.Context()); err != nil {
		if isFatal(err) {
			return err
		}
		log.Warn("run finished with errors", zap.Error(err))
	}
	return nil
}
