package main

import (
	"fmt"
	"os"

	"github.com/newthinker/nseetl/internal/app"
	"github.com/newthinker/nseetl/internal/config"
	"github.com/newthinker/nseetl/internal/logger"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	cfgFile string
	debug   bool
)

var rootCmd = &cobra.Command{
	Use:   "nseetl",
	Short: "NSEETL - NSE equity report pipeline",
	Long: `NSEETL downloads the daily NSE bhav and market-activity reports,
keeps a sector membership snapshot and a trading calendar, and builds a
star schema (fact_bhavdata, fact_MA_report, dim_datetime) from the archive.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "enable debug mode")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// setup loads and validates the configuration and wires the pipeline
func setup() (*config.Config, *zap.Logger, *app.App, error) {
	var cfg *config.Config
	var err error

	if cfgFile != "" {
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("loading config: %w", err)
		}
	} else {
		cfg = config.Defaults()
	}

	if debug {
		cfg.Log.Development = true
		cfg.Log.Level = "debug"
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("creating logger: %w", err)
	}
	if cfgFile == "" {
		log.Warn("no config file specified, using defaults")
	}

	if err := cfg.Validate(); err != nil {
		return nil, nil, nil, fmt.Errorf("config validation failed: %w", err)
	}

	a, err := app.New(cfg, log)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("creating pipeline: %w", err)
	}
	return cfg, log, a, nil
}
