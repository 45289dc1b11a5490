// Package cmd wires the command line interface.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/evfleet/taxisim/app"
	"github.com/evfleet/taxisim/config"
	"github.com/evfleet/taxisim/infra/logger"
)

var cfgPath string

var rootCmd = &cobra.Command{
	Use:   "taxisim",
	Short: "Discrete-event taxi fleet simulation",
	RunE:  run,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "config.yaml", "configuration file")
}

// Execute runs the CLI.
func Execute() error { return rootCmd.Execute() }

func run(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	svc, err := app.New(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := svc.Close(); err != nil {
			logger.New("main").Errorf("service close: %v", err)
		}
	}()

	if err := svc.Scenario.Run(ctx); err != nil {
		// A cancelled run still gets its partial report.
		if !errors.Is(err, context.Canceled) {
			return err
		}
	}
	if cfg.Output.RidesDir != "" {
		if err := svc.ExportRides(cfg.Output.RidesDir); err != nil {
			return err
		}
	}
	return svc.PrintReport()
}
