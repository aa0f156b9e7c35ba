package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jamesainslie/verity/pkg/verity/metrics"
	"github.com/jamesainslie/verity/pkg/verity/watcher"
)

var watchCmd = &cobra.Command{
	Use:   "watch [path]",
	Short: "Re-validate whenever the tree changes",
	Long: `Watch validates the tree, then keeps watching it for filesystem
changes. Each change invalidates the affected scan-cache scopes and, after
a short debounce, triggers another validation pass. The execution profile
keeps learning across passes, so estimates sharpen the longer watch runs.

When metrics are enabled, a Prometheus endpoint is served for the lifetime
of the watch.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().Bool("metrics", false, "serve Prometheus metrics while watching")
	watchCmd.Flags().String("metrics-listen", "", "metrics listen address (default: 127.0.0.1:9309)")
	_ = viper.BindPFlag("metrics.enabled", watchCmd.Flags().Lookup("metrics"))
	_ = viper.BindPFlag("metrics.listen", watchCmd.Flags().Lookup("metrics-listen"))

	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	if err := initLogging(); err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}

	setup, err := prepareCheck(args)
	if err != nil {
		return err
	}
	defer setup.close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if viper.GetBool("metrics.enabled") {
		collector := metrics.NewCollector()
		setup.runner = setup.runner.WithMetrics(collector)
		addr := viper.GetString("metrics.listen")
		go func() {
			if err := collector.Serve(addr); err != nil {
				printError("metrics endpoint failed: %v", err)
			}
		}()
		printInfo("Serving metrics on http://%s/metrics", addr)
	}

	w, err := watcher.New(setup.cache)
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer func() { _ = w.Close() }()
	if err := w.Watch(setup.root); err != nil {
		return fmt.Errorf("failed to watch %s: %w", setup.root, err)
	}

	validate := func() {
		report, err := setup.runner.Run(ctx, setup.registry)
		if err != nil {
			printError("validation run failed: %v", err)
			return
		}
		if err := renderReport(report, setup.format); err != nil {
			printError("%v", err)
		}
	}

	printInfo("Watching %s (Ctrl+C to stop)", setup.root)
	validate()
	w.Run(ctx, validate)
	return nil
}
