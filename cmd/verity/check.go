package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jamesainslie/verity/pkg/verity/config"
	"github.com/jamesainslie/verity/pkg/verity/fscache"
	"github.com/jamesainslie/verity/pkg/verity/output"
	"github.com/jamesainslie/verity/pkg/verity/profiler"
	"github.com/jamesainslie/verity/pkg/verity/rule"
	"github.com/jamesainslie/verity/pkg/verity/runner"
	"github.com/jamesainslie/verity/pkg/verity/rules"
	"github.com/jamesainslie/verity/pkg/verity/types"
)

// checkSetup holds everything a validation run needs, assembled once from
// flags, config and the manifest.
type checkSetup struct {
	root     string
	registry *rule.Registry
	cache    *fscache.Cache
	runner   *runner.Runner
	store    *profiler.Store
	format   string
}

func runCheck(cmd *cobra.Command, args []string) error {
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

	report, err := setup.runner.Run(ctx, setup.registry)
	if err != nil {
		return fmt.Errorf("validation run failed: %w", err)
	}
	printVerbose("validated %s files under %s",
		types.FormatCount(setup.cache.Get(setup.root).TotalFiles()), setup.root)

	if err := renderReport(report, setup.format); err != nil {
		return err
	}

	if !report.Ok() {
		return fmt.Errorf("%d of %d rules failed", report.Failed(), len(report.Results))
	}
	return nil
}

// prepareCheck resolves the root and manifest, loads the rule catalog and
// the persisted execution profile, and wires up a runner.
func prepareCheck(args []string) (*checkSetup, error) {
	root := viper.GetString("root")
	if len(args) > 0 {
		root = args[0]
	}
	if root == "" {
		root = config.DefaultRoot
	}
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve root %q: %w", root, err)
	}
	info, err := os.Stat(absRoot)
	if err != nil {
		return nil, fmt.Errorf("root %q is not accessible: %w", absRoot, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("root %q is not a directory", absRoot)
	}

	manifest := viper.GetString("manifest")
	if manifest == "" {
		manifest = config.DefaultManifest
	}
	if !filepath.IsAbs(manifest) {
		manifest = filepath.Join(absRoot, manifest)
	}
	registry, err := rules.Load(manifest, absRoot)
	if err != nil {
		return nil, fmt.Errorf("failed to load rule manifest: %w", err)
	}
	if registry.Len() == 0 {
		return nil, fmt.Errorf("manifest %q defines no rules", manifest)
	}
	printVerbose("loaded %d rules from %s", registry.Len(), manifest)

	ttl := viper.GetInt("ttl_seconds")
	if ttl <= 0 {
		ttl = config.DefaultTTLSeconds
	}
	cache := fscache.New(time.Duration(ttl) * time.Second)

	prof, store := openProfile()

	r := runner.New(runner.Options{
		Root:         absRoot,
		Cache:        cache,
		Profiler:     prof,
		Store:        store,
		MaxWorkers:   viper.GetInt("max_workers"),
		BatchTimeout: time.Duration(viper.GetInt("timeout_seconds")) * time.Second,
	})

	format := viper.GetString("output")
	if format == "" {
		format = config.DefaultOutput
	}

	return &checkSetup{
		root:     absRoot,
		registry: registry,
		cache:    cache,
		runner:   r,
		store:    store,
		format:   format,
	}, nil
}

// openProfile opens the persisted execution profile. Persistence is best
// effort: an unopenable or unreadable store degrades to a cold profiler
// with default estimates rather than failing the run.
func openProfile() (*profiler.Profiler, *profiler.Store) {
	if viper.GetBool("no_profile") || !viper.GetBool("profile.enabled") {
		return profiler.New(), nil
	}

	path := viper.GetString("profile.path")
	if path == "" {
		path = config.DefaultProfilePath()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		printVerbose("profile directory unavailable: %v", err)
		return profiler.New(), nil
	}

	store, err := profiler.OpenStore(path)
	if err != nil {
		printVerbose("profile store unavailable, starting cold: %v", err)
		return profiler.New(), nil
	}
	snapshot, err := store.Load()
	if err != nil {
		printVerbose("profile load failed, starting cold: %v", err)
		return profiler.New(), store
	}
	printVerbose("loaded execution profile with %d entries", len(snapshot))
	return profiler.NewFromSnapshot(snapshot), store
}

func (s *checkSetup) close() {
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			printVerbose("profile store close failed: %v", err)
		}
	}
}

// renderReport formats the report and writes it to stdout.
func renderReport(report *types.Report, format string) error {
	formatter, err := output.Get(format)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := formatter.Format(&buf, report); err != nil {
		return fmt.Errorf("failed to format report: %w", err)
	}
	fmt.Print(buf.String())
	return nil
}
