package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jamesainslie/verity/pkg/verity/config"
	"github.com/jamesainslie/verity/pkg/verity/logging"
)

var (
	cfgFile string
	rootCmd = &cobra.Command{
		Use:   "verity [path]",
		Short: "Validate the structural compliance of a file tree",
		Long: `Verity runs a catalog of structural rules against a file tree and
reports which rules pass and fail.

Rules come from a YAML manifest (.verity.yaml by default). Execution is
scheduled across an adaptive work-stealing worker pool, filesystem facts
are served from a TTL-bound scan cache, and per-rule execution costs are
profiled across runs to improve task placement.

Examples:
  verity                       # Validate current directory
  verity ~/src/service         # Validate a specific tree
  verity -o json .             # Machine-readable report
  verity watch .               # Re-validate on filesystem changes
  verity rules list            # Show the loaded rule catalog
  verity profile show          # Inspect the execution-cost profile`,
		Args:          cobra.MaximumNArgs(1),
		RunE:          runCheck,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

func init() {
	cobra.OnInitialize(initConfig)

	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ~/.config/verity/config.yaml)")
	rootCmd.PersistentFlags().StringP("manifest", "m", "", "rule manifest path (default: <root>/.verity.yaml)")
	rootCmd.PersistentFlags().IntP("max-workers", "w", 0, "upper bound on batch worker count (0=auto)")
	rootCmd.PersistentFlags().Int("ttl", 0, "scan-cache TTL in seconds (0=default)")
	rootCmd.PersistentFlags().Int("timeout", 0, "per-batch timeout in seconds (0=none)")
	rootCmd.PersistentFlags().StringP("output", "o", "", "output format (pretty, plain, json, yaml, tsv, markdown)")
	rootCmd.PersistentFlags().Bool("no-profile", false, "disable execution-profile persistence")
	rootCmd.PersistentFlags().BoolP("quiet", "q", false, "minimal output")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "debug output")

	// Bind flags to viper
	_ = viper.BindPFlag("manifest", rootCmd.PersistentFlags().Lookup("manifest"))
	_ = viper.BindPFlag("max_workers", rootCmd.PersistentFlags().Lookup("max-workers"))
	_ = viper.BindPFlag("ttl_seconds", rootCmd.PersistentFlags().Lookup("ttl"))
	_ = viper.BindPFlag("timeout_seconds", rootCmd.PersistentFlags().Lookup("timeout"))
	_ = viper.BindPFlag("output", rootCmd.PersistentFlags().Lookup("output"))
	_ = viper.BindPFlag("no_profile", rootCmd.PersistentFlags().Lookup("no-profile"))
	_ = viper.BindPFlag("quiet", rootCmd.PersistentFlags().Lookup("quiet"))
	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
}

// initConfig reads in config file and environment variables.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")

		if xdgConfigHome := os.Getenv("XDG_CONFIG_HOME"); xdgConfigHome != "" {
			viper.AddConfigPath(filepath.Join(xdgConfigHome, "verity"))
		}
		homeDir, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(homeDir, ".config", "verity"))
		}
	}

	viper.SetEnvPrefix("VERITY")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	config.SetDefaults(viper.GetViper())

	// Read config file (ignore if not found)
	_ = viper.ReadInConfig()
}

// initLogging configures the logging system from viper state.
func initLogging() error {
	level := viper.GetString("logging.level")
	if getVerbose() {
		level = "debug"
	}
	return logging.Init(logging.Config{
		Level:      level,
		Path:       viper.GetString("logging.path"),
		Components: viper.GetStringMapString("logging.components"),
	})
}

// Execute runs the root command.
func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		printError("%v", err)
	}
	return err
}

// getVerbose returns true if verbose mode is enabled.
func getVerbose() bool {
	return viper.GetBool("verbose")
}

// getQuiet returns true if quiet mode is enabled.
func getQuiet() bool {
	return viper.GetBool("quiet")
}

// printVerbose prints a message if verbose mode is enabled.
func printVerbose(format string, args ...interface{}) {
	if getVerbose() && !getQuiet() {
		fmt.Fprintf(os.Stderr, "[DEBUG] "+format+"\n", args...)
	}
}

// printInfo prints a message if quiet mode is not enabled.
func printInfo(format string, args ...interface{}) {
	if !getQuiet() {
		fmt.Printf(format+"\n", args...)
	}
}

// printError prints an error message to stderr.
func printError(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
}
