package main

import (
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jamesainslie/verity/pkg/verity/config"
	"github.com/jamesainslie/verity/pkg/verity/rules"
)

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Inspect the rule catalog",
}

var rulesListCmd = &cobra.Command{
	Use:   "list [path]",
	Short: "List the rules the manifest defines, in batch order",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runRulesList,
}

func init() {
	rulesCmd.AddCommand(rulesListCmd)
	rootCmd.AddCommand(rulesCmd)
}

func runRulesList(cmd *cobra.Command, args []string) error {
	root := viper.GetString("root")
	if len(args) > 0 {
		root = args[0]
	}
	if root == "" {
		root = config.DefaultRoot
	}
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return fmt.Errorf("failed to resolve root %q: %w", root, err)
	}

	manifest := viper.GetString("manifest")
	if manifest == "" {
		manifest = config.DefaultManifest
	}
	if !filepath.IsAbs(manifest) {
		manifest = filepath.Join(absRoot, manifest)
	}

	data, err := os.ReadFile(manifest)
	if err != nil {
		return fmt.Errorf("failed to read rule manifest: %w", err)
	}
	registry, err := rules.Parse(data, absRoot)
	if err != nil {
		return fmt.Errorf("failed to parse rule manifest: %w", err)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "BATCH\tRULE")
	for i, batch := range registry.Batches() {
		for _, r := range batch {
			fmt.Fprintf(w, "%d\t%s\n", i+1, r.ID())
		}
	}
	return w.Flush()
}
