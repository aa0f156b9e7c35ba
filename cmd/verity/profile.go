package main

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jamesainslie/verity/pkg/verity/config"
	"github.com/jamesainslie/verity/pkg/verity/profiler"
)

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Manage the persisted execution-cost profile",
	Long: `The execution profile records per-rule running cost statistics
(sample count, mean, variance) across runs. The scheduler uses it to place
expensive rules first, so a warm profile yields better batch makespans.`,
}

var profileShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the persisted profile as JSON",
	Args:  cobra.NoArgs,
	RunE:  runProfileShow,
}

var profileClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete the persisted profile",
	Args:  cobra.NoArgs,
	RunE:  runProfileClear,
}

var profilePathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the profile store location",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(profilePath())
	},
}

func init() {
	profileCmd.AddCommand(profileShowCmd)
	profileCmd.AddCommand(profileClearCmd)
	profileCmd.AddCommand(profilePathCmd)
	rootCmd.AddCommand(profileCmd)
}

func profilePath() string {
	if path := viper.GetString("profile.path"); path != "" {
		return path
	}
	return config.DefaultProfilePath()
}

// profileLine is the JSON shape of one rule's profile entry, with the
// mean rendered as a duration for readability.
type profileLine struct {
	RuleID      string  `json:"rule_id"`
	SampleCount int64   `json:"sample_count"`
	Mean        string  `json:"mean"`
	MeanSeconds float64 `json:"running_mean"`
	Variance    float64 `json:"running_variance"`
}

func runProfileShow(cmd *cobra.Command, args []string) error {
	path := profilePath()
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("no profile at %s", path)
	}

	store, err := profiler.OpenStore(path)
	if err != nil {
		return fmt.Errorf("failed to open profile store: %w", err)
	}
	defer func() { _ = store.Close() }()

	entries, err := store.Load()
	if err != nil {
		return fmt.Errorf("failed to load profile: %w", err)
	}

	lines := make([]profileLine, 0, len(entries))
	for id, e := range entries {
		lines = append(lines, profileLine{
			RuleID:      id,
			SampleCount: e.SampleCount,
			Mean:        time.Duration(e.Mean * float64(time.Second)).Round(time.Microsecond).String(),
			MeanSeconds: e.Mean,
			Variance:    e.Variance,
		})
	}
	sort.Slice(lines, func(i, j int) bool { return lines[i].RuleID < lines[j].RuleID })

	data, err := json.MarshalIndent(lines, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal profile: %w", err)
	}
	fmt.Println(string(data))
	return nil
}

func runProfileClear(cmd *cobra.Command, args []string) error {
	path := profilePath()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		printInfo("No profile at %s", path)
		return nil
	}
	if err := os.RemoveAll(path); err != nil {
		return fmt.Errorf("failed to clear profile: %w", err)
	}
	printInfo("Cleared profile at %s", path)
	return nil
}
