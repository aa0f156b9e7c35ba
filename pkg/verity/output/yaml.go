package output

import (
	"bytes"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/jamesainslie/verity/pkg/verity/types"
)

// yamlOutput represents the full YAML output structure.
type yamlOutput struct {
	Results []yamlResult `yaml:"results"`
	Batches []yamlBatch  `yaml:"batches"`
	Meta    yamlMeta     `yaml:"meta"`
}

// yamlResult represents one rule outcome in YAML output.
type yamlResult struct {
	RuleID   string `yaml:"rule_id"`
	Passed   bool   `yaml:"passed"`
	Pending  bool   `yaml:"pending,omitempty"`
	Duration string `yaml:"duration"`
	Evidence string `yaml:"evidence,omitempty"`
}

// yamlBatch represents batch scheduling metadata in YAML output.
type yamlBatch struct {
	Group          int     `yaml:"group"`
	Rules          int     `yaml:"rules"`
	PlannedWorkers int     `yaml:"planned_workers"`
	WallClock      string  `yaml:"wall_clock"`
	IdlePercent    float64 `yaml:"idle_percent"`
	Steals         int64   `yaml:"steals"`
	TimedOut       bool    `yaml:"timed_out,omitempty"`
}

// yamlMeta represents run metadata in YAML output.
type yamlMeta struct {
	RunID       string    `yaml:"run_id"`
	Root        string    `yaml:"root"`
	StartedAt   time.Time `yaml:"started_at"`
	WallClock   string    `yaml:"wall_clock"`
	Passed      int       `yaml:"passed"`
	Failed      int       `yaml:"failed"`
	CacheHits   int64     `yaml:"cache_hits"`
	CacheMisses int64     `yaml:"cache_misses"`
}

// YAMLFormatter formats a report as a YAML document in rule-id order.
type YAMLFormatter struct{}

// Format writes the formatted report to the buffer.
func (f *YAMLFormatter) Format(w *bytes.Buffer, r *types.Report) error {
	ordered := r.Ordered()
	results := make([]yamlResult, len(ordered))
	for i, res := range ordered {
		results[i] = yamlResult{
			RuleID:   res.RuleID,
			Passed:   res.Passed,
			Pending:  res.Pending,
			Duration: res.Duration.String(),
			Evidence: res.Evidence,
		}
	}

	batches := make([]yamlBatch, len(r.Batches))
	for i, b := range r.Batches {
		batches[i] = yamlBatch{
			Group:          b.Group,
			Rules:          b.Rules,
			PlannedWorkers: b.PlannedWorkers,
			WallClock:      b.WallClock.String(),
			IdlePercent:    b.IdlePercent,
			Steals:         b.Steals,
			TimedOut:       b.TimedOut,
		}
	}

	out := yamlOutput{
		Results: results,
		Batches: batches,
		Meta: yamlMeta{
			RunID:       r.RunID,
			Root:        r.Root,
			StartedAt:   r.StartedAt,
			WallClock:   r.WallClock.String(),
			Passed:      r.Passed(),
			Failed:      r.Failed(),
			CacheHits:   r.CacheHits,
			CacheMisses: r.CacheMisses,
		},
	}

	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	defer func() { _ = encoder.Close() }()
	return encoder.Encode(out)
}

func init() {
	Register("yaml", func() Formatter {
		return &YAMLFormatter{}
	})
}

// Ensure YAMLFormatter implements Formatter.
var _ Formatter = (*YAMLFormatter)(nil)
