package output

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/jamesainslie/verity/pkg/verity/types"
)

// jsonOutput represents the full JSON output structure.
type jsonOutput struct {
	Results []jsonResult `json:"results"`
	Batches []jsonBatch  `json:"batches"`
	Meta    jsonMeta     `json:"meta"`
}

// jsonResult represents one rule outcome in JSON output.
type jsonResult struct {
	RuleID   string `json:"rule_id"`
	Passed   bool   `json:"passed"`
	Pending  bool   `json:"pending,omitempty"`
	Duration string `json:"duration"`
	Evidence string `json:"evidence,omitempty"`
}

// jsonBatch represents batch scheduling metadata in JSON output.
type jsonBatch struct {
	Group          int     `json:"group"`
	Rules          int     `json:"rules"`
	PlannedWorkers int     `json:"planned_workers"`
	WallClock      string  `json:"wall_clock"`
	IdlePercent    float64 `json:"idle_percent"`
	Steals         int64   `json:"steals"`
	TimedOut       bool    `json:"timed_out,omitempty"`
}

// jsonMeta represents run metadata in JSON output.
type jsonMeta struct {
	RunID       string    `json:"run_id"`
	Root        string    `json:"root"`
	StartedAt   time.Time `json:"started_at"`
	WallClock   string    `json:"wall_clock"`
	Passed      int       `json:"passed"`
	Failed      int       `json:"failed"`
	CacheHits   int64     `json:"cache_hits"`
	CacheMisses int64     `json:"cache_misses"`
}

// JSONFormatter formats a report as a single indented JSON object.
// Results are emitted in rule-id order so output diffs cleanly in CI.
type JSONFormatter struct{}

// Format writes the formatted report to the buffer.
func (f *JSONFormatter) Format(w *bytes.Buffer, r *types.Report) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(buildJSONOutput(r))
}

func buildJSONOutput(r *types.Report) jsonOutput {
	ordered := r.Ordered()
	results := make([]jsonResult, len(ordered))
	for i, res := range ordered {
		results[i] = jsonResult{
			RuleID:   res.RuleID,
			Passed:   res.Passed,
			Pending:  res.Pending,
			Duration: res.Duration.String(),
			Evidence: res.Evidence,
		}
	}

	batches := make([]jsonBatch, len(r.Batches))
	for i, b := range r.Batches {
		batches[i] = jsonBatch{
			Group:          b.Group,
			Rules:          b.Rules,
			PlannedWorkers: b.PlannedWorkers,
			WallClock:      b.WallClock.String(),
			IdlePercent:    b.IdlePercent,
			Steals:         b.Steals,
			TimedOut:       b.TimedOut,
		}
	}

	return jsonOutput{
		Results: results,
		Batches: batches,
		Meta: jsonMeta{
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
}

func init() {
	Register("json", func() Formatter {
		return &JSONFormatter{}
	})
}

// Ensure JSONFormatter implements Formatter.
var _ Formatter = (*JSONFormatter)(nil)
