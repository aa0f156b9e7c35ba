package output

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/jamesainslie/verity/pkg/verity/types"
)

func sampleReport() *types.Report {
	return &types.Report{
		RunID:     "run-123",
		Root:      "/src/project",
		StartedAt: time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC),
		WallClock: 240 * time.Millisecond,
		Results: map[string]types.ValidationResult{
			"layout/go-mod": {
				RuleID:   "layout/go-mod",
				Passed:   true,
				Duration: 3 * time.Millisecond,
			},
			"layout/no-vendor": {
				RuleID:   "layout/no-vendor",
				Passed:   false,
				Duration: 5 * time.Millisecond,
				Evidence: "vendor: forbidden path present",
			},
			"hygiene/slow-check": {
				RuleID:   "hygiene/slow-check",
				Pending:  true,
				Evidence: "not executed: batch deadline exceeded",
			},
		},
		Batches: []types.BatchStats{
			{Group: 0, Rules: 3, PlannedWorkers: 2, WallClock: 200 * time.Millisecond, IdlePercent: 12.5, Steals: 1, TimedOut: true},
		},
		CacheHits:   5,
		CacheMisses: 1,
	}
}

func TestRegistryLookup(t *testing.T) {
	for _, name := range []string{"pretty", "plain", "json", "yaml", "tsv", "markdown"} {
		t.Run(name, func(t *testing.T) {
			f, err := Get(name)
			require.NoError(t, err)
			assert.NotNil(t, f)
		})
	}
}

func TestRegistryUnknownFormat(t *testing.T) {
	_, err := Get("carrier-pigeon")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "carrier-pigeon")
}

func TestAvailableSorted(t *testing.T) {
	names := Available()
	assert.Equal(t, []string{"json", "markdown", "plain", "pretty", "tsv", "yaml"}, names)
}

// TestAllFormattersHandleReport smoke-tests every registered formatter
// against the same report: no errors, non-empty output, all rule ids
// present.
func TestAllFormattersHandleReport(t *testing.T) {
	r := sampleReport()
	for _, name := range Available() {
		t.Run(name, func(t *testing.T) {
			f, err := Get(name)
			require.NoError(t, err)

			var buf bytes.Buffer
			require.NoError(t, f.Format(&buf, r))

			out := buf.String()
			assert.NotEmpty(t, out)
			assert.Contains(t, out, "layout/go-mod")
			assert.Contains(t, out, "layout/no-vendor")
			assert.Contains(t, out, "hygiene/slow-check")
		})
	}
}

func TestJSONFormatterStructure(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, (&JSONFormatter{}).Format(&buf, sampleReport()))

	var out jsonOutput
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))

	require.Len(t, out.Results, 3)
	// Ordered by rule id.
	assert.Equal(t, "hygiene/slow-check", out.Results[0].RuleID)
	assert.Equal(t, "layout/go-mod", out.Results[1].RuleID)
	assert.Equal(t, "layout/no-vendor", out.Results[2].RuleID)

	assert.True(t, out.Results[0].Pending)
	assert.True(t, out.Results[1].Passed)
	assert.Equal(t, "vendor: forbidden path present", out.Results[2].Evidence)

	assert.Equal(t, "run-123", out.Meta.RunID)
	assert.Equal(t, 1, out.Meta.Passed)
	assert.Equal(t, 2, out.Meta.Failed)
	assert.Equal(t, int64(5), out.Meta.CacheHits)

	require.Len(t, out.Batches, 1)
	assert.True(t, out.Batches[0].TimedOut)
	assert.Equal(t, int64(1), out.Batches[0].Steals)
}

func TestYAMLFormatterParses(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, (&YAMLFormatter{}).Format(&buf, sampleReport()))

	var out map[string]interface{}
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &out))
	assert.Contains(t, out, "results")
	assert.Contains(t, out, "batches")
	assert.Contains(t, out, "meta")
}

func TestPlainFormatterColumns(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, (&PlainFormatter{}).Format(&buf, sampleReport()))

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 4)
	assert.Contains(t, lines[0], "STATUS")
	assert.Contains(t, lines[1], "pending")
	assert.Contains(t, lines[2], "pass")
	assert.Contains(t, lines[3], "fail")
}

func TestTSVFormatterRows(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, (&TSVFormatter{}).Format(&buf, sampleReport()))

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "STATUS\tRULE\tDURATION\tEVIDENCE", lines[0])

	fields := strings.Split(lines[2], "\t")
	require.Len(t, fields, 4)
	assert.Equal(t, "pass", fields[0])
	assert.Equal(t, "layout/go-mod", fields[1])
}

func TestMarkdownFormatterEscapesPipes(t *testing.T) {
	r := sampleReport()
	r.Results["odd|rule"] = types.ValidationResult{
		RuleID:   "odd|rule",
		Passed:   false,
		Evidence: "bad|path",
	}

	var buf bytes.Buffer
	require.NoError(t, (&MarkdownFormatter{}).Format(&buf, r))

	out := buf.String()
	assert.Contains(t, out, `odd\|rule`)
	assert.Contains(t, out, `bad\|path`)
	assert.Contains(t, out, "| STATUS | RULE | DURATION | EVIDENCE |")
}

func TestPrettyFormatterMarkers(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, (&PrettyFormatter{}).Format(&buf, sampleReport()))

	out := buf.String()
	assert.Contains(t, out, "PASS")
	assert.Contains(t, out, "FAIL")
	assert.Contains(t, out, "PEND")
	assert.Contains(t, out, "1 passed")
	assert.Contains(t, out, "2 failed")
}

func TestStatusWord(t *testing.T) {
	assert.Equal(t, "pass", statusWord(types.ValidationResult{Passed: true}))
	assert.Equal(t, "fail", statusWord(types.ValidationResult{}))
	assert.Equal(t, "pending", statusWord(types.ValidationResult{Pending: true}))
}

func TestPrettyFormatterGroupsLargeCounts(t *testing.T) {
	r := sampleReport()
	r.CacheHits = 12345

	var buf bytes.Buffer
	require.NoError(t, (&PrettyFormatter{}).Format(&buf, r))

	assert.Contains(t, buf.String(), "12,345 hits")
}
