package output

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/jamesainslie/verity/pkg/verity/types"
)

// PrettyFormatter formats a report with colors and styling using lipgloss.
// Suitable for terminal display; use plain or json for scripting.
type PrettyFormatter struct{}

// Format writes the formatted report to the buffer.
func (f *PrettyFormatter) Format(w *bytes.Buffer, r *types.Report) error {
	w.WriteString(f.formatHeader(r))
	w.WriteString("\n")
	w.WriteString(f.formatResults(r))
	w.WriteString(f.formatBatches(r))
	w.WriteString(f.formatFooter(r))
	return nil
}

// formatHeader builds the header box with run metadata.
func (f *PrettyFormatter) formatHeader(r *types.Report) string {
	var lines []string

	lines = append(lines, fmt.Sprintf("%s %s",
		LabelStyle.Render("Root:"), ValueStyle.Render(r.Root)))

	lines = append(lines, fmt.Sprintf("%s %s  %s %s  %s %s",
		LabelStyle.Render("Rules:"), ValueStyle.Render(types.FormatCount(int64(len(r.Results)))),
		LabelStyle.Render("Elapsed:"), ValueStyle.Render(types.FormatDuration(r.WallClock)),
		LabelStyle.Render("Cache:"), MutedStyle.Render(fmt.Sprintf("%s hits / %s scans",
			types.FormatCount(r.CacheHits), types.FormatCount(r.CacheMisses)))))

	return HeaderBox.Render(strings.Join(lines, "\n"))
}

// formatResults renders one line per rule in rule-id order.
func (f *PrettyFormatter) formatResults(r *types.Report) string {
	var sb strings.Builder

	for _, res := range r.Ordered() {
		marker := PassStyle.Render("PASS")
		switch {
		case res.Pending:
			marker = PendingStyle.Render("PEND")
		case !res.Passed:
			marker = FailStyle.Render("FAIL")
		}

		sb.WriteString(fmt.Sprintf("  %s  %-40s %8s",
			marker, res.RuleID, types.FormatDuration(res.Duration)))

		if res.Evidence != "" && !res.Passed {
			sb.WriteString("  " + MutedStyle.Render(res.Evidence))
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

// formatBatches renders per-batch scheduling metadata.
func (f *PrettyFormatter) formatBatches(r *types.Report) string {
	if len(r.Batches) == 0 {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("\n")
	for _, b := range r.Batches {
		line := fmt.Sprintf("  batch %d: %d rules, %d workers, %s, %.1f%% idle, %d steals",
			b.Group, b.Rules, b.PlannedWorkers,
			types.FormatDuration(b.WallClock), b.IdlePercent, b.Steals)
		if b.TimedOut {
			line += "  " + PendingStyle.Render("(timed out)")
		}
		sb.WriteString(MutedStyle.Render(line) + "\n")
	}
	return sb.String()
}

// formatFooter builds the summary box.
func (f *PrettyFormatter) formatFooter(r *types.Report) string {
	passed := PassStyle.Render(fmt.Sprintf("%d passed", r.Passed()))
	failed := MutedStyle.Render("0 failed")
	if r.Failed() > 0 {
		failed = FailStyle.Render(fmt.Sprintf("%d failed", r.Failed()))
	}
	return FooterBox.Render(fmt.Sprintf("%s, %s", passed, failed))
}

func init() {
	Register("pretty", func() Formatter {
		return &PrettyFormatter{}
	})
}

// Ensure PrettyFormatter implements Formatter.
var _ Formatter = (*PrettyFormatter)(nil)
