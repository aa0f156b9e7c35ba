package output

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/jamesainslie/verity/pkg/verity/types"
)

// TSVFormatter formats a report as tab-separated values: a header row
// followed by one row per rule.
type TSVFormatter struct{}

// Format writes the formatted report to the buffer.
func (f *TSVFormatter) Format(w *bytes.Buffer, r *types.Report) error {
	w.WriteString("STATUS\tRULE\tDURATION\tEVIDENCE\n")
	for _, res := range r.Ordered() {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
			statusWord(res), res.RuleID, res.Duration.String(), res.Evidence)
	}
	return nil
}

func init() {
	Register("tsv", func() Formatter {
		return &TSVFormatter{}
	})
}

// Ensure TSVFormatter implements Formatter.
var _ Formatter = (*TSVFormatter)(nil)

// MarkdownFormatter formats a report as a GitHub-flavored Markdown table.
type MarkdownFormatter struct{}

// Format writes the formatted report to the buffer.
func (f *MarkdownFormatter) Format(w *bytes.Buffer, r *types.Report) error {
	w.WriteString("| STATUS | RULE | DURATION | EVIDENCE |\n")
	w.WriteString("|--------|------|----------|----------|\n")
	for _, res := range r.Ordered() {
		fmt.Fprintf(w, "| %s | %s | %s | %s |\n",
			statusWord(res),
			escapeMarkdownPipe(res.RuleID),
			res.Duration.String(),
			escapeMarkdownPipe(res.Evidence))
	}
	return nil
}

// escapeMarkdownPipe escapes pipe characters for Markdown tables.
func escapeMarkdownPipe(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}

func init() {
	Register("markdown", func() Formatter {
		return &MarkdownFormatter{}
	})
}

// Ensure MarkdownFormatter implements Formatter.
var _ Formatter = (*MarkdownFormatter)(nil)

func statusWord(res types.ValidationResult) string {
	switch {
	case res.Pending:
		return "pending"
	case res.Passed:
		return "pass"
	default:
		return "fail"
	}
}
