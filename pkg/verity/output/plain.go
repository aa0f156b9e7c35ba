package output

import (
	"bytes"
	"text/tabwriter"

	"github.com/jamesainslie/verity/pkg/verity/types"
)

// PlainFormatter formats a report as a simple tab-separated table.
// No colors or styling; suitable for scripting and piping.
type PlainFormatter struct{}

// Format writes the formatted report to the buffer.
func (f *PlainFormatter) Format(w *bytes.Buffer, r *types.Report) error {
	tw := tabwriter.NewWriter(w, 0, 0, 1, ' ', 0)

	if _, err := tw.Write([]byte("STATUS\tRULE\tDURATION\tEVIDENCE\n")); err != nil {
		return err
	}

	for _, res := range r.Ordered() {
		status := "pass"
		switch {
		case res.Pending:
			status = "pending"
		case !res.Passed:
			status = "fail"
		}
		row := status + "\t" + res.RuleID + "\t" + types.FormatDuration(res.Duration) + "\t" + res.Evidence + "\n"
		if _, err := tw.Write([]byte(row)); err != nil {
			return err
		}
	}

	return tw.Flush()
}

func init() {
	Register("plain", func() Formatter {
		return &PlainFormatter{}
	})
}

// Ensure PlainFormatter implements Formatter.
var _ Formatter = (*PlainFormatter)(nil)
