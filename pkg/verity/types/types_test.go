package types

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func reportWith(results ...ValidationResult) *Report {
	r := &Report{Results: make(map[string]ValidationResult)}
	for _, res := range results {
		r.Results[res.RuleID] = res
	}
	return r
}

func TestReportCounts(t *testing.T) {
	r := reportWith(
		ValidationResult{RuleID: "a", Passed: true},
		ValidationResult{RuleID: "b", Passed: false},
		ValidationResult{RuleID: "c", Pending: true},
	)

	assert.Equal(t, 1, r.Passed())
	assert.Equal(t, 2, r.Failed(), "pending counts as failed")
	assert.False(t, r.Ok())
}

func TestReportOkWhenAllPass(t *testing.T) {
	r := reportWith(
		ValidationResult{RuleID: "a", Passed: true},
		ValidationResult{RuleID: "b", Passed: true},
	)
	assert.True(t, r.Ok())
}

func TestReportEmptyIsOk(t *testing.T) {
	assert.True(t, reportWith().Ok())
}

func TestOrderedSortsByRuleID(t *testing.T) {
	r := reportWith(
		ValidationResult{RuleID: "zeta"},
		ValidationResult{RuleID: "alpha"},
		ValidationResult{RuleID: "mid"},
	)

	ordered := r.Ordered()
	assert.Equal(t, "alpha", ordered[0].RuleID)
	assert.Equal(t, "mid", ordered[1].RuleID)
	assert.Equal(t, "zeta", ordered[2].RuleID)
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{0, "0ms"},
		{3 * time.Millisecond, "3ms"},
		{999 * time.Millisecond, "999ms"},
		{1520 * time.Millisecond, "1.52s"},
		{2 * time.Minute, "2m0s"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatDuration(tt.d))
	}
}

func TestFormatCount(t *testing.T) {
	assert.Equal(t, "0", FormatCount(0))
	assert.Equal(t, "1,234", FormatCount(1234))
	assert.Equal(t, "1,000,000", FormatCount(1000000))
}
