package compare

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExportComparisonReportRoundTrip(t *testing.T) {
	comparisons := []RuleComparison{
		{
			RuleName: "Rule B",
			Risk:     RiskHigh,
			DifferenceReport: DifferenceReport{
				HasChanges: true,
				Changes: []PropertyChange{
					{Property: PropertyQuery, Current: "old", Template: "new"},
					{Property: PropertyDisplayName, Current: "Rule B", Template: "Rule B v2"},
				},
			},
		},
		{
			RuleName:         "Rule A",
			Risk:             RiskNone,
			DifferenceReport: DifferenceReport{},
		},
	}

	filename := filepath.Join(t.TempDir(), "comparison_report.json")
	require.True(t, ExportComparisonReport(comparisons, filename))

	loaded, err := ReadComparisonReport(filename)
	require.NoError(t, err)
	require.Len(t, loaded, 2)

	// input order is preserved, not sorted
	assert.Equal(t, "Rule B", loaded[0].RuleName)
	assert.Equal(t, "Rule A", loaded[1].RuleName)
	assert.Equal(t, RiskHigh, loaded[0].Risk)
	assert.True(t, loaded[0].HasChanges)
	require.Len(t, loaded[0].Changes, 2)
	assert.Equal(t, PropertyQuery, loaded[0].Changes[0].Property)
	assert.Equal(t, "old", loaded[0].Changes[0].Current)
	assert.False(t, loaded[1].HasChanges)
}

func TestExportComparisonReportDeterministic(t *testing.T) {
	comparisons := []RuleComparison{{RuleName: "Rule", Risk: RiskLow, DifferenceReport: DifferenceReport{
		HasChanges: true,
		Changes:    []PropertyChange{{Property: PropertyDescription, Current: "a", Template: "b"}},
	}}}

	dir := t.TempDir()
	first := filepath.Join(dir, "first.json")
	second := filepath.Join(dir, "second.json")
	require.True(t, ExportComparisonReport(comparisons, first))
	require.True(t, ExportComparisonReport(comparisons, second))

	a, err := os.ReadFile(first)
	require.NoError(t, err)
	b, err := os.ReadFile(second)
	require.NoError(t, err)
	assert.Equal(t, a, b)

	// re-export to the same destination overwrites cleanly
	require.True(t, ExportComparisonReport(comparisons, first))
	c, err := os.ReadFile(first)
	require.NoError(t, err)
	assert.Equal(t, a, c)
}

func TestExportComparisonReportFailure(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "missing", "nested", "report.json")
	assert.False(t, ExportComparisonReport([]RuleComparison{}, filename))
}

func TestExportComparisonReportEmpty(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "empty.json")
	require.True(t, ExportComparisonReport(nil, filename))

	loaded, err := ReadComparisonReport(filename)
	require.NoError(t, err)
	assert.Empty(t, loaded)
}
