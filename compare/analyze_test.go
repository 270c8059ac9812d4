package compare

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifySeverityChange(t *testing.T) {
	tests := []struct {
		name     string
		current  string
		template string
		want     string
	}{
		{name: "increased", current: "Low", template: "High", want: "increased"},
		{name: "decreased", current: "Critical", template: "Medium", want: "decreased"},
		{name: "unchanged", current: "Medium", template: "Medium", want: "unchanged"},
		{name: "unknown current", current: "Bogus", template: "High", want: "unknown"},
		{name: "unknown template", current: "High", template: "", want: "unknown"},
		{name: "both garbage", current: "??", template: "!!", want: "unknown"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			change := ClassifySeverityChange(tc.current, tc.template)
			assert.Equal(t, tc.want, change.Direction)
			assert.NotEmpty(t, change.Recommendation)
		})
	}
}

func changedOnly(props ...Property) DifferenceReport {
	report := DifferenceReport{HasChanges: len(props) > 0}
	for _, p := range props {
		report.Changes = append(report.Changes, PropertyChange{Property: p, Current: "a", Template: "b"})
	}
	return report
}

func TestAssessRisk(t *testing.T) {
	tests := []struct {
		name   string
		report DifferenceReport
		want   RiskLevel
	}{
		{name: "no changes", report: DifferenceReport{}, want: RiskNone},
		{name: "query change is high", report: changedOnly(PropertyQuery), want: RiskHigh},
		{name: "trigger threshold is high", report: changedOnly(PropertyTriggerThreshold), want: RiskHigh},
		{name: "trigger operator is high", report: changedOnly(PropertyTriggerOperator), want: RiskHigh},
		{name: "severity is medium", report: changedOnly(PropertySeverity), want: RiskMedium},
		{name: "tactics is medium", report: changedOnly(PropertyTactics), want: RiskMedium},
		{name: "frequency is medium", report: changedOnly(PropertyQueryFrequency), want: RiskMedium},
		{name: "display name is low", report: changedOnly(PropertyDisplayName), want: RiskLow},
		{name: "description and period are low", report: changedOnly(PropertyDescription, PropertyQueryPeriod), want: RiskLow},
		{name: "high outranks medium", report: changedOnly(PropertySeverity, PropertyQuery), want: RiskHigh},
		{name: "medium outranks low", report: changedOnly(PropertyDisplayName, PropertyTechniques), want: RiskMedium},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, AssessRisk(tc.report))
		})
	}
}

func TestRenderChangeSummaryNoChanges(t *testing.T) {
	summary := RenderChangeSummary("Quiet Rule", DifferenceReport{})

	assert.Contains(t, summary, "CHANGE SUMMARY: Quiet Rule")
	assert.Contains(t, summary, "Risk Assessment: None")
	assert.Contains(t, summary, "No changes detected.")
}

func TestRenderChangeSummary(t *testing.T) {
	report := DifferenceReport{
		HasChanges: true,
		Changes: []PropertyChange{
			{Property: PropertySeverity, Current: "Low", Template: "High"},
			{Property: PropertyTactics, Current: []string{"TA1", "TA2"}, Template: []string{"TA2", "TA3"}},
			{Property: PropertyQueryPeriod, Current: "PT1H", Template: "PT2H"},
		},
	}

	summary := RenderChangeSummary("Suspicious sign-in burst", report)

	assert.Contains(t, summary, "CHANGE SUMMARY: Suspicious sign-in burst")

	// risk line comes before any per-property detail
	riskIdx := strings.Index(summary, "Risk Assessment:")
	detailIdx := strings.Index(summary, "Properties Changed:")
	assert.GreaterOrEqual(t, riskIdx, 0)
	assert.Less(t, riskIdx, detailIdx)

	// severity gets its specialized rendering with the recommendation
	assert.Contains(t, summary, "• Severity")
	assert.Contains(t, summary, "Severity has been upgraded")

	// tactics render as the set breakdown, not raw before/after
	assert.Contains(t, summary, "• Tactics")
	assert.Contains(t, summary, "Added: TA3")
	assert.Contains(t, summary, "Removed: TA1")
	assert.Contains(t, summary, "Unchanged: TA2")

	// plain properties keep the current/new pair, and nothing is dropped
	assert.Contains(t, summary, "• Query Period")
	assert.Contains(t, summary, "PT1H")
	assert.Contains(t, summary, "PT2H")
}

func TestRiskLevelReason(t *testing.T) {
	assert.Equal(t, "High - Query or detection logic changed", RiskHigh.Reason())
	assert.Equal(t, "Medium - Classification or frequency changed", RiskMedium.Reason())
	assert.Equal(t, "Low - Only metadata changed", RiskLow.Reason())
	assert.Equal(t, "None", RiskNone.Reason())
}
