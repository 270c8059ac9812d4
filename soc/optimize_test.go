package soc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sentinelaudit/sentinel"
)

func TestEfficiencyRating(t *testing.T) {
	tests := []struct {
		rate float64
		want string
	}{
		{rate: 95, want: "Excellent"},
		{rate: 80.01, want: "Excellent"},
		{rate: 80, want: "Good"},
		{rate: 61, want: "Good"},
		{rate: 60, want: "Fair"},
		{rate: 41, want: "Fair"},
		{rate: 40, want: "Needs Review"},
		{rate: 0, want: "Needs Review"},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, EfficiencyRating(tc.rate), "rate %v", tc.rate)
	}
}

func TestVolumeCategory(t *testing.T) {
	assert.Equal(t, "High", VolumeCategory(150))
	assert.Equal(t, "Medium", VolumeCategory(100))
	assert.Equal(t, "Medium", VolumeCategory(11))
	assert.Equal(t, "Low", VolumeCategory(10))
	assert.Equal(t, "Low", VolumeCategory(1.5))
	assert.Equal(t, "Very Low", VolumeCategory(1))
	assert.Equal(t, "Very Low", VolumeCategory(0))
}

func efficiencyResults() *sentinel.QueryResults {
	return &sentinel.QueryResults{Tables: []sentinel.Table{{
		Name: "PrimaryResult",
		Columns: []sentinel.Column{
			{Name: "AlertName"}, {Name: "ProductName"}, {Name: "Severity"},
			{Name: "AlertCount"}, {Name: "TruePositives"}, {Name: "FalsePositives"},
			{Name: "TruePositiveRate"}, {Name: "FalsePositiveRate"},
		},
		Rows: [][]interface{}{
			{"Noisy rule", "Azure Sentinel", "Low", float64(200), float64(10), float64(130), float64(5), float64(65)},
			{"Sharp rule", "Azure Sentinel", "High", float64(50), float64(45), float64(2), float64(90), float64(4)},
			{nil, nil, nil, nil, nil, nil, nil, nil},
		},
	}}}
}

func TestParseRuleEfficiency(t *testing.T) {
	rules := ParseRuleEfficiency(efficiencyResults())
	require.Len(t, rules, 3)

	assert.Equal(t, "Noisy rule", rules[0].RuleName)
	assert.Equal(t, 200, rules[0].TotalAlerts)
	assert.Equal(t, 65.0, rules[0].FalsePositiveRate)
	assert.Equal(t, "Needs Review", rules[0].Efficiency)

	assert.Equal(t, "Excellent", rules[1].Efficiency)

	// null cells degrade to defaults, never panic
	assert.Equal(t, "Unknown", rules[2].RuleName)
	assert.Equal(t, 0, rules[2].TotalAlerts)
}

func TestParseDataIngestion(t *testing.T) {
	results := &sentinel.QueryResults{Tables: []sentinel.Table{{
		Columns: []sentinel.Column{
			{Name: "DataType"}, {Name: "Solution"}, {Name: "TotalGB"}, {Name: "DailyAverageGB"},
		},
		Rows: [][]interface{}{
			{"SecurityEvent", "Security", float64(450.5), float64(15.02)},
			{"Syslog", "LogManagement", float64(0.2), float64(0.01)},
		},
	}}}

	ingestion := ParseDataIngestion(results)
	require.Len(t, ingestion, 2)
	assert.Equal(t, "High", ingestion[0].VolumeCategory)
	assert.Equal(t, "Very Low", ingestion[1].VolumeCategory)
}

func TestBuildRecommendations(t *testing.T) {
	rules := []RuleEfficiency{
		{RuleName: "noisy", FalsePositiveRate: 70, TruePositiveRate: 10},
		{RuleName: "fine", FalsePositiveRate: 5, TruePositiveRate: 85},
	}
	ingestion := []DataIngestion{
		{DataType: "SecurityEvent", VolumeCategory: "High"},
		{DataType: "Syslog", VolumeCategory: "Low"},
	}

	recs := BuildRecommendations(rules, ingestion)

	types := make([]string, 0, len(recs))
	for _, r := range recs {
		types = append(types, r.Type)
	}
	assert.Contains(t, types, "High False Positive Rate")
	assert.Contains(t, types, "Low True Positive Rate")
	assert.Contains(t, types, "High Volume Ingestion")
	// fewer than 10 rules also trips the coverage recommendation
	assert.Contains(t, types, "Low Rule Coverage")
}

func TestBuildRecommendationsQuiet(t *testing.T) {
	var rules []RuleEfficiency
	for i := 0; i < 12; i++ {
		rules = append(rules, RuleEfficiency{TruePositiveRate: 90, FalsePositiveRate: 2})
	}
	recs := BuildRecommendations(rules, []DataIngestion{{VolumeCategory: "Low"}})
	assert.Empty(t, recs)
}

func TestCSVRows(t *testing.T) {
	rule := RuleEfficiency{
		RuleName: "r", Product: "p", Severity: "High",
		TotalAlerts: 10, TruePositives: 8, FalsePositives: 1,
		TruePositiveRate: 80, FalsePositiveRate: 10.5, Efficiency: "Good",
	}
	row := rule.CSVRow()
	require.Len(t, row, len(RuleEfficiencyHeader))
	assert.Equal(t, "80%", row[6])
	assert.Equal(t, "10.5%", row[7])

	ing := DataIngestion{DataType: "d", Solution: "s", TotalGB: 12.3, DailyAverageGB: 0.41, VolumeCategory: "Medium"}
	require.Len(t, ing.CSVRow(), len(DataIngestionHeader))
	assert.Equal(t, "12.3", ing.CSVRow()[2])

	rec := Recommendation{Category: "c", Type: "t", Description: "d", Impact: "High", Action: "a"}
	require.Len(t, rec.CSVRow(), len(RecommendationHeader))
}
