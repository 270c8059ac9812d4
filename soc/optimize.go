// Package soc derives SOC optimization findings from workspace telemetry:
// analytic rule efficiency over resolved alert classifications, billable
// ingestion volumes, and the recommendations both feed.
package soc

import (
	"fmt"
	"strings"

	"sentinelaudit/sentinel"
)

// RuleEfficiencyQuery aggregates 30 days of SecurityAlert activity per rule
// with resolved true/false positive classifications.
const RuleEfficiencyQuery = `
SecurityAlert
| where TimeGenerated >= ago(30d)
| summarize
    AlertCount = count(),
    UniqueAlerts = dcount(SystemAlertId),
    TruePositives = countif(Status == "Resolved" and Classification == "TruePositive"),
    FalsePositives = countif(Status == "Resolved" and Classification == "FalsePositive"),
    InProgress = countif(Status == "InProgress"),
    New = countif(Status == "New")
    by AlertName, ProductName, Severity
| extend
    TruePositiveRate = round(todouble(TruePositives) / todouble(AlertCount) * 100, 2),
    FalsePositiveRate = round(todouble(FalsePositives) / todouble(AlertCount) * 100, 2)
| order by AlertCount desc
| limit 100
`

// DataIngestionQuery aggregates 30 days of billable ingestion per data type.
const DataIngestionQuery = `
Usage
| where TimeGenerated >= ago(30d)
| where IsBillable == true
| summarize
    TotalGB = round(sum(Quantity) / 1024, 2),
    DailyAverageGB = round(sum(Quantity) / 1024 / 30, 2)
    by DataType, Solution
| order by TotalGB desc
| limit 50
`

// RuleEfficiency is the per-rule alert outcome summary exported to CSV.
type RuleEfficiency struct {
	RuleName          string
	Product           string
	Severity          string
	TotalAlerts       int
	TruePositives     int
	FalsePositives    int
	TruePositiveRate  float64
	FalsePositiveRate float64
	Efficiency        string
}

// DataIngestion is the per-data-type ingestion summary exported to CSV.
type DataIngestion struct {
	DataType       string
	Solution       string
	TotalGB        float64
	DailyAverageGB float64
	VolumeCategory string
}

// Recommendation is one optimization finding.
type Recommendation struct {
	Category    string
	Type        string
	Description string
	Impact      string
	Action      string
}

// EfficiencyRating grades a rule by its true positive rate.
func EfficiencyRating(truePositiveRate float64) string {
	switch {
	case truePositiveRate > 80:
		return "Excellent"
	case truePositiveRate > 60:
		return "Good"
	case truePositiveRate > 40:
		return "Fair"
	default:
		return "Needs Review"
	}
}

// VolumeCategory buckets a 30-day ingestion volume in GB.
func VolumeCategory(totalGB float64) string {
	switch {
	case totalGB > 100:
		return "High"
	case totalGB > 10:
		return "Medium"
	case totalGB > 1:
		return "Low"
	default:
		return "Very Low"
	}
}

// ParseRuleEfficiency converts a rule efficiency query result into records.
func ParseRuleEfficiency(results *sentinel.QueryResults) []RuleEfficiency {
	var rules []RuleEfficiency
	for _, row := range results.RowMaps() {
		tpRate := floatField(row, "TruePositiveRate")
		rules = append(rules, RuleEfficiency{
			RuleName:          stringField(row, "AlertName", "Unknown"),
			Product:           stringField(row, "ProductName", "Unknown"),
			Severity:          stringField(row, "Severity", "Unknown"),
			TotalAlerts:       intField(row, "AlertCount"),
			TruePositives:     intField(row, "TruePositives"),
			FalsePositives:    intField(row, "FalsePositives"),
			TruePositiveRate:  tpRate,
			FalsePositiveRate: floatField(row, "FalsePositiveRate"),
			Efficiency:        EfficiencyRating(tpRate),
		})
	}
	return rules
}

// ParseDataIngestion converts an ingestion query result into records.
func ParseDataIngestion(results *sentinel.QueryResults) []DataIngestion {
	var ingestion []DataIngestion
	for _, row := range results.RowMaps() {
		totalGB := floatField(row, "TotalGB")
		ingestion = append(ingestion, DataIngestion{
			DataType:       stringField(row, "DataType", "Unknown"),
			Solution:       stringField(row, "Solution", "Unknown"),
			TotalGB:        totalGB,
			DailyAverageGB: floatField(row, "DailyAverageGB"),
			VolumeCategory: VolumeCategory(totalGB),
		})
	}
	return ingestion
}

// BuildRecommendations derives optimization recommendations from the rule
// and ingestion analyses.
func BuildRecommendations(rules []RuleEfficiency, ingestion []DataIngestion) []Recommendation {
	var recommendations []Recommendation

	highFP := 0
	lowTP := 0
	for _, r := range rules {
		if r.FalsePositiveRate > 50 {
			highFP++
		}
		if r.TruePositiveRate < 20 {
			lowTP++
		}
	}

	if highFP > 0 {
		recommendations = append(recommendations, Recommendation{
			Category:    "Rule Optimization",
			Type:        "High False Positive Rate",
			Description: fmt.Sprintf("%d rules have >50%% false positive rate", highFP),
			Impact:      "High",
			Action:      "Review and tune rule logic to reduce false positives",
		})
	}
	if lowTP > 0 {
		recommendations = append(recommendations, Recommendation{
			Category:    "Rule Optimization",
			Type:        "Low True Positive Rate",
			Description: fmt.Sprintf("%d rules have <20%% true positive rate", lowTP),
			Impact:      "Medium",
			Action:      "Evaluate rule effectiveness and consider disabling or improving",
		})
	}

	highVolume := 0
	for _, d := range ingestion {
		if d.VolumeCategory == "High" {
			highVolume++
		}
	}
	if highVolume > 0 {
		recommendations = append(recommendations, Recommendation{
			Category:    "Data Management",
			Type:        "High Volume Ingestion",
			Description: fmt.Sprintf("%d data types consuming >100GB/month", highVolume),
			Impact:      "High",
			Action:      "Review data retention policies and filtering rules",
		})
	}

	if len(rules) < 10 {
		recommendations = append(recommendations, Recommendation{
			Category:    "Coverage",
			Type:        "Low Rule Coverage",
			Description: "Limited number of active detection rules",
			Impact:      "High",
			Action:      "Enable more detection rules from Sentinel rule templates",
		})
	}

	return recommendations
}

// CSV row shapes for the export package.

// RuleEfficiencyHeader is the CSV column order for rule efficiency exports.
var RuleEfficiencyHeader = []string{
	"RuleName", "Product", "Severity", "TotalAlerts", "TruePositives",
	"FalsePositives", "TruePositiveRate", "FalsePositiveRate", "Efficiency",
}

// CSVRow renders the record in RuleEfficiencyHeader order.
func (r RuleEfficiency) CSVRow() []string {
	return []string{
		r.RuleName,
		r.Product,
		r.Severity,
		fmt.Sprintf("%d", r.TotalAlerts),
		fmt.Sprintf("%d", r.TruePositives),
		fmt.Sprintf("%d", r.FalsePositives),
		formatPercent(r.TruePositiveRate),
		formatPercent(r.FalsePositiveRate),
		r.Efficiency,
	}
}

// DataIngestionHeader is the CSV column order for ingestion exports.
var DataIngestionHeader = []string{
	"DataType", "Solution", "TotalGB_30Days", "DailyAverageGB", "VolumeCategory",
}

// CSVRow renders the record in DataIngestionHeader order.
func (d DataIngestion) CSVRow() []string {
	return []string{
		d.DataType,
		d.Solution,
		formatFloat(d.TotalGB),
		formatFloat(d.DailyAverageGB),
		d.VolumeCategory,
	}
}

// RecommendationHeader is the CSV column order for recommendation exports.
var RecommendationHeader = []string{"Category", "Type", "Description", "Impact", "Action"}

// CSVRow renders the record in RecommendationHeader order.
func (r Recommendation) CSVRow() []string {
	return []string{r.Category, r.Type, r.Description, r.Impact, r.Action}
}

func formatPercent(v float64) string {
	return formatFloat(v) + "%"
}

func formatFloat(v float64) string {
	s := fmt.Sprintf("%.2f", v)
	s = strings.TrimRight(s, "0")
	return strings.TrimRight(s, ".")
}

func stringField(row map[string]interface{}, key, fallback string) string {
	if v, ok := row[key].(string); ok && v != "" {
		return v
	}
	return fallback
}

func floatField(row map[string]interface{}, key string) float64 {
	switch v := row[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	default:
		return 0
	}
}

func intField(row map[string]interface{}, key string) int {
	return int(floatField(row, key))
}
