package compare

import (
	"fmt"
	"strings"
)

// severityOrder is the fixed five-level severity scale, least to most severe.
var severityOrder = []string{"Informational", "Low", "Medium", "High", "Critical"}

func severityIndex(severity string) int {
	for i, s := range severityOrder {
		if s == severity {
			return i
		}
	}
	return -1
}

// ClassifySeverityChange reports whether the template raises, lowers or
// keeps the rule severity. Unrecognized severities on either side yield
// direction "unknown" rather than an error.
func ClassifySeverityChange(current, template string) SeverityChange {
	currentIdx := severityIndex(current)
	templateIdx := severityIndex(template)

	if currentIdx < 0 || templateIdx < 0 {
		return SeverityChange{
			Direction:      "unknown",
			Impact:         "unknown",
			Recommendation: "Unable to compare severity levels.",
		}
	}

	switch {
	case templateIdx > currentIdx:
		return SeverityChange{
			Direction:      "increased",
			Impact:         "higher",
			Recommendation: "Review: Severity has been upgraded, indicating potentially more critical threat.",
		}
	case templateIdx < currentIdx:
		return SeverityChange{
			Direction:      "decreased",
			Impact:         "lower",
			Recommendation: "Review: Severity has been downgraded, threat assessment may have changed.",
		}
	default:
		return SeverityChange{
			Direction:      "unchanged",
			Impact:         "none",
			Recommendation: "No severity change.",
		}
	}
}

// Detection logic changes outrank classification changes when both appear.
var highRiskProperties = map[Property]struct{}{
	PropertyQuery:            {},
	PropertyTriggerThreshold: {},
	PropertyTriggerOperator:  {},
}

var mediumRiskProperties = map[Property]struct{}{
	PropertySeverity:       {},
	PropertyTactics:        {},
	PropertyTechniques:     {},
	PropertyQueryFrequency: {},
}

// AssessRisk classifies how risky applying the template update would be,
// purely from which properties changed: any high-risk property wins, then
// any medium-risk property, then Low for metadata-only changes, and None
// when nothing changed.
func AssessRisk(report DifferenceReport) RiskLevel {
	if !report.HasChanges {
		return RiskNone
	}

	risk := RiskLow
	for _, change := range report.Changes {
		if _, ok := highRiskProperties[change.Property]; ok {
			return RiskHigh
		}
		if _, ok := mediumRiskProperties[change.Property]; ok {
			risk = RiskMedium
		}
	}
	return risk
}

// RenderChangeSummary renders the full change summary for one rule: header,
// risk assessment, then per-property detail. Severity changes embed the
// severity recommendation; tactic and technique changes embed the
// added/removed/unchanged breakdown instead of raw before/after values.
func RenderChangeSummary(ruleName string, report DifferenceReport) string {
	var b strings.Builder
	rule := strings.Repeat("=", 80)

	fmt.Fprintf(&b, "\n%s\n", rule)
	fmt.Fprintf(&b, "  CHANGE SUMMARY: %s\n", ruleName)
	fmt.Fprintf(&b, "%s\n\n", rule)

	risk := AssessRisk(report)
	fmt.Fprintf(&b, "Risk Assessment: %s\n\n", risk.Reason())

	if !report.HasChanges {
		b.WriteString("No changes detected.")
		return b.String()
	}

	b.WriteString("Properties Changed:\n")
	b.WriteString(strings.Repeat("-", 80))

	for _, change := range report.Changes {
		fmt.Fprintf(&b, "\n\n• %s\n", titleCase(change.Property))

		switch change.Property {
		case PropertySeverity:
			current := formatValue(change.Current)
			template := formatValue(change.Template)
			analysis := ClassifySeverityChange(stringOrEmpty(change.Current), stringOrEmpty(change.Template))
			fmt.Fprintf(&b, "  Current:  %s\n", current)
			fmt.Fprintf(&b, "  New:      %s\n", template)
			fmt.Fprintf(&b, "  Impact:   %s", analysis.Recommendation)

		case PropertyTactics, PropertyTechniques:
			diff := DiffTacticSets(stringsOrNil(change.Current), stringsOrNil(change.Template))
			var parts []string
			if len(diff.Added) > 0 {
				parts = append(parts, fmt.Sprintf("  Added: %s", strings.Join(diff.Added, ", ")))
			}
			if len(diff.Removed) > 0 {
				parts = append(parts, fmt.Sprintf("  Removed: %s", strings.Join(diff.Removed, ", ")))
			}
			if len(diff.Unchanged) > 0 {
				parts = append(parts, fmt.Sprintf("  Unchanged: %s", strings.Join(diff.Unchanged, ", ")))
			}
			b.WriteString(strings.Join(parts, "\n"))

		default:
			fmt.Fprintf(&b, "  Current: %s\n", formatValue(change.Current))
			fmt.Fprintf(&b, "  New:     %s", formatValue(change.Template))
		}
	}

	fmt.Fprintf(&b, "\n\n%s", rule)
	return b.String()
}

func stringOrEmpty(v interface{}) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

func stringsOrNil(v interface{}) []string {
	if s, ok := v.([]string); ok {
		return s
	}
	return nil
}
