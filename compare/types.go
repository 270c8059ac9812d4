// Package compare holds the rule and solution comparison core: version
// ordering, field-by-field rule diffing, update risk classification and
// report export. Nothing in this package touches the network; callers feed
// it records fetched from the workspace and its templates.
package compare

// Property identifies a comparable analytic rule property. The values match
// the ARM property names in snake case so exported reports line up with the
// workspace API surface.
type Property string

const (
	PropertyDisplayName      Property = "display_name"
	PropertyDescription      Property = "description"
	PropertySeverity         Property = "severity"
	PropertyTactics          Property = "tactics"
	PropertyTechniques       Property = "techniques"
	PropertyQuery            Property = "query"
	PropertyQueryFrequency   Property = "query_frequency"
	PropertyQueryPeriod      Property = "query_period"
	PropertyTriggerOperator  Property = "trigger_operator"
	PropertyTriggerThreshold Property = "trigger_threshold"
	PropertyEnabled          Property = "enabled"
)

// RuleRecord is a scheduled analytic rule as far as the comparator cares.
// Pointer fields and nil slices mean the supplier did not return that
// property; the comparator treats absent as absent, never as an error.
type RuleRecord struct {
	DisplayName      *string  `json:"display_name,omitempty"`
	Description      *string  `json:"description,omitempty"`
	Severity         *string  `json:"severity,omitempty"`
	Tactics          []string `json:"tactics,omitempty"`
	Techniques       []string `json:"techniques,omitempty"`
	Query            *string  `json:"query,omitempty"`
	QueryFrequency   *string  `json:"query_frequency,omitempty"`
	QueryPeriod      *string  `json:"query_period,omitempty"`
	TriggerOperator  *string  `json:"trigger_operator,omitempty"`
	TriggerThreshold *int     `json:"trigger_threshold,omitempty"`
	Enabled          *bool    `json:"enabled,omitempty"`
}

// PropertyChange records one property that differs between the current rule
// and its template.
type PropertyChange struct {
	Property Property    `json:"property"`
	Current  interface{} `json:"current"`
	Template interface{} `json:"template"`
}

// DifferenceReport is the result of comparing one rule against its template.
// Changes follow the fixed comparable-property order, not discovery order.
type DifferenceReport struct {
	HasChanges bool             `json:"has_changes"`
	Changes    []PropertyChange `json:"changes"`
}

// RuleComparison is a DifferenceReport with the identifying metadata the
// exporter persists alongside it.
type RuleComparison struct {
	RuleName string    `json:"rule_name"`
	Risk     RiskLevel `json:"risk"`
	DifferenceReport
}

// RiskLevel classifies how risky it is to apply a template update.
type RiskLevel string

const (
	RiskNone   RiskLevel = "None"
	RiskLow    RiskLevel = "Low"
	RiskMedium RiskLevel = "Medium"
	RiskHigh   RiskLevel = "High"
)

// Reason returns the risk level with the explanation used in rendered
// summaries.
func (r RiskLevel) Reason() string {
	switch r {
	case RiskHigh:
		return "High - Query or detection logic changed"
	case RiskMedium:
		return "Medium - Classification or frequency changed"
	case RiskLow:
		return "Low - Only metadata changed"
	default:
		return "None"
	}
}

// SeverityChange describes the direction of a severity change between the
// current rule and the template, with a review recommendation.
type SeverityChange struct {
	Direction      string `json:"direction"`
	Impact         string `json:"impact"`
	Recommendation string `json:"recommendation"`
}

// SetDiff is the outcome of comparing two tactic or technique sets.
type SetDiff struct {
	Added     []string `json:"added"`
	Removed   []string `json:"removed"`
	Unchanged []string `json:"unchanged"`
}

// SolutionUpdate is emitted for an installed solution whose catalog version
// is strictly newer than the installed one.
type SolutionUpdate struct {
	SolutionName     string `json:"solution_name"`
	CurrentVersion   string `json:"current_version"`
	AvailableVersion string `json:"available_version"`
	PackageID        string `json:"package_id"`
	Publisher        string `json:"publisher"`
	InstalledID      string `json:"installed_id"`
}
