package compare

import (
	"fmt"
	"sort"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
	log "github.com/sirupsen/logrus"
)

// propertyValue reads one comparable property off a record. Absent fields
// come back as nil so that a missing key and an explicit null compare equal.
type propertySpec struct {
	name  Property
	value func(r *RuleRecord) interface{}
}

// comparableProperties fixes both which properties are compared and the
// order change entries appear in.
var comparableProperties = []propertySpec{
	{PropertyDisplayName, func(r *RuleRecord) interface{} { return strValue(r.DisplayName) }},
	{PropertyDescription, func(r *RuleRecord) interface{} { return strValue(r.Description) }},
	{PropertySeverity, func(r *RuleRecord) interface{} { return strValue(r.Severity) }},
	{PropertyTactics, func(r *RuleRecord) interface{} { return listValue(r.Tactics) }},
	{PropertyTechniques, func(r *RuleRecord) interface{} { return listValue(r.Techniques) }},
	{PropertyQuery, func(r *RuleRecord) interface{} { return strValue(r.Query) }},
	{PropertyQueryFrequency, func(r *RuleRecord) interface{} { return strValue(r.QueryFrequency) }},
	{PropertyQueryPeriod, func(r *RuleRecord) interface{} { return strValue(r.QueryPeriod) }},
	{PropertyTriggerOperator, func(r *RuleRecord) interface{} { return strValue(r.TriggerOperator) }},
	{PropertyTriggerThreshold, func(r *RuleRecord) interface{} { return intValue(r.TriggerThreshold) }},
	{PropertyEnabled, func(r *RuleRecord) interface{} { return boolValue(r.Enabled) }},
}

func strValue(p *string) interface{} {
	if p == nil {
		return nil
	}
	return *p
}

func intValue(p *int) interface{} {
	if p == nil {
		return nil
	}
	return *p
}

func boolValue(p *bool) interface{} {
	if p == nil {
		return nil
	}
	return *p
}

func listValue(s []string) interface{} {
	if s == nil {
		return nil
	}
	return s
}

// equalValues compares two property values. List-valued properties are
// compared element by element; everything else is a comparable scalar or nil.
func equalValues(a, b interface{}) bool {
	as, aok := a.([]string)
	bs, bok := b.([]string)
	if aok || bok {
		if !aok || !bok {
			return false
		}
		if len(as) != len(bs) {
			return false
		}
		for i := range as {
			if as[i] != bs[i] {
				return false
			}
		}
		return true
	}
	return a == b
}

// CompareProperties walks the fixed comparable-property list and records
// every property whose value differs between the current rule and the
// template. Neither record is mutated.
func CompareProperties(current, template *RuleRecord) DifferenceReport {
	if current == nil {
		current = &RuleRecord{}
	}
	if template == nil {
		template = &RuleRecord{}
	}

	report := DifferenceReport{}
	for _, prop := range comparableProperties {
		currentValue := prop.value(current)
		templateValue := prop.value(template)
		if !equalValues(currentValue, templateValue) {
			report.HasChanges = true
			report.Changes = append(report.Changes, PropertyChange{
				Property: prop.name,
				Current:  currentValue,
				Template: templateValue,
			})
		}
	}
	return report
}

// DiffQueryText produces a unified diff between the current and template
// query bodies, labeled "Current Query" and "Template Query". An absent
// query diffs as an empty body; identical queries yield an empty string.
func DiffQueryText(currentQuery, templateQuery string) string {
	diff := difflib.UnifiedDiff{
		A:        difflib.SplitLines(currentQuery),
		B:        difflib.SplitLines(templateQuery),
		FromFile: "Current Query",
		ToFile:   "Template Query",
		Context:  3,
	}
	text, err := difflib.GetUnifiedDiffString(diff)
	if err != nil {
		log.Warnf("failed to diff queries: %v", err)
		return ""
	}
	return text
}

// DiffTacticSets computes the added, removed and unchanged entries between
// the current and template tactic (or technique) sets. Output slices are
// sorted so rendering is deterministic. Nil input is an empty set.
func DiffTacticSets(current, template []string) SetDiff {
	currentSet := toSet(current)
	templateSet := toSet(template)

	diff := SetDiff{
		Added:     []string{},
		Removed:   []string{},
		Unchanged: []string{},
	}
	for item := range templateSet {
		if _, ok := currentSet[item]; !ok {
			diff.Added = append(diff.Added, item)
		}
	}
	for item := range currentSet {
		if _, ok := templateSet[item]; ok {
			diff.Unchanged = append(diff.Unchanged, item)
		} else {
			diff.Removed = append(diff.Removed, item)
		}
	}
	sort.Strings(diff.Added)
	sort.Strings(diff.Removed)
	sort.Strings(diff.Unchanged)
	return diff
}

func toSet(items []string) map[string]struct{} {
	set := make(map[string]struct{}, len(items))
	for _, item := range items {
		set[item] = struct{}{}
	}
	return set
}

// RenderSummary formats a difference report as a plain readable block, one
// entry per changed property in report order.
func RenderSummary(report DifferenceReport) string {
	if !report.HasChanges {
		return "No changes detected"
	}

	var b strings.Builder
	b.WriteString("Changes detected:\n")
	b.WriteString(strings.Repeat("-", 60))
	for _, change := range report.Changes {
		fmt.Fprintf(&b, "\n\n%s:\n", titleCase(change.Property))
		fmt.Fprintf(&b, "  Current:  %s\n", formatValue(change.Current))
		fmt.Fprintf(&b, "  Template: %s", formatValue(change.Template))
	}
	return b.String()
}

// titleCase turns a snake_case property name into its human heading,
// e.g. "query_frequency" -> "Query Frequency".
func titleCase(p Property) string {
	words := strings.Split(string(p), "_")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

func formatValue(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return "<not set>"
	case []string:
		return strings.Join(val, ", ")
	default:
		return fmt.Sprintf("%v", val)
	}
}
