package compare

import (
	"encoding/json"
	"os"

	log "github.com/sirupsen/logrus"
)

// ExportComparisonReport writes the ordered comparison results to filename
// as indented JSON and reports success. The sequence order and the struct
// field order are preserved, so exporting the same input twice produces the
// same bytes. I/O failures are logged and surface as false, never as a
// panic or error value.
func ExportComparisonReport(comparisons []RuleComparison, filename string) bool {
	if comparisons == nil {
		comparisons = []RuleComparison{}
	}

	data, err := json.MarshalIndent(comparisons, "", "  ")
	if err != nil {
		log.Errorf("Error exporting comparison report: %v", err)
		return false
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		log.Errorf("Error exporting comparison report: %v", err)
		return false
	}

	log.Infof("Comparison report exported to %s", filename)
	return true
}

// ReadComparisonReport loads a previously exported report. It exists for
// callers that fold an earlier run into the combined report.
func ReadComparisonReport(filename string) ([]RuleComparison, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	var comparisons []RuleComparison
	if err := json.Unmarshal(data, &comparisons); err != nil {
		return nil, err
	}
	return comparisons, nil
}
