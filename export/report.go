package export

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
	log "github.com/sirupsen/logrus"
)

// Section is one block of the combined report: a title and the CSV file
// backing it. Optional sections that are missing are skipped; required
// sections that are missing fail the whole assembly.
type Section struct {
	Title    string
	Patterns []string
	Required bool
}

// DefaultSections mirrors the audit artifacts the combined report expects:
// the Sentinel comparison and SOC datasets are required, the Defender XDR
// datasets enrich the report when present.
var DefaultSections = []Section{
	{Title: "SOC Rule Efficiency", Patterns: []string{"soc_rule_efficiency_*.csv"}, Required: true},
	{Title: "SOC Data Ingestion", Patterns: []string{"soc_data_ingestion_*.csv"}, Required: true},
	{Title: "SOC Recommendations", Patterns: []string{"soc_recommendations_*.csv"}, Required: true},
	{Title: "Defender XDR Security Alerts", Patterns: []string{"defender_xdr_security_alerts_*.csv"}},
	{Title: "Defender XDR Security Incidents", Patterns: []string{"defender_xdr_security_incidents_*.csv"}},
	{Title: "Defender XDR Secure Score", Patterns: []string{"defender_xdr_secure_score_*.csv"}},
}

// FindLatest returns the most recently modified file matching any of the
// patterns, or false when nothing matches.
func FindLatest(dir string, patterns []string) (string, bool) {
	var latest string
	var latestMod time.Time

	for _, pattern := range patterns {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			log.Warnf("Bad file pattern %s: %v", pattern, err)
			continue
		}
		for _, match := range matches {
			info, err := os.Stat(match)
			if err != nil {
				continue
			}
			if latest == "" || info.ModTime().After(latestMod) {
				latest = match
				latestMod = info.ModTime()
			}
		}
	}
	return latest, latest != ""
}

// BuildCombinedReport assembles a Markdown report from the newest file of
// each section found under dir. Missing required sections aggregate into a
// single error so the operator sees everything that is absent at once.
func BuildCombinedReport(dir string, sections []Section) (string, error) {
	var missing *multierror.Error
	var b strings.Builder

	fmt.Fprintf(&b, "# Combined Sentinel & Defender XDR Audit Report\n\n")
	fmt.Fprintf(&b, "Generated: %s\n", time.Now().Format(time.RFC3339))

	for _, section := range sections {
		filename, ok := FindLatest(dir, section.Patterns)
		if !ok {
			if section.Required {
				missing = multierror.Append(missing, fmt.Errorf("no file matching %s for required section %q", strings.Join(section.Patterns, ", "), section.Title))
			} else {
				log.Infof("Skipping optional section %q, no matching file", section.Title)
			}
			continue
		}

		header, rows, err := ReadCSV(filename)
		if err != nil {
			missing = multierror.Append(missing, fmt.Errorf("section %q: %w", section.Title, err))
			continue
		}

		fmt.Fprintf(&b, "\n## %s\n\n", section.Title)
		fmt.Fprintf(&b, "Source: `%s` (%d records)\n\n", filepath.Base(filename), len(rows))
		writeMarkdownTable(&b, header, rows)
	}

	if err := missing.ErrorOrNil(); err != nil {
		return "", err
	}
	return b.String(), nil
}

// WriteCombinedReport assembles the report and writes it next to the
// source files.
func WriteCombinedReport(dir string, sections []Section) (string, error) {
	report, err := BuildCombinedReport(dir, sections)
	if err != nil {
		return "", err
	}

	filename := filepath.Join(dir, Timestamped("combined_audit_report", "md"))
	if err := os.WriteFile(filename, []byte(report), 0644); err != nil {
		return "", fmt.Errorf("failed to write combined report: %w", err)
	}
	log.Infof("Combined report written to %s", filename)
	return filename, nil
}

func writeMarkdownTable(b *strings.Builder, header []string, rows [][]string) {
	if len(header) == 0 {
		return
	}

	fmt.Fprintf(b, "| %s |\n", strings.Join(header, " | "))
	b.WriteString("|")
	for range header {
		b.WriteString(" --- |")
	}
	b.WriteString("\n")

	for _, row := range rows {
		cells := make([]string, len(header))
		for i := range header {
			if i < len(row) {
				cells[i] = strings.ReplaceAll(row[i], "|", "\\|")
			}
		}
		fmt.Fprintf(b, "| %s |\n", strings.Join(cells, " | "))
	}
}
