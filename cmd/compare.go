package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"sentinelaudit/compare"
	"sentinelaudit/sentinel"
)

var (
	compareOutput      string
	compareShowDiffs   bool
	compareSkipUpdates bool
)

var compareCmd = &cobra.Command{
	Use:   "compare",
	Short: "Compare analytic rules against their templates and check solution updates",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		return runCompare(cmd.Context(), cfg)
	},
}

func init() {
	compareCmd.Flags().StringVarP(&compareOutput, "output", "o", "comparison_report.json", "comparison report output file")
	compareCmd.Flags().BoolVar(&compareShowDiffs, "show-query-diffs", false, "print unified query diffs for changed rules")
	compareCmd.Flags().BoolVar(&compareSkipUpdates, "skip-solution-updates", false, "skip the content hub solution update check")
	rootCmd.AddCommand(compareCmd)
}

func runCompare(ctx context.Context, cfg *sentinel.Config) error {
	cred, err := newCredential(cfg)
	if err != nil {
		return fmt.Errorf("failed to create credential: %w", err)
	}
	token, err := sentinel.GetToken(ctx, cred, sentinel.ScopeManagement)
	if err != nil {
		return err
	}
	client := sentinel.NewClient(token, cfg)

	if !compareSkipUpdates {
		if err := checkSolutionUpdates(ctx, client); err != nil {
			return err
		}
	}

	log.Info("Comparing analytic rules against their templates ...")
	rules, err := client.ListAnalyticRules(ctx)
	if err != nil {
		return err
	}
	templates, err := client.ListRuleTemplates(ctx)
	if err != nil {
		return err
	}

	templatesByName := make(map[string]sentinel.RuleTemplate, len(templates))
	for _, t := range templates {
		templatesByName[t.Name] = t
	}

	var comparisons []compare.RuleComparison
	matched := 0
	for _, rule := range rules {
		if rule.TemplateName == "" {
			log.Debugf("Rule %s has no template linkage, skipping", rule.Name)
			continue
		}
		template, ok := templatesByName[rule.TemplateName]
		if !ok {
			log.Debugf("No template %s for rule %s, skipping", rule.TemplateName, rule.Name)
			continue
		}
		matched++

		report := compare.CompareProperties(&rule.Record, &template.Record)
		risk := compare.AssessRisk(report)

		ruleName := rule.Name
		if rule.Record.DisplayName != nil {
			ruleName = *rule.Record.DisplayName
		}
		comparisons = append(comparisons, compare.RuleComparison{
			RuleName:         ruleName,
			Risk:             risk,
			DifferenceReport: report,
		})

		if report.HasChanges {
			fmt.Println(compare.RenderChangeSummary(ruleName, report))
			if compareShowDiffs {
				printQueryDiff(rule.Record.Query, template.Record.Query)
			}
		}
	}

	log.Infof("Compared %d rules against templates, %d with changes", matched, countChanged(comparisons))

	if !compare.ExportComparisonReport(comparisons, compareOutput) {
		return fmt.Errorf("failed to export comparison report to %s", compareOutput)
	}
	return nil
}

func checkSolutionUpdates(ctx context.Context, client *sentinel.Client) error {
	log.Info("Checking content hub solutions for updates ...")

	installed, err := client.ListInstalledSolutions(ctx)
	if err != nil {
		return err
	}
	available, err := client.ListAvailableContent(ctx)
	if err != nil {
		return err
	}

	updates := sentinel.CheckSolutionUpdates(installed, available)
	for _, u := range updates {
		log.Infof("Update available: %s %s -> %s (publisher %s)",
			u.SolutionName, u.CurrentVersion, u.AvailableVersion, u.Publisher)
	}

	if len(updates) > 0 {
		filename := "solution_updates.json"
		data, err := json.MarshalIndent(updates, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal solution updates: %w", err)
		}
		if err := os.WriteFile(filename, data, 0644); err != nil {
			return fmt.Errorf("failed to write solution updates: %w", err)
		}
		log.Infof("Writing %d solution updates to %s", len(updates), filename)
	}
	return nil
}

func printQueryDiff(current, template *string) {
	var currentQuery, templateQuery string
	if current != nil {
		currentQuery = *current
	}
	if template != nil {
		templateQuery = *template
	}
	if diff := compare.DiffQueryText(currentQuery, templateQuery); diff != "" {
		fmt.Println(diff)
	}
}

func countChanged(comparisons []compare.RuleComparison) int {
	n := 0
	for _, c := range comparisons {
		if c.HasChanges {
			n++
		}
	}
	return n
}
