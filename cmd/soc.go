package cmd

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"sentinelaudit/export"
	"sentinelaudit/sentinel"
	"sentinelaudit/soc"
)

var socCmd = &cobra.Command{
	Use:   "soc",
	Short: "Collect SOC optimization data from the workspace",
	Long: `soc runs the rule efficiency and data ingestion queries against the
Log Analytics workspace, derives optimization recommendations, and exports
the three datasets to timestamped CSV files.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		return runSOC(cmd.Context(), cfg)
	},
}

func init() {
	rootCmd.AddCommand(socCmd)
}

func runSOC(ctx context.Context, cfg *sentinel.Config) error {
	cred, err := newCredential(cfg)
	if err != nil {
		return fmt.Errorf("failed to create credential: %w", err)
	}
	managementToken, err := sentinel.GetToken(ctx, cred, sentinel.ScopeManagement)
	if err != nil {
		return err
	}
	queryToken, err := sentinel.GetToken(ctx, cred, sentinel.ScopeLogAnalytics)
	if err != nil {
		return err
	}

	client := sentinel.NewLogAnalyticsClient(queryToken, cfg)
	workspaceID, err := client.WorkspaceID(ctx, managementToken)
	if err != nil {
		return err
	}
	log.Infof("Resolved workspace id %s", workspaceID)

	log.Info("Querying analytic rule efficiency ...")
	efficiencyResults, err := client.Query(ctx, workspaceID, soc.RuleEfficiencyQuery)
	if err != nil {
		return err
	}
	rules := soc.ParseRuleEfficiency(efficiencyResults)
	log.Infof("Retrieved efficiency data for %d rules", len(rules))

	log.Info("Querying data ingestion volumes ...")
	ingestionResults, err := client.Query(ctx, workspaceID, soc.DataIngestionQuery)
	if err != nil {
		return err
	}
	ingestion := soc.ParseDataIngestion(ingestionResults)
	log.Infof("Retrieved ingestion data for %d tables", len(ingestion))

	recommendations := soc.BuildRecommendations(rules, ingestion)
	for _, rec := range recommendations {
		log.Infof("Recommendation [%s/%s]: %s", rec.Impact, rec.Category, rec.Description)
	}

	if err := writeSOCDatasets(rules, ingestion, recommendations); err != nil {
		return err
	}
	return nil
}

func writeSOCDatasets(rules []soc.RuleEfficiency, ingestion []soc.DataIngestion, recommendations []soc.Recommendation) error {
	efficiencyFile := export.Timestamped("soc_rule_efficiency", "csv")
	rows := make([][]string, 0, len(rules))
	for _, r := range rules {
		rows = append(rows, r.CSVRow())
	}
	if err := export.WriteCSV(efficiencyFile, soc.RuleEfficiencyHeader, rows); err != nil {
		return err
	}
	log.Infof("Writing %d rule efficiency records to %s", len(rows), efficiencyFile)

	ingestionFile := export.Timestamped("soc_data_ingestion", "csv")
	rows = rows[:0]
	for _, d := range ingestion {
		rows = append(rows, d.CSVRow())
	}
	if err := export.WriteCSV(ingestionFile, soc.DataIngestionHeader, rows); err != nil {
		return err
	}
	log.Infof("Writing %d data ingestion records to %s", len(rows), ingestionFile)

	recommendationFile := export.Timestamped("soc_recommendations", "csv")
	rows = rows[:0]
	for _, rec := range recommendations {
		rows = append(rows, rec.CSVRow())
	}
	if err := export.WriteCSV(recommendationFile, soc.RecommendationHeader, rows); err != nil {
		return err
	}
	log.Infof("Writing %d recommendations to %s", len(rows), recommendationFile)
	return nil
}
