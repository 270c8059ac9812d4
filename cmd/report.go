package cmd

import (
	"github.com/spf13/cobra"

	"sentinelaudit/export"
)

var reportDir string

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Assemble the combined audit report from exported CSV files",
	Long: `report finds the newest export of each audit dataset in the given
directory and assembles them into a single Markdown report. The SOC
datasets are required; the Defender XDR datasets are included when
present.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := export.WriteCombinedReport(reportDir, export.DefaultSections)
		return err
	},
}

func init() {
	reportCmd.Flags().StringVarP(&reportDir, "dir", "d", ".", "directory holding the exported CSV files")
	rootCmd.AddCommand(reportCmd)
}
