// Package cmd wires the audit subcommands: configuration, credential
// selection, and the collaborator clients the core packages consume.
package cmd

import (
	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"sentinelaudit/sentinel"
)

var rootCmd = &cobra.Command{
	Use:   "sentinelaudit",
	Short: "Audit Microsoft Sentinel and Defender XDR",
	Long: `sentinelaudit queries a Microsoft Sentinel workspace and Defender XDR
tenant, compares deployed analytic rules against their shipped templates,
checks content hub solutions for updates, exports audit datasets to CSV,
and assembles a combined report.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if viper.GetBool("debug") {
			log.SetLevel(log.DebugLevel)
		}
	},
}

// Execute runs the CLI.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.String("subscription", "", "Azure subscription id")
	flags.String("resource-group", "", "resource group of the Sentinel workspace")
	flags.String("workspace", "", "Sentinel workspace name")
	flags.String("auth-mode", "auto", "authentication mode: auto, device, browser, cli or secret")
	flags.Bool("debug", false, "enable debug output")

	viper.BindPFlag("subscription", flags.Lookup("subscription"))
	viper.BindPFlag("resource_group", flags.Lookup("resource-group"))
	viper.BindPFlag("workspace", flags.Lookup("workspace"))
	viper.BindPFlag("auth_mode", flags.Lookup("auth-mode"))
	viper.BindPFlag("debug", flags.Lookup("debug"))

	viper.BindEnv("subscription", "AZURE_SUBSCRIPTION_ID")
	viper.BindEnv("resource_group", "RESOURCE_GROUP_NAME")
	viper.BindEnv("workspace", "WORKSPACE_NAME")
	viper.BindEnv("auth_mode", "AUTH_MODE")
	viper.BindEnv("tenant_id", "AZURE_TENANT_ID")
	viper.BindEnv("client_id", "AZURE_CLIENT_ID")
	viper.BindEnv("client_secret", "AZURE_CLIENT_SECRET")
}

// loadConfig materializes the explicit configuration value handed to the
// collaborators; nothing below this layer reads flags or the environment.
func loadConfig() (*sentinel.Config, error) {
	cfg := &sentinel.Config{
		SubscriptionID: viper.GetString("subscription"),
		ResourceGroup:  viper.GetString("resource_group"),
		WorkspaceName:  viper.GetString("workspace"),
		AuthMode:       sentinel.AuthMode(viper.GetString("auth_mode")),
		TenantID:       viper.GetString("tenant_id"),
		ClientID:       viper.GetString("client_id"),
		ClientSecret:   viper.GetString("client_secret"),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newCredential(cfg *sentinel.Config) (azcore.TokenCredential, error) {
	return sentinel.NewCredential(cfg)
}
