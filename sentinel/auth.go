package sentinel

import (
	"context"
	"fmt"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	log "github.com/sirupsen/logrus"
)

// Scopes for the services this toolkit queries.
const (
	ScopeManagement   = "https://management.azure.com/.default"
	ScopeLogAnalytics = "https://api.loganalytics.io/.default"
	ScopeGraph        = "https://graph.microsoft.com/.default"
)

// NewCredential builds a token credential for the configured auth mode.
// The default chain tries Azure CLI and environment credentials first,
// matching the behavior operators expect from "az login".
func NewCredential(cfg *Config) (azcore.TokenCredential, error) {
	switch {
	case cfg.AuthMode == AuthDevice:
		log.Info("Using device code authentication")
		return azidentity.NewDeviceCodeCredential(&azidentity.DeviceCodeCredentialOptions{
			TenantID: cfg.TenantID,
		})

	case cfg.AuthMode == AuthBrowser:
		log.Info("Using interactive browser authentication")
		return azidentity.NewInteractiveBrowserCredential(&azidentity.InteractiveBrowserCredentialOptions{
			TenantID: cfg.TenantID,
		})

	case cfg.AuthMode == AuthCLI:
		log.Info("Using Azure CLI authentication")
		return azidentity.NewAzureCLICredential(&azidentity.AzureCLICredentialOptions{
			TenantID: cfg.TenantID,
		})

	case cfg.AuthMode == AuthSecret || cfg.HasServicePrincipal():
		if !cfg.HasServicePrincipal() {
			return nil, fmt.Errorf("auth mode %q requires tenant id, client id and client secret", cfg.AuthMode)
		}
		log.Info("Using service principal authentication")
		return azidentity.NewClientSecretCredential(cfg.TenantID, cfg.ClientID, cfg.ClientSecret, nil)

	default:
		log.Info("Using default Azure credential chain (Azure CLI first)")
		return azidentity.NewDefaultAzureCredential(nil)
	}
}

// GetToken fetches an access token for one scope.
func GetToken(ctx context.Context, cred azcore.TokenCredential, scope string) (string, error) {
	token, err := cred.GetToken(ctx, policy.TokenRequestOptions{
		Scopes: []string{scope},
	})
	if err != nil {
		return "", fmt.Errorf("failed to get token: %w", err)
	}
	return token.Token, nil
}
