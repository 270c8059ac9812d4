// Package sentinel talks to the Azure management plane for a Microsoft
// Sentinel workspace: credential selection, content hub inventory, analytic
// rules and templates, and Log Analytics queries. It supplies the records
// the compare package consumes.
package sentinel

import (
	"errors"
	"fmt"
)

// AuthMode selects how a credential is acquired.
type AuthMode string

const (
	AuthAuto    AuthMode = "auto"
	AuthDevice  AuthMode = "device"
	AuthBrowser AuthMode = "browser"
	AuthCLI     AuthMode = "cli"
	AuthSecret  AuthMode = "secret"
)

// Config identifies the workspace under audit and how to authenticate to
// it. It is built once by the CLI layer and passed down explicitly; nothing
// below the CLI reads the environment.
type Config struct {
	SubscriptionID string
	ResourceGroup  string
	WorkspaceName  string

	AuthMode AuthMode

	// Service principal fields, only used when all three are set.
	TenantID     string
	ClientID     string
	ClientSecret string
}

// Validate checks the fields every audit needs.
func (c *Config) Validate() error {
	if c.SubscriptionID == "" {
		return errors.New("missing subscription id (AZURE_SUBSCRIPTION_ID)")
	}
	if c.ResourceGroup == "" {
		return errors.New("missing resource group (RESOURCE_GROUP_NAME)")
	}
	if c.WorkspaceName == "" {
		return errors.New("missing workspace name (WORKSPACE_NAME)")
	}
	switch c.AuthMode {
	case "", AuthAuto, AuthDevice, AuthBrowser, AuthCLI, AuthSecret:
	default:
		return fmt.Errorf("unknown auth mode %q", c.AuthMode)
	}
	return nil
}

// HasServicePrincipal reports whether the service principal triple is
// fully populated.
func (c *Config) HasServicePrincipal() bool {
	return c.TenantID != "" && c.ClientID != "" && c.ClientSecret != ""
}
