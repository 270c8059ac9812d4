package sentinel

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"sentinelaudit/compare"
)

const securityInsightsAPIVersion = "2023-11-01"

// Client queries the Microsoft Sentinel content hub and analytic rule
// surface through the Azure management plane.
type Client struct {
	BaseURL    string
	Token      string
	HTTPClient *http.Client

	cfg *Config
}

// NewClient builds a content hub client for the configured workspace. The
// token must carry the management scope.
func NewClient(token string, cfg *Config) *Client {
	return &Client{
		BaseURL: "https://management.azure.com",
		Token:   token,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		cfg: cfg,
	}
}

// Solution is one installed content hub package.
type Solution struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Type        string `json:"type"`
	Kind        string `json:"kind"`
	Version     string `json:"version"`
	DisplayName string `json:"display_name"`
	IsNew       bool   `json:"is_new"`
	IsFeatured  bool   `json:"is_featured"`
}

// ContentPackage is one catalog entry from the content hub.
type ContentPackage struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	PackageID   string `json:"package_id"`
	Version     string `json:"version"`
	DisplayName string `json:"display_name"`
	ContentKind string `json:"content_kind"`
	Publisher   string `json:"publisher"`
}

// TemplateContent is the raw template body shipped with a catalog package.
type TemplateContent struct {
	ID      string          `json:"id"`
	Name    string          `json:"name"`
	Content json.RawMessage `json:"content"`
	Version string          `json:"version"`
}

// AnalyticRule is a deployed scheduled rule with the fields the comparator
// needs plus the template linkage used to look up its baseline.
type AnalyticRule struct {
	ID              string
	Name            string
	Kind            string
	TemplateName    string
	TemplateVersion string
	Record          compare.RuleRecord
}

// RuleTemplate is a shipped rule template.
type RuleTemplate struct {
	ID          string
	Name        string
	Kind        string
	DisplayName string
	Version     string
	Record      compare.RuleRecord
}

type armList struct {
	Value    []json.RawMessage `json:"value"`
	NextLink string            `json:"nextLink"`
}

type armResource struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Type       string          `json:"type"`
	Kind       string          `json:"kind"`
	Properties json.RawMessage `json:"properties"`
}

type packageProperties struct {
	ContentKind          string `json:"contentKind"`
	ContentID            string `json:"contentId"`
	PackageID            string `json:"packageId"`
	Version              string `json:"version"`
	DisplayName          string `json:"displayName"`
	PublisherDisplayName string `json:"publisherDisplayName"`
	IsNew                bool   `json:"isNew"`
	IsFeatured           bool   `json:"isFeatured"`
}

// ruleProperties mirrors the ARM scheduled-rule property bag. Pointer
// fields keep absent properties distinguishable from zero values.
type ruleProperties struct {
	DisplayName           *string  `json:"displayName"`
	Description           *string  `json:"description"`
	Severity              *string  `json:"severity"`
	Tactics               []string `json:"tactics"`
	Techniques            []string `json:"techniques"`
	Query                 *string  `json:"query"`
	QueryFrequency        *string  `json:"queryFrequency"`
	QueryPeriod           *string  `json:"queryPeriod"`
	TriggerOperator       *string  `json:"triggerOperator"`
	TriggerThreshold      *int     `json:"triggerThreshold"`
	Enabled               *bool    `json:"enabled"`
	AlertRuleTemplateName *string  `json:"alertRuleTemplateName"`
	TemplateVersion       *string  `json:"templateVersion"`
	Version               *string  `json:"version"`
}

func (p *ruleProperties) record() compare.RuleRecord {
	return compare.RuleRecord{
		DisplayName:      p.DisplayName,
		Description:      p.Description,
		Severity:         p.Severity,
		Tactics:          p.Tactics,
		Techniques:       p.Techniques,
		Query:            p.Query,
		QueryFrequency:   p.QueryFrequency,
		QueryPeriod:      p.QueryPeriod,
		TriggerOperator:  p.TriggerOperator,
		TriggerThreshold: p.TriggerThreshold,
		Enabled:          p.Enabled,
	}
}

func (c *Client) workspaceURL(suffix string) string {
	return fmt.Sprintf(
		"%s/subscriptions/%s/resourceGroups/%s/providers/Microsoft.OperationalInsights/workspaces/%s/providers/Microsoft.SecurityInsights/%s?api-version=%s",
		c.BaseURL, c.cfg.SubscriptionID, c.cfg.ResourceGroup, c.cfg.WorkspaceName, suffix, securityInsightsAPIVersion,
	)
}

func (c *Client) getJSON(ctx context.Context, url string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.Token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("request failed with status code %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to unmarshal response body: %w", err)
	}
	return nil
}

// listAll walks an ARM list endpoint, following nextLink pagination.
func (c *Client) listAll(ctx context.Context, url string) ([]json.RawMessage, error) {
	var items []json.RawMessage
	for url != "" {
		var page armList
		if err := c.getJSON(ctx, url, &page); err != nil {
			return nil, err
		}
		items = append(items, page.Value...)
		url = page.NextLink
	}
	return items, nil
}

// ListInstalledSolutions lists the content hub packages installed in the
// workspace.
func (c *Client) ListInstalledSolutions(ctx context.Context) ([]Solution, error) {
	items, err := c.listAll(ctx, c.workspaceURL("contentPackages"))
	if err != nil {
		return nil, fmt.Errorf("failed to list installed solutions: %w", err)
	}

	var solutions []Solution
	for _, item := range items {
		var res armResource
		if err := json.Unmarshal(item, &res); err != nil {
			log.Warnf("Skipping unreadable content package: %v", err)
			continue
		}
		var props packageProperties
		if len(res.Properties) > 0 {
			if err := json.Unmarshal(res.Properties, &props); err != nil {
				log.Warnf("Skipping content package %s with unreadable properties: %v", res.Name, err)
				continue
			}
		}
		displayName := props.DisplayName
		if displayName == "" {
			displayName = res.Name
		}
		solutions = append(solutions, Solution{
			ID:          res.ID,
			Name:        res.Name,
			Type:        res.Type,
			Kind:        props.ContentKind,
			Version:     props.Version,
			DisplayName: displayName,
			IsNew:       props.IsNew,
			IsFeatured:  props.IsFeatured,
		})
	}

	log.Infof("Found %d installed solutions", len(solutions))
	return solutions, nil
}

// ListAvailableContent lists the content hub catalog.
func (c *Client) ListAvailableContent(ctx context.Context) ([]ContentPackage, error) {
	items, err := c.listAll(ctx, c.workspaceURL("contentProductPackages"))
	if err != nil {
		return nil, fmt.Errorf("failed to list available content: %w", err)
	}

	var packages []ContentPackage
	for _, item := range items {
		var res armResource
		if err := json.Unmarshal(item, &res); err != nil {
			log.Warnf("Skipping unreadable catalog package: %v", err)
			continue
		}
		var props packageProperties
		if len(res.Properties) > 0 {
			if err := json.Unmarshal(res.Properties, &props); err != nil {
				log.Warnf("Skipping catalog package %s with unreadable properties: %v", res.Name, err)
				continue
			}
		}
		packageID := props.PackageID
		if packageID == "" {
			packageID = props.ContentID
		}
		displayName := props.DisplayName
		if displayName == "" {
			displayName = res.Name
		}
		packages = append(packages, ContentPackage{
			ID:          res.ID,
			Name:        res.Name,
			PackageID:   packageID,
			Version:     props.Version,
			DisplayName: displayName,
			ContentKind: props.ContentKind,
			Publisher:   props.PublisherDisplayName,
		})
	}

	log.Infof("Found %d available content packages", len(packages))
	return packages, nil
}

// GetTemplateContent fetches the template body for one catalog package.
func (c *Client) GetTemplateContent(ctx context.Context, templateID string) (*TemplateContent, error) {
	var res struct {
		ID         string `json:"id"`
		Name       string `json:"name"`
		Properties struct {
			Version         string          `json:"version"`
			TemplateContent json.RawMessage `json:"mainTemplate"`
		} `json:"properties"`
	}
	url := c.workspaceURL("contentProductTemplates/" + templateID)
	if err := c.getJSON(ctx, url, &res); err != nil {
		return nil, fmt.Errorf("failed to get template content for %s: %w", templateID, err)
	}
	return &TemplateContent{
		ID:      res.ID,
		Name:    res.Name,
		Content: res.Properties.TemplateContent,
		Version: res.Properties.Version,
	}, nil
}

// ListAnalyticRules lists the scheduled analytic rules deployed in the
// workspace.
func (c *Client) ListAnalyticRules(ctx context.Context) ([]AnalyticRule, error) {
	items, err := c.listAll(ctx, c.workspaceURL("alertRules"))
	if err != nil {
		return nil, fmt.Errorf("failed to list analytic rules: %w", err)
	}

	var rules []AnalyticRule
	for _, item := range items {
		var res armResource
		if err := json.Unmarshal(item, &res); err != nil {
			log.Warnf("Skipping unreadable analytic rule: %v", err)
			continue
		}
		var props ruleProperties
		if len(res.Properties) > 0 {
			if err := json.Unmarshal(res.Properties, &props); err != nil {
				log.Warnf("Skipping analytic rule %s with unreadable properties: %v", res.Name, err)
				continue
			}
		}
		rule := AnalyticRule{
			ID:     res.ID,
			Name:   res.Name,
			Kind:   res.Kind,
			Record: props.record(),
		}
		if props.AlertRuleTemplateName != nil {
			rule.TemplateName = *props.AlertRuleTemplateName
		}
		if props.TemplateVersion != nil {
			rule.TemplateVersion = *props.TemplateVersion
		}
		rules = append(rules, rule)
	}

	log.Infof("Found %d analytic rules", len(rules))
	return rules, nil
}

// ListRuleTemplates lists the shipped analytic rule templates.
func (c *Client) ListRuleTemplates(ctx context.Context) ([]RuleTemplate, error) {
	items, err := c.listAll(ctx, c.workspaceURL("alertRuleTemplates"))
	if err != nil {
		return nil, fmt.Errorf("failed to list rule templates: %w", err)
	}

	var templates []RuleTemplate
	for _, item := range items {
		var res armResource
		if err := json.Unmarshal(item, &res); err != nil {
			log.Warnf("Skipping unreadable rule template: %v", err)
			continue
		}
		var props ruleProperties
		if len(res.Properties) > 0 {
			if err := json.Unmarshal(res.Properties, &props); err != nil {
				log.Warnf("Skipping rule template %s with unreadable properties: %v", res.Name, err)
				continue
			}
		}
		template := RuleTemplate{
			ID:     res.ID,
			Name:   res.Name,
			Kind:   res.Kind,
			Record: props.record(),
		}
		if props.DisplayName != nil {
			template.DisplayName = *props.DisplayName
		}
		if props.Version != nil {
			template.Version = *props.Version
		}
		templates = append(templates, template)
	}

	log.Infof("Found %d rule templates", len(templates))
	return templates, nil
}

// GetRuleTemplate fetches one rule template by id.
func (c *Client) GetRuleTemplate(ctx context.Context, templateID string) (*RuleTemplate, error) {
	var res armResource
	url := c.workspaceURL("alertRuleTemplates/" + templateID)
	if err := c.getJSON(ctx, url, &res); err != nil {
		return nil, fmt.Errorf("failed to get rule template %s: %w", templateID, err)
	}

	var props ruleProperties
	if len(res.Properties) > 0 {
		if err := json.Unmarshal(res.Properties, &props); err != nil {
			return nil, fmt.Errorf("failed to decode rule template %s: %w", templateID, err)
		}
	}
	template := &RuleTemplate{
		ID:     res.ID,
		Name:   res.Name,
		Kind:   res.Kind,
		Record: props.record(),
	}
	if props.DisplayName != nil {
		template.DisplayName = *props.DisplayName
	}
	if props.Version != nil {
		template.Version = *props.Version
	}
	return template, nil
}

// CheckSolutionUpdates matches installed solutions against the catalog and
// returns one update record per solution whose catalog version is strictly
// newer. Matching follows the package id / display name heuristic the
// content hub uses for correlation.
func CheckSolutionUpdates(installed []Solution, available []ContentPackage) []compare.SolutionUpdate {
	var updates []compare.SolutionUpdate

	for _, solution := range installed {
		currentVersion := solution.Version
		if currentVersion == "" {
			currentVersion = "0.0.0"
		}

		for _, pkg := range available {
			if !matchesSolution(solution, pkg) {
				continue
			}
			availableVersion := pkg.Version
			if availableVersion == "" {
				availableVersion = "0.0.0"
			}
			if compare.IsNewer(currentVersion, availableVersion) {
				name := solution.DisplayName
				if name == "" {
					name = solution.Name
				}
				updates = append(updates, compare.SolutionUpdate{
					SolutionName:     name,
					CurrentVersion:   currentVersion,
					AvailableVersion: availableVersion,
					PackageID:        pkg.PackageID,
					Publisher:        pkg.Publisher,
					InstalledID:      solution.ID,
				})
				break
			}
		}
	}

	log.Infof("Found %d solutions with updates available", len(updates))
	return updates
}

func matchesSolution(solution Solution, pkg ContentPackage) bool {
	if solution.Name != "" && strings.Contains(pkg.PackageID, solution.Name) {
		return true
	}
	return solution.DisplayName != "" && pkg.DisplayName == solution.DisplayName
}
