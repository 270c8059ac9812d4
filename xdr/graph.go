// Package xdr audits a Defender XDR tenant through Microsoft Graph:
// a permission probe across the security endpoints, and collectors for
// alerts, incidents and secure scores.
package xdr

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"
)

// GraphClient issues authenticated Microsoft Graph requests.
type GraphClient struct {
	BaseURL    string
	Token      string
	HTTPClient *http.Client
}

// NewGraphClient builds a client around a Graph-scoped token.
func NewGraphClient(token string) *GraphClient {
	return &GraphClient{
		BaseURL: "https://graph.microsoft.com",
		Token:   token,
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

type graphList struct {
	Value    []json.RawMessage `json:"value"`
	NextLink string            `json:"@odata.nextLink"`
}

func (c *GraphClient) get(ctx context.Context, url string) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.Token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("failed to read response body: %w", err)
	}
	return resp.StatusCode, body, nil
}

// list walks a Graph collection endpoint, following @odata.nextLink.
func (c *GraphClient) list(ctx context.Context, url string) ([]json.RawMessage, error) {
	var items []json.RawMessage
	for url != "" {
		status, body, err := c.get(ctx, url)
		if err != nil {
			return nil, err
		}
		if status != http.StatusOK {
			return nil, fmt.Errorf("request failed with status code %d", status)
		}
		var page graphList
		if err := json.Unmarshal(body, &page); err != nil {
			return nil, fmt.Errorf("failed to unmarshal response body: %w", err)
		}
		items = append(items, page.Value...)
		url = page.NextLink
	}
	return items, nil
}

// ProbeTarget is one Graph endpoint checked during the permission probe.
type ProbeTarget struct {
	Path        string
	Description string
}

// ProbeResult records how one endpoint answered.
type ProbeResult struct {
	Description string
	Path        string
	Accessible  bool
	StatusCode  int
	ItemCount   int
}

// DefaultProbeTargets is the endpoint list the audit walks to establish
// which data the current principal can reach.
var DefaultProbeTargets = []ProbeTarget{
	{"/v1.0/organization", "Organization Information"},
	{"/v1.0/users?$top=5&$select=displayName,userPrincipalName,accountEnabled", "User Directory (sample)"},
	{"/v1.0/groups?$top=5&$select=displayName,securityEnabled", "Security Groups (sample)"},
	{"/v1.0/applications?$top=5&$select=displayName,appId", "Applications (sample)"},
	{"/v1.0/identity/conditionalAccess/policies?$top=5", "Conditional Access Policies"},
	{"/v1.0/devices?$top=5&$select=displayName,operatingSystem,isManaged", "Managed Devices (sample)"},
	{"/v1.0/auditLogs/directoryAudits?$top=5", "Directory Audit Logs"},
	{"/v1.0/auditLogs/signIns?$top=5", "Sign-in Logs"},
	{"/v1.0/security/secureScores?$top=1", "Microsoft Secure Score"},
	{"/beta/security/alerts?$top=5", "Security Alerts"},
	{"/beta/security/incidents?$top=5", "Security Incidents"},
	{"/v1.0/security/attackSimulation/simulations?$top=5", "Attack Simulations"},
	{"/v1.0/identityProtection/riskyUsers?$top=5", "Risky Users"},
	{"/v1.0/identityProtection/riskDetections?$top=5", "Risk Detections"},
}

// ProbeEndpoints checks each target and reports whether it is reachable
// with the current token. 401 and 403 are findings, not failures; only
// transport errors make a target count as errored.
func (c *GraphClient) ProbeEndpoints(ctx context.Context, targets []ProbeTarget) []ProbeResult {
	results := make([]ProbeResult, 0, len(targets))
	for _, target := range targets {
		result := ProbeResult{Description: target.Description, Path: target.Path}

		status, body, err := c.get(ctx, c.BaseURL+target.Path)
		if err != nil {
			log.Warnf("%s: %v", target.Description, err)
			results = append(results, result)
			continue
		}
		result.StatusCode = status

		switch status {
		case http.StatusOK:
			result.Accessible = true
			result.ItemCount = countItems(body)
			log.Infof("%s: %d items found", target.Description, result.ItemCount)
		case http.StatusForbidden:
			log.Infof("%s: forbidden (need Security Reader role)", target.Description)
		case http.StatusUnauthorized:
			log.Infof("%s: unauthorized (need app permissions)", target.Description)
		default:
			log.Infof("%s: status %d", target.Description, status)
		}
		results = append(results, result)
	}
	return results
}

func countItems(body []byte) int {
	var page graphList
	if err := json.Unmarshal(body, &page); err != nil || page.Value == nil {
		// single-object responses count as one item
		return 1
	}
	return len(page.Value)
}

// SecurityAlert is the flattened alert record exported to CSV.
type SecurityAlert struct {
	ID              string `json:"id"`
	Title           string `json:"title"`
	Severity        string `json:"severity"`
	Status          string `json:"status"`
	Category        string `json:"category"`
	CreatedDateTime string `json:"createdDateTime"`
}

// SecurityIncident is the flattened incident record exported to CSV.
type SecurityIncident struct {
	ID              string `json:"id"`
	DisplayName     string `json:"displayName"`
	Severity        string `json:"severity"`
	Status          string `json:"status"`
	Classification  string `json:"classification"`
	CreatedDateTime string `json:"createdDateTime"`
}

// SecureScore is one secure score snapshot.
type SecureScore struct {
	ID                string  `json:"id"`
	CreatedDateTime   string  `json:"createdDateTime"`
	CurrentScore      float64 `json:"currentScore"`
	MaxScore          float64 `json:"maxScore"`
	ActiveUserCount   int     `json:"activeUserCount"`
	LicensedUserCount int     `json:"licensedUserCount"`
}

// ListSecurityAlerts collects Defender XDR alerts.
func (c *GraphClient) ListSecurityAlerts(ctx context.Context) ([]SecurityAlert, error) {
	items, err := c.list(ctx, c.BaseURL+"/beta/security/alerts?$top=100")
	if err != nil {
		return nil, fmt.Errorf("failed to list security alerts: %w", err)
	}
	alerts := make([]SecurityAlert, 0, len(items))
	for _, item := range items {
		var alert SecurityAlert
		if err := json.Unmarshal(item, &alert); err != nil {
			log.Warnf("Skipping unreadable alert: %v", err)
			continue
		}
		alerts = append(alerts, alert)
	}
	log.Infof("Found %d security alerts", len(alerts))
	return alerts, nil
}

// ListSecurityIncidents collects Defender XDR incidents.
func (c *GraphClient) ListSecurityIncidents(ctx context.Context) ([]SecurityIncident, error) {
	items, err := c.list(ctx, c.BaseURL+"/beta/security/incidents?$top=100")
	if err != nil {
		return nil, fmt.Errorf("failed to list security incidents: %w", err)
	}
	incidents := make([]SecurityIncident, 0, len(items))
	for _, item := range items {
		var incident SecurityIncident
		if err := json.Unmarshal(item, &incident); err != nil {
			log.Warnf("Skipping unreadable incident: %v", err)
			continue
		}
		incidents = append(incidents, incident)
	}
	log.Infof("Found %d security incidents", len(incidents))
	return incidents, nil
}

// ListSecureScores collects recent secure score snapshots.
func (c *GraphClient) ListSecureScores(ctx context.Context) ([]SecureScore, error) {
	items, err := c.list(ctx, c.BaseURL+"/v1.0/security/secureScores?$top=30")
	if err != nil {
		return nil, fmt.Errorf("failed to list secure scores: %w", err)
	}
	scores := make([]SecureScore, 0, len(items))
	for _, item := range items {
		var score SecureScore
		if err := json.Unmarshal(item, &score); err != nil {
			log.Warnf("Skipping unreadable secure score: %v", err)
			continue
		}
		scores = append(scores, score)
	}
	log.Infof("Found %d secure score snapshots", len(scores))
	return scores, nil
}

// CSV shapes.

// AlertHeader is the CSV column order for alert exports.
var AlertHeader = []string{"Id", "Title", "Severity", "Status", "Category", "CreatedDateTime"}

// CSVRow renders the alert in AlertHeader order.
func (a SecurityAlert) CSVRow() []string {
	return []string{a.ID, a.Title, a.Severity, a.Status, a.Category, a.CreatedDateTime}
}

// IncidentHeader is the CSV column order for incident exports.
var IncidentHeader = []string{"Id", "DisplayName", "Severity", "Status", "Classification", "CreatedDateTime"}

// CSVRow renders the incident in IncidentHeader order.
func (i SecurityIncident) CSVRow() []string {
	return []string{i.ID, i.DisplayName, i.Severity, i.Status, i.Classification, i.CreatedDateTime}
}

// SecureScoreHeader is the CSV column order for secure score exports.
var SecureScoreHeader = []string{"Id", "CreatedDateTime", "CurrentScore", "MaxScore", "ActiveUserCount", "LicensedUserCount"}

// CSVRow renders the score in SecureScoreHeader order.
func (s SecureScore) CSVRow() []string {
	return []string{
		s.ID,
		s.CreatedDateTime,
		fmt.Sprintf("%.2f", s.CurrentScore),
		fmt.Sprintf("%.2f", s.MaxScore),
		fmt.Sprintf("%d", s.ActiveUserCount),
		fmt.Sprintf("%d", s.LicensedUserCount),
	}
}
