package sentinel

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const workspaceAPIVersion = "2022-10-01"

// LogAnalyticsClient runs KQL queries against a Log Analytics workspace.
// The management token resolves the workspace customer id; the query token
// carries the Log Analytics scope.
type LogAnalyticsClient struct {
	ManagementURL string
	QueryURL      string
	Token         string
	HTTPClient    *http.Client

	cfg *Config
}

// NewLogAnalyticsClient builds a query client for the configured workspace.
func NewLogAnalyticsClient(token string, cfg *Config) *LogAnalyticsClient {
	return &LogAnalyticsClient{
		ManagementURL: "https://management.azure.com",
		QueryURL:      "https://api.loganalytics.io",
		Token:         token,
		HTTPClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		cfg: cfg,
	}
}

// Column describes one column of a query result table.
type Column struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// Table is one result table of a KQL query.
type Table struct {
	Name    string          `json:"name"`
	Columns []Column        `json:"columns"`
	Rows    [][]interface{} `json:"rows"`
}

// QueryResults is the Log Analytics query API response.
type QueryResults struct {
	Tables []Table `json:"tables"`
}

// RowMaps zips the first table's columns onto each row. An empty result
// yields an empty slice, never an error.
func (r *QueryResults) RowMaps() []map[string]interface{} {
	rows := []map[string]interface{}{}
	if r == nil || len(r.Tables) == 0 {
		return rows
	}

	table := r.Tables[0]
	for _, row := range table.Rows {
		m := make(map[string]interface{}, len(table.Columns))
		for i, col := range table.Columns {
			if i < len(row) {
				m[col.Name] = row[i]
			}
		}
		rows = append(rows, m)
	}
	return rows
}

// WorkspaceID resolves the Log Analytics customer id for the configured
// workspace. The management token must still be valid.
func (c *LogAnalyticsClient) WorkspaceID(ctx context.Context, managementToken string) (string, error) {
	url := fmt.Sprintf(
		"%s/subscriptions/%s/resourceGroups/%s/providers/Microsoft.OperationalInsights/workspaces/%s?api-version=%s",
		c.ManagementURL, c.cfg.SubscriptionID, c.cfg.ResourceGroup, c.cfg.WorkspaceName, workspaceAPIVersion,
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+managementToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("request failed with status code %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response body: %w", err)
	}

	var workspace struct {
		Properties struct {
			CustomerID string `json:"customerId"`
		} `json:"properties"`
	}
	if err := json.Unmarshal(body, &workspace); err != nil {
		return "", fmt.Errorf("failed to unmarshal workspace: %w", err)
	}
	if workspace.Properties.CustomerID == "" {
		return "", fmt.Errorf("workspace %s has no customer id", c.cfg.WorkspaceName)
	}
	return workspace.Properties.CustomerID, nil
}

// Query executes a KQL query over the given workspace customer id with a
// 30-day timespan, matching the audit window used throughout the toolkit.
func (c *LogAnalyticsClient) Query(ctx context.Context, workspaceID, query string) (*QueryResults, error) {
	payload, err := json.Marshal(map[string]string{
		"query":    query,
		"timespan": "P30D",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal query: %w", err)
	}

	url := fmt.Sprintf("%s/v1/workspaces/%s/query", c.QueryURL, workspaceID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.Token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("query failed with status code %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	var results QueryResults
	if err := json.Unmarshal(body, &results); err != nil {
		return nil, fmt.Errorf("failed to unmarshal query results: %w", err)
	}
	return &results, nil
}
