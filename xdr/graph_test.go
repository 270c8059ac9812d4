package xdr

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestGraphClient(t *testing.T, handler http.HandlerFunc) *GraphClient {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := NewGraphClient("graph-token")
	client.BaseURL = server.URL
	return client
}

func TestProbeEndpoints(t *testing.T) {
	client := newTestGraphClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer graph-token", r.Header.Get("Authorization"))
		switch {
		case strings.HasPrefix(r.URL.Path, "/v1.0/organization"):
			json.NewEncoder(w).Encode(map[string]interface{}{"id": "tenant", "displayName": "Contoso"})
		case strings.HasPrefix(r.URL.Path, "/v1.0/users"):
			json.NewEncoder(w).Encode(map[string]interface{}{
				"value": []map[string]interface{}{{"displayName": "a"}, {"displayName": "b"}},
			})
		case strings.HasPrefix(r.URL.Path, "/beta/security/alerts"):
			w.WriteHeader(http.StatusForbidden)
		default:
			w.WriteHeader(http.StatusUnauthorized)
		}
	})

	targets := []ProbeTarget{
		{"/v1.0/organization", "Organization Information"},
		{"/v1.0/users?$top=5", "User Directory (sample)"},
		{"/beta/security/alerts?$top=5", "Security Alerts"},
		{"/v1.0/identityProtection/riskyUsers?$top=5", "Risky Users"},
	}

	results := client.ProbeEndpoints(context.Background(), targets)
	require.Len(t, results, 4)

	assert.True(t, results[0].Accessible)
	assert.Equal(t, 1, results[0].ItemCount) // single object counts as one

	assert.True(t, results[1].Accessible)
	assert.Equal(t, 2, results[1].ItemCount)

	assert.False(t, results[2].Accessible)
	assert.Equal(t, http.StatusForbidden, results[2].StatusCode)

	assert.False(t, results[3].Accessible)
	assert.Equal(t, http.StatusUnauthorized, results[3].StatusCode)
}

func TestListSecurityAlertsPagination(t *testing.T) {
	var server *httptest.Server
	calls := 0
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			json.NewEncoder(w).Encode(map[string]interface{}{
				"value": []map[string]interface{}{
					{"id": "alert-1", "title": "Malware detected", "severity": "high", "status": "newAlert"},
				},
				"@odata.nextLink": server.URL + "/beta/security/alerts?page=2",
			})
			return
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"value": []map[string]interface{}{
				{"id": "alert-2", "title": "Phishing link clicked", "severity": "medium"},
			},
		})
	}))
	t.Cleanup(server.Close)

	client := NewGraphClient("graph-token")
	client.BaseURL = server.URL

	alerts, err := client.ListSecurityAlerts(context.Background())
	require.NoError(t, err)
	require.Len(t, alerts, 2)
	assert.Equal(t, 2, calls)
	assert.Equal(t, "Malware detected", alerts[0].Title)
	assert.Equal(t, "alert-2", alerts[1].ID)
}

func TestListSecurityAlertsError(t *testing.T) {
	client := newTestGraphClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})

	_, err := client.ListSecurityAlerts(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "403")
}

func TestCSVRows(t *testing.T) {
	alert := SecurityAlert{ID: "a", Title: "t", Severity: "high", Status: "new", Category: "malware", CreatedDateTime: "2026-08-01T00:00:00Z"}
	require.Len(t, alert.CSVRow(), len(AlertHeader))

	incident := SecurityIncident{ID: "i", DisplayName: "inc", Severity: "low"}
	require.Len(t, incident.CSVRow(), len(IncidentHeader))

	score := SecureScore{ID: "s", CurrentScore: 51.25, MaxScore: 100}
	row := score.CSVRow()
	require.Len(t, row, len(SecureScoreHeader))
	assert.Equal(t, "51.25", row[2])
}
