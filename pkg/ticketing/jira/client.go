package jira

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"support-copilot-be/pkg/ticketing"
)

// Client talks to the Jira REST API (v2) for issue creation.
type Client struct {
	BaseURL    string
	Username   string
	APIToken   string
	ProjectKey string
	HTTPClient *http.Client
}

var _ ticketing.Client = &Client{}

func NewClient(baseURL, username, apiToken, projectKey string, timeout time.Duration) *Client {
	if projectKey == "" {
		projectKey = "CS" // Customer Support
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		BaseURL:    baseURL,
		Username:   username,
		APIToken:   apiToken,
		ProjectKey: projectKey,
		HTTPClient: &http.Client{Timeout: timeout},
	}
}

// Configured reports whether credentials are present. Without them every
// create degrades to local-only.
func (c *Client) Configured() bool {
	return c.BaseURL != "" && c.Username != "" && c.APIToken != ""
}

type jiraIssueFields struct {
	Project     jiraProject   `json:"project"`
	Summary     string        `json:"summary"`
	Description string        `json:"description"`
	IssueType   jiraIssueType `json:"issuetype"`
	Priority    *jiraPriority `json:"priority,omitempty"`
	Labels      []string      `json:"labels,omitempty"`
}

type jiraProject struct {
	Key string `json:"key"`
}

type jiraIssueType struct {
	Name string `json:"name"`
}

type jiraPriority struct {
	Name string `json:"name"`
}

type jiraCreateRequest struct {
	Fields jiraIssueFields `json:"fields"`
}

type jiraCreateResponse struct {
	ID  string `json:"id"`
	Key string `json:"key"`
}

func (c *Client) CreateIssue(ctx context.Context, req ticketing.IssueRequest) (string, error) {
	if !c.Configured() {
		return "", fmt.Errorf("jira credentials not configured: %w", ticketing.ErrExternalUnavailable)
	}

	payload := jiraCreateRequest{
		Fields: jiraIssueFields{
			Project:     jiraProject{Key: c.ProjectKey},
			Summary:     req.Summary,
			Description: req.Description,
			IssueType:   jiraIssueType{Name: mapIssueType(req.IssueType)},
			Priority:    &jiraPriority{Name: mapUrgencyToPriority(req.Urgency)},
			Labels:      buildLabels(req),
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal issue: %w", err)
	}

	url := c.BaseURL + "/rest/api/2/issue"
	httpReq, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	httpReq.SetBasicAuth(c.Username, c.APIToken)
	httpReq.Header.Set("Content-Type", "application/json")
	// Client-supplied idempotency key so a retried create maps to the same issue.
	httpReq.Header.Set("X-Idempotency-Key", req.IdempotencyKey)

	resp, err := c.HTTPClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("jira request failed: %w", ticketing.ErrExternalUnavailable)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", ticketing.ErrExternalUnavailable)
	}

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("jira error: status %d, body: %s: %w",
			resp.StatusCode, string(respBody), ticketing.ErrExternalUnavailable)
	}

	var created jiraCreateResponse
	if err := json.Unmarshal(respBody, &created); err != nil {
		return "", fmt.Errorf("unmarshal response: %w", err)
	}

	return created.Key, nil
}

// mapIssueType maps internal ticket types to Jira issue types.
// Complaints map to Bug, everything else to Task.
func mapIssueType(t string) string {
	switch t {
	case "complaint":
		return "Bug"
	case "feature_request":
		return "New Feature"
	default:
		return "Task"
	}
}

func mapUrgencyToPriority(urgency string) string {
	switch urgency {
	case "high":
		return "High"
	case "low":
		return "Low"
	default:
		return "Medium"
	}
}

func buildLabels(req ticketing.IssueRequest) []string {
	labels := []string{req.IssueType, "tenant-" + req.TenantID}
	if req.Sentiment != "" {
		labels = append(labels, "sentiment-"+req.Sentiment)
	}
	if req.IdempotencyKey != "" {
		labels = append(labels, "copilot-"+req.IdempotencyKey)
	}
	return labels
}
