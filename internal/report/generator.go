// Package report drafts complaint reports through the external
// report-generation service.
package report

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"civicgo/backend/internal/models"
)

// Generator is an HTTP client for the report service.
type Generator struct {
	client  *http.Client
	baseURL string
}

// NewGenerator creates a report client against baseURL.
func NewGenerator(baseURL string) *Generator {
	return &Generator{
		client:  &http.Client{Timeout: 10 * time.Second},
		baseURL: baseURL,
	}
}

type generateRequest struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	IssueType   string  `json:"issue_type"`
	Severity    string  `json:"severity"`
	Address     string  `json:"address"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	ImageURL    string  `json:"image_url,omitempty"`
}

type generateResponse struct {
	ReportURL string `json:"report_url"`
}

// Generate asks the report service for a drafted report and returns its
// reference.
func (g *Generator) Generate(ctx context.Context, c *models.Complaint) (string, error) {
	body, err := json.Marshal(generateRequest{
		Title:       c.Title,
		Description: c.Description,
		IssueType:   string(c.IssueType),
		Severity:    string(c.Severity),
		Address:     c.Address,
		Latitude:    c.Latitude,
		Longitude:   c.Longitude,
		ImageURL:    c.ImageURL,
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/reports", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("report: generation returned status %d", resp.StatusCode)
	}

	var out generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", err
	}
	return out.ReportURL, nil
}
