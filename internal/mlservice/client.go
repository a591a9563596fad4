// Package mlservice talks to the external image-classification service.
package mlservice

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"civicgo/backend/internal/intake"
	"civicgo/backend/internal/models"
)

// classMapping normalizes the labels the model emits into issue categories.
var classMapping = map[string]models.IssueCategory{
	"pothole":      models.CategoryPothole,
	"potholes":     models.CategoryPothole,
	"garbage":      models.CategoryGarbage,
	"streetlight":  models.CategoryStreetlight,
	"streetlights": models.CategoryStreetlight,
	"water-leak":   models.CategoryWaterLeak,
	"traffic":      models.CategoryTraffic,
	"vandalism":    models.CategoryVandalism,
}

// Client is an HTTP client for the classifier.
type Client struct {
	client  *http.Client
	baseURL string
}

// NewClient creates a classifier client against baseURL.
func NewClient(baseURL string) *Client {
	return &Client{
		client:  &http.Client{Timeout: 10 * time.Second},
		baseURL: baseURL,
	}
}

type predictRequest struct {
	ImageURL string `json:"image_url"`
}

type predictResponse struct {
	Class      string   `json:"class"`
	Confidence float64  `json:"confidence"`
	Severity   string   `json:"severity"`
	Labels     []string `json:"labels"`
}

// Classify sends the image to the model service and maps its prediction
// onto the domain enums. Unknown classes fall through to "other".
func (c *Client) Classify(ctx context.Context, imageURL string) (*intake.Classification, error) {
	body, err := json.Marshal(predictRequest{ImageURL: imageURL})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/predict", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("mlservice: classify returned status %d", resp.StatusCode)
	}

	var pred predictResponse
	if err := json.NewDecoder(resp.Body).Decode(&pred); err != nil {
		return nil, err
	}

	category, ok := classMapping[pred.Class]
	if !ok {
		category = models.CategoryOther
	}
	severity := models.Severity(pred.Severity)
	if !severity.Valid() {
		severity = models.SeverityMedium
	}

	return &intake.Classification{
		Category:   category,
		Severity:   severity,
		Labels:     pred.Labels,
		Confidence: pred.Confidence,
	}, nil
}
