package mlservice_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"civicgo/backend/internal/mlservice"
	"civicgo/backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify_MapsModelOutput(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/predict", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)

		var req map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "/uploads/abc.jpg", req["image_url"])

		json.NewEncoder(w).Encode(map[string]interface{}{
			"class":      "potholes",
			"confidence": 0.87,
			"severity":   "high",
			"labels":     []string{"pothole", "asphalt"},
		})
	}))
	defer server.Close()

	client := mlservice.NewClient(server.URL)
	cls, err := client.Classify(context.Background(), "/uploads/abc.jpg")
	require.NoError(t, err)

	assert.Equal(t, models.CategoryPothole, cls.Category)
	assert.Equal(t, models.SeverityHigh, cls.Severity)
	assert.Equal(t, 0.87, cls.Confidence)
	assert.Equal(t, []string{"pothole", "asphalt"}, cls.Labels)
}

func TestClassify_UnknownClassFallsBackToOther(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"class":      "graffiti-wall",
			"confidence": 0.4,
			"severity":   "catastrophic",
		})
	}))
	defer server.Close()

	client := mlservice.NewClient(server.URL)
	cls, err := client.Classify(context.Background(), "/uploads/xyz.jpg")
	require.NoError(t, err)

	assert.Equal(t, models.CategoryOther, cls.Category)
	assert.Equal(t, models.SeverityMedium, cls.Severity)
}

func TestClassify_NonOKStatusIsAnError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model loading", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := mlservice.NewClient(server.URL)
	_, err := client.Classify(context.Background(), "/uploads/abc.jpg")
	assert.Error(t, err)
}
