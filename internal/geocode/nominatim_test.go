package geocode_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"civicgo/backend/internal/geocode"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReverseGeocode_CityLevel(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/reverse", r.URL.Path)
		assert.Equal(t, "jsonv2", r.URL.Query().Get("format"))
		assert.NotEmpty(t, r.URL.Query().Get("lat"))
		assert.NotEmpty(t, r.URL.Query().Get("lon"))

		json.NewEncoder(w).Encode(map[string]interface{}{
			"display_name": "12, Khreshchatyk Street, Kyiv, Ukraine",
			"address": map[string]string{
				"city":    "Kyiv",
				"state":   "Kyiv Oblast",
				"country": "Ukraine",
			},
		})
	}))
	defer server.Close()

	client := geocode.NewClient(server.URL)
	loc, err := client.ReverseGeocode(context.Background(), 50.4501, 30.5234)
	require.NoError(t, err)

	assert.Equal(t, "12, Khreshchatyk Street, Kyiv, Ukraine", loc.Address)
	assert.Equal(t, "Kyiv", loc.City)
	assert.Equal(t, "Kyiv Oblast", loc.Region)
}

func TestReverseGeocode_VillageFallback(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"display_name": "Lisove, Ukraine",
			"address": map[string]string{
				"village": "Lisove",
				"country": "Ukraine",
			},
		})
	}))
	defer server.Close()

	client := geocode.NewClient(server.URL)
	loc, err := client.ReverseGeocode(context.Background(), 49.0, 31.0)
	require.NoError(t, err)

	assert.Equal(t, "Lisove", loc.City)
	assert.Equal(t, "Ukraine", loc.Region)
}

func TestReverseGeocode_NonOKStatusIsAnError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := geocode.NewClient(server.URL)
	_, err := client.ReverseGeocode(context.Background(), 50.0, 30.0)
	assert.Error(t, err)
}
