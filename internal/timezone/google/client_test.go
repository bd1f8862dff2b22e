package google

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tripweather/tripweather/internal/timezone"
)

const testKey = "AIzaTestKeyForUnitTests"

func newTestClient(t *testing.T, server *httptest.Server) *Client {
	t.Helper()
	client, err := NewClient(ClientConfig{
		APIKey:     testKey,
		BaseURL:    server.URL,
		HTTPClient: server.Client(),
		Logger:     zerolog.Nop(),
		Now:        func() time.Time { return time.Date(2024, 6, 1, 14, 0, 0, 0, time.UTC) },
	})
	require.NoError(t, err)
	return client
}

func TestClient_LookupZone(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/maps/api/timezone/json", r.URL.Path)
		assert.Equal(t, "39.7392,-104.9903", r.URL.Query().Get("location"))
		assert.Equal(t, "1717250400", r.URL.Query().Get("timestamp"))
		assert.Equal(t, testKey, r.URL.Query().Get("key"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"dstOffset": 3600,
			"rawOffset": -25200,
			"status": "OK",
			"timeZoneId": "America/Denver",
			"timeZoneName": "Mountain Daylight Time"
		}`))
	}))
	defer server.Close()

	zone, err := newTestClient(t, server).LookupZone(context.Background(), 39.7392, -104.9903)
	require.NoError(t, err)
	assert.Equal(t, "America/Denver", zone)
}

func TestClient_LookupZone_ZeroResults(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status": "ZERO_RESULTS"}`))
	}))
	defer server.Close()

	_, err := newTestClient(t, server).LookupZone(context.Background(), 0, -160)
	if !errors.Is(err, timezone.ErrNoZone) {
		t.Errorf("expected ErrNoZone, got %v", err)
	}
}

func TestClient_LookupZone_Denied(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status": "REQUEST_DENIED", "errorMessage": "The provided API key is invalid."}`))
	}))
	defer server.Close()

	_, err := newTestClient(t, server).LookupZone(context.Background(), 39.7392, -104.9903)
	require.Error(t, err)
	assert.NotErrorIs(t, err, timezone.ErrNoZone)
}

func TestNewClient_RequiresKey(t *testing.T) {
	_, err := NewClient(ClientConfig{})
	assert.ErrorIs(t, err, ErrNotConfigured)
}
