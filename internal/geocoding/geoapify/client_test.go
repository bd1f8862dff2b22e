package geoapify

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tripweather/tripweather/internal/geocoding"
	tz "github.com/tripweather/tripweather/internal/timezone"
)

func fixtureServer(t *testing.T, path, fixture string) *httptest.Server {
	t.Helper()
	body, err := os.ReadFile(fixture)
	require.NoError(t, err)

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, path, r.URL.Path)
		assert.Equal(t, "test-key", r.URL.Query().Get("apiKey"))
		assert.Equal(t, "geojson", r.URL.Query().Get("format"))
		w.Header().Set("Content-Type", "application/json")
		w.Write(body)
	}))
}

func newTestClient(server *httptest.Server) *Client {
	return NewClient(ClientConfig{
		APIKey:     "test-key",
		BaseURL:    server.URL,
		HTTPClient: server.Client(),
		Logger:     zerolog.Nop(),
	})
}

func TestClient_Reverse(t *testing.T) {
	server := fixtureServer(t, "/geocode/reverse", "testdata/reverse_response.json")
	defer server.Close()

	place, err := newTestClient(server).Reverse(context.Background(), 39.7392, -104.9903)
	require.NoError(t, err)

	assert.Equal(t, "Denver, CO, United States of America", place.Name)
	assert.Equal(t, "Denver", place.City)
	assert.Equal(t, "us", place.CountryCode)
	require.NotNil(t, place.Timezone)
	assert.Equal(t, "America/Denver", place.Timezone.Name)
	assert.Equal(t, "MST", place.Timezone.AbbreviationStd)
	assert.Equal(t, "-06:00", place.Timezone.OffsetDst)
	assert.Equal(t, -25200, place.Timezone.OffsetStdSeconds)
}

func TestClient_Search(t *testing.T) {
	server := fixtureServer(t, "/geocode/search", "testdata/search_response.json")
	defer server.Close()

	places, err := newTestClient(server).Search(context.Background(), "Salt Lake City", 5)
	require.NoError(t, err)

	require.Len(t, places, 2)
	assert.Equal(t, "Salt Lake City, UT, United States of America", places[0].Name)
	assert.InDelta(t, 40.7608, places[0].Latitude, 1e-9)
	assert.Nil(t, places[1].Timezone)
}

func TestClient_LookupZone(t *testing.T) {
	server := fixtureServer(t, "/geocode/reverse", "testdata/reverse_response.json")
	defer server.Close()

	zone, err := newTestClient(server).LookupZone(context.Background(), 39.7392, -104.9903)
	require.NoError(t, err)
	assert.Equal(t, "America/Denver", zone)
}

func TestClient_EmptyFeatures(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"type":"FeatureCollection","features":[]}`))
	}))
	defer server.Close()

	client := newTestClient(server)

	_, err := client.Reverse(context.Background(), 0, -150)
	assert.ErrorIs(t, err, geocoding.ErrNotFound)

	_, err = client.LookupZone(context.Background(), 0, -150)
	assert.ErrorIs(t, err, geocoding.ErrNotFound)
}

func TestClient_LookupZone_MissingTimezone(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"features":[{"properties":{"formatted":"Somewhere"}}]}`))
	}))
	defer server.Close()

	_, err := newTestClient(server).LookupZone(context.Background(), 10, 10)
	if !errors.Is(err, tz.ErrNoZone) {
		t.Errorf("expected ErrNoZone, got %v", err)
	}
}

func TestClient_ErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"statusCode":401,"error":"Unauthorized","message":"Invalid apiKey"}`))
	}))
	defer server.Close()

	_, err := newTestClient(server).Reverse(context.Background(), 39.7392, -104.9903)
	assert.ErrorIs(t, err, geocoding.ErrProviderUnavailable)
}

func TestClient_NotConfigured(t *testing.T) {
	client := NewClient(ClientConfig{BaseURL: "http://127.0.0.1:0"})

	_, err := client.Search(context.Background(), "Denver", 1)
	assert.ErrorIs(t, err, geocoding.ErrNotConfigured)
}
