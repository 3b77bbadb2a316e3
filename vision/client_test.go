package vision

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(serverURL string) *Client {
	return NewSlotClient(serverURL, "parking-slots/3", "test-key")
}

func TestDetectParsesPredictions(t *testing.T) {
	t.Parallel()

	var gotQuery string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"predictions": [
				{"x": 120.5, "y": 80, "width": 40, "height": 60, "confidence": 91.2, "class": "occupied"},
				{"x": 200, "y": 82, "width": 42, "height": 58, "confidence": 88.0, "class": "empty"}
			],
			"image": {"width": 1280, "height": 720}
		}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	batch, err := client.Detect(context.Background(), []byte("fake-image"), "lot.jpg")
	require.NoError(t, err)

	require.Len(t, batch.Predictions, 2)
	assert.Equal(t, "occupied", batch.Predictions[0].Class)
	assert.InDelta(t, 120.5, batch.Predictions[0].X, 1e-9)
	require.NotNil(t, batch.Image)
	assert.Equal(t, 1280, batch.Image.Width)

	assert.Contains(t, gotQuery, "api_key=test-key")
	assert.Contains(t, gotQuery, "confidence=40")
	assert.Contains(t, gotQuery, "overlap=30")
}

func TestDetectRejectsEmptyPredictionList(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"predictions": []}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	_, err := client.Detect(context.Background(), []byte("fake-image"), "lot.jpg")
	assert.ErrorIs(t, err, ErrNoDetections)
}

func TestDetectSurfacesHTTPStatus(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusForbidden)
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	_, err := client.Detect(context.Background(), []byte("fake-image"), "lot.jpg")

	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusForbidden, statusErr.StatusCode)
}

func TestDetectRequiresAPIKey(t *testing.T) {
	t.Parallel()

	called := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer server.Close()

	client := NewSlotClient(server.URL, "parking-slots/3", "")
	_, err := client.Detect(context.Background(), []byte("fake-image"), "lot.jpg")

	assert.ErrorIs(t, err, ErrMissingAPIKey)
	assert.False(t, called, "no network call should be attempted without an API key")
}

func TestVehicleClientOmitsOverlap(t *testing.T) {
	t.Parallel()

	client := NewVehicleClient("http://example.test", "vehicles/1", "key")
	url := client.detectURL()
	assert.Contains(t, url, "confidence=50")
	assert.NotContains(t, url, "overlap")
}
