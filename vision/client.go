package vision

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"smart-parking/models"
)

// Detector is the single capability the decision core needs from the
// detection service. The allocation/scoring packages never see a vendor API.
type Detector interface {
	Detect(ctx context.Context, image []byte, filename string) (*models.DetectionBatch, error)
}

var (
	// ErrMissingAPIKey is a precondition failure surfaced before any
	// network call is attempted.
	ErrMissingAPIKey = errors.New("detection service API key is not configured")

	// ErrNoDetections means the service answered but reported zero
	// predictions. Callers treat this as a detection failure, not an
	// empty-result success.
	ErrNoDetections = errors.New("detection service returned no predictions")
)

// StatusError reports a non-success HTTP status from the detection service.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("detection service returned status %d: %s", e.StatusCode, e.Body)
}

// Client communicates with one configured model of the external detection
// service. Two instances are used in practice: one for slot occupancy and one
// for vehicle classification.
type Client struct {
	serviceURL string
	modelID    string
	apiKey     string
	confidence int
	overlap    int
	client     *http.Client
}

const (
	// Fixed per-model thresholds.
	SlotConfidence    = 40
	SlotOverlap       = 30
	VehicleConfidence = 50
)

// NewClient creates a detection client for the given model. The overlap
// threshold is ignored by models that do not use it (pass 0).
func NewClient(serviceURL, modelID, apiKey string, confidence, overlap int) *Client {
	if serviceURL == "" {
		serviceURL = "https://detect.roboflow.com"
	}

	return &Client{
		serviceURL: serviceURL,
		modelID:    modelID,
		apiKey:     apiKey,
		confidence: confidence,
		overlap:    overlap,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// NewSlotClient returns a client configured for the parking-slot occupancy model.
func NewSlotClient(serviceURL, modelID, apiKey string) *Client {
	return NewClient(serviceURL, modelID, apiKey, SlotConfidence, SlotOverlap)
}

// NewVehicleClient returns a client configured for the vehicle classification model.
func NewVehicleClient(serviceURL, modelID, apiKey string) *Client {
	return NewClient(serviceURL, modelID, apiKey, VehicleConfidence, 0)
}

// HealthCheck verifies the detection service is reachable.
func (c *Client) HealthCheck() error {
	resp, err := c.client.Get(c.serviceURL)
	if err != nil {
		return fmt.Errorf("detection service not reachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		return fmt.Errorf("detection service unhealthy: status %d", resp.StatusCode)
	}

	return nil
}

// Detect uploads an image and returns the parsed detection batch. A response
// with an empty prediction list is rejected with ErrNoDetections.
func (c *Client) Detect(ctx context.Context, image []byte, filename string) (*models.DetectionBatch, error) {
	if c.apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	if len(image) == 0 {
		return nil, fmt.Errorf("no image data provided")
	}

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := part.Write(image); err != nil {
		return nil, fmt.Errorf("failed to write file data: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.detectURL(), body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("detection request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: string(bodyBytes)}
	}

	var batch models.DetectionBatch
	if err := json.NewDecoder(resp.Body).Decode(&batch); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	if len(batch.Predictions) == 0 {
		return nil, ErrNoDetections
	}

	return &batch, nil
}

func (c *Client) detectURL() string {
	params := url.Values{}
	params.Set("api_key", c.apiKey)
	params.Set("confidence", strconv.Itoa(c.confidence))
	if c.overlap > 0 {
		params.Set("overlap", strconv.Itoa(c.overlap))
	}
	return c.serviceURL + "/" + c.modelID + "?" + params.Encode()
}
