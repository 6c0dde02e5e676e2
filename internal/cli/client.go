package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"crm-portal/internal/database"
	"crm-portal/internal/handlers"
	"crm-portal/internal/tracking"
)

// Client represents an HTTP client for the portal API
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new API client
func NewClient(baseURL string) *Client {
	return NewClientWithTimeout(baseURL, 60*time.Second)
}

// NewClientWithTimeout creates a new API client with a custom timeout
func NewClientWithTimeout(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// APIError represents an error from the API
type APIError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Kind    string `json:"kind,omitempty"`
}

func (e *APIError) Error() string {
	if e.Kind != "" {
		return fmt.Sprintf("API error %d (%s): %s", e.Code, e.Kind, e.Message)
	}
	return fmt.Sprintf("API error %d: %s", e.Code, e.Message)
}

// CreateShipmentRequest represents a request to create a shipment
type CreateShipmentRequest struct {
	OriginLabel      string `json:"origin_label"`
	DestinationLabel string `json:"destination_label"`
	InternalNumber   string `json:"internal_number"`
	DisplayNumber    string `json:"display_number,omitempty"`
	CdekNumber       string `json:"cdek_number,omitempty"`
}

// doRequest performs an HTTP request and handles errors
func (c *Client) doRequest(method, path string, body interface{}) (*http.Response, error) {
	fullURL := c.baseURL + path

	var reqBody io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		reqBody = bytes.NewBuffer(jsonData)
	}

	req, err := http.NewRequest(method, fullURL, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}

	if resp.StatusCode >= 400 {
		defer resp.Body.Close()

		raw, _ := io.ReadAll(resp.Body)

		// Tracking failures come back as {"error": CODE, "message": ...}.
		var trackErr handlers.ErrorResponse
		if json.Unmarshal(raw, &trackErr) == nil && trackErr.Error != "" {
			return nil, &APIError{
				Code:    resp.StatusCode,
				Kind:    trackErr.Error,
				Message: trackErr.Message,
			}
		}

		message := strings.TrimSpace(string(raw))
		if message == "" {
			message = resp.Status
		}
		return nil, &APIError{Code: resp.StatusCode, Message: message}
	}

	return resp, nil
}

// HealthCheck checks if the API server is healthy
func (c *Client) HealthCheck() error {
	resp, err := c.doRequest("GET", "/api/health", nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return nil
}

// CreateShipment creates a new shipment
func (c *Client) CreateShipment(req *CreateShipmentRequest) (*database.Shipment, error) {
	resp, err := c.doRequest("POST", "/api/shipments", req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var shipment database.Shipment
	if err := json.NewDecoder(resp.Body).Decode(&shipment); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return &shipment, nil
}

// GetShipments returns all shipments
func (c *Client) GetShipments() ([]database.Shipment, error) {
	resp, err := c.doRequest("GET", "/api/shipments", nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var shipments []database.Shipment
	if err := json.NewDecoder(resp.Body).Decode(&shipments); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return shipments, nil
}

// GetShipment returns a specific shipment by ID
func (c *Client) GetShipment(id int) (*database.Shipment, error) {
	path := "/api/shipments/" + strconv.Itoa(id)
	resp, err := c.doRequest("GET", path, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var shipment database.Shipment
	if err := json.NewDecoder(resp.Body).Decode(&shipment); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return &shipment, nil
}

// DeleteShipment deletes a shipment
func (c *Client) DeleteShipment(id int) error {
	path := "/api/shipments/" + strconv.Itoa(id)
	resp, err := c.doRequest("DELETE", path, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return nil
}

// SetShipmentState overrides the lifecycle state of a shipment
func (c *Client) SetShipmentState(id int, state string) (*database.Shipment, error) {
	path := "/api/shipments/" + strconv.Itoa(id) + "/state"
	body := map[string]string{"state": state}
	resp, err := c.doRequest("PUT", path, body)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var shipment database.Shipment
	if err := json.NewDecoder(resp.Body).Decode(&shipment); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return &shipment, nil
}

// RefreshShipment asks the server to resolve the shipment's current status
func (c *Client) RefreshShipment(id int) (*handlers.RefreshResponse, error) {
	path := "/api/shipments/" + strconv.Itoa(id) + "/refresh"
	resp, err := c.doRequest("POST", path, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var response handlers.RefreshResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return &response, nil
}

// Track resolves a tracking number without touching stored shipments
func (c *Client) Track(number string) (*tracking.StatusRecord, error) {
	path := "/api/track?number=" + url.QueryEscape(number)
	resp, err := c.doRequest("GET", path, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var record tracking.StatusRecord
	if err := json.NewDecoder(resp.Body).Decode(&record); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return &record, nil
}
