// Package client is the HTTP client the CLI uses to talk to a running server.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gatanasi/gif-converter/internal/models"
)

// DefaultTimeout bounds a single request.
const DefaultTimeout = 2 * time.Minute

// APIError is returned for non-2xx responses.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server returned %d %s", e.StatusCode, http.StatusText(e.StatusCode))
	}
	return fmt.Sprintf("server returned %d: %s", e.StatusCode, e.Message)
}

// Client calls the converter API.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
}

// New creates a Client for baseURL. A nil httpClient gets DefaultTimeout.
func New(baseURL string, httpClient *http.Client) (*Client, error) {
	if !strings.Contains(baseURL, "://") {
		baseURL = "http://" + baseURL
	}
	parsed, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid server URL %q: %w", baseURL, err)
	}
	if parsed.Host == "" {
		return nil, fmt.Errorf("invalid server URL %q: missing host", baseURL)
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultTimeout}
	}
	return &Client{baseURL: parsed, httpClient: httpClient}, nil
}

// Catalog fetches the ready entries.
func (c *Client) Catalog(ctx context.Context) (models.CatalogResponse, error) {
	var out models.CatalogResponse
	err := c.do(ctx, http.MethodGet, "/gifs", &out)
	return out, err
}

// Pending fetches the entries still waiting for an MP4.
func (c *Client) Pending(ctx context.Context) (models.CatalogResponse, error) {
	var out models.CatalogResponse
	err := c.do(ctx, http.MethodGet, "/gifs/pending", &out)
	return out, err
}

// Convert triggers the conversion of one GIF.
func (c *Client) Convert(ctx context.Context, gifID string) (models.ConversionResponse, error) {
	var out models.ConversionResponse
	err := c.do(ctx, http.MethodPost, "/convert/"+url.PathEscape(gifID), &out)
	return out, err
}

// ConvertAll triggers a sweep.
func (c *Client) ConvertAll(ctx context.Context) (models.BulkConversionResponse, error) {
	var out models.BulkConversionResponse
	err := c.do(ctx, http.MethodPost, "/convert-all", &out)
	return out, err
}

// Status fetches the readiness summary.
func (c *Client) Status(ctx context.Context) (models.StatusResponse, error) {
	var out models.StatusResponse
	err := c.do(ctx, http.MethodGet, "/status", &out)
	return out, err
}

// Health fetches the liveness report.
func (c *Client) Health(ctx context.Context) (models.HealthResponse, error) {
	var out models.HealthResponse
	err := c.do(ctx, http.MethodGet, "/health", &out)
	return out, err
}

// Active lists the queued and running conversions.
func (c *Client) Active(ctx context.Context) ([]models.ActiveConversionInfo, error) {
	var out []models.ActiveConversionInfo
	err := c.do(ctx, http.MethodGet, "/conversions/active", &out)
	return out, err
}

func (c *Client) do(ctx context.Context, method, path string, out any) error {
	endpoint := c.baseURL.String() + path
	req, err := http.NewRequestWithContext(ctx, method, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{StatusCode: resp.StatusCode, Message: errorMessage(body)}
		// Keep whatever the server sent so callers can still inspect it.
		_ = json.Unmarshal(body, out)
		return apiErr
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", path, err)
	}
	return nil
}

func errorMessage(body []byte) string {
	var payload struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Error != "" {
		return payload.Error
	}
	return strings.TrimSpace(string(body))
}

// IsStatus reports whether err is an APIError with the given status code.
func IsStatus(err error, code int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == code
}
