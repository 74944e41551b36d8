package boxnow

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	authPath             = "/api/v1/auth-sessions"
	originsPath          = "/api/v1/origins"
	deliveryRequestsPath = "/api/v1/delivery-requests"

	// DefaultCancelPath and DefaultLabelPath are templates; {id} is replaced by the parcel ID.
	DefaultCancelPath = "/api/v1/parcels/{id}:cancel"
	DefaultLabelPath  = "/api/v1/parcels/{id}/label.pdf"
)

// HTTPAPIClient is the production implementation of APIClient using HTTP/JSON.
type HTTPAPIClient struct {
	baseURL    string
	cancelPath string
	labelPath  string
	httpClient *http.Client
}

// HTTPAPIClientConfig holds configuration for the HTTP client.
type HTTPAPIClientConfig struct {
	BaseURL    string // host or full URL; https is assumed when no scheme is given
	CancelPath string
	LabelPath  string
	Timeout    time.Duration
}

// NewHTTPAPIClient creates a new HTTP-based API client for production use.
func NewHTTPAPIClient(cfg HTTPAPIClientConfig) *HTTPAPIClient {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	cancelPath := cfg.CancelPath
	if cancelPath == "" {
		cancelPath = DefaultCancelPath
	}

	labelPath := cfg.LabelPath
	if labelPath == "" {
		labelPath = DefaultLabelPath
	}

	return &HTTPAPIClient{
		baseURL:    normalizeBaseURL(cfg.BaseURL),
		cancelPath: cancelPath,
		labelPath:  labelPath,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Authenticate obtains an access token.
// POST /api/v1/auth-sessions
func (c *HTTPAPIClient) Authenticate(ctx context.Context, req *AuthRequest) (*AuthResponse, error) {
	resp, err := c.doRequest(ctx, http.MethodPost, authPath, "", req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read auth response: %w", err)
	}

	if !isSuccess(resp.StatusCode) {
		return nil, parseError(resp.StatusCode, body)
	}

	// A body without access_token is reported by the caller, which has the
	// raw payload for diagnostics.
	result := AuthResponse{Raw: string(body)}
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, &DecodeError{Op: "auth", Body: string(body), Err: err}
	}
	return &result, nil
}

// ListOrigins returns the merchant warehouses.
// GET /api/v1/origins
func (c *HTTPAPIClient) ListOrigins(ctx context.Context, token string) (*OriginsResponse, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, originsPath, token, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read origins response: %w", err)
	}

	if !isSuccess(resp.StatusCode) {
		return nil, parseError(resp.StatusCode, body)
	}

	var result OriginsResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, &DecodeError{Op: "origins", Body: string(body), Err: err}
	}
	return &result, nil
}

// CreateDeliveryRequest registers parcels with the courier.
// POST /api/v1/delivery-requests
func (c *HTTPAPIClient) CreateDeliveryRequest(ctx context.Context, token string, req *DeliveryRequest) (*DeliveryResponse, error) {
	resp, err := c.doRequest(ctx, http.MethodPost, deliveryRequestsPath, token, req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read delivery response: %w", err)
	}

	if !isSuccess(resp.StatusCode) {
		return nil, parseError(resp.StatusCode, body)
	}

	result := DeliveryResponse{Raw: string(body)}
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, &DecodeError{Op: "delivery request", Body: string(body), Err: err}
	}
	return &result, nil
}

// CancelParcel cancels a parcel.
// POST /api/v1/parcels/{id}:cancel
func (c *HTTPAPIClient) CancelParcel(ctx context.Context, token string, parcelID string) error {
	resp, err := c.doRequest(ctx, http.MethodPost, parcelPath(c.cancelPath, parcelID), token, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if !isSuccess(resp.StatusCode) {
		body, _ := io.ReadAll(resp.Body)
		return parseError(resp.StatusCode, body)
	}
	return nil
}

// GetParcelLabel downloads the voucher PDF.
// GET /api/v1/parcels/{id}/label.pdf
func (c *HTTPAPIClient) GetParcelLabel(ctx context.Context, token string, parcelID string) ([]byte, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, parcelPath(c.labelPath, parcelID), token, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read label: %w", err)
	}

	if !isSuccess(resp.StatusCode) {
		return nil, parseError(resp.StatusCode, body)
	}
	return body, nil
}

// doRequest performs an HTTP request with proper headers and authentication.
func (c *HTTPAPIClient) doRequest(ctx context.Context, method, path, token string, body interface{}) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "lockerlink/1.0")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	return c.httpClient.Do(req)
}

// parseError extracts error information from a non-2xx response.
func parseError(status int, body []byte) error {
	apiErr := &APIError{
		StatusCode: status,
		Code:       fmt.Sprintf("HTTP_%d", status),
		Body:       string(body),
	}

	var payload struct {
		Code    string `json:"code"`
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		if payload.Code != "" {
			apiErr.Code = payload.Code
		}
		apiErr.Message = payload.Message
		if apiErr.Message == "" {
			apiErr.Message = payload.Error
		}
	}
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(status)
	}
	return apiErr
}

func isSuccess(status int) bool {
	return status >= 200 && status < 300
}

func parcelPath(template, parcelID string) string {
	return strings.ReplaceAll(template, "{id}", url.PathEscape(parcelID))
}

func normalizeBaseURL(base string) string {
	base = strings.TrimRight(strings.TrimSpace(base), "/")
	if base != "" && !strings.Contains(base, "://") {
		base = "https://" + base
	}
	return base
}

// Ensure HTTPAPIClient implements APIClient interface
var _ APIClient = (*HTTPAPIClient)(nil)
