package boxnow

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MockAPIClient is a mock implementation of APIClient for testing.
type MockAPIClient struct {
	SimulateErrors  bool
	SimulateLatency time.Duration

	OnAuthenticate          func(ctx context.Context, req *AuthRequest) (*AuthResponse, error)
	OnListOrigins           func(ctx context.Context, token string) (*OriginsResponse, error)
	OnCreateDeliveryRequest func(ctx context.Context, token string, req *DeliveryRequest) (*DeliveryResponse, error)
	OnCancelParcel          func(ctx context.Context, token string, parcelID string) error
	OnGetParcelLabel        func(ctx context.Context, token string, parcelID string) ([]byte, error)

	mu       sync.Mutex
	calls    map[string]int
	requests []*DeliveryRequest
}

// NewMockAPIClient creates a new mock API client with default behavior.
func NewMockAPIClient() *MockAPIClient {
	return &MockAPIClient{calls: make(map[string]int)}
}

// Calls returns how many times the named method was invoked.
func (m *MockAPIClient) Calls(method string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[method]
}

// DeliveryRequests returns every delivery request received, oldest first.
func (m *MockAPIClient) DeliveryRequests() []*DeliveryRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*DeliveryRequest, len(m.requests))
	copy(out, m.requests)
	return out
}

func (m *MockAPIClient) record(method string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.calls == nil {
		m.calls = make(map[string]int)
	}
	m.calls[method]++
}

func (m *MockAPIClient) simulate() error {
	if m.SimulateLatency > 0 {
		time.Sleep(m.SimulateLatency)
	}
	if m.SimulateErrors {
		return &APIError{StatusCode: 500, Code: "MOCK_ERROR", Message: "Simulated API error", Body: `{"code":"MOCK_ERROR"}`}
	}
	return nil
}

// Authenticate returns a mock token.
func (m *MockAPIClient) Authenticate(ctx context.Context, req *AuthRequest) (*AuthResponse, error) {
	m.record("Authenticate")
	if err := m.simulate(); err != nil {
		return nil, err
	}

	if m.OnAuthenticate != nil {
		return m.OnAuthenticate(ctx, req)
	}

	return &AuthResponse{
		AccessToken: "mock-token-" + uuid.New().String()[:8],
		TokenType:   "Bearer",
		ExpiresIn:   3600,
	}, nil
}

// ListOrigins returns two mock warehouses.
func (m *MockAPIClient) ListOrigins(ctx context.Context, token string) (*OriginsResponse, error) {
	m.record("ListOrigins")
	if err := m.simulate(); err != nil {
		return nil, err
	}

	if m.OnListOrigins != nil {
		return m.OnListOrigins(ctx, token)
	}

	return &OriginsResponse{
		Data: []OriginEntry{
			{ID: "2", Name: "Athens Central Warehouse"},
			{ID: "7", Name: "Thessaloniki Depot"},
		},
	}, nil
}

// CreateDeliveryRequest returns one mock parcel per requested item.
func (m *MockAPIClient) CreateDeliveryRequest(ctx context.Context, token string, req *DeliveryRequest) (*DeliveryResponse, error) {
	m.record("CreateDeliveryRequest")
	m.mu.Lock()
	m.requests = append(m.requests, req)
	m.mu.Unlock()

	if err := m.simulate(); err != nil {
		return nil, err
	}

	if m.OnCreateDeliveryRequest != nil {
		return m.OnCreateDeliveryRequest(ctx, token, req)
	}

	batch := uuid.New().String()[:8]
	resp := &DeliveryResponse{ID: ID("dr-" + batch)}
	for i := range req.Items {
		resp.Parcels = append(resp.Parcels, ParcelEntry{
			ID: ID(fmt.Sprintf("%s-%d", batch, i+1)),
		})
	}
	raw, _ := json.Marshal(resp)
	resp.Raw = string(raw)
	return resp, nil
}

// CancelParcel succeeds unless a hook says otherwise.
func (m *MockAPIClient) CancelParcel(ctx context.Context, token string, parcelID string) error {
	m.record("CancelParcel")
	if err := m.simulate(); err != nil {
		return err
	}

	if m.OnCancelParcel != nil {
		return m.OnCancelParcel(ctx, token, parcelID)
	}
	return nil
}

// GetParcelLabel returns a minimal PDF document.
func (m *MockAPIClient) GetParcelLabel(ctx context.Context, token string, parcelID string) ([]byte, error) {
	m.record("GetParcelLabel")
	if err := m.simulate(); err != nil {
		return nil, err
	}

	if m.OnGetParcelLabel != nil {
		return m.OnGetParcelLabel(ctx, token, parcelID)
	}
	return []byte("%PDF-1.4\n% voucher " + parcelID + "\n%%EOF\n"), nil
}

// Ensure MockAPIClient implements APIClient interface
var _ APIClient = (*MockAPIClient)(nil)
