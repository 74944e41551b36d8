// Package mock provides a mock courier implementation for testing.
package mock

import (
	"context"
	"fmt"
	"sync"

	"github.com/tournevent/lockerlink/pkg/locker"
)

// Client is a mock courier for testing. Parcel IDs are sequential so tests
// can predict them.
type Client struct {
	name string

	// Optional failure injection, checked before any state changes.
	CreateErr error
	CancelErr error
	LabelErr  error
	OriginErr error

	Origins []locker.Origin

	mu        sync.Mutex
	seq       int
	requests  []*locker.VoucherRequest
	cancelled []string
	labels    []string
}

// New creates a new mock courier.
func New(name string) *Client {
	return &Client{
		name: name,
		Origins: []locker.Origin{
			{ID: "2", Name: "Athens Central Warehouse"},
			{ID: "7", Name: "Thessaloniki Depot"},
		},
	}
}

// Name returns the courier name.
func (c *Client) Name() string {
	return c.name
}

// CreateVouchers returns req.Count new parcel IDs.
func (c *Client) CreateVouchers(ctx context.Context, req *locker.VoucherRequest) (*locker.VoucherResponse, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.requests = append(c.requests, req)
	if c.CreateErr != nil {
		return nil, c.CreateErr
	}

	c.seq++
	resp := &locker.VoucherResponse{RequestID: fmt.Sprintf("%s-request-%d", c.name, c.seq)}
	for i := 0; i < req.Count; i++ {
		resp.ParcelIDs = append(resp.ParcelIDs, fmt.Sprintf("%s-%d-%d", c.name, c.seq, i+1))
	}
	resp.RawBody = fmt.Sprintf(`{"id":%q}`, resp.RequestID)
	return resp, nil
}

// CancelParcel records the cancellation.
func (c *Client) CancelParcel(ctx context.Context, parcelID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.CancelErr != nil {
		return c.CancelErr
	}
	c.cancelled = append(c.cancelled, parcelID)
	return nil
}

// GetLabel returns a mock PDF label.
func (c *Client) GetLabel(ctx context.Context, parcelID string) (*locker.Label, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.LabelErr != nil {
		return nil, c.LabelErr
	}
	c.labels = append(c.labels, parcelID)
	return &locker.Label{
		ParcelID:    parcelID,
		ContentType: "application/pdf",
		Data:        []byte("%PDF-1.4 " + parcelID),
	}, nil
}

// ListOrigins returns the configured origins.
func (c *Client) ListOrigins(ctx context.Context) ([]locker.Origin, error) {
	if c.OriginErr != nil {
		return nil, c.OriginErr
	}
	return c.Origins, nil
}

// Requests returns every voucher request received.
func (c *Client) Requests() []*locker.VoucherRequest {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*locker.VoucherRequest, len(c.requests))
	copy(out, c.requests)
	return out
}

// Cancelled returns the IDs of cancelled parcels.
func (c *Client) Cancelled() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.cancelled))
	copy(out, c.cancelled)
	return out
}

// LabelCalls returns how many labels were fetched.
func (c *Client) LabelCalls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.labels)
}

// Ensure Client implements locker.Courier interface
var _ locker.Courier = (*Client)(nil)
