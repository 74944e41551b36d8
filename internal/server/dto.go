package server

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/tournevent/lockerlink/internal/orders"
)

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// orderPayload is an order snapshot pushed by the host platform.
type orderPayload struct {
	Status         string            `json:"status"`
	PaymentMethod  string            `json:"payment_method"`
	ShippingMethod string            `json:"shipping_method"`
	Subtotal       decimal.Decimal   `json:"subtotal"`
	Total          decimal.Decimal   `json:"total"`
	Billing        orders.Address    `json:"billing"`
	Shipping       orders.Address    `json:"shipping"`
	Items          []orders.Item     `json:"items"`
	Meta           map[string]string `json:"meta,omitempty"`
}

func (p orderPayload) toOrder(id string) (*orders.Order, error) {
	meta, err := orders.MetadataFromBag(p.Meta)
	if err != nil {
		return nil, err
	}
	return &orders.Order{
		ID:             id,
		Status:         p.Status,
		PaymentMethod:  p.PaymentMethod,
		ShippingMethod: p.ShippingMethod,
		Subtotal:       p.Subtotal,
		Total:          p.Total,
		Billing:        p.Billing,
		Shipping:       p.Shipping,
		Items:          p.Items,
		Meta:           meta,
	}, nil
}

type orderResponse struct {
	ID      string            `json:"id"`
	Status  string            `json:"status"`
	Version int64             `json:"version"`
	Meta    map[string]string `json:"meta"`
}

func orderToResponse(o *orders.Order) orderResponse {
	return orderResponse{
		ID:      o.ID,
		Status:  o.Status,
		Version: o.Version,
		Meta:    o.Meta.Bag(),
	}
}

type selectLockerRequest struct {
	SessionID string `json:"session_id"`
	LockerID  string `json:"locker_id"`
}

type checkoutRequest struct {
	SessionID      string `json:"session_id"`
	ShippingMethod string `json:"shipping_method"`
	LockerID       string `json:"locker_id"`
}

type completedRequest struct {
	Manual bool `json:"manual"`
}

type completedResponse struct {
	OrderID   string   `json:"order_id"`
	Outcome   string   `json:"outcome"`
	ParcelIDs []string `json:"parcel_ids,omitempty"`
	Error     string   `json:"error,omitempty"`
}

type createVouchersRequest struct {
	Quantity        int             `json:"quantity"`
	CompartmentSize compartmentSize `json:"compartment_size"`
	LockerID        string          `json:"locker_id,omitempty"`
	WarehouseID     string          `json:"warehouse_id,omitempty"`
}

// compartmentSize accepts "medium", "2" and 2.
type compartmentSize string

func (c *compartmentSize) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*c = compartmentSize(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("compartment_size: %w", err)
	}
	*c = compartmentSize(n.String())
	return nil
}

type createVouchersResponse struct {
	OrderID   string   `json:"order_id"`
	ParcelIDs []string `json:"parcel_ids"`
}

type labelResponse struct {
	ParcelID    string `json:"parcel_id"`
	ContentType string `json:"content_type"`
	Data        []byte `json:"data"` // base64 in JSON
}

type originResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}
