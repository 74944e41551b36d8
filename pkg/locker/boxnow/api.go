package boxnow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// APIClient defines the interface for BOX NOW partner API operations.
// Every method that needs authorization takes the bearer token explicitly;
// token acquisition and caching belong to Client.
type APIClient interface {
	// Authenticate exchanges client credentials for an access token.
	Authenticate(ctx context.Context, req *AuthRequest) (*AuthResponse, error)

	// ListOrigins returns the merchant warehouses.
	ListOrigins(ctx context.Context, token string) (*OriginsResponse, error)

	// CreateDeliveryRequest registers parcels for one order.
	CreateDeliveryRequest(ctx context.Context, token string, req *DeliveryRequest) (*DeliveryResponse, error)

	// CancelParcel cancels one parcel.
	CancelParcel(ctx context.Context, token string, parcelID string) error

	// GetParcelLabel downloads the printable voucher of a parcel.
	GetParcelLabel(ctx context.Context, token string, parcelID string) ([]byte, error)
}

// ============================================================================
// API Request/Response Types (match BOX NOW partner API v1)
// ============================================================================

// AuthRequest is the body of POST /api/v1/auth-sessions.
type AuthRequest struct {
	GrantType    string `json:"grant_type"`
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
}

// AuthResponse is the token issued by the auth endpoint.
type AuthResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type,omitempty"`
	ExpiresIn   int    `json:"expires_in,omitempty"` // seconds

	// Raw is the undecoded response body.
	Raw string `json:"-"`
}

// OriginsResponse is returned by GET /api/v1/origins.
type OriginsResponse struct {
	Data []OriginEntry `json:"data"`
}

// OriginEntry is a single warehouse.
type OriginEntry struct {
	ID   ID     `json:"id"`
	Name string `json:"name"`
}

// DeliveryRequest is the body of POST /api/v1/delivery-requests.
type DeliveryRequest struct {
	NotifyOnAccepted    string      `json:"notifyOnAccepted"`
	OrderNumber         string      `json:"orderNumber"`
	InvoiceValue        string      `json:"invoiceValue"`
	PaymentMode         string      `json:"paymentMode"` // "cod" or "prepaid"
	AmountToBeCollected string      `json:"amountToBeCollected"`
	AllowReturn         bool        `json:"allowReturn"`
	Origin              Origin      `json:"origin"`
	Destination         Destination `json:"destination"`
	Items               []Item      `json:"items"`
}

// Origin is the sending warehouse.
type Origin struct {
	ContactNumber string `json:"contactNumber"`
	ContactEmail  string `json:"contactEmail"`
	LocationID    string `json:"locationId"`
}

// Destination is the receiving locker and customer.
type Destination struct {
	ContactNumber string `json:"contactNumber"`
	ContactEmail  string `json:"contactEmail"`
	ContactName   string `json:"contactName"`
	LocationID    string `json:"locationId"`
}

// Item is one parcel of a delivery request.
type Item struct {
	Value           string  `json:"value"`
	Weight          float64 `json:"weight"` // kg
	CompartmentSize int     `json:"compartmentSize,omitempty"`
}

// DeliveryResponse is returned by a successful delivery request.
type DeliveryResponse struct {
	ID      ID            `json:"id"`
	Parcels []ParcelEntry `json:"parcels"`

	// Raw is the undecoded response body.
	Raw string `json:"-"`
}

// ParcelEntry identifies a created parcel.
type ParcelEntry struct {
	ID ID `json:"id"`
}

// ID is an identifier the API may encode as a JSON string or number.
type ID string

// UnmarshalJSON accepts both "123" and 123.
func (id *ID) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*id = ID(n.String())
	return nil
}

// APIError represents an error from the BOX NOW API.
type APIError struct {
	StatusCode int    `json:"-"`
	Code       string `json:"code"`
	Message    string `json:"message"`
	Body       string `json:"-"`
}

func (e *APIError) Error() string {
	return e.Code + ": " + e.Message
}

// ErrMalformedResponse indicates a 2xx response whose body could not be decoded.
var ErrMalformedResponse = errors.New("malformed courier response")

// DecodeError is a 2xx response body that failed to decode. It matches
// ErrMalformedResponse and keeps the raw body.
type DecodeError struct {
	Op   string
	Body string
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrMalformedResponse, e.Op, e.Err)
}

func (e *DecodeError) Unwrap() []error {
	return []error{ErrMalformedResponse, e.Err}
}
