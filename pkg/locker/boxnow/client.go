// Package boxnow provides integration with the BOX NOW parcel-locker API.
package boxnow

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/tournevent/lockerlink/pkg/locker"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const courierName = "boxnow"

// tokenExpiryMargin is subtracted from expires_in before caching a token.
const tokenExpiryMargin = time.Minute

// Voucher notification modes.
const (
	VoucherModeEmail  = "email"
	VoucherModeButton = "button"
)

// Config holds BOX NOW configuration.
type Config struct {
	BaseURL      string
	ClientID     string
	ClientSecret string

	VoucherMode  string // "email" asks the courier to mail vouchers to VoucherEmail
	VoucherEmail string
	AllowReturns bool

	CancelPath string
	LabelPath  string
	Timeout    time.Duration

	// TokenTTL is used for cached tokens when the auth response has no expires_in.
	TokenTTL time.Duration

	UseMock bool // When true, uses mock API client
}

// Client is the BOX NOW courier client.
// It implements the locker.Courier interface and delegates
// API calls to the underlying APIClient (mock or HTTP).
type Client struct {
	config    Config
	apiClient APIClient
	tokens    TokenCache
	logger    *otelzap.Logger
	tracer    trace.Tracer
}

// New creates a new BOX NOW client.
// If cfg.UseMock is true, it uses a mock API client for testing.
// Otherwise, it uses the real HTTP API client.
func New(cfg Config, logger *otelzap.Logger, tracer trace.Tracer) *Client {
	var apiClient APIClient

	if cfg.UseMock {
		apiClient = NewMockAPIClient()
	} else {
		apiClient = NewHTTPAPIClient(HTTPAPIClientConfig{
			BaseURL:    cfg.BaseURL,
			CancelPath: cfg.CancelPath,
			LabelPath:  cfg.LabelPath,
			Timeout:    cfg.Timeout,
		})
	}

	return NewWithAPIClient(cfg, apiClient, logger, tracer)
}

// NewWithAPIClient creates a new BOX NOW client with a custom API client.
// This is useful for injecting mock clients in tests.
func NewWithAPIClient(cfg Config, apiClient APIClient, logger *otelzap.Logger, tracer trace.Tracer) *Client {
	if tracer == nil {
		tracer = otel.Tracer("github.com/tournevent/lockerlink/pkg/locker/boxnow")
	}
	return &Client{
		config:    cfg,
		apiClient: apiClient,
		logger:    logger,
		tracer:    tracer,
	}
}

// WithTokenCache enables token reuse across calls.
func (c *Client) WithTokenCache(cache TokenCache) *Client {
	c.tokens = cache
	return c
}

// Name returns the courier name.
func (c *Client) Name() string {
	return courierName
}

// AccessToken obtains a bearer token with the client-credentials grant.
// Without a token cache every call performs a fresh POST.
func (c *Client) AccessToken(ctx context.Context) (string, error) {
	if c.config.ClientID == "" || c.config.ClientSecret == "" {
		return "", locker.NewError(locker.KindAuth, "MISSING_CREDENTIALS", "client id or secret not configured")
	}

	if c.tokens != nil {
		token, ok, err := c.tokens.Get(ctx, c.config.ClientID)
		if err != nil {
			c.logger.Ctx(ctx).Warn("Token cache lookup failed", zap.Error(err))
		} else if ok {
			return token, nil
		}
	}

	ctx, span := c.tracer.Start(ctx, "boxnow.Authenticate")
	defer span.End()

	resp, err := c.apiClient.Authenticate(ctx, &AuthRequest{
		GrantType:    "client_credentials",
		ClientID:     c.config.ClientID,
		ClientSecret: c.config.ClientSecret,
	})
	if err != nil {
		err = c.classify(ctx, locker.KindAuth, "authenticate", err)
		recordSpanError(span, err)
		c.logger.Ctx(ctx).Error("BOX NOW authentication failed", zap.Error(err))
		return "", err
	}

	if resp.AccessToken == "" {
		err := locker.NewError(locker.KindProtocol, "NO_ACCESS_TOKEN", "auth response has no access_token").
			WithBody(resp.Raw)
		recordSpanError(span, err)
		c.logger.Ctx(ctx).Error("BOX NOW authentication failed", zap.Error(err))
		return "", err
	}

	if c.tokens != nil {
		if ttl := c.tokenTTL(resp.ExpiresIn); ttl > 0 {
			if err := c.tokens.Set(ctx, c.config.ClientID, resp.AccessToken, ttl); err != nil {
				c.logger.Ctx(ctx).Warn("Token cache store failed", zap.Error(err))
			}
		}
	}

	return resp.AccessToken, nil
}

// CreateVouchers sends one delivery request with req.Count identical items.
func (c *Client) CreateVouchers(ctx context.Context, req *locker.VoucherRequest) (*locker.VoucherResponse, error) {
	if req.Count < 1 {
		return nil, locker.NewValidationError("INVALID_QUANTITY", locker.ErrInvalidQuantity).
			WithMessage(fmt.Sprintf("voucher count %d", req.Count))
	}
	if !req.CompartmentSize.Valid() {
		return nil, locker.NewValidationError("INVALID_COMPARTMENT_SIZE", locker.ErrInvalidCompartmentSize)
	}

	token, err := c.AccessToken(ctx)
	if err != nil {
		return nil, err
	}

	apiReq := c.buildDeliveryRequest(req)

	c.logger.Ctx(ctx).Info("Creating BOX NOW delivery request",
		zap.String("order_id", req.Input.OrderID),
		zap.String("locker_id", apiReq.Destination.LocationID),
		zap.String("warehouse_id", apiReq.Origin.LocationID),
		zap.String("payment_mode", apiReq.PaymentMode),
		zap.Int("vouchers", req.Count),
	)

	ctx, span := c.tracer.Start(ctx, "boxnow.CreateDeliveryRequest", trace.WithAttributes(
		attribute.String("order.id", req.Input.OrderID),
		attribute.Int("vouchers", req.Count),
	))
	defer span.End()

	apiResp, err := c.apiClient.CreateDeliveryRequest(ctx, token, apiReq)
	if err != nil {
		err = c.classify(ctx, locker.KindDeliveryRequest, "delivery request", err)
		recordSpanError(span, err)
		c.logger.Ctx(ctx).Error("BOX NOW API error", zap.Error(err))
		return nil, err
	}

	if apiResp.ID == "" {
		err := locker.NewError(locker.KindDeliveryRequest, "NO_REQUEST_ID", "unable to create vouchers").
			WithBody(apiResp.Raw)
		recordSpanError(span, err)
		c.logger.Ctx(ctx).Error("BOX NOW API error", zap.Error(err))
		return nil, err
	}
	if len(apiResp.Parcels) == 0 {
		err := locker.NewError(locker.KindDeliveryRequest, "NO_PARCELS", "delivery request returned no parcels").
			WithBody(apiResp.Raw)
		recordSpanError(span, err)
		c.logger.Ctx(ctx).Error("BOX NOW API error", zap.Error(err))
		return nil, err
	}
	for i, p := range apiResp.Parcels {
		if p.ID != "" {
			continue
		}
		err := locker.NewError(locker.KindDeliveryRequest, "NO_PARCEL_ID",
			fmt.Sprintf("parcel %d of delivery request %s has no id", i+1, apiResp.ID)).
			WithBody(apiResp.Raw)
		recordSpanError(span, err)
		c.logger.Ctx(ctx).Error("BOX NOW API error", zap.Error(err))
		return nil, err
	}

	return deliveryResponseToLocker(apiResp), nil
}

// CancelParcel cancels one parcel with BOX NOW.
func (c *Client) CancelParcel(ctx context.Context, parcelID string) error {
	c.logger.Ctx(ctx).Info("Cancelling BOX NOW parcel", zap.String("parcel_id", parcelID))

	token, err := c.AccessToken(ctx)
	if err != nil {
		return err
	}

	ctx, span := c.tracer.Start(ctx, "boxnow.CancelParcel", trace.WithAttributes(
		attribute.String("parcel.id", parcelID),
	))
	defer span.End()

	if err := c.apiClient.CancelParcel(ctx, token, parcelID); err != nil {
		err = c.classify(ctx, locker.KindCancellation, "cancel parcel", err)
		recordSpanError(span, err)
		c.logger.Ctx(ctx).Error("BOX NOW API error", zap.Error(err))
		return err
	}
	return nil
}

// GetLabel downloads the voucher PDF for a parcel.
func (c *Client) GetLabel(ctx context.Context, parcelID string) (*locker.Label, error) {
	token, err := c.AccessToken(ctx)
	if err != nil {
		return nil, err
	}

	ctx, span := c.tracer.Start(ctx, "boxnow.GetParcelLabel", trace.WithAttributes(
		attribute.String("parcel.id", parcelID),
	))
	defer span.End()

	data, err := c.apiClient.GetParcelLabel(ctx, token, parcelID)
	if err != nil {
		err = c.classify(ctx, locker.KindProtocol, "get label", err)
		recordSpanError(span, err)
		c.logger.Ctx(ctx).Error("BOX NOW API error", zap.Error(err))
		return nil, err
	}

	return &locker.Label{
		ParcelID:    parcelID,
		ContentType: "application/pdf",
		Data:        data,
	}, nil
}

// ListOrigins returns the merchant warehouses registered with BOX NOW.
func (c *Client) ListOrigins(ctx context.Context) ([]locker.Origin, error) {
	token, err := c.AccessToken(ctx)
	if err != nil {
		return nil, err
	}

	ctx, span := c.tracer.Start(ctx, "boxnow.ListOrigins")
	defer span.End()

	resp, err := c.apiClient.ListOrigins(ctx, token)
	if err != nil {
		err = c.classify(ctx, locker.KindProtocol, "list origins", err)
		recordSpanError(span, err)
		c.logger.Ctx(ctx).Error("BOX NOW API error", zap.Error(err))
		return nil, err
	}

	origins := make([]locker.Origin, len(resp.Data))
	for i, o := range resp.Data {
		origins[i] = locker.Origin{ID: string(o.ID), Name: o.Name}
	}
	return origins, nil
}

// ============================================================================
// Conversion helpers
// ============================================================================

func (c *Client) buildDeliveryRequest(req *locker.VoucherRequest) *DeliveryRequest {
	in := req.Input

	invoiceValue := "0"
	paymentMode := string(locker.PaymentPrepaid)
	if in.PaymentMode == locker.PaymentCOD {
		invoiceValue = in.OrderTotal.StringFixed(2)
		paymentMode = string(locker.PaymentCOD)
	}

	notify := ""
	if c.config.VoucherMode == VoucherModeEmail {
		notify = c.config.VoucherEmail
	}

	items := make([]Item, req.Count)
	for i := range items {
		items[i] = Item{
			Value:           in.ItemSubtotal.StringFixed(2),
			Weight:          in.Weight,
			CompartmentSize: int(req.CompartmentSize),
		}
	}

	return &DeliveryRequest{
		NotifyOnAccepted:    notify,
		OrderNumber:         uuid.New().String(),
		InvoiceValue:        invoiceValue,
		PaymentMode:         paymentMode,
		AmountToBeCollected: invoiceValue,
		AllowReturn:         c.config.AllowReturns,
		Origin: Origin{
			ContactNumber: in.Origin.Phone,
			ContactEmail:  in.Origin.Email,
			LocationID:    in.WarehouseID,
		},
		Destination: Destination{
			ContactNumber: in.Destination.Phone,
			ContactEmail:  in.Destination.Email,
			ContactName:   in.Destination.Name,
			LocationID:    in.LockerID,
		},
		Items: items,
	}
}

func deliveryResponseToLocker(resp *DeliveryResponse) *locker.VoucherResponse {
	ids := make([]string, len(resp.Parcels))
	for i, p := range resp.Parcels {
		ids[i] = string(p.ID)
	}
	return &locker.VoucherResponse{
		RequestID: string(resp.ID),
		ParcelIDs: ids,
		RawBody:   resp.Raw,
	}
}

// ============================================================================
// Error and token helpers
// ============================================================================

// classify maps API client errors to workflow error kinds. Rejections by the
// courier take the operation's kind; undecodable bodies are protocol errors
// and everything else is a transport failure. A 401 evicts the cached token
// so the next operation authenticates again.
func (c *Client) classify(ctx context.Context, kind locker.ErrorKind, op string, err error) error {
	var apiErr *APIError
	var decodeErr *DecodeError
	switch {
	case errors.As(err, &apiErr):
		if apiErr.StatusCode == http.StatusUnauthorized {
			c.evictToken(ctx)
		}
		return locker.NewError(kind, apiErr.Code, fmt.Sprintf("%s: %s", op, apiErr.Message)).
			WithStatusCode(apiErr.StatusCode).
			WithBody(apiErr.Body)
	case errors.As(err, &decodeErr):
		return locker.NewError(locker.KindProtocol, "MALFORMED_RESPONSE", op).
			WithCause(err).
			WithBody(decodeErr.Body)
	case errors.Is(err, ErrMalformedResponse):
		return locker.NewError(locker.KindProtocol, "MALFORMED_RESPONSE", op).WithCause(err)
	default:
		return locker.NewError(locker.KindNetwork, "TRANSPORT", op+" request failed").WithCause(err)
	}
}

func (c *Client) evictToken(ctx context.Context) {
	if c.tokens == nil {
		return
	}
	if err := c.tokens.Delete(ctx, c.config.ClientID); err != nil {
		c.logger.Ctx(ctx).Warn("Token cache eviction failed", zap.Error(err))
	}
}

func (c *Client) tokenTTL(expiresIn int) time.Duration {
	if expiresIn > 0 {
		return time.Duration(expiresIn)*time.Second - tokenExpiryMargin
	}
	return c.config.TokenTTL
}

func recordSpanError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

// Ensure Client implements locker.Courier interface
var _ locker.Courier = (*Client)(nil)
