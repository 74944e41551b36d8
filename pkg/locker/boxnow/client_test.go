package boxnow_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tournevent/lockerlink/pkg/locker"
	"github.com/tournevent/lockerlink/pkg/locker/boxnow"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

func testConfig() boxnow.Config {
	return boxnow.Config{
		ClientID:     "client",
		ClientSecret: "secret",
		VoucherMode:  boxnow.VoucherModeEmail,
		VoucherEmail: "vouchers@shop.example",
		AllowReturns: true,
	}
}

func newTestClient(cfg boxnow.Config, mockClient *boxnow.MockAPIClient) *boxnow.Client {
	logger := otelzap.New(zap.NewNop())
	return boxnow.NewWithAPIClient(cfg, mockClient, logger, nil)
}

func testInput(mode locker.PaymentMode) *locker.DeliveryRequestInput {
	return &locker.DeliveryRequestInput{
		OrderID:          "1001",
		LockerID:         "4",
		WarehouseID:      "2",
		PaymentMode:      mode,
		OrderTotal:       decimal.RequireFromString("45"),
		ItemSubtotal:     decimal.RequireFromString("40.5"),
		Weight:           1.25,
		CompartmentSizes: []locker.SizeCode{locker.SizeMedium, locker.SizeMedium},
		Destination: locker.Contact{
			Name:  "Maria Papadopoulou",
			Phone: "+306912345678",
			Email: "maria@example.com",
		},
		Origin: locker.Contact{
			Phone: "+302101234567",
			Email: "shop@shop.example",
		},
	}
}

func TestClient_Name(t *testing.T) {
	client := newTestClient(testConfig(), boxnow.NewMockAPIClient())
	assert.Equal(t, "boxnow", client.Name())
}

func TestClient_AccessToken_MissingCredentials(t *testing.T) {
	mockAPI := boxnow.NewMockAPIClient()
	client := newTestClient(boxnow.Config{ClientID: "client"}, mockAPI)

	_, err := client.AccessToken(context.Background())

	require.Error(t, err)
	assert.ErrorIs(t, err, locker.ErrAuth)
	assert.Equal(t, 0, mockAPI.Calls("Authenticate"))
}

func TestClient_AccessToken_SendsClientCredentials(t *testing.T) {
	mockAPI := boxnow.NewMockAPIClient()
	var got *boxnow.AuthRequest
	mockAPI.OnAuthenticate = func(ctx context.Context, req *boxnow.AuthRequest) (*boxnow.AuthResponse, error) {
		got = req
		return &boxnow.AuthResponse{AccessToken: "tok"}, nil
	}
	client := newTestClient(testConfig(), mockAPI)

	token, err := client.AccessToken(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "tok", token)
	require.NotNil(t, got)
	assert.Equal(t, "client_credentials", got.GrantType)
	assert.Equal(t, "client", got.ClientID)
	assert.Equal(t, "secret", got.ClientSecret)
}

func TestClient_AccessToken_NoCacheFetchesEveryCall(t *testing.T) {
	mockAPI := boxnow.NewMockAPIClient()
	client := newTestClient(testConfig(), mockAPI)

	_, err := client.AccessToken(context.Background())
	require.NoError(t, err)
	_, err = client.AccessToken(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, mockAPI.Calls("Authenticate"))
}

func TestClient_AccessToken_CacheReusesToken(t *testing.T) {
	mockAPI := boxnow.NewMockAPIClient()
	client := newTestClient(testConfig(), mockAPI).WithTokenCache(boxnow.NewMemoryTokenCache())

	first, err := client.AccessToken(context.Background())
	require.NoError(t, err)
	second, err := client.AccessToken(context.Background())
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, mockAPI.Calls("Authenticate"))
}

func TestClient_AccessToken_Rejected(t *testing.T) {
	mockAPI := boxnow.NewMockAPIClient()
	mockAPI.OnAuthenticate = func(ctx context.Context, req *boxnow.AuthRequest) (*boxnow.AuthResponse, error) {
		return nil, &boxnow.APIError{StatusCode: 401, Code: "P401", Message: "invalid client", Body: `{"code":"P401"}`}
	}
	client := newTestClient(testConfig(), mockAPI)

	_, err := client.AccessToken(context.Background())

	require.Error(t, err)
	assert.ErrorIs(t, err, locker.ErrAuth)
	assert.Equal(t, `{"code":"P401"}`, locker.BodyOf(err))
}

func TestClient_AccessToken_MissingTokenIsProtocolError(t *testing.T) {
	mockAPI := boxnow.NewMockAPIClient()
	mockAPI.OnAuthenticate = func(ctx context.Context, req *boxnow.AuthRequest) (*boxnow.AuthResponse, error) {
		return &boxnow.AuthResponse{Raw: `{"token_type":"Bearer"}`}, nil
	}
	client := newTestClient(testConfig(), mockAPI)

	_, err := client.AccessToken(context.Background())

	require.Error(t, err)
	assert.ErrorIs(t, err, locker.ErrProtocol)
	assert.Equal(t, `{"token_type":"Bearer"}`, locker.BodyOf(err))
}

func TestClient_AccessToken_TransportFailure(t *testing.T) {
	mockAPI := boxnow.NewMockAPIClient()
	mockAPI.OnAuthenticate = func(ctx context.Context, req *boxnow.AuthRequest) (*boxnow.AuthResponse, error) {
		return nil, errors.New("dial tcp: connection refused")
	}
	client := newTestClient(testConfig(), mockAPI)

	_, err := client.AccessToken(context.Background())

	require.Error(t, err)
	assert.ErrorIs(t, err, locker.ErrNetwork)
}

func TestClient_CreateVouchers_CODPayload(t *testing.T) {
	mockAPI := boxnow.NewMockAPIClient()
	client := newTestClient(testConfig(), mockAPI)

	resp, err := client.CreateVouchers(context.Background(), &locker.VoucherRequest{
		Input:           testInput(locker.PaymentCOD),
		Count:           2,
		CompartmentSize: locker.SizeMedium,
	})

	require.NoError(t, err)
	assert.NotEmpty(t, resp.RequestID)
	assert.Len(t, resp.ParcelIDs, 2)
	assert.NotEmpty(t, resp.RawBody)

	reqs := mockAPI.DeliveryRequests()
	require.Len(t, reqs, 1)
	sent := reqs[0]
	assert.Equal(t, "cod", sent.PaymentMode)
	assert.Equal(t, "45.00", sent.InvoiceValue)
	assert.Equal(t, "45.00", sent.AmountToBeCollected)
	assert.Equal(t, "vouchers@shop.example", sent.NotifyOnAccepted)
	assert.True(t, sent.AllowReturn)
	assert.NotEmpty(t, sent.OrderNumber)

	assert.Equal(t, "2", sent.Origin.LocationID)
	assert.Equal(t, "+302101234567", sent.Origin.ContactNumber)
	assert.Equal(t, "shop@shop.example", sent.Origin.ContactEmail)

	assert.Equal(t, "4", sent.Destination.LocationID)
	assert.Equal(t, "+306912345678", sent.Destination.ContactNumber)
	assert.Equal(t, "maria@example.com", sent.Destination.ContactEmail)
	assert.Equal(t, "Maria Papadopoulou", sent.Destination.ContactName)

	require.Len(t, sent.Items, 2)
	for _, item := range sent.Items {
		assert.Equal(t, "40.50", item.Value)
		assert.Equal(t, 1.25, item.Weight)
		assert.Equal(t, 2, item.CompartmentSize)
	}
}

func TestClient_CreateVouchers_PrepaidPayload(t *testing.T) {
	mockAPI := boxnow.NewMockAPIClient()
	cfg := testConfig()
	cfg.VoucherMode = boxnow.VoucherModeButton
	client := newTestClient(cfg, mockAPI)

	_, err := client.CreateVouchers(context.Background(), &locker.VoucherRequest{
		Input:           testInput(locker.PaymentPrepaid),
		Count:           1,
		CompartmentSize: locker.SizeSmall,
	})
	require.NoError(t, err)

	sent := mockAPI.DeliveryRequests()[0]
	assert.Equal(t, "prepaid", sent.PaymentMode)
	assert.Equal(t, "0", sent.InvoiceValue)
	assert.Equal(t, "0", sent.AmountToBeCollected)
	assert.Empty(t, sent.NotifyOnAccepted)
	require.Len(t, sent.Items, 1)
	assert.Equal(t, 1, sent.Items[0].CompartmentSize)
}

func TestClient_CreateVouchers_FreshOrderNumber(t *testing.T) {
	mockAPI := boxnow.NewMockAPIClient()
	client := newTestClient(testConfig(), mockAPI)
	req := &locker.VoucherRequest{Input: testInput(locker.PaymentPrepaid), Count: 1, CompartmentSize: locker.SizeSmall}

	_, err := client.CreateVouchers(context.Background(), req)
	require.NoError(t, err)
	_, err = client.CreateVouchers(context.Background(), req)
	require.NoError(t, err)

	reqs := mockAPI.DeliveryRequests()
	require.Len(t, reqs, 2)
	assert.NotEqual(t, reqs[0].OrderNumber, reqs[1].OrderNumber)
}

func TestClient_CreateVouchers_InvalidRequest(t *testing.T) {
	tests := []struct {
		name  string
		req   *locker.VoucherRequest
		cause error
	}{
		{
			name:  "zero count",
			req:   &locker.VoucherRequest{Input: testInput(locker.PaymentCOD), Count: 0, CompartmentSize: locker.SizeSmall},
			cause: locker.ErrInvalidQuantity,
		},
		{
			name:  "unknown size",
			req:   &locker.VoucherRequest{Input: testInput(locker.PaymentCOD), Count: 1, CompartmentSize: 4},
			cause: locker.ErrInvalidCompartmentSize,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockAPI := boxnow.NewMockAPIClient()
			client := newTestClient(testConfig(), mockAPI)

			_, err := client.CreateVouchers(context.Background(), tt.req)

			require.Error(t, err)
			assert.ErrorIs(t, err, locker.ErrValidation)
			assert.ErrorIs(t, err, tt.cause)
			assert.Equal(t, 0, mockAPI.Calls("CreateDeliveryRequest"))
		})
	}
}

func TestClient_CreateVouchers_Rejected(t *testing.T) {
	mockAPI := boxnow.NewMockAPIClient()
	mockAPI.OnCreateDeliveryRequest = func(ctx context.Context, token string, req *boxnow.DeliveryRequest) (*boxnow.DeliveryResponse, error) {
		return nil, &boxnow.APIError{StatusCode: 400, Code: "P410", Message: "invalid destination", Body: `{"code":"P410","message":"invalid destination"}`}
	}
	client := newTestClient(testConfig(), mockAPI)

	_, err := client.CreateVouchers(context.Background(), &locker.VoucherRequest{
		Input: testInput(locker.PaymentCOD), Count: 1, CompartmentSize: locker.SizeSmall,
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, locker.ErrDeliveryRequest)
	assert.Contains(t, locker.BodyOf(err), "invalid destination")
	assert.Contains(t, err.Error(), "invalid destination")
}

func TestClient_CreateVouchers_ResponseWithoutParcels(t *testing.T) {
	tests := []struct {
		name string
		resp *boxnow.DeliveryResponse
	}{
		{name: "no id", resp: &boxnow.DeliveryResponse{Parcels: []boxnow.ParcelEntry{{ID: "9"}}, Raw: `{"parcels":[{"id":"9"}]}`}},
		{name: "no parcels", resp: &boxnow.DeliveryResponse{ID: "dr-1", Raw: `{"id":"dr-1","parcels":[]}`}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockAPI := boxnow.NewMockAPIClient()
			mockAPI.OnCreateDeliveryRequest = func(ctx context.Context, token string, req *boxnow.DeliveryRequest) (*boxnow.DeliveryResponse, error) {
				return tt.resp, nil
			}
			client := newTestClient(testConfig(), mockAPI)

			_, err := client.CreateVouchers(context.Background(), &locker.VoucherRequest{
				Input: testInput(locker.PaymentCOD), Count: 1, CompartmentSize: locker.SizeSmall,
			})

			require.Error(t, err)
			assert.ErrorIs(t, err, locker.ErrDeliveryRequest)
			assert.Equal(t, tt.resp.Raw, locker.BodyOf(err))
		})
	}
}

func TestClient_CreateVouchers_EmptyParcelID(t *testing.T) {
	raw := `{"id":"R1","parcels":[{"id":"P1"},{"id":null}]}`
	mockAPI := boxnow.NewMockAPIClient()
	mockAPI.OnCreateDeliveryRequest = func(ctx context.Context, token string, req *boxnow.DeliveryRequest) (*boxnow.DeliveryResponse, error) {
		return &boxnow.DeliveryResponse{
			ID:      "R1",
			Parcels: []boxnow.ParcelEntry{{ID: "P1"}, {}},
			Raw:     raw,
		}, nil
	}
	client := newTestClient(testConfig(), mockAPI)

	resp, err := client.CreateVouchers(context.Background(), &locker.VoucherRequest{
		Input: testInput(locker.PaymentCOD), Count: 2, CompartmentSize: locker.SizeMedium,
	})

	assert.Nil(t, resp)
	require.Error(t, err)
	assert.ErrorIs(t, err, locker.ErrDeliveryRequest)
	assert.Equal(t, "NO_PARCEL_ID", err.(*locker.Error).Code)
	assert.Equal(t, raw, locker.BodyOf(err))
}

func TestClient_CreateVouchers_UndecodableResponse(t *testing.T) {
	raw := `{"id":"R1","parcels":[{"id":{"x":1}}]}`
	mockAPI := boxnow.NewMockAPIClient()
	mockAPI.OnCreateDeliveryRequest = func(ctx context.Context, token string, req *boxnow.DeliveryRequest) (*boxnow.DeliveryResponse, error) {
		return nil, &boxnow.DecodeError{Op: "delivery request", Body: raw, Err: errors.New("cannot decode id")}
	}
	client := newTestClient(testConfig(), mockAPI)

	_, err := client.CreateVouchers(context.Background(), &locker.VoucherRequest{
		Input: testInput(locker.PaymentCOD), Count: 1, CompartmentSize: locker.SizeSmall,
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, locker.ErrProtocol)
	assert.ErrorIs(t, err, boxnow.ErrMalformedResponse)
	assert.Equal(t, raw, locker.BodyOf(err))
}

func TestClient_UnauthorizedEvictsCachedToken(t *testing.T) {
	mockAPI := boxnow.NewMockAPIClient()
	mockAPI.OnCreateDeliveryRequest = func(ctx context.Context, token string, req *boxnow.DeliveryRequest) (*boxnow.DeliveryResponse, error) {
		return nil, &boxnow.APIError{StatusCode: 401, Code: "P401", Message: "token revoked"}
	}
	cache := boxnow.NewMemoryTokenCache()
	client := newTestClient(testConfig(), mockAPI).WithTokenCache(cache)

	for i := 0; i < 3; i++ {
		_, err := client.CreateVouchers(context.Background(), &locker.VoucherRequest{
			Input: testInput(locker.PaymentCOD), Count: 1, CompartmentSize: locker.SizeSmall,
		})
		require.ErrorIs(t, err, locker.ErrDeliveryRequest)
	}

	assert.Equal(t, 3, mockAPI.Calls("Authenticate"))
	assert.Equal(t, 3, mockAPI.Calls("CreateDeliveryRequest"))
	_, ok, err := cache.Get(context.Background(), testConfig().ClientID)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestClient_OtherRejectionsKeepCachedToken(t *testing.T) {
	mockAPI := boxnow.NewMockAPIClient()
	mockAPI.OnCancelParcel = func(ctx context.Context, token string, parcelID string) error {
		return &boxnow.APIError{StatusCode: 409, Code: "P420", Message: "parcel already in transit"}
	}
	client := newTestClient(testConfig(), mockAPI).WithTokenCache(boxnow.NewMemoryTokenCache())

	require.Error(t, client.CancelParcel(context.Background(), "p1"))
	require.Error(t, client.CancelParcel(context.Background(), "p1"))

	assert.Equal(t, 1, mockAPI.Calls("Authenticate"))
}

func TestClient_CreateVouchers_AuthFailureSkipsDeliveryRequest(t *testing.T) {
	mockAPI := boxnow.NewMockAPIClient()
	mockAPI.OnAuthenticate = func(ctx context.Context, req *boxnow.AuthRequest) (*boxnow.AuthResponse, error) {
		return nil, &boxnow.APIError{StatusCode: 401, Code: "HTTP_401", Message: "Unauthorized"}
	}
	client := newTestClient(testConfig(), mockAPI)

	_, err := client.CreateVouchers(context.Background(), &locker.VoucherRequest{
		Input: testInput(locker.PaymentCOD), Count: 1, CompartmentSize: locker.SizeSmall,
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, locker.ErrAuth)
	assert.Equal(t, 0, mockAPI.Calls("CreateDeliveryRequest"))
}

func TestClient_CancelParcel(t *testing.T) {
	mockAPI := boxnow.NewMockAPIClient()
	var cancelled string
	mockAPI.OnCancelParcel = func(ctx context.Context, token string, parcelID string) error {
		cancelled = parcelID
		return nil
	}
	client := newTestClient(testConfig(), mockAPI)

	err := client.CancelParcel(context.Background(), "9100001")

	require.NoError(t, err)
	assert.Equal(t, "9100001", cancelled)
}

func TestClient_CancelParcel_Rejected(t *testing.T) {
	mockAPI := boxnow.NewMockAPIClient()
	mockAPI.OnCancelParcel = func(ctx context.Context, token string, parcelID string) error {
		return &boxnow.APIError{StatusCode: 409, Code: "P420", Message: "parcel already in transit", Body: "parcel already in transit"}
	}
	client := newTestClient(testConfig(), mockAPI)

	err := client.CancelParcel(context.Background(), "9100001")

	require.Error(t, err)
	assert.ErrorIs(t, err, locker.ErrCancellation)
	assert.Contains(t, err.Error(), "parcel already in transit")
}

func TestClient_GetLabel(t *testing.T) {
	client := newTestClient(testConfig(), boxnow.NewMockAPIClient())

	label, err := client.GetLabel(context.Background(), "9100001")

	require.NoError(t, err)
	assert.Equal(t, "9100001", label.ParcelID)
	assert.Equal(t, "application/pdf", label.ContentType)
	assert.True(t, len(label.Data) > 4)
	assert.Equal(t, "%PDF", string(label.Data[:4]))
}

func TestClient_ListOrigins(t *testing.T) {
	client := newTestClient(testConfig(), boxnow.NewMockAPIClient())

	origins, err := client.ListOrigins(context.Background())

	require.NoError(t, err)
	require.Len(t, origins, 2)
	assert.Equal(t, locker.Origin{ID: "2", Name: "Athens Central Warehouse"}, origins[0])
}

func TestClient_ListOrigins_Malformed(t *testing.T) {
	mockAPI := boxnow.NewMockAPIClient()
	mockAPI.OnListOrigins = func(ctx context.Context, token string) (*boxnow.OriginsResponse, error) {
		return nil, boxnow.ErrMalformedResponse
	}
	client := newTestClient(testConfig(), mockAPI)

	_, err := client.ListOrigins(context.Background())

	require.Error(t, err)
	assert.ErrorIs(t, err, locker.ErrProtocol)
	assert.ErrorIs(t, err, boxnow.ErrMalformedResponse)
}

func TestClient_SimulatedErrors(t *testing.T) {
	mockAPI := boxnow.NewMockAPIClient()
	mockAPI.SimulateErrors = true
	client := newTestClient(testConfig(), mockAPI)

	_, err := client.AccessToken(context.Background())

	assert.Error(t, err)
}

func TestClient_New_UsesMock(t *testing.T) {
	cfg := testConfig()
	cfg.UseMock = true
	client := boxnow.New(cfg, otelzap.New(zap.NewNop()), nil)

	origins, err := client.ListOrigins(context.Background())

	require.NoError(t, err)
	assert.NotEmpty(t, origins)
}

func TestMemoryTokenCache_Expiry(t *testing.T) {
	cache := boxnow.NewMemoryTokenCache()
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "client", "tok", time.Hour))
	token, ok, err := cache.Get(ctx, "client")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "tok", token)

	require.NoError(t, cache.Set(ctx, "client", "old", -time.Second))
	_, ok, err = cache.Get(ctx, "client")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, cache.Set(ctx, "client", "tok", time.Hour))
	require.NoError(t, cache.Delete(ctx, "client"))
	_, ok, _ = cache.Get(ctx, "client")
	assert.False(t, ok)
}
