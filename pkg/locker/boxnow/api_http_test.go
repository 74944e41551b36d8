package boxnow_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tournevent/lockerlink/pkg/locker/boxnow"
)

func newCourierServer(t *testing.T, handler http.HandlerFunc) *boxnow.HTTPAPIClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return boxnow.NewHTTPAPIClient(boxnow.HTTPAPIClientConfig{BaseURL: srv.URL})
}

func TestHTTPAPIClient_Authenticate(t *testing.T) {
	client := newCourierServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v1/auth-sessions", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Empty(t, r.Header.Get("Authorization"))

		var body map[string]string
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "client_credentials", body["grant_type"])
		assert.Equal(t, "client", body["client_id"])
		assert.Equal(t, "secret", body["client_secret"])

		_, _ = io.WriteString(w, `{"access_token":"abc","token_type":"Bearer","expires_in":3600}`)
	})

	resp, err := client.Authenticate(context.Background(), &boxnow.AuthRequest{
		GrantType: "client_credentials", ClientID: "client", ClientSecret: "secret",
	})

	require.NoError(t, err)
	assert.Equal(t, "abc", resp.AccessToken)
	assert.Equal(t, 3600, resp.ExpiresIn)
}

func TestHTTPAPIClient_Authenticate_Unauthorized(t *testing.T) {
	client := newCourierServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"code":"P401","message":"invalid credentials"}`)
	})

	_, err := client.Authenticate(context.Background(), &boxnow.AuthRequest{})

	var apiErr *boxnow.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	assert.Equal(t, "P401", apiErr.Code)
	assert.Equal(t, "invalid credentials", apiErr.Message)
	assert.Contains(t, apiErr.Body, "invalid credentials")
}

func TestHTTPAPIClient_Authenticate_NoTokenKeepsRawBody(t *testing.T) {
	client := newCourierServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"status":"ok"}`)
	})

	resp, err := client.Authenticate(context.Background(), &boxnow.AuthRequest{})

	require.NoError(t, err)
	assert.Empty(t, resp.AccessToken)
	assert.Equal(t, `{"status":"ok"}`, resp.Raw)
}

func TestHTTPAPIClient_CreateDeliveryRequest(t *testing.T) {
	client := newCourierServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/delivery-requests", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))

		var body map[string]interface{}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "cod", body["paymentMode"])
		assert.Equal(t, "45.00", body["amountToBeCollected"])
		items, _ := body["items"].([]interface{})
		assert.Len(t, items, 1)

		_, _ = io.WriteString(w, `{"id":55,"parcels":[{"id":"9100001"}]}`)
	})

	resp, err := client.CreateDeliveryRequest(context.Background(), "tok", &boxnow.DeliveryRequest{
		PaymentMode:         "cod",
		InvoiceValue:        "45.00",
		AmountToBeCollected: "45.00",
		Items:               []boxnow.Item{{Value: "40.00", Weight: 1, CompartmentSize: 2}},
	})

	require.NoError(t, err)
	assert.Equal(t, boxnow.ID("55"), resp.ID)
	require.Len(t, resp.Parcels, 1)
	assert.Equal(t, boxnow.ID("9100001"), resp.Parcels[0].ID)
	assert.Contains(t, resp.Raw, "9100001")
}

func TestHTTPAPIClient_CreateDeliveryRequest_Malformed(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "html", body: `<html>gateway</html>`},
		{name: "object parcel id", body: `{"id":"R1","parcels":[{"id":"P1"},{"id":{"x":1}}]}`},
		{name: "boolean request id", body: `{"id":true,"parcels":[{"id":"P1"}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newCourierServer(t, func(w http.ResponseWriter, r *http.Request) {
				_, _ = io.WriteString(w, tt.body)
			})

			resp, err := client.CreateDeliveryRequest(context.Background(), "tok", &boxnow.DeliveryRequest{})

			assert.Nil(t, resp)
			require.ErrorIs(t, err, boxnow.ErrMalformedResponse)
			var decodeErr *boxnow.DecodeError
			require.True(t, errors.As(err, &decodeErr))
			assert.Equal(t, tt.body, decodeErr.Body)
		})
	}
}

func TestHTTPAPIClient_CreateDeliveryRequest_NullParcelIDsDecode(t *testing.T) {
	client := newCourierServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"id":"R1","parcels":[{"id":null},{}]}`)
	})

	resp, err := client.CreateDeliveryRequest(context.Background(), "tok", &boxnow.DeliveryRequest{})

	require.NoError(t, err)
	require.Len(t, resp.Parcels, 2)
	assert.Empty(t, resp.Parcels[0].ID)
	assert.Empty(t, resp.Parcels[1].ID)
}

func TestHTTPAPIClient_Authenticate_Malformed(t *testing.T) {
	client := newCourierServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"access_token":42}`)
	})

	_, err := client.Authenticate(context.Background(), &boxnow.AuthRequest{})

	require.ErrorIs(t, err, boxnow.ErrMalformedResponse)
	var decodeErr *boxnow.DecodeError
	require.True(t, errors.As(err, &decodeErr))
	assert.Equal(t, `{"access_token":42}`, decodeErr.Body)
}

func TestHTTPAPIClient_ListOrigins(t *testing.T) {
	client := newCourierServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/v1/origins", r.URL.Path)
		_, _ = io.WriteString(w, `{"data":[{"id":2,"name":"Athens"},{"id":"7","name":"Thessaloniki"}]}`)
	})

	resp, err := client.ListOrigins(context.Background(), "tok")

	require.NoError(t, err)
	require.Len(t, resp.Data, 2)
	assert.Equal(t, boxnow.ID("2"), resp.Data[0].ID)
	assert.Equal(t, boxnow.ID("7"), resp.Data[1].ID)
}

func TestHTTPAPIClient_ListOrigins_Malformed(t *testing.T) {
	client := newCourierServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `not json`)
	})

	_, err := client.ListOrigins(context.Background(), "tok")

	assert.ErrorIs(t, err, boxnow.ErrMalformedResponse)
}

func TestHTTPAPIClient_CancelParcel(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr bool
	}{
		{name: "accepted", status: http.StatusOK},
		{name: "no content", status: http.StatusNoContent},
		{name: "rejected", status: http.StatusConflict, body: "parcel already in transit", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newCourierServer(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodPost, r.Method)
				assert.Equal(t, "/api/v1/parcels/9100001:cancel", r.URL.Path)
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			})

			err := client.CancelParcel(context.Background(), "tok", "9100001")

			if !tt.wantErr {
				require.NoError(t, err)
				return
			}
			var apiErr *boxnow.APIError
			require.True(t, errors.As(err, &apiErr))
			assert.Equal(t, tt.status, apiErr.StatusCode)
			assert.Equal(t, tt.body, apiErr.Body)
		})
	}
}

func TestHTTPAPIClient_CustomPaths(t *testing.T) {
	var paths []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		_, _ = io.WriteString(w, "%PDF-1.4")
	}))
	defer srv.Close()

	client := boxnow.NewHTTPAPIClient(boxnow.HTTPAPIClientConfig{
		BaseURL:    srv.URL + "/",
		CancelPath: "/api/v2/parcels/{id}/cancel",
		LabelPath:  "/api/v2/labels/{id}",
	})

	require.NoError(t, client.CancelParcel(context.Background(), "tok", "p1"))
	data, err := client.GetParcelLabel(context.Background(), "tok", "p1")
	require.NoError(t, err)

	assert.Equal(t, "%PDF-1.4", string(data))
	assert.Equal(t, []string{"/api/v2/parcels/p1/cancel", "/api/v2/labels/p1"}, paths)
}

func TestHTTPAPIClient_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	client := boxnow.NewHTTPAPIClient(boxnow.HTTPAPIClientConfig{BaseURL: url})
	_, err := client.Authenticate(context.Background(), &boxnow.AuthRequest{})

	require.Error(t, err)
	var apiErr *boxnow.APIError
	assert.False(t, errors.As(err, &apiErr))
}
