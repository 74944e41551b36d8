package fulfillment_test

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/tournevent/lockerlink/internal/fulfillment"
	"github.com/tournevent/lockerlink/internal/orders"
	"github.com/tournevent/lockerlink/internal/session"
	"github.com/tournevent/lockerlink/internal/telemetry"
	"github.com/tournevent/lockerlink/pkg/locker/mock"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

type harness struct {
	manager  *fulfillment.Manager
	store    *orders.MemoryStore
	sessions *session.MemoryStore
	courier  *mock.Client
	metrics  *telemetry.Metrics
}

func testConfig() fulfillment.Config {
	return fulfillment.Config{
		Warehouses:  []string{"2", "7"},
		OriginPhone: "+302101234567",
		OriginEmail: "shop@shop.example",
		VoucherMode: fulfillment.VoucherModeEmail,
	}
}

func newHarness(t *testing.T, cfg fulfillment.Config) *harness {
	t.Helper()
	h := &harness{
		store:    orders.NewMemoryStore(),
		sessions: session.NewMemoryStore(0),
		courier:  mock.New("boxnow"),
		metrics:  telemetry.NewMetrics(prometheus.NewRegistry()),
	}
	h.manager = fulfillment.NewManager(cfg, h.store, h.sessions, h.courier, h.metrics, otelzap.New(zap.NewNop()))
	return h
}

func lockerOrder(id string) *orders.Order {
	return &orders.Order{
		ID:             id,
		Status:         "processing",
		PaymentMethod:  "cod",
		ShippingMethod: fulfillment.DefaultShippingMethod,
		Subtotal:       decimal.RequireFromString("40.00"),
		Total:          decimal.RequireFromString("45.00"),
		Billing: orders.Address{
			FirstName: "Nikos",
			LastName:  "Georgiou",
			Phone:     "6912345678",
			Email:     "nikos@example.com",
		},
		Shipping: orders.Address{FirstName: "Maria", LastName: "Georgiou"},
		Items: []orders.Item{
			{ProductID: "mug", Quantity: 2, Length: "10", Width: "10", Height: "12", Weight: "0.4"},
			{ProductID: "card", Quantity: 1, Length: "20", Width: "15", Height: "1", Weight: "abc"},
		},
		Meta: orders.Metadata{LockerID: "4"},
	}
}

func (h *harness) put(t *testing.T, o *orders.Order) {
	t.Helper()
	require.NoError(t, h.store.Save(context.Background(), o))
}

func (h *harness) get(t *testing.T, id string) *orders.Order {
	t.Helper()
	o, err := h.store.Get(context.Background(), id)
	require.NoError(t, err)
	return o
}

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	require.NoError(t, c.Write(&m))
	return m.GetCounter().GetValue()
}
