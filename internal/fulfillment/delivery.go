package fulfillment

import (
	"context"
	"fmt"
	"time"

	"github.com/tournevent/lockerlink/internal/orders"
	"github.com/tournevent/lockerlink/internal/telemetry"
	"github.com/tournevent/lockerlink/pkg/locker"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

// DeliveryService sends voucher requests and records the parcels on the order.
type DeliveryService struct {
	courier locker.Courier
	store   orders.Store
	metrics *telemetry.Metrics
	logger  *otelzap.Logger
}

// NewDeliveryService creates a DeliveryService.
func NewDeliveryService(courier locker.Courier, store orders.Store, metrics *telemetry.Metrics, logger *otelzap.Logger) *DeliveryService {
	return &DeliveryService{courier: courier, store: store, metrics: metrics, logger: logger}
}

// Request asks the courier for vouchers, then appends the returned parcel
// IDs to the order and sets its vouchers-created flag.
func (s *DeliveryService) Request(ctx context.Context, orderID string, req *locker.VoucherRequest) (*locker.VoucherResponse, error) {
	start := time.Now()
	resp, err := s.courier.CreateVouchers(ctx, req)
	observe(s.metrics, s.courier.Name(), "create_vouchers", start, err)
	if err != nil {
		s.logger.Ctx(ctx).Error("Voucher request failed",
			zap.String("order_id", orderID),
			zap.Error(err),
		)
		return nil, err
	}

	_, err = orders.Mutate(ctx, s.store, orderID, func(o *orders.Order) error {
		o.Meta.ParcelIDs = append(o.Meta.ParcelIDs, resp.ParcelIDs...)
		o.Meta.VouchersCreated = true
		return nil
	})
	if err != nil {
		// The parcels exist at the courier; keep their IDs in the log.
		s.logger.Ctx(ctx).Error("Failed to record created parcels",
			zap.String("order_id", orderID),
			zap.Strings("parcel_ids", resp.ParcelIDs),
			zap.Error(err),
		)
		return nil, fmt.Errorf("record parcels for order %s: %w", orderID, err)
	}

	s.logger.Ctx(ctx).Info("Vouchers created",
		zap.String("order_id", orderID),
		zap.String("request_id", resp.RequestID),
		zap.Strings("parcel_ids", resp.ParcelIDs),
	)
	return resp, nil
}

func observe(m *telemetry.Metrics, courier, operation string, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
		kind := string(locker.KindOf(err))
		if kind == "" {
			kind = "internal"
		}
		m.RecordError(courier, kind)
	}
	m.RecordRequest(operation, courier, status, time.Since(start).Seconds())
}
