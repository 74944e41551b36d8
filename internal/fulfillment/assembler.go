package fulfillment

import (
	"context"

	"github.com/tournevent/lockerlink/internal/orders"
	"github.com/tournevent/lockerlink/pkg/locker"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

// Override replaces the locker or warehouse stored on an order. Empty
// fields leave the stored value alone.
type Override struct {
	LockerID    string
	WarehouseID string
}

// Assembler builds delivery request inputs from orders.
type Assembler struct {
	store  orders.Store
	cfg    Config
	logger *otelzap.Logger
}

// NewAssembler creates an Assembler.
func NewAssembler(store orders.Store, cfg Config, logger *otelzap.Logger) *Assembler {
	return &Assembler{store: store, cfg: cfg.withDefaults(), logger: logger}
}

// Assemble validates the order and collects everything a voucher request
// needs. Overrides and a defaulted warehouse are persisted before
// validation, so they survive a failed request; o is updated in place.
func (a *Assembler) Assemble(ctx context.Context, o *orders.Order, ov Override) (*locker.DeliveryRequestInput, error) {
	lockerID := o.Meta.LockerID
	if ov.LockerID != "" {
		lockerID = ov.LockerID
	}
	warehouseID := o.Meta.WarehouseID
	if ov.WarehouseID != "" {
		warehouseID = ov.WarehouseID
	}
	if warehouseID == "" {
		warehouseID = a.cfg.DefaultWarehouse()
	}

	if lockerID != o.Meta.LockerID || warehouseID != o.Meta.WarehouseID {
		saved, err := orders.Mutate(ctx, a.store, o.ID, func(stored *orders.Order) error {
			stored.Meta.LockerID = lockerID
			stored.Meta.WarehouseID = warehouseID
			return nil
		})
		if err != nil {
			return nil, err
		}
		*o = *saved
		a.logger.Ctx(ctx).Info("Updated order locker selection",
			zap.String("order_id", o.ID),
			zap.String("locker_id", lockerID),
			zap.String("warehouse_id", warehouseID),
		)
	}

	if lockerID == "" {
		return nil, locker.NewValidationError("MISSING_LOCKER", locker.ErrMissingLocker)
	}
	if warehouseID == "" {
		return nil, locker.NewValidationError("MISSING_WAREHOUSE", locker.ErrMissingWarehouse)
	}
	if o.Billing.Phone == "" {
		return nil, locker.NewValidationError("MISSING_PHONE", locker.ErrMissingPhone)
	}

	var (
		weight float64
		sizes  []locker.SizeCode
	)
	for _, item := range o.Items {
		if item.Quantity <= 0 {
			continue
		}
		size, err := locker.SizeFor(item.Dimensions())
		if err != nil {
			return nil, err
		}
		for i := 0; i < item.Quantity; i++ {
			sizes = append(sizes, size)
		}
		weight += item.WeightKg() * float64(item.Quantity)
	}
	if len(sizes) == 0 {
		return nil, locker.NewValidationError("NO_ITEMS", locker.ErrInvalidQuantity).
			WithMessage("order has no items to ship")
	}

	paymentMode := locker.PaymentPrepaid
	if o.PaymentMethod == a.cfg.CODMethod {
		paymentMode = locker.PaymentCOD
	}

	name := o.Shipping.FullName()
	if name == "" {
		name = o.Billing.FullName()
	}

	return &locker.DeliveryRequestInput{
		OrderID:          o.ID,
		LockerID:         lockerID,
		WarehouseID:      warehouseID,
		PaymentMode:      paymentMode,
		OrderTotal:       o.Total,
		ItemSubtotal:     o.Subtotal,
		Weight:           weight,
		CompartmentSizes: sizes,
		Destination: locker.Contact{
			Name:  name,
			Phone: locker.NormalizePhone(o.Billing.Phone),
			Email: o.Billing.Email,
		},
		Origin: locker.Contact{
			Phone: a.cfg.OriginPhone,
			Email: a.cfg.OriginEmail,
		},
	}, nil
}
