package fulfillment

import (
	"context"
	"errors"
	"strings"

	"github.com/tournevent/lockerlink/internal/orders"
	"github.com/tournevent/lockerlink/pkg/locker"
	"go.uber.org/zap"
)

// ErrMissingSession indicates a checkout call without a session ID.
var ErrMissingSession = errors.New("missing session id")

// CheckoutRequest is a checkout submission as seen by the service.
type CheckoutRequest struct {
	SessionID      string
	ShippingMethod string
	LockerID       string // form field; takes precedence over the session
}

// SelectLocker remembers the locker a shopper picked on the map.
func (m *Manager) SelectLocker(ctx context.Context, sessionID, lockerID string) error {
	if sessionID == "" {
		return ErrMissingSession
	}
	lockerID = strings.TrimSpace(lockerID)
	if lockerID == "" {
		return locker.NewValidationError("MISSING_LOCKER", locker.ErrMissingLocker)
	}
	return m.sessions.SetLocker(ctx, sessionID, lockerID)
}

// ValidateCheckout rejects a locker-shipped checkout without a locker.
func (m *Manager) ValidateCheckout(ctx context.Context, req CheckoutRequest) error {
	if req.ShippingMethod != m.cfg.ShippingMethod {
		return nil
	}
	lockerID, err := m.checkoutLocker(ctx, req.SessionID, req.LockerID)
	if err != nil {
		return err
	}
	if lockerID == "" {
		return locker.NewValidationError("MISSING_LOCKER", locker.ErrMissingLocker).
			WithMessage("please select a locker before placing the order")
	}
	return nil
}

// AttachCheckout copies the checkout locker onto a newly placed order,
// defaults its warehouse and clears the session selection. Orders shipped
// by other methods are left untouched.
func (m *Manager) AttachCheckout(ctx context.Context, orderID string, req CheckoutRequest) (*orders.Order, error) {
	unlock := m.locks.Lock(orderID)
	defer unlock()

	o, err := m.store.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o.ShippingMethod != m.cfg.ShippingMethod {
		return o, nil
	}

	lockerID, err := m.checkoutLocker(ctx, req.SessionID, req.LockerID)
	if err != nil {
		return nil, err
	}
	if lockerID == "" {
		lockerID = o.Meta.LockerID
	}
	if lockerID == "" {
		return nil, locker.NewValidationError("MISSING_LOCKER", locker.ErrMissingLocker)
	}

	saved, err := orders.Mutate(ctx, m.store, orderID, func(o *orders.Order) error {
		o.Meta.LockerID = lockerID
		if o.Meta.WarehouseID == "" {
			o.Meta.WarehouseID = m.cfg.DefaultWarehouse()
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if req.SessionID != "" {
		if err := m.sessions.Clear(ctx, req.SessionID); err != nil {
			m.logger.Ctx(ctx).Warn("Failed to clear checkout session",
				zap.String("order_id", orderID),
				zap.Error(err),
			)
		}
	}

	m.logger.Ctx(ctx).Info("Locker attached to order",
		zap.String("order_id", orderID),
		zap.String("locker_id", saved.Meta.LockerID),
		zap.String("warehouse_id", saved.Meta.WarehouseID),
	)
	return saved, nil
}

func (m *Manager) checkoutLocker(ctx context.Context, sessionID, formLocker string) (string, error) {
	if lockerID := strings.TrimSpace(formLocker); lockerID != "" {
		return lockerID, nil
	}
	if sessionID == "" {
		return "", nil
	}
	return m.sessions.Locker(ctx, sessionID)
}
