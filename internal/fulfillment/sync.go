package fulfillment

import (
	"context"
	"errors"

	"github.com/tournevent/lockerlink/internal/orders"
	"go.uber.org/zap"
)

// SyncOrder stores a snapshot pushed by the host platform. New orders are
// taken as-is. For known orders the document and foreign metadata are
// replaced, locker and warehouse are updated when the snapshot carries
// them, and the parcel list and vouchers-created flag stay as this service
// recorded them.
func (m *Manager) SyncOrder(ctx context.Context, snapshot *orders.Order) (*orders.Order, error) {
	unlock := m.locks.Lock(snapshot.ID)
	defer unlock()

	_, err := m.store.Get(ctx, snapshot.ID)
	if errors.Is(err, orders.ErrNotFound) {
		o := snapshot.Clone()
		o.Version = 0
		if err := m.store.Save(ctx, o); err != nil {
			return nil, err
		}
		m.logger.Ctx(ctx).Info("Order imported", zap.String("order_id", o.ID))
		return o, nil
	}
	if err != nil {
		return nil, err
	}

	return orders.Mutate(ctx, m.store, snapshot.ID, func(o *orders.Order) error {
		meta := o.Meta
		version := o.Version

		*o = *snapshot.Clone()
		o.Version = version
		o.Meta.ParcelIDs = meta.ParcelIDs
		o.Meta.VouchersCreated = meta.VouchersCreated
		if o.Meta.LockerID == "" {
			o.Meta.LockerID = meta.LockerID
		}
		if o.Meta.WarehouseID == "" {
			o.Meta.WarehouseID = meta.WarehouseID
		}
		return nil
	})
}
