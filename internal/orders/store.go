package orders

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrNotFound indicates the order or parcel is unknown.
	ErrNotFound = errors.New("order not found")

	// ErrVersionConflict indicates the order changed since it was read.
	ErrVersionConflict = errors.New("order version conflict")
)

// Store persists orders and the parcel->order index.
type Store interface {
	// Get returns a copy of the order.
	Get(ctx context.Context, id string) (*Order, error)

	// Save writes the order if its Version matches the stored one (0 for a
	// new order) and increments Version on success. Every parcel ID in
	// o.Meta.ParcelIDs is added to the parcel index.
	Save(ctx context.Context, o *Order) error

	// FindOrderByParcel returns the ID of the order a parcel belongs to.
	FindOrderByParcel(ctx context.Context, parcelID string) (string, error)

	Close() error
}

// maxMutateAttempts bounds read-modify-write retries on version conflict.
const maxMutateAttempts = 3

// Mutate loads an order, applies fn and saves it, retrying on version
// conflicts. fn may run more than once and must only touch the order.
func Mutate(ctx context.Context, store Store, id string, fn func(*Order) error) (*Order, error) {
	var lastErr error
	for attempt := 0; attempt < maxMutateAttempts; attempt++ {
		o, err := store.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		if err := fn(o); err != nil {
			return nil, err
		}
		err = store.Save(ctx, o)
		if err == nil {
			return o, nil
		}
		if !errors.Is(err, ErrVersionConflict) {
			return nil, err
		}
		lastErr = err
	}
	return nil, fmt.Errorf("orders: mutate %q: %w", id, lastErr)
}
