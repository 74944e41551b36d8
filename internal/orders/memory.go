package orders

import (
	"context"
	"fmt"
	"sync"
)

// MemoryStore is an in-process Store.
type MemoryStore struct {
	mu      sync.RWMutex
	orders  map[string]*Order
	parcels map[string]string
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		orders:  make(map[string]*Order),
		parcels: make(map[string]string),
	}
}

// Get returns a copy of the order.
func (s *MemoryStore) Get(_ context.Context, id string) (*Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	o, ok := s.orders[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return o.Clone(), nil
}

// Save stores the order under optimistic concurrency control.
func (s *MemoryStore) Save(_ context.Context, o *Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var current int64
	if existing, ok := s.orders[o.ID]; ok {
		current = existing.Version
	}
	if o.Version != current {
		return fmt.Errorf("%w: %s at version %d, have %d", ErrVersionConflict, o.ID, current, o.Version)
	}

	o.Version++
	s.orders[o.ID] = o.Clone()
	for _, parcelID := range o.Meta.ParcelIDs {
		s.parcels[parcelID] = o.ID
	}
	return nil
}

// FindOrderByParcel looks up the parcel index.
func (s *MemoryStore) FindOrderByParcel(_ context.Context, parcelID string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.parcels[parcelID]
	if !ok {
		return "", fmt.Errorf("%w: parcel %s", ErrNotFound, parcelID)
	}
	return id, nil
}

// Close is a no-op.
func (s *MemoryStore) Close() error {
	return nil
}

var _ Store = (*MemoryStore)(nil)
