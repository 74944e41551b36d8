// Package locker provides an abstraction layer for parcel-locker couriers.
package locker

import (
	"context"
)

// Courier defines the interface that a parcel-locker courier integration must implement.
type Courier interface {
	// Name returns the courier identifier (e.g., "boxnow").
	Name() string

	// CreateVouchers registers Count parcels for a delivery request.
	CreateVouchers(ctx context.Context, req *VoucherRequest) (*VoucherResponse, error)

	// CancelParcel cancels a single parcel by its courier-assigned ID.
	CancelParcel(ctx context.Context, parcelID string) error

	// GetLabel retrieves the printable voucher for a parcel.
	GetLabel(ctx context.Context, parcelID string) (*Label, error)

	// ListOrigins returns the merchant warehouses known to the courier.
	ListOrigins(ctx context.Context) ([]Origin, error)
}
