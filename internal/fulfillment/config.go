// Package fulfillment turns orders into courier vouchers and manages their
// lifecycle: creation on completion, manual batches, cancellation and
// label reprint.
package fulfillment

// Voucher modes.
const (
	// VoucherModeEmail creates one voucher automatically when an order completes.
	VoucherModeEmail = "email"
	// VoucherModeButton leaves voucher creation to the merchant.
	VoucherModeButton = "button"
)

// Defaults applied by Config.withDefaults.
const (
	DefaultCODMethod      = "cod"
	DefaultShippingMethod = "box_now_delivery"
	DefaultCanceledStatus = "boxnow-canceled"
)

// Config holds merchant settings used by the workflow.
type Config struct {
	// Warehouses is the allow-list of origin warehouse IDs; the first entry
	// is used when an order has none.
	Warehouses []string

	OriginPhone string
	OriginEmail string

	VoucherMode    string
	CODMethod      string
	ShippingMethod string
	CanceledStatus string
}

func (c Config) withDefaults() Config {
	if c.VoucherMode == "" {
		c.VoucherMode = VoucherModeButton
	}
	if c.CODMethod == "" {
		c.CODMethod = DefaultCODMethod
	}
	if c.ShippingMethod == "" {
		c.ShippingMethod = DefaultShippingMethod
	}
	if c.CanceledStatus == "" {
		c.CanceledStatus = DefaultCanceledStatus
	}
	return c
}

// DefaultWarehouse returns the first configured warehouse, or "".
func (c Config) DefaultWarehouse() string {
	if len(c.Warehouses) == 0 {
		return ""
	}
	return c.Warehouses[0]
}
