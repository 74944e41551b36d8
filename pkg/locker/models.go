package locker

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// SizeCode is a locker compartment size.
type SizeCode int

const (
	SizeSmall  SizeCode = 1
	SizeMedium SizeCode = 2
	SizeLarge  SizeCode = 3
)

// String returns the lowercase size name.
func (s SizeCode) String() string {
	switch s {
	case SizeSmall:
		return "small"
	case SizeMedium:
		return "medium"
	case SizeLarge:
		return "large"
	default:
		return fmt.Sprintf("size(%d)", int(s))
	}
}

// Valid reports whether s is one of the three compartment sizes.
func (s SizeCode) Valid() bool {
	return s >= SizeSmall && s <= SizeLarge
}

// ParseSize accepts "small", "medium", "large" or the numeric codes 1-3.
func ParseSize(v string) (SizeCode, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "small", "1":
		return SizeSmall, nil
	case "medium", "2":
		return SizeMedium, nil
	case "large", "3":
		return SizeLarge, nil
	}
	return 0, NewValidationError("INVALID_COMPARTMENT_SIZE", ErrInvalidCompartmentSize).
		WithMessage(fmt.Sprintf("unknown compartment size %q", v))
}

// PaymentMode determines whether the courier collects money on delivery.
type PaymentMode string

const (
	PaymentCOD     PaymentMode = "cod"
	PaymentPrepaid PaymentMode = "prepaid"
)

// Dimensions of a product in centimetres.
type Dimensions struct {
	Length float64
	Width  float64
	Height float64
}

// Contact represents the sender or recipient of a parcel.
type Contact struct {
	Name  string
	Phone string
	Email string
}

// DeliveryRequestInput is everything needed to request vouchers for one order.
type DeliveryRequestInput struct {
	OrderID          string
	LockerID         string // destination location
	WarehouseID      string // origin location
	PaymentMode      PaymentMode
	OrderTotal       decimal.Decimal
	ItemSubtotal     decimal.Decimal
	Weight           float64 // kg, sum over all units
	CompartmentSizes []SizeCode
	Destination      Contact
	Origin           Contact
}

// Units returns the number of physical units in the order.
func (in *DeliveryRequestInput) Units() int {
	return len(in.CompartmentSizes)
}

// VoucherRequest asks the courier for Count vouchers of one compartment size.
type VoucherRequest struct {
	Input           *DeliveryRequestInput
	Count           int
	CompartmentSize SizeCode
}

// VoucherResponse holds the courier's answer to a voucher request.
type VoucherResponse struct {
	RequestID string
	ParcelIDs []string
	RawBody   string
}

// Origin is a merchant warehouse registered with the courier.
type Origin struct {
	ID   string
	Name string
}

// Label is a printable voucher document.
type Label struct {
	ParcelID    string
	ContentType string
	Data        []byte
}
