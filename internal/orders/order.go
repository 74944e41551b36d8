// Package orders mirrors the host platform's orders and persists the
// courier metadata attached to them.
package orders

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/tournevent/lockerlink/pkg/locker"
)

// Address is a billing or shipping address.
type Address struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Company   string `json:"company,omitempty"`
	Address1  string `json:"address_1,omitempty"`
	Address2  string `json:"address_2,omitempty"`
	City      string `json:"city,omitempty"`
	Postcode  string `json:"postcode,omitempty"`
	Country   string `json:"country,omitempty"`
	Email     string `json:"email,omitempty"`
	Phone     string `json:"phone,omitempty"`
}

// FullName joins first and last name.
func (a Address) FullName() string {
	return strings.TrimSpace(a.FirstName + " " + a.LastName)
}

// Item is an order line. Dimensions and weight are kept as the host
// platform reports them and may be empty or non-numeric.
type Item struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name,omitempty"`
	Quantity  int    `json:"quantity"`
	Length    string `json:"length,omitempty"` // cm
	Width     string `json:"width,omitempty"`  // cm
	Height    string `json:"height,omitempty"` // cm
	Weight    string `json:"weight,omitempty"` // kg
}

// Dimensions returns the item dimensions; unparsable values count as zero.
func (i Item) Dimensions() locker.Dimensions {
	return locker.Dimensions{
		Length: parseNumber(i.Length),
		Width:  parseNumber(i.Width),
		Height: parseNumber(i.Height),
	}
}

// WeightKg returns the unit weight; unparsable values count as zero.
func (i Item) WeightKg() float64 {
	return parseNumber(i.Weight)
}

// Order is the service's view of a host platform order.
type Order struct {
	ID             string          `json:"id"`
	Status         string          `json:"status"`
	PaymentMethod  string          `json:"payment_method"`
	ShippingMethod string          `json:"shipping_method"`
	Subtotal       decimal.Decimal `json:"subtotal"`
	Total          decimal.Decimal `json:"total"`
	Billing        Address         `json:"billing"`
	Shipping       Address         `json:"shipping"`
	Items          []Item          `json:"items"`

	// Meta and Version are stored alongside the document, not inside it.
	Meta    Metadata `json:"-"`
	Version int64    `json:"-"`
}

// Units returns the total quantity over all line items.
func (o *Order) Units() int {
	n := 0
	for _, item := range o.Items {
		n += item.Quantity
	}
	return n
}

// Clone returns a deep copy of the order.
func (o *Order) Clone() *Order {
	c := *o
	c.Items = append([]Item(nil), o.Items...)
	c.Meta = o.Meta.Clone()
	return &c
}

func parseNumber(s string) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return f
}
