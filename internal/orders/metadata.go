package orders

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Host bag keys for courier metadata.
const (
	MetaLockerID        = "_boxnow_locker_id"
	MetaWarehouseID     = "_selected_warehouse"
	MetaParcelIDs       = "_boxnow_parcel_ids"
	MetaVouchersCreated = "_boxnow_vouchers_created"

	// Keys written by older host plugin versions. They are read and
	// folded into the typed fields, then written back under the keys above.
	MetaLegacyVouchersCreated = "_voucher_created"
	MetaLegacyParcelID        = "_boxnow_parcel_id"
)

// Metadata is the typed courier metadata of an order.
type Metadata struct {
	LockerID    string
	WarehouseID string
	ParcelIDs   []string

	// VouchersCreated is set once a creation attempt succeeded and is never
	// cleared, even when every parcel is later cancelled.
	VouchersCreated bool

	// Extra holds keys this service does not own, preserved verbatim.
	Extra map[string]string
}

// MetadataFromBag decodes a host key/value bag.
func MetadataFromBag(bag map[string]string) (Metadata, error) {
	var m Metadata
	legacyParcel := ""
	for key, value := range bag {
		switch key {
		case MetaLockerID:
			m.LockerID = value
		case MetaWarehouseID:
			m.WarehouseID = value
		case MetaParcelIDs:
			ids, err := decodeParcelIDs(value)
			if err != nil {
				return Metadata{}, err
			}
			m.ParcelIDs = ids
		case MetaVouchersCreated, MetaLegacyVouchersCreated:
			m.VouchersCreated = m.VouchersCreated || parseFlag(value)
		case MetaLegacyParcelID:
			legacyParcel = strings.TrimSpace(value)
		default:
			if m.Extra == nil {
				m.Extra = make(map[string]string)
			}
			m.Extra[key] = value
		}
	}
	if legacyParcel != "" && !m.HasParcel(legacyParcel) {
		m.ParcelIDs = append([]string{legacyParcel}, m.ParcelIDs...)
	}
	return m, nil
}

// Bag encodes the metadata back into host keys. Empty fields are omitted.
func (m Metadata) Bag() map[string]string {
	bag := make(map[string]string, len(m.Extra)+4)
	for k, v := range m.Extra {
		bag[k] = v
	}
	if m.LockerID != "" {
		bag[MetaLockerID] = m.LockerID
	}
	if m.WarehouseID != "" {
		bag[MetaWarehouseID] = m.WarehouseID
	}
	if len(m.ParcelIDs) > 0 {
		raw, _ := json.Marshal(m.ParcelIDs)
		bag[MetaParcelIDs] = string(raw)
	}
	if m.VouchersCreated {
		bag[MetaVouchersCreated] = "yes"
	}
	return bag
}

// HasParcel reports whether parcelID is recorded on the order.
func (m Metadata) HasParcel(parcelID string) bool {
	for _, id := range m.ParcelIDs {
		if id == parcelID {
			return true
		}
	}
	return false
}

// RemoveParcel drops the first occurrence of parcelID and reports whether
// it was present.
func (m *Metadata) RemoveParcel(parcelID string) bool {
	for i, id := range m.ParcelIDs {
		if id == parcelID {
			m.ParcelIDs = append(m.ParcelIDs[:i:i], m.ParcelIDs[i+1:]...)
			return true
		}
	}
	return false
}

// Clone returns a deep copy.
func (m Metadata) Clone() Metadata {
	c := m
	c.ParcelIDs = append([]string(nil), m.ParcelIDs...)
	if m.Extra != nil {
		c.Extra = make(map[string]string, len(m.Extra))
		for k, v := range m.Extra {
			c.Extra[k] = v
		}
	}
	return c
}

func decodeParcelIDs(value string) ([]string, error) {
	if strings.TrimSpace(value) == "" {
		return nil, nil
	}
	var ids []string
	if err := json.Unmarshal([]byte(value), &ids); err != nil {
		return nil, fmt.Errorf("orders: decode %s: %w", MetaParcelIDs, err)
	}
	return ids, nil
}

func parseFlag(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "yes", "1", "true":
		return true
	}
	return false
}
