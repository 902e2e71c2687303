package domain

import (
	"sort"
	"strings"
	"time"
)

// DateLayout is the canonical delivery date key format
const DateLayout = "2006-01-02"

// OrderLine is one SKU + quantity entry of an outbound order (GI)
type OrderLine struct {
	Seq             int       `bson:"seq" json:"seq"`
	IssueNo         string    `bson:"issueNo" json:"issueNo"`
	SKU             string    `bson:"sku" json:"sku"`
	SKUDescription  string    `bson:"skuDescription,omitempty" json:"skuDescription,omitempty"`
	PickingQty      float64   `bson:"pickingQty" json:"pickingQty"`
	ShipTo          string    `bson:"shipTo" json:"shipTo"`
	DeliveryDate    time.Time `bson:"deliveryDate" json:"deliveryDate"`
	Zone            string    `bson:"zone,omitempty" json:"zone,omitempty"`
	Location        string    `bson:"location,omitempty" json:"location,omitempty"`
	LocationType    string    `bson:"locationType,omitempty" json:"locationType,omitempty"`
	StorageLocation string    `bson:"storageLocation,omitempty" json:"storageLocation,omitempty"`
}

// DateKey returns the delivery date formatted as a partition key, or an
// empty string when the line has no usable delivery date.
func (l OrderLine) DateKey() string {
	if l.DeliveryDate.IsZero() {
		return ""
	}
	return l.DeliveryDate.Format(DateLayout)
}

// IsStorage reports whether the line is picked from a storage location
func (l OrderLine) IsStorage() bool {
	return strings.EqualFold(strings.TrimSpace(l.LocationType), "storage")
}

// SKUAttributes holds the packaging master data of one SKU. Numeric
// attributes are optional so that a missing value can be told apart from zero.
type SKUAttributes struct {
	SKUCode             string   `bson:"skuCode" json:"skuCode"`
	ItemVolume          *float64 `bson:"itemVolume,omitempty" json:"itemVolume,omitempty"`
	QtyPerCarton        *float64 `bson:"qtyPerCarton,omitempty" json:"qtyPerCarton,omitempty"`
	QtyPerCommercialBox *float64 `bson:"qtyPerCommercialBox,omitempty" json:"qtyPerCommercialBox,omitempty"`
}

// MissingFields lists the required numeric attributes that are not set
func (a SKUAttributes) MissingFields() []string {
	var missing []string
	if a.ItemVolume == nil {
		missing = append(missing, "ItemVolume")
	}
	if a.QtyPerCarton == nil {
		missing = append(missing, "QtyPerCarton")
	}
	if a.QtyPerCommercialBox == nil {
		missing = append(missing, "QtyPerCommercialBox")
	}
	return missing
}

// SKUMaster indexes SKU attributes by SKU code
type SKUMaster map[string]SKUAttributes

// NewSKUMaster builds a master lookup. Codes are trimmed; when a code appears
// more than once the first entry wins.
func NewSKUMaster(entries []SKUAttributes) SKUMaster {
	master := make(SKUMaster, len(entries))
	for _, entry := range entries {
		code := strings.TrimSpace(entry.SKUCode)
		if code == "" {
			continue
		}
		if _, exists := master[code]; exists {
			continue
		}
		entry.SKUCode = code
		master[code] = entry
	}
	return master
}

// Lookup returns the attributes for a SKU
func (m SKUMaster) Lookup(sku string) (SKUAttributes, bool) {
	attrs, ok := m[strings.TrimSpace(sku)]
	return attrs, ok
}

// Entries returns the master entries sorted by SKU code
func (m SKUMaster) Entries() []SKUAttributes {
	codes := make([]string, 0, len(m))
	for code := range m {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	entries := make([]SKUAttributes, 0, len(codes))
	for _, code := range codes {
		entries = append(entries, m[code])
	}
	return entries
}

// EnrichedLine is an order line joined with its SKU attributes
type EnrichedLine struct {
	OrderLine
	Attributes SKUAttributes
	LineVolume float64
}

// Float returns a pointer to v, for optional numeric attributes
func Float(v float64) *float64 {
	return &v
}

func floatValue(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}
