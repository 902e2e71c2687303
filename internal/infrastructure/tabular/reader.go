// Package tabular reads the order-line and SKU master tables and writes the
// pick ticket tables as CSV.
package tabular

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/wms-platform/pick-ticket-service/internal/domain"
)

// ErrMissingColumn is returned when a required column has no header
var ErrMissingColumn = errors.New("required column missing")

// ErrNonFinite is returned for NaN or infinite numeric cells
var ErrNonFinite = errors.New("number is not finite")

// column lists the accepted header spellings of one logical field
type column struct {
	name     string
	aliases  []string
	required bool
}

var orderLineColumns = []column{
	{name: "IssueNo", aliases: []string{"issueno", "issue no", "gi no"}, required: true},
	{name: "SKU", aliases: []string{"sku", "sku code", "skucode"}, required: true},
	{name: "SKUDescription", aliases: []string{"skudescription", "sku description"}},
	{name: "PickingQty", aliases: []string{"pickingqty", "picking qty"}, required: true},
	{name: "ShipTo", aliases: []string{"shipto", "shiptoname", "ship to", "ship to name"}, required: true},
	{name: "DeliveryDate", aliases: []string{"deliverydate", "delivery date"}, required: true},
	{name: "Zone", aliases: []string{"zone"}},
	{name: "Location", aliases: []string{"location"}},
	{name: "LocationType", aliases: []string{"locationtype", "location type"}},
	{name: "StorageLocation", aliases: []string{"storagelocation", "storage location", "batchno", "batch no"}},
}

var skuMasterColumns = []column{
	{name: "SKUCode", aliases: []string{"skucode", "sku code", "sku"}, required: true},
	{name: "ItemVolume", aliases: []string{"itemvolume", "item vol", "item volume"}},
	{name: "QtyPerCarton", aliases: []string{"qtypercarton", "qty per carton"}},
	{name: "QtyPerCommercialBox", aliases: []string{"qtypercommercialbox", "qty commercial box", "qty per commercial box"}},
}

var dateLayouts = []string{
	domain.DateLayout,
	"2006-01-02 15:04:05",
	time.RFC3339,
	"02/01/2006",
}

// table maps logical column names to record indexes
type table struct {
	reader  *csv.Reader
	index   map[string]int
	lineNum int
}

func openTable(r io.Reader, columns []column) (*table, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	seen := make(map[string]int, len(header))
	for i, h := range header {
		key := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if _, dup := seen[key]; !dup {
			seen[key] = i
		}
	}

	index := make(map[string]int, len(columns))
	var missing []string
	for _, col := range columns {
		found := false
		for _, alias := range col.aliases {
			if i, ok := seen[alias]; ok {
				index[col.name] = i
				found = true
				break
			}
		}
		if !found && col.required {
			missing = append(missing, col.name)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumn, strings.Join(missing, ", "))
	}

	return &table{reader: reader, index: index, lineNum: 1}, nil
}

// next returns the next non-empty record, or io.EOF
func (t *table) next() ([]string, error) {
	for {
		record, err := t.reader.Read()
		if err != nil {
			return nil, err
		}
		t.lineNum++
		if !blankRecord(record) {
			return record, nil
		}
	}
}

func (t *table) get(record []string, name string) string {
	i, ok := t.index[name]
	if !ok || i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}

func blankRecord(record []string) bool {
	for _, v := range record {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// ReadOrderLines parses the order-line table. Seq follows input order.
// Unparseable delivery dates become the zero time so the engine can exclude
// the order; an unparseable PickingQty is an error.
func ReadOrderLines(r io.Reader) ([]domain.OrderLine, error) {
	t, err := openTable(r, orderLineColumns)
	if err != nil {
		return nil, fmt.Errorf("order lines: %w", err)
	}

	lines := make([]domain.OrderLine, 0)
	for {
		record, err := t.next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("order lines: %w", err)
		}

		qty, ok, err := parseNumber(t.get(record, "PickingQty"))
		if err != nil {
			return nil, fmt.Errorf("order lines: line %d: PickingQty: %w", t.lineNum, err)
		}
		if !ok {
			qty = 0
		}

		lines = append(lines, domain.OrderLine{
			Seq:             len(lines),
			IssueNo:         t.get(record, "IssueNo"),
			SKU:             t.get(record, "SKU"),
			SKUDescription:  t.get(record, "SKUDescription"),
			PickingQty:      qty,
			ShipTo:          t.get(record, "ShipTo"),
			DeliveryDate:    ParseDate(t.get(record, "DeliveryDate")),
			Zone:            t.get(record, "Zone"),
			Location:        t.get(record, "Location"),
			LocationType:    t.get(record, "LocationType"),
			StorageLocation: t.get(record, "StorageLocation"),
		})
	}
	return lines, nil
}

// ReadSKUMaster parses the SKU master table. Blank or non-numeric cells are
// treated as missing attributes.
func ReadSKUMaster(r io.Reader) (domain.SKUMaster, error) {
	t, err := openTable(r, skuMasterColumns)
	if err != nil {
		return nil, fmt.Errorf("sku master: %w", err)
	}

	entries := make([]domain.SKUAttributes, 0)
	for {
		record, err := t.next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("sku master: %w", err)
		}

		entries = append(entries, domain.SKUAttributes{
			SKUCode:             t.get(record, "SKUCode"),
			ItemVolume:          optionalNumber(t.get(record, "ItemVolume")),
			QtyPerCarton:        optionalNumber(t.get(record, "QtyPerCarton")),
			QtyPerCommercialBox: optionalNumber(t.get(record, "QtyPerCommercialBox")),
		})
	}
	return domain.NewSKUMaster(entries), nil
}

// ParseDate accepts the supported layouts and returns the zero time for
// anything else
func ParseDate(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			y, m, d := t.Date()
			return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
		}
	}
	return time.Time{}
}

func parseNumber(s string) (float64, bool, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if s == "" {
		return 0, false, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false, err
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false, fmt.Errorf("%q: %w", s, ErrNonFinite)
	}
	return f, true, nil
}

func optionalNumber(s string) *float64 {
	f, ok, err := parseNumber(s)
	if err != nil || !ok {
		return nil
	}
	return domain.Float(f)
}
