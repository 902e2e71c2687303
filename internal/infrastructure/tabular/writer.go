package tabular

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/wms-platform/pick-ticket-service/internal/domain"
)

// Table names accepted by WriteTable
const (
	TablePrimary     = "primary"
	TableExcluded    = "excluded"
	TablePickByOrder = "pickByOrder"
)

var primaryHeader = []string{
	"JobID", "IssueNo", "SKU", "SKUDescription", "Location", "BatchNo",
	"PickingQty", "QtyPerCarton", "CommercialBoxCount", "DeliveryDate", "ShipTo",
	"Type", "CartonDescription", "ContainerCount", "TotalOrderVolume", "LineCount",
	"MultiBatchSKU",
}

// WriteTable writes one of the pick ticket tables
func WriteTable(w io.Writer, ticket *domain.PickTicket, table string) error {
	switch table {
	case TablePrimary, "":
		return WritePickTicket(w, ticket.Rows)
	case TableExcluded:
		return WriteExcluded(w, ticket.Excluded)
	case TablePickByOrder:
		return WritePickByOrder(w, ticket.PickByOrder)
	default:
		return fmt.Errorf("unknown table %q", table)
	}
}

// WritePickTicket writes the primary job assignment table
func WritePickTicket(w io.Writer, rows []domain.PickTicketRow) error {
	records := make([][]string, 0, len(rows)+1)
	records = append(records, primaryHeader)
	for _, row := range rows {
		records = append(records, []string{
			row.JobID,
			row.IssueNo,
			row.SKU,
			row.SKUDescription,
			row.Location,
			row.BatchNo,
			formatNumber(row.PickingQty),
			formatNumber(row.QtyPerCarton),
			formatNumber(row.CommercialBoxCount),
			formatDate(row.DeliveryDate),
			row.ShipTo,
			row.Type,
			row.CartonDescription,
			strconv.Itoa(row.ContainerCount),
			formatNumber(row.TotalOrderVolume),
			strconv.Itoa(row.LineCount),
			strconv.FormatBool(row.MultiBatchSKU),
		})
	}
	return writeAll(w, records)
}

// WriteExcluded writes the excluded orders with their reasons
func WriteExcluded(w io.Writer, excluded []domain.ExcludedOrder) error {
	records := [][]string{{"IssueNo", "Reason", "LineCount", "Details"}}
	for _, ex := range excluded {
		records = append(records, []string{
			ex.IssueNo,
			string(ex.Reason),
			strconv.Itoa(ex.LineCount),
			strings.Join(ex.Details, "; "),
		})
	}
	return writeAll(w, records)
}

// WritePickByOrder writes the oversize orders that are picked individually
func WritePickByOrder(w io.Writer, orders []domain.PickByOrder) error {
	records := [][]string{{"IssueNo", "LineCount", "TotalVolume", "ShipTo", "DeliveryDate"}}
	for _, o := range orders {
		records = append(records, []string{
			o.IssueNo,
			strconv.Itoa(o.LineCount),
			formatNumber(o.TotalVolume),
			o.ShipTo,
			formatDate(o.DeliveryDate),
		})
	}
	return writeAll(w, records)
}

func writeAll(w io.Writer, records [][]string) error {
	cw := csv.NewWriter(w)
	if err := cw.WriteAll(records); err != nil {
		return fmt.Errorf("failed to write csv: %w", err)
	}
	return nil
}

func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(domain.DateLayout)
}
