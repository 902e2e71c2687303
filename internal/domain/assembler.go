package domain

import (
	"sort"
	"time"
)

// PickTicketRow is one line of the master pick ticket
type PickTicketRow struct {
	IssueNo            string    `bson:"issueNo" json:"issueNo"`
	SKU                string    `bson:"sku" json:"sku"`
	SKUDescription     string    `bson:"skuDescription,omitempty" json:"skuDescription,omitempty"`
	Location           string    `bson:"location,omitempty" json:"location,omitempty"`
	BatchNo            string    `bson:"batchNo,omitempty" json:"batchNo,omitempty"`
	PickingQty         float64   `bson:"pickingQty" json:"pickingQty"`
	QtyPerCarton       float64   `bson:"qtyPerCarton" json:"qtyPerCarton"`
	CommercialBoxCount float64   `bson:"commercialBoxCount" json:"commercialBoxCount"`
	DeliveryDate       time.Time `bson:"deliveryDate" json:"deliveryDate"`
	ShipTo             string    `bson:"shipTo" json:"shipTo"`
	Type               string    `bson:"type" json:"type"`
	JobID              string    `bson:"jobId" json:"jobId"`
	CartonDescription  string    `bson:"cartonDescription" json:"cartonDescription"`
	ContainerCount     int       `bson:"containerCount" json:"containerCount"`
	TotalOrderVolume   float64   `bson:"totalOrderVolume" json:"totalOrderVolume"`
	LineCount          int       `bson:"lineCount" json:"lineCount"`
	MultiBatchSKU      bool      `bson:"multiBatchSku" json:"multiBatchSku"`
}

// PickByOrder is an oversize order left for individual picking
type PickByOrder struct {
	IssueNo      string    `bson:"issueNo" json:"issueNo"`
	LineCount    int       `bson:"lineCount" json:"lineCount"`
	TotalVolume  float64   `bson:"totalVolume" json:"totalVolume"`
	ShipTo       string    `bson:"shipTo" json:"shipTo"`
	DeliveryDate time.Time `bson:"deliveryDate" json:"deliveryDate"`
}

// Assembler joins orders, carton plans and job assignments into rows
type Assembler struct{}

// Assemble builds the row set for the orders in view. plans is keyed by the
// line's input sequence number. Rows are ordered by job sequence number,
// IssueNo and input sequence; exact duplicates are dropped.
func (Assembler) Assemble(orders []Order, plans map[int]CartonPlan, assignments map[string]string, view OrderKind) []PickTicketRow {
	type sequencedRow struct {
		PickTicketRow
		seq int
	}

	var rows []sequencedRow
	for _, order := range orders {
		if !view.Includes(order.LineCount) {
			continue
		}
		for _, line := range order.Lines {
			plan := plans[line.Seq]
			rows = append(rows, sequencedRow{seq: line.Seq, PickTicketRow: PickTicketRow{
				IssueNo:            order.IssueNo,
				SKU:                line.SKU,
				SKUDescription:     line.SKUDescription,
				Location:           line.Location,
				BatchNo:            line.StorageLocation,
				PickingQty:         line.PickingQty,
				QtyPerCarton:       floatValue(line.Attributes.QtyPerCarton),
				CommercialBoxCount: line.PickingQty / CommercialBoxQty(line.Attributes),
				DeliveryDate:       line.DeliveryDate,
				ShipTo:             line.ShipTo,
				Type:               order.Label,
				JobID:              assignments[order.IssueNo],
				CartonDescription:  plan.Description,
				ContainerCount:     plan.ContainerCount,
				TotalOrderVolume:   order.TotalVolume,
				LineCount:          order.LineCount,
			}})
		}
	}

	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if c := CompareJobIDs(a.JobID, b.JobID); c != 0 {
			return c < 0
		}
		if a.IssueNo != b.IssueNo {
			return a.IssueNo < b.IssueNo
		}
		return a.seq < b.seq
	})

	seen := make(map[PickTicketRow]struct{}, len(rows))
	out := make([]PickTicketRow, 0, len(rows))
	for _, row := range rows {
		if _, dup := seen[row.PickTicketRow]; dup {
			continue
		}
		seen[row.PickTicketRow] = struct{}{}
		out = append(out, row.PickTicketRow)
	}
	return out
}

// FlagMultiBatchSKUs marks rows whose SKU is picked from more than one batch
// in the row set, and returns those SKUs sorted.
func FlagMultiBatchSKUs(rows []PickTicketRow) []string {
	batches := make(map[string]map[string]struct{})
	for _, row := range rows {
		if batches[row.SKU] == nil {
			batches[row.SKU] = make(map[string]struct{})
		}
		batches[row.SKU][row.BatchNo] = struct{}{}
	}

	var skus []string
	for sku, set := range batches {
		if len(set) > 1 {
			skus = append(skus, sku)
		}
	}
	sort.Strings(skus)

	multi := make(map[string]bool, len(skus))
	for _, sku := range skus {
		multi[sku] = true
	}
	for i := range rows {
		rows[i].MultiBatchSKU = multi[rows[i].SKU]
	}
	return skus
}

// VerifyJobIntegrity checks that every IssueNo in the rows carries exactly
// one non-empty JobID.
func VerifyJobIntegrity(rows []PickTicketRow) error {
	jobs := make(map[string]string)
	violations := make(map[string]struct{})
	for _, row := range rows {
		if row.JobID == "" {
			violations[row.IssueNo] = struct{}{}
			continue
		}
		if prev, ok := jobs[row.IssueNo]; ok && prev != row.JobID {
			violations[row.IssueNo] = struct{}{}
			continue
		}
		jobs[row.IssueNo] = row.JobID
	}
	if len(violations) > 0 {
		return newJobIntegrityError(violations)
	}
	return nil
}
