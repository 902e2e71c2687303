package application

import (
	"time"

	"github.com/wms-platform/pick-ticket-service/internal/domain"
)

// PickTicketRunDTO is an archived run with its full result
type PickTicketRunDTO struct {
	RunID          string              `json:"runId"`
	Source         string              `json:"source"`
	Status         string              `json:"status"`
	GeneratedAt    time.Time           `json:"generatedAt"`
	DurationMs     int64               `json:"durationMs"`
	CorrelationID  string              `json:"correlationId,omitempty"`
	WorkflowID     string              `json:"workflowId,omitempty"`
	Options        RunOptionsDTO       `json:"options"`
	Config         domain.EngineConfig `json:"config"`
	Summary        domain.Summary      `json:"summary"`
	Rows           []PickTicketRowDTO  `json:"rows"`
	Jobs           []JobDTO            `json:"jobs"`
	Excluded       []ExcludedOrderDTO  `json:"excluded"`
	PickByOrder    []PickByOrderDTO    `json:"pickByOrder"`
	MultiBatchSKUs []string            `json:"multiBatchSkus"`
	Warnings       []string            `json:"warnings"`
}

// PickTicketRunSummaryDTO is the list view of a run
type PickTicketRunSummaryDTO struct {
	RunID       string         `json:"runId"`
	Source      string         `json:"source"`
	Status      string         `json:"status"`
	Strategy    string         `json:"strategy"`
	GeneratedAt time.Time      `json:"generatedAt"`
	DurationMs  int64          `json:"durationMs"`
	Summary     domain.Summary `json:"summary"`
}

// RunOptionsDTO holds the per-run options with dates as YYYY-MM-DD
type RunOptionsDTO struct {
	DeliveryFrom string `json:"deliveryFrom,omitempty"`
	DeliveryTo   string `json:"deliveryTo,omitempty"`
	OrderKind    string `json:"orderKind"`
}

// PickTicketRowDTO is one row of the master pick ticket
type PickTicketRowDTO struct {
	JobID              string  `json:"jobId"`
	IssueNo            string  `json:"issueNo"`
	SKU                string  `json:"sku"`
	SKUDescription     string  `json:"skuDescription,omitempty"`
	Location           string  `json:"location,omitempty"`
	BatchNo            string  `json:"batchNo,omitempty"`
	PickingQty         float64 `json:"pickingQty"`
	QtyPerCarton       float64 `json:"qtyPerCarton"`
	CommercialBoxCount float64 `json:"commercialBoxCount"`
	DeliveryDate       string  `json:"deliveryDate"`
	ShipTo             string  `json:"shipTo"`
	Type               string  `json:"type"`
	CartonDescription  string  `json:"cartonDescription"`
	ContainerCount     int     `json:"containerCount"`
	TotalOrderVolume   float64 `json:"totalOrderVolume"`
	LineCount          int     `json:"lineCount"`
	MultiBatchSKU      bool    `json:"multiBatchSku"`
}

// JobDTO is one numbered pick job
type JobDTO struct {
	JobID        string   `json:"jobId"`
	Strategy     string   `json:"strategy"`
	Kind         string   `json:"kind"`
	DeliveryDate string   `json:"deliveryDate"`
	IssueNos     []string `json:"issueNos"`
	OrderCount   int      `json:"orderCount"`
	TotalVolume  float64  `json:"totalVolume"`
	Flags        []string `json:"flags,omitempty"`
}

// ExcludedOrderDTO is an order kept out of batching
type ExcludedOrderDTO struct {
	IssueNo   string   `json:"issueNo"`
	Reason    string   `json:"reason"`
	LineCount int      `json:"lineCount"`
	Details   []string `json:"details,omitempty"`
}

// PickByOrderDTO is an oversize order left for individual picking
type PickByOrderDTO struct {
	IssueNo      string  `json:"issueNo"`
	LineCount    int     `json:"lineCount"`
	TotalVolume  float64 `json:"totalVolume"`
	ShipTo       string  `json:"shipTo"`
	DeliveryDate string  `json:"deliveryDate"`
}
