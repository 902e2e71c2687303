package domain

import (
	"fmt"
	"strings"
	"time"
)

// ExclusionReason explains why an order was kept out of batching
type ExclusionReason string

const (
	ReasonInvalidDeliveryDate ExclusionReason = "invalid_delivery_date"
	ReasonStorageLocation     ExclusionReason = "storage_location"
	ReasonMissingMasterData   ExclusionReason = "missing_master_data"
)

// ExcludedOrder is an order removed in its entirety, with the reason
type ExcludedOrder struct {
	IssueNo   string          `bson:"issueNo" json:"issueNo"`
	Reason    ExclusionReason `bson:"reason" json:"reason"`
	Details   []string        `bson:"details,omitempty" json:"details,omitempty"`
	LineCount int             `bson:"lineCount" json:"lineCount"`
}

// OrderKind restricts the emitted rows to single-line or multi-line orders
type OrderKind string

const (
	OrderKindAll    OrderKind = "all"
	OrderKindSingle OrderKind = "single"
	OrderKindMulti  OrderKind = "multi"
)

// ParseOrderKind accepts all, single(-line) and multi(-line); empty means all
func ParseOrderKind(s string) (OrderKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "all":
		return OrderKindAll, nil
	case "single", "single-line", "single_line":
		return OrderKindSingle, nil
	case "multi", "multi-line", "multi_line":
		return OrderKindMulti, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidOrderKind, s)
	}
}

// Includes reports whether an order with lineCount lines is in the view
func (k OrderKind) Includes(lineCount int) bool {
	switch k {
	case OrderKindSingle:
		return lineCount == 1
	case OrderKindMulti:
		return lineCount > 1
	default:
		return true
	}
}

// RunOptions are per-run choices that do not change the engine configuration
type RunOptions struct {
	DeliveryFrom *time.Time `bson:"deliveryFrom,omitempty" json:"deliveryFrom,omitempty"`
	DeliveryTo   *time.Time `bson:"deliveryTo,omitempty" json:"deliveryTo,omitempty"`
	OrderKind    OrderKind  `bson:"orderKind,omitempty" json:"orderKind,omitempty"`
}

// LineFilter removes orders and lines that must not reach batching
type LineFilter struct {
	cfg FilterConfig
}

// FilterResult is the outcome of LineFilter.Apply
type FilterResult struct {
	Lines           []OrderLine
	Excluded        []ExcludedOrder
	OutOfScopeLines int
	OutOfRangeLines int
}

// NewLineFilter creates a filter from configuration
func NewLineFilter(cfg FilterConfig) LineFilter {
	return LineFilter{cfg: cfg}
}

// Apply excludes whole orders with an undated line or, when configured, a
// storage line. Remaining lines outside the pick zones, location prefixes or
// the requested delivery range are dropped and counted.
func (f LineFilter) Apply(lines []OrderLine, opts RunOptions) FilterResult {
	var result FilterResult

	excluded := make(map[string]bool)
	for _, group := range groupLinesByIssue(lines) {
		if ex, ok := f.excludeOrder(group); ok {
			result.Excluded = append(result.Excluded, ex)
			excluded[ex.IssueNo] = true
		}
	}

	var from, to string
	if opts.DeliveryFrom != nil {
		from = opts.DeliveryFrom.Format(DateLayout)
	}
	if opts.DeliveryTo != nil {
		to = opts.DeliveryTo.Format(DateLayout)
	}

	for _, line := range lines {
		if excluded[line.IssueNo] {
			continue
		}
		if !f.inScope(line) {
			result.OutOfScopeLines++
			continue
		}
		key := line.DateKey()
		if (from != "" && key < from) || (to != "" && key > to) {
			result.OutOfRangeLines++
			continue
		}
		result.Lines = append(result.Lines, line)
	}

	return result
}

func (f LineFilter) excludeOrder(group []OrderLine) (ExcludedOrder, bool) {
	ex := ExcludedOrder{IssueNo: group[0].IssueNo, LineCount: len(group)}

	for _, line := range group {
		if line.DeliveryDate.IsZero() {
			ex.Reason = ReasonInvalidDeliveryDate
			ex.Details = append(ex.Details, fmt.Sprintf("SKU %s: missing or unparseable delivery date", line.SKU))
		}
	}
	if ex.Reason != "" {
		return ex, true
	}

	if f.cfg.ExcludeStorageOrders {
		for _, line := range group {
			if line.IsStorage() {
				ex.Reason = ReasonStorageLocation
				ex.Details = append(ex.Details, fmt.Sprintf("SKU %s: storage location %s", line.SKU, line.Location))
			}
		}
	}
	return ex, ex.Reason != ""
}

func (f LineFilter) inScope(line OrderLine) bool {
	if len(f.cfg.PickZones) > 0 {
		found := false
		for _, zone := range f.cfg.PickZones {
			if strings.EqualFold(strings.TrimSpace(line.Zone), zone) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if len(f.cfg.LocationPrefixes) > 0 {
		for _, prefix := range f.cfg.LocationPrefixes {
			if strings.HasPrefix(line.Location, prefix) {
				return true
			}
		}
		return false
	}
	return true
}

// EnrichLines joins lines with the SKU master. An order with any line whose
// SKU is unknown or lacks a required attribute is excluded as a whole.
func EnrichLines(lines []OrderLine, master SKUMaster) ([]EnrichedLine, []ExcludedOrder) {
	var enriched []EnrichedLine
	var excluded []ExcludedOrder

	for _, group := range groupLinesByIssue(lines) {
		var details []string
		joined := make([]EnrichedLine, 0, len(group))
		for _, line := range group {
			attrs, ok := master.Lookup(line.SKU)
			if !ok {
				details = append(details, fmt.Sprintf("SKU %s: not found in SKU master", line.SKU))
				continue
			}
			if missing := attrs.MissingFields(); len(missing) > 0 {
				details = append(details, fmt.Sprintf("SKU %s: missing %s", line.SKU, strings.Join(missing, ", ")))
				continue
			}
			joined = append(joined, Enrich(line, attrs))
		}

		if len(details) > 0 {
			excluded = append(excluded, ExcludedOrder{
				IssueNo:   group[0].IssueNo,
				Reason:    ReasonMissingMasterData,
				Details:   details,
				LineCount: len(group),
			})
			continue
		}
		enriched = append(enriched, joined...)
	}

	return enriched, excluded
}

// groupLinesByIssue groups lines by IssueNo in first-seen order
func groupLinesByIssue(lines []OrderLine) [][]OrderLine {
	index := make(map[string]int)
	var groups [][]OrderLine
	for _, line := range lines {
		i, ok := index[line.IssueNo]
		if !ok {
			i = len(groups)
			index[line.IssueNo] = i
			groups = append(groups, nil)
		}
		groups[i] = append(groups[i], line)
	}
	return groups
}
