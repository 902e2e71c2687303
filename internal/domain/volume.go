package domain

import "time"

// Order aggregates the lines that share one IssueNo
type Order struct {
	IssueNo      string         `json:"issueNo"`
	Lines        []EnrichedLine `json:"-"`
	LineCount    int            `json:"lineCount"`
	TotalVolume  float64        `json:"totalVolume"`
	Class        OrderClass     `json:"class,omitempty"`
	Label        string         `json:"label,omitempty"`
	ShipTo       string         `json:"shipTo"`
	DeliveryDate time.Time      `json:"deliveryDate"`
	Zone         string         `json:"zone,omitempty"`
}

// DateKey returns the order's delivery date partition key
func (o Order) DateKey() string {
	if o.DeliveryDate.IsZero() {
		return ""
	}
	return o.DeliveryDate.Format(DateLayout)
}

// IsSingleLine reports whether the order has exactly one line
func (o Order) IsSingleLine() bool {
	return o.LineCount == 1
}

// CommercialBoxQty returns the units per commercial box, treating a zero,
// negative or missing value as 1.
func CommercialBoxQty(attrs SKUAttributes) float64 {
	if attrs.QtyPerCommercialBox == nil || *attrs.QtyPerCommercialBox <= 0 {
		return 1
	}
	return *attrs.QtyPerCommercialBox
}

// LineVolume computes (PickingQty / QtyPerCommercialBox) * ItemVolume
func LineVolume(pickingQty float64, attrs SKUAttributes) float64 {
	return pickingQty / CommercialBoxQty(attrs) * floatValue(attrs.ItemVolume)
}

// Enrich joins a line with its SKU attributes and computes its volume
func Enrich(line OrderLine, attrs SKUAttributes) EnrichedLine {
	return EnrichedLine{
		OrderLine:  line,
		Attributes: attrs,
		LineVolume: LineVolume(line.PickingQty, attrs),
	}
}

// AggregateOrders groups enriched lines by IssueNo, in first-seen order.
// Ship-to, delivery date and zone are taken from each order's first line.
func AggregateOrders(lines []EnrichedLine) []Order {
	index := make(map[string]int)
	var orders []Order

	for _, line := range lines {
		i, ok := index[line.IssueNo]
		if !ok {
			i = len(orders)
			index[line.IssueNo] = i
			orders = append(orders, Order{
				IssueNo:      line.IssueNo,
				ShipTo:       line.ShipTo,
				DeliveryDate: line.DeliveryDate,
				Zone:         line.Zone,
			})
		}
		orders[i].Lines = append(orders[i].Lines, line)
		orders[i].LineCount++
		orders[i].TotalVolume += line.LineVolume
	}

	return orders
}
