package domain

import (
	"fmt"
	"sort"
)

// OrderClass is the volume-based size class of an order
type OrderClass string

const (
	ClassBin      OrderClass = "Bin"      // picked into a bin
	ClassLayer    OrderClass = "Layer"    // picked onto a pallet layer
	ClassOversize OrderClass = "Oversize" // picked by order, never batched
)

// Classifier maps order volumes to size classes. The volume axis is split
// into [0, BinMaxVolume), [BinMaxVolume, LayerMaxVolume) and
// [LayerMaxVolume, +inf).
type Classifier struct {
	BinMaxVolume   float64
	LayerMaxVolume float64
}

// NewClassifier creates a classifier from configuration
func NewClassifier(cfg ClassificationConfig) Classifier {
	return Classifier{
		BinMaxVolume:   cfg.BinMaxVolume,
		LayerMaxVolume: cfg.LayerMaxVolume,
	}
}

// Classify returns the class for a total order volume
func (c Classifier) Classify(volume float64) OrderClass {
	switch {
	case volume < c.BinMaxVolume:
		return ClassBin
	case volume < c.LayerMaxVolume:
		return ClassLayer
	default:
		return ClassOversize
	}
}

// ClassifyOrders sets the class of every order and splits them into the
// orders eligible for batching and the oversize orders. Eligible orders get
// a per-class sequence label (Bin001, Layer001, ...) assigned in IssueNo
// order; both returned slices are sorted by IssueNo.
func (c Classifier) ClassifyOrders(orders []Order) (included []Order, oversize []Order) {
	sorted := make([]Order, len(orders))
	copy(sorted, orders)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].IssueNo < sorted[j].IssueNo
	})

	counters := map[OrderClass]int{}
	for _, order := range sorted {
		order.Class = c.Classify(order.TotalVolume)
		if order.Class == ClassOversize {
			oversize = append(oversize, order)
			continue
		}
		counters[order.Class]++
		order.Label = SequenceLabel(order.Class, counters[order.Class])
		included = append(included, order)
	}

	return included, oversize
}

// SequenceLabel formats a per-class label such as Bin001
func SequenceLabel(class OrderClass, n int) string {
	return fmt.Sprintf("%s%03d", class, n)
}
