package domain

import "time"

var (
	testDate     = time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC)
	testNextDate = time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC)
)

func createTestLine(seq int, issueNo, sku string, qty float64) OrderLine {
	return OrderLine{
		Seq:             seq,
		IssueNo:         issueNo,
		SKU:             sku,
		PickingQty:      qty,
		ShipTo:          "CUST-A",
		DeliveryDate:    testDate,
		Zone:            "A",
		Location:        "A-01-01",
		LocationType:    "picking",
		StorageLocation: "BATCH-1",
	}
}

func createTestSKU(code string, itemVolume, qtyPerCarton, qtyPerCommercialBox float64) SKUAttributes {
	return SKUAttributes{
		SKUCode:             code,
		ItemVolume:          Float(itemVolume),
		QtyPerCarton:        Float(qtyPerCarton),
		QtyPerCommercialBox: Float(qtyPerCommercialBox),
	}
}

func createTestOrder(issueNo string, lineCount int, volume float64, class OrderClass) Order {
	return Order{
		IssueNo:      issueNo,
		LineCount:    lineCount,
		TotalVolume:  volume,
		Class:        class,
		ShipTo:       "CUST-A",
		DeliveryDate: testDate,
		Zone:         "A",
	}
}

func issueNos(orders []Order) []string {
	ids := make([]string, 0, len(orders))
	for _, o := range orders {
		ids = append(ids, o.IssueNo)
	}
	return ids
}
