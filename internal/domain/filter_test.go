package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLineFilter_ExcludesUndatedOrders(t *testing.T) {
	undated := createTestLine(2, "GI-001", "SKU-2", 5)
	undated.DeliveryDate = time.Time{}
	lines := []OrderLine{
		createTestLine(1, "GI-001", "SKU-1", 5),
		undated,
		createTestLine(3, "GI-002", "SKU-1", 5),
	}

	result := NewLineFilter(FilterConfig{}).Apply(lines, RunOptions{})

	require.Len(t, result.Excluded, 1)
	assert.Equal(t, "GI-001", result.Excluded[0].IssueNo)
	assert.Equal(t, ReasonInvalidDeliveryDate, result.Excluded[0].Reason)
	assert.Equal(t, 2, result.Excluded[0].LineCount)
	require.Len(t, result.Lines, 1)
	assert.Equal(t, "GI-002", result.Lines[0].IssueNo)
}

func TestLineFilter_StorageOrders(t *testing.T) {
	storage := createTestLine(2, "GI-001", "SKU-2", 5)
	storage.LocationType = " Storage "
	lines := []OrderLine{createTestLine(1, "GI-001", "SKU-1", 5), storage}

	result := NewLineFilter(FilterConfig{ExcludeStorageOrders: true}).Apply(lines, RunOptions{})
	require.Len(t, result.Excluded, 1)
	assert.Equal(t, ReasonStorageLocation, result.Excluded[0].Reason)
	assert.Empty(t, result.Lines)

	result = NewLineFilter(FilterConfig{}).Apply(lines, RunOptions{})
	assert.Empty(t, result.Excluded)
	assert.Len(t, result.Lines, 2)
}

func TestLineFilter_PickScope(t *testing.T) {
	zoneB := createTestLine(2, "GI-001", "SKU-2", 5)
	zoneB.Zone = "B"
	soft := createTestLine(3, "GI-002", "SKU-1", 5)
	soft.Location = "SOFT-07"
	bulk := createTestLine(4, "GI-002", "SKU-3", 5)
	bulk.Location = "BULK-01"
	lines := []OrderLine{createTestLine(1, "GI-001", "SKU-1", 5), zoneB, soft, bulk}

	result := NewLineFilter(FilterConfig{
		PickZones:        []string{"A"},
		LocationPrefixes: []string{"A-", "SOFT-"},
	}).Apply(lines, RunOptions{})

	assert.Equal(t, 2, result.OutOfScopeLines)
	require.Len(t, result.Lines, 2)
	assert.Equal(t, 1, result.Lines[0].Seq)
	assert.Equal(t, 3, result.Lines[1].Seq)
	assert.Empty(t, result.Excluded)
}

func TestLineFilter_DeliveryRange(t *testing.T) {
	late := createTestLine(2, "GI-002", "SKU-1", 5)
	late.DeliveryDate = testNextDate.Add(15 * time.Hour)
	lines := []OrderLine{createTestLine(1, "GI-001", "SKU-1", 5), late}

	from := testNextDate
	result := NewLineFilter(FilterConfig{}).Apply(lines, RunOptions{DeliveryFrom: &from, DeliveryTo: &from})

	assert.Equal(t, 1, result.OutOfRangeLines)
	require.Len(t, result.Lines, 1)
	assert.Equal(t, "GI-002", result.Lines[0].IssueNo, "the to bound covers the whole day")
}

func TestEnrichLines_MissingMasterData(t *testing.T) {
	master := NewSKUMaster([]SKUAttributes{
		createTestSKU("SKU-1", 40, 50, 10),
		{SKUCode: "SKU-2", ItemVolume: Float(10), QtyPerCommercialBox: Float(1)},
	})
	lines := []OrderLine{
		createTestLine(1, "GI-001", "SKU-1", 10),
		createTestLine(2, "GI-001", "SKU-2", 10),
		createTestLine(3, "GI-002", "SKU-1", 10),
		createTestLine(4, "GI-003", "SKU-404", 10),
	}

	enriched, excluded := EnrichLines(lines, master)

	require.Len(t, enriched, 1)
	assert.Equal(t, "GI-002", enriched[0].IssueNo)
	assert.InDelta(t, 40, enriched[0].LineVolume, 1e-9)

	require.Len(t, excluded, 2)
	assert.Equal(t, "GI-001", excluded[0].IssueNo)
	assert.Equal(t, ReasonMissingMasterData, excluded[0].Reason)
	assert.Equal(t, []string{"SKU SKU-2: missing QtyPerCarton"}, excluded[0].Details)
	assert.Equal(t, 2, excluded[0].LineCount)
	assert.Equal(t, "GI-003", excluded[1].IssueNo)
	assert.Equal(t, []string{"SKU SKU-404: not found in SKU master"}, excluded[1].Details)
}

func TestSKUMaster(t *testing.T) {
	master := NewSKUMaster([]SKUAttributes{
		createTestSKU(" SKU-1 ", 1, 1, 1),
		createTestSKU("SKU-1", 2, 2, 2),
		{SKUCode: ""},
	})

	require.Len(t, master, 1)
	attrs, ok := master.Lookup("SKU-1 ")
	require.True(t, ok)
	assert.Equal(t, 1.0, *attrs.ItemVolume, "first entry wins")
	assert.Equal(t, "SKU-1", master.Entries()[0].SKUCode)
}

func TestParseOrderKind(t *testing.T) {
	tests := map[string]OrderKind{
		"":            OrderKindAll,
		"All":         OrderKindAll,
		"single":      OrderKindSingle,
		"Single-line": OrderKindSingle,
		"multi":       OrderKindMulti,
		"multi_line":  OrderKindMulti,
	}
	for input, expected := range tests {
		kind, err := ParseOrderKind(input)
		require.NoError(t, err, input)
		assert.Equal(t, expected, kind, input)
	}

	_, err := ParseOrderKind("bulk")
	assert.ErrorIs(t, err, ErrInvalidOrderKind)
}

func TestOrderKind_Includes(t *testing.T) {
	assert.True(t, OrderKindAll.Includes(1))
	assert.True(t, OrderKind("").Includes(3))
	assert.True(t, OrderKindSingle.Includes(1))
	assert.False(t, OrderKindSingle.Includes(2))
	assert.True(t, OrderKindMulti.Includes(2))
	assert.False(t, OrderKindMulti.Includes(1))
}
