package domain

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCartonPacker_Plan(t *testing.T) {
	packer := NewCartonPacker(DefaultCartonTiers(), DefaultCartonOverflowLabel)

	tests := []struct {
		name           string
		qty            float64
		attrs          SKUAttributes
		expectValid    bool
		fullCartons    int
		containerCount int
		looseBox       string
		description    string
	}{
		{
			name:           "Full cartons plus extra-small loose box",
			qty:            125,
			attrs:          createTestSKU("SKU-1", 40, 50, 10),
			expectValid:    true,
			fullCartons:    2,
			containerCount: 3,
			looseBox:       "1XS",
			description:    "2 Commercial Carton + 1XS",
		},
		{
			name:           "Exact multiple of carton quantity",
			qty:            100,
			attrs:          createTestSKU("SKU-1", 40, 50, 10),
			expectValid:    true,
			fullCartons:    2,
			containerCount: 2,
			description:    "2 Commercial Carton",
		},
		{
			name:           "Loose box only",
			qty:            30,
			attrs:          createTestSKU("SKU-1", 40, 50, 10),
			expectValid:    true,
			containerCount: 1,
			looseBox:       "1XS",
			description:    "1XS",
		},
		{
			name:           "Tier boundary is inclusive",
			qty:            12,
			attrs:          createTestSKU("SKU-1", 100, 50, 1),
			expectValid:    true,
			containerCount: 1,
			looseBox:       "1XS",
			description:    "1XS",
		},
		{
			name:           "Small tier",
			qty:            10,
			attrs:          createTestSKU("SKU-1", 500, 50, 1),
			expectValid:    true,
			containerCount: 1,
			looseBox:       "1S",
			description:    "1S",
		},
		{
			name:           "Rectangle tier",
			qty:            10,
			attrs:          createTestSKU("SKU-1", 1000, 50, 1),
			expectValid:    true,
			containerCount: 1,
			looseBox:       "1Rectangle",
			description:    "1Rectangle",
		},
		{
			name:           "Large tier with full carton",
			qty:            70,
			attrs:          createTestSKU("SKU-1", 2000, 50, 1),
			expectValid:    true,
			fullCartons:    1,
			containerCount: 2,
			looseBox:       "1L",
			description:    "1 Commercial Carton + 1L",
		},
		{
			name:           "Loose volume beyond every tier",
			qty:            60,
			attrs:          createTestSKU("SKU-1", 10000, 50, 1),
			expectValid:    true,
			fullCartons:    1,
			containerCount: 2,
			looseBox:       "TooBig",
			description:    "1 Commercial Carton + TooBig",
		},
		{
			name:        "Zero picking quantity",
			qty:         0,
			attrs:       createTestSKU("SKU-1", 40, 50, 10),
			description: InvalidCarton,
		},
		{
			name:        "Zero carton quantity",
			qty:         10,
			attrs:       createTestSKU("SKU-1", 40, 0, 10),
			description: InvalidCarton,
		},
		{
			name:        "Negative carton quantity",
			qty:         10,
			attrs:       createTestSKU("SKU-1", 40, -5, 10),
			description: InvalidCarton,
		},
		{
			name:        "Missing item volume",
			qty:         10,
			attrs:       SKUAttributes{SKUCode: "SKU-1", QtyPerCarton: Float(5)},
			description: InvalidCarton,
		},
		{
			name:        "NaN picking quantity",
			qty:         math.NaN(),
			attrs:       createTestSKU("SKU-1", 40, 1, 1),
			description: InvalidCarton,
		},
		{
			name:        "Infinite picking quantity",
			qty:         math.Inf(1),
			attrs:       createTestSKU("SKU-1", 40, 1, 1),
			description: InvalidCarton,
		},
		{
			name:        "Carton count overflows int",
			qty:         1e20,
			attrs:       createTestSKU("SKU-1", 40, 1, 1),
			description: InvalidCarton,
		},
		{
			name:        "Infinite carton quantity",
			qty:         10,
			attrs:       createTestSKU("SKU-1", 40, math.Inf(1), 1),
			description: InvalidCarton,
		},
		{
			name:        "NaN item volume",
			qty:         10,
			attrs:       createTestSKU("SKU-1", math.NaN(), 5, 1),
			description: InvalidCarton,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan := packer.Plan(tt.qty, tt.attrs)

			assert.Equal(t, tt.expectValid, plan.Valid)
			assert.Equal(t, tt.description, plan.Description)
			assert.Equal(t, tt.fullCartons, plan.FullCartons)
			assert.Equal(t, tt.containerCount, plan.ContainerCount)
			assert.Equal(t, tt.looseBox, plan.LooseBox)
		})
	}
}

func TestCartonPacker_LooseVolume(t *testing.T) {
	packer := NewCartonPacker(DefaultCartonTiers(), DefaultCartonOverflowLabel)

	plan := packer.Plan(125, createTestSKU("SKU-1", 40, 50, 10))

	assert.Equal(t, 25.0, plan.Remainder)
	assert.InDelta(t, 100, plan.LooseVolume, 1e-9)
}

func TestCartonPacker_RoundTrip(t *testing.T) {
	packer := NewCartonPacker(DefaultCartonTiers(), DefaultCartonOverflowLabel)

	for qty := 1.0; qty <= 250; qty++ {
		for _, qpc := range []float64{1, 6, 12, 24, 50, 144} {
			plan := packer.Plan(qty, createTestSKU("SKU-1", 35, qpc, 3))
			if !assert.True(t, plan.Valid) {
				continue
			}
			assert.Equal(t, qty, float64(plan.FullCartons)*qpc+plan.Remainder, "qty=%v qpc=%v", qty, qpc)
			assert.GreaterOrEqual(t, plan.Remainder, 0.0)
			assert.Less(t, plan.Remainder, qpc)
		}
	}
}

func TestCartonPacker_CustomTiers(t *testing.T) {
	packer := NewCartonPacker([]CartonTier{{MaxVolume: 10, Label: "Tote"}}, "")

	assert.Equal(t, "1Tote", packer.Plan(1, createTestSKU("SKU-1", 10, 5, 1)).Description)
	assert.Equal(t, DefaultCartonOverflowLabel, packer.Plan(2, createTestSKU("SKU-1", 10, 5, 1)).Description)
}
