package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEngineConfig_Validate(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(*EngineConfig)
		expectError bool
	}{
		{
			name:   "Defaults are valid",
			mutate: func(*EngineConfig) {},
		},
		{
			name: "Capacity strategy",
			mutate: func(c *EngineConfig) {
				c.MultiLine.Strategy = StrategyCapacity
			},
		},
		{
			name: "Layer threshold below bin threshold",
			mutate: func(c *EngineConfig) {
				c.Classification.LayerMaxVolume = 1000
			},
			expectError: true,
		},
		{
			name: "Zero bin threshold",
			mutate: func(c *EngineConfig) {
				c.Classification.BinMaxVolume = 0
			},
			expectError: true,
		},
		{
			name: "Unknown strategy",
			mutate: func(c *EngineConfig) {
				c.MultiLine.Strategy = "optimal"
			},
			expectError: true,
		},
		{
			name: "Non-positive job volume cap",
			mutate: func(c *EngineConfig) {
				c.MultiLine.MaxJobVolume = 0
			},
			expectError: true,
		},
		{
			name: "Empty carton tiers",
			mutate: func(c *EngineConfig) {
				c.CartonTiers = nil
			},
			expectError: true,
		},
		{
			name: "Carton tiers out of order",
			mutate: func(c *EngineConfig) {
				c.CartonTiers = []CartonTier{{MaxVolume: 100, Label: "M"}, {MaxVolume: 50, Label: "S"}}
			},
			expectError: true,
		},
		{
			name: "Unlabelled carton tier",
			mutate: func(c *EngineConfig) {
				c.CartonTiers = []CartonTier{{MaxVolume: 100}}
			},
			expectError: true,
		},
		{
			name: "Zero parallelism",
			mutate: func(c *EngineConfig) {
				c.Parallelism = 0
			},
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultEngineConfig()
			tt.mutate(&cfg)

			err := cfg.Validate()

			if tt.expectError {
				assert.ErrorIs(t, err, ErrInvalidConfig)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
