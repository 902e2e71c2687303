package domain

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// ClassificationConfig holds the order volume thresholds
type ClassificationConfig struct {
	BinMaxVolume   float64 `bson:"binMaxVolume" json:"binMaxVolume" yaml:"binMaxVolume" validate:"gt=0"`
	LayerMaxVolume float64 `bson:"layerMaxVolume" json:"layerMaxVolume" yaml:"layerMaxVolume" validate:"gtfield=BinMaxVolume"`
}

// SingleLineConfig controls count-based batching of single-line orders
type SingleLineConfig struct {
	BatchSize   int  `bson:"batchSize" json:"batchSize" yaml:"batchSize" validate:"min=1"`
	GroupByZone bool `bson:"groupByZone" json:"groupByZone" yaml:"groupByZone"`
}

// MultiLineConfig selects and parameterizes the multi-line strategy
type MultiLineConfig struct {
	Strategy     string  `bson:"strategy" json:"strategy" yaml:"strategy" validate:"oneof=scenario capacity"`
	MaxJobVolume float64 `bson:"maxJobVolume" json:"maxJobVolume" yaml:"maxJobVolume" validate:"gt=0"`
}

// FilterConfig scopes the input snapshot before aggregation
type FilterConfig struct {
	ExcludeStorageOrders bool     `bson:"excludeStorageOrders" json:"excludeStorageOrders" yaml:"excludeStorageOrders"`
	PickZones            []string `bson:"pickZones,omitempty" json:"pickZones,omitempty" yaml:"pickZones,omitempty"`
	LocationPrefixes     []string `bson:"locationPrefixes,omitempty" json:"locationPrefixes,omitempty" yaml:"locationPrefixes,omitempty"`
}

// EngineConfig is the full set of tunable engine parameters
type EngineConfig struct {
	Classification      ClassificationConfig `bson:"classification" json:"classification" yaml:"classification"`
	SingleLine          SingleLineConfig     `bson:"singleLine" json:"singleLine" yaml:"singleLine"`
	MultiLine           MultiLineConfig      `bson:"multiLine" json:"multiLine" yaml:"multiLine"`
	CartonTiers         []CartonTier         `bson:"cartonTiers" json:"cartonTiers" yaml:"cartonTiers" validate:"required,min=1,dive"`
	CartonOverflowLabel string               `bson:"cartonOverflowLabel" json:"cartonOverflowLabel" yaml:"cartonOverflowLabel" validate:"required"`
	Filters             FilterConfig         `bson:"filters" json:"filters" yaml:"filters"`
	Parallelism         int                  `bson:"parallelism" json:"parallelism" yaml:"parallelism" validate:"min=1,max=64"`
}

// DefaultEngineConfig returns the standard thresholds
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		Classification: ClassificationConfig{
			BinMaxVolume:   35000,
			LayerMaxVolume: 248500,
		},
		SingleLine: SingleLineConfig{
			BatchSize: 5,
		},
		MultiLine: MultiLineConfig{
			Strategy:     StrategyScenario,
			MaxJobVolume: 600000,
		},
		CartonTiers:         DefaultCartonTiers(),
		CartonOverflowLabel: DefaultCartonOverflowLabel,
		Filters: FilterConfig{
			ExcludeStorageOrders: true,
		},
		Parallelism: 4,
	}
}

// Validate checks the configuration, wrapping ErrInvalidConfig
func (c EngineConfig) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	for i := 1; i < len(c.CartonTiers); i++ {
		if c.CartonTiers[i].MaxVolume <= c.CartonTiers[i-1].MaxVolume {
			return fmt.Errorf("%w: carton tier %q must be larger than %q",
				ErrInvalidConfig, c.CartonTiers[i].Label, c.CartonTiers[i-1].Label)
		}
	}
	return nil
}
