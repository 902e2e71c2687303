package domain

import (
	"fmt"
	"math"
)

// InvalidCarton is the description of a line whose carton inputs are unusable
const InvalidCarton = "Invalid"

// CartonTier is one loose-box size: the smallest tier whose MaxVolume holds
// the loose volume is chosen.
type CartonTier struct {
	MaxVolume float64 `bson:"maxVolume" json:"maxVolume" yaml:"maxVolume" validate:"gt=0"`
	Label     string  `bson:"label" json:"label" yaml:"label" validate:"required"`
}

// DefaultCartonTiers returns the standard loose-box table
func DefaultCartonTiers() []CartonTier {
	return []CartonTier{
		{MaxVolume: 1200, Label: "XS"},
		{MaxVolume: 6000, Label: "S"},
		{MaxVolume: 12000, Label: "Rectangle"},
		{MaxVolume: 48000, Label: "L"},
	}
}

// DefaultCartonOverflowLabel names a loose box larger than every tier
const DefaultCartonOverflowLabel = "TooBig"

// CartonPlan decomposes a line's quantity into full commercial cartons plus
// at most one loose box.
type CartonPlan struct {
	Valid          bool    `json:"valid"`
	FullCartons    int     `json:"fullCartons"`
	Remainder      float64 `json:"remainder"`
	LooseVolume    float64 `json:"looseVolume"`
	LooseBox       string  `json:"looseBox,omitempty"`
	ContainerCount int     `json:"containerCount"`
	Description    string  `json:"description"`
}

// CartonPacker plans cartons against a tier table
type CartonPacker struct {
	tiers         []CartonTier
	overflowLabel string
}

// NewCartonPacker creates a packer. Tiers must be sorted by MaxVolume.
func NewCartonPacker(tiers []CartonTier, overflowLabel string) *CartonPacker {
	t := make([]CartonTier, len(tiers))
	copy(t, tiers)
	if overflowLabel == "" {
		overflowLabel = DefaultCartonOverflowLabel
	}
	return &CartonPacker{tiers: t, overflowLabel: overflowLabel}
}

// Plan computes the carton plan for one line. Zero, negative, non-finite or
// missing picking quantity, carton quantity or item volume yields an invalid
// plan, as does a carton count that does not fit in an int.
func (p *CartonPacker) Plan(pickingQty float64, attrs SKUAttributes) CartonPlan {
	qpc := floatValue(attrs.QtyPerCarton)
	iv := floatValue(attrs.ItemVolume)
	if !positive(pickingQty) || !positive(qpc) || !positive(iv) {
		return CartonPlan{Description: InvalidCarton}
	}

	cartons := math.Floor(pickingQty / qpc)
	if cartons >= math.MaxInt {
		return CartonPlan{Description: InvalidCarton}
	}
	full := int(cartons)
	remainder := pickingQty - float64(full)*qpc

	plan := CartonPlan{
		Valid:       true,
		FullCartons: full,
		Remainder:   remainder,
	}

	if remainder == 0 {
		plan.ContainerCount = full
		plan.Description = fmt.Sprintf("%d Commercial Carton", full)
		return plan
	}

	plan.LooseVolume = remainder / CommercialBoxQty(attrs) * iv
	plan.LooseBox = p.looseBox(plan.LooseVolume)
	plan.ContainerCount = full + 1
	if full > 0 {
		plan.Description = fmt.Sprintf("%d Commercial Carton + %s", full, plan.LooseBox)
	} else {
		plan.Description = plan.LooseBox
	}
	return plan
}

// positive reports whether f is a finite number above zero
func positive(f float64) bool {
	return f > 0 && !math.IsInf(f, 1)
}

// looseBox names the loose container for a volume: "1<tier>" for a bounded
// tier, the overflow label otherwise.
func (p *CartonPacker) looseBox(volume float64) string {
	for _, tier := range p.tiers {
		if volume <= tier.MaxVolume {
			return "1" + tier.Label
		}
	}
	return p.overflowLabel
}
