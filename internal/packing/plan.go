package packing

import (
	"fmt"
	"math"
)

const (
	// DefaultCostBaseRate is the saving, in currency units, credited to a
	// perfectly filled box.
	DefaultCostBaseRate = 5.0
	// VolumetricDivisor converts cm3 to volumetric kilograms.
	VolumetricDivisor = 5000.0

	fragileInstructionThreshold = 0.7
)

// Assembler turns a box and its placements into a PackingPlan.
type Assembler struct {
	BaseRate float64
}

// NewAssembler returns an Assembler; a non-positive rate uses DefaultCostBaseRate.
func NewAssembler(baseRate float64) *Assembler {
	if baseRate <= 0 || math.IsNaN(baseRate) {
		baseRate = DefaultCostBaseRate
	}
	return &Assembler{BaseRate: baseRate}
}

// Assemble computes utilization, the saving estimate, instructions and the
// loading sequence. The saving is BaseRate scaled by utilization: a monotonic
// heuristic, not a shipping tariff.
func (a *Assembler) Assemble(box Box, placements []Placement, items []Item) PackingPlan {
	box.Volume = box.Dimensions().Volume()

	occupied := 0.0
	weight := 0.0
	for _, p := range placements {
		occupied += p.Instance.Volume()
		weight += p.Instance.Weight
	}

	utilization := 0.0
	if box.Volume > 0 {
		utilization = clamp01(occupied / box.Volume)
	}

	return PackingPlan{
		Box:                 box,
		Placements:          placements,
		SpaceUtilization:    utilization,
		EstimatedCostSaving: a.BaseRate * utilization,
		Instructions:        Instructions(box.VoidFill, items),
		LoadingSequence:     LoadingSequence(placements, "cm"),
		TotalWeight:         weight,
		VolumetricWeight:    box.Volume / VolumetricDivisor,
	}
}

// Instructions returns the packing guide for the shipment.
func Instructions(fill VoidFill, items []Item) []string {
	steps := []string{
		"Place heaviest items at the bottom",
		fmt.Sprintf("Use %s for padding", fill.Label()),
		"Fill empty spaces with cushioning material",
		"Seal box with reinforced tape",
	}
	for _, it := range items {
		if it.Fragility > fragileInstructionThreshold {
			steps = append(steps[:1], append([]string{"Extra padding for fragile items"}, steps[1:]...)...)
			break
		}
	}
	return steps
}

// LoadingSequence describes each placement in the order it was made, with
// sizes and positions labelled in unit and rounded to two decimals.
func LoadingSequence(placements []Placement, unit string) []string {
	out := make([]string, 0, len(placements))
	for i, p := range placements {
		name := p.Instance.ID
		if p.Instance.Label != "" {
			name = fmt.Sprintf("%s (%s)", p.Instance.Label, p.Instance.ID)
		}
		size := Dimensions{Length: round2(p.Size.Length), Width: round2(p.Size.Width), Height: round2(p.Size.Height)}
		out = append(out, fmt.Sprintf("%d. Place %s, %s %s, at x=%g y=%g z=%g oriented %s",
			i+1, name, size, unit, round2(p.Position.X), round2(p.Position.Y), round2(p.Position.Z), p.Orientation))
	}
	return out
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func clamp01(v float64) float64 {
	switch {
	case math.IsNaN(v) || v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
