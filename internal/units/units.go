// Package units converts packing results between metric and imperial units
// for presentation. The packing engine itself always works in centimetres
// and kilograms.
package units

import (
	"fmt"
	"strings"

	"github.com/eugenenazirov/smartpack/internal/packing"
)

// Unit is a length or mass unit.
type Unit string

const (
	Centimetre Unit = "cm"
	Inch       Unit = "in"
	Kilogram   Unit = "kg"
	Pound      Unit = "lb"
)

const (
	cmPerInch = 2.54
	kgPerLb   = 0.45359237

	// MetricVolumetricFactor converts cm3 to volumetric kilograms.
	MetricVolumetricFactor = packing.VolumetricDivisor
	// ImperialVolumetricFactor converts in3 to volumetric pounds.
	ImperialVolumetricFactor = 139.0
)

// Convert converts a value between two length units or two mass units.
func Convert(value float64, from, to Unit) (float64, error) {
	if from == to {
		return value, nil
	}
	switch {
	case from == Centimetre && to == Inch:
		return value / cmPerInch, nil
	case from == Inch && to == Centimetre:
		return value * cmPerInch, nil
	case from == Kilogram && to == Pound:
		return value / kgPerLb, nil
	case from == Pound && to == Kilogram:
		return value * kgPerLb, nil
	}
	return 0, fmt.Errorf("unsupported conversion: %s to %s", from, to)
}

// System is a presentation unit system.
type System string

const (
	Metric   System = "metric"
	Imperial System = "imperial"
)

// ParseSystem validates a unit system name; an empty name means metric.
func ParseSystem(raw string) (System, error) {
	switch s := System(strings.ToLower(strings.TrimSpace(raw))); s {
	case "", Metric:
		return Metric, nil
	case Imperial:
		return Imperial, nil
	}
	return "", fmt.Errorf("unknown unit system %q (want %s or %s)", raw, Metric, Imperial)
}

// LengthUnit returns the length unit of the system.
func (s System) LengthUnit() Unit {
	if s == Imperial {
		return Inch
	}
	return Centimetre
}

// MassUnit returns the mass unit of the system.
func (s System) MassUnit() Unit {
	if s == Imperial {
		return Pound
	}
	return Kilogram
}

// VolumetricWeight returns the dimensional weight of a parcel, dims / factor.
// A non-positive factor uses MetricVolumetricFactor.
func VolumetricWeight(d packing.Dimensions, factor float64) float64 {
	if factor <= 0 {
		factor = MetricVolumetricFactor
	}
	return d.Volume() / factor
}

func toInches(v float64) float64 { return v / cmPerInch }

func dimsToInches(d packing.Dimensions) packing.Dimensions {
	return packing.Dimensions{Length: toInches(d.Length), Width: toInches(d.Width), Height: toInches(d.Height)}
}

// PresentPlan returns a copy of plan expressed in the given system. Ratios,
// instructions and instance ids are unchanged.
func PresentPlan(plan packing.PackingPlan, sys System) packing.PackingPlan {
	if sys != Imperial {
		return plan
	}

	out := plan
	dims := dimsToInches(plan.Box.Dimensions())
	out.Box.Length, out.Box.Width, out.Box.Height = dims.Length, dims.Width, dims.Height
	out.Box.Volume = dims.Volume()

	out.Placements = make([]packing.Placement, len(plan.Placements))
	for i, p := range plan.Placements {
		p.Size = dimsToInches(p.Size)
		p.Position = packing.Point{X: toInches(p.Position.X), Y: toInches(p.Position.Y), Z: toInches(p.Position.Z)}
		p.Padding = toInches(p.Padding)
		p.Instance.Size = dimsToInches(p.Instance.Size)
		p.Instance.Weight = p.Instance.Weight / kgPerLb
		out.Placements[i] = p
	}

	out.TotalWeight = plan.TotalWeight / kgPerLb
	out.VolumetricWeight = VolumetricWeight(dims, ImperialVolumetricFactor)
	out.LoadingSequence = packing.LoadingSequence(out.Placements, string(Inch))
	return out
}

// PresentDimensions returns d expressed in the given system.
func PresentDimensions(d packing.Dimensions, sys System) packing.Dimensions {
	if sys != Imperial {
		return d
	}
	return dimsToInches(d)
}

// PresentVolume converts a volume in cubic centimetres to the given system.
func PresentVolume(v float64, sys System) float64 {
	if sys != Imperial {
		return v
	}
	return v / (cmPerInch * cmPerInch * cmPerInch)
}

// PresentBox returns a copy of box expressed in the given system.
func PresentBox(box packing.Box, sys System) packing.Box {
	if sys != Imperial {
		return box
	}
	dims := dimsToInches(box.Dimensions())
	box.Length, box.Width, box.Height = dims.Length, dims.Width, dims.Height
	box.Volume = dims.Volume()
	return box
}
