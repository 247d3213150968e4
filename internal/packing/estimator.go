package packing

import "fmt"

// EnvelopePolicy selects how the required envelope is derived from the items.
type EnvelopePolicy string

const (
	// EnvelopeLargestItem uses the dimensions of the largest unit by volume.
	EnvelopeLargestItem EnvelopePolicy = "largest_item"
	// EnvelopeMaxPerAxis uses the per-axis maximum over all items.
	EnvelopeMaxPerAxis EnvelopePolicy = "max_per_axis"
)

// ParseEnvelopePolicy validates a policy name.
func ParseEnvelopePolicy(raw string) (EnvelopePolicy, error) {
	switch p := EnvelopePolicy(raw); p {
	case EnvelopeLargestItem, EnvelopeMaxPerAxis:
		return p, nil
	}
	return "", fmt.Errorf("unknown envelope policy %q (want %s or %s)", raw, EnvelopeLargestItem, EnvelopeMaxPerAxis)
}

const (
	// fragilityInflation is the extra space share at fragility 1.
	fragilityInflation = 0.3

	mediumFragility = 0.3
	highFragility   = 0.7
)

// paddingBase is the base cushioning thickness per material, in centimetres.
var paddingBase = map[VoidFill]float64{
	VoidFillBubbleWrap:  2.0,
	VoidFillAirCushions: 3.0,
	VoidFillFoamPeanuts: 5.0,
}

// VoidFillFor maps a fragility rating to a void fill class.
func VoidFillFor(fragility float64) VoidFill {
	switch {
	case fragility < mediumFragility:
		return VoidFillBubbleWrap
	case fragility < highFragility:
		return VoidFillAirCushions
	default:
		return VoidFillFoamPeanuts
	}
}

// PaddingThickness returns base_thickness[fill] * (1 + fragility). Unknown
// materials use the bubble wrap base.
func PaddingThickness(fragility float64, fill VoidFill) float64 {
	base, ok := paddingBase[fill]
	if !ok {
		base = paddingBase[VoidFillBubbleWrap]
	}
	return base * (1 + fragility)
}

// Estimate is the outcome of volume and padding estimation.
type Estimate struct {
	RequiredVolume float64    `json:"required_volume"`
	Envelope       Dimensions `json:"required_envelope"`
	VoidFill       VoidFill   `json:"void_fill"`
	MaxFragility   float64    `json:"max_fragility"`
}

// Padding returns the cushioning thickness for an item of the given fragility
// under the estimated void fill.
func (e Estimate) Padding(fragility float64) float64 {
	return PaddingThickness(fragility, e.VoidFill)
}

// VolumeEstimator predicts the space a shipment needs. Learned models can be
// plugged in behind this interface.
type VolumeEstimator interface {
	Estimate(items []Item) (Estimate, error)
}

// FormulaEstimator is the deterministic reference VolumeEstimator.
type FormulaEstimator struct {
	Policy EnvelopePolicy
}

// NewFormulaEstimator returns an estimator using the given envelope policy.
// An empty policy means EnvelopeMaxPerAxis.
func NewFormulaEstimator(policy EnvelopePolicy) *FormulaEstimator {
	if policy == "" {
		policy = EnvelopeMaxPerAxis
	}
	return &FormulaEstimator{Policy: policy}
}

// Estimate implements VolumeEstimator.
func (f *FormulaEstimator) Estimate(items []Item) (Estimate, error) {
	if err := ValidateItems(items); err != nil {
		return Estimate{}, err
	}

	var est Estimate
	largest := -1.0
	for _, it := range items {
		est.RequiredVolume += it.UnitVolume() * float64(it.Quantity) * (1 + fragilityInflation*it.Fragility)
		if it.Fragility > est.MaxFragility {
			est.MaxFragility = it.Fragility
		}

		switch f.Policy {
		case EnvelopeLargestItem:
			if v := it.UnitVolume(); v > largest {
				largest = v
				est.Envelope = it.Dimensions()
			}
		case EnvelopeMaxPerAxis:
			est.Envelope.Length = max(est.Envelope.Length, it.Length)
			est.Envelope.Width = max(est.Envelope.Width, it.Width)
			est.Envelope.Height = max(est.Envelope.Height, it.Height)
		default:
			return Estimate{}, invalid("envelope_policy", "unknown policy %q", f.Policy)
		}
	}
	est.VoidFill = VoidFillFor(est.MaxFragility)
	return est, nil
}
