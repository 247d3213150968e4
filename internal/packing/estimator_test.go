package packing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mixedShipment() []Item {
	return []Item{
		{Label: "charger", Length: 10, Width: 5, Height: 3, Weight: 0.5, Quantity: 1, Fragility: 0.3, Rotatable: true},
		{Label: "lamp", Length: 25, Width: 18, Height: 10, Weight: 1.5, Quantity: 2, Fragility: 0.7, Rotatable: true},
	}
}

func TestVoidFillForBands(t *testing.T) {
	t.Parallel()

	tests := []struct {
		fragility float64
		want      VoidFill
	}{
		{0, VoidFillBubbleWrap},
		{0.29, VoidFillBubbleWrap},
		{0.3, VoidFillAirCushions},
		{0.69, VoidFillAirCushions},
		{0.7, VoidFillFoamPeanuts},
		{1, VoidFillFoamPeanuts},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, VoidFillFor(tt.fragility), "fragility %v", tt.fragility)
	}
}

func TestPaddingThickness(t *testing.T) {
	t.Parallel()

	assert.InDelta(t, 2.0, PaddingThickness(0, VoidFillBubbleWrap), 1e-12)
	assert.InDelta(t, 3.9, PaddingThickness(0.3, VoidFillAirCushions), 1e-12)
	assert.InDelta(t, 10.0, PaddingThickness(1, VoidFillFoamPeanuts), 1e-12)
	assert.InDelta(t, 3.0, PaddingThickness(0.5, VoidFill("straw")), 1e-12)

	est := Estimate{VoidFill: VoidFillFoamPeanuts}
	assert.InDelta(t, 7.5, est.Padding(0.5), 1e-12)
}

func TestFormulaEstimatorMixedShipment(t *testing.T) {
	t.Parallel()

	est, err := NewFormulaEstimator("").Estimate(mixedShipment())
	require.NoError(t, err)

	assert.InDelta(t, 11053.5, est.RequiredVolume, 1e-9)
	assert.Equal(t, Dimensions{Length: 25, Width: 18, Height: 10}, est.Envelope)
	assert.Equal(t, VoidFillFoamPeanuts, est.VoidFill)
	assert.Equal(t, 0.7, est.MaxFragility)
}

func TestFormulaEstimatorEnvelopePolicies(t *testing.T) {
	t.Parallel()

	items := []Item{
		{Length: 30, Width: 5, Height: 5, Weight: 1, Quantity: 1},
		{Length: 5, Width: 30, Height: 5, Weight: 1, Quantity: 1},
	}

	tests := []struct {
		policy EnvelopePolicy
		want   Dimensions
	}{
		{EnvelopeLargestItem, Dimensions{Length: 30, Width: 5, Height: 5}},
		{EnvelopeMaxPerAxis, Dimensions{Length: 30, Width: 30, Height: 5}},
	}

	for _, tt := range tests {
		t.Run(string(tt.policy), func(t *testing.T) {
			est, err := NewFormulaEstimator(tt.policy).Estimate(items)
			require.NoError(t, err)
			assert.Equal(t, tt.want, est.Envelope)
			assert.InDelta(t, 1500, est.RequiredVolume, 1e-9)
		})
	}

	_, err := NewFormulaEstimator("widest").Estimate(items)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestFormulaEstimatorRejectsInvalidItems(t *testing.T) {
	t.Parallel()

	valid := Item{Length: 1, Width: 1, Height: 1, Weight: 1, Quantity: 1}

	tests := []struct {
		name  string
		items []Item
		field string
	}{
		{"empty", nil, "items"},
		{"zero length", []Item{{Width: 1, Height: 1, Weight: 1, Quantity: 1}}, "items[0].length"},
		{"negative weight", []Item{valid, {Length: 1, Width: 1, Height: 1, Weight: -2, Quantity: 1}}, "items[1].weight"},
		{"zero quantity", []Item{{Length: 1, Width: 1, Height: 1, Weight: 1}}, "items[0].quantity"},
		{"fragility above one", []Item{{Length: 1, Width: 1, Height: 1, Weight: 1, Quantity: 1, Fragility: 1.5}}, "items[0].fragility"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewFormulaEstimator(EnvelopeMaxPerAxis).Estimate(tt.items)
			require.ErrorIs(t, err, ErrInvalidInput)

			var inputErr *InputError
			require.ErrorAs(t, err, &inputErr)
			assert.Equal(t, tt.field, inputErr.Field)
		})
	}
}

func TestParseEnvelopePolicy(t *testing.T) {
	t.Parallel()

	p, err := ParseEnvelopePolicy("largest_item")
	require.NoError(t, err)
	assert.Equal(t, EnvelopeLargestItem, p)

	_, err = ParseEnvelopePolicy("diagonal")
	assert.Error(t, err)
}
