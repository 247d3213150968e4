package units

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eugenenazirov/smartpack/internal/packing"
)

func TestConvert(t *testing.T) {
	t.Parallel()

	tests := []struct {
		value    float64
		from, to Unit
		want     float64
	}{
		{2.54, Centimetre, Inch, 1},
		{10, Inch, Centimetre, 25.4},
		{1, Kilogram, Pound, 2.2046226},
		{2, Pound, Kilogram, 0.9071847},
		{7, Kilogram, Kilogram, 7},
	}

	for _, tt := range tests {
		got, err := Convert(tt.value, tt.from, tt.to)
		require.NoError(t, err)
		assert.InDelta(t, tt.want, got, 1e-6, "%v %s -> %s", tt.value, tt.from, tt.to)
	}

	_, err := Convert(1, Centimetre, Pound)
	assert.Error(t, err)
}

func TestParseSystem(t *testing.T) {
	t.Parallel()

	for raw, want := range map[string]System{"": Metric, "metric": Metric, " Imperial ": Imperial} {
		got, err := ParseSystem(raw)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	_, err := ParseSystem("nautical")
	assert.Error(t, err)
	assert.Equal(t, Inch, Imperial.LengthUnit())
	assert.Equal(t, Kilogram, Metric.MassUnit())
}

func TestVolumetricWeight(t *testing.T) {
	t.Parallel()

	d := packing.Dimensions{Length: 50, Width: 40, Height: 30}
	assert.InDelta(t, 12.0, VolumetricWeight(d, 0), 1e-9)
	assert.InDelta(t, 60000.0/139, VolumetricWeight(d, ImperialVolumetricFactor), 1e-9)
}

func TestPresentPlanImperial(t *testing.T) {
	t.Parallel()

	size := packing.Dimensions{Length: 25.4, Width: 25.4, Height: 5.08}
	plan := packing.PackingPlan{
		Box:              packing.NewBox("M", packing.Dimensions{Length: 50.8, Width: 25.4, Height: 25.4}, packing.VoidFillBubbleWrap, false),
		SpaceUtilization: 0.1,
		TotalWeight:      kgPerLb * 3,
		Placements: []packing.Placement{{
			Instance: packing.ItemInstance{ID: "item-1-1", Size: size, Weight: kgPerLb * 3},
			Position: packing.Point{X: 25.4},
			Size:     size,
		}},
	}

	got := PresentPlan(plan, Imperial)

	assert.InDelta(t, 20, got.Box.Length, 1e-9)
	assert.InDelta(t, 2000, got.Box.Volume, 1e-9)
	assert.InDelta(t, 3, got.TotalWeight, 1e-9)
	assert.InDelta(t, 2000/ImperialVolumetricFactor, got.VolumetricWeight, 1e-9)
	assert.InDelta(t, 10, got.Placements[0].Position.X, 1e-9)
	assert.InDelta(t, 2, got.Placements[0].Size.Height, 1e-9)
	assert.Equal(t, 0.1, got.SpaceUtilization)
	require.Len(t, got.LoadingSequence, 1)
	assert.Contains(t, got.LoadingSequence[0], " in, at x=")

	// source plan untouched
	assert.Equal(t, 25.4, plan.Placements[0].Position.X)
	assert.Equal(t, plan, PresentPlan(plan, Metric))
}

func TestPresentBox(t *testing.T) {
	t.Parallel()

	box := packing.NewBox("S", packing.Dimensions{Length: 25.4, Width: 12.7, Height: 2.54}, packing.VoidFillAirCushions, false)
	got := PresentBox(box, Imperial)
	assert.InDelta(t, 10, got.Length, 1e-9)
	assert.InDelta(t, 5, got.Width, 1e-9)
	assert.InDelta(t, 50, got.Volume, 1e-9)
	assert.Equal(t, box, PresentBox(box, Metric))
}

func TestPresentDimensionsAndVolume(t *testing.T) {
	t.Parallel()

	d := packing.Dimensions{Length: 25.4, Width: 5.08, Height: 2.54}
	assert.Equal(t, d, PresentDimensions(d, Metric))

	in := PresentDimensions(d, Imperial)
	assert.InDelta(t, 10, in.Length, 1e-9)
	assert.InDelta(t, 2, in.Width, 1e-9)
	assert.InDelta(t, 1, in.Height, 1e-9)

	assert.Equal(t, 1000.0, PresentVolume(1000, Metric))
	assert.InDelta(t, in.Volume(), PresentVolume(d.Volume(), Imperial), 1e-9)
}
