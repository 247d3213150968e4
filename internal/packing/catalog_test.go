package packing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelectBoxPicksSmallestQualifyingBox(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		volume   float64
		envelope Dimensions
		want     string
	}{
		{"tiny", 100, Dimensions{Length: 5, Width: 5, Height: 5}, "XS"},
		{"exact XS volume", 3000, Dimensions{Length: 20, Width: 15, Height: 10}, "XS"},
		{"rotated envelope", 5000, Dimensions{Length: 15, Width: 25, Height: 10}, "S"},
		{"mixed shipment", 11053.5, Dimensions{Length: 25, Width: 18, Height: 10}, "M"},
		{"long item needs L", 1000, Dimensions{Length: 38, Width: 5, Height: 5}, "L"},
		{"volume needs XL", 30000, Dimensions{Length: 10, Width: 10, Height: 10}, "XL"},
	}

	catalog := DefaultCatalog()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			box, err := catalog.SelectBox(tt.volume, tt.envelope, VoidFillAirCushions)
			require.NoError(t, err)
			assert.Equal(t, tt.want, box.Name)
			assert.False(t, box.Custom)
			assert.Equal(t, VoidFillAirCushions, box.VoidFill)
			assert.GreaterOrEqual(t, box.Volume, tt.volume)
			assert.True(t, tt.envelope.FitsWithin(box.Dimensions()))
		})
	}
}

func TestSelectBoxTieGoesToFirstEntry(t *testing.T) {
	t.Parallel()

	catalog, err := NewCatalog([]CatalogBox{
		{Name: "tall", Dimensions: Dimensions{Length: 10, Width: 10, Height: 40}},
		{Name: "flat", Dimensions: Dimensions{Length: 20, Width: 20, Height: 10}},
	}, DefaultCustomMargin)
	require.NoError(t, err)

	box, err := catalog.SelectBox(100, Dimensions{Length: 5, Width: 5, Height: 5}, VoidFillBubbleWrap)
	require.NoError(t, err)
	assert.Equal(t, "tall", box.Name)
}

func TestSelectBoxSynthesizesCustomBox(t *testing.T) {
	t.Parallel()

	catalog := DefaultCatalog()

	box, err := catalog.SelectBox(64000, Dimensions{Length: 40, Width: 40, Height: 40}, VoidFillBubbleWrap)
	require.NoError(t, err)
	assert.True(t, box.Custom)
	assert.Equal(t, "custom", box.Name)
	assert.Equal(t, Dimensions{Length: 44, Width: 44, Height: 44}, box.Dimensions())
	assert.InDelta(t, 85184, box.Volume, 1e-9)

	scaled, err := catalog.SelectBox(1e6, Dimensions{Length: 10, Width: 10, Height: 10}, VoidFillBubbleWrap)
	require.NoError(t, err)
	assert.True(t, scaled.Custom)
	assert.GreaterOrEqual(t, scaled.Volume, 1e6)
	assert.True(t, Dimensions{Length: 14, Width: 14, Height: 14}.FitsWithin(scaled.Dimensions()))
}

func TestSelectBoxIsMonotonicInRequiredVolume(t *testing.T) {
	t.Parallel()

	catalog := DefaultCatalog()
	envelope := Dimensions{Length: 12, Width: 8, Height: 6}

	prev := 0.0
	for v := 100.0; v <= 120000; v += 250 {
		box, err := catalog.SelectBox(v, envelope, VoidFillBubbleWrap)
		require.NoError(t, err)
		require.GreaterOrEqual(t, box.Volume, v)
		require.GreaterOrEqual(t, box.Volume, prev, "volume %v selected %s", v, box.Name)
		prev = box.Volume
	}
}

func TestSelectBoxRejectsInvalidInput(t *testing.T) {
	t.Parallel()

	catalog := DefaultCatalog()

	_, err := catalog.SelectBox(0, Dimensions{Length: 1, Width: 1, Height: 1}, VoidFillBubbleWrap)
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = catalog.SelectBox(10, Dimensions{Length: 1, Width: -1, Height: 1}, VoidFillBubbleWrap)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestNewCatalogValidation(t *testing.T) {
	t.Parallel()

	_, err := NewCatalog([]CatalogBox{{Name: "bad", Dimensions: Dimensions{Length: 10, Width: 0, Height: 10}}}, 2)
	var inputErr *InputError
	require.ErrorAs(t, err, &inputErr)
	assert.Equal(t, "catalog[0].width", inputErr.Field)

	_, err = NewCatalog(DefaultCatalogBoxes(), -1)
	assert.ErrorIs(t, err, ErrInvalidInput)

	tooMany := make([]CatalogBox, MaxCatalogSize+1)
	for i := range tooMany {
		tooMany[i] = CatalogBox{Dimensions: Dimensions{Length: 1, Width: 1, Height: 1}}
	}
	_, err = NewCatalog(tooMany, 2)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestCatalogBoxesReturnsCopy(t *testing.T) {
	t.Parallel()

	catalog := DefaultCatalog()
	boxes := catalog.Boxes()
	boxes[0].Length = 999

	assert.Equal(t, 20.0, catalog.Boxes()[0].Length)
	assert.Equal(t, 20.0, DefaultCatalogBoxes()[0].Length)
}

func TestEmptyCatalogAlwaysBuildsCustom(t *testing.T) {
	t.Parallel()

	catalog, err := NewCatalog(nil, 0)
	require.NoError(t, err)

	box, err := catalog.SelectBox(600, Dimensions{Length: 10, Width: 10, Height: 5}, VoidFillBubbleWrap)
	require.NoError(t, err)
	assert.True(t, box.Custom)
	assert.GreaterOrEqual(t, box.Volume, 600.0)
}
