package packing

import (
	"fmt"
	"math"
)

const (
	// DefaultCustomMargin is the clearance added on each side of a custom box, in cm.
	DefaultCustomMargin = 2.0
	// MaxCatalogSize bounds the number of standard boxes a catalog may hold.
	MaxCatalogSize = 50

	customBoxName = "custom"
)

// CatalogBox is one standard box size.
type CatalogBox struct {
	Name       string `json:"name,omitempty" yaml:"name"`
	Dimensions `yaml:",inline"`
}

var defaultCatalog = []CatalogBox{
	{Name: "XS", Dimensions: Dimensions{Length: 20, Width: 15, Height: 10}},
	{Name: "S", Dimensions: Dimensions{Length: 25, Width: 20, Height: 15}},
	{Name: "M", Dimensions: Dimensions{Length: 30, Width: 25, Height: 20}},
	{Name: "L", Dimensions: Dimensions{Length: 40, Width: 30, Height: 20}},
	{Name: "XL", Dimensions: Dimensions{Length: 50, Width: 40, Height: 30}},
}

// DefaultCatalogBoxes returns a copy of the built-in standard box list.
func DefaultCatalogBoxes() []CatalogBox {
	out := make([]CatalogBox, len(defaultCatalog))
	copy(out, defaultCatalog)
	return out
}

// Catalog is an immutable ordered list of standard boxes plus the margin used
// when a custom box has to be synthesized.
type Catalog struct {
	boxes  []CatalogBox
	margin float64
}

// NewCatalog validates the boxes and returns a catalog. Order is preserved
// since it breaks ties between equal volumes.
func NewCatalog(boxes []CatalogBox, customMargin float64) (*Catalog, error) {
	if len(boxes) > MaxCatalogSize {
		return nil, invalid("catalog", "at most %d boxes allowed, got %d", MaxCatalogSize, len(boxes))
	}
	if customMargin < 0 || math.IsNaN(customMargin) {
		return nil, invalid("custom_margin", "must be non-negative, got %g", customMargin)
	}
	for i, b := range boxes {
		prefix := fmt.Sprintf("catalog[%d]", i)
		if err := positive(prefix+".length", b.Length); err != nil {
			return nil, err
		}
		if err := positive(prefix+".width", b.Width); err != nil {
			return nil, err
		}
		if err := positive(prefix+".height", b.Height); err != nil {
			return nil, err
		}
	}

	cp := make([]CatalogBox, len(boxes))
	copy(cp, boxes)
	return &Catalog{boxes: cp, margin: customMargin}, nil
}

// DefaultCatalog returns the built-in catalog with the default custom margin.
func DefaultCatalog() *Catalog {
	return &Catalog{boxes: DefaultCatalogBoxes(), margin: DefaultCustomMargin}
}

// Boxes returns a copy of the standard boxes in catalog order.
func (c *Catalog) Boxes() []CatalogBox {
	out := make([]CatalogBox, len(c.boxes))
	copy(out, c.boxes)
	return out
}

// SelectBox picks the smallest standard box whose volume covers
// requiredVolume and which can hold the envelope in some orientation. Ties go
// to the earlier catalog entry. When no standard box qualifies a custom box
// is synthesized around the envelope.
func (c *Catalog) SelectBox(requiredVolume float64, envelope Dimensions, fill VoidFill) (Box, error) {
	if err := positive("required_volume", requiredVolume); err != nil {
		return Box{}, err
	}
	if err := positive("envelope.length", envelope.Length); err != nil {
		return Box{}, err
	}
	if err := positive("envelope.width", envelope.Width); err != nil {
		return Box{}, err
	}
	if err := positive("envelope.height", envelope.Height); err != nil {
		return Box{}, err
	}

	best := -1
	for i, b := range c.boxes {
		v := b.Volume()
		if v+epsilon < requiredVolume || !envelope.FitsWithin(b.Dimensions) {
			continue
		}
		if best < 0 || v < c.boxes[best].Volume() {
			best = i
		}
	}
	if best >= 0 {
		b := c.boxes[best]
		return NewBox(b.Name, b.Dimensions, fill, false), nil
	}

	return NewBox(customBoxName, c.customDimensions(requiredVolume, envelope), fill, true), nil
}

// customDimensions grows the envelope by the margin on every side, then
// scales it uniformly until the volume covers requiredVolume.
func (c *Catalog) customDimensions(requiredVolume float64, envelope Dimensions) Dimensions {
	d := Dimensions{
		Length: envelope.Length + 2*c.margin,
		Width:  envelope.Width + 2*c.margin,
		Height: envelope.Height + 2*c.margin,
	}
	if v := d.Volume(); v < requiredVolume {
		scale := math.Cbrt(requiredVolume / v)
		d.Length *= scale
		d.Width *= scale
		d.Height *= scale
	}
	return Dimensions{
		Length: ceilTenth(d.Length),
		Width:  ceilTenth(d.Width),
		Height: ceilTenth(d.Height),
	}
}

// ceilTenth rounds up to the next millimetre.
func ceilTenth(v float64) float64 {
	return math.Ceil(v*10) / 10
}
