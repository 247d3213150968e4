package packing

import (
	"fmt"
	"math"
	"sort"
)

// VoidFill is the cushioning material class recommended for a box.
type VoidFill string

const (
	VoidFillBubbleWrap  VoidFill = "bubble_wrap"
	VoidFillAirCushions VoidFill = "air_cushions"
	VoidFillFoamPeanuts VoidFill = "foam_peanuts"
)

// Valid reports whether v is one of the known void fill classes.
func (v VoidFill) Valid() bool {
	switch v {
	case VoidFillBubbleWrap, VoidFillAirCushions, VoidFillFoamPeanuts:
		return true
	}
	return false
}

// Label returns the human readable material name, e.g. "foam peanuts".
func (v VoidFill) Label() string {
	switch v {
	case VoidFillBubbleWrap:
		return "bubble wrap"
	case VoidFillAirCushions:
		return "air cushions"
	case VoidFillFoamPeanuts:
		return "foam peanuts"
	}
	return string(v)
}

// Dimensions are lengths in centimetres along the box frame axes.
type Dimensions struct {
	Length float64 `json:"length" yaml:"length"`
	Width  float64 `json:"width" yaml:"width"`
	Height float64 `json:"height" yaml:"height"`
}

// Volume returns Length*Width*Height in cubic centimetres.
func (d Dimensions) Volume() float64 {
	return d.Length * d.Width * d.Height
}

// MaxSide returns the longest of the three sides.
func (d Dimensions) MaxSide() float64 {
	return math.Max(d.Length, math.Max(d.Width, d.Height))
}

// Sorted returns the sides in ascending order.
func (d Dimensions) Sorted() [3]float64 {
	s := []float64{d.Length, d.Width, d.Height}
	sort.Float64s(s)
	return [3]float64{s[0], s[1], s[2]}
}

// FitsWithin reports whether d fits inside outer in at least one of the six
// axis-aligned orientations.
func (d Dimensions) FitsWithin(outer Dimensions) bool {
	inner := d.Sorted()
	box := outer.Sorted()
	for i := range inner {
		if inner[i] > box[i]+epsilon {
			return false
		}
	}
	return true
}

func (d Dimensions) String() string {
	return fmt.Sprintf("%gx%gx%g", d.Length, d.Width, d.Height)
}

// Item is a line of the shipment as submitted by the caller.
type Item struct {
	Label     string  `json:"label,omitempty"`
	Length    float64 `json:"length"`
	Width     float64 `json:"width"`
	Height    float64 `json:"height"`
	Weight    float64 `json:"weight"`
	Quantity  int     `json:"quantity"`
	Fragility float64 `json:"fragility"`
	Rotatable bool    `json:"is_rotatable"`
}

// Dimensions returns the item's length, width and height.
func (it Item) Dimensions() Dimensions {
	return Dimensions{Length: it.Length, Width: it.Width, Height: it.Height}
}

// UnitVolume is the volume of a single unit of the item.
func (it Item) UnitVolume() float64 {
	return it.Dimensions().Volume()
}

// ItemInstance is one physical unit expanded from an Item.
type ItemInstance struct {
	ID        string     `json:"id"`
	ItemIndex int        `json:"item_index"`
	Label     string     `json:"label,omitempty"`
	Size      Dimensions `json:"size"`
	Weight    float64    `json:"weight"`
	Fragility float64    `json:"fragility"`
	Rotatable bool       `json:"is_rotatable"`
}

// Volume returns the instance volume.
func (in ItemInstance) Volume() float64 {
	return in.Size.Volume()
}

// ExpandInstances turns every item into Quantity independent instances.
// Instance ids are "item-<n>-<k>", both counters starting at 1.
func ExpandInstances(items []Item) []ItemInstance {
	total := 0
	for _, it := range items {
		total += it.Quantity
	}

	out := make([]ItemInstance, 0, total)
	for i, it := range items {
		for k := 0; k < it.Quantity; k++ {
			out = append(out, ItemInstance{
				ID:        fmt.Sprintf("item-%d-%d", i+1, k+1),
				ItemIndex: i,
				Label:     it.Label,
				Size:      it.Dimensions(),
				Weight:    it.Weight,
				Fragility: it.Fragility,
				Rotatable: it.Rotatable,
			})
		}
	}
	return out
}

// Box is a shipping container, either from the catalog or synthesized.
type Box struct {
	Name     string   `json:"name,omitempty"`
	Length   float64  `json:"length"`
	Width    float64  `json:"width"`
	Height   float64  `json:"height"`
	Volume   float64  `json:"volume"`
	VoidFill VoidFill `json:"recommended_void_fill"`
	Custom   bool     `json:"is_custom"`
}

// NewBox builds a box and derives its volume.
func NewBox(name string, dims Dimensions, fill VoidFill, custom bool) Box {
	return Box{
		Name:     name,
		Length:   dims.Length,
		Width:    dims.Width,
		Height:   dims.Height,
		Volume:   dims.Volume(),
		VoidFill: fill,
		Custom:   custom,
	}
}

// Dimensions returns the inner dimensions of the box.
func (b Box) Dimensions() Dimensions {
	return Dimensions{Length: b.Length, Width: b.Width, Height: b.Height}
}

// Point is a coordinate in the box frame, in centimetres.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Placement positions one instance inside the box. Position is the minimum
// corner of the placed bounding box and Size its extent along x, y and z.
type Placement struct {
	Instance    ItemInstance `json:"instance"`
	Position    Point        `json:"position"`
	Orientation Orientation  `json:"orientation"`
	Size        Dimensions   `json:"size"`
	Padding     float64      `json:"padding"`
}

// Max returns the maximum corner of the placement.
func (p Placement) Max() Point {
	return Point{
		X: p.Position.X + p.Size.Length,
		Y: p.Position.Y + p.Size.Width,
		Z: p.Position.Z + p.Size.Height,
	}
}

// Overlaps reports whether two placements share interior volume. Touching
// faces do not count as overlap.
func (p Placement) Overlaps(o Placement) bool {
	return overlaps(p.Position, p.Max(), o.Position, o.Max())
}

// PackingPlan is the complete answer for one optimize request.
type PackingPlan struct {
	Box                 Box         `json:"box"`
	Placements          []Placement `json:"placements"`
	SpaceUtilization    float64     `json:"space_utilization"`
	EstimatedCostSaving float64     `json:"estimated_cost_saving"`
	Instructions        []string    `json:"packing_instructions"`
	LoadingSequence     []string    `json:"loading_sequence"`
	TotalWeight         float64     `json:"total_weight"`
	VolumetricWeight    float64     `json:"volumetric_weight"`
}
