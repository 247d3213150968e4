package packing

import "fmt"

// epsilon absorbs floating point noise in fit and overlap checks.
const epsilon = 1e-9

// Orientation is one of the six axis-aligned ways to lay a cuboid in the box.
// The name lists which item side runs along x, y and z.
type Orientation int

const (
	OrientationLWH Orientation = iota // identity
	OrientationLHW
	OrientationWLH
	OrientationWHL
	OrientationHLW
	OrientationHWL
)

var orientationNames = [...]string{"LWH", "LHW", "WLH", "WHL", "HLW", "HWL"}

// allOrientations is the enumeration order used by the packer.
var allOrientations = []Orientation{
	OrientationLWH, OrientationLHW, OrientationWLH,
	OrientationWHL, OrientationHLW, OrientationHWL,
}

func (o Orientation) String() string {
	if o < 0 || int(o) >= len(orientationNames) {
		return fmt.Sprintf("Orientation(%d)", int(o))
	}
	return orientationNames[o]
}

// MarshalText encodes the orientation by name.
func (o Orientation) MarshalText() ([]byte, error) {
	if o < 0 || int(o) >= len(orientationNames) {
		return nil, fmt.Errorf("unknown orientation %d", int(o))
	}
	return []byte(orientationNames[o]), nil
}

// UnmarshalText decodes an orientation name such as "WLH".
func (o *Orientation) UnmarshalText(text []byte) error {
	for i, name := range orientationNames {
		if name == string(text) {
			*o = Orientation(i)
			return nil
		}
	}
	return fmt.Errorf("unknown orientation %q", string(text))
}

// Apply returns the extents along x, y and z of d laid out in orientation o.
func (o Orientation) Apply(d Dimensions) Dimensions {
	l, w, h := d.Length, d.Width, d.Height
	switch o {
	case OrientationLHW:
		return Dimensions{Length: l, Width: h, Height: w}
	case OrientationWLH:
		return Dimensions{Length: w, Width: l, Height: h}
	case OrientationWHL:
		return Dimensions{Length: w, Width: h, Height: l}
	case OrientationHLW:
		return Dimensions{Length: h, Width: l, Height: w}
	case OrientationHWL:
		return Dimensions{Length: h, Width: w, Height: l}
	default:
		return d
	}
}

// orientationsFor lists the orientations worth trying for an instance.
// Orientations producing identical extents (cubes, square faces) are tried once.
func orientationsFor(in ItemInstance) []Orientation {
	if !in.Rotatable {
		return []Orientation{OrientationLWH}
	}
	out := make([]Orientation, 0, len(allOrientations))
	seen := make(map[Dimensions]struct{}, len(allOrientations))
	for _, o := range allOrientations {
		ext := o.Apply(in.Size)
		if _, dup := seen[ext]; dup {
			continue
		}
		seen[ext] = struct{}{}
		out = append(out, o)
	}
	return out
}

// overlaps reports open-interior intersection of two axis-aligned boxes given
// by their min and max corners.
func overlaps(aMin, aMax, bMin, bMax Point) bool {
	return aMin.X < bMax.X-epsilon && bMin.X < aMax.X-epsilon &&
		aMin.Y < bMax.Y-epsilon && bMin.Y < aMax.Y-epsilon &&
		aMin.Z < bMax.Z-epsilon && bMin.Z < aMax.Z-epsilon
}
