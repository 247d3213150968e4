package packing

import (
	"context"
	"math"
	"sort"
)

const (
	// DefaultMaxAnchors caps the candidate anchor list of a single pack run.
	DefaultMaxAnchors = 4096
	// DefaultMaxInstances caps the number of item instances a single pack run accepts.
	DefaultMaxInstances = 2000
)

// Packer places item instances inside a box using a bottom-left-back greedy
// search over anchor points. A Packer holds only configuration and is safe
// for concurrent use.
type Packer struct {
	maxAnchors   int
	maxInstances int
}

// PackerOption configures a Packer.
type PackerOption func(*Packer)

// WithAnchorLimit bounds the anchor list; runs that exceed it fail with
// ErrResourceExceeded. Non-positive values keep the default.
func WithAnchorLimit(n int) PackerOption {
	return func(p *Packer) {
		if n > 0 {
			p.maxAnchors = n
		}
	}
}

// WithInstanceLimit bounds the number of instances a run accepts; larger
// shipments fail with ErrResourceExceeded before any placement work starts.
// Non-positive values keep the default.
func WithInstanceLimit(n int) PackerOption {
	return func(p *Packer) {
		if n > 0 {
			p.maxInstances = n
		}
	}
}

// NewPacker creates a Packer.
func NewPacker(opts ...PackerOption) *Packer {
	p := &Packer{maxAnchors: DefaultMaxAnchors, maxInstances: DefaultMaxInstances}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Pack assigns a non-overlapping position to every instance. Instances are
// placed heaviest and largest first; each one takes the lowest z, then y,
// then x anchor where some allowed orientation fits. Fragility padding is
// honoured around an instance whenever a padded position exists.
//
// On failure the error is an *InfeasibleError listing every unplaced
// instance, or a *ResourceExceededError when the instance or anchor cap is
// hit or ctx is done.
func (p *Packer) Pack(ctx context.Context, box Box, instances []ItemInstance) ([]Placement, error) {
	if err := ValidateBox(box); err != nil {
		return nil, err
	}
	if len(instances) == 0 {
		return nil, invalid("items", "at least one item instance is required")
	}
	if err := p.checkInstanceCount(len(instances)); err != nil {
		return nil, err
	}

	fill := box.VoidFill
	if !fill.Valid() {
		fill = VoidFillFor(maxFragility(instances))
	}

	order := sortForPacking(instances)
	bounds := box.Dimensions()

	var oversized []ItemInstance
	for _, in := range order {
		if !fitsEmptyBox(in, bounds) {
			oversized = append(oversized, in)
		}
	}
	if len(oversized) > 0 {
		return nil, newInfeasibleError(box, instances, oversized, true)
	}

	st := newPackState(bounds, len(order))
	var unplaced []ItemInstance
	for _, in := range order {
		if err := ctx.Err(); err != nil {
			return nil, p.exceeded(st, len(order), err)
		}

		pad := PaddingThickness(in.Fragility, fill)
		pl, ok := st.find(in, pad)
		if !ok && pad > 0 {
			pad = 0
			pl, ok = st.find(in, 0)
		}
		if !ok {
			unplaced = append(unplaced, in)
			continue
		}

		st.commit(pl, pad)
		if len(st.anchors) > p.maxAnchors {
			return nil, p.exceeded(st, len(order), nil)
		}
	}

	if len(unplaced) > 0 {
		return nil, newInfeasibleError(box, instances, unplaced, false)
	}
	return st.placed, nil
}

// CheckItems reports a *ResourceExceededError when items expand to more
// instances than the packer accepts. It never allocates the instances.
func (p *Packer) CheckItems(items []Item) error {
	total := 0
	for _, it := range items {
		q := max(it.Quantity, 0)
		if q > math.MaxInt-total {
			total = math.MaxInt
			break
		}
		total += q
	}
	return p.checkInstanceCount(total)
}

func (p *Packer) checkInstanceCount(n int) error {
	if n <= p.maxInstances {
		return nil
	}
	return &ResourceExceededError{Resource: ResourceInstances, Limit: p.maxInstances, Total: n}
}

func (p *Packer) exceeded(st *packState, total int, cause error) error {
	resource := ResourceAnchors
	if cause != nil {
		resource = ""
	}
	return &ResourceExceededError{
		Resource: resource,
		Limit:    p.maxAnchors,
		Anchors:  len(st.anchors),
		Placed:   len(st.placed),
		Total:    total,
		Cause:    cause,
	}
}

// sortForPacking orders instances by volume, weight and longest side, all
// descending, keeping input order for full ties.
func sortForPacking(instances []ItemInstance) []ItemInstance {
	out := make([]ItemInstance, len(instances))
	copy(out, instances)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if va, vb := a.Volume(), b.Volume(); va != vb {
			return va > vb
		}
		if a.Weight != b.Weight {
			return a.Weight > b.Weight
		}
		return a.Size.MaxSide() > b.Size.MaxSide()
	})
	return out
}

func fitsEmptyBox(in ItemInstance, bounds Dimensions) bool {
	for _, o := range orientationsFor(in) {
		ext := o.Apply(in.Size)
		if ext.Length <= bounds.Length+epsilon && ext.Width <= bounds.Width+epsilon && ext.Height <= bounds.Height+epsilon {
			return true
		}
	}
	return false
}

func maxFragility(instances []ItemInstance) float64 {
	m := 0.0
	for _, in := range instances {
		m = math.Max(m, in.Fragility)
	}
	return m
}

// packState is the mutable state of one Pack call.
type packState struct {
	bounds  Dimensions
	anchors []Point
	seen    map[anchorKey]struct{}
	placed  []Placement
}

type anchorKey struct{ x, y, z int64 }

func keyOf(pt Point) anchorKey {
	const scale = 1e6
	return anchorKey{
		x: int64(math.Round(pt.X * scale)),
		y: int64(math.Round(pt.Y * scale)),
		z: int64(math.Round(pt.Z * scale)),
	}
}

func newPackState(bounds Dimensions, capacity int) *packState {
	origin := Point{}
	return &packState{
		bounds:  bounds,
		anchors: []Point{origin},
		seen:    map[anchorKey]struct{}{keyOf(origin): {}},
		placed:  make([]Placement, 0, capacity),
	}
}

// find returns the first anchor and orientation where in fits with the given
// padding clearance toward already placed instances.
func (s *packState) find(in ItemInstance, pad float64) (Placement, bool) {
	orientations := orientationsFor(in)
	for _, a := range s.anchors {
		for _, o := range orientations {
			ext := o.Apply(in.Size)
			hi := Point{X: a.X + ext.Length, Y: a.Y + ext.Width, Z: a.Z + ext.Height}
			if hi.X > s.bounds.Length+epsilon || hi.Y > s.bounds.Width+epsilon || hi.Z > s.bounds.Height+epsilon {
				continue
			}
			if s.collides(s.padded(a, hi, pad)) {
				continue
			}
			return Placement{
				Instance:    in,
				Position:    a,
				Orientation: o,
				Size:        ext,
				Padding:     pad,
			}, true
		}
	}
	return Placement{}, false
}

// padded grows a candidate by pad on every face, clipped at the box walls so
// no clearance is demanded against them.
func (s *packState) padded(lo, hi Point, pad float64) (Point, Point) {
	if pad <= 0 {
		return lo, hi
	}
	return Point{
			X: math.Max(0, lo.X-pad),
			Y: math.Max(0, lo.Y-pad),
			Z: math.Max(0, lo.Z-pad),
		}, Point{
			X: math.Min(s.bounds.Length, hi.X+pad),
			Y: math.Min(s.bounds.Width, hi.Y+pad),
			Z: math.Min(s.bounds.Height, hi.Z+pad),
		}
}

func (s *packState) collides(lo, hi Point) bool {
	for _, p := range s.placed {
		if overlaps(lo, hi, p.Position, p.Max()) {
			return true
		}
	}
	return false
}

// commit records a placement, drops anchors it covers and adds anchors on
// its right, front and top faces, plus the same faces pushed out by pad.
func (s *packState) commit(pl Placement, pad float64) {
	s.placed = append(s.placed, pl)

	kept := s.anchors[:0]
	for _, a := range s.anchors {
		if !covers(pl, a) {
			kept = append(kept, a)
		}
	}
	s.anchors = kept

	hi := pl.Max()
	lo := pl.Position
	candidates := []Point{
		{X: hi.X, Y: lo.Y, Z: lo.Z},
		{X: lo.X, Y: hi.Y, Z: lo.Z},
		{X: lo.X, Y: lo.Y, Z: hi.Z},
	}
	if pad > 0 {
		candidates = append(candidates,
			Point{X: hi.X + pad, Y: lo.Y, Z: lo.Z},
			Point{X: lo.X, Y: hi.Y + pad, Z: lo.Z},
			Point{X: lo.X, Y: lo.Y, Z: hi.Z + pad},
		)
	}
	for _, c := range candidates {
		s.addAnchor(c)
	}

	sort.Slice(s.anchors, func(i, j int) bool {
		a, b := s.anchors[i], s.anchors[j]
		if a.Z != b.Z {
			return a.Z < b.Z
		}
		if a.Y != b.Y {
			return a.Y < b.Y
		}
		return a.X < b.X
	})
}

func (s *packState) addAnchor(pt Point) {
	if pt.X >= s.bounds.Length-epsilon || pt.Y >= s.bounds.Width-epsilon || pt.Z >= s.bounds.Height-epsilon {
		return
	}
	k := keyOf(pt)
	if _, dup := s.seen[k]; dup {
		return
	}
	for _, p := range s.placed {
		if covers(p, pt) {
			return
		}
	}
	s.seen[k] = struct{}{}
	s.anchors = append(s.anchors, pt)
}

// covers reports whether pt lies in the half-open volume [min, max) of pl,
// where nothing else can ever be anchored.
func covers(pl Placement, pt Point) bool {
	hi := pl.Max()
	lo := pl.Position
	return pt.X >= lo.X-epsilon && pt.X < hi.X-epsilon &&
		pt.Y >= lo.Y-epsilon && pt.Y < hi.Y-epsilon &&
		pt.Z >= lo.Z-epsilon && pt.Z < hi.Z-epsilon
}

func newInfeasibleError(box Box, all, unplaced []ItemInstance, oversized bool) *InfeasibleError {
	e := &InfeasibleError{
		Box:             box,
		Unplaced:        make([]string, 0, len(unplaced)),
		AvailableVolume: box.Dimensions().Volume(),
		Oversized:       oversized,
	}
	for _, in := range all {
		e.RequiredVolume += in.Volume()
	}
	for _, in := range unplaced {
		e.Unplaced = append(e.Unplaced, in.ID)
		e.UnplacedVolume += in.Volume()
	}
	return e
}

// VerifyPlacements checks containment and pairwise non-overlap of a layout.
func VerifyPlacements(box Box, placements []Placement) error {
	bounds := box.Dimensions()
	for i, p := range placements {
		hi := p.Max()
		if p.Position.X < -epsilon || p.Position.Y < -epsilon || p.Position.Z < -epsilon ||
			hi.X > bounds.Length+epsilon || hi.Y > bounds.Width+epsilon || hi.Z > bounds.Height+epsilon {
			return invalid("placements", "%s lies outside the box", p.Instance.ID)
		}
		for _, q := range placements[i+1:] {
			if p.Overlaps(q) {
				return invalid("placements", "%s overlaps %s", p.Instance.ID, q.Instance.ID)
			}
		}
	}
	return nil
}
