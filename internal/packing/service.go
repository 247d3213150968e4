package packing

import (
	"context"
	"fmt"
	"time"
)

// Planner describes the behaviour required from the packing core.
type Planner interface {
	// PredictBox estimates the shipment and selects a box from catalog.
	PredictBox(ctx context.Context, items []Item, catalog *Catalog) (Recommendation, error)
	// OptimizePack lays the items out in a caller supplied box.
	OptimizePack(ctx context.Context, items []Item, box Box) (PackingPlan, error)
}

// Recommendation is the selected box together with the estimate it was
// derived from.
type Recommendation struct {
	Box      Box      `json:"box"`
	Estimate Estimate `json:"estimate"`
}

type planner struct {
	estimator  VolumeEstimator
	policy     EnvelopePolicy
	packerOpts []PackerOption
	packer     *Packer
	assembler  *Assembler
	timeout    time.Duration
}

// Option configures the planner returned by New.
type Option func(*planner)

// WithEstimator replaces the reference volume formula. A plugged estimator
// ignores WithEnvelopePolicy.
func WithEstimator(e VolumeEstimator) Option {
	return func(p *planner) {
		if e != nil {
			p.estimator = e
		}
	}
}

// WithEnvelopePolicy sets the policy of the reference estimator.
func WithEnvelopePolicy(policy EnvelopePolicy) Option {
	return func(p *planner) {
		p.policy = policy
	}
}

// WithMaxAnchors bounds the packer's anchor search.
func WithMaxAnchors(n int) Option {
	return func(p *planner) {
		p.packerOpts = append(p.packerOpts, WithAnchorLimit(n))
	}
}

// WithMaxInstances bounds the number of item instances one OptimizePack call
// may expand to.
func WithMaxInstances(n int) Option {
	return func(p *planner) {
		p.packerOpts = append(p.packerOpts, WithInstanceLimit(n))
	}
}

// WithCostBaseRate sets the saving credited to a fully utilized box.
func WithCostBaseRate(rate float64) Option {
	return func(p *planner) {
		p.assembler = NewAssembler(rate)
	}
}

// WithPackTimeout bounds the wall-clock time of a single OptimizePack call.
// Zero disables the bound.
func WithPackTimeout(d time.Duration) Option {
	return func(p *planner) {
		p.timeout = d
	}
}

// New creates a Planner backed by the formula estimator, the greedy packer
// and the default cost model.
func New(opts ...Option) Planner {
	p := &planner{
		policy:    EnvelopeMaxPerAxis,
		assembler: NewAssembler(DefaultCostBaseRate),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.estimator == nil {
		p.estimator = NewFormulaEstimator(p.policy)
	}
	p.packer = NewPacker(p.packerOpts...)
	return p
}

func (p *planner) PredictBox(ctx context.Context, items []Item, catalog *Catalog) (Recommendation, error) {
	if err := ctx.Err(); err != nil {
		return Recommendation{}, err
	}
	if catalog == nil {
		catalog = DefaultCatalog()
	}

	est, err := p.estimator.Estimate(items)
	if err != nil {
		return Recommendation{}, fmt.Errorf("estimate volume: %w", err)
	}
	box, err := catalog.SelectBox(est.RequiredVolume, est.Envelope, est.VoidFill)
	if err != nil {
		return Recommendation{}, fmt.Errorf("select box: %w", err)
	}
	return Recommendation{Box: box, Estimate: est}, nil
}

func (p *planner) OptimizePack(ctx context.Context, items []Item, box Box) (PackingPlan, error) {
	if err := ValidateItems(items); err != nil {
		return PackingPlan{}, err
	}
	if err := ValidateBox(box); err != nil {
		return PackingPlan{}, err
	}
	if err := p.packer.CheckItems(items); err != nil {
		return PackingPlan{}, fmt.Errorf("pack %d item line(s) into %s box: %w", len(items), box.Dimensions(), err)
	}

	box.Volume = box.Dimensions().Volume()
	if box.VoidFill == "" {
		fragility := 0.0
		for _, it := range items {
			fragility = max(fragility, it.Fragility)
		}
		box.VoidFill = VoidFillFor(fragility)
	}

	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	placements, err := p.packer.Pack(ctx, box, ExpandInstances(items))
	if err != nil {
		return PackingPlan{}, fmt.Errorf("pack %d item line(s) into %s box: %w", len(items), box.Dimensions(), err)
	}
	return p.assembler.Assemble(box, placements, items), nil
}
