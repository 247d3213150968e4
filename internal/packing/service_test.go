package packing

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPredictBoxMixedShipment(t *testing.T) {
	t.Parallel()

	planner := New()
	rec, err := planner.PredictBox(context.Background(), mixedShipment(), nil)
	require.NoError(t, err)

	assert.Equal(t, "M", rec.Box.Name)
	assert.Equal(t, VoidFillFoamPeanuts, rec.Box.VoidFill)
	assert.GreaterOrEqual(t, rec.Box.Volume, rec.Estimate.RequiredVolume)
	assert.GreaterOrEqual(t, rec.Box.Length, 25.0)
	assert.GreaterOrEqual(t, rec.Box.Width, 18.0)
	assert.GreaterOrEqual(t, rec.Box.Height, 10.0)
}

func TestPredictBoxOversizedItemGetsCustomBox(t *testing.T) {
	t.Parallel()

	rec, err := New().PredictBox(context.Background(), []Item{cube(40, 1, 0)}, DefaultCatalog())
	require.NoError(t, err)

	assert.True(t, rec.Box.Custom)
	assert.True(t, Dimensions{Length: 40, Width: 40, Height: 40}.FitsWithin(rec.Box.Dimensions()))
}

func TestPredictBoxUsesSuppliedCatalogAndPolicy(t *testing.T) {
	t.Parallel()

	catalog, err := NewCatalog([]CatalogBox{
		{Name: "tube", Dimensions: Dimensions{Length: 60, Width: 10, Height: 10}},
		{Name: "crate", Dimensions: Dimensions{Length: 60, Width: 60, Height: 60}},
	}, DefaultCustomMargin)
	require.NoError(t, err)

	items := []Item{
		{Length: 30, Width: 5, Height: 5, Weight: 1, Quantity: 1},
		{Length: 5, Width: 30, Height: 5, Weight: 1, Quantity: 1},
	}

	rec, err := New(WithEnvelopePolicy(EnvelopeLargestItem)).PredictBox(context.Background(), items, catalog)
	require.NoError(t, err)
	assert.Equal(t, "tube", rec.Box.Name)

	rec, err = New(WithEnvelopePolicy(EnvelopeMaxPerAxis)).PredictBox(context.Background(), items, catalog)
	require.NoError(t, err)
	assert.Equal(t, "crate", rec.Box.Name)
}

func TestPredictBoxInvalidInput(t *testing.T) {
	t.Parallel()

	_, err := New().PredictBox(context.Background(), nil, nil)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

type fixedEstimator struct{ est Estimate }

func (f fixedEstimator) Estimate([]Item) (Estimate, error) { return f.est, nil }

func TestPredictBoxWithPluggedEstimator(t *testing.T) {
	t.Parallel()

	planner := New(WithEstimator(fixedEstimator{est: Estimate{
		RequiredVolume: 20000,
		Envelope:       Dimensions{Length: 1, Width: 1, Height: 1},
		VoidFill:       VoidFillAirCushions,
	}}))

	rec, err := planner.PredictBox(context.Background(), []Item{cube(1, 1, 0)}, nil)
	require.NoError(t, err)
	assert.Equal(t, "L", rec.Box.Name)
	assert.Equal(t, VoidFillAirCushions, rec.Box.VoidFill)
}

func TestPlannerOptionsDoNotOverrideEachOther(t *testing.T) {
	t.Parallel()

	fixed := fixedEstimator{est: Estimate{
		RequiredVolume: 20000,
		Envelope:       Dimensions{Length: 1, Width: 1, Height: 1},
		VoidFill:       VoidFillAirCushions,
	}}
	rec, err := New(WithEstimator(fixed), WithEnvelopePolicy(EnvelopeLargestItem)).
		PredictBox(context.Background(), []Item{cube(1, 1, 0)}, nil)
	require.NoError(t, err)
	assert.Equal(t, "L", rec.Box.Name)

	_, err = New(WithMaxInstances(3), WithMaxAnchors(DefaultMaxAnchors)).
		OptimizePack(context.Background(), []Item{cube(5, 4, 0)}, Box{Length: 30, Width: 30, Height: 30})
	var exceeded *ResourceExceededError
	require.ErrorAs(t, err, &exceeded)
	assert.Equal(t, ResourceInstances, exceeded.Resource)
}

func TestOptimizePackFiveCubes(t *testing.T) {
	t.Parallel()

	box := Box{Name: "cube box", Length: 30, Width: 30, Height: 30}
	plan, err := New().OptimizePack(context.Background(), []Item{cube(15, 5, 0.1)}, box)
	require.NoError(t, err)

	require.Len(t, plan.Placements, 5)
	require.NoError(t, VerifyPlacements(plan.Box, plan.Placements))
	assert.InDelta(t, 0.625, plan.SpaceUtilization, 1e-9)
	assert.InDelta(t, 3.125, plan.EstimatedCostSaving, 1e-9)
	assert.InDelta(t, 27000, plan.Box.Volume, 1e-9)
	assert.Equal(t, VoidFillBubbleWrap, plan.Box.VoidFill)
	assert.Len(t, plan.LoadingSequence, 5)
}

func TestOptimizePackUndersizedBoxIsInfeasible(t *testing.T) {
	t.Parallel()

	box := Box{Length: 20, Width: 20, Height: 20}
	_, err := New().OptimizePack(context.Background(), []Item{cube(40, 1, 0)}, box)

	require.ErrorIs(t, err, ErrInfeasible)
	var infeasible *InfeasibleError
	require.ErrorAs(t, err, &infeasible)
	assert.Equal(t, []string{"item-1-1"}, infeasible.Unplaced)
}

func TestOptimizePackKeepsRequestedVoidFill(t *testing.T) {
	t.Parallel()

	box := Box{Length: 30, Width: 30, Height: 30, VoidFill: VoidFillFoamPeanuts}
	plan, err := New().OptimizePack(context.Background(), []Item{cube(10, 1, 0)}, box)
	require.NoError(t, err)
	assert.Equal(t, VoidFillFoamPeanuts, plan.Box.VoidFill)
	assert.Contains(t, plan.Instructions, "Use foam peanuts for padding")
}

func TestOptimizePackInvalidInput(t *testing.T) {
	t.Parallel()

	_, err := New().OptimizePack(context.Background(), []Item{cube(10, 1, 0)}, Box{Length: 10, Width: 10})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = New().OptimizePack(context.Background(), []Item{cube(10, 0, 0)}, Box{Length: 10, Width: 10, Height: 10})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = New().OptimizePack(context.Background(), []Item{cube(10, 1, 0)}, Box{Length: 10, Width: 10, Height: 10, VoidFill: "sawdust"})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestOptimizePackResourceLimits(t *testing.T) {
	t.Parallel()

	box := Box{Length: 30, Width: 30, Height: 30}
	items := []Item{cube(5, 4, 0)}

	_, err := New(WithMaxAnchors(2)).OptimizePack(context.Background(), items, box)
	assert.ErrorIs(t, err, ErrResourceExceeded)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = New(WithPackTimeout(time.Second)).OptimizePack(ctx, items, box)
	assert.ErrorIs(t, err, ErrResourceExceeded)
}

func TestOptimizePackRejectsHugeShipmentUpFront(t *testing.T) {
	t.Parallel()

	items := make([]Item, 500)
	for i := range items {
		items[i] = cube(1, 10000, 0)
	}
	box := Box{Length: 1000, Width: 1000, Height: 1000}

	start := time.Now()
	_, err := New(WithPackTimeout(2*time.Second)).OptimizePack(context.Background(), items, box)
	require.ErrorIs(t, err, ErrResourceExceeded)
	assert.Less(t, time.Since(start), time.Second)

	var exceeded *ResourceExceededError
	require.ErrorAs(t, err, &exceeded)
	assert.Equal(t, ResourceInstances, exceeded.Resource)
	assert.Equal(t, 5_000_000, exceeded.Total)
	assert.NoError(t, exceeded.Cause)
}
