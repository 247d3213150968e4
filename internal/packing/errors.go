package packing

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidInput is returned when items, boxes or catalog entries violate validation rules.
	ErrInvalidInput = errors.New("invalid input")
	// ErrInfeasible is returned when one or more instances cannot be placed in the box.
	ErrInfeasible = errors.New("items cannot be packed into the box")
	// ErrResourceExceeded is returned when the placement search outgrows its configured bound.
	ErrResourceExceeded = errors.New("packing search exceeded its resource bound")
)

// InputError names the offending field of a rejected input.
type InputError struct {
	Field  string
	Reason string
}

func (e *InputError) Error() string {
	return fmt.Sprintf("%s: %s: %s", ErrInvalidInput, e.Field, e.Reason)
}

func (e *InputError) Unwrap() error { return ErrInvalidInput }

func invalid(field, format string, args ...any) error {
	return &InputError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// InfeasibleError describes why a packing attempt failed.
type InfeasibleError struct {
	Box Box
	// Unplaced lists the ids of every instance that could not be placed.
	Unplaced []string
	// RequiredVolume is the total volume of all instances.
	RequiredVolume float64
	// AvailableVolume is the box volume.
	AvailableVolume float64
	// UnplacedVolume is the total volume of the unplaced instances.
	UnplacedVolume float64
	// Oversized is set when the unplaced instances do not fit the empty box at all.
	Oversized bool
}

func (e *InfeasibleError) Error() string {
	return fmt.Sprintf("%s: %d instance(s) unplaced [%s], unplaced volume %.1f cm3, required %.1f of %.1f cm3",
		ErrInfeasible, len(e.Unplaced), strings.Join(e.Unplaced, ", "),
		e.UnplacedVolume, e.RequiredVolume, e.AvailableVolume)
}

func (e *InfeasibleError) Unwrap() error { return ErrInfeasible }

// Shortfall returns how much volume the box lacks for the whole shipment.
// It is zero when the failure is geometric rather than volumetric.
func (e *InfeasibleError) Shortfall() float64 {
	if d := e.RequiredVolume - e.AvailableVolume; d > 0 {
		return d
	}
	return 0
}

// Bounded resources reported by ResourceExceededError.
const (
	ResourceAnchors   = "anchors"
	ResourceInstances = "instances"
)

// ResourceExceededError reports a search stopped by the anchor cap, the
// instance cap or a cancelled context.
type ResourceExceededError struct {
	// Resource is ResourceAnchors or ResourceInstances; empty for a context stop.
	Resource string
	Limit    int
	Anchors  int
	Placed   int
	Total    int
	Cause    error
}

func (e *ResourceExceededError) Error() string {
	if e.Resource == ResourceInstances {
		return fmt.Sprintf("%s: %d item instances exceed limit %d", ErrResourceExceeded, e.Total, e.Limit)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: stopped after placing %d of %d instances: %v", ErrResourceExceeded, e.Placed, e.Total, e.Cause)
	}
	return fmt.Sprintf("%s: %d anchor points exceed limit %d after placing %d of %d instances",
		ErrResourceExceeded, e.Anchors, e.Limit, e.Placed, e.Total)
}

// Is matches ErrResourceExceeded; the cause is reachable through Unwrap.
func (e *ResourceExceededError) Is(target error) bool {
	return target == ErrResourceExceeded
}

func (e *ResourceExceededError) Unwrap() error { return e.Cause }
