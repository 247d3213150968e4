package packing

import (
	"fmt"
	"math"
)

// ValidateItems checks the item list against the input contract: at least one
// item, positive finite dimensions and weight, quantity of at least one and
// fragility within [0,1].
func ValidateItems(items []Item) error {
	if len(items) == 0 {
		return invalid("items", "at least one item is required")
	}
	for i, it := range items {
		prefix := fmt.Sprintf("items[%d]", i)
		if err := positive(prefix+".length", it.Length); err != nil {
			return err
		}
		if err := positive(prefix+".width", it.Width); err != nil {
			return err
		}
		if err := positive(prefix+".height", it.Height); err != nil {
			return err
		}
		if err := positive(prefix+".weight", it.Weight); err != nil {
			return err
		}
		if it.Quantity < 1 {
			return invalid(prefix+".quantity", "must be at least 1, got %d", it.Quantity)
		}
		if math.IsNaN(it.Fragility) || it.Fragility < 0 || it.Fragility > 1 {
			return invalid(prefix+".fragility", "must be within [0,1], got %g", it.Fragility)
		}
	}
	return nil
}

// ValidateBox checks that a caller supplied box has usable dimensions.
func ValidateBox(box Box) error {
	if err := positive("box.length", box.Length); err != nil {
		return err
	}
	if err := positive("box.width", box.Width); err != nil {
		return err
	}
	if err := positive("box.height", box.Height); err != nil {
		return err
	}
	if box.VoidFill != "" && !box.VoidFill.Valid() {
		return invalid("box.recommended_void_fill", "unknown void fill %q", box.VoidFill)
	}
	return nil
}

func positive(field string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
		return invalid(field, "must be a positive number, got %g", v)
	}
	return nil
}
