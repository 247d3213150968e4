package api

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/eugenenazirov/smartpack/internal/packing"
)

// Defaults applied to optional item fields.
const (
	defaultQuantity  = 1
	defaultFragility = 0.5
	defaultRotatable = true
)

type itemRequest struct {
	Label       string   `json:"label,omitempty" validate:"max=120"`
	Length      float64  `json:"length" validate:"gt=0"`
	Width       float64  `json:"width" validate:"gt=0"`
	Height      float64  `json:"height" validate:"gt=0"`
	Weight      float64  `json:"weight" validate:"gt=0"`
	Quantity    *int     `json:"quantity,omitempty" validate:"omitempty,min=1,max=10000"`
	Fragility   *float64 `json:"fragility,omitempty" validate:"omitempty,gte=0,lte=1"`
	IsRotatable *bool    `json:"is_rotatable,omitempty"`
}

func (it itemRequest) toItem() packing.Item {
	item := packing.Item{
		Label:     it.Label,
		Length:    it.Length,
		Width:     it.Width,
		Height:    it.Height,
		Weight:    it.Weight,
		Quantity:  defaultQuantity,
		Fragility: defaultFragility,
		Rotatable: defaultRotatable,
	}
	if it.Quantity != nil {
		item.Quantity = *it.Quantity
	}
	if it.Fragility != nil {
		item.Fragility = *it.Fragility
	}
	if it.IsRotatable != nil {
		item.Rotatable = *it.IsRotatable
	}
	return item
}

func toItems(reqs []itemRequest) []packing.Item {
	items := make([]packing.Item, len(reqs))
	for i, r := range reqs {
		items[i] = r.toItem()
	}
	return items
}

type boxRequest struct {
	Name     string  `json:"name,omitempty" validate:"max=64"`
	Length   float64 `json:"length" validate:"gt=0"`
	Width    float64 `json:"width" validate:"gt=0"`
	Height   float64 `json:"height" validate:"gt=0"`
	VoidFill string  `json:"recommended_void_fill,omitempty" validate:"omitempty,oneof=bubble_wrap air_cushions foam_peanuts"`
}

func (b boxRequest) toBox() packing.Box {
	dims := packing.Dimensions{Length: b.Length, Width: b.Width, Height: b.Height}
	return packing.NewBox(b.Name, dims, packing.VoidFill(b.VoidFill), false)
}

type predictBoxRequest struct {
	Items []itemRequest `json:"items" validate:"required,min=1,max=500,dive"`
}

type optimizePackRequest struct {
	Items []itemRequest `json:"items" validate:"required,min=1,max=500,dive"`
	Box   *boxRequest   `json:"box" validate:"required"`
}

type catalogBoxRequest struct {
	Name   string  `json:"name,omitempty" validate:"max=64"`
	Length float64 `json:"length" validate:"gt=0"`
	Width  float64 `json:"width" validate:"gt=0"`
	Height float64 `json:"height" validate:"gt=0"`
}

type boxesRequest struct {
	Boxes []catalogBoxRequest `json:"boxes" validate:"required,min=1,dive"`
}

func (b boxesRequest) toCatalogBoxes() []packing.CatalogBox {
	out := make([]packing.CatalogBox, len(b.Boxes))
	for i, box := range b.Boxes {
		out[i] = packing.CatalogBox{
			Name:       box.Name,
			Dimensions: packing.Dimensions{Length: box.Length, Width: box.Width, Height: box.Height},
		}
	}
	return out
}

type predictBoxResponse struct {
	Box            packing.Box        `json:"recommended_box"`
	RequiredVolume float64            `json:"required_volume"`
	Envelope       packing.Dimensions `json:"required_envelope"`
	VoidFill       packing.VoidFill   `json:"void_fill"`
	LengthUnit     string             `json:"length_unit"`
	ComputedInMs   int64              `json:"computed_in_ms"`
}

type optimizePackResponse struct {
	packing.PackingPlan
	LengthUnit   string `json:"length_unit"`
	MassUnit     string `json:"mass_unit"`
	ComputedInMs int64  `json:"computed_in_ms"`
}

type boxesResponse struct {
	Boxes     []packing.CatalogBox `json:"boxes"`
	UpdatedAt time.Time            `json:"updated_at"`
	Message   string               `json:"message,omitempty"`
}

type healthResponse struct {
	Status    string    `json:"status"`
	Version   string    `json:"version"`
	Timestamp time.Time `json:"timestamp"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// validateRequest returns a message per invalid field, keyed by the JSON path
// of the field (e.g. items[0].length). It returns nil when req is valid.
func validateRequest(req any) map[string]string {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return map[string]string{"body": err.Error()}
	}

	fields := make(map[string]string, len(validationErrors))
	for _, fe := range validationErrors {
		fields[fieldPath(fe)] = fieldMessage(fe)
	}
	return fields
}

// fieldPath drops the top-level struct name from the validator namespace.
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if _, rest, ok := strings.Cut(ns, "."); ok {
		return rest
	}
	return ns
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "gt":
		return fmt.Sprintf("must be greater than %s", fe.Param())
	case "gte":
		return fmt.Sprintf("must be greater than or equal to %s", fe.Param())
	case "lte":
		return fmt.Sprintf("must be less than or equal to %s", fe.Param())
	case "min":
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("must contain at least %s entries", fe.Param())
		}
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max":
		switch fe.Kind() {
		case reflect.Slice:
			return fmt.Sprintf("must contain at most %s entries", fe.Param())
		case reflect.String:
			return fmt.Sprintf("must be at most %s characters", fe.Param())
		}
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of: %s", fe.Param())
	default:
		return "is invalid"
	}
}
