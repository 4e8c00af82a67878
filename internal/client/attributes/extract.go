package attributes

import (
	"math"
	"strconv"
	"strings"

	"github.com/cornjacket/sortable-verifier/internal/shared/domain/clock"
	"github.com/cornjacket/sortable-verifier/internal/shared/domain/sortable"
)

// Extract reads the kept fields out of a decoded attributes document.
// Missing or mistyped fields become Unknown, zero, or empty; only a missing
// attributes object is an error.
func Extract(asin string, doc any) (sortable.Attributes, error) {
	root, _ := doc.(map[string]any)
	attr, _ := root["attributes"].(map[string]any)
	if len(attr) == 0 {
		return sortable.Attributes{}, ErrNoAttributes
	}

	dims, _ := attr["item_dimensions"].(map[string]any)

	return sortable.Attributes{
		ASIN:         asin,
		IsSortable:   triValue(attr["is_sortable"]),
		IsConveyable: triValue(attr["is_conveyable"]),
		IsHazmat:     triValue(attr["is_hazmat"]),
		HeightCM:     round2(number(field(dims["height"]))),
		LengthCM:     round2(number(field(dims["length"]))),
		WidthCM:      round2(number(field(dims["width"]))),
		WeightKG:     round2(weight(attr["item_weight"])),
		ItemName:     text(field(attr["item_name"])),
		Category:     text(field(attr["gl_product_group_localized_name"])),
		QueryDate:    clock.Now(),
	}, nil
}

// field returns v["value"] when v is an object.
func field(v any) any {
	m, ok := v.(map[string]any)
	if !ok {
		return nil
	}
	return m["value"]
}

// weight reads item_weight.value, which is either a number or an object with
// its own value.
func weight(v any) float64 {
	w := field(v)
	if nested, ok := w.(map[string]any); ok {
		return number(nested["value"])
	}
	return number(w)
}

func triValue(v any) sortable.Tri {
	switch t := field(v).(type) {
	case bool:
		return sortable.TriFromBool(t)
	case string:
		return sortable.ParseTri(t)
	default:
		return sortable.Unknown
	}
}

func number(v any) float64 {
	switch t := v.(type) {
	case float64:
		return t
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0
		}
		return f
	default:
		return 0
	}
}

func text(v any) string {
	s, _ := v.(string)
	return s
}

func round2(f float64) float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return math.Round(f*100) / 100
}
