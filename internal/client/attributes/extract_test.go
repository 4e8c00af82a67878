package attributes

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cornjacket/sortable-verifier/internal/shared/domain/sortable"
)

func TestExtract(t *testing.T) {
	tests := []struct {
		name  string
		attrs map[string]any
		check func(t *testing.T, a sortable.Attributes)
	}{
		{
			name:  "not sortable",
			attrs: map[string]any{"is_sortable": map[string]any{"value": false}},
			check: func(t *testing.T, a sortable.Attributes) {
				assert.Equal(t, sortable.False, a.IsSortable)
			},
		},
		{
			name:  "sortable as string",
			attrs: map[string]any{"is_sortable": map[string]any{"value": "TRUE"}},
			check: func(t *testing.T, a sortable.Attributes) {
				assert.Equal(t, sortable.True, a.IsSortable)
			},
		},
		{
			name:  "sortable missing",
			attrs: map[string]any{"item_name": map[string]any{"value": "Widget"}},
			check: func(t *testing.T, a sortable.Attributes) {
				assert.Equal(t, sortable.Unknown, a.IsSortable)
				assert.Equal(t, "Widget", a.ItemName)
			},
		},
		{
			name:  "sortable not an object",
			attrs: map[string]any{"is_sortable": true},
			check: func(t *testing.T, a sortable.Attributes) {
				assert.Equal(t, sortable.Unknown, a.IsSortable)
			},
		},
		{
			name:  "flat weight",
			attrs: map[string]any{"item_weight": map[string]any{"value": 2.006}},
			check: func(t *testing.T, a sortable.Attributes) {
				assert.Equal(t, 2.01, a.WeightKG)
			},
		},
		{
			name: "numeric strings and garbage",
			attrs: map[string]any{
				"item_dimensions": map[string]any{
					"height": map[string]any{"value": " 3.333 "},
					"length": map[string]any{"value": "n/a"},
					"width":  "bogus",
				},
			},
			check: func(t *testing.T, a sortable.Attributes) {
				assert.Equal(t, 3.33, a.HeightCM)
				assert.Zero(t, a.LengthCM)
				assert.Zero(t, a.WidthCM)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := Extract("B000000001", map[string]any{"attributes": tt.attrs})
			require.NoError(t, err)
			assert.Equal(t, "B000000001", a.ASIN)
			tt.check(t, a)
		})
	}
}

func TestExtract_NoAttributes(t *testing.T) {
	for _, doc := range []any{nil, "text", map[string]any{}, map[string]any{"attributes": "x"}} {
		_, err := Extract("B000000001", doc)
		assert.ErrorIs(t, err, ErrNoAttributes)
	}
}
