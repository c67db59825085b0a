package service

import (
	"errors"
	"testing"

	"github.com/atinyakov/PartKeeper/internal/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCoerceNew_Normalizes(t *testing.T) {
	part, notices, err := CoerceNew(Fields{
		FieldPartNumber:       "  scr-001 ",
		FieldName:             " Hex Screw ",
		FieldQuantity:         "120",
		FieldPrice:            "0.15",
		FieldDescription:      " M4 screw  ",
		FieldTag:              "  Generator ",
		FieldSupplierURL:      " https://example.com/scr ",
		FieldReorderThreshold: "10",
	})
	require.NoError(t, err)
	assert.Empty(t, notices)

	assert.Equal(t, "SCR-001", part.PartNumber)
	assert.Equal(t, "Hex Screw", part.Name)
	assert.Equal(t, 120, part.Quantity)
	assert.True(t, part.Price.Equal(decimal.RequireFromString("0.15")))
	assert.Equal(t, "M4 screw", part.Description)
	assert.Equal(t, "generator", part.Tag)
	assert.Equal(t, "https://example.com/scr", part.SupplierURL)
	assert.Equal(t, 10, part.ReorderThreshold)
	assert.Empty(t, part.UsageHistory)
}

func TestCoerceNew_Defaults(t *testing.T) {
	part, notices, err := CoerceNew(Fields{FieldPartNumber: "a1", FieldName: "Washer"})
	require.NoError(t, err)
	assert.Empty(t, notices)
	assert.Equal(t, 0, part.Quantity)
	assert.True(t, part.Price.IsZero())
	assert.Equal(t, models.DefaultReorderThreshold, part.ReorderThreshold)
	assert.Equal(t, "", part.Tag)
}

func TestCoerceNew_Fallbacks(t *testing.T) {
	tests := []struct {
		name      string
		field     string
		input     string
		wantValue string
	}{
		{"non-numeric quantity", FieldQuantity, "lots", "0"},
		{"negative quantity", FieldQuantity, "-4", "0"},
		{"non-numeric price", FieldPrice, "cheap", "0"},
		{"negative price", FieldPrice, "-1.50", "0"},
		{"zero threshold", FieldReorderThreshold, "0", "10"},
		{"negative threshold", FieldReorderThreshold, "-3", "10"},
		{"non-numeric threshold", FieldReorderThreshold, "ten", "10"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			part, notices, err := CoerceNew(Fields{
				FieldPartNumber: "X-1",
				FieldName:       "Thing",
				tt.field:        tt.input,
			})
			require.NoError(t, err)
			require.Len(t, notices, 1)

			n := notices[0]
			assert.Equal(t, tt.field, n.Field)
			assert.Equal(t, tt.input, n.Input)
			assert.Equal(t, FallbackDefault, n.Kind)
			assert.Equal(t, tt.wantValue, n.Value)
			assert.Contains(t, n.Message(), "using default")

			assert.GreaterOrEqual(t, part.Quantity, 0)
			assert.False(t, part.Price.IsNegative())
			assert.GreaterOrEqual(t, part.ReorderThreshold, 1)
		})
	}
}

func TestCoerceNew_RequiredFields(t *testing.T) {
	tests := []struct {
		name   string
		fields Fields
	}{
		{"missing part number", Fields{FieldName: "Thing"}},
		{"blank part number", Fields{FieldPartNumber: "   ", FieldName: "Thing"}},
		{"missing name", Fields{FieldPartNumber: "X-1"}},
		{"blank name", Fields{FieldPartNumber: "X-1", FieldName: " \t"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := CoerceNew(tt.fields)
			assert.ErrorIs(t, err, models.ErrInvalidPart)
		})
	}
}

func TestCoerceEdit(t *testing.T) {
	current := models.Part{
		PartNumber:       "SCR-001",
		Name:             "Hex Screw",
		Quantity:         105,
		Price:            decimal.RequireFromString("0.15"),
		Description:      "M4 screw",
		Tag:              "generator",
		ReorderThreshold: 10,
		UsageHistory:     []models.UsageEvent{{QuantityUsed: 15}},
	}

	tests := []struct {
		name        string
		fields      Fields
		check       func(t *testing.T, p models.Part)
		wantNotices []FallbackKind
	}{
		{
			name:   "unset fields keep current values",
			fields: Fields{},
			check: func(t *testing.T, p models.Part) {
				assert.Equal(t, current, p)
			},
		},
		{
			name:   "threshold raised",
			fields: Fields{FieldReorderThreshold: "200"},
			check: func(t *testing.T, p models.Part) {
				assert.Equal(t, 200, p.ReorderThreshold)
			},
		},
		{
			name:   "zero threshold keeps previous",
			fields: Fields{FieldReorderThreshold: "0"},
			check: func(t *testing.T, p models.Part) {
				assert.Equal(t, 10, p.ReorderThreshold)
			},
			wantNotices: []FallbackKind{FallbackKept},
		},
		{
			name:   "non-numeric threshold keeps previous",
			fields: Fields{FieldReorderThreshold: "soon"},
			check: func(t *testing.T, p models.Part) {
				assert.Equal(t, 10, p.ReorderThreshold)
			},
			wantNotices: []FallbackKind{FallbackKept},
		},
		{
			name:   "negative quantity clamps to zero",
			fields: Fields{FieldQuantity: "-5"},
			check: func(t *testing.T, p models.Part) {
				assert.Equal(t, 0, p.Quantity)
			},
			wantNotices: []FallbackKind{FallbackClamped},
		},
		{
			name:   "bad quantity and price keep previous",
			fields: Fields{FieldQuantity: "many", FieldPrice: "free"},
			check: func(t *testing.T, p models.Part) {
				assert.Equal(t, 105, p.Quantity)
				assert.True(t, p.Price.Equal(current.Price))
			},
			wantNotices: []FallbackKind{FallbackKept, FallbackKept},
		},
		{
			name:   "blank name keeps previous",
			fields: Fields{FieldName: "  "},
			check: func(t *testing.T, p models.Part) {
				assert.Equal(t, "Hex Screw", p.Name)
			},
			wantNotices: []FallbackKind{FallbackKept},
		},
		{
			name: "text fields trimmed and tag lowercased",
			fields: Fields{
				FieldName:        " Socket Screw ",
				FieldDescription: "",
				FieldTag:         " Transfer Switch ",
				FieldSupplierURL: " https://example.com ",
				FieldPrice:       "0.20",
				FieldQuantity:    "90",
			},
			check: func(t *testing.T, p models.Part) {
				assert.Equal(t, "Socket Screw", p.Name)
				assert.Equal(t, "", p.Description)
				assert.Equal(t, "transfer switch", p.Tag)
				assert.Equal(t, "https://example.com", p.SupplierURL)
				assert.True(t, p.Price.Equal(decimal.RequireFromString("0.2")))
				assert.Equal(t, 90, p.Quantity)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, notices := CoerceEdit(current, tt.fields)
			tt.check(t, got)

			assert.Equal(t, current.PartNumber, got.PartNumber)
			assert.Equal(t, current.UsageHistory, got.UsageHistory)

			kinds := make([]FallbackKind, 0, len(notices))
			for _, n := range notices {
				kinds = append(kinds, n.Kind)
			}
			if len(tt.wantNotices) == 0 {
				assert.Empty(t, kinds)
			} else {
				assert.Equal(t, tt.wantNotices, kinds)
			}
		})
	}
}

func TestCoerceEdit_DoesNotShareHistory(t *testing.T) {
	current := models.Part{PartNumber: "A", Name: "A", ReorderThreshold: 1, UsageHistory: []models.UsageEvent{{QuantityUsed: 1}}}
	got, _ := CoerceEdit(current, Fields{})
	got.UsageHistory[0].QuantityUsed = 99
	assert.Equal(t, 1, current.UsageHistory[0].QuantityUsed)
}

func TestFieldFallback_Message(t *testing.T) {
	kept := FieldFallback{Field: FieldReorderThreshold, Input: "0", Kind: FallbackKept, Value: "10"}
	assert.Equal(t, `Invalid reorder threshold "0", keeping previous value 10.`, kept.Message())

	def := FieldFallback{Field: FieldPrice, Input: "x", Kind: FallbackDefault, Value: "0"}
	assert.Equal(t, `Invalid price "x", using default 0.`, def.Message())
}

func TestParseUsageAmount(t *testing.T) {
	tests := []struct {
		raw     string
		want    int
		wantErr bool
	}{
		{"15", 15, false},
		{" 3 ", 3, false},
		{"0", 0, true},
		{"-2", 0, true},
		{"1.5", 0, true},
		{"", 0, true},
		{"abc", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseUsageAmount(tt.raw)
		if tt.wantErr {
			if !errors.Is(err, models.ErrInvalidAmount) {
				t.Errorf("ParseUsageAmount(%q) error = %v; want ErrInvalidAmount", tt.raw, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseUsageAmount(%q) returned error: %v", tt.raw, err)
		}
		if got != tt.want {
			t.Errorf("ParseUsageAmount(%q) = %d; want %d", tt.raw, got, tt.want)
		}
	}
}
