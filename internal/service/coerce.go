package service

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/atinyakov/PartKeeper/internal/models"
	"github.com/shopspring/decimal"
)

// Form field names shared by the add, edit and usage forms.
const (
	FieldPartNumber       = "part_number"
	FieldName             = "name"
	FieldQuantity         = "quantity"
	FieldPrice            = "price"
	FieldDescription      = "description"
	FieldTag              = "tag"
	FieldSupplierURL      = "supplier_url"
	FieldReorderThreshold = "reorder_threshold"
	FieldUsed             = "used"
)

// Fields holds raw submitted form values keyed by field name.
// A missing key means the field was not submitted.
type Fields map[string]string

func (f Fields) lookup(name string) (string, bool) {
	v, ok := f[name]
	return v, ok
}

// FallbackKind says what value replaced a field that failed coercion.
type FallbackKind int

const (
	// FallbackDefault means the field's default value was used.
	FallbackDefault FallbackKind = iota
	// FallbackKept means the part's previous value was kept.
	FallbackKept
	// FallbackClamped means the value was clamped into range.
	FallbackClamped
)

// FieldFallback is a non-fatal notice that a submitted field was replaced.
type FieldFallback struct {
	Field string
	Input string
	Kind  FallbackKind
	// Value is the value that was stored instead of Input.
	Value string
}

// Message renders the notice for display to the user.
func (f FieldFallback) Message() string {
	label := strings.ReplaceAll(f.Field, "_", " ")
	switch f.Kind {
	case FallbackKept:
		return fmt.Sprintf("Invalid %s %q, keeping previous value %s.", label, f.Input, f.Value)
	case FallbackClamped:
		return fmt.Sprintf("Invalid %s %q, must be at least 0, using %s.", label, f.Input, f.Value)
	default:
		return fmt.Sprintf("Invalid %s %q, using default %s.", label, f.Input, f.Value)
	}
}

// NormalizePartNumber trims and uppercases a raw part number.
func NormalizePartNumber(raw string) string {
	return strings.ToUpper(strings.TrimSpace(raw))
}

// NormalizeTag trims and lowercases a raw tag.
func NormalizeTag(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

// CoerceNew builds a new part from submitted fields. Bad numeric fields fall
// back to their defaults; a missing part number or name is an error.
func CoerceNew(fields Fields) (models.Part, []FieldFallback, error) {
	var notices []FieldFallback

	part := models.Part{
		PartNumber:       NormalizePartNumber(fields[FieldPartNumber]),
		Name:             strings.TrimSpace(fields[FieldName]),
		Description:      strings.TrimSpace(fields[FieldDescription]),
		Tag:              NormalizeTag(fields[FieldTag]),
		SupplierURL:      strings.TrimSpace(fields[FieldSupplierURL]),
		ReorderThreshold: models.DefaultReorderThreshold,
		Price:            decimal.Zero,
		UsageHistory:     []models.UsageEvent{},
	}
	if part.PartNumber == "" {
		return models.Part{}, nil, fmt.Errorf("%w: part number is required", models.ErrInvalidPart)
	}
	if part.Name == "" {
		return models.Part{}, nil, fmt.Errorf("%w: name is required", models.ErrInvalidPart)
	}

	if raw, ok := fields.lookup(FieldQuantity); ok && strings.TrimSpace(raw) != "" {
		if qty, err := parseInt(raw); err == nil && qty >= 0 {
			part.Quantity = qty
		} else {
			notices = append(notices, FieldFallback{Field: FieldQuantity, Input: raw, Kind: FallbackDefault, Value: "0"})
		}
	}

	if raw, ok := fields.lookup(FieldPrice); ok && strings.TrimSpace(raw) != "" {
		if price, err := parsePrice(raw); err == nil {
			part.Price = price
		} else {
			notices = append(notices, FieldFallback{Field: FieldPrice, Input: raw, Kind: FallbackDefault, Value: "0"})
		}
	}

	if raw, ok := fields.lookup(FieldReorderThreshold); ok && strings.TrimSpace(raw) != "" {
		if threshold, err := parseInt(raw); err == nil && threshold >= 1 {
			part.ReorderThreshold = threshold
		} else {
			notices = append(notices, FieldFallback{
				Field: FieldReorderThreshold,
				Input: raw,
				Kind:  FallbackDefault,
				Value: strconv.Itoa(models.DefaultReorderThreshold),
			})
		}
	}

	return part, notices, nil
}

// CoerceEdit applies submitted fields to a copy of current. Fields that are
// not submitted keep their current value, and so do fields that fail
// coercion, except a negative quantity which is clamped to zero.
// The part number and usage history are never changed.
func CoerceEdit(current models.Part, fields Fields) (models.Part, []FieldFallback) {
	var notices []FieldFallback
	part := current.Clone()

	if raw, ok := fields.lookup(FieldName); ok {
		if name := strings.TrimSpace(raw); name != "" {
			part.Name = name
		} else {
			notices = append(notices, FieldFallback{Field: FieldName, Input: raw, Kind: FallbackKept, Value: current.Name})
		}
	}
	if raw, ok := fields.lookup(FieldDescription); ok {
		part.Description = strings.TrimSpace(raw)
	}
	if raw, ok := fields.lookup(FieldTag); ok {
		part.Tag = NormalizeTag(raw)
	}
	if raw, ok := fields.lookup(FieldSupplierURL); ok {
		part.SupplierURL = strings.TrimSpace(raw)
	}

	if raw, ok := fields.lookup(FieldPrice); ok {
		if price, err := parsePrice(raw); err == nil {
			part.Price = price
		} else {
			notices = append(notices, FieldFallback{Field: FieldPrice, Input: raw, Kind: FallbackKept, Value: current.Price.String()})
		}
	}

	if raw, ok := fields.lookup(FieldQuantity); ok {
		qty, err := parseInt(raw)
		switch {
		case err != nil:
			notices = append(notices, FieldFallback{Field: FieldQuantity, Input: raw, Kind: FallbackKept, Value: strconv.Itoa(current.Quantity)})
		case qty < 0:
			part.Quantity = 0
			notices = append(notices, FieldFallback{Field: FieldQuantity, Input: raw, Kind: FallbackClamped, Value: "0"})
		default:
			part.Quantity = qty
		}
	}

	if raw, ok := fields.lookup(FieldReorderThreshold); ok {
		if threshold, err := parseInt(raw); err == nil && threshold >= 1 {
			part.ReorderThreshold = threshold
		} else {
			notices = append(notices, FieldFallback{
				Field: FieldReorderThreshold,
				Input: raw,
				Kind:  FallbackKept,
				Value: strconv.Itoa(current.ReorderThreshold),
			})
		}
	}

	return part, notices
}

// ParseUsageAmount parses the amount of a usage recording.
func ParseUsageAmount(raw string) (int, error) {
	amount, err := parseInt(raw)
	if err != nil || amount <= 0 {
		return 0, fmt.Errorf("%w: %q", models.ErrInvalidAmount, raw)
	}
	return amount, nil
}

func parseInt(raw string) (int, error) {
	return strconv.Atoi(strings.TrimSpace(raw))
}

func parsePrice(raw string) (decimal.Decimal, error) {
	price, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Zero, err
	}
	if price.IsNegative() {
		return decimal.Zero, fmt.Errorf("negative price %s", price)
	}
	return price, nil
}
