// Package models defines the core data structures for parts, usage events and users.
package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// DefaultReorderThreshold is applied when a part has no valid reorder threshold.
const DefaultReorderThreshold = 10

// TagOther is the category label that also matches untagged parts.
const TagOther = "other"

// User represents an application user with credentials.
type User struct {
	// ID is the unique identifier for the user.
	ID int64
	// Username is the login name chosen by the user.
	Username string
	// PasswordHash is the bcrypt hash of the user's password.
	PasswordHash []byte
	// Email is optional contact information.
	Email string
}

// Identity is the caller on whose behalf an operation runs.
// The zero value is the anonymous caller.
type Identity struct {
	Username string
}

// Anonymous reports whether no user is attached to the identity.
func (i Identity) Anonymous() bool { return i.Username == "" }

// UsageEvent is an immutable record of stock taken out of a part.
type UsageEvent struct {
	// Timestamp is when the usage was recorded.
	Timestamp time.Time `json:"date"`
	// QuantityUsed is the positive amount deducted from stock.
	QuantityUsed int `json:"quantity_used"`
	// Actor is the username that recorded the usage, empty when anonymous.
	Actor string `json:"user,omitempty"`
}

// Part is a stocked item keyed by its part number.
type Part struct {
	// PartNumber is the uppercase key of the part.
	PartNumber string `json:"part_number"`
	// Name is the display name.
	Name string `json:"name"`
	// Quantity is the current stock level, never negative.
	Quantity int `json:"quantity"`
	// Price is the unit price, never negative.
	Price decimal.Decimal `json:"price"`
	// Description is free text.
	Description string `json:"description"`
	// Tag is the lowercase category label.
	Tag string `json:"tag"`
	// SupplierURL points at where the part can be reordered.
	SupplierURL string `json:"supplier_url"`
	// ReorderThreshold is the stock level under which the part needs reordering.
	ReorderThreshold int `json:"reorder_threshold"`
	// UsageHistory lists usage events oldest first.
	UsageHistory []UsageEvent `json:"usage_history"`
}

// Clone returns a copy of p that shares no memory with it.
func (p Part) Clone() Part {
	if p.UsageHistory != nil {
		history := make([]UsageEvent, len(p.UsageHistory))
		copy(history, p.UsageHistory)
		p.UsageHistory = history
	}
	return p
}

// Untagged reports whether the part carries no category.
func (p Part) Untagged() bool {
	return p.Tag == "" || p.Tag == TagOther
}

// LowStock reports whether the part is in stock but under its threshold.
func (p Part) LowStock() bool {
	return p.Quantity > 0 && p.Quantity < p.ReorderThreshold
}

// OutOfStock reports whether the part has no stock left.
func (p Part) OutOfStock() bool {
	return p.Quantity == 0
}

// NeedsReorder reports whether the part is under its threshold, empty stock included.
func (p Part) NeedsReorder() bool {
	return p.Quantity < p.ReorderThreshold
}
