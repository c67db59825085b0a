package db

import (
	"context"
	"fmt"

	"github.com/atinyakov/PartKeeper/internal/models"
	"github.com/shopspring/decimal"
)

// PartSeeder is the subset of a part store Seed needs.
type PartSeeder interface {
	List(ctx context.Context) ([]models.Part, error)
	Put(ctx context.Context, p models.Part) error
}

// StarterParts returns the parts written into an empty inventory.
func StarterParts() []models.Part {
	return []models.Part{
		{
			PartNumber:       "SCR-001",
			Name:             "Hex Screw",
			Quantity:         120,
			Price:            decimal.RequireFromString("0.15"),
			Description:      "M4 screw",
			Tag:              "generator",
			ReorderThreshold: models.DefaultReorderThreshold,
			UsageHistory:     []models.UsageEvent{},
		},
		{
			PartNumber:       "BLT-002",
			Name:             "Carriage Bolt",
			Quantity:         45,
			Price:            decimal.RequireFromString("0.50"),
			Description:      "5/16 bolt",
			Tag:              "transfer switch",
			ReorderThreshold: models.DefaultReorderThreshold,
			UsageHistory:     []models.UsageEvent{},
		},
	}
}

// Seed writes StarterParts when the store holds no parts and reports how many were written.
func Seed(ctx context.Context, store PartSeeder) (int, error) {
	existing, err := store.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("seed: list parts: %w", err)
	}
	if len(existing) > 0 {
		return 0, nil
	}

	n := 0
	for _, p := range StarterParts() {
		if err := store.Put(ctx, p); err != nil {
			return n, fmt.Errorf("seed %s: %w", p.PartNumber, err)
		}
		n++
	}
	return n, nil
}
