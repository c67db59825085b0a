package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"sync"

	"github.com/atinyakov/PartKeeper/internal/blob"
	"github.com/atinyakov/PartKeeper/internal/models"
	"github.com/shopspring/decimal"
)

// documentPart is the stored shape of a part inside the JSON document,
// which is keyed by part number.
type documentPart struct {
	Name             string              `json:"name"`
	Quantity         int                 `json:"quantity"`
	Price            float64             `json:"price"`
	Description      string              `json:"description"`
	Tag              string              `json:"tag"`
	SupplierURL      string              `json:"supplier_url"`
	ReorderThreshold *int                `json:"reorder_threshold,omitempty"`
	UsageHistory     []models.UsageEvent `json:"usage_history"`
}

func toDocument(p models.Part) documentPart {
	threshold := p.ReorderThreshold
	history := p.UsageHistory
	if history == nil {
		history = []models.UsageEvent{}
	}
	return documentPart{
		Name:             p.Name,
		Quantity:         p.Quantity,
		Price:            p.Price.InexactFloat64(),
		Description:      p.Description,
		Tag:              p.Tag,
		SupplierURL:      p.SupplierURL,
		ReorderThreshold: &threshold,
		UsageHistory:     history,
	}
}

func fromDocument(pn string, d documentPart) models.Part {
	threshold := models.DefaultReorderThreshold
	if d.ReorderThreshold != nil && *d.ReorderThreshold >= 1 {
		threshold = *d.ReorderThreshold
	}
	history := d.UsageHistory
	if history == nil {
		history = []models.UsageEvent{}
	}
	return models.Part{
		PartNumber:       pn,
		Name:             d.Name,
		Quantity:         d.Quantity,
		Price:            decimal.NewFromFloat(d.Price),
		Description:      d.Description,
		Tag:              d.Tag,
		SupplierURL:      d.SupplierURL,
		ReorderThreshold: threshold,
		UsageHistory:     history,
	}
}

// DocumentRepository keeps all parts in one JSON document in a blob store.
// Reads are served from memory; every mutation rewrites the document and
// only then becomes visible, so a failed write changes nothing.
type DocumentRepository struct {
	store blob.Store
	key   string

	mu    sync.RWMutex
	parts map[string]models.Part
}

// NewDocumentRepository loads the document under key. A missing document
// starts an empty inventory.
func NewDocumentRepository(ctx context.Context, store blob.Store, key string) (*DocumentRepository, error) {
	r := &DocumentRepository{store: store, key: key, parts: make(map[string]models.Part)}

	data, err := store.Read(ctx, key)
	if errors.Is(err, blob.ErrNotExist) {
		return r, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load document: %w", err)
	}
	if len(data) == 0 {
		return r, nil
	}

	var doc map[string]documentPart
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	for pn, d := range doc {
		r.parts[pn] = fromDocument(pn, d)
	}
	return r, nil
}

// Get returns a copy of the part or models.ErrNotFound.
func (r *DocumentRepository) Get(_ context.Context, partNumber string) (*models.Part, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.parts[partNumber]
	if !ok {
		return nil, models.ErrNotFound
	}
	c := p.Clone()
	return &c, nil
}

// List returns copies of all parts in no particular order.
func (r *DocumentRepository) List(_ context.Context) ([]models.Part, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]models.Part, 0, len(r.parts))
	for _, p := range r.parts {
		out = append(out, p.Clone())
	}
	return out, nil
}

// Put inserts or replaces the part and persists the document.
func (r *DocumentRepository) Put(ctx context.Context, p models.Part) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	next := maps.Clone(r.parts)
	next[p.PartNumber] = p.Clone()
	if err := r.persist(ctx, next); err != nil {
		return fmt.Errorf("put part %s: %w", p.PartNumber, err)
	}
	r.parts = next
	return nil
}

// Delete removes the part, persists the document and reports whether it existed.
func (r *DocumentRepository) Delete(ctx context.Context, partNumber string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.parts[partNumber]; !ok {
		return false, nil
	}
	next := maps.Clone(r.parts)
	delete(next, partNumber)
	if err := r.persist(ctx, next); err != nil {
		return false, fmt.Errorf("delete part %s: %w", partNumber, err)
	}
	r.parts = next
	return true, nil
}

func (r *DocumentRepository) persist(ctx context.Context, parts map[string]models.Part) error {
	doc := make(map[string]documentPart, len(parts))
	for pn, p := range parts {
		doc[pn] = toDocument(p)
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}
	if err := r.store.Write(ctx, r.key, data); err != nil {
		return fmt.Errorf("write document: %w", err)
	}
	return nil
}
