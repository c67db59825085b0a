// Package service provides the inventory and account business logic,
// delegating persistence to repository interfaces.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/atinyakov/PartKeeper/internal/models"
	"go.uber.org/zap"
)

const (
	defaultStoreTimeout = 5 * time.Second
	defaultLockTimeout  = 2 * time.Second
)

// DefaultTags are the tag categories offered when none are configured.
var DefaultTags = []string{"generator", "transfer switch"}

// PartStore defines the persistence operations needed by the InventoryService.
type PartStore interface {
	// Get returns the part with the given number or models.ErrNotFound.
	Get(ctx context.Context, partNumber string) (*models.Part, error)
	// List returns every stored part.
	List(ctx context.Context) ([]models.Part, error)
	// Put inserts the part or replaces the stored one with the same number.
	Put(ctx context.Context, part models.Part) error
	// Delete removes the part and reports whether it existed.
	Delete(ctx context.Context, partNumber string) (bool, error)
}

// MetricsRecorder receives inventory events for instrumentation.
type MetricsRecorder interface {
	UsageRecorded(quantity int)
	Mutation(op string, err error)
}

type nopMetrics struct{}

func (nopMetrics) UsageRecorded(int)      {}
func (nopMetrics) Mutation(string, error) {}

// Options tunes an InventoryService. Zero values select defaults.
type Options struct {
	// Tags are the known tag categories of the parts view.
	Tags []string
	// StoreTimeout bounds every store call.
	StoreTimeout time.Duration
	// LockTimeout bounds the wait for a part held by another request.
	LockTimeout time.Duration
	Metrics     MetricsRecorder
	Logger      *zap.Logger
}

// InventoryService implements the part operations. Mutations of one part
// number are serialised; reads run without locks.
type InventoryService struct {
	store        PartStore
	locks        *keyLocker
	tags         []string
	storeTimeout time.Duration
	lockTimeout  time.Duration
	metrics      MetricsRecorder
	log          *zap.Logger
	now          func() time.Time
}

// UsageResult describes a successful usage recording.
type UsageResult struct {
	PartNumber string
	Name       string
	Used       int
	// Quantity is the stock left after the usage.
	Quantity int
	Actor    string
}

// NewInventoryService constructs an InventoryService over store.
func NewInventoryService(store PartStore, opts Options) *InventoryService {
	s := &InventoryService{
		store:        store,
		locks:        newKeyLocker(),
		storeTimeout: opts.StoreTimeout,
		lockTimeout:  opts.LockTimeout,
		metrics:      opts.Metrics,
		log:          opts.Logger,
		now:          time.Now,
	}
	if s.storeTimeout <= 0 {
		s.storeTimeout = defaultStoreTimeout
	}
	if s.lockTimeout <= 0 {
		s.lockTimeout = defaultLockTimeout
	}
	if s.metrics == nil {
		s.metrics = nopMetrics{}
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	tags := opts.Tags
	if len(tags) == 0 {
		tags = DefaultTags
	}
	for _, t := range tags {
		if t = NormalizeTag(t); t != "" && t != models.TagOther {
			s.tags = append(s.tags, t)
		}
	}
	return s
}

// Tags returns the known tag categories, "other" last.
func (s *InventoryService) Tags() []string {
	return append(append([]string{}, s.tags...), models.TagOther)
}

// Get returns a single part.
func (s *InventoryService) Get(ctx context.Context, partNumber string) (*models.Part, error) {
	ctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	p, err := s.store.Get(ctx, NormalizePartNumber(partNumber))
	if err != nil {
		return nil, storeError("get part", err)
	}
	return p, nil
}

// Add creates a part from submitted fields. It fails with models.ErrDuplicateKey
// when the part number is taken; bad numeric fields are replaced by defaults
// and reported as notices.
func (s *InventoryService) Add(ctx context.Context, fields Fields) (part models.Part, notices []FieldFallback, err error) {
	defer func() { s.metrics.Mutation("add", err) }()

	part, notices, err = CoerceNew(fields)
	if err != nil {
		return models.Part{}, nil, err
	}

	unlock, err := s.lock(ctx, part.PartNumber)
	if err != nil {
		return models.Part{}, nil, err
	}
	defer unlock()

	ctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	_, err = s.store.Get(ctx, part.PartNumber)
	switch {
	case err == nil:
		return models.Part{}, nil, fmt.Errorf("add %s: %w", part.PartNumber, models.ErrDuplicateKey)
	case !errors.Is(err, models.ErrNotFound):
		return models.Part{}, nil, storeError("add part", err)
	}

	if err := s.store.Put(ctx, part); err != nil {
		s.log.Error("failed to store new part", zap.String("part_number", part.PartNumber), zap.Error(err))
		return models.Part{}, nil, storeError("add part", err)
	}
	return part, notices, nil
}

// Edit applies submitted fields to an existing part. Fields that fail
// coercion keep the previous value and are reported as notices.
func (s *InventoryService) Edit(ctx context.Context, partNumber string, fields Fields) (part models.Part, notices []FieldFallback, err error) {
	defer func() { s.metrics.Mutation("edit", err) }()

	partNumber = NormalizePartNumber(partNumber)
	unlock, err := s.lock(ctx, partNumber)
	if err != nil {
		return models.Part{}, nil, err
	}
	defer unlock()

	ctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	current, err := s.store.Get(ctx, partNumber)
	if err != nil {
		return models.Part{}, nil, storeError("edit part", err)
	}

	part, notices = CoerceEdit(*current, fields)
	if err := s.store.Put(ctx, part); err != nil {
		s.log.Error("failed to store edited part", zap.String("part_number", partNumber), zap.Error(err))
		return models.Part{}, nil, storeError("edit part", err)
	}
	return part, notices, nil
}

// Delete removes a part together with its usage history and returns it.
func (s *InventoryService) Delete(ctx context.Context, partNumber string) (deleted models.Part, err error) {
	defer func() { s.metrics.Mutation("delete", err) }()

	partNumber = NormalizePartNumber(partNumber)
	unlock, err := s.lock(ctx, partNumber)
	if err != nil {
		return models.Part{}, err
	}
	defer unlock()

	ctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	current, err := s.store.Get(ctx, partNumber)
	if err != nil {
		return models.Part{}, storeError("delete part", err)
	}
	ok, err := s.store.Delete(ctx, partNumber)
	if err != nil {
		return models.Part{}, storeError("delete part", err)
	}
	if !ok {
		return models.Part{}, fmt.Errorf("delete part: %w", models.ErrNotFound)
	}
	return *current, nil
}

// RecordUsage takes amount out of the part's stock and appends a usage event
// attributed to actor. The check and the write happen under the part's lock,
// so concurrent recordings can never drive the stock below zero.
func (s *InventoryService) RecordUsage(ctx context.Context, partNumber string, amount int, actor models.Identity) (res UsageResult, err error) {
	defer func() { s.metrics.Mutation("usage", err) }()

	partNumber = NormalizePartNumber(partNumber)
	unlock, err := s.lock(ctx, partNumber)
	if err != nil {
		return UsageResult{}, err
	}
	defer unlock()

	ctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	current, err := s.store.Get(ctx, partNumber)
	if err != nil {
		return UsageResult{}, storeError("record usage", err)
	}
	if amount <= 0 || amount > current.Quantity {
		return UsageResult{}, fmt.Errorf("record usage of %d from %d in stock: %w", amount, current.Quantity, models.ErrInvalidAmount)
	}

	part := current.Clone()
	part.Quantity -= amount
	part.UsageHistory = append(part.UsageHistory, models.UsageEvent{
		Timestamp:    s.now().UTC(),
		QuantityUsed: amount,
		Actor:        actor.Username,
	})
	if err := s.store.Put(ctx, part); err != nil {
		s.log.Error("failed to store usage",
			zap.String("part_number", partNumber),
			zap.String("actor", actor.Username),
			zap.Error(err),
		)
		return UsageResult{}, storeError("record usage", err)
	}

	s.metrics.UsageRecorded(amount)
	s.log.Info("usage recorded",
		zap.String("part_number", partNumber),
		zap.Int("used", amount),
		zap.Int("quantity", part.Quantity),
		zap.String("actor", actor.Username),
	)
	return UsageResult{
		PartNumber: partNumber,
		Name:       part.Name,
		Used:       amount,
		Quantity:   part.Quantity,
		Actor:      actor.Username,
	}, nil
}

// ListView returns the parts of a named category: all, low, out, a known tag or other.
func (s *InventoryService) ListView(ctx context.Context, category string) (View, error) {
	parts, err := s.list(ctx)
	if err != nil {
		return View{}, err
	}
	return filterParts(parts, category, s.tags), nil
}

// Reorder returns every part whose stock is under its reorder threshold.
func (s *InventoryService) Reorder(ctx context.Context) (View, error) {
	parts, err := s.list(ctx)
	if err != nil {
		return View{}, err
	}
	return reorderParts(parts), nil
}

func (s *InventoryService) list(ctx context.Context) ([]models.Part, error) {
	ctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	parts, err := s.store.List(ctx)
	if err != nil {
		s.log.Error("failed to list parts", zap.Error(err))
		return nil, storeError("list parts", err)
	}
	return parts, nil
}

func (s *InventoryService) lock(ctx context.Context, partNumber string) (func(), error) {
	if strings.TrimSpace(partNumber) == "" {
		return nil, fmt.Errorf("empty part number: %w", models.ErrNotFound)
	}
	unlock, err := s.locks.Lock(ctx, partNumber, s.lockTimeout)
	if err != nil {
		s.log.Warn("part lock not acquired", zap.String("part_number", partNumber), zap.Error(err))
		return nil, fmt.Errorf("lock %s: %w", partNumber, err)
	}
	return unlock, nil
}

// storeError wraps err with op, marking deadline overruns as models.ErrTimeout.
func storeError(op string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w: %w", op, models.ErrTimeout, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
