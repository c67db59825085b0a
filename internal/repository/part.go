// Package repository provides persistence implementations for parts and users.
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/atinyakov/PartKeeper/internal/models"
)

// Dialect selects the SQL flavour of the relational store.
type Dialect string

const (
	// DialectPostgres targets PostgreSQL through lib/pq.
	DialectPostgres Dialect = "postgres"
	// DialectSQLite targets an embedded SQLite file through modernc.org/sqlite.
	DialectSQLite Dialect = "sqlite"
)

func (d Dialect) builder() sq.StatementBuilderType {
	if d == DialectPostgres {
		return sq.StatementBuilder.PlaceholderFormat(sq.Dollar)
	}
	return sq.StatementBuilder.PlaceholderFormat(sq.Question)
}

var partColumns = []string{
	"pn", "name", "quantity", "price", "description", "tag", "supplier_url", "usage_history", "reorder_threshold",
}

const upsertPartSuffix = `ON CONFLICT (pn) DO UPDATE SET
	name = excluded.name,
	quantity = excluded.quantity,
	price = excluded.price,
	description = excluded.description,
	tag = excluded.tag,
	supplier_url = excluded.supplier_url,
	usage_history = excluded.usage_history,
	reorder_threshold = excluded.reorder_threshold`

// PartRepository stores parts in the relational "parts" table.
// Each Put writes the whole row, usage history included, in one statement.
type PartRepository struct {
	// DB is the database handle for executing queries.
	DB *sql.DB
	sb sq.StatementBuilderType
}

// NewPartRepository creates a PartRepository for db speaking dialect.
func NewPartRepository(db *sql.DB, dialect Dialect) *PartRepository {
	return &PartRepository{DB: db, sb: dialect.builder()}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPart(row rowScanner) (models.Part, error) {
	var (
		p       models.Part
		history []byte
	)
	if err := row.Scan(
		&p.PartNumber, &p.Name, &p.Quantity, &p.Price, &p.Description,
		&p.Tag, &p.SupplierURL, &history, &p.ReorderThreshold,
	); err != nil {
		return models.Part{}, err
	}
	p.UsageHistory = []models.UsageEvent{}
	if len(history) > 0 {
		if err := json.Unmarshal(history, &p.UsageHistory); err != nil {
			return models.Part{}, fmt.Errorf("decode usage history of %s: %w", p.PartNumber, err)
		}
	}
	return p, nil
}

// Get fetches a single part by number.
// Returns models.ErrNotFound when no row matches.
func (r *PartRepository) Get(ctx context.Context, partNumber string) (*models.Part, error) {
	sqlStr, args, err := r.sb.Select(partColumns...).From("parts").Where(sq.Eq{"pn": partNumber}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build get part: %w", err)
	}

	p, err := scanPart(r.DB.QueryRowContext(ctx, sqlStr, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get part %s: %w", partNumber, err)
	}
	return &p, nil
}

// List fetches all parts ordered by part number.
func (r *PartRepository) List(ctx context.Context) ([]models.Part, error) {
	sqlStr, args, err := r.sb.Select(partColumns...).From("parts").OrderBy("pn").ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list parts: %w", err)
	}

	rows, err := r.DB.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("list parts: %w", err)
	}
	defer rows.Close()

	parts := []models.Part{}
	for rows.Next() {
		p, err := scanPart(rows)
		if err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		parts = append(parts, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list parts: %w", err)
	}
	return parts, nil
}

// Put inserts the part or replaces every column of the existing row.
func (r *PartRepository) Put(ctx context.Context, p models.Part) error {
	history := p.UsageHistory
	if history == nil {
		history = []models.UsageEvent{}
	}
	encoded, err := json.Marshal(history)
	if err != nil {
		return fmt.Errorf("encode usage history: %w", err)
	}

	sqlStr, args, err := r.sb.
		Insert("parts").
		Columns(partColumns...).
		Values(p.PartNumber, p.Name, p.Quantity, p.Price, p.Description, p.Tag, p.SupplierURL, string(encoded), p.ReorderThreshold).
		Suffix(upsertPartSuffix).
		ToSql()
	if err != nil {
		return fmt.Errorf("build put part: %w", err)
	}

	if _, err := r.DB.ExecContext(ctx, sqlStr, args...); err != nil {
		return fmt.Errorf("put part %s: %w", p.PartNumber, err)
	}
	return nil
}

// Delete removes the part row and reports whether it existed.
func (r *PartRepository) Delete(ctx context.Context, partNumber string) (bool, error) {
	sqlStr, args, err := r.sb.Delete("parts").Where(sq.Eq{"pn": partNumber}).ToSql()
	if err != nil {
		return false, fmt.Errorf("build delete part: %w", err)
	}

	res, err := r.DB.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return false, fmt.Errorf("delete part %s: %w", partNumber, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete part %s: %w", partNumber, err)
	}
	return n > 0, nil
}
