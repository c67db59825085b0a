package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/atinyakov/PartKeeper/internal/models"
	"github.com/lib/pq"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// UserRepository stores accounts in the relational "users" table.
type UserRepository struct {
	// DB is the database handle for executing queries.
	DB *sql.DB
	sb sq.StatementBuilderType
}

// NewUserRepository creates a UserRepository for db speaking dialect.
func NewUserRepository(db *sql.DB, dialect Dialect) *UserRepository {
	return &UserRepository{DB: db, sb: dialect.builder()}
}

// UserByUsername fetches a user by login name.
// Returns models.ErrNotFound when no such user exists.
func (r *UserRepository) UserByUsername(ctx context.Context, username string) (*models.User, error) {
	sqlStr, args, err := r.sb.
		Select("id", "username", "password_hash", "email").
		From("users").
		Where(sq.Eq{"username": username}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build user by username: %w", err)
	}

	var (
		u     models.User
		hash  string
		email sql.NullString
	)
	err = r.DB.QueryRowContext(ctx, sqlStr, args...).Scan(&u.ID, &u.Username, &hash, &email)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("user by username: %w", err)
	}
	u.PasswordHash = []byte(hash)
	u.Email = email.String
	return &u, nil
}

// CreateUser inserts a new user. A taken username yields models.ErrUserExists.
func (r *UserRepository) CreateUser(ctx context.Context, u models.User) error {
	var email any
	if u.Email != "" {
		email = u.Email
	}

	sqlStr, args, err := r.sb.
		Insert("users").
		Columns("username", "password_hash", "email").
		Values(u.Username, string(u.PasswordHash), email).
		ToSql()
	if err != nil {
		return fmt.Errorf("build create user: %w", err)
	}

	if _, err := r.DB.ExecContext(ctx, sqlStr, args...); err != nil {
		if isUniqueViolation(err) {
			return models.ErrUserExists
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		// Plain SQLITE_CONSTRAINT when extended result codes are off.
		code := liteErr.Code()
		return code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3.SQLITE_CONSTRAINT
	}
	return false
}
