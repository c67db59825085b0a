package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/atinyakov/PartKeeper/internal/models"
	"golang.org/x/crypto/bcrypt"
)

// UserRepository defines the persistence operations
// required by the authentication service.
type UserRepository interface {
	// UserByUsername returns the user or models.ErrNotFound.
	UserByUsername(ctx context.Context, username string) (*models.User, error)
	// CreateUser stores a new user, failing with models.ErrUserExists on a taken username.
	CreateUser(ctx context.Context, user models.User) error
}

// Service implements account operations by delegating
// to a UserRepository.
type Service struct {
	// repo performs the data-layer operations.
	repo UserRepository
	// cost is the bcrypt work factor.
	cost int
}

// NewAuthService constructs a new Service using the provided repository.
func NewAuthService(repo UserRepository) *Service {
	return &Service{repo: repo, cost: bcrypt.DefaultCost}
}

// Register creates an account with a bcrypt-hashed password.
func (s *Service) Register(ctx context.Context, username, password, email string) error {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return fmt.Errorf("register: %w", models.ErrInvalidCredentials)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	err = s.repo.CreateUser(ctx, models.User{
		Username:     username,
		PasswordHash: hash,
		Email:        strings.TrimSpace(email),
	})
	if err != nil {
		return fmt.Errorf("register %s: %w", username, err)
	}
	return nil
}

// Authenticate returns the user whose password matches. Unknown users and
// wrong passwords both yield models.ErrInvalidCredentials.
func (s *Service) Authenticate(ctx context.Context, username, password string) (*models.User, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, models.ErrInvalidCredentials
	}

	user, err := s.repo.UserByUsername(ctx, username)
	if errors.Is(err, models.ErrNotFound) {
		return nil, models.ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("authenticate %s: %w", username, err)
	}

	if err := bcrypt.CompareHashAndPassword(user.PasswordHash, []byte(password)); err != nil {
		return nil, models.ErrInvalidCredentials
	}
	return user, nil
}
