package service

import (
	"context"
	"errors"
	"testing"

	"github.com/atinyakov/PartKeeper/internal/models"
	"golang.org/x/crypto/bcrypt"
)

type mockUserRepo struct {
	UserByUsernameFunc func(ctx context.Context, username string) (*models.User, error)
	CreateUserFunc     func(ctx context.Context, user models.User) error
}

func (m *mockUserRepo) UserByUsername(ctx context.Context, username string) (*models.User, error) {
	return m.UserByUsernameFunc(ctx, username)
}

func (m *mockUserRepo) CreateUser(ctx context.Context, user models.User) error {
	return m.CreateUserFunc(ctx, user)
}

func newTestAuthService(repo UserRepository) *Service {
	svc := NewAuthService(repo)
	svc.cost = bcrypt.MinCost
	return svc
}

func TestRegister_Success(t *testing.T) {
	var stored models.User
	repo := &mockUserRepo{
		CreateUserFunc: func(ctx context.Context, user models.User) error {
			stored = user
			return nil
		},
	}
	svc := newTestAuthService(repo)

	if err := svc.Register(context.Background(), " carol ", "s3cret", " carol@example.com "); err != nil {
		t.Fatalf("Register returned error: %v", err)
	}
	if stored.Username != "carol" {
		t.Errorf("CreateUser received username = %q; want %q", stored.Username, "carol")
	}
	if stored.Email != "carol@example.com" {
		t.Errorf("CreateUser received email = %q; want %q", stored.Email, "carol@example.com")
	}
	if err := bcrypt.CompareHashAndPassword(stored.PasswordHash, []byte("s3cret")); err != nil {
		t.Errorf("stored hash does not match password: %v", err)
	}
}

func TestRegister_Invalid(t *testing.T) {
	repo := &mockUserRepo{
		CreateUserFunc: func(ctx context.Context, user models.User) error {
			t.Fatal("CreateUser must not be called")
			return nil
		},
	}
	svc := newTestAuthService(repo)

	for _, tc := range []struct{ user, pass string }{{"", "x"}, {"  ", "x"}, {"dave", ""}} {
		err := svc.Register(context.Background(), tc.user, tc.pass, "")
		if !errors.Is(err, models.ErrInvalidCredentials) {
			t.Errorf("Register(%q, %q) error = %v; want ErrInvalidCredentials", tc.user, tc.pass, err)
		}
	}
}

func TestRegister_Taken(t *testing.T) {
	repo := &mockUserRepo{
		CreateUserFunc: func(ctx context.Context, user models.User) error {
			return models.ErrUserExists
		},
	}
	svc := newTestAuthService(repo)

	err := svc.Register(context.Background(), "joe", "pw", "")
	if !errors.Is(err, models.ErrUserExists) {
		t.Fatalf("Register error = %v; want ErrUserExists", err)
	}
}

func TestAuthenticate(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	dbErr := errors.New("db error")

	repo := &mockUserRepo{
		UserByUsernameFunc: func(ctx context.Context, username string) (*models.User, error) {
			switch username {
			case "joe":
				return &models.User{ID: 1, Username: "joe", PasswordHash: hash}, nil
			case "broken":
				return nil, dbErr
			default:
				return nil, models.ErrNotFound
			}
		},
	}
	svc := newTestAuthService(repo)

	tests := []struct {
		name     string
		username string
		password string
		wantErr  error
	}{
		{"success", " joe ", "password123", nil},
		{"wrong password", "joe", "nope", models.ErrInvalidCredentials},
		{"unknown user", "mike", "password123", models.ErrInvalidCredentials},
		{"empty password", "joe", "", models.ErrInvalidCredentials},
		{"repository error", "broken", "x", dbErr},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			user, err := svc.Authenticate(context.Background(), tt.username, tt.password)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Authenticate error = %v; want %v", err, tt.wantErr)
				}
				if user != nil {
					t.Errorf("Authenticate user = %+v; want nil on error", user)
				}
				return
			}
			if err != nil {
				t.Fatalf("Authenticate returned error: %v", err)
			}
			if user.Username != "joe" {
				t.Errorf("Authenticate user = %q; want %q", user.Username, "joe")
			}
		})
	}
}
