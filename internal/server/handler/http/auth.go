package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/atinyakov/PartKeeper/internal/models"
	"github.com/atinyakov/PartKeeper/internal/session"
	"go.uber.org/zap"
)

// AuthService defines the interface for account operations
// required by the HTTP handlers.
type AuthService interface {
	// Register creates an account. A taken username yields models.ErrUserExists.
	Register(ctx context.Context, username, password, email string) error
	// Authenticate returns the user whose password matches or models.ErrInvalidCredentials.
	Authenticate(ctx context.Context, username, password string) (*models.User, error)
}

// AuthHandler handles HTTP requests for registration, login and logout.
type AuthHandler struct {
	*Pages
	// AuthService performs the underlying account operations.
	AuthService AuthService
}

// LoginForm renders the login page.
func (h *AuthHandler) LoginForm(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, "login.html", PageData{Title: "Login"})
}

// Login checks the submitted credentials and starts a session.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.redirect(w, r, "/login", danger("Invalid form."))
		return
	}

	user, err := h.AuthService.Authenticate(r.Context(), r.PostForm.Get("username"), r.PostForm.Get("password"))
	if errors.Is(err, models.ErrInvalidCredentials) {
		h.redirect(w, r, "/login", danger("Invalid username or password."))
		return
	}
	if err != nil {
		h.Logger.Error("login failed", zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	if err := h.Sessions.SetUser(w, user.Username); err != nil {
		h.Logger.Error("failed to start session", zap.String("user", user.Username), zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	h.redirect(w, r, "/", success("Logged in successfully!"))
}

// RegisterForm renders the registration page.
func (h *AuthHandler) RegisterForm(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, "register.html", PageData{Title: "Create Account"})
}

// Register creates an account from the submitted form.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.redirect(w, r, "/register", danger("Invalid form."))
		return
	}

	err := h.AuthService.Register(r.Context(),
		r.PostForm.Get("username"), r.PostForm.Get("password"), r.PostForm.Get("email"))
	switch {
	case errors.Is(err, models.ErrUserExists):
		h.redirect(w, r, "/register", danger("Username already taken."))
		return
	case errors.Is(err, models.ErrInvalidCredentials):
		h.redirect(w, r, "/register", danger("Username and password are required."))
		return
	case err != nil:
		h.Logger.Error("registration failed", zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	h.redirect(w, r, "/login", success("Account created! You can now log in."))
}

// Logout ends the session.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.Sessions.Clear(w)
	h.redirect(w, r, "/login", session.Flash{Category: session.Info, Message: "Logged out."})
}
