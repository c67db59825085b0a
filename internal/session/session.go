// Package session keeps the signed-in user and one-shot flash messages in
// signed, encrypted cookies.
package session

import (
	"crypto/sha256"
	"fmt"
	"net/http"
	"time"

	"github.com/atinyakov/PartKeeper/internal/models"
	"github.com/gorilla/securecookie"
	"go.uber.org/zap"
)

const (
	sessionCookie = "partkeeper_session"
	flashCookie   = "partkeeper_flash"
	sessionMaxAge = 7 * 24 * time.Hour
)

// Flash categories.
const (
	Success = "success"
	Info    = "info"
	Warning = "warning"
	Danger  = "danger"
)

// Flash is a message shown once on the next rendered page.
type Flash struct {
	Category string `json:"c"`
	Message  string `json:"m"`
}

type sessionValue struct {
	Username string `json:"u"`
}

// Manager reads and writes session and flash cookies.
type Manager struct {
	codec  *securecookie.SecureCookie
	secure bool
}

// NewManager derives cookie keys from secret. An empty secret gets a random
// key, so sessions do not survive a restart.
func NewManager(secret string, secure bool, logger *zap.Logger) *Manager {
	seed := []byte(secret)
	if secret == "" {
		seed = securecookie.GenerateRandomKey(32)
		logger.Warn("no secret key configured, sessions will not survive a restart")
	}
	hashKey := sha256.Sum256(append([]byte("hash:"), seed...))
	blockKey := sha256.Sum256(append([]byte("block:"), seed...))

	codec := securecookie.New(hashKey[:], blockKey[:])
	codec.SetSerializer(securecookie.JSONEncoder{})
	codec.MaxAge(int(sessionMaxAge.Seconds()))

	return &Manager{codec: codec, secure: secure}
}

func (m *Manager) cookie(name, value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	}
}

// SetUser starts a session for username.
func (m *Manager) SetUser(w http.ResponseWriter, username string) error {
	encoded, err := m.codec.Encode(sessionCookie, sessionValue{Username: username})
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	http.SetCookie(w, m.cookie(sessionCookie, encoded, int(sessionMaxAge.Seconds())))
	return nil
}

// Clear ends the session.
func (m *Manager) Clear(w http.ResponseWriter) {
	http.SetCookie(w, m.cookie(sessionCookie, "", -1))
}

// Identity returns the signed-in user of r. Missing or tampered cookies yield false.
func (m *Manager) Identity(r *http.Request) (models.Identity, bool) {
	c, err := r.Cookie(sessionCookie)
	if err != nil {
		return models.Identity{}, false
	}
	var v sessionValue
	if err := m.codec.Decode(sessionCookie, c.Value, &v); err != nil || v.Username == "" {
		return models.Identity{}, false
	}
	return models.Identity{Username: v.Username}, true
}

// AddFlash queues flashes behind any still unread ones from r.
func (m *Manager) AddFlash(w http.ResponseWriter, r *http.Request, flashes ...Flash) error {
	pending := m.read(r)
	pending = append(pending, flashes...)
	encoded, err := m.codec.Encode(flashCookie, pending)
	if err != nil {
		return fmt.Errorf("encode flash: %w", err)
	}
	http.SetCookie(w, m.cookie(flashCookie, encoded, 0))
	return nil
}

// Flashes returns the pending flashes of r and clears them.
func (m *Manager) Flashes(w http.ResponseWriter, r *http.Request) []Flash {
	pending := m.read(r)
	if len(pending) > 0 {
		http.SetCookie(w, m.cookie(flashCookie, "", -1))
	}
	return pending
}

func (m *Manager) read(r *http.Request) []Flash {
	c, err := r.Cookie(flashCookie)
	if err != nil || c.Value == "" {
		return nil
	}
	var flashes []Flash
	if err := m.codec.Decode(flashCookie, c.Value, &flashes); err != nil {
		return nil
	}
	return flashes
}
