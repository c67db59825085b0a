package session

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// carry copies the cookies set on rec into a new request.
func carry(rec *httptest.ResponseRecorder) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, c := range rec.Result().Cookies() {
		if c.MaxAge < 0 {
			continue
		}
		req.AddCookie(c)
	}
	return req
}

func TestManager_SessionRoundTrip(t *testing.T) {
	m := NewManager("secret", false, zap.NewNop())

	rec := httptest.NewRecorder()
	require.NoError(t, m.SetUser(rec, "alice"))

	id, ok := m.Identity(carry(rec))
	require.True(t, ok)
	assert.Equal(t, "alice", id.Username)

	cookie := rec.Result().Cookies()[0]
	assert.True(t, cookie.HttpOnly)
	assert.Equal(t, http.SameSiteLaxMode, cookie.SameSite)
}

func TestManager_RejectsForeignCookie(t *testing.T) {
	issuer := NewManager("secret-a", false, zap.NewNop())
	verifier := NewManager("secret-b", false, zap.NewNop())

	rec := httptest.NewRecorder()
	require.NoError(t, issuer.SetUser(rec, "mallory"))

	_, ok := verifier.Identity(carry(rec))
	assert.False(t, ok)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: sessionCookie, Value: "garbage"})
	_, ok = verifier.Identity(req)
	assert.False(t, ok)
}

func TestManager_RandomKeyWhenNoSecret(t *testing.T) {
	a := NewManager("", false, zap.NewNop())
	b := NewManager("", false, zap.NewNop())

	rec := httptest.NewRecorder()
	require.NoError(t, a.SetUser(rec, "alice"))

	_, ok := a.Identity(carry(rec))
	assert.True(t, ok)
	_, ok = b.Identity(carry(rec))
	assert.False(t, ok)
}

func TestManager_Clear(t *testing.T) {
	m := NewManager("secret", true, zap.NewNop())
	rec := httptest.NewRecorder()
	m.Clear(rec)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, sessionCookie, cookies[0].Name)
	assert.Less(t, cookies[0].MaxAge, 0)
	assert.True(t, cookies[0].Secure)
}

func TestManager_Flashes(t *testing.T) {
	m := NewManager("secret", false, zap.NewNop())

	first := httptest.NewRecorder()
	require.NoError(t, m.AddFlash(first, httptest.NewRequest(http.MethodGet, "/", nil),
		Flash{Category: Success, Message: "Part added."}))

	second := httptest.NewRecorder()
	require.NoError(t, m.AddFlash(second, carry(first), Flash{Category: Warning, Message: "Invalid price."}))

	read := httptest.NewRecorder()
	flashes := m.Flashes(read, carry(second))
	assert.Equal(t, []Flash{
		{Category: Success, Message: "Part added."},
		{Category: Warning, Message: "Invalid price."},
	}, flashes)

	cleared := read.Result().Cookies()
	require.Len(t, cleared, 1)
	assert.Less(t, cleared[0].MaxAge, 0)

	assert.Empty(t, m.Flashes(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil)))
}
