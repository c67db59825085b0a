package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/atinyakov/PartKeeper/internal/metrics"
	"github.com/atinyakov/PartKeeper/internal/models"
	"github.com/atinyakov/PartKeeper/internal/service"
	"github.com/atinyakov/PartKeeper/internal/session"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeInventory implements InventoryService for testing.
type fakeInventory struct {
	getFn     func(ctx context.Context, pn string) (*models.Part, error)
	addFn     func(ctx context.Context, fields service.Fields) (models.Part, []service.FieldFallback, error)
	editFn    func(ctx context.Context, pn string, fields service.Fields) (models.Part, []service.FieldFallback, error)
	deleteFn  func(ctx context.Context, pn string) (models.Part, error)
	usageFn   func(ctx context.Context, pn string, amount int, actor models.Identity) (service.UsageResult, error)
	listFn    func(ctx context.Context, category string) (service.View, error)
	reorderFn func(ctx context.Context) (service.View, error)
}

func (f *fakeInventory) Tags() []string { return []string{"generator", "transfer switch", "other"} }

func (f *fakeInventory) Get(ctx context.Context, pn string) (*models.Part, error) {
	return f.getFn(ctx, pn)
}

func (f *fakeInventory) Add(ctx context.Context, fields service.Fields) (models.Part, []service.FieldFallback, error) {
	return f.addFn(ctx, fields)
}

func (f *fakeInventory) Edit(ctx context.Context, pn string, fields service.Fields) (models.Part, []service.FieldFallback, error) {
	return f.editFn(ctx, pn, fields)
}

func (f *fakeInventory) Delete(ctx context.Context, pn string) (models.Part, error) {
	return f.deleteFn(ctx, pn)
}

func (f *fakeInventory) RecordUsage(ctx context.Context, pn string, amount int, actor models.Identity) (service.UsageResult, error) {
	return f.usageFn(ctx, pn, amount, actor)
}

func (f *fakeInventory) ListView(ctx context.Context, category string) (service.View, error) {
	return f.listFn(ctx, category)
}

func (f *fakeInventory) Reorder(ctx context.Context) (service.View, error) {
	return f.reorderFn(ctx)
}

// fakeAuthService implements AuthService for testing.
type fakeAuthService struct {
	registerErr error
	user        *models.User
	authErr     error
}

func (f *fakeAuthService) Register(context.Context, string, string, string) error {
	return f.registerErr
}

func (f *fakeAuthService) Authenticate(context.Context, string, string) (*models.User, error) {
	return f.user, f.authErr
}

// fakeSessions records queued flashes and serves pending ones.
type fakeSessions struct {
	added   []session.Flash
	pending []session.Flash
	user    string
	cleared bool
}

func (f *fakeSessions) AddFlash(_ http.ResponseWriter, _ *http.Request, flashes ...session.Flash) error {
	f.added = append(f.added, flashes...)
	return nil
}

func (f *fakeSessions) Flashes(http.ResponseWriter, *http.Request) []session.Flash {
	out := f.pending
	f.pending = nil
	return out
}

func (f *fakeSessions) SetUser(_ http.ResponseWriter, username string) error {
	f.user = username
	return nil
}

func (f *fakeSessions) Clear(http.ResponseWriter) { f.cleared = true }

type staticIdentity string

func (s staticIdentity) Identity(*http.Request) (models.Identity, bool) {
	if s == "" {
		return models.Identity{}, false
	}
	return models.Identity{Username: string(s)}, true
}

type testServer struct {
	handler  http.Handler
	sessions *fakeSessions
}

// newTestServer builds the router; auth nil disables accounts.
func newTestServer(t *testing.T, inv *fakeInventory, auth *fakeAuthService, user string) *testServer {
	t.Helper()
	renderer, err := NewRenderer()
	require.NoError(t, err)

	sessions := &fakeSessions{}
	pages := &Pages{
		Renderer:    renderer,
		Sessions:    sessions,
		Logger:      zap.NewNop(),
		AuthEnabled: auth != nil,
		Tags:        inv.Tags(),
	}

	var authHandler *AuthHandler
	if auth != nil {
		authHandler = &AuthHandler{Pages: pages, AuthService: auth}
	}
	router := NewRouter(&InventoryHandler{Pages: pages, Inventory: inv}, authHandler, staticIdentity(user), metrics.New(), zap.NewNop())
	return &testServer{handler: router, sessions: sessions}
}

func (s *testServer) get(target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func (s *testServer) post(target string, form url.Values) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	s.handler.ServeHTTP(rec, req)
	return rec
}
