package http

import (
	"net/http"

	"github.com/atinyakov/PartKeeper/internal/middleware"
	"go.uber.org/zap"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
)

// Instrumentation wraps requests and serves collected metrics.
type Instrumentation interface {
	Middleware(next http.Handler) http.Handler
	Handler() http.Handler
}

// NewRouter constructs and returns the HTTP handler of the web application.
//
// Routes:
//
//	GET       /healthz         → Health
//	GET       /metrics         → instrumentation.Handler
//	GET       /                → inventory.Index
//	GET       /view            → inventory.View
//	GET|POST  /add             → inventory.AddForm, inventory.Add
//	GET|POST  /usage           → inventory.UsageForm, inventory.Usage
//	GET       /reorder         → inventory.Reorder
//	POST      /delete/{pn}     → inventory.Delete
//	GET|POST  /edit/{pn}       → inventory.EditForm, inventory.Edit
//	GET|POST  /login           → auth.LoginForm, auth.Login
//	GET|POST  /register        → auth.RegisterForm, auth.Register
//	GET       /logout          → auth.Logout
//
// When auth is nil the account routes are not mounted and the inventory
// routes are open; otherwise they require a signed-in user.
func NewRouter(
	inventory *InventoryHandler,
	auth *AuthHandler,
	identities middleware.IdentityResolver,
	instrumentation Instrumentation,
	logger *zap.Logger,
) http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware.Recoverer)
	r.Use(instrumentation.Middleware)
	// Log each request and its metadata
	r.Use(middleware.WithRequestLogging(logger))
	r.Use(middleware.WithIdentity(identities))

	r.Get("/healthz", Health)
	r.Handle("/metrics", instrumentation.Handler())

	if auth != nil {
		r.Get("/login", auth.LoginForm)
		r.Post("/login", auth.Login)
		r.Get("/register", auth.RegisterForm)
		r.Post("/register", auth.Register)
		r.Get("/logout", auth.Logout)
	}

	r.Group(func(r chi.Router) {
		if auth != nil {
			r.Use(middleware.RequireUser("/login"))
		}

		r.Get("/", inventory.Index)
		r.Get("/view", inventory.View)
		r.Get("/add", inventory.AddForm)
		r.Post("/add", inventory.Add)
		r.Get("/usage", inventory.UsageForm)
		r.Post("/usage", inventory.Usage)
		r.Get("/reorder", inventory.Reorder)
		r.Post("/delete/{pn}", inventory.Delete)
		r.Get("/edit/{pn}", inventory.EditForm)
		r.Post("/edit/{pn}", inventory.Edit)
	})

	return r
}
