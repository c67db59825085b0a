// Package http provides the HTML handlers and routing of the PartKeeper
// web application.
package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/atinyakov/PartKeeper/internal/middleware"
	"github.com/atinyakov/PartKeeper/internal/models"
	"github.com/atinyakov/PartKeeper/internal/service"
	"github.com/atinyakov/PartKeeper/internal/session"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// InventoryService defines the part operations required by the HTTP handlers.
type InventoryService interface {
	Tags() []string
	Get(ctx context.Context, partNumber string) (*models.Part, error)
	Add(ctx context.Context, fields service.Fields) (models.Part, []service.FieldFallback, error)
	Edit(ctx context.Context, partNumber string, fields service.Fields) (models.Part, []service.FieldFallback, error)
	Delete(ctx context.Context, partNumber string) (models.Part, error)
	RecordUsage(ctx context.Context, partNumber string, amount int, actor models.Identity) (service.UsageResult, error)
	ListView(ctx context.Context, category string) (service.View, error)
	Reorder(ctx context.Context) (service.View, error)
}

// Sessions defines the cookie operations required by the HTTP handlers.
type Sessions interface {
	AddFlash(w http.ResponseWriter, r *http.Request, flashes ...session.Flash) error
	Flashes(w http.ResponseWriter, r *http.Request) []session.Flash
	SetUser(w http.ResponseWriter, username string) error
	Clear(w http.ResponseWriter)
}

// Pages holds what every page handler needs to render and redirect.
type Pages struct {
	Renderer    *Renderer
	Sessions    Sessions
	Logger      *zap.Logger
	AuthEnabled bool
	// Tags lists the known tag categories shown in navigation.
	Tags []string
}

func (p *Pages) render(w http.ResponseWriter, r *http.Request, page string, data PageData) {
	data.AuthEnabled = p.AuthEnabled
	data.Tags = p.Tags
	data.Flashes = p.Sessions.Flashes(w, r)
	if id, ok := middleware.IdentityFromContext(r.Context()); ok {
		data.User = id.Username
	}
	if err := p.Renderer.Render(w, http.StatusOK, page, data); err != nil {
		p.Logger.Error("failed to render page", zap.String("page", page), zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

// redirect queues flashes and answers 303 See Other to target.
func (p *Pages) redirect(w http.ResponseWriter, r *http.Request, target string, flashes ...session.Flash) {
	if len(flashes) > 0 {
		if err := p.Sessions.AddFlash(w, r, flashes...); err != nil {
			p.Logger.Warn("failed to store flash", zap.Error(err))
		}
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

func danger(msg string) session.Flash  { return session.Flash{Category: session.Danger, Message: msg} }
func success(msg string) session.Flash { return session.Flash{Category: session.Success, Message: msg} }
func warning(msg string) session.Flash { return session.Flash{Category: session.Warning, Message: msg} }

// InventoryHandler handles the part pages.
type InventoryHandler struct {
	*Pages
	// Inventory performs the underlying part operations.
	Inventory InventoryService
}

var formFields = []string{
	service.FieldPartNumber, service.FieldName, service.FieldQuantity, service.FieldPrice,
	service.FieldDescription, service.FieldTag, service.FieldSupplierURL, service.FieldReorderThreshold,
}

// fieldsFromForm keeps only submitted fields, so an absent field differs from an empty one.
func fieldsFromForm(r *http.Request) service.Fields {
	fields := service.Fields{}
	for _, name := range formFields {
		if values, ok := r.PostForm[name]; ok && len(values) > 0 {
			fields[name] = values[0]
		}
	}
	return fields
}

func noticeFlashes(notices []service.FieldFallback) []session.Flash {
	flashes := make([]session.Flash, 0, len(notices))
	for _, n := range notices {
		flashes = append(flashes, warning(n.Message()))
	}
	return flashes
}

// partNumberParam returns the decoded part number path segment. chi routes
// on RawPath when the request carries escapes the plain path cannot hold,
// and the segment is then still escaped.
func partNumberParam(r *http.Request) string {
	pn := chi.URLParam(r, "pn")
	if r.URL.RawPath == "" {
		return pn
	}
	if decoded, err := url.PathUnescape(pn); err == nil {
		return decoded
	}
	return pn
}

// fail maps errors no handler expects. Contention is reported to the user;
// anything else is logged and answered with 500.
func (h *InventoryHandler) fail(w http.ResponseWriter, r *http.Request, op string, err error, back string) {
	if errors.Is(err, context.Canceled) {
		h.Logger.Debug("request cancelled", zap.String("op", op), zap.Error(err))
		h.redirect(w, r, back)
		return
	}
	if errors.Is(err, models.ErrBusy) || errors.Is(err, models.ErrTimeout) {
		h.Logger.Warn("inventory busy", zap.String("op", op), zap.Error(err))
		h.redirect(w, r, back, warning("Inventory is busy, try again."))
		return
	}
	h.Logger.Error("inventory operation failed", zap.String("op", op), zap.Error(err))
	http.Error(w, "internal error", http.StatusInternalServerError)
}

// Index renders the dashboard.
func (h *InventoryHandler) Index(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, "index.html", PageData{Title: "Dashboard"})
}

// View renders the parts of the category given by the "category" query parameter.
func (h *InventoryHandler) View(w http.ResponseWriter, r *http.Request) {
	view, err := h.Inventory.ListView(r.Context(), r.URL.Query().Get("category"))
	if err != nil {
		h.fail(w, r, "view", err, "/")
		return
	}
	h.render(w, r, "view.html", PageData{Title: view.Title, Category: view.Category, Parts: view.Parts})
}

// Reorder renders every part under its reorder threshold.
func (h *InventoryHandler) Reorder(w http.ResponseWriter, r *http.Request) {
	view, err := h.Inventory.Reorder(r.Context())
	if err != nil {
		h.fail(w, r, "reorder", err, "/")
		return
	}
	h.render(w, r, "reorder.html", PageData{Title: view.Title, Parts: view.Parts})
}

// AddForm renders the new part form.
func (h *InventoryHandler) AddForm(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, "add.html", PageData{Title: "Add New Part"})
}

// Add creates a part from the submitted form.
func (h *InventoryHandler) Add(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.redirect(w, r, "/add", danger("Invalid form."))
		return
	}

	_, notices, err := h.Inventory.Add(r.Context(), fieldsFromForm(r))
	switch {
	case errors.Is(err, models.ErrInvalidPart):
		h.redirect(w, r, "/add", danger("Part number and name are required."))
		return
	case errors.Is(err, models.ErrDuplicateKey):
		h.redirect(w, r, "/add", danger("Part number already exists!"))
		return
	case err != nil:
		h.fail(w, r, "add", err, "/add")
		return
	}

	h.redirect(w, r, "/view", append(noticeFlashes(notices), success("Part added successfully!"))...)
}

// UsageForm renders the usage form with every part to pick from.
func (h *InventoryHandler) UsageForm(w http.ResponseWriter, r *http.Request) {
	view, err := h.Inventory.ListView(r.Context(), service.CategoryAll)
	if err != nil {
		h.fail(w, r, "usage form", err, "/")
		return
	}
	h.render(w, r, "usage.html", PageData{Title: "Record Usage", Parts: view.Parts})
}

// Usage records stock taken out of a part by the signed-in user.
func (h *InventoryHandler) Usage(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.redirect(w, r, "/usage", danger("Invalid form."))
		return
	}

	partNumber := r.PostForm.Get(service.FieldPartNumber)
	amount, err := service.ParseUsageAmount(r.PostForm.Get(service.FieldUsed))
	if err != nil {
		// An unknown part is reported ahead of a malformed amount.
		if _, gerr := h.Inventory.Get(r.Context(), partNumber); errors.Is(gerr, models.ErrNotFound) {
			h.redirect(w, r, "/usage", danger("Part not found!"))
			return
		}
		h.redirect(w, r, "/usage", danger("Invalid number!"))
		return
	}

	actor, _ := middleware.IdentityFromContext(r.Context())
	res, err := h.Inventory.RecordUsage(r.Context(), partNumber, amount, actor)
	switch {
	case errors.Is(err, models.ErrNotFound):
		h.redirect(w, r, "/usage", danger("Part not found!"))
		return
	case errors.Is(err, models.ErrInvalidAmount):
		h.redirect(w, r, "/usage", danger("Invalid quantity used!"))
		return
	case err != nil:
		h.fail(w, r, "usage", err, "/usage")
		return
	}

	by := res.Actor
	if by == "" {
		by = "anonymous"
	}
	h.redirect(w, r, "/view", success(fmt.Sprintf("Recorded %d used for %s by %s. New stock: %d", res.Used, res.Name, by, res.Quantity)))
}

// Delete removes the part named in the path and returns to the view it was deleted from.
func (h *InventoryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	back := "/view"
	switch q := r.URL.RawQuery; {
	case r.URL.Query().Get("category") == service.CategoryReorder:
		back = "/reorder"
	case q != "":
		back += "?" + q
	}

	part, err := h.Inventory.Delete(r.Context(), partNumberParam(r))
	switch {
	case errors.Is(err, models.ErrNotFound):
		h.redirect(w, r, back, danger("Part not found."))
		return
	case err != nil:
		h.fail(w, r, "delete", err, back)
		return
	}
	h.redirect(w, r, back, success(fmt.Sprintf("Part %s (%s) deleted.", part.Name, part.PartNumber)))
}

// EditForm renders the edit form of the part named in the path.
func (h *InventoryHandler) EditForm(w http.ResponseWriter, r *http.Request) {
	part, err := h.Inventory.Get(r.Context(), partNumberParam(r))
	switch {
	case errors.Is(err, models.ErrNotFound):
		h.redirect(w, r, "/view", danger("Part not found."))
		return
	case err != nil:
		h.fail(w, r, "edit form", err, "/view")
		return
	}
	h.render(w, r, "edit.html", PageData{Title: "Edit " + part.Name, Part: part})
}

// Edit applies the submitted form to the part named in the path.
func (h *InventoryHandler) Edit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.redirect(w, r, "/view", danger("Invalid form."))
		return
	}

	fields := fieldsFromForm(r)
	delete(fields, service.FieldPartNumber)

	partNumber := partNumberParam(r)
	part, notices, err := h.Inventory.Edit(r.Context(), partNumber, fields)
	switch {
	case errors.Is(err, models.ErrNotFound):
		h.redirect(w, r, "/view", danger("Part not found."))
		return
	case err != nil:
		h.fail(w, r, "edit", err, "/edit/"+url.PathEscape(partNumber))
		return
	}

	h.redirect(w, r, "/view", append(noticeFlashes(notices), success(fmt.Sprintf("%s (%s) updated successfully!", part.Name, part.PartNumber)))...)
}
