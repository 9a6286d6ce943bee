package content

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/sapients/tracker/internal/platform/httpx"
	"github.com/sapients/tracker/internal/rbac"
	"github.com/sapients/tracker/internal/shared"
	"github.com/sapients/tracker/internal/view"
)

// Handler exposes content modules over JSON and HTML.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	templates *view.Engine
	csrf      *shared.CSRFManager
	rbac      rbac.Middleware
	validator *validator.Validate
	idem      *shared.IdempotencyStore
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, service *Service, templates *view.Engine, csrf *shared.CSRFManager, mw rbac.Middleware) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:    logger,
		service:   service,
		templates: templates,
		csrf:      csrf,
		rbac:      mw,
		validator: validator.New(),
	}
}

// UseIdempotency makes API creates honour the Idempotency-Key header.
func (h *Handler) UseIdempotency(store *shared.IdempotencyStore) {
	h.idem = store
}

// MountAPI registers /{module} routes for every content module. Each route carries
// its own guard; there is no shared fallback.
func (h *Handler) MountAPI(r chi.Router) {
	for _, module := range Modules() {
		r.Route("/"+module.String(), func(r chi.Router) {
			r.With(h.rbac.View(module)).Get("/", h.list(module))
			r.With(h.rbac.View(module)).Get("/{id}", h.get(module))
			r.With(h.rbac.Edit(module)).Post("/", h.create(module))
			r.With(h.rbac.Edit(module)).Put("/{id}", h.update(module))
			r.With(h.rbac.Delete(module)).Delete("/{id}", h.remove(module))
			if Versioned(module) {
				r.With(h.rbac.View(module)).Get("/{id}/versions", h.versions(module))
			}
		})
	}
}

// MountPages registers /m/{module} pages.
func (h *Handler) MountPages(r chi.Router) {
	for _, module := range Modules() {
		path := module.LandingPath()
		r.With(h.rbac.PageView(module)).Get(path, h.page(module))
		r.With(h.rbac.PageEdit(module, "")).Post(path, h.pageCreate(module))
	}
}

func (h *Handler) list(module rbac.Module) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page, perPage := pagingParams(r)
		result, err := h.service.List(r.Context(), module, page, perPage)
		if err != nil {
			h.fail(w, "list content", module, err)
			return
		}
		httpx.JSON(w, http.StatusOK, result)
	}
}

func (h *Handler) get(module rbac.Module) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := itemID(w, r)
		if !ok {
			return
		}
		item, err := h.service.Get(r.Context(), module, id)
		if err != nil {
			h.fail(w, "get content", module, err)
			return
		}
		httpx.JSON(w, http.StatusOK, item)
	}
}

func (h *Handler) create(module rbac.Module) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		in, ok := h.decodeInput(w, r)
		if !ok {
			return
		}
		sess := shared.SessionFromContext(r.Context())
		key := strings.TrimSpace(r.Header.Get(shared.IdempotencyHeader))
		scope := fmt.Sprintf("%s:%d", module, sess.User.ID)
		if key != "" && h.idem != nil {
			if err := h.idem.CheckAndInsert(r.Context(), key, scope); err != nil {
				switch {
				case errors.Is(err, shared.ErrIdempotencyConflict):
					httpx.Problem(w, http.StatusConflict, "Conflict", "request already processed")
				case errors.Is(err, shared.ErrIdempotencyKeyInvalid):
					httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid idempotency key")
				default:
					h.logger.Error("idempotency check", slog.String("module", module.String()), slog.Any("error", err))
					httpx.RespondError(w, err)
				}
				return
			}
		}
		item, err := h.service.Create(r.Context(), sess.User, module, in)
		if err != nil {
			if key != "" && h.idem != nil {
				if delErr := h.idem.Delete(r.Context(), key, scope); delErr != nil {
					h.logger.Warn("idempotency rollback", slog.Any("error", delErr))
				}
			}
			h.fail(w, "create content", module, err)
			return
		}
		httpx.JSON(w, http.StatusCreated, item)
	}
}

func (h *Handler) update(module rbac.Module) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := itemID(w, r)
		if !ok {
			return
		}
		in, ok := h.decodeInput(w, r)
		if !ok {
			return
		}
		sess := shared.SessionFromContext(r.Context())
		item, err := h.service.Update(r.Context(), sess.User, module, id, in)
		if err != nil {
			h.fail(w, "update content", module, err)
			return
		}
		httpx.JSON(w, http.StatusOK, item)
	}
}

func (h *Handler) remove(module rbac.Module) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := itemID(w, r)
		if !ok {
			return
		}
		sess := shared.SessionFromContext(r.Context())
		if err := h.service.Delete(r.Context(), sess.User, module, id); err != nil {
			h.fail(w, "delete content", module, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func (h *Handler) versions(module rbac.Module) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := itemID(w, r)
		if !ok {
			return
		}
		versions, err := h.service.Versions(r.Context(), module, id)
		if err != nil {
			h.fail(w, "content versions", module, err)
			return
		}
		httpx.JSON(w, http.StatusOK, map[string]any{"versions": versions})
	}
}

type modulePageData struct {
	Items      []Item
	Pagination shared.Pagination
	CanEdit    bool
}

func (h *Handler) page(module rbac.Module) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess := shared.SessionFromContext(r.Context())
		role := rbac.SessionRole(sess)
		page, perPage := pagingParams(r)
		result, err := h.service.List(r.Context(), module, page, perPage)
		if err != nil {
			h.logger.Error("content page", slog.String("module", module.String()), slog.Any("error", err))
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}
		data := view.TemplateData{
			Title:       pageTitle(module),
			CSRFToken:   h.csrf.Token(sess.Token),
			CurrentPath: r.URL.Path,
			User:        &sess.User,
			Modules:     rbac.ViewableModuleNames(role),
			Data: modulePageData{
				Items:      result.Items,
				Pagination: result.Pagination,
				CanEdit:    rbac.CanEdit(role, module),
			},
		}
		if err := h.templates.Render(w, http.StatusOK, "module.html", data); err != nil {
			h.logger.Error("render module", slog.Any("error", err))
		}
	}
}

func (h *Handler) pageCreate(module rbac.Module) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
			return
		}
		in := ItemInput{
			Title: strings.TrimSpace(r.PostFormValue("title")),
			Body:  r.PostFormValue("body"),
		}
		if err := h.validator.Struct(in); err != nil {
			http.Redirect(w, r, module.LandingPath(), http.StatusSeeOther)
			return
		}
		sess := shared.SessionFromContext(r.Context())
		item, err := h.service.Create(r.Context(), sess.User, module, in)
		if err != nil {
			h.logger.Error("content page create", slog.String("module", module.String()), slog.Any("error", err))
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}
		http.Redirect(w, r, module.LandingPath()+"#"+item.ID.String(), http.StatusSeeOther)
	}
}

func (h *Handler) decodeInput(w http.ResponseWriter, r *http.Request) (ItemInput, bool) {
	var in ItemInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "malformed JSON body")
		return ItemInput{}, false
	}
	in.Title = strings.TrimSpace(in.Title)
	if err := h.validator.Struct(in); err != nil {
		fields := make(map[string]string)
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, fe := range verrs {
				fields[fe.Field()] = fe.Tag()
			}
		}
		httpx.ValidationProblem(w, fields)
		return ItemInput{}, false
	}
	return in, true
}

func (h *Handler) fail(w http.ResponseWriter, op string, module rbac.Module, err error) {
	switch {
	case errors.Is(err, shared.ErrNotFound), errors.Is(err, ErrNotVersioned), errors.Is(err, ErrUnknownModule):
		httpx.Problem(w, http.StatusNotFound, "Not Found", "resource not found")
	default:
		h.logger.Error(op, slog.String("module", module.String()), slog.Any("error", err))
		httpx.RespondError(w, err)
	}
}

func itemID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusNotFound, "Not Found", "resource not found")
		return uuid.Nil, false
	}
	return id, true
}

func pagingParams(r *http.Request) (int, int) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	perPage, _ := strconv.Atoi(r.URL.Query().Get("per_page"))
	return page, perPage
}

func pageTitle(module rbac.Module) string {
	return view.ModuleTitle(module.String())
}
