package activity

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/sapients/tracker/internal/platform/httpx"
	"github.com/sapients/tracker/internal/rbac"
	"github.com/sapients/tracker/internal/shared"
	"github.com/sapients/tracker/internal/view"
)

// Handler serves the activity feed and the dashboard page.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	templates *view.Engine
	csrf      *shared.CSRFManager
	rbac      rbac.Middleware
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, service *Service, templates *view.Engine, csrf *shared.CSRFManager, mw rbac.Middleware) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, templates: templates, csrf: csrf, rbac: mw}
}

// MountAPI registers GET /api/activity.
func (h *Handler) MountAPI(r chi.Router) {
	r.With(h.rbac.View(rbac.ModuleDashboard)).Get("/", h.list)
}

// MountPages registers the dashboard page.
func (h *Handler) MountPages(r chi.Router) {
	r.With(h.rbac.PageView(rbac.ModuleDashboard)).Get("/dashboard", h.dashboard)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	entries, err := h.service.Recent(r.Context(), rbac.SessionRole(sess), limit)
	if err != nil {
		h.logger.Error("list activity", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"entries": entries})
}

func (h *Handler) dashboard(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	role := rbac.SessionRole(sess)
	entries, err := h.service.Recent(r.Context(), role, 0)
	if err != nil {
		h.logger.Error("dashboard activity", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	data := view.TemplateData{
		Title:       "Dashboard",
		CSRFToken:   h.csrf.Token(sess.Token),
		CurrentPath: r.URL.Path,
		User:        &sess.User,
		Modules:     rbac.ViewableModuleNames(role),
		Data:        map[string]any{"Activity": entries},
	}
	if err := h.templates.Render(w, http.StatusOK, "dashboard.html", data); err != nil {
		h.logger.Error("render dashboard", slog.Any("error", err))
	}
}
