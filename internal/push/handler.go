package push

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/sapients/tracker/internal/platform/httpx"
	"github.com/sapients/tracker/internal/rbac"
	"github.com/sapients/tracker/internal/shared"
)

// Handler manages the caller's push subscriptions.
type Handler struct {
	logger    *slog.Logger
	repo      Repository
	rbac      rbac.Middleware
	validator *validator.Validate
	hosts     HostAllowlist
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, repo Repository, mw rbac.Middleware) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, repo: repo, rbac: mw, validator: validator.New(), hosts: DefaultAllowedHosts}
}

// RestrictHosts replaces the default push service allowlist. Empty keeps the defaults.
func (h *Handler) RestrictHosts(hosts []string) {
	if len(hosts) > 0 {
		h.hosts = HostAllowlist(hosts)
	}
}

// MountAPI registers the subscription endpoints under /api/push.
func (h *Handler) MountAPI(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.View(rbac.ModuleDashboard))
		r.Post("/subscriptions", h.subscribe)
		r.Delete("/subscriptions", h.unsubscribe)
	})
}

func (h *Handler) subscribe(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	var in SubscribeInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "malformed JSON body")
		return
	}
	if err := h.validator.Struct(in); err != nil {
		httpx.ValidationProblem(w, fieldErrors(err))
		return
	}
	if !h.hosts.Allows(in.Endpoint) {
		httpx.ValidationProblem(w, map[string]string{"Endpoint": "host_not_allowed"})
		return
	}
	sub, err := h.repo.Upsert(r.Context(), Subscription{
		ID:       uuid.New(),
		UserID:   sess.User.ID,
		Endpoint: in.Endpoint,
		P256dh:   in.Keys.P256dh,
		Auth:     in.Keys.Auth,
	})
	if err != nil {
		h.logger.Error("push subscribe", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, sub)
}

func (h *Handler) unsubscribe(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	var in UnsubscribeInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "malformed JSON body")
		return
	}
	if err := h.validator.Struct(in); err != nil {
		httpx.ValidationProblem(w, fieldErrors(err))
		return
	}
	if err := h.repo.DeleteByEndpoint(r.Context(), sess.User.ID, in.Endpoint); err != nil {
		h.logger.Error("push unsubscribe", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func fieldErrors(err error) map[string]string {
	fields := make(map[string]string)
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		for _, fe := range verrs {
			fields[fe.Field()] = fe.Tag()
		}
	}
	return fields
}
