package auth

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/sapients/tracker/internal/platform/httpx"
	"github.com/sapients/tracker/internal/rbac"
	"github.com/sapients/tracker/internal/shared"
	"github.com/sapients/tracker/internal/view"
)

const genericLoginError = "Invalid email or password"

// LoginObserver records login outcomes.
type LoginObserver interface {
	ObserveLogin(outcome string)
}

// Handler wires HTTP endpoints for authentication flows.
type Handler struct {
	logger         *slog.Logger
	service        *Service
	templates      *view.Engine
	sessionManager *shared.SessionManager
	csrfManager    *shared.CSRFManager
	validator      *validator.Validate
	observer       LoginObserver
}

// NewHandler constructs a Handler instance. observer may be nil.
func NewHandler(logger *slog.Logger, service *Service, templates *view.Engine, sessions *shared.SessionManager, csrf *shared.CSRFManager, observer LoginObserver) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:         logger,
		service:        service,
		templates:      templates,
		sessionManager: sessions,
		csrfManager:    csrf,
		validator:      validator.New(),
		observer:       observer,
	}
}

// MountPages registers the login and logout page routes.
func (h *Handler) MountPages(r chi.Router) {
	r.Get("/login", h.showLogin)
	r.Post("/login", h.handleLogin)
	r.Post("/logout", h.handleLogout)
}

// MountAPI registers the JSON auth endpoints.
func (h *Handler) MountAPI(r chi.Router) {
	r.Post("/login", h.apiLogin)
	r.Post("/logout", h.apiLogout)
	r.Get("/me", h.apiMe)
}

type loginForm struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type loginPageData struct {
	Email string
	Error string
}

type meResponse struct {
	User      shared.SessionUser `json:"user"`
	ExpiresAt time.Time          `json:"expires"`
	CSRFToken string             `json:"csrf_token"`
	Modules   []string           `json:"modules"`
	CanDelete bool               `json:"can_delete"`
}

func (h *Handler) showLogin(w http.ResponseWriter, r *http.Request) {
	sess, err := h.sessionManager.Get(r.Context(), r)
	if err != nil {
		h.logger.Error("load session", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	if sess != nil {
		http.Redirect(w, r, rbac.ModuleDashboard.LandingPath(), http.StatusSeeOther)
		return
	}
	h.renderLogin(w, r, http.StatusOK, loginPageData{})
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	form := loginForm{
		Email:    r.PostFormValue("email"),
		Password: r.PostFormValue("password"),
	}
	if err := h.validator.Struct(form); err != nil {
		h.renderLogin(w, r, http.StatusBadRequest, loginPageData{Email: form.Email, Error: genericLoginError})
		return
	}

	sess, err := h.login(w, r, form)
	if err != nil {
		if errors.Is(err, shared.ErrInvalidCredentials) {
			h.renderLogin(w, r, http.StatusBadRequest, loginPageData{Email: form.Email, Error: genericLoginError})
			return
		}
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	h.logger.Info("user signed in", slog.Int64("user_id", sess.User.ID))
	http.Redirect(w, r, rbac.ModuleDashboard.LandingPath(), http.StatusSeeOther)
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := h.sessionManager.Destroy(r.Context(), w, r); err != nil {
		h.logger.Error("destroy session", slog.Any("error", err))
	}
	http.Redirect(w, r, rbac.LoginPath, http.StatusSeeOther)
}

func (h *Handler) apiLogin(w http.ResponseWriter, r *http.Request) {
	var form loginForm
	if err := httpx.DecodeJSON(r, &form); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "malformed JSON body")
		return
	}
	if err := h.validator.Struct(form); err != nil {
		httpx.ValidationProblem(w, validationFields(err))
		return
	}
	sess, err := h.login(w, r, form)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, h.me(sess))
}

func (h *Handler) apiLogout(w http.ResponseWriter, r *http.Request) {
	if err := h.sessionManager.Destroy(r.Context(), w, r); err != nil {
		h.logger.Error("destroy session", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) apiMe(w http.ResponseWriter, r *http.Request) {
	sess, err := h.sessionManager.Get(r.Context(), r)
	if err != nil {
		h.logger.Error("load session", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	if sess == nil {
		httpx.Unauthenticated(w)
		return
	}
	httpx.JSON(w, http.StatusOK, h.me(sess))
}

// login authenticates, creates the session and sets the cookie.
func (h *Handler) login(w http.ResponseWriter, r *http.Request, form loginForm) (*shared.Session, error) {
	user, err := h.service.Authenticate(r.Context(), form.Email, form.Password)
	if err != nil {
		if errors.Is(err, shared.ErrInvalidCredentials) {
			h.observe("invalid")
			return nil, err
		}
		h.observe("error")
		h.logger.Error("authenticate", slog.Any("error", err))
		return nil, err
	}
	token, expiresAt, err := h.sessionManager.Create(r.Context(), user.ID)
	if err != nil {
		h.observe("error")
		h.logger.Error("create session", slog.Any("error", err))
		return nil, err
	}
	h.sessionManager.SetCookie(w, token)
	h.observe("success")
	return &shared.Session{Token: token, User: user.SessionUser(), ExpiresAt: expiresAt}, nil
}

func (h *Handler) me(sess *shared.Session) meResponse {
	role := rbac.SessionRole(sess)
	return meResponse{
		User:      sess.User,
		ExpiresAt: sess.ExpiresAt,
		CSRFToken: h.csrfManager.Token(sess.Token),
		Modules:   rbac.ViewableModuleNames(role),
		CanDelete: rbac.CanDelete(role),
	}
}

func (h *Handler) renderLogin(w http.ResponseWriter, r *http.Request, status int, data loginPageData) {
	viewData := view.TemplateData{
		Title:       "Sign in",
		CurrentPath: r.URL.Path,
		Data:        data,
	}
	if err := h.templates.Render(w, status, "login.html", viewData); err != nil {
		h.logger.Error("render login", slog.Any("error", err))
	}
}

func (h *Handler) observe(outcome string) {
	if h.observer != nil {
		h.observer.ObserveLogin(outcome)
	}
}

func validationFields(err error) map[string]string {
	fields := make(map[string]string)
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		for _, fieldErr := range verrs {
			fields[fieldErr.Field()] = fieldErr.Tag()
		}
	}
	return fields
}
