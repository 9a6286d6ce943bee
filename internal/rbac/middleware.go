package rbac

import (
	"log/slog"
	"net/http"

	"github.com/sapients/tracker/internal/platform/httpx"
	"github.com/sapients/tracker/internal/shared"
)

// DeletePasswordHeader carries the delete-confirmation secret on destructive API calls.
const DeletePasswordHeader = "X-Delete-Password"

// LoginPath is where anonymous page visitors are sent.
const LoginPath = "/login"

// Middleware wires guard checks into chi routes. API variants answer 401/403, page
// variants redirect.
type Middleware struct {
	Guard      *Guard
	DeleteGate *DeleteGate
	Logger     *slog.Logger
}

// View requires view access to module on an API route.
func (m Middleware) View(module Module) func(http.Handler) http.Handler {
	return m.api(module, ActionView)
}

// Edit requires edit access to module on an API route.
func (m Middleware) Edit(module Module) func(http.Handler) http.Handler {
	return m.api(module, ActionEdit)
}

// Delete requires the global delete capability and the delete-confirmation secret.
// The secret is only consulted once role authorization has passed.
func (m Middleware) Delete(module Module) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return m.api(module, ActionDelete)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !m.DeleteGate.Verify(r.Header.Get(DeletePasswordHeader)) {
				if m.Logger != nil {
					m.Logger.Warn("delete password rejected", slog.String("path", r.URL.Path))
				}
				httpx.Problem(w, http.StatusForbidden, "Forbidden", "delete confirmation failed")
				return
			}
			next.ServeHTTP(w, r)
		}))
	}
}

// PageView requires view access to module on a rendered page. Anonymous visitors go
// to the login page, forbidden ones to the dashboard.
func (m Middleware) PageView(module Module) func(http.Handler) http.Handler {
	return m.page(module, ActionView, ModuleDashboard.LandingPath())
}

// PageEdit requires edit access to module on a rendered page. Forbidden visitors go to
// fallback, or to the module's own landing page when fallback is empty.
func (m Middleware) PageEdit(module Module, fallback string) func(http.Handler) http.Handler {
	if fallback == "" {
		fallback = module.LandingPath()
	}
	return m.page(module, ActionEdit, fallback)
}

func (m Middleware) api(module Module, action Action) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess, decision, err := m.Guard.Check(r, module, action)
			if err != nil {
				m.logError(err, module, action)
				httpx.RespondError(w, err)
				return
			}
			switch decision {
			case Allow:
				next.ServeHTTP(w, r.WithContext(shared.ContextWithSession(r.Context(), sess)))
			case Forbidden:
				httpx.Forbidden(w)
			default:
				httpx.Unauthenticated(w)
			}
		})
	}
}

func (m Middleware) page(module Module, action Action, deniedPath string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess, decision, err := m.Guard.Check(r, module, action)
			if err != nil {
				m.logError(err, module, action)
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
				return
			}
			switch decision {
			case Allow:
				next.ServeHTTP(w, r.WithContext(shared.ContextWithSession(r.Context(), sess)))
			case Forbidden:
				if r.URL.Path == deniedPath {
					http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
					return
				}
				http.Redirect(w, r, deniedPath, http.StatusSeeOther)
			default:
				http.Redirect(w, r, LoginPath, http.StatusSeeOther)
			}
		})
	}
}

func (m Middleware) logError(err error, module Module, action Action) {
	if m.Logger == nil {
		return
	}
	m.Logger.Error("rbac guard",
		slog.String("module", module.String()),
		slog.String("action", string(action)),
		slog.Any("error", err),
	)
}
