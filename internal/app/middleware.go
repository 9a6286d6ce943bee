package app

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/unrolled/secure"

	"github.com/sapients/tracker/internal/observability"
	"github.com/sapients/tracker/internal/platform/httpx"
	"github.com/sapients/tracker/internal/rbac"
	"github.com/sapients/tracker/internal/shared"
)

// MiddlewareConfig aggregates dependencies shared by the middleware stack.
type MiddlewareConfig struct {
	Logger         *slog.Logger
	Config         *Config
	SessionManager *shared.SessionManager
	CSRFManager    *shared.CSRFManager
	Metrics        *observability.Metrics
}

// csrfExempt lists mutating endpoints reachable before a session exists.
var csrfExempt = map[string]struct{}{
	"/login":          {},
	"/api/auth/login": {},
}

// MiddlewareStack installs the global middleware chain.
func MiddlewareStack(cfg MiddlewareConfig) []func(http.Handler) http.Handler {
	production := cfg.Config != nil && cfg.Config.IsProduction()
	secureMiddleware := secure.New(secure.Options{
		FrameDeny:             true,
		ContentTypeNosniff:    true,
		BrowserXssFilter:      true,
		ReferrerPolicy:        "strict-origin-when-cross-origin",
		ContentSecurityPolicy: "default-src 'self'",
		SSLRedirect:           production,
		SSLProxyHeaders:       map[string]string{"X-Forwarded-Proto": "https"},
		IsDevelopment:         !production,
	})

	timeout := 30 * time.Second
	if cfg.Config != nil && cfg.Config.AppRequestTimeout > 0 {
		timeout = cfg.Config.AppRequestTimeout
	}
	limit := 120
	if cfg.Config != nil && cfg.Config.RateLimitPerMinute > 0 {
		limit = cfg.Config.RateLimitPerMinute
	}

	middlewares := []func(http.Handler) http.Handler{
		middleware.RealIP,
		middleware.RequestID,
		middleware.Recoverer,
		middleware.Timeout(timeout),
		secureMiddleware.Handler,
		middleware.Compress(5),
		httprate.Limit(limit, time.Minute, httprate.WithKeyFuncs(httprate.KeyByIP)),
		SessionCookieGate(cfg.SessionManager.CookieName()),
		CSRFProtect(cfg.SessionManager, cfg.CSRFManager, cfg.Logger),
	}
	if cfg.Metrics != nil {
		middlewares = append([]func(http.Handler) http.Handler{cfg.Metrics.Middleware}, middlewares...)
	}
	return middlewares
}

// APICORS allows browser clients on the listed origins to call the JSON API with
// their session cookie. No origins means same-origin only.
func APICORS(origins []string) func(http.Handler) http.Handler {
	if len(origins) == 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	return cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Content-Type", shared.CSRFHeader, rbac.DeletePasswordHeader, shared.IdempotencyHeader},
		AllowCredentials: true,
		MaxAge:           300,
	})
}

// LoginRateLimit throttles credential submissions per client IP. Other methods pass.
func LoginRateLimit(perMinute int) func(http.Handler) http.Handler {
	if perMinute <= 0 {
		perMinute = 10
	}
	limiter := httprate.Limit(perMinute, time.Minute,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			httpx.Problem(w, http.StatusTooManyRequests, "Too Many Requests", "too many sign-in attempts")
		}),
	)
	return func(next http.Handler) http.Handler {
		limited := limiter(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				next.ServeHTTP(w, r)
				return
			}
			limited.ServeHTTP(w, r)
		})
	}
}

// SessionCookieGate sends page requests without a session cookie to the login page.
// It only checks that the cookie is present. Validity, expiry and role are decided by
// the access guard on each route, so this is a convenience redirect and nothing more.
func SessionCookieGate(cookieName string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isPublicPath(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}
			if cookie, err := r.Cookie(cookieName); err != nil || cookie.Value == "" {
				http.Redirect(w, r, rbac.LoginPath, http.StatusSeeOther)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func isPublicPath(path string) bool {
	switch {
	case path == rbac.LoginPath, path == "/healthz":
		return true
	case strings.HasPrefix(path, "/static/"):
		return true
	case path == "/api" || strings.HasPrefix(path, "/api/"):
		// API routes answer 401 themselves.
		return true
	}
	return false
}

// CSRFProtect verifies the CSRF token on mutating requests that carry a session cookie.
// Requests without a cookie are left to the access guard.
func CSRFProtect(sessions *shared.SessionManager, csrf *shared.CSRFManager, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet, http.MethodHead, http.MethodOptions:
				next.ServeHTTP(w, r)
				return
			}
			if _, ok := csrfExempt[r.URL.Path]; ok {
				next.ServeHTTP(w, r)
				return
			}
			sessionToken, ok := sessions.Token(r)
			if !ok {
				next.ServeHTTP(w, r)
				return
			}
			token := r.Header.Get(shared.CSRFHeader)
			if token == "" {
				token = r.PostFormValue(shared.CSRFFormField)
			}
			if err := csrf.VerifyToken(sessionToken, token); err != nil {
				if logger != nil {
					logger.Warn("csrf validation failed",
						slog.String("path", r.URL.Path),
						slog.Bool("missing", errors.Is(err, shared.ErrCSRFTokenMissing)),
					)
				}
				if strings.HasPrefix(r.URL.Path, "/api/") {
					httpx.Problem(w, http.StatusForbidden, "Forbidden", "csrf token invalid")
					return
				}
				http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
