package app

import (
	"io/fs"
	"log/slog"
	"mime"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/sapients/tracker/internal/activity"
	"github.com/sapients/tracker/internal/auth"
	"github.com/sapients/tracker/internal/content"
	"github.com/sapients/tracker/internal/observability"
	"github.com/sapients/tracker/internal/push"
	"github.com/sapients/tracker/internal/rbac"
	"github.com/sapients/tracker/internal/shared"
	"github.com/sapients/tracker/jobs"
	"github.com/sapients/tracker/web"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger          *slog.Logger
	Config          *Config
	SessionManager  *shared.SessionManager
	CSRFManager     *shared.CSRFManager
	RBACMiddleware  rbac.Middleware
	AuthHandler     *auth.Handler
	ActivityHandler *activity.Handler
	ContentHandler  *content.Handler
	PushHandler     *push.Handler
	JobHandler      *jobs.Handler
	Metrics         *observability.Metrics
}

// NewRouter constructs the chi.Router.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         params.Logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
		CSRFManager:    params.CSRFManager,
		Metrics:        params.Metrics,
	}) {
		r.Use(mw)
	}
	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, rbac.ModuleDashboard.LandingPath(), http.StatusSeeOther)
	})

	loginLimit := 10
	var corsOrigins []string
	if params.Config != nil {
		loginLimit = params.Config.LoginRateLimitPerMinute
		corsOrigins = params.Config.CORSAllowedOrigins
	}

	r.Group(func(r chi.Router) {
		r.Use(LoginRateLimit(loginLimit))
		params.AuthHandler.MountPages(r)
	})
	params.ActivityHandler.MountPages(r)
	params.ContentHandler.MountPages(r)

	r.Route("/api", func(r chi.Router) {
		r.Use(APICORS(corsOrigins))
		r.Route("/auth", func(r chi.Router) {
			r.Use(LoginRateLimit(loginLimit))
			params.AuthHandler.MountAPI(r)
		})
		r.Route("/activity", params.ActivityHandler.MountAPI)
		r.Route("/content", params.ContentHandler.MountAPI)
		r.Route("/push", params.PushHandler.MountAPI)
		if params.JobHandler != nil {
			r.With(params.RBACMiddleware.View(rbac.ModuleDashboard)).Route("/jobs", params.JobHandler.MountRoutes)
		}
	})

	staticFS, err := fs.Sub(web.Static, "static")
	if err != nil {
		params.Logger.Error("create static sub filesystem", slog.Any("error", err))
	} else {
		fileServer := http.StripPrefix("/static/", http.FileServer(http.FS(staticFS)))
		r.Handle("/static/*", staticCacheHandler(fileServer))
	}

	return r
}

func init() {
	for ext, typ := range map[string]string{
		".css": "text/css; charset=utf-8",
		".js":  "text/javascript; charset=utf-8",
		".svg": "image/svg+xml",
	} {
		if mime.TypeByExtension(ext) == "" {
			_ = mime.AddExtensionType(ext, typ)
		}
	}
}

// staticCacheHandler lets browsers cache embedded assets for an hour.
func staticCacheHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "public, max-age=3600")
		next.ServeHTTP(w, r)
	})
}
