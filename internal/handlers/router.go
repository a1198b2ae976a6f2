package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/swaggo/swag"
	"go.uber.org/zap"

	_ "franklink-backend/docs"
	"franklink-backend/internal/app"
	"franklink-backend/internal/infrastructure/observability"
	"franklink-backend/internal/middleware"
	"franklink-backend/internal/service/account"
	"franklink-backend/internal/service/connections"
	"franklink-backend/pkg/api"
)

// RouterConfig holds the HTTP settings the router needs.
type RouterConfig struct {
	ServiceName    string
	Version        string
	Environment    string
	RequestTimeout time.Duration
	AllowedOrigins []string
	MaxAvatarBytes int64
}

// Dependencies holds the services needed by handlers
type Dependencies struct {
	Account   account.Service
	Loader    connections.Loader
	Sessions  *app.Sessions
	Verifier  middleware.TokenVerifier
	Collector *observability.Collector
	// Objects serves uploaded avatars when the store keeps them itself.
	Objects ObjectReader
	Logger  *zap.Logger
}

// NewRouter creates and configures the HTTP router with all routes and middleware.
func NewRouter(cfg RouterConfig, deps Dependencies) *chi.Mux {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 30 * time.Second
	}
	if len(cfg.AllowedOrigins) == 0 {
		cfg.AllowedOrigins = []string{"*"}
	}

	system := NewSystemHandler(cfg.Version, cfg.Environment, logger)
	accounts := NewAccountHandler(deps.Account, deps.Sessions, cfg.MaxAvatarBytes, logger)
	graph := NewGraphHandler(deps.Loader, deps.Sessions, logger)

	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID", "X-Trace-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(middleware.RequestID)
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.Logger(logger))
	r.Use(observability.TracingMiddleware(cfg.ServiceName))
	if deps.Collector != nil {
		r.Use(observability.MetricsMiddleware(deps.Collector))
		r.Method(http.MethodGet, "/metrics", deps.Collector.Handler())
	}

	r.Get("/swagger/doc.json", func(w http.ResponseWriter, r *http.Request) {
		doc, err := swag.ReadDoc()
		if err != nil {
			api.Error(w, http.StatusNotFound, "API documentation not available")
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(doc))
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(cfg.RequestTimeout, logger))

		r.Get("/", system.Root)
		r.Get("/health", system.Health)
		r.Get("/oauth/google/callback", system.GoogleCallback)
		r.Post("/oauth/google/callback", system.GoogleCallbackPost)

		if deps.Objects != nil {
			storage := NewStorageHandler(deps.Objects, logger)
			r.Get("/storage/v1/object/public/{bucket}/*", storage.PublicObject)
		}
	})

	r.Route("/api", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(middleware.CircuitBreaker(middleware.DefaultCircuitBreakerConfig("api"), logger))
			r.Use(middleware.Timeout(cfg.RequestTimeout, logger))

			r.Post("/auth/login", accounts.Login)

			r.With(middleware.OptionalAuthenticate(deps.Verifier, logger)).Get("/graph", graph.GetGraph)

			r.Group(func(r chi.Router) {
				r.Use(middleware.Authenticate(deps.Verifier, logger))

				r.Post("/auth/logout", accounts.Logout)

				r.Get("/profile", accounts.GetProfile)
				r.Put("/profile/graduation-year", accounts.UpdateGraduationYear)
				r.Post("/profile/avatar", accounts.UploadAvatar)
				r.Put("/profile/password", accounts.ChangePassword)

				r.Get("/notes", accounts.GetNotes)
				r.Put("/notes", accounts.SaveNotes)

				r.Get("/graph/layout", graph.GetLayout)
				r.Post("/graph/layout/viewport", graph.Resize)
				r.Post("/graph/layout/drag", graph.Drag)
				r.Get("/graph/highlight", graph.Highlight)
				r.Get("/graph.svg", graph.SVG)
			})
		})

		// Streams outlive the request timeout and stay out of the breaker.
		r.With(middleware.Authenticate(deps.Verifier, logger)).Get("/graph/layout/stream", graph.StreamLayout)
	})

	return r
}
