// Package di wires the service together with Wire. wire.go declares the
// graph; wire_gen.go is the generated injector.
package di

import (
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"franklink-backend/internal/app"
	"franklink-backend/internal/config"
	"franklink-backend/internal/handlers"
	"franklink-backend/internal/infrastructure/messaging"
	"franklink-backend/internal/infrastructure/observability"
	"franklink-backend/internal/layout"
	"franklink-backend/internal/middleware"
	"franklink-backend/internal/repository"
	"franklink-backend/internal/repository/sqlstore"
	"franklink-backend/internal/service/account"
	"franklink-backend/internal/service/connections"
)

// ConfigSource returns the live configuration. Long-lived components read it
// on every use so a reload takes effect without a restart.
type ConfigSource func() *config.Config

// Static returns a ConfigSource that never changes.
func Static(cfg *config.Config) ConfigSource {
	return func() *config.Config { return cfg }
}

// RendererFactory creates the per-user layout renderer.
type RendererFactory func() *layout.Renderer

// Logging is the process logger and its adjustable level.
type Logging struct {
	Logger *zap.Logger
	Level  zap.AtomicLevel
}

// Backend is everything the selected store driver provides. Auth, Avatars
// and Objects are nil when the driver has no such capability.
type Backend struct {
	Driver  string
	Store   repository.Store
	Auth    repository.Authenticator
	Avatars repository.AvatarStorage
	Objects handlers.ObjectReader

	// SQL and LocalAuth are set for the sqlite and memory drivers.
	SQL       *sqlstore.Store
	LocalAuth *sqlstore.LocalAuth
}

// Container holds the wired application.
type Container struct {
	Config     *config.Config
	Logging    *Logging
	Logger     *zap.Logger
	Backend    *Backend
	Store      repository.Store
	Collector  *observability.Collector
	CloudWatch *observability.CloudWatchRecorder
	Tracer     *observability.TracerProvider
	Publisher  messaging.Publisher
	Loader     connections.Loader
	Sessions   *app.Sessions
	Account    account.Service
	Verifier   middleware.TokenVerifier
	Router     *chi.Mux
}
