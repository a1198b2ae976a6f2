//go:build wireinject
// +build wireinject

package di

import (
	"context"

	"github.com/google/wire"

	"franklink-backend/internal/config"
)

// ConfigProviders provides logging derived from configuration.
var ConfigProviders = wire.NewSet(
	provideLogging,
	provideLogger,
)

// InfrastructureProviders provides the store, telemetry and event plumbing.
var InfrastructureProviders = wire.NewSet(
	provideBackend,
	provideStore,
	provideCollector,
	provideCloudWatch,
	provideSink,
	provideTracing,
	provideEventPublisher,
)

// ApplicationProviders provides the graph loader, layout sessions and the
// account service.
var ApplicationProviders = wire.NewSet(
	provideLoader,
	provideRendererFactory,
	provideSessions,
	provideAccountService,
)

// InterfaceProviders provides the HTTP layer.
var InterfaceProviders = wire.NewSet(
	provideVerifier,
	provideRouter,
)

// SuperSet combines all provider sets.
var SuperSet = wire.NewSet(
	ConfigProviders,
	InfrastructureProviders,
	ApplicationProviders,
	InterfaceProviders,
	wire.Struct(new(Container), "*"),
)

// InitializeContainer wires the application. source supplies the live
// configuration; cfg is the snapshot used for construction-time choices.
func InitializeContainer(ctx context.Context, cfg *config.Config, source ConfigSource) (*Container, func(), error) {
	wire.Build(SuperSet)
	return nil, nil, nil
}
