package di

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"github.com/aws/aws-xray-sdk-go/instrumentation/awsv2"
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
	"franklink-backend/internal/repository/ddb"
	"franklink-backend/internal/repository/sqlstore"
	"franklink-backend/internal/repository/supabase"
	"franklink-backend/internal/service/account"
	"franklink-backend/internal/service/connections"
	"franklink-backend/pkg/auth"
)

// localSessionTTL is the lifetime of tokens issued by the local store.
const localSessionTTL = time.Hour

// ============================================================================
// CONFIG PROVIDERS
// ============================================================================

func provideLogging(cfg *config.Config) (*Logging, func(), error) {
	logger, level, err := observability.NewLogger(observability.LoggerConfig{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		Environment: string(cfg.Environment),
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create logger: %w", err)
	}
	logger = logger.With(zap.String("service", "franklink-backend"), zap.String("version", cfg.Version))
	return &Logging{Logger: logger, Level: level}, func() { _ = logger.Sync() }, nil
}

func provideLogger(l *Logging) *zap.Logger {
	return l.Logger
}

// JWTConfig maps the auth section onto the token validator settings.
func JWTConfig(cfg *config.Config) auth.JWTConfig {
	return auth.JWTConfig{
		SecretKey: cfg.Auth.JWTSecret,
		Issuer:    cfg.Auth.Issuer,
		Audience:  cfg.Auth.Audience,
		Leeway:    cfg.Auth.Leeway,
	}
}

// ============================================================================
// INFRASTRUCTURE PROVIDERS - AWS Clients
// ============================================================================

// LoadAWSConfig loads the default credential chain for the configured region.
// With aws.xray set every client built from it records X-Ray subsegments.
func LoadAWSConfig(ctx context.Context, cfg *config.Config) (aws.Config, error) {
	loadCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	awsCfg, err := awsconfig.LoadDefaultConfig(loadCtx, awsconfig.WithRegion(cfg.AWS.Region))
	if err != nil {
		return aws.Config{}, fmt.Errorf("failed to load AWS config: %w", err)
	}
	if cfg.AWS.XRay {
		awsv2.AWSV2Instrumentor(&awsCfg.APIOptions)
	}
	return awsCfg, nil
}

// NewDynamoDBClient creates a DynamoDB client; a configured endpoint points it
// at DynamoDB Local.
func NewDynamoDBClient(awsCfg aws.Config, cfg *config.Config) *dynamodb.Client {
	return dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
		timeout := cfg.Store.Timeout
		if timeout <= 0 {
			timeout = 15 * time.Second
		}
		o.HTTPClient = &http.Client{Timeout: timeout}
		if cfg.AWS.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.AWS.Endpoint)
		}
	})
}

func newCloudWatchClient(awsCfg aws.Config, cfg *config.Config) *cloudwatch.Client {
	return cloudwatch.NewFromConfig(awsCfg, func(o *cloudwatch.Options) {
		o.HTTPClient = &http.Client{Timeout: 10 * time.Second}
		if cfg.AWS.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.AWS.Endpoint)
		}
	})
}

func newEventBridgeClient(awsCfg aws.Config, cfg *config.Config) *eventbridge.Client {
	return eventbridge.NewFromConfig(awsCfg, func(o *eventbridge.Options) {
		o.HTTPClient = &http.Client{Timeout: 10 * time.Second}
		if cfg.AWS.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.AWS.Endpoint)
		}
	})
}

// ============================================================================
// INFRASTRUCTURE PROVIDERS - Store
// ============================================================================

// provideBackend opens the configured store driver.
func provideBackend(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Backend, func(), error) {
	backend := &Backend{Driver: cfg.Store.Driver}
	cleanup := func() {}

	switch cfg.Store.Driver {
	case config.DriverSupabase:
		st, err := supabase.New(cfg.Supabase.URL, cfg.Supabase.ServiceRoleKey, logger.Named("supabase"))
		if err != nil {
			return nil, nil, err
		}
		backend.Store, backend.Auth, backend.Avatars = st, st, st

	case config.DriverSQLite, config.DriverMemory:
		path := cfg.Store.SQLitePath
		if cfg.Store.Driver == config.DriverMemory {
			path = sqlstore.MemoryPath
		}
		st, err := sqlstore.Open(ctx, path, sqlstore.WithLogger(logger.Named("sqlstore")))
		if err != nil {
			return nil, nil, err
		}
		cleanup = func() {
			if err := st.Close(); err != nil {
				logger.Warn("failed to close store", zap.Error(err))
			}
		}
		local, err := sqlstore.NewLocalAuth(st, JWTConfig(cfg), localSessionTTL)
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		backend.Store, backend.Avatars, backend.Objects = st, st, st
		backend.SQL, backend.LocalAuth = st, local
		backend.Auth = local

		if cfg.Store.Driver == config.DriverMemory && cfg.Store.Seed != "" {
			fixture, err := repository.LoadFixture(cfg.Store.Seed)
			if err != nil {
				cleanup()
				return nil, nil, err
			}
			if err := st.Seed(ctx, fixture, local); err != nil {
				cleanup()
				return nil, nil, err
			}
			logger.Info("seeded memory store",
				zap.String("fixture", cfg.Store.Seed),
				zap.Int("users", len(fixture.Users)),
				zap.Int("chats", len(fixture.Chats)))
		}

	case config.DriverDynamoDB:
		awsCfg, err := LoadAWSConfig(ctx, cfg)
		if err != nil {
			return nil, nil, err
		}
		backend.Store = ddb.New(NewDynamoDBClient(awsCfg, cfg), cfg.Store.TableName, logger.Named("dynamodb"))

		// Sessions and avatars stay with Supabase when a project is configured.
		if cfg.Supabase.URL != "" && cfg.Supabase.ServiceRoleKey != "" {
			st, err := supabase.New(cfg.Supabase.URL, cfg.Supabase.ServiceRoleKey, logger.Named("supabase"))
			if err != nil {
				return nil, nil, err
			}
			backend.Auth, backend.Avatars = st, st
		}

	default:
		return nil, nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}

	logger.Info("store ready",
		zap.String("driver", cfg.Store.Driver),
		zap.Bool("sign_in", backend.Auth != nil),
		zap.Bool("avatars", backend.Avatars != nil))
	return backend, cleanup, nil
}

// provideStore places the circuit breaker in front of remote drivers.
func provideStore(backend *Backend, cfg *config.Config, logger *zap.Logger) repository.Store {
	if !cfg.Store.Breaker || backend.SQL != nil {
		return backend.Store
	}
	return repository.NewBreakerStore(backend.Store, repository.DefaultBreakerConfig(backend.Driver), logger)
}

// ============================================================================
// INFRASTRUCTURE PROVIDERS - Observability and Messaging
// ============================================================================

func provideCollector(cfg *config.Config) *observability.Collector {
	if !cfg.Metrics.Enabled {
		return nil
	}
	return observability.NewCollector("franklink")
}

// provideCloudWatch returns nil unless metrics.cloudwatch_namespace is set.
// The cleanup sends whatever is still buffered.
func provideCloudWatch(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*observability.CloudWatchRecorder, func(), error) {
	if cfg.Metrics.CloudWatchNamespace == "" {
		return nil, func() {}, nil
	}
	awsCfg, err := LoadAWSConfig(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	rec := observability.NewCloudWatchRecorder(newCloudWatchClient(awsCfg, cfg), cfg.Metrics.CloudWatchNamespace, logger.Named("cloudwatch"))
	cleanup := func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = rec.Flush(flushCtx)
	}
	return rec, cleanup, nil
}

// provideSink combines the enabled metric backends. It is nil when there are
// none so components keep their no-op recorder.
func provideSink(collector *observability.Collector, cw *observability.CloudWatchRecorder) observability.Sink {
	var sinks observability.Fanout
	if collector != nil {
		sinks = append(sinks, collector)
	}
	if cw != nil {
		sinks = append(sinks, cw)
	}
	switch len(sinks) {
	case 0:
		return nil
	case 1:
		return sinks[0]
	default:
		return sinks
	}
}

func provideTracing(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*observability.TracerProvider, func(), error) {
	if !cfg.Tracing.Enabled {
		return nil, func() {}, nil
	}
	tp, err := observability.InitTracing(ctx, observability.TracingConfig{
		ServiceName: cfg.Tracing.ServiceName,
		Version:     cfg.Version,
		Environment: string(cfg.Environment),
		Endpoint:    cfg.Tracing.Endpoint,
		Insecure:    cfg.Tracing.Insecure,
		SampleRate:  cfg.Tracing.SampleRate,
	}, logger)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(shutdownCtx); err != nil {
			logger.Warn("failed to flush traces", zap.Error(err))
		}
	}
	return tp, cleanup, nil
}

func provideEventPublisher(ctx context.Context, cfg *config.Config, logger *zap.Logger) (messaging.Publisher, func(), error) {
	var next messaging.Publisher
	switch cfg.Events.Provider {
	case "eventbridge":
		awsCfg, err := LoadAWSConfig(ctx, cfg)
		if err != nil {
			return nil, nil, err
		}
		next = messaging.NewEventBridgePublisher(newEventBridgeClient(awsCfg, cfg), cfg.Events.BusName, cfg.Events.Source, logger)
	default:
		next = messaging.NewLogPublisher(logger)
	}

	async := messaging.NewAsyncPublisher(next, cfg.Events.QueueSize, logger)
	return async, async.Close, nil
}

// ============================================================================
// APPLICATION PROVIDERS
// ============================================================================

func provideLoader(store repository.Store, source ConfigSource, sink observability.Sink, logger *zap.Logger) connections.Loader {
	opts := []connections.Option{
		connections.WithLimits(func() repository.Limits { return source().Graph.Limits }),
		connections.WithLogger(logger.Named("loader")),
	}
	if sink != nil {
		opts = append(opts, connections.WithRecorder(sink))
	}
	return connections.NewLoader(store, store, opts...)
}

func provideRendererFactory(source ConfigSource, sink observability.Sink, logger *zap.Logger) RendererFactory {
	return func() *layout.Renderer {
		opts := []layout.RendererOption{
			layout.WithParams(func() layout.Params { return source().Graph.Layout }),
			layout.WithLogger(logger.Named("layout")),
		}
		if sink != nil {
			opts = append(opts, layout.WithRecorder(sink))
		}
		return layout.NewRenderer(opts...)
	}
}

func provideSessions(loader connections.Loader, newRenderer RendererFactory, logger *zap.Logger) (*app.Sessions, func()) {
	sessions := app.NewSessions(loader, newRenderer, logger.Named("sessions"))
	return sessions, sessions.Close
}

func provideAccountService(
	store repository.Store,
	backend *Backend,
	source ConfigSource,
	publisher messaging.Publisher,
	sink observability.Sink,
	logger *zap.Logger,
) account.Service {
	opts := []account.Option{
		account.WithConfig(func() account.Config { return source().Avatar.Account() }),
		account.WithPublisher(publisher),
		account.WithLogger(logger.Named("account")),
	}
	if backend.Auth != nil {
		opts = append(opts, account.WithAuthenticator(backend.Auth))
	}
	if backend.Avatars != nil {
		opts = append(opts, account.WithAvatarStorage(backend.Avatars))
	}
	if sink != nil {
		opts = append(opts, account.WithRecorder(sink))
	}
	return account.NewService(store, store, opts...)
}

// provideVerifier picks how bearer tokens are checked: locally against the
// shared secret, or by asking Supabase Auth.
func provideVerifier(cfg *config.Config, backend *Backend) (middleware.TokenVerifier, error) {
	switch cfg.Auth.Mode {
	case config.AuthModeSupabase:
		if backend.Auth == nil {
			return nil, fmt.Errorf("auth.mode supabase needs a store with sign-in support, %s has none", backend.Driver)
		}
		return middleware.NewAuthenticatorVerifier(backend.Auth), nil
	default:
		validator, err := auth.NewJWTValidator(JWTConfig(cfg))
		if err != nil {
			return nil, err
		}
		return middleware.NewJWTVerifier(validator), nil
	}
}

// ============================================================================
// INTERFACE PROVIDERS
// ============================================================================

func provideRouter(
	cfg *config.Config,
	accounts account.Service,
	loader connections.Loader,
	sessions *app.Sessions,
	verifier middleware.TokenVerifier,
	collector *observability.Collector,
	backend *Backend,
	logger *zap.Logger,
) *chi.Mux {
	return handlers.NewRouter(handlers.RouterConfig{
		ServiceName:    cfg.Tracing.ServiceName,
		Version:        cfg.Version,
		Environment:    string(cfg.Environment),
		RequestTimeout: cfg.Server.RequestTimeout,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		MaxAvatarBytes: cfg.Avatar.MaxBytes,
	}, handlers.Dependencies{
		Account:   accounts,
		Loader:    loader,
		Sessions:  sessions,
		Verifier:  verifier,
		Collector: collector,
		Objects:   backend.Objects,
		Logger:    logger,
	})
}
