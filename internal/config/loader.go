package config

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"franklink-backend/internal/layout"
	"franklink-backend/internal/repository"
)

// SchemaVersion is stamped on every loaded configuration.
const SchemaVersion = "1.0.0"

// devJWTSecret is only applied outside staging and production.
const devJWTSecret = "franklink-local-development-secret"

// Loader builds a Config from layered sources. Later sources win:
//
//  1. defaults in code
//  2. base.yaml
//  3. <environment>.yaml
//  4. local.yaml (development only)
//  5. environment variables
type Loader struct {
	basePath    string
	environment Environment
	sources     []string
	fileLoaders []FileLoader
	getenv      func(string) string
}

// FileLoader decodes one configuration file format.
type FileLoader interface {
	Load(reader io.Reader, target interface{}) error
	Extension() string
}

// NewLoader creates a loader reading files under basePath.
func NewLoader(basePath string, env Environment) *Loader {
	if basePath == "" {
		basePath = "config"
	}
	if env == "" {
		env = Development
	}
	l := &Loader{
		basePath:    basePath,
		environment: env,
		getenv:      os.Getenv,
	}
	l.RegisterLoader(&YAMLLoader{})
	l.RegisterLoader(&JSONLoader{})
	return l
}

// RegisterLoader adds a file format. Formats are tried in registration order.
func (l *Loader) RegisterLoader(loader FileLoader) {
	l.fileLoaders = append(l.fileLoaders, loader)
}

// WithEnv replaces the environment variable lookup.
func (l *Loader) WithEnv(getenv func(string) string) *Loader {
	l.getenv = getenv
	return l
}

// BasePath returns the directory configuration files are read from.
func (l *Loader) BasePath() string {
	return l.basePath
}

// Load reads every layer and validates the result.
func (l *Loader) Load() (*Config, error) {
	l.sources = l.sources[:0]

	cfg := l.defaultConfig()
	l.sources = append(l.sources, "defaults")

	if err := l.loadFile("base", cfg); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load base config: %w", err)
	}

	envFile := strings.ToLower(string(l.environment))
	if err := l.loadFile(envFile, cfg); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load %s config: %w", envFile, err)
	}

	if l.environment == Development {
		if err := l.loadFile("local", cfg); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to load local config: %w", err)
		}
	}

	if err := l.loadEnvironmentVariables(cfg); err != nil {
		return nil, err
	}
	l.sources = append(l.sources, "environment")

	cfg.LoadedFrom = append([]string(nil), l.sources...)
	cfg.Version = SchemaVersion
	cfg.applyEnvironmentDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func (l *Loader) loadFile(name string, cfg *Config) error {
	for _, loader := range l.fileLoaders {
		path := filepath.Join(l.basePath, name+"."+loader.Extension())

		f, err := os.Open(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return err
		}
		err = loader.Load(f, cfg)
		f.Close()
		if err != nil {
			return fmt.Errorf("failed to parse %s: %w", path, err)
		}

		l.sources = append(l.sources, path)
		return nil
	}
	return os.ErrNotExist
}

func (l *Loader) loadEnvironmentVariables(cfg *Config) error {
	get := l.getenv

	if val := get("SERVER_HOST"); val != "" {
		cfg.Server.Host = val
	}
	if val := get("SERVER_PORT"); val != "" {
		port, err := strconv.Atoi(val)
		if err != nil {
			return fmt.Errorf("SERVER_PORT: %w", err)
		}
		cfg.Server.Port = port
	}
	if val := get("REQUEST_TIMEOUT"); val != "" {
		d, err := time.ParseDuration(val)
		if err != nil {
			return fmt.Errorf("REQUEST_TIMEOUT: %w", err)
		}
		cfg.Server.RequestTimeout = d
	}

	if val := get("SUPABASE_URL"); val != "" {
		cfg.Supabase.URL = val
	}
	if val := get("SUPABASE_SERVICE_ROLE_KEY"); val != "" {
		cfg.Supabase.ServiceRoleKey = val
	}
	if val := get("SUPABASE_ANON_KEY"); val != "" {
		cfg.Supabase.AnonKey = val
	}

	if val := get("STORE_DRIVER"); val != "" {
		cfg.Store.Driver = strings.ToLower(val)
	}
	if val := get("SQLITE_PATH"); val != "" {
		cfg.Store.SQLitePath = val
	}
	if val := get("TABLE_NAME"); val != "" {
		cfg.Store.TableName = val
	}
	if val := get("STORE_SEED"); val != "" {
		cfg.Store.Seed = val
	}

	if val := get("AUTH_MODE"); val != "" {
		cfg.Auth.Mode = strings.ToLower(val)
	}
	if val := get("SUPABASE_JWT_SECRET"); val != "" {
		cfg.Auth.JWTSecret = val
	}
	if val := get("JWT_SECRET"); val != "" {
		cfg.Auth.JWTSecret = val
	}

	if val := get("AWS_REGION"); val != "" {
		cfg.AWS.Region = val
	}
	if val := get("AWS_ENDPOINT_URL"); val != "" {
		cfg.AWS.Endpoint = val
	}
	if val := get("AWS_XRAY_ENABLED"); val != "" {
		cfg.AWS.XRay = parseBool(val)
	}
	if val := get("EVENT_BUS_NAME"); val != "" {
		cfg.Events.BusName = val
		cfg.Events.Provider = "eventbridge"
	}

	if val := get("ENABLE_METRICS"); val != "" {
		cfg.Metrics.Enabled = parseBool(val)
	}
	if val := get("METRICS_CLOUDWATCH_NAMESPACE"); val != "" {
		cfg.Metrics.CloudWatchNamespace = val
	}
	if val := get("OTEL_EXPORTER_OTLP_ENDPOINT"); val != "" {
		cfg.Tracing.Endpoint = val
		cfg.Tracing.Enabled = true
	}

	if val := get("LOG_LEVEL"); val != "" {
		cfg.Logging.Level = strings.ToLower(val)
	}
	if val := get("LOG_FORMAT"); val != "" {
		cfg.Logging.Format = strings.ToLower(val)
	}

	if val := get("CORS_ALLOWED_ORIGINS"); val != "" {
		origins := strings.Split(val, ",")
		for i := range origins {
			origins[i] = strings.TrimSpace(origins[i])
		}
		cfg.CORS.AllowedOrigins = origins
	}
	return nil
}

func (l *Loader) defaultConfig() *Config {
	return &Config{
		Environment: l.environment,
		Server: Server{
			Host:               "0.0.0.0",
			Port:               8080,
			ReadTimeout:        15 * time.Second,
			WriteTimeout:       0,
			IdleTimeout:        60 * time.Second,
			ShutdownTimeout:    10 * time.Second,
			RequestTimeout:     30 * time.Second,
			SessionIdleTimeout: 30 * time.Minute,
		},
		Store: Store{
			Driver:  DriverMemory,
			Breaker: true,
			Timeout: 10 * time.Second,
		},
		Graph: Graph{
			Limits: repository.DefaultLimits(),
			Layout: layout.DefaultParams(),
		},
		Avatar: Avatar{
			Bucket:           "agent-avatars",
			MaxBytes:         5 * 1024 * 1024,
			PhoneEmailDomain: "users.franklink.ai",
		},
		Auth: Auth{
			Mode:     AuthModeJWT,
			Issuer:   "franklink",
			Audience: []string{"authenticated"},
			Leeway:   30 * time.Second,
		},
		AWS: AWS{
			Region: "us-east-1",
		},
		Events: Events{
			Provider:  "log",
			Source:    "franklink.backend",
			QueueSize: 256,
		},
		Metrics: Metrics{
			Enabled: true,
		},
		Tracing: Tracing{
			ServiceName: "franklink-backend",
			Insecure:    true,
			SampleRate:  1.0,
		},
		Logging: Logging{
			Level:  "info",
			Format: "json",
		},
		CORS: CORS{
			AllowedOrigins: []string{"*"},
		},
	}
}

// applyEnvironmentDefaults fills values that depend on the environment and
// were not set by any layer.
func (c *Config) applyEnvironmentDefaults() {
	switch c.Environment {
	case Development, Test:
		if c.Auth.Mode == AuthModeJWT && c.Auth.JWTSecret == "" {
			c.Auth.JWTSecret = devJWTSecret
		}
	case Production:
		if c.Tracing.SampleRate == 1.0 {
			c.Tracing.SampleRate = 0.1
		}
	}
}

// YAMLLoader decodes YAML files.
type YAMLLoader struct{}

func (y *YAMLLoader) Load(reader io.Reader, target interface{}) error {
	dec := yaml.NewDecoder(reader)
	dec.KnownFields(true)
	if err := dec.Decode(target); err != nil && err != io.EOF {
		return err
	}
	return nil
}

func (y *YAMLLoader) Extension() string {
	return "yaml"
}

// JSONLoader decodes JSON files. Durations must be given in nanoseconds.
type JSONLoader struct{}

func (j *JSONLoader) Load(reader io.Reader, target interface{}) error {
	return json.NewDecoder(reader).Decode(target)
}

func (j *JSONLoader) Extension() string {
	return "json"
}

func parseBool(s string) bool {
	b, _ := strconv.ParseBool(s)
	return b
}

// EnvironmentFromEnv reads ENVIRONMENT, defaulting to development.
func EnvironmentFromEnv() Environment {
	switch env := Environment(strings.ToLower(os.Getenv("ENVIRONMENT"))); env {
	case Development, Test, Staging, Production:
		return env
	default:
		return Development
	}
}

// Load reads configuration from CONFIG_DIR (default "config") for the
// environment named by ENVIRONMENT.
func Load() (*Config, error) {
	dir := os.Getenv("CONFIG_DIR")
	return NewLoader(dir, EnvironmentFromEnv()).Load()
}

// MustLoad is Load that panics on error.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load configuration: %v", err))
	}
	return cfg
}
