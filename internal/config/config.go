// Package config loads the service configuration from layered YAML files and
// environment variables, validates it, and hot reloads it in development.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"franklink-backend/internal/layout"
	"franklink-backend/internal/repository"
	"franklink-backend/internal/service/account"
)

// Environment represents the deployment environment.
type Environment string

const (
	Development Environment = "development"
	Test        Environment = "test"
	Staging     Environment = "staging"
	Production  Environment = "production"
)

// Store drivers.
const (
	DriverSupabase = "supabase"
	DriverSQLite   = "sqlite"
	DriverDynamoDB = "dynamodb"
	DriverMemory   = "memory"
)

// Auth modes.
const (
	AuthModeJWT      = "jwt"
	AuthModeSupabase = "supabase"
)

// Config is the complete service configuration.
type Config struct {
	Environment Environment `yaml:"environment" validate:"required,oneof=development test staging production"`
	Version     string      `yaml:"version"`

	Server   Server   `yaml:"server"`
	Supabase Supabase `yaml:"supabase"`
	Store    Store    `yaml:"store"`
	Graph    Graph    `yaml:"graph"`
	Avatar   Avatar   `yaml:"avatar"`
	Auth     Auth     `yaml:"auth"`
	AWS      AWS      `yaml:"aws"`
	Events   Events   `yaml:"events"`
	Metrics  Metrics  `yaml:"metrics"`
	Tracing  Tracing  `yaml:"tracing"`
	Logging  Logging  `yaml:"logging"`
	CORS     CORS     `yaml:"cors"`

	// LoadedFrom lists the sources applied, lowest priority first.
	LoadedFrom []string `yaml:"-"`
}

// Server holds HTTP server settings.
type Server struct {
	Host               string        `yaml:"host"`
	Port               int           `yaml:"port" validate:"min=1,max=65535"`
	ReadTimeout        time.Duration `yaml:"read_timeout" validate:"gt=0"`
	WriteTimeout       time.Duration `yaml:"write_timeout" validate:"gte=0"`
	IdleTimeout        time.Duration `yaml:"idle_timeout" validate:"gt=0"`
	ShutdownTimeout    time.Duration `yaml:"shutdown_timeout" validate:"gt=0"`
	RequestTimeout     time.Duration `yaml:"request_timeout" validate:"gt=0"`
	SessionIdleTimeout time.Duration `yaml:"session_idle_timeout" validate:"gt=0"`
}

// Address returns host:port.
func (s Server) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// Supabase holds the BaaS project settings.
type Supabase struct {
	URL            string `yaml:"url" validate:"omitempty,url"`
	ServiceRoleKey string `yaml:"service_role_key"`
	AnonKey        string `yaml:"anon_key"`
}

// Store selects the relationship and profile backend.
type Store struct {
	Driver     string        `yaml:"driver" validate:"required,oneof=supabase sqlite dynamodb memory"`
	SQLitePath string        `yaml:"sqlite_path"`
	TableName  string        `yaml:"table_name"`
	Breaker    bool          `yaml:"breaker"`
	Timeout    time.Duration `yaml:"timeout" validate:"gte=0"`
	// Seed is a fixture file loaded into the memory store at startup.
	Seed string `yaml:"seed"`
}

// Graph holds the loader limits and the layout constants. Both are re-read
// on every load so a reload applies to the next graph.
type Graph struct {
	Limits repository.Limits `yaml:"limits"`
	Layout layout.Params     `yaml:"layout"`
}

// Avatar holds the profile picture settings.
type Avatar struct {
	Bucket           string `yaml:"bucket" validate:"required"`
	MaxBytes         int64  `yaml:"max_bytes" validate:"gt=0"`
	PhoneEmailDomain string `yaml:"phone_email_domain" validate:"required,hostname"`
}

// Account converts the settings for the account service.
func (a Avatar) Account() account.Config {
	return account.Config{
		PhoneEmailDomain: a.PhoneEmailDomain,
		AvatarBucket:     a.Bucket,
		MaxAvatarBytes:   a.MaxBytes,
	}
}

// Auth selects how bearer tokens are verified.
type Auth struct {
	Mode      string        `yaml:"mode" validate:"required,oneof=jwt supabase"`
	JWTSecret string        `yaml:"jwt_secret"`
	Issuer    string        `yaml:"issuer"`
	Audience  []string      `yaml:"audience"`
	Leeway    time.Duration `yaml:"leeway" validate:"gte=0"`
}

// AWS holds the SDK settings. XRay instruments every SDK client; it only
// makes sense inside Lambda where a segment is already open.
type AWS struct {
	Region   string `yaml:"region"`
	Endpoint string `yaml:"endpoint" validate:"omitempty,url"`
	XRay     bool   `yaml:"xray"`
}

// Events configures account event publishing.
type Events struct {
	Provider  string `yaml:"provider" validate:"required,oneof=log eventbridge"`
	BusName   string `yaml:"bus_name"`
	Source    string `yaml:"source"`
	QueueSize int    `yaml:"queue_size" validate:"gt=0"`
}

// Metrics toggles the Prometheus endpoint. A CloudWatch namespace also
// publishes the domain metrics through PutMetricData.
type Metrics struct {
	Enabled             bool   `yaml:"enabled"`
	CloudWatchNamespace string `yaml:"cloudwatch_namespace"`
}

// Tracing configures OpenTelemetry export.
type Tracing struct {
	Enabled     bool    `yaml:"enabled"`
	ServiceName string  `yaml:"service_name"`
	Endpoint    string  `yaml:"endpoint"`
	Insecure    bool    `yaml:"insecure"`
	SampleRate  float64 `yaml:"sample_rate" validate:"gte=0,lte=1"`
}

// Logging configures zap.
type Logging struct {
	Level  string `yaml:"level" validate:"required,oneof=debug info warn error"`
	Format string `yaml:"format" validate:"required,oneof=json console"`
}

// CORS lists the allowed browser origins.
type CORS struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// IsDevelopment reports whether the service runs locally.
func (c *Config) IsDevelopment() bool {
	return c.Environment == Development
}

// IsProduction reports whether the service runs in production.
func (c *Config) IsProduction() bool {
	return c.Environment == Production
}

var validate = validator.New()

// Validate checks struct tags and the rules that span sections.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("invalid configuration: %s", strings.Join(msgs, "; "))
		}
		return err
	}

	if err := c.Graph.Limits.Validate(); err != nil {
		return fmt.Errorf("graph.limits: %w", err)
	}
	if err := c.Graph.Layout.Validate(); err != nil {
		return fmt.Errorf("graph.layout: %w", err)
	}

	switch c.Store.Driver {
	case DriverSupabase:
		if c.Supabase.URL == "" || c.Supabase.ServiceRoleKey == "" {
			return errors.New("store.driver supabase requires supabase.url and supabase.service_role_key")
		}
	case DriverSQLite:
		if c.Store.SQLitePath == "" {
			return errors.New("store.driver sqlite requires store.sqlite_path")
		}
	case DriverDynamoDB:
		if c.Store.TableName == "" {
			return errors.New("store.driver dynamodb requires store.table_name")
		}
	}

	switch c.Auth.Mode {
	case AuthModeJWT:
		if c.Auth.JWTSecret == "" {
			return errors.New("auth.mode jwt requires auth.jwt_secret")
		}
	case AuthModeSupabase:
		if c.Supabase.URL == "" || c.Supabase.ServiceRoleKey == "" {
			return errors.New("auth.mode supabase requires supabase.url and supabase.service_role_key")
		}
	}

	if c.Events.Provider == "eventbridge" && c.Events.BusName == "" {
		return errors.New("events.provider eventbridge requires events.bus_name")
	}
	if c.Tracing.Enabled && c.Tracing.Endpoint == "" {
		return errors.New("tracing.enabled requires tracing.endpoint")
	}
	if c.IsProduction() && c.Store.Driver == DriverMemory {
		return errors.New("store.driver memory is not allowed in production")
	}
	return nil
}
