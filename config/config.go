package config

import (
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/nijaru/swing-analysis/logger"
	"github.com/nijaru/swing-analysis/storage"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

const (
	Title          = "Golf Swing Analysis API"
	DefaultVersion = "0.1.0"
)

type Config struct {
	// Server settings
	Host         string        `json:"host" yaml:"host"`
	Port         string        `json:"port" yaml:"port"`
	ReadTimeout  time.Duration `json:"read_timeout" yaml:"read_timeout"`
	WriteTimeout time.Duration `json:"write_timeout" yaml:"write_timeout"`
	IdleTimeout  time.Duration `json:"idle_timeout" yaml:"idle_timeout"`
	Debug        bool          `json:"debug" yaml:"debug"`

	// Application version
	Version string `json:"version" yaml:"version"`

	Log logger.Config `json:"log" yaml:"log"`

	// Middleware settings
	Middleware MiddlewareConfig `json:"middleware" yaml:"middleware"`

	// CORS Configuration
	CORS CORSConfig `json:"cors" yaml:"cors"`

	// Rate Limiting
	RateLimit RateLimitConfig `json:"rate_limit" yaml:"rate_limit"`

	// Analysis history; disabled when Path is empty
	Database DatabaseConfig `json:"database" yaml:"database"`

	// Report archive; disabled unless bucket and keys are set
	Spaces storage.SpacesConfig `json:"spaces" yaml:"spaces"`

	Analysis AnalysisConfig `json:"analysis" yaml:"analysis"`

	// Request and shutdown timeouts
	RequestTimeout  time.Duration `json:"request_timeout" yaml:"request_timeout"`
	ShutdownTimeout time.Duration `json:"shutdown_timeout" yaml:"shutdown_timeout"`
}

type MiddlewareConfig struct {
	EnableRecover   bool `json:"enable_recover" yaml:"enable_recover"`
	EnableRequestID bool `json:"enable_request_id" yaml:"enable_request_id"`
	EnableLogger    bool `json:"enable_logger" yaml:"enable_logger"`
	EnableTimeout   bool `json:"enable_timeout" yaml:"enable_timeout"`
	EnableCORS      bool `json:"enable_cors" yaml:"enable_cors"`
	EnableRateLimit bool `json:"enable_rate_limit" yaml:"enable_rate_limit"`
	EnableMetrics   bool `json:"enable_metrics" yaml:"enable_metrics"`
}

type DatabaseConfig struct {
	Path               string        `json:"path" yaml:"path"`
	MaxConnections     int           `json:"max_connections" yaml:"max_connections"`
	MaxIdleConnections int           `json:"max_idle_connections" yaml:"max_idle_connections"`
	ConnMaxLifetime    time.Duration `json:"conn_max_lifetime" yaml:"conn_max_lifetime"`
}

func (d DatabaseConfig) Enabled() bool {
	return d.Path != ""
}

type CORSConfig struct {
	AllowedOrigins   []string `json:"allowed_origins" yaml:"allowed_origins"`
	AllowedMethods   []string `json:"allowed_methods" yaml:"allowed_methods"`
	AllowedHeaders   []string `json:"allowed_headers" yaml:"allowed_headers"`
	ExposedHeaders   []string `json:"exposed_headers" yaml:"exposed_headers"`
	AllowCredentials bool     `json:"allow_credentials" yaml:"allow_credentials"`
	MaxAge           int      `json:"max_age" yaml:"max_age"`
}

type RateLimitConfig struct {
	RequestsPerMinute int `json:"requests_per_minute" yaml:"requests_per_minute"`
	BurstSize         int `json:"burst_size" yaml:"burst_size"`
}

type AnalysisConfig struct {
	MaxBodyBytes     int64         `json:"max_body_bytes" yaml:"max_body_bytes"`
	ArchiveTimeout   time.Duration `json:"archive_timeout" yaml:"archive_timeout"`
	DefaultListLimit int           `json:"default_list_limit" yaml:"default_list_limit"`
	MaxListLimit     int           `json:"max_list_limit" yaml:"max_list_limit"`
}

// Default configurations
func defaultDevConfig() MiddlewareConfig {
	return MiddlewareConfig{
		EnableRecover:   true,
		EnableRequestID: true,
		EnableLogger:    true,
		EnableTimeout:   false, // Disabled for easier debugging
		EnableCORS:      true,
		EnableRateLimit: false,
		EnableMetrics:   true,
	}
}

func defaultProdConfig() MiddlewareConfig {
	return MiddlewareConfig{
		EnableRecover:   true,
		EnableRequestID: true,
		EnableLogger:    true,
		EnableTimeout:   true,
		EnableCORS:      true,
		EnableRateLimit: true,
		EnableMetrics:   true,
	}
}

// Default returns the configuration used when nothing is overridden.
func Default() *Config {
	cfg := &Config{
		Host:         "0.0.0.0",
		Port:         "8000",
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
		Version:      DefaultVersion,
		Log:          logger.DefaultConfig(),
		Middleware:   defaultDevConfig(),
		CORS: CORSConfig{
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders: []string{"Content-Type", "X-Request-ID"},
			ExposedHeaders: []string{"X-Request-ID", "X-Analysis-ID", "X-API-Version"},
			MaxAge:         86400,
		},
		RateLimit: RateLimitConfig{
			RequestsPerMinute: 60,
			BurstSize:         10,
		},
		Database: DatabaseConfig{
			MaxConnections:     10,
			MaxIdleConnections: 5,
			ConnMaxLifetime:    time.Hour,
		},
		Spaces: storage.SpacesConfig{
			Region: "us-east-1",
			Prefix: "analyses",
		},
		Analysis: AnalysisConfig{
			MaxBodyBytes:     1 << 20,
			ArchiveTimeout:   10 * time.Second,
			DefaultListLimit: 20,
			MaxListLimit:     100,
		},
		RequestTimeout:  10 * time.Second,
		ShutdownTimeout: 30 * time.Second,
	}

	if os.Getenv("ENV") == "production" {
		cfg.Middleware = defaultProdConfig()
	}

	return cfg
}

// Load builds the configuration from defaults, then the YAML file at path
// (or CONFIG_FILE), then environment variables. A .env file in the working
// directory is loaded first if present.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(getEnv("ENV_FILE", ".env")); err != nil && !os.IsNotExist(err) {
		return nil, errors.Wrap(err, "failed to load env file")
	}

	cfg := Default()

	if path == "" {
		path = getEnv("CONFIG_FILE", "")
	}
	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrapf(err, "failed to read config file %s", path)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return errors.Wrapf(err, "failed to parse config file %s", path)
	}
	return nil
}

func (c *Config) applyEnv() {
	// Server settings
	c.Host = getEnv("HOST", c.Host)
	c.Port = getEnv("PORT", c.Port)
	c.ReadTimeout = getEnvAsDuration("READ_TIMEOUT", c.ReadTimeout)
	c.WriteTimeout = getEnvAsDuration("WRITE_TIMEOUT", c.WriteTimeout)
	c.IdleTimeout = getEnvAsDuration("IDLE_TIMEOUT", c.IdleTimeout)
	c.Debug = getEnvAsBool("DEBUG", c.Debug)
	c.Version = getEnv("VERSION", c.Version)

	// Logging
	c.Log.Level = getEnv("LOG_LEVEL", c.Log.Level)
	c.Log.Format = getEnv("LOG_FORMAT", c.Log.Format)
	c.Log.Dir = getEnv("LOG_DIR", c.Log.Dir)
	if c.Debug {
		c.Log.Level = "debug"
		c.Log.Format = "text"
	}

	// Middleware toggles
	c.Middleware.EnableTimeout = getEnvAsBool("ENABLE_TIMEOUT", c.Middleware.EnableTimeout)
	c.Middleware.EnableRateLimit = getEnvAsBool("RATE_LIMIT_ENABLED", c.Middleware.EnableRateLimit)
	c.Middleware.EnableCORS = getEnvAsBool("CORS_ENABLED", c.Middleware.EnableCORS)
	c.Middleware.EnableMetrics = getEnvAsBool("METRICS_ENABLED", c.Middleware.EnableMetrics)

	// CORS Configuration
	c.CORS.AllowedOrigins = getEnvAsStringSlice("CORS_ALLOWED_ORIGINS", c.CORS.AllowedOrigins)
	c.CORS.AllowedMethods = getEnvAsStringSlice("CORS_ALLOWED_METHODS", c.CORS.AllowedMethods)
	c.CORS.AllowedHeaders = getEnvAsStringSlice("CORS_ALLOWED_HEADERS", c.CORS.AllowedHeaders)
	c.CORS.ExposedHeaders = getEnvAsStringSlice("CORS_EXPOSED_HEADERS", c.CORS.ExposedHeaders)
	c.CORS.AllowCredentials = getEnvAsBool("CORS_ALLOW_CREDENTIALS", c.CORS.AllowCredentials)
	c.CORS.MaxAge = getEnvAsInt("CORS_MAX_AGE", c.CORS.MaxAge)

	// Rate Limiting
	c.RateLimit.RequestsPerMinute = getEnvAsInt("RATE_LIMIT_RPM", c.RateLimit.RequestsPerMinute)
	c.RateLimit.BurstSize = getEnvAsInt("RATE_LIMIT_BURST", c.RateLimit.BurstSize)

	// Database
	c.Database.Path = getEnv("DB_PATH", c.Database.Path)
	c.Database.MaxConnections = getEnvAsInt("DB_MAX_CONNECTIONS", c.Database.MaxConnections)

	// Spaces
	c.Spaces.AccessKey = getEnv("SPACES_ACCESS_KEY", c.Spaces.AccessKey)
	c.Spaces.SecretKey = getEnv("SPACES_SECRET_KEY", c.Spaces.SecretKey)
	c.Spaces.Region = getEnv("SPACES_REGION", c.Spaces.Region)
	c.Spaces.Endpoint = getEnv("SPACES_ENDPOINT", c.Spaces.Endpoint)
	c.Spaces.Bucket = getEnv("SPACES_BUCKET", c.Spaces.Bucket)
	c.Spaces.Prefix = getEnv("SPACES_PREFIX", c.Spaces.Prefix)

	// Analysis
	c.Analysis.MaxBodyBytes = getEnvAsInt64("MAX_BODY_BYTES", c.Analysis.MaxBodyBytes)
	c.Analysis.ArchiveTimeout = getEnvAsDuration("ARCHIVE_TIMEOUT", c.Analysis.ArchiveTimeout)
	c.Analysis.DefaultListLimit = getEnvAsInt("HISTORY_DEFAULT_LIMIT", c.Analysis.DefaultListLimit)
	c.Analysis.MaxListLimit = getEnvAsInt("HISTORY_MAX_LIMIT", c.Analysis.MaxListLimit)

	c.RequestTimeout = getEnvAsDuration("REQUEST_TIMEOUT", c.RequestTimeout)
	c.ShutdownTimeout = getEnvAsDuration("SHUTDOWN_TIMEOUT", c.ShutdownTimeout)
}

// Addr is the listen address for the HTTP server.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Host, c.Port)
}

func (c *Config) Validate() error {
	if c.Port == "" {
		return errors.New("server port is required")
	}
	if port, err := strconv.Atoi(c.Port); err != nil || port < 0 || port > 65535 {
		return errors.Errorf("invalid server port %q", c.Port)
	}

	if err := validateTimeouts(c); err != nil {
		return err
	}

	if _, err := logrus.ParseLevel(c.Log.Level); err != nil {
		return errors.Wrap(err, "invalid log level")
	}

	if c.Middleware.EnableRateLimit {
		if c.RateLimit.RequestsPerMinute <= 0 {
			return errors.New("rate limit must be greater than 0")
		}
		if c.RateLimit.BurstSize <= 0 {
			return errors.New("rate limit burst must be greater than 0")
		}
	}

	if c.Analysis.MaxBodyBytes <= 0 {
		return errors.New("max body size must be greater than 0")
	}
	if c.Analysis.DefaultListLimit <= 0 || c.Analysis.MaxListLimit < c.Analysis.DefaultListLimit {
		return errors.New("history limits must satisfy 0 < default <= max")
	}

	return nil
}

func validateTimeouts(c *Config) error {
	timeouts := []struct {
		value time.Duration
		name  string
	}{
		{c.ReadTimeout, "read timeout"},
		{c.WriteTimeout, "write timeout"},
		{c.IdleTimeout, "idle timeout"},
		{c.RequestTimeout, "request timeout"},
		{c.ShutdownTimeout, "shutdown timeout"},
		{c.Analysis.ArchiveTimeout, "archive timeout"},
	}

	for _, t := range timeouts {
		if t.value <= 0 {
			return errors.Errorf("%s must be greater than 0", t.name)
		}
	}

	// The write deadline would otherwise cut the connection before the
	// timeout middleware can send its 503.
	if c.Middleware.EnableTimeout && c.RequestTimeout >= c.WriteTimeout {
		return errors.Errorf("request timeout %s must be shorter than write timeout %s",
			c.RequestTimeout, c.WriteTimeout)
	}

	return nil
}

// Helper functions for reading environment variables
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
		warnInvalid(key, value, defaultValue, "Invalid integer, using default")
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
		}
		warnInvalid(key, value, defaultValue, "Invalid integer, using default")
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
		warnInvalid(key, value, defaultValue, "Invalid boolean, using default")
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
		warnInvalid(key, value, defaultValue, "Invalid duration, using default")
	}
	return defaultValue
}

func getEnvAsStringSlice(key string, defaultValue []string) []string {
	if value, exists := os.LookupEnv(key); exists {
		if value = strings.TrimSpace(value); value != "" {
			parts := strings.Split(value, ",")
			for i := range parts {
				parts[i] = strings.TrimSpace(parts[i])
			}
			return parts
		}
	}
	return defaultValue
}

func warnInvalid(key, value string, defaultValue any, msg string) {
	logrus.WithFields(logrus.Fields{
		"key":          key,
		"value":        value,
		"defaultValue": defaultValue,
	}).Warn(msg)
}
