// Package config provides configuration management for the egress service.
// It handles loading, validation, and management of configuration settings
// from files and environment variables, supporting development and
// production deployments.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Environment names the deployment environment a Config targets.
type Environment string

const (
	EnvDevelopment Environment = "development"
	EnvStaging     Environment = "staging"
	EnvInternal    Environment = "internal"
	EnvProduction  Environment = "production"
)

// Config represents the complete egress service configuration.
type Config struct {
	Environment Environment `json:"environment" yaml:"environment"`
	Version     string      `json:"version" yaml:"version"`
	StateDir    string      `json:"state_dir" yaml:"state_dir"`
	CacheDir    string      `json:"cache_dir" yaml:"cache_dir"`

	Server    ServerConfig    `json:"server" yaml:"server"`
	Engine    EngineConfig    `json:"engine" yaml:"engine"`
	GraphCache CacheConfig    `json:"graph_cache" yaml:"graph_cache"`
	Storage   StorageConfig   `json:"storage" yaml:"storage"`
	Database  DatabaseConfig  `json:"database" yaml:"database"`
	Security  SecurityConfig  `json:"security" yaml:"security"`
	Telemetry TelemetryConfig `json:"telemetry" yaml:"telemetry"`
	Features  FeatureFlags    `json:"features" yaml:"features"`
	TUI       TUIConfig       `json:"tui" yaml:"tui"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host         string        `json:"host" yaml:"host"`
	Port         int           `json:"port" yaml:"port"`
	ReadTimeout  time.Duration `json:"read_timeout" yaml:"read_timeout"`
	WriteTimeout time.Duration `json:"write_timeout" yaml:"write_timeout"`
	IdleTimeout  time.Duration `json:"idle_timeout" yaml:"idle_timeout"`
}

// EngineConfig contains rasterizer/graph-build defaults.
type EngineConfig struct {
	DefaultCellSize     float64 `json:"default_cell_size" yaml:"default_cell_size"`
	DefaultBufferRadius int     `json:"default_buffer_radius" yaml:"default_buffer_radius"`
	AllowDiagonal       bool    `json:"allow_diagonal" yaml:"allow_diagonal"`
	MinimizeCost        bool    `json:"minimize_cost" yaml:"minimize_cost"`
}

// CacheConfig sizes the supervisory graph cache.
type CacheConfig struct {
	MaxBytes int64         `json:"max_bytes" yaml:"max_bytes"`
	TTL      time.Duration `json:"ttl" yaml:"ttl"`
}

// StorageConfig selects and configures the run artifact BlobStore backend.
type StorageConfig struct {
	Backend     string            `json:"backend" yaml:"backend"` // local, s3, gcs, azure
	LocalPath   string            `json:"local_path" yaml:"local_path"`
	CloudBucket string            `json:"cloud_bucket" yaml:"cloud_bucket"`
	CloudRegion string            `json:"cloud_region" yaml:"cloud_region"`
	CloudPrefix string            `json:"cloud_prefix" yaml:"cloud_prefix"`
	Credentials map[string]string `json:"-" yaml:"-"` // sensitive, not serialized

	Data DataConfig `json:"data" yaml:"data"`
	S3   S3Config   `json:"s3,omitempty" yaml:"s3,omitempty"`
	Azure AzureConfig `json:"azure,omitempty" yaml:"azure,omitempty"`
}

// DataConfig defines the on-disk layout for run artifacts.
type DataConfig struct {
	BasePath  string `json:"base_path"`  // base directory for all egress data
	RunsDir   string `json:"runs_dir"`   // subdirectory for persisted run manifests/reports
	CacheDir  string `json:"cache_dir"`  // subdirectory for cache data
	LogsDir   string `json:"logs_dir"`   // subdirectory for log files
	TempDir   string `json:"temp_dir"`   // subdirectory for temporary files
}

// S3Config contains S3-specific configuration.
type S3Config struct {
	Region          string `json:"region"`
	Bucket          string `json:"bucket"`
	AccessKeyID     string `json:"-"`
	SecretAccessKey string `json:"-"`
	Endpoint        string `json:"endpoint,omitempty"`
	UseSSL          bool   `json:"use_ssl"`
}

// AzureConfig contains Azure Blob Storage configuration.
type AzureConfig struct {
	AccountName      string `json:"account_name"`
	AccountKey       string `json:"-"`
	ContainerName    string `json:"container_name"`
	SASToken         string `json:"-"`
	ConnectionString string `json:"-"`
}

// DatabaseConfig defines the run-history Postgres connection.
type DatabaseConfig struct {
	Host            string        `json:"host"`
	Port            int           `json:"port"`
	Database        string        `json:"database"`
	User            string        `json:"user"`
	Password        string        `json:"-"`
	DataSourceName  string        `json:"-"`
	SSLMode         string        `json:"ssl_mode"`
	MaxOpenConns    int           `json:"max_open_conns"`
	MaxIdleConns    int           `json:"max_idle_conns"`
	ConnMaxLifetime time.Duration `json:"conn_max_lifetime"`
	MigrationsPath  string        `json:"migrations_path"`
	AutoMigrate     bool          `json:"auto_migrate"`
}

// DSN builds the PostgreSQL connection string, preferring an explicit
// DataSourceName override over the discrete fields.
func (c DatabaseConfig) DSN() string {
	if c.DataSourceName != "" {
		return c.DataSourceName
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Database, c.SSLMode,
	)
}

// SecurityConfig contains auth, rate-limiting, TLS and CORS settings.
type SecurityConfig struct {
	JWTSecret          string        `json:"-"`
	JWTExpiry          time.Duration `json:"jwt_expiry"`
	SessionTimeout     time.Duration `json:"session_timeout"`
	APIRateLimit       int           `json:"api_rate_limit"`
	APIRateLimitWindow time.Duration `json:"api_rate_limit_window"`
	EnableAuth         bool          `json:"enable_auth"`
	EnableTLS          bool          `json:"enable_tls"`
	TLSCertPath        string        `json:"tls_cert_path"`
	TLSKeyPath         string        `json:"-"`
	AllowedOrigins     []string      `json:"allowed_origins"`
	BcryptCost         int           `json:"bcrypt_cost"`
	WebhookSecret      string        `json:"-"`
}

// TelemetryConfig controls metrics export.
type TelemetryConfig struct {
	Enabled    bool    `json:"enabled"`
	Endpoint   string  `json:"endpoint"`
	SampleRate float64 `json:"sample_rate"`
	Debug      bool    `json:"debug"`
}

// FeatureFlags controls feature availability.
type FeatureFlags struct {
	EnableWebhook bool `json:"enable_webhook" yaml:"enable_webhook"`
	EnableReports bool `json:"enable_reports" yaml:"enable_reports"`
	EnableWatch   bool `json:"enable_watch" yaml:"enable_watch"`
	BetaFeatures  bool `json:"beta_features" yaml:"beta_features"`
}

// TUIConfig contains terminal viewer (cmd/egress view) settings.
type TUIConfig struct {
	Enabled        bool   `json:"enabled"`
	Theme          string `json:"theme"` // dark, light, auto
	UpdateInterval string `json:"update_interval"`

	MaxRouteStepsDisplay int  `json:"max_route_steps_display"`
	RealTimeEnabled      bool `json:"real_time_enabled"`
	AnimationsEnabled    bool `json:"animations_enabled"`

	SpatialPrecision string `json:"spatial_precision"`
	GridScale        string `json:"grid_scale"`

	ShowCoordinates bool `json:"show_coordinates"`
	ShowConfidence  bool `json:"show_confidence"`
	CompactMode     bool `json:"compact_mode"`

	ColorScheme          string `json:"color_scheme"`
	ViewportSize         int    `json:"viewport_size"`
	RefreshRate          int    `json:"refresh_rate"`
	EnableMouse          bool   `json:"enable_mouse"`
	EnableBracketedPaste bool   `json:"enable_bracketed_paste"`
}

// Validate validates the TUI configuration.
func (c *TUIConfig) Validate() error {
	if _, err := time.ParseDuration(c.UpdateInterval); err != nil {
		return fmt.Errorf("invalid update_interval: %w", err)
	}
	if c.Theme != "dark" && c.Theme != "light" && c.Theme != "auto" {
		return fmt.Errorf("invalid theme: %s (must be dark, light, or auto)", c.Theme)
	}
	if c.MaxRouteStepsDisplay <= 0 {
		return fmt.Errorf("max_route_steps_display must be positive")
	}
	if c.ViewportSize <= 0 {
		c.ViewportSize = 20
	}
	if c.RefreshRate <= 0 {
		c.RefreshRate = 30
	}
	return nil
}

// ParseUpdateInterval parses the update interval string into a time.Duration.
func (c *TUIConfig) ParseUpdateInterval() (time.Duration, error) {
	return time.ParseDuration(c.UpdateInterval)
}

// Default returns a default configuration for local development.
func Default() *Config {
	cwd, _ := os.Getwd()
	base := filepath.Join(cwd, ".egress")

	return &Config{
		Environment: EnvDevelopment,
		Version:     "0.1.0",
		StateDir:    base,
		CacheDir:    filepath.Join(base, "cache"),

		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         8080,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  120 * time.Second,
		},

		Engine: EngineConfig{
			DefaultCellSize:     0.5,
			DefaultBufferRadius: 2,
			AllowDiagonal:       true,
			MinimizeCost:        true,
		},

		GraphCache: CacheConfig{
			MaxBytes: 64 << 20,
			TTL:      0, // no expiry; cleared explicitly on reload
		},

		Storage: StorageConfig{
			Backend:   "local",
			LocalPath: filepath.Join(base, "data"),
			Data: DataConfig{
				BasePath: base,
				RunsDir:  "runs",
				CacheDir: "cache",
				LogsDir:  "logs",
				TempDir:  "temp",
			},
		},

		Database: DatabaseConfig{
			Host:            "localhost",
			Port:            5432,
			Database:        "egress",
			User:            "egress",
			SSLMode:         "disable",
			MaxOpenConns:    10,
			MaxIdleConns:    2,
			ConnMaxLifetime: 5 * time.Minute,
			MigrationsPath:  "./internal/storage/history/migrations",
			AutoMigrate:     true,
		},

		Security: SecurityConfig{
			JWTExpiry:          24 * time.Hour,
			SessionTimeout:     30 * time.Minute,
			APIRateLimit:       100,
			APIRateLimitWindow: 1 * time.Minute,
			EnableAuth:         true,
			EnableTLS:          false,
			AllowedOrigins:     []string{"http://localhost:3000"},
			BcryptCost:         12,
		},

		Telemetry: TelemetryConfig{
			Enabled:    false,
			Endpoint:   "",
			SampleRate: 0.1,
		},

		Features: FeatureFlags{
			EnableWebhook: true,
			EnableReports: true,
			EnableWatch:   true,
			BetaFeatures:  false,
		},

		TUI: TUIConfig{
			Enabled:              true,
			Theme:                "dark",
			UpdateInterval:       "1s",
			MaxRouteStepsDisplay: 1000,
			RealTimeEnabled:      true,
			AnimationsEnabled:    true,
			SpatialPrecision:     "1cm",
			GridScale:            "1:20",
			ShowCoordinates:      true,
			ShowConfidence:       true,
			ColorScheme:          "default",
			ViewportSize:         20,
			RefreshRate:          30,
			EnableMouse:          true,
			EnableBracketedPaste: true,
		},
	}
}

// Load loads configuration from a file (if given) and environment,
// then validates it and ensures its directories exist.
func Load(configPath string) (*Config, error) {
	cfg := Default()

	if configPath != "" {
		if err := cfg.LoadFromFile(configPath); err != nil {
			fmt.Printf("Warning: failed to load config file, using defaults: %v\n", err)
		}
	}

	cfg.LoadFromEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("failed to create directories: %w", err)
	}
	return cfg, nil
}

// LoadFromFile loads configuration from a JSON or YAML file, expanding
// ${VAR} / ${VAR:-default} references against the environment first.
func (c *Config) LoadFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	data = []byte(substituteEnvVars(string(data)))

	if strings.HasSuffix(strings.ToLower(path), ".yml") || strings.HasSuffix(strings.ToLower(path), ".yaml") {
		if err := yaml.Unmarshal(data, c); err != nil {
			return fmt.Errorf("failed to parse YAML config file: %w", err)
		}
	} else {
		if err := json.Unmarshal(data, c); err != nil {
			return fmt.Errorf("failed to parse JSON config file: %w", err)
		}
	}
	return nil
}

// LoadFromEnv overlays EGRESS_-prefixed environment variables.
func (c *Config) LoadFromEnv() {
	if env := os.Getenv("EGRESS_ENVIRONMENT"); env != "" {
		c.Environment = Environment(env)
	}

	if host := os.Getenv("EGRESS_SERVER_HOST"); host != "" {
		c.Server.Host = host
	}
	if port := os.Getenv("EGRESS_SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			c.Server.Port = p
		}
	}

	if size := os.Getenv("EGRESS_ENGINE_CELL_SIZE"); size != "" {
		if v, err := strconv.ParseFloat(size, 64); err == nil {
			c.Engine.DefaultCellSize = v
		}
	}
	if radius := os.Getenv("EGRESS_ENGINE_BUFFER_RADIUS"); radius != "" {
		if v, err := strconv.Atoi(radius); err == nil {
			c.Engine.DefaultBufferRadius = v
		}
	}

	if backend := os.Getenv("EGRESS_STORAGE_BACKEND"); backend != "" {
		c.Storage.Backend = backend
	}
	if bucket := os.Getenv("EGRESS_STORAGE_BUCKET"); bucket != "" {
		c.Storage.CloudBucket = bucket
	}
	if region := os.Getenv("EGRESS_STORAGE_REGION"); region != "" {
		c.Storage.CloudRegion = region
	}
	if basePath := os.Getenv("EGRESS_DATA_PATH"); basePath != "" {
		c.Storage.Data.BasePath = basePath
	}

	c.Storage.Credentials = make(map[string]string)
	if key := os.Getenv("AWS_ACCESS_KEY_ID"); key != "" {
		c.Storage.S3.AccessKeyID = key
		c.Storage.Credentials["aws_access_key_id"] = key
	}
	if secret := os.Getenv("AWS_SECRET_ACCESS_KEY"); secret != "" {
		c.Storage.S3.SecretAccessKey = secret
		c.Storage.Credentials["aws_secret_access_key"] = secret
	}
	if region := os.Getenv("AWS_DEFAULT_REGION"); region != "" {
		c.Storage.S3.Region = region
	}
	if bucket := os.Getenv("AWS_S3_BUCKET"); bucket != "" {
		c.Storage.S3.Bucket = bucket
	}
	if account := os.Getenv("AZURE_STORAGE_ACCOUNT"); account != "" {
		c.Storage.Azure.AccountName = account
	}
	if key := os.Getenv("AZURE_STORAGE_KEY"); key != "" {
		c.Storage.Azure.AccountKey = key
	}
	if container := os.Getenv("AZURE_STORAGE_CONTAINER"); container != "" {
		c.Storage.Azure.ContainerName = container
	}

	if host := os.Getenv("EGRESS_DB_HOST"); host != "" {
		c.Database.Host = host
	}
	if port := os.Getenv("EGRESS_DB_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			c.Database.Port = p
		}
	}
	if name := os.Getenv("EGRESS_DB_NAME"); name != "" {
		c.Database.Database = name
	}
	if user := os.Getenv("EGRESS_DB_USER"); user != "" {
		c.Database.User = user
	}
	if password := os.Getenv("EGRESS_DB_PASSWORD"); password != "" {
		c.Database.Password = password
	}
	if sslMode := os.Getenv("EGRESS_DB_SSL_MODE"); sslMode != "" {
		c.Database.SSLMode = sslMode
	}
	c.Database.DataSourceName = c.buildPostgresDSN()

	if secret := os.Getenv("EGRESS_JWT_SECRET"); secret != "" {
		c.Security.JWTSecret = secret
	} else if c.Environment == EnvDevelopment {
		c.Security.JWTSecret = generateDevSecret()
	}
	if secret := os.Getenv("EGRESS_WEBHOOK_SECRET"); secret != "" {
		c.Security.WebhookSecret = secret
	}
	if auth := os.Getenv("EGRESS_ENABLE_AUTH"); auth == "false" {
		c.Security.EnableAuth = false
	}
	if tls := os.Getenv("EGRESS_ENABLE_TLS"); tls == "true" {
		c.Security.EnableTLS = true
	}
	if cert := os.Getenv("EGRESS_TLS_CERT"); cert != "" {
		c.Security.TLSCertPath = cert
	}
	if key := os.Getenv("EGRESS_TLS_KEY"); key != "" {
		c.Security.TLSKeyPath = key
	}
	if origins := os.Getenv("EGRESS_ALLOWED_ORIGINS"); origins != "" {
		c.Security.AllowedOrigins = strings.Split(origins, ",")
	}

	if enabled := os.Getenv("EGRESS_TELEMETRY"); enabled == "true" {
		c.Telemetry.Enabled = true
	}
}

// Validate checks that the configuration is internally consistent.
func (c *Config) Validate() error {
	switch c.Environment {
	case EnvDevelopment, EnvStaging, EnvInternal, EnvProduction:
	default:
		return fmt.Errorf("invalid environment: %s", c.Environment)
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Engine.DefaultCellSize <= 0 {
		return fmt.Errorf("engine.default_cell_size must be > 0, got %v", c.Engine.DefaultCellSize)
	}
	if c.Engine.DefaultBufferRadius < 0 {
		return fmt.Errorf("engine.default_buffer_radius must be >= 0, got %d", c.Engine.DefaultBufferRadius)
	}

	switch c.Storage.Backend {
	case "local", "s3", "gcs", "azure":
	default:
		return fmt.Errorf("invalid storage backend: %s", c.Storage.Backend)
	}
	if c.Storage.Backend == "local" {
		if c.Storage.LocalPath == "" {
			return fmt.Errorf("local path is required for local storage backend")
		}
	} else if c.Storage.CloudBucket == "" {
		return fmt.Errorf("cloud bucket required for %s backend", c.Storage.Backend)
	}

	if c.Environment != EnvDevelopment && c.Security.JWTSecret == "" {
		return fmt.Errorf("JWT secret required for non-development environments (set EGRESS_JWT_SECRET)")
	}
	if c.Security.EnableTLS {
		if c.Security.TLSCertPath == "" || c.Security.TLSKeyPath == "" {
			return fmt.Errorf("TLS certificate and key paths required when TLS is enabled")
		}
	}
	if c.Security.BcryptCost < 4 || c.Security.BcryptCost > 31 {
		return fmt.Errorf("bcrypt cost must be between 4 and 31, got %d", c.Security.BcryptCost)
	}

	if err := c.TUI.Validate(); err != nil {
		return fmt.Errorf("invalid TUI configuration: %w", err)
	}

	return nil
}

// EnsureDirectories creates the directories this configuration names.
func (c *Config) EnsureDirectories() error {
	dirs := []string{
		c.StateDir,
		c.CacheDir,
		c.Storage.LocalPath,
		c.Storage.Data.BasePath,
		filepath.Join(c.Storage.Data.BasePath, c.Storage.Data.RunsDir),
		filepath.Join(c.Storage.Data.BasePath, c.Storage.Data.CacheDir),
		filepath.Join(c.Storage.Data.BasePath, c.Storage.Data.LogsDir),
		filepath.Join(c.Storage.Data.BasePath, c.Storage.Data.TempDir),
	}
	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

// Save writes the configuration to path, omitting sensitive fields.
func (c *Config) Save(path string) error {
	cfgCopy := *c
	cfgCopy.Storage.Credentials = nil
	cfgCopy.Security.JWTSecret = ""
	cfgCopy.Security.TLSKeyPath = ""
	cfgCopy.Security.WebhookSecret = ""
	cfgCopy.Database.Password = ""
	cfgCopy.Database.DataSourceName = ""

	data, err := json.MarshalIndent(cfgCopy, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// GetConfigPath returns the default configuration file path.
func GetConfigPath() string {
	if path := os.Getenv("EGRESS_CONFIG"); path != "" {
		return path
	}
	for _, name := range []string{"egress.yml", "egress.yaml", "egress.json"} {
		if _, err := os.Stat(name); err == nil {
			return name
		}
	}
	return "egress.yaml"
}

// GetRunsPath returns the full path to the persisted-runs directory.
func (c *Config) GetRunsPath() string {
	return filepath.Join(c.Storage.Data.BasePath, c.Storage.Data.RunsDir)
}

// GetCachePath returns the full path to the cache directory.
func (c *Config) GetCachePath() string {
	return filepath.Join(c.Storage.Data.BasePath, c.Storage.Data.CacheDir)
}

// buildPostgresDSN builds a PostgreSQL connection string from Database.
func (c *Config) buildPostgresDSN() string {
	dsn := fmt.Sprintf("host=%s port=%d user=%s dbname=%s sslmode=%s",
		c.Database.Host, c.Database.Port, c.Database.User, c.Database.Database, c.Database.SSLMode)
	if c.Database.Password != "" {
		dsn = fmt.Sprintf("%s password=%s", dsn, c.Database.Password)
	}
	return dsn
}

// generateDevSecret produces a random-enough JWT secret for local runs.
func generateDevSecret() string {
	fmt.Printf("Warning: generating a random JWT secret for development. Set EGRESS_JWT_SECRET for other environments.\n")
	return fmt.Sprintf("dev-secret-%d", time.Now().UnixNano())
}

// substituteEnvVars replaces ${VAR} and ${VAR:-default} references.
func substituteEnvVars(content string) string {
	pattern := regexp.MustCompile(`\$\{([^}:]+)(?::-(.*?))?\}`)
	return pattern.ReplaceAllStringFunc(content, func(match string) string {
		start := strings.Index(match, "${") + 2
		end := strings.Index(match, "}")
		if end == -1 {
			return match
		}
		varPart := match[start:end]
		var varName, defaultValue string
		if colonIndex := strings.Index(varPart, ":-"); colonIndex != -1 {
			varName = varPart[:colonIndex]
			defaultValue = varPart[colonIndex+2:]
		} else {
			varName = varPart
		}
		if value := os.Getenv(varName); value != "" {
			return value
		}
		return defaultValue
	})
}
