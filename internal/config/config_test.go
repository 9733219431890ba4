package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	config := Default()

	assert.Equal(t, EnvDevelopment, config.Environment)
	assert.Equal(t, "0.1.0", config.Version)
	assert.NotEmpty(t, config.StateDir)
	assert.NotEmpty(t, config.CacheDir)

	assert.Equal(t, 8080, config.Server.Port)
	assert.Equal(t, 0.5, config.Engine.DefaultCellSize)
	assert.Equal(t, 2, config.Engine.DefaultBufferRadius)
	assert.True(t, config.Engine.AllowDiagonal)

	assert.Equal(t, "local", config.Storage.Backend)
	assert.NotEmpty(t, config.Storage.LocalPath)

	assert.Equal(t, "egress", config.Database.Database)
	assert.Equal(t, "disable", config.Database.SSLMode)

	assert.True(t, config.Security.EnableAuth)
	assert.False(t, config.Security.EnableTLS)

	assert.False(t, config.Telemetry.Enabled)
	assert.True(t, config.Features.EnableWebhook)
	assert.True(t, config.TUI.Enabled)
}

func TestLoadFromFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "test-config.json")

	testConfig := &Config{
		Environment: EnvStaging,
		Version:     "1.0.0",
		StateDir:    "/test/state",
		CacheDir:    "/test/cache",
		Server: ServerConfig{
			Host: "127.0.0.1",
			Port: 9090,
		},
		Storage: StorageConfig{
			Backend:     "s3",
			CloudBucket: "test-bucket",
			CloudRegion: "us-east-1",
		},
		Security: SecurityConfig{
			JWTExpiry:      time.Hour,
			AllowedOrigins: []string{"https://egress-staging.internal"},
			BcryptCost:     10,
		},
		Features: FeatureFlags{
			EnableWebhook: true,
			BetaFeatures:  true,
		},
	}

	data, err := json.Marshal(testConfig)
	require.NoError(t, err)
	err = os.WriteFile(configPath, data, 0644)
	require.NoError(t, err)

	config := Default()
	err = config.LoadFromFile(configPath)
	require.NoError(t, err)

	assert.Equal(t, EnvStaging, config.Environment)
	assert.Equal(t, "1.0.0", config.Version)
	assert.Equal(t, "/test/state", config.StateDir)
	assert.Equal(t, "127.0.0.1", config.Server.Host)
	assert.Equal(t, 9090, config.Server.Port)
	// JWTSecret is not serialized (json:"-" tag) so it won't round-trip
	assert.Equal(t, "", config.Security.JWTSecret)
	assert.Equal(t, "s3", config.Storage.Backend)
	assert.Equal(t, "test-bucket", config.Storage.CloudBucket)
	assert.True(t, config.Features.EnableWebhook)
	assert.True(t, config.Features.BetaFeatures)
}

func TestLoadFromFileExpandsEnvVars(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "test-config.yaml")

	os.Setenv("TEST_EGRESS_DB_HOST", "db.internal")
	defer os.Unsetenv("TEST_EGRESS_DB_HOST")

	content := "environment: staging\ndatabase:\n  host: ${TEST_EGRESS_DB_HOST}\n  port: 5432\n  database: ${TEST_EGRESS_DB_NAME:-egress}\n"
	require.NoError(t, os.WriteFile(configPath, []byte(content), 0644))

	config := Default()
	require.NoError(t, config.LoadFromFile(configPath))

	assert.Equal(t, "db.internal", config.Database.Host)
	assert.Equal(t, "egress", config.Database.Database)
}

func TestLoadFromEnv(t *testing.T) {
	os.Setenv("EGRESS_ENVIRONMENT", "staging")
	os.Setenv("EGRESS_SERVER_HOST", "127.0.0.1")
	os.Setenv("EGRESS_SERVER_PORT", "9999")
	os.Setenv("EGRESS_ENGINE_CELL_SIZE", "0.25")
	os.Setenv("EGRESS_ENGINE_BUFFER_RADIUS", "4")
	os.Setenv("EGRESS_STORAGE_BACKEND", "gcs")
	os.Setenv("EGRESS_STORAGE_BUCKET", "env-bucket")
	os.Setenv("EGRESS_STORAGE_REGION", "us-central1")
	os.Setenv("EGRESS_DB_HOST", "env-db-host")
	os.Setenv("EGRESS_JWT_SECRET", "env-secret")
	os.Setenv("EGRESS_TELEMETRY", "true")

	defer func() {
		os.Unsetenv("EGRESS_ENVIRONMENT")
		os.Unsetenv("EGRESS_SERVER_HOST")
		os.Unsetenv("EGRESS_SERVER_PORT")
		os.Unsetenv("EGRESS_ENGINE_CELL_SIZE")
		os.Unsetenv("EGRESS_ENGINE_BUFFER_RADIUS")
		os.Unsetenv("EGRESS_STORAGE_BACKEND")
		os.Unsetenv("EGRESS_STORAGE_BUCKET")
		os.Unsetenv("EGRESS_STORAGE_REGION")
		os.Unsetenv("EGRESS_DB_HOST")
		os.Unsetenv("EGRESS_JWT_SECRET")
		os.Unsetenv("EGRESS_TELEMETRY")
	}()

	config := Default()
	config.LoadFromEnv()

	assert.Equal(t, Environment("staging"), config.Environment)
	assert.Equal(t, "127.0.0.1", config.Server.Host)
	assert.Equal(t, 9999, config.Server.Port)
	assert.Equal(t, 0.25, config.Engine.DefaultCellSize)
	assert.Equal(t, 4, config.Engine.DefaultBufferRadius)
	assert.Equal(t, "gcs", config.Storage.Backend)
	assert.Equal(t, "env-bucket", config.Storage.CloudBucket)
	assert.Equal(t, "us-central1", config.Storage.CloudRegion)
	assert.Equal(t, "env-db-host", config.Database.Host)
	assert.Equal(t, "env-secret", config.Security.JWTSecret)
	assert.True(t, config.Telemetry.Enabled)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "valid default", mutate: func(c *Config) {}, wantErr: false},
		{name: "invalid environment", mutate: func(c *Config) { c.Environment = "nonsense" }, wantErr: true},
		{name: "invalid port", mutate: func(c *Config) { c.Server.Port = 0 }, wantErr: true},
		{name: "invalid cell size", mutate: func(c *Config) { c.Engine.DefaultCellSize = 0 }, wantErr: true},
		{name: "negative buffer radius", mutate: func(c *Config) { c.Engine.DefaultBufferRadius = -1 }, wantErr: true},
		{name: "invalid storage backend", mutate: func(c *Config) { c.Storage.Backend = "ftp" }, wantErr: true},
		{name: "s3 backend missing bucket", mutate: func(c *Config) {
			c.Storage.Backend = "s3"
			c.Storage.CloudBucket = ""
		}, wantErr: true},
		{name: "production without jwt secret", mutate: func(c *Config) {
			c.Environment = EnvProduction
			c.Security.JWTSecret = ""
		}, wantErr: true},
		{name: "tls enabled without cert", mutate: func(c *Config) {
			c.Security.EnableTLS = true
			c.Security.TLSCertPath = ""
		}, wantErr: true},
		{name: "bad bcrypt cost", mutate: func(c *Config) { c.Security.BcryptCost = 2 }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := Default()
			config.Security.JWTSecret = "set-for-default-case"
			tt.mutate(config)
			err := config.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestEnsureDirectories(t *testing.T) {
	tmpDir := t.TempDir()
	config := Default()
	config.StateDir = filepath.Join(tmpDir, "state")
	config.CacheDir = filepath.Join(tmpDir, "cache")
	config.Storage.LocalPath = filepath.Join(tmpDir, "data")
	config.Storage.Data.BasePath = filepath.Join(tmpDir, "data")

	require.NoError(t, config.EnsureDirectories())

	for _, dir := range []string{config.StateDir, config.CacheDir, config.Storage.LocalPath} {
		info, err := os.Stat(dir)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	}
}

func TestSaveOmitsSensitiveFields(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "saved.json")

	config := Default()
	config.Security.JWTSecret = "super-secret"
	config.Database.Password = "db-secret"

	require.NoError(t, config.Save(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var saved Config
	require.NoError(t, json.Unmarshal(data, &saved))

	assert.Empty(t, saved.Security.JWTSecret)
	assert.Empty(t, saved.Database.Password)
}

func TestGetRunsAndCachePath(t *testing.T) {
	config := Default()
	config.Storage.Data.BasePath = "/srv/egress"
	config.Storage.Data.RunsDir = "runs"
	config.Storage.Data.CacheDir = "cache"

	assert.Equal(t, filepath.Join("/srv/egress", "runs"), config.GetRunsPath())
	assert.Equal(t, filepath.Join("/srv/egress", "cache"), config.GetCachePath())
}

func TestGetConfigPath(t *testing.T) {
	os.Setenv("EGRESS_CONFIG", "/explicit/path.yaml")
	defer os.Unsetenv("EGRESS_CONFIG")

	assert.Equal(t, "/explicit/path.yaml", GetConfigPath())
}

func TestTUIConfigValidate(t *testing.T) {
	tui := TUIConfig{
		Theme:                "dark",
		UpdateInterval:       "1s",
		MaxRouteStepsDisplay: 100,
	}
	require.NoError(t, tui.Validate())

	bad := tui
	bad.Theme = "neon"
	assert.Error(t, bad.Validate())

	bad = tui
	bad.UpdateInterval = "not-a-duration"
	assert.Error(t, bad.Validate())

	bad = tui
	bad.MaxRouteStepsDisplay = 0
	assert.Error(t, bad.Validate())
}
