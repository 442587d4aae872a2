package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var envVars = []string{
	"KUBEDASH_HOST", "HOST", "KUBEDASH_PORT", "PORT", "KUBEDASH_CORS_ORIGINS",
	"KUBEDASH_STORE", "KUBEDASH_STORE_PATH", "KUBEDASH_SQLITE_PATH",
	"KUBEDASH_S3_ENDPOINT", "KUBEDASH_S3_REGION", "KUBEDASH_S3_BUCKET", "KUBEDASH_S3_KEY",
	"KUBEDASH_S3_ACCESS_KEY", "KUBEDASH_S3_SECRET_KEY", "KUBEDASH_S3_PATH_STYLE",
	"KUBEDASH_VERIFY_SSL", "VERIFY_SSL", "KUBEDASH_REQUEST_TIMEOUT", "KUBEDASH_VALIDATION_TIMEOUT",
	"KUBEDASH_SSH_DIAL_TIMEOUT", "KUBEDASH_SSH_MAX_RETRIES", "KUBEDASH_SSH_RETRY_DELAY",
	"KUBEDASH_TOKEN_DURATION", "KUBEDASH_ROLLOUT_DEADLINE", "KUBEDASH_ROLLOUT_INTERVAL",
	"KUBEDASH_DEBUG", "DEBUG", "KUBEDASH_LOG_FILE", "K8S_API", "K8S_TOKEN",
}

// clearEnv blanks every variable Load reads for the duration of the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, name := range envVars {
		t.Setenv(name, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:8000", cfg.Server.Address())
	assert.Equal(t, []string{"*"}, cfg.Server.CORSOrigins)
	assert.Equal(t, StoreFile, cfg.Store.Backend)
	assert.Equal(t, filepath.Join(StateDir(), "clusters.yaml"), cfg.Store.Path)
	assert.False(t, cfg.Kubernetes.VerifySSL)
	assert.Equal(t, 10*time.Second, cfg.Kubernetes.ValidationTimeout)
	assert.Equal(t, 30*time.Second, cfg.SSH.DialTimeout)
	assert.Zero(t, cfg.SSH.MaxRetries)
	assert.Equal(t, 30*time.Second, cfg.Rollout.DefaultDeadline)
	assert.Equal(t, time.Second, cfg.Rollout.PollInterval)
	assert.Zero(t, cfg.Provisioning.TokenDuration)
	assert.Equal(t, cfg, Default())
}

func TestLoad_File(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "kubedash.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  host: 0.0.0.0
  port: 9090
  cors_origins: [https://dash.example.com]
store:
  backend: sqlite
  sqlite_path: /var/lib/kubedash/kubedash.db
kubernetes:
  verify_ssl: true
  validation_timeout: 5s
provisioning:
  binding_name: kubedash
  token_duration: 24h
rollout:
  default_deadline: 2m
  poll_interval: 500ms
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:9090", cfg.Server.Address())
	assert.Equal(t, []string{"https://dash.example.com"}, cfg.Server.CORSOrigins)
	assert.Equal(t, StoreSQLite, cfg.Store.Backend)
	assert.Equal(t, "/var/lib/kubedash/kubedash.db", cfg.Store.SQLitePath)
	assert.True(t, cfg.Kubernetes.VerifySSL)
	assert.Equal(t, 5*time.Second, cfg.Kubernetes.ValidationTimeout)
	assert.Equal(t, "kubedash", cfg.Provisioning.BindingName)
	assert.Equal(t, 24*time.Hour, cfg.Provisioning.TokenDuration)
	assert.Equal(t, 2*time.Minute, cfg.Rollout.DefaultDeadline)
	assert.Equal(t, 500*time.Millisecond, cfg.Rollout.PollInterval)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "kubedash.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: 9090\nkubernetes:\n  verify_ssl: true\n"), 0o600))

	t.Setenv("PORT", "8123")
	t.Setenv("VERIFY_SSL", "false")
	t.Setenv("KUBEDASH_CORS_ORIGINS", "https://a.example.com, https://b.example.com")
	t.Setenv("KUBEDASH_STORE", "s3")
	t.Setenv("KUBEDASH_S3_BUCKET", "kubedash-state")
	t.Setenv("KUBEDASH_S3_PATH_STYLE", "yes")
	t.Setenv("KUBEDASH_SSH_MAX_RETRIES", "2")
	t.Setenv("KUBEDASH_ROLLOUT_DEADLINE", "45s")
	t.Setenv("DEBUG", "true")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 8123, cfg.Server.Port)
	assert.False(t, cfg.Kubernetes.VerifySSL)
	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.Server.CORSOrigins)
	assert.Equal(t, StoreS3, cfg.Store.Backend)
	assert.Equal(t, "kubedash-state", cfg.Store.S3.Bucket)
	assert.True(t, cfg.Store.S3.UsePathStyle)
	assert.Equal(t, 2, cfg.SSH.MaxRetries)
	assert.Equal(t, 45*time.Second, cfg.Rollout.DefaultDeadline)
	assert.True(t, cfg.Log.Debug)
}

func TestLoad_PrefixedVariableWins(t *testing.T) {
	clearEnv(t)
	t.Setenv("KUBEDASH_PORT", "7000")
	t.Setenv("PORT", "8000")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 7000, cfg.Server.Port)
}

func TestLoad_InvalidEnvIsIgnored(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "eighty")
	t.Setenv("KUBEDASH_ROLLOUT_INTERVAL", "soon")
	t.Setenv("VERIFY_SSL", "maybe")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, DefaultPort, cfg.Server.Port)
	assert.Equal(t, DefaultPollInterval, cfg.Rollout.PollInterval)
	assert.False(t, cfg.Kubernetes.VerifySSL)
}

func TestLoad_Errors(t *testing.T) {
	clearEnv(t)

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not exist")

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("server: [port"), 0o600))
	_, err = Load(bad)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to unmarshal yaml")
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"port out of range", func(c *Config) { c.Server.Port = 70000 }, "server.port"},
		{"unknown backend", func(c *Config) { c.Store.Backend = "etcd" }, `store.backend "etcd"`},
		{"s3 without bucket", func(c *Config) { c.Store.Backend = StoreS3 }, "store.s3.bucket"},
		{"negative retries", func(c *Config) { c.SSH.MaxRetries = -1 }, "ssh.max_retries"},
		{"zero interval", func(c *Config) { c.Rollout.PollInterval = 0 }, "poll_interval"},
		{"seed token without url", func(c *Config) { c.Seed.Token = "t" }, "seed.api_url is required"},
		{"seed url invalid", func(c *Config) { c.Seed.Token = "t"; c.Seed.APIURL = "10.0.0.5" }, "not a valid URL"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}

	assert.NoError(t, Default().Validate())
}

func TestParseBool(t *testing.T) {
	t.Setenv("KUBEDASH_TEST_BOOL", "")

	assert.True(t, parseBool([]string{"KUBEDASH_TEST_BOOL"}, true))

	for val, want := range map[string]bool{"true": true, "TRUE": true, "1": true, "yes": true, "off": false, "false": false, "0": false} {
		t.Setenv("KUBEDASH_TEST_BOOL", val)
		assert.Equal(t, want, parseBool([]string{"KUBEDASH_TEST_BOOL"}, !want), val)
	}
}
