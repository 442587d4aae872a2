package config

import (
	"time"
)

// Store backends.
const (
	StoreFile   = "file"
	StoreSQLite = "sqlite"
	StoreS3     = "s3"
	StoreMemory = "memory"
)

// Config is the complete kubedash configuration.
type Config struct {
	Server       ServerConfig       `yaml:"server"`
	Store        StoreConfig        `yaml:"store"`
	Kubernetes   KubernetesConfig   `yaml:"kubernetes"`
	SSH          SSHConfig          `yaml:"ssh"`
	Provisioning ProvisioningConfig `yaml:"provisioning"`
	Rollout      RolloutConfig      `yaml:"rollout"`
	Log          LogConfig          `yaml:"log"`
	Seed         SeedConfig         `yaml:"seed"`
}

// ServerConfig configures the REST listener.
type ServerConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	CORSOrigins     []string      `yaml:"cors_origins"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// StoreConfig selects and configures the credential store backend.
type StoreConfig struct {
	Backend    string   `yaml:"backend"`
	Path       string   `yaml:"path"`
	SQLitePath string   `yaml:"sqlite_path"`
	S3         S3Config `yaml:"s3"`
}

// S3Config configures the S3 backend.
type S3Config struct {
	Endpoint     string `yaml:"endpoint"`
	Region       string `yaml:"region"`
	Bucket       string `yaml:"bucket"`
	Key          string `yaml:"key"`
	AccessKey    string `yaml:"access_key"`
	SecretKey    string `yaml:"secret_key"`
	UsePathStyle bool   `yaml:"use_path_style"`
}

// KubernetesConfig configures API server access.
type KubernetesConfig struct {
	// VerifySSL is the TLS policy for credentials submitted without one.
	VerifySSL         bool          `yaml:"verify_ssl"`
	RequestTimeout    time.Duration `yaml:"request_timeout"`
	ValidationTimeout time.Duration `yaml:"validation_timeout"`
}

// SSHConfig configures bootstrap host connections.
type SSHConfig struct {
	DialTimeout time.Duration `yaml:"dial_timeout"`
	MaxRetries  int           `yaml:"max_retries"`
	RetryDelay  time.Duration `yaml:"retry_delay"`
}

// ProvisioningConfig configures the objects created on the cluster.
type ProvisioningConfig struct {
	ServiceAccount string        `yaml:"service_account"`
	Namespace      string        `yaml:"namespace"`
	BindingName    string        `yaml:"binding_name"`
	ClusterRole    string        `yaml:"cluster_role"`
	TokenDuration  time.Duration `yaml:"token_duration"`
}

// RolloutConfig configures rollout polling.
type RolloutConfig struct {
	DefaultDeadline time.Duration `yaml:"default_deadline"`
	PollInterval    time.Duration `yaml:"poll_interval"`
}

// LogConfig configures logging. File enables a rotated log file in addition
// to stderr.
type LogConfig struct {
	Debug      bool   `yaml:"debug"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

// SeedConfig describes a cluster stored under "default" at startup when the
// store has no such entry.
type SeedConfig struct {
	APIURL string `yaml:"api_url"`
	Token  string `yaml:"token"`
}

// Address returns host:port for the listener.
func (s ServerConfig) Address() string {
	return joinHostPort(s.Host, s.Port)
}
