package config

import (
	"net"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// Default values.
const (
	DefaultHost              = "127.0.0.1"
	DefaultPort              = 8000
	DefaultReadTimeout       = 30 * time.Second
	DefaultShutdownTimeout   = 15 * time.Second
	DefaultRequestTimeout    = 10 * time.Second
	DefaultValidationTimeout = 10 * time.Second
	DefaultSSHDialTimeout    = 30 * time.Second
	DefaultSSHRetryDelay     = 2 * time.Second
	DefaultRolloutDeadline   = 30 * time.Second
	DefaultPollInterval      = time.Second
	DefaultS3Region          = "us-east-1"
	DefaultLogMaxSizeMB      = 50
	DefaultLogMaxBackups     = 3
	DefaultLogMaxAgeDays     = 28

	stateDirName = ".kubedash"
)

// Default returns a Config with every default applied.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// StateDir returns the directory for local state files.
func StateDir() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return stateDirName
	}
	return filepath.Join(home, stateDirName)
}

func (c *Config) applyDefaults() {
	if c.Server.Host == "" {
		c.Server.Host = DefaultHost
	}
	if c.Server.Port == 0 {
		c.Server.Port = DefaultPort
	}
	if len(c.Server.CORSOrigins) == 0 {
		c.Server.CORSOrigins = []string{"*"}
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = DefaultReadTimeout
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = DefaultShutdownTimeout
	}

	if c.Store.Backend == "" {
		c.Store.Backend = StoreFile
	}
	if c.Store.Path == "" {
		c.Store.Path = filepath.Join(StateDir(), "clusters.yaml")
	}
	if c.Store.SQLitePath == "" {
		c.Store.SQLitePath = filepath.Join(StateDir(), "kubedash.db")
	}
	if c.Store.S3.Region == "" {
		c.Store.S3.Region = DefaultS3Region
	}

	if c.Kubernetes.RequestTimeout == 0 {
		c.Kubernetes.RequestTimeout = DefaultRequestTimeout
	}
	if c.Kubernetes.ValidationTimeout == 0 {
		c.Kubernetes.ValidationTimeout = DefaultValidationTimeout
	}

	if c.SSH.DialTimeout == 0 {
		c.SSH.DialTimeout = DefaultSSHDialTimeout
	}
	if c.SSH.RetryDelay == 0 {
		c.SSH.RetryDelay = DefaultSSHRetryDelay
	}

	if c.Rollout.DefaultDeadline == 0 {
		c.Rollout.DefaultDeadline = DefaultRolloutDeadline
	}
	if c.Rollout.PollInterval == 0 {
		c.Rollout.PollInterval = DefaultPollInterval
	}

	if c.Log.MaxSizeMB == 0 {
		c.Log.MaxSizeMB = DefaultLogMaxSizeMB
	}
	if c.Log.MaxBackups == 0 {
		c.Log.MaxBackups = DefaultLogMaxBackups
	}
	if c.Log.MaxAgeDays == 0 {
		c.Log.MaxAgeDays = DefaultLogMaxAgeDays
	}
}

func joinHostPort(host string, port int) string {
	return net.JoinHostPort(host, strconv.Itoa(port))
}
