package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d out of range", c.Server.Port))
	}

	switch c.Store.Backend {
	case StoreFile:
		if strings.TrimSpace(c.Store.Path) == "" {
			errs = append(errs, errors.New("store.path is required for the file backend"))
		}
	case StoreSQLite:
		if strings.TrimSpace(c.Store.SQLitePath) == "" {
			errs = append(errs, errors.New("store.sqlite_path is required for the sqlite backend"))
		}
	case StoreS3:
		if c.Store.S3.Bucket == "" {
			errs = append(errs, errors.New("store.s3.bucket is required for the s3 backend"))
		}
	case StoreMemory:
	default:
		errs = append(errs, fmt.Errorf("store.backend %q must be one of %s, %s, %s, %s",
			c.Store.Backend, StoreFile, StoreSQLite, StoreS3, StoreMemory))
	}

	if c.Kubernetes.RequestTimeout < 0 || c.Kubernetes.ValidationTimeout < 0 {
		errs = append(errs, errors.New("kubernetes timeouts must not be negative"))
	}
	if c.SSH.MaxRetries < 0 {
		errs = append(errs, errors.New("ssh.max_retries must not be negative"))
	}
	if c.Rollout.PollInterval <= 0 {
		errs = append(errs, errors.New("rollout.poll_interval must be positive"))
	}
	if c.Rollout.DefaultDeadline <= 0 {
		errs = append(errs, errors.New("rollout.default_deadline must be positive"))
	}
	if c.Provisioning.TokenDuration < 0 {
		errs = append(errs, errors.New("provisioning.token_duration must not be negative"))
	}

	if c.Seed.Token != "" {
		if c.Seed.APIURL == "" {
			errs = append(errs, errors.New("seed.api_url is required when seed.token is set"))
		} else if u, err := url.Parse(c.Seed.APIURL); err != nil || u.Host == "" {
			errs = append(errs, fmt.Errorf("seed.api_url %q is not a valid URL", c.Seed.APIURL))
		}
	}

	return errors.Join(errs...)
}
