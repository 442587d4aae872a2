package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// applyEnv overrides c with any environment variables that are set.
// Unparseable values are ignored.
func (c *Config) applyEnv() {
	c.Server.Host = parseString([]string{"KUBEDASH_HOST", "HOST"}, c.Server.Host)
	c.Server.Port = parseInt([]string{"KUBEDASH_PORT", "PORT"}, c.Server.Port)
	if v := lookup("KUBEDASH_CORS_ORIGINS"); v != "" {
		c.Server.CORSOrigins = splitList(v)
	}

	c.Store.Backend = parseString([]string{"KUBEDASH_STORE"}, c.Store.Backend)
	c.Store.Path = parseString([]string{"KUBEDASH_STORE_PATH"}, c.Store.Path)
	c.Store.SQLitePath = parseString([]string{"KUBEDASH_SQLITE_PATH"}, c.Store.SQLitePath)
	c.Store.S3.Endpoint = parseString([]string{"KUBEDASH_S3_ENDPOINT"}, c.Store.S3.Endpoint)
	c.Store.S3.Region = parseString([]string{"KUBEDASH_S3_REGION"}, c.Store.S3.Region)
	c.Store.S3.Bucket = parseString([]string{"KUBEDASH_S3_BUCKET"}, c.Store.S3.Bucket)
	c.Store.S3.Key = parseString([]string{"KUBEDASH_S3_KEY"}, c.Store.S3.Key)
	c.Store.S3.AccessKey = parseString([]string{"KUBEDASH_S3_ACCESS_KEY"}, c.Store.S3.AccessKey)
	c.Store.S3.SecretKey = parseString([]string{"KUBEDASH_S3_SECRET_KEY"}, c.Store.S3.SecretKey)
	c.Store.S3.UsePathStyle = parseBool([]string{"KUBEDASH_S3_PATH_STYLE"}, c.Store.S3.UsePathStyle)

	c.Kubernetes.VerifySSL = parseBool([]string{"KUBEDASH_VERIFY_SSL", "VERIFY_SSL"}, c.Kubernetes.VerifySSL)
	c.Kubernetes.RequestTimeout = parseDuration([]string{"KUBEDASH_REQUEST_TIMEOUT"}, c.Kubernetes.RequestTimeout)
	c.Kubernetes.ValidationTimeout = parseDuration([]string{"KUBEDASH_VALIDATION_TIMEOUT"}, c.Kubernetes.ValidationTimeout)

	c.SSH.DialTimeout = parseDuration([]string{"KUBEDASH_SSH_DIAL_TIMEOUT"}, c.SSH.DialTimeout)
	c.SSH.MaxRetries = parseInt([]string{"KUBEDASH_SSH_MAX_RETRIES"}, c.SSH.MaxRetries)
	c.SSH.RetryDelay = parseDuration([]string{"KUBEDASH_SSH_RETRY_DELAY"}, c.SSH.RetryDelay)

	c.Provisioning.TokenDuration = parseDuration([]string{"KUBEDASH_TOKEN_DURATION"}, c.Provisioning.TokenDuration)

	c.Rollout.DefaultDeadline = parseDuration([]string{"KUBEDASH_ROLLOUT_DEADLINE"}, c.Rollout.DefaultDeadline)
	c.Rollout.PollInterval = parseDuration([]string{"KUBEDASH_ROLLOUT_INTERVAL"}, c.Rollout.PollInterval)

	c.Log.Debug = parseBool([]string{"KUBEDASH_DEBUG", "DEBUG"}, c.Log.Debug)
	c.Log.File = parseString([]string{"KUBEDASH_LOG_FILE"}, c.Log.File)

	c.Seed.APIURL = parseString([]string{"K8S_API"}, c.Seed.APIURL)
	c.Seed.Token = parseString([]string{"K8S_TOKEN"}, c.Seed.Token)
}

// lookup returns the first non-empty value among envVars.
func lookup(envVars ...string) string {
	for _, name := range envVars {
		if v := strings.TrimSpace(os.Getenv(name)); v != "" {
			return v
		}
	}
	return ""
}

func parseString(envVars []string, current string) string {
	if v := lookup(envVars...); v != "" {
		return v
	}
	return current
}

// parseDuration parses a duration from the first set variable.
// If none is set or parsing fails, current is returned.
func parseDuration(envVars []string, current time.Duration) time.Duration {
	val := lookup(envVars...)
	if val == "" {
		return current
	}

	d, err := time.ParseDuration(val)
	if err != nil {
		return current
	}

	return d
}

// parseInt parses an integer from the first set variable.
// If none is set or parsing fails, current is returned.
func parseInt(envVars []string, current int) int {
	val := lookup(envVars...)
	if val == "" {
		return current
	}

	i, err := strconv.Atoi(val)
	if err != nil {
		return current
	}

	return i
}

// parseBool accepts the strconv.ParseBool spellings plus yes/no.
func parseBool(envVars []string, current bool) bool {
	val := strings.ToLower(lookup(envVars...))
	switch val {
	case "":
		return current
	case "yes", "y", "on":
		return true
	case "no", "n", "off":
		return false
	}

	b, err := strconv.ParseBool(val)
	if err != nil {
		return current
	}
	return b
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
