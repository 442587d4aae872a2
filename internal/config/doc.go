// Package config loads kubedash configuration.
//
// Configuration is read from an optional YAML file, then overridden by
// environment variables, then defaulted and validated. The resulting Config
// is passed explicitly to every component.
//
// Environment variables:
//   - KUBEDASH_HOST, HOST (default: 127.0.0.1)
//   - KUBEDASH_PORT, PORT (default: 8000)
//   - KUBEDASH_CORS_ORIGINS: comma separated (default: *)
//   - KUBEDASH_STORE: file, sqlite, s3 or memory (default: file)
//   - KUBEDASH_STORE_PATH (default: ~/.kubedash/clusters.yaml)
//   - KUBEDASH_SQLITE_PATH (default: ~/.kubedash/kubedash.db)
//   - KUBEDASH_S3_ENDPOINT, KUBEDASH_S3_REGION, KUBEDASH_S3_BUCKET,
//     KUBEDASH_S3_KEY, KUBEDASH_S3_ACCESS_KEY, KUBEDASH_S3_SECRET_KEY,
//     KUBEDASH_S3_PATH_STYLE
//   - KUBEDASH_VERIFY_SSL, VERIFY_SSL (default: false)
//   - KUBEDASH_REQUEST_TIMEOUT (default: 10s)
//   - KUBEDASH_VALIDATION_TIMEOUT (default: 10s)
//   - KUBEDASH_SSH_DIAL_TIMEOUT (default: 30s)
//   - KUBEDASH_SSH_MAX_RETRIES (default: 0)
//   - KUBEDASH_SSH_RETRY_DELAY (default: 2s)
//   - KUBEDASH_TOKEN_DURATION (default: server default)
//   - KUBEDASH_ROLLOUT_DEADLINE (default: 30s)
//   - KUBEDASH_ROLLOUT_INTERVAL (default: 1s)
//   - KUBEDASH_DEBUG, DEBUG (default: false)
//   - KUBEDASH_LOG_FILE (default: stderr only)
//   - K8S_API, K8S_TOKEN: seed the "default" cluster at startup
package config
