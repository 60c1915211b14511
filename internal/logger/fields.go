package logger

// Standard field keys for structured logging across the API, storage
// drivers, and CLI. Use these consistently so log aggregation and
// querying doesn't have to deal with synonyms (vault vs vault_id, etc).
const (
	// Request / response
	KeyRequestID  = "request_id"
	KeyMethod     = "method"
	KeyPath       = "path"
	KeyRemoteAddr = "remote_addr"
	KeyClientIP   = "client_ip"
	KeyStatus     = "status"
	KeyBytes      = "bytes"
	KeyDurationMs = "duration_ms"

	// Domain identifiers
	KeyProjectID = "project_id"
	KeyVaultID   = "vault_id"
	KeyFileID    = "file_id"
	KeyBlockID   = "block_id"
	KeyStorageID = "storage_id"

	// Errors
	KeyError     = "error"
	KeyErrorCode = "error_code"

	// Storage drivers
	KeyDriver     = "driver"
	KeyBucket     = "bucket"
	KeyRegion     = "region"
	KeyObjectKey  = "key"
	KeyAttempt    = "attempt"
	KeyMaxRetries = "max_retries"
	KeyBackoff    = "backoff"

	// Migrations
	KeyVersion = "version"
	KeyDirty   = "dirty"

	// Server
	KeyPort = "port"
)
