package logger

import (
	"context"
	"time"
)

// contextKey is a private type for context keys to avoid collisions
type contextKey struct{}

// logContextKey is the key for RequestFields in context.Context
var logContextKey = contextKey{}

// RequestFields holds request-scoped fields for structured logging:
// the identifiers a request touches (project, vault, file, block) plus
// the bookkeeping requestLogger needs to log once at completion. It is
// stored once per request as a pointer, so handlers nested under
// requestLogger can fill fields in as they learn them (e.g.
// ProjectContext sets ProjectID) and requestLogger sees the final
// state when it logs after next.ServeHTTP returns.
type RequestFields struct {
	RequestID string
	ClientIP  string
	ProjectID string
	VaultID   string
	FileID    string
	BlockID   string
	StartTime time.Time
}

// WithContext returns a new context carrying fields.
func WithContext(ctx context.Context, fields *RequestFields) context.Context {
	return context.WithValue(ctx, logContextKey, fields)
}

// FromContext retrieves the RequestFields from context, or nil if not present.
func FromContext(ctx context.Context) *RequestFields {
	if ctx == nil {
		return nil
	}
	fields, _ := ctx.Value(logContextKey).(*RequestFields)
	return fields
}

// NewRequestFields creates a RequestFields for a request starting now.
func NewRequestFields(requestID, clientIP string) *RequestFields {
	return &RequestFields{
		RequestID: requestID,
		ClientIP:  clientIP,
		StartTime: time.Now(),
	}
}

// SetProjectID records the tenant a request is scoped to.
func (f *RequestFields) SetProjectID(id string) {
	if f != nil {
		f.ProjectID = id
	}
}

// SetVaultID records the vault a request is operating on.
func (f *RequestFields) SetVaultID(id string) {
	if f != nil {
		f.VaultID = id
	}
}

// SetFileID records the file a request is operating on.
func (f *RequestFields) SetFileID(id string) {
	if f != nil {
		f.FileID = id
	}
}

// SetBlockID records the block a request is operating on.
func (f *RequestFields) SetBlockID(id string) {
	if f != nil {
		f.BlockID = id
	}
}

// DurationMs returns the duration since StartTime in milliseconds.
func (f *RequestFields) DurationMs() float64 {
	if f == nil || f.StartTime.IsZero() {
		return 0
	}
	return float64(time.Since(f.StartTime).Microseconds()) / 1000.0
}

// Attrs returns the populated fields as slog key/value pairs, suitable
// for passing straight into logger.Info/Error as variadic args.
func (f *RequestFields) Attrs() []any {
	if f == nil {
		return nil
	}
	attrs := make([]any, 0, 12)
	attrs = append(attrs, KeyRequestID, f.RequestID)
	if f.ClientIP != "" {
		attrs = append(attrs, KeyClientIP, f.ClientIP)
	}
	if f.ProjectID != "" {
		attrs = append(attrs, KeyProjectID, f.ProjectID)
	}
	if f.VaultID != "" {
		attrs = append(attrs, KeyVaultID, f.VaultID)
	}
	if f.FileID != "" {
		attrs = append(attrs, KeyFileID, f.FileID)
	}
	if f.BlockID != "" {
		attrs = append(attrs, KeyBlockID, f.BlockID)
	}
	return attrs
}
