// Package audit emits structured audit events for security-relevant actions:
// logins, token issuance and RBAC mutations.
package audit

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"authgrid.org/internal/auth"
)

type ctxKey string

const requestIDKey ctxKey = "audit_request_id"

// WithRequestID attaches the request identifier to the context for audit logging.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	requestID = strings.TrimSpace(requestID)
	if requestID == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, requestID)
}

// RequestIDFromContext extracts the audit request id from context if present.
func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(requestIDKey).(string); ok {
		return v
	}
	return ""
}

// Trail writes audit entries through the structured logger. Entries carry a
// fixed "audit" marker so they can be filtered out of the general log stream.
type Trail struct {
	log *zap.SugaredLogger
}

func New(log *zap.SugaredLogger) *Trail {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Trail{log: log}
}

// Event records an audit entry enriched with request and actor context.
// Extra fields come as zap-style key/value pairs.
func (t *Trail) Event(ctx context.Context, event string, keysAndValues ...any) {
	event = strings.TrimSpace(event)
	if event == "" {
		return
	}
	kv := make([]any, 0, len(keysAndValues)+8)
	kv = append(kv, "type", "audit", "event", event)
	if rid := RequestIDFromContext(ctx); rid != "" {
		kv = append(kv, "request_id", rid)
	}
	if claims, ok := auth.ClaimsFromContext(ctx); ok {
		kv = append(kv, "actor_id", claims.UserID, "actor_email", claims.Email)
	}
	kv = append(kv, keysAndValues...)
	t.log.Infow("audit", kv...)
}
