package types

import (
	"context"
)

// ContextKey is a type for the keys of values stored in the context
type ContextKey string

const (
	CtxRequestID     ContextKey = "ctx_request_id"
	CtxUserID        ContextKey = "ctx_user_id"
	CtxDBTransaction ContextKey = "ctx_db_transaction"
	// CtxEmitDepth counts nested workflow emissions caused by actions
	CtxEmitDepth ContextKey = "ctx_emit_depth"

	// Default values
	DefaultUserID = "00000000-0000-0000-0000-000000000000"
	// SystemUserID is recorded on rows created by the scheduler and the workflow engine
	SystemUserID = "system"
)

func GetUserID(ctx context.Context) string {
	if userID, ok := ctx.Value(CtxUserID).(string); ok {
		return userID
	}
	return ""
}

func GetRequestID(ctx context.Context) string {
	if requestID, ok := ctx.Value(CtxRequestID).(string); ok {
		return requestID
	}
	return ""
}

// SetUserID sets the user ID in the context
func SetUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, CtxUserID, userID)
}

// SetRequestID sets the request ID in the context
func SetRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, CtxRequestID, requestID)
}

// GetEmitDepth returns how many workflow emissions deep the current call is
func GetEmitDepth(ctx context.Context) int {
	if depth, ok := ctx.Value(CtxEmitDepth).(int); ok {
		return depth
	}
	return 0
}

// WithEmitDepth returns a context one emission level deeper
func WithEmitDepth(ctx context.Context) context.Context {
	return context.WithValue(ctx, CtxEmitDepth, GetEmitDepth(ctx)+1)
}

// WithoutTransaction detaches the context from any database transaction it carries
func WithoutTransaction(ctx context.Context) context.Context {
	return context.WithValue(ctx, CtxDBTransaction, nil)
}

// NewSystemContext returns a context for work that is not started by an HTTP request
func NewSystemContext(ctx context.Context) context.Context {
	ctx = SetUserID(ctx, SystemUserID)
	return SetRequestID(ctx, GenerateUUID())
}

// SetEmitDepth returns a context carrying the given emission depth
func SetEmitDepth(ctx context.Context, depth int) context.Context {
	return context.WithValue(ctx, CtxEmitDepth, depth)
}

const (
	HeaderRequestID = "X-Request-ID"
	HeaderAPIKey    = "x-api-key"
)
