package api

import (
	"context"

	"github.com/google/uuid"
)

// CorrelationHeader is sent on every request so client and server logs can
// be joined.
const CorrelationHeader = "X-Correlation-ID"

type correlationKey struct{}

// WithCorrelationID pins the correlation id used for requests made with ctx.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationKey{}, id)
}

// CorrelationID returns the id pinned on ctx, or a fresh one.
func CorrelationID(ctx context.Context) string {
	id, ok := ctx.Value(correlationKey{}).(string)
	if !ok || id == "" {
		return uuid.NewString()
	}
	return id
}
