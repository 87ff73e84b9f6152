package instrument

import "context"

type correlationKey struct{}

// SetCorrelationID stores the request correlation ID in ctx.
func SetCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationKey{}, id)
}

// GetCorrelationID returns the correlation ID, or "" when none is set.
func GetCorrelationID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(correlationKey{}).(string)

	return id
}
