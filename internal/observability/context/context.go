package obscontext

import "context"

type contextKey int

const (
	requestIDKey contextKey = iota
	actorIDKey
	actorRoleKey
)

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

func RequestIDFromContext(ctx context.Context) string {
	value, _ := ctx.Value(requestIDKey).(string)
	return value
}

// WithActor records the acting identity for log correlation. The identity
// itself is resolved upstream by the gateway.
func WithActor(ctx context.Context, actorID, role string) context.Context {
	ctx = context.WithValue(ctx, actorIDKey, actorID)
	return context.WithValue(ctx, actorRoleKey, role)
}

func ActorFromContext(ctx context.Context) (actorID, role string) {
	actorID, _ = ctx.Value(actorIDKey).(string)
	role, _ = ctx.Value(actorRoleKey).(string)
	return actorID, role
}
