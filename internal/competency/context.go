package competency

import "context"

type contextKey string

const ctxKeyActor contextKey = "competency_actor"

// WithActor records the user performing an import. Scales created during the
// import are attributed to this user.
func WithActor(ctx context.Context, userID int64) context.Context {
	return context.WithValue(ctx, ctxKeyActor, userID)
}

// ActorFromContext returns the acting user id, or 0 when none is set.
func ActorFromContext(ctx context.Context) int64 {
	if v, ok := ctx.Value(ctxKeyActor).(int64); ok {
		return v
	}
	return 0
}
