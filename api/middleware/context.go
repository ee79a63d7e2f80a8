package middleware

import (
	"context"

	"github.com/angelmondragon/luvwish-checkout/pkg/auth"
)

type contextKey string

const ctxActor contextKey = "actor"

// ActorFromContext returns the actor seeded by Auth; requests without one are
// anonymous.
func ActorFromContext(ctx context.Context) auth.Actor {
	if ctx == nil {
		return auth.Anonymous()
	}
	if v, ok := ctx.Value(ctxActor).(auth.Actor); ok {
		return v
	}
	return auth.Anonymous()
}

func UserIDFromContext(ctx context.Context) string {
	return ActorFromContext(ctx).UserID()
}

// WithActor injects the calling actor into the context.
func WithActor(ctx context.Context, actor auth.Actor) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxActor, actor)
}
