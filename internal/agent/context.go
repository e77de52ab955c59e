package agent

import (
	"context"

	"plantpal-backend/internal/analytics"
)

type ctxKey int

const (
	envelopeKey ctxKey = iota
	sourceEventKey
)

// WithEnvelope attaches the request's analytics envelope and idempotency key
// so events recorded deeper in the service carry them.
func WithEnvelope(ctx context.Context, env analytics.Envelope, key string) context.Context {
	ctx = context.WithValue(ctx, envelopeKey, env)
	return context.WithValue(ctx, sourceEventKey, key)
}

func EnvelopeFromContext(ctx context.Context) (analytics.Envelope, bool) {
	env, ok := ctx.Value(envelopeKey).(analytics.Envelope)
	return env, ok
}

// One request can record several events (a first photo also generates a
// schedule), so the client key is scoped per event name.
func sourceKeyFromContext(ctx context.Context, event string) string {
	k, _ := ctx.Value(sourceEventKey).(string)
	if k == "" {
		return ""
	}
	return k + ":" + event
}
