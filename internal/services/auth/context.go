package auth

import (
	"context"

	"github.com/Gonmore/fprax-gateway/internal/session"
)

type identityContextKey string

const identityKey identityContextKey = "session_identity"

type Identity struct {
	SID      string
	Snapshot session.Snapshot
}

func WithIdentity(ctx context.Context, identity Identity) context.Context {
	return context.WithValue(ctx, identityKey, identity)
}

func IdentityFromContext(ctx context.Context) (Identity, bool) {
	identity, ok := ctx.Value(identityKey).(Identity)
	return identity, ok
}
