package context

import (
	"context"
)

// Session describes the connected user of a form session.
type Session struct {
	// Login of the user, empty for anonymous sessions
	Login string
	// Language is the BCP 47 tag used to render localized texts
	Language string
}

type sessionKey struct{}

// WithSession adds Session to context.
func WithSession(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, s)
}

// GetSession returns Session from context.
func GetSession(ctx context.Context) *Session {
	if v, ok := ctx.Value(sessionKey{}).(*Session); ok {
		return v
	}
	return nil
}
