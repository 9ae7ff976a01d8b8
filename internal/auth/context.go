package auth

import "context"

type contextKey struct{}

// Session is the acting identity of a request.
type Session struct {
	UserID    int64
	Username  string
	SessionID int64
}

func WithSession(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, contextKey{}, s)
}

func FromContext(ctx context.Context) (Session, bool) {
	s, ok := ctx.Value(contextKey{}).(Session)
	return s, ok
}

func UserID(ctx context.Context) int64 {
	s, ok := FromContext(ctx)
	if !ok {
		return 0
	}
	return s.UserID
}
