package members

import (
	"context"
	"fmt"

	"github.com/krishilink/krishilink/internal/shared"
)

type actorContextKey struct{}

// ContextWithActor stores the authenticated member in context.
func ContextWithActor(ctx context.Context, m *Member) context.Context {
	return context.WithValue(ctx, actorContextKey{}, m)
}

// ActorFromContext extracts the authenticated member, if any.
func ActorFromContext(ctx context.Context) *Member {
	m, _ := ctx.Value(actorContextKey{}).(*Member)
	return m
}

// RequireActor returns the authenticated member or an unauthorized error.
func RequireActor(ctx context.Context) (*Member, error) {
	m := ActorFromContext(ctx)
	if m == nil {
		return nil, fmt.Errorf("%w: login required", shared.ErrUnauthorized)
	}
	return m, nil
}

// RequireAdmin returns the authenticated member if they are the root Admin.
func RequireAdmin(ctx context.Context) (*Member, error) {
	m, err := RequireActor(ctx)
	if err != nil {
		return nil, err
	}
	if !m.IsAdmin() {
		return nil, fmt.Errorf("%w: admin only", shared.ErrForbidden)
	}
	return m, nil
}
