package hubservice

import "context"

type contextKey string

const userContextKey contextKey = "user"

// UserContext is the authenticated caller as established by the auth
// middleware.
type UserContext struct {
	ID       string   `json:"id"`
	Username string   `json:"username"`
	Email    string   `json:"email"`
	Roles    []string `json:"roles"`
}

// ContextWithUser attaches the authenticated user to the context.
func ContextWithUser(ctx context.Context, user *UserContext) context.Context {
	return context.WithValue(ctx, userContextKey, user)
}

// UserFromContext retrieves the authenticated user, if any.
func UserFromContext(ctx context.Context) (*UserContext, bool) {
	user, ok := ctx.Value(userContextKey).(*UserContext)
	return user, ok
}

// GetUserRoles retrieves the caller's roles from context; unknown
// callers get the guest role.
func GetUserRoles(ctx context.Context) []string {
	if user, ok := UserFromContext(ctx); ok {
		return user.Roles
	}
	return []string{"guest"}
}
