package auth

import "context"

type contextKey string

const (
	contextKeyRoles   contextKey = "auth.roles"
	contextKeySubject contextKey = "auth.subject"
)

// WithIdentity stores auth identity details in context.
func WithIdentity(ctx context.Context, subject string, roles []Role) context.Context {
	ctx = context.WithValue(ctx, contextKeySubject, subject)
	ctx = context.WithValue(ctx, contextKeyRoles, roles)
	return ctx
}

// SubjectFromContext extracts the authenticated principal from context.
func SubjectFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	value := ctx.Value(contextKeySubject)
	if subject, ok := value.(string); ok {
		return subject
	}
	return ""
}

// RolesFromContext extracts granted roles from context.
func RolesFromContext(ctx context.Context) []Role {
	if ctx == nil {
		return nil
	}
	value := ctx.Value(contextKeyRoles)
	if roles, ok := value.([]Role); ok {
		return roles
	}
	return nil
}
