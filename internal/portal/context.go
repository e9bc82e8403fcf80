package portal

import "context"

type ctxKey string

const (
	roleKey    ctxKey = "careportal.role"
	subjectKey ctxKey = "careportal.subject"
)

// WithRole stores the caller's role in context.
func WithRole(ctx context.Context, role Role) context.Context {
	return context.WithValue(ctx, roleKey, role)
}

// RoleFromContext extracts the role if present.
func RoleFromContext(ctx context.Context) (Role, bool) {
	role, ok := ctx.Value(roleKey).(Role)
	return role, ok && role != ""
}

// WithSubject stores the authenticated subject (token "sub").
func WithSubject(ctx context.Context, subject string) context.Context {
	return context.WithValue(ctx, subjectKey, subject)
}

func SubjectFromContext(ctx context.Context) (string, bool) {
	sub, ok := ctx.Value(subjectKey).(string)
	return sub, ok && sub != ""
}
