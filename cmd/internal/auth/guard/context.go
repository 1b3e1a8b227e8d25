package guard

import "context"

type contextKey struct{ name string }

var subjectKey = contextKey{"auth_subject"}

// WithSubject returns a context carrying the authenticated account id.
func WithSubject(ctx context.Context, subject string) context.Context {
	return context.WithValue(ctx, subjectKey, subject)
}

// SubjectID returns the authenticated account id from ctx and true if set;
// otherwise "", false. Only the guard middleware sets it, so a present
// subject means the request carried a valid token.
func SubjectID(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(subjectKey).(string)
	return v, ok
}
