package auth

import "context"

type contextKey struct{}

// AuthContext identifies the authenticated requester. FamilyCode is the
// family the user belonged to when the request was authenticated; it is
// empty for users who have not joined a family.
type AuthContext struct {
	UserID     int64
	Email      string
	FamilyCode string
}

func WithAuth(ctx context.Context, ac AuthContext) context.Context {
	return context.WithValue(ctx, contextKey{}, ac)
}

func FromContext(ctx context.Context) (AuthContext, bool) {
	ac, ok := ctx.Value(contextKey{}).(AuthContext)
	return ac, ok
}

func UserID(ctx context.Context) int64 {
	ac, ok := FromContext(ctx)
	if !ok {
		return 0
	}
	return ac.UserID
}

func FamilyCode(ctx context.Context) string {
	ac, ok := FromContext(ctx)
	if !ok {
		return ""
	}
	return ac.FamilyCode
}
