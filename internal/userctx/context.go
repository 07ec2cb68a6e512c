package userctx

import "context"

type contextKey string

const userIDContextKey contextKey = "user_id"

// DefaultUserID owns every record when authentication is disabled.
const DefaultUserID = "default"

func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDContextKey, userID)
}

func GetUserID(ctx context.Context) (string, bool) {
	userID, ok := ctx.Value(userIDContextKey).(string)
	return userID, ok
}

// OwnerOrDefault returns the authenticated user or DefaultUserID.
func OwnerOrDefault(ctx context.Context) string {
	if id, ok := GetUserID(ctx); ok && id != "" {
		return id
	}
	return DefaultUserID
}
