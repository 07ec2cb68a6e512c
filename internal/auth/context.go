package auth

import (
	"context"

	"github.com/fdg312/nutriplan/internal/userctx"
)

const DefaultUserID = userctx.DefaultUserID

func WithUserID(ctx context.Context, userID string) context.Context {
	return userctx.WithUserID(ctx, userID)
}

func GetUserID(ctx context.Context) (string, bool) {
	return userctx.GetUserID(ctx)
}

func OwnerUserID(ctx context.Context) string {
	return userctx.OwnerOrDefault(ctx)
}
