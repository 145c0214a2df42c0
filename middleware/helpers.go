package middleware

import (
	"context"

	"github.com/Dosada05/tournament-arena/models"
)

type contextKey string

const actorContextKey contextKey = "actor"

// JWTClaimUserID это claim с id аккаунта; его подписывает AuthHandler.
const JWTClaimUserID = "user_id"

// WithActor кладет вызывающего в ctx.
func WithActor(ctx context.Context, actor models.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey, actor)
}

// ActorFromContext возвращает вызывающего, найденного в Authenticate.
func ActorFromContext(ctx context.Context) (models.Actor, bool) {
	actor, ok := ctx.Value(actorContextKey).(models.Actor)
	return actor, ok && actor.UserID != ""
}
