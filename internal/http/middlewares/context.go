package middlewares

import (
	"context"

	jwtx "github.com/BloodyDerby/biosentiers-backend/internal/jwt"
	"github.com/BloodyDerby/biosentiers-backend/internal/store/core"
)

type ctxKey int

const (
	ctxKeyRequestID ctxKey = iota
	ctxKeyClaims
	ctxKeyUser
)

func setRequestID(ctx context.Context, rid string) context.Context {
	return context.WithValue(ctx, ctxKeyRequestID, rid)
}

// GetRequestID devuelve el request ID del contexto, o "" si no hay.
func GetRequestID(ctx context.Context) string {
	rid, _ := ctx.Value(ctxKeyRequestID).(string)
	return rid
}

// WithClaims guarda las claims del token verificado en el contexto.
func WithClaims(ctx context.Context, claims *jwtx.Claims) context.Context {
	return context.WithValue(ctx, ctxKeyClaims, claims)
}

// GetClaims devuelve las claims del contexto, o nil si el request no está
// autenticado.
func GetClaims(ctx context.Context) *jwtx.Claims {
	claims, _ := ctx.Value(ctxKeyClaims).(*jwtx.Claims)
	return claims
}

// WithUser guarda el usuario autenticado (ya cargado del store) en el contexto.
func WithUser(ctx context.Context, u *core.User) context.Context {
	return context.WithValue(ctx, ctxKeyUser, u)
}

// GetUser devuelve el usuario autenticado del contexto, o nil.
func GetUser(ctx context.Context) *core.User {
	u, _ := ctx.Value(ctxKeyUser).(*core.User)
	return u
}
