package middlewares

import (
	"errors"
	"net/http"
	"strings"

	httperrors "github.com/BloodyDerby/biosentiers-backend/internal/http/errors"
	jwtx "github.com/BloodyDerby/biosentiers-backend/internal/jwt"
	"github.com/BloodyDerby/biosentiers-backend/internal/store/core"
)

// bearerToken extrae el token del header Authorization, o "" si no hay.
func bearerToken(r *http.Request) string {
	ah := strings.TrimSpace(r.Header.Get("Authorization"))
	if ah == "" || !strings.HasPrefix(strings.ToLower(ah), "bearer ") {
		return ""
	}
	return strings.TrimSpace(ah[len("Bearer "):])
}

// RequireAuth valida Authorization: Bearer <JWT> y guarda las claims en el
// contexto. Para tokens de tipo user también carga el usuario del store y
// rechaza cuentas inactivas. Responde 401 si algo falla.
func RequireAuth(codec *jwtx.Codec, users core.UserRepository, types ...string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := bearerToken(r)
			if raw == "" {
				httperrors.Write(w, httperrors.ErrUnauthorized)
				return
			}

			claims, err := codec.Verify(raw)
			if err != nil {
				httperrors.Write(w, httperrors.ErrInvalidToken.WithCause(err))
				return
			}

			if len(types) > 0 && !containsType(types, string(claims.AuthType)) {
				httperrors.Write(w, httperrors.ErrInvalidAuthorization)
				return
			}

			ctx := WithClaims(r.Context(), claims)

			if claims.AuthType == jwtx.AuthTypeUser {
				user, err := users.GetByAPIID(ctx, claims.Sub)
				if err != nil {
					if errors.Is(err, core.ErrNotFound) {
						httperrors.Write(w, httperrors.ErrInvalidToken)
						return
					}
					httperrors.Write(w, httperrors.ErrInternal.WithCause(err))
					return
				}
				if !user.Active {
					httperrors.Write(w, httperrors.ErrInvalidToken)
					return
				}
				ctx = WithUser(ctx, user)
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole verifica que el usuario autenticado tenga el rol pedido.
// Debe usarse después de RequireAuth con tokens de tipo user.
func RequireRole(role core.Role) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := GetUser(r.Context())
			if user == nil {
				httperrors.Write(w, httperrors.ErrUnauthorized)
				return
			}
			if !user.HasRole(role) {
				httperrors.Write(w, httperrors.ErrForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func containsType(types []string, t string) bool {
	for _, v := range types {
		if v == t {
			return true
		}
	}
	return false
}
