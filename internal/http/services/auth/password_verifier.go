package auth

import (
	"context"
	"errors"
	"strings"

	httperrors "github.com/BloodyDerby/biosentiers-backend/internal/http/errors"
	"github.com/BloodyDerby/biosentiers-backend/internal/observability/logger"
	"github.com/BloodyDerby/biosentiers-backend/internal/security/password"
	"github.com/BloodyDerby/biosentiers-backend/internal/store/core"
)

// passwordVerifier autentica usuarios por e-mail y password.
type passwordVerifier struct {
	users core.UserRepository
}

// verify devuelve el usuario autenticado. Una cuenta inexistente y una
// inactiva responden igual.
func (v *passwordVerifier) verify(ctx context.Context, email, plain string) (*core.User, error) {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("auth"),
		logger.Op("verifyPassword"),
	)

	email = strings.TrimSpace(strings.ToLower(email))

	user, err := v.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			log.Debug("user not found")
			return nil, httperrors.ErrInvalidUser
		}
		return nil, httperrors.ErrInternal.WithCause(err)
	}

	if !user.Active {
		log.Debug("user inactive", logger.UserID(user.APIID))
		return nil, httperrors.ErrInvalidUser
	}

	if !password.Verify(plain, user.PasswordHash) {
		log.Debug("password mismatch", logger.UserID(user.APIID))
		return nil, httperrors.ErrInvalidCredentials
	}

	return user, nil
}
