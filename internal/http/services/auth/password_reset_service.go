package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/BloodyDerby/biosentiers-backend/internal/email"
	authdto "github.com/BloodyDerby/biosentiers-backend/internal/http/dto/auth"
	httperrors "github.com/BloodyDerby/biosentiers-backend/internal/http/errors"
	jwtx "github.com/BloodyDerby/biosentiers-backend/internal/jwt"
	"github.com/BloodyDerby/biosentiers-backend/internal/observability/logger"
	"github.com/BloodyDerby/biosentiers-backend/internal/observability/metrics"
	"github.com/BloodyDerby/biosentiers-backend/internal/store/core"
	"github.com/BloodyDerby/biosentiers-backend/internal/validation"
)

// DefaultPasswordResetTTL es la validez por defecto de un token de reseteo.
const DefaultPasswordResetTTL = time.Hour

// PasswordResetDeps contiene las dependencias del servicio de reseteo.
type PasswordResetDeps struct {
	Users  core.UserRepository
	Codec  *jwtx.Codec
	Mailer *email.Mailer
	TTL    time.Duration
}

type passwordResetService struct {
	deps PasswordResetDeps
}

// NewPasswordResetService crea el servicio de reseteo de passwords.
func NewPasswordResetService(deps PasswordResetDeps) PasswordResetService {
	if deps.TTL == 0 {
		deps.TTL = DefaultPasswordResetTTL
	}
	return &passwordResetService{deps: deps}
}

func (s *passwordResetService) RequestReset(ctx context.Context, body any) (*authdto.PasswordResetResponse, validation.Errors, error) {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("auth"),
		logger.Op("RequestReset"),
	)

	verrs, err := validation.Validate(ctx, body, passwordResetSchema())
	if err != nil {
		return nil, nil, httperrors.ErrInternal.WithCause(err)
	}
	if len(verrs) > 0 {
		return nil, verrs, nil
	}

	obj := body.(map[string]any)
	address, _ := obj["email"].(string)
	address = strings.TrimSpace(strings.ToLower(address))

	user, err := s.deps.Users.GetByEmail(ctx, address)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			log.Debug("user not found")
			return nil, nil, httperrors.ErrInvalidUser
		}
		return nil, nil, httperrors.ErrInternal.WithCause(err)
	}
	if !user.Active {
		log.Debug("user inactive", logger.UserID(user.APIID))
		return nil, nil, httperrors.ErrInvalidUser
	}

	// El contador embebido ata el token al estado actual de la cuenta; al
	// usarse, el contador se incrementa y el token muere.
	extra := map[string]any{"passwordResetCount": user.PasswordResetCount}
	token, err := s.deps.Codec.Issue(user.APIID, jwtx.AuthTypePasswordReset, s.deps.TTL, extra)
	if err != nil {
		return nil, nil, httperrors.ErrInternal.WithCause(err)
	}

	link, err := s.deps.Mailer.SendPasswordReset(user.Email, user.FirstName, token, s.deps.TTL)
	if err != nil {
		return nil, nil, httperrors.ErrInternal.WithCause(err)
	}

	metrics.RecordTokenIssued(string(jwtx.AuthTypePasswordReset))
	log.Info("password reset requested", logger.UserID(user.APIID))

	resp := &authdto.PasswordResetResponse{Email: user.Email}
	if s.deps.Mailer.DebugEchoLinks {
		resp.Link = link
	}
	return resp, nil, nil
}
