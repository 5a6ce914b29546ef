package auth

import (
	"context"
	"time"

	"github.com/BloodyDerby/biosentiers-backend/internal/cache"
	authdto "github.com/BloodyDerby/biosentiers-backend/internal/http/dto/auth"
	installationsdto "github.com/BloodyDerby/biosentiers-backend/internal/http/dto/installations"
	usersdto "github.com/BloodyDerby/biosentiers-backend/internal/http/dto/users"
	httperrors "github.com/BloodyDerby/biosentiers-backend/internal/http/errors"
	jwtx "github.com/BloodyDerby/biosentiers-backend/internal/jwt"
	"github.com/BloodyDerby/biosentiers-backend/internal/observability/logger"
	"github.com/BloodyDerby/biosentiers-backend/internal/observability/metrics"
	"github.com/BloodyDerby/biosentiers-backend/internal/store/core"
	"github.com/BloodyDerby/biosentiers-backend/internal/validation"
)

// Deps contiene las dependencias del servicio de autenticación.
type Deps struct {
	Store core.Repository
	Codec *jwtx.Codec
	Cache cache.Cache

	// Ventana de frescura para requests firmados; cero usa los defaults.
	StalenessWindow time.Duration
	ClockLeeway     time.Duration

	// Vida de los tokens emitidos; cero usa los defaults por tipo.
	UserTokenTTL         time.Duration
	InstallationTokenTTL time.Duration

	// Reloj inyectable para tests; nil usa time.Now.
	Now func() time.Time
}

type service struct {
	deps      Deps
	passwords *passwordVerifier
	hmac      *hmacVerifier
}

// NewService crea el servicio de autenticación dual.
func NewService(deps Deps) Service {
	if deps.StalenessWindow == 0 {
		deps.StalenessWindow = DefaultStalenessWindow
	}
	if deps.ClockLeeway == 0 {
		deps.ClockLeeway = DefaultClockLeeway
	}
	if deps.UserTokenTTL == 0 {
		deps.UserTokenTTL = jwtx.UserTokenTTL
	}
	if deps.InstallationTokenTTL == 0 {
		deps.InstallationTokenTTL = jwtx.InstallationTokenTTL
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &service{
		deps:      deps,
		passwords: &passwordVerifier{users: deps.Store.Users()},
		hmac: &hmacVerifier{
			installations: deps.Store.Installations(),
			nonces:        deps.Cache,
			window:        deps.StalenessWindow,
			leeway:        deps.ClockLeeway,
			now:           deps.Now,
		},
	}
}

func (s *service) Authenticate(ctx context.Context, body any) (*authdto.AuthResponse, validation.Errors, error) {
	if isInstallationBody(body) {
		return s.authenticateInstallation(ctx, body)
	}
	return s.authenticateUser(ctx, body)
}

// isInstallationBody clasifica el body: la mera presencia de la clave
// "installation" selecciona la variante HMAC, sin importar su valor.
func isInstallationBody(body any) bool {
	obj, ok := body.(map[string]any)
	if !ok {
		return false
	}
	_, present := obj["installation"]
	return present
}

func (s *service) authenticateUser(ctx context.Context, body any) (*authdto.AuthResponse, validation.Errors, error) {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("auth"),
		logger.Op("Authenticate"),
		logger.AuthType(string(jwtx.AuthTypeUser)),
	)

	verrs, err := validation.Validate(ctx, body, userLoginSchema())
	if err != nil {
		return nil, nil, httperrors.ErrInternal.WithCause(err)
	}
	if len(verrs) > 0 {
		return nil, verrs, nil
	}

	obj := body.(map[string]any)
	email, _ := obj["email"].(string)
	plain, _ := obj["password"].(string)

	user, err := s.passwords.verify(ctx, email, plain)
	if err != nil {
		metrics.RecordAuthAttempt(string(jwtx.AuthTypeUser), false)
		return nil, nil, err
	}

	// Efectos del login en una sola transacción; si falla, no se emite token.
	user, err = s.deps.Store.Users().SaveLogin(ctx, user.ID, s.deps.Now())
	if err != nil {
		return nil, nil, httperrors.ErrInternal.WithCause(err)
	}

	token, err := s.deps.Codec.Issue(user.APIID, jwtx.AuthTypeUser, s.deps.UserTokenTTL, nil)
	if err != nil {
		return nil, nil, httperrors.ErrInternal.WithCause(err)
	}

	metrics.RecordAuthAttempt(string(jwtx.AuthTypeUser), true)
	metrics.RecordTokenIssued(string(jwtx.AuthTypeUser))
	log.Info("user authenticated", logger.UserID(user.APIID))

	return &authdto.AuthResponse{
		Token: token,
		User:  usersdto.NewUserResponse(user, true),
	}, nil, nil
}

func (s *service) authenticateInstallation(ctx context.Context, body any) (*authdto.AuthResponse, validation.Errors, error) {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("auth"),
		logger.Op("Authenticate"),
		logger.AuthType(string(jwtx.AuthTypeInstallation)),
	)

	verrs, err := validation.Validate(ctx, body, installationLoginSchema())
	if err != nil {
		return nil, nil, httperrors.ErrInternal.WithCause(err)
	}
	if len(verrs) > 0 {
		return nil, verrs, nil
	}

	obj := body.(map[string]any)
	apiID, _ := obj["installation"].(string)
	nonce, _ := obj["nonce"].(string)
	date, _ := obj["date"].(string)
	authorization, _ := obj["authorization"].(string)

	inst, err := s.hmac.verify(ctx, apiID, nonce, date, authorization)
	if err != nil {
		metrics.RecordAuthAttempt(string(jwtx.AuthTypeInstallation), false)
		return nil, nil, err
	}

	token, err := s.deps.Codec.Issue(inst.APIID, jwtx.AuthTypeInstallation, s.deps.InstallationTokenTTL, nil)
	if err != nil {
		return nil, nil, httperrors.ErrInternal.WithCause(err)
	}

	metrics.RecordAuthAttempt(string(jwtx.AuthTypeInstallation), true)
	metrics.RecordTokenIssued(string(jwtx.AuthTypeInstallation))
	log.Info("installation authenticated", logger.InstallationID(inst.APIID))

	return &authdto.AuthResponse{
		Token:        token,
		Installation: installationsdto.NewInstallationResponse(inst),
	}, nil, nil
}
