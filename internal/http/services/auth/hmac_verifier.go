package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/BloodyDerby/biosentiers-backend/internal/cache"
	httperrors "github.com/BloodyDerby/biosentiers-backend/internal/http/errors"
	"github.com/BloodyDerby/biosentiers-backend/internal/observability/logger"
	"github.com/BloodyDerby/biosentiers-backend/internal/security/signature"
	"github.com/BloodyDerby/biosentiers-backend/internal/store/core"
	"github.com/BloodyDerby/biosentiers-backend/internal/validation"
)

// Ventana de frescura por defecto para requests firmados.
const (
	DefaultStalenessWindow = 5 * time.Minute
	DefaultClockLeeway     = 30 * time.Second
)

// hmacVerifier autentica instalaciones por firma HMAC del triple
// installation;nonce;date.
type hmacVerifier struct {
	installations core.InstallationRepository
	nonces        cache.Cache
	window        time.Duration
	leeway        time.Duration
	now           func() time.Time
}

// verify devuelve la instalación autenticada. Todos los fallos posteriores a
// encontrar la instalación (fecha vieja, fecha futura, firma incorrecta,
// nonce repetido) responden con el mismo error para no revelar la causa.
func (v *hmacVerifier) verify(ctx context.Context, apiID, nonce, date, authorization string) (*core.Installation, error) {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("auth"),
		logger.Op("verifySignature"),
		logger.InstallationID(apiID),
	)

	inst, err := v.installations.GetByAPIID(ctx, apiID)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			log.Debug("installation not found")
			return nil, httperrors.ErrInvalidInstallation
		}
		return nil, httperrors.ErrInternal.WithCause(err)
	}
	if !inst.Active {
		log.Debug("installation inactive")
		return nil, httperrors.ErrInvalidInstallation
	}

	// La fecha ya pasó el validador iso8601; acá solo se evalúa frescura.
	at, err := validation.ParseISO8601(date)
	if err != nil {
		return nil, httperrors.ErrInvalidInstallationAuth
	}
	now := v.now()
	if at.Before(now.Add(-v.window)) || at.After(now.Add(v.leeway)) {
		log.Debug("signed date outside the accepted window")
		return nil, httperrors.ErrInvalidInstallationAuth
	}

	if !signature.Verify(inst.SharedSecret, apiID, nonce, date, authorization) {
		log.Debug("signature mismatch")
		return nil, httperrors.ErrInvalidInstallationAuth
	}

	// El nonce se consume solo después de verificar la firma, para que un
	// tercero no pueda quemar nonces ajenos.
	key := fmt.Sprintf("nonce:%s:%s", apiID, nonce)
	if !v.nonces.Add(ctx, key, []byte{1}, v.window+v.leeway) {
		log.Debug("nonce already used")
		return nil, httperrors.ErrInvalidInstallationAuth
	}

	return inst, nil
}
