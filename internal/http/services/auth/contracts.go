// Package auth implementa la autenticación dual de la API: credenciales de
// usuario (e-mail y password) e instalaciones firmando con HMAC.
package auth

import (
	"context"

	authdto "github.com/BloodyDerby/biosentiers-backend/internal/http/dto/auth"
	"github.com/BloodyDerby/biosentiers-backend/internal/validation"
)

// Service autentica principals y emite tokens.
type Service interface {
	// Authenticate procesa POST /api/auth. El body se clasifica por la
	// presencia de la clave "installation": si está, variante HMAC; si no,
	// variante e-mail/password. Devuelve errores de validación (422) o un
	// error de autenticación (401); nunca ambos.
	Authenticate(ctx context.Context, body any) (*authdto.AuthResponse, validation.Errors, error)
}

// InvitationService emite invitaciones por e-mail para crear cuentas.
type InvitationService interface {
	Invite(ctx context.Context, body any) (*authdto.InvitationResponse, validation.Errors, error)
}

// PasswordResetService emite tokens de reseteo de password por e-mail.
type PasswordResetService interface {
	RequestReset(ctx context.Context, body any) (*authdto.PasswordResetResponse, validation.Errors, error)
}
