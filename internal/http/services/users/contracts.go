// Package users implementa el ciclo de vida de cuentas: registro por
// invitación, consulta, actualización parcial y cambio de password.
package users

import (
	"context"

	usersdto "github.com/BloodyDerby/biosentiers-backend/internal/http/dto/users"
	jwtx "github.com/BloodyDerby/biosentiers-backend/internal/jwt"
	"github.com/BloodyDerby/biosentiers-backend/internal/store/core"
	"github.com/BloodyDerby/biosentiers-backend/internal/validation"
)

// Actor es el principal que ejecuta la operación: las claims verificadas y,
// cuando el token refiere a una cuenta, el usuario cargado del store.
type Actor struct {
	Claims *jwtx.Claims
	User   *core.User
}

// IsAdmin reporta si el actor es un administrador autenticado.
func (a *Actor) IsAdmin() bool {
	return a != nil && a.User != nil && a.User.HasRole(core.RoleAdmin)
}

// Service expone las operaciones de cuentas de usuario.
type Service interface {
	// Create registra una cuenta. Con un token de invitación, el e-mail y
	// el rol vienen del token y no del body.
	Create(ctx context.Context, claims *jwtx.Claims, body any) (*usersdto.UserResponse, validation.Errors, error)
	List(ctx context.Context, actor *Actor) ([]*usersdto.UserResponse, error)
	Get(ctx context.Context, actor *Actor, apiID string) (*usersdto.UserResponse, error)
	// Update aplica un patch: solo las claves presentes se validan y
	// escriben. Un token passwordReset solo puede cambiar el password y se
	// invalida al usarse.
	Update(ctx context.Context, actor *Actor, apiID string, body any) (*usersdto.UserResponse, validation.Errors, error)
	// EmailAvailable reporta si una dirección está libre.
	EmailAvailable(ctx context.Context, address string) (bool, error)
}
