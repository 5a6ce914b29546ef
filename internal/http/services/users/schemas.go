package users

import (
	"context"
	"errors"
	"strings"

	jwtx "github.com/BloodyDerby/biosentiers-backend/internal/jwt"
	"github.com/BloodyDerby/biosentiers-backend/internal/security/password"
	"github.com/BloodyDerby/biosentiers-backend/internal/store/core"
	"github.com/BloodyDerby/biosentiers-backend/internal/validation"
)

// userSchema arma el esquema de cuentas. En patch mode los campos solo se
// validan cuando están presentes en el body. target es la cuenta editada
// (nil al crear); actor decide las reglas de previousPassword.
func (s *service) userSchema(patchMode bool, target *core.User, actor *Actor) *validation.Rule {
	roles := make([]any, 0, len(core.Roles))
	for _, r := range core.Roles {
		roles = append(roles, string(r))
	}

	excludeID := ""
	if target != nil {
		excludeID = target.ID
	}

	patchGate := func() *validation.Rule {
		return validation.If(validation.When(patchMode),
			validation.While(validation.IsSet()), nil)
	}

	return validation.Parallel(
		validation.Field("/firstName",
			patchGate(),
			validation.Required(),
			validation.Type("string"),
			validation.NotBlank(),
			validation.StringLength(1, 20),
		),
		validation.Field("/lastName",
			patchGate(),
			validation.Required(),
			validation.Type("string"),
			validation.NotBlank(),
			validation.StringLength(1, 20),
		),
		validation.Field("/active",
			validation.While(validation.IsSet()),
			validation.Type("boolean"),
		),
		validation.Field("/email",
			patchGate(),
			validation.Required(),
			validation.Type("string"),
			validation.NotEmpty(),
			validation.Email(),
			validation.Custom(s.emailAvailable(excludeID)),
		),
		validation.Field("/password",
			patchGate(),
			validation.Required(),
			validation.Type("string"),
			validation.NotBlank(),
		),
		validation.Field("/role",
			validation.While(validation.IsSet()),
			validation.Type("string"),
			validation.Inclusion(roles...),
		),
		validation.If(previousPasswordNeeded(patchMode, actor),
			validation.Group(
				validation.Field("/previousPassword",
					validation.Required(),
					validation.Type("string"),
					validation.NotEmpty(),
				),
				validation.If(validation.HasNoError("/previousPassword"),
					validation.Field("/previousPassword",
						validation.Custom(previousPasswordMatches(target)),
					), nil),
			), nil),
	)
}

// previousPasswordNeeded decide si el cambio de password exige el password
// anterior: nunca con un token passwordReset, y los administradores solo
// cuando lo envían explícitamente.
func previousPasswordNeeded(patchMode bool, actor *Actor) validation.Predicate {
	return func(c *validation.Context) bool {
		if !patchMode || actor == nil || actor.Claims == nil {
			return false
		}
		obj, ok := c.Body().(map[string]any)
		if !ok {
			return false
		}
		_, passwordSet := obj["password"]
		if !passwordSet {
			return false
		}
		if actor.Claims.AuthType == jwtx.AuthTypePasswordReset {
			return false
		}
		_, previousSet := obj["previousPassword"]
		return !actor.IsAdmin() || previousSet
	}
}

// previousPasswordMatches verifica el password anterior contra el hash
// almacenado de la cuenta editada.
func previousPasswordMatches(target *core.User) validation.CheckFunc {
	return func(_ context.Context, c *validation.Context) error {
		previous, ok := c.Value().(string)
		if !ok || target == nil {
			return nil
		}
		if !password.Verify(previous, target.PasswordHash) {
			c.AddError("user.previousPassword", "is incorrect")
		}
		return nil
	}
}

// emailAvailable rechaza direcciones que ya pertenecen a otra cuenta.
func (s *service) emailAvailable(excludeID string) validation.CheckFunc {
	return func(ctx context.Context, c *validation.Context) error {
		address, ok := c.Value().(string)
		if !ok || strings.TrimSpace(address) == "" {
			return nil
		}
		taken, err := s.deps.Users.EmailTaken(ctx, strings.ToLower(address), excludeID)
		if err != nil && !errors.Is(err, core.ErrNotFound) {
			return err
		}
		if taken {
			c.AddError("user.emailAvailable", "is already taken")
		}
		return nil
	}
}
