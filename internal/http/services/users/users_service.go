package users

import (
	"context"
	"errors"
	"strings"
	"time"

	usersdto "github.com/BloodyDerby/biosentiers-backend/internal/http/dto/users"
	httperrors "github.com/BloodyDerby/biosentiers-backend/internal/http/errors"
	jwtx "github.com/BloodyDerby/biosentiers-backend/internal/jwt"
	"github.com/BloodyDerby/biosentiers-backend/internal/observability/logger"
	"github.com/BloodyDerby/biosentiers-backend/internal/security/password"
	"github.com/BloodyDerby/biosentiers-backend/internal/store/core"
	"github.com/BloodyDerby/biosentiers-backend/internal/validation"
	"github.com/google/uuid"
)

// Deps contiene las dependencias del servicio de usuarios.
type Deps struct {
	Users      core.UserRepository
	BcryptCost int
	Now        func() time.Time
}

type service struct {
	deps Deps
}

// NewService crea el servicio de usuarios.
func NewService(deps Deps) Service {
	if deps.BcryptCost == 0 {
		deps.BcryptCost = password.DefaultCost
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &service{deps: deps}
}

func (s *service) Create(ctx context.Context, claims *jwtx.Claims, body any) (*usersdto.UserResponse, validation.Errors, error) {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("users"),
		logger.Op("Create"),
	)

	obj, ok := body.(map[string]any)
	if !ok {
		obj = map[string]any{}
		body = obj
	}

	invited := claims != nil && claims.AuthType == jwtx.AuthTypeInvitation
	if invited {
		// El token manda: la invitación fija e-mail, rol y activación.
		obj["active"] = true
		obj["email"] = claims.Email
		obj["role"] = claims.Role
		if _, set := obj["firstName"]; !set && claims.FirstName != "" {
			obj["firstName"] = claims.FirstName
		}
		if _, set := obj["lastName"]; !set && claims.LastName != "" {
			obj["lastName"] = claims.LastName
		}
	}

	verrs, err := validation.Validate(ctx, body, s.userSchema(false, nil, nil))
	if err != nil {
		return nil, nil, httperrors.ErrInternal.WithCause(err)
	}
	if len(verrs) > 0 {
		return nil, verrs, nil
	}

	email, _ := obj["email"].(string)
	plain, _ := obj["password"].(string)
	firstName, _ := obj["firstName"].(string)
	lastName, _ := obj["lastName"].(string)
	active, _ := obj["active"].(bool)
	role, _ := obj["role"].(string)
	if role == "" {
		role = string(core.RoleUser)
	}

	hash, err := password.Hash(plain, s.deps.BcryptCost)
	if err != nil {
		return nil, nil, httperrors.ErrInternal.WithCause(err)
	}

	user := &core.User{
		APIID:        uuid.NewString(),
		Email:        strings.TrimSpace(strings.ToLower(email)),
		PasswordHash: hash,
		FirstName:    firstName,
		LastName:     lastName,
		Active:       active,
		Role:         core.Role(role),
	}
	if err := s.deps.Users.Create(ctx, user); err != nil {
		return nil, nil, httperrors.ErrInternal.WithCause(err)
	}

	log.Info("user created", logger.UserID(user.APIID), logger.String("role", role))
	return usersdto.NewUserResponse(user, true), nil, nil
}

func (s *service) List(ctx context.Context, actor *Actor) ([]*usersdto.UserResponse, error) {
	if !actor.IsAdmin() {
		return nil, httperrors.ErrForbidden
	}
	list, err := s.deps.Users.List(ctx)
	if err != nil {
		return nil, httperrors.ErrInternal.WithCause(err)
	}
	return usersdto.NewUserResponses(list, true), nil
}

func (s *service) Get(ctx context.Context, actor *Actor, apiID string) (*usersdto.UserResponse, error) {
	target, err := s.deps.Users.GetByAPIID(ctx, apiID)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil, httperrors.ErrRecordNotFound
		}
		return nil, httperrors.ErrInternal.WithCause(err)
	}

	self := actor.User != nil && actor.User.APIID == target.APIID
	if !self && !actor.IsAdmin() {
		// Los perfiles ajenos se sirven sin e-mail.
		return usersdto.NewUserResponse(target, false), nil
	}
	return usersdto.NewUserResponse(target, true), nil
}

func (s *service) Update(ctx context.Context, actor *Actor, apiID string, body any) (*usersdto.UserResponse, validation.Errors, error) {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("users"),
		logger.Op("Update"),
		logger.UserID(apiID),
	)

	target, err := s.deps.Users.GetByAPIID(ctx, apiID)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil, nil, httperrors.ErrRecordNotFound
		}
		return nil, nil, httperrors.ErrInternal.WithCause(err)
	}

	resetToken := actor.Claims != nil && actor.Claims.AuthType == jwtx.AuthTypePasswordReset
	self := (actor.User != nil && actor.User.APIID == target.APIID) ||
		(resetToken && actor.Claims.Sub == target.APIID)
	if !self && !actor.IsAdmin() {
		return nil, nil, httperrors.ErrForbidden
	}

	verrs, err := validation.Validate(ctx, body, s.userSchema(true, target, actor))
	if err != nil {
		return nil, nil, httperrors.ErrInternal.WithCause(err)
	}
	if len(verrs) > 0 {
		return nil, verrs, nil
	}

	obj, _ := body.(map[string]any)

	if resetToken {
		// El contador del token debe coincidir con el persistido; cualquier
		// desajuste significa que el token ya fue usado o invalidado.
		count := actor.Claims.PasswordResetCount
		if count == nil || target.PasswordResetCount < 0 || *count != target.PasswordResetCount {
			log.Warn("password reset counter mismatch")
			return nil, nil, httperrors.ErrInvalidAuthorization
		}
		// Incrementar el contador mata este token y todos los anteriores.
		newCount, err := s.deps.Users.IncrementPasswordResetCount(ctx, target.ID)
		if err != nil {
			return nil, nil, httperrors.ErrInternal.WithCause(err)
		}
		target.PasswordResetCount = newCount
	} else {
		if v, ok := obj["firstName"].(string); ok {
			target.FirstName = v
		}
		if v, ok := obj["lastName"].(string); ok {
			target.LastName = v
		}
		if v, ok := obj["email"].(string); ok {
			target.Email = strings.TrimSpace(strings.ToLower(v))
		}
		if actor.IsAdmin() {
			if v, ok := obj["active"].(bool); ok {
				target.Active = v
			}
			if v, ok := obj["role"].(string); ok {
				target.Role = core.Role(v)
			}
		}
	}

	if plain, ok := obj["password"].(string); ok && plain != "" && s.passwordChangeAllowed(actor, target, obj) {
		hash, err := password.Hash(plain, s.deps.BcryptCost)
		if err != nil {
			return nil, nil, httperrors.ErrInternal.WithCause(err)
		}
		target.PasswordHash = hash
	}

	if err := s.deps.Users.Update(ctx, target); err != nil {
		return nil, nil, httperrors.ErrInternal.WithCause(err)
	}

	log.Info("user updated")
	return usersdto.NewUserResponse(target, true), nil, nil
}

// passwordChangeAllowed es un doble chequeo además de la validación: reset
// token, admin sin previousPassword, o previousPassword correcto.
func (s *service) passwordChangeAllowed(actor *Actor, target *core.User, obj map[string]any) bool {
	if actor.Claims != nil && actor.Claims.AuthType == jwtx.AuthTypePasswordReset {
		return true
	}
	previous, previousSet := obj["previousPassword"].(string)
	if actor.IsAdmin() && !previousSet {
		return true
	}
	return password.Verify(previous, target.PasswordHash)
}

func (s *service) EmailAvailable(ctx context.Context, address string) (bool, error) {
	address = strings.TrimSpace(strings.ToLower(address))
	if address == "" {
		return false, nil
	}
	taken, err := s.deps.Users.EmailTaken(ctx, address, "")
	if err != nil {
		return false, httperrors.ErrInternal.WithCause(err)
	}
	return !taken, nil
}
