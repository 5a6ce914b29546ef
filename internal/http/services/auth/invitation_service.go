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

// DefaultInvitationTTL es la validez por defecto de una invitación.
const DefaultInvitationTTL = 2 * 24 * time.Hour

// InvitationDeps contiene las dependencias del servicio de invitaciones.
type InvitationDeps struct {
	Users  core.UserRepository
	Codec  *jwtx.Codec
	Mailer *email.Mailer
	TTL    time.Duration
}

type invitationService struct {
	deps InvitationDeps
}

// NewInvitationService crea el servicio de invitaciones.
func NewInvitationService(deps InvitationDeps) InvitationService {
	if deps.TTL == 0 {
		deps.TTL = DefaultInvitationTTL
	}
	return &invitationService{deps: deps}
}

func (s *invitationService) Invite(ctx context.Context, body any) (*authdto.InvitationResponse, validation.Errors, error) {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("auth"),
		logger.Op("Invite"),
	)

	roles := make([]any, 0, len(core.Roles))
	for _, r := range core.Roles {
		roles = append(roles, string(r))
	}

	verrs, err := validation.Validate(ctx, body,
		invitationSchema(s.emailAvailable, roles))
	if err != nil {
		return nil, nil, httperrors.ErrInternal.WithCause(err)
	}
	if len(verrs) > 0 {
		return nil, verrs, nil
	}

	obj := body.(map[string]any)
	address, _ := obj["email"].(string)
	address = strings.TrimSpace(strings.ToLower(address))
	role, _ := obj["role"].(string)
	if role == "" {
		role = string(core.RoleUser)
	}
	firstName, _ := obj["firstName"].(string)
	lastName, _ := obj["lastName"].(string)

	extra := map[string]any{"email": address, "role": role}
	if firstName != "" {
		extra["firstName"] = firstName
	}
	if lastName != "" {
		extra["lastName"] = lastName
	}

	// El subject es el propio e-mail: todavía no existe la cuenta.
	token, err := s.deps.Codec.Issue(address, jwtx.AuthTypeInvitation, s.deps.TTL, extra)
	if err != nil {
		return nil, nil, httperrors.ErrInternal.WithCause(err)
	}

	link, err := s.deps.Mailer.SendInvitation(address, firstName, role, token, s.deps.TTL)
	if err != nil {
		return nil, nil, httperrors.ErrInternal.WithCause(err)
	}

	metrics.RecordTokenIssued(string(jwtx.AuthTypeInvitation))
	log.Info("invitation sent", logger.String("email", address), logger.String("role", role))

	resp := &authdto.InvitationResponse{
		Email:     address,
		Role:      role,
		FirstName: firstName,
		LastName:  lastName,
	}
	if s.deps.Mailer.DebugEchoLinks {
		resp.Link = link
	}
	return resp, nil, nil
}

// emailAvailable rechaza direcciones ya registradas.
func (s *invitationService) emailAvailable(ctx context.Context, c *validation.Context) error {
	address, ok := c.Value().(string)
	if !ok || strings.TrimSpace(address) == "" {
		return nil
	}
	taken, err := s.deps.Users.EmailTaken(ctx, strings.ToLower(address), "")
	if err != nil && !errors.Is(err, core.ErrNotFound) {
		return err
	}
	if taken {
		c.AddError("user.emailAvailable", "is already taken")
	}
	return nil
}
