// Package users contiene DTOs para los endpoints de usuarios.
package users

import (
	"time"

	"github.com/BloodyDerby/biosentiers-backend/internal/store/core"
)

// UserResponse es la representación pública de un usuario. El e-mail solo se
// incluye para el propio usuario o para administradores.
type UserResponse struct {
	ID           string     `json:"id"`
	Email        string     `json:"email,omitempty"`
	FirstName    string     `json:"firstName"`
	LastName     string     `json:"lastName"`
	Active       bool       `json:"active"`
	Role         string     `json:"role"`
	LoginCount   int        `json:"loginCount"`
	LastLoginAt  *time.Time `json:"lastLoginAt,omitempty"`
	LastActiveAt *time.Time `json:"lastActiveAt,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

// NewUserResponse serializa un usuario. withEmail controla la visibilidad
// del e-mail según la política del caller.
func NewUserResponse(u *core.User, withEmail bool) *UserResponse {
	resp := &UserResponse{
		ID:           u.APIID,
		FirstName:    u.FirstName,
		LastName:     u.LastName,
		Active:       u.Active,
		Role:         string(u.Role),
		LoginCount:   u.LoginCount,
		LastLoginAt:  u.LastLoginAt,
		LastActiveAt: u.LastActiveAt,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
	if withEmail {
		resp.Email = u.Email
	}
	return resp
}

// NewUserResponses serializa una lista de usuarios con la misma política.
func NewUserResponses(users []*core.User, withEmail bool) []*UserResponse {
	out := make([]*UserResponse, 0, len(users))
	for _, u := range users {
		out = append(out, NewUserResponse(u, withEmail))
	}
	return out
}

// EmailAvailableResponse es la respuesta del chequeo de disponibilidad de
// e-mail.
type EmailAvailableResponse struct {
	Email     string `json:"email"`
	Available bool   `json:"available"`
}
