// Package auth contiene DTOs para el endpoint de autenticación.
package auth

import (
	installationsdto "github.com/BloodyDerby/biosentiers-backend/internal/http/dto/installations"
	usersdto "github.com/BloodyDerby/biosentiers-backend/internal/http/dto/users"
)

// AuthResponse es la respuesta 201 de POST /api/auth. Según la variante,
// incluye el usuario o la instalación autenticada.
type AuthResponse struct {
	Token        string                                 `json:"token"`
	User         *usersdto.UserResponse                 `json:"user,omitempty"`
	Installation *installationsdto.InstallationResponse `json:"installation,omitempty"`
}

// InvitationResponse es la respuesta de POST /api/auth/invitation.
type InvitationResponse struct {
	Email     string `json:"email"`
	Role      string `json:"role"`
	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`
	// Link solo se incluye cuando el mailer corre en modo eco (desarrollo).
	Link string `json:"link,omitempty"`
}

// PasswordResetResponse es la respuesta de POST /api/auth/passwordReset.
type PasswordResetResponse struct {
	Email string `json:"email"`
	Link  string `json:"link,omitempty"`
}
