package core

import (
	"context"
	"time"
)

// Repository is the persistence boundary of the API. The auth core only ever
// needs "fetch principal", "compare secret" and "bump counter"; everything
// else is thin resource plumbing.
type Repository interface {
	Ping(ctx context.Context) error
	Close()

	Users() UserRepository
	Installations() InstallationRepository
	Excursions() ExcursionRepository
}

type UserRepository interface {
	// GetByEmail matches case-insensitively.
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByAPIID(ctx context.Context, apiID string) (*User, error)
	// List returns every account ordered by creation time, newest first.
	List(ctx context.Context) ([]*User, error)
	// EmailTaken reports whether another user already owns the address.
	EmailTaken(ctx context.Context, email, excludeID string) (bool, error)
	Create(ctx context.Context, u *User) error
	Update(ctx context.Context, u *User) error
	// SaveLogin increments the login counter and stamps lastLoginAt and
	// lastActiveAt in one transaction, returning the updated record.
	SaveLogin(ctx context.Context, id string, at time.Time) (*User, error)
	// IncrementPasswordResetCount bumps the monotonic counter that
	// invalidates outstanding password-reset tokens.
	IncrementPasswordResetCount(ctx context.Context, id string) (int, error)
}

type InstallationRepository interface {
	GetByAPIID(ctx context.Context, apiID string) (*Installation, error)
	Create(ctx context.Context, i *Installation) error
	Update(ctx context.Context, i *Installation) error
	// AddEvent records an event and bumps the installation's events counter
	// in the same transaction.
	AddEvent(ctx context.Context, e *InstallationEvent) error
}

type ExcursionRepository interface {
	GetByAPIID(ctx context.Context, apiID string) (*Excursion, error)
	ListByCreator(ctx context.Context, creatorID string) ([]*Excursion, error)
	List(ctx context.Context) ([]*Excursion, error)
	Create(ctx context.Context, e *Excursion) error
	Update(ctx context.Context, e *Excursion) error

	AddParticipant(ctx context.Context, p *Participant) error
	ListParticipants(ctx context.Context, excursionID string) ([]*Participant, error)
	RemoveParticipant(ctx context.Context, excursionID, apiID string) error
}
