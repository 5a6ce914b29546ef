package core

import "time"

// Role of a user account.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Roles lists the valid roles in ascending privilege order.
var Roles = []Role{RoleUser, RoleAdmin}

// ValidRole reports whether s names a known role.
func ValidRole(s string) bool {
	for _, r := range Roles {
		if string(r) == s {
			return true
		}
	}
	return false
}

// User is a human account. PasswordHash is a bcrypt hash and never leaves the
// store layer. PasswordResetCount is monotonic; bumping it invalidates every
// outstanding password-reset token.
type User struct {
	ID           string // internal uuid
	APIID        string // external identifier (token subject)
	Email        string
	PasswordHash string
	FirstName    string
	LastName     string
	Active       bool
	Role         Role

	LoginCount         int
	LastLoginAt        *time.Time
	LastActiveAt       *time.Time
	PasswordResetCount int

	CreatedAt time.Time
	UpdatedAt time.Time
}

// HasRole reports whether the user holds at least the given role.
func (u *User) HasRole(role Role) bool {
	if u.Role == RoleAdmin {
		return true
	}
	return u.Role == role
}

// Installation is an unattended field device. SharedSecret is issued once and
// never serialized in responses.
type Installation struct {
	ID           string
	APIID        string
	SharedSecret []byte
	Properties   map[string]any
	EventsCount  int
	Active       bool

	CreatedAt      time.Time
	UpdatedAt      time.Time
	FirstStartedAt *time.Time
}

// InstallationEvent is one report from a device.
type InstallationEvent struct {
	ID             string
	APIID          string
	InstallationID string
	Type           string
	Version        string
	Properties     map[string]any
	OccurredAt     time.Time
	CreatedAt      time.Time
}

// Excursion is a planned outing on a trail.
type Excursion struct {
	ID        string
	APIID     string
	CreatorID string
	Name      string
	TrailName string
	PlannedAt time.Time
	Themes    []string
	Zones     []int

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Participant of an excursion. APIIDs are short and unique per excursion.
type Participant struct {
	ID          string
	APIID       string
	ExcursionID string
	Name        string
	CreatedAt   time.Time
}
