// Package jwt signs and verifies the compact tokens issued by the API.
// Tokens are stateless and self-verifying; invalidation works only through
// embedded monotonic counters re-checked against the store at use time.
package jwt

import (
	"errors"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"
)

// AuthType distingue los tipos de token emitidos por la API.
type AuthType string

const (
	AuthTypeUser          AuthType = "user"
	AuthTypeInstallation  AuthType = "installation"
	AuthTypeInvitation    AuthType = "invitation"
	AuthTypePasswordReset AuthType = "passwordReset"
)

// TTL policy per auth type.
const (
	UserTokenTTL         = 14 * 24 * time.Hour
	InstallationTokenTTL = 24 * time.Hour
)

// ErrInvalidToken covers every verification failure: bad signature, malformed
// structure or elapsed expiry. Callers get no hint of which check failed.
var ErrInvalidToken = errors.New("invalid token")

// Claims are the verified contents of a token.
type Claims struct {
	Sub      string
	AuthType AuthType
	Iat      int64
	Exp      int64

	// Invitation extras.
	Email     string
	Role      string
	FirstName string
	LastName  string

	// PasswordReset extra; nil when absent.
	PasswordResetCount *int
}

// Codec firma y verifica tokens con un secreto simétrico único del servidor,
// inyectado al inicio y nunca mutado.
type Codec struct {
	secret []byte
	now    func() time.Time
}

// NewCodec crea un codec con el secreto de firma del servidor.
func NewCodec(secret []byte) *Codec {
	return &Codec{secret: secret, now: time.Now}
}

// WithClock reemplaza la fuente de tiempo (tests).
func (c *Codec) WithClock(now func() time.Time) *Codec {
	c.now = now
	return c
}

// Issue mints a signed token for a subject. Extra claims (invitation profile,
// password reset counter) are merged on top of the standard set.
func (c *Codec) Issue(sub string, authType AuthType, ttl time.Duration, extra map[string]any) (string, error) {
	now := c.now().UTC()

	claims := jwtv5.MapClaims{
		"authType": string(authType),
		"sub":      sub,
		"iat":      now.Unix(),
		"exp":      now.Add(ttl).Unix(),
	}
	for k, v := range extra {
		claims[k] = v
	}

	tk := jwtv5.NewWithClaims(jwtv5.SigningMethodHS256, claims)
	return tk.SignedString(c.secret)
}

// Verify checks signature, structure and expiry, and extracts the claims.
func (c *Codec) Verify(raw string) (*Claims, error) {
	tok, err := jwtv5.Parse(raw,
		func(*jwtv5.Token) (any, error) { return c.secret, nil },
		jwtv5.WithValidMethods([]string{"HS256"}),
		jwtv5.WithTimeFunc(c.now),
	)
	if err != nil || !tok.Valid {
		return nil, ErrInvalidToken
	}

	mc, ok := tok.Claims.(jwtv5.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}

	out := &Claims{}
	out.Sub, _ = mc["sub"].(string)
	if at, _ := mc["authType"].(string); at != "" {
		out.AuthType = AuthType(at)
	}
	if out.Sub == "" || out.AuthType == "" {
		return nil, ErrInvalidToken
	}
	if iat, ok := mc["iat"].(float64); ok {
		out.Iat = int64(iat)
	}
	if exp, ok := mc["exp"].(float64); ok {
		out.Exp = int64(exp)
	} else {
		// Tokens without an expiry are never accepted.
		return nil, ErrInvalidToken
	}

	out.Email, _ = mc["email"].(string)
	out.Role, _ = mc["role"].(string)
	out.FirstName, _ = mc["firstName"].(string)
	out.LastName, _ = mc["lastName"].(string)
	if prc, ok := mc["passwordResetCount"].(float64); ok {
		n := int(prc)
		out.PasswordResetCount = &n
	}

	return out, nil
}
