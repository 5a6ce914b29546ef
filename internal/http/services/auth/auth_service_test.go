package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	cachemem "github.com/BloodyDerby/biosentiers-backend/internal/cache/memory"
	httperrors "github.com/BloodyDerby/biosentiers-backend/internal/http/errors"
	jwtx "github.com/BloodyDerby/biosentiers-backend/internal/jwt"
	"github.com/BloodyDerby/biosentiers-backend/internal/security/password"
	"github.com/BloodyDerby/biosentiers-backend/internal/security/signature"
	"github.com/BloodyDerby/biosentiers-backend/internal/store/core"
	storemem "github.com/BloodyDerby/biosentiers-backend/internal/store/memory"
)

var testSecret = []byte("test-signing-secret")

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func newTestService(t *testing.T, now time.Time) (Service, *storemem.Store) {
	t.Helper()
	store := storemem.New()
	svc := NewService(Deps{
		Store: store,
		Codec: jwtx.NewCodec(testSecret).WithClock(fixedClock(now)),
		Cache: cachemem.New(10 * time.Minute),
		Now:   fixedClock(now),
	})
	return svc, store
}

func seedUser(t *testing.T, store *storemem.Store, email, plain string, active bool) *core.User {
	t.Helper()
	hash, err := password.Hash(plain, 4)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	u := &core.User{
		APIID:        "u-" + email,
		Email:        email,
		PasswordHash: hash,
		FirstName:    "Jane",
		LastName:     "Doe",
		Active:       active,
		Role:         core.RoleUser,
	}
	if err := store.Users().Create(context.Background(), u); err != nil {
		t.Fatalf("create user: %v", err)
	}
	return u
}

func seedInstallation(t *testing.T, store *storemem.Store, apiID string, secret []byte, active bool) *core.Installation {
	t.Helper()
	inst := &core.Installation{
		APIID:        apiID,
		SharedSecret: secret,
		Properties:   map[string]any{"foo": "bar"},
		Active:       active,
	}
	if err := store.Installations().Create(context.Background(), inst); err != nil {
		t.Fatalf("create installation: %v", err)
	}
	return inst
}

func signedBody(apiID string, secret []byte, nonce string, at time.Time) map[string]any {
	date := at.UTC().Format(time.RFC3339)
	return map[string]any{
		"installation":  apiID,
		"nonce":         nonce,
		"date":          date,
		"authorization": signature.Compute(secret, apiID, nonce, date),
	}
}

func TestAuthenticateUser(t *testing.T) {
	now := time.Date(2016, 10, 10, 12, 0, 0, 0, time.UTC)
	svc, store := newTestService(t, now)
	seedUser(t, store, "jane.doe@example.com", "letmein", true)

	body := map[string]any{"email": "jane.doe@example.com", "password": "letmein"}
	resp, verrs, err := svc.Authenticate(context.Background(), body)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(verrs) > 0 {
		t.Fatalf("unexpected validation errors: %v", verrs)
	}
	if resp.Token == "" {
		t.Fatal("expected a token")
	}
	if resp.Installation != nil {
		t.Fatal("user login must not carry an installation")
	}
	if resp.User == nil || resp.User.Email != "jane.doe@example.com" {
		t.Fatalf("unexpected user payload: %+v", resp.User)
	}

	claims, err := jwtx.NewCodec(testSecret).WithClock(fixedClock(now)).Verify(resp.Token)
	if err != nil {
		t.Fatalf("verify token: %v", err)
	}
	if claims.AuthType != jwtx.AuthTypeUser {
		t.Fatalf("authType = %q, want user", claims.AuthType)
	}
	if got := time.Duration(claims.Exp-claims.Iat) * time.Second; got != jwtx.UserTokenTTL {
		t.Fatalf("token lifetime = %v, want %v", got, jwtx.UserTokenTTL)
	}
}

func TestAuthenticateUserMatchesEmailCaseInsensitively(t *testing.T) {
	now := time.Date(2016, 10, 10, 12, 0, 0, 0, time.UTC)
	svc, store := newTestService(t, now)
	seedUser(t, store, "jane.doe@example.com", "letmein", true)

	body := map[string]any{"email": "Jane.DOE@example.com", "password": "letmein"}
	resp, verrs, err := svc.Authenticate(context.Background(), body)
	if err != nil || len(verrs) > 0 {
		t.Fatalf("authenticate: err=%v verrs=%v", err, verrs)
	}
	if resp.User == nil {
		t.Fatal("expected a user payload")
	}
}

func TestAuthenticateUserRecordsLogin(t *testing.T) {
	now := time.Date(2016, 10, 10, 12, 0, 0, 0, time.UTC)
	svc, store := newTestService(t, now)
	u := seedUser(t, store, "jane.doe@example.com", "letmein", true)

	body := map[string]any{"email": u.Email, "password": "letmein"}
	if _, _, err := svc.Authenticate(context.Background(), body); err != nil {
		t.Fatalf("authenticate: %v", err)
	}

	saved, err := store.Users().GetByAPIID(context.Background(), u.APIID)
	if err != nil {
		t.Fatalf("reload user: %v", err)
	}
	if saved.LoginCount != 1 {
		t.Fatalf("loginCount = %d, want 1", saved.LoginCount)
	}
	if saved.LastLoginAt == nil || !saved.LastLoginAt.Equal(now) {
		t.Fatalf("lastLoginAt = %v, want %v", saved.LastLoginAt, now)
	}
	if saved.LastActiveAt == nil || !saved.LastActiveAt.Equal(now) {
		t.Fatalf("lastActiveAt = %v, want %v", saved.LastActiveAt, now)
	}
}

func TestAuthenticateUserFailures(t *testing.T) {
	now := time.Date(2016, 10, 10, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		email string
		plain string
		seed  func(t *testing.T, store *storemem.Store)
		want  *httperrors.APIError
	}{
		{
			name:  "unknown user",
			email: "nobody@example.com",
			plain: "letmein",
			seed:  func(*testing.T, *storemem.Store) {},
			want:  httperrors.ErrInvalidUser,
		},
		{
			name:  "inactive user",
			email: "jane.doe@example.com",
			plain: "letmein",
			seed: func(t *testing.T, store *storemem.Store) {
				seedUser(t, store, "jane.doe@example.com", "letmein", false)
			},
			want: httperrors.ErrInvalidUser,
		},
		{
			name:  "wrong password",
			email: "jane.doe@example.com",
			plain: "changeme",
			seed: func(t *testing.T, store *storemem.Store) {
				seedUser(t, store, "jane.doe@example.com", "letmein", true)
			},
			want: httperrors.ErrInvalidCredentials,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, store := newTestService(t, now)
			tt.seed(t, store)

			body := map[string]any{"email": tt.email, "password": tt.plain}
			resp, verrs, err := svc.Authenticate(context.Background(), body)
			if resp != nil || len(verrs) > 0 {
				t.Fatalf("expected auth failure, got resp=%v verrs=%v", resp, verrs)
			}
			var apiErr *httperrors.APIError
			if !errors.As(err, &apiErr) || apiErr.Code != tt.want.Code || apiErr.Message != tt.want.Message {
				t.Fatalf("error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestAuthenticateUserRejectionLeavesCountersUntouched(t *testing.T) {
	now := time.Date(2016, 10, 10, 12, 0, 0, 0, time.UTC)
	svc, store := newTestService(t, now)
	u := seedUser(t, store, "jane.doe@example.com", "letmein", true)

	body := map[string]any{"email": u.Email, "password": "wrong"}
	if _, _, err := svc.Authenticate(context.Background(), body); err == nil {
		t.Fatal("expected an auth failure")
	}

	saved, err := store.Users().GetByAPIID(context.Background(), u.APIID)
	if err != nil {
		t.Fatalf("reload user: %v", err)
	}
	if saved.LoginCount != 0 || saved.LastLoginAt != nil || saved.LastActiveAt != nil {
		t.Fatalf("rejected login mutated the account: %+v", saved)
	}
}

func TestAuthenticateUserValidation(t *testing.T) {
	now := time.Date(2016, 10, 10, 12, 0, 0, 0, time.UTC)
	svc, _ := newTestService(t, now)

	resp, verrs, err := svc.Authenticate(context.Background(), map[string]any{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp != nil {
		t.Fatal("expected no response")
	}
	if len(verrs) != 2 {
		t.Fatalf("got %d validation errors, want 2: %v", len(verrs), verrs)
	}
	for _, loc := range []string{"/email", "/password"} {
		es := verrs.At(loc)
		if len(es) != 1 || es[0].Validator != "required" || es[0].Message != "is required" {
			t.Fatalf("unexpected errors at %s: %v", loc, es)
		}
	}
}

func TestAuthenticateInstallation(t *testing.T) {
	now := time.Date(2016, 10, 10, 12, 0, 0, 0, time.UTC)
	secret := []byte("shared-installation-secret")
	svc, store := newTestService(t, now)
	seedInstallation(t, store, "inst-1", secret, true)

	body := signedBody("inst-1", secret, "nonce-1", now)
	resp, verrs, err := svc.Authenticate(context.Background(), body)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(verrs) > 0 {
		t.Fatalf("unexpected validation errors: %v", verrs)
	}
	if resp.User != nil {
		t.Fatal("installation login must not carry a user")
	}
	if resp.Installation == nil || resp.Installation.ID != "inst-1" {
		t.Fatalf("unexpected installation payload: %+v", resp.Installation)
	}

	claims, err := jwtx.NewCodec(testSecret).WithClock(fixedClock(now)).Verify(resp.Token)
	if err != nil {
		t.Fatalf("verify token: %v", err)
	}
	if claims.AuthType != jwtx.AuthTypeInstallation {
		t.Fatalf("authType = %q, want installation", claims.AuthType)
	}
	if got := time.Duration(claims.Exp-claims.Iat) * time.Second; got != jwtx.InstallationTokenTTL {
		t.Fatalf("token lifetime = %v, want %v", got, jwtx.InstallationTokenTTL)
	}
}

func TestInstallationKeySelectsHMACVariant(t *testing.T) {
	// Aun con email y password presentes, la clave installation manda.
	now := time.Date(2016, 10, 10, 12, 0, 0, 0, time.UTC)
	svc, store := newTestService(t, now)
	seedUser(t, store, "jane.doe@example.com", "letmein", true)

	body := map[string]any{
		"email":        "jane.doe@example.com",
		"password":     "letmein",
		"installation": "ghost",
	}
	_, verrs, err := svc.Authenticate(context.Background(), body)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// La variante HMAC exige nonce, date y authorization.
	if len(verrs) != 3 {
		t.Fatalf("got %d validation errors, want 3: %v", len(verrs), verrs)
	}
	for _, loc := range []string{"/nonce", "/date", "/authorization"} {
		if len(verrs.At(loc)) != 1 {
			t.Fatalf("expected an error at %s: %v", loc, verrs)
		}
	}
}

func TestAuthenticateInstallationFailures(t *testing.T) {
	now := time.Date(2016, 10, 10, 12, 0, 0, 0, time.UTC)
	secret := []byte("shared-installation-secret")

	tests := []struct {
		name string
		body func(t *testing.T, store *storemem.Store) map[string]any
		want *httperrors.APIError
	}{
		{
			name: "unknown installation",
			body: func(*testing.T, *storemem.Store) map[string]any {
				return signedBody("ghost", secret, "n", now)
			},
			want: httperrors.ErrInvalidInstallation,
		},
		{
			name: "inactive installation",
			body: func(t *testing.T, store *storemem.Store) map[string]any {
				seedInstallation(t, store, "inst-off", secret, false)
				return signedBody("inst-off", secret, "n", now)
			},
			want: httperrors.ErrInvalidInstallation,
		},
		{
			name: "wrong secret",
			body: func(t *testing.T, store *storemem.Store) map[string]any {
				seedInstallation(t, store, "inst-1", secret, true)
				return signedBody("inst-1", []byte("not-the-secret"), "n", now)
			},
			want: httperrors.ErrInvalidInstallationAuth,
		},
		{
			name: "tampered signature",
			body: func(t *testing.T, store *storemem.Store) map[string]any {
				seedInstallation(t, store, "inst-1", secret, true)
				b := signedBody("inst-1", secret, "n", now)
				auth := b["authorization"].(string)
				b["authorization"] = auth[:len(auth)-1] + "0"
				if b["authorization"] == auth {
					b["authorization"] = auth[:len(auth)-1] + "1"
				}
				return b
			},
			want: httperrors.ErrInvalidInstallationAuth,
		},
		{
			name: "stale date",
			body: func(t *testing.T, store *storemem.Store) map[string]any {
				seedInstallation(t, store, "inst-1", secret, true)
				return signedBody("inst-1", secret, "n", now.Add(-6*time.Minute))
			},
			want: httperrors.ErrInvalidInstallationAuth,
		},
		{
			name: "future date beyond leeway",
			body: func(t *testing.T, store *storemem.Store) map[string]any {
				seedInstallation(t, store, "inst-1", secret, true)
				return signedBody("inst-1", secret, "n", now.Add(2*time.Minute))
			},
			want: httperrors.ErrInvalidInstallationAuth,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, store := newTestService(t, now)
			body := tt.body(t, store)

			resp, verrs, err := svc.Authenticate(context.Background(), body)
			if resp != nil || len(verrs) > 0 {
				t.Fatalf("expected auth failure, got resp=%v verrs=%v", resp, verrs)
			}
			var apiErr *httperrors.APIError
			if !errors.As(err, &apiErr) || apiErr.Code != tt.want.Code || apiErr.Message != tt.want.Message {
				t.Fatalf("error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestAuthenticateInstallationWindowEdges(t *testing.T) {
	now := time.Date(2016, 10, 10, 12, 0, 0, 0, time.UTC)
	secret := []byte("shared-installation-secret")
	svc, store := newTestService(t, now)
	seedInstallation(t, store, "inst-1", secret, true)

	// Borde pasado incluido.
	body := signedBody("inst-1", secret, "edge-past", now.Add(-5*time.Minute))
	if _, _, err := svc.Authenticate(context.Background(), body); err != nil {
		t.Fatalf("date exactly 5 minutes old should pass: %v", err)
	}

	// Futuro dentro de la tolerancia de reloj.
	body = signedBody("inst-1", secret, "edge-future", now.Add(20*time.Second))
	if _, _, err := svc.Authenticate(context.Background(), body); err != nil {
		t.Fatalf("slightly future date should pass: %v", err)
	}
}

func TestAuthenticateInstallationRejectsNonceReplay(t *testing.T) {
	now := time.Date(2016, 10, 10, 12, 0, 0, 0, time.UTC)
	secret := []byte("shared-installation-secret")
	svc, store := newTestService(t, now)
	seedInstallation(t, store, "inst-1", secret, true)

	body := signedBody("inst-1", secret, "once", now)
	if _, _, err := svc.Authenticate(context.Background(), body); err != nil {
		t.Fatalf("first use: %v", err)
	}

	_, _, err := svc.Authenticate(context.Background(), body)
	var apiErr *httperrors.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != "auth.invalidCredentials" {
		t.Fatalf("replay error = %v, want auth.invalidCredentials", err)
	}

	// Otro nonce de la misma instalación sigue siendo válido.
	body = signedBody("inst-1", secret, "twice", now)
	if _, _, err := svc.Authenticate(context.Background(), body); err != nil {
		t.Fatalf("fresh nonce after replay: %v", err)
	}
}

func TestAuthenticateInstallationValidation(t *testing.T) {
	now := time.Date(2016, 10, 10, 12, 0, 0, 0, time.UTC)
	svc, _ := newTestService(t, now)

	body := map[string]any{
		"installation":  "inst-1",
		"nonce":         "   ",
		"date":          "foo",
		"authorization": 42,
	}
	resp, verrs, err := svc.Authenticate(context.Background(), body)
	if err != nil || resp != nil {
		t.Fatalf("expected validation failure, got resp=%v err=%v", resp, err)
	}
	if len(verrs) != 3 {
		t.Fatalf("got %d validation errors, want 3: %v", len(verrs), verrs)
	}
	if es := verrs.At("/nonce"); len(es) != 1 || es[0].Validator != "notBlank" {
		t.Fatalf("unexpected /nonce errors: %v", es)
	}
	if es := verrs.At("/date"); len(es) != 1 || es[0].Validator != "iso8601" {
		t.Fatalf("unexpected /date errors: %v", es)
	}
	if es := verrs.At("/authorization"); len(es) != 1 || es[0].Validator != "type" {
		t.Fatalf("unexpected /authorization errors: %v", es)
	}
}
