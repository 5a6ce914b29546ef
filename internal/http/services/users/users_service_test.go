package users

import (
	"context"
	"errors"
	"testing"

	httperrors "github.com/BloodyDerby/biosentiers-backend/internal/http/errors"
	jwtx "github.com/BloodyDerby/biosentiers-backend/internal/jwt"
	"github.com/BloodyDerby/biosentiers-backend/internal/security/password"
	"github.com/BloodyDerby/biosentiers-backend/internal/store/core"
	storemem "github.com/BloodyDerby/biosentiers-backend/internal/store/memory"
)

func newTestService(t *testing.T) (Service, *storemem.Store) {
	t.Helper()
	store := storemem.New()
	svc := NewService(Deps{Users: store.Users(), BcryptCost: 4})
	return svc, store
}

func seedUser(t *testing.T, store *storemem.Store, email, plain string, role core.Role) *core.User {
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
		Active:       true,
		Role:         role,
	}
	if err := store.Users().Create(context.Background(), u); err != nil {
		t.Fatalf("create user: %v", err)
	}
	return u
}

func userActor(u *core.User) *Actor {
	return &Actor{
		Claims: &jwtx.Claims{Sub: u.APIID, AuthType: jwtx.AuthTypeUser},
		User:   u,
	}
}

func resetActor(u *core.User, count int) *Actor {
	return &Actor{
		Claims: &jwtx.Claims{
			Sub:                u.APIID,
			AuthType:           jwtx.AuthTypePasswordReset,
			PasswordResetCount: &count,
		},
	}
}

func TestCreateWithInvitationTakesIdentityFromToken(t *testing.T) {
	svc, store := newTestService(t)

	claims := &jwtx.Claims{
		Sub:       "invited@example.com",
		AuthType:  jwtx.AuthTypeInvitation,
		Email:     "invited@example.com",
		Role:      "user",
		FirstName: "Ada",
	}
	body := map[string]any{
		// El body intenta pisar el e-mail y el rol; el token debe ganar.
		"email":    "attacker@example.com",
		"role":     "admin",
		"lastName": "Lovelace",
		"password": "letmein",
	}

	resp, verrs, err := svc.Create(context.Background(), claims, body)
	if err != nil || len(verrs) > 0 {
		t.Fatalf("create: err=%v verrs=%v", err, verrs)
	}
	if resp.Email != "invited@example.com" {
		t.Fatalf("email = %q, want the invitation's", resp.Email)
	}
	if resp.Role != "user" {
		t.Fatalf("role = %q, want user", resp.Role)
	}
	if resp.FirstName != "Ada" || resp.LastName != "Lovelace" {
		t.Fatalf("names = %q %q", resp.FirstName, resp.LastName)
	}
	if !resp.Active {
		t.Fatal("invited accounts start active")
	}

	saved, err := store.Users().GetByEmail(context.Background(), "invited@example.com")
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if !password.Verify("letmein", saved.PasswordHash) {
		t.Fatal("password was not hashed and stored")
	}
}

func TestCreateValidatesTheWholeSchema(t *testing.T) {
	svc, store := newTestService(t)
	seedUser(t, store, "taken@example.com", "secret", core.RoleUser)

	body := map[string]any{
		"email":     "taken@example.com",
		"password":  "   ",
		"firstName": "x",
	}
	resp, verrs, err := svc.Create(context.Background(), nil, body)
	if err != nil || resp != nil {
		t.Fatalf("expected validation failure, got resp=%v err=%v", resp, err)
	}
	if es := verrs.At("/email"); len(es) != 1 || es[0].Validator != "user.emailAvailable" || es[0].Message != "is already taken" {
		t.Fatalf("unexpected /email errors: %v", es)
	}
	if es := verrs.At("/password"); len(es) != 1 || es[0].Validator != "notBlank" {
		t.Fatalf("unexpected /password errors: %v", es)
	}
	if es := verrs.At("/lastName"); len(es) != 1 || es[0].Validator != "required" {
		t.Fatalf("unexpected /lastName errors: %v", es)
	}
}

func TestUpdatePatchModeSkipsAbsentFields(t *testing.T) {
	svc, store := newTestService(t)
	u := seedUser(t, store, "jane.doe@example.com", "letmein", core.RoleUser)

	// Solo firstName presente: nada más debe validarse ni cambiar.
	body := map[string]any{"firstName": "Janet"}
	resp, verrs, err := svc.Update(context.Background(), userActor(u), u.APIID, body)
	if err != nil || len(verrs) > 0 {
		t.Fatalf("update: err=%v verrs=%v", err, verrs)
	}
	if resp.FirstName != "Janet" || resp.LastName != "Doe" {
		t.Fatalf("unexpected names: %q %q", resp.FirstName, resp.LastName)
	}
}

func TestUpdatePatchModeStillValidatesPresentFields(t *testing.T) {
	svc, store := newTestService(t)
	u := seedUser(t, store, "jane.doe@example.com", "letmein", core.RoleUser)

	body := map[string]any{"firstName": "   "}
	_, verrs, err := svc.Update(context.Background(), userActor(u), u.APIID, body)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if es := verrs.At("/firstName"); len(es) != 1 || es[0].Validator != "notBlank" {
		t.Fatalf("unexpected errors: %v", verrs)
	}
}

func TestUpdatePasswordRequiresPreviousPassword(t *testing.T) {
	svc, store := newTestService(t)
	u := seedUser(t, store, "jane.doe@example.com", "letmein", core.RoleUser)

	// Sin previousPassword.
	body := map[string]any{"password": "newpass"}
	_, verrs, err := svc.Update(context.Background(), userActor(u), u.APIID, body)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if es := verrs.At("/previousPassword"); len(es) != 1 || es[0].Validator != "required" {
		t.Fatalf("unexpected errors: %v", verrs)
	}

	// Con previousPassword incorrecto.
	body = map[string]any{"password": "newpass", "previousPassword": "wrong"}
	_, verrs, err = svc.Update(context.Background(), userActor(u), u.APIID, body)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if es := verrs.At("/previousPassword"); len(es) != 1 || es[0].Validator != "user.previousPassword" {
		t.Fatalf("unexpected errors: %v", verrs)
	}

	// Con previousPassword correcto.
	body = map[string]any{"password": "newpass", "previousPassword": "letmein"}
	_, verrs, err = svc.Update(context.Background(), userActor(u), u.APIID, body)
	if err != nil || len(verrs) > 0 {
		t.Fatalf("update: err=%v verrs=%v", err, verrs)
	}

	saved, _ := store.Users().GetByAPIID(context.Background(), u.APIID)
	if !password.Verify("newpass", saved.PasswordHash) {
		t.Fatal("password was not changed")
	}
}

func TestAdminChangesPasswordWithoutPreviousPassword(t *testing.T) {
	svc, store := newTestService(t)
	admin := seedUser(t, store, "admin@example.com", "adminpass", core.RoleAdmin)
	u := seedUser(t, store, "jane.doe@example.com", "letmein", core.RoleUser)

	body := map[string]any{"password": "newpass"}
	_, verrs, err := svc.Update(context.Background(), userActor(admin), u.APIID, body)
	if err != nil || len(verrs) > 0 {
		t.Fatalf("update: err=%v verrs=%v", err, verrs)
	}

	saved, _ := store.Users().GetByAPIID(context.Background(), u.APIID)
	if !password.Verify("newpass", saved.PasswordHash) {
		t.Fatal("password was not changed")
	}
}

func TestAdminSuppliedPreviousPasswordIsStillChecked(t *testing.T) {
	svc, store := newTestService(t)
	admin := seedUser(t, store, "admin@example.com", "adminpass", core.RoleAdmin)
	u := seedUser(t, store, "jane.doe@example.com", "letmein", core.RoleUser)

	body := map[string]any{"password": "newpass", "previousPassword": "wrong"}
	_, verrs, err := svc.Update(context.Background(), userActor(admin), u.APIID, body)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if es := verrs.At("/previousPassword"); len(es) != 1 || es[0].Validator != "user.previousPassword" {
		t.Fatalf("unexpected errors: %v", verrs)
	}
}

func TestPasswordResetTokenChangesPasswordOnce(t *testing.T) {
	svc, store := newTestService(t)
	u := seedUser(t, store, "jane.doe@example.com", "letmein", core.RoleUser)

	actor := resetActor(u, u.PasswordResetCount)
	body := map[string]any{"password": "newpass"}
	_, verrs, err := svc.Update(context.Background(), actor, u.APIID, body)
	if err != nil || len(verrs) > 0 {
		t.Fatalf("reset: err=%v verrs=%v", err, verrs)
	}

	saved, _ := store.Users().GetByAPIID(context.Background(), u.APIID)
	if !password.Verify("newpass", saved.PasswordHash) {
		t.Fatal("password was not changed")
	}
	if saved.PasswordResetCount != u.PasswordResetCount+1 {
		t.Fatalf("passwordResetCount = %d, want %d", saved.PasswordResetCount, u.PasswordResetCount+1)
	}

	// El mismo token (mismo contador) ya no sirve.
	_, _, err = svc.Update(context.Background(), actor, u.APIID, map[string]any{"password": "again"})
	var apiErr *httperrors.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != httperrors.ErrInvalidAuthorization.Code {
		t.Fatalf("reused token error = %v, want %v", err, httperrors.ErrInvalidAuthorization)
	}

	saved2, _ := store.Users().GetByAPIID(context.Background(), u.APIID)
	if !password.Verify("newpass", saved2.PasswordHash) {
		t.Fatal("rejected reuse must not change the password")
	}
}

func TestPasswordResetTokenWithStaleCounterIsRejected(t *testing.T) {
	svc, store := newTestService(t)
	u := seedUser(t, store, "jane.doe@example.com", "letmein", core.RoleUser)

	// Invalidación explícita: el contador persistido avanza.
	if _, err := store.Users().IncrementPasswordResetCount(context.Background(), u.ID); err != nil {
		t.Fatalf("bump counter: %v", err)
	}

	actor := resetActor(u, 0)
	_, _, err := svc.Update(context.Background(), actor, u.APIID, map[string]any{"password": "newpass"})
	var apiErr *httperrors.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != httperrors.ErrInvalidAuthorization.Code {
		t.Fatalf("error = %v, want %v", err, httperrors.ErrInvalidAuthorization)
	}
}

func TestUpdateForbiddenForOtherUsers(t *testing.T) {
	svc, store := newTestService(t)
	u := seedUser(t, store, "jane.doe@example.com", "letmein", core.RoleUser)
	other := seedUser(t, store, "john.doe@example.com", "letmein", core.RoleUser)

	_, _, err := svc.Update(context.Background(), userActor(other), u.APIID, map[string]any{"firstName": "X"})
	var apiErr *httperrors.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != httperrors.ErrForbidden.Code {
		t.Fatalf("error = %v, want forbidden", err)
	}
}

func TestOnlyAdminsChangeRoleAndActive(t *testing.T) {
	svc, store := newTestService(t)
	u := seedUser(t, store, "jane.doe@example.com", "letmein", core.RoleUser)

	body := map[string]any{"role": "admin", "active": false}
	resp, verrs, err := svc.Update(context.Background(), userActor(u), u.APIID, body)
	if err != nil || len(verrs) > 0 {
		t.Fatalf("update: err=%v verrs=%v", err, verrs)
	}
	if resp.Role != "user" || !resp.Active {
		t.Fatalf("non-admin escalated: role=%q active=%v", resp.Role, resp.Active)
	}

	admin := seedUser(t, store, "admin@example.com", "adminpass", core.RoleAdmin)
	resp, verrs, err = svc.Update(context.Background(), userActor(admin), u.APIID, body)
	if err != nil || len(verrs) > 0 {
		t.Fatalf("admin update: err=%v verrs=%v", err, verrs)
	}
	if resp.Role != "admin" || resp.Active {
		t.Fatalf("admin change not applied: role=%q active=%v", resp.Role, resp.Active)
	}
}

func TestGetHidesEmailFromStrangers(t *testing.T) {
	svc, store := newTestService(t)
	u := seedUser(t, store, "jane.doe@example.com", "letmein", core.RoleUser)
	other := seedUser(t, store, "john.doe@example.com", "letmein", core.RoleUser)

	resp, err := svc.Get(context.Background(), userActor(other), u.APIID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if resp.Email != "" {
		t.Fatalf("email leaked to stranger: %q", resp.Email)
	}

	resp, err = svc.Get(context.Background(), userActor(u), u.APIID)
	if err != nil {
		t.Fatalf("get self: %v", err)
	}
	if resp.Email != u.Email {
		t.Fatalf("self view misses email: %q", resp.Email)
	}
}

func TestEmailAvailable(t *testing.T) {
	svc, store := newTestService(t)
	seedUser(t, store, "jane.doe@example.com", "letmein", core.RoleUser)

	free, err := svc.EmailAvailable(context.Background(), "new@example.com")
	if err != nil || !free {
		t.Fatalf("free address: available=%v err=%v", free, err)
	}
	free, err = svc.EmailAvailable(context.Background(), "JANE.DOE@example.com")
	if err != nil || free {
		t.Fatalf("taken address: available=%v err=%v", free, err)
	}
}

