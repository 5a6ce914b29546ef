package router

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	cachemem "github.com/BloodyDerby/biosentiers-backend/internal/cache/memory"
	"github.com/BloodyDerby/biosentiers-backend/internal/email"
	authctrl "github.com/BloodyDerby/biosentiers-backend/internal/http/controllers/auth"
	excursionsctrl "github.com/BloodyDerby/biosentiers-backend/internal/http/controllers/excursions"
	healthctrl "github.com/BloodyDerby/biosentiers-backend/internal/http/controllers/health"
	installationsctrl "github.com/BloodyDerby/biosentiers-backend/internal/http/controllers/installations"
	usersctrl "github.com/BloodyDerby/biosentiers-backend/internal/http/controllers/users"
	authsvc "github.com/BloodyDerby/biosentiers-backend/internal/http/services/auth"
	excursionssvc "github.com/BloodyDerby/biosentiers-backend/internal/http/services/excursions"
	installationssvc "github.com/BloodyDerby/biosentiers-backend/internal/http/services/installations"
	userssvc "github.com/BloodyDerby/biosentiers-backend/internal/http/services/users"
	jwtx "github.com/BloodyDerby/biosentiers-backend/internal/jwt"
	"github.com/BloodyDerby/biosentiers-backend/internal/security/password"
	"github.com/BloodyDerby/biosentiers-backend/internal/security/signature"
	"github.com/BloodyDerby/biosentiers-backend/internal/store/core"
	storemem "github.com/BloodyDerby/biosentiers-backend/internal/store/memory"
)

var signingSecret = []byte("router-test-secret")

type testServer struct {
	handler http.Handler
	store   *storemem.Store
	codec   *jwtx.Codec
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	store := storemem.New()
	codec := jwtx.NewCodec(signingSecret)
	mailer := email.NewMailer(nil, "https://biosentiers.example.com")
	mailer.DebugEchoLinks = true

	auth := authsvc.NewService(authsvc.Deps{
		Store: store,
		Codec: codec,
		Cache: cachemem.New(10 * time.Minute),
	})
	invitations := authsvc.NewInvitationService(authsvc.InvitationDeps{
		Users:  store.Users(),
		Codec:  codec,
		Mailer: mailer,
	})
	resets := authsvc.NewPasswordResetService(authsvc.PasswordResetDeps{
		Users:  store.Users(),
		Codec:  codec,
		Mailer: mailer,
	})
	users := userssvc.NewService(userssvc.Deps{Users: store.Users(), BcryptCost: 4})
	installations := installationssvc.NewService(installationssvc.Deps{Installations: store.Installations()})
	excursions := excursionssvc.NewService(excursionssvc.Deps{Excursions: store.Excursions()})

	handler := New(Deps{
		Store:         store,
		Codec:         codec,
		Auth:          authctrl.NewAuthController(auth, invitations, resets),
		Users:         usersctrl.NewUsersController(users, store.Users()),
		Installations: installationsctrl.NewInstallationsController(installations),
		Excursions:    excursionsctrl.NewExcursionsController(excursions),
		Health:        healthctrl.NewHealthController(store),
	})

	return &testServer{handler: handler, store: store, codec: codec}
}

func (ts *testServer) request(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func (ts *testServer) seedUser(t *testing.T, email, plain string, role core.Role) *core.User {
	t.Helper()
	hash, err := password.Hash(plain, 4)
	require.NoError(t, err)
	u := &core.User{
		APIID:        "u-" + email,
		Email:        email,
		PasswordHash: hash,
		FirstName:    "Jane",
		LastName:     "Doe",
		Active:       true,
		Role:         role,
	}
	require.NoError(t, ts.store.Users().Create(context.Background(), u))
	return u
}

func (ts *testServer) seedInstallation(t *testing.T, apiID string, secret []byte) *core.Installation {
	t.Helper()
	inst := &core.Installation{
		APIID:        apiID,
		SharedSecret: secret,
		Properties:   map[string]any{"foo": "bar"},
		Active:       true,
	}
	require.NoError(t, ts.store.Installations().Create(context.Background(), inst))
	return inst
}

func (ts *testServer) login(t *testing.T, email, plain string) string {
	t.Helper()
	rec := ts.request(t, http.MethodPost, "/api/auth", "", map[string]any{
		"email":    email,
		"password": plain,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decodeBody(t, rec)["token"].(string)
}

func TestPostAuthUserWireFormat(t *testing.T) {
	ts := newTestServer(t)
	ts.seedUser(t, "jane.doe@example.com", "letmein", core.RoleUser)

	rec := ts.request(t, http.MethodPost, "/api/auth", "", map[string]any{
		"email":    "jane.doe@example.com",
		"password": "letmein",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	body := decodeBody(t, rec)
	require.Contains(t, body, "token")
	require.Contains(t, body, "user")
	require.NotContains(t, body, "installation")

	user := body["user"].(map[string]any)
	require.Equal(t, "jane.doe@example.com", user["email"])
	require.Equal(t, "u-jane.doe@example.com", user["id"])
	require.EqualValues(t, 1, user["loginCount"])
}

func TestPostAuthValidationWireFormat(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.request(t, http.MethodPost, "/api/auth", "", map[string]any{})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	var body struct {
		Errors []map[string]any `json:"errors"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Errors, 2)

	byLocation := map[string]map[string]any{}
	for _, e := range body.Errors {
		byLocation[e["location"].(string)] = e
	}
	for _, loc := range []string{"/email", "/password"} {
		e := byLocation[loc]
		require.NotNil(t, e, "missing error at %s", loc)
		require.Equal(t, "is required", e["message"])
		require.Equal(t, "json", e["type"])
		require.Equal(t, "required", e["validator"])
		require.Equal(t, false, e["valueSet"])
		require.NotContains(t, e, "value")
	}
}

func TestPostAuthEmptyBodyValidatesAsEmptyObject(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.request(t, http.MethodPost, "/api/auth", "", nil)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	var body struct {
		Errors []map[string]any `json:"errors"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Errors, 2)

	locations := make([]string, 0, len(body.Errors))
	for _, e := range body.Errors {
		require.Equal(t, "required", e["validator"])
		locations = append(locations, e["location"].(string))
	}
	require.ElementsMatch(t, []string{"/email", "/password"}, locations)
}

func TestEmailAvailabilityWireFormat(t *testing.T) {
	ts := newTestServer(t)
	ts.seedUser(t, "taken@example.com", "letmein", core.RoleUser)

	rec := ts.request(t, http.MethodGet, "/api/users/availability?email=taken%40example.com", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	require.Equal(t, "taken@example.com", body["email"])
	require.Equal(t, false, body["available"])

	rec = ts.request(t, http.MethodGet, "/api/users/availability?email=free%40example.com", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body = decodeBody(t, rec)
	require.Equal(t, true, body["available"])
}

func TestPostAuthInvalidCredentialsWireFormat(t *testing.T) {
	ts := newTestServer(t)
	ts.seedUser(t, "jane.doe@example.com", "letmein", core.RoleUser)

	rec := ts.request(t, http.MethodPost, "/api/auth", "", map[string]any{
		"email":    "jane.doe@example.com",
		"password": "wrong",
	})
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	var body struct {
		Errors []map[string]any `json:"errors"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Errors, 1)
	require.Equal(t, "auth.invalidCredentials", body.Errors[0]["code"])
	require.Equal(t, "The e-mail or password is invalid.", body.Errors[0]["message"])
}

func TestPostAuthInstallationWireFormat(t *testing.T) {
	ts := newTestServer(t)
	secret := []byte("installation-secret")
	ts.seedInstallation(t, "inst-1", secret)

	date := time.Now().UTC().Format(time.RFC3339)
	rec := ts.request(t, http.MethodPost, "/api/auth", "", map[string]any{
		"installation":  "inst-1",
		"nonce":         "nonce-1",
		"date":          date,
		"authorization": signature.Compute(secret, "inst-1", "nonce-1", date),
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	body := decodeBody(t, rec)
	require.Contains(t, body, "token")
	require.Contains(t, body, "installation")
	require.NotContains(t, body, "user")

	inst := body["installation"].(map[string]any)
	require.Equal(t, "inst-1", inst["id"])
	require.Equal(t, map[string]any{"foo": "bar"}, inst["properties"])
	require.EqualValues(t, 0, inst["eventsCount"])
	require.NotContains(t, inst, "sharedSecret")
}

func TestMeRequiresAuth(t *testing.T) {
	ts := newTestServer(t)
	ts.seedUser(t, "jane.doe@example.com", "letmein", core.RoleUser)

	rec := ts.request(t, http.MethodGet, "/api/me", "", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	token := ts.login(t, "jane.doe@example.com", "letmein")
	rec = ts.request(t, http.MethodGet, "/api/me", token, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Equal(t, "jane.doe@example.com", decodeBody(t, rec)["email"])
}

func TestInstallationTokenCannotCallUserRoutes(t *testing.T) {
	ts := newTestServer(t)
	secret := []byte("installation-secret")
	ts.seedInstallation(t, "inst-1", secret)

	date := time.Now().UTC().Format(time.RFC3339)
	rec := ts.request(t, http.MethodPost, "/api/auth", "", map[string]any{
		"installation":  "inst-1",
		"nonce":         "n1",
		"date":          date,
		"authorization": signature.Compute(secret, "inst-1", "n1", date),
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	token := decodeBody(t, rec)["token"].(string)

	rec = ts.request(t, http.MethodGet, "/api/me", token, nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestInvitationFlowEndToEnd(t *testing.T) {
	ts := newTestServer(t)
	ts.seedUser(t, "admin@example.com", "adminpass", core.RoleAdmin)
	adminToken := ts.login(t, "admin@example.com", "adminpass")

	// El admin invita.
	rec := ts.request(t, http.MethodPost, "/api/auth/invitations", adminToken, map[string]any{
		"email":     "new@example.com",
		"role":      "user",
		"firstName": "Ada",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	link := decodeBody(t, rec)["link"].(string)
	require.Contains(t, link, "invitation=")

	// El invitado registra su cuenta con el token del link.
	invToken := link[len("https://biosentiers.example.com/register?invitation="):]
	rec = ts.request(t, http.MethodPost, "/api/users", invToken, map[string]any{
		"lastName": "Lovelace",
		"password": "letmein",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decodeBody(t, rec)
	require.Equal(t, "new@example.com", created["email"])
	require.Equal(t, "user", created["role"])
	require.Equal(t, true, created["active"])

	// Y puede loguearse.
	ts.login(t, "new@example.com", "letmein")
}

func TestPasswordResetFlowEndToEnd(t *testing.T) {
	ts := newTestServer(t)
	ts.seedUser(t, "jane.doe@example.com", "letmein", core.RoleUser)

	rec := ts.request(t, http.MethodPost, "/api/auth/resets", "", map[string]any{
		"email": "jane.doe@example.com",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	link := decodeBody(t, rec)["link"].(string)
	resetToken := link[len("https://biosentiers.example.com/reset-password?token="):]

	// El token cambia el password una vez.
	rec = ts.request(t, http.MethodPatch, "/api/me", resetToken, map[string]any{
		"password": "newpass",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// Reusarlo falla.
	rec = ts.request(t, http.MethodPatch, "/api/me", resetToken, map[string]any{
		"password": "again",
	})
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	// El password viejo ya no sirve, el nuevo sí.
	rec = ts.request(t, http.MethodPost, "/api/auth", "", map[string]any{
		"email":    "jane.doe@example.com",
		"password": "letmein",
	})
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	ts.login(t, "jane.doe@example.com", "newpass")
}

func TestInstallationEventsBumpCounter(t *testing.T) {
	ts := newTestServer(t)
	secret := []byte("installation-secret")
	ts.seedInstallation(t, "inst-1", secret)

	date := time.Now().UTC().Format(time.RFC3339)
	rec := ts.request(t, http.MethodPost, "/api/auth", "", map[string]any{
		"installation":  "inst-1",
		"nonce":         "n1",
		"date":          date,
		"authorization": signature.Compute(secret, "inst-1", "n1", date),
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	token := decodeBody(t, rec)["token"].(string)

	rec = ts.request(t, http.MethodPost, "/api/installations/inst-1/events", token, map[string]any{
		"type":       "startup",
		"version":    "1.2.0",
		"occurredAt": date,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = ts.request(t, http.MethodGet, "/api/installations/inst-1", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.EqualValues(t, 1, decodeBody(t, rec)["eventsCount"])
}

func TestReadyz(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.request(t, http.MethodGet, "/readyz", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "ready", decodeBody(t, rec)["status"])
}
