package auth_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/anotherstories/storehq/internal/auth"
	"github.com/anotherstories/storehq/internal/platform/httpx"
	"github.com/anotherstories/storehq/internal/rbac"
	"github.com/anotherstories/storehq/internal/shared"
)

type stubRepo struct {
	user   *auth.User
	logins map[string]auth.Login
}

func (s *stubRepo) UserByEmail(ctx context.Context, email string) (*auth.User, error) {
	if s.user == nil || !strings.EqualFold(s.user.Email, email) {
		return nil, httpx.ErrNotFound
	}
	return s.user, nil
}

func (s *stubRepo) SaveLogin(ctx context.Context, l auth.Login) error {
	if s.logins == nil {
		s.logins = make(map[string]auth.Login)
	}
	s.logins[l.SessionID] = l
	return nil
}

func (s *stubRepo) DeleteLogin(ctx context.Context, id string) error {
	delete(s.logins, id)
	return nil
}

func newAuthHandler(t *testing.T, repo auth.Repository) (*auth.Handler, *shared.SessionManager) {
	t.Helper()
	mr := miniredis.RunT(t)
	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	sessionManager := shared.NewSessionManager(redisClient, "test_session", time.Hour, false)
	csrfManager := shared.NewCSRFManager("csrfsecret")
	return auth.NewHandler(nil, auth.NewService(repo), sessionManager, csrfManager), sessionManager
}

func serveWithSession(t *testing.T, sm *shared.SessionManager, fn http.HandlerFunc, req *http.Request) (*httptest.ResponseRecorder, *shared.Session) {
	t.Helper()
	sess, err := sm.Load(req.Context(), req)
	require.NoError(t, err)
	req = req.WithContext(shared.ContextWithSession(req.Context(), sess))
	res := httptest.NewRecorder()
	fn(res, req)
	require.NoError(t, sm.Commit(req.Context(), res, req, sess))
	return res, sess
}

func hqUser(t *testing.T) *auth.User {
	hashed, err := bcrypt.GenerateFromPassword([]byte("correctpass"), bcrypt.MinCost)
	require.NoError(t, err)
	return &auth.User{ID: "u-1", Email: "hq@anotherstories.com", Role: "HQ Staff", PasswordHash: string(hashed), IsActive: true}
}

func TestLoginSuccessRotatesSession(t *testing.T) {
	repo := &stubRepo{user: hqUser(t)}
	handler, sm := newAuthHandler(t, repo)
	router := chiRouter(handler)

	body := `{"email":"hq@anotherstories.com","password":"correctpass"}`
	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(body))
	res, sess := serveWithSession(t, sm, router.ServeHTTP, req)

	require.Equal(t, http.StatusOK, res.Code)
	var payload struct {
		User      auth.Profile `json:"user"`
		CSRFToken string       `json:"csrfToken"`
	}
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &payload))
	assert.Equal(t, "u-1", payload.User.ID)
	assert.NotEmpty(t, payload.CSRFToken)
	assert.Equal(t, "u-1", sess.User())
	login := repo.logins[sess.ID]
	assert.Equal(t, "u-1", login.UserID)
	assert.Equal(t, time.Hour, login.ExpiresAt.Sub(login.At))
	assert.NotContains(t, res.Body.String(), "correctpass")
}

func TestLoginInvalidCredentials(t *testing.T) {
	handler, sm := newAuthHandler(t, &stubRepo{user: hqUser(t)})
	router := chiRouter(handler)

	body := `{"email":"hq@anotherstories.com","password":"wrongpass"}`
	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(body))
	res, sess := serveWithSession(t, sm, router.ServeHTTP, req)

	assert.Equal(t, http.StatusUnauthorized, res.Code)
	assert.Contains(t, res.Body.String(), "invalid email or password")
	assert.Empty(t, sess.User())
}

func TestLoginValidationNamesFields(t *testing.T) {
	handler, sm := newAuthHandler(t, &stubRepo{})
	router := chiRouter(handler)

	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(`{"email":"nope","password":"x"}`))
	res, _ := serveWithSession(t, sm, router.ServeHTTP, req)

	require.Equal(t, http.StatusBadRequest, res.Code)
	assert.Contains(t, res.Body.String(), `"email"`)
	assert.Contains(t, res.Body.String(), `"password"`)
}

func TestMeReturnsPrincipal(t *testing.T) {
	handler, _ := newAuthHandler(t, &stubRepo{})
	p := rbac.Principal{UserID: "u-2", Role: rbac.RoleBranchManager, Access: rbac.AccessStore, BranchID: "paris"}
	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	req = req.WithContext(rbac.ContextWithPrincipal(req.Context(), p))
	res := httptest.NewRecorder()

	handler.Me(res, req)

	require.Equal(t, http.StatusOK, res.Code)
	assert.Contains(t, res.Body.String(), `"branchId":"paris"`)
}

func TestLogoutDestroysSession(t *testing.T) {
	repo := &stubRepo{user: hqUser(t)}
	handler, sm := newAuthHandler(t, repo)
	router := chiRouter(handler)

	login := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(`{"email":"hq@anotherstories.com","password":"correctpass"}`))
	loginRes, _ := serveWithSession(t, sm, router.ServeHTTP, login)
	require.Equal(t, http.StatusOK, loginRes.Code)

	logout := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	for _, c := range loginRes.Result().Cookies() {
		logout.AddCookie(c)
	}
	res, _ := serveWithSession(t, sm, router.ServeHTTP, logout)

	assert.Equal(t, http.StatusNoContent, res.Code)
	assert.Empty(t, repo.logins)
}

func TestAuthenticateRejectsInactiveAndUnknown(t *testing.T) {
	user := hqUser(t)
	user.IsActive = false
	svc := auth.NewService(&stubRepo{user: user})

	_, err := svc.Authenticate(context.Background(), "hq@anotherstories.com", "correctpass")
	assert.ErrorIs(t, err, shared.ErrInvalidCredentials)

	_, err = svc.Authenticate(context.Background(), "ghost@anotherstories.com", "correctpass")
	assert.ErrorIs(t, err, shared.ErrInvalidCredentials)
}

func TestAuthenticateNormalisesEmail(t *testing.T) {
	svc := auth.NewService(&stubRepo{user: hqUser(t)})
	user, err := svc.Authenticate(context.Background(), "  HQ@AnotherStories.com ", "correctpass")
	require.NoError(t, err)
	assert.Equal(t, "u-1", user.ID)
}
