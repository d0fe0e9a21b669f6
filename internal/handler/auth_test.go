package handler_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/memopad/internal/apperror"
	"github.com/sakif/memopad/internal/auth"
	"github.com/sakif/memopad/internal/handler"
	"github.com/sakif/memopad/internal/model"
	"github.com/sakif/memopad/internal/service"
)

const ttl = 7 * 24 * time.Hour

func sessionCookie(rr *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range rr.Result().Cookies() {
		if c.Name == auth.CookieName {
			return c
		}
	}
	return nil
}

func TestAuthHandler_EmailRequest(t *testing.T) {
	accounts := &fakeAccounts{}
	h := handler.NewAuthHandler(nil, accounts, ttl, quietLogger)

	rr := serve(http.HandlerFunc(h.HandleEmailRequest),
		httptest.NewRequest(http.MethodPost, "/auth/email", strings.NewReader(`{"email":"a@example.com"}`)))
	assert.Equal(t, http.StatusAccepted, rr.Code)
	assert.Equal(t, []string{"a@example.com"}, accounts.requested)

	accounts.requestErr = apperror.RateLimited("slow down")
	rr = serve(http.HandlerFunc(h.HandleEmailRequest),
		httptest.NewRequest(http.MethodPost, "/auth/email", strings.NewReader(`{"email":"a@example.com"}`)))
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.Equal(t, "rate_limited", decodeError(t, rr).Error)

	accounts.requestErr = apperror.ValidationFailed("email", "invalid email")
	rr = serve(http.HandlerFunc(h.HandleEmailRequest),
		httptest.NewRequest(http.MethodPost, "/auth/email", strings.NewReader(`{"email":"nope"}`)))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestAuthHandler_EmailVerify(t *testing.T) {
	user := &model.User{ID: "u1", Login: "ann", Email: "ann@example.com"}
	accounts := &fakeAccounts{verifyResult: &service.AuthResult{User: user, Token: "tok"}}
	h := handler.NewAuthHandler(nil, accounts, ttl, quietLogger)

	t.Run("success sets cookie and returns token", func(t *testing.T) {
		rr := serve(http.HandlerFunc(h.HandleEmailVerify),
			httptest.NewRequest(http.MethodPost, "/auth/email/verify", strings.NewReader(`{"email":"ann@example.com","code":"ABCD2345"}`)))

		assert.Equal(t, http.StatusOK, rr.Code)
		var got handler.SessionResponse
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&got))
		assert.Equal(t, "tok", got.Token)
		assert.Equal(t, "u1", got.User.ID)

		c := sessionCookie(rr)
		require.NotNil(t, c)
		assert.Equal(t, "tok", c.Value)
		assert.True(t, c.HttpOnly)
		assert.Equal(t, int(ttl.Seconds()), c.MaxAge)
	})

	t.Run("invalid code", func(t *testing.T) {
		accounts.verifyErr = apperror.Unauthorized("invalid or expired code")
		defer func() { accounts.verifyErr = nil }()

		rr := serve(http.HandlerFunc(h.HandleEmailVerify),
			httptest.NewRequest(http.MethodPost, "/auth/email/verify", strings.NewReader(`{"email":"ann@example.com","code":"WRONG"}`)))
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
		assert.Nil(t, sessionCookie(rr))
	})
}

func TestAuthHandler_EmailLink(t *testing.T) {
	accounts := &fakeAccounts{verifyResult: &service.AuthResult{User: &model.User{ID: "u1"}, Token: "tok"}}
	h := handler.NewAuthHandler(nil, accounts, ttl, quietLogger)

	rr := serve(http.HandlerFunc(h.HandleEmailLink),
		httptest.NewRequest(http.MethodGet, "/auth/email/verify?email=a%40example.com&code=X", nil))
	assert.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Equal(t, "/", rr.Header().Get("Location"))
	require.NotNil(t, sessionCookie(rr))

	accounts.verifyErr = apperror.Unauthorized("invalid or expired code")
	rr = serve(http.HandlerFunc(h.HandleEmailLink),
		httptest.NewRequest(http.MethodGet, "/auth/email/verify?email=a%40example.com&code=X", nil))
	assert.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Equal(t, "/?auth=invalid", rr.Header().Get("Location"))
	assert.Nil(t, sessionCookie(rr))
}

func TestAuthHandler_GitHubDisabled(t *testing.T) {
	h := handler.NewAuthHandler(nil, &fakeAccounts{}, ttl, quietLogger)

	rr := serve(http.HandlerFunc(h.HandleGitHubLogin), httptest.NewRequest(http.MethodGet, "/auth/github/login", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestAuthHandler_GitHubLogin(t *testing.T) {
	gh := auth.NewGitHubProvider("client", "secret", "http://localhost/auth/github/callback")
	h := handler.NewAuthHandler(gh, &fakeAccounts{}, ttl, quietLogger)

	rr := serve(http.HandlerFunc(h.HandleGitHubLogin), httptest.NewRequest(http.MethodGet, "/auth/github/login", nil))
	assert.Equal(t, http.StatusTemporaryRedirect, rr.Code)

	var state string
	for _, c := range rr.Result().Cookies() {
		if c.Name == "oauth_state" {
			state = c.Value
		}
	}
	require.NotEmpty(t, state)
	assert.Contains(t, rr.Header().Get("Location"), "state="+state)
}

func TestAuthHandler_GitHubCallbackRejectsBadState(t *testing.T) {
	gh := auth.NewGitHubProvider("client", "secret", "http://localhost/auth/github/callback")
	h := handler.NewAuthHandler(gh, &fakeAccounts{}, ttl, quietLogger)

	req := httptest.NewRequest(http.MethodGet, "/auth/github/callback?code=c&state=forged", nil)
	req.AddCookie(&http.Cookie{Name: "oauth_state", Value: "real"})
	rr := serve(http.HandlerFunc(h.HandleGitHubCallback), req)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = serve(http.HandlerFunc(h.HandleGitHubCallback),
		httptest.NewRequest(http.MethodGet, "/auth/github/callback?code=c&state=real", nil))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestAuthHandler_GitHubCallbackDenied(t *testing.T) {
	gh := auth.NewGitHubProvider("client", "secret", "http://localhost/auth/github/callback")
	h := handler.NewAuthHandler(gh, &fakeAccounts{}, ttl, quietLogger)

	req := httptest.NewRequest(http.MethodGet, "/auth/github/callback?error=access_denied&state=s", nil)
	req.AddCookie(&http.Cookie{Name: "oauth_state", Value: "s"})
	rr := serve(http.HandlerFunc(h.HandleGitHubCallback), req)

	assert.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Equal(t, "/?auth=denied", rr.Header().Get("Location"))
}

func TestAuthHandler_Logout(t *testing.T) {
	h := handler.NewAuthHandler(nil, &fakeAccounts{}, ttl, quietLogger)

	req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	req.Header.Set("Accept", "application/json")
	rr := serve(http.HandlerFunc(h.HandleLogout), req)

	assert.Equal(t, http.StatusOK, rr.Code)
	c := sessionCookie(rr)
	require.NotNil(t, c)
	assert.Less(t, c.MaxAge, 0)

	// Browsers posting the form go back to the app.
	rr = serve(http.HandlerFunc(h.HandleLogout), httptest.NewRequest(http.MethodPost, "/auth/logout", nil))
	assert.Equal(t, http.StatusSeeOther, rr.Code)
}

func TestAuthHandler_Me(t *testing.T) {
	accounts := &fakeAccounts{users: map[string]*model.User{"u1": {ID: "u1", Login: "ann"}}}
	h := handler.NewAuthHandler(nil, accounts, ttl, quietLogger)

	rr := serve(http.HandlerFunc(h.HandleMe), asUser(httptest.NewRequest(http.MethodGet, "/api/me", nil), "u1"))
	assert.Equal(t, http.StatusOK, rr.Code)
	var got model.User
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&got))
	assert.Equal(t, "ann", got.Login)

	rr = serve(http.HandlerFunc(h.HandleMe), httptest.NewRequest(http.MethodGet, "/api/me", nil))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}
