package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/sakif/memopad/internal/apperror"
	"github.com/sakif/memopad/internal/auth"
	"github.com/sakif/memopad/internal/model"
	"github.com/sakif/memopad/internal/service"
)

const stateCookie = "oauth_state"

// AuthService is the part of service.AuthService the handlers use.
type AuthService interface {
	LoginOrRegisterGitHub(ctx context.Context, ghUser *auth.GitHubUser) (*service.AuthResult, error)
	RequestEmailCode(ctx context.Context, email string) error
	VerifyEmailCode(ctx context.Context, email, code string) (*service.AuthResult, error)
	GetUserByID(ctx context.Context, id string) (*model.User, error)
}

// AuthHandler runs both sign-in flows and session management.
//
//   - HandleGitHubLogin / HandleGitHubCallback: GitHub OAuth
//   - HandleEmailRequest / HandleEmailVerify / HandleEmailLink: one-time email codes
//   - HandleLogout: clear the session cookie
//   - HandleMe: the signed-in user's profile
//
// A successful sign-in sets the JWT as an HttpOnly cookie for browsers and,
// on the JSON endpoints, also returns it for API clients that send it as a
// Bearer token.
type AuthHandler struct {
	github   *auth.GitHubProvider // nil when GitHub sign-in is not configured
	accounts AuthService
	tokenTTL time.Duration
	logger   *slog.Logger
}

// NewAuthHandler creates an AuthHandler. github may be nil.
func NewAuthHandler(
	github *auth.GitHubProvider,
	accounts AuthService,
	tokenTTL time.Duration,
	logger *slog.Logger,
) *AuthHandler {
	return &AuthHandler{
		github:   github,
		accounts: accounts,
		tokenTTL: tokenTTL,
		logger:   logger,
	}
}

// setSession stores the token in an HttpOnly cookie that lives as long as
// the token. Secure should be set when served over HTTPS.
func (h *AuthHandler) setSession(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(h.tokenTTL.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// HandleGitHubLogin redirects the browser to GitHub's authorization page.
//
// HTTP: GET /auth/github/login
//
// The random state goes into a short-lived cookie and is checked on the
// callback, which proves the callback answers a login we started.
func (h *AuthHandler) HandleGitHubLogin(w http.ResponseWriter, r *http.Request) {
	if h.github == nil {
		writeError(w, apperror.NotFound("sign-in provider", "github"))
		return
	}

	state, err := auth.NewState()
	if err != nil {
		writeError(w, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     stateCookie,
		Value:    state,
		Path:     "/",
		MaxAge:   600,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, h.github.AuthURL(state), http.StatusTemporaryRedirect)
}

// HandleGitHubCallback completes the OAuth flow.
//
// HTTP: GET /auth/github/callback?code=xxx&state=yyy
//
//  1. check the state against the cookie (single use)
//  2. exchange the code for a GitHub profile
//  3. upsert the user and issue a token cookie
//  4. redirect to the app
func (h *AuthHandler) HandleGitHubCallback(w http.ResponseWriter, r *http.Request) {
	if h.github == nil {
		writeError(w, apperror.NotFound("sign-in provider", "github"))
		return
	}

	cookie, err := r.Cookie(stateCookie)
	if err != nil || cookie.Value == "" {
		h.logger.Warn("auth callback: missing state cookie")
		http.Error(w, "invalid OAuth state", http.StatusBadRequest)
		return
	}
	if r.URL.Query().Get("state") != cookie.Value {
		h.logger.Warn("auth callback: state mismatch")
		http.Error(w, "invalid OAuth state", http.StatusBadRequest)
		return
	}
	http.SetCookie(w, &http.Cookie{Name: stateCookie, Value: "", Path: "/", MaxAge: -1})

	if errParam := r.URL.Query().Get("error"); errParam != "" {
		h.logger.Info("auth callback: user denied authorization", slog.String("error", errParam))
		http.Redirect(w, r, "/?auth=denied", http.StatusSeeOther)
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		http.Error(w, "missing OAuth code", http.StatusBadRequest)
		return
	}

	ghUser, err := h.github.Exchange(r.Context(), code)
	if err != nil {
		h.logger.Error("auth callback: GitHub exchange failed", slog.String("error", err.Error()))
		http.Error(w, "authentication failed", http.StatusInternalServerError)
		return
	}

	result, err := h.accounts.LoginOrRegisterGitHub(r.Context(), ghUser)
	if err != nil {
		h.logger.Error("auth callback: login failed",
			slog.Int64("githubID", ghUser.ID),
			slog.String("error", err.Error()),
		)
		http.Error(w, "authentication failed", http.StatusInternalServerError)
		return
	}

	h.setSession(w, result.Token)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

type emailRequest struct {
	Email string `json:"email"`
}

type verifyRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

// SessionResponse is returned by the JSON sign-in endpoints.
type SessionResponse struct {
	Token string      `json:"token"`
	User  *model.User `json:"user"`
}

// HandleEmailRequest mails a one-time sign-in code.
//
// HTTP: POST /auth/email {"email": "..."} -> 202 Accepted
func (h *AuthHandler) HandleEmailRequest(w http.ResponseWriter, r *http.Request) {
	var req emailRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := h.accounts.RequestEmailCode(r.Context(), req.Email); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"message": "sign-in code sent"})
}

// HandleEmailVerify exchanges a code for a session.
//
// HTTP: POST /auth/email/verify {"email": "...", "code": "..."}
func (h *AuthHandler) HandleEmailVerify(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	result, err := h.accounts.VerifyEmailCode(r.Context(), req.Email, req.Code)
	if err != nil {
		writeError(w, err)
		return
	}

	h.setSession(w, result.Token)
	writeJSON(w, http.StatusOK, SessionResponse{Token: result.Token, User: result.User})
}

// HandleEmailLink is the target of the emailed sign-in link. It signs the
// browser in and redirects to the app.
//
// HTTP: GET /auth/email/verify?email=...&code=...
func (h *AuthHandler) HandleEmailLink(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	result, err := h.accounts.VerifyEmailCode(r.Context(), q.Get("email"), q.Get("code"))
	if err != nil {
		h.logger.Info("email link rejected", slog.String("error", err.Error()))
		http.Redirect(w, r, "/?auth=invalid", http.StatusSeeOther)
		return
	}

	h.setSession(w, result.Token)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// HandleLogout clears the session cookie.
//
// HTTP: POST /auth/logout
//
// Tokens are stateless, so a copied token stays valid until it expires;
// logout only removes the browser's copy.
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	if r.Header.Get("Accept") == "application/json" || r.Header.Get("Authorization") != "" {
		writeJSON(w, http.StatusOK, map[string]string{"message": "logged out"})
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// HandleMe returns the signed-in user's profile.
//
// HTTP: GET /api/me (RequireAuth)
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	userID, err := currentUser(r)
	if err != nil {
		writeError(w, err)
		return
	}

	user, err := h.accounts.GetUserByID(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}
