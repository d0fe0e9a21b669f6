package server_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/memopad/internal/model"
	"github.com/sakif/memopad/internal/server"
)

type capturingMailer struct {
	mu    sync.Mutex
	codes map[string]string
}

func (m *capturingMailer) SendSignInLink(_ context.Context, email, _, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.codes[email] = code
	return nil
}

func (m *capturingMailer) code(email string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.codes[email]
}

func newTestServer(t *testing.T, cfg server.Config) *httptest.Server {
	t.Helper()
	cfg.DBPath = ":memory:"
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	srv, err := server.New(cfg, logger, nil)
	require.NoError(t, err)
	t.Cleanup(func() { srv.Close() })

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func do(t *testing.T, method, url, token, body string) *http.Response {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, url, r)
	require.NoError(t, err)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestServer_SignInAndMemoLifecycle(t *testing.T) {
	mailer := &capturingMailer{codes: map[string]string{}}
	ts := newTestServer(t, server.Config{
		JWTSecret: "a-test-secret-of-decent-length",
		Mailer:    mailer,
	})

	// Sign in by email.
	resp := do(t, http.MethodPost, ts.URL+"/auth/email", "", `{"email":"Ann@Example.com"}`)
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	code := mailer.code("ann@example.com")
	require.NotEmpty(t, code)

	resp = do(t, http.MethodPost, ts.URL+"/auth/email/verify", "", `{"email":"ann@example.com","code":"`+code+`"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var session struct {
		Token string      `json:"token"`
		User  *model.User `json:"user"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&session))
	require.NotEmpty(t, session.Token)
	assert.Equal(t, "ann@example.com", session.User.Email)

	// Codes are single use.
	resp = do(t, http.MethodPost, ts.URL+"/auth/email/verify", "", `{"email":"ann@example.com","code":"`+code+`"}`)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	token := session.Token

	resp = do(t, http.MethodGet, ts.URL+"/api/me", token, "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// Create, update, read.
	resp = do(t, http.MethodPost, ts.URL+"/api/memos", token, "")
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var memo model.Memo
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&memo))
	assert.Equal(t, model.DefaultTitle, memo.Title)

	resp = do(t, http.MethodPatch, ts.URL+"/api/memos/"+memo.ID, token, `{"content":"# Notes\n`+"```python\\nprint(1)\\n```"+`"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&memo))
	assert.Equal(t, "Notes", memo.Title)

	resp = do(t, http.MethodGet, ts.URL+"/api/memos?q=notes", token, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var list []model.Memo
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&list))
	require.Len(t, list, 1)
	assert.Equal(t, memo.ID, list[0].ID)

	resp = do(t, http.MethodGet, ts.URL+"/api/memos/"+memo.ID+"/html", token, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), `<h1>Notes</h1>`)

	// No sandbox in tests.
	resp = do(t, http.MethodPost, ts.URL+"/api/memos/"+memo.ID+"/blocks/0/run", token, "")
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	resp = do(t, http.MethodDelete, ts.URL+"/api/memos/"+memo.ID, token, "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = do(t, http.MethodGet, ts.URL+"/api/memos/"+memo.ID, token, "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestServer_RequiresAuth(t *testing.T) {
	ts := newTestServer(t, server.Config{JWTSecret: "a-test-secret-of-decent-length"})

	resp := do(t, http.MethodGet, ts.URL+"/api/memos", "", "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = do(t, http.MethodGet, ts.URL+"/api/memos", "not-a-jwt", "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	// GitHub is not configured, so its routes are absent.
	resp = do(t, http.MethodGet, ts.URL+"/auth/github/login", "", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestServer_PublicRoutes(t *testing.T) {
	ts := newTestServer(t, server.Config{})

	resp := do(t, http.MethodGet, ts.URL+"/health", "", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = do(t, http.MethodPost, ts.URL+"/api/render", "", `{"markdown":"**hi**"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var out struct {
		HTML string `json:"html"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, "<p><strong>hi</strong></p>\n", out.HTML)

	resp = do(t, http.MethodGet, ts.URL+"/", "", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// Without a JWT secret the memo API is not mounted.
	resp = do(t, http.MethodGet, ts.URL+"/api/memos", "", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestServer_CORS(t *testing.T) {
	ts := newTestServer(t, server.Config{
		JWTSecret:   "a-test-secret-of-decent-length",
		CORSOrigins: []string{"http://localhost:3000"},
	})

	req, err := http.NewRequest(http.MethodOptions, ts.URL+"/api/memos", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", "PATCH")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, "http://localhost:3000", resp.Header.Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", resp.Header.Get("Access-Control-Allow-Credentials"))
}
