// Package client talks to the memo server over HTTP. A Client implements
// both editor.Persistence and editor.Identity, so an editor.Controller can
// run against a remote server.
//
// Non-2xx responses come back as apperror values with the same sentinels
// the server used, so callers classify them with apperror.KindOf.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/sakif/memopad/internal/apperror"
	"github.com/sakif/memopad/internal/editor"
	"github.com/sakif/memopad/internal/executor"
	"github.com/sakif/memopad/internal/model"
)

var (
	_ editor.Persistence = (*Client)(nil)
	_ editor.Identity    = (*Client)(nil)
)

// Client is safe for concurrent use.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *slog.Logger

	mu    sync.RWMutex
	token string

	subsMu  sync.Mutex
	subs    map[int]func(editor.AuthEvent)
	nextSub int
}

// Option configures a Client.
type Option func(*Client)

// WithToken starts the client signed in.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// WithHTTPClient replaces the default client, which times out after 30s.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// New creates a client for the server at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
		logger:  slog.Default(),
		subs:    make(map[int]func(editor.AuthEvent)),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Token returns the current session token, empty when signed out.
func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

func (c *Client) setToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

// errorBody mirrors handler.ErrorResponse.
type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Field   string `json:"field"`
}

// do sends a JSON request and decodes a JSON response into out (if non-nil).
func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("client: encoding request: %w", err)
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("client: building request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return apperror.Transient("could not reach the memo server", err)
	}
	defer resp.Body.Close()

	c.logger.Debug("api call",
		slog.String("method", method),
		slog.String("path", path),
		slog.Int("status", resp.StatusCode),
	)

	if resp.StatusCode >= 300 {
		return decodeError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return apperror.Transient("malformed server response", err)
	}
	return nil
}

// decodeError maps an error response back to an apperror.
func decodeError(resp *http.Response) error {
	var body errorBody
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err := json.Unmarshal(raw, &body); err != nil || body.Message == "" {
		body.Message = strings.TrimSpace(string(raw))
		if body.Message == "" {
			body.Message = resp.Status
		}
	}

	var sentinel error
	switch {
	case resp.StatusCode == http.StatusBadRequest:
		sentinel = apperror.ErrValidation
	case resp.StatusCode == http.StatusUnauthorized:
		sentinel = apperror.ErrUnauthorized
	case resp.StatusCode == http.StatusForbidden:
		sentinel = apperror.ErrForbidden
	case resp.StatusCode == http.StatusNotFound:
		sentinel = apperror.ErrNotFound
	case resp.StatusCode == http.StatusConflict:
		sentinel = apperror.ErrConflict
	case resp.StatusCode == http.StatusTooManyRequests:
		sentinel = apperror.ErrRateLimited
	default:
		return apperror.Transient(body.Message, fmt.Errorf("server returned %s", resp.Status))
	}
	return &apperror.AppError{Err: sentinel, Message: body.Message, Field: body.Field}
}

type contentBody struct {
	Content string `json:"content"`
}

// List returns every memo of the signed-in user, newest first.
func (c *Client) List(ctx context.Context) ([]model.Memo, error) {
	return c.Search(ctx, "")
}

// Search returns the memos whose title or content contains query.
func (c *Client) Search(ctx context.Context, query string) ([]model.Memo, error) {
	path := "/api/memos"
	if query != "" {
		path += "?" + url.Values{"q": {query}}.Encode()
	}
	var memos []model.Memo
	if err := c.do(ctx, http.MethodGet, path, nil, &memos); err != nil {
		return nil, err
	}
	return memos, nil
}

// Get returns one memo.
func (c *Client) Get(ctx context.Context, id string) (*model.Memo, error) {
	var m model.Memo
	if err := c.do(ctx, http.MethodGet, "/api/memos/"+url.PathEscape(id), nil, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

func (c *Client) Create(ctx context.Context, content string) (*model.Memo, error) {
	var m model.Memo
	if err := c.do(ctx, http.MethodPost, "/api/memos", contentBody{Content: content}, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

func (c *Client) Update(ctx context.Context, id, content string) (*model.Memo, error) {
	var m model.Memo
	if err := c.do(ctx, http.MethodPatch, "/api/memos/"+url.PathEscape(id), contentBody{Content: content}, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

func (c *Client) Delete(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/memos/"+url.PathEscape(id), nil, nil)
}

// RenderHTML returns the server rendering of a stored memo.
func (c *Client) RenderHTML(ctx context.Context, id string) (string, error) {
	var out struct {
		HTML string `json:"html"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/memos/"+url.PathEscape(id)+"/html", nil, &out); err != nil {
		return "", err
	}
	return out.HTML, nil
}

// Run executes the n-th fenced code block of a memo on the server.
func (c *Client) Run(ctx context.Context, id string, n int) (*executor.ExecutionResult, error) {
	var res executor.ExecutionResult
	path := fmt.Sprintf("/api/memos/%s/blocks/%d/run", url.PathEscape(id), n)
	if err := c.do(ctx, http.MethodPost, path, nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// CurrentUser returns the signed-in user, or (nil, nil) when there is no
// token or the server no longer accepts it.
func (c *Client) CurrentUser(ctx context.Context) (*model.User, error) {
	if c.Token() == "" {
		return nil, nil
	}
	var u model.User
	err := c.do(ctx, http.MethodGet, "/api/me", nil, &u)
	if errors.Is(err, apperror.ErrUnauthorized) || errors.Is(err, apperror.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// SignIn asks the server to mail a one-time code to email. The client is
// not signed in until Verify succeeds.
func (c *Client) SignIn(ctx context.Context, email string) error {
	return c.do(ctx, http.MethodPost, "/auth/email", map[string]string{"email": email}, nil)
}

// Verify exchanges an emailed code for a session and notifies subscribers.
func (c *Client) Verify(ctx context.Context, email, code string) (*model.User, error) {
	var out struct {
		Token string      `json:"token"`
		User  *model.User `json:"user"`
	}
	if err := c.do(ctx, http.MethodPost, "/auth/email/verify", map[string]string{"email": email, "code": code}, &out); err != nil {
		return nil, err
	}
	c.setToken(out.Token)
	c.publish(editor.AuthEvent{SignedIn: true, User: out.User})
	return out.User, nil
}

// SignOut forgets the token. The local session ends even when the server
// cannot be reached.
func (c *Client) SignOut(ctx context.Context) error {
	err := c.do(ctx, http.MethodPost, "/auth/logout", nil, nil)
	c.setToken("")
	c.publish(editor.AuthEvent{SignedIn: false})
	if err != nil {
		c.logger.Warn("server logout failed", slog.String("error", err.Error()))
	}
	return nil
}

// Subscribe registers fn for sign-in and sign-out events.
func (c *Client) Subscribe(fn func(editor.AuthEvent)) func() {
	c.subsMu.Lock()
	defer c.subsMu.Unlock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = fn
	return func() {
		c.subsMu.Lock()
		delete(c.subs, id)
		c.subsMu.Unlock()
	}
}

func (c *Client) publish(ev editor.AuthEvent) {
	c.subsMu.Lock()
	fns := make([]func(editor.AuthEvent), 0, len(c.subs))
	for _, fn := range c.subs {
		fns = append(fns, fn)
	}
	c.subsMu.Unlock()

	for _, fn := range fns {
		fn(ev)
	}
}
