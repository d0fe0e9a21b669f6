package editor

import (
	"context"
	"log/slog"
	"sync"

	"github.com/sakif/memopad/internal/model"
)

// AuthGate tracks whether someone is signed in. Screens that need an
// identity consult RedirectToSignIn after Check.
type AuthGate struct {
	identity Identity
	logger   *slog.Logger

	mu      sync.RWMutex
	checked bool
	user    *model.User

	unsubscribe func()
}

func NewAuthGate(identity Identity, logger *slog.Logger) *AuthGate {
	if logger == nil {
		logger = slog.Default()
	}
	g := &AuthGate{identity: identity, logger: logger}
	g.unsubscribe = identity.Subscribe(g.onChange)
	return g
}

// Check asks the identity collaborator for the current user. An error is
// treated as signed out.
func (g *AuthGate) Check(ctx context.Context) *model.User {
	u, err := g.identity.CurrentUser(ctx)
	if err != nil {
		g.logger.Warn("checking current user failed", "error", err)
		u = nil
	}
	g.mu.Lock()
	g.checked = true
	g.user = u
	g.mu.Unlock()
	return u
}

func (g *AuthGate) onChange(ev AuthEvent) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.checked = true
	if ev.SignedIn {
		g.user = ev.User
	} else {
		g.user = nil
	}
}

func (g *AuthGate) Authenticated() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.user != nil
}

func (g *AuthGate) User() *model.User {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.user
}

// RedirectToSignIn reports whether a protected screen should send the user
// to sign in. It is false until the first check completes.
func (g *AuthGate) RedirectToSignIn() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.checked && g.user == nil
}

func (g *AuthGate) SignIn(ctx context.Context, email string) error {
	return g.identity.SignIn(ctx, email)
}

func (g *AuthGate) SignOut(ctx context.Context) error {
	return g.identity.SignOut(ctx)
}

// Close stops listening for identity changes.
func (g *AuthGate) Close() {
	if g.unsubscribe != nil {
		g.unsubscribe()
	}
}
