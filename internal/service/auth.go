package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"regexp"
	"strings"
	"sync"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"golang.org/x/time/rate"

	"github.com/sakif/memopad/internal/apperror"
	"github.com/sakif/memopad/internal/auth"
	"github.com/sakif/memopad/internal/model"
	"github.com/sakif/memopad/internal/repository"
)

const (
	// SignInCodeTTL is how long an emailed code stays valid.
	SignInCodeTTL = 15 * time.Minute

	// Each address may request a code this often, with a small burst.
	signInInterval = time.Minute
	signInBurst    = 3
)

var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// Mailer delivers sign-in links.
type Mailer interface {
	SendSignInLink(ctx context.Context, email, link, code string) error
}

// LogMailer writes sign-in links to the log instead of sending mail. It is
// the default until an SMTP relay is configured.
type LogMailer struct {
	Logger *slog.Logger
}

func (m LogMailer) SendSignInLink(_ context.Context, email, link, code string) error {
	m.Logger.Info("sign-in link",
		slog.String("email", email),
		slog.String("link", link),
		slog.String("code", code),
	)
	return nil
}

// AuthService handles both sign-in paths and token checks.
type AuthService struct {
	users     repository.UserRepository
	codes     repository.SignInCodeRepository
	tokens    *auth.TokenService
	hasher    *auth.CodeService
	mailer    Mailer
	publicURL string
	logger    *slog.Logger

	now      func() time.Time
	limitsMu sync.Mutex
	limits   map[string]*rate.Limiter
}

// NewAuthService wires the auth dependencies. publicURL is the externally
// reachable base of the server, used to build sign-in links.
func NewAuthService(
	users repository.UserRepository,
	codes repository.SignInCodeRepository,
	tokens *auth.TokenService,
	hasher *auth.CodeService,
	mailer Mailer,
	publicURL string,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		users:     users,
		codes:     codes,
		tokens:    tokens,
		hasher:    hasher,
		mailer:    mailer,
		publicURL: strings.TrimRight(publicURL, "/"),
		logger:    logger,
		now:       time.Now,
		limits:    make(map[string]*rate.Limiter),
	}
}

// AuthResult bundles the user and the issued token so a handler can set the
// cookie and respond in one step.
type AuthResult struct {
	User  *model.User
	Token string
}

// LoginOrRegisterGitHub upserts the GitHub user and issues a token.
func (s *AuthService) LoginOrRegisterGitHub(ctx context.Context, ghUser *auth.GitHubUser) (*AuthResult, error) {
	if ghUser == nil {
		return nil, fmt.Errorf("service/auth: GitHub user must not be nil")
	}

	user := &model.User{
		GitHubID:  ghUser.ID,
		Login:     ghUser.Login,
		Email:     ghUser.Email,
		AvatarURL: ghUser.AvatarURL,
	}
	if err := s.users.Upsert(ctx, user); err != nil {
		return nil, fmt.Errorf("service/auth: upserting user (githubID=%d): %w", ghUser.ID, err)
	}

	s.logger.Info("user authenticated via GitHub",
		slog.String("userID", user.ID),
		slog.String("login", user.Login),
	)
	return s.issue(user)
}

type emailInput struct {
	Email string
}

func (in emailInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Email,
			validation.Required.Error("email is required"),
			validation.Length(3, 254).Error("email must be between 3 and 254 characters"),
			validation.Match(emailPattern).Error("email is not a valid address"),
		),
	)
}

// normalizeEmail validates and lower-cases an address. Failures are
// apperror validation errors naming the email field.
func normalizeEmail(email string) (string, error) {
	in := emailInput{Email: strings.ToLower(strings.TrimSpace(email))}
	if err := in.Validate(); err != nil {
		var errs validation.Errors
		if errors.As(err, &errs) {
			if fe, ok := errs["Email"]; ok {
				return "", apperror.ValidationFailed("email", fe.Error())
			}
		}
		return "", apperror.ValidationFailed("email", err.Error())
	}
	return in.Email, nil
}

// RequestEmailCode stores a fresh one-time code for email, replacing any
// earlier one, and mails a sign-in link. Requests beyond the per-address
// rate fail with apperror.ErrRateLimited.
func (s *AuthService) RequestEmailCode(ctx context.Context, email string) error {
	email, err := normalizeEmail(email)
	if err != nil {
		return err
	}
	if !s.limiter(email).Allow() {
		s.logger.Warn("sign-in code rate limited", slog.String("email", email))
		return apperror.RateLimited("too many sign-in requests, try again in a minute")
	}

	code, hash, err := s.hasher.New()
	if err != nil {
		return err
	}
	rec := &model.SignInCode{
		Email:     email,
		CodeHash:  hash,
		ExpiresAt: s.now().Add(SignInCodeTTL),
	}
	if err := s.codes.Save(ctx, rec); err != nil {
		return fmt.Errorf("service/auth: saving sign-in code: %w", err)
	}

	link := s.publicURL + "/auth/email/verify?" + url.Values{
		"email": {email},
		"code":  {code},
	}.Encode()
	if err := s.mailer.SendSignInLink(ctx, email, link, code); err != nil {
		return apperror.Transient("could not send sign-in email", err)
	}

	s.logger.Info("sign-in code issued", slog.String("email", email))
	return nil
}

// VerifyEmailCode exchanges a code for a token, creating the account on
// first sign-in. A wrong, expired or reused code is apperror.ErrUnauthorized.
func (s *AuthService) VerifyEmailCode(ctx context.Context, email, code string) (*AuthResult, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(code) == "" {
		return nil, apperror.ValidationFailed("code", "code is required")
	}

	invalid := apperror.Unauthorized("sign-in code is invalid or has expired")

	rec, err := s.codes.Get(ctx, email)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, invalid
		}
		return nil, fmt.Errorf("service/auth: loading sign-in code: %w", err)
	}
	if rec.Expired(s.now()) {
		return nil, invalid
	}
	if err := s.hasher.Verify(rec.CodeHash, code); err != nil {
		if errors.Is(err, apperror.ErrUnauthorized) {
			return nil, invalid
		}
		return nil, err
	}
	// Consume after the hash check so a typo doesn't burn the code, and
	// before issuing the token so a code signs in once.
	if err := s.codes.Consume(ctx, rec.ID); err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, invalid
		}
		return nil, fmt.Errorf("service/auth: consuming sign-in code: %w", err)
	}

	user, err := s.users.GetByEmail(ctx, email)
	if errors.Is(err, apperror.ErrNotFound) {
		login, _, _ := strings.Cut(email, "@")
		user = &model.User{Login: login, Email: email}
		err = s.users.Create(ctx, user)
	}
	if err != nil {
		return nil, fmt.Errorf("service/auth: resolving user for %s: %w", email, err)
	}

	s.logger.Info("user authenticated via email", slog.String("userID", user.ID))
	return s.issue(user)
}

func (s *AuthService) issue(user *model.User) (*AuthResult, error) {
	token, err := s.tokens.Generate(user.ID)
	if err != nil {
		return nil, fmt.Errorf("service/auth: generating token for user %s: %w", user.ID, err)
	}
	return &AuthResult{User: user, Token: token}, nil
}

func (s *AuthService) limiter(email string) *rate.Limiter {
	s.limitsMu.Lock()
	defer s.limitsMu.Unlock()
	l, ok := s.limits[email]
	if !ok {
		l = rate.NewLimiter(rate.Every(signInInterval), signInBurst)
		s.limits[email] = l
	}
	return l
}

// PruneExpiredCodes deletes expired sign-in codes and forgets rate limiters
// that have refilled. The server calls it periodically.
func (s *AuthService) PruneExpiredCodes(ctx context.Context) error {
	n, err := s.codes.DeleteExpired(ctx)
	if err != nil {
		return fmt.Errorf("service/auth: pruning sign-in codes: %w", err)
	}

	s.limitsMu.Lock()
	for email, l := range s.limits {
		if l.Tokens() >= signInBurst {
			delete(s.limits, email)
		}
	}
	s.limitsMu.Unlock()

	if n > 0 {
		s.logger.Debug("expired sign-in codes pruned", slog.Int64("count", n))
	}
	return nil
}

// GetUserByID returns the user for /api/me.
func (s *AuthService) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	if id == "" {
		return nil, apperror.Unauthorized("no user in request")
	}
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("service/auth: fetching user %s: %w", id, err)
	}
	return user, nil
}

// ValidateToken returns the user ID encoded in tokenStr.
func (s *AuthService) ValidateToken(tokenStr string) (string, error) {
	userID, err := s.tokens.Validate(tokenStr)
	if err != nil {
		return "", fmt.Errorf("service/auth: %w", err)
	}
	return userID, nil
}
