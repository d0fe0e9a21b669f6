package service

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/sakif/memopad/internal/apperror"
	"github.com/sakif/memopad/internal/auth"
)

type authFixture struct {
	svc    *AuthService
	users  *fakeUserRepo
	codes  *fakeCodeRepo
	mailer *recordingMailer
}

// newTestAuthService wires an AuthService over fakes. bcrypt cost 4 is the
// minimum and keeps tests fast.
func newTestAuthService(t *testing.T) *authFixture {
	t.Helper()
	ts, err := auth.NewTokenService("test-secret-at-least-16-chars!!")
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}
	f := &authFixture{
		users:  newFakeUserRepo(),
		codes:  newFakeCodeRepo(),
		mailer: &recordingMailer{},
	}
	f.svc = NewAuthService(f.users, f.codes, ts, auth.NewCodeServiceForTest(4), f.mailer,
		"http://memo.test/", quietLogger())
	return f
}

func TestLoginOrRegisterGitHub_NewUser(t *testing.T) {
	f := newTestAuthService(t)

	result, err := f.svc.LoginOrRegisterGitHub(context.Background(), &auth.GitHubUser{
		ID: 42, Login: "octocat", Email: "octocat@github.com",
	})
	if err != nil {
		t.Fatalf("LoginOrRegisterGitHub() error = %v", err)
	}
	if result.User.ID == "" || result.Token == "" {
		t.Fatalf("LoginOrRegisterGitHub() = %+v", result)
	}

	userID, err := f.svc.ValidateToken(result.Token)
	if err != nil {
		t.Fatalf("ValidateToken() error = %v", err)
	}
	if userID != result.User.ID {
		t.Errorf("token subject = %q, want %q", userID, result.User.ID)
	}
}

func TestLoginOrRegisterGitHub_ExistingUserGetsUpdatedProfile(t *testing.T) {
	f := newTestAuthService(t)
	ctx := context.Background()

	first, _ := f.svc.LoginOrRegisterGitHub(ctx, &auth.GitHubUser{ID: 99, Login: "old-login"})
	second, err := f.svc.LoginOrRegisterGitHub(ctx, &auth.GitHubUser{ID: 99, Login: "new-login"})
	if err != nil {
		t.Fatalf("second login error: %v", err)
	}
	if second.User.ID != first.User.ID {
		t.Errorf("ID changed across logins: %q → %q", first.User.ID, second.User.ID)
	}
	if second.User.Login != "new-login" {
		t.Errorf("Login = %q, want %q", second.User.Login, "new-login")
	}
}

func TestLoginOrRegisterGitHub_Errors(t *testing.T) {
	f := newTestAuthService(t)
	if _, err := f.svc.LoginOrRegisterGitHub(context.Background(), nil); err == nil {
		t.Error("LoginOrRegisterGitHub(nil) should fail")
	}

	f.users.upsertErr = errors.New("database is on fire")
	if _, err := f.svc.LoginOrRegisterGitHub(context.Background(), &auth.GitHubUser{ID: 1}); err == nil {
		t.Error("LoginOrRegisterGitHub() should propagate repository errors")
	}
}

// requestCode asks for a code and returns the plaintext from the mailer.
func requestCode(t *testing.T, f *authFixture, email string) string {
	t.Helper()
	if err := f.svc.RequestEmailCode(context.Background(), email); err != nil {
		t.Fatalf("RequestEmailCode() error = %v", err)
	}
	return f.mailer.codes[len(f.mailer.codes)-1]
}

func TestRequestEmailCode_SendsLink(t *testing.T) {
	f := newTestAuthService(t)
	code := requestCode(t, f, "  Ann@Example.com ")

	link, err := url.Parse(f.mailer.links[0])
	if err != nil {
		t.Fatalf("link is not a URL: %v", err)
	}
	if link.Host != "memo.test" || link.Path != "/auth/email/verify" {
		t.Errorf("link = %s", link)
	}
	if link.Query().Get("email") != "ann@example.com" || link.Query().Get("code") != code {
		t.Errorf("link query = %v", link.Query())
	}

	stored, err := f.codes.Get(context.Background(), "ann@example.com")
	if err != nil {
		t.Fatalf("code not stored: %v", err)
	}
	if strings.Contains(stored.CodeHash, code) {
		t.Error("stored hash contains the plaintext code")
	}
	if d := time.Until(stored.ExpiresAt); d <= 14*time.Minute || d > SignInCodeTTL {
		t.Errorf("expiry in %v, want about %v", d, SignInCodeTTL)
	}
}

func TestRequestEmailCode_Validation(t *testing.T) {
	f := newTestAuthService(t)
	for _, email := range []string{"", "   ", "not-an-email", "a@b", "two@@example.com"} {
		err := f.svc.RequestEmailCode(context.Background(), email)
		if !errors.Is(err, apperror.ErrValidation) {
			t.Errorf("RequestEmailCode(%q) error = %v, want ErrValidation", email, err)
		}
	}
	if len(f.mailer.links) != 0 {
		t.Errorf("mailer called %d times for invalid input", len(f.mailer.links))
	}
}

func TestRequestEmailCode_RateLimited(t *testing.T) {
	f := newTestAuthService(t)
	ctx := context.Background()

	for i := 0; i < signInBurst; i++ {
		if err := f.svc.RequestEmailCode(ctx, "ann@example.com"); err != nil {
			t.Fatalf("request %d error = %v", i, err)
		}
	}
	err := f.svc.RequestEmailCode(ctx, "ann@example.com")
	if !errors.Is(err, apperror.ErrRateLimited) {
		t.Fatalf("request over the burst error = %v, want ErrRateLimited", err)
	}

	// Other addresses have their own budget.
	if err := f.svc.RequestEmailCode(ctx, "bob@example.com"); err != nil {
		t.Errorf("other address error = %v", err)
	}
}

func TestRequestEmailCode_MailerFailureIsTransient(t *testing.T) {
	f := newTestAuthService(t)
	f.mailer.err = errors.New("smtp down")

	err := f.svc.RequestEmailCode(context.Background(), "ann@example.com")
	if !errors.Is(err, apperror.ErrTransient) {
		t.Errorf("error = %v, want ErrTransient", err)
	}
}

func TestVerifyEmailCode_CreatesUserOnce(t *testing.T) {
	f := newTestAuthService(t)
	ctx := context.Background()

	code := requestCode(t, f, "ann@example.com")
	first, err := f.svc.VerifyEmailCode(ctx, "ANN@example.com", strings.ToLower(code))
	if err != nil {
		t.Fatalf("VerifyEmailCode() error = %v", err)
	}
	if first.User.Email != "ann@example.com" || first.User.Login != "ann" {
		t.Errorf("user = %+v", first.User)
	}

	code = requestCode(t, f, "ann@example.com")
	second, err := f.svc.VerifyEmailCode(ctx, "ann@example.com", code)
	if err != nil {
		t.Fatalf("second VerifyEmailCode() error = %v", err)
	}
	if second.User.ID != first.User.ID {
		t.Errorf("second sign-in created a new account: %q vs %q", second.User.ID, first.User.ID)
	}
}

func TestVerifyEmailCode_SingleUse(t *testing.T) {
	f := newTestAuthService(t)
	ctx := context.Background()
	code := requestCode(t, f, "ann@example.com")

	if _, err := f.svc.VerifyEmailCode(ctx, "ann@example.com", code); err != nil {
		t.Fatalf("first use error = %v", err)
	}
	_, err := f.svc.VerifyEmailCode(ctx, "ann@example.com", code)
	if !errors.Is(err, apperror.ErrUnauthorized) {
		t.Errorf("reuse error = %v, want ErrUnauthorized", err)
	}
}

func TestVerifyEmailCode_WrongCodeKeepsCode(t *testing.T) {
	f := newTestAuthService(t)
	ctx := context.Background()
	code := requestCode(t, f, "ann@example.com")

	_, err := f.svc.VerifyEmailCode(ctx, "ann@example.com", "WRONGONE")
	if !errors.Is(err, apperror.ErrUnauthorized) {
		t.Fatalf("wrong code error = %v, want ErrUnauthorized", err)
	}
	if _, err := f.svc.VerifyEmailCode(ctx, "ann@example.com", code); err != nil {
		t.Errorf("right code after a typo error = %v", err)
	}
}

func TestVerifyEmailCode_Expired(t *testing.T) {
	f := newTestAuthService(t)
	code := requestCode(t, f, "ann@example.com")
	f.svc.now = func() time.Time { return time.Now().Add(SignInCodeTTL + time.Second) }

	_, err := f.svc.VerifyEmailCode(context.Background(), "ann@example.com", code)
	if !errors.Is(err, apperror.ErrUnauthorized) {
		t.Errorf("expired code error = %v, want ErrUnauthorized", err)
	}
}

func TestVerifyEmailCode_NoCode(t *testing.T) {
	f := newTestAuthService(t)

	_, err := f.svc.VerifyEmailCode(context.Background(), "ann@example.com", "ABCDEFGH")
	if !errors.Is(err, apperror.ErrUnauthorized) {
		t.Errorf("error = %v, want ErrUnauthorized", err)
	}
	_, err = f.svc.VerifyEmailCode(context.Background(), "ann@example.com", " ")
	if !errors.Is(err, apperror.ErrValidation) {
		t.Errorf("blank code error = %v, want ErrValidation", err)
	}
}

// A GitHub login with the same address lands in the email account.
func TestEmailThenGitHubLinks(t *testing.T) {
	f := newTestAuthService(t)
	ctx := context.Background()
	code := requestCode(t, f, "ann@example.com")
	viaEmail, _ := f.svc.VerifyEmailCode(ctx, "ann@example.com", code)

	viaGitHub, err := f.svc.LoginOrRegisterGitHub(ctx, &auth.GitHubUser{ID: 5, Login: "ann-gh", Email: "ann@example.com"})
	if err != nil {
		t.Fatalf("LoginOrRegisterGitHub() error = %v", err)
	}
	if viaGitHub.User.ID != viaEmail.User.ID {
		t.Errorf("GitHub login created %q, want linked %q", viaGitHub.User.ID, viaEmail.User.ID)
	}
}

func TestPruneExpiredCodes(t *testing.T) {
	f := newTestAuthService(t)
	requestCode(t, f, "ann@example.com")
	f.codes.codes["ann@example.com"].ExpiresAt = time.Now().Add(-time.Minute)

	if err := f.svc.PruneExpiredCodes(context.Background()); err != nil {
		t.Fatalf("PruneExpiredCodes() error = %v", err)
	}
	if _, err := f.codes.Get(context.Background(), "ann@example.com"); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("expired code still present: %v", err)
	}
}

func TestGetUserByID(t *testing.T) {
	f := newTestAuthService(t)
	ctx := context.Background()
	result, _ := f.svc.LoginOrRegisterGitHub(ctx, &auth.GitHubUser{ID: 7, Login: "findme"})

	user, err := f.svc.GetUserByID(ctx, result.User.ID)
	if err != nil || user.Login != "findme" {
		t.Fatalf("GetUserByID() = %v, %v", user, err)
	}
	if _, err := f.svc.GetUserByID(ctx, ""); !errors.Is(err, apperror.ErrUnauthorized) {
		t.Errorf("GetUserByID(\"\") error = %v, want ErrUnauthorized", err)
	}
	if _, err := f.svc.GetUserByID(ctx, "ghost"); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetUserByID(ghost) error = %v, want ErrNotFound", err)
	}
}

func TestValidateToken_Invalid(t *testing.T) {
	f := newTestAuthService(t)
	if _, err := f.svc.ValidateToken("this.is.garbage"); !errors.Is(err, apperror.ErrUnauthorized) {
		t.Errorf("ValidateToken() error = %v, want ErrUnauthorized", err)
	}
}
