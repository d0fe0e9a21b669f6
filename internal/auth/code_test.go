package auth

import (
	"errors"
	"strings"
	"testing"

	"github.com/sakif/memopad/internal/apperror"
)

func TestCodeService_NewAndVerify(t *testing.T) {
	cs := NewCodeServiceForTest(4)

	code, hash, err := cs.New()
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if len(code) != CodeLength {
		t.Errorf("len(code) = %d, want %d", len(code), CodeLength)
	}
	if strings.ToUpper(code) != code {
		t.Errorf("code %q is not upper case", code)
	}
	if !strings.HasPrefix(hash, "$2") {
		t.Errorf("hash %q doesn't look like bcrypt", hash)
	}
	if strings.Contains(hash, code) {
		t.Error("hash contains the plaintext code")
	}

	if err := cs.Verify(hash, code); err != nil {
		t.Errorf("Verify() with the right code error = %v", err)
	}
	// Hand-typed codes are forgiven case and surrounding space.
	if err := cs.Verify(hash, "  "+strings.ToLower(code)+"\n"); err != nil {
		t.Errorf("Verify() with lower-case code error = %v", err)
	}
}

func TestCodeService_VerifyWrongCode(t *testing.T) {
	cs := NewCodeServiceForTest(4)
	_, hash, err := cs.New()
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	err = cs.Verify(hash, "AAAAAAAA")
	if !errors.Is(err, apperror.ErrUnauthorized) {
		t.Errorf("Verify() error = %v, want ErrUnauthorized", err)
	}
}

func TestCodeService_CodesDiffer(t *testing.T) {
	cs := NewCodeServiceForTest(4)
	seen := map[string]bool{}
	for i := 0; i < 20; i++ {
		code, _, err := cs.New()
		if err != nil {
			t.Fatalf("New() error = %v", err)
		}
		if seen[code] {
			t.Fatalf("New() repeated code %q", code)
		}
		seen[code] = true
	}
}
