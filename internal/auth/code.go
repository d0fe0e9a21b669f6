package auth

import (
	"crypto/rand"
	"encoding/base32"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/sakif/memopad/internal/apperror"
)

// CodeLength is the number of characters in an email sign-in code.
const CodeLength = 8

const defaultCost = 12

// Codes are upper-case A-Z and 2-7.
var codeEncoding = base32.StdEncoding.WithPadding(base32.NoPadding)

// CodeService creates one-time sign-in codes and stores them only as bcrypt
// hashes, so a leaked sign_in_codes table can't be replayed.
type CodeService struct {
	cost int
}

func NewCodeService() *CodeService {
	return &CodeService{cost: defaultCost}
}

// NewCodeServiceForTest uses a low bcrypt cost. Cost 4 is the minimum and
// keeps tests fast.
func NewCodeServiceForTest(cost int) *CodeService {
	return &CodeService{cost: cost}
}

// New returns a random code and its hash.
func (c *CodeService) New() (code, hash string, err error) {
	buf := make([]byte, 5) // 40 bits, exactly 8 base32 characters
	if _, err := rand.Read(buf); err != nil {
		return "", "", fmt.Errorf("auth: generating sign-in code: %w", err)
	}
	code = codeEncoding.EncodeToString(buf)[:CodeLength]

	hashed, err := bcrypt.GenerateFromPassword([]byte(code), c.cost)
	if err != nil {
		return "", "", fmt.Errorf("auth: hashing sign-in code: %w", err)
	}
	return code, string(hashed), nil
}

// NormalizeCode upper-cases and trims a code typed by hand.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Verify checks code against hash. A mismatch wraps apperror.ErrUnauthorized.
func (c *CodeService) Verify(hash, code string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(NormalizeCode(code)))
	if err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return apperror.Unauthorized("auth: invalid sign-in code")
		}
		return fmt.Errorf("auth: comparing sign-in code hash: %w", err)
	}
	return nil
}
