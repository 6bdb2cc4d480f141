package utils

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/crypto/bcrypt"
)

// ErrWeakPassword is returned by ValidatePasswordStrength when a password
// does not satisfy the structural rules.  The returned error wraps this
// sentinel together with the specific rule that failed.
var ErrWeakPassword = errors.New("weak password")

// passwordSymbols is the punctuation set accepted as "special characters".
const passwordSymbols = `!@#$%^&*(),.?":{}|<>`

// HashPassword returns bcrypt hash using the given cost.
func HashPassword(plain string, cost int) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// VerifyPassword safely compares bcrypt hash and plain password.
func VerifyPassword(hash, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}

// ValidatePasswordStrength enforces the structural password policy: at least
// 8 characters, one uppercase letter, one lowercase letter, one digit and one
// symbol from passwordSymbols.  The check is purely structural; it performs
// no dictionary or breach lookup.
func ValidatePasswordStrength(pw string) error {
	if len(pw) < 8 {
		return fmt.Errorf("%w: must contain at least 8 characters", ErrWeakPassword)
	}
	var upper, lower, digit, symbol bool
	for _, r := range pw {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		case strings.ContainsRune(passwordSymbols, r):
			symbol = true
		}
	}
	if !upper {
		return fmt.Errorf("%w: must contain at least one uppercase letter", ErrWeakPassword)
	}
	if !lower {
		return fmt.Errorf("%w: must contain at least one lowercase letter", ErrWeakPassword)
	}
	if !digit {
		return fmt.Errorf("%w: must contain at least one digit", ErrWeakPassword)
	}
	if !symbol {
		return fmt.Errorf("%w: must contain at least one special character", ErrWeakPassword)
	}
	return nil
}
