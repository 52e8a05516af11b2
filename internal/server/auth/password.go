package auth

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/dstepanov2008/shopauth/internal/common"
)

// PasswordSpecialChars is the set accepted for the special-character rule.
const PasswordSpecialChars = "!@#$%^&*()_+-=[]{}|;:,.<>?"

const (
	passwordMinLen = 8
	passwordMaxLen = 128
)

// Each policy violation has its own error value so the caller can name the
// unmet rule instead of returning a generic rejection.
var (
	ErrPasswordTooShort  = fmt.Errorf("%w: password must be at least 8 characters long", common.ErrorValidation)
	ErrPasswordTooLong   = fmt.Errorf("%w: password must be no more than 128 characters long", common.ErrorValidation)
	ErrPasswordNoUpper   = fmt.Errorf("%w: password must contain at least one uppercase letter", common.ErrorValidation)
	ErrPasswordNoLower   = fmt.Errorf("%w: password must contain at least one lowercase letter", common.ErrorValidation)
	ErrPasswordNoDigit   = fmt.Errorf("%w: password must contain at least one digit", common.ErrorValidation)
	ErrPasswordNoSpecial = fmt.Errorf("%w: password must contain at least one special character", common.ErrorValidation)

	ErrEmailInvalid = fmt.Errorf("%w: invalid email address", common.ErrorValidation)
)

// ValidatePasswordStrength checks the shared password policy: length 8–128
// and at least one uppercase letter, lowercase letter, digit, and special
// character. The first unmet rule is reported.
func ValidatePasswordStrength(password string) error {
	if len(password) < passwordMinLen {
		return ErrPasswordTooShort
	}
	if len(password) > passwordMaxLen {
		return ErrPasswordTooLong
	}

	var hasUpper, hasLower, hasDigit, hasSpecial bool
	for _, c := range password {
		switch {
		case unicode.IsUpper(c):
			hasUpper = true
		case unicode.IsLower(c):
			hasLower = true
		case unicode.IsDigit(c):
			hasDigit = true
		case strings.ContainsRune(PasswordSpecialChars, c):
			hasSpecial = true
		}
	}

	switch {
	case !hasUpper:
		return ErrPasswordNoUpper
	case !hasLower:
		return ErrPasswordNoLower
	case !hasDigit:
		return ErrPasswordNoDigit
	case !hasSpecial:
		return ErrPasswordNoSpecial
	}
	return nil
}

// ValidateEmail performs a shape check: exactly one @, non-empty local and
// domain parts, and at least one dot in the domain. Deliverability is the
// mail system's problem, not ours.
func ValidateEmail(email string) error {
	if email == "" {
		return ErrEmailInvalid
	}
	local, domain, ok := strings.Cut(email, "@")
	if !ok || strings.Contains(domain, "@") {
		return ErrEmailInvalid
	}
	if local == "" || domain == "" || !strings.Contains(domain, ".") {
		return ErrEmailInvalid
	}
	return nil
}
