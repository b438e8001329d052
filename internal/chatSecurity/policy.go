package chatSecurity

import (
	"strings"
	"unicode"

	"github.com/akolanti/CyberScholar/internal/config"
	"github.com/akolanti/CyberScholar/internal/domain/coreErrors"
)

// CheckStrength reports the first rule a password breaks, or nil.
func CheckStrength(password string) error {
	if len([]rune(password)) < config.PasswordMinLength {
		return &coreErrors.WeakPasswordError{Reason: "Password must be at least 8 characters long"}
	}

	var upper, lower, digit, symbol bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		case strings.ContainsRune(config.PasswordSymbols, r):
			symbol = true
		}
	}

	switch {
	case !upper:
		return &coreErrors.WeakPasswordError{Reason: "Password must contain at least one uppercase letter"}
	case !lower:
		return &coreErrors.WeakPasswordError{Reason: "Password must contain at least one lowercase letter"}
	case !digit:
		return &coreErrors.WeakPasswordError{Reason: "Password must contain at least one digit"}
	case !symbol:
		return &coreErrors.WeakPasswordError{Reason: "Password must contain at least one special character"}
	}
	return nil
}
