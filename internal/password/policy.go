package password

import (
	"fmt"
	"unicode"
)

// Policy enforces password complexity on registration and password change.
type Policy struct {
	MinLength      int
	RequireUpper   bool
	RequireLower   bool
	RequireDigit   bool
	RequireSpecial bool
}

// DefaultPolicy mirrors the service's registration requirements.
var DefaultPolicy = Policy{
	MinLength:      8,
	RequireUpper:   true,
	RequireLower:   true,
	RequireDigit:   true,
	RequireSpecial: true,
}

// Validate returns a user-facing error describing the first unmet rule.
func (p Policy) Validate(password string) error {
	if len(password) < p.MinLength {
		return fmt.Errorf("Password must be at least %d characters long", p.MinLength)
	}

	var upper, lower, digit, special bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		default:
			special = true
		}
	}

	if p.RequireUpper && !upper {
		return fmt.Errorf("Password must contain at least one uppercase letter")
	}
	if p.RequireLower && !lower {
		return fmt.Errorf("Password must contain at least one lowercase letter")
	}
	if p.RequireDigit && !digit {
		return fmt.Errorf("Password must contain at least one digit")
	}
	if p.RequireSpecial && !special {
		return fmt.Errorf("Password must contain at least one special character")
	}
	return nil
}
