package service

import (
	"errors"
	"time"

	"github.com/Gideon-Phiri/secure-auth-service/internal/domain"
)

// Sentinel errors surfaced to the transport layer as 4xx responses.
var (
	// ErrValidation wraps user-facing input problems.
	ErrValidation = errors.New("validation failed")
	// ErrLastAdmin guards removal or deactivation of the final superuser.
	ErrLastAdmin = errors.New("cannot remove the last admin")
	// ErrForbidden marks an operation the caller is not allowed to perform.
	ErrForbidden = errors.New("not enough permissions")
)

// AccountView is the user profile shape returned to clients. The password
// hash and lockout bookkeeping never leave the service layer.
type AccountView struct {
	ID            int64     `json:"id"`
	Email         string    `json:"email"`
	EmailVerified bool      `json:"email_verified"`
	IsActive      bool      `json:"is_active"`
	IsSuperuser   bool      `json:"is_superuser"`
	CreatedAt     time.Time `json:"created_at"`
}

// NewAccountView projects an account into its client-facing shape.
func NewAccountView(account domain.Account) AccountView {
	return AccountView{
		ID:            account.ID,
		Email:         account.Email,
		EmailVerified: account.EmailVerified,
		IsActive:      account.IsActive,
		IsSuperuser:   account.IsSuperuser,
		CreatedAt:     account.CreatedAt,
	}
}

// AccountUpdate carries optional profile changes; nil fields stay untouched.
type AccountUpdate struct {
	Email    *string
	Password *string
}
