package domain

import "time"

// Security event types emitted by the auth orchestrator and admin operations.
const (
	EventAuthSuccess       = "auth_success"
	EventAuthFailure       = "auth_failure"
	EventAccountLockout    = "account_lockout"
	EventAccountLocked     = "account_locked_rejection"
	EventRateLimited       = "rate_limit_exceeded"
	EventEmailUnverified   = "email_not_verified"
	EventAccountDisabled   = "account_disabled"
	EventTokenRefreshed    = "token_refreshed"
	EventTokenReplay       = "refresh_token_replay"
	EventRegistration      = "registration"
	EventEmailVerified     = "email_verified"
	EventPasswordChanged   = "password_changed"
	EventAccountDeleted    = "account_deletion"
	EventAdminUserCreated  = "admin_user_creation"
	EventAdminUserUpdated  = "admin_user_update"
	EventAdminUserDeleted  = "admin_user_deletion"
	EventAdminActivation   = "admin_user_activation"
	EventAdminDeactivation = "admin_user_deactivation"
)

// SecurityEvent is an immutable, append-only record of a security-relevant
// outcome. One event is emitted per terminal state transition.
type SecurityEvent struct {
	Timestamp time.Time
	EventType string
	AccountID int64
	Email     string
	SourceIP  string
	UserAgent string
	Success   bool
	Details   string
}
