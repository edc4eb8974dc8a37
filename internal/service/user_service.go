package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/zap"

	"github.com/Gideon-Phiri/secure-auth-service/internal/domain"
	"github.com/Gideon-Phiri/secure-auth-service/internal/lockout"
	"github.com/Gideon-Phiri/secure-auth-service/internal/password"
	"github.com/Gideon-Phiri/secure-auth-service/internal/repository"
	"github.com/Gideon-Phiri/secure-auth-service/internal/securitylog"
)

// UserService covers self-service profile changes and admin CRUD over
// accounts. Lockout counters are only ever touched through the lockout
// policy's reset path, keeping the account invariants in one place.
type UserService struct {
	accounts repository.AccountRepository
	hasher   *password.Hasher
	policy   password.Policy
	lockout  *lockout.Policy
	events   *securitylog.Emitter
	node     *snowflake.Node
	logger   *zap.Logger
}

// NewUserService wires dependencies.
func NewUserService(
	accounts repository.AccountRepository,
	hasher *password.Hasher,
	lockoutPolicy *lockout.Policy,
	events *securitylog.Emitter,
	node *snowflake.Node,
	logger *zap.Logger,
) *UserService {
	return &UserService{
		accounts: accounts,
		hasher:   hasher,
		policy:   password.DefaultPolicy,
		lockout:  lockoutPolicy,
		events:   events,
		node:     node,
		logger:   logger,
	}
}

// List returns a page of accounts (admin only).
func (s *UserService) List(ctx context.Context, offset, limit int) ([]AccountView, error) {
	if limit <= 0 || limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	accounts, err := s.accounts.List(ctx, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	views := make([]AccountView, 0, len(accounts))
	for _, account := range accounts {
		views = append(views, NewAccountView(account))
	}
	return views, nil
}

// Get loads one account (admin only).
func (s *UserService) Get(ctx context.Context, id int64) (AccountView, error) {
	account, err := s.accounts.GetByID(ctx, id)
	if err != nil {
		return AccountView{}, err
	}
	return NewAccountView(account), nil
}

// AdminCreate provisions a pre-verified account, optionally a superuser.
func (s *UserService) AdminCreate(ctx context.Context, meta RequestMeta, admin domain.Account, email, plaintext string, superuser bool) (AccountView, error) {
	normalized := strings.ToLower(strings.TrimSpace(email))
	if normalized == "" || !strings.Contains(normalized, "@") {
		return AccountView{}, fmt.Errorf("%w: invalid email address", ErrValidation)
	}
	if err := s.policy.Validate(plaintext); err != nil {
		return AccountView{}, fmt.Errorf("%w: %s", ErrValidation, err.Error())
	}

	hash, err := s.hasher.Hash(plaintext)
	if err != nil {
		return AccountView{}, fmt.Errorf("hash password: %w", err)
	}

	created, err := s.accounts.Create(ctx, domain.Account{
		ID:            s.node.Generate().Int64(),
		Email:         normalized,
		PasswordHash:  hash,
		EmailVerified: true,
		IsActive:      true,
		IsSuperuser:   superuser,
	})
	if err != nil {
		if errors.Is(err, domain.ErrDuplicateEmail) {
			return AccountView{}, fmt.Errorf("%w: email already registered", ErrValidation)
		}
		return AccountView{}, err
	}

	s.emit(meta, domain.SecurityEvent{
		EventType: domain.EventAdminUserCreated, AccountID: admin.ID, Success: true,
		Details: fmt.Sprintf("created user %s (superuser: %t)", created.Email, superuser),
	})
	return NewAccountView(created), nil
}

// Update applies profile changes. A self-service email change resets email
// verification; an admin-driven change does not. A password change resets
// the lockout counters, same as a successful authentication.
func (s *UserService) Update(ctx context.Context, meta RequestMeta, actor domain.Account, targetID int64, update AccountUpdate, self bool) (AccountView, error) {
	account, err := s.accounts.GetByID(ctx, targetID)
	if err != nil {
		return AccountView{}, err
	}

	passwordChanged := false
	if update.Email != nil {
		normalized := strings.ToLower(strings.TrimSpace(*update.Email))
		if normalized == "" || !strings.Contains(normalized, "@") {
			return AccountView{}, fmt.Errorf("%w: invalid email address", ErrValidation)
		}
		if normalized != account.Email {
			account.Email = normalized
			if self {
				account.EmailVerified = false
			}
		}
	}
	if update.Password != nil {
		if err := s.policy.Validate(*update.Password); err != nil {
			return AccountView{}, fmt.Errorf("%w: %s", ErrValidation, err.Error())
		}
		hash, err := s.hasher.Hash(*update.Password)
		if err != nil {
			return AccountView{}, fmt.Errorf("hash password: %w", err)
		}
		account.PasswordHash = hash
		passwordChanged = true
	}

	updated, err := s.accounts.Update(ctx, account)
	if err != nil {
		if errors.Is(err, domain.ErrDuplicateEmail) {
			return AccountView{}, fmt.Errorf("%w: email already registered", ErrValidation)
		}
		return AccountView{}, err
	}

	if passwordChanged {
		if err := s.accounts.ResetLockout(ctx, updated.ID); err != nil {
			s.log().Warn("reset lockout after password change failed", zap.Int64("account_id", updated.ID), zap.Error(err))
		}
		s.emit(meta, domain.SecurityEvent{
			EventType: domain.EventPasswordChanged, AccountID: updated.ID, Email: updated.Email, Success: true,
		})
	}

	eventType := domain.EventAdminUserUpdated
	if self {
		eventType = "profile_update"
	}
	s.emit(meta, domain.SecurityEvent{
		EventType: eventType, AccountID: actor.ID, Success: true,
		Details: fmt.Sprintf("updated user %s", updated.Email),
	})
	return NewAccountView(updated), nil
}

// Activate re-enables an account and clears its lockout state.
func (s *UserService) Activate(ctx context.Context, meta RequestMeta, admin domain.Account, targetID int64) error {
	account, err := s.accounts.GetByID(ctx, targetID)
	if err != nil {
		return err
	}

	account.IsActive = true
	if _, err := s.accounts.Update(ctx, account); err != nil {
		return err
	}
	if err := s.accounts.ResetLockout(ctx, account.ID); err != nil {
		return fmt.Errorf("clear lockout: %w", err)
	}

	s.emit(meta, domain.SecurityEvent{
		EventType: domain.EventAdminActivation, AccountID: admin.ID, Success: true,
		Details: fmt.Sprintf("activated user %s", account.Email),
	})
	return nil
}

// Deactivate disables an account, refusing to disable the last active admin.
func (s *UserService) Deactivate(ctx context.Context, meta RequestMeta, admin domain.Account, targetID int64) error {
	account, err := s.accounts.GetByID(ctx, targetID)
	if err != nil {
		return err
	}

	if account.IsSuperuser {
		active, err := s.accounts.CountSuperusers(ctx, true)
		if err != nil {
			return fmt.Errorf("count active admins: %w", err)
		}
		if active <= 1 {
			return ErrLastAdmin
		}
	}

	account.IsActive = false
	if _, err := s.accounts.Update(ctx, account); err != nil {
		return err
	}

	s.emit(meta, domain.SecurityEvent{
		EventType: domain.EventAdminDeactivation, AccountID: admin.ID, Success: true,
		Details: fmt.Sprintf("deactivated user %s", account.Email),
	})
	return nil
}

// Delete removes an account, refusing to remove the last admin.
func (s *UserService) Delete(ctx context.Context, meta RequestMeta, admin domain.Account, targetID int64) error {
	account, err := s.accounts.GetByID(ctx, targetID)
	if err != nil {
		return err
	}

	if account.IsSuperuser {
		total, err := s.accounts.CountSuperusers(ctx, false)
		if err != nil {
			return fmt.Errorf("count admins: %w", err)
		}
		if total <= 1 {
			return ErrLastAdmin
		}
	}

	if err := s.accounts.Delete(ctx, account.ID); err != nil {
		return err
	}

	s.emit(meta, domain.SecurityEvent{
		EventType: domain.EventAdminUserDeleted, AccountID: admin.ID, Success: true,
		Details: fmt.Sprintf("deleted user %s", account.Email),
	})
	return nil
}

// DeleteSelf removes the caller's own account.
func (s *UserService) DeleteSelf(ctx context.Context, meta RequestMeta, account domain.Account) error {
	if account.IsSuperuser {
		total, err := s.accounts.CountSuperusers(ctx, false)
		if err != nil {
			return fmt.Errorf("count admins: %w", err)
		}
		if total <= 1 {
			return ErrLastAdmin
		}
	}

	if err := s.accounts.Delete(ctx, account.ID); err != nil {
		return err
	}

	s.emit(meta, domain.SecurityEvent{
		EventType: domain.EventAccountDeleted, AccountID: account.ID, Email: account.Email, Success: true,
		Details: "user deleted their own account",
	})
	return nil
}

func (s *UserService) emit(meta RequestMeta, event domain.SecurityEvent) {
	event.SourceIP = meta.SourceIP
	event.UserAgent = meta.UserAgent
	s.events.Emit(event)
}

func (s *UserService) log() *zap.Logger {
	if s != nil && s.logger != nil {
		return s.logger
	}
	return zap.L()
}
