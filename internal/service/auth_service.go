package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/Gideon-Phiri/secure-auth-service/internal/config"
	"github.com/Gideon-Phiri/secure-auth-service/internal/domain"
	"github.com/Gideon-Phiri/secure-auth-service/internal/lockout"
	"github.com/Gideon-Phiri/secure-auth-service/internal/mailer"
	"github.com/Gideon-Phiri/secure-auth-service/internal/password"
	"github.com/Gideon-Phiri/secure-auth-service/internal/ratelimit"
	"github.com/Gideon-Phiri/secure-auth-service/internal/repository"
	"github.com/Gideon-Phiri/secure-auth-service/internal/securitylog"
	"github.com/Gideon-Phiri/secure-auth-service/internal/token"
)

// RequestMeta carries the source identity of an inbound request into the
// decision logic and its security events.
type RequestMeta struct {
	SourceIP  string
	UserAgent string
}

// TokenResponse is the wire shape of an issued token pair.
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
}

// AuthService is the auth orchestrator. Each login attempt walks a fixed
// state machine: rate check, lock check, credential verify, verification
// check, active check, success. Every terminal state emits exactly one
// security event. No step is retried except a single retry of transient
// store failures.
type AuthService struct {
	accounts repository.AccountRepository
	hasher   *password.Hasher
	policy   password.Policy
	lockout  *lockout.Policy
	gate     ratelimit.Gate
	issuer   *token.Issuer
	events   *securitylog.Emitter
	mail     mailer.Mailer
	node     *snowflake.Node
	cfg      config.Config
	logger   *zap.Logger
	tracer   trace.Tracer

	// decoyHash absorbs the verification cost for unknown accounts so the
	// response latency does not reveal whether an email is registered.
	decoyHash string
}

// NewAuthService wires dependencies.
func NewAuthService(
	accounts repository.AccountRepository,
	hasher *password.Hasher,
	lockoutPolicy *lockout.Policy,
	gate ratelimit.Gate,
	issuer *token.Issuer,
	events *securitylog.Emitter,
	mail mailer.Mailer,
	node *snowflake.Node,
	cfg config.Config,
	logger *zap.Logger,
) *AuthService {
	decoy, err := hasher.Hash("decoy-password-for-timing-uniformity")
	if err != nil {
		decoy = ""
	}
	return &AuthService{
		accounts:  accounts,
		hasher:    hasher,
		policy:    password.DefaultPolicy,
		lockout:   lockoutPolicy,
		gate:      gate,
		issuer:    issuer,
		events:    events,
		mail:      mail,
		node:      node,
		cfg:       cfg,
		logger:    logger,
		tracer:    otel.Tracer("github.com/Gideon-Phiri/secure-auth-service/internal/service"),
		decoyHash: decoy,
	}
}

// Login runs the credential-check state machine and issues a token pair on
// success. Unknown account and wrong password are indistinguishable to the
// caller: both return INVALID_CREDENTIALS after comparable hashing work.
func (s *AuthService) Login(ctx context.Context, meta RequestMeta, email, plaintext string) (*TokenResponse, error) {
	ctx, span := s.startSpan(ctx, "AuthService.Login")
	defer span.End()

	normalized := strings.ToLower(strings.TrimSpace(email))

	if err := s.admit(ctx, meta, ratelimit.EndpointLogin, normalized); err != nil {
		return nil, err
	}

	account, err := s.loadByEmail(ctx, normalized)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			// Burn the same hashing cost as a real mismatch; known-vs-unknown
			// account must not be observable from the response or its timing.
			_, _ = s.hasher.Verify(plaintext, s.decoyHash)
			s.emit(meta, domain.SecurityEvent{
				EventType: domain.EventAuthFailure, Email: normalized, Success: false,
				Details: "unknown account",
			})
			return nil, domain.ErrInvalidCredentials()
		}
		span.RecordError(err)
		return nil, err
	}

	if state := s.lockout.CheckLocked(account); state.Locked {
		s.emit(meta, domain.SecurityEvent{
			EventType: domain.EventAccountLocked, AccountID: account.ID, Email: account.Email,
			Success: false, Details: fmt.Sprintf("locked until %s", state.Until.UTC().Format(time.RFC3339)),
		})
		return nil, domain.ErrAccountLocked()
	}

	valid, err := s.hasher.Verify(plaintext, account.PasswordHash)
	if err != nil || !valid {
		state, recordErr := s.recordFailure(ctx, account)
		if recordErr != nil {
			span.RecordError(recordErr)
			return nil, recordErr
		}
		details := "wrong password"
		if state.Locked {
			details = "wrong password; account locked"
		}
		s.emit(meta, domain.SecurityEvent{
			EventType: domain.EventAuthFailure, AccountID: account.ID, Email: account.Email,
			Success: false, Details: details,
		})
		return nil, domain.ErrInvalidCredentials()
	}

	if !account.EmailVerified {
		s.emit(meta, domain.SecurityEvent{
			EventType: domain.EventEmailUnverified, AccountID: account.ID, Email: account.Email,
			Success: false, Details: "login rejected: email not verified",
		})
		return nil, domain.ErrEmailNotVerified()
	}

	if !account.IsActive {
		s.emit(meta, domain.SecurityEvent{
			EventType: domain.EventAccountDisabled, AccountID: account.ID, Email: account.Email,
			Success: false, Details: "login rejected: account disabled",
		})
		return nil, domain.ErrAccountDisabled()
	}

	if err := s.recordSuccess(ctx, account); err != nil {
		span.RecordError(err)
		return nil, err
	}

	pair, err := s.issuer.IssuePair(account)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("issue tokens: %w", err)
	}

	s.emit(meta, domain.SecurityEvent{
		EventType: domain.EventAuthSuccess, AccountID: account.ID, Email: account.Email, Success: true,
	})
	return tokenResponse(pair), nil
}

// Refresh exchanges a refresh token for a new pair, rotating the presented
// token. A rotated token presented again terminates with TOKEN_REVOKED.
func (s *AuthService) Refresh(ctx context.Context, meta RequestMeta, refreshToken string) (*TokenResponse, error) {
	ctx, span := s.startSpan(ctx, "AuthService.Refresh")
	defer span.End()

	if err := s.admit(ctx, meta, ratelimit.EndpointRefresh, ""); err != nil {
		return nil, err
	}

	identity, err := s.issuer.Verify(ctx, refreshToken, token.KindRefresh)
	if err != nil {
		var authErr *domain.AuthError
		if errors.As(err, &authErr) && authErr.Code == domain.CodeTokenRevoked {
			s.emit(meta, domain.SecurityEvent{
				EventType: domain.EventTokenReplay, AccountID: identity.Subject, Success: false,
				Details: "rotated refresh token replayed",
			})
			return nil, err
		}
		s.emit(meta, domain.SecurityEvent{
			EventType: domain.EventAuthFailure, Success: false, Details: "invalid refresh token",
		})
		return nil, err
	}

	account, err := s.loadByID(ctx, identity.Subject)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrTokenMalformed()
		}
		span.RecordError(err)
		return nil, err
	}
	if !account.IsActive {
		s.emit(meta, domain.SecurityEvent{
			EventType: domain.EventAccountDisabled, AccountID: account.ID, Email: account.Email,
			Success: false, Details: "refresh rejected: account disabled",
		})
		return nil, domain.ErrAccountDisabled()
	}

	pair, err := s.issuer.Rotate(ctx, refreshToken, account)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	s.emit(meta, domain.SecurityEvent{
		EventType: domain.EventTokenRefreshed, AccountID: account.ID, Email: account.Email, Success: true,
	})
	return tokenResponse(pair), nil
}

// Register creates an unverified account and sends the verification token.
// Mail delivery is fire-and-forget: a send failure is logged, not returned.
func (s *AuthService) Register(ctx context.Context, meta RequestMeta, email, plaintext string) (domain.Account, error) {
	ctx, span := s.startSpan(ctx, "AuthService.Register")
	defer span.End()

	normalized := strings.ToLower(strings.TrimSpace(email))
	if normalized == "" || !strings.Contains(normalized, "@") {
		return domain.Account{}, fmt.Errorf("%w: invalid email address", ErrValidation)
	}

	if err := s.admit(ctx, meta, ratelimit.EndpointRegister, normalized); err != nil {
		return domain.Account{}, err
	}

	if err := s.policy.Validate(plaintext); err != nil {
		return domain.Account{}, fmt.Errorf("%w: %s", ErrValidation, err.Error())
	}

	hash, err := s.hasher.Hash(plaintext)
	if err != nil {
		span.RecordError(err)
		return domain.Account{}, fmt.Errorf("hash password: %w", err)
	}

	account := domain.Account{
		ID:           s.node.Generate().Int64(),
		Email:        normalized,
		PasswordHash: hash,
		IsActive:     true,
	}
	created, err := s.createAccount(ctx, account)
	if err != nil {
		if errors.Is(err, domain.ErrDuplicateEmail) {
			return domain.Account{}, fmt.Errorf("%w: email already registered", ErrValidation)
		}
		span.RecordError(err)
		return domain.Account{}, err
	}

	verify, err := s.issuer.Issue(created, token.KindVerify)
	if err != nil {
		span.RecordError(err)
		return domain.Account{}, fmt.Errorf("issue verification token: %w", err)
	}
	go func() {
		sendCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.mail.SendVerification(sendCtx, created.Email, verify); err != nil {
			s.log().Warn("verification mail failed", zap.String("email", created.Email), zap.Error(err))
		}
	}()

	s.emit(meta, domain.SecurityEvent{
		EventType: domain.EventRegistration, AccountID: created.ID, Email: created.Email, Success: true,
	})
	return created, nil
}

// VerifyEmail redeems a verification token and marks the account verified.
func (s *AuthService) VerifyEmail(ctx context.Context, meta RequestMeta, raw string) error {
	ctx, span := s.startSpan(ctx, "AuthService.VerifyEmail")
	defer span.End()

	identity, err := s.issuer.Verify(ctx, raw, token.KindVerify)
	if err != nil {
		return err
	}

	account, err := s.loadByID(ctx, identity.Subject)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ErrTokenMalformed()
		}
		span.RecordError(err)
		return err
	}
	if account.EmailVerified {
		return nil
	}

	account.EmailVerified = true
	if _, err := s.accounts.Update(ctx, account); err != nil {
		span.RecordError(err)
		return fmt.Errorf("mark verified: %w", err)
	}

	s.emit(meta, domain.SecurityEvent{
		EventType: domain.EventEmailVerified, AccountID: account.ID, Email: account.Email, Success: true,
	})
	return nil
}

// Authenticate validates a bearer access token and loads its account.
func (s *AuthService) Authenticate(ctx context.Context, raw string) (domain.Account, error) {
	identity, err := s.issuer.Verify(ctx, raw, token.KindAccess)
	if err != nil {
		return domain.Account{}, err
	}
	account, err := s.loadByID(ctx, identity.Subject)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Account{}, domain.ErrTokenMalformed()
		}
		return domain.Account{}, err
	}
	if !account.IsActive {
		return domain.Account{}, domain.ErrAccountDisabled()
	}
	return account, nil
}

// admit consults the rate limit gate before any other work. A gate backend
// failure admits the request: lockout still protects individual accounts,
// and refusing all logins because the counter store is down would turn a
// cache outage into an authentication outage.
func (s *AuthService) admit(ctx context.Context, meta RequestMeta, endpoint, email string) error {
	decision, err := s.gate.Admit(ctx, meta.SourceIP, endpoint)
	if err != nil {
		s.log().Warn("rate limit gate unavailable", zap.String("endpoint", endpoint), zap.Error(err))
		return nil
	}
	if decision.Allowed {
		return nil
	}
	retry := int(decision.RetryAfter.Seconds())
	if retry < 1 {
		retry = 1
	}
	s.emit(meta, domain.SecurityEvent{
		EventType: domain.EventRateLimited, Email: email, Success: false,
		Details: fmt.Sprintf("endpoint %s", endpoint),
	})
	return domain.NewRateLimitError(retry)
}

func (s *AuthService) recordFailure(ctx context.Context, account domain.Account) (lockout.LockState, error) {
	var state lockout.LockState
	err := s.withStore(ctx, func(ctx context.Context) error {
		var err error
		state, err = s.lockout.RecordFailure(ctx, account)
		return err
	})
	return state, err
}

func (s *AuthService) recordSuccess(ctx context.Context, account domain.Account) error {
	return s.withStore(ctx, func(ctx context.Context) error {
		return s.lockout.RecordSuccess(ctx, account)
	})
}

func (s *AuthService) loadByEmail(ctx context.Context, email string) (domain.Account, error) {
	var account domain.Account
	err := s.withStore(ctx, func(ctx context.Context) error {
		var err error
		account, err = s.accounts.GetByEmail(ctx, email)
		return err
	})
	return account, err
}

func (s *AuthService) loadByID(ctx context.Context, id int64) (domain.Account, error) {
	var account domain.Account
	err := s.withStore(ctx, func(ctx context.Context) error {
		var err error
		account, err = s.accounts.GetByID(ctx, id)
		return err
	})
	return account, err
}

func (s *AuthService) createAccount(ctx context.Context, account domain.Account) (domain.Account, error) {
	var created domain.Account
	err := s.withStore(ctx, func(ctx context.Context) error {
		var err error
		created, err = s.accounts.Create(ctx, account)
		return err
	})
	return created, err
}

const storeRetryBackoff = 100 * time.Millisecond

// withStore bounds a credential-store call with the configured timeout and
// retries once on a transient failure. A second failure surfaces as
// STORE_UNAVAILABLE rather than hanging the request.
func (s *AuthService) withStore(ctx context.Context, fn func(context.Context) error) error {
	call := func() error {
		callCtx, cancel := context.WithTimeout(ctx, s.cfg.StoreTimeout)
		defer cancel()
		return fn(callCtx)
	}

	err := call()
	if err == nil || !isTransient(err) {
		return err
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(storeRetryBackoff):
	}

	err = call()
	if err == nil || !isTransient(err) {
		return err
	}
	s.log().Error("credential store unavailable", zap.Error(err))
	return domain.ErrStoreUnavailable()
}

func isTransient(err error) bool {
	return errors.Is(err, context.DeadlineExceeded)
}

func (s *AuthService) emit(meta RequestMeta, event domain.SecurityEvent) {
	event.SourceIP = meta.SourceIP
	event.UserAgent = meta.UserAgent
	s.events.Emit(event)
}

func (s *AuthService) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	if s == nil || s.tracer == nil {
		return ctx, trace.SpanFromContext(ctx)
	}
	return s.tracer.Start(ctx, name)
}

func (s *AuthService) log() *zap.Logger {
	if s != nil && s.logger != nil {
		return s.logger
	}
	return zap.L()
}

func tokenResponse(pair token.Pair) *TokenResponse {
	return &TokenResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		TokenType:    "bearer",
		ExpiresIn:    pair.AccessExpiresIn,
	}
}
