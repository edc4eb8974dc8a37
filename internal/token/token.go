package token

import (
	"context"
	"fmt"
	"strconv"
	"time"

	gojose "github.com/go-jose/go-jose/v4"
	gojwt "github.com/go-jose/go-jose/v4/jwt"
	"github.com/google/uuid"

	"github.com/Gideon-Phiri/secure-auth-service/internal/domain"
)

// Kind discriminates the token families issued by the service.
type Kind string

const (
	KindAccess  Kind = "access"
	KindRefresh Kind = "refresh"
	KindVerify  Kind = "verify"
)

// CustomClaims carry service claims beyond the registered JWT set.
type CustomClaims struct {
	Kind      string `json:"kind"`
	Email     string `json:"email,omitempty"`
	Superuser bool   `json:"su,omitempty"`
}

// Identity is the verified content of a token.
type Identity struct {
	Subject   int64
	Kind      Kind
	TokenID   string
	Email     string
	Superuser bool
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Pair bundles a freshly issued access and refresh token.
type Pair struct {
	AccessToken      string
	RefreshToken     string
	AccessExpiresIn  int
	RefreshExpiresIn int
}

// RevocationList records token IDs invalidated before natural expiry.
// Entries carry a TTL equal to the token's remaining lifetime, so the
// backing store purges them once revocation no longer matters.
type RevocationList interface {
	Revoke(ctx context.Context, tokenID string, ttl time.Duration) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

// Config holds issuance parameters.
type Config struct {
	Secret     []byte
	Issuer     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	VerifyTTL  time.Duration
}

// Issuer signs and validates the service's JWTs with a process-wide symmetric
// key. Rotating the key (restart with a new SECRET_KEY) invalidates every
// outstanding token at once without touching storage.
type Issuer struct {
	cfg     Config
	revoked RevocationList
	now     func() time.Time
}

// NewIssuer constructs an Issuer. revoked may be nil, in which case refresh
// rotation is unavailable and no revocation checks run.
func NewIssuer(cfg Config, revoked RevocationList) *Issuer {
	return &Issuer{cfg: cfg, revoked: revoked, now: time.Now}
}

func (i *Issuer) ttlFor(kind Kind) time.Duration {
	switch kind {
	case KindRefresh:
		return i.cfg.RefreshTTL
	case KindVerify:
		return i.cfg.VerifyTTL
	default:
		return i.cfg.AccessTTL
	}
}

// Issue produces a signed token of the given kind for the account.
func (i *Issuer) Issue(account domain.Account, kind Kind) (string, error) {
	signer, err := gojose.NewSigner(
		gojose.SigningKey{Algorithm: gojose.HS256, Key: i.cfg.Secret},
		(&gojose.SignerOptions{}).WithType("JWT"),
	)
	if err != nil {
		return "", fmt.Errorf("new signer: %w", err)
	}

	now := i.now().UTC()
	std := gojwt.Claims{
		ID:        uuid.NewString(),
		Subject:   strconv.FormatInt(account.ID, 10),
		Issuer:    i.cfg.Issuer,
		IssuedAt:  gojwt.NewNumericDate(now),
		NotBefore: gojwt.NewNumericDate(now),
		Expiry:    gojwt.NewNumericDate(now.Add(i.ttlFor(kind))),
	}
	custom := CustomClaims{Kind: string(kind), Email: account.Email, Superuser: account.IsSuperuser}

	signed, err := gojwt.Signed(signer).Claims(std).Claims(custom).Serialize()
	if err != nil {
		return "", fmt.Errorf("serialize jwt: %w", err)
	}
	return signed, nil
}

// IssuePair issues an access/refresh token pair for a successful login.
func (i *Issuer) IssuePair(account domain.Account) (Pair, error) {
	access, err := i.Issue(account, KindAccess)
	if err != nil {
		return Pair{}, fmt.Errorf("issue access token: %w", err)
	}
	refresh, err := i.Issue(account, KindRefresh)
	if err != nil {
		return Pair{}, fmt.Errorf("issue refresh token: %w", err)
	}
	return Pair{
		AccessToken:      access,
		RefreshToken:     refresh,
		AccessExpiresIn:  int(i.cfg.AccessTTL.Seconds()),
		RefreshExpiresIn: int(i.cfg.RefreshTTL.Seconds()),
	}, nil
}

// Verify classifies a token string. Checks run fail-fast in a fixed order:
// structure, signature, expiry, revocation. The first failing check alone
// determines the reported reason.
func (i *Issuer) Verify(ctx context.Context, raw string, want Kind) (Identity, error) {
	parsed, err := gojwt.ParseSigned(raw, []gojose.SignatureAlgorithm{gojose.HS256})
	if err != nil {
		return Identity{}, domain.ErrTokenMalformed()
	}

	var std gojwt.Claims
	var custom CustomClaims
	if err := parsed.Claims(i.cfg.Secret, &std, &custom); err != nil {
		return Identity{}, domain.ErrTokenMalformed()
	}

	if custom.Kind != string(want) || std.Issuer != i.cfg.Issuer {
		return Identity{}, domain.ErrTokenMalformed()
	}

	subject, err := strconv.ParseInt(std.Subject, 10, 64)
	if err != nil {
		return Identity{}, domain.ErrTokenMalformed()
	}

	now := i.now().UTC()
	if std.Expiry == nil || !std.Expiry.Time().After(now) {
		return Identity{}, domain.ErrTokenExpired()
	}

	if i.revoked != nil && std.ID != "" {
		revoked, err := i.revoked.IsRevoked(ctx, std.ID)
		if err != nil {
			return Identity{}, fmt.Errorf("revocation lookup: %w", err)
		}
		if revoked {
			return Identity{}, domain.ErrTokenRevoked()
		}
	}

	return Identity{
		Subject:   subject,
		Kind:      Kind(custom.Kind),
		TokenID:   std.ID,
		Email:     custom.Email,
		Superuser: custom.Superuser,
		IssuedAt:  std.IssuedAt.Time(),
		ExpiresAt: std.Expiry.Time(),
	}, nil
}

// Rotate exchanges a refresh token for a new pair. The presented token's ID
// joins the revocation list for its remaining lifetime, so replaying it after
// rotation always fails with TOKEN_REVOKED.
func (i *Issuer) Rotate(ctx context.Context, refreshToken string, account domain.Account) (Pair, error) {
	if i.revoked == nil {
		return Pair{}, fmt.Errorf("refresh rotation requires a revocation list")
	}

	identity, err := i.Verify(ctx, refreshToken, KindRefresh)
	if err != nil {
		return Pair{}, err
	}
	if identity.Subject != account.ID {
		return Pair{}, domain.ErrTokenMalformed()
	}

	remaining := identity.ExpiresAt.Sub(i.now().UTC())
	if err := i.revoked.Revoke(ctx, identity.TokenID, remaining); err != nil {
		return Pair{}, fmt.Errorf("revoke rotated token: %w", err)
	}

	return i.IssuePair(account)
}

// VerifySubject is a convenience for flows that only need the account ID.
func (i *Issuer) VerifySubject(ctx context.Context, raw string, want Kind) (int64, error) {
	identity, err := i.Verify(ctx, raw, want)
	if err != nil {
		return 0, err
	}
	return identity.Subject, nil
}
