package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/Gideon-Phiri/secure-auth-service/internal/domain"
	"github.com/Gideon-Phiri/secure-auth-service/internal/lockout"
	"github.com/Gideon-Phiri/secure-auth-service/internal/password"
	"github.com/Gideon-Phiri/secure-auth-service/internal/repository"
	"github.com/Gideon-Phiri/secure-auth-service/internal/securitylog"
	"github.com/Gideon-Phiri/secure-auth-service/internal/service"
)

type userFixture struct {
	repo   *repository.MemoryAccountRepo
	hasher *password.Hasher
	svc    *service.UserService
	node   *snowflake.Node
	events *observer.ObservedLogs
}

func newUserFixture(t *testing.T) *userFixture {
	t.Helper()

	repo := repository.NewMemoryAccountRepo()
	hasher := password.NewHasher(fastParams)
	core, logs := observer.New(zapcore.InfoLevel)
	node, err := snowflake.NewNode(2)
	require.NoError(t, err)

	svc := service.NewUserService(
		repo,
		hasher,
		lockout.NewPolicy(repo, testThreshold, 15*time.Minute),
		securitylog.NewEmitter(zap.New(core)),
		node,
		zap.NewNop(),
	)
	return &userFixture{repo: repo, hasher: hasher, svc: svc, node: node, events: logs}
}

func (f *userFixture) seed(t *testing.T, email string, mutate func(*domain.Account)) domain.Account {
	t.Helper()
	hash, err := f.hasher.Hash(testPassword)
	require.NoError(t, err)

	account := domain.Account{
		ID:            f.node.Generate().Int64(),
		Email:         email,
		PasswordHash:  hash,
		EmailVerified: true,
		IsActive:      true,
	}
	if mutate != nil {
		mutate(&account)
	}
	created, err := f.repo.Create(context.Background(), account)
	require.NoError(t, err)
	return created
}

func strPtr(s string) *string { return &s }

func TestAdminCreate(t *testing.T) {
	f := newUserFixture(t)
	admin := f.seed(t, "admin@example.com", func(a *domain.Account) { a.IsSuperuser = true })
	ctx := context.Background()

	view, err := f.svc.AdminCreate(ctx, testMeta, admin, "New@Example.com", testPassword, true)
	require.NoError(t, err)
	require.Equal(t, "new@example.com", view.Email)
	require.True(t, view.EmailVerified, "admin-created accounts skip email verification")
	require.True(t, view.IsActive)
	require.True(t, view.IsSuperuser)

	require.Equal(t, 1, f.events.Len(), "one security event per admin creation")

	_, err = f.svc.AdminCreate(ctx, testMeta, admin, "new@example.com", testPassword, false)
	require.ErrorIs(t, err, service.ErrValidation)

	_, err = f.svc.AdminCreate(ctx, testMeta, admin, "weak@example.com", "weak", false)
	require.ErrorIs(t, err, service.ErrValidation)
}

func TestSelfEmailChangeResetsVerification(t *testing.T) {
	f := newUserFixture(t)
	account := f.seed(t, "alice@example.com", nil)
	ctx := context.Background()

	view, err := f.svc.Update(ctx, testMeta, account, account.ID, service.AccountUpdate{
		Email: strPtr("alice-new@example.com"),
	}, true)
	require.NoError(t, err)
	require.Equal(t, "alice-new@example.com", view.Email)
	require.False(t, view.EmailVerified)
}

func TestAdminEmailChangeKeepsVerification(t *testing.T) {
	f := newUserFixture(t)
	admin := f.seed(t, "admin@example.com", func(a *domain.Account) { a.IsSuperuser = true })
	account := f.seed(t, "alice@example.com", nil)
	ctx := context.Background()

	view, err := f.svc.Update(ctx, testMeta, admin, account.ID, service.AccountUpdate{
		Email: strPtr("alice-new@example.com"),
	}, false)
	require.NoError(t, err)
	require.Equal(t, "alice-new@example.com", view.Email)
	require.True(t, view.EmailVerified)
}

func TestUnchangedEmailKeepsVerification(t *testing.T) {
	f := newUserFixture(t)
	account := f.seed(t, "alice@example.com", nil)

	view, err := f.svc.Update(context.Background(), testMeta, account, account.ID, service.AccountUpdate{
		Email: strPtr("alice@example.com"),
	}, true)
	require.NoError(t, err)
	require.True(t, view.EmailVerified)
}

func TestPasswordChangeResetsLockout(t *testing.T) {
	f := newUserFixture(t)
	locked := time.Now().Add(10 * time.Minute)
	account := f.seed(t, "alice@example.com", func(a *domain.Account) {
		a.FailedAttempts = testThreshold
		a.LockedUntil = &locked
	})
	ctx := context.Background()

	_, err := f.svc.Update(ctx, testMeta, account, account.ID, service.AccountUpdate{
		Password: strPtr("N3w$ecret!"),
	}, true)
	require.NoError(t, err)

	stored, err := f.repo.GetByID(ctx, account.ID)
	require.NoError(t, err)
	require.Zero(t, stored.FailedAttempts)
	require.Nil(t, stored.LockedUntil)

	ok, err := f.hasher.Verify("N3w$ecret!", stored.PasswordHash)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestPasswordChangeEnforcesPolicy(t *testing.T) {
	f := newUserFixture(t)
	account := f.seed(t, "alice@example.com", nil)

	_, err := f.svc.Update(context.Background(), testMeta, account, account.ID, service.AccountUpdate{
		Password: strPtr("weak"),
	}, true)
	require.ErrorIs(t, err, service.ErrValidation)
}

func TestActivateClearsLockout(t *testing.T) {
	f := newUserFixture(t)
	admin := f.seed(t, "admin@example.com", func(a *domain.Account) { a.IsSuperuser = true })
	locked := time.Now().Add(10 * time.Minute)
	account := f.seed(t, "alice@example.com", func(a *domain.Account) {
		a.IsActive = false
		a.FailedAttempts = testThreshold
		a.LockedUntil = &locked
	})
	ctx := context.Background()

	require.NoError(t, f.svc.Activate(ctx, testMeta, admin, account.ID))

	stored, err := f.repo.GetByID(ctx, account.ID)
	require.NoError(t, err)
	require.True(t, stored.IsActive)
	require.Zero(t, stored.FailedAttempts)
	require.Nil(t, stored.LockedUntil)
}

func TestDeactivateLastActiveAdminRefused(t *testing.T) {
	f := newUserFixture(t)
	admin := f.seed(t, "admin@example.com", func(a *domain.Account) { a.IsSuperuser = true })
	ctx := context.Background()

	err := f.svc.Deactivate(ctx, testMeta, admin, admin.ID)
	require.ErrorIs(t, err, service.ErrLastAdmin)

	// With a second active admin present the same call succeeds.
	f.seed(t, "admin2@example.com", func(a *domain.Account) { a.IsSuperuser = true })
	require.NoError(t, f.svc.Deactivate(ctx, testMeta, admin, admin.ID))

	stored, err := f.repo.GetByID(ctx, admin.ID)
	require.NoError(t, err)
	require.False(t, stored.IsActive)
}

func TestDeleteLastAdminRefused(t *testing.T) {
	f := newUserFixture(t)
	admin := f.seed(t, "admin@example.com", func(a *domain.Account) { a.IsSuperuser = true })
	ctx := context.Background()

	require.ErrorIs(t, f.svc.Delete(ctx, testMeta, admin, admin.ID), service.ErrLastAdmin)
	require.ErrorIs(t, f.svc.DeleteSelf(ctx, testMeta, admin), service.ErrLastAdmin)

	f.seed(t, "admin2@example.com", func(a *domain.Account) { a.IsSuperuser = true })
	require.NoError(t, f.svc.Delete(ctx, testMeta, admin, admin.ID))

	_, err := f.repo.GetByID(ctx, admin.ID)
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDeleteSelfRegularUser(t *testing.T) {
	f := newUserFixture(t)
	account := f.seed(t, "alice@example.com", nil)
	ctx := context.Background()

	require.NoError(t, f.svc.DeleteSelf(ctx, testMeta, account))

	_, err := f.repo.GetByID(ctx, account.ID)
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestListAndGet(t *testing.T) {
	f := newUserFixture(t)
	first := f.seed(t, "a@example.com", nil)
	f.seed(t, "b@example.com", nil)
	f.seed(t, "c@example.com", nil)
	ctx := context.Background()

	views, err := f.svc.List(ctx, 0, 2)
	require.NoError(t, err)
	require.Len(t, views, 2)

	views, err = f.svc.List(ctx, 2, 2)
	require.NoError(t, err)
	require.Len(t, views, 1)

	view, err := f.svc.Get(ctx, first.ID)
	require.NoError(t, err)
	require.Equal(t, first.Email, view.Email)

	_, err = f.svc.Get(ctx, 404)
	require.ErrorIs(t, err, domain.ErrNotFound)
}
