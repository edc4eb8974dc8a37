package bootstrap

import (
	"context"
	"errors"
	"fmt"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Gideon-Phiri/secure-auth-service/internal/config"
	"github.com/Gideon-Phiri/secure-auth-service/internal/domain"
	"github.com/Gideon-Phiri/secure-auth-service/internal/password"
	"github.com/Gideon-Phiri/secure-auth-service/internal/repository"
)

// EnsureAdmin creates the configured superuser account on startup if it does
// not exist yet. Skipped when no admin credentials are configured.
func EnsureAdmin(lc fx.Lifecycle, cfg config.Config, accounts repository.AccountRepository, hasher *password.Hasher, node *snowflake.Node, logger *zap.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return ensureAdmin(ctx, cfg, accounts, hasher, node, logger)
		},
	})
}

func ensureAdmin(ctx context.Context, cfg config.Config, accounts repository.AccountRepository, hasher *password.Hasher, node *snowflake.Node, logger *zap.Logger) error {
	if cfg.AdminEmail == "" || cfg.AdminPassword == "" {
		return nil
	}

	if _, err := accounts.GetByEmail(ctx, cfg.AdminEmail); err == nil {
		return nil
	} else if !errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("bootstrap lookup admin: %w", err)
	}

	hash, err := hasher.Hash(cfg.AdminPassword)
	if err != nil {
		return fmt.Errorf("bootstrap hash password: %w", err)
	}

	created, err := accounts.Create(ctx, domain.Account{
		ID:            node.Generate().Int64(),
		Email:         cfg.AdminEmail,
		PasswordHash:  hash,
		EmailVerified: true,
		IsActive:      true,
		IsSuperuser:   true,
	})
	if err != nil {
		return fmt.Errorf("bootstrap create admin: %w", err)
	}

	if logger != nil {
		logger.Info("bootstrap admin user created",
			zap.String("email", created.Email),
			zap.Int64("account_id", created.ID),
		)
	}
	return nil
}
