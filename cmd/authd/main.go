package main

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"

	cacheadapter "github.com/Gideon-Phiri/secure-auth-service/internal/adapter/cache"
	"github.com/Gideon-Phiri/secure-auth-service/internal/bootstrap"
	"github.com/Gideon-Phiri/secure-auth-service/internal/config"
	httptransport "github.com/Gideon-Phiri/secure-auth-service/internal/http"
	"github.com/Gideon-Phiri/secure-auth-service/internal/http/handler"
	httpmiddleware "github.com/Gideon-Phiri/secure-auth-service/internal/http/middleware"
	"github.com/Gideon-Phiri/secure-auth-service/internal/lockout"
	"github.com/Gideon-Phiri/secure-auth-service/internal/mailer"
	"github.com/Gideon-Phiri/secure-auth-service/internal/password"
	"github.com/Gideon-Phiri/secure-auth-service/internal/ratelimit"
	"github.com/Gideon-Phiri/secure-auth-service/internal/repository"
	"github.com/Gideon-Phiri/secure-auth-service/internal/securitylog"
	"github.com/Gideon-Phiri/secure-auth-service/internal/server"
	"github.com/Gideon-Phiri/secure-auth-service/internal/service"
	"github.com/Gideon-Phiri/secure-auth-service/internal/telemetry"
	"github.com/Gideon-Phiri/secure-auth-service/internal/token"
)

func main() {
	app := fx.New(
		fx.Provide(
			newConfig,
			newLogger,
			newTelemetry,
			newSnowflake,
			newPGXPool,
			newAccountRepository,
			newRedisClient,
			newHasher,
			newRevocationList,
			newTokenIssuer,
			newLockoutPolicy,
			newRateLimitGate,
			newSecurityEmitter,
			newMailer,
			newThrottle,
			service.NewAuthService,
			service.NewUserService,
			newAuthHandler,
			newUserHandler,
			newAuthMiddleware,
			httptransport.NewRouter,
			server.NewHTTPServer,
		),
		fx.Invoke(useTelemetry, bootstrap.EnsureAdmin, startHTTPServer),
	)

	app.Run()
}

func newConfig() (config.Config, error) {
	return config.Load()
}

func newLogger(cfg config.Config) (*zap.Logger, error) {
	var (
		logger *zap.Logger
		err    error
	)
	if cfg.Environment == "development" {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		return nil, err
	}
	zap.ReplaceGlobals(logger)
	return logger, nil
}

func newTelemetry(lc fx.Lifecycle, cfg config.Config, logger *zap.Logger) (*telemetry.Provider, error) {
	provider, err := telemetry.New(context.Background(), cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("telemetry init: %w", err)
	}

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			stopCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			defer cancel()
			return provider.Shutdown(stopCtx)
		},
	})

	return provider, nil
}

func newSnowflake() (*snowflake.Node, error) {
	return snowflake.NewNode(1)
}

func newPGXPool(lc fx.Lifecycle, cfg config.Config) (*pgxpool.Pool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			pool.Close()
			return nil
		},
	})

	return pool, nil
}

func newAccountRepository(pool *pgxpool.Pool) repository.AccountRepository {
	return repository.NewPostgresAccountRepo(pool)
}

// newRedisClient returns nil when REDIS_ADDR is explicitly emptied, in which
// case revocation and rate limiting fall back to in-process stores (single
// instance deployments only).
func newRedisClient(lc fx.Lifecycle, cfg config.Config, logger *zap.Logger) (redis.UniversalClient, error) {
	if cfg.RedisAddr == "" {
		logger.Warn("redis disabled; using in-process revocation and rate limit stores")
		return nil, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return client.Close()
		},
	})
	return client, nil
}

func newHasher() *password.Hasher {
	return password.NewHasher(password.DefaultParams)
}

func newRevocationList(client redis.UniversalClient) token.RevocationList {
	if client == nil {
		return token.NewMemoryRevocationList()
	}
	return cacheadapter.NewRedisRevocationStore(client)
}

func newTokenIssuer(cfg config.Config, revoked token.RevocationList) *token.Issuer {
	return token.NewIssuer(token.Config{
		Secret:     []byte(cfg.SecretKey),
		Issuer:     cfg.ServiceName,
		AccessTTL:  cfg.AccessTokenTTL,
		RefreshTTL: cfg.RefreshTokenTTL,
		VerifyTTL:  cfg.VerifyTokenTTL,
	}, revoked)
}

func newLockoutPolicy(accounts repository.AccountRepository, cfg config.Config) *lockout.Policy {
	return lockout.NewPolicy(accounts, cfg.LockoutThreshold, cfg.LockoutDuration)
}

func newRateLimitGate(client redis.UniversalClient, cfg config.Config) ratelimit.Gate {
	budgets := ratelimit.BudgetsFromConfig(cfg)
	if client == nil {
		return ratelimit.NewMemoryGate(budgets)
	}
	return ratelimit.NewRedisGate(client, budgets)
}

func newSecurityEmitter(logger *zap.Logger) *securitylog.Emitter {
	return securitylog.NewEmitter(logger)
}

func newMailer(logger *zap.Logger) mailer.Mailer {
	return mailer.NewLogMailer(logger)
}

func newThrottle(cfg config.Config) *httpmiddleware.Throttle {
	return httpmiddleware.NewThrottle(cfg.ThrottleRPM)
}

func newAuthHandler(auth *service.AuthService, logger *zap.Logger) *handler.AuthHandler {
	return handler.NewAuthHandler(auth, logger)
}

func newUserHandler(users *service.UserService, logger *zap.Logger) *handler.UserHandler {
	return handler.NewUserHandler(users, logger)
}

func newAuthMiddleware(authService *service.AuthService) *httpmiddleware.Auth {
	return &httpmiddleware.Auth{AuthService: authService}
}

func startHTTPServer(lc fx.Lifecycle, srv *server.HTTPServer, cfg config.Config, logger *zap.Logger) {
	addr := ":" + cfg.HTTPPort
	var (
		cancel context.CancelFunc
		done   chan struct{}
	)

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			runCtx, stop := context.WithCancel(context.Background())
			cancel = stop
			done = make(chan struct{})

			go func() {
				if err := srv.Run(runCtx, addr); err != nil {
					logger.Error("http server stopped", zap.Error(err))
				}
				close(done)
			}()

			return nil
		},
		OnStop: func(ctx context.Context) error {
			if cancel != nil {
				cancel()
			}
			if done == nil {
				return nil
			}
			select {
			case <-done:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		},
	})
}

func useTelemetry(*telemetry.Provider) {}
