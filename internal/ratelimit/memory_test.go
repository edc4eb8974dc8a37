package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Gideon-Phiri/secure-auth-service/internal/config"
)

func testBudgets() Budgets {
	return Budgets{
		EndpointLogin:    {Requests: 3, Window: time.Minute},
		EndpointRegister: {Requests: 2, Window: time.Minute},
	}
}

func TestMemoryGateAdmitsExactlyBudget(t *testing.T) {
	gate := NewMemoryGate(testBudgets())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		decision, err := gate.Admit(ctx, "10.0.0.1", EndpointLogin)
		require.NoError(t, err)
		require.True(t, decision.Allowed, "request %d", i+1)
	}

	decision, err := gate.Admit(ctx, "10.0.0.1", EndpointLogin)
	require.NoError(t, err)
	require.False(t, decision.Allowed)
	require.Greater(t, decision.RetryAfter, time.Duration(0))
	require.LessOrEqual(t, decision.RetryAfter, time.Minute)
}

func TestMemoryGateIsolatesIdentitiesAndEndpoints(t *testing.T) {
	gate := NewMemoryGate(testBudgets())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := gate.Admit(ctx, "10.0.0.1", EndpointLogin)
		require.NoError(t, err)
	}

	// Same endpoint, different identity.
	decision, err := gate.Admit(ctx, "10.0.0.2", EndpointLogin)
	require.NoError(t, err)
	require.True(t, decision.Allowed)

	// Same identity, different endpoint.
	decision, err = gate.Admit(ctx, "10.0.0.1", EndpointRegister)
	require.NoError(t, err)
	require.True(t, decision.Allowed)
}

func TestMemoryGateWindowRollover(t *testing.T) {
	gate := NewMemoryGate(testBudgets())
	ctx := context.Background()

	current := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	gate.now = func() time.Time { return current }

	for i := 0; i < 3; i++ {
		decision, err := gate.Admit(ctx, "10.0.0.1", EndpointLogin)
		require.NoError(t, err)
		require.True(t, decision.Allowed)
	}
	decision, err := gate.Admit(ctx, "10.0.0.1", EndpointLogin)
	require.NoError(t, err)
	require.False(t, decision.Allowed)

	// A fresh window starts counting from zero.
	current = current.Add(time.Minute)
	decision, err = gate.Admit(ctx, "10.0.0.1", EndpointLogin)
	require.NoError(t, err)
	require.True(t, decision.Allowed)
}

func TestMemoryGateUnbudgetedEndpointAdmits(t *testing.T) {
	gate := NewMemoryGate(testBudgets())

	for i := 0; i < 50; i++ {
		decision, err := gate.Admit(context.Background(), "10.0.0.1", EndpointRefresh)
		require.NoError(t, err)
		require.True(t, decision.Allowed)
	}
}

func TestNoopGateAdmitsEverything(t *testing.T) {
	var gate Gate = NoopGate{}

	for i := 0; i < 100; i++ {
		decision, err := gate.Admit(context.Background(), "10.0.0.1", EndpointLogin)
		require.NoError(t, err)
		require.True(t, decision.Allowed)
	}
}

func TestBudgetsFromConfig(t *testing.T) {
	cfg := config.Config{
		LoginRate:    config.RateBudget{Requests: 5, Window: time.Minute},
		RegisterRate: config.RateBudget{Requests: 3, Window: time.Minute},
		RefreshRate:  config.RateBudget{Requests: 10, Window: time.Minute},
	}
	budgets := BudgetsFromConfig(cfg)
	require.Equal(t, cfg.LoginRate, budgets[EndpointLogin])
	require.Equal(t, cfg.RegisterRate, budgets[EndpointRegister])
	require.Equal(t, cfg.RefreshRate, budgets[EndpointRefresh])
}
