package services

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SAP-F-2025/student-analytics/internal/analytics"
)

func TestServiceManagerLifecycle(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	require.NoError(t, env.services.Initialize(ctx))
	assert.NoError(t, env.services.HealthCheck(ctx))

	require.NoError(t, env.services.Shutdown(ctx))
	assert.Error(t, env.services.HealthCheck(ctx))
	// a second shutdown is a no-op
	assert.NoError(t, env.services.Shutdown(ctx))
}

func TestServiceManagerRequiresInitialize(t *testing.T) {
	sm := NewServiceManager(Dependencies{
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}, DefaultServiceManagerConfig())

	assert.Panics(t, func() { sm.Grading() })
	assert.Error(t, sm.HealthCheck(context.Background()))
	assert.Error(t, sm.Initialize(context.Background()))
}

func TestServiceManagerConfigValidate(t *testing.T) {
	cfg := DefaultServiceManagerConfig()
	assert.NoError(t, cfg.Validate())

	cfg.Workers = 0
	cfg.AlertTopic = ""
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "workers")
	assert.Contains(t, err.Error(), "alert topic")
}

func TestAlertServiceNoRisks(t *testing.T) {
	env := newTestEnv(t)

	alerts, err := env.services.Alert().Evaluate(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, alerts)

	// low risk never alerts
	alerts, err = env.services.Alert().Evaluate(context.Background(), []analytics.RiskAssessment{
		{StudentID: "s1", RiskLevel: analytics.RiskLow},
	})
	require.NoError(t, err)
	assert.Empty(t, alerts)
	assert.Empty(t, env.publisher.GetPublishedEvents())
}
