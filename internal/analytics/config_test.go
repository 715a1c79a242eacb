package analytics

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.InDelta(t, 1.0, cfg.Risk.Weights.Sum(), 1e-6)
}

func TestRiskWeightsMustSumToOne(t *testing.T) {
	tables := []RiskWeights{
		{Academic: 0.25, Trend: 0.25, Engagement: 0.25, Consistency: 0.25},
		{Academic: 0.4, Trend: 0.2, Engagement: 0.2, Consistency: 0.2},
		{Academic: 1, Trend: 0, Engagement: 0, Consistency: 0},
		{Academic: 0.1, Trend: 0.2, Engagement: 0.3, Consistency: 0.4},
	}
	for _, w := range tables {
		cfg := DefaultConfig()
		cfg.Risk.Weights = w
		require.NoError(t, cfg.Validate())
		assert.LessOrEqual(t, math.Abs(cfg.Risk.Weights.Sum()-1.0), 1e-6)
	}
}

func TestConfigValidateRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"weights over one", func(c *Config) { c.Risk.Weights.Academic = 0.5 }},
		{"weights under one", func(c *Config) { c.Risk.Weights.Trend = 0.1 }},
		{"threshold out of range", func(c *Config) { c.Scoring.DefaultThreshold = 1.5 }},
		{"medium above high", func(c *Config) { c.Risk.MediumThreshold = 80 }},
		{"trigger above medium", func(c *Config) { c.Risk.TriggerThreshold = 45 }},
		{"unsorted grouping thresholds", func(c *Config) { c.Grouping.Thresholds = []float64{60, 40, 80} }},
		{"wrong number of grouping thresholds", func(c *Config) { c.Grouping.Thresholds = []float64{40, 60} }},
		{"min group above max", func(c *Config) { c.Grouping.MinGroupSize, c.Grouping.MaxGroupSize = 5, 3 }},
		{"full partial credit", func(c *Config) {
			c.Scoring.PartialCredit.Bands = []CreditBand{{Min: 0.5, Max: 0.7, Fraction: 1}}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidConfig))
		})
	}
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Risk.Weights.Consistency = 0
	_, err := New(cfg, nil)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}
