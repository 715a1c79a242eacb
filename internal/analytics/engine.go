// Package analytics grades answers and derives item statistics, risk,
// interventions and competency groups from assessment results. Every
// operation is a pure function of its inputs and the Config and Rules
// snapshot the Engine was built with.
package analytics

import (
	"fmt"
	"time"

	"github.com/SAP-F-2025/student-analytics/internal/models"
)

type Engine struct {
	cfg   Config
	rules *Rules

	Scorer  *AnswerScorer
	Items   *ItemAnalyzer
	Trends  *TrendClassifier
	Risk    *RiskScorer
	Planner *InterventionPlanner
	Grouper *CompetencyGrouper
}

type Option func(*engineOptions)

type engineOptions struct {
	now func() time.Time
}

// WithClock replaces time.Now for risk and plan timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *engineOptions) {
		o.now = now
	}
}

// New validates cfg and wires every component. A nil rules table falls back
// to the embedded defaults.
func New(cfg Config, rules *Rules, opts ...Option) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if rules == nil {
		var err error
		if rules, err = DefaultRules(); err != nil {
			return nil, fmt.Errorf("failed to load default rules: %w", err)
		}
	}

	o := engineOptions{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}

	trends := NewTrendClassifier(cfg.Trend)
	return &Engine{
		cfg:     cfg,
		rules:   rules,
		Scorer:  NewAnswerScorer(cfg.Scoring),
		Items:   NewItemAnalyzer(cfg.Items),
		Trends:  trends,
		Risk:    NewRiskScorer(cfg.Risk, trends, rules.Actions, o.now),
		Planner: NewInterventionPlanner(cfg.Interventions, rules, trends, o.now),
		Grouper: NewCompetencyGrouper(cfg.Grouping, rules),
	}, nil
}

func (e *Engine) Config() Config {
	return e.cfg
}

func (e *Engine) Rules() *Rules {
	return e.rules
}

// PlanFor assesses risk and builds the intervention plan in one pass.
func (e *Engine) PlanFor(history []models.AssessmentResult) (RiskAssessment, InterventionPlan) {
	risk := e.Risk.AssessRisk(history)
	ctx := e.Planner.BuildContext(history, &risk)
	return risk, e.Planner.Plan(ctx)
}
