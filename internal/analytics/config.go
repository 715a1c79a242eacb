package analytics

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/go-playground/validator/v10"
)

// Config is the immutable threshold/weight snapshot every engine component
// reads. Callers may reload it between computations, never during one.
type Config struct {
	Scoring       ScoringConfig      `mapstructure:"scoring" json:"scoring"`
	Items         ItemConfig         `mapstructure:"items" json:"items"`
	Trend         TrendConfig        `mapstructure:"trend" json:"trend"`
	Risk          RiskConfig         `mapstructure:"risk" json:"risk"`
	Interventions InterventionConfig `mapstructure:"interventions" json:"interventions"`
	Grouping      GroupingConfig     `mapstructure:"grouping" json:"grouping"`
}

type ScoringConfig struct {
	FuzzyMatchingEnabled bool               `mapstructure:"fuzzy_matching_enabled" json:"fuzzy_matching_enabled"`
	DefaultThreshold     float64            `mapstructure:"default_threshold" json:"default_threshold" validate:"gt=0,lte=1"`
	SubjectThresholds    map[string]float64 `mapstructure:"subject_thresholds" json:"subject_thresholds" validate:"dive,gt=0,lte=1"`
	PartialCredit        PartialCredit      `mapstructure:"partial_credit" json:"partial_credit"`
}

// PartialCredit awards a fraction of the points for near-miss short answers.
// Disabled unless explicitly configured.
type PartialCredit struct {
	Enabled bool         `mapstructure:"enabled" json:"enabled"`
	Bands   []CreditBand `mapstructure:"bands" json:"bands" validate:"dive"`
}

type CreditBand struct {
	Min      float64 `mapstructure:"min" json:"min" validate:"gte=0,lte=1"`
	Max      float64 `mapstructure:"max" json:"max" validate:"gte=0,lte=1,gtefield=Min"`
	Fraction float64 `mapstructure:"fraction" json:"fraction" validate:"gte=0,lte=1"`
}

type ItemConfig struct {
	EasyThreshold          float64 `mapstructure:"easy_threshold" json:"easy_threshold" validate:"gt=0,lte=100"`
	MediumThreshold        float64 `mapstructure:"medium_threshold" json:"medium_threshold" validate:"gte=0,lte=100,ltfield=EasyThreshold"`
	CohortFraction         float64 `mapstructure:"cohort_fraction" json:"cohort_fraction" validate:"gt=0,lte=0.5"`
	MinDiscriminationCount int     `mapstructure:"min_discrimination_count" json:"min_discrimination_count" validate:"gte=2"`
	WeakDiscrimination     float64 `mapstructure:"weak_discrimination" json:"weak_discrimination" validate:"gte=0,lte=1"`
	PassThreshold          float64 `mapstructure:"pass_threshold" json:"pass_threshold" validate:"gte=0,lte=100"`
}

type TrendConfig struct {
	ChangeThreshold float64 `mapstructure:"change_threshold" json:"change_threshold" validate:"gt=0,lte=100"`
}

type RiskWeights struct {
	Academic    float64 `mapstructure:"academic" json:"academic" validate:"gte=0,lte=1"`
	Trend       float64 `mapstructure:"trend" json:"trend" validate:"gte=0,lte=1"`
	Engagement  float64 `mapstructure:"engagement" json:"engagement" validate:"gte=0,lte=1"`
	Consistency float64 `mapstructure:"consistency" json:"consistency" validate:"gte=0,lte=1"`
}

// Sum returns the total of all four weights.
func (w RiskWeights) Sum() float64 {
	return w.Academic + w.Trend + w.Engagement + w.Consistency
}

type RiskConfig struct {
	Weights RiskWeights `mapstructure:"weights" json:"weights"`

	// Academic
	LowScore     float64 `mapstructure:"low_score" json:"low_score" validate:"gt=0,lte=100"`
	VeryLowScore float64 `mapstructure:"very_low_score" json:"very_low_score" validate:"gte=0,ltfield=LowScore"`
	AcademicStep float64 `mapstructure:"academic_step" json:"academic_step" validate:"gte=0,lte=100"`

	// Trend
	DecliningScore        float64 `mapstructure:"declining_score" json:"declining_score" validate:"gte=0,lte=100"`
	SharpDeclineMagnitude float64 `mapstructure:"sharp_decline_magnitude" json:"sharp_decline_magnitude" validate:"gt=0,lte=100"`

	// Engagement
	InactivityDays    int     `mapstructure:"inactivity_days" json:"inactivity_days" validate:"gt=0"`
	InactivityPenalty float64 `mapstructure:"inactivity_penalty" json:"inactivity_penalty" validate:"gte=0,lte=100"`
	MissedPenalty     float64 `mapstructure:"missed_penalty" json:"missed_penalty" validate:"gte=0,lte=100"`
	IncompletePenalty float64 `mapstructure:"incomplete_penalty" json:"incomplete_penalty" validate:"gte=0,lte=100"`

	// Consistency
	ConsecutiveLowCount int     `mapstructure:"consecutive_low_count" json:"consecutive_low_count" validate:"gt=0"`
	ConsecutiveLowScore float64 `mapstructure:"consecutive_low_score" json:"consecutive_low_score" validate:"gte=0,lte=100"`
	VolatilityThreshold float64 `mapstructure:"volatility_threshold" json:"volatility_threshold" validate:"gt=0"`
	VolatilityPenalty   float64 `mapstructure:"volatility_penalty" json:"volatility_penalty" validate:"gte=0,lte=100"`

	// Levels and triggers
	HighThreshold     float64 `mapstructure:"high_threshold" json:"high_threshold" validate:"gt=0,lte=100"`
	MediumThreshold   float64 `mapstructure:"medium_threshold" json:"medium_threshold" validate:"gt=0,ltfield=HighThreshold"`
	TriggerThreshold  float64 `mapstructure:"trigger_threshold" json:"trigger_threshold" validate:"gt=0,lte=100"`
	WarningThreshold  float64 `mapstructure:"warning_threshold" json:"warning_threshold" validate:"gtefield=TriggerThreshold,lte=100"`
	CriticalThreshold float64 `mapstructure:"critical_threshold" json:"critical_threshold" validate:"gtefield=WarningThreshold,lte=100"`

	AlertCooldownDays int `mapstructure:"alert_cooldown_days" json:"alert_cooldown_days" validate:"gte=0"`
}

type InterventionConfig struct {
	Threshold         float64 `mapstructure:"threshold" json:"threshold" validate:"gt=0,lte=100"`
	MaxInterventions  int     `mapstructure:"max_interventions" json:"max_interventions" validate:"gt=0"`
	PlanWeeks         int     `mapstructure:"plan_weeks" json:"plan_weeks" validate:"gt=0,lte=52"`
	NeedsSupportBelow float64 `mapstructure:"needs_support_below" json:"needs_support_below" validate:"gte=0,lte=100"`
	ProficientAtLeast float64 `mapstructure:"proficient_at_least" json:"proficient_at_least" validate:"gtefield=NeedsSupportBelow,lte=100"`
}

type GroupingConfig struct {
	// Upper bounds (inclusive) of Beginner, Developing and Proficient.
	Thresholds   []float64 `mapstructure:"thresholds" json:"thresholds" validate:"len=3,dive,gte=0,lte=100"`
	MinGroupSize int       `mapstructure:"min_group_size" json:"min_group_size" validate:"gte=0"`
	MaxGroupSize int       `mapstructure:"max_group_size" json:"max_group_size" validate:"gte=0"`
}

const weightTolerance = 1e-6

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		Scoring: ScoringConfig{
			FuzzyMatchingEnabled: true,
			DefaultThreshold:     0.80,
			SubjectThresholds: map[string]float64{
				"mathematics": 0.85,
				"english":     0.75,
				"urdu":        0.75,
			},
		},
		Items: ItemConfig{
			EasyThreshold:          70,
			MediumThreshold:        40,
			CohortFraction:         0.27,
			MinDiscriminationCount: 4,
			WeakDiscrimination:     0.2,
			PassThreshold:          60,
		},
		Trend: TrendConfig{
			ChangeThreshold: 5,
		},
		Risk: RiskConfig{
			Weights: RiskWeights{
				Academic:    0.35,
				Trend:       0.20,
				Engagement:  0.20,
				Consistency: 0.25,
			},
			LowScore:              60,
			VeryLowScore:          40,
			AcademicStep:          15,
			DecliningScore:        60,
			SharpDeclineMagnitude: 15,
			InactivityDays:        14,
			InactivityPenalty:     40,
			MissedPenalty:         25,
			IncompletePenalty:     15,
			ConsecutiveLowCount:   3,
			ConsecutiveLowScore:   60,
			VolatilityThreshold:   15,
			VolatilityPenalty:     40,
			HighThreshold:         70,
			MediumThreshold:       40,
			TriggerThreshold:      30,
			WarningThreshold:      50,
			CriticalThreshold:     70,
			AlertCooldownDays:     7,
		},
		Interventions: InterventionConfig{
			Threshold:         70,
			MaxInterventions:  5,
			PlanWeeks:         4,
			NeedsSupportBelow: 50,
			ProficientAtLeast: 75,
		},
		Grouping: GroupingConfig{
			Thresholds:   []float64{40, 60, 80},
			MinGroupSize: 0,
			MaxGroupSize: 0,
		},
	}
}

// Validate checks field ranges and the cross-field invariants. It is meant to
// run once at startup (and on every reload), never per computation.
func (c Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return fmt.Errorf("%w: %s failed on %q", ErrInvalidConfig, verrs[0].Namespace(), verrs[0].Tag())
		}
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	if sum := c.Risk.Weights.Sum(); math.Abs(sum-1.0) > weightTolerance {
		return fmt.Errorf("%w: risk weights sum to %.6f, want 1.0", ErrInvalidConfig, sum)
	}

	// A medium-or-higher score implies at least one sub-score at or above the
	// medium threshold, so triggers cannot be empty above low.
	if c.Risk.TriggerThreshold > c.Risk.MediumThreshold {
		return fmt.Errorf("%w: trigger threshold %.1f exceeds medium threshold %.1f",
			ErrInvalidConfig, c.Risk.TriggerThreshold, c.Risk.MediumThreshold)
	}

	if !sort.Float64sAreSorted(c.Grouping.Thresholds) {
		return fmt.Errorf("%w: grouping thresholds must be ascending", ErrInvalidConfig)
	}
	if c.Grouping.MinGroupSize > 0 && c.Grouping.MaxGroupSize > 0 && c.Grouping.MinGroupSize > c.Grouping.MaxGroupSize {
		return fmt.Errorf("%w: min group size %d exceeds max group size %d",
			ErrInvalidConfig, c.Grouping.MinGroupSize, c.Grouping.MaxGroupSize)
	}

	for _, band := range c.Scoring.PartialCredit.Bands {
		if band.Fraction >= 1 {
			return fmt.Errorf("%w: partial credit fraction must be below 1", ErrInvalidConfig)
		}
	}

	return nil
}
