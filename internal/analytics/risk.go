package analytics

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/SAP-F-2025/student-analytics/internal/models"
)

type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

func (l RiskLevel) rank() int {
	switch l {
	case RiskHigh:
		return 2
	case RiskMedium:
		return 1
	default:
		return 0
	}
}

type RiskTrend string

const (
	RiskWorsening RiskTrend = "worsening"
	RiskStable    RiskTrend = "stable"
	RiskImproving RiskTrend = "improving"
)

type RiskFactor string

const (
	FactorAcademic    RiskFactor = "academic"
	FactorTrend       RiskFactor = "trend"
	FactorEngagement  RiskFactor = "engagement"
	FactorConsistency RiskFactor = "consistency"
)

// riskFactorOrder is the order triggers are reported in.
var riskFactorOrder = []RiskFactor{FactorAcademic, FactorTrend, FactorEngagement, FactorConsistency}

type RiskFactors struct {
	Academic    float64 `json:"academic"`
	Trend       float64 `json:"trend"`
	Engagement  float64 `json:"engagement"`
	Consistency float64 `json:"consistency"`
}

func (f RiskFactors) get(factor RiskFactor) float64 {
	switch factor {
	case FactorAcademic:
		return f.Academic
	case FactorTrend:
		return f.Trend
	case FactorEngagement:
		return f.Engagement
	case FactorConsistency:
		return f.Consistency
	}
	return 0
}

type TriggerFactor struct {
	Factor      RiskFactor `json:"factor"`
	Severity    Severity   `json:"severity"`
	Score       float64    `json:"score"`
	Description string     `json:"description"`
}

// RiskMetrics are the raw signals behind the four sub-scores.
type RiskMetrics struct {
	AverageScore       float64    `json:"average_score"`
	CompletedCount     int        `json:"completed_count"`
	MissedCount        int        `json:"missed_count"`
	IncompleteCount    int        `json:"incomplete_count"`
	DaysSinceLast      *int       `json:"days_since_last,omitempty"`
	LastAssessmentDate *time.Time `json:"last_assessment_date,omitempty"`
	ConsecutiveLow     int        `json:"consecutive_low"`
	Volatility         float64    `json:"volatility"`
	TrendMagnitude     float64    `json:"trend_magnitude"`
	ScoreTrend         Trend      `json:"score_trend"`
}

type RiskAssessment struct {
	StudentID          string          `json:"student_id"`
	StudentName        string          `json:"student_name"`
	RiskFactors        RiskFactors     `json:"risk_factors"`
	OverallRiskScore   float64         `json:"overall_risk_score"`
	RiskLevel          RiskLevel       `json:"risk_level"`
	Trend              RiskTrend       `json:"trend"`
	TriggerFactors     []TriggerFactor `json:"trigger_factors"`
	PrimaryConcerns    []string        `json:"primary_concerns"`
	RecommendedActions []string        `json:"recommended_actions"`
	Metrics            RiskMetrics     `json:"metrics"`
	GeneratedAt        time.Time       `json:"generated_at"`
}

// RiskScorer turns a student's result history into a RiskAssessment.
type RiskScorer struct {
	cfg     RiskConfig
	trends  *TrendClassifier
	actions map[RiskFactor][]string
	now     func() time.Time
}

func NewRiskScorer(cfg RiskConfig, trends *TrendClassifier, actions map[RiskFactor][]string, now func() time.Time) *RiskScorer {
	if now == nil {
		now = time.Now
	}
	return &RiskScorer{
		cfg:     cfg,
		trends:  trends,
		actions: actions,
		now:     now,
	}
}

// AssessRisk scores one student's history. The history does not need to be
// sorted. An empty history is low risk with every sub-score at zero.
func (s *RiskScorer) AssessRisk(history []models.AssessmentResult) RiskAssessment {
	now := s.now()
	ordered := chronological(history)

	assessment := RiskAssessment{
		RiskLevel:          RiskLow,
		Trend:              RiskStable,
		TriggerFactors:     []TriggerFactor{},
		PrimaryConcerns:    []string{},
		RecommendedActions: []string{},
		GeneratedAt:        now,
	}
	if len(ordered) == 0 {
		return assessment
	}
	assessment.StudentID = ordered[0].StudentID
	assessment.StudentName = ordered[len(ordered)-1].StudentName

	metrics, trend := s.collectMetrics(ordered, now)
	assessment.Metrics = metrics

	factors := RiskFactors{
		Academic:    s.academicScore(metrics),
		Trend:       s.trendScore(trend),
		Engagement:  s.engagementScore(metrics),
		Consistency: s.consistencyScore(metrics),
	}
	assessment.RiskFactors = factors
	assessment.TriggerFactors = s.triggers(factors, metrics)

	overall := factors.Academic*s.cfg.Weights.Academic +
		factors.Trend*s.cfg.Weights.Trend +
		factors.Engagement*s.cfg.Weights.Engagement +
		factors.Consistency*s.cfg.Weights.Consistency
	overall = s.escalate(clamp(overall, 0, 100), assessment.TriggerFactors)

	assessment.OverallRiskScore = roundTo(overall, 2)
	assessment.RiskLevel = s.Level(assessment.OverallRiskScore)
	assessment.Trend = riskTrend(trend.Trend)

	for _, t := range assessment.TriggerFactors {
		if t.Severity == SeverityCritical || t.Severity == SeverityWarning {
			assessment.PrimaryConcerns = append(assessment.PrimaryConcerns, t.Description)
		}
	}
	assessment.RecommendedActions = s.recommendedActions(assessment.TriggerFactors)

	return assessment
}

// Level maps an overall score onto the configured thresholds.
func (s *RiskScorer) Level(score float64) RiskLevel {
	switch {
	case score >= s.cfg.HighThreshold:
		return RiskHigh
	case score >= s.cfg.MediumThreshold:
		return RiskMedium
	default:
		return RiskLow
	}
}

// SeverityFor grades a single sub-score.
func (s *RiskScorer) SeverityFor(score float64) Severity {
	switch {
	case score >= s.cfg.CriticalThreshold:
		return SeverityCritical
	case score >= s.cfg.WarningThreshold:
		return SeverityWarning
	default:
		return SeverityInfo
	}
}

func (s *RiskScorer) collectMetrics(ordered []models.AssessmentResult, now time.Time) (RiskMetrics, TrendResult) {
	var m RiskMetrics
	var lastActivity time.Time
	scores := make([]float64, 0, len(ordered))

	for _, r := range ordered {
		switch r.Status {
		case models.ResultMissed:
			m.MissedCount++
			continue
		case models.ResultIncomplete:
			m.IncompleteCount++
		default:
			m.CompletedCount++
			scores = append(scores, r.Percentage)
		}
		if r.CompletedAt.After(lastActivity) {
			lastActivity = r.CompletedAt
		}
	}

	if !lastActivity.IsZero() {
		days := int(math.Floor(now.Sub(lastActivity).Hours() / 24))
		if days < 0 {
			days = 0
		}
		last := lastActivity
		m.DaysSinceLast = &days
		m.LastAssessmentDate = &last
	}

	for i := len(scores) - 1; i >= 0 && scores[i] < s.cfg.ConsecutiveLowScore; i-- {
		m.ConsecutiveLow++
	}

	trend := s.trends.Classify(scores)
	m.AverageScore = roundTo(mean(scores), 2)
	m.Volatility = trend.Volatility
	m.TrendMagnitude = trend.Magnitude
	m.ScoreTrend = trend.Trend
	return m, trend
}

// academicScore inverts the average and adds one step below the low mark and
// another strictly below the very-low mark. An average of exactly 40 takes
// only the first step.
func (s *RiskScorer) academicScore(m RiskMetrics) float64 {
	if m.CompletedCount == 0 {
		return 0
	}
	score := 100 - m.AverageScore
	if m.AverageScore < s.cfg.LowScore {
		score += s.cfg.AcademicStep
	}
	if m.AverageScore < s.cfg.VeryLowScore {
		score += s.cfg.AcademicStep
	}
	return roundTo(clamp(score, 0, 100), 2)
}

func (s *RiskScorer) trendScore(trend TrendResult) float64 {
	if trend.Trend != TrendDeclining {
		return 0
	}
	if trend.Magnitude >= s.cfg.SharpDeclineMagnitude {
		return 100
	}
	return s.cfg.DecliningScore
}

func (s *RiskScorer) engagementScore(m RiskMetrics) float64 {
	score := float64(m.MissedCount)*s.cfg.MissedPenalty + float64(m.IncompleteCount)*s.cfg.IncompletePenalty
	if m.DaysSinceLast != nil && *m.DaysSinceLast > s.cfg.InactivityDays {
		score += s.cfg.InactivityPenalty
	}
	return roundTo(clamp(score, 0, 100), 2)
}

const streakPenalty = 60.0

func (s *RiskScorer) consistencyScore(m RiskMetrics) float64 {
	var score float64
	if m.ConsecutiveLow >= s.cfg.ConsecutiveLowCount {
		score = streakPenalty
	} else {
		score = float64(m.ConsecutiveLow) * streakPenalty / float64(s.cfg.ConsecutiveLowCount)
	}
	if m.Volatility > s.cfg.VolatilityThreshold {
		score += s.cfg.VolatilityPenalty
	}
	return roundTo(clamp(score, 0, 100), 2)
}

func (s *RiskScorer) triggers(f RiskFactors, m RiskMetrics) []TriggerFactor {
	triggers := []TriggerFactor{}
	for _, factor := range riskFactorOrder {
		score := f.get(factor)
		if score < s.cfg.TriggerThreshold {
			continue
		}
		triggers = append(triggers, TriggerFactor{
			Factor:      factor,
			Severity:    s.SeverityFor(score),
			Score:       score,
			Description: s.describe(factor, m),
		})
	}
	return triggers
}

func (s *RiskScorer) describe(factor RiskFactor, m RiskMetrics) string {
	switch factor {
	case FactorAcademic:
		if m.AverageScore < s.cfg.LowScore {
			return fmt.Sprintf("Average score of %.1f%% is below the %.0f%% target", m.AverageScore, s.cfg.LowScore)
		}
		return fmt.Sprintf("Average score of %.1f%% leaves little margin above the %.0f%% target", m.AverageScore, s.cfg.LowScore)
	case FactorTrend:
		return fmt.Sprintf("Scores dropped %.0f points between earlier and recent assessments", m.TrendMagnitude)
	case FactorEngagement:
		var parts []string
		if m.MissedCount > 0 {
			parts = append(parts, fmt.Sprintf("%d missed", m.MissedCount))
		}
		if m.IncompleteCount > 0 {
			parts = append(parts, fmt.Sprintf("%d incomplete", m.IncompleteCount))
		}
		if m.DaysSinceLast != nil && *m.DaysSinceLast > s.cfg.InactivityDays {
			parts = append(parts, fmt.Sprintf("%d days since last activity", *m.DaysSinceLast))
		}
		return "Low engagement: " + strings.Join(parts, ", ")
	case FactorConsistency:
		if m.ConsecutiveLow > 0 && m.Volatility > s.cfg.VolatilityThreshold {
			return fmt.Sprintf("%d consecutive assessments below %.0f%% with volatile scores (spread %.1f)",
				m.ConsecutiveLow, s.cfg.ConsecutiveLowScore, m.Volatility)
		}
		if m.Volatility > s.cfg.VolatilityThreshold {
			return fmt.Sprintf("Scores are volatile (spread %.1f points)", m.Volatility)
		}
		return fmt.Sprintf("%d consecutive assessments below %.0f%%", m.ConsecutiveLow, s.cfg.ConsecutiveLowScore)
	}
	return string(factor)
}

// escalate applies the severity floor: a critical academic trigger means at
// least high risk, any other critical trigger at least medium.
func (s *RiskScorer) escalate(score float64, triggers []TriggerFactor) float64 {
	for _, t := range triggers {
		if t.Severity != SeverityCritical {
			continue
		}
		floor := s.cfg.MediumThreshold
		if t.Factor == FactorAcademic {
			floor = s.cfg.HighThreshold
		}
		score = math.Max(score, floor)
	}
	return score
}

func (s *RiskScorer) recommendedActions(triggers []TriggerFactor) []string {
	actions := []string{}
	seen := make(map[string]bool)
	for _, t := range triggers {
		for _, action := range s.actions[t.Factor] {
			if seen[action] {
				continue
			}
			seen[action] = true
			actions = append(actions, action)
		}
	}
	return actions
}

func riskTrend(t Trend) RiskTrend {
	switch t {
	case TrendDeclining:
		return RiskWorsening
	case TrendImproving:
		return RiskImproving
	default:
		return RiskStable
	}
}
