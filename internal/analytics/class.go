package analytics

import (
	"fmt"
	"sort"
	"time"

	"github.com/SAP-F-2025/student-analytics/internal/models"
)

type TriggerCount struct {
	Factor RiskFactor `json:"factor"`
	Count  int        `json:"count"`
}

type StudentRiskBrief struct {
	StudentID        string    `json:"student_id"`
	StudentName      string    `json:"student_name"`
	OverallRiskScore float64   `json:"overall_risk_score"`
	RiskLevel        RiskLevel `json:"risk_level"`
	PrimaryConcern   string    `json:"primary_concern,omitempty"`
}

// ClassRiskSummary rolls individual assessments up to a class view.
type ClassRiskSummary struct {
	TotalStudents    int                `json:"total_students"`
	HighRisk         int                `json:"high_risk"`
	MediumRisk       int                `json:"medium_risk"`
	LowRisk          int                `json:"low_risk"`
	AverageRiskScore float64            `json:"average_risk_score"`
	AverageScore     float64            `json:"average_score"`
	TopTriggers      []TriggerCount     `json:"top_triggers"`
	ClassTrend       TrendResult        `json:"class_trend"`
	StudentsAtRisk   []StudentRiskBrief `json:"students_at_risk"`
}

// SummarizeClass aggregates per-student risk and the class's raw results.
// The class trend runs over per-assessment class means, ordered by when each
// assessment was first completed.
func (s *RiskScorer) SummarizeClass(risks []RiskAssessment, results []models.AssessmentResult) ClassRiskSummary {
	summary := ClassRiskSummary{
		TotalStudents:  len(risks),
		TopTriggers:    []TriggerCount{},
		StudentsAtRisk: []StudentRiskBrief{},
		ClassTrend:     TrendResult{Trend: TrendStable},
	}

	counts := make(map[RiskFactor]int)
	riskScores := make([]float64, 0, len(risks))
	for _, r := range risks {
		riskScores = append(riskScores, r.OverallRiskScore)
		switch r.RiskLevel {
		case RiskHigh:
			summary.HighRisk++
		case RiskMedium:
			summary.MediumRisk++
		default:
			summary.LowRisk++
		}
		for _, t := range r.TriggerFactors {
			counts[t.Factor]++
		}
		if r.RiskLevel != RiskLow {
			brief := StudentRiskBrief{
				StudentID:        r.StudentID,
				StudentName:      r.StudentName,
				OverallRiskScore: r.OverallRiskScore,
				RiskLevel:        r.RiskLevel,
			}
			if len(r.PrimaryConcerns) > 0 {
				brief.PrimaryConcern = r.PrimaryConcerns[0]
			}
			summary.StudentsAtRisk = append(summary.StudentsAtRisk, brief)
		}
	}
	summary.AverageRiskScore = roundTo(mean(riskScores), 2)

	for factor, n := range counts {
		summary.TopTriggers = append(summary.TopTriggers, TriggerCount{Factor: factor, Count: n})
	}
	sort.Slice(summary.TopTriggers, func(i, j int) bool {
		if summary.TopTriggers[i].Count != summary.TopTriggers[j].Count {
			return summary.TopTriggers[i].Count > summary.TopTriggers[j].Count
		}
		return summary.TopTriggers[i].Factor < summary.TopTriggers[j].Factor
	})

	sort.Slice(summary.StudentsAtRisk, func(i, j int) bool {
		a, b := summary.StudentsAtRisk[i], summary.StudentsAtRisk[j]
		if a.OverallRiskScore != b.OverallRiskScore {
			return a.OverallRiskScore > b.OverallRiskScore
		}
		return a.StudentID < b.StudentID
	})

	scores := completedScores(results)
	summary.AverageScore = roundTo(mean(scores), 2)
	summary.ClassTrend = s.trends.Classify(assessmentMeans(results))

	return summary
}

func assessmentMeans(results []models.AssessmentResult) []float64 {
	type bucket struct {
		id     string
		first  time.Time
		scores []float64
	}
	buckets := make(map[string]*bucket)
	for _, r := range results {
		if !r.IsCompleted() {
			continue
		}
		b, ok := buckets[r.AssessmentID]
		if !ok {
			b = &bucket{id: r.AssessmentID, first: r.CompletedAt}
			buckets[r.AssessmentID] = b
		}
		if r.CompletedAt.Before(b.first) {
			b.first = r.CompletedAt
		}
		b.scores = append(b.scores, r.Percentage)
	}

	ordered := make([]*bucket, 0, len(buckets))
	for _, b := range buckets {
		ordered = append(ordered, b)
	}
	sort.Slice(ordered, func(i, j int) bool {
		if !ordered[i].first.Equal(ordered[j].first) {
			return ordered[i].first.Before(ordered[j].first)
		}
		return ordered[i].id < ordered[j].id
	})

	means := make([]float64, len(ordered))
	for i, b := range ordered {
		means[i] = mean(b.scores)
	}
	return means
}

type AlertCategory string

const (
	AlertHighRisk   AlertCategory = "high_risk"
	AlertMediumRisk AlertCategory = "medium_risk"
)

// AlertKey identifies one cooldown slot in the alert log.
type AlertKey struct {
	StudentID string
	Category  AlertCategory
}

type Alert struct {
	StudentID        string          `json:"student_id"`
	StudentName      string          `json:"student_name"`
	Category         AlertCategory   `json:"category"`
	RiskLevel        RiskLevel       `json:"risk_level"`
	OverallRiskScore float64         `json:"overall_risk_score"`
	Message          string          `json:"message"`
	Triggers         []TriggerFactor `json:"triggers"`
	CreatedAt        time.Time       `json:"created_at"`
}

// ProposeAlerts returns the alerts that should be sent now. A category is
// skipped while its last alert is inside the cooldown window, and a medium
// alert is also skipped while a recent high alert covers the student. The
// caller persists whatever is returned.
func (s *RiskScorer) ProposeAlerts(risks []RiskAssessment, lastAlerts map[AlertKey]time.Time, now time.Time) []Alert {
	cooldown := time.Duration(s.cfg.AlertCooldownDays) * 24 * time.Hour
	recent := func(studentID string, category AlertCategory) bool {
		last, ok := lastAlerts[AlertKey{StudentID: studentID, Category: category}]
		return ok && now.Sub(last) < cooldown
	}

	alerts := []Alert{}
	for _, r := range risks {
		var category AlertCategory
		switch r.RiskLevel {
		case RiskHigh:
			category = AlertHighRisk
		case RiskMedium:
			category = AlertMediumRisk
			if recent(r.StudentID, AlertHighRisk) {
				continue
			}
		default:
			continue
		}
		if recent(r.StudentID, category) {
			continue
		}

		alerts = append(alerts, Alert{
			StudentID:        r.StudentID,
			StudentName:      r.StudentName,
			Category:         category,
			RiskLevel:        r.RiskLevel,
			OverallRiskScore: r.OverallRiskScore,
			Message: fmt.Sprintf("%s is at %s risk (score %.1f)",
				displayName(r), r.RiskLevel, r.OverallRiskScore),
			Triggers:  r.TriggerFactors,
			CreatedAt: now,
		})
	}

	sort.SliceStable(alerts, func(i, j int) bool {
		if alerts[i].OverallRiskScore != alerts[j].OverallRiskScore {
			return alerts[i].OverallRiskScore > alerts[j].OverallRiskScore
		}
		return alerts[i].StudentID < alerts[j].StudentID
	})
	return alerts
}

func displayName(r RiskAssessment) string {
	if r.StudentName != "" {
		return r.StudentName
	}
	return r.StudentID
}
