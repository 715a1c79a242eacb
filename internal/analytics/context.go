package analytics

import (
	"sort"
	"strings"

	"github.com/SAP-F-2025/student-analytics/internal/models"
)

type PerformanceTier string

const (
	TierNeedsSupport PerformanceTier = "Needs Support"
	TierDeveloping   PerformanceTier = "Developing"
	TierProficient   PerformanceTier = "Proficient"
)

type SubjectPerformance struct {
	Subject  string  `json:"subject"`
	Average  float64 `json:"average"`
	Attempts int     `json:"attempts"`
	Trend    Trend   `json:"trend"`
}

type QuestionTypePerformance struct {
	QuestionType models.QuestionType `json:"question_type"`
	Answered     int                 `json:"answered"`
	Correct      int                 `json:"correct"`
	Accuracy     float64             `json:"accuracy"`
}

// StudentContext is the snapshot the intervention rules are matched against.
type StudentContext struct {
	StudentID        string                    `json:"student_id"`
	StudentName      string                    `json:"student_name"`
	AverageScore     float64                   `json:"average_score"`
	Tier             PerformanceTier           `json:"tier"`
	Trend            Trend                     `json:"trend"`
	TrendMagnitude   float64                   `json:"trend_magnitude"`
	Volatility       float64                   `json:"volatility"`
	Subjects         []SubjectPerformance      `json:"subjects"`
	WeakSubjects     []SubjectPerformance      `json:"weak_subjects"`
	QuestionTypes    []QuestionTypePerformance `json:"question_types"`
	TotalAssessments int                       `json:"total_assessments"`
	RiskLevel        RiskLevel                 `json:"risk_level"`
	RiskTriggers     []TriggerFactor           `json:"risk_triggers"`
}

// BuildContext summarizes a history for planning. risk may be nil when no
// risk assessment is available; the context then reports low risk.
func (p *InterventionPlanner) BuildContext(history []models.AssessmentResult, risk *RiskAssessment) StudentContext {
	ctx := StudentContext{
		Tier:          TierNeedsSupport,
		Trend:         TrendStable,
		RiskLevel:     RiskLow,
		Subjects:      []SubjectPerformance{},
		WeakSubjects:  []SubjectPerformance{},
		QuestionTypes: []QuestionTypePerformance{},
		RiskTriggers:  []TriggerFactor{},
	}

	ordered := chronological(history)
	if len(ordered) > 0 {
		ctx.StudentID = ordered[0].StudentID
		ctx.StudentName = ordered[len(ordered)-1].StudentName
	}

	scores := completedScores(ordered)
	ctx.TotalAssessments = len(scores)
	ctx.AverageScore = roundTo(mean(scores), 2)
	ctx.Tier = p.Tier(ctx.AverageScore)

	trend := p.trends.Classify(scores)
	ctx.Trend = trend.Trend
	ctx.TrendMagnitude = trend.Magnitude
	ctx.Volatility = trend.Volatility

	for _, st := range p.trends.SubjectTrends(ordered) {
		perf := SubjectPerformance{
			Subject:  st.Subject,
			Average:  st.Average,
			Attempts: st.DataPoints,
			Trend:    st.Trend,
		}
		ctx.Subjects = append(ctx.Subjects, perf)
		if perf.Average < p.cfg.Threshold {
			ctx.WeakSubjects = append(ctx.WeakSubjects, perf)
		}
	}
	sort.SliceStable(ctx.WeakSubjects, func(i, j int) bool {
		return ctx.WeakSubjects[i].Average < ctx.WeakSubjects[j].Average
	})

	ctx.QuestionTypes = questionTypePerformance(ordered)

	if risk != nil {
		ctx.RiskLevel = risk.RiskLevel
		ctx.RiskTriggers = append(ctx.RiskTriggers, risk.TriggerFactors...)
	}
	return ctx
}

// Tier buckets an average into a coarse reporting band.
func (p *InterventionPlanner) Tier(average float64) PerformanceTier {
	switch {
	case average < p.cfg.NeedsSupportBelow:
		return TierNeedsSupport
	case average < p.cfg.ProficientAtLeast:
		return TierDeveloping
	default:
		return TierProficient
	}
}

func questionTypePerformance(results []models.AssessmentResult) []QuestionTypePerformance {
	byType := make(map[models.QuestionType]*QuestionTypePerformance)
	for _, r := range results {
		if !r.IsCompleted() {
			continue
		}
		for _, ans := range r.Answers {
			if ans.QuestionType == "" {
				continue
			}
			perf, ok := byType[ans.QuestionType]
			if !ok {
				perf = &QuestionTypePerformance{QuestionType: ans.QuestionType}
				byType[ans.QuestionType] = perf
			}
			perf.Answered++
			if ans.IsCorrect {
				perf.Correct++
			}
		}
	}

	out := make([]QuestionTypePerformance, 0, len(byType))
	for _, perf := range byType {
		perf.Accuracy = roundTo(float64(perf.Correct)/float64(perf.Answered)*100, 2)
		out = append(out, *perf)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].QuestionType < out[j].QuestionType
	})
	return out
}

func questionTypeLabel(t models.QuestionType) string {
	return strings.ReplaceAll(string(t), "_", " ")
}
