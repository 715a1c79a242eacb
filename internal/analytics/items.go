package analytics

import (
	"fmt"
	"math"
	"sort"

	"github.com/SAP-F-2025/student-analytics/internal/models"
)

type Difficulty string

const (
	DifficultyEasy   Difficulty = "Easy"
	DifficultyMedium Difficulty = "Medium"
	DifficultyHard   Difficulty = "Hard"
)

type FlagKind string

const (
	FlagNegativeDiscrimination FlagKind = "negative_discrimination"
	FlagWeakDiscrimination     FlagKind = "weak_discrimination"
)

type QuestionStats struct {
	QuestionID          string              `json:"question_id"`
	QuestionType        models.QuestionType `json:"question_type"`
	TotalAttempts       int                 `json:"total_attempts"`
	CorrectAttempts     int                 `json:"correct_attempts"`
	CorrectPercentage   int                 `json:"correct_percentage"`
	Difficulty          Difficulty          `json:"difficulty"`
	DiscriminationIndex float64             `json:"discrimination_index"`
	AveragePoints       float64             `json:"average_points"`
}

// ItemFlag marks a question whose statistics suggest it needs review.
type ItemFlag struct {
	QuestionID string   `json:"question_id"`
	Kind       FlagKind `json:"kind"`
	Severity   Severity `json:"severity"`
	Message    string   `json:"message"`
}

type AssessmentAnalysis struct {
	AssessmentID string          `json:"assessment_id"`
	TotalResults int             `json:"total_results"`
	AverageScore float64         `json:"average_score"`
	PassRate     float64         `json:"pass_rate"`
	Questions    []QuestionStats `json:"questions"`
	Flags        []ItemFlag      `json:"flags"`
}

// ItemAnalyzer computes per-question psychometrics for one assessment.
type ItemAnalyzer struct {
	cfg ItemConfig
}

func NewItemAnalyzer(cfg ItemConfig) *ItemAnalyzer {
	return &ItemAnalyzer{cfg: cfg}
}

// Analyze aggregates every completed result of assessmentID. Results that
// belong to other assessments are ignored. Questions are reported in the order
// given.
func (a *ItemAnalyzer) Analyze(assessmentID string, results []models.AssessmentResult, questions []models.Question) AssessmentAnalysis {
	cohort := a.rankedCohort(assessmentID, results)

	analysis := AssessmentAnalysis{
		AssessmentID: assessmentID,
		TotalResults: len(cohort),
		Questions:    make([]QuestionStats, 0, len(questions)),
		Flags:        []ItemFlag{},
	}

	if len(cohort) > 0 {
		passed := 0
		scores := make([]float64, len(cohort))
		for i, r := range cohort {
			scores[i] = r.Percentage
			if r.Percentage >= a.cfg.PassThreshold {
				passed++
			}
		}
		analysis.AverageScore = roundTo(mean(scores), 2)
		analysis.PassRate = roundTo(float64(passed)/float64(len(cohort))*100, 2)
	}

	answers := indexAnswers(cohort)
	groupSize := a.cohortSize(len(cohort))

	for _, q := range questions {
		stats := a.questionStats(q, cohort, answers, groupSize)
		analysis.Questions = append(analysis.Questions, stats)
		if flag, ok := a.flag(stats, len(cohort)); ok {
			analysis.Flags = append(analysis.Flags, flag)
		}
	}

	return analysis
}

// Difficulty buckets a correct percentage.
func (a *ItemAnalyzer) Difficulty(correctPercentage int) Difficulty {
	p := float64(correctPercentage)
	switch {
	case p >= a.cfg.EasyThreshold:
		return DifficultyEasy
	case p >= a.cfg.MediumThreshold:
		return DifficultyMedium
	default:
		return DifficultyHard
	}
}

func (a *ItemAnalyzer) questionStats(q models.Question, cohort []models.AssessmentResult, answers []map[string]models.SubmittedAnswer, groupSize int) QuestionStats {
	stats := QuestionStats{
		QuestionID:   q.ID,
		QuestionType: q.Type,
	}

	points := 0
	for _, byQuestion := range answers {
		ans, ok := byQuestion[q.ID]
		if !ok {
			continue
		}
		stats.TotalAttempts++
		points += ans.Points
		if ans.IsCorrect {
			stats.CorrectAttempts++
		}
	}

	if stats.TotalAttempts > 0 {
		stats.CorrectPercentage = int(math.Round(float64(stats.CorrectAttempts) / float64(stats.TotalAttempts) * 100))
		stats.AveragePoints = roundTo(float64(points)/float64(stats.TotalAttempts), 2)
	}
	stats.Difficulty = a.Difficulty(stats.CorrectPercentage)

	if groupSize > 0 {
		top := countCorrect(answers[:groupSize], q.ID)
		bottom := countCorrect(answers[len(answers)-groupSize:], q.ID)
		stats.DiscriminationIndex = roundTo(float64(top-bottom)/float64(groupSize), 2)
	}

	return stats
}

func (a *ItemAnalyzer) flag(stats QuestionStats, cohortSize int) (ItemFlag, bool) {
	if cohortSize < a.cfg.MinDiscriminationCount {
		return ItemFlag{}, false
	}

	switch {
	case stats.DiscriminationIndex < 0:
		return ItemFlag{
			QuestionID: stats.QuestionID,
			Kind:       FlagNegativeDiscrimination,
			Severity:   SeverityWarning,
			Message: fmt.Sprintf("High performers answer this question worse than low performers (index %.2f); review the answer key and wording",
				stats.DiscriminationIndex),
		}, true
	case stats.DiscriminationIndex < a.cfg.WeakDiscrimination:
		return ItemFlag{
			QuestionID: stats.QuestionID,
			Kind:       FlagWeakDiscrimination,
			Severity:   SeverityInfo,
			Message:    fmt.Sprintf("Question barely separates high and low performers (index %.2f)", stats.DiscriminationIndex),
		}, true
	}
	return ItemFlag{}, false
}

// rankedCohort keeps the completed results of the assessment, best first.
// Equal percentages are ordered by completion time, student and ID.
func (a *ItemAnalyzer) rankedCohort(assessmentID string, results []models.AssessmentResult) []models.AssessmentResult {
	cohort := make([]models.AssessmentResult, 0, len(results))
	for _, r := range results {
		if r.AssessmentID == assessmentID && r.IsCompleted() {
			cohort = append(cohort, r)
		}
	}

	sort.SliceStable(cohort, func(i, j int) bool {
		ri, rj := cohort[i], cohort[j]
		if ri.Percentage != rj.Percentage {
			return ri.Percentage > rj.Percentage
		}
		if !ri.CompletedAt.Equal(rj.CompletedAt) {
			return ri.CompletedAt.Before(rj.CompletedAt)
		}
		if ri.StudentID != rj.StudentID {
			return ri.StudentID < rj.StudentID
		}
		return ri.ID < rj.ID
	})
	return cohort
}

// cohortSize is the upper/lower group size, or 0 when there are too few
// results for discrimination to mean anything.
func (a *ItemAnalyzer) cohortSize(n int) int {
	if n < a.cfg.MinDiscriminationCount {
		return 0
	}
	size := int(math.Ceil(a.cfg.CohortFraction * float64(n)))
	if size > n/2 {
		size = n / 2
	}
	return size
}

func indexAnswers(cohort []models.AssessmentResult) []map[string]models.SubmittedAnswer {
	indexed := make([]map[string]models.SubmittedAnswer, len(cohort))
	for i, r := range cohort {
		byQuestion := make(map[string]models.SubmittedAnswer, len(r.Answers))
		for _, ans := range r.Answers {
			if _, dup := byQuestion[ans.QuestionID]; !dup {
				byQuestion[ans.QuestionID] = ans
			}
		}
		indexed[i] = byQuestion
	}
	return indexed
}

func countCorrect(group []map[string]models.SubmittedAnswer, questionID string) int {
	n := 0
	for _, byQuestion := range group {
		if ans, ok := byQuestion[questionID]; ok && ans.IsCorrect {
			n++
		}
	}
	return n
}
