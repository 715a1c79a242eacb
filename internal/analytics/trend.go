package analytics

import (
	"math"
	"sort"

	"github.com/SAP-F-2025/student-analytics/internal/models"
)

type Trend string

const (
	TrendImproving Trend = "improving"
	TrendStable    Trend = "stable"
	TrendDeclining Trend = "declining"
)

type TrendResult struct {
	Trend      Trend   `json:"trend"`
	Magnitude  float64 `json:"magnitude"`
	Difference float64 `json:"difference"`
	Volatility float64 `json:"volatility"`
	DataPoints int     `json:"data_points"`
}

// SubjectTrend is a TrendResult scoped to one subject of a student's history.
type SubjectTrend struct {
	Subject string  `json:"subject"`
	Average float64 `json:"average"`
	TrendResult
}

// TrendClassifier compares the two halves of a time-ordered score sequence.
type TrendClassifier struct {
	cfg TrendConfig
}

func NewTrendClassifier(cfg TrendConfig) *TrendClassifier {
	return &TrendClassifier{cfg: cfg}
}

// Classify expects scores oldest first. With an odd length the middle score
// belongs to the second half.
func (c *TrendClassifier) Classify(scores []float64) TrendResult {
	result := TrendResult{Trend: TrendStable, DataPoints: len(scores)}
	if len(scores) < 2 {
		return result
	}

	mid := len(scores) / 2
	diff := mean(scores[mid:]) - mean(scores[:mid])

	result.Difference = roundTo(diff, 2)
	result.Magnitude = math.Round(math.Abs(diff))
	result.Volatility = roundTo(stdDev(scores), 2)

	switch {
	case diff >= c.cfg.ChangeThreshold:
		result.Trend = TrendImproving
	case diff <= -c.cfg.ChangeThreshold:
		result.Trend = TrendDeclining
	}
	return result
}

// ClassifyResults classifies the completed results in time order.
func (c *TrendClassifier) ClassifyResults(results []models.AssessmentResult) TrendResult {
	return c.Classify(completedScores(results))
}

// SubjectTrends classifies each subject of a history separately, sorted by
// subject name.
func (c *TrendClassifier) SubjectTrends(results []models.AssessmentResult) []SubjectTrend {
	bySubject := make(map[string][]models.AssessmentResult)
	names := make(map[string]string)
	for _, r := range results {
		key := subjectKey(r.Subject)
		if key == "" {
			continue
		}
		if _, ok := names[key]; !ok {
			names[key] = r.Subject
		}
		bySubject[key] = append(bySubject[key], r)
	}

	keys := make([]string, 0, len(bySubject))
	for k := range bySubject {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	trends := make([]SubjectTrend, 0, len(keys))
	for _, k := range keys {
		scores := completedScores(bySubject[k])
		if len(scores) == 0 {
			continue
		}
		trends = append(trends, SubjectTrend{
			Subject:     names[k],
			Average:     roundTo(mean(scores), 2),
			TrendResult: c.Classify(scores),
		})
	}
	return trends
}
