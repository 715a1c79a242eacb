package analytics

import (
	"math"
	"sort"
	"strings"

	"github.com/SAP-F-2025/student-analytics/internal/models"
)

func roundTo(val float64, precision int) float64 {
	ratio := math.Pow(10, float64(precision))
	return math.Round(val*ratio) / ratio
}

func clamp(val, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, val))
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// stdDev is the population standard deviation.
func stdDev(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	m := mean(values)
	acc := 0.0
	for _, v := range values {
		acc += (v - m) * (v - m)
	}
	return math.Sqrt(acc / float64(len(values)))
}

// chronological returns a copy of results ordered by completion time. Ties
// fall back to ID so the order never depends on the caller.
func chronological(results []models.AssessmentResult) []models.AssessmentResult {
	sorted := make([]models.AssessmentResult, len(results))
	copy(sorted, results)
	sort.SliceStable(sorted, func(i, j int) bool {
		if !sorted[i].CompletedAt.Equal(sorted[j].CompletedAt) {
			return sorted[i].CompletedAt.Before(sorted[j].CompletedAt)
		}
		return sorted[i].ID < sorted[j].ID
	})
	return sorted
}

// completedScores returns the percentages of completed results in time order.
func completedScores(results []models.AssessmentResult) []float64 {
	scores := make([]float64, 0, len(results))
	for _, r := range chronological(results) {
		if r.IsCompleted() {
			scores = append(scores, r.Percentage)
		}
	}
	return scores
}

func sameSubject(a, b string) bool {
	return subjectKey(a) == subjectKey(b)
}

func subjectKey(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
