package analytics

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/SAP-F-2025/student-analytics/internal/models"
)

var baseTime = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func newTestEngine(t *testing.T, mutate ...func(*Config)) *Engine {
	t.Helper()
	cfg := DefaultConfig()
	for _, m := range mutate {
		m(&cfg)
	}
	engine, err := New(cfg, nil, WithClock(fixedClock(baseTime.AddDate(0, 0, 30))))
	require.NoError(t, err)
	return engine
}

// history builds one completed result per score, a week apart.
func history(studentID, subject string, scores ...float64) []models.AssessmentResult {
	results := make([]models.AssessmentResult, len(scores))
	for i, s := range scores {
		results[i] = models.AssessmentResult{
			ID:           uint(i + 1),
			StudentID:    studentID,
			StudentName:  "Student " + studentID,
			AssessmentID: fmt.Sprintf("a%d", i+1),
			Subject:      subject,
			Status:       models.ResultCompleted,
			Percentage:   s,
			CompletedAt:  baseTime.AddDate(0, 0, 7*i),
		}
	}
	return results
}
