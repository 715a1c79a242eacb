package analytics

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SAP-F-2025/student-analytics/internal/models"
)

func intPtr(v int) *int { return &v }

func roster(scores ...float64) []RosterEntry {
	entries := make([]RosterEntry, len(scores))
	for i, s := range scores {
		id := fmt.Sprintf("s%d", i+1)
		entries[i] = RosterEntry{StudentID: id, StudentName: "Student " + id, Results: history(id, "math", s)}
	}
	return entries
}

func memberIDs(g StudentGroup) []string {
	ids := make([]string, len(g.Students))
	for i, m := range g.Students {
		ids[i] = m.StudentID
	}
	return ids
}

func newTestGrouper(t *testing.T) *CompetencyGrouper {
	t.Helper()
	rules, err := DefaultRules()
	require.NoError(t, err)
	return NewCompetencyGrouper(DefaultConfig().Grouping, rules)
}

func TestGroupLadder(t *testing.T) {
	grouper := newTestGrouper(t)
	groups := grouper.Group(roster(30, 50, 65, 85, 95), "")

	require.Len(t, groups, 4)
	assert.Equal(t, LevelBeginner, groups[0].Level)
	assert.Equal(t, []string{"s1"}, memberIDs(groups[0]))
	assert.Equal(t, LevelDeveloping, groups[1].Level)
	assert.Equal(t, []string{"s2"}, memberIDs(groups[1]))
	assert.Equal(t, LevelProficient, groups[2].Level)
	assert.Equal(t, []string{"s3"}, memberIDs(groups[2]))
	assert.Equal(t, LevelAdvanced, groups[3].Level)
	assert.Equal(t, []string{"s4", "s5"}, memberIDs(groups[3]))
	assert.Equal(t, 90.0, groups[3].AverageScore)
	assert.NotEmpty(t, groups[3].RecommendedFocus)
	assert.NotEmpty(t, groups[3].SuggestedActivities)
}

func TestGroupLevelBoundaries(t *testing.T) {
	grouper := newTestGrouper(t)
	assert.Equal(t, LevelBeginner, grouper.Level(40))
	assert.Equal(t, LevelDeveloping, grouper.Level(40.5))
	assert.Equal(t, LevelDeveloping, grouper.Level(60))
	assert.Equal(t, LevelProficient, grouper.Level(80))
	assert.Equal(t, LevelAdvanced, grouper.Level(81))
}

func TestGroupMergesUndersized(t *testing.T) {
	grouper := newTestGrouper(t)
	groups := grouper.GroupWithOptions(roster(30, 50, 65, 85, 95), GroupOptions{MinGroupSize: intPtr(2)})

	require.Len(t, groups, 2)
	assert.Equal(t, LevelDeveloping, groups[0].Level)
	assert.Equal(t, []string{"s1", "s2", "s3"}, memberIDs(groups[0]))
	assert.Equal(t, []CompetencyLevel{LevelBeginner, LevelProficient}, groups[0].MergedLevels)
	assert.Equal(t, LevelAdvanced, groups[1].Level)
	assert.Equal(t, []string{"s4", "s5"}, memberIDs(groups[1]))

	again := grouper.GroupWithOptions(roster(30, 50, 65, 85, 95), GroupOptions{MinGroupSize: intPtr(2)})
	assert.Equal(t, groups, again)
}

func TestGroupMergeRespectsMax(t *testing.T) {
	grouper := newTestGrouper(t)
	groups := grouper.GroupWithOptions(roster(30, 50, 65, 85, 95), GroupOptions{
		MinGroupSize: intPtr(2),
		MaxGroupSize: intPtr(2),
	})

	require.Len(t, groups, 3)
	assert.Equal(t, []string{"s1", "s2"}, memberIDs(groups[0]))
	assert.Equal(t, LevelProficient, groups[1].Level)
	assert.Equal(t, []string{"s3"}, memberIDs(groups[1]))
	assert.Equal(t, []string{"s4", "s5"}, memberIDs(groups[2]))
}

func TestGroupMergesTowardNearerNeighbor(t *testing.T) {
	grouper := newTestGrouper(t)
	// Proficient {62} sits far closer to Developing {58, 59} than Advanced {99, 100}.
	groups := grouper.GroupWithOptions(roster(58, 59, 62, 99, 100), GroupOptions{MinGroupSize: intPtr(2)})

	require.Len(t, groups, 2)
	assert.Equal(t, LevelDeveloping, groups[0].Level)
	assert.Equal(t, []string{"s1", "s2", "s3"}, memberIDs(groups[0]))
}

func TestGroupSections(t *testing.T) {
	grouper := newTestGrouper(t)
	groups := grouper.GroupWithOptions(roster(10, 20, 30, 35, 38), GroupOptions{MaxGroupSize: intPtr(2)})

	require.Len(t, groups, 1)
	require.Len(t, groups[0].Sections, 3)
	assert.Len(t, groups[0].Sections[0].Students, 2)
	assert.Len(t, groups[0].Sections[1].Students, 2)
	assert.Len(t, groups[0].Sections[2].Students, 1)
	assert.Equal(t, 3, groups[0].Sections[2].Index)
}

func TestGroupSubjectFilter(t *testing.T) {
	grouper := newTestGrouper(t)
	entries := roster(30, 90)
	entries[0].Results = append(entries[0].Results, models.AssessmentResult{
		StudentID: "s1", Subject: "English", Status: models.ResultCompleted, Percentage: 95, CompletedAt: baseTime,
	})

	groups := grouper.Group(entries, "english")
	require.Len(t, groups, 1)
	assert.Equal(t, LevelAdvanced, groups[0].Level)
	assert.Equal(t, []string{"s1"}, memberIDs(groups[0]))
	assert.Equal(t, "english", groups[0].Subject)
}

func TestGroupSkipsStudentsWithoutResults(t *testing.T) {
	grouper := newTestGrouper(t)
	entries := append(roster(70), RosterEntry{StudentID: "s9"})

	groups := grouper.Group(entries, "")
	require.Len(t, groups, 1)
	assert.Equal(t, 1, groups[0].Size)
}
