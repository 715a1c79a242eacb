package analytics

import (
	"math"
	"sort"

	"github.com/SAP-F-2025/student-analytics/internal/models"
)

type CompetencyLevel string

const (
	LevelBeginner   CompetencyLevel = "Beginner"
	LevelDeveloping CompetencyLevel = "Developing"
	LevelProficient CompetencyLevel = "Proficient"
	LevelAdvanced   CompetencyLevel = "Advanced"
)

var competencyLadder = []CompetencyLevel{LevelBeginner, LevelDeveloping, LevelProficient, LevelAdvanced}

type RosterEntry struct {
	StudentID   string
	StudentName string
	Results     []models.AssessmentResult
}

type GroupMember struct {
	StudentID    string          `json:"student_id"`
	StudentName  string          `json:"student_name"`
	AverageScore float64         `json:"average_score"`
	Assessments  int             `json:"assessments"`
	Level        CompetencyLevel `json:"level"`
}

type GroupSection struct {
	Index    int           `json:"index"`
	Students []GroupMember `json:"students"`
}

type StudentGroup struct {
	Level               CompetencyLevel   `json:"level"`
	Subject             string            `json:"subject,omitempty"`
	Students            []GroupMember     `json:"students"`
	Size                int               `json:"size"`
	AverageScore        float64           `json:"average_score"`
	MinScore            float64           `json:"min_score"`
	MaxScore            float64           `json:"max_score"`
	MergedLevels        []CompetencyLevel `json:"merged_levels,omitempty"`
	Sections            []GroupSection    `json:"sections,omitempty"`
	RecommendedFocus    []string          `json:"recommended_focus"`
	SuggestedActivities []string          `json:"suggested_activities"`
}

// GroupOptions overrides the configured size limits for one call. Zero
// means no limit.
type GroupOptions struct {
	Subject      string
	MinGroupSize *int
	MaxGroupSize *int
}

// CompetencyGrouper buckets a roster into ability groups.
type CompetencyGrouper struct {
	cfg   GroupingConfig
	rules *Rules
}

func NewCompetencyGrouper(cfg GroupingConfig, rules *Rules) *CompetencyGrouper {
	return &CompetencyGrouper{cfg: cfg, rules: rules}
}

// Group uses the configured size limits. subject may be empty for all
// subjects.
func (g *CompetencyGrouper) Group(roster []RosterEntry, subject string) []StudentGroup {
	return g.GroupWithOptions(roster, GroupOptions{Subject: subject})
}

// GroupWithOptions averages each student's completed results, places them on
// the ladder and then merges undersized groups. Students with no completed
// result in scope are left out.
func (g *CompetencyGrouper) GroupWithOptions(roster []RosterEntry, opts GroupOptions) []StudentGroup {
	minSize, maxSize := g.cfg.MinGroupSize, g.cfg.MaxGroupSize
	if opts.MinGroupSize != nil {
		minSize = *opts.MinGroupSize
	}
	if opts.MaxGroupSize != nil {
		maxSize = *opts.MaxGroupSize
	}

	buckets := make([]*StudentGroup, len(competencyLadder))
	for i, level := range competencyLadder {
		buckets[i] = &StudentGroup{Level: level, Subject: opts.Subject, Students: []GroupMember{}}
	}

	for _, entry := range roster {
		member, ok := g.member(entry, opts.Subject)
		if !ok {
			continue
		}
		idx := g.levelIndex(member.AverageScore)
		member.Level = competencyLadder[idx]
		buckets[idx].Students = append(buckets[idx].Students, member)
	}

	if minSize > 0 {
		mergeUndersized(buckets, minSize, maxSize)
	}

	groups := []StudentGroup{}
	for _, b := range buckets {
		if len(b.Students) == 0 {
			continue
		}
		sortMembers(b.Students)
		g.annotate(b, maxSize)
		groups = append(groups, *b)
	}
	return groups
}

// Level returns the ladder rung for an average score.
func (g *CompetencyGrouper) Level(score float64) CompetencyLevel {
	return competencyLadder[g.levelIndex(score)]
}

func (g *CompetencyGrouper) levelIndex(score float64) int {
	for i, upper := range g.cfg.Thresholds {
		if score <= upper {
			return i
		}
	}
	return len(competencyLadder) - 1
}

func (g *CompetencyGrouper) member(entry RosterEntry, subject string) (GroupMember, bool) {
	var scores []float64
	name := entry.StudentName
	for _, r := range chronological(entry.Results) {
		if !r.IsCompleted() {
			continue
		}
		if subject != "" && !sameSubject(r.Subject, subject) {
			continue
		}
		scores = append(scores, r.Percentage)
		if name == "" {
			name = r.StudentName
		}
	}
	if len(scores) == 0 {
		return GroupMember{}, false
	}
	return GroupMember{
		StudentID:    entry.StudentID,
		StudentName:  name,
		AverageScore: roundTo(mean(scores), 2),
		Assessments:  len(scores),
	}, true
}

func (g *CompetencyGrouper) annotate(group *StudentGroup, maxSize int) {
	group.Size = len(group.Students)
	scores := make([]float64, len(group.Students))
	group.MinScore = math.Inf(1)
	group.MaxScore = math.Inf(-1)
	for i, m := range group.Students {
		scores[i] = m.AverageScore
		group.MinScore = math.Min(group.MinScore, m.AverageScore)
		group.MaxScore = math.Max(group.MaxScore, m.AverageScore)
	}
	group.AverageScore = roundTo(mean(scores), 2)

	tmpl := g.rules.Groups[group.Level]
	group.RecommendedFocus = append([]string{}, tmpl.RecommendedFocus...)
	group.SuggestedActivities = append([]string{}, tmpl.SuggestedActivities...)

	if maxSize > 0 && group.Size > maxSize {
		group.Sections = splitSections(group.Students, maxSize)
	}
}

// mergeUndersized folds groups smaller than minSize into a neighbor, lowest
// level first. The neighbor is the nearest non-empty group on either side with
// the closer mean score; ties go to the lower level. A merge that would push
// the neighbor past maxSize is not taken.
func mergeUndersized(buckets []*StudentGroup, minSize, maxSize int) {
	stuck := make(map[int]bool)
	for {
		idx := -1
		for i, b := range buckets {
			if n := len(b.Students); n > 0 && n < minSize && !stuck[i] {
				idx = i
				break
			}
		}
		if idx < 0 {
			return
		}

		src := buckets[idx]
		srcMean := memberMean(src.Students)
		fits := func(j int) bool {
			return maxSize <= 0 || len(buckets[j].Students)+len(src.Students) <= maxSize
		}

		target := -1
		bestDist := math.Inf(1)
		if lower := nearestNonEmpty(buckets, idx, -1); lower >= 0 && fits(lower) {
			target = lower
			bestDist = math.Abs(srcMean - memberMean(buckets[lower].Students))
		}
		if upper := nearestNonEmpty(buckets, idx, 1); upper >= 0 && fits(upper) {
			if d := math.Abs(srcMean - memberMean(buckets[upper].Students)); d < bestDist {
				target = upper
			}
		}
		if target < 0 {
			stuck[idx] = true
			continue
		}

		dst := buckets[target]
		dst.Students = append(dst.Students, src.Students...)
		dst.MergedLevels = append(dst.MergedLevels, src.Level)
		dst.MergedLevels = append(dst.MergedLevels, src.MergedLevels...)
		src.Students = []GroupMember{}
		src.MergedLevels = nil
		// the merged group may now fit under max for someone else
		stuck = make(map[int]bool)
	}
}

func nearestNonEmpty(buckets []*StudentGroup, from, step int) int {
	for j := from + step; j >= 0 && j < len(buckets); j += step {
		if len(buckets[j].Students) > 0 {
			return j
		}
	}
	return -1
}

func memberMean(members []GroupMember) float64 {
	scores := make([]float64, len(members))
	for i, m := range members {
		scores[i] = m.AverageScore
	}
	return mean(scores)
}

func sortMembers(members []GroupMember) {
	sort.SliceStable(members, func(i, j int) bool {
		if members[i].AverageScore != members[j].AverageScore {
			return members[i].AverageScore < members[j].AverageScore
		}
		return members[i].StudentID < members[j].StudentID
	})
}

// splitSections cuts sorted members into near-equal sections of at most
// maxSize students each.
func splitSections(members []GroupMember, maxSize int) []GroupSection {
	count := (len(members) + maxSize - 1) / maxSize
	base, extra := len(members)/count, len(members)%count

	sections := make([]GroupSection, 0, count)
	start := 0
	for i := 0; i < count; i++ {
		size := base
		if i < extra {
			size++
		}
		sections = append(sections, GroupSection{
			Index:    i + 1,
			Students: members[start : start+size],
		})
		start += size
	}
	return sections
}
