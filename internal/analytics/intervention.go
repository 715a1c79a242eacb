package analytics

import (
	"slices"
	"sort"
	"time"

	"github.com/SAP-F-2025/student-analytics/internal/models"
)

type Intervention struct {
	ID            string               `json:"id"`
	RuleID        string               `json:"rule_id"`
	Category      InterventionCategory `json:"category"`
	Priority      Priority             `json:"priority"`
	Title         string               `json:"title"`
	Rationale     string               `json:"rationale"`
	Subject       string               `json:"subject,omitempty"`
	QuestionType  models.QuestionType  `json:"question_type,omitempty"`
	Activities    []string             `json:"activities"`
	Checkpoints   []string             `json:"checkpoints"`
	DurationWeeks int                  `json:"duration_weeks"`
	Effort        EffortLevel          `json:"effort,omitempty"`
	Impact        EffortLevel          `json:"impact,omitempty"`
}

// QuickWin reports whether the intervention is cheap and effective.
func (i Intervention) QuickWin() bool {
	return i.Effort == EffortLow && i.Impact == EffortHigh
}

type WeeklyFocus struct {
	Week       int      `json:"week"`
	Activities []string `json:"activities"`
}

type InterventionPlan struct {
	StudentID       string         `json:"student_id"`
	StudentName     string         `json:"student_name"`
	RuleVersion     string         `json:"rule_version"`
	OverallPriority Priority       `json:"overall_priority"`
	Context         StudentContext `json:"context"`
	Interventions   []Intervention `json:"interventions"`
	WeeklyFocus     []WeeklyFocus  `json:"weekly_focus"`
	QuickWins       []Intervention `json:"quick_wins"`
	GeneratedAt     time.Time      `json:"generated_at"`
}

// templateData is what rule templates can reference.
type templateData struct {
	StudentName       string
	Average           float64
	Tier              PerformanceTier
	Trend             Trend
	TrendMagnitude    float64
	Volatility        float64
	RiskLevel         RiskLevel
	Threshold         float64
	Subject           string
	SubjectAverage    float64
	SubjectAttempts   int
	QuestionType      models.QuestionType
	QuestionTypeLabel string
	Accuracy          float64
}

// InterventionPlanner matches a StudentContext against the rule table.
type InterventionPlanner struct {
	cfg    InterventionConfig
	rules  *Rules
	trends *TrendClassifier
	now    func() time.Time
}

func NewInterventionPlanner(cfg InterventionConfig, rules *Rules, trends *TrendClassifier, now func() time.Time) *InterventionPlanner {
	if now == nil {
		now = time.Now
	}
	return &InterventionPlanner{
		cfg:    cfg,
		rules:  rules,
		trends: trends,
		now:    now,
	}
}

// focusInterventions is how many top interventions feed the weekly focus.
const focusInterventions = 3

// Plan selects, ranks and caps interventions for the context. A student with
// no completed assessments gets an empty low-priority plan.
func (p *InterventionPlanner) Plan(ctx StudentContext) InterventionPlan {
	plan := InterventionPlan{
		StudentID:       ctx.StudentID,
		StudentName:     ctx.StudentName,
		RuleVersion:     p.rules.Version,
		OverallPriority: PriorityLow,
		Context:         ctx,
		Interventions:   []Intervention{},
		WeeklyFocus:     []WeeklyFocus{},
		QuickWins:       []Intervention{},
		GeneratedAt:     p.now(),
	}
	if ctx.TotalAssessments == 0 {
		return plan
	}

	type candidate struct {
		intervention Intervention
		order        int
	}
	var candidates []candidate
	for order, rule := range p.rules.Interventions {
		for _, data := range p.match(rule, ctx) {
			candidates = append(candidates, candidate{
				intervention: p.instantiate(rule, data),
				order:        order,
			})
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if ra, rb := a.intervention.Priority.rank(), b.intervention.Priority.rank(); ra != rb {
			return ra > rb
		}
		if a.order != b.order {
			return a.order < b.order
		}
		if a.intervention.Subject != b.intervention.Subject {
			return a.intervention.Subject < b.intervention.Subject
		}
		return a.intervention.QuestionType < b.intervention.QuestionType
	})

	if len(candidates) > p.cfg.MaxInterventions {
		candidates = candidates[:p.cfg.MaxInterventions]
	}
	for _, c := range candidates {
		plan.Interventions = append(plan.Interventions, c.intervention)
		if c.intervention.QuickWin() {
			plan.QuickWins = append(plan.QuickWins, c.intervention)
		}
	}

	if len(plan.Interventions) > 0 {
		plan.OverallPriority = plan.Interventions[0].Priority
	}
	plan.WeeklyFocus = p.weeklyFocus(plan.Interventions)
	return plan
}

// match returns one template binding per place the rule applies: at most one
// for student scope, one per matching subject or question type otherwise.
func (p *InterventionPlanner) match(rule InterventionRule, ctx StudentContext) []templateData {
	w := rule.When
	if !p.studentMatches(w, ctx) {
		return nil
	}
	base := p.baseData(ctx)

	switch rule.Scope {
	case ScopeSubject:
		var out []templateData
		for _, s := range ctx.Subjects {
			if s.Attempts < w.MinSubjectAttempts {
				continue
			}
			if w.SubjectAverageBelow != nil && s.Average >= *w.SubjectAverageBelow {
				continue
			}
			if w.SubjectAverageAtLeast != nil && s.Average < *w.SubjectAverageAtLeast {
				continue
			}
			data := base
			data.Subject = s.Subject
			data.SubjectAverage = s.Average
			data.SubjectAttempts = s.Attempts
			out = append(out, data)
		}
		return out
	case ScopeQuestionType:
		var out []templateData
		for _, qt := range ctx.QuestionTypes {
			if qt.Answered < w.MinQuestionTypeAnswers {
				continue
			}
			if w.QuestionTypeAccuracyBelow != nil && qt.Accuracy >= *w.QuestionTypeAccuracyBelow {
				continue
			}
			data := base
			data.QuestionType = qt.QuestionType
			data.QuestionTypeLabel = questionTypeLabel(qt.QuestionType)
			data.Accuracy = qt.Accuracy
			out = append(out, data)
		}
		return out
	default:
		return []templateData{base}
	}
}

func (p *InterventionPlanner) studentMatches(w RuleCondition, ctx StudentContext) bool {
	if ctx.TotalAssessments < w.MinAssessments {
		return false
	}
	if w.AverageBelow != nil && ctx.AverageScore >= *w.AverageBelow {
		return false
	}
	if w.AverageAtLeast != nil && ctx.AverageScore < *w.AverageAtLeast {
		return false
	}
	if len(w.Trends) > 0 && !slices.Contains(w.Trends, ctx.Trend) {
		return false
	}
	if w.VolatilityAbove != nil && ctx.Volatility <= *w.VolatilityAbove {
		return false
	}
	if len(w.RiskLevels) > 0 && !slices.Contains(w.RiskLevels, ctx.RiskLevel) {
		return false
	}
	return true
}

func (p *InterventionPlanner) baseData(ctx StudentContext) templateData {
	return templateData{
		StudentName:    ctx.StudentName,
		Average:        ctx.AverageScore,
		Tier:           ctx.Tier,
		Trend:          ctx.Trend,
		TrendMagnitude: ctx.TrendMagnitude,
		Volatility:     ctx.Volatility,
		RiskLevel:      ctx.RiskLevel,
		Threshold:      p.cfg.Threshold,
	}
}

func (p *InterventionPlanner) instantiate(rule InterventionRule, data templateData) Intervention {
	c := p.rules.compiled[rule.ID]

	id := rule.ID
	switch {
	case data.Subject != "":
		id += ":" + subjectKey(data.Subject)
	case data.QuestionType != "":
		id += ":" + string(data.QuestionType)
	}

	activities := make([]string, 0, len(c.activities))
	for _, tmpl := range c.activities {
		activities = append(activities, render(tmpl, data))
	}
	checkpoints := make([]string, 0, len(c.checkpoints))
	for _, tmpl := range c.checkpoints {
		checkpoints = append(checkpoints, render(tmpl, data))
	}

	return Intervention{
		ID:            id,
		RuleID:        rule.ID,
		Category:      rule.Category,
		Priority:      rule.Priority,
		Title:         render(c.title, data),
		Rationale:     render(c.rationale, data),
		Subject:       data.Subject,
		QuestionType:  data.QuestionType,
		Activities:    activities,
		Checkpoints:   checkpoints,
		DurationWeeks: rule.DurationWeeks,
		Effort:        rule.Effort,
		Impact:        rule.Impact,
	}
}

// weeklyFocus gives each week the next activity of each top intervention,
// cycling through an intervention's activities once they run out.
func (p *InterventionPlanner) weeklyFocus(interventions []Intervention) []WeeklyFocus {
	top := interventions
	if len(top) > focusInterventions {
		top = top[:focusInterventions]
	}

	weeks := make([]WeeklyFocus, 0, p.cfg.PlanWeeks)
	for week := 1; week <= p.cfg.PlanWeeks; week++ {
		focus := WeeklyFocus{Week: week, Activities: []string{}}
		for _, in := range top {
			if len(in.Activities) == 0 {
				continue
			}
			focus.Activities = append(focus.Activities, in.Activities[(week-1)%len(in.Activities)])
		}
		weeks = append(weeks, focus)
	}
	return weeks
}
