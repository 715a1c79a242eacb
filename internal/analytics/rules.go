package analytics

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"os"
	"text/template"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

//go:embed rules/default_rules.yaml
var defaultRulesFS embed.FS

const defaultRulesPath = "rules/default_rules.yaml"

type InterventionCategory string

const (
	CategoryFoundational InterventionCategory = "foundational"
	CategorySkillGap     InterventionCategory = "skill-gap"
	CategoryQuestionType InterventionCategory = "question-type"
	CategoryConsistency  InterventionCategory = "consistency"
	CategoryAdvancement  InterventionCategory = "advancement"
)

type Priority string

const (
	PriorityCritical Priority = "critical"
	PriorityHigh     Priority = "high"
	PriorityMedium   Priority = "medium"
	PriorityLow      Priority = "low"
)

func (p Priority) rank() int {
	switch p {
	case PriorityCritical:
		return 4
	case PriorityHigh:
		return 3
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 1
	}
	return 0
}

// RuleScope decides what a rule is evaluated against: the student as a
// whole, each subject, or each question type.
type RuleScope string

const (
	ScopeStudent      RuleScope = "student"
	ScopeSubject      RuleScope = "subject"
	ScopeQuestionType RuleScope = "question_type"
)

type EffortLevel string

const (
	EffortLow    EffortLevel = "low"
	EffortMedium EffortLevel = "medium"
	EffortHigh   EffortLevel = "high"
)

// Rules is the versioned table of intervention templates, per-factor risk
// actions and per-level group templates.
type Rules struct {
	Version       string                            `yaml:"version" validate:"required"`
	Interventions []InterventionRule                `yaml:"interventions" validate:"required,dive"`
	Actions       map[RiskFactor][]string           `yaml:"actions"`
	Groups        map[CompetencyLevel]GroupTemplate `yaml:"groups"`

	compiled map[string]*compiledRule
}

type InterventionRule struct {
	ID            string               `yaml:"id" validate:"required"`
	Category      InterventionCategory `yaml:"category" validate:"required,oneof=foundational skill-gap question-type consistency advancement"`
	Priority      Priority             `yaml:"priority" validate:"required,oneof=critical high medium low"`
	Scope         RuleScope            `yaml:"scope" validate:"omitempty,oneof=student subject question_type"`
	Title         string               `yaml:"title" validate:"required"`
	Rationale     string               `yaml:"rationale" validate:"required"`
	Activities    []string             `yaml:"activities" validate:"required,min=1"`
	Checkpoints   []string             `yaml:"checkpoints"`
	DurationWeeks int                  `yaml:"duration_weeks" validate:"gte=0"`
	Effort        EffortLevel          `yaml:"effort" validate:"omitempty,oneof=low medium high"`
	Impact        EffortLevel          `yaml:"impact" validate:"omitempty,oneof=low medium high"`
	When          RuleCondition        `yaml:"when"`
}

// RuleCondition is an AND of every field that is set.
type RuleCondition struct {
	AverageBelow              *float64    `yaml:"average_below"`
	AverageAtLeast            *float64    `yaml:"average_at_least"`
	SubjectAverageBelow       *float64    `yaml:"subject_average_below"`
	SubjectAverageAtLeast     *float64    `yaml:"subject_average_at_least"`
	MinSubjectAttempts        int         `yaml:"min_subject_attempts"`
	QuestionTypeAccuracyBelow *float64    `yaml:"question_type_accuracy_below"`
	MinQuestionTypeAnswers    int         `yaml:"min_question_type_answers"`
	Trends                    []Trend     `yaml:"trends"`
	VolatilityAbove           *float64    `yaml:"volatility_above"`
	RiskLevels                []RiskLevel `yaml:"risk_levels"`
	MinAssessments            int         `yaml:"min_assessments"`
}

type GroupTemplate struct {
	RecommendedFocus    []string `yaml:"recommended_focus"`
	SuggestedActivities []string `yaml:"suggested_activities"`
}

type compiledRule struct {
	title       *template.Template
	rationale   *template.Template
	activities  []*template.Template
	checkpoints []*template.Template
}

// DefaultRules parses the rule table compiled into the binary.
func DefaultRules() (*Rules, error) {
	data, err := defaultRulesFS.ReadFile(defaultRulesPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read embedded rules: %w", err)
	}
	return ParseRules(data)
}

// LoadRules reads a rule table from disk.
func LoadRules(path string) (*Rules, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rules file %s: %w", path, err)
	}
	return ParseRules(data)
}

func ParseRules(data []byte) (*Rules, error) {
	var rules Rules
	if err := yaml.Unmarshal(data, &rules); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRules, err)
	}
	if err := rules.validate(); err != nil {
		return nil, err
	}
	if err := rules.compile(); err != nil {
		return nil, err
	}
	return &rules, nil
}

func (r *Rules) validate() error {
	if err := validator.New().Struct(r); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return fmt.Errorf("%w: %s failed on %q", ErrInvalidRules, verrs[0].Namespace(), verrs[0].Tag())
		}
		return fmt.Errorf("%w: %v", ErrInvalidRules, err)
	}

	seen := make(map[string]bool, len(r.Interventions))
	for i := range r.Interventions {
		rule := &r.Interventions[i]
		if seen[rule.ID] {
			return fmt.Errorf("%w: duplicate intervention id %q", ErrInvalidRules, rule.ID)
		}
		seen[rule.ID] = true
		if rule.Scope == "" {
			rule.Scope = ScopeStudent
		}
	}

	for _, level := range competencyLadder {
		if _, ok := r.Groups[level]; !ok {
			return fmt.Errorf("%w: missing group template for %s", ErrInvalidRules, level)
		}
	}
	return nil
}

func (r *Rules) compile() error {
	r.compiled = make(map[string]*compiledRule, len(r.Interventions))
	for _, rule := range r.Interventions {
		c := &compiledRule{}
		var err error
		if c.title, err = template.New(rule.ID + ".title").Parse(rule.Title); err != nil {
			return fmt.Errorf("%w: %s title: %v", ErrInvalidRules, rule.ID, err)
		}
		if c.rationale, err = template.New(rule.ID + ".rationale").Parse(rule.Rationale); err != nil {
			return fmt.Errorf("%w: %s rationale: %v", ErrInvalidRules, rule.ID, err)
		}
		for i, activity := range rule.Activities {
			tmpl, err := template.New(fmt.Sprintf("%s.activity.%d", rule.ID, i)).Parse(activity)
			if err != nil {
				return fmt.Errorf("%w: %s activity %d: %v", ErrInvalidRules, rule.ID, i, err)
			}
			c.activities = append(c.activities, tmpl)
		}
		for i, checkpoint := range rule.Checkpoints {
			tmpl, err := template.New(fmt.Sprintf("%s.checkpoint.%d", rule.ID, i)).Parse(checkpoint)
			if err != nil {
				return fmt.Errorf("%w: %s checkpoint %d: %v", ErrInvalidRules, rule.ID, i, err)
			}
			c.checkpoints = append(c.checkpoints, tmpl)
		}
		r.compiled[rule.ID] = c
	}
	return nil
}

// render executes a template, falling back to its raw source on error so a
// bad field in the data never drops an intervention.
func render(tmpl *template.Template, data any) string {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return tmpl.Root.String()
	}
	return buf.String()
}
