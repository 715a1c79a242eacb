package analytics

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultRules(t *testing.T) {
	rules, err := DefaultRules()
	require.NoError(t, err)

	assert.NotEmpty(t, rules.Version)
	assert.NotEmpty(t, rules.Interventions)
	for _, level := range competencyLadder {
		assert.Contains(t, rules.Groups, level)
	}
	for _, factor := range riskFactorOrder {
		assert.NotEmpty(t, rules.Actions[factor], "actions for %s", factor)
	}
	for _, rule := range rules.Interventions {
		assert.NotEmpty(t, rule.Scope, rule.ID)
	}
}

const minimalGroups = `
groups:
  Beginner: {}
  Developing: {}
  Proficient: {}
  Advanced: {}
`

func TestParseRulesErrors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"malformed yaml", "version: [unclosed"},
		{"missing version", `
interventions:
  - {id: a, category: foundational, priority: high, title: t, rationale: r, activities: [x]}
` + minimalGroups},
		{"unknown category", `
version: "1"
interventions:
  - {id: a, category: remedial, priority: high, title: t, rationale: r, activities: [x]}
` + minimalGroups},
		{"duplicate id", `
version: "1"
interventions:
  - {id: a, category: foundational, priority: high, title: t, rationale: r, activities: [x]}
  - {id: a, category: foundational, priority: low, title: t, rationale: r, activities: [x]}
` + minimalGroups},
		{"bad template", `
version: "1"
interventions:
  - {id: a, category: foundational, priority: high, title: "{{.Subject", rationale: r, activities: [x]}
` + minimalGroups},
		{"missing group", `
version: "1"
interventions:
  - {id: a, category: foundational, priority: high, title: t, rationale: r, activities: [x]}
groups:
  Beginner: {}
`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseRules([]byte(tt.yaml))
			assert.ErrorIs(t, err, ErrInvalidRules)
		})
	}
}

func TestLoadRules(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	content := `
version: "custom-1"
interventions:
  - id: only
    category: advancement
    priority: low
    title: "Stretch {{.StudentName}}"
    rationale: "Average {{.Average}}"
    activities: ["read ahead"]
    when:
      min_assessments: 1
` + minimalGroups
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	rules, err := LoadRules(path)
	require.NoError(t, err)
	assert.Equal(t, "custom-1", rules.Version)
	assert.Equal(t, ScopeStudent, rules.Interventions[0].Scope)

	engine, err := New(DefaultConfig(), rules)
	require.NoError(t, err)
	_, plan := engine.PlanFor(history("s1", "math", 70))
	require.Len(t, plan.Interventions, 1)
	assert.Equal(t, "Stretch Student s1", plan.Interventions[0].Title)

	_, err = LoadRules(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
