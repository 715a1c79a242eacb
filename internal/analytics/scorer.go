package analytics

import (
	"math"
	"strconv"
	"strings"

	"github.com/SAP-F-2025/student-analytics/internal/models"
)

// ScoreOutcome is the grading verdict for one answer.
type ScoreOutcome struct {
	IsCorrect       bool                  `json:"is_correct"`
	SimilarityScore *float64              `json:"similarity_score,omitempty"`
	MatchingMethod  models.MatchingMethod `json:"matching_method"`
	Points          int                   `json:"points"`
}

// RawAnswer is a student's unscored response.
type RawAnswer struct {
	QuestionID string `json:"question_id"`
	Answer     string `json:"answer"`
}

// SubmissionScore is the graded form of a full attempt.
type SubmissionScore struct {
	Answers    []models.SubmittedAnswer `json:"answers"`
	Score      int                      `json:"score"`
	MaxScore   int                      `json:"max_score"`
	Percentage float64                  `json:"percentage"`
}

// AnswerScorer grades answers against question definitions. It holds no
// state besides its configuration.
type AnswerScorer struct {
	cfg ScoringConfig
}

func NewAnswerScorer(cfg ScoringConfig) *AnswerScorer {
	return &AnswerScorer{cfg: cfg}
}

// Score grades rawAnswer against q. Unknown question types are scored as
// incorrect with no matching method.
func (s *AnswerScorer) Score(q models.Question, rawAnswer string, subject string) ScoreOutcome {
	var outcome ScoreOutcome

	switch q.Type {
	case models.MultipleChoice, models.TrueFalse:
		outcome = s.scoreChoice(q, rawAnswer)
	case models.ShortAnswer:
		outcome = s.scoreShortAnswer(q, rawAnswer, subject)
	default:
		return ScoreOutcome{MatchingMethod: models.MatchNone}
	}

	outcome.Points = s.awardPoints(q, outcome)
	return outcome
}

// ScoreAnswer looks the question up in bank and grades the answer.
func (s *AnswerScorer) ScoreAnswer(bank models.QuestionBank, questionID, rawAnswer, subject string) (models.SubmittedAnswer, error) {
	q, ok := bank[questionID]
	if !ok {
		return models.SubmittedAnswer{}, &UnknownQuestionError{QuestionID: questionID}
	}

	outcome := s.Score(q, rawAnswer, subject)
	return models.SubmittedAnswer{
		QuestionID:   q.ID,
		QuestionType: q.Type,
		Answer:       rawAnswer,
		IsCorrect:    outcome.IsCorrect,
		Points:       outcome.Points,
		MaxPoints:    q.Points,
		Similarity:   outcome.SimilarityScore,
		Method:       outcome.MatchingMethod,
	}, nil
}

// ScoreSubmission grades every answer of an attempt. The maximum score covers
// the whole bank, so unanswered questions count as zero. Only the first answer
// per question is graded.
func (s *AnswerScorer) ScoreSubmission(bank models.QuestionBank, answers []RawAnswer, subject string) (*SubmissionScore, error) {
	result := &SubmissionScore{
		Answers: make([]models.SubmittedAnswer, 0, len(answers)),
	}

	seen := make(map[string]bool, len(answers))
	for _, raw := range answers {
		if seen[raw.QuestionID] {
			continue
		}
		seen[raw.QuestionID] = true

		graded, err := s.ScoreAnswer(bank, raw.QuestionID, raw.Answer, subject)
		if err != nil {
			return nil, err
		}
		result.Answers = append(result.Answers, graded)
		result.Score += graded.Points
	}

	for _, q := range bank {
		result.MaxScore += q.Points
	}
	if result.MaxScore > 0 {
		result.Percentage = roundTo(float64(result.Score)/float64(result.MaxScore)*100, 2)
	}

	return result, nil
}

// ResolveThreshold picks the similarity threshold for q: the question's own
// override, then the subject default, then the global default.
func (s *AnswerScorer) ResolveThreshold(q models.Question, subject string) float64 {
	if q.SimilarityThreshold != nil {
		return *q.SimilarityThreshold
	}
	if t, ok := s.cfg.SubjectThresholds[strings.ToLower(strings.TrimSpace(subject))]; ok {
		return t
	}
	return s.cfg.DefaultThreshold
}

func (s *AnswerScorer) fuzzyEnabled(q models.Question) bool {
	if s.cfg.FuzzyMatchingEnabled {
		return true
	}
	return q.FuzzyMatchingEnabled != nil && *q.FuzzyMatchingEnabled
}

func (s *AnswerScorer) scoreChoice(q models.Question, rawAnswer string) ScoreOutcome {
	if canonicalChoice(rawAnswer) == canonicalChoice(q.CorrectAnswer) {
		return ScoreOutcome{IsCorrect: true, MatchingMethod: models.MatchExact}
	}
	return ScoreOutcome{MatchingMethod: models.MatchNone}
}

func (s *AnswerScorer) scoreShortAnswer(q models.Question, rawAnswer, subject string) ScoreOutcome {
	given := normalizeAnswer(rawAnswer)
	expected := normalizeAnswer(q.CorrectAnswer)

	if given == expected {
		exact := 1.0
		return ScoreOutcome{IsCorrect: true, SimilarityScore: &exact, MatchingMethod: models.MatchExact}
	}

	if !s.fuzzyEnabled(q) {
		return ScoreOutcome{MatchingMethod: models.MatchNone}
	}

	similarity := roundTo(DiceSimilarity(given, expected), 4)
	if similarity >= s.ResolveThreshold(q, subject) {
		return ScoreOutcome{IsCorrect: true, SimilarityScore: &similarity, MatchingMethod: models.MatchFuzzy}
	}
	return ScoreOutcome{SimilarityScore: &similarity, MatchingMethod: models.MatchNone}
}

func (s *AnswerScorer) awardPoints(q models.Question, outcome ScoreOutcome) int {
	if outcome.IsCorrect {
		return q.Points
	}
	if !s.cfg.PartialCredit.Enabled || outcome.SimilarityScore == nil {
		return 0
	}

	sim := *outcome.SimilarityScore
	for _, band := range s.cfg.PartialCredit.Bands {
		if sim >= band.Min && sim <= band.Max {
			return int(math.Round(float64(q.Points) * band.Fraction))
		}
	}
	return 0
}

// canonicalChoice normalizes option indexes so "02" and "2" compare equal.
func canonicalChoice(s string) string {
	s = normalizeAnswer(s)
	if n, err := strconv.Atoi(s); err == nil {
		return strconv.Itoa(n)
	}
	return s
}
