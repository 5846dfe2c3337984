package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var knownSkills = []string{"communication", "coding", "problem_solving"}

func TestParseFeedback(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		feedback string
		score    int
		outcome  Outcome
	}{
		{
			name:     "well formed",
			raw:      "Feedback: Good use of examples.\nScore: 8",
			feedback: "Good use of examples.",
			score:    8,
			outcome:  Parsed,
		},
		{
			name:     "garbage",
			raw:      "garbage",
			feedback: DefaultFeedback,
			score:    0,
			outcome:  Defaulted,
		},
		{
			name:     "case insensitive with markdown",
			raw:      "**FEEDBACK:** Clear structure but thin on trade-offs.\n**score**: 6/10",
			feedback: "Clear structure but thin on trade-offs.",
			score:    6,
			outcome:  Parsed,
		},
		{
			name:     "score out of range is clamped",
			raw:      "Feedback: Excellent\nScore: 15",
			feedback: "Excellent",
			score:    10,
			outcome:  Parsed,
		},
		{
			name:     "zero score clamps up",
			raw:      "Feedback: Off topic\nScore: 0",
			feedback: "Off topic",
			score:    1,
			outcome:  Parsed,
		},
		{
			name:     "missing score",
			raw:      "Feedback: Solid answer",
			feedback: "Solid answer",
			score:    0,
			outcome:  Defaulted,
		},
		{
			name:     "missing feedback",
			raw:      "Score: 4",
			feedback: DefaultFeedback,
			score:    4,
			outcome:  Defaulted,
		},
		{
			name:     "first integer token wins",
			raw:      "Score: about 7 or 8\nFeedback: ok",
			feedback: "ok",
			score:    7,
			outcome:  Parsed,
		},
		{
			name:     "json skill keys do not count as score marker",
			raw:      "Feedback: fine\n{\"score\": 3}",
			feedback: "fine",
			score:    0,
			outcome:  Defaulted,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseFeedback(tt.raw)
			assert.Equal(t, tt.feedback, got.Feedback)
			assert.Equal(t, tt.score, got.Score)
			assert.Equal(t, tt.outcome, got.Outcome)
		})
	}
}

func TestParseSkillScoresClampsAndDropsUnknown(t *testing.T) {
	got := ParseSkillScores(`{"communication": 11, "unknown_skill": 5}`, []string{"communication", "coding"}, nil)

	assert.Equal(t, Parsed, got.Outcome)
	assert.Equal(t, map[string]float64{"communication": 10.0}, got.Scores)
}

func TestParseSkillScoresToleratesSurroundingText(t *testing.T) {
	raw := "Feedback: Good.\nScore: 7\n```json\n{\"Coding\": \"6.5\", \"problem solving\": -2, \"communication\": \"n/a\"}\n```"

	got := ParseSkillScores(raw, knownSkills, nil)

	require.Equal(t, Parsed, got.Outcome)
	assert.Equal(t, map[string]float64{"coding": 6.5, "problem_solving": 0}, got.Scores)
}

func TestParseSkillScoresFencedOnly(t *testing.T) {
	got := ParseSkillScores("```json\n{\"coding\": 4}\n```", knownSkills, nil)

	assert.Equal(t, Parsed, got.Outcome)
	assert.Equal(t, map[string]float64{"coding": 4}, got.Scores)
}

func TestParseSkillScoresNestedSkillsObject(t *testing.T) {
	got := ParseSkillScores(`{"skills": {"coding": 9}, "summary": "x"}`, knownSkills, nil)

	assert.Equal(t, Parsed, got.Outcome)
	assert.Equal(t, map[string]float64{"coding": 9}, got.Scores)
}

func TestParseSkillScoresSkipsBrokenObjects(t *testing.T) {
	raw := "notes {not json} then {\"communication\": 3}"

	got := ParseSkillScores(raw, knownSkills, nil)

	assert.Equal(t, Parsed, got.Outcome)
	assert.Equal(t, map[string]float64{"communication": 3}, got.Scores)
}

func TestParseSkillScoresSkipsObjectsWithoutKnownSkills(t *testing.T) {
	raw := "Feedback: Initialise with map[string]int{} before the loop.\nScore: 6\n{\"coding\": 8, \"communication\": 5}"

	got := ParseSkillScores(raw, knownSkills, nil)

	require.Equal(t, Parsed, got.Outcome)
	assert.Equal(t, map[string]float64{"coding": 8, "communication": 5}, got.Scores)
}

func TestParseSkillScoresObjectWithOnlyUnknownSkills(t *testing.T) {
	got := ParseSkillScores(`prose {} and {"leadership": 7}`, knownSkills, map[string]float64{"coding": 3})

	assert.Equal(t, Parsed, got.Outcome)
	assert.Empty(t, got.Scores)
}

func TestParseSkillScoresFallsBackToPrevious(t *testing.T) {
	previous := map[string]float64{"coding": 5, "communication": 2}

	got := ParseSkillScores("the model refused to answer", knownSkills, previous)

	assert.Equal(t, Unchanged, got.Outcome)
	assert.Equal(t, previous, got.Scores)

	// returned map is a copy
	got.Scores["coding"] = 1
	assert.Equal(t, 5.0, previous["coding"])
}

func TestParseSkillScoresNilPrevious(t *testing.T) {
	got := ParseSkillScores("[1, 2, 3]", knownSkills, nil)

	assert.Equal(t, Unchanged, got.Outcome)
	assert.NotNil(t, got.Scores)
	assert.Empty(t, got.Scores)
}

func TestExtractJSON(t *testing.T) {
	assert.Equal(t, `{"a":1}`, ExtractJSON("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, ExtractJSON("  {\"a\":1}  "))
	assert.Equal(t, `{"a":1}`, ExtractJSON("`{\"a\":1}`"))
}

func TestClampSkillScore(t *testing.T) {
	assert.Equal(t, 0.0, ClampSkillScore(-3))
	assert.Equal(t, 10.0, ClampSkillScore(42))
	assert.Equal(t, 7.25, ClampSkillScore(7.25))
}
