// Package parser extracts feedback, scores and skill ratings from free-form model output.
// Nothing here returns an error: malformed text resolves to an explicit fallback outcome.
package parser

import (
	"encoding/json"
	"math"
	"regexp"
	"strconv"
	"strings"

	"peerprep/interview/internal/models"
)

type Outcome string

const (
	// Parsed means the value came from the text.
	Parsed Outcome = "parsed"
	// Defaulted means a marker was missing and the documented default was used.
	Defaulted Outcome = "defaulted"
	// Unchanged means nothing could be decoded and the caller's previous values were returned.
	Unchanged Outcome = "unchanged"
)

const DefaultFeedback = "No feedback found."

var (
	feedbackMarker = regexp.MustCompile(`(?i)\bfeedback\b[*_ \t]*:[*_ \t]*([^\n]*)`)
	scoreMarker    = regexp.MustCompile(`(?i)\bscore\b[*_ \t]*:[^\d\n-]*(-?\d+)`)
)

type FeedbackResult struct {
	Feedback string
	Score    int
	Outcome  Outcome
}

// ParseFeedback reads the "Feedback:" line and the integer after "Score:".
// Missing markers fall back to DefaultFeedback and a score of 0; a found score is clamped to [1,10].
func ParseFeedback(raw string) FeedbackResult {
	result := FeedbackResult{Feedback: DefaultFeedback, Outcome: Parsed}

	if m := feedbackMarker.FindStringSubmatch(raw); m != nil {
		if text := strings.TrimSpace(strings.Trim(strings.TrimSpace(m[1]), "*_")); text != "" {
			result.Feedback = text
		} else {
			result.Outcome = Defaulted
		}
	} else {
		result.Outcome = Defaulted
	}

	m := scoreMarker.FindStringSubmatch(raw)
	if m == nil {
		result.Outcome = Defaulted
		return result
	}
	score, err := strconv.Atoi(m[1])
	if err != nil {
		// overflowing digit runs
		if strings.HasPrefix(m[1], "-") {
			score = models.MinInteractionScore
		} else {
			score = models.MaxInteractionScore
		}
	}
	result.Score = clampInt(score, models.MinInteractionScore, models.MaxInteractionScore)
	return result
}

type SkillScoresResult struct {
	Scores  map[string]float64
	Outcome Outcome
}

// ParseSkillScores decodes the first JSON object in raw that rates a known skill.
// Keys outside known are dropped and values are clamped to [0,10]. Objects that rate
// nothing, such as "{}" inside a code snippet, are skipped. When no object can be
// decoded a copy of previous is returned with outcome Unchanged.
func ParseSkillScores(raw string, known []string, previous map[string]float64) SkillScoresResult {
	vocabulary := make(map[string]bool, len(known))
	for _, skill := range known {
		vocabulary[models.NormalizeSkill(skill)] = true
	}

	decoded := false
	for _, data := range decodeObjects(raw) {
		decoded = true
		if scores := knownScores(data, vocabulary); len(scores) > 0 {
			return SkillScoresResult{Scores: scores, Outcome: Parsed}
		}
	}
	if !decoded {
		return SkillScoresResult{Scores: copyScores(previous), Outcome: Unchanged}
	}
	return SkillScoresResult{Scores: map[string]float64{}, Outcome: Parsed}
}

func knownScores(data map[string]any, vocabulary map[string]bool) map[string]float64 {
	if nested, ok := data["skills"].(map[string]any); ok {
		data = nested
	}
	scores := make(map[string]float64)
	for key, value := range data {
		skill := models.NormalizeSkill(key)
		if !vocabulary[skill] {
			continue
		}
		score := coerceFloat(value)
		if math.IsNaN(score) {
			continue
		}
		scores[skill] = ClampSkillScore(score)
	}
	return scores
}

// ClampSkillScore bounds a skill score to [0,10].
func ClampSkillScore(score float64) float64 {
	return math.Max(models.MinSkillScore, math.Min(models.MaxSkillScore, score))
}

// decodeObjects returns the fence-stripped text when it is a single object, otherwise
// every complete JSON object starting at a '{', in order.
func decodeObjects(raw string) []map[string]any {
	var data map[string]any
	if err := json.Unmarshal([]byte(ExtractJSON(raw)), &data); err == nil && data != nil {
		return []map[string]any{data}
	}
	var objects []map[string]any
	for i := strings.IndexByte(raw, '{'); i != -1; {
		data = nil
		if err := json.NewDecoder(strings.NewReader(raw[i:])).Decode(&data); err == nil && data != nil {
			objects = append(objects, data)
		}
		next := strings.IndexByte(raw[i+1:], '{')
		if next == -1 {
			break
		}
		i += next + 1
	}
	return objects
}

// ExtractJSON strips markdown code fences around a JSON payload.
func ExtractJSON(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "```") {
		raw = strings.TrimPrefix(raw, "```json")
		raw = strings.TrimPrefix(raw, "```")
		raw = strings.TrimSpace(raw)
		if idx := strings.LastIndex(raw, "```"); idx != -1 {
			raw = raw[:idx]
		}
	}
	raw = strings.Trim(raw, "`")
	return strings.TrimSpace(raw)
}

func coerceFloat(v any) float64 {
	switch val := v.(type) {
	case float64:
		return val
	case int:
		return float64(val)
	case string:
		trimmed := strings.TrimSpace(val)
		if trimmed == "" {
			return math.NaN()
		}
		f, err := strconv.ParseFloat(trimmed, 64)
		if err != nil {
			return math.NaN()
		}
		return f
	default:
		return math.NaN()
	}
}

func copyScores(in map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
