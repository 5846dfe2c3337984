package models

import "strings"

// contains all valid question difficulties (in lowercase)
var ValidDifficulties = map[string]bool{
	"easy":   true,
	"medium": true,
	"hard":   true,
}

// contains all valid candidate experience levels (in lowercase)
var ValidExperienceLevels = map[string]bool{
	"junior": true,
	"mid":    true,
	"senior": true,
	"lead":   true,
}

const (
	DefaultDifficulty      = "medium"
	DefaultExperienceLevel = "mid"
)

// skill vocabulary used when INTERVIEW_SKILLS is not configured
var DefaultSkills = []string{
	"communication",
	"problem_solving",
	"coding",
	"system_design",
	"data_structures",
	"algorithms",
	"testing",
	"debugging",
}

func ValidDifficultiesList() []string {
	return []string{"easy", "medium", "hard"}
}

func ValidExperienceLevelsList() []string {
	return []string{"junior", "mid", "senior", "lead"}
}

// Score bounds. Interaction scores are integers in [MinInteractionScore, MaxInteractionScore],
// skill scores are floats in [MinSkillScore, MaxSkillScore].
const (
	MinInteractionScore = 1
	MaxInteractionScore = 10
	MinSkillScore       = 0.0
	MaxSkillScore       = 10.0
)

// Pagination bounds for interaction listings.
const (
	DefaultPageLimit = 20
	MaxPageLimit     = 100
)

// NormalizeSkill lowercases a skill name and joins words with underscores.
func NormalizeSkill(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	return strings.Join(strings.FieldsFunc(name, func(r rune) bool {
		return r == ' ' || r == '-' || r == '_'
	}), "_")
}
