package services

import "math"

// Fixed weights for the overall score.
const (
	SkillMatchWeight = 0.4
	ExperienceWeight = 0.3
	ATSWeight        = 0.3
)

// Aggregate combines the three sub-scores into the overall score, rounded to one decimal place.
func Aggregate(skillMatchScore, experienceScore, atsScore float64) float64 {
	overall := SkillMatchWeight*skillMatchScore + ExperienceWeight*experienceScore + ATSWeight*atsScore
	return math.Round(overall*10) / 10
}
