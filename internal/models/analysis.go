package models

import (
	"time"

	"gorm.io/datatypes"
)

// MaxSuggestions is the exact number of suggestions every analysis carries.
const MaxSuggestions = 5

// StructuredAnalysis is the validated view of an oracle reply.
type StructuredAnalysis struct {
	MatchedSkills       []string `json:"matched_skills"`
	MissingSkills       []string `json:"missing_skills"`
	ExperienceRelevance string   `json:"experience_relevance"`
	SkillMatchScore     float64  `json:"skill_match_score"`
	ExperienceScore     float64  `json:"experience_score"`
	ATSScore            float64  `json:"ats_score"`
	Suggestions         []string `json:"suggestions"`
	ResumeKeywords      []string `json:"resume_keywords"`
	JobKeywords         []string `json:"job_keywords"`
}

type KeywordAnalysis struct {
	ResumeKeywords []string `json:"resume_keywords"`
	JobKeywords    []string `json:"job_keywords"`
}

// Analysis is the persisted result of one pipeline run. Records are never updated.
type Analysis struct {
	AnalysisID      string                              `gorm:"type:varchar(64);primaryKey" json:"analysis_id"`
	UserID          string                              `gorm:"type:varchar(64);not null;index:idx_analyses_user_created,priority:1" json:"user_id"`
	ResumeFilename  string                              `gorm:"type:text" json:"resume_filename"`
	ResumeObjectKey string                              `gorm:"type:text" json:"-"`
	JobDescription  string                              `gorm:"type:text" json:"job_description"`
	OverallScore    float64                             `gorm:"not null" json:"overall_score"`
	SkillMatchScore float64                             `gorm:"not null" json:"skill_match_score"`
	ExperienceScore float64                             `gorm:"not null" json:"experience_score"`
	ATSScore        float64                             `gorm:"column:ats_score;not null" json:"ats_score"`
	MatchedSkills   datatypes.JSONSlice[string]         `json:"matched_skills"`
	MissingSkills   datatypes.JSONSlice[string]         `json:"missing_skills"`
	Suggestions     datatypes.JSONSlice[string]         `json:"suggestions"`
	KeywordAnalysis datatypes.JSONType[KeywordAnalysis] `json:"keyword_analysis"`
	CreatedAt       time.Time                           `gorm:"not null;index:idx_analyses_user_created,priority:2,sort:desc" json:"created_at"`
}

func (Analysis) TableName() string {
	return "analyses"
}
