package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"alfredoptarigan/resumatch/internal/models"
)

type ReconcileOutcome string

const (
	OutcomeParsed   ReconcileOutcome = "parsed"
	OutcomeFallback ReconcileOutcome = "fallback"
)

// Reconciliation is the result of reading an oracle reply. A fallback outcome
// carries the fixed placeholder analysis and the parse error that selected it.
type Reconciliation struct {
	Analysis models.StructuredAnalysis
	Outcome  ReconcileOutcome
	ParseErr error
}

func (r *Reconciliation) IsFallback() bool {
	return r.Outcome == OutcomeFallback
}

var fallbackSuggestions = []string{
	"Add more specific technical skills",
	"Include measurable achievements",
	"Improve formatting for ATS compatibility",
	"Add relevant certifications",
	"Include more keywords from job description",
}

// FallbackAnalysis returns a fresh copy of the placeholder analysis used when
// the oracle reply is not a JSON object.
func FallbackAnalysis() models.StructuredAnalysis {
	return models.StructuredAnalysis{
		MatchedSkills:       []string{"API Development", "Problem Solving"},
		MissingSkills:       []string{"Cloud Technologies", "CI/CD"},
		ExperienceRelevance: "Analysis completed. Please review the results.",
		SkillMatchScore:     70,
		ExperienceScore:     65,
		ATSScore:            75,
		Suggestions:         append([]string(nil), fallbackSuggestions...),
		ResumeKeywords:      []string{"development", "engineering"},
		JobKeywords:         []string{"software", "development"},
	}
}

// Reconcile turns raw oracle text into a StructuredAnalysis. Text that is not a
// JSON object yields the fallback outcome; a JSON object with missing or
// non-numeric scores is an OracleError.
func Reconcile(raw string) (*Reconciliation, error) {
	cleaned := StripCodeFence(raw)

	var data map[string]any
	if err := json.Unmarshal([]byte(cleaned), &data); err != nil || data == nil {
		if err == nil {
			err = errors.New("response is not a JSON object")
		}
		return &Reconciliation{
			Analysis: FallbackAnalysis(),
			Outcome:  OutcomeFallback,
			ParseErr: err,
		}, nil
	}

	analysis := models.StructuredAnalysis{
		MatchedSkills:       coerceStrings(data["matched_skills"]),
		MissingSkills:       coerceStrings(data["missing_skills"]),
		ExperienceRelevance: coerceString(data["experience_relevance"]),
		Suggestions:         normalizeSuggestions(coerceStrings(data["suggestions"])),
		ResumeKeywords:      coerceStrings(data["resume_keywords"]),
		JobKeywords:         coerceStrings(data["job_keywords"]),
	}

	scores := []struct {
		key string
		dst *float64
	}{
		{"skill_match_score", &analysis.SkillMatchScore},
		{"experience_score", &analysis.ExperienceScore},
		{"ats_score", &analysis.ATSScore},
	}
	for _, s := range scores {
		value, err := coerceScore(data[s.key])
		if err != nil {
			return nil, &OracleError{Op: "reconcile", Cause: fmt.Errorf("%s: %w", s.key, err)}
		}
		*s.dst = value
	}

	return &Reconciliation{Analysis: analysis, Outcome: OutcomeParsed}, nil
}

// StripCodeFence removes a leading ``` or ```json marker and a trailing ``` marker.
func StripCodeFence(raw string) string {
	cleaned := strings.TrimSpace(raw)
	if strings.HasPrefix(cleaned, "```") {
		cleaned = strings.TrimPrefix(cleaned, "```")
		if len(cleaned) >= 4 && strings.EqualFold(cleaned[:4], "json") {
			cleaned = cleaned[4:]
		}
	}
	cleaned = strings.TrimSuffix(strings.TrimSpace(cleaned), "```")
	return strings.TrimSpace(cleaned)
}

func coerceScore(v any) (float64, error) {
	var score float64
	switch val := v.(type) {
	case nil:
		return 0, errors.New("missing score")
	case float64:
		score = val
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(val), "%")), 64)
		if err != nil {
			return 0, fmt.Errorf("score %q is not numeric", val)
		}
		score = f
	default:
		return 0, fmt.Errorf("score of type %T is not numeric", v)
	}

	if math.IsNaN(score) || math.IsInf(score, 0) {
		return 0, errors.New("score is not a finite number")
	}
	return ClampScore(score), nil
}

// ClampScore bounds a sub-score to [0,100].
func ClampScore(score float64) float64 {
	return math.Max(0, math.Min(100, score))
}

func coerceStrings(v any) []string {
	result := make([]string, 0)

	items, ok := v.([]any)
	if !ok {
		if s := coerceString(v); s != "" {
			result = append(result, s)
		}
		return result
	}

	for _, item := range items {
		if s := coerceString(item); s != "" {
			result = append(result, s)
		}
	}
	return result
}

func coerceString(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(val)
	default:
		bytes, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(bytes)
	}
}

// normalizeSuggestions keeps exactly MaxSuggestions entries, padding from the
// fallback list without repeating an existing suggestion.
func normalizeSuggestions(suggestions []string) []string {
	if len(suggestions) >= models.MaxSuggestions {
		return suggestions[:models.MaxSuggestions]
	}

	seen := make(map[string]struct{}, len(suggestions))
	for _, s := range suggestions {
		seen[strings.ToLower(s)] = struct{}{}
	}

	for _, s := range fallbackSuggestions {
		if len(suggestions) == models.MaxSuggestions {
			break
		}
		if _, ok := seen[strings.ToLower(s)]; ok {
			continue
		}
		suggestions = append(suggestions, s)
	}
	return suggestions
}
