package services

import (
	"fmt"
	"strings"
)

// AnalysisSystemInstruction frames every oracle conversation.
const AnalysisSystemInstruction = "You are an expert ATS (Applicant Tracking System) and resume analyzer. Provide detailed, actionable analysis."

type PromptBuilder struct{}

func NewPromptBuilder() *PromptBuilder {
	return &PromptBuilder{}
}

// BuildAnalysisPrompt creates the resume vs. job description prompt.
// skillReference is optional retrieved context and is omitted when blank.
func (pb *PromptBuilder) BuildAnalysisPrompt(resumeText, jobDescription, skillReference string) string {
	var reference string
	if strings.TrimSpace(skillReference) != "" {
		reference = fmt.Sprintf("\nSKILL REFERENCE (known skill names and their variants):\n%s\n", skillReference)
	}

	return fmt.Sprintf(`Analyze this resume against the job description and provide a comprehensive assessment.

RESUME:
%s

JOB DESCRIPTION:
%s
%s
Provide your analysis in the following JSON format (respond ONLY with valid JSON, no markdown):
{
  "matched_skills": ["list of skills from resume that match job requirements"],
  "missing_skills": ["list of skills required in job but missing from resume"],
  "experience_relevance": "brief analysis of experience relevance (2-3 sentences)",
  "skill_match_score": 0-100,
  "experience_score": 0-100,
  "ats_score": 0-100,
  "suggestions": [
    "Specific improvement suggestion 1",
    "Specific improvement suggestion 2",
    "Specific improvement suggestion 3",
    "Specific improvement suggestion 4",
    "Specific improvement suggestion 5"
  ],
  "resume_keywords": ["important keywords found in resume"],
  "job_keywords": ["important keywords from job description"]
}

IMPORTANT:
- Use semantic matching, not just exact keywords
- Detect transferable skills and synonyms
- Consider industry-standard skill variations (e.g., "React.js" = "ReactJS" = "React")
- ATS score should reflect formatting quality and keyword optimization
- Provide exactly 5 actionable, specific suggestions
- Return only the JSON object, with no text before or after it and no code fences`,
		resumeText, jobDescription, reference)
}

// FormatSkillReference renders retrieved chunks for the prompt.
func FormatSkillReference(results []SearchResult) string {
	if len(results) == 0 {
		return ""
	}

	var parts []string
	for _, result := range results {
		text := strings.TrimSpace(result.Text)
		if text == "" {
			continue
		}
		parts = append(parts, "- "+text)
	}

	return strings.Join(parts, "\n")
}
