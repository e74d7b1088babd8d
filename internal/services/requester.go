package services

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"alfredoptarigan/resumatch/internal/logger"
)

// AnalysisRequester performs the single oracle exchange for one analysis.
type AnalysisRequester interface {
	Request(ctx context.Context, resumeText, jobDescription string) (string, error)
}

type RequesterOptions struct {
	Timeout     time.Duration
	Temperature float32
	// SkillReference is optional.
	SkillReference SkillReference
}

type analysisRequester struct {
	gemini  GeminiService
	prompts *PromptBuilder
	opts    RequesterOptions
	logger  *zap.Logger
}

func NewAnalysisRequester(gemini GeminiService, prompts *PromptBuilder, opts RequesterOptions, log *zap.Logger) AnalysisRequester {
	if prompts == nil {
		prompts = NewPromptBuilder()
	}
	return &analysisRequester{
		gemini:  gemini,
		prompts: prompts,
		opts:    opts,
		logger:  logger.OrNop(log),
	}
}

// Request implements AnalysisRequester. Every failure is returned as an *OracleError.
func (r *analysisRequester) Request(ctx context.Context, resumeText, jobDescription string) (string, error) {
	if r.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.opts.Timeout)
		defer cancel()
	}

	prompt := r.prompts.BuildAnalysisPrompt(resumeText, jobDescription, r.lookupReference(ctx, jobDescription))

	raw, err := r.gemini.GenerateText(ctx, AnalysisSystemInstruction, prompt, r.opts.Temperature)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", &OracleError{Op: "request", Cause: context.DeadlineExceeded}
		}
		return "", &OracleError{Op: "request", Cause: err}
	}

	return raw, nil
}

func (r *analysisRequester) lookupReference(ctx context.Context, jobDescription string) string {
	if r.opts.SkillReference == nil {
		return ""
	}

	reference, err := r.opts.SkillReference.Lookup(ctx, jobDescription)
	if err != nil {
		r.logger.Warn("skill reference lookup failed, continuing without it", zap.Error(err))
		return ""
	}
	return reference
}
