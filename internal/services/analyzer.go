package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"alfredoptarigan/resumatch/internal/logger"
	"alfredoptarigan/resumatch/internal/models"
	"alfredoptarigan/resumatch/internal/repositories"
)

// AnalysisService runs the extract, request, reconcile, aggregate, persist
// pipeline and exposes the owner-scoped store operations.
type AnalysisService interface {
	Analyze(ctx context.Context, req models.AnalysisRequest) (*models.Analysis, error)
	List(ctx context.Context, userID string) ([]models.Analysis, error)
	Get(ctx context.Context, analysisID, userID string) (*models.Analysis, error)
	Delete(ctx context.Context, analysisID, userID string) error
}

type analysisService struct {
	repo      repositories.AnalysisRepository
	parser    DocumentParser
	requester AnalysisRequester
	archive   ResumeArchive
	logger    *zap.Logger
	now       func() time.Time
}

func NewAnalysisService(
	repo repositories.AnalysisRepository,
	parser DocumentParser,
	requester AnalysisRequester,
	archive ResumeArchive,
	log *zap.Logger,
) AnalysisService {
	if archive == nil {
		archive = noopArchive{}
	}
	return &analysisService{
		repo:      repo,
		parser:    parser,
		requester: requester,
		archive:   archive,
		logger:    logger.OrNop(log),
		now:       time.Now,
	}
}

func (s *analysisService) Analyze(ctx context.Context, req models.AnalysisRequest) (*models.Analysis, error) {
	if len(req.Document) == 0 {
		return nil, ErrMissingResume
	}
	if strings.TrimSpace(req.JobDescription) == "" {
		return nil, ErrMissingJobDesc
	}

	format, err := DetectFormat(req.Filename)
	if err != nil {
		return nil, err
	}

	log := s.logger.With(zap.String("user_id", req.UserID), zap.String("resume_filename", req.Filename))

	resumeText, err := s.parser.Extract(req.Document, format)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(resumeText) == "" {
		return nil, ErrEmptyDocument
	}

	raw, err := s.requester.Request(ctx, resumeText, req.JobDescription)
	if err != nil {
		return nil, err
	}

	rec, err := Reconcile(raw)
	if err != nil {
		return nil, err
	}
	if rec.IsFallback() {
		log.Warn("oracle reply was not a JSON object, using fallback analysis",
			zap.Error(rec.ParseErr),
			zap.String("response_preview", logger.TruncateForLog(raw, 200)),
		)
	}

	result := rec.Analysis
	analysis := &models.Analysis{
		AnalysisID:      newAnalysisID(),
		UserID:          req.UserID,
		ResumeFilename:  req.Filename,
		JobDescription:  req.JobDescription,
		OverallScore:    Aggregate(result.SkillMatchScore, result.ExperienceScore, result.ATSScore),
		SkillMatchScore: result.SkillMatchScore,
		ExperienceScore: result.ExperienceScore,
		ATSScore:        result.ATSScore,
		MatchedSkills:   datatypes.JSONSlice[string](result.MatchedSkills),
		MissingSkills:   datatypes.JSONSlice[string](result.MissingSkills),
		Suggestions:     datatypes.JSONSlice[string](result.Suggestions),
		KeywordAnalysis: datatypes.NewJSONType(models.KeywordAnalysis{
			ResumeKeywords: result.ResumeKeywords,
			JobKeywords:    result.JobKeywords,
		}),
		CreatedAt: s.now().UTC(),
	}

	key, err := s.archive.Store(ctx, req.UserID, req.Filename, req.Document)
	if err != nil {
		log.Warn("failed to archive resume", zap.Error(err))
	}
	analysis.ResumeObjectKey = key

	if err := s.repo.Create(ctx, analysis); err != nil {
		s.removeArchived(ctx, key)
		return nil, fmt.Errorf("failed to save analysis: %w", err)
	}

	log.Info("analysis completed",
		zap.String("analysis_id", analysis.AnalysisID),
		zap.Float64("overall_score", analysis.OverallScore),
		zap.String("outcome", string(rec.Outcome)),
	)

	return analysis, nil
}

func (s *analysisService) List(ctx context.Context, userID string) ([]models.Analysis, error) {
	return s.repo.ListByUser(ctx, userID)
}

func (s *analysisService) Get(ctx context.Context, analysisID, userID string) (*models.Analysis, error) {
	return s.repo.FindByIDForUser(ctx, analysisID, userID)
}

func (s *analysisService) Delete(ctx context.Context, analysisID, userID string) error {
	existing, err := s.repo.FindByIDForUser(ctx, analysisID, userID)
	if err != nil {
		return err
	}

	if err := s.repo.DeleteByIDForUser(ctx, analysisID, userID); err != nil {
		return err
	}

	s.removeArchived(ctx, existing.ResumeObjectKey)
	return nil
}

func (s *analysisService) removeArchived(ctx context.Context, key string) {
	if key == "" {
		return
	}
	if err := s.archive.Remove(ctx, key); err != nil && !errors.Is(err, context.Canceled) {
		s.logger.Warn("failed to remove archived resume", zap.String("key", key), zap.Error(err))
	}
}

func newAnalysisID() string {
	return "analysis_" + strings.ReplaceAll(uuid.NewString(), "-", "")
}
