package repositories

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"alfredoptarigan/resumatch/internal/models"
)

// ErrNotFound is returned for missing records and for records owned by someone else.
var ErrNotFound = errors.New("record not found")

// MaxAnalysesPerList caps ListByUser results.
const MaxAnalysesPerList = 100

type AnalysisRepository interface {
	Create(ctx context.Context, analysis *models.Analysis) error
	ListByUser(ctx context.Context, userID string) ([]models.Analysis, error)
	FindByIDForUser(ctx context.Context, analysisID, userID string) (*models.Analysis, error)
	DeleteByIDForUser(ctx context.Context, analysisID, userID string) error
}

type analysisRepository struct {
	db *gorm.DB
}

func NewAnalysisRepository(db *gorm.DB) AnalysisRepository {
	return &analysisRepository{db: db}
}

func (r *analysisRepository) Create(ctx context.Context, analysis *models.Analysis) error {
	if err := r.db.WithContext(ctx).Create(analysis).Error; err != nil {
		return fmt.Errorf("failed to create analysis: %w", err)
	}
	return nil
}

// ListByUser returns the newest analyses first.
func (r *analysisRepository) ListByUser(ctx context.Context, userID string) ([]models.Analysis, error) {
	analyses := make([]models.Analysis, 0)
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Order("analysis_id DESC").
		Limit(MaxAnalysesPerList).
		Find(&analyses).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list analyses: %w", err)
	}
	return analyses, nil
}

func (r *analysisRepository) FindByIDForUser(ctx context.Context, analysisID, userID string) (*models.Analysis, error) {
	var analysis models.Analysis
	err := r.db.WithContext(ctx).
		Where("analysis_id = ? AND user_id = ?", analysisID, userID).
		First(&analysis).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to find analysis: %w", err)
	}
	return &analysis, nil
}

func (r *analysisRepository) DeleteByIDForUser(ctx context.Context, analysisID, userID string) error {
	result := r.db.WithContext(ctx).
		Where("analysis_id = ? AND user_id = ?", analysisID, userID).
		Delete(&models.Analysis{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete analysis: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
