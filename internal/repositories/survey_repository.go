package repositories

import (
	"context"

	"github.com/SAP-F-2025/survey-match-service/internal/models"
	"gorm.io/gorm"
)

// SurveyRepository reads surveys owned by the survey framework
type SurveyRepository interface {
	Create(ctx context.Context, tx *gorm.DB, survey *models.Survey) error
	GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Survey, error)
	GetByToken(ctx context.Context, tx *gorm.DB, token string) (*models.Survey, error)
}
