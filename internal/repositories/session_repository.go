package repositories

import (
	"context"

	"github.com/SAP-F-2025/survey-match-service/internal/models"
	"gorm.io/gorm"
)

// SessionRepository interface for survey-taking session operations
type SessionRepository interface {
	// Basic CRUD operations
	Create(ctx context.Context, tx *gorm.DB, session *models.Session) error
	GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Session, error)
	GetByToken(ctx context.Context, tx *gorm.DB, surveyID uint, token string) (*models.Session, error)
	GetByAccessToken(ctx context.Context, tx *gorm.DB, token string) (*models.Session, error)
	UpdateState(ctx context.Context, tx *gorm.DB, id uint, state models.SessionState) error

	// Query operations
	GetLatestOpen(ctx context.Context, tx *gorm.DB, surveyID uint) (*models.Session, error)
	ListBySurvey(ctx context.Context, tx *gorm.DB, surveyID uint, filters SessionFilters) ([]*models.Session, int64, error)

	// FindOrCreate resolves the session a submission belongs to: by credential,
	// then by the survey token, then the newest non-terminal session; a new
	// in-progress session is created when none matches.
	FindOrCreate(ctx context.Context, tx *gorm.DB, survey *models.Survey, credential string) (*models.Session, error)
}
