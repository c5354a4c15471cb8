package repositories

import (
	"context"

	"github.com/SAP-F-2025/survey-match-service/internal/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// AnswerRepository interface for respondent answer operations
type AnswerRepository interface {
	// Basic CRUD operations
	GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Answer, error)
	GetBySessionAndQuestion(ctx context.Context, tx *gorm.DB, sessionID, questionID uint) (*models.Answer, error)

	// Upsert creates the answer for (session, question) or overwrites the
	// pairing payload of the existing one. The derived score is reset.
	Upsert(ctx context.Context, tx *gorm.DB, sessionID, questionID uint, payload datatypes.JSON) (*models.Answer, error)

	// Query operations
	ListBySession(ctx context.Context, tx *gorm.DB, sessionID uint) ([]*models.Answer, error)
	ListByQuestion(ctx context.Context, tx *gorm.DB, questionID uint, filters AnswerFilters) ([]*models.Answer, error)
	CountBySessionAndQuestion(ctx context.Context, tx *gorm.DB, sessionID, questionID uint) (int64, error)

	// Scoring
	UpdateScore(ctx context.Context, tx *gorm.DB, update AnswerScoreUpdate) error
	GetQuestionStats(ctx context.Context, tx *gorm.DB, questionID uint) (*QuestionAnswerStats, error)
}
