package repositories

import (
	"context"

	"github.com/SAP-F-2025/survey-match-service/internal/models"
	"gorm.io/gorm"
)

// QuestionRepository interface for question and answer key operations
type QuestionRepository interface {
	// Basic CRUD operations
	Create(ctx context.Context, tx *gorm.DB, question *models.Question) error
	GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Question, error)
	GetByIDWithPairs(ctx context.Context, tx *gorm.DB, id uint) (*models.Question, error)

	// Survey scoped queries
	GetMatchQuestions(ctx context.Context, tx *gorm.DB, surveyID uint) ([]*models.Question, error)

	// GetMatchQuestion returns the question only when it is a match-following
	// question of the survey, gorm.ErrRecordNotFound otherwise.
	GetMatchQuestion(ctx context.Context, tx *gorm.DB, surveyID, questionID uint) (*models.Question, error)

	// FindForSurvey resolves a possibly malformed question identifier to a
	// match-following question of the survey, falling back to the one with the
	// lowest id. It returns gorm.ErrRecordNotFound when the survey has none.
	FindForSurvey(ctx context.Context, tx *gorm.DB, surveyID uint, identifier string) (*models.Question, error)

	// Answer key management
	GetAnswerKey(ctx context.Context, tx *gorm.DB, questionID uint) (*models.AnswerKey, error)
	ReplacePairs(ctx context.Context, tx *gorm.DB, questionID uint, pairs []models.MatchPair) error
	UpdateShuffle(ctx context.Context, tx *gorm.DB, questionID uint, shuffleLeft, shuffleRight bool) error
}
