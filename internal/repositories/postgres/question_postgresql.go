package postgres

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/SAP-F-2025/survey-match-service/internal/cache"
	"github.com/SAP-F-2025/survey-match-service/internal/models"
	"github.com/SAP-F-2025/survey-match-service/internal/repositories"
	"gorm.io/gorm"
)

type QuestionPostgreSQL struct {
	db           *gorm.DB
	cacheManager *cache.CacheManager
}

// NewQuestionPostgreSQL builds the question store. cacheManager may be nil, in
// which case answer keys are always read from the database.
func NewQuestionPostgreSQL(db *gorm.DB, cacheManager *cache.CacheManager) repositories.QuestionRepository {
	return &QuestionPostgreSQL{
		db:           db,
		cacheManager: cacheManager,
	}
}

// ===== BASIC OPERATIONS =====

// Create inserts the question together with its pairs
func (q *QuestionPostgreSQL) Create(ctx context.Context, tx *gorm.DB, question *models.Question) error {
	db := q.getDB(tx)
	if err := db.WithContext(ctx).Create(question).Error; err != nil {
		return fmt.Errorf("failed to create question: %w", err)
	}
	return nil
}

func (q *QuestionPostgreSQL) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Question, error) {
	db := q.getDB(tx)
	var question models.Question
	if err := db.WithContext(ctx).First(&question, id).Error; err != nil {
		return nil, fmt.Errorf("failed to get question %d: %w", id, err)
	}
	return &question, nil
}

// GetByIDWithPairs loads the question with its pairs in answer key order
func (q *QuestionPostgreSQL) GetByIDWithPairs(ctx context.Context, tx *gorm.DB, id uint) (*models.Question, error) {
	db := q.getDB(tx)
	var question models.Question
	if err := db.WithContext(ctx).
		Preload("Pairs", func(db *gorm.DB) *gorm.DB {
			return db.Order("sequence ASC, id ASC")
		}).
		First(&question, id).Error; err != nil {
		return nil, fmt.Errorf("failed to get question %d: %w", id, err)
	}
	return &question, nil
}

// ===== SURVEY SCOPED QUERIES =====

// GetMatchQuestions returns the match-following questions of a survey, lowest id first
func (q *QuestionPostgreSQL) GetMatchQuestions(ctx context.Context, tx *gorm.DB, surveyID uint) ([]*models.Question, error) {
	db := q.getDB(tx)
	var questions []*models.Question
	if err := db.WithContext(ctx).
		Where("survey_id = ? AND question_type = ?", surveyID, models.QuestionTypeMatchFollowing).
		Order("id ASC").
		Find(&questions).Error; err != nil {
		return nil, fmt.Errorf("failed to list match questions of survey %d: %w", surveyID, err)
	}
	return questions, nil
}

func (q *QuestionPostgreSQL) GetMatchQuestion(ctx context.Context, tx *gorm.DB, surveyID, questionID uint) (*models.Question, error) {
	db := q.getDB(tx)
	var question models.Question
	if err := db.WithContext(ctx).
		Where("id = ? AND survey_id = ? AND question_type = ?", questionID, surveyID, models.QuestionTypeMatchFollowing).
		First(&question).Error; err != nil {
		return nil, fmt.Errorf("failed to get match question %d of survey %d: %w", questionID, surveyID, err)
	}
	return &question, nil
}

func (q *QuestionPostgreSQL) FindForSurvey(ctx context.Context, tx *gorm.DB, surveyID uint, identifier string) (*models.Question, error) {
	db := q.getDB(tx)

	if id, err := strconv.ParseUint(strings.TrimSpace(identifier), 10, 64); err == nil && id > 0 {
		question, err := q.GetMatchQuestion(ctx, tx, surveyID, uint(id))
		if err == nil {
			return question, nil
		}
		if !repositories.IsNotFoundError(err) {
			return nil, err
		}
	}

	// Fallback keeps one answer row per session when clients send a stale or
	// opaque identifier
	var question models.Question
	if err := db.WithContext(ctx).
		Where("survey_id = ? AND question_type = ?", surveyID, models.QuestionTypeMatchFollowing).
		Order("id ASC").
		First(&question).Error; err != nil {
		return nil, fmt.Errorf("failed to find match question for survey %d: %w", surveyID, err)
	}
	return &question, nil
}

// ===== ANSWER KEY =====

func (q *QuestionPostgreSQL) GetAnswerKey(ctx context.Context, tx *gorm.DB, questionID uint) (*models.AnswerKey, error) {
	// Reads joined to a transaction must see uncommitted pairs
	if tx == nil {
		var cached models.AnswerKey
		if q.cacheManager.GetAnswerKey(ctx, questionID, &cached) {
			return &cached, nil
		}
	}

	question, err := q.GetByIDWithPairs(ctx, tx, questionID)
	if err != nil {
		return nil, err
	}

	key := models.NewAnswerKey(question)
	if tx == nil {
		q.cacheManager.SetAnswerKey(ctx, questionID, key)
	}
	return key, nil
}

// ReplacePairs swaps the whole answer key of a question
func (q *QuestionPostgreSQL) ReplacePairs(ctx context.Context, tx *gorm.DB, questionID uint, pairs []models.MatchPair) error {
	db := q.getDB(tx)
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("question_id = ?", questionID).Delete(&models.MatchPair{}).Error; err != nil {
			return err
		}
		if len(pairs) == 0 {
			return nil
		}

		rows := make([]models.MatchPair, len(pairs))
		for i, p := range pairs {
			p.ID = 0
			p.QuestionID = questionID
			rows[i] = p
		}
		return tx.Create(&rows).Error
	})
	if err != nil {
		return fmt.Errorf("failed to replace pairs of question %d: %w", questionID, err)
	}

	q.cacheManager.InvalidateAnswerKey(ctx, questionID)
	return nil
}

func (q *QuestionPostgreSQL) UpdateShuffle(ctx context.Context, tx *gorm.DB, questionID uint, shuffleLeft, shuffleRight bool) error {
	db := q.getDB(tx)
	result := db.WithContext(ctx).Model(&models.Question{}).
		Where("id = ?", questionID).
		Updates(map[string]interface{}{
			"shuffle_left_options":  shuffleLeft,
			"shuffle_right_options": shuffleRight,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to update shuffle flags of question %d: %w", questionID, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("failed to update shuffle flags of question %d: %w", questionID, gorm.ErrRecordNotFound)
	}

	q.cacheManager.InvalidateAnswerKey(ctx, questionID)
	return nil
}

func (q *QuestionPostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return q.db
}
