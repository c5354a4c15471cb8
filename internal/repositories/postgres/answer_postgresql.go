package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/SAP-F-2025/survey-match-service/internal/models"
	"github.com/SAP-F-2025/survey-match-service/internal/repositories"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type AnswerPostgreSQL struct {
	db *gorm.DB
}

func NewAnswerPostgreSQL(db *gorm.DB) repositories.AnswerRepository {
	return &AnswerPostgreSQL{db: db}
}

// ===== BASIC OPERATIONS =====

func (a AnswerPostgreSQL) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Answer, error) {
	db := a.getDB(tx)
	var answer models.Answer
	if err := db.WithContext(ctx).First(&answer, id).Error; err != nil {
		return nil, fmt.Errorf("failed to get answer %d: %w", id, err)
	}
	return &answer, nil
}

func (a AnswerPostgreSQL) GetBySessionAndQuestion(ctx context.Context, tx *gorm.DB, sessionID, questionID uint) (*models.Answer, error) {
	db := a.getDB(tx)
	var answer models.Answer
	if err := db.WithContext(ctx).
		Where("session_id = ? AND question_id = ?", sessionID, questionID).
		First(&answer).Error; err != nil {
		return nil, fmt.Errorf("failed to get answer for session %d question %d: %w", sessionID, questionID, err)
	}
	return &answer, nil
}

// ===== UPSERT =====

const upsertSavePoint = "answer_upsert"

func (a AnswerPostgreSQL) Upsert(ctx context.Context, tx *gorm.DB, sessionID, questionID uint, payload datatypes.JSON) (*models.Answer, error) {
	db := a.getDB(tx)
	if len(payload) == 0 {
		payload = datatypes.JSON("[]")
	}

	answer := models.Answer{
		SessionID:           sessionID,
		QuestionID:          questionID,
		AnswerType:          models.AnswerTypeMatchFollowing,
		ValueMatchFollowing: payload,
	}

	// A failed statement aborts an open postgres transaction, so the insert
	// runs behind a savepoint the update retry can resume from
	if tx != nil {
		if err := db.WithContext(ctx).SavePoint(upsertSavePoint).Error; err != nil {
			return nil, fmt.Errorf("failed to set answer savepoint: %w", err)
		}
	}

	err := db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "session_id"}, {Name: "question_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"answer_type", "value_match_following", "score", "scored_at", "updated_at",
			}),
		}).
		Create(&answer).Error
	if err != nil {
		if !repositories.IsUniqueViolation(err) {
			return nil, fmt.Errorf("failed to upsert answer: %w", err)
		}
		if tx != nil {
			if err := db.WithContext(ctx).RollbackTo(upsertSavePoint).Error; err != nil {
				return nil, fmt.Errorf("failed to roll back answer savepoint: %w", err)
			}
		}
		if err := a.overwrite(ctx, db, sessionID, questionID, payload); err != nil {
			return nil, err
		}
	}

	// The id reported by an upsert is driver dependent, read the row back
	return a.GetBySessionAndQuestion(ctx, db, sessionID, questionID)
}

func (a AnswerPostgreSQL) overwrite(ctx context.Context, db *gorm.DB, sessionID, questionID uint, payload datatypes.JSON) error {
	err := db.WithContext(ctx).Model(&models.Answer{}).
		Where("session_id = ? AND question_id = ?", sessionID, questionID).
		Updates(map[string]interface{}{
			"answer_type":           models.AnswerTypeMatchFollowing,
			"value_match_following": payload,
			"score":                 0,
			"scored_at":             nil,
		}).Error
	if err != nil {
		return fmt.Errorf("failed to overwrite answer: %w", err)
	}
	return nil
}

// ===== QUERY OPERATIONS =====

func (a AnswerPostgreSQL) ListBySession(ctx context.Context, tx *gorm.DB, sessionID uint) ([]*models.Answer, error) {
	db := a.getDB(tx)
	var answers []*models.Answer
	if err := db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("question_id ASC").
		Find(&answers).Error; err != nil {
		return nil, fmt.Errorf("failed to list answers of session %d: %w", sessionID, err)
	}
	return answers, nil
}

func (a AnswerPostgreSQL) ListByQuestion(ctx context.Context, tx *gorm.DB, questionID uint, filters repositories.AnswerFilters) ([]*models.Answer, error) {
	db := a.getDB(tx)
	var answers []*models.Answer

	query := db.WithContext(ctx).Where("question_id = ?", questionID)
	if filters.Scored != nil {
		if *filters.Scored {
			query = query.Where("scored_at IS NOT NULL")
		} else {
			query = query.Where("scored_at IS NULL")
		}
	}
	query = query.Order("id ASC")
	if filters.Limit > 0 {
		query = query.Limit(filters.Limit)
	}
	if filters.Offset > 0 {
		query = query.Offset(filters.Offset)
	}

	if err := query.Find(&answers).Error; err != nil {
		return nil, fmt.Errorf("failed to list answers of question %d: %w", questionID, err)
	}
	return answers, nil
}

func (a AnswerPostgreSQL) CountBySessionAndQuestion(ctx context.Context, tx *gorm.DB, sessionID, questionID uint) (int64, error) {
	db := a.getDB(tx)
	var count int64
	if err := db.WithContext(ctx).Model(&models.Answer{}).
		Where("session_id = ? AND question_id = ?", sessionID, questionID).
		Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count answers: %w", err)
	}
	return count, nil
}

// ===== SCORING =====

func (a AnswerPostgreSQL) UpdateScore(ctx context.Context, tx *gorm.DB, update repositories.AnswerScoreUpdate) error {
	db := a.getDB(tx)
	scoredAt := update.ScoredAt
	if scoredAt.IsZero() {
		scoredAt = time.Now()
	}

	query := db.WithContext(ctx).Model(&models.Answer{}).Where("id = ?", update.ID)
	if len(update.Payload) > 0 {
		query = query.Where("value_match_following = ?", update.Payload)
	}
	result := query.Updates(map[string]interface{}{
		"score":     update.Score,
		"scored_at": scoredAt,
	})
	if result.Error != nil {
		return fmt.Errorf("failed to update score of answer %d: %w", update.ID, result.Error)
	}
	if result.RowsAffected == 0 && len(update.Payload) > 0 {
		return fmt.Errorf("failed to update score of answer %d: %w", update.ID, repositories.ErrAnswerChanged)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("failed to update score of answer %d: %w", update.ID, gorm.ErrRecordNotFound)
	}
	return nil
}

func (a AnswerPostgreSQL) GetQuestionStats(ctx context.Context, tx *gorm.DB, questionID uint) (*repositories.QuestionAnswerStats, error) {
	db := a.getDB(tx)
	var row struct {
		Total   int
		Scored  int
		Average *float64
		Max     *float64
	}
	if err := db.WithContext(ctx).Model(&models.Answer{}).
		Select("COUNT(*) AS total, COUNT(scored_at) AS scored, AVG(CASE WHEN scored_at IS NOT NULL THEN score END) AS average, MAX(CASE WHEN scored_at IS NOT NULL THEN score END) AS max").
		Where("question_id = ?", questionID).
		Scan(&row).Error; err != nil {
		return nil, fmt.Errorf("failed to get answer stats of question %d: %w", questionID, err)
	}

	stats := &repositories.QuestionAnswerStats{
		QuestionID:   questionID,
		TotalAnswers: row.Total,
		ScoredCount:  row.Scored,
	}
	if row.Average != nil {
		stats.AverageScore = *row.Average
	}
	if row.Max != nil {
		stats.MaxScore = *row.Max
	}
	return stats, nil
}

func (a AnswerPostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return a.db
}
