package postgres

import (
	"context"
	"fmt"

	"github.com/SAP-F-2025/survey-match-service/internal/models"
	"github.com/SAP-F-2025/survey-match-service/internal/repositories"
	"gorm.io/gorm"
)

type SurveyPostgreSQL struct {
	db *gorm.DB
}

func NewSurveyPostgreSQL(db *gorm.DB) repositories.SurveyRepository {
	return &SurveyPostgreSQL{db: db}
}

func (s SurveyPostgreSQL) Create(ctx context.Context, tx *gorm.DB, survey *models.Survey) error {
	db := s.getDB(tx)
	if err := db.WithContext(ctx).Create(survey).Error; err != nil {
		return fmt.Errorf("failed to create survey: %w", err)
	}
	return nil
}

func (s SurveyPostgreSQL) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Survey, error) {
	db := s.getDB(tx)
	var survey models.Survey
	if err := db.WithContext(ctx).First(&survey, id).Error; err != nil {
		return nil, fmt.Errorf("failed to get survey %d: %w", id, err)
	}
	return &survey, nil
}

func (s SurveyPostgreSQL) GetByToken(ctx context.Context, tx *gorm.DB, token string) (*models.Survey, error) {
	db := s.getDB(tx)
	var survey models.Survey
	if err := db.WithContext(ctx).Where("access_token = ?", token).First(&survey).Error; err != nil {
		return nil, fmt.Errorf("failed to get survey by token: %w", err)
	}
	return &survey, nil
}

func (s SurveyPostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return s.db
}
