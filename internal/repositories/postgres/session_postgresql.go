package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/SAP-F-2025/survey-match-service/internal/models"
	"github.com/SAP-F-2025/survey-match-service/internal/repositories"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type SessionPostgreSQL struct {
	db *gorm.DB
}

func NewSessionPostgreSQL(db *gorm.DB) repositories.SessionRepository {
	return &SessionPostgreSQL{db: db}
}

// ===== BASIC OPERATIONS =====

func (s SessionPostgreSQL) Create(ctx context.Context, tx *gorm.DB, session *models.Session) error {
	db := s.getDB(tx)
	if session.AccessToken == "" {
		session.AccessToken = uuid.NewString()
	}
	if session.State == "" {
		session.State = models.SessionNew
	}
	if err := db.WithContext(ctx).Create(session).Error; err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

func (s SessionPostgreSQL) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Session, error) {
	db := s.getDB(tx)
	var session models.Session
	if err := db.WithContext(ctx).First(&session, id).Error; err != nil {
		return nil, fmt.Errorf("failed to get session %d: %w", id, err)
	}
	return &session, nil
}

// GetByToken finds a session of the survey by access token, whatever its state
func (s SessionPostgreSQL) GetByToken(ctx context.Context, tx *gorm.DB, surveyID uint, token string) (*models.Session, error) {
	db := s.getDB(tx)
	var session models.Session
	if err := db.WithContext(ctx).
		Where("survey_id = ? AND access_token = ?", surveyID, token).
		First(&session).Error; err != nil {
		return nil, fmt.Errorf("failed to get session by token: %w", err)
	}
	return &session, nil
}

// GetByAccessToken finds a session by its globally unique access token
func (s SessionPostgreSQL) GetByAccessToken(ctx context.Context, tx *gorm.DB, token string) (*models.Session, error) {
	db := s.getDB(tx)
	var session models.Session
	if err := db.WithContext(ctx).Where("access_token = ?", token).First(&session).Error; err != nil {
		return nil, fmt.Errorf("failed to get session by token: %w", err)
	}
	return &session, nil
}

func (s SessionPostgreSQL) UpdateState(ctx context.Context, tx *gorm.DB, id uint, state models.SessionState) error {
	db := s.getDB(tx)
	result := db.WithContext(ctx).Model(&models.Session{}).Where("id = ?", id).Update("state", state)
	if result.Error != nil {
		return fmt.Errorf("failed to update session %d: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("failed to update session %d: %w", id, gorm.ErrRecordNotFound)
	}
	return nil
}

// ===== QUERY OPERATIONS =====

// GetLatestOpen returns the most recently created session that is not done
func (s SessionPostgreSQL) GetLatestOpen(ctx context.Context, tx *gorm.DB, surveyID uint) (*models.Session, error) {
	db := s.getDB(tx)
	var session models.Session
	if err := db.WithContext(ctx).
		Where("survey_id = ? AND state <> ?", surveyID, models.SessionDone).
		Order("created_at DESC, id DESC").
		First(&session).Error; err != nil {
		return nil, fmt.Errorf("failed to get open session of survey %d: %w", surveyID, err)
	}
	return &session, nil
}

func (s SessionPostgreSQL) ListBySurvey(ctx context.Context, tx *gorm.DB, surveyID uint, filters repositories.SessionFilters) ([]*models.Session, int64, error) {
	db := s.getDB(tx)
	var sessions []*models.Session
	var total int64

	// apply filter first
	query := db.WithContext(ctx).Model(&models.Session{}).Where("survey_id = ?", surveyID)
	if filters.State != nil {
		query = query.Where("state = ?", *filters.State)
	}
	if filters.DateFrom != nil {
		query = query.Where("created_at >= ?", *filters.DateFrom)
	}
	if filters.DateTo != nil {
		query = query.Where("created_at <= ?", *filters.DateTo)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count sessions: %w", err)
	}

	// then apply pagination and sorting
	order := "ASC"
	if strings.EqualFold(filters.SortOrder, "desc") {
		order = "DESC"
	}
	query = query.Order("created_at " + order + ", id " + order)
	if filters.Limit > 0 {
		query = query.Limit(filters.Limit)
	}
	if filters.Offset > 0 {
		query = query.Offset(filters.Offset)
	}

	if err := query.Find(&sessions).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list sessions: %w", err)
	}
	return sessions, total, nil
}

// ===== RESOLUTION =====

func (s SessionPostgreSQL) FindOrCreate(ctx context.Context, tx *gorm.DB, survey *models.Survey, credential string) (*models.Session, error) {
	if survey == nil {
		return nil, fmt.Errorf("failed to resolve session: %w", gorm.ErrRecordNotFound)
	}

	candidates := make([]string, 0, 2)
	if c := strings.TrimSpace(credential); c != "" {
		candidates = append(candidates, c)
	}
	// Legacy clients post with the survey token where the session token belongs
	if survey.AccessToken != "" {
		candidates = append(candidates, survey.AccessToken)
	}

	for _, token := range candidates {
		session, err := s.GetByToken(ctx, tx, survey.ID, token)
		if err == nil {
			return session, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	}

	session, err := s.GetLatestOpen(ctx, tx, survey.ID)
	if err == nil {
		return session, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	session = &models.Session{
		SurveyID:    survey.ID,
		AccessToken: uuid.NewString(),
		State:       models.SessionInProgress,
	}
	if err := s.Create(ctx, tx, session); err != nil {
		return nil, err
	}
	return session, nil
}

func (s SessionPostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return s.db
}
