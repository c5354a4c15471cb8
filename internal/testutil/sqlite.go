// Package testutil provides fixtures shared by package tests.
package testutil

import (
	"fmt"
	"testing"

	"github.com/SAP-F-2025/survey-match-service/internal/models"
	"github.com/SAP-F-2025/survey-match-service/pkg"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewSQLiteDB opens a private in-memory database with the service schema.
func NewSQLiteDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=1", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, pkg.AutoMigrate(db))
	return db
}

// SeedSurvey creates a survey with the given access token.
func SeedSurvey(t *testing.T, db *gorm.DB, token string) *models.Survey {
	t.Helper()
	survey := &models.Survey{AccessToken: token, Title: "Survey " + token}
	require.NoError(t, db.Create(survey).Error)
	return survey
}

// SeedMatchQuestion creates a match-following question holding the default
// Apple/Dog/Car answer key.
func SeedMatchQuestion(t *testing.T, db *gorm.DB, surveyID uint, title string) *models.Question {
	t.Helper()
	question := &models.Question{
		SurveyID:            surveyID,
		Title:               title,
		QuestionType:        models.QuestionTypeMatchFollowing,
		Sequence:            10,
		ShuffleRightOptions: true,
		Pairs:               models.DefaultMatchPairs(),
	}
	require.NoError(t, db.Create(question).Error)
	models.SortPairs(question.Pairs)
	return question
}

// SeedQuestion creates a question of another type without pairs.
func SeedQuestion(t *testing.T, db *gorm.DB, surveyID uint, qt models.QuestionType) *models.Question {
	t.Helper()
	question := &models.Question{SurveyID: surveyID, Title: string(qt), QuestionType: qt}
	require.NoError(t, db.Create(question).Error)
	return question
}

// SeedSession creates a session in the given state.
func SeedSession(t *testing.T, db *gorm.DB, surveyID uint, token string, state models.SessionState) *models.Session {
	t.Helper()
	session := &models.Session{SurveyID: surveyID, AccessToken: token, State: state}
	require.NoError(t, db.Create(session).Error)
	return session
}
