package services

import (
	"context"
	"fmt"
	"log/slog"
	"testing"

	"github.com/SAP-F-2025/survey-match-service/internal/events"
	"github.com/SAP-F-2025/survey-match-service/internal/models"
	"github.com/SAP-F-2025/survey-match-service/internal/repositories"
	"github.com/SAP-F-2025/survey-match-service/internal/repositories/postgres"
	"github.com/SAP-F-2025/survey-match-service/internal/testutil"
	"github.com/SAP-F-2025/survey-match-service/internal/validator"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type testEnv struct {
	db        *gorm.DB
	repo      repositories.Repository
	publisher *events.MockEventPublisher
	services  ServiceManager
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := testutil.NewSQLiteDB(t)
	repo := postgres.NewRepository(db, nil)
	logger := slog.New(slog.DiscardHandler)
	publisher := events.NewMockEventPublisher(logger)

	return &testEnv{
		db:        db,
		repo:      repo,
		publisher: publisher,
		services:  NewServiceManager(repo, publisher, logger, validator.New()),
	}
}

func (e *testEnv) answerFor(t *testing.T, sessionToken string, questionID uint) *models.Answer {
	t.Helper()
	ctx := context.Background()
	session, err := e.repo.Session().GetByAccessToken(ctx, nil, sessionToken)
	require.NoError(t, err)
	answer, err := e.repo.Answer().GetBySessionAndQuestion(ctx, nil, session.ID, questionID)
	require.NoError(t, err)
	return answer
}

func (e *testEnv) answerCount(t *testing.T) int64 {
	t.Helper()
	var count int64
	require.NoError(t, e.db.Model(&models.Answer{}).Count(&count).Error)
	return count
}

// pairingsJSON encodes references to the given key pairs as a client would
func pairingsJSON(pairs ...models.MatchPair) string {
	out := "["
	for i, p := range pairs {
		if i > 0 {
			out += ","
		}
		out += fmt.Sprintf(`{"pair_id":"%d","matched":true}`, p.ID)
	}
	return out + "]"
}

func refs(pairs ...models.MatchPair) []models.Pairing {
	out := make([]models.Pairing, len(pairs))
	for i, p := range pairs {
		out[i] = models.Pairing{PairID: models.PairRef(fmt.Sprint(p.ID))}
	}
	return out
}

// mockRepository fails or panics on demand
type mockRepository struct {
	mock.Mock
}

func (m *mockRepository) Survey() repositories.SurveyRepository     { return nil }
func (m *mockRepository) Question() repositories.QuestionRepository { return nil }
func (m *mockRepository) Session() repositories.SessionRepository   { return nil }
func (m *mockRepository) Answer() repositories.AnswerRepository     { return nil }

func (m *mockRepository) Transaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	args := m.Called(ctx)
	return args.Error(0)
}
