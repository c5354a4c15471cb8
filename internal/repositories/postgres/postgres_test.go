package postgres

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/SAP-F-2025/survey-match-service/internal/cache"
	"github.com/SAP-F-2025/survey-match-service/internal/models"
	"github.com/SAP-F-2025/survey-match-service/internal/repositories"
	"github.com/SAP-F-2025/survey-match-service/internal/testutil"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

func TestSessionFindOrCreate_Chain(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	repo := NewSessionPostgreSQL(db)
	ctx := context.Background()

	survey := testutil.SeedSurvey(t, db, "survey-tok")

	t.Run("creates in-progress session when none exists", func(t *testing.T) {
		session, err := repo.FindOrCreate(ctx, nil, survey, "")
		require.NoError(t, err)
		assert.Equal(t, models.SessionInProgress, session.State)
		assert.NotEmpty(t, session.AccessToken)

		again, err := repo.FindOrCreate(ctx, nil, survey, "")
		require.NoError(t, err)
		assert.Equal(t, session.ID, again.ID, "newest open session is reused")
	})

	t.Run("credential wins even for done sessions", func(t *testing.T) {
		done := testutil.SeedSession(t, db, survey.ID, "done-tok", models.SessionDone)
		session, err := repo.FindOrCreate(ctx, nil, survey, "done-tok")
		require.NoError(t, err)
		assert.Equal(t, done.ID, session.ID)
	})

	t.Run("survey token used as session token", func(t *testing.T) {
		legacy := testutil.SeedSession(t, db, survey.ID, "survey-tok", models.SessionNew)
		session, err := repo.FindOrCreate(ctx, nil, survey, "unknown")
		require.NoError(t, err)
		assert.Equal(t, legacy.ID, session.ID)
	})

	t.Run("credential of another survey is ignored", func(t *testing.T) {
		other := testutil.SeedSurvey(t, db, "other")
		testutil.SeedSession(t, db, other.ID, "foreign-tok", models.SessionInProgress)

		session, err := repo.FindOrCreate(ctx, nil, survey, "foreign-tok")
		require.NoError(t, err)
		assert.Equal(t, survey.ID, session.SurveyID)
	})
}

func TestSessionGetLatestOpen_SkipsDone(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	repo := NewSessionPostgreSQL(db)
	ctx := context.Background()

	survey := testutil.SeedSurvey(t, db, "s")
	open := testutil.SeedSession(t, db, survey.ID, "open", models.SessionInProgress)
	testutil.SeedSession(t, db, survey.ID, "closed", models.SessionDone)

	session, err := repo.GetLatestOpen(ctx, nil, survey.ID)
	require.NoError(t, err)
	assert.Equal(t, open.ID, session.ID)

	require.NoError(t, repo.UpdateState(ctx, nil, open.ID, models.SessionDone))
	_, err = repo.GetLatestOpen(ctx, nil, survey.ID)
	assert.True(t, repositories.IsNotFoundError(err))
}

func TestQuestionFindForSurvey_Fallback(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	repo := NewQuestionPostgreSQL(db, nil)
	ctx := context.Background()

	survey := testutil.SeedSurvey(t, db, "s")
	text := testutil.SeedQuestion(t, db, survey.ID, models.QuestionTypeTextBox)
	first := testutil.SeedMatchQuestion(t, db, survey.ID, "first")
	second := testutil.SeedMatchQuestion(t, db, survey.ID, "second")

	tests := []struct {
		name       string
		identifier string
		want       uint
	}{
		{name: "exact id", identifier: fmt.Sprint(second.ID), want: second.ID},
		{name: "empty", identifier: "", want: first.ID},
		{name: "opaque token", identifier: "abc-123", want: first.ID},
		{name: "unknown id", identifier: "99999", want: first.ID},
		{name: "non match question", identifier: fmt.Sprint(text.ID), want: first.ID},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			question, err := repo.FindForSurvey(ctx, nil, survey.ID, tt.identifier)
			require.NoError(t, err)
			assert.Equal(t, tt.want, question.ID)
		})
	}

	t.Run("question of another survey", func(t *testing.T) {
		other := testutil.SeedSurvey(t, db, "other")
		foreign := testutil.SeedMatchQuestion(t, db, other.ID, "foreign")

		question, err := repo.FindForSurvey(ctx, nil, survey.ID, fmt.Sprint(foreign.ID))
		require.NoError(t, err)
		assert.Equal(t, first.ID, question.ID)
	})

	t.Run("survey without match questions", func(t *testing.T) {
		empty := testutil.SeedSurvey(t, db, "empty")
		_, err := repo.FindForSurvey(ctx, nil, empty.ID, "")
		assert.True(t, repositories.IsNotFoundError(err))
	})
}

func TestQuestionGetMatchQuestion(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	repo := NewQuestionPostgreSQL(db, nil)
	ctx := context.Background()

	survey := testutil.SeedSurvey(t, db, "s")
	text := testutil.SeedQuestion(t, db, survey.ID, models.QuestionTypeTextBox)
	match := testutil.SeedMatchQuestion(t, db, survey.ID, "match")
	other := testutil.SeedSurvey(t, db, "other")
	foreign := testutil.SeedMatchQuestion(t, db, other.ID, "foreign")

	question, err := repo.GetMatchQuestion(ctx, nil, survey.ID, match.ID)
	require.NoError(t, err)
	assert.Equal(t, match.ID, question.ID)

	for _, id := range []uint{text.ID, foreign.ID, 99999} {
		_, err := repo.GetMatchQuestion(ctx, nil, survey.ID, id)
		assert.True(t, repositories.IsNotFoundError(err), "question %d", id)
	}
}

func TestQuestionAnswerKey_OrderedAndCached(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	repo := NewQuestionPostgreSQL(db, cache.NewCacheManager(client, time.Minute, nil))
	ctx := context.Background()

	survey := testutil.SeedSurvey(t, db, "s")
	question := &models.Question{
		SurveyID:     survey.ID,
		Title:        "ordering",
		QuestionType: models.QuestionTypeMatchFollowing,
		Pairs: []models.MatchPair{
			{Sequence: 20, LeftOption: "Car", RightOption: "Vehicle", Score: 1},
			{Sequence: 10, LeftOption: "Apple", RightOption: "Fruit", Score: 2},
			{Sequence: 10, LeftOption: "Dog", RightOption: "Animal", Score: 0.5},
		},
	}
	require.NoError(t, repo.Create(ctx, nil, question))

	key, err := repo.GetAnswerKey(ctx, nil, question.ID)
	require.NoError(t, err)
	require.Len(t, key.Pairs, 3)
	assert.Equal(t, []string{"Apple", "Dog", "Car"},
		[]string{key.Pairs[0].LeftOption, key.Pairs[1].LeftOption, key.Pairs[2].LeftOption})
	assert.InDelta(t, 3.5, key.MaxScore(), 1e-9)
	assert.True(t, mr.Exists(cache.AnswerKeyKey(question.ID)))

	require.NoError(t, repo.ReplacePairs(ctx, nil, question.ID, []models.MatchPair{
		{Sequence: 1, LeftOption: "Sun", RightOption: "Star", Score: 1},
	}))
	assert.False(t, mr.Exists(cache.AnswerKeyKey(question.ID)))

	key, err = repo.GetAnswerKey(ctx, nil, question.ID)
	require.NoError(t, err)
	require.Len(t, key.Pairs, 1)
	assert.Equal(t, "Sun", key.Pairs[0].LeftOption)
}

func TestAnswerUpsert_Idempotent(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	repo := NewAnswerPostgreSQL(db)
	ctx := context.Background()

	survey := testutil.SeedSurvey(t, db, "s")
	question := testutil.SeedMatchQuestion(t, db, survey.ID, "q")
	session := testutil.SeedSession(t, db, survey.ID, "tok", models.SessionInProgress)

	first, err := repo.Upsert(ctx, nil, session.ID, question.ID, datatypes.JSON(`[{"pair_id":"1"}]`))
	require.NoError(t, err)
	require.NoError(t, repo.UpdateScore(ctx, nil, repositories.AnswerScoreUpdate{ID: first.ID, Score: 1, ScoredAt: time.Now()}))

	second, err := repo.Upsert(ctx, nil, session.ID, question.ID, datatypes.JSON(`[{"pair_id":"2"},{"pair_id":"3"}]`))
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Len(t, second.Pairings(), 2)
	assert.Zero(t, second.Score, "overwriting the payload resets the derived score")
	assert.Nil(t, second.ScoredAt)

	count, err := repo.CountBySessionAndQuestion(ctx, nil, session.ID, question.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

// failNextAnswerInsert makes the next answer insert report a unique violation,
// as a concurrent insert of the same key would.
func failNextAnswerInsert(t *testing.T, db *gorm.DB) {
	t.Helper()
	var fired atomic.Bool
	err := db.Callback().Create().Before("gorm:create").Register("test:duplicate_answer", func(d *gorm.DB) {
		if _, ok := d.Statement.Model.(*models.Answer); ok && fired.CompareAndSwap(false, true) {
			d.AddError(gorm.ErrDuplicatedKey)
		}
	})
	require.NoError(t, err)
}

func TestAnswerUpsert_UniqueViolationInsideTransaction(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	repo := NewRepository(db, nil)
	ctx := context.Background()

	survey := testutil.SeedSurvey(t, db, "s")
	question := testutil.SeedMatchQuestion(t, db, survey.ID, "q")
	session := testutil.SeedSession(t, db, survey.ID, "tok", models.SessionInProgress)

	first, err := repo.Answer().Upsert(ctx, nil, session.ID, question.ID, datatypes.JSON(`[{"pair_id":"1"}]`))
	require.NoError(t, err)
	require.NoError(t, repo.Answer().UpdateScore(ctx, nil, repositories.AnswerScoreUpdate{ID: first.ID, Score: 1}))

	failNextAnswerInsert(t, db)
	var upserted *models.Answer
	err = repo.Transaction(ctx, func(tx *gorm.DB) error {
		answer, err := repo.Answer().Upsert(ctx, tx, session.ID, question.ID, datatypes.JSON(`[{"pair_id":"2"},{"pair_id":"3"}]`))
		if err != nil {
			return err
		}
		upserted = answer
		// the transaction stays usable after the retry
		_, err = repo.Session().GetByAccessToken(ctx, tx, "tok")
		return err
	})
	require.NoError(t, err)

	assert.Equal(t, first.ID, upserted.ID)
	assert.Len(t, upserted.Pairings(), 2)
	assert.Zero(t, upserted.Score)
	assert.Nil(t, upserted.ScoredAt)

	stored, err := repo.Answer().GetByID(ctx, nil, first.ID)
	require.NoError(t, err)
	assert.Len(t, stored.Pairings(), 2)

	count, err := repo.Answer().CountBySessionAndQuestion(ctx, nil, session.ID, question.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestAnswerUpdateScore_StalePayload(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	repo := NewAnswerPostgreSQL(db)
	ctx := context.Background()

	survey := testutil.SeedSurvey(t, db, "s")
	question := testutil.SeedMatchQuestion(t, db, survey.ID, "q")
	session := testutil.SeedSession(t, db, survey.ID, "tok", models.SessionInProgress)

	stale, err := repo.Upsert(ctx, nil, session.ID, question.ID, datatypes.JSON(`[{"pair_id":"1"}]`))
	require.NoError(t, err)
	current, err := repo.Upsert(ctx, nil, session.ID, question.ID, datatypes.JSON(`[{"pair_id":"2"}]`))
	require.NoError(t, err)

	err = repo.UpdateScore(ctx, nil, repositories.AnswerScoreUpdate{ID: stale.ID, Score: 1, Payload: stale.ValueMatchFollowing})
	assert.ErrorIs(t, err, repositories.ErrAnswerChanged)

	stored, err := repo.GetByID(ctx, nil, stale.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.ScoredAt)

	require.NoError(t, repo.UpdateScore(ctx, nil, repositories.AnswerScoreUpdate{ID: current.ID, Score: 2, Payload: current.ValueMatchFollowing}))
	stored, err = repo.GetByID(ctx, nil, current.ID)
	require.NoError(t, err)
	assert.InDelta(t, 2.0, stored.Score, 1e-9)
}

func TestAnswerUpsert_SameKeyConcurrently(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	repo := NewAnswerPostgreSQL(db)
	ctx := context.Background()

	survey := testutil.SeedSurvey(t, db, "s")
	question := testutil.SeedMatchQuestion(t, db, survey.ID, "q")
	session := testutil.SeedSession(t, db, survey.ID, "tok", models.SessionInProgress)

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			payload := datatypes.JSON(fmt.Sprintf(`[{"pair_id":"%d"}]`, i))
			_, err := repo.Upsert(ctx, nil, session.ID, question.ID, payload)
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		assert.NoError(t, err)
	}

	count, err := repo.CountBySessionAndQuestion(ctx, nil, session.ID, question.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestAnswerQuestionStats(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	repo := NewAnswerPostgreSQL(db)
	ctx := context.Background()

	survey := testutil.SeedSurvey(t, db, "s")
	question := testutil.SeedMatchQuestion(t, db, survey.ID, "q")

	for i, score := range []float64{1, 3} {
		session := testutil.SeedSession(t, db, survey.ID, fmt.Sprintf("tok-%d", i), models.SessionInProgress)
		answer, err := repo.Upsert(ctx, nil, session.ID, question.ID, nil)
		require.NoError(t, err)
		require.NoError(t, repo.UpdateScore(ctx, nil, repositories.AnswerScoreUpdate{ID: answer.ID, Score: score}))
	}
	unscored := testutil.SeedSession(t, db, survey.ID, "tok-x", models.SessionInProgress)
	_, err := repo.Upsert(ctx, nil, unscored.ID, question.ID, nil)
	require.NoError(t, err)

	stats, err := repo.GetQuestionStats(ctx, nil, question.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.TotalAnswers)
	assert.Equal(t, 2, stats.ScoredCount)
	assert.InDelta(t, 2.0, stats.AverageScore, 1e-9)
	assert.InDelta(t, 3.0, stats.MaxScore, 1e-9)

	scored := true
	answers, err := repo.ListByQuestion(ctx, nil, question.ID, repositories.AnswerFilters{Scored: &scored})
	require.NoError(t, err)
	assert.Len(t, answers, 2)
}

func TestRepository_TransactionRollsBack(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	repo := NewRepository(db, nil)
	ctx := context.Background()

	survey := testutil.SeedSurvey(t, db, "s")
	err := repo.Transaction(ctx, func(tx *gorm.DB) error {
		if _, err := repo.Session().FindOrCreate(ctx, tx, survey, ""); err != nil {
			return err
		}
		return fmt.Errorf("abort")
	})
	require.Error(t, err)

	_, err = repo.Session().GetLatestOpen(ctx, nil, survey.ID)
	assert.True(t, repositories.IsNotFoundError(err))
}

func TestIsUniqueViolation(t *testing.T) {
	assert.True(t, repositories.IsUniqueViolation(gorm.ErrDuplicatedKey))
	assert.True(t, repositories.IsUniqueViolation(fmt.Errorf("wrap: %w", gorm.ErrDuplicatedKey)))
	assert.True(t, repositories.IsUniqueViolation(fmt.Errorf("UNIQUE constraint failed: survey_user_input_lines.session_id")))
	assert.False(t, repositories.IsUniqueViolation(gorm.ErrRecordNotFound))
	assert.False(t, repositories.IsUniqueViolation(nil))
}
