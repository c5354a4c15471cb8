package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/SAP-F-2025/survey-match-service/internal/events"
	"github.com/SAP-F-2025/survey-match-service/internal/models"
	"github.com/SAP-F-2025/survey-match-service/internal/repositories"
)

type scoringService struct {
	repo      repositories.Repository
	engine    ScoringEngine
	publisher events.EventPublisher
	logger    *ServiceLogger
}

func NewScoringService(repo repositories.Repository, publisher events.EventPublisher, logger *slog.Logger) ScoringService {
	return &scoringService{
		repo:      repo,
		engine:    NewScoringEngine(),
		publisher: publisher,
		logger:    NewServiceLogger(logger, LogConfig{Service: "survey-match-service", Component: "scoring"}),
	}
}

// ScoreAnswer recomputes and stores the score of one answer
func (s *scoringService) ScoreAnswer(ctx context.Context, answerID uint) (result *AnswerScore, err error) {
	op := s.logger.WithOperation(ctx, "score_answer")
	defer func() { op.LogResult(answerID, "answer", err) }()

	answer, err := s.repo.Answer().GetByID(ctx, nil, answerID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrAnswerNotFound
		}
		return nil, err
	}

	return s.scoreAnswer(ctx, answer, nil)
}

// ScoreSession recomputes every match-following answer of a session
func (s *scoringService) ScoreSession(ctx context.Context, sessionToken string) (result *SessionScore, err error) {
	op := s.logger.WithOperation(ctx, "score_session")
	var sessionID uint
	defer func() { op.LogResult(sessionID, "session", err) }()

	session, err := s.repo.Session().GetByAccessToken(ctx, nil, sessionToken)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	sessionID = session.ID

	answers, err := s.repo.Answer().ListBySession(ctx, nil, session.ID)
	if err != nil {
		return nil, err
	}

	result = &SessionScore{
		SessionID:    session.ID,
		SessionToken: session.AccessToken,
		SurveyID:     session.SurveyID,
		State:        string(session.State),
		Questions:    []AnswerScore{},
	}

	keys := make(map[uint]*models.AnswerKey)
	for _, answer := range answers {
		if !answer.IsMatchFollowing() {
			continue
		}
		score, err := s.scoreAnswer(ctx, answer, keys)
		if err != nil {
			return nil, err
		}
		result.Questions = append(result.Questions, *score)
		result.TotalScore += score.Score
		result.MaxScore += score.MaxScore
	}

	s.publish(ctx, events.NewSessionScoredEvent(events.SessionScoredEvent{
		SurveyID:     session.SurveyID,
		SessionID:    session.ID,
		SessionToken: session.AccessToken,
		TotalScore:   result.TotalScore,
		MaxScore:     result.MaxScore,
		ScoredAt:     time.Now().UTC(),
	}))

	return result, nil
}

// maxScoreAttempts bounds the reloads of an answer replaced while it was scored.
const maxScoreAttempts = 3

// scoreAnswer scores against the current answer key. keys memoizes keys across
// the answers of one session and may be nil. The score is stored only if the
// answer still holds the scored payload; a concurrent resubmission makes it
// reload and score the newer payload.
func (s *scoringService) scoreAnswer(ctx context.Context, answer *models.Answer, keys map[uint]*models.AnswerKey) (*AnswerScore, error) {
	key, err := s.answerKey(ctx, answer.QuestionID, keys)
	if err != nil {
		return nil, err
	}

	var evaluation ScoreResult
	var scoredAt time.Time
	for attempt := 1; ; attempt++ {
		evaluation = s.engine.Evaluate(answer.QuestionID, key.Pairs, answer.Pairings())
		scoredAt = time.Now().UTC()

		err = s.repo.Answer().UpdateScore(ctx, nil, repositories.AnswerScoreUpdate{
			ID:       answer.ID,
			Score:    evaluation.Total,
			ScoredAt: scoredAt,
			Payload:  answer.ValueMatchFollowing,
		})
		if err == nil {
			break
		}
		if !errors.Is(err, repositories.ErrAnswerChanged) || attempt == maxScoreAttempts {
			return nil, fmt.Errorf("failed to store score: %w", err)
		}

		s.logger.Logger().Debug("Answer replaced while scoring, reloading", "answer_id", answer.ID, "attempt", attempt)
		answer, err = s.repo.Answer().GetByID(ctx, nil, answer.ID)
		if err != nil {
			if repositories.IsNotFoundError(err) {
				return nil, ErrAnswerNotFound
			}
			return nil, err
		}
	}

	score := &AnswerScore{
		AnswerID:        answer.ID,
		SessionID:       answer.SessionID,
		QuestionID:      answer.QuestionID,
		Score:           evaluation.Total,
		MaxScore:        evaluation.MaxScore,
		CreditedPairIDs: evaluation.Credited,
		IgnoredPairings: evaluation.Ignored,
		ScoredAt:        scoredAt,
	}

	s.publish(ctx, events.NewAnswerScoredEvent(events.AnswerScoredEvent{
		AnswerID:   score.AnswerID,
		SessionID:  score.SessionID,
		QuestionID: score.QuestionID,
		Score:      score.Score,
		MaxScore:   score.MaxScore,
		Credited:   score.CreditedPairIDs,
		ScoredAt:   scoredAt,
	}))

	return score, nil
}

// answerKey loads the key of a question. A question that vanished scores
// against an empty key.
func (s *scoringService) answerKey(ctx context.Context, questionID uint, keys map[uint]*models.AnswerKey) (*models.AnswerKey, error) {
	if key, ok := keys[questionID]; ok {
		return key, nil
	}

	key, err := s.repo.Question().GetAnswerKey(ctx, nil, questionID)
	if err != nil {
		if !repositories.IsNotFoundError(err) {
			return nil, fmt.Errorf("failed to load answer key: %w", err)
		}
		key = &models.AnswerKey{QuestionID: questionID, Pairs: []models.MatchPair{}}
	}

	if keys != nil {
		keys[questionID] = key
	}
	return key, nil
}

func (s *scoringService) publish(ctx context.Context, event *events.AnswerEvent) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishAnswerEvent(ctx, event); err != nil {
		s.logger.Logger().Warn("Failed to publish answer event", "event_type", event.Type, "error", err)
	}
}
