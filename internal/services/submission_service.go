package services

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strconv"
	"strings"
	"time"

	"github.com/SAP-F-2025/survey-match-service/internal/events"
	"github.com/SAP-F-2025/survey-match-service/internal/models"
	"github.com/SAP-F-2025/survey-match-service/internal/repositories"
	"gorm.io/gorm"
)

type submissionService struct {
	repo      repositories.Repository
	scoring   ScoringService
	publisher events.EventPublisher
	logger    *ServiceLogger
}

func NewSubmissionService(repo repositories.Repository, scoring ScoringService, publisher events.EventPublisher, logger *slog.Logger) SubmissionService {
	return &submissionService{
		repo:      repo,
		scoring:   scoring,
		publisher: publisher,
		logger:    NewServiceLogger(logger, LogConfig{Service: "survey-match-service", Component: "submission"}),
	}
}

// persisted is one answer written during a submission
type persisted struct {
	question *models.Question
	answer   *models.Answer
	pairings []models.Pairing
}

func (s *submissionService) Submit(ctx context.Context, req *SubmitRequest) *SubmissionOutcome {
	return s.SubmitBatch(ctx, &BatchSubmitRequest{
		SurveyToken: req.SurveyToken,
		Credential:  s.credentialFor(req),
		Answers:     []QuestionPayload{{QuestionID: req.QuestionID, Payload: req.Payload}},
	})
}

// credentialFor lets an opaque second path segment stand in for the session
// credential, the slot older clients put the answer token in.
func (s *submissionService) credentialFor(req *SubmitRequest) string {
	if strings.TrimSpace(req.Credential) != "" {
		return req.Credential
	}
	segment := strings.TrimSpace(req.QuestionID)
	if segment == "" {
		return ""
	}
	if _, err := strconv.ParseUint(segment, 10, 64); err == nil {
		return ""
	}
	return segment
}

func (s *submissionService) SubmitBatch(ctx context.Context, req *BatchSubmitRequest) (outcome *SubmissionOutcome) {
	outcome = emptyOutcome()
	start := time.Now()
	log := s.logger.Logger().With("survey_token", req.SurveyToken)

	defer func() {
		if r := recover(); r != nil {
			s.logger.LogRecovery(ctx, "submit_answer", r, debug.Stack(),
				slog.String("survey_token", req.SurveyToken))
			outcome = emptyOutcome()
		}
	}()

	if len(req.Answers) == 0 {
		log.Info("Submission without answers")
		return outcome
	}

	var survey *models.Survey
	var session *models.Session
	var written []persisted

	err := s.repo.Transaction(ctx, func(tx *gorm.DB) error {
		var err error
		survey, err = s.repo.Survey().GetByToken(ctx, tx, req.SurveyToken)
		if err != nil {
			if repositories.IsNotFoundError(err) {
				return ErrSurveyNotFound
			}
			return err
		}

		type target struct {
			question *models.Question
			payload  models.Payload
		}
		targets := make([]target, 0, len(req.Answers))
		for _, item := range req.Answers {
			question, err := s.resolveQuestion(ctx, tx, survey.ID, item)
			if err != nil {
				return err
			}
			if question == nil {
				log.Debug("Dropping answer for unknown question", "question_id", item.QuestionID)
				continue
			}
			targets = append(targets, target{question: question, payload: item.Payload})
		}
		if len(targets) == 0 {
			return nil
		}

		session, err = s.repo.Session().FindOrCreate(ctx, tx, survey, req.Credential)
		if err != nil {
			return fmt.Errorf("failed to resolve session: %w", err)
		}

		written = written[:0]
		for _, t := range targets {
			pairings := t.payload.Pairings()
			answer, err := s.repo.Answer().Upsert(ctx, tx, session.ID, t.question.ID, models.SerializePairings(pairings))
			if err != nil {
				return err
			}
			written = upsertWritten(written, persisted{question: t.question, answer: answer, pairings: pairings})
		}
		return nil
	})

	s.logger.LogOperation(ctx, "submit_answer", sessionID(session), "session", time.Since(start), err)
	if err != nil {
		if !IsNotFound(err) {
			log.Error("Submission failed", "session_id", sessionID(session), "error", err)
		}
		return emptyOutcome()
	}

	if session == nil {
		log.Info("Submission without known questions")
		return outcome
	}

	outcome.SessionToken = session.AccessToken
	for _, w := range written {
		outcome.Results = append(outcome.Results, SubmissionResult{ID: w.question.ID, Value: w.pairings})
		s.afterPersist(ctx, survey, session, w)
	}

	return outcome
}

// resolveQuestion maps a payload to the question it answers. A strict payload
// whose id names no match-following question of the survey yields nil.
func (s *submissionService) resolveQuestion(ctx context.Context, tx *gorm.DB, surveyID uint, item QuestionPayload) (*models.Question, error) {
	if item.Strict {
		id, err := strconv.ParseUint(strings.TrimSpace(item.QuestionID), 10, 64)
		if err != nil {
			return nil, nil
		}
		question, err := s.repo.Question().GetMatchQuestion(ctx, tx, surveyID, uint(id))
		if err != nil {
			if repositories.IsNotFoundError(err) {
				return nil, nil
			}
			return nil, err
		}
		return question, nil
	}

	question, err := s.repo.Question().FindForSurvey(ctx, tx, surveyID, item.QuestionID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrNoMatchQuestion
		}
		return nil, err
	}
	return question, nil
}

// upsertWritten keeps one entry per question; a later payload for the same
// question replaces the earlier one, as the stored row does.
func upsertWritten(written []persisted, p persisted) []persisted {
	for i := range written {
		if written[i].question.ID == p.question.ID {
			written[i] = p
			return written
		}
	}
	return append(written, p)
}

// afterPersist scores and announces an answer. Failures here never affect the
// submission response.
func (s *submissionService) afterPersist(ctx context.Context, survey *models.Survey, session *models.Session, w persisted) {
	log := s.logger.Logger().With("answer_id", w.answer.ID, "question_id", w.question.ID, "session_id", session.ID)

	if s.publisher != nil {
		event := events.NewAnswerSubmittedEvent(events.AnswerSubmittedEvent{
			AnswerID:     w.answer.ID,
			SurveyID:     survey.ID,
			SessionID:    session.ID,
			QuestionID:   w.question.ID,
			PairingCount: len(w.pairings),
			SubmittedAt:  w.answer.UpdatedAt,
		})
		if err := s.publisher.PublishAnswerEvent(ctx, event); err != nil {
			log.Warn("Failed to publish submission event", "error", err)
		}
	}

	if s.scoring != nil {
		if _, err := s.scoring.ScoreAnswer(ctx, w.answer.ID); err != nil {
			log.Warn("Scoring after submission failed", "error", err)
		}
	}
}

func sessionID(session *models.Session) uint {
	if session == nil {
		return 0
	}
	return session.ID
}
