package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/SAP-F-2025/survey-match-service/internal/models"
	"github.com/SAP-F-2025/survey-match-service/internal/repositories"
	"github.com/SAP-F-2025/survey-match-service/internal/validator"
	"gorm.io/gorm"
)

const defaultPairSequence = 10

type questionService struct {
	repo      repositories.Repository
	logger    *slog.Logger
	validator *validator.Validator
}

func NewQuestionService(repo repositories.Repository, logger *slog.Logger, validator *validator.Validator) QuestionService {
	if logger == nil {
		logger = slog.Default()
	}
	return &questionService{
		repo:      repo,
		logger:    logger,
		validator: validator,
	}
}

// CreateMatchQuestion adds a match-following question to a survey. Without
// pairs it is seeded with a small default answer key.
func (s *questionService) CreateMatchQuestion(ctx context.Context, surveyToken string, req *CreateQuestionRequest) (*models.Question, error) {
	s.logger.Info("Creating match question", "survey_token", surveyToken, "title", req.Title)

	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	survey, err := s.repo.Survey().GetByToken(ctx, nil, surveyToken)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrSurveyNotFound
		}
		return nil, err
	}

	question := &models.Question{
		SurveyID:            survey.ID,
		Title:               req.Title,
		QuestionType:        models.QuestionTypeMatchFollowing,
		Sequence:            defaultPairSequence,
		ShuffleLeftOptions:  false,
		ShuffleRightOptions: true,
	}
	if req.Sequence != nil {
		question.Sequence = *req.Sequence
	}
	if req.ShuffleLeftOptions != nil {
		question.ShuffleLeftOptions = *req.ShuffleLeftOptions
	}
	if req.ShuffleRightOptions != nil {
		question.ShuffleRightOptions = *req.ShuffleRightOptions
	}

	if len(req.Pairs) == 0 {
		question.Pairs = models.DefaultMatchPairs()
	} else {
		question.Pairs = pairsFromRequest(req.Pairs)
	}

	if errs := s.validator.Question().ValidateQuestion(question); len(errs) > 0 {
		return nil, errs
	}

	if err := s.repo.Question().Create(ctx, nil, question); err != nil {
		return nil, err
	}
	models.SortPairs(question.Pairs)

	s.logger.Info("Match question created", "question_id", question.ID, "pairs", len(question.Pairs))
	return question, nil
}

func (s *questionService) GetAnswerKey(ctx context.Context, questionID uint) (*models.AnswerKey, error) {
	if _, err := s.getMatchQuestion(ctx, nil, questionID); err != nil {
		return nil, err
	}
	return s.repo.Question().GetAnswerKey(ctx, nil, questionID)
}

// ReplacePairs swaps the answer key; stored scores are recomputed on next read
func (s *questionService) ReplacePairs(ctx context.Context, questionID uint, req *ReplacePairsRequest) (*models.AnswerKey, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	pairs := pairsFromRequest(req.Pairs)
	if errs := s.validator.Question().ValidatePairs(pairs); len(errs) > 0 {
		return nil, errs
	}

	err := s.repo.Transaction(ctx, func(tx *gorm.DB) error {
		question, err := s.getMatchQuestion(ctx, tx, questionID)
		if err != nil {
			return err
		}

		if req.ShuffleLeftOptions != nil || req.ShuffleRightOptions != nil {
			left, right := question.ShuffleLeftOptions, question.ShuffleRightOptions
			if req.ShuffleLeftOptions != nil {
				left = *req.ShuffleLeftOptions
			}
			if req.ShuffleRightOptions != nil {
				right = *req.ShuffleRightOptions
			}
			if err := s.repo.Question().UpdateShuffle(ctx, tx, questionID, left, right); err != nil {
				return err
			}
		}

		return s.repo.Question().ReplacePairs(ctx, tx, questionID, pairs)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Answer key replaced", "question_id", questionID, "pairs", len(pairs))
	return s.repo.Question().GetAnswerKey(ctx, nil, questionID)
}

func (s *questionService) GetQuestionStats(ctx context.Context, questionID uint) (*repositories.QuestionAnswerStats, error) {
	if _, err := s.getMatchQuestion(ctx, nil, questionID); err != nil {
		return nil, err
	}
	return s.repo.Answer().GetQuestionStats(ctx, nil, questionID)
}

func (s *questionService) getMatchQuestion(ctx context.Context, tx *gorm.DB, questionID uint) (*models.Question, error) {
	question, err := s.repo.Question().GetByID(ctx, tx, questionID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrQuestionNotFound
		}
		return nil, fmt.Errorf("failed to load question: %w", err)
	}
	if !question.IsMatchFollowing() {
		return nil, ErrQuestionNotMatchFollowing
	}
	return question, nil
}

func pairsFromRequest(reqs []PairRequest) []models.MatchPair {
	pairs := make([]models.MatchPair, len(reqs))
	for i, r := range reqs {
		pairs[i] = models.MatchPair{
			Sequence:    defaultPairSequence,
			LeftOption:  r.LeftOption,
			RightOption: r.RightOption,
			Score:       models.DefaultPairScore,
		}
		if r.Sequence != nil {
			pairs[i].Sequence = *r.Sequence
		}
		if r.Score != nil {
			pairs[i].Score = *r.Score
		}
	}
	return pairs
}
