package validator

import (
	"fmt"
	"math"
	"strings"

	"github.com/SAP-F-2025/survey-match-service/internal/models"
)

const maxOptionLength = 255

// QuestionValidator enforces the answer key rules of match-following questions
type QuestionValidator struct{}

// NewQuestionValidator creates a new question validator
func NewQuestionValidator() *QuestionValidator {
	return &QuestionValidator{}
}

// ValidateQuestion validates a complete question object
func (v *QuestionValidator) ValidateQuestion(question *models.Question) ValidationErrors {
	var errs ValidationErrors

	if strings.TrimSpace(question.Title) == "" {
		errs = append(errs, *NewValidationErrorWithRule("title", "is required", "required", question.Title))
	}
	if !question.IsMatchFollowing() {
		errs = append(errs, *NewValidationErrorWithRule("question_type",
			"only match_following questions carry an answer key", "question_type", question.QuestionType))
		return errs
	}

	return append(errs, v.ValidatePairs(question.Pairs)...)
}

// ValidatePairs checks an answer key. Duplicate pairs are legal.
func (v *QuestionValidator) ValidatePairs(pairs []models.MatchPair) ValidationErrors {
	var errs ValidationErrors

	if len(pairs) == 0 {
		errs = append(errs, *NewValidationErrorWithRule("pairs", "must contain at least one pair", "min", 0))
		return errs
	}

	for i, pair := range pairs {
		field := fmt.Sprintf("pairs[%d]", i)
		if !validOption(pair.LeftOption) {
			errs = append(errs, *NewValidationErrorWithRule(field+".left_option",
				"must be a non-blank option of at most 255 characters", "pair_option", pair.LeftOption))
		}
		if !validOption(pair.RightOption) {
			errs = append(errs, *NewValidationErrorWithRule(field+".right_option",
				"must be a non-blank option of at most 255 characters", "pair_option", pair.RightOption))
		}
		if pair.Score < 0 || math.IsNaN(pair.Score) || math.IsInf(pair.Score, 0) {
			errs = append(errs, *NewValidationErrorWithRule(field+".score",
				"must be a non-negative number", "pair_score", pair.Score))
		}
	}

	return errs
}

func validOption(value string) bool {
	value = strings.TrimSpace(value)
	return value != "" && len(value) <= maxOptionLength
}
