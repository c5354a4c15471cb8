package repositories

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"
)

// Repository groups the stores consumed by the submission and scoring services.
type Repository interface {
	Survey() SurveyRepository
	Question() QuestionRepository
	Session() SessionRepository
	Answer() AnswerRepository

	// Transaction runs fn inside a database transaction; the *gorm.DB passed to
	// fn must be handed to every repository call that should join it.
	Transaction(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// ErrAnswerChanged reports a score write skipped because the answer payload
// was replaced after it was read.
var ErrAnswerChanged = errors.New("answer changed since it was read")

// IsNotFoundError reports whether err originates from a missing row.
func IsNotFoundError(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

// IsUniqueViolation reports whether err is a unique constraint failure. Drivers
// that do not translate errors are matched on their message.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "sqlstate 23505")
}
