package services

import (
	"errors"
	"fmt"

	apperrors "github.com/SAP-F-2025/survey-match-service/internal/errors"
)

// ===== COMMON SERVICE ERRORS =====

var (
	// Survey and session errors
	ErrSurveyNotFound  = errors.New("survey not found")
	ErrSessionNotFound = errors.New("session not found")

	// Question specific errors
	ErrQuestionNotFound          = errors.New("question not found")
	ErrNoMatchQuestion           = errors.New("survey has no match-following question")
	ErrQuestionNotMatchFollowing = errors.New("question is not a match-following question")

	// Answer specific errors
	ErrAnswerNotFound = errors.New("answer not found")
)

// ===== CUSTOM ERROR TYPES =====

// Use shared validation errors from errors package
type ValidationError = apperrors.ValidationError
type ValidationErrors = apperrors.ValidationErrors

type BusinessRuleError struct {
	Rule    string                 `json:"rule"`
	Message string                 `json:"message"`
	Context map[string]interface{} `json:"context,omitempty"`
}

func (bre *BusinessRuleError) Error() string {
	return fmt.Sprintf("business rule violation (%s): %s", bre.Rule, bre.Message)
}

// ===== ERROR HELPERS =====

// NewValidationError creates a new validation error using the shared type
func NewValidationError(field, message string, value interface{}) *ValidationError {
	return apperrors.NewValidationError(field, message, value)
}

func NewBusinessRuleError(rule, message string, context map[string]interface{}) *BusinessRuleError {
	return &BusinessRuleError{
		Rule:    rule,
		Message: message,
		Context: context,
	}
}

// IsNotFound checks if error represents a "not found" condition
func IsNotFound(err error) bool {
	return errors.Is(err, ErrSurveyNotFound) ||
		errors.Is(err, ErrSessionNotFound) ||
		errors.Is(err, ErrQuestionNotFound) ||
		errors.Is(err, ErrNoMatchQuestion) ||
		errors.Is(err, ErrAnswerNotFound)
}

// IsValidation checks if error represents a validation failure
func IsValidation(err error) bool {
	var ve apperrors.ValidationErrors
	if errors.As(err, &ve) {
		return true
	}
	var single *apperrors.ValidationError
	return errors.As(err, &single)
}

// IsBusinessRule checks if error represents a business rule violation
func IsBusinessRule(err error) bool {
	var bre *BusinessRuleError
	return errors.As(err, &bre)
}
