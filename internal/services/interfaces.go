package services

import (
	"context"
	"io"
	"time"

	"github.com/SAP-F-2025/survey-match-service/internal/models"
	"github.com/SAP-F-2025/survey-match-service/internal/repositories"
)

// ===== SERVICE INTERFACES =====

// SubmissionService persists client submitted pairings. It never returns an
// error: every failure degrades to an outcome with no results.
type SubmissionService interface {
	Submit(ctx context.Context, req *SubmitRequest) *SubmissionOutcome
	SubmitBatch(ctx context.Context, req *BatchSubmitRequest) *SubmissionOutcome
}

type ScoringService interface {
	ScoreAnswer(ctx context.Context, answerID uint) (*AnswerScore, error)
	ScoreSession(ctx context.Context, sessionToken string) (*SessionScore, error)
}

type QuestionService interface {
	CreateMatchQuestion(ctx context.Context, surveyToken string, req *CreateQuestionRequest) (*models.Question, error)
	GetAnswerKey(ctx context.Context, questionID uint) (*models.AnswerKey, error)
	ReplacePairs(ctx context.Context, questionID uint, req *ReplacePairsRequest) (*models.AnswerKey, error)
	GetQuestionStats(ctx context.Context, questionID uint) (*repositories.QuestionAnswerStats, error)
}

// ImportExportService moves answer keys and score sheets in and out as xlsx
type ImportExportService interface {
	ImportPairsFromExcel(ctx context.Context, questionID uint, reader io.Reader) (*ImportResult, error)
	ExportSurveyScores(ctx context.Context, surveyToken string) ([]byte, error)
}

// ===== SUBMISSION DTOs =====

type SubmitRequest struct {
	SurveyToken string
	// QuestionID is the raw path segment: a numeric id, empty, or an opaque token
	QuestionID string
	Credential string
	Payload    models.Payload
}

type QuestionPayload struct {
	QuestionID string
	Payload    models.Payload
	// Strict payloads only land on the match-following question QuestionID
	// names and are dropped otherwise, instead of falling back to the first
	// match-following question of the survey.
	Strict bool
}

type BatchSubmitRequest struct {
	SurveyToken string
	Credential  string
	Answers     []QuestionPayload
}

type SubmissionResult struct {
	ID    uint             `json:"id"`
	Value []models.Pairing `json:"value"`
}

type SubmissionOutcome struct {
	Results      []SubmissionResult `json:"results"`
	SessionToken string             `json:"-"`
}

func emptyOutcome() *SubmissionOutcome {
	return &SubmissionOutcome{Results: []SubmissionResult{}}
}

// ===== SCORING DTOs =====

type AnswerScore struct {
	AnswerID        uint      `json:"answer_id"`
	SessionID       uint      `json:"session_id"`
	QuestionID      uint      `json:"question_id"`
	Score           float64   `json:"score"`
	MaxScore        float64   `json:"max_score"`
	CreditedPairIDs []uint    `json:"credited_pair_ids"`
	IgnoredPairings int       `json:"ignored_pairings"`
	ScoredAt        time.Time `json:"scored_at"`
}

type SessionScore struct {
	SessionID    uint          `json:"session_id"`
	SessionToken string        `json:"session_token"`
	SurveyID     uint          `json:"survey_id"`
	State        string        `json:"state"`
	TotalScore   float64       `json:"total_score"`
	MaxScore     float64       `json:"max_score"`
	Questions    []AnswerScore `json:"questions"`
}

// ===== QUESTION DTOs =====

type PairRequest struct {
	Sequence    *int     `json:"sequence"`
	LeftOption  string   `json:"left_option" validate:"pair_option"`
	RightOption string   `json:"right_option" validate:"pair_option"`
	Score       *float64 `json:"score" validate:"omitempty,pair_score"`
}

type CreateQuestionRequest struct {
	Title               string        `json:"title" validate:"required,max=200"`
	Sequence            *int          `json:"sequence"`
	ShuffleLeftOptions  *bool         `json:"shuffle_left_options"`
	ShuffleRightOptions *bool         `json:"shuffle_right_options"`
	Pairs               []PairRequest `json:"pairs" validate:"omitempty,dive"`
}

type ReplacePairsRequest struct {
	ShuffleLeftOptions  *bool         `json:"shuffle_left_options"`
	ShuffleRightOptions *bool         `json:"shuffle_right_options"`
	Pairs               []PairRequest `json:"pairs" validate:"required,min=1,dive"`
}

// ===== IMPORT DTOs =====

type ImportRowError struct {
	Row     int    `json:"row"`
	Field   string `json:"field"`
	Message string `json:"message"`
}

type ImportResult struct {
	QuestionID    uint             `json:"question_id"`
	TotalRows     int              `json:"total_rows"`
	ImportedPairs int              `json:"imported_pairs"`
	ErrorCount    int              `json:"error_count"`
	Errors        []ImportRowError `json:"errors"`
}
