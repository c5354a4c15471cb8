package repositories

import (
	"time"

	"github.com/SAP-F-2025/survey-match-service/internal/models"
	"gorm.io/datatypes"
)

// ===== SHARED FILTER STRUCTS =====

type SessionFilters struct {
	State     *models.SessionState `json:"state"`
	DateFrom  *time.Time           `json:"date_from"`
	DateTo    *time.Time           `json:"date_to"`
	Limit     int                  `json:"limit"`
	Offset    int                  `json:"offset"`
	SortOrder string               `json:"sort_order"` // "asc", "desc"
}

type AnswerFilters struct {
	QuestionID *uint `json:"question_id"`
	Scored     *bool `json:"scored"`
	Limit      int   `json:"limit"`
	Offset     int   `json:"offset"`
}

// ===== SHARED HELPER STRUCTS =====

// AnswerScoreUpdate is the derived score written back after recomputation.
type AnswerScoreUpdate struct {
	ID       uint      `json:"id"`
	Score    float64   `json:"score"`
	ScoredAt time.Time `json:"scored_at"`
	// Payload, when set, restricts the write to an answer still holding it.
	Payload datatypes.JSON `json:"-"`
}

// ===== SHARED STATISTICS STRUCTS =====

type QuestionAnswerStats struct {
	QuestionID   uint    `json:"question_id"`
	TotalAnswers int     `json:"total_answers"`
	ScoredCount  int     `json:"scored_count"`
	AverageScore float64 `json:"average_score"`
	MaxScore     float64 `json:"max_score"`
}
