package models

import (
	"time"

	"gorm.io/datatypes"
)

type AnswerType string

const AnswerTypeMatchFollowing AnswerType = "match_following"

// Answer holds at most one submission per (session, question). The pairing list
// is always stored in its normalized serialized form.
type Answer struct {
	ID                  uint           `json:"id" gorm:"primaryKey"`
	SessionID           uint           `json:"session_id" gorm:"not null;uniqueIndex:idx_answer_session_question"`
	QuestionID          uint           `json:"question_id" gorm:"not null;uniqueIndex:idx_answer_session_question;index"`
	AnswerType          AnswerType     `json:"answer_type" gorm:"not null;size:32"`
	ValueMatchFollowing datatypes.JSON `json:"value_match_following" gorm:"type:jsonb"`

	// Derived from ValueMatchFollowing and the answer key; recomputed on demand.
	Score    float64    `json:"score"`
	ScoredAt *time.Time `json:"scored_at"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Answer) TableName() string {
	return "survey_user_input_lines"
}

// Pairings decodes the stored payload. An unreadable payload yields an empty list.
func (a *Answer) Pairings() []Pairing {
	return ParsePairings(a.ValueMatchFollowing)
}

func (a *Answer) IsMatchFollowing() bool {
	return a.AnswerType == AnswerTypeMatchFollowing
}
