package events

import (
	"time"

	"github.com/google/uuid"
)

// EventType represents the answer lifecycle events emitted by the service
type EventType string

const (
	EventAnswerSubmitted EventType = "answer.submitted"
	EventAnswerScored    EventType = "answer.scored"
	EventSessionScored   EventType = "session.scored"
)

const (
	eventSource  = "survey-match-service"
	eventVersion = "1.0"
)

// AnswerEvent is the envelope of every published event
type AnswerEvent struct {
	ID        string                 `json:"id"`
	Type      EventType              `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	Source    string                 `json:"source"`
	Version   string                 `json:"version"`
	Data      interface{}            `json:"data"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// Event payloads

type AnswerSubmittedEvent struct {
	AnswerID     uint      `json:"answer_id"`
	SurveyID     uint      `json:"survey_id"`
	SessionID    uint      `json:"session_id"`
	QuestionID   uint      `json:"question_id"`
	PairingCount int       `json:"pairing_count"`
	SubmittedAt  time.Time `json:"submitted_at"`
}

type AnswerScoredEvent struct {
	AnswerID   uint      `json:"answer_id"`
	SessionID  uint      `json:"session_id"`
	QuestionID uint      `json:"question_id"`
	Score      float64   `json:"score"`
	MaxScore   float64   `json:"max_score"`
	Credited   []uint    `json:"credited_pair_ids"`
	ScoredAt   time.Time `json:"scored_at"`
}

type SessionScoredEvent struct {
	SurveyID     uint      `json:"survey_id"`
	SessionID    uint      `json:"session_id"`
	SessionToken string    `json:"session_token"`
	TotalScore   float64   `json:"total_score"`
	MaxScore     float64   `json:"max_score"`
	ScoredAt     time.Time `json:"scored_at"`
}

// Event factory functions

func NewAnswerSubmittedEvent(data AnswerSubmittedEvent) *AnswerEvent {
	return newEvent(EventAnswerSubmitted, data)
}

func NewAnswerScoredEvent(data AnswerScoredEvent) *AnswerEvent {
	return newEvent(EventAnswerScored, data)
}

func NewSessionScoredEvent(data SessionScoredEvent) *AnswerEvent {
	return newEvent(EventSessionScored, data)
}

func newEvent(eventType EventType, data interface{}) *AnswerEvent {
	return &AnswerEvent{
		ID:        GenerateEventID(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		Source:    eventSource,
		Version:   eventVersion,
		Data:      data,
	}
}

// GenerateEventID returns a random event identifier
func GenerateEventID() string {
	return uuid.NewString()
}
