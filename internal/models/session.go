package models

import "time"

type SessionState string

const (
	SessionNew        SessionState = "new"
	SessionInProgress SessionState = "in_progress"
	SessionDone       SessionState = "done"
)

// Session is one respondent's attempt at a survey, identified by an opaque access token.
type Session struct {
	ID          uint         `json:"id" gorm:"primaryKey"`
	SurveyID    uint         `json:"survey_id" gorm:"not null;index"`
	AccessToken string       `json:"access_token" gorm:"not null;size:64;uniqueIndex"`
	State       SessionState `json:"state" gorm:"not null;size:16;index"`

	CreatedAt time.Time `json:"created_at" gorm:"index"`
	UpdatedAt time.Time `json:"updated_at"`

	Answers []Answer `json:"answers,omitempty" gorm:"foreignKey:SessionID;constraint:OnDelete:CASCADE"`
}

func (Session) TableName() string {
	return "survey_user_inputs"
}

func (s *Session) IsTerminal() bool {
	return s.State == SessionDone
}
