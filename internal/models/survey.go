package models

import (
	"time"
)

// Survey is owned by the survey framework; this service only reads it to scope
// questions and sessions.
type Survey struct {
	ID          uint   `json:"id" gorm:"primaryKey"`
	AccessToken string `json:"access_token" gorm:"not null;size:64;uniqueIndex"`
	Title       string `json:"title" gorm:"not null;size:200"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relations
	Questions []Question `json:"questions,omitempty" gorm:"foreignKey:SurveyID;constraint:OnDelete:CASCADE"`
	Sessions  []Session  `json:"-" gorm:"foreignKey:SurveyID;constraint:OnDelete:CASCADE"`
}

func (Survey) TableName() string {
	return "surveys"
}
