package models

import (
	"sort"
	"time"
)

type QuestionType string

const (
	QuestionTypeMatchFollowing QuestionType = "match_following"
	QuestionTypeSimpleChoice   QuestionType = "simple_choice"
	QuestionTypeMultipleChoice QuestionType = "multiple_choice"
	QuestionTypeTextBox        QuestionType = "text_box"
)

const DefaultPairScore = 1.0

type Question struct {
	ID           uint         `json:"id" gorm:"primaryKey"`
	SurveyID     uint         `json:"survey_id" gorm:"not null;index"`
	Title        string       `json:"title" gorm:"not null;size:200"`
	QuestionType QuestionType `json:"question_type" gorm:"not null;size:32;index"`
	Sequence     int          `json:"sequence"`

	// Presentation only, never read by scoring.
	ShuffleLeftOptions  bool `json:"shuffle_left_options"`
	ShuffleRightOptions bool `json:"shuffle_right_options"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relations
	Pairs []MatchPair `json:"pairs,omitempty" gorm:"foreignKey:QuestionID;constraint:OnDelete:CASCADE"`
}

func (Question) TableName() string {
	return "survey_questions"
}

func (q *Question) IsMatchFollowing() bool {
	return q.QuestionType == QuestionTypeMatchFollowing
}

// MatchPair is one authoritative left/right association of a match-following
// question together with the points it awards.
type MatchPair struct {
	ID          uint    `json:"id" gorm:"primaryKey"`
	QuestionID  uint    `json:"question_id" gorm:"not null;index"`
	Sequence    int     `json:"sequence"`
	LeftOption  string  `json:"left_option" gorm:"not null;size:255"`
	RightOption string  `json:"right_option" gorm:"not null;size:255"`
	Score       float64 `json:"score"`
}

func (MatchPair) TableName() string {
	return "survey_question_match_pairs"
}

// SortPairs orders pairs by (sequence, id), the display order of the answer key.
func SortPairs(pairs []MatchPair) {
	sort.SliceStable(pairs, func(i, j int) bool {
		if pairs[i].Sequence != pairs[j].Sequence {
			return pairs[i].Sequence < pairs[j].Sequence
		}
		return pairs[i].ID < pairs[j].ID
	})
}

// DefaultMatchPairs are seeded on a match-following question created without pairs.
func DefaultMatchPairs() []MatchPair {
	return []MatchPair{
		{Sequence: 1, LeftOption: "Apple", RightOption: "Fruit", Score: DefaultPairScore},
		{Sequence: 2, LeftOption: "Dog", RightOption: "Animal", Score: DefaultPairScore},
		{Sequence: 3, LeftOption: "Car", RightOption: "Vehicle", Score: DefaultPairScore},
	}
}

// AnswerKey is the read model handed to the survey front-end and to scoring.
type AnswerKey struct {
	QuestionID          uint        `json:"question_id"`
	Pairs               []MatchPair `json:"pairs"`
	ShuffleLeftOptions  bool        `json:"shuffle_left_options"`
	ShuffleRightOptions bool        `json:"shuffle_right_options"`
}

func NewAnswerKey(q *Question) *AnswerKey {
	pairs := make([]MatchPair, len(q.Pairs))
	copy(pairs, q.Pairs)
	SortPairs(pairs)

	return &AnswerKey{
		QuestionID:          q.ID,
		Pairs:               pairs,
		ShuffleLeftOptions:  q.ShuffleLeftOptions,
		ShuffleRightOptions: q.ShuffleRightOptions,
	}
}

// MaxScore is the score of a submission matching every pair.
func (k *AnswerKey) MaxScore() float64 {
	var total float64
	for _, p := range k.Pairs {
		total += p.Score
	}
	return total
}
