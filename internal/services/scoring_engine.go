package services

import (
	"github.com/SAP-F-2025/survey-match-service/internal/models"
)

// ScoringEngine compares submitted pairings with an answer key. It is pure and
// safe for concurrent use.
type ScoringEngine struct{}

func NewScoringEngine() ScoringEngine {
	return ScoringEngine{}
}

type ScoreResult struct {
	Total    float64
	MaxScore float64
	// Credited holds the ids of key pairs that scored, in key order
	Credited []uint
	// Ignored counts pairings that were foreign, unknown, wrong or repeated
	Ignored int
}

// Score returns the total awarded for pairings against the key of questionID.
func (e ScoringEngine) Score(questionID uint, key []models.MatchPair, pairings []models.Pairing) float64 {
	return e.Evaluate(questionID, key, pairings).Total
}

// Evaluate credits each key pair of questionID at most once when a pairing
// joins it correctly. Pairs of other questions never score.
func (e ScoringEngine) Evaluate(questionID uint, key []models.MatchPair, pairings []models.Pairing) ScoreResult {
	result := ScoreResult{Credited: []uint{}}

	owned := make(map[uint]struct{}, len(key))
	for _, pair := range key {
		if pair.QuestionID != questionID {
			continue
		}
		owned[pair.ID] = struct{}{}
		result.MaxScore += pair.Score
	}

	credited := make(map[uint]struct{}, len(pairings))
	for _, pairing := range pairings {
		id, ok := pairing.PairID.ID()
		if !ok {
			result.Ignored++
			continue
		}
		if _, known := owned[id]; !known || !pairing.Joined() {
			result.Ignored++
			continue
		}
		if _, seen := credited[id]; seen {
			result.Ignored++
			continue
		}
		credited[id] = struct{}{}
	}

	// Summing in key order keeps the float total independent of submission order
	for _, pair := range key {
		if pair.QuestionID != questionID {
			continue
		}
		if _, ok := credited[pair.ID]; ok {
			result.Total += pair.Score
			result.Credited = append(result.Credited, pair.ID)
		}
	}

	return result
}
