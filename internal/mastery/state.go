package mastery

import "time"

const (
	MinBloomLevel = 1
	MaxBloomLevel = 5

	// PromotionStreak is the number of consecutive correct answers at the
	// current level needed to climb one level.
	PromotionStreak = 2

	CorrectDelta      = 0.20
	IncorrectPenalty  = 0.15
	CalibrationWeight = 0.05
)

// State is the mutable mastery portion of a concept.
type State struct {
	BloomLevel    int     `json:"bloomLevel"`
	MasteryScore  float64 `json:"masteryScore"`
	CorrectStreak int     `json:"correctStreak"`
}

// Transition records one review's effect on a concept.
type Transition struct {
	ConceptID  string    `json:"conceptId"`
	Before     State     `json:"before"`
	After      State     `json:"after"`
	Promoted   bool      `json:"promoted"`
	Demoted    bool      `json:"demoted"`
	ReviewedAt time.Time `json:"reviewedAt"`
}
