package mastery

import (
	"math"
	"time"
)

// Decay is how urgently a concept needs review.
type Decay string

const (
	DecayHealthy  Decay = "healthy"
	DecayWarning  Decay = "warning"
	DecayCritical Decay = "critical"
)

const (
	WarningAfter  = 24 * time.Hour
	CriticalAfter = 48 * time.Hour
)

// Classify maps time since the last review to a Decay. A concept that was
// never reviewed is always a warning.
func Classify(lastReviewedAt *time.Time, now time.Time) Decay {
	if lastReviewedAt == nil {
		return DecayWarning
	}
	idle := now.Sub(*lastReviewedAt)
	switch {
	case idle > CriticalAfter:
		return DecayCritical
	case idle > WarningAfter:
		return DecayWarning
	default:
		return DecayHealthy
	}
}

// Health is the displayed mastery percentage.
func Health(masteryScore float64) int {
	return int(math.Round(clamp(masteryScore, 0, 1) * 100))
}
