// Package scoring turns a review outcome and the learner's stated
// confidence into XP, coins and a feedback category.
package scoring

import (
	"math"

	"github.com/abhisek/lumen/internal/mastery"
)

// FeedbackType categorizes how well confidence matched the outcome.
type FeedbackType string

const (
	FeedbackMastery        FeedbackType = "mastery"
	FeedbackCalibrated     FeedbackType = "calibrated"
	FeedbackOverconfident  FeedbackType = "overconfident"
	FeedbackUnderconfident FeedbackType = "underconfident"
	FeedbackCorrect        FeedbackType = "correct"
	FeedbackIncorrect      FeedbackType = "incorrect"
)

const (
	// ConfidentAt is the lowest confidence counted as confident.
	ConfidentAt = 60
	// UnsureAt is the highest confidence counted as not confident.
	UnsureAt = 40

	// CoinRate converts XP into coins: coins = ceil(xp / CoinRate).
	CoinRate = 3
)

// Base XP per matrix cell, before the bloom multiplier.
const (
	xpConfidentCorrect   = 15
	xpUnsureIncorrect    = 8
	xpConfidentIncorrect = 2
	xpUnsureCorrect      = 10
	xpMidCorrect         = 12
	xpMidIncorrect       = 5
)

// Reward is the result of scoring one review.
type Reward struct {
	XP                  int          `json:"xp"`
	Coins               int          `json:"coins"`
	CalibrationAccuracy float64      `json:"calibrationAccuracy"`
	FeedbackType        FeedbackType `json:"feedbackType"`
	BloomLevel          int          `json:"bloomLevel"`
}

// BloomMultiplier scales rewards by cognitive depth: 1.0 at level 1, +0.3
// per level above.
func BloomMultiplier(bloomLevel int) float64 {
	if bloomLevel < mastery.MinBloomLevel {
		bloomLevel = mastery.MinBloomLevel
	}
	return 1 + float64(bloomLevel-1)*0.3
}

// Calculate scores one review. confidence is 0-100.
func Calculate(isCorrect bool, confidence, bloomLevel int) Reward {
	var base int
	var fb FeedbackType

	switch {
	case confidence >= ConfidentAt && isCorrect:
		base, fb = xpConfidentCorrect, FeedbackMastery
	case confidence <= UnsureAt && !isCorrect:
		base, fb = xpUnsureIncorrect, FeedbackCalibrated
	case confidence >= ConfidentAt && !isCorrect:
		base, fb = xpConfidentIncorrect, FeedbackOverconfident
	case confidence <= UnsureAt && isCorrect:
		base, fb = xpUnsureCorrect, FeedbackUnderconfident
	case isCorrect:
		base, fb = xpMidCorrect, FeedbackCorrect
	default:
		base, fb = xpMidIncorrect, FeedbackIncorrect
	}

	xp := int(math.Round(float64(base) * BloomMultiplier(bloomLevel)))
	return Reward{
		XP:                  xp,
		Coins:               Coins(xp),
		CalibrationAccuracy: 1 - mastery.CalibrationError(isCorrect, confidence),
		FeedbackType:        fb,
		BloomLevel:          bloomLevel,
	}
}

// Coins converts XP to coins, rounding up.
func Coins(xp int) int {
	if xp <= 0 {
		return 0
	}
	return (xp + CoinRate - 1) / CoinRate
}
