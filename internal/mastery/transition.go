package mastery

import "math"

// Apply returns the state after one review. It is pure: the same input always
// yields the same output, and BloomLevel stays in [1,5] and MasteryScore in
// [0,1] for any input.
func Apply(s State, isCorrect bool, confidence int) State {
	s = normalize(s)
	next := s

	delta := -IncorrectPenalty
	if isCorrect {
		next.CorrectStreak = s.CorrectStreak + 1
		delta = CorrectDelta
	} else {
		next.CorrectStreak = 0
	}
	next.MasteryScore = clamp(s.MasteryScore+delta, 0, 1)

	switch {
	case isCorrect && next.CorrectStreak >= PromotionStreak && s.BloomLevel < MaxBloomLevel:
		next.BloomLevel = s.BloomLevel + 1
		next.CorrectStreak = 0
	case !isCorrect && s.BloomLevel > MinBloomLevel:
		next.BloomLevel = s.BloomLevel - 1
	}

	next.MasteryScore = clamp(next.MasteryScore+CalibrationBonus(isCorrect, confidence), 0, 1)
	return next
}

// CalibrationBonus rewards confidence that matched the outcome.
func CalibrationBonus(isCorrect bool, confidence int) float64 {
	return (1 - CalibrationError(isCorrect, confidence)) * CalibrationWeight
}

// CalibrationError is |confidence/100 - outcome|, in [0,1].
func CalibrationError(isCorrect bool, confidence int) float64 {
	outcome := 0.0
	if isCorrect {
		outcome = 1
	}
	c := clamp(float64(confidence)/100, 0, 1)
	return math.Abs(c - outcome)
}

func normalize(s State) State {
	if s.BloomLevel < MinBloomLevel {
		s.BloomLevel = MinBloomLevel
	}
	if s.BloomLevel > MaxBloomLevel {
		s.BloomLevel = MaxBloomLevel
	}
	if s.CorrectStreak < 0 {
		s.CorrectStreak = 0
	}
	s.MasteryScore = clamp(s.MasteryScore, 0, 1)
	return s
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
