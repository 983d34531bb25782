package scheduler

import (
	"math"
	"time"

	"github.com/morflash/morflash/internal/models"
)

// Grade is the outcome of one review. The format only records two
// grades; callers must reject anything else before calling Review.
type Grade int

const (
	Incorrect Grade = iota
	Correct
)

func (g Grade) Valid() bool {
	return g == Incorrect || g == Correct
}

func (g Grade) String() string {
	switch g {
	case Incorrect:
		return "incorrect"
	case Correct:
		return "correct"
	default:
		return "unknown"
	}
}

// ParseGrade parses "correct"/"incorrect".
func ParseGrade(s string) (Grade, bool) {
	switch s {
	case "correct":
		return Correct, true
	case "incorrect":
		return Incorrect, true
	default:
		return 0, false
	}
}

// Params are the tunable constants of the transition. They are plain
// values, not literals baked into the algorithm, so a caller can swap
// them without touching the transition itself.
type Params struct {
	EaseFloor        float64
	EaseCeiling      float64
	CorrectBonus     float64
	IncorrectPenalty float64
}

// DefaultParams returns the stock SM-2-style constants.
func DefaultParams() Params {
	return Params{
		EaseFloor:        1.3,
		EaseCeiling:      3.0,
		CorrectBonus:     0.1,
		IncorrectPenalty: 0.2,
	}
}

const (
	seedEaseFactor = 2.5
	day            = 24 * time.Hour
)

// NewState seeds the review state for a card that has never been
// reviewed: interval 0 so the first correct answer yields 1 day.
func NewState(cardID int64, now time.Time) models.ReviewState {
	now = now.UTC()
	return models.ReviewState{
		CardID:        cardID,
		DueUTC:        now,
		IntervalDays:  0,
		EaseFactor:    seedEaseFactor,
		Reps:          0,
		Lapses:        0,
		LastReviewUTC: now,
	}
}

// Review computes the next state from a prior state and a graded
// outcome. It is deterministic and touches no storage; the caller
// persists the result.
func (p Params) Review(st models.ReviewState, grade Grade, now time.Time) models.ReviewState {
	now = now.UTC()

	switch grade {
	case Incorrect:
		st.Lapses++
		st.Reps = 0
		st.IntervalDays = 1
		st.EaseFactor = math.Max(p.EaseFloor, st.EaseFactor-p.IncorrectPenalty)
	default:
		st.Reps++
		st.EaseFactor = math.Min(p.EaseCeiling, st.EaseFactor+p.CorrectBonus)
		interval := int(math.Round(float64(st.IntervalDays) * st.EaseFactor))
		if interval < 1 {
			interval = 1
		}
		st.IntervalDays = interval
	}

	st.DueUTC = now.Add(time.Duration(st.IntervalDays) * day)
	st.LastReviewUTC = now
	return st
}

// IsDue reports whether a state is eligible for review as of now.
func IsDue(st models.ReviewState, now time.Time) bool {
	return !st.DueUTC.After(now)
}
