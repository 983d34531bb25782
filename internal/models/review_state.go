package models

import "time"

// ReviewState is the spaced-repetition state of one card, keyed 1:1 by
// card id. Invariants held by every scheduler transition and enforced by
// the store: DueUTC >= LastReviewUTC and EaseFactor never drops below
// the configured floor.
type ReviewState struct {
	CardID        int64     `json:"card_id"`
	DueUTC        time.Time `json:"due_utc"`
	IntervalDays  int       `json:"interval_days"`
	EaseFactor    float64   `json:"ease_factor"`
	Reps          int       `json:"reps"`
	Lapses        int       `json:"lapses"`
	LastReviewUTC time.Time `json:"last_review_utc"`
}
