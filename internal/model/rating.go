package model

import "time"

// Rating is one star rating for a subject: a single 1..5 integer per
// (subject, voter), overwritten in place on resubmission. Unauthenticated
// raters all share the literal "Anonymous" voter slot.
type Rating struct {
	ID           string    `json:"id"`
	SubjectID    int64     `json:"subjectId"`
	SubjectLabel string    `json:"subjectLabel"`
	Voter        string    `json:"voter"`
	Value        int       `json:"value"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// RatingSummary is the derived aggregate for a subject. Average is the
// arithmetic mean of all current values rounded half-up to one decimal,
// 0 when Count is 0. UserRating is the caller's own rating, if any.
type RatingSummary struct {
	Average    float64 `json:"average"`
	Count      int     `json:"count"`
	UserRating *int    `json:"userRating"`
}
