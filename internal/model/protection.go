package model

import "time"

// PageProtection records who first claimed a wiki page on this site and
// whether the page is currently protected. The relation is keyed by the
// immutable numeric subject ID, never by the page title; titles can be
// renamed on the wiki side.
//
// CreatorName is kept alongside CreatorUserID for rows imported from before
// accounts were linked; ownership checks fall back to a normalized
// (trimmed, case-insensitive) comparison against it.
type PageProtection struct {
	SubjectID     int64     `json:"subjectId"`
	CreatorUserID string    `json:"-"`
	CreatorName   string    `json:"creator"`
	Protected     bool      `json:"protected"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}
