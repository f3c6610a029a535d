package model

import "time"

// Comment is one node of a per-subject comment forest.
//
// Rows are stored flat with an optional parent back-reference; the nested
// Replies slice is reconstructed at read time by the comment service and is
// never persisted. A parent always belongs to the same subject; the service
// rejects cross-subject replies before anything is written.
type Comment struct {
	ID           string    `json:"id"`
	SubjectID    int64     `json:"subjectId"`
	SubjectLabel string    `json:"subjectLabel"`
	Body         string    `json:"text"`
	AuthorName   string    `json:"author"`
	ParentID     *string   `json:"parentCommentId,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`

	// Derived on read; not stored.
	Upvotes    int        `json:"upvotes"`
	Downvotes  int        `json:"downvotes"`
	ViewerVote *int       `json:"userVote,omitempty"`
	Replies    []*Comment `json:"replies"`
}

// Vote is one row of the vote ledger: a single +1/-1 per (comment, voter).
// Voter is the identity display string, not a user foreign key; the
// uniqueness constraint on (comment_id, voter) is what makes toggling safe
// under concurrent requests.
type Vote struct {
	ID        string    `json:"id"`
	CommentID string    `json:"commentId"`
	Voter     string    `json:"voter"`
	Value     int       `json:"value"` // +1 or -1
	CreatedAt time.Time `json:"createdAt"`
}

// VoteResult is returned after casting a vote: the derived aggregates for the
// comment plus the caller's own standing vote (nil after un-voting).
type VoteResult struct {
	Upvotes    int  `json:"upvotes"`
	Downvotes  int  `json:"downvotes"`
	VoterValue *int `json:"userVote"`
}
