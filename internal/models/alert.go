package models

import "time"

type Alert struct {
	ID            string      `json:"id"`
	UserID        string      `json:"user_id"`
	AuthorName    string      `json:"name"` // copied from the author at post time, never re-synced
	Message       string      `json:"message"`
	Location      *Coordinate `json:"location,omitempty"`
	VerifiedVotes int         `json:"verified_votes"`
	DiscardVotes  int         `json:"discard_votes"`
	CommentsCount int         `json:"comments_count"`
	CreatedAt     time.Time   `json:"timestamp"`
}

type Coordinate struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}
