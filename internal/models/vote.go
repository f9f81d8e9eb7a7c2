package models

import (
	"strings"
	"time"
)

type VoteKind string

const (
	VoteVerify  VoteKind = "verify"
	VoteDiscard VoteKind = "discard"
)

func ParseVoteKind(s string) (VoteKind, bool) {
	switch VoteKind(strings.ToLower(strings.TrimSpace(s))) {
	case VoteVerify:
		return VoteVerify, true
	case VoteDiscard:
		return VoteDiscard, true
	default:
		return "", false
	}
}

// Vote is unique per (AlertID, UserID) and never changes once written.
type Vote struct {
	AlertID   string
	UserID    string
	Kind      VoteKind
	CreatedAt time.Time
}
