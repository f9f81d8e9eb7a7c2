package models

type EventKind string

const (
	EventAlertCreated   EventKind = "alert.created"
	EventAlertUpdated   EventKind = "alert.updated"
	EventCommentCreated EventKind = "comment.created"
	EventAlertNearby    EventKind = "alert.nearby"
)

// Event is pushed to live subscribers. TargetUserID is set only for events
// meant for a single user (nearby notifications).
type Event struct {
	Kind         EventKind `json:"kind"`
	Alert        *Alert    `json:"alert,omitempty"`
	Comment      *Comment  `json:"comment,omitempty"`
	TargetUserID string    `json:"target_user_id,omitempty"`
}
