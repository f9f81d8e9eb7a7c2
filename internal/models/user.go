package models

import "time"

type User struct {
	ID        string      `json:"id"`
	FullName  string      `json:"full_name"`
	Phone     string      `json:"phone"`
	Email     string      `json:"email"`
	Location  *Coordinate `json:"location,omitempty"` // last known, pushed by the location bridge
	CreatedAt time.Time   `json:"created_at"`
}
