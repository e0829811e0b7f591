package model

import "time"

// Session is a live login. It is ended only by an explicit logout.
type Session struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Role      Role      `json:"role"`
	StartedAt time.Time `json:"started_at"`
}
