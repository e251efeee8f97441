package model

import "time"

// SessionRSVP represents a user's intent to attend a study session. At most
// one RSVP exists per (user, session) pair. Attended flips from false to
// true exactly once, through code verification.
type SessionRSVP struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	UserID    string    `json:"user_id"`
	Attended  bool      `json:"attended"`
	CreatedOn time.Time `json:"created_on"`
	UpdatedOn time.Time `json:"updated_on"`
}
