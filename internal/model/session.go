package model

import "time"

// StudySession represents a scheduled study meetup, optionally bound to a
// study group. Sessions without a group are open to any authenticated user.
type StudySession struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	CourseCode  string    `json:"course_code"`
	Description string    `json:"description,omitempty"`
	Date        string    `json:"date"` // YYYY-MM-DD
	Time        string    `json:"time"` // HH:MM
	Location    string    `json:"location"`
	HostID      string    `json:"host_id"`            // Immutable after creation
	GroupID     *string   `json:"group_id,omitempty"` // nil = open session
	// Not a strong secret: 6 decimal digits, no uniqueness guarantee, no
	// expiry. Shared out-of-band by the host during the session.
	VerificationCode string    `json:"-"`
	CreatedOn        time.Time `json:"created_on"`
	UpdatedOn        time.Time `json:"updated_on"`
}

// VerificationCodeLength is the number of decimal digits in a session's
// attendance code. Leading zeros are significant.
const VerificationCodeLength = 6

// Constraints
const (
	MaxSessionTitleLength       = 150
	MaxSessionCourseCodeLength  = 50
	MaxSessionDescriptionLength = 2000
	MaxSessionLocationLength    = 200
)

// CreateSessionRequest represents a request to schedule a session
type CreateSessionRequest struct {
	Title       string  `json:"title"`
	CourseCode  string  `json:"course_code"`
	Description string  `json:"description,omitempty"`
	Date        string  `json:"date"`
	Time        string  `json:"time"`
	Location    string  `json:"location"`
	GroupID     *string `json:"group_id,omitempty"`
}

// UpdateSessionRequest represents a request to update a session
type UpdateSessionRequest struct {
	Title       *string `json:"title,omitempty"`
	CourseCode  *string `json:"course_code,omitempty"`
	Description *string `json:"description,omitempty"`
	Date        *string `json:"date,omitempty"`
	Time        *string `json:"time,omitempty"`
	Location    *string `json:"location,omitempty"`
}

// SessionView is a session projected for a specific viewer. The
// verification code is present only when the viewer is the host.
type SessionView struct {
	StudySession
	Host             *UserSummary `json:"host,omitempty"`
	VerificationCode *string      `json:"verification_code"`
	AttendeesCount   int          `json:"attendees_count"`
	IsAttending      bool         `json:"is_attending"`
	HasAttended      bool         `json:"has_attended"`
	IsGroupMember    bool         `json:"is_group_member"`
}

// MarkAttendanceRequest carries the code a participant presents
type MarkAttendanceRequest struct {
	Code string `json:"code"`
}

// AttendanceResult is returned on successful attendance verification
type AttendanceResult struct {
	XPEarned int `json:"xp_earned"`
}
