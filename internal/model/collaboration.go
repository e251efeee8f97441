package model

import "time"

// SessionMessage is a chat message posted to a session. Messages are
// append-only and returned in ascending creation order.
type SessionMessage struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	SenderID  string    `json:"sender_id"`
	Text      string    `json:"text"`
	CreatedOn time.Time `json:"created_on"`
}

// MessageView is a message with its sender attached
type MessageView struct {
	SessionMessage
	Sender *UserSummary `json:"sender,omitempty"`
}

// SessionResource is a shared link attached to a session
type SessionResource struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	Title     string    `json:"title"`
	Link      string    `json:"link"`
	AddedByID string    `json:"added_by_id"`
	CreatedOn time.Time `json:"created_on"`
}

// ResourceView is a resource with the adding user attached
type ResourceView struct {
	SessionResource
	AddedBy *UserSummary `json:"added_by,omitempty"`
}

// Constraints
const (
	MaxMessageLength       = 2000
	MaxResourceTitleLength = 200
	MaxResourceLinkLength  = 500
)

// SendMessageRequest posts a chat message to a session
type SendMessageRequest struct {
	Text string `json:"text"`
}

// AddResourceRequest attaches a link to a session
type AddResourceRequest struct {
	Title string `json:"title"`
	Link  string `json:"link"`
}
