package model

import "time"

// GroupStatus represents the moderation state of a study group
type GroupStatus string

const (
	GroupStatusPending  GroupStatus = "pending"  // Awaiting admin review
	GroupStatusApproved GroupStatus = "approved" // Visible and joinable
	GroupStatusRejected GroupStatus = "rejected" // Hidden from non-admins
)

// IsValid returns true if the status is a known group status
func (s GroupStatus) IsValid() bool {
	switch s {
	case GroupStatusPending, GroupStatusApproved, GroupStatusRejected:
		return true
	default:
		return false
	}
}

// StudyGroup represents a subject-focused community of learners
type StudyGroup struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Subject     string      `json:"subject"`
	Description string      `json:"description,omitempty"`
	CreatorID   string      `json:"creator_id"` // Immutable after creation
	Status      GroupStatus `json:"status"`
	CreatedOn   time.Time   `json:"created_on"`
	UpdatedOn   time.Time   `json:"updated_on"`
}

// GroupMembership links a user to a study group. At most one membership
// exists per (user, group) pair.
type GroupMembership struct {
	ID       string    `json:"id"`
	UserID   string    `json:"user_id"`
	GroupID  string    `json:"group_id"`
	JoinedOn time.Time `json:"joined_on"`
}

// Business constraints
const (
	MaxGroupNameLength    = 100
	MaxGroupSubjectLength = 100
	MaxGroupDescLength    = 1000
)

// CreateGroupRequest represents a request to create a study group
type CreateGroupRequest struct {
	Name        string `json:"name"`
	Subject     string `json:"subject"`
	Description string `json:"description,omitempty"`
}

// UpdateGroupRequest represents a request to update a study group
type UpdateGroupRequest struct {
	Name        *string `json:"name,omitempty"`
	Subject     *string `json:"subject,omitempty"`
	Description *string `json:"description,omitempty"`
}

// GroupView is a study group projected for a specific viewer
type GroupView struct {
	StudyGroup
	Creator      *UserSummary  `json:"creator,omitempty"`
	Members      []UserSummary `json:"members"`
	MembersCount int           `json:"members_count"`
	IsMember     bool          `json:"is_member"`
}

// GroupStats summarizes a group for the admin dashboard
type GroupStats struct {
	StudyGroup
	MembersCount  int `json:"members_count"`
	SessionsCount int `json:"sessions_count"`
}

// JoinGroupResult is returned when a user joins a group
type JoinGroupResult struct {
	Membership *GroupMembership `json:"membership"`
	XPEarned   int              `json:"xp_earned"`
}
