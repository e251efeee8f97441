package model

import "time"

// UserRole represents the role of a user in the system
type UserRole string

const (
	UserRoleUser  UserRole = "user"  // Default role
	UserRoleAdmin UserRole = "admin" // Can review groups, access admin dashboard
)

// User represents a user account
type User struct {
	ID            string     `json:"id"`
	Email         string     `json:"email"`
	Username      *string    `json:"username,omitempty"`
	Hash          *string    `json:"-"` // Never expose password hash
	Firstname     *string    `json:"firstname,omitempty"`
	Lastname      *string    `json:"lastname,omitempty"`
	Image         *string    `json:"image,omitempty"`
	Role          UserRole   `json:"role"`
	XP            int        `json:"xp"`    // Never decreases
	Level         int        `json:"level"` // Derived from XP, never decreases
	EmailVerified bool       `json:"email_verified"`
	CreatedOn     time.Time  `json:"created_on"`
	UpdatedOn     time.Time  `json:"updated_on"`
	LoginOn       *time.Time `json:"login_on,omitempty"`
}

// IsAdmin returns true if the user has admin role
func (u *User) IsAdmin() bool {
	return u.Role == UserRoleAdmin
}

// DisplayName returns the best available human-readable name
func (u *User) DisplayName() string {
	if u.Username != nil && *u.Username != "" {
		return *u.Username
	}
	if u.Firstname != nil && *u.Firstname != "" {
		return *u.Firstname
	}
	return u.Email
}

// AvatarURL returns the user's image, falling back to a generated avatar
func (u *User) AvatarURL() string {
	if u.Image != nil && *u.Image != "" {
		return *u.Image
	}
	return "https://api.dicebear.com/7.x/avataaars/svg?seed=" + u.DisplayName()
}

// Identity represents a linked OAuth provider
type Identity struct {
	ID                      string    `json:"id"`
	UserID                  string    `json:"user_id"`
	Provider                string    `json:"provider"` // "google"
	ProviderUserID          string    `json:"provider_user_id"`
	ProviderEmail           *string   `json:"provider_email,omitempty"`
	EmailVerifiedByProvider bool      `json:"email_verified_by_provider"`
	CreatedOn               time.Time `json:"created_on"`
	UpdatedOn               time.Time `json:"updated_on"`
}

// TokenClaims represents extracted JWT claims
type TokenClaims struct {
	UserID   string `json:"user_id"`
	Email    string `json:"email"`
	Username string `json:"username,omitempty"`
}

// UserSummary is the minimal user projection embedded in group and
// session payloads.
type UserSummary struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Image    string `json:"image"`
	XP       int    `json:"xp"`
	Level    int    `json:"level"`
}

// Summary converts a user to its embeddable projection
func (u *User) Summary() UserSummary {
	return UserSummary{
		ID:       u.ID,
		Username: u.DisplayName(),
		Image:    u.AvatarURL(),
		XP:       u.XP,
		Level:    u.Level,
	}
}

// UpdateProfileRequest represents a request to update the caller's profile
type UpdateProfileRequest struct {
	Username  *string `json:"username,omitempty"`
	Firstname *string `json:"firstname,omitempty"`
	Lastname  *string `json:"lastname,omitempty"`
	Image     *string `json:"image,omitempty"`
}
