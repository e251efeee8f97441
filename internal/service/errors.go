package service

import "errors"

// Centralized service layer errors.
// All errors returned by service methods are defined here for consistency
// and to make error handling in handlers predictable.

// ===== Authentication Errors =====
var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailAlreadyExists = errors.New("email already registered")
	ErrUserNotFound       = errors.New("user not found")
	ErrPasswordRequired   = errors.New("password is required")
	ErrPasswordTooShort   = errors.New("password must be at least 8 characters")
	ErrPasswordTooLong    = errors.New("password must be at most 128 characters")
	ErrInvalidEmail       = errors.New("invalid email format")
)

// ===== Token Errors =====
var (
	ErrInvalidRefreshToken = errors.New("invalid refresh token")
	ErrRefreshTokenExpired = errors.New("refresh token expired")
	ErrRefreshTokenRevoked = errors.New("refresh token revoked")
)

// ===== OAuth Errors =====
var (
	ErrProviderError    = errors.New("OAuth provider error")
	ErrInvalidIDToken   = errors.New("invalid ID token")
	ErrEmailNotVerified = errors.New("email not verified by provider")
)

// ===== Group Errors =====
var (
	ErrGroupNotFound       = errors.New("group not found")
	ErrGroupNameRequired   = errors.New("group name is required")
	ErrGroupNameTooLong    = errors.New("group name exceeds maximum length")
	ErrGroupSubjectMissing = errors.New("group subject is required")
	ErrGroupSubjectTooLong = errors.New("group subject exceeds maximum length")
	ErrGroupDescTooLong    = errors.New("group description exceeds maximum length")
	ErrGroupNotApproved    = errors.New("group is not approved")
	ErrNotGroupMember      = errors.New("not a member of this group")
	ErrAlreadyGroupMember  = errors.New("already a member of this group")
	ErrNotGroupCreator     = errors.New("only the group creator can do this")
	ErrInvalidGroupStatus  = errors.New("invalid group status")
)

// ===== Session Errors =====
var (
	ErrSessionNotFound         = errors.New("session not found")
	ErrSessionTitleRequired    = errors.New("session title is required")
	ErrSessionDateRequired     = errors.New("session date is required")
	ErrSessionFieldTooLong     = errors.New("session field exceeds maximum length")
	ErrNotSessionHost          = errors.New("only the session host can do this")
	ErrGroupMembershipRequired = errors.New("must be a member of the session's group")
)

// ===== RSVP / Attendance Errors =====
var (
	ErrAlreadyRSVPd     = errors.New("already RSVP'd to this session")
	ErrNoRSVP           = errors.New("no RSVP for this session")
	ErrAlreadyAttended  = errors.New("attendance already verified")
	ErrCodeRequired     = errors.New("verification code is required")
	ErrInvalidCode      = errors.New("invalid verification code")
	ErrNotSessionMember = errors.New("must RSVP to the session first")
)

// ===== Collaboration Errors =====
var (
	ErrMessageEmpty         = errors.New("message text is required")
	ErrMessageTooLong       = errors.New("message exceeds maximum length")
	ErrResourceNotFound     = errors.New("resource not found")
	ErrResourceTitleMissing = errors.New("resource title is required")
	ErrResourceLinkMissing  = errors.New("resource link is required")
	ErrResourceNotOwned     = errors.New("only the resource owner or session host can delete it")
)

// ===== Admin Errors =====
var (
	ErrAdminRequired = errors.New("admin access required")
)

// ===== General Errors =====
var (
	ErrInvalidInput = errors.New("invalid input")
	ErrInternal     = errors.New("internal error")
)
