// Package model defines domain entities and data structures for the
// StudySphere API.
//
// The model package contains all struct definitions for domain objects,
// request/response types, and error definitions. Models are used across all
// layers of the application.
//
// # Domain Entities
//
// Core domain entities include:
//
//   - User: Application user with credentials, XP, and level
//   - StudyGroup: Subject-focused community, moderated by admins
//   - GroupMembership: Links a user to a group (unique per pair)
//   - StudySession: Scheduled meetup with an attendance verification code
//   - SessionRSVP: A user's intent to attend, with one-way attended flag
//   - SessionMessage / SessionResource: Per-session collaboration surfaces
//   - Badge: Read-only achievements
//
// # JSON Serialization
//
// All models use json struct tags for API serialization:
//
//	type StudyGroup struct {
//	    ID      string `json:"id"`
//	    Name    string `json:"name"`
//	    Subject string `json:"subject"`
//	}
//
// Viewer-dependent projections (GroupView, SessionView) are built at the
// service boundary; notably a session's verification code is serialized
// only for its host.
//
// # Error Types
//
// RFC 9457 Problem Details errors are defined in errors.go:
//
//	type ProblemDetails struct {
//	    Type   string `json:"type"`
//	    Title  string `json:"title"`
//	    Status int    `json:"status"`
//	    Detail string `json:"detail"`
//	}
package model
