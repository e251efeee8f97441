// Package fixtures provides test data factories for the StudySphere API.
//
// The fixtures package contains factory functions for creating test data
// with sensible defaults and optional customization.
//
// # Factory Pattern
//
// Create a factory with a database connection:
//
//	f := fixtures.New(testDB)
//
// # Creating Test Data
//
// Factory methods create domain entities:
//
//	user := f.CreateUser(t)                     // Default user
//	group := f.CreateApprovedGroup(t, user)     // Group created by user
//	f.AddMember(t, otherUser, group)            // Add member
//	session := f.CreateSession(t, user)         // Session hosted by user
//
// # Customization
//
// Use option functions for customization:
//
//	user := f.CreateUser(t, WithXP(500, 3))
//	group := f.CreateGroup(t, user, WithGroupStatus(model.GroupStatusApproved))
//
// # Random Data
//
// Unique identifiers are generated automatically:
//
//	user1 := f.CreateUser(t) // user_abc123
//	user2 := f.CreateUser(t) // user_def456
//
// # Cleanup
//
// Test data is cleaned up when the test database is closed.
package fixtures
