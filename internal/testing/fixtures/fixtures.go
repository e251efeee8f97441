// Package fixtures provides test data factories for e2e testing.
//
// Each factory method creates entities with sensible defaults while allowing
// customization via option functions. Factories handle database insertion
// and return fully populated models.
//
// Usage:
//
//	f := fixtures.New(tdb.DB)
//	user := f.CreateUser(t)
//	group := f.CreateApprovedGroup(t, user)
//	session := f.CreateSession(t, user)
package fixtures

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"testing"
	"time"

	"github.com/studysphere/api/internal/database"
	"github.com/studysphere/api/internal/model"

	"golang.org/x/crypto/bcrypt"
)

// Factory creates test entities in the database
type Factory struct {
	db database.Database
}

// New creates a new fixture factory
func New(db database.Database) *Factory {
	return &Factory{db: db}
}

// randomID generates a random hex ID
func randomID() string {
	b := make([]byte, 8)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

// ctx returns a context with timeout
func ctx() context.Context {
	c, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	// Store cancel to prevent leak warning
	_ = cancel
	return c
}

// ============================================================================
// User Fixtures
// ============================================================================

// UserOpts customizes user creation
type UserOpts struct {
	Email         string
	Username      string
	Password      string
	Role          model.UserRole
	XP            int
	Level         int
	EmailVerified bool
}

// CreateUser creates a user with optional customizations
func (f *Factory) CreateUser(t *testing.T, opts ...func(*UserOpts)) *model.User {
	t.Helper()

	o := &UserOpts{
		Email:         fmt.Sprintf("user_%s@test.local", randomID()),
		Username:      fmt.Sprintf("user_%s", randomID()),
		Password:      "testpass123",
		Role:          model.UserRoleUser,
		XP:            0,
		Level:         1,
		EmailVerified: true,
	}
	for _, fn := range opts {
		fn(o)
	}

	// Hash password
	hash, err := bcrypt.GenerateFromPassword([]byte(o.Password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("fixtures: failed to hash password: %v", err)
	}

	query := `
		CREATE user CONTENT {
			email: $email,
			username: $username,
			hash: $hash,
			role: $role,
			xp: $xp,
			level: $level,
			email_verified: $email_verified,
			created_on: time::now(),
			updated_on: time::now()
		}
	`
	vars := map[string]interface{}{
		"email":          o.Email,
		"username":       o.Username,
		"hash":           string(hash),
		"role":           string(o.Role),
		"xp":             o.XP,
		"level":          o.Level,
		"email_verified": o.EmailVerified,
	}

	results, err := f.db.Query(ctx(), query, vars)
	if err != nil {
		t.Fatalf("fixtures: failed to create user: %v", err)
	}

	user := parseUserResult(t, results)
	user.Hash = nil // Don't expose hash in fixture
	return user
}

// CreateAdmin creates an admin user
func (f *Factory) CreateAdmin(t *testing.T) *model.User {
	return f.CreateUser(t, func(o *UserOpts) {
		o.Role = model.UserRoleAdmin
	})
}

// WithXP sets the starting XP and level of a fixture user
func WithXP(xp, level int) func(*UserOpts) {
	return func(o *UserOpts) {
		o.XP = xp
		o.Level = level
	}
}

// ============================================================================
// Group Fixtures
// ============================================================================

// GroupOpts customizes group creation
type GroupOpts struct {
	Name        string
	Subject     string
	Description string
	Status      model.GroupStatus
}

// CreateGroup creates a study group with the given user as creator and first
// member. Groups start pending unless an option overrides the status.
func (f *Factory) CreateGroup(t *testing.T, creator *model.User, opts ...func(*GroupOpts)) *model.StudyGroup {
	t.Helper()

	o := &GroupOpts{
		Name:        fmt.Sprintf("Group %s", randomID()),
		Subject:     "Computer Science",
		Description: "Test group description",
		Status:      model.GroupStatusPending,
	}
	for _, fn := range opts {
		fn(o)
	}

	groupQuery := `
		CREATE study_group CONTENT {
			name: $name,
			subject: $subject,
			description: $description,
			creator_id: $creator_id,
			status: $status,
			created_on: time::now(),
			updated_on: time::now()
		}
	`
	results, err := f.db.Query(ctx(), groupQuery, map[string]interface{}{
		"name":        o.Name,
		"subject":     o.Subject,
		"description": o.Description,
		"creator_id":  creator.ID,
		"status":      string(o.Status),
	})
	if err != nil {
		t.Fatalf("fixtures: failed to create group: %v", err)
	}

	group := parseGroupResult(t, results)
	f.AddMember(t, creator, group)
	return group
}

// CreateApprovedGroup creates a group that has already passed admin review
func (f *Factory) CreateApprovedGroup(t *testing.T, creator *model.User) *model.StudyGroup {
	return f.CreateGroup(t, creator, func(o *GroupOpts) {
		o.Status = model.GroupStatusApproved
	})
}

// WithGroupStatus sets the moderation status of a fixture group
func WithGroupStatus(status model.GroupStatus) func(*GroupOpts) {
	return func(o *GroupOpts) {
		o.Status = status
	}
}

// AddMember records a group membership for the user
func (f *Factory) AddMember(t *testing.T, user *model.User, group *model.StudyGroup) {
	t.Helper()

	query := `
		CREATE group_membership CONTENT {
			user_id: $user_id,
			group_id: $group_id,
			joined_on: time::now()
		}
	`
	if err := f.db.Execute(ctx(), query, map[string]interface{}{
		"user_id":  user.ID,
		"group_id": group.ID,
	}); err != nil {
		t.Fatalf("fixtures: failed to add member: %v", err)
	}
}

// ============================================================================
// Session Fixtures
// ============================================================================

// SessionOpts customizes session creation
type SessionOpts struct {
	Title            string
	CourseCode       string
	Description      string
	Date             string
	Time             string
	Location         string
	GroupID          *string
	VerificationCode string
}

// CreateSession creates an open study session hosted by the given user.
// The host gets an attending RSVP, matching what session creation does.
func (f *Factory) CreateSession(t *testing.T, host *model.User, opts ...func(*SessionOpts)) *model.StudySession {
	t.Helper()

	o := &SessionOpts{
		Title:            fmt.Sprintf("Session %s", randomID()),
		CourseCode:       "CS101",
		Description:      "Test session description",
		Date:             time.Now().AddDate(0, 0, 7).Format("2006-01-02"),
		Time:             "18:00",
		Location:         "Library Room 2B",
		VerificationCode: "123456",
	}
	for _, fn := range opts {
		fn(o)
	}

	query := `
		CREATE study_session CONTENT {
			title: $title,
			course_code: $course_code,
			description: $description,
			date: $date,
			time: $time,
			location: $location,
			host_id: $host_id,
			group_id: $group_id,
			verification_code: $verification_code,
			created_on: time::now(),
			updated_on: time::now()
		}
	`
	results, err := f.db.Query(ctx(), query, map[string]interface{}{
		"title":             o.Title,
		"course_code":       o.CourseCode,
		"description":       o.Description,
		"date":              o.Date,
		"time":              o.Time,
		"location":          o.Location,
		"host_id":           host.ID,
		"group_id":          o.GroupID,
		"verification_code": o.VerificationCode,
	})
	if err != nil {
		t.Fatalf("fixtures: failed to create session: %v", err)
	}

	session := parseSessionResult(t, results)
	f.CreateRSVP(t, session, host)
	return session
}

// CreateGroupSession creates a session attached to a group
func (f *Factory) CreateGroupSession(t *testing.T, host *model.User, group *model.StudyGroup, opts ...func(*SessionOpts)) *model.StudySession {
	withGroup := func(o *SessionOpts) {
		o.GroupID = &group.ID
	}
	return f.CreateSession(t, host, append([]func(*SessionOpts){withGroup}, opts...)...)
}

// WithSessionDate sets the session date (YYYY-MM-DD)
func WithSessionDate(date string) func(*SessionOpts) {
	return func(o *SessionOpts) {
		o.Date = date
	}
}

// CreateRSVP records that the user plans to attend the session
func (f *Factory) CreateRSVP(t *testing.T, session *model.StudySession, user *model.User) *model.SessionRSVP {
	t.Helper()

	query := `
		CREATE session_rsvp CONTENT {
			session_id: $session_id,
			user_id: $user_id,
			attended: false,
			created_on: time::now(),
			updated_on: time::now()
		}
	`
	results, err := f.db.Query(ctx(), query, map[string]interface{}{
		"session_id": session.ID,
		"user_id":    user.ID,
	})
	if err != nil {
		t.Fatalf("fixtures: failed to create rsvp: %v", err)
	}

	return parseRSVPResult(t, results)
}

// MarkAttended flips the user's RSVP for the session to attended
func (f *Factory) MarkAttended(t *testing.T, session *model.StudySession, user *model.User) {
	t.Helper()

	query := `
		UPDATE session_rsvp
		SET attended = true, updated_on = time::now()
		WHERE session_id = $session_id AND user_id = $user_id
	`
	if err := f.db.Execute(ctx(), query, map[string]interface{}{
		"session_id": session.ID,
		"user_id":    user.ID,
	}); err != nil {
		t.Fatalf("fixtures: failed to mark attendance: %v", err)
	}
}

// ============================================================================
// Collaboration Fixtures
// ============================================================================

// CreateMessage posts a chat message to the session from the sender
func (f *Factory) CreateMessage(t *testing.T, session *model.StudySession, sender *model.User, text string) *model.SessionMessage {
	t.Helper()

	query := `
		CREATE session_message CONTENT {
			session_id: $session_id,
			sender_id: $sender_id,
			text: $text,
			created_on: time::now()
		}
	`
	results, err := f.db.Query(ctx(), query, map[string]interface{}{
		"session_id": session.ID,
		"sender_id":  sender.ID,
		"text":       text,
	})
	if err != nil {
		t.Fatalf("fixtures: failed to create message: %v", err)
	}

	return parseMessageResult(t, results)
}

// CreateResource attaches a shared link to the session
func (f *Factory) CreateResource(t *testing.T, session *model.StudySession, addedBy *model.User, title, link string) *model.SessionResource {
	t.Helper()

	query := `
		CREATE session_resource CONTENT {
			session_id: $session_id,
			title: $title,
			link: $link,
			added_by_id: $added_by_id,
			created_on: time::now()
		}
	`
	results, err := f.db.Query(ctx(), query, map[string]interface{}{
		"session_id":  session.ID,
		"title":       title,
		"link":        link,
		"added_by_id": addedBy.ID,
	})
	if err != nil {
		t.Fatalf("fixtures: failed to create resource: %v", err)
	}

	return parseResourceResult(t, results)
}

// ============================================================================
// Badge Fixtures
// ============================================================================

// CreateBadge awards a named badge to the user
func (f *Factory) CreateBadge(t *testing.T, user *model.User, name string) *model.Badge {
	t.Helper()

	query := `
		CREATE badge CONTENT {
			user_id: $user_id,
			name: $name,
			earned_on: time::now()
		}
	`
	results, err := f.db.Query(ctx(), query, map[string]interface{}{
		"user_id": user.ID,
		"name":    name,
	})
	if err != nil {
		t.Fatalf("fixtures: failed to create badge: %v", err)
	}

	return parseBadgeResult(t, results)
}

// ============================================================================
// Result Parsing
// ============================================================================

func parseUserResult(t *testing.T, results []interface{}) *model.User {
	t.Helper()
	data := extractFirstResult(t, results)
	return &model.User{
		ID:            getString(data, "id"),
		Email:         getString(data, "email"),
		Username:      getStringPtr(data, "username"),
		Role:          model.UserRole(getString(data, "role")),
		XP:            getInt(data, "xp"),
		Level:         getInt(data, "level"),
		EmailVerified: getBool(data, "email_verified"),
		CreatedOn:     getTime(data, "created_on"),
		UpdatedOn:     getTime(data, "updated_on"),
	}
}

func parseGroupResult(t *testing.T, results []interface{}) *model.StudyGroup {
	t.Helper()
	data := extractFirstResult(t, results)
	return &model.StudyGroup{
		ID:          getString(data, "id"),
		Name:        getString(data, "name"),
		Subject:     getString(data, "subject"),
		Description: getString(data, "description"),
		CreatorID:   getString(data, "creator_id"),
		Status:      model.GroupStatus(getString(data, "status")),
		CreatedOn:   getTime(data, "created_on"),
		UpdatedOn:   getTime(data, "updated_on"),
	}
}

func parseSessionResult(t *testing.T, results []interface{}) *model.StudySession {
	t.Helper()
	data := extractFirstResult(t, results)
	return &model.StudySession{
		ID:               getString(data, "id"),
		Title:            getString(data, "title"),
		CourseCode:       getString(data, "course_code"),
		Description:      getString(data, "description"),
		Date:             getString(data, "date"),
		Time:             getString(data, "time"),
		Location:         getString(data, "location"),
		HostID:           getString(data, "host_id"),
		GroupID:          getStringPtr(data, "group_id"),
		VerificationCode: getString(data, "verification_code"),
		CreatedOn:        getTime(data, "created_on"),
		UpdatedOn:        getTime(data, "updated_on"),
	}
}

func parseRSVPResult(t *testing.T, results []interface{}) *model.SessionRSVP {
	t.Helper()
	data := extractFirstResult(t, results)
	return &model.SessionRSVP{
		ID:        getString(data, "id"),
		SessionID: getString(data, "session_id"),
		UserID:    getString(data, "user_id"),
		Attended:  getBool(data, "attended"),
		CreatedOn: getTime(data, "created_on"),
		UpdatedOn: getTime(data, "updated_on"),
	}
}

func parseMessageResult(t *testing.T, results []interface{}) *model.SessionMessage {
	t.Helper()
	data := extractFirstResult(t, results)
	return &model.SessionMessage{
		ID:        getString(data, "id"),
		SessionID: getString(data, "session_id"),
		SenderID:  getString(data, "sender_id"),
		Text:      getString(data, "text"),
		CreatedOn: getTime(data, "created_on"),
	}
}

func parseResourceResult(t *testing.T, results []interface{}) *model.SessionResource {
	t.Helper()
	data := extractFirstResult(t, results)
	return &model.SessionResource{
		ID:        getString(data, "id"),
		SessionID: getString(data, "session_id"),
		Title:     getString(data, "title"),
		Link:      getString(data, "link"),
		AddedByID: getString(data, "added_by_id"),
		CreatedOn: getTime(data, "created_on"),
	}
}

func parseBadgeResult(t *testing.T, results []interface{}) *model.Badge {
	t.Helper()
	data := extractFirstResult(t, results)
	return &model.Badge{
		ID:       getString(data, "id"),
		UserID:   getString(data, "user_id"),
		Name:     getString(data, "name"),
		EarnedOn: getTime(data, "earned_on"),
	}
}

// ============================================================================
// Data Extraction Helpers
// ============================================================================

func extractFirstResult(t *testing.T, results []interface{}) map[string]interface{} {
	t.Helper()
	if len(results) == 0 {
		t.Fatal("fixtures: no results returned")
	}

	// Handle SurrealDB response wrapper
	resp, ok := results[0].(map[string]interface{})
	if !ok {
		t.Fatalf("fixtures: unexpected result type: %T", results[0])
	}

	result, ok := resp["result"]
	if !ok {
		t.Fatal("fixtures: no result in response")
	}

	// Handle array result
	if arr, ok := result.([]interface{}); ok {
		if len(arr) == 0 {
			t.Fatal("fixtures: empty result array")
		}
		data, ok := arr[0].(map[string]interface{})
		if !ok {
			t.Fatalf("fixtures: unexpected array item type: %T", arr[0])
		}
		return data
	}

	// Handle single result
	data, ok := result.(map[string]interface{})
	if !ok {
		t.Fatalf("fixtures: unexpected result type: %T", result)
	}
	return data
}

func getString(data map[string]interface{}, key string) string {
	if v, ok := data[key].(string); ok {
		return v
	}
	// Handle SurrealDB 3 record ID type - could be a struct or map
	if v := data[key]; v != nil {
		// Try to get the ID as a map with "tb" (table) and "id" fields
		if m, ok := v.(map[string]interface{}); ok {
			if tb, ok := m["tb"].(string); ok {
				if id := m["id"]; id != nil {
					return fmt.Sprintf("%s:%v", tb, id)
				}
			}
		}
		// Fallback: use string conversion but fix the format if needed
		s := fmt.Sprintf("%v", v)
		// Convert "{table id}" to "table:id"
		if len(s) > 2 && s[0] == '{' && s[len(s)-1] == '}' {
			inner := s[1 : len(s)-1]
			for i, c := range inner {
				if c == ' ' {
					return inner[:i] + ":" + inner[i+1:]
				}
			}
		}
		return s
	}
	return ""
}

func getStringPtr(data map[string]interface{}, key string) *string {
	if v, ok := data[key].(string); ok {
		return &v
	}
	return nil
}

func getBool(data map[string]interface{}, key string) bool {
	if v, ok := data[key].(bool); ok {
		return v
	}
	return false
}

func getInt(data map[string]interface{}, key string) int {
	if v, ok := data[key].(float64); ok {
		return int(v)
	}
	if v, ok := data[key].(int64); ok {
		return int(v)
	}
	return 0
}

func getTime(data map[string]interface{}, key string) time.Time {
	if v, ok := data[key].(string); ok {
		t, _ := time.Parse(time.RFC3339Nano, v)
		return t
	}
	return time.Time{}
}
