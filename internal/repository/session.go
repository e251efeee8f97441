package repository

import (
	"context"
	"errors"

	"github.com/studysphere/api/internal/database"
	"github.com/studysphere/api/internal/model"
)

// SessionRepository handles study session data access
type SessionRepository struct {
	db database.Database
}

// NewSessionRepository creates a new session repository
func NewSessionRepository(db database.Database) *SessionRepository {
	return &SessionRepository{db: db}
}

// Create creates a session record
func (r *SessionRepository) Create(ctx context.Context, session *model.StudySession) error {
	query := `
		CREATE study_session CONTENT {
			title: $title,
			course_code: $course_code,
			description: $description,
			date: $date,
			time: $time,
			location: $location,
			host_id: $host_id,
			group_id: IF $group_id IS NOT NULL THEN $group_id ELSE NONE END,
			verification_code: $verification_code,
			created_on: time::now(),
			updated_on: time::now()
		}
	`

	vars := map[string]interface{}{
		"title":             session.Title,
		"course_code":       session.CourseCode,
		"description":       session.Description,
		"date":              session.Date,
		"time":              session.Time,
		"location":          session.Location,
		"host_id":           session.HostID,
		"group_id":          ptrToNone(session.GroupID),
		"verification_code": session.VerificationCode,
	}

	result, err := r.db.Query(ctx, query, vars)
	if err != nil {
		return err
	}

	created, err := extractCreatedRecord(result)
	if err != nil {
		return err
	}

	session.ID = created.ID
	session.CreatedOn = created.CreatedOn
	session.UpdatedOn = created.UpdatedOn
	return nil
}

// GetByID retrieves a session by ID
func (r *SessionRepository) GetByID(ctx context.Context, id string) (*model.StudySession, error) {
	query := `SELECT * FROM type::record($id)`
	vars := map[string]interface{}{"id": id}

	result, err := r.db.QueryOne(ctx, query, vars)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}

	session, err := parseSessionResult(result)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return session, nil
}

// List returns all sessions, soonest first
func (r *SessionRepository) List(ctx context.Context) ([]*model.StudySession, error) {
	query := `SELECT * FROM study_session ORDER BY date ASC, time ASC`

	result, err := r.db.Query(ctx, query, nil)
	if err != nil {
		return nil, err
	}
	return parseSessionsResult(result)
}

// ListByGroup returns the sessions bound to a group, soonest first
func (r *SessionRepository) ListByGroup(ctx context.Context, groupID string) ([]*model.StudySession, error) {
	query := `SELECT * FROM study_session WHERE group_id = $group_id ORDER BY date ASC, time ASC`
	vars := map[string]interface{}{"group_id": groupID}

	result, err := r.db.Query(ctx, query, vars)
	if err != nil {
		return nil, err
	}
	return parseSessionsResult(result)
}

// ListByHost returns the sessions a user hosts
func (r *SessionRepository) ListByHost(ctx context.Context, hostID string) ([]*model.StudySession, error) {
	query := `SELECT * FROM study_session WHERE host_id = $host_id ORDER BY date ASC, time ASC`
	vars := map[string]interface{}{"host_id": hostID}

	result, err := r.db.Query(ctx, query, vars)
	if err != nil {
		return nil, err
	}
	return parseSessionsResult(result)
}

// Update updates a session's mutable fields. Host and verification code
// never change after creation.
func (r *SessionRepository) Update(ctx context.Context, session *model.StudySession) error {
	query := `
		UPDATE type::record($id) SET
			title = $title,
			course_code = $course_code,
			description = $description,
			date = $date,
			time = $time,
			location = $location,
			updated_on = time::now()
	`

	vars := map[string]interface{}{
		"id":          session.ID,
		"title":       session.Title,
		"course_code": session.CourseCode,
		"description": session.Description,
		"date":        session.Date,
		"time":        session.Time,
		"location":    session.Location,
	}

	return r.db.Execute(ctx, query, vars)
}

// Delete removes the session and everything hanging off it in one
// transaction
func (r *SessionRepository) Delete(ctx context.Context, id string) error {
	vars := map[string]interface{}{"session_id": id}

	batch := database.NewAtomicBatch()
	batch.Add(`DELETE session_rsvp WHERE session_id = $session_id`, vars)
	batch.Add(`DELETE session_message WHERE session_id = $session_id`, vars)
	batch.Add(`DELETE session_resource WHERE session_id = $session_id`, vars)
	batch.Add(`DELETE type::record($id)`, map[string]interface{}{"id": id})
	return batch.Execute(ctx, r.db)
}

// CountSessions returns the total number of sessions
func (r *SessionRepository) CountSessions(ctx context.Context) (int, error) {
	query := `SELECT count() FROM study_session GROUP ALL`

	result, err := r.db.QueryOne(ctx, query, nil)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return 0, nil
		}
		return 0, err
	}
	return extractCount(result), nil
}

// CountSessionsByGroup returns the number of sessions bound to a group
func (r *SessionRepository) CountSessionsByGroup(ctx context.Context, groupID string) (int, error) {
	query := `SELECT count() FROM study_session WHERE group_id = $group_id GROUP ALL`
	vars := map[string]interface{}{"group_id": groupID}

	result, err := r.db.QueryOne(ctx, query, vars)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return 0, nil
		}
		return 0, err
	}
	return extractCount(result), nil
}

func parseSessionResult(result interface{}) (*model.StudySession, error) {
	if result == nil {
		return nil, database.ErrNotFound
	}

	if resp, ok := result.(map[string]interface{}); ok {
		if status, ok := resp["status"].(string); ok && status == "OK" {
			if resultData, ok := resp["result"].([]interface{}); ok {
				if len(resultData) == 0 {
					return nil, database.ErrNotFound
				}
				result = resultData[0]
			}
		}
	}

	if arr, ok := result.([]interface{}); ok {
		if len(arr) == 0 {
			return nil, database.ErrNotFound
		}
		result = arr[0]
	}

	data, ok := result.(map[string]interface{})
	if !ok {
		return nil, errors.New("unexpected result format")
	}

	session := &model.StudySession{
		ID:               convertSurrealID(data["id"]),
		Title:            getString(data, "title"),
		CourseCode:       getString(data, "course_code"),
		Description:      getString(data, "description"),
		Date:             getString(data, "date"),
		Time:             getString(data, "time"),
		Location:         getString(data, "location"),
		HostID:           convertSurrealID(data["host_id"]),
		VerificationCode: getString(data, "verification_code"),
		CreatedOn:        parseTime(data["created_on"]),
		UpdatedOn:        parseTime(data["updated_on"]),
	}

	if groupID, ok := data["group_id"]; ok && groupID != nil {
		id := convertSurrealID(groupID)
		if id != "" && id != "<nil>" {
			session.GroupID = &id
		}
	}

	return session, nil
}

func parseSessionsResult(result []interface{}) ([]*model.StudySession, error) {
	records, ok := extractQueryResults(result)
	if !ok {
		return []*model.StudySession{}, nil
	}

	sessions := make([]*model.StudySession, 0, len(records))
	for _, record := range records {
		session, err := parseSessionResult(record)
		if err != nil {
			if errors.Is(err, database.ErrNotFound) {
				continue
			}
			return nil, err
		}
		sessions = append(sessions, session)
	}
	return sessions, nil
}
