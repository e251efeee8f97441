package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/studysphere/api/internal/database"
	"github.com/studysphere/api/internal/model"
)

// RSVPRepository handles session RSVP data access
type RSVPRepository struct {
	db database.Database
}

// NewRSVPRepository creates a new RSVP repository
func NewRSVPRepository(db database.Database) *RSVPRepository {
	return &RSVPRepository{db: db}
}

// Create creates an RSVP record with attended = false
func (r *RSVPRepository) Create(ctx context.Context, rsvp *model.SessionRSVP) error {
	query := `
		CREATE session_rsvp CONTENT {
			session_id: $session_id,
			user_id: $user_id,
			attended: false,
			created_on: time::now(),
			updated_on: time::now()
		}
	`

	vars := map[string]interface{}{
		"session_id": rsvp.SessionID,
		"user_id":    rsvp.UserID,
	}

	result, err := r.db.Query(ctx, query, vars)
	if err != nil {
		if isUniqueConstraintError(err) {
			return fmt.Errorf("%w: RSVP already exists", database.ErrDuplicate)
		}
		return err
	}

	created, err := extractCreatedRecord(result)
	if err != nil {
		return err
	}

	rsvp.ID = created.ID
	rsvp.Attended = false
	rsvp.CreatedOn = created.CreatedOn
	rsvp.UpdatedOn = created.UpdatedOn
	return nil
}

// Get retrieves the RSVP for a (user, session) pair, nil when absent
func (r *RSVPRepository) Get(ctx context.Context, userID, sessionID string) (*model.SessionRSVP, error) {
	query := `SELECT * FROM session_rsvp WHERE user_id = $user_id AND session_id = $session_id LIMIT 1`
	vars := map[string]interface{}{
		"user_id":    userID,
		"session_id": sessionID,
	}

	result, err := r.db.QueryOne(ctx, query, vars)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}

	rsvp, err := parseRSVPResult(result)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return rsvp, nil
}

// Delete removes the RSVP for a (user, session) pair
func (r *RSVPRepository) Delete(ctx context.Context, userID, sessionID string) error {
	query := `DELETE session_rsvp WHERE user_id = $user_id AND session_id = $session_id`
	vars := map[string]interface{}{
		"user_id":    userID,
		"session_id": sessionID,
	}

	return r.db.Execute(ctx, query, vars)
}

// MarkAttended flips attended to true only where it is still false. The
// predicate makes the transition single-shot: a concurrent or repeated
// call matches zero records and reports false.
func (r *RSVPRepository) MarkAttended(ctx context.Context, userID, sessionID string) (bool, error) {
	query := `
		UPDATE session_rsvp
		SET attended = true, updated_on = time::now()
		WHERE user_id = $user_id AND session_id = $session_id AND attended = false
		RETURN AFTER
	`
	vars := map[string]interface{}{
		"user_id":    userID,
		"session_id": sessionID,
	}

	result, err := r.db.QueryOne(ctx, query, vars)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return false, nil
		}
		return false, err
	}

	rsvp, err := parseRSVPResult(result)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return rsvp != nil && rsvp.Attended, nil
}

// ListBySession returns all RSVPs for a session
func (r *RSVPRepository) ListBySession(ctx context.Context, sessionID string) ([]*model.SessionRSVP, error) {
	query := `SELECT * FROM session_rsvp WHERE session_id = $session_id`
	vars := map[string]interface{}{"session_id": sessionID}

	result, err := r.db.Query(ctx, query, vars)
	if err != nil {
		return nil, err
	}
	return parseRSVPsResult(result)
}

// CountAttendedByUser returns how many sessions the user has verified
// attendance for
func (r *RSVPRepository) CountAttendedByUser(ctx context.Context, userID string) (int, error) {
	query := `SELECT count() FROM session_rsvp WHERE user_id = $user_id AND attended = true GROUP ALL`
	vars := map[string]interface{}{"user_id": userID}

	result, err := r.db.QueryOne(ctx, query, vars)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return 0, nil
		}
		return 0, err
	}
	return extractCount(result), nil
}

func parseRSVPResult(result interface{}) (*model.SessionRSVP, error) {
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

	if id, ok := data["id"]; ok {
		data["id"] = convertSurrealID(id)
	}
	if sessionID, ok := data["session_id"]; ok {
		data["session_id"] = convertSurrealID(sessionID)
	}
	if userID, ok := data["user_id"]; ok {
		data["user_id"] = convertSurrealID(userID)
	}

	jsonBytes, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	var rsvp model.SessionRSVP
	if err := json.Unmarshal(jsonBytes, &rsvp); err != nil {
		return nil, err
	}
	return &rsvp, nil
}

func parseRSVPsResult(result []interface{}) ([]*model.SessionRSVP, error) {
	records, ok := extractQueryResults(result)
	if !ok {
		return []*model.SessionRSVP{}, nil
	}

	rsvps := make([]*model.SessionRSVP, 0, len(records))
	for _, record := range records {
		rsvp, err := parseRSVPResult(record)
		if err != nil {
			if errors.Is(err, database.ErrNotFound) {
				continue
			}
			return nil, err
		}
		rsvps = append(rsvps, rsvp)
	}
	return rsvps, nil
}
