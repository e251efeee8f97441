package repository

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/studysphere/api/internal/database"
	"github.com/studysphere/api/internal/model"
)

// BadgeRepository handles badge data access. Badges are written by an
// out-of-band process; the API only reads them.
type BadgeRepository struct {
	db database.Database
}

// NewBadgeRepository creates a new badge repository
func NewBadgeRepository(db database.Database) *BadgeRepository {
	return &BadgeRepository{db: db}
}

// ListByUser returns a user's badges, newest first
func (r *BadgeRepository) ListByUser(ctx context.Context, userID string) ([]*model.Badge, error) {
	query := `SELECT * FROM badge WHERE user_id = $user_id ORDER BY earned_on DESC`
	vars := map[string]interface{}{"user_id": userID}

	result, err := r.db.Query(ctx, query, vars)
	if err != nil {
		return nil, err
	}

	records, ok := extractQueryResults(result)
	if !ok {
		return []*model.Badge{}, nil
	}

	badges := make([]*model.Badge, 0, len(records))
	for _, record := range records {
		badge, err := parseBadgeResult(record)
		if err != nil {
			if errors.Is(err, database.ErrNotFound) {
				continue
			}
			return nil, err
		}
		badges = append(badges, badge)
	}
	return badges, nil
}

// LatestByUser returns the user's most recent badge, nil when they have
// none
func (r *BadgeRepository) LatestByUser(ctx context.Context, userID string) (*model.Badge, error) {
	query := `SELECT * FROM badge WHERE user_id = $user_id ORDER BY earned_on DESC LIMIT 1`
	vars := map[string]interface{}{"user_id": userID}

	result, err := r.db.QueryOne(ctx, query, vars)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}

	badge, err := parseBadgeResult(result)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return badge, nil
}

func parseBadgeResult(result interface{}) (*model.Badge, error) {
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
	if userID, ok := data["user_id"]; ok {
		data["user_id"] = convertSurrealID(userID)
	}

	jsonBytes, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	var badge model.Badge
	if err := json.Unmarshal(jsonBytes, &badge); err != nil {
		return nil, err
	}
	return &badge, nil
}
