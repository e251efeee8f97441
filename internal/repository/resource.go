package repository

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/studysphere/api/internal/database"
	"github.com/studysphere/api/internal/model"
)

// ResourceRepository handles session resource data access
type ResourceRepository struct {
	db database.Database
}

// NewResourceRepository creates a new resource repository
func NewResourceRepository(db database.Database) *ResourceRepository {
	return &ResourceRepository{db: db}
}

// Create attaches a resource to a session
func (r *ResourceRepository) Create(ctx context.Context, resource *model.SessionResource) error {
	query := `
		CREATE session_resource CONTENT {
			session_id: $session_id,
			title: $title,
			link: $link,
			added_by_id: $added_by_id,
			created_on: time::now()
		}
	`

	vars := map[string]interface{}{
		"session_id":  resource.SessionID,
		"title":       resource.Title,
		"link":        resource.Link,
		"added_by_id": resource.AddedByID,
	}

	result, err := r.db.Query(ctx, query, vars)
	if err != nil {
		return err
	}

	created, err := extractCreatedRecord(result)
	if err != nil {
		return err
	}

	resource.ID = created.ID
	resource.CreatedOn = created.CreatedOn
	return nil
}

// GetByID retrieves a resource by ID
func (r *ResourceRepository) GetByID(ctx context.Context, id string) (*model.SessionResource, error) {
	query := `SELECT * FROM type::record($id)`
	vars := map[string]interface{}{"id": id}

	result, err := r.db.QueryOne(ctx, query, vars)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}

	resource, err := parseResourceResult(result)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return resource, nil
}

// ListBySession returns a session's resources, newest first
func (r *ResourceRepository) ListBySession(ctx context.Context, sessionID string) ([]*model.SessionResource, error) {
	query := `SELECT * FROM session_resource WHERE session_id = $session_id ORDER BY created_on DESC`
	vars := map[string]interface{}{"session_id": sessionID}

	result, err := r.db.Query(ctx, query, vars)
	if err != nil {
		return nil, err
	}

	records, ok := extractQueryResults(result)
	if !ok {
		return []*model.SessionResource{}, nil
	}

	resources := make([]*model.SessionResource, 0, len(records))
	for _, record := range records {
		resource, err := parseResourceResult(record)
		if err != nil {
			if errors.Is(err, database.ErrNotFound) {
				continue
			}
			return nil, err
		}
		resources = append(resources, resource)
	}
	return resources, nil
}

// Delete removes a resource
func (r *ResourceRepository) Delete(ctx context.Context, id string) error {
	query := `DELETE type::record($id)`
	vars := map[string]interface{}{"id": id}

	return r.db.Execute(ctx, query, vars)
}

func parseResourceResult(result interface{}) (*model.SessionResource, error) {
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
	if addedBy, ok := data["added_by_id"]; ok {
		data["added_by_id"] = convertSurrealID(addedBy)
	}

	jsonBytes, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	var resource model.SessionResource
	if err := json.Unmarshal(jsonBytes, &resource); err != nil {
		return nil, err
	}
	return &resource, nil
}
