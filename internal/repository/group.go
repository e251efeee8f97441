package repository

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/studysphere/api/internal/database"
	"github.com/studysphere/api/internal/model"
)

// GroupRepository handles study group data access
type GroupRepository struct {
	db database.Database
}

// NewGroupRepository creates a new group repository
func NewGroupRepository(db database.Database) *GroupRepository {
	return &GroupRepository{db: db}
}

// CreateWithCreator persists the group and the creator's membership in one
// transaction. If either statement fails, neither record exists.
func (r *GroupRepository) CreateWithCreator(ctx context.Context, group *model.StudyGroup) error {
	query := `
		BEGIN TRANSACTION;
		LET $created = CREATE study_group CONTENT {
			name: $name,
			subject: $subject,
			description: $description,
			creator_id: $creator_id,
			status: $status,
			created_on: time::now(),
			updated_on: time::now()
		};
		CREATE group_membership CONTENT {
			user_id: $creator_id,
			group_id: $created[0].id,
			joined_on: time::now()
		};
		RETURN $created;
		COMMIT TRANSACTION;
	`

	vars := map[string]interface{}{
		"name":        group.Name,
		"subject":     group.Subject,
		"description": group.Description,
		"creator_id":  group.CreatorID,
		"status":      group.Status,
	}

	result, err := r.db.Query(ctx, query, vars)
	if err != nil {
		return err
	}

	created, err := extractCreatedFromTx(result)
	if err != nil {
		return err
	}

	group.ID = created.ID
	group.CreatedOn = created.CreatedOn
	group.UpdatedOn = created.UpdatedOn
	return nil
}

// GetByID retrieves a group by ID
func (r *GroupRepository) GetByID(ctx context.Context, id string) (*model.StudyGroup, error) {
	query := `SELECT * FROM type::record($id)`
	vars := map[string]interface{}{"id": id}

	result, err := r.db.QueryOne(ctx, query, vars)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}

	group, err := parseGroupResult(result)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return group, nil
}

// List returns all groups, newest first
func (r *GroupRepository) List(ctx context.Context) ([]*model.StudyGroup, error) {
	query := `SELECT * FROM study_group ORDER BY created_on DESC`

	result, err := r.db.Query(ctx, query, nil)
	if err != nil {
		return nil, err
	}
	return parseGroupsResult(result)
}

// ListByStatus returns groups filtered by moderation status, newest first
func (r *GroupRepository) ListByStatus(ctx context.Context, status model.GroupStatus) ([]*model.StudyGroup, error) {
	query := `SELECT * FROM study_group WHERE status = $status ORDER BY created_on DESC`
	vars := map[string]interface{}{"status": status}

	result, err := r.db.Query(ctx, query, vars)
	if err != nil {
		return nil, err
	}
	return parseGroupsResult(result)
}

// Update updates a group's mutable fields. Creator and status are managed
// separately.
func (r *GroupRepository) Update(ctx context.Context, group *model.StudyGroup) error {
	query := `
		UPDATE type::record($id) SET
			name = $name,
			subject = $subject,
			description = $description,
			updated_on = time::now()
	`

	vars := map[string]interface{}{
		"id":          group.ID,
		"name":        group.Name,
		"subject":     group.Subject,
		"description": group.Description,
	}

	return r.db.Execute(ctx, query, vars)
}

// UpdateStatus transitions a group's moderation status
func (r *GroupRepository) UpdateStatus(ctx context.Context, id string, status model.GroupStatus) (*model.StudyGroup, error) {
	query := `UPDATE type::record($id) SET status = $status, updated_on = time::now() RETURN AFTER`
	vars := map[string]interface{}{
		"id":     id,
		"status": status,
	}

	result, err := r.db.QueryOne(ctx, query, vars)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return parseGroupResult(result)
}

// Delete removes the group and its memberships in one transaction
func (r *GroupRepository) Delete(ctx context.Context, id string) error {
	batch := database.NewAtomicBatch()
	batch.Add(`DELETE group_membership WHERE group_id = $group_id`, map[string]interface{}{"group_id": id})
	batch.Add(`DELETE type::record($id)`, map[string]interface{}{"id": id})
	return batch.Execute(ctx, r.db)
}

// CountGroups returns the total number of groups
func (r *GroupRepository) CountGroups(ctx context.Context) (int, error) {
	query := `SELECT count() FROM study_group GROUP ALL`

	result, err := r.db.QueryOne(ctx, query, nil)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return 0, nil
		}
		return 0, err
	}
	return extractCount(result), nil
}

// Parse helpers

func parseGroupResult(result interface{}) (*model.StudyGroup, error) {
	if result == nil {
		return nil, database.ErrNotFound
	}

	// Navigate through SurrealDB response structure
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
	if creator, ok := data["creator_id"]; ok {
		data["creator_id"] = convertSurrealID(creator)
	}

	jsonBytes, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	var group model.StudyGroup
	if err := json.Unmarshal(jsonBytes, &group); err != nil {
		return nil, err
	}
	return &group, nil
}

func parseGroupsResult(result []interface{}) ([]*model.StudyGroup, error) {
	records, ok := extractQueryResults(result)
	if !ok {
		return []*model.StudyGroup{}, nil
	}

	groups := make([]*model.StudyGroup, 0, len(records))
	for _, record := range records {
		group, err := parseGroupResult(record)
		if err != nil {
			if errors.Is(err, database.ErrNotFound) {
				continue
			}
			return nil, err
		}
		groups = append(groups, group)
	}
	return groups, nil
}

// extractCreatedFromTx finds the created record in a transaction's results.
// The RETURN statement's payload can land at different positions depending
// on how the server reports LET statements, so every statement result is
// scanned for a record carrying an id.
func extractCreatedFromTx(result []interface{}) (*createdRecord, error) {
	for _, entry := range result {
		candidate := entry
		if resp, ok := candidate.(map[string]interface{}); ok {
			if inner, ok := resp["result"]; ok {
				candidate = inner
			}
		}
		if arr, ok := candidate.([]interface{}); ok {
			if len(arr) == 0 {
				continue
			}
			candidate = arr[0]
		}
		data, ok := candidate.(map[string]interface{})
		if !ok {
			continue
		}
		if _, hasID := data["id"]; !hasID {
			continue
		}
		record := &createdRecord{ID: convertSurrealID(data["id"])}
		if createdOn, ok := data["created_on"]; ok {
			record.CreatedOn = parseTime(createdOn)
		}
		if updatedOn, ok := data["updated_on"]; ok {
			record.UpdatedOn = parseTime(updatedOn)
		}
		return record, nil
	}
	return nil, errors.New("no created record in transaction result")
}
