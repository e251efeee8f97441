package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/studysphere/api/internal/database"
	"github.com/studysphere/api/internal/model"
)

// MembershipRepository handles group membership data access
type MembershipRepository struct {
	db database.Database
}

// NewMembershipRepository creates a new membership repository
func NewMembershipRepository(db database.Database) *MembershipRepository {
	return &MembershipRepository{db: db}
}

// Create creates a membership record
func (r *MembershipRepository) Create(ctx context.Context, membership *model.GroupMembership) error {
	query := `
		CREATE group_membership CONTENT {
			user_id: $user_id,
			group_id: $group_id,
			joined_on: time::now()
		}
	`

	vars := map[string]interface{}{
		"user_id":  membership.UserID,
		"group_id": membership.GroupID,
	}

	result, err := r.db.Query(ctx, query, vars)
	if err != nil {
		if isUniqueConstraintError(err) {
			return fmt.Errorf("%w: membership already exists", database.ErrDuplicate)
		}
		return err
	}

	created, err := extractCreatedRecord(result)
	if err != nil {
		return err
	}

	membership.ID = created.ID
	membership.JoinedOn = created.CreatedOn
	return nil
}

// Get retrieves the membership for a (user, group) pair, nil when absent
func (r *MembershipRepository) Get(ctx context.Context, userID, groupID string) (*model.GroupMembership, error) {
	query := `SELECT * FROM group_membership WHERE user_id = $user_id AND group_id = $group_id LIMIT 1`
	vars := map[string]interface{}{
		"user_id":  userID,
		"group_id": groupID,
	}

	result, err := r.db.QueryOne(ctx, query, vars)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}

	membership, err := parseMembershipResult(result)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return membership, nil
}

// Delete removes the membership for a (user, group) pair
func (r *MembershipRepository) Delete(ctx context.Context, userID, groupID string) error {
	query := `DELETE group_membership WHERE user_id = $user_id AND group_id = $group_id`
	vars := map[string]interface{}{
		"user_id":  userID,
		"group_id": groupID,
	}

	return r.db.Execute(ctx, query, vars)
}

// ListMembers returns the users who belong to a group
func (r *MembershipRepository) ListMembers(ctx context.Context, groupID string) ([]*model.User, error) {
	query := `
		SELECT * FROM user WHERE id INSIDE (
			SELECT VALUE user_id FROM group_membership WHERE group_id = $group_id
		)
	`
	vars := map[string]interface{}{"group_id": groupID}

	result, err := r.db.Query(ctx, query, vars)
	if err != nil {
		return nil, err
	}
	return parseUsersResult(result)
}

// CountByGroup returns the number of members in a group
func (r *MembershipRepository) CountByGroup(ctx context.Context, groupID string) (int, error) {
	query := `SELECT count() FROM group_membership WHERE group_id = $group_id GROUP ALL`
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

// CountByUser returns the number of groups a user belongs to
func (r *MembershipRepository) CountByUser(ctx context.Context, userID string) (int, error) {
	query := `SELECT count() FROM group_membership WHERE user_id = $user_id GROUP ALL`
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

func parseMembershipResult(result interface{}) (*model.GroupMembership, error) {
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
	if groupID, ok := data["group_id"]; ok {
		data["group_id"] = convertSurrealID(groupID)
	}

	jsonBytes, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	var membership model.GroupMembership
	if err := json.Unmarshal(jsonBytes, &membership); err != nil {
		return nil, err
	}
	return &membership, nil
}
