package repository

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/studysphere/api/internal/database"
	"github.com/studysphere/api/internal/model"
)

// MessageRepository handles session chat data access
type MessageRepository struct {
	db database.Database
}

// NewMessageRepository creates a new message repository
func NewMessageRepository(db database.Database) *MessageRepository {
	return &MessageRepository{db: db}
}

// Create appends a chat message
func (r *MessageRepository) Create(ctx context.Context, message *model.SessionMessage) error {
	query := `
		CREATE session_message CONTENT {
			session_id: $session_id,
			sender_id: $sender_id,
			text: $text,
			created_on: time::now()
		}
	`

	vars := map[string]interface{}{
		"session_id": message.SessionID,
		"sender_id":  message.SenderID,
		"text":       message.Text,
	}

	result, err := r.db.Query(ctx, query, vars)
	if err != nil {
		return err
	}

	created, err := extractCreatedRecord(result)
	if err != nil {
		return err
	}

	message.ID = created.ID
	message.CreatedOn = created.CreatedOn
	return nil
}

// ListBySession returns a session's messages oldest first
func (r *MessageRepository) ListBySession(ctx context.Context, sessionID string) ([]*model.SessionMessage, error) {
	query := `SELECT * FROM session_message WHERE session_id = $session_id ORDER BY created_on ASC`
	vars := map[string]interface{}{"session_id": sessionID}

	result, err := r.db.Query(ctx, query, vars)
	if err != nil {
		return nil, err
	}

	records, ok := extractQueryResults(result)
	if !ok {
		return []*model.SessionMessage{}, nil
	}

	messages := make([]*model.SessionMessage, 0, len(records))
	for _, record := range records {
		message, err := parseMessageResult(record)
		if err != nil {
			if errors.Is(err, database.ErrNotFound) {
				continue
			}
			return nil, err
		}
		messages = append(messages, message)
	}
	return messages, nil
}

func parseMessageResult(result interface{}) (*model.SessionMessage, error) {
	if result == nil {
		return nil, database.ErrNotFound
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
	if senderID, ok := data["sender_id"]; ok {
		data["sender_id"] = convertSurrealID(senderID)
	}

	jsonBytes, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	var message model.SessionMessage
	if err := json.Unmarshal(jsonBytes, &message); err != nil {
		return nil, err
	}
	return &message, nil
}
