package service

import (
	"context"
	"strings"

	"github.com/studysphere/api/internal/model"
	"github.com/studysphere/api/internal/policy"
)

// MessageRepository defines the interface for session chat storage
type MessageRepository interface {
	Create(ctx context.Context, message *model.SessionMessage) error
	// ListBySession returns messages in ascending creation order
	ListBySession(ctx context.Context, sessionID string) ([]*model.SessionMessage, error)
}

// ResourceRepository defines the interface for session resource storage
type ResourceRepository interface {
	Create(ctx context.Context, resource *model.SessionResource) error
	GetByID(ctx context.Context, id string) (*model.SessionResource, error)
	ListBySession(ctx context.Context, sessionID string) ([]*model.SessionResource, error)
	Delete(ctx context.Context, id string) error
}

// CollaborationService handles per-session chat and shared resources. Both
// surfaces are gated on an RSVP: intent to attend, not verified attendance.
type CollaborationService struct {
	sessionRepo  SessionRepository
	rsvpRepo     RSVPRepository
	messageRepo  MessageRepository
	resourceRepo ResourceRepository
	userRepo     UserRepository
}

// CollaborationServiceConfig holds configuration for the collaboration service
type CollaborationServiceConfig struct {
	SessionRepo  SessionRepository
	RSVPRepo     RSVPRepository
	MessageRepo  MessageRepository
	ResourceRepo ResourceRepository
	UserRepo     UserRepository
}

// NewCollaborationService creates a new collaboration service
func NewCollaborationService(cfg CollaborationServiceConfig) *CollaborationService {
	return &CollaborationService{
		sessionRepo:  cfg.SessionRepo,
		rsvpRepo:     cfg.RSVPRepo,
		messageRepo:  cfg.MessageRepo,
		resourceRepo: cfg.ResourceRepo,
		userRepo:     cfg.UserRepo,
	}
}

// ListMessages returns the session's chat in ascending order
func (s *CollaborationService) ListMessages(ctx context.Context, userID, sessionID string) ([]*model.MessageView, error) {
	if err := s.requireAttendee(ctx, userID, sessionID); err != nil {
		return nil, err
	}

	messages, err := s.messageRepo.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	views := make([]*model.MessageView, 0, len(messages))
	for _, message := range messages {
		view := &model.MessageView{SessionMessage: *message}
		if sender, err := s.userRepo.GetByID(ctx, message.SenderID); err == nil && sender != nil {
			summary := sender.Summary()
			view.Sender = &summary
		}
		views = append(views, view)
	}
	return views, nil
}

// SendMessage appends a chat message to the session
func (s *CollaborationService) SendMessage(ctx context.Context, userID, sessionID string, req model.SendMessageRequest) (*model.SessionMessage, error) {
	if err := s.requireAttendee(ctx, userID, sessionID); err != nil {
		return nil, err
	}

	text := strings.TrimSpace(req.Text)
	if text == "" {
		return nil, ErrMessageEmpty
	}
	if len(text) > model.MaxMessageLength {
		return nil, ErrMessageTooLong
	}

	message := &model.SessionMessage{
		SessionID: sessionID,
		SenderID:  userID,
		Text:      text,
	}
	if err := s.messageRepo.Create(ctx, message); err != nil {
		return nil, err
	}
	return message, nil
}

// ListResources returns the session's shared links
func (s *CollaborationService) ListResources(ctx context.Context, userID, sessionID string) ([]*model.ResourceView, error) {
	if err := s.requireAttendee(ctx, userID, sessionID); err != nil {
		return nil, err
	}

	resources, err := s.resourceRepo.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	views := make([]*model.ResourceView, 0, len(resources))
	for _, resource := range resources {
		view := &model.ResourceView{SessionResource: *resource}
		if adder, err := s.userRepo.GetByID(ctx, resource.AddedByID); err == nil && adder != nil {
			summary := adder.Summary()
			view.AddedBy = &summary
		}
		views = append(views, view)
	}
	return views, nil
}

// AddResource attaches a link to the session
func (s *CollaborationService) AddResource(ctx context.Context, userID, sessionID string, req model.AddResourceRequest) (*model.SessionResource, error) {
	if err := s.requireAttendee(ctx, userID, sessionID); err != nil {
		return nil, err
	}

	title := strings.TrimSpace(req.Title)
	link := strings.TrimSpace(req.Link)
	if title == "" {
		return nil, ErrResourceTitleMissing
	}
	if link == "" {
		return nil, ErrResourceLinkMissing
	}
	if len(title) > model.MaxResourceTitleLength || len(link) > model.MaxResourceLinkLength {
		return nil, ErrInvalidInput
	}

	resource := &model.SessionResource{
		SessionID: sessionID,
		Title:     title,
		Link:      link,
		AddedByID: userID,
	}
	if err := s.resourceRepo.Create(ctx, resource); err != nil {
		return nil, err
	}
	return resource, nil
}

// DeleteResource removes a resource; allowed for the user who added it or
// the session host
func (s *CollaborationService) DeleteResource(ctx context.Context, userID, sessionID, resourceID string) error {
	session, err := s.sessionRepo.GetByID(ctx, sessionID)
	if err != nil {
		return err
	}
	if session == nil {
		return ErrSessionNotFound
	}

	resource, err := s.resourceRepo.GetByID(ctx, resourceID)
	if err != nil {
		return err
	}
	if resource == nil || resource.SessionID != sessionID {
		return ErrResourceNotFound
	}

	if d := policy.CanDeleteResource(userID, resource, session); !d.Allowed {
		return ErrResourceNotOwned
	}

	return s.resourceRepo.Delete(ctx, resourceID)
}

// requireAttendee loads the session and checks the caller has an RSVP
func (s *CollaborationService) requireAttendee(ctx context.Context, userID, sessionID string) error {
	session, err := s.sessionRepo.GetByID(ctx, sessionID)
	if err != nil {
		return err
	}
	if session == nil {
		return ErrSessionNotFound
	}

	rsvp, err := s.rsvpRepo.Get(ctx, userID, sessionID)
	if err != nil {
		return err
	}

	if d := policy.CanAccessSessionSurfaces(rsvp != nil); !d.Allowed {
		return ErrNotSessionMember
	}
	return nil
}
