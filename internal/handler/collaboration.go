package handler

import (
	"errors"
	"net/http"

	"github.com/studysphere/api/internal/middleware"
	"github.com/studysphere/api/internal/model"
	"github.com/studysphere/api/internal/service"
)

// CollaborationHandler handles session chat and resource endpoints
type CollaborationHandler struct {
	svc *service.CollaborationService
}

// NewCollaborationHandler creates a new collaboration handler
func NewCollaborationHandler(svc *service.CollaborationService) *CollaborationHandler {
	return &CollaborationHandler{svc: svc}
}

// ListMessages handles GET /v1/sessions/{sessionId}/messages
func (h *CollaborationHandler) ListMessages(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)
	if userID == "" {
		WriteError(w, model.NewUnauthorizedError("authentication required"))
		return
	}

	sessionID := r.PathValue("sessionId")
	if sessionID == "" {
		WriteError(w, model.NewBadRequestError("session ID required"))
		return
	}

	messages, err := h.svc.ListMessages(ctx, userID, sessionID)
	if err != nil {
		h.handleError(w, err)
		return
	}

	WriteData(w, http.StatusOK, messages, nil)
}

// SendMessage handles POST /v1/sessions/{sessionId}/messages
func (h *CollaborationHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)
	if userID == "" {
		WriteError(w, model.NewUnauthorizedError("authentication required"))
		return
	}

	sessionID := r.PathValue("sessionId")
	if sessionID == "" {
		WriteError(w, model.NewBadRequestError("session ID required"))
		return
	}

	var req model.SendMessageRequest
	if err := DecodeJSON(r, &req); err != nil {
		WriteError(w, model.NewBadRequestError("invalid request body"))
		return
	}

	message, err := h.svc.SendMessage(ctx, userID, sessionID, req)
	if err != nil {
		h.handleError(w, err)
		return
	}

	WriteData(w, http.StatusCreated, message, nil)
}

// ListResources handles GET /v1/sessions/{sessionId}/resources
func (h *CollaborationHandler) ListResources(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)
	if userID == "" {
		WriteError(w, model.NewUnauthorizedError("authentication required"))
		return
	}

	sessionID := r.PathValue("sessionId")
	if sessionID == "" {
		WriteError(w, model.NewBadRequestError("session ID required"))
		return
	}

	resources, err := h.svc.ListResources(ctx, userID, sessionID)
	if err != nil {
		h.handleError(w, err)
		return
	}

	WriteData(w, http.StatusOK, resources, nil)
}

// AddResource handles POST /v1/sessions/{sessionId}/resources
func (h *CollaborationHandler) AddResource(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)
	if userID == "" {
		WriteError(w, model.NewUnauthorizedError("authentication required"))
		return
	}

	sessionID := r.PathValue("sessionId")
	if sessionID == "" {
		WriteError(w, model.NewBadRequestError("session ID required"))
		return
	}

	var req model.AddResourceRequest
	if err := DecodeJSON(r, &req); err != nil {
		WriteError(w, model.NewBadRequestError("invalid request body"))
		return
	}

	resource, err := h.svc.AddResource(ctx, userID, sessionID, req)
	if err != nil {
		h.handleError(w, err)
		return
	}

	WriteData(w, http.StatusCreated, resource, nil)
}

// DeleteResource handles DELETE /v1/sessions/{sessionId}/resources/{resourceId}
func (h *CollaborationHandler) DeleteResource(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)
	if userID == "" {
		WriteError(w, model.NewUnauthorizedError("authentication required"))
		return
	}

	sessionID := r.PathValue("sessionId")
	resourceID := r.PathValue("resourceId")
	if sessionID == "" || resourceID == "" {
		WriteError(w, model.NewBadRequestError("session ID and resource ID required"))
		return
	}

	if err := h.svc.DeleteResource(ctx, userID, sessionID, resourceID); err != nil {
		h.handleError(w, err)
		return
	}

	WriteNoContent(w)
}

// handleError converts service errors to HTTP responses
func (h *CollaborationHandler) handleError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrSessionNotFound):
		WriteError(w, model.NewNotFoundError("session not found"))
	case errors.Is(err, service.ErrNotSessionMember):
		WriteError(w, model.NewForbiddenError("you must RSVP to this session first"))
	case errors.Is(err, service.ErrMessageEmpty):
		WriteError(w, model.NewValidationError([]model.FieldError{
			{Field: "text", Message: "message text is required"},
		}))
	case errors.Is(err, service.ErrMessageTooLong):
		WriteError(w, model.NewValidationError([]model.FieldError{
			{Field: "text", Message: "message exceeds maximum length"},
		}))
	case errors.Is(err, service.ErrResourceNotFound):
		WriteError(w, model.NewNotFoundError("resource not found"))
	case errors.Is(err, service.ErrResourceTitleMissing):
		WriteError(w, model.NewValidationError([]model.FieldError{
			{Field: "title", Message: "resource title is required"},
		}))
	case errors.Is(err, service.ErrResourceLinkMissing):
		WriteError(w, model.NewValidationError([]model.FieldError{
			{Field: "link", Message: "resource link is required"},
		}))
	case errors.Is(err, service.ErrResourceNotOwned):
		WriteError(w, model.NewForbiddenError("only the resource owner or session host can delete this resource"))
	default:
		WriteError(w, model.NewInternalError("an unexpected error occurred"))
	}
}
