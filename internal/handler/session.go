package handler

import (
	"errors"
	"net/http"

	"github.com/studysphere/api/internal/middleware"
	"github.com/studysphere/api/internal/model"
	"github.com/studysphere/api/internal/service"
)

// SessionHandler handles study session HTTP requests
type SessionHandler struct {
	svc *service.SessionService
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(svc *service.SessionService) *SessionHandler {
	return &SessionHandler{svc: svc}
}

// List handles GET /v1/sessions - list all sessions
func (h *SessionHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)
	if userID == "" {
		WriteError(w, model.NewUnauthorizedError("authentication required"))
		return
	}

	sessions, err := h.svc.ListSessions(ctx, userID)
	if err != nil {
		h.handleError(w, err)
		return
	}

	WriteData(w, http.StatusOK, sessions, nil)
}

// ListForGroup handles GET /v1/groups/{groupId}/sessions - list a group's sessions
func (h *SessionHandler) ListForGroup(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)
	if userID == "" {
		WriteError(w, model.NewUnauthorizedError("authentication required"))
		return
	}

	groupID := r.PathValue("groupId")
	if groupID == "" {
		WriteError(w, model.NewBadRequestError("group ID required"))
		return
	}

	sessions, err := h.svc.ListGroupSessions(ctx, userID, groupID)
	if err != nil {
		h.handleError(w, err)
		return
	}

	WriteData(w, http.StatusOK, sessions, nil)
}

// Create handles POST /v1/sessions - schedule a new session
func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)
	if userID == "" {
		WriteError(w, model.NewUnauthorizedError("authentication required"))
		return
	}

	var req model.CreateSessionRequest
	if err := DecodeJSON(r, &req); err != nil {
		WriteError(w, model.NewBadRequestError("invalid request body"))
		return
	}

	result, err := h.svc.CreateSession(ctx, userID, req)
	if err != nil {
		h.handleError(w, err)
		return
	}

	response := struct {
		Session  *model.StudySession `json:"session"`
		XPEarned int                 `json:"xp_earned"`
	}{
		Session:  result.Session,
		XPEarned: result.XPEarned,
	}

	WriteData(w, http.StatusCreated, response, map[string]string{
		"self": "/v1/sessions/" + result.Session.ID,
	})
}

// Get handles GET /v1/sessions/{sessionId} - get session details
func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
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

	session, err := h.svc.GetSession(ctx, userID, sessionID)
	if err != nil {
		h.handleError(w, err)
		return
	}

	WriteData(w, http.StatusOK, session, nil)
}

// Update handles PATCH /v1/sessions/{sessionId} - update a session (host only)
func (h *SessionHandler) Update(w http.ResponseWriter, r *http.Request) {
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

	var req model.UpdateSessionRequest
	if err := DecodeJSON(r, &req); err != nil {
		WriteError(w, model.NewBadRequestError("invalid request body"))
		return
	}

	session, err := h.svc.UpdateSession(ctx, userID, sessionID, req)
	if err != nil {
		h.handleError(w, err)
		return
	}

	WriteData(w, http.StatusOK, session, nil)
}

// Delete handles DELETE /v1/sessions/{sessionId} - delete a session (host only)
func (h *SessionHandler) Delete(w http.ResponseWriter, r *http.Request) {
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

	if err := h.svc.DeleteSession(ctx, userID, sessionID); err != nil {
		h.handleError(w, err)
		return
	}

	WriteNoContent(w)
}

// RSVP handles POST /v1/sessions/{sessionId}/rsvp - reserve a spot
func (h *SessionHandler) RSVP(w http.ResponseWriter, r *http.Request) {
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

	rsvp, err := h.svc.RSVP(ctx, userID, sessionID)
	if err != nil {
		h.handleError(w, err)
		return
	}

	WriteData(w, http.StatusCreated, rsvp, nil)
}

// CancelRSVP handles DELETE /v1/sessions/{sessionId}/rsvp
func (h *SessionHandler) CancelRSVP(w http.ResponseWriter, r *http.Request) {
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

	if err := h.svc.CancelRSVP(ctx, userID, sessionID); err != nil {
		h.handleError(w, err)
		return
	}

	WriteNoContent(w)
}

// MarkAttendance handles POST /v1/sessions/{sessionId}/attendance - verify
// presence with the host's code
func (h *SessionHandler) MarkAttendance(w http.ResponseWriter, r *http.Request) {
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

	var req model.MarkAttendanceRequest
	if err := DecodeJSON(r, &req); err != nil {
		WriteError(w, model.NewBadRequestError("invalid request body"))
		return
	}

	result, err := h.svc.MarkAttendance(ctx, userID, sessionID, req)
	if err != nil {
		h.handleError(w, err)
		return
	}

	WriteData(w, http.StatusOK, result, nil)
}

// handleError converts service errors to HTTP responses
func (h *SessionHandler) handleError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrSessionNotFound):
		WriteError(w, model.NewNotFoundError("session not found"))
	case errors.Is(err, service.ErrGroupNotFound):
		WriteError(w, model.NewNotFoundError("group not found"))
	case errors.Is(err, service.ErrSessionTitleRequired):
		WriteError(w, model.NewValidationError([]model.FieldError{
			{Field: "title", Message: "session title is required"},
		}))
	case errors.Is(err, service.ErrSessionDateRequired):
		WriteError(w, model.NewValidationError([]model.FieldError{
			{Field: "date", Message: "session date is required"},
		}))
	case errors.Is(err, service.ErrSessionFieldTooLong):
		WriteError(w, model.NewValidationError([]model.FieldError{
			{Field: "session", Message: "one or more fields exceed maximum length"},
		}))
	case errors.Is(err, service.ErrNotSessionHost):
		WriteError(w, model.NewForbiddenError("only the session host can perform this action"))
	case errors.Is(err, service.ErrGroupMembershipRequired):
		WriteError(w, model.NewForbiddenError("group membership required"))
	case errors.Is(err, service.ErrAlreadyRSVPd):
		WriteError(w, model.NewConflictError("already RSVPd to this session"))
	case errors.Is(err, service.ErrNoRSVP):
		WriteError(w, model.NewNotFoundError("RSVP not found"))
	case errors.Is(err, service.ErrAlreadyAttended):
		WriteError(w, model.NewConflictError("attendance already recorded"))
	case errors.Is(err, service.ErrCodeRequired):
		WriteError(w, model.NewValidationError([]model.FieldError{
			{Field: "code", Message: "verification code is required"},
		}))
	case errors.Is(err, service.ErrInvalidCode):
		WriteError(w, model.NewForbiddenError("incorrect verification code"))
	default:
		WriteError(w, model.NewInternalError("an unexpected error occurred"))
	}
}
