package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/studysphere/api/internal/middleware"
	"github.com/studysphere/api/internal/model"
	"github.com/studysphere/api/internal/service"
)

// GroupHandler handles study group HTTP requests
type GroupHandler struct {
	svc *service.GroupService
}

// NewGroupHandler creates a new group handler
func NewGroupHandler(svc *service.GroupService) *GroupHandler {
	return &GroupHandler{svc: svc}
}

// viewerFromContext builds the acting user from the validated JWT claims.
// Only the ID and role matter for authorization decisions, so no database
// round trip is needed.
func viewerFromContext(ctx context.Context) *model.User {
	claims := middleware.GetClaims(ctx)
	if claims == nil || claims.UserID == "" {
		return nil
	}
	return &model.User{
		ID:    claims.UserID,
		Email: claims.Email,
		Role:  model.UserRole(claims.Role),
	}
}

// List handles GET /v1/groups - list groups visible to the caller
func (h *GroupHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	viewer := viewerFromContext(ctx)
	if viewer == nil {
		WriteError(w, model.NewUnauthorizedError("authentication required"))
		return
	}

	groups, err := h.svc.ListGroups(ctx, viewer)
	if err != nil {
		h.handleError(w, err)
		return
	}

	WriteData(w, http.StatusOK, groups, nil)
}

// Create handles POST /v1/groups - propose a new study group
func (h *GroupHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)
	if userID == "" {
		WriteError(w, model.NewUnauthorizedError("authentication required"))
		return
	}

	var req model.CreateGroupRequest
	if err := DecodeJSON(r, &req); err != nil {
		WriteError(w, model.NewBadRequestError("invalid request body"))
		return
	}

	result, err := h.svc.CreateGroup(ctx, userID, req)
	if err != nil {
		h.handleError(w, err)
		return
	}

	response := struct {
		Group    *model.StudyGroup `json:"group"`
		XPEarned int               `json:"xp_earned"`
	}{
		Group:    result.Group,
		XPEarned: result.XPEarned,
	}

	WriteData(w, http.StatusCreated, response, map[string]string{
		"self": "/v1/groups/" + result.Group.ID,
	})
}

// Get handles GET /v1/groups/{groupId} - get group details with members
func (h *GroupHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	viewer := viewerFromContext(ctx)
	if viewer == nil {
		WriteError(w, model.NewUnauthorizedError("authentication required"))
		return
	}

	groupID := r.PathValue("groupId")
	if groupID == "" {
		WriteError(w, model.NewBadRequestError("group ID required"))
		return
	}

	group, err := h.svc.GetGroup(ctx, viewer, groupID)
	if err != nil {
		h.handleError(w, err)
		return
	}

	WriteData(w, http.StatusOK, group, nil)
}

// Update handles PATCH /v1/groups/{groupId} - update a group (creator only)
func (h *GroupHandler) Update(w http.ResponseWriter, r *http.Request) {
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

	var req model.UpdateGroupRequest
	if err := DecodeJSON(r, &req); err != nil {
		WriteError(w, model.NewBadRequestError("invalid request body"))
		return
	}

	group, err := h.svc.UpdateGroup(ctx, userID, groupID, req)
	if err != nil {
		h.handleError(w, err)
		return
	}

	WriteData(w, http.StatusOK, group, nil)
}

// Delete handles DELETE /v1/groups/{groupId} - delete a group (creator only)
func (h *GroupHandler) Delete(w http.ResponseWriter, r *http.Request) {
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

	if err := h.svc.DeleteGroup(ctx, userID, groupID); err != nil {
		h.handleError(w, err)
		return
	}

	WriteNoContent(w)
}

// Join handles POST /v1/groups/{groupId}/join - join an approved group
func (h *GroupHandler) Join(w http.ResponseWriter, r *http.Request) {
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

	result, err := h.svc.JoinGroup(ctx, userID, groupID)
	if err != nil {
		h.handleError(w, err)
		return
	}

	WriteData(w, http.StatusCreated, result, nil)
}

// Leave handles POST /v1/groups/{groupId}/leave - leave a group
func (h *GroupHandler) Leave(w http.ResponseWriter, r *http.Request) {
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

	if err := h.svc.LeaveGroup(ctx, userID, groupID); err != nil {
		h.handleError(w, err)
		return
	}

	WriteNoContent(w)
}

// Approve handles POST /v1/admin/groups/{groupId}/approve - approve a pending group
func (h *GroupHandler) Approve(w http.ResponseWriter, r *http.Request) {
	h.review(w, r, h.svc.ApproveGroup)
}

// Reject handles POST /v1/admin/groups/{groupId}/reject - reject a pending group
func (h *GroupHandler) Reject(w http.ResponseWriter, r *http.Request) {
	h.review(w, r, h.svc.RejectGroup)
}

func (h *GroupHandler) review(w http.ResponseWriter, r *http.Request, fn func(context.Context, *model.User, string) (*model.StudyGroup, error)) {
	ctx := r.Context()
	actor := viewerFromContext(ctx)
	if actor == nil {
		WriteError(w, model.NewUnauthorizedError("authentication required"))
		return
	}

	groupID := r.PathValue("groupId")
	if groupID == "" {
		WriteError(w, model.NewBadRequestError("group ID required"))
		return
	}

	group, err := fn(ctx, actor, groupID)
	if err != nil {
		h.handleError(w, err)
		return
	}

	WriteData(w, http.StatusOK, group, nil)
}

// handleError converts service errors to HTTP responses
func (h *GroupHandler) handleError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrGroupNotFound):
		WriteError(w, model.NewNotFoundError("group not found"))
	case errors.Is(err, service.ErrGroupNameRequired):
		WriteError(w, model.NewValidationError([]model.FieldError{
			{Field: "name", Message: "group name is required"},
		}))
	case errors.Is(err, service.ErrGroupNameTooLong):
		WriteError(w, model.NewValidationError([]model.FieldError{
			{Field: "name", Message: "group name exceeds maximum length"},
		}))
	case errors.Is(err, service.ErrGroupSubjectMissing):
		WriteError(w, model.NewValidationError([]model.FieldError{
			{Field: "subject", Message: "group subject is required"},
		}))
	case errors.Is(err, service.ErrGroupSubjectTooLong):
		WriteError(w, model.NewValidationError([]model.FieldError{
			{Field: "subject", Message: "group subject exceeds maximum length"},
		}))
	case errors.Is(err, service.ErrGroupDescTooLong):
		WriteError(w, model.NewValidationError([]model.FieldError{
			{Field: "description", Message: "group description exceeds maximum length"},
		}))
	case errors.Is(err, service.ErrGroupNotApproved):
		WriteError(w, model.NewForbiddenError("group is not approved"))
	case errors.Is(err, service.ErrNotGroupMember):
		WriteError(w, model.NewConflictError("not a member of this group"))
	case errors.Is(err, service.ErrAlreadyGroupMember):
		WriteError(w, model.NewConflictError("already a member of this group"))
	case errors.Is(err, service.ErrNotGroupCreator):
		WriteError(w, model.NewForbiddenError("only the group creator can perform this action"))
	case errors.Is(err, service.ErrInvalidGroupStatus):
		WriteError(w, model.NewValidationError([]model.FieldError{
			{Field: "status", Message: "invalid group status"},
		}))
	case errors.Is(err, service.ErrAdminRequired):
		WriteError(w, model.NewForbiddenError("admin role required"))
	case errors.Is(err, service.ErrUserNotFound):
		WriteError(w, model.NewNotFoundError("user not found"))
	default:
		WriteError(w, model.NewInternalError("an unexpected error occurred"))
	}
}
