package handler

import (
	"errors"
	"net/http"

	"github.com/studysphere/api/internal/middleware"
	"github.com/studysphere/api/internal/model"
	"github.com/studysphere/api/internal/service"
)

// ProfileHandler handles profile endpoints
type ProfileHandler struct {
	authService  *service.AuthService
	statsService *service.StatsService
}

// NewProfileHandler creates a new profile handler
func NewProfileHandler(authService *service.AuthService, statsService *service.StatsService) *ProfileHandler {
	return &ProfileHandler{
		authService:  authService,
		statsService: statsService,
	}
}

// PublicProfileResponse is the profile view of any user, as shown to others
type PublicProfileResponse struct {
	User   model.UserSummary `json:"user"`
	Badges []*model.Badge    `json:"badges"`
}

// Get handles GET /v1/profile - the caller's own profile
func (h *ProfileHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)
	if userID == "" {
		WriteError(w, model.NewUnauthorizedError("authentication required"))
		return
	}

	user, err := h.authService.GetUserByID(ctx, userID)
	if err != nil {
		h.handleError(w, err)
		return
	}

	WriteData(w, http.StatusOK, toUserResponse(user), nil)
}

// Update handles PATCH /v1/profile - update the caller's profile fields
func (h *ProfileHandler) Update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)
	if userID == "" {
		WriteError(w, model.NewUnauthorizedError("authentication required"))
		return
	}

	var req model.UpdateProfileRequest
	if err := DecodeJSON(r, &req); err != nil {
		WriteError(w, model.NewBadRequestError("invalid request body"))
		return
	}

	user, err := h.authService.UpdateProfile(ctx, userID, req)
	if err != nil {
		h.handleError(w, err)
		return
	}

	WriteData(w, http.StatusOK, toUserResponse(user), nil)
}

// GetUser handles GET /v1/users/{userId}/profile - another user's public profile
func (h *ProfileHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if middleware.GetUserID(ctx) == "" {
		WriteError(w, model.NewUnauthorizedError("authentication required"))
		return
	}

	targetID := r.PathValue("userId")
	if targetID == "" {
		WriteError(w, model.NewBadRequestError("user ID required"))
		return
	}

	user, err := h.authService.GetUserByID(ctx, targetID)
	if err != nil {
		h.handleError(w, err)
		return
	}

	badges, err := h.statsService.Badges(ctx, targetID)
	if err != nil {
		h.handleError(w, err)
		return
	}

	response := PublicProfileResponse{
		User:   user.Summary(),
		Badges: badges,
	}

	WriteData(w, http.StatusOK, response, nil)
}

// handleError converts service errors to HTTP responses
func (h *ProfileHandler) handleError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrUserNotFound):
		WriteError(w, model.NewNotFoundError("user not found"))
	default:
		WriteError(w, model.NewInternalError("an unexpected error occurred"))
	}
}
