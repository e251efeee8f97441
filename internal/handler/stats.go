package handler

import (
	"errors"
	"net/http"

	"github.com/studysphere/api/internal/middleware"
	"github.com/studysphere/api/internal/model"
	"github.com/studysphere/api/internal/service"
)

// StatsHandler handles leaderboard, dashboard, and admin overview endpoints
type StatsHandler struct {
	svc *service.StatsService
}

// NewStatsHandler creates a new stats handler
func NewStatsHandler(svc *service.StatsService) *StatsHandler {
	return &StatsHandler{svc: svc}
}

// Leaderboard handles GET /v1/leaderboard?period=week|all
func (h *StatsHandler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)
	if userID == "" {
		WriteError(w, model.NewUnauthorizedError("authentication required"))
		return
	}

	period := model.LeaderboardPeriod(r.URL.Query().Get("period"))
	if period == "" {
		period = model.LeaderboardPeriodAll
	}
	if !period.IsValid() {
		WriteError(w, model.NewValidationError([]model.FieldError{
			{Field: "period", Message: "period must be 'week' or 'all'"},
		}))
		return
	}

	entries, err := h.svc.Leaderboard(ctx, period)
	if err != nil {
		h.handleError(w, err)
		return
	}

	WriteData(w, http.StatusOK, entries, nil)
}

// Dashboard handles GET /v1/dashboard - the caller's activity summary
func (h *StatsHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)
	if userID == "" {
		WriteError(w, model.NewUnauthorizedError("authentication required"))
		return
	}

	dashboard, err := h.svc.Dashboard(ctx, userID)
	if err != nil {
		h.handleError(w, err)
		return
	}

	WriteData(w, http.StatusOK, dashboard, nil)
}

// Badges handles GET /v1/profile/badges - the caller's earned badges
func (h *StatsHandler) Badges(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)
	if userID == "" {
		WriteError(w, model.NewUnauthorizedError("authentication required"))
		return
	}

	badges, err := h.svc.Badges(ctx, userID)
	if err != nil {
		h.handleError(w, err)
		return
	}

	WriteData(w, http.StatusOK, badges, nil)
}

// AdminOverview handles GET /v1/admin/overview - group review queue and totals
func (h *StatsHandler) AdminOverview(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor := viewerFromContext(ctx)
	if actor == nil {
		WriteError(w, model.NewUnauthorizedError("authentication required"))
		return
	}

	overview, err := h.svc.AdminOverview(ctx, actor)
	if err != nil {
		h.handleError(w, err)
		return
	}

	WriteData(w, http.StatusOK, overview, nil)
}

// handleError converts service errors to HTTP responses
func (h *StatsHandler) handleError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrAdminRequired):
		WriteError(w, model.NewForbiddenError("admin role required"))
	case errors.Is(err, service.ErrUserNotFound):
		WriteError(w, model.NewNotFoundError("user not found"))
	default:
		WriteError(w, model.NewInternalError("an unexpected error occurred"))
	}
}
