package middleware

import (
	"context"
	"net/http"

	"github.com/studysphere/api/internal/model"
)

// SessionAttendeeChecker defines the interface for checking session membership
type SessionAttendeeChecker interface {
	HasRSVP(ctx context.Context, userID, sessionID string) (bool, error)
}

// SessionIDKey is the context key for session ID
const SessionIDKey contextKey = "sessionID"

// GetSessionID extracts the session ID from context
func GetSessionID(ctx context.Context) string {
	if id, ok := ctx.Value(SessionIDKey).(string); ok {
		return id
	}
	return ""
}

// SessionAccess returns a middleware that requires the authenticated user
// to have an RSVP for the session in the {sessionId} path parameter. It
// guards the collaboration surfaces (chat and resources) so non-attendees
// never reach the handlers.
func SessionAccess(checker SessionAttendeeChecker) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID := GetUserID(r.Context())
			if userID == "" {
				model.NewUnauthorizedError("authentication required").WriteJSON(w)
				return
			}

			sessionID := r.PathValue("sessionId")
			if sessionID == "" {
				model.NewBadRequestError("invalid session ID").WriteJSON(w)
				return
			}

			hasRSVP, err := checker.HasRSVP(r.Context(), userID, sessionID)
			if err != nil {
				model.NewInternalError("failed to check session membership").WriteJSON(w)
				return
			}

			if !hasRSVP {
				model.NewForbiddenError("you must RSVP to this session first").WriteJSON(w)
				return
			}

			ctx := context.WithValue(r.Context(), SessionIDKey, sessionID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
