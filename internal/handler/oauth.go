package handler

import (
	"errors"
	"net/http"

	"github.com/studysphere/api/internal/model"
	"github.com/studysphere/api/internal/service"
)

// OAuthHandler handles OAuth authentication endpoints
type OAuthHandler struct {
	oauthService *service.OAuthService
}

// NewOAuthHandler creates a new OAuth handler
func NewOAuthHandler(oauthService *service.OAuthService) *OAuthHandler {
	return &OAuthHandler{
		oauthService: oauthService,
	}
}

// GoogleSignInRequest carries the ID token issued by Google Sign-In
type GoogleSignInRequest struct {
	Credential string `json:"credential"`
}

// OAuthSuccessResponse represents a successful OAuth response
type OAuthSuccessResponse struct {
	User      UserResponse  `json:"user"`
	Token     TokenResponse `json:"token"`
	IsNewUser bool          `json:"is_new_user"`
}

// Google handles POST /v1/auth/oauth/google
func (h *OAuthHandler) Google(w http.ResponseWriter, r *http.Request) {
	var req GoogleSignInRequest
	if err := DecodeJSON(r, &req); err != nil {
		WriteError(w, model.NewBadRequestError("invalid request body"))
		return
	}

	if req.Credential == "" {
		WriteError(w, model.NewValidationError([]model.FieldError{
			{Field: "credential", Message: "Google ID token is required"},
		}))
		return
	}

	result, err := h.oauthService.AuthenticateGoogle(r.Context(), req.Credential)
	if err != nil {
		h.handleOAuthError(w, err)
		return
	}

	response := OAuthSuccessResponse{
		User:      toUserResponse(result.User),
		Token:     toTokenResponse(result.TokenPair),
		IsNewUser: result.IsNewUser,
	}

	status := http.StatusOK
	if result.IsNewUser {
		status = http.StatusCreated
	}

	WriteData(w, status, response, map[string]string{
		"self": "/v1/auth/me",
	})
}

func (h *OAuthHandler) handleOAuthError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrProviderError):
		WriteError(w, model.NewBadRequestError("OAuth provider error: "+err.Error()))
	case errors.Is(err, service.ErrInvalidIDToken):
		WriteError(w, model.NewBadRequestError("invalid ID token from provider"))
	case errors.Is(err, service.ErrEmailNotVerified):
		WriteError(w, model.NewBadRequestError("email not verified by OAuth provider"))
	case errors.Is(err, service.ErrUserNotFound):
		WriteError(w, model.NewNotFoundError("user"))
	default:
		WriteError(w, model.NewInternalError("OAuth authentication failed"))
	}
}
