package handler

import (
	"errors"

	"github.com/studysphere/api/internal/model"
	"github.com/studysphere/api/internal/service"
)

// MapServiceError converts a service error to a ProblemDetails response.
// This centralizes error handling logic for all handlers, ensuring consistent
// HTTP status codes and error messages across the API.
func MapServiceError(err error) *model.ProblemDetails {
	if err == nil {
		return nil
	}

	switch {
	// ===== Authentication Errors → 401 =====
	case errors.Is(err, service.ErrInvalidCredentials):
		return model.NewUnauthorizedError(err.Error())
	case errors.Is(err, service.ErrInvalidRefreshToken),
		errors.Is(err, service.ErrRefreshTokenExpired),
		errors.Is(err, service.ErrRefreshTokenRevoked):
		return model.NewUnauthorizedError(err.Error())

	// ===== Authorization Errors → 403 =====
	case errors.Is(err, service.ErrNotGroupCreator),
		errors.Is(err, service.ErrNotSessionHost),
		errors.Is(err, service.ErrNotSessionMember),
		errors.Is(err, service.ErrGroupMembershipRequired),
		errors.Is(err, service.ErrGroupNotApproved),
		errors.Is(err, service.ErrResourceNotOwned),
		errors.Is(err, service.ErrInvalidCode),
		errors.Is(err, service.ErrAdminRequired):
		return model.NewForbiddenError(err.Error())

	// ===== Not Found Errors → 404 =====
	case errors.Is(err, service.ErrUserNotFound):
		return model.NewNotFoundError("user")
	case errors.Is(err, service.ErrGroupNotFound):
		return model.NewNotFoundError("group")
	case errors.Is(err, service.ErrSessionNotFound):
		return model.NewNotFoundError("session")
	case errors.Is(err, service.ErrNoRSVP):
		return model.NewNotFoundError("RSVP")
	case errors.Is(err, service.ErrResourceNotFound):
		return model.NewNotFoundError("resource")

	// ===== Conflict Errors → 409 =====
	case errors.Is(err, service.ErrEmailAlreadyExists),
		errors.Is(err, service.ErrAlreadyGroupMember),
		errors.Is(err, service.ErrNotGroupMember),
		errors.Is(err, service.ErrAlreadyRSVPd),
		errors.Is(err, service.ErrAlreadyAttended):
		return model.NewConflictError(err.Error())

	// ===== Validation Errors → 422 =====
	case errors.Is(err, service.ErrInvalidEmail),
		errors.Is(err, service.ErrPasswordRequired),
		errors.Is(err, service.ErrPasswordTooShort),
		errors.Is(err, service.ErrPasswordTooLong):
		return model.NewValidationError([]model.FieldError{{Field: "credentials", Message: err.Error()}})

	case errors.Is(err, service.ErrGroupNameRequired),
		errors.Is(err, service.ErrGroupNameTooLong),
		errors.Is(err, service.ErrGroupSubjectMissing),
		errors.Is(err, service.ErrGroupSubjectTooLong),
		errors.Is(err, service.ErrGroupDescTooLong),
		errors.Is(err, service.ErrInvalidGroupStatus):
		return model.NewValidationError([]model.FieldError{{Field: "group", Message: err.Error()}})

	case errors.Is(err, service.ErrSessionTitleRequired),
		errors.Is(err, service.ErrSessionDateRequired),
		errors.Is(err, service.ErrSessionFieldTooLong):
		return model.NewValidationError([]model.FieldError{{Field: "session", Message: err.Error()}})

	case errors.Is(err, service.ErrCodeRequired):
		return model.NewValidationError([]model.FieldError{{Field: "code", Message: err.Error()}})

	case errors.Is(err, service.ErrMessageEmpty),
		errors.Is(err, service.ErrMessageTooLong):
		return model.NewValidationError([]model.FieldError{{Field: "text", Message: err.Error()}})

	case errors.Is(err, service.ErrResourceTitleMissing),
		errors.Is(err, service.ErrResourceLinkMissing):
		return model.NewValidationError([]model.FieldError{{Field: "resource", Message: err.Error()}})

	case errors.Is(err, service.ErrInvalidInput):
		return model.NewValidationError([]model.FieldError{{Field: "input", Message: err.Error()}})

	// ===== Security Errors → 400 =====
	case errors.Is(err, service.ErrInvalidIDToken),
		errors.Is(err, service.ErrEmailNotVerified):
		return model.NewBadRequestError(err.Error())

	// ===== Provider/External Errors → 502 =====
	case errors.Is(err, service.ErrProviderError):
		return &model.ProblemDetails{
			Type:   "https://api.studysphere.app/errors/external-service",
			Title:  "External Service Error",
			Status: 502,
			Detail: err.Error(),
		}

	// ===== Default → 500 =====
	default:
		return model.NewInternalError("")
	}
}

// MapServiceErrorWithContext converts a service error to a ProblemDetails response
// with additional context about the operation that failed.
func MapServiceErrorWithContext(err error, operation string) *model.ProblemDetails {
	pd := MapServiceError(err)
	if pd != nil && pd.Status == 500 {
		pd.Detail = operation + ": an unexpected error occurred"
	}
	return pd
}
