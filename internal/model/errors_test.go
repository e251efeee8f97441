package model

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestProblemDetails_Error(t *testing.T) {
	t.Parallel()

	pd := &ProblemDetails{
		Status: http.StatusNotFound,
		Title:  "Not Found",
		Detail: "study group not found",
	}

	msg := pd.Error()
	for _, want := range []string{"404", "Not Found", "study group not found"} {
		if !strings.Contains(msg, want) {
			t.Errorf("error string should contain %q, got: %s", want, msg)
		}
	}

	// Empty detail still yields a usable error string
	empty := &ProblemDetails{Status: http.StatusUnauthorized, Title: "Unauthorized"}
	if !strings.Contains(empty.Error(), "401") {
		t.Errorf("error string should contain status code, got: %s", empty.Error())
	}
}

func TestProblemDetails_WriteJSON(t *testing.T) {
	t.Parallel()

	pd := NewNotFoundError("session")
	rr := httptest.NewRecorder()
	pd.WriteJSON(rr)

	if got := rr.Header().Get("Content-Type"); got != "application/problem+json" {
		t.Errorf("expected Content-Type 'application/problem+json', got %q", got)
	}
	if rr.Code != http.StatusNotFound {
		t.Errorf("expected status %d, got %d", http.StatusNotFound, rr.Code)
	}

	var result ProblemDetails
	if err := json.NewDecoder(rr.Body).Decode(&result); err != nil {
		t.Fatalf("failed to decode response body: %v", err)
	}
	if result.Title != "Not Found" {
		t.Errorf("expected title 'Not Found', got %q", result.Title)
	}
	if result.Detail != "session not found" {
		t.Errorf("expected detail 'session not found', got %q", result.Detail)
	}
}

func TestErrorConstructors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		pd         *ProblemDetails
		wantStatus int
		wantTitle  string
		wantCode   ErrorCode
		wantDetail string
	}{
		{
			name:       "unauthorized",
			pd:         NewUnauthorizedError("refresh token expired"),
			wantStatus: http.StatusUnauthorized,
			wantTitle:  "Unauthorized",
			wantCode:   ErrCodeUnauthorized,
			wantDetail: "refresh token expired",
		},
		{
			name:       "forbidden",
			pd:         NewForbiddenError("only the session host may update it"),
			wantStatus: http.StatusForbidden,
			wantTitle:  "Forbidden",
			wantCode:   ErrCodeForbidden,
			wantDetail: "only the session host may update it",
		},
		{
			name:       "not found formats resource name",
			pd:         NewNotFoundError("study group"),
			wantStatus: http.StatusNotFound,
			wantTitle:  "Not Found",
			wantCode:   ErrCodeNotFound,
			wantDetail: "study group not found",
		},
		{
			name:       "conflict",
			pd:         NewConflictError("you have already RSVP'd to this session"),
			wantStatus: http.StatusConflict,
			wantTitle:  "Conflict",
			wantCode:   ErrCodeConflict,
			wantDetail: "you have already RSVP'd to this session",
		},
		{
			name:       "internal",
			pd:         NewInternalError("database connection failed"),
			wantStatus: http.StatusInternalServerError,
			wantTitle:  "Internal Server Error",
			wantCode:   ErrCodeInternal,
			wantDetail: "database connection failed",
		},
		{
			name:       "internal empty detail uses default",
			pd:         NewInternalError(""),
			wantStatus: http.StatusInternalServerError,
			wantTitle:  "Internal Server Error",
			wantCode:   ErrCodeInternal,
			wantDetail: "An unexpected error occurred",
		},
		{
			name:       "bad request",
			pd:         NewBadRequestError("invalid Google ID token"),
			wantStatus: http.StatusBadRequest,
			wantTitle:  "Bad Request",
			wantCode:   ErrCodeInvalidInput,
			wantDetail: "invalid Google ID token",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if tt.pd.Status != tt.wantStatus {
				t.Errorf("expected status %d, got %d", tt.wantStatus, tt.pd.Status)
			}
			if tt.pd.Title != tt.wantTitle {
				t.Errorf("expected title %q, got %q", tt.wantTitle, tt.pd.Title)
			}
			if tt.pd.Code != tt.wantCode {
				t.Errorf("expected code %d, got %d", tt.wantCode, tt.pd.Code)
			}
			if tt.pd.Detail != tt.wantDetail {
				t.Errorf("expected detail %q, got %q", tt.wantDetail, tt.pd.Detail)
			}
		})
	}
}

func TestNewValidationError(t *testing.T) {
	t.Parallel()

	t.Run("single field", func(t *testing.T) {
		t.Parallel()
		pd := NewValidationError([]FieldError{
			{Field: "code", Message: "must be 6 digits"},
		})

		if pd.Status != http.StatusUnprocessableEntity {
			t.Errorf("expected status %d, got %d", http.StatusUnprocessableEntity, pd.Status)
		}
		if pd.Code != ErrCodeValidation {
			t.Errorf("expected code %d, got %d", ErrCodeValidation, pd.Code)
		}
		if len(pd.Errors) != 1 {
			t.Fatalf("expected 1 field error, got %d", len(pd.Errors))
		}
		if !strings.Contains(pd.Detail, "code") || !strings.Contains(pd.Detail, "must be 6 digits") {
			t.Errorf("detail should name the field and message, got %q", pd.Detail)
		}
	})

	t.Run("multiple fields summarizes count", func(t *testing.T) {
		t.Parallel()
		pd := NewValidationError([]FieldError{
			{Field: "title", Message: "required"},
			{Field: "date", Message: "must be in the future"},
			{Field: "subject", Message: "required"},
		})

		if len(pd.Errors) != 3 {
			t.Errorf("expected 3 field errors, got %d", len(pd.Errors))
		}
		if !strings.Contains(pd.Detail, "2 more errors") {
			t.Errorf("detail should mention count of additional errors, got %q", pd.Detail)
		}
	})

	t.Run("empty uses default message", func(t *testing.T) {
		t.Parallel()
		pd := NewValidationError(nil)
		if pd.Detail != "One or more fields failed validation" {
			t.Errorf("expected default detail, got %q", pd.Detail)
		}
	})
}

func TestNewLimitExceededError(t *testing.T) {
	t.Parallel()

	pd := NewLimitExceededError("study groups", 5, 5)

	if pd.Status != http.StatusUnprocessableEntity {
		t.Errorf("expected status %d, got %d", http.StatusUnprocessableEntity, pd.Status)
	}
	if pd.Code != ErrCodeLimitExceeded {
		t.Errorf("expected code %d, got %d", ErrCodeLimitExceeded, pd.Code)
	}
	if pd.Limit == nil || *pd.Limit != 5 {
		t.Errorf("expected limit 5, got %v", pd.Limit)
	}
	if pd.Current == nil || *pd.Current != 5 {
		t.Errorf("expected current 5, got %v", pd.Current)
	}
	if !strings.Contains(pd.Detail, "study groups") {
		t.Errorf("detail should contain resource name, got %q", pd.Detail)
	}
}

func TestNewMethodNotAllowedError(t *testing.T) {
	t.Parallel()

	pd := NewMethodNotAllowedError("POST")
	if pd.Status != http.StatusMethodNotAllowed {
		t.Errorf("expected status %d, got %d", http.StatusMethodNotAllowed, pd.Status)
	}
	if !strings.Contains(pd.Detail, "POST") {
		t.Errorf("detail should name the allowed method, got %q", pd.Detail)
	}
}

func TestNewRateLimitError(t *testing.T) {
	t.Parallel()

	pd := NewRateLimitError(60)
	if pd.Status != http.StatusTooManyRequests {
		t.Errorf("expected status %d, got %d", http.StatusTooManyRequests, pd.Status)
	}
	if !strings.Contains(pd.Detail, "60") {
		t.Errorf("detail should contain retry seconds, got %q", pd.Detail)
	}
}

func TestErrorCodes_GroupedByRange(t *testing.T) {
	t.Parallel()

	ranges := []struct {
		name  string
		lo    ErrorCode
		hi    ErrorCode
		codes []ErrorCode
	}{
		{"authentication", 1000, 2000, []ErrorCode{ErrCodeUnauthorized, ErrCodeTokenExpired, ErrCodeTokenInvalid, ErrCodeLoginFailed}},
		{"authorization", 2000, 3000, []ErrorCode{ErrCodeForbidden, ErrCodeNotMember}},
		{"resource", 3000, 4000, []ErrorCode{ErrCodeNotFound, ErrCodeAlreadyExists, ErrCodeConflict}},
		{"validation", 4000, 5000, []ErrorCode{ErrCodeValidation, ErrCodeInvalidInput, ErrCodeLimitExceeded}},
		{"internal", 5000, 6000, []ErrorCode{ErrCodeInternal, ErrCodeDatabase, ErrCodeExternalAPI}},
	}

	seen := make(map[ErrorCode]string)
	for _, r := range ranges {
		for _, code := range r.codes {
			if code < r.lo || code >= r.hi {
				t.Errorf("%s error code %d outside its range [%d,%d)", r.name, code, r.lo, r.hi)
			}
			if prev, dup := seen[code]; dup {
				t.Errorf("error code %d reused across %s and %s", code, prev, r.name)
			}
			seen[code] = r.name
		}
	}
}

func TestProblemDetails_JSONShape(t *testing.T) {
	t.Parallel()

	// Optional fields are omitted when empty
	minimal, err := json.Marshal(&ProblemDetails{Type: "about:blank", Title: "Bad Request", Status: 400})
	if err != nil {
		t.Fatalf("failed to marshal: %v", err)
	}
	for _, field := range []string{"detail", "instance", "errors", "limit", "current"} {
		if strings.Contains(string(minimal), field) {
			t.Errorf("empty %s should be omitted from JSON", field)
		}
	}

	limit, current := 5, 5
	full, err := json.Marshal(&ProblemDetails{
		Type:     "https://studysphere.app/errors/limit-exceeded",
		Title:    "Limit Exceeded",
		Status:   422,
		Detail:   "you can create at most 5 study groups",
		Instance: "/api/groups",
		Errors:   []FieldError{{Field: "name", Message: "required"}},
		Code:     ErrCodeLimitExceeded,
		Limit:    &limit,
		Current:  &current,
	})
	if err != nil {
		t.Fatalf("failed to marshal: %v", err)
	}

	var result map[string]interface{}
	if err := json.Unmarshal(full, &result); err != nil {
		t.Fatalf("failed to unmarshal: %v", err)
	}
	for _, field := range []string{"type", "title", "status", "detail", "instance", "errors", "code", "limit", "current"} {
		if _, ok := result[field]; !ok {
			t.Errorf("expected field %q in JSON output", field)
		}
	}
}
