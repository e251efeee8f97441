package service

import (
	"context"
	"crypto/rand"
	"fmt"
	"log/slog"
	"math/big"
	"strings"

	"github.com/studysphere/api/internal/model"
	"github.com/studysphere/api/internal/policy"
)

// SessionRepository defines the interface for study session storage
type SessionRepository interface {
	Create(ctx context.Context, session *model.StudySession) error
	GetByID(ctx context.Context, id string) (*model.StudySession, error)
	List(ctx context.Context) ([]*model.StudySession, error)
	ListByGroup(ctx context.Context, groupID string) ([]*model.StudySession, error)
	ListByHost(ctx context.Context, hostID string) ([]*model.StudySession, error)
	Update(ctx context.Context, session *model.StudySession) error
	// Delete removes the session and cascades RSVPs, messages, and resources
	Delete(ctx context.Context, id string) error
}

// RSVPRepository defines the interface for session RSVP storage
type RSVPRepository interface {
	Create(ctx context.Context, rsvp *model.SessionRSVP) error
	Get(ctx context.Context, userID, sessionID string) (*model.SessionRSVP, error)
	Delete(ctx context.Context, userID, sessionID string) error
	// MarkAttended flips attended to true only if it is currently false;
	// returns false when the flag was already set (lost race or replay)
	MarkAttended(ctx context.Context, userID, sessionID string) (bool, error)
	ListBySession(ctx context.Context, sessionID string) ([]*model.SessionRSVP, error)
	CountAttendedByUser(ctx context.Context, userID string) (int, error)
}

// SessionService handles study session operations
type SessionService struct {
	sessionRepo    SessionRepository
	rsvpRepo       RSVPRepository
	membershipRepo MembershipRepository
	userRepo       UserRepository
	gamification   *GamificationService
}

// SessionServiceConfig holds configuration for the session service
type SessionServiceConfig struct {
	SessionRepo    SessionRepository
	RSVPRepo       RSVPRepository
	MembershipRepo MembershipRepository
	UserRepo       UserRepository
	Gamification   *GamificationService
}

// NewSessionService creates a new session service
func NewSessionService(cfg SessionServiceConfig) *SessionService {
	return &SessionService{
		sessionRepo:    cfg.SessionRepo,
		rsvpRepo:       cfg.RSVPRepo,
		membershipRepo: cfg.MembershipRepo,
		userRepo:       cfg.UserRepo,
		gamification:   cfg.Gamification,
	}
}

// CreateSessionResult represents a successfully created session
type CreateSessionResult struct {
	Session  *model.StudySession
	XPEarned int
}

// CreateSession schedules a session hosted by the caller. A fresh
// verification code is generated; the host does not choose it.
func (s *SessionService) CreateSession(ctx context.Context, hostID string, req model.CreateSessionRequest) (*CreateSessionResult, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, ErrSessionTitleRequired
	}
	if len(title) > model.MaxSessionTitleLength {
		return nil, ErrSessionFieldTooLong
	}
	if strings.TrimSpace(req.Date) == "" {
		return nil, ErrSessionDateRequired
	}
	if len(req.CourseCode) > model.MaxSessionCourseCodeLength ||
		len(req.Description) > model.MaxSessionDescriptionLength ||
		len(req.Location) > model.MaxSessionLocationLength {
		return nil, ErrSessionFieldTooLong
	}

	if req.GroupID != nil {
		// Hosts can only bind sessions to groups they belong to
		membership, err := s.membershipRepo.Get(ctx, hostID, *req.GroupID)
		if err != nil {
			return nil, err
		}
		if membership == nil {
			return nil, ErrGroupMembershipRequired
		}
	}

	code, err := generateVerificationCode()
	if err != nil {
		return nil, err
	}

	session := &model.StudySession{
		Title:            title,
		CourseCode:       strings.TrimSpace(req.CourseCode),
		Description:      strings.TrimSpace(req.Description),
		Date:             strings.TrimSpace(req.Date),
		Time:             strings.TrimSpace(req.Time),
		Location:         strings.TrimSpace(req.Location),
		HostID:           hostID,
		GroupID:          req.GroupID,
		VerificationCode: code,
	}

	if err := s.sessionRepo.Create(ctx, session); err != nil {
		return nil, err
	}

	xp, err := s.gamification.Award(ctx, hostID, XPEventCreateSession)
	if err != nil {
		return nil, err
	}

	return &CreateSessionResult{Session: session, XPEarned: xp}, nil
}

// GetSession returns a session projected for the viewer
func (s *SessionService) GetSession(ctx context.Context, viewerID, sessionID string) (*model.SessionView, error) {
	session, err := s.sessionRepo.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, ErrSessionNotFound
	}
	return s.buildSessionView(ctx, viewerID, session)
}

// ListSessions returns all sessions projected for the viewer
func (s *SessionService) ListSessions(ctx context.Context, viewerID string) ([]*model.SessionView, error) {
	sessions, err := s.sessionRepo.List(ctx)
	if err != nil {
		return nil, err
	}
	return s.buildSessionViews(ctx, viewerID, sessions)
}

// ListGroupSessions returns the sessions bound to a group
func (s *SessionService) ListGroupSessions(ctx context.Context, viewerID, groupID string) ([]*model.SessionView, error) {
	sessions, err := s.sessionRepo.ListByGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	return s.buildSessionViews(ctx, viewerID, sessions)
}

// UpdateSession applies a partial update; only the host may do this. The
// verification code never changes after creation.
func (s *SessionService) UpdateSession(ctx context.Context, actorID, sessionID string, req model.UpdateSessionRequest) (*model.StudySession, error) {
	session, err := s.sessionRepo.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, ErrSessionNotFound
	}

	if d := policy.CanManageSession(actorID, session); !d.Allowed {
		return nil, ErrNotSessionHost
	}

	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if title == "" {
			return nil, ErrSessionTitleRequired
		}
		if len(title) > model.MaxSessionTitleLength {
			return nil, ErrSessionFieldTooLong
		}
		session.Title = title
	}
	if req.CourseCode != nil {
		if len(*req.CourseCode) > model.MaxSessionCourseCodeLength {
			return nil, ErrSessionFieldTooLong
		}
		session.CourseCode = strings.TrimSpace(*req.CourseCode)
	}
	if req.Description != nil {
		if len(*req.Description) > model.MaxSessionDescriptionLength {
			return nil, ErrSessionFieldTooLong
		}
		session.Description = strings.TrimSpace(*req.Description)
	}
	if req.Date != nil {
		if strings.TrimSpace(*req.Date) == "" {
			return nil, ErrSessionDateRequired
		}
		session.Date = strings.TrimSpace(*req.Date)
	}
	if req.Time != nil {
		session.Time = strings.TrimSpace(*req.Time)
	}
	if req.Location != nil {
		if len(*req.Location) > model.MaxSessionLocationLength {
			return nil, ErrSessionFieldTooLong
		}
		session.Location = strings.TrimSpace(*req.Location)
	}

	if err := s.sessionRepo.Update(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

// DeleteSession removes a session; only the host may do this
func (s *SessionService) DeleteSession(ctx context.Context, actorID, sessionID string) error {
	session, err := s.sessionRepo.GetByID(ctx, sessionID)
	if err != nil {
		return err
	}
	if session == nil {
		return ErrSessionNotFound
	}

	if d := policy.CanManageSession(actorID, session); !d.Allowed {
		return ErrNotSessionHost
	}

	return s.sessionRepo.Delete(ctx, sessionID)
}

// RSVP registers the user's intent to attend. Group-bound sessions require
// group membership. RSVPing earns no XP; that comes with verified
// attendance.
func (s *SessionService) RSVP(ctx context.Context, userID, sessionID string) (*model.SessionRSVP, error) {
	session, err := s.sessionRepo.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, ErrSessionNotFound
	}

	isMember := false
	if session.GroupID != nil {
		membership, err := s.membershipRepo.Get(ctx, userID, *session.GroupID)
		if err != nil {
			return nil, err
		}
		isMember = membership != nil
	}

	if d := policy.CanRSVP(session, isMember); !d.Allowed {
		return nil, ErrGroupMembershipRequired
	}

	existing, err := s.rsvpRepo.Get(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrAlreadyRSVPd
	}

	rsvp := &model.SessionRSVP{
		SessionID: sessionID,
		UserID:    userID,
		Attended:  false,
	}
	if err := s.rsvpRepo.Create(ctx, rsvp); err != nil {
		return nil, err
	}
	return rsvp, nil
}

// CancelRSVP withdraws the user's RSVP. XP already earned is kept.
func (s *SessionService) CancelRSVP(ctx context.Context, userID, sessionID string) error {
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
	if rsvp == nil {
		return ErrNoRSVP
	}

	return s.rsvpRepo.Delete(ctx, userID, sessionID)
}

// MarkAttendance verifies the presented code and flips the RSVP's attended
// flag, awarding XP exactly once per (user, session)
func (s *SessionService) MarkAttendance(ctx context.Context, userID, sessionID string, req model.MarkAttendanceRequest) (*model.AttendanceResult, error) {
	session, err := s.sessionRepo.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, ErrSessionNotFound
	}

	rsvp, err := s.rsvpRepo.Get(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}
	if rsvp == nil {
		return nil, ErrNoRSVP
	}
	if rsvp.Attended {
		return nil, ErrAlreadyAttended
	}

	code := strings.TrimSpace(req.Code)
	if code == "" {
		return nil, ErrCodeRequired
	}
	// Exact match, leading zeros significant
	if code != session.VerificationCode {
		return nil, ErrInvalidCode
	}

	// The store flips the flag only when it is still false, so a
	// double-submit awards XP at most once
	flipped, err := s.rsvpRepo.MarkAttended(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}
	if !flipped {
		return nil, ErrAlreadyAttended
	}

	xp, err := s.gamification.Award(ctx, userID, XPEventRSVPSession)
	if err != nil {
		return nil, err
	}

	return &model.AttendanceResult{XPEarned: xp}, nil
}

// HasRSVP reports whether the user has an RSVP for the session
func (s *SessionService) HasRSVP(ctx context.Context, userID, sessionID string) (bool, error) {
	rsvp, err := s.rsvpRepo.Get(ctx, userID, sessionID)
	if err != nil {
		return false, err
	}
	return rsvp != nil, nil
}

func (s *SessionService) buildSessionViews(ctx context.Context, viewerID string, sessions []*model.StudySession) ([]*model.SessionView, error) {
	views := make([]*model.SessionView, 0, len(sessions))
	for _, session := range sessions {
		view, err := s.buildSessionView(ctx, viewerID, session)
		if err != nil {
			return nil, err
		}
		views = append(views, view)
	}
	return views, nil
}

// buildSessionView projects a session for a viewer. The verification code
// crosses the boundary only when the viewer is the host.
func (s *SessionService) buildSessionView(ctx context.Context, viewerID string, session *model.StudySession) (*model.SessionView, error) {
	rsvps, err := s.rsvpRepo.ListBySession(ctx, session.ID)
	if err != nil {
		return nil, err
	}

	view := &model.SessionView{
		StudySession:   *session,
		AttendeesCount: len(rsvps),
		// Sessions without a group are open to any authenticated viewer
		IsGroupMember: session.GroupID == nil,
	}

	for _, rsvp := range rsvps {
		if rsvp.UserID == viewerID {
			view.IsAttending = true
			view.HasAttended = rsvp.Attended
			break
		}
	}

	if session.GroupID != nil {
		membership, err := s.membershipRepo.Get(ctx, viewerID, *session.GroupID)
		if err != nil {
			return nil, err
		}
		view.IsGroupMember = membership != nil
	}

	if viewerID == session.HostID {
		code := session.VerificationCode
		view.VerificationCode = &code
	}

	host, err := s.userRepo.GetByID(ctx, session.HostID)
	if err != nil {
		slog.Warn("host lookup failed, serving session without host summary",
			"session_id", session.ID, "error", err)
	} else if host != nil {
		summary := host.Summary()
		view.Host = &summary
	}

	return view, nil
}

// generateVerificationCode returns 6 random decimal digits, leading zeros
// included. Codes are not unique across sessions and never expire.
func generateVerificationCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
