package service

import (
	"context"
	"log/slog"

	"github.com/studysphere/api/internal/model"
	"github.com/studysphere/api/internal/policy"
)

// LeaderboardLimit is how many users the leaderboard shows
const LeaderboardLimit = 10

// DashboardUpcomingLimit caps how many upcoming sessions the dashboard
// embeds; the full list lives on the sessions endpoints
const DashboardUpcomingLimit = 3

// LeaderboardRepository defines the ranking queries
type LeaderboardRepository interface {
	// TopByXP returns users ordered by XP descending
	TopByXP(ctx context.Context, limit int) ([]*model.User, error)
}

// BadgeRepository defines the interface for badge storage
type BadgeRepository interface {
	ListByUser(ctx context.Context, userID string) ([]*model.Badge, error)
	LatestByUser(ctx context.Context, userID string) (*model.Badge, error)
}

// CountsRepository provides the aggregate counts for the admin dashboard
type CountsRepository interface {
	CountUsers(ctx context.Context) (int, error)
	CountGroups(ctx context.Context) (int, error)
	CountSessions(ctx context.Context) (int, error)
	CountSessionsByGroup(ctx context.Context, groupID string) (int, error)
}

// StatsService serves the leaderboard, user dashboards, badges, and the
// admin overview
type StatsService struct {
	leaderboardRepo LeaderboardRepository
	badgeRepo       BadgeRepository
	countsRepo      CountsRepository
	groupRepo       GroupRepository
	membershipRepo  MembershipRepository
	rsvpRepo        RSVPRepository
	sessionRepo     SessionRepository
	userRepo        UserRepository
	sessionService  *SessionService
}

// StatsServiceConfig holds configuration for the stats service
type StatsServiceConfig struct {
	LeaderboardRepo LeaderboardRepository
	BadgeRepo       BadgeRepository
	CountsRepo      CountsRepository
	GroupRepo       GroupRepository
	MembershipRepo  MembershipRepository
	RSVPRepo        RSVPRepository
	SessionRepo     SessionRepository
	UserRepo        UserRepository
	SessionService  *SessionService
}

// NewStatsService creates a new stats service
func NewStatsService(cfg StatsServiceConfig) *StatsService {
	return &StatsService{
		leaderboardRepo: cfg.LeaderboardRepo,
		badgeRepo:       cfg.BadgeRepo,
		countsRepo:      cfg.CountsRepo,
		groupRepo:       cfg.GroupRepo,
		membershipRepo:  cfg.MembershipRepo,
		rsvpRepo:        cfg.RSVPRepo,
		sessionRepo:     cfg.SessionRepo,
		userRepo:        cfg.UserRepo,
		sessionService:  cfg.SessionService,
	}
}

// Leaderboard returns the top users by XP with 1-based ranks. The period
// parameter is accepted for both windows but both rank by lifetime XP;
// per-week XP history is not stored.
func (s *StatsService) Leaderboard(ctx context.Context, period model.LeaderboardPeriod) ([]model.LeaderboardEntry, error) {
	_ = period

	users, err := s.leaderboardRepo.TopByXP(ctx, LeaderboardLimit)
	if err != nil {
		return nil, err
	}

	entries := make([]model.LeaderboardEntry, 0, len(users))
	for i, user := range users {
		badgeName := model.DefaultBadgeName
		badge, err := s.badgeRepo.LatestByUser(ctx, user.ID)
		if err != nil {
			slog.Warn("badge lookup failed, serving leaderboard entry with default badge",
				"user_id", user.ID, "error", err)
		} else if badge != nil {
			badgeName = badge.Name
		}

		entries = append(entries, model.LeaderboardEntry{
			Rank:     i + 1,
			UserID:   user.ID,
			Username: user.DisplayName(),
			Image:    user.AvatarURL(),
			XP:       user.XP,
			Level:    user.Level,
			Badge:    badgeName,
		})
	}
	return entries, nil
}

// Dashboard returns the user's stats and the sessions they have RSVP'd to
func (s *StatsService) Dashboard(ctx context.Context, userID string) (*model.Dashboard, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}

	attended, err := s.rsvpRepo.CountAttendedByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	joined, err := s.membershipRepo.CountByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	hosted, err := s.sessionRepo.ListByHost(ctx, userID)
	if err != nil {
		return nil, err
	}

	upcoming, err := s.sessionService.ListSessions(ctx, userID)
	if err != nil {
		return nil, err
	}

	dashboard := &model.Dashboard{
		Stats: model.DashboardStats{
			SessionsAttended: attended,
			GroupsJoined:     joined,
			SessionsHosted:   len(hosted),
			XP:               user.XP,
			Level:            user.Level,
		},
		UpcomingSessions: make([]model.SessionView, 0),
	}
	for _, view := range upcoming {
		if view.IsAttending || view.HostID == userID {
			dashboard.UpcomingSessions = append(dashboard.UpcomingSessions, *view)
			if len(dashboard.UpcomingSessions) == DashboardUpcomingLimit {
				break
			}
		}
	}
	return dashboard, nil
}

// Badges returns the user's earned badges
func (s *StatsService) Badges(ctx context.Context, userID string) ([]*model.Badge, error) {
	return s.badgeRepo.ListByUser(ctx, userID)
}

// AdminOverview buckets every group by moderation status with per-group
// stats and aggregate counts; admin only
func (s *StatsService) AdminOverview(ctx context.Context, actor *model.User) (*model.AdminOverview, error) {
	if d := policy.AdminOnly(actor); !d.Allowed {
		return nil, ErrAdminRequired
	}

	overview := &model.AdminOverview{
		Pending:  make([]model.GroupStats, 0),
		Approved: make([]model.GroupStats, 0),
		Rejected: make([]model.GroupStats, 0),
	}

	groups, err := s.groupRepo.List(ctx)
	if err != nil {
		return nil, err
	}

	for _, group := range groups {
		stats, err := s.groupStats(ctx, group)
		if err != nil {
			return nil, err
		}
		switch group.Status {
		case model.GroupStatusPending:
			overview.Pending = append(overview.Pending, *stats)
		case model.GroupStatusApproved:
			overview.Approved = append(overview.Approved, *stats)
		case model.GroupStatusRejected:
			overview.Rejected = append(overview.Rejected, *stats)
		}
	}

	users, err := s.countsRepo.CountUsers(ctx)
	if err != nil {
		return nil, err
	}
	sessions, err := s.countsRepo.CountSessions(ctx)
	if err != nil {
		return nil, err
	}

	overview.Totals = model.AdminTotals{
		Users:    users,
		Groups:   len(groups),
		Sessions: sessions,
		Pending:  len(overview.Pending),
	}
	return overview, nil
}

func (s *StatsService) groupStats(ctx context.Context, group *model.StudyGroup) (*model.GroupStats, error) {
	members, err := s.membershipRepo.CountByGroup(ctx, group.ID)
	if err != nil {
		return nil, err
	}
	sessions, err := s.countsRepo.CountSessionsByGroup(ctx, group.ID)
	if err != nil {
		return nil, err
	}
	return &model.GroupStats{
		StudyGroup:    *group,
		MembersCount:  members,
		SessionsCount: sessions,
	}, nil
}
