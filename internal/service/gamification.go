package service

import (
	"context"

	"github.com/studysphere/api/internal/model"
)

// XPEvent names an action that earns XP
type XPEvent string

const (
	XPEventCreateSession XPEvent = "create_session"
	XPEventCreateGroup   XPEvent = "create_group"
	XPEventJoinGroup     XPEvent = "join_group"
	XPEventRSVPSession   XPEvent = "rsvp_session"
)

// DefaultXPRewards maps events to XP amounts. The amounts are product
// policy and safe to tune; every reward is a positive integer.
var DefaultXPRewards = map[XPEvent]int{
	XPEventCreateSession: 20,
	XPEventCreateGroup:   25,
	XPEventJoinGroup:     10,
	XPEventRSVPSession:   15,
}

// LevelPolicy maps a lifetime XP total to a level. Implementations must be
// monotonically non-decreasing in xp.
type LevelPolicy func(xp int) int

// DefaultLevelPolicy levels up every 100 XP, starting at level 1
func DefaultLevelPolicy(xp int) int {
	if xp < 0 {
		return 1
	}
	return xp/100 + 1
}

// XPRepository defines the storage operations the XP engine needs. AddXP
// must apply the increment as an atomic read-modify-write; RaiseLevel must
// never lower a stored level.
type XPRepository interface {
	AddXP(ctx context.Context, userID string, amount int) (*model.User, error)
	RaiseLevel(ctx context.Context, userID string, level int) (*model.User, error)
}

// GamificationService awards XP for qualifying actions and keeps levels in
// step with the level policy. Repeated awards for the same underlying
// action are not deduplicated; callers invoke Award once per event.
type GamificationService struct {
	repo    XPRepository
	rewards map[XPEvent]int
	levelFn LevelPolicy
}

// GamificationServiceConfig holds configuration for the gamification service
type GamificationServiceConfig struct {
	Repo    XPRepository
	Rewards map[XPEvent]int // Defaults to DefaultXPRewards
	LevelFn LevelPolicy     // Defaults to DefaultLevelPolicy
}

// NewGamificationService creates a new gamification service
func NewGamificationService(cfg GamificationServiceConfig) *GamificationService {
	rewards := cfg.Rewards
	if rewards == nil {
		rewards = DefaultXPRewards
	}
	levelFn := cfg.LevelFn
	if levelFn == nil {
		levelFn = DefaultLevelPolicy
	}
	return &GamificationService{
		repo:    cfg.Repo,
		rewards: rewards,
		levelFn: levelFn,
	}
}

// Reward returns the XP amount for an event, 0 for unknown events
func (s *GamificationService) Reward(event XPEvent) int {
	return s.rewards[event]
}

// Award grants the event's XP to the user and updates their level. Returns
// the amount granted. Unknown events grant nothing and are not an error.
func (s *GamificationService) Award(ctx context.Context, userID string, event XPEvent) (int, error) {
	amount, ok := s.rewards[event]
	if !ok || amount <= 0 {
		return 0, nil
	}

	user, err := s.repo.AddXP(ctx, userID, amount)
	if err != nil {
		return 0, err
	}

	// Level only ever moves up; the store enforces the floor so concurrent
	// awards can apply in any order
	newLevel := s.levelFn(user.XP)
	if newLevel > user.Level {
		if _, err := s.repo.RaiseLevel(ctx, userID, newLevel); err != nil {
			return 0, err
		}
	}

	return amount, nil
}
