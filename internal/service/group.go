package service

import (
	"context"
	"log/slog"
	"strings"

	"github.com/studysphere/api/internal/model"
	"github.com/studysphere/api/internal/policy"
)

// GroupRepository defines the interface for study group storage
type GroupRepository interface {
	// CreateWithCreator persists the group and the creator's membership in
	// one atomic batch; neither exists without the other.
	CreateWithCreator(ctx context.Context, group *model.StudyGroup) error
	GetByID(ctx context.Context, id string) (*model.StudyGroup, error)
	List(ctx context.Context) ([]*model.StudyGroup, error)
	ListByStatus(ctx context.Context, status model.GroupStatus) ([]*model.StudyGroup, error)
	Update(ctx context.Context, group *model.StudyGroup) error
	UpdateStatus(ctx context.Context, id string, status model.GroupStatus) (*model.StudyGroup, error)
	// Delete removes the group and cascades its memberships
	Delete(ctx context.Context, id string) error
}

// MembershipRepository defines the interface for group membership storage
type MembershipRepository interface {
	Create(ctx context.Context, membership *model.GroupMembership) error
	Get(ctx context.Context, userID, groupID string) (*model.GroupMembership, error)
	Delete(ctx context.Context, userID, groupID string) error
	ListMembers(ctx context.Context, groupID string) ([]*model.User, error)
	CountByGroup(ctx context.Context, groupID string) (int, error)
	CountByUser(ctx context.Context, userID string) (int, error)
}

// GroupService handles study group operations
type GroupService struct {
	groupRepo      GroupRepository
	membershipRepo MembershipRepository
	userRepo       UserRepository
	gamification   *GamificationService
}

// GroupServiceConfig holds configuration for the group service
type GroupServiceConfig struct {
	GroupRepo      GroupRepository
	MembershipRepo MembershipRepository
	UserRepo       UserRepository
	Gamification   *GamificationService
}

// NewGroupService creates a new group service
func NewGroupService(cfg GroupServiceConfig) *GroupService {
	return &GroupService{
		groupRepo:      cfg.GroupRepo,
		membershipRepo: cfg.MembershipRepo,
		userRepo:       cfg.UserRepo,
		gamification:   cfg.Gamification,
	}
}

// CreateGroupResult represents a successfully created group
type CreateGroupResult struct {
	Group    *model.StudyGroup
	XPEarned int
}

// CreateGroup creates a study group in pending status with the creator as
// its first member
func (s *GroupService) CreateGroup(ctx context.Context, creatorID string, req model.CreateGroupRequest) (*CreateGroupResult, error) {
	name := strings.TrimSpace(req.Name)
	subject := strings.TrimSpace(req.Subject)

	if name == "" {
		return nil, ErrGroupNameRequired
	}
	if len(name) > model.MaxGroupNameLength {
		return nil, ErrGroupNameTooLong
	}
	if subject == "" {
		return nil, ErrGroupSubjectMissing
	}
	if len(subject) > model.MaxGroupSubjectLength {
		return nil, ErrGroupSubjectTooLong
	}
	if len(req.Description) > model.MaxGroupDescLength {
		return nil, ErrGroupDescTooLong
	}

	group := &model.StudyGroup{
		Name:        name,
		Subject:     subject,
		Description: strings.TrimSpace(req.Description),
		CreatorID:   creatorID,
		Status:      model.GroupStatusPending,
	}

	if err := s.groupRepo.CreateWithCreator(ctx, group); err != nil {
		return nil, err
	}

	xp, err := s.gamification.Award(ctx, creatorID, XPEventCreateGroup)
	if err != nil {
		return nil, err
	}

	return &CreateGroupResult{Group: group, XPEarned: xp}, nil
}

// GetGroup returns a group projected for the viewer. Non-approved groups
// are visible only to admins and the creator.
func (s *GroupService) GetGroup(ctx context.Context, viewer *model.User, groupID string) (*model.GroupView, error) {
	group, err := s.groupRepo.GetByID(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if group == nil {
		return nil, ErrGroupNotFound
	}

	if d := policy.CanViewGroup(viewer, group); !d.Allowed {
		// Hidden groups are indistinguishable from missing ones
		return nil, ErrGroupNotFound
	}

	return s.buildGroupView(ctx, viewer, group)
}

// ListGroups returns groups visible to the viewer: all groups for admins,
// approved groups for everyone else
func (s *GroupService) ListGroups(ctx context.Context, viewer *model.User) ([]*model.GroupView, error) {
	var groups []*model.StudyGroup
	var err error

	if viewer != nil && viewer.IsAdmin() {
		groups, err = s.groupRepo.List(ctx)
	} else {
		groups, err = s.groupRepo.ListByStatus(ctx, model.GroupStatusApproved)
	}
	if err != nil {
		return nil, err
	}

	views := make([]*model.GroupView, 0, len(groups))
	for _, group := range groups {
		view, err := s.buildGroupView(ctx, viewer, group)
		if err != nil {
			return nil, err
		}
		views = append(views, view)
	}
	return views, nil
}

// UpdateGroup applies a partial update; only the creator may do this
func (s *GroupService) UpdateGroup(ctx context.Context, actorID, groupID string, req model.UpdateGroupRequest) (*model.StudyGroup, error) {
	group, err := s.groupRepo.GetByID(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if group == nil {
		return nil, ErrGroupNotFound
	}

	if d := policy.CanManageGroup(actorID, group); !d.Allowed {
		return nil, ErrNotGroupCreator
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, ErrGroupNameRequired
		}
		if len(name) > model.MaxGroupNameLength {
			return nil, ErrGroupNameTooLong
		}
		group.Name = name
	}
	if req.Subject != nil {
		subject := strings.TrimSpace(*req.Subject)
		if subject == "" {
			return nil, ErrGroupSubjectMissing
		}
		if len(subject) > model.MaxGroupSubjectLength {
			return nil, ErrGroupSubjectTooLong
		}
		group.Subject = subject
	}
	if req.Description != nil {
		if len(*req.Description) > model.MaxGroupDescLength {
			return nil, ErrGroupDescTooLong
		}
		group.Description = strings.TrimSpace(*req.Description)
	}

	if err := s.groupRepo.Update(ctx, group); err != nil {
		return nil, err
	}
	return group, nil
}

// DeleteGroup removes a group and its memberships; only the creator may
// do this
func (s *GroupService) DeleteGroup(ctx context.Context, actorID, groupID string) error {
	group, err := s.groupRepo.GetByID(ctx, groupID)
	if err != nil {
		return err
	}
	if group == nil {
		return ErrGroupNotFound
	}

	if d := policy.CanManageGroup(actorID, group); !d.Allowed {
		return ErrNotGroupCreator
	}

	return s.groupRepo.Delete(ctx, groupID)
}

// JoinGroup adds the user to an approved group and awards XP
func (s *GroupService) JoinGroup(ctx context.Context, userID, groupID string) (*model.JoinGroupResult, error) {
	group, err := s.groupRepo.GetByID(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if group == nil {
		return nil, ErrGroupNotFound
	}

	existing, err := s.membershipRepo.Get(ctx, userID, groupID)
	if err != nil {
		return nil, err
	}

	if d := policy.CanJoinGroup(group, existing != nil); !d.Allowed {
		if existing != nil {
			return nil, ErrAlreadyGroupMember
		}
		return nil, ErrGroupNotApproved
	}

	membership := &model.GroupMembership{
		UserID:  userID,
		GroupID: groupID,
	}
	if err := s.membershipRepo.Create(ctx, membership); err != nil {
		return nil, err
	}

	xp, err := s.gamification.Award(ctx, userID, XPEventJoinGroup)
	if err != nil {
		return nil, err
	}

	return &model.JoinGroupResult{Membership: membership, XPEarned: xp}, nil
}

// LeaveGroup removes the user's membership. Leaving does not claw back XP.
func (s *GroupService) LeaveGroup(ctx context.Context, userID, groupID string) error {
	group, err := s.groupRepo.GetByID(ctx, groupID)
	if err != nil {
		return err
	}
	if group == nil {
		return ErrGroupNotFound
	}

	membership, err := s.membershipRepo.Get(ctx, userID, groupID)
	if err != nil {
		return err
	}
	if membership == nil {
		return ErrNotGroupMember
	}

	return s.membershipRepo.Delete(ctx, userID, groupID)
}

// ApproveGroup transitions a group to approved; admin only. Re-approving
// an approved group is a no-op.
func (s *GroupService) ApproveGroup(ctx context.Context, actor *model.User, groupID string) (*model.StudyGroup, error) {
	return s.setStatus(ctx, actor, groupID, model.GroupStatusApproved)
}

// RejectGroup transitions a group to rejected; admin only
func (s *GroupService) RejectGroup(ctx context.Context, actor *model.User, groupID string) (*model.StudyGroup, error) {
	return s.setStatus(ctx, actor, groupID, model.GroupStatusRejected)
}

func (s *GroupService) setStatus(ctx context.Context, actor *model.User, groupID string, status model.GroupStatus) (*model.StudyGroup, error) {
	if d := policy.AdminOnly(actor); !d.Allowed {
		return nil, ErrAdminRequired
	}

	group, err := s.groupRepo.GetByID(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if group == nil {
		return nil, ErrGroupNotFound
	}

	return s.groupRepo.UpdateStatus(ctx, groupID, status)
}

// IsMember reports whether the user belongs to the group
func (s *GroupService) IsMember(ctx context.Context, userID, groupID string) (bool, error) {
	membership, err := s.membershipRepo.Get(ctx, userID, groupID)
	if err != nil {
		return false, err
	}
	return membership != nil, nil
}

func (s *GroupService) buildGroupView(ctx context.Context, viewer *model.User, group *model.StudyGroup) (*model.GroupView, error) {
	members, err := s.membershipRepo.ListMembers(ctx, group.ID)
	if err != nil {
		return nil, err
	}

	view := &model.GroupView{
		StudyGroup:   *group,
		Members:      make([]model.UserSummary, 0, len(members)),
		MembersCount: len(members),
	}

	for _, member := range members {
		view.Members = append(view.Members, member.Summary())
		if viewer != nil && member.ID == viewer.ID {
			view.IsMember = true
		}
	}

	creator, err := s.userRepo.GetByID(ctx, group.CreatorID)
	if err != nil {
		slog.Warn("creator lookup failed, serving group without creator summary",
			"group_id", group.ID, "error", err)
	} else if creator != nil {
		summary := creator.Summary()
		view.Creator = &summary
	}

	return view, nil
}
