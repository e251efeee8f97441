package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/studysphere/api/internal/model"
)

// In-memory fakes shared by the group, session, collaboration, and stats
// tests. They emulate the invariants the real store enforces: one
// membership per (user, group), cascading deletes, guarded updates.

type memGroupRepo struct {
	groups      map[string]*model.StudyGroup
	memberships *memMembershipRepo
	nextID      int
	createErr   error
	getErr      error
}

func newMemGroupRepo(memberships *memMembershipRepo) *memGroupRepo {
	return &memGroupRepo{
		groups:      make(map[string]*model.StudyGroup),
		memberships: memberships,
	}
}

func (m *memGroupRepo) CreateWithCreator(ctx context.Context, group *model.StudyGroup) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.nextID++
	group.ID = fmt.Sprintf("study_group:%d", m.nextID)
	group.CreatedOn = time.Now()
	group.UpdatedOn = time.Now()
	m.groups[group.ID] = group
	// Creator membership lands in the same batch
	return m.memberships.Create(ctx, &model.GroupMembership{
		UserID:  group.CreatorID,
		GroupID: group.ID,
	})
}

func (m *memGroupRepo) GetByID(ctx context.Context, id string) (*model.StudyGroup, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	return m.groups[id], nil
}

func (m *memGroupRepo) List(ctx context.Context) ([]*model.StudyGroup, error) {
	result := make([]*model.StudyGroup, 0, len(m.groups))
	for _, g := range m.groups {
		result = append(result, g)
	}
	return result, nil
}

func (m *memGroupRepo) ListByStatus(ctx context.Context, status model.GroupStatus) ([]*model.StudyGroup, error) {
	var result []*model.StudyGroup
	for _, g := range m.groups {
		if g.Status == status {
			result = append(result, g)
		}
	}
	return result, nil
}

func (m *memGroupRepo) Update(ctx context.Context, group *model.StudyGroup) error {
	group.UpdatedOn = time.Now()
	m.groups[group.ID] = group
	return nil
}

func (m *memGroupRepo) UpdateStatus(ctx context.Context, id string, status model.GroupStatus) (*model.StudyGroup, error) {
	group, ok := m.groups[id]
	if !ok {
		return nil, nil
	}
	group.Status = status
	group.UpdatedOn = time.Now()
	return group, nil
}

func (m *memGroupRepo) Delete(ctx context.Context, id string) error {
	delete(m.groups, id)
	m.memberships.deleteByGroup(id)
	return nil
}

type memMembershipRepo struct {
	memberships map[string]*model.GroupMembership // key: userID + "|" + groupID
	userRepo    *mockUserRepo
	nextID      int
	createErr   error
	getErr      error
}

func newMemMembershipRepo(userRepo *mockUserRepo) *memMembershipRepo {
	return &memMembershipRepo{
		memberships: make(map[string]*model.GroupMembership),
		userRepo:    userRepo,
	}
}

func membershipKey(userID, groupID string) string {
	return userID + "|" + groupID
}

func (m *memMembershipRepo) Create(ctx context.Context, membership *model.GroupMembership) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.nextID++
	membership.ID = fmt.Sprintf("group_membership:%d", m.nextID)
	membership.JoinedOn = time.Now()
	m.memberships[membershipKey(membership.UserID, membership.GroupID)] = membership
	return nil
}

func (m *memMembershipRepo) Get(ctx context.Context, userID, groupID string) (*model.GroupMembership, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	return m.memberships[membershipKey(userID, groupID)], nil
}

func (m *memMembershipRepo) Delete(ctx context.Context, userID, groupID string) error {
	delete(m.memberships, membershipKey(userID, groupID))
	return nil
}

func (m *memMembershipRepo) deleteByGroup(groupID string) {
	for key, membership := range m.memberships {
		if membership.GroupID == groupID {
			delete(m.memberships, key)
		}
	}
}

func (m *memMembershipRepo) ListMembers(ctx context.Context, groupID string) ([]*model.User, error) {
	var result []*model.User
	for _, membership := range m.memberships {
		if membership.GroupID != groupID {
			continue
		}
		if user := m.userRepo.users[membership.UserID]; user != nil {
			result = append(result, user)
		}
	}
	return result, nil
}

func (m *memMembershipRepo) CountByGroup(ctx context.Context, groupID string) (int, error) {
	count := 0
	for _, membership := range m.memberships {
		if membership.GroupID == groupID {
			count++
		}
	}
	return count, nil
}

func (m *memMembershipRepo) CountByUser(ctx context.Context, userID string) (int, error) {
	count := 0
	for _, membership := range m.memberships {
		if membership.UserID == userID {
			count++
		}
	}
	return count, nil
}

// seedUser registers a user directly in the user repo
func seedUser(userRepo *mockUserRepo, id, email string, role model.UserRole) *model.User {
	user := &model.User{
		ID:    id,
		Email: email,
		Role:  role,
		Level: 1,
	}
	userRepo.users[id] = user
	return user
}

func setupGroupService(t *testing.T) (*GroupService, *memGroupRepo, *memMembershipRepo, *mockUserRepo, *mockXPRepo) {
	t.Helper()

	userRepo := newMockUserRepo()
	membershipRepo := newMemMembershipRepo(userRepo)
	groupRepo := newMemGroupRepo(membershipRepo)
	xpRepo := newMockXPRepo()

	svc := NewGroupService(GroupServiceConfig{
		GroupRepo:      groupRepo,
		MembershipRepo: membershipRepo,
		UserRepo:       userRepo,
		Gamification:   NewGamificationService(GamificationServiceConfig{Repo: xpRepo}),
	})
	return svc, groupRepo, membershipRepo, userRepo, xpRepo
}

// Tests

func TestGroupService_CreateGroup_Success(t *testing.T) {
	t.Parallel()
	svc, _, membershipRepo, userRepo, xpRepo := setupGroupService(t)
	ctx := context.Background()
	seedUser(userRepo, "user:ada", "ada@example.com", model.UserRoleUser)
	xpRepo.seed("user:ada", 0, 1)

	result, err := svc.CreateGroup(ctx, "user:ada", model.CreateGroupRequest{
		Name:    "  Algorithms Study Circle  ",
		Subject: "Computer Science",
	})
	if err != nil {
		t.Fatalf("CreateGroup failed: %v", err)
	}

	if result.Group.Status != model.GroupStatusPending {
		t.Errorf("new groups must start pending, got %s", result.Group.Status)
	}
	if result.Group.Name != "Algorithms Study Circle" {
		t.Errorf("expected trimmed name, got %q", result.Group.Name)
	}
	if result.XPEarned != DefaultXPRewards[XPEventCreateGroup] {
		t.Errorf("expected %d XP, got %d", DefaultXPRewards[XPEventCreateGroup], result.XPEarned)
	}

	// Creator is a member from the start
	membership, _ := membershipRepo.Get(ctx, "user:ada", result.Group.ID)
	if membership == nil {
		t.Error("expected creator membership to exist")
	}
}

func TestGroupService_CreateGroup_Validation(t *testing.T) {
	t.Parallel()
	svc, _, _, _, _ := setupGroupService(t)
	ctx := context.Background()

	longName := make([]byte, model.MaxGroupNameLength+1)
	for i := range longName {
		longName[i] = 'a'
	}

	tests := []struct {
		name    string
		req     model.CreateGroupRequest
		wantErr error
	}{
		{"missing name", model.CreateGroupRequest{Subject: "Math"}, ErrGroupNameRequired},
		{"whitespace name", model.CreateGroupRequest{Name: "   ", Subject: "Math"}, ErrGroupNameRequired},
		{"name too long", model.CreateGroupRequest{Name: string(longName), Subject: "Math"}, ErrGroupNameTooLong},
		{"missing subject", model.CreateGroupRequest{Name: "Calc Crew"}, ErrGroupSubjectMissing},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateGroup(ctx, "user:ada", tt.req)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestGroupService_GetGroup_ApprovedVisibleToAnyone(t *testing.T) {
	t.Parallel()
	svc, groupRepo, _, userRepo, xpRepo := setupGroupService(t)
	ctx := context.Background()
	creator := seedUser(userRepo, "user:ada", "ada@example.com", model.UserRoleUser)
	viewer := seedUser(userRepo, "user:bob", "bob@example.com", model.UserRoleUser)
	xpRepo.seed(creator.ID, 0, 1)

	result, _ := svc.CreateGroup(ctx, creator.ID, model.CreateGroupRequest{Name: "Calc Crew", Subject: "Math"})
	_, _ = groupRepo.UpdateStatus(ctx, result.Group.ID, model.GroupStatusApproved)

	view, err := svc.GetGroup(ctx, viewer, result.Group.ID)
	if err != nil {
		t.Fatalf("GetGroup failed: %v", err)
	}
	if view.MembersCount != 1 {
		t.Errorf("expected 1 member, got %d", view.MembersCount)
	}
	if view.IsMember {
		t.Error("viewer is not a member")
	}
	if view.Creator == nil || view.Creator.ID != creator.ID {
		t.Error("expected creator summary to be attached")
	}
}

func TestGroupService_GetGroup_CreatorLookupFailureDegrades(t *testing.T) {
	t.Parallel()
	svc, groupRepo, _, userRepo, xpRepo := setupGroupService(t)
	ctx := context.Background()
	creator := seedUser(userRepo, "user:ada", "ada@example.com", model.UserRoleUser)
	viewer := seedUser(userRepo, "user:bob", "bob@example.com", model.UserRoleUser)
	xpRepo.seed(creator.ID, 0, 1)

	result, _ := svc.CreateGroup(ctx, creator.ID, model.CreateGroupRequest{Name: "Calc Crew", Subject: "Math"})
	_, _ = groupRepo.UpdateStatus(ctx, result.Group.ID, model.GroupStatusApproved)
	userRepo.getErr = errors.New("user store unreachable")

	view, err := svc.GetGroup(ctx, viewer, result.Group.ID)
	if err != nil {
		t.Fatalf("GetGroup should survive a creator lookup failure, got %v", err)
	}
	if view.Creator != nil {
		t.Error("expected no creator summary when the lookup fails")
	}
	if view.ID != result.Group.ID {
		t.Errorf("expected group %s, got %s", result.Group.ID, view.ID)
	}
}

func TestGroupService_GetGroup_PendingHiddenFromOthers(t *testing.T) {
	t.Parallel()
	svc, _, _, userRepo, xpRepo := setupGroupService(t)
	ctx := context.Background()
	creator := seedUser(userRepo, "user:ada", "ada@example.com", model.UserRoleUser)
	stranger := seedUser(userRepo, "user:bob", "bob@example.com", model.UserRoleUser)
	admin := seedUser(userRepo, "user:root", "root@example.com", model.UserRoleAdmin)
	xpRepo.seed(creator.ID, 0, 1)

	result, _ := svc.CreateGroup(ctx, creator.ID, model.CreateGroupRequest{Name: "Calc Crew", Subject: "Math"})

	// A pending group reads as not found to strangers
	if _, err := svc.GetGroup(ctx, stranger, result.Group.ID); !errors.Is(err, ErrGroupNotFound) {
		t.Errorf("expected ErrGroupNotFound for stranger, got %v", err)
	}

	// But the creator and admins can see it
	if _, err := svc.GetGroup(ctx, creator, result.Group.ID); err != nil {
		t.Errorf("creator should see their pending group: %v", err)
	}
	if _, err := svc.GetGroup(ctx, admin, result.Group.ID); err != nil {
		t.Errorf("admin should see pending groups: %v", err)
	}
}

func TestGroupService_ListGroups_FiltersByViewer(t *testing.T) {
	t.Parallel()
	svc, groupRepo, _, userRepo, xpRepo := setupGroupService(t)
	ctx := context.Background()
	creator := seedUser(userRepo, "user:ada", "ada@example.com", model.UserRoleUser)
	member := seedUser(userRepo, "user:bob", "bob@example.com", model.UserRoleUser)
	admin := seedUser(userRepo, "user:root", "root@example.com", model.UserRoleAdmin)
	xpRepo.seed(creator.ID, 0, 1)
	xpRepo.seed(member.ID, 0, 1)

	approved, _ := svc.CreateGroup(ctx, creator.ID, model.CreateGroupRequest{Name: "Approved", Subject: "Math"})
	_, _ = groupRepo.UpdateStatus(ctx, approved.Group.ID, model.GroupStatusApproved)
	_, _ = svc.CreateGroup(ctx, creator.ID, model.CreateGroupRequest{Name: "Still Pending", Subject: "Math"})

	_, err := svc.JoinGroup(ctx, member.ID, approved.Group.ID)
	if err != nil {
		t.Fatalf("JoinGroup failed: %v", err)
	}

	views, err := svc.ListGroups(ctx, member)
	if err != nil {
		t.Fatalf("ListGroups failed: %v", err)
	}
	if len(views) != 1 {
		t.Fatalf("non-admin should see only approved groups, got %d", len(views))
	}
	if !views[0].IsMember {
		t.Error("expected IsMember to be set for the joined group")
	}

	adminViews, err := svc.ListGroups(ctx, admin)
	if err != nil {
		t.Fatalf("ListGroups (admin) failed: %v", err)
	}
	if len(adminViews) != 2 {
		t.Errorf("admin should see all groups, got %d", len(adminViews))
	}
}

func TestGroupService_UpdateGroup_CreatorOnly(t *testing.T) {
	t.Parallel()
	svc, _, _, userRepo, xpRepo := setupGroupService(t)
	ctx := context.Background()
	creator := seedUser(userRepo, "user:ada", "ada@example.com", model.UserRoleUser)
	xpRepo.seed(creator.ID, 0, 1)

	result, _ := svc.CreateGroup(ctx, creator.ID, model.CreateGroupRequest{Name: "Calc Crew", Subject: "Math"})

	newName := "Linear Algebra Crew"
	updated, err := svc.UpdateGroup(ctx, creator.ID, result.Group.ID, model.UpdateGroupRequest{Name: &newName})
	if err != nil {
		t.Fatalf("UpdateGroup failed: %v", err)
	}
	if updated.Name != newName {
		t.Errorf("expected updated name, got %q", updated.Name)
	}

	_, err = svc.UpdateGroup(ctx, "user:impostor", result.Group.ID, model.UpdateGroupRequest{Name: &newName})
	if !errors.Is(err, ErrNotGroupCreator) {
		t.Errorf("expected ErrNotGroupCreator, got %v", err)
	}
}

func TestGroupService_DeleteGroup(t *testing.T) {
	t.Parallel()
	svc, groupRepo, membershipRepo, userRepo, xpRepo := setupGroupService(t)
	ctx := context.Background()
	creator := seedUser(userRepo, "user:ada", "ada@example.com", model.UserRoleUser)
	xpRepo.seed(creator.ID, 0, 1)

	result, _ := svc.CreateGroup(ctx, creator.ID, model.CreateGroupRequest{Name: "Calc Crew", Subject: "Math"})

	if err := svc.DeleteGroup(ctx, "user:impostor", result.Group.ID); !errors.Is(err, ErrNotGroupCreator) {
		t.Errorf("expected ErrNotGroupCreator, got %v", err)
	}

	if err := svc.DeleteGroup(ctx, creator.ID, result.Group.ID); err != nil {
		t.Fatalf("DeleteGroup failed: %v", err)
	}

	if g, _ := groupRepo.GetByID(ctx, result.Group.ID); g != nil {
		t.Error("group should be deleted")
	}
	// Memberships cascade
	if m, _ := membershipRepo.Get(ctx, creator.ID, result.Group.ID); m != nil {
		t.Error("membership should cascade on delete")
	}
}

func TestGroupService_JoinGroup(t *testing.T) {
	t.Parallel()
	svc, groupRepo, _, userRepo, xpRepo := setupGroupService(t)
	ctx := context.Background()
	creator := seedUser(userRepo, "user:ada", "ada@example.com", model.UserRoleUser)
	joiner := seedUser(userRepo, "user:bob", "bob@example.com", model.UserRoleUser)
	xpRepo.seed(creator.ID, 0, 1)
	xpRepo.seed(joiner.ID, 0, 1)

	result, _ := svc.CreateGroup(ctx, creator.ID, model.CreateGroupRequest{Name: "Calc Crew", Subject: "Math"})

	// Pending groups cannot be joined
	if _, err := svc.JoinGroup(ctx, joiner.ID, result.Group.ID); !errors.Is(err, ErrGroupNotApproved) {
		t.Errorf("expected ErrGroupNotApproved, got %v", err)
	}

	_, _ = groupRepo.UpdateStatus(ctx, result.Group.ID, model.GroupStatusApproved)

	joinResult, err := svc.JoinGroup(ctx, joiner.ID, result.Group.ID)
	if err != nil {
		t.Fatalf("JoinGroup failed: %v", err)
	}
	if joinResult.XPEarned != DefaultXPRewards[XPEventJoinGroup] {
		t.Errorf("expected %d XP, got %d", DefaultXPRewards[XPEventJoinGroup], joinResult.XPEarned)
	}

	// Joining twice is a conflict
	if _, err := svc.JoinGroup(ctx, joiner.ID, result.Group.ID); !errors.Is(err, ErrAlreadyGroupMember) {
		t.Errorf("expected ErrAlreadyGroupMember, got %v", err)
	}

	// Unknown group
	if _, err := svc.JoinGroup(ctx, joiner.ID, "study_group:missing"); !errors.Is(err, ErrGroupNotFound) {
		t.Errorf("expected ErrGroupNotFound, got %v", err)
	}
}

func TestGroupService_LeaveGroup(t *testing.T) {
	t.Parallel()
	svc, groupRepo, membershipRepo, userRepo, xpRepo := setupGroupService(t)
	ctx := context.Background()
	creator := seedUser(userRepo, "user:ada", "ada@example.com", model.UserRoleUser)
	member := seedUser(userRepo, "user:bob", "bob@example.com", model.UserRoleUser)
	xpRepo.seed(creator.ID, 0, 1)
	xpRepo.seed(member.ID, 100, 2)

	result, _ := svc.CreateGroup(ctx, creator.ID, model.CreateGroupRequest{Name: "Calc Crew", Subject: "Math"})
	_, _ = groupRepo.UpdateStatus(ctx, result.Group.ID, model.GroupStatusApproved)
	_, _ = svc.JoinGroup(ctx, member.ID, result.Group.ID)

	if err := svc.LeaveGroup(ctx, member.ID, result.Group.ID); err != nil {
		t.Fatalf("LeaveGroup failed: %v", err)
	}
	if m, _ := membershipRepo.Get(ctx, member.ID, result.Group.ID); m != nil {
		t.Error("membership should be gone")
	}

	// XP earned from joining is kept
	memberUser := xpRepo.users[member.ID]
	if memberUser.XP != 100+DefaultXPRewards[XPEventJoinGroup] {
		t.Errorf("leaving must not claw back XP, got %d", memberUser.XP)
	}

	// Leaving again is an error
	if err := svc.LeaveGroup(ctx, member.ID, result.Group.ID); !errors.Is(err, ErrNotGroupMember) {
		t.Errorf("expected ErrNotGroupMember, got %v", err)
	}
}

func TestGroupService_ApproveAndReject(t *testing.T) {
	t.Parallel()
	svc, _, _, userRepo, xpRepo := setupGroupService(t)
	ctx := context.Background()
	creator := seedUser(userRepo, "user:ada", "ada@example.com", model.UserRoleUser)
	admin := seedUser(userRepo, "user:root", "root@example.com", model.UserRoleAdmin)
	xpRepo.seed(creator.ID, 0, 1)

	first, _ := svc.CreateGroup(ctx, creator.ID, model.CreateGroupRequest{Name: "First", Subject: "Math"})
	second, _ := svc.CreateGroup(ctx, creator.ID, model.CreateGroupRequest{Name: "Second", Subject: "Math"})

	// Non-admins cannot moderate
	if _, err := svc.ApproveGroup(ctx, creator, first.Group.ID); !errors.Is(err, ErrAdminRequired) {
		t.Errorf("expected ErrAdminRequired, got %v", err)
	}

	approved, err := svc.ApproveGroup(ctx, admin, first.Group.ID)
	if err != nil {
		t.Fatalf("ApproveGroup failed: %v", err)
	}
	if approved.Status != model.GroupStatusApproved {
		t.Errorf("expected approved status, got %s", approved.Status)
	}

	// Re-approving an approved group is a no-op
	again, err := svc.ApproveGroup(ctx, admin, first.Group.ID)
	if err != nil {
		t.Fatalf("re-approve failed: %v", err)
	}
	if again.Status != model.GroupStatusApproved {
		t.Errorf("expected status to stay approved, got %s", again.Status)
	}

	rejected, err := svc.RejectGroup(ctx, admin, second.Group.ID)
	if err != nil {
		t.Fatalf("RejectGroup failed: %v", err)
	}
	if rejected.Status != model.GroupStatusRejected {
		t.Errorf("expected rejected status, got %s", rejected.Status)
	}

	if _, err := svc.ApproveGroup(ctx, admin, "study_group:missing"); !errors.Is(err, ErrGroupNotFound) {
		t.Errorf("expected ErrGroupNotFound, got %v", err)
	}
}

func TestGroupService_IsMember(t *testing.T) {
	t.Parallel()
	svc, _, _, userRepo, xpRepo := setupGroupService(t)
	ctx := context.Background()
	creator := seedUser(userRepo, "user:ada", "ada@example.com", model.UserRoleUser)
	xpRepo.seed(creator.ID, 0, 1)

	result, _ := svc.CreateGroup(ctx, creator.ID, model.CreateGroupRequest{Name: "Calc Crew", Subject: "Math"})

	isMember, err := svc.IsMember(ctx, creator.ID, result.Group.ID)
	if err != nil {
		t.Fatalf("IsMember failed: %v", err)
	}
	if !isMember {
		t.Error("creator should be a member")
	}

	isMember, _ = svc.IsMember(ctx, "user:stranger", result.Group.ID)
	if isMember {
		t.Error("stranger should not be a member")
	}
}
