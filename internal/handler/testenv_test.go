package handler

import (
	"bytes"
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/studysphere/api/internal/middleware"
	"github.com/studysphere/api/internal/model"
	"github.com/studysphere/api/internal/service"
	"github.com/studysphere/api/pkg/jwt"
)

// In-memory repositories backing the handler tests. Handlers are exercised
// against real services; only the storage layer is faked.

type memUserRepo struct {
	users      map[string]*model.User
	emailIndex map[string]*model.User
	nextID     int
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{
		users:      make(map[string]*model.User),
		emailIndex: make(map[string]*model.User),
	}
}

func (m *memUserRepo) Create(ctx context.Context, user *model.User) error {
	m.nextID++
	user.ID = fmt.Sprintf("user:%d", m.nextID)
	user.CreatedOn = time.Now()
	user.UpdatedOn = time.Now()
	if user.Level == 0 {
		user.Level = 1
	}
	m.users[user.ID] = user
	m.emailIndex[user.Email] = user
	return nil
}

func (m *memUserRepo) GetByID(ctx context.Context, id string) (*model.User, error) {
	return m.users[id], nil
}

func (m *memUserRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	return m.emailIndex[email], nil
}

func (m *memUserRepo) Update(ctx context.Context, user *model.User) error {
	m.users[user.ID] = user
	m.emailIndex[user.Email] = user
	return nil
}

func (m *memUserRepo) UpdatePassword(ctx context.Context, userID, hash string) error {
	if user, ok := m.users[userID]; ok {
		user.Hash = &hash
	}
	return nil
}

func (m *memUserRepo) SetEmailVerified(ctx context.Context, userID string, verified bool) error {
	if user, ok := m.users[userID]; ok {
		user.EmailVerified = verified
	}
	return nil
}

// AddXP and RaiseLevel let the same fake serve as the XP store
func (m *memUserRepo) AddXP(ctx context.Context, userID string, amount int) (*model.User, error) {
	user, ok := m.users[userID]
	if !ok {
		return nil, service.ErrUserNotFound
	}
	user.XP += amount
	return user, nil
}

func (m *memUserRepo) RaiseLevel(ctx context.Context, userID string, level int) (*model.User, error) {
	user, ok := m.users[userID]
	if !ok {
		return nil, service.ErrUserNotFound
	}
	if level > user.Level {
		user.Level = level
	}
	return user, nil
}

func (m *memUserRepo) TopByXP(ctx context.Context, limit int) ([]*model.User, error) {
	var result []*model.User
	for _, user := range m.users {
		result = append(result, user)
	}
	// Selection sort is plenty for test-sized data
	for i := 0; i < len(result); i++ {
		for j := i + 1; j < len(result); j++ {
			if result[j].XP > result[i].XP {
				result[i], result[j] = result[j], result[i]
			}
		}
	}
	if len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

type memIdentityRepo struct {
	identities map[string]*model.Identity
}

func newMemIdentityRepo() *memIdentityRepo {
	return &memIdentityRepo{identities: make(map[string]*model.Identity)}
}

func (m *memIdentityRepo) Create(ctx context.Context, identity *model.Identity) error {
	identity.ID = "identity:" + identity.Provider + ":" + identity.ProviderUserID
	identity.CreatedOn = time.Now()
	m.identities[identity.ID] = identity
	return nil
}

func (m *memIdentityRepo) GetByProviderID(ctx context.Context, provider, providerUserID string) (*model.Identity, error) {
	for _, identity := range m.identities {
		if identity.Provider == provider && identity.ProviderUserID == providerUserID {
			return identity, nil
		}
	}
	return nil, nil
}

func (m *memIdentityRepo) GetByUserID(ctx context.Context, userID string) ([]*model.Identity, error) {
	var result []*model.Identity
	for _, identity := range m.identities {
		if identity.UserID == userID {
			result = append(result, identity)
		}
	}
	return result, nil
}

type memTokenRepo struct {
	tokens map[string]*service.RefreshToken
}

func newMemTokenRepo() *memTokenRepo {
	return &memTokenRepo{tokens: make(map[string]*service.RefreshToken)}
}

func (m *memTokenRepo) CreateRefreshToken(ctx context.Context, token *service.RefreshToken) error {
	m.tokens[token.TokenHash] = token
	return nil
}

func (m *memTokenRepo) GetRefreshTokenByHash(ctx context.Context, hash string) (*service.RefreshToken, error) {
	return m.tokens[hash], nil
}

func (m *memTokenRepo) RevokeRefreshToken(ctx context.Context, hash string) error {
	if token, ok := m.tokens[hash]; ok {
		token.Revoked = true
	}
	return nil
}

func (m *memTokenRepo) RevokeAllUserTokens(ctx context.Context, userID string) error {
	for _, token := range m.tokens {
		if token.UserID == userID {
			token.Revoked = true
		}
	}
	return nil
}

func (m *memTokenRepo) DeleteExpiredTokens(ctx context.Context) error {
	return nil
}

type memGroupRepo struct {
	groups      map[string]*model.StudyGroup
	memberships *memMembershipRepo
	nextID      int
}

func newMemGroupRepo(memberships *memMembershipRepo) *memGroupRepo {
	return &memGroupRepo{
		groups:      make(map[string]*model.StudyGroup),
		memberships: memberships,
	}
}

func (m *memGroupRepo) CreateWithCreator(ctx context.Context, group *model.StudyGroup) error {
	m.nextID++
	group.ID = fmt.Sprintf("study_group:%d", m.nextID)
	group.CreatedOn = time.Now()
	group.UpdatedOn = time.Now()
	m.groups[group.ID] = group
	return m.memberships.Create(ctx, &model.GroupMembership{
		UserID:  group.CreatorID,
		GroupID: group.ID,
	})
}

func (m *memGroupRepo) GetByID(ctx context.Context, id string) (*model.StudyGroup, error) {
	return m.groups[id], nil
}

func (m *memGroupRepo) List(ctx context.Context) ([]*model.StudyGroup, error) {
	result := make([]*model.StudyGroup, 0, len(m.groups))
	for _, group := range m.groups {
		result = append(result, group)
	}
	return result, nil
}

func (m *memGroupRepo) ListByStatus(ctx context.Context, status model.GroupStatus) ([]*model.StudyGroup, error) {
	var result []*model.StudyGroup
	for _, group := range m.groups {
		if group.Status == status {
			result = append(result, group)
		}
	}
	return result, nil
}

func (m *memGroupRepo) Update(ctx context.Context, group *model.StudyGroup) error {
	m.groups[group.ID] = group
	return nil
}

func (m *memGroupRepo) UpdateStatus(ctx context.Context, id string, status model.GroupStatus) (*model.StudyGroup, error) {
	group, ok := m.groups[id]
	if !ok {
		return nil, nil
	}
	group.Status = status
	return group, nil
}

func (m *memGroupRepo) Delete(ctx context.Context, id string) error {
	delete(m.groups, id)
	for key, membership := range m.memberships.memberships {
		if membership.GroupID == id {
			delete(m.memberships.memberships, key)
		}
	}
	return nil
}

func (m *memGroupRepo) CountGroups(ctx context.Context) (int, error) {
	return len(m.groups), nil
}

type memMembershipRepo struct {
	memberships map[string]*model.GroupMembership
	userRepo    *memUserRepo
	nextID      int
}

func newMemMembershipRepo(userRepo *memUserRepo) *memMembershipRepo {
	return &memMembershipRepo{
		memberships: make(map[string]*model.GroupMembership),
		userRepo:    userRepo,
	}
}

func memKey(userID, groupID string) string { return userID + "|" + groupID }

func (m *memMembershipRepo) Create(ctx context.Context, membership *model.GroupMembership) error {
	m.nextID++
	membership.ID = fmt.Sprintf("group_membership:%d", m.nextID)
	membership.JoinedOn = time.Now()
	m.memberships[memKey(membership.UserID, membership.GroupID)] = membership
	return nil
}

func (m *memMembershipRepo) Get(ctx context.Context, userID, groupID string) (*model.GroupMembership, error) {
	return m.memberships[memKey(userID, groupID)], nil
}

func (m *memMembershipRepo) Delete(ctx context.Context, userID, groupID string) error {
	delete(m.memberships, memKey(userID, groupID))
	return nil
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

type memSessionRepo struct {
	sessions map[string]*model.StudySession
	nextID   int
}

func newMemSessionRepo() *memSessionRepo {
	return &memSessionRepo{sessions: make(map[string]*model.StudySession)}
}

func (m *memSessionRepo) Create(ctx context.Context, session *model.StudySession) error {
	m.nextID++
	session.ID = fmt.Sprintf("study_session:%d", m.nextID)
	session.CreatedOn = time.Now()
	session.UpdatedOn = time.Now()
	m.sessions[session.ID] = session
	return nil
}

func (m *memSessionRepo) GetByID(ctx context.Context, id string) (*model.StudySession, error) {
	return m.sessions[id], nil
}

func (m *memSessionRepo) List(ctx context.Context) ([]*model.StudySession, error) {
	result := make([]*model.StudySession, 0, len(m.sessions))
	for _, session := range m.sessions {
		result = append(result, session)
	}
	return result, nil
}

func (m *memSessionRepo) ListByGroup(ctx context.Context, groupID string) ([]*model.StudySession, error) {
	var result []*model.StudySession
	for _, session := range m.sessions {
		if session.GroupID != nil && *session.GroupID == groupID {
			result = append(result, session)
		}
	}
	return result, nil
}

func (m *memSessionRepo) ListByHost(ctx context.Context, hostID string) ([]*model.StudySession, error) {
	var result []*model.StudySession
	for _, session := range m.sessions {
		if session.HostID == hostID {
			result = append(result, session)
		}
	}
	return result, nil
}

func (m *memSessionRepo) Update(ctx context.Context, session *model.StudySession) error {
	m.sessions[session.ID] = session
	return nil
}

func (m *memSessionRepo) Delete(ctx context.Context, id string) error {
	delete(m.sessions, id)
	return nil
}

func (m *memSessionRepo) CountSessions(ctx context.Context) (int, error) {
	return len(m.sessions), nil
}

func (m *memSessionRepo) CountSessionsByGroup(ctx context.Context, groupID string) (int, error) {
	count := 0
	for _, session := range m.sessions {
		if session.GroupID != nil && *session.GroupID == groupID {
			count++
		}
	}
	return count, nil
}

type memRSVPRepo struct {
	rsvps  map[string]*model.SessionRSVP
	nextID int
}

func newMemRSVPRepo() *memRSVPRepo {
	return &memRSVPRepo{rsvps: make(map[string]*model.SessionRSVP)}
}

func (m *memRSVPRepo) Create(ctx context.Context, rsvp *model.SessionRSVP) error {
	m.nextID++
	rsvp.ID = fmt.Sprintf("session_rsvp:%d", m.nextID)
	rsvp.CreatedOn = time.Now()
	m.rsvps[memKey(rsvp.UserID, rsvp.SessionID)] = rsvp
	return nil
}

func (m *memRSVPRepo) Get(ctx context.Context, userID, sessionID string) (*model.SessionRSVP, error) {
	return m.rsvps[memKey(userID, sessionID)], nil
}

func (m *memRSVPRepo) Delete(ctx context.Context, userID, sessionID string) error {
	delete(m.rsvps, memKey(userID, sessionID))
	return nil
}

func (m *memRSVPRepo) MarkAttended(ctx context.Context, userID, sessionID string) (bool, error) {
	rsvp, ok := m.rsvps[memKey(userID, sessionID)]
	if !ok || rsvp.Attended {
		return false, nil
	}
	rsvp.Attended = true
	return true, nil
}

func (m *memRSVPRepo) ListBySession(ctx context.Context, sessionID string) ([]*model.SessionRSVP, error) {
	var result []*model.SessionRSVP
	for _, rsvp := range m.rsvps {
		if rsvp.SessionID == sessionID {
			result = append(result, rsvp)
		}
	}
	return result, nil
}

func (m *memRSVPRepo) CountAttendedByUser(ctx context.Context, userID string) (int, error) {
	count := 0
	for _, rsvp := range m.rsvps {
		if rsvp.UserID == userID && rsvp.Attended {
			count++
		}
	}
	return count, nil
}

type memMessageRepo struct {
	messages []*model.SessionMessage
	nextID   int
}

func (m *memMessageRepo) Create(ctx context.Context, message *model.SessionMessage) error {
	m.nextID++
	message.ID = fmt.Sprintf("session_message:%d", m.nextID)
	message.CreatedOn = time.Now()
	m.messages = append(m.messages, message)
	return nil
}

func (m *memMessageRepo) ListBySession(ctx context.Context, sessionID string) ([]*model.SessionMessage, error) {
	var result []*model.SessionMessage
	for _, message := range m.messages {
		if message.SessionID == sessionID {
			result = append(result, message)
		}
	}
	return result, nil
}

type memResourceRepo struct {
	resources map[string]*model.SessionResource
	order     []string
	nextID    int
}

func newMemResourceRepo() *memResourceRepo {
	return &memResourceRepo{resources: make(map[string]*model.SessionResource)}
}

func (m *memResourceRepo) Create(ctx context.Context, resource *model.SessionResource) error {
	m.nextID++
	resource.ID = fmt.Sprintf("session_resource:%d", m.nextID)
	resource.CreatedOn = time.Now()
	m.resources[resource.ID] = resource
	m.order = append(m.order, resource.ID)
	return nil
}

func (m *memResourceRepo) GetByID(ctx context.Context, id string) (*model.SessionResource, error) {
	return m.resources[id], nil
}

func (m *memResourceRepo) ListBySession(ctx context.Context, sessionID string) ([]*model.SessionResource, error) {
	var result []*model.SessionResource
	for _, id := range m.order {
		if resource, ok := m.resources[id]; ok && resource.SessionID == sessionID {
			result = append(result, resource)
		}
	}
	return result, nil
}

func (m *memResourceRepo) Delete(ctx context.Context, id string) error {
	delete(m.resources, id)
	return nil
}

type memBadgeRepo struct {
	badges map[string][]*model.Badge
}

func newMemBadgeRepo() *memBadgeRepo {
	return &memBadgeRepo{badges: make(map[string][]*model.Badge)}
}

func (m *memBadgeRepo) ListByUser(ctx context.Context, userID string) ([]*model.Badge, error) {
	return m.badges[userID], nil
}

func (m *memBadgeRepo) LatestByUser(ctx context.Context, userID string) (*model.Badge, error) {
	if badges := m.badges[userID]; len(badges) > 0 {
		return badges[0], nil
	}
	return nil, nil
}

// memCounts satisfies the counts interface by delegating to the live fakes
type memCounts struct {
	users    *memUserRepo
	groups   *memGroupRepo
	sessions *memSessionRepo
}

func (m *memCounts) CountUsers(ctx context.Context) (int, error) {
	return len(m.users.users), nil
}

func (m *memCounts) CountGroups(ctx context.Context) (int, error) {
	return m.groups.CountGroups(ctx)
}

func (m *memCounts) CountSessions(ctx context.Context) (int, error) {
	return m.sessions.CountSessions(ctx)
}

func (m *memCounts) CountSessionsByGroup(ctx context.Context, groupID string) (int, error) {
	return m.sessions.CountSessionsByGroup(ctx, groupID)
}

// testEnv wires real services over the in-memory stores, plus every handler
type testEnv struct {
	userRepo       *memUserRepo
	identityRepo   *memIdentityRepo
	groupRepo      *memGroupRepo
	membershipRepo *memMembershipRepo
	sessionRepo    *memSessionRepo
	rsvpRepo       *memRSVPRepo
	messageRepo    *memMessageRepo
	resourceRepo   *memResourceRepo
	badgeRepo      *memBadgeRepo

	authService    *service.AuthService
	groupService   *service.GroupService
	sessionService *service.SessionService

	auth    *AuthHandler
	groups  *GroupHandler
	session *SessionHandler
	collab  *CollaborationHandler
	stats   *StatsHandler
	profile *ProfileHandler
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	userRepo := newMemUserRepo()
	identityRepo := newMemIdentityRepo()
	tokenRepo := newMemTokenRepo()
	membershipRepo := newMemMembershipRepo(userRepo)
	groupRepo := newMemGroupRepo(membershipRepo)
	sessionRepo := newMemSessionRepo()
	rsvpRepo := newMemRSVPRepo()
	messageRepo := &memMessageRepo{}
	resourceRepo := newMemResourceRepo()
	badgeRepo := newMemBadgeRepo()
	counts := &memCounts{users: userRepo, groups: groupRepo, sessions: sessionRepo}

	privateKey, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("failed to generate test RSA key: %v", err)
	}
	jwtService := jwt.NewTestService(privateKey, "test-issuer", 15*time.Minute)

	tokenService := service.NewTokenService(service.TokenServiceConfig{
		JWTService:      jwtService,
		TokenRepo:       tokenRepo,
		RefreshDuration: 24 * time.Hour,
	})
	authService := service.NewAuthService(service.AuthServiceConfig{
		UserRepo:     userRepo,
		IdentityRepo: identityRepo,
		TokenService: tokenService,
	})
	gamification := service.NewGamificationService(service.GamificationServiceConfig{Repo: userRepo})
	groupService := service.NewGroupService(service.GroupServiceConfig{
		GroupRepo:      groupRepo,
		MembershipRepo: membershipRepo,
		UserRepo:       userRepo,
		Gamification:   gamification,
	})
	sessionService := service.NewSessionService(service.SessionServiceConfig{
		SessionRepo:    sessionRepo,
		RSVPRepo:       rsvpRepo,
		MembershipRepo: membershipRepo,
		UserRepo:       userRepo,
		Gamification:   gamification,
	})
	collabService := service.NewCollaborationService(service.CollaborationServiceConfig{
		SessionRepo:  sessionRepo,
		RSVPRepo:     rsvpRepo,
		MessageRepo:  messageRepo,
		ResourceRepo: resourceRepo,
		UserRepo:     userRepo,
	})
	statsService := service.NewStatsService(service.StatsServiceConfig{
		LeaderboardRepo: userRepo,
		BadgeRepo:       badgeRepo,
		CountsRepo:      counts,
		GroupRepo:       groupRepo,
		MembershipRepo:  membershipRepo,
		RSVPRepo:        rsvpRepo,
		SessionRepo:     sessionRepo,
		UserRepo:        userRepo,
		SessionService:  sessionService,
	})

	return &testEnv{
		userRepo:       userRepo,
		identityRepo:   identityRepo,
		groupRepo:      groupRepo,
		membershipRepo: membershipRepo,
		sessionRepo:    sessionRepo,
		rsvpRepo:       rsvpRepo,
		messageRepo:    messageRepo,
		resourceRepo:   resourceRepo,
		badgeRepo:      badgeRepo,
		authService:    authService,
		groupService:   groupService,
		sessionService: sessionService,
		auth:           NewAuthHandler(authService),
		groups:         NewGroupHandler(groupService),
		session:        NewSessionHandler(sessionService),
		collab:         NewCollaborationHandler(collabService),
		stats:          NewStatsHandler(statsService),
		profile:        NewProfileHandler(authService, statsService),
	}
}

// registerUser creates an account through the auth service and returns it
func (e *testEnv) registerUser(t *testing.T, email string) *model.User {
	t.Helper()
	result, err := e.authService.Register(context.Background(), service.RegisterRequest{
		Email:    email,
		Password: "password123",
	})
	if err != nil {
		t.Fatalf("failed to register %s: %v", email, err)
	}
	return result.User
}

// registerAdmin creates an account and promotes it to admin
func (e *testEnv) registerAdmin(t *testing.T, email string) *model.User {
	t.Helper()
	user := e.registerUser(t, email)
	user.Role = model.UserRoleAdmin
	return user
}

// Request helpers

func makeJSONRequest(method, path string, body interface{}) *http.Request {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

// asUser stamps the request context the way the auth middleware would
func asUser(req *http.Request, user *model.User) *http.Request {
	claims := &jwt.Claims{
		Subject: user.ID,
		UserID:  user.ID,
		Email:   user.Email,
		Role:    string(user.Role),
	}
	ctx := context.WithValue(req.Context(), middleware.UserIDKey, user.ID)
	ctx = context.WithValue(ctx, middleware.UserEmailKey, user.Email)
	ctx = context.WithValue(ctx, middleware.ClaimsKey, claims)
	return req.WithContext(ctx)
}

func parseErrorResponse(t *testing.T, body []byte) *model.ProblemDetails {
	t.Helper()
	var problem model.ProblemDetails
	if err := json.Unmarshal(body, &problem); err != nil {
		t.Fatalf("failed to parse error response: %v (body: %s)", err, body)
	}
	return &problem
}

// decodeData unmarshals the "data" member of the response envelope into v
func decodeData(t *testing.T, body []byte, v interface{}) {
	t.Helper()
	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		t.Fatalf("failed to parse response envelope: %v (body: %s)", err, body)
	}
	if err := json.Unmarshal(envelope.Data, v); err != nil {
		t.Fatalf("failed to parse data member: %v (data: %s)", err, envelope.Data)
	}
}

func stringPtr(s string) *string {
	return &s
}
