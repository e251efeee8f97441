package repository

import "context"

// Counts aggregates the table counts the admin overview needs, delegating
// to the individual repositories.
type Counts struct {
	users    *UserRepository
	groups   *GroupRepository
	sessions *SessionRepository
}

// NewCounts creates a counts aggregate over the given repositories
func NewCounts(users *UserRepository, groups *GroupRepository, sessions *SessionRepository) *Counts {
	return &Counts{users: users, groups: groups, sessions: sessions}
}

// CountUsers returns the total number of registered users
func (c *Counts) CountUsers(ctx context.Context) (int, error) {
	return c.users.CountUsers(ctx)
}

// CountGroups returns the total number of study groups
func (c *Counts) CountGroups(ctx context.Context) (int, error) {
	return c.groups.CountGroups(ctx)
}

// CountSessions returns the total number of study sessions
func (c *Counts) CountSessions(ctx context.Context) (int, error) {
	return c.sessions.CountSessions(ctx)
}

// CountSessionsByGroup returns the number of sessions bound to a group
func (c *Counts) CountSessionsByGroup(ctx context.Context, groupID string) (int, error) {
	return c.sessions.CountSessionsByGroup(ctx, groupID)
}
