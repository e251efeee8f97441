// Package policy holds the access rules for StudySphere as pure functions.
// Predicates take an actor and the already-loaded resource state and return
// a Decision; they never touch storage, which keeps them trivially testable
// and keeps authorization rules out of handler and repository code.
package policy

import "github.com/studysphere/api/internal/model"

// Decision is the outcome of a policy check. Reason is set when the check
// fails and is safe to surface to the caller.
type Decision struct {
	Allowed bool
	Reason  string
}

func allow() Decision {
	return Decision{Allowed: true}
}

func deny(reason string) Decision {
	return Decision{Allowed: false, Reason: reason}
}

// CanManageSession allows only the session host to update or delete a
// session, or to see its verification code.
func CanManageSession(actorID string, session *model.StudySession) Decision {
	if session.HostID == actorID {
		return allow()
	}
	return deny("only the session host can do this")
}

// CanManageGroup allows only the group creator to update or delete a group.
func CanManageGroup(actorID string, group *model.StudyGroup) Decision {
	if group.CreatorID == actorID {
		return allow()
	}
	return deny("only the group creator can do this")
}

// CanJoinGroup requires the group to be approved and the actor to not
// already be a member.
func CanJoinGroup(group *model.StudyGroup, isMember bool) Decision {
	if group.Status != model.GroupStatusApproved {
		return deny("group is not approved")
	}
	if isMember {
		return deny("already a member of this group")
	}
	return allow()
}

// CanRSVP requires group membership when the session is bound to a group.
// Open sessions (no group) accept any authenticated user.
func CanRSVP(session *model.StudySession, isGroupMember bool) Decision {
	if session.GroupID == nil {
		return allow()
	}
	if isGroupMember {
		return allow()
	}
	return deny("must be a member of the session's group to RSVP")
}

// CanAccessSessionSurfaces gates chat and resources on an existing RSVP.
// Verified attendance is not required, only intent to attend.
func CanAccessSessionSurfaces(hasRSVP bool) Decision {
	if hasRSVP {
		return allow()
	}
	return deny("must RSVP to the session first")
}

// CanDeleteResource allows the user who added the resource or the session
// host to remove it.
func CanDeleteResource(actorID string, resource *model.SessionResource, session *model.StudySession) Decision {
	if resource.AddedByID == actorID || session.HostID == actorID {
		return allow()
	}
	return deny("only the resource owner or the session host can delete it")
}

// CanViewGroup hides non-approved groups from everyone except admins and
// the group's creator.
func CanViewGroup(actor *model.User, group *model.StudyGroup) Decision {
	if group.Status == model.GroupStatusApproved {
		return allow()
	}
	if actor != nil && (actor.IsAdmin() || group.CreatorID == actor.ID) {
		return allow()
	}
	return deny("group is not available")
}

// AdminOnly gates admin surfaces on the admin role.
func AdminOnly(actor *model.User) Decision {
	if actor != nil && actor.IsAdmin() {
		return allow()
	}
	return deny("admin access required")
}
