package model

// AllowScope controls which callers an Allow admits before even checking the
// users/groups sets.
type AllowScope string

const (
	AllowScopePublic        AllowScope = "public"
	AllowScopeAuthenticated AllowScope = "authenticated"
	AllowScopeRestricted    AllowScope = "restricted"
)

// Allow is the authorization predicate attached to a Permission and, via
// UserSpec, reused inside Rule trees.
type Allow struct {
	Scope      AllowScope
	Users      map[UUID]struct{}
	UserGroups map[UUID]struct{}
}

// GroupMembership resolves a user's group memberships; callers supply it so
// Allow evaluation never reaches back into a repository directly.
type GroupMembership func(user UUID) map[UUID]struct{}

// Permits reports whether caller (identified by its resolved user id, or
// NilUUID if anonymous/unrecognized) satisfies a, per spec.md §3:
//
//	Public: always
//	Authenticated: caller is not anonymous
//	Restricted: caller in Users, or caller's groups intersect UserGroups
func (a Allow) Permits(caller UUID, anonymous bool, groups GroupMembership) bool {
	switch a.Scope {
	case AllowScopePublic:
		return true
	case AllowScopeAuthenticated:
		return !anonymous
	case AllowScopeRestricted:
		if anonymous {
			return false
		}
		if _, ok := a.Users[caller]; ok {
			return true
		}
		if len(a.UserGroups) == 0 {
			return false
		}
		memberOf := groups(caller)
		for g := range a.UserGroups {
			if _, ok := memberOf[g]; ok {
				return true
			}
		}
		return false
	default:
		return false
	}
}

// ResourceKind tags the category of resource a Permission governs.
type ResourceKind string

const (
	ResourceKindUser           ResourceKind = "user"
	ResourceKindUserGroup      ResourceKind = "user_group"
	ResourceKindAccount        ResourceKind = "account"
	ResourceKindAsset          ResourceKind = "asset"
	ResourceKindAddressBook    ResourceKind = "address_book"
	ResourceKindRequest        ResourceKind = "request"
	ResourceKindRequestPolicy  ResourceKind = "request_policy"
	ResourceKindNamedRule      ResourceKind = "named_rule"
	ResourceKindPermission     ResourceKind = "permission"
	ResourceKindSystemInfo     ResourceKind = "system_info"
	ResourceKindExternalCanist ResourceKind = "external_canister"
	ResourceKindNotification   ResourceKind = "notification"
)

// ActionKind enumerates the verbs a Resource can carry. List is atomic (it
// has no id qualifier); the others may be scoped to "any" or to a specific
// id, per spec.md §3's Resource containment rules.
type ActionKind string

const (
	ActionList                    ActionKind = "list"
	ActionCreate                  ActionKind = "create"
	ActionRead                    ActionKind = "read"
	ActionUpdate                  ActionKind = "update"
	ActionDelete                  ActionKind = "delete"
	ActionTransfer                ActionKind = "transfer"
	ActionSystemInfo              ActionKind = "system_info"
	ActionManageSystemInfo        ActionKind = "manage_system_info"
	ActionCallExternalCanister    ActionKind = "call_external_canister"
	ActionChangeExternalCanister  ActionKind = "change_external_canister"
)

// Resource identifies what a caller is trying to do. ID is meaningful only
// for Read/Update/Delete; IDAny marks the "any id" form used by
// Permission grants (e.g. Read(any) covers Read(id=x) for any x).
type Resource struct {
	Kind   ResourceKind
	Action ActionKind
	ID     UUID
	IDAny  bool
	// Target is used by Call/Transfer-style actions scoped by something
	// other than an entity id (a method name, an account id).
	Target string
}

// Contains reports whether r (the grant) structurally covers other (the
// requirement), per spec.md §4.3 point 3: "Read(any) ⊇ Read(id=x); List is
// atomic."
func (r Resource) Contains(other Resource) bool {
	if r.Kind != other.Kind || r.Action != other.Action {
		return false
	}
	switch r.Action {
	case ActionList, ActionSystemInfo, ActionManageSystemInfo:
		return true
	case ActionCreate:
		return true
	case ActionRead, ActionUpdate, ActionDelete:
		if r.IDAny {
			return true
		}
		return !other.IDAny && r.ID == other.ID
	case ActionTransfer, ActionCallExternalCanister, ActionChangeExternalCanister:
		if r.Target == "" {
			return true
		}
		return r.Target == other.Target
	default:
		return r == other
	}
}

// Permission binds a Resource grant to the Allow predicate that authorizes
// it.
type Permission struct {
	Resource Resource
	Allow    Allow
}
