package model

import (
	"strings"
)

// UserStatus is the lifecycle flag on a User.
type UserStatus string

const (
	UserStatusActive   UserStatus = "active"
	UserStatusInactive UserStatus = "inactive"
)

// Valid reports whether s is a known status.
func (s UserStatus) Valid() bool {
	switch s {
	case UserStatusActive, UserStatusInactive:
		return true
	default:
		return false
	}
}

// User is a station-recognized actor. Invariants (spec.md §3): at least one
// identity; a principal maps to at most one active user; names are unique
// under NormalizeName.
type User struct {
	ID           UUID
	Identities   map[string]Principal // keyed by Principal.String() for set semantics
	Groups       map[UUID]struct{}
	Name         string
	Status       UserStatus
	LastModified Timestamp
}

// NormalizeName case-folds and whitespace-normalizes a name for the
// uniqueness check spec.md §3 requires of both User and UserGroup names.
func NormalizeName(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), " "))
}

// HasIdentity reports whether p is one of u's registered identities.
func (u *User) HasIdentity(p Principal) bool {
	_, ok := u.Identities[p.String()]
	return ok
}

// HasGroup reports group membership.
func (u *User) HasGroup(group UUID) bool {
	_, ok := u.Groups[group]
	return ok
}

// IsActive reports whether u may act as an approver or caller.
func (u *User) IsActive() bool {
	return u.Status == UserStatusActive
}

// Clone returns a deep copy suitable for mutate-then-persist call patterns.
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	clone := &User{
		ID:           u.ID,
		Name:         u.Name,
		Status:       u.Status,
		LastModified: u.LastModified,
		Identities:   make(map[string]Principal, len(u.Identities)),
		Groups:       make(map[UUID]struct{}, len(u.Groups)),
	}
	for k, v := range u.Identities {
		clone.Identities[k] = v
	}
	for k := range u.Groups {
		clone.Groups[k] = struct{}{}
	}
	return clone
}

// UserGroup is a named collection of users referenced by UserSpec.Group and
// by Allow.UserGroups.
type UserGroup struct {
	ID   UUID
	Name string
}

// Reserved ids for the two built-in groups spec.md §3 mandates: they exist
// in every station and can never be removed.
var (
	AdminGroupID    = UUID{0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x01}
	OperatorGroupID = UUID{0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x02}
)

// IsBuiltInGroup reports whether id names one of the two reserved groups.
func IsBuiltInGroup(id UUID) bool {
	return id == AdminGroupID || id == OperatorGroupID
}
