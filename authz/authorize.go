// Package authz implements spec.md §4.3's authorize(ctx, required) gate:
// system readiness, non-empty requirement, structural resource containment
// against granted Permissions, and the sliding-window rate limiter.
package authz

import (
	"time"

	"github.com/station-labs/station/model"
	"github.com/station-labs/station/repository"
	"github.com/station-labs/station/stationerr"
)

// Caller identifies who is making the call, resolved by the transport layer
// (api/httpapi's auth middleware) before Authorize is ever consulted.
type Caller struct {
	Principal   model.Principal
	User        model.UUID // NilUUID if the principal maps to no User
	Anonymous   bool
	IsStation   bool // caller's principal equals the station's own
	IsController bool // caller is a platform-level controller
}

// Engine wires the permission repository, group resolver and rate limiter
// together into spec.md §4.3's authorize(ctx, required).
type Engine struct {
	Permissions *repository.PermissionRepository
	Users       *repository.UserRepository
	Limiter     *Limiter
	Ready       func() bool
}

// NewEngine constructs an authz.Engine.
func NewEngine(permissions *repository.PermissionRepository, users *repository.UserRepository, limiter *Limiter, ready func() bool) *Engine {
	return &Engine{Permissions: permissions, Users: users, Limiter: limiter, Ready: ready}
}

// Authorize implements spec.md §4.3's four-point gate in order: readiness,
// non-empty required, per-resource Permission+Allow satisfaction, then the
// rate limiter. The two bypass shortcuts (station and controller callers),
// checked right after the non-empty check, return before both the
// permission checks and the rate limiter. The rate
// limiter is only consulted — consuming a slot — after every other check
// has already passed, per "failing authorization does not consume a
// token."
func (e *Engine) Authorize(caller Caller, required []model.Resource, now time.Time) error {
	if e.Ready != nil && !e.Ready() {
		return stationerr.BadState("system is not fully initialized")
	}
	if len(required) == 0 {
		return stationerr.Forbidden("empty resource requirement denies by default")
	}

	if caller.IsStation || caller.IsController {
		return nil
	}

	groups := func(user model.UUID) map[model.UUID]struct{} {
		return e.Users.GroupMembership(user)
	}

	for _, r := range required {
		if err := e.satisfies(r, caller, groups); err != nil {
			return err
		}
	}

	if e.Limiter != nil && !e.Limiter.Allow(caller.Principal, caller.Anonymous, now) {
		return stationerr.RateLimited("caller exceeded 100 calls in the trailing hour")
	}
	return nil
}

// satisfies reports whether some granted Permission whose Resource
// structurally contains r (spec.md §4.3 point 3: "there exists a
// Permission(r', Allow) with r' ⊇ r") is present and its Allow admits
// caller.
func (e *Engine) satisfies(r model.Resource, caller Caller, groups model.GroupMembership) error {
	granted, err := e.Permissions.All()
	if err != nil {
		return err
	}
	for _, p := range granted {
		if !p.Resource.Contains(r) {
			continue
		}
		if p.Allow.Permits(caller.User, caller.Anonymous, groups) {
			return nil
		}
	}
	return stationerr.Forbidden("caller is not permitted to %s %s", r.Action, r.Kind)
}
