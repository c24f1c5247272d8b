package httpapi

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/station-labs/station/authz"
	"github.com/station-labs/station/factory"
	"github.com/station-labs/station/model"
	"github.com/station-labs/station/policy"
	"github.com/station-labs/station/repository"
	"github.com/station-labs/station/storage"
	"github.com/station-labs/station/store"
	"github.com/station-labs/station/upgrader"
)

// testHarness wires a full Server against an in-memory database, the same
// collaborators cmd/stationd assembles in production, minus network
// transport and persistence.
type testHarness struct {
	server *Server
	users  *repository.UserRepository
	groups *repository.UserGroupRepository
	perms  *repository.PermissionRepository
}

func newTestHarness(t *testing.T) *testHarness {
	t.Helper()
	db := storage.NewMemDB()

	users := repository.NewUserRepository(db)
	groups := repository.NewUserGroupRepository(db)
	accounts := repository.NewAccountRepository(db)
	assets := repository.NewAssetRepository(db)
	addressBook := repository.NewAddressBookRepository(db)
	policies := repository.NewPolicyRepository(db)
	namedRules := repository.NewNamedRuleRepository(db)
	permissions := repository.NewPermissionRepository(db)
	notifications := repository.NewNotificationRepository(db)
	requests := repository.NewRequestRepository(db)

	upgraderSvc := upgrader.NewService(nil, nil, nil)
	resolver := &factory.RepositoryResolver{
		Users:        users,
		Groups:       groups,
		Accounts:     accounts,
		Assets:       assets,
		AddressBook:  addressBook,
		Policies:     policies,
		NamedRules:   namedRules,
		Permissions:  permissions,
		Upgrader:     upgraderSvc,
		SystemCaller: model.Principal{0x01},
	}
	policyResolver := &policy.RepositoryResolver{
		Users:      users,
		Groups:     groups,
		NamedRules: namedRules,
		Addresses:  addressBook,
	}

	limiter := authz.NewLimiter()
	engine := authz.NewEngine(permissions, users, limiter, func() bool { return true })

	cfg := Config{
		Requests:       requests,
		Users:          users,
		Groups:         groups,
		Accounts:       accounts,
		Assets:         assets,
		AddressBook:    addressBook,
		Policies:       policies,
		NamedRules:     namedRules,
		Permissions:    permissions,
		Notifications:  notifications,
		Authz:          engine,
		Factories:      factory.NewStationRegistry(),
		Resolver:       resolver,
		PolicyResolver: policyResolver,
		Accessor:       store.New(),
	}

	return &testHarness{server: New(cfg), users: users, groups: groups, perms: permissions}
}

// withCaller returns r with caller stashed under the same context key
// principalResolver.Middleware uses, for handler tests that bypass the
// bearer-token middleware entirely.
func withCaller(r *http.Request, caller authz.Caller) *http.Request {
	ctx := context.WithValue(r.Context(), callerContextKey, caller)
	return r.WithContext(ctx)
}

func doRequest(t *testing.T, h http.Handler, method, target string, body []byte, caller authz.Caller) *httptest.ResponseRecorder {
	t.Helper()
	var r *http.Request
	if body != nil {
		r = httptest.NewRequest(method, target, bytes.NewReader(body))
	} else {
		r = httptest.NewRequest(method, target, nil)
	}
	r = withCaller(r, caller)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, r)
	return rec
}

func mustRegisterAdminUser(t *testing.T, h *testHarness, principal model.Principal) model.UUID {
	t.Helper()
	u := &model.User{
		ID:         model.NewUUID(),
		Identities: map[string]model.Principal{principal.String(): principal},
		Groups:     map[model.UUID]struct{}{model.AdminGroupID: {}},
		Name:       "admin-" + principal.String(),
		Status:     model.UserStatusActive,
	}
	require.NoError(t, h.users.Put(u))
	return u.ID
}
