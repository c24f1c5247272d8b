package authz

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/station-labs/station/model"
	"github.com/station-labs/station/repository"
	"github.com/station-labs/station/stationerr"
	"github.com/station-labs/station/storage"
)

func newTestEngine(t *testing.T) (*Engine, storage.Database) {
	t.Helper()
	db := storage.NewMemDB()
	perms := repository.NewPermissionRepository(db)
	users := repository.NewUserRepository(db)
	limiter := NewLimiter()
	ready := func() bool { return true }
	return NewEngine(perms, users, limiter, ready), db
}

func TestAuthorize_EmptyRequiredDenies(t *testing.T) {
	e, _ := newTestEngine(t)
	err := e.Authorize(Caller{Anonymous: true}, nil, time.Now())
	require.Error(t, err)
}

func TestAuthorize_NotReady(t *testing.T) {
	e, _ := newTestEngine(t)
	e.Ready = func() bool { return false }
	err := e.Authorize(Caller{Anonymous: true}, []model.Resource{{Kind: model.ResourceKindSystemInfo, Action: model.ActionSystemInfo}}, time.Now())
	require.Error(t, err)
}

func TestAuthorize_PublicResourceAdmitsAnonymous(t *testing.T) {
	e, _ := newTestEngine(t)
	resource := model.Resource{Kind: model.ResourceKindSystemInfo, Action: model.ActionSystemInfo}
	require.NoError(t, e.Permissions.Put(resource, model.Allow{Scope: model.AllowScopePublic}))

	err := e.Authorize(Caller{Anonymous: true}, []model.Resource{resource}, time.Now())
	require.NoError(t, err)
}

func TestAuthorize_RestrictedDeniesWithoutGrant(t *testing.T) {
	e, _ := newTestEngine(t)
	resource := model.Resource{Kind: model.ResourceKindAccount, Action: model.ActionRead, ID: model.NewUUID()}
	user := model.NewUUID()

	err := e.Authorize(Caller{User: user}, []model.Resource{resource}, time.Now())
	require.Error(t, err)
}

func TestAuthorize_ReadAnyCoversReadByID(t *testing.T) {
	e, _ := newTestEngine(t)
	user := model.NewUUID()
	grant := model.Resource{Kind: model.ResourceKindAccount, Action: model.ActionRead, IDAny: true}
	require.NoError(t, e.Permissions.Put(grant, model.Allow{Scope: model.AllowScopeRestricted, Users: map[model.UUID]struct{}{user: {}}}))

	required := model.Resource{Kind: model.ResourceKindAccount, Action: model.ActionRead, ID: model.NewUUID()}
	err := e.Authorize(Caller{User: user}, []model.Resource{required}, time.Now())
	require.NoError(t, err)
}

func TestAuthorize_BypassForStationAndController(t *testing.T) {
	e, _ := newTestEngine(t)
	resource := model.Resource{Kind: model.ResourceKindSystemInfo, Action: model.ActionManageSystemInfo}
	require.NoError(t, e.Authorize(Caller{IsStation: true}, []model.Resource{resource}, time.Now()))
	require.NoError(t, e.Authorize(Caller{IsController: true}, []model.Resource{resource}, time.Now()))
}

func TestAuthorize_RateLimitExceeded(t *testing.T) {
	e, _ := newTestEngine(t)
	e.Limiter = NewLimiter()
	resource := model.Resource{Kind: model.ResourceKindSystemInfo, Action: model.ActionSystemInfo}
	require.NoError(t, e.Permissions.Put(resource, model.Allow{Scope: model.AllowScopePublic}))

	now := time.Now()
	for i := 0; i < defaultQuota; i++ {
		require.NoError(t, e.Authorize(Caller{Anonymous: true}, []model.Resource{resource}, now))
	}
	err := e.Authorize(Caller{Anonymous: true}, []model.Resource{resource}, now)
	require.Error(t, err)
	require.Equal(t, stationerr.CodeRateLimited, stationerr.CodeOf(err))

	later := now.Add(time.Hour + time.Second)
	require.NoError(t, e.Authorize(Caller{Anonymous: true}, []model.Resource{resource}, later))
}
