package repository

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/station-labs/station/model"
	"github.com/station-labs/station/storage"
)

func newTestUser(name string, identity model.Principal, groups ...model.UUID) *model.User {
	groupSet := make(map[model.UUID]struct{}, len(groups))
	for _, g := range groups {
		groupSet[g] = struct{}{}
	}
	return &model.User{
		ID:         model.NewUUID(),
		Name:       name,
		Identities: map[string]model.Principal{identity.String(): identity},
		Groups:     groupSet,
		Status:     model.UserStatusActive,
	}
}

func TestUserRepositoryPutRejectsDuplicateName(t *testing.T) {
	db := storage.NewMemDB()
	repo := NewUserRepository(db)

	first := newTestUser("alice", model.Principal{0x01})
	require.NoError(t, repo.Put(first))

	second := newTestUser("Alice", model.Principal{0x02})
	err := repo.Put(second)
	require.Error(t, err)
}

func TestUserRepositoryPutAllowsRenamingSameUser(t *testing.T) {
	db := storage.NewMemDB()
	repo := NewUserRepository(db)

	u := newTestUser("alice", model.Principal{0x01})
	require.NoError(t, repo.Put(u))

	u.Name = "alice renamed"
	require.NoError(t, repo.Put(u))

	got, ok, err := repo.Get(u.ID)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "alice renamed", got.Name)
}

func TestUserRepositoryByIdentity(t *testing.T) {
	db := storage.NewMemDB()
	repo := NewUserRepository(db)

	identity := model.Principal{0xaa, 0xbb}
	u := newTestUser("bob", identity)
	require.NoError(t, repo.Put(u))

	got, ok, err := repo.ByIdentity(identity)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, u.ID, got.ID)

	_, ok, err = repo.ByIdentity(model.Principal{0xff})
	require.NoError(t, err)
	require.False(t, ok)
}

func TestUserRepositoryByGroup(t *testing.T) {
	db := storage.NewMemDB()
	repo := NewUserRepository(db)

	admin := newTestUser("admin", model.Principal{0x01}, model.AdminGroupID)
	plain := newTestUser("plain", model.Principal{0x02})
	require.NoError(t, repo.Put(admin))
	require.NoError(t, repo.Put(plain))

	got, err := repo.ByGroup(model.AdminGroupID)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, admin.ID, got[0].ID)
}

func TestUserRepositoryRemoveReleasesName(t *testing.T) {
	db := storage.NewMemDB()
	repo := NewUserRepository(db)

	u := newTestUser("carol", model.Principal{0x03})
	require.NoError(t, repo.Put(u))
	require.NoError(t, repo.Remove(u.ID))

	reused := newTestUser("carol", model.Principal{0x04})
	require.NoError(t, repo.Put(reused))
}

func TestUserGroupRepositoryRefusesRemovingBuiltIn(t *testing.T) {
	db := storage.NewMemDB()
	repo := NewUserGroupRepository(db)

	err := repo.Remove(model.AdminGroupID)
	require.Error(t, err)
}

func TestUserGroupRepositoryPutGet(t *testing.T) {
	db := storage.NewMemDB()
	repo := NewUserGroupRepository(db)

	g := &model.UserGroup{ID: model.NewUUID(), Name: "treasury"}
	require.NoError(t, repo.Put(g))

	got, ok, err := repo.Get(g.ID)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "treasury", got.Name)
}
