package repository

import (
	"github.com/station-labs/station/model"
	"github.com/station-labs/station/stationerr"
	"github.com/station-labs/station/storage"
)

const nsUserByIdentity = "user_by_identity"
const nsUserByGroup = "user_by_group"

// UserRepository indexes users by normalized name (uniqueness), by
// identity principal (login resolution, spec.md §4.3's caller-to-user
// mapping), and by group membership.
type UserRepository struct {
	repo   *Repository[*model.User]
	names  *UniqueIndex
}

func NewUserRepository(db storage.Database) *UserRepository {
	encode, decode := JSONCodec[*model.User]()
	indexes := []IndexSpec[*model.User]{
		{
			Name: nsUserByIdentity,
			KeysFor: func(u *model.User) [][]byte {
				keys := make([][]byte, 0, len(u.Identities))
				for _, p := range u.Identities {
					keys = append(keys, IndexKey(nsUserByIdentity, []byte(p.String()), u.ID[:]))
				}
				return keys
			},
		},
		{
			Name: nsUserByGroup,
			KeysFor: func(u *model.User) [][]byte {
				keys := make([][]byte, 0, len(u.Groups))
				for g := range u.Groups {
					keys = append(keys, IndexKey(nsUserByGroup, g[:], u.ID[:]))
				}
				return keys
			},
		},
	}
	return &UserRepository{
		repo:  New(db, "user", indexes, encode, decode),
		names: NewUniqueIndex(db, "user_name"),
	}
}

func (ur *UserRepository) Get(id model.UUID) (*model.User, bool, error) { return ur.repo.Get(id) }
func (ur *UserRepository) MustGet(id model.UUID) (*model.User, error)   { return ur.repo.MustGet(id) }
func (ur *UserRepository) All() ([]*model.User, error)                 { return ur.repo.All() }
func (ur *UserRepository) Remove(id model.UUID) error {
	u, ok, err := ur.Get(id)
	if err != nil || !ok {
		return err
	}
	if err := ur.names.Release(model.NormalizeName(u.Name)); err != nil {
		return err
	}
	return ur.repo.Remove(id)
}

// Put persists u after reserving its normalized name, returning
// stationerr.AlreadyExists{field: "name"} on collision.
func (ur *UserRepository) Put(u *model.User) error {
	existing, existed, err := ur.Get(u.ID)
	if err != nil {
		return err
	}
	oldName := ""
	if existed {
		oldName = model.NormalizeName(existing.Name)
	}
	if err := ur.names.ReplaceReservation("name", oldName, model.NormalizeName(u.Name), u.ID); err != nil {
		return err
	}
	return ur.repo.Put(u.ID, u)
}

// ByIdentity resolves the User owning identity p, if any.
func (ur *UserRepository) ByIdentity(p model.Principal) (*model.User, bool, error) {
	start := IndexKey(nsUserByIdentity, []byte(p.String()))
	end := IndexKey(nsUserByIdentity, []byte(p.String()), model.MaxUUID[:])
	rows, err := ur.repo.IndexRange(start, append(end, 0xff))
	if err != nil {
		return nil, false, err
	}
	if len(rows) == 0 {
		return nil, false, nil
	}
	id, err := ExtractID(rows[0].Key)
	if err != nil {
		return nil, false, err
	}
	return ur.Get(id)
}

// ByGroup returns every user in group.
func (ur *UserRepository) ByGroup(group model.UUID) ([]*model.User, error) {
	start := IndexKey(nsUserByGroup, group[:])
	end := IndexKey(nsUserByGroup, group[:], model.MaxUUID[:])
	rows, err := ur.repo.IndexRange(start, append(end, 0xff))
	if err != nil {
		return nil, err
	}
	out := make([]*model.User, 0, len(rows))
	for _, row := range rows {
		id, err := ExtractID(row.Key)
		if err != nil {
			return nil, err
		}
		u, ok, err := ur.Get(id)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, u)
		}
	}
	return out, nil
}

// GroupMembership adapts ByGroup-less direct lookup into the
// model.GroupMembership function shape Allow.Permits needs.
func (ur *UserRepository) GroupMembership(user model.UUID) map[model.UUID]struct{} {
	u, ok, err := ur.Get(user)
	if err != nil || !ok {
		return nil
	}
	return u.Groups
}

// UserGroupRepository indexes UserGroups by normalized name.
type UserGroupRepository struct {
	repo  *Repository[*model.UserGroup]
	names *UniqueIndex
}

func NewUserGroupRepository(db storage.Database) *UserGroupRepository {
	encode, decode := JSONCodec[*model.UserGroup]()
	return &UserGroupRepository{
		repo:  New[*model.UserGroup](db, "user_group", nil, encode, decode),
		names: NewUniqueIndex(db, "user_group_name"),
	}
}

func (gr *UserGroupRepository) Get(id model.UUID) (*model.UserGroup, bool, error) {
	return gr.repo.Get(id)
}
func (gr *UserGroupRepository) MustGet(id model.UUID) (*model.UserGroup, error) {
	return gr.repo.MustGet(id)
}
func (gr *UserGroupRepository) All() ([]*model.UserGroup, error) { return gr.repo.All() }

func (gr *UserGroupRepository) Put(g *model.UserGroup) error {
	existing, existed, err := gr.Get(g.ID)
	if err != nil {
		return err
	}
	oldName := ""
	if existed {
		oldName = model.NormalizeName(existing.Name)
	}
	if err := gr.names.ReplaceReservation("name", oldName, model.NormalizeName(g.Name), g.ID); err != nil {
		return err
	}
	return gr.repo.Put(g.ID, g)
}

// Remove deletes a non-built-in group, refusing the two reserved ids per
// spec.md §3.
func (gr *UserGroupRepository) Remove(id model.UUID) error {
	if model.IsBuiltInGroup(id) {
		return stationerr.Forbidden("group %s is built-in and cannot be removed", id)
	}
	g, ok, err := gr.Get(id)
	if err != nil || !ok {
		return err
	}
	if err := gr.names.Release(model.NormalizeName(g.Name)); err != nil {
		return err
	}
	return gr.repo.Remove(id)
}
