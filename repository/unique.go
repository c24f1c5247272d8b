package repository

import (
	"github.com/station-labs/station/model"
	"github.com/station-labs/station/stationerr"
	"github.com/station-labs/station/storage"
)

// UniqueIndex enforces a uniqueness constraint over a normalized string key
// (normalized account/user name, symbol+blockchain pair, address book
// address), per spec.md §4.5: "name uniqueness is enforced via a dedicated
// unique-index repository consulted before the primary write." The stored
// value is the owning entity id, so Reserve can tell a no-op rename from a
// genuine collision.
type UniqueIndex struct {
	db     storage.Database
	prefix []byte
}

// NewUniqueIndex constructs a UniqueIndex namespaced under prefix.
func NewUniqueIndex(db storage.Database, prefix string) *UniqueIndex {
	return &UniqueIndex{db: db, prefix: append([]byte(prefix), '/')}
}

func (u *UniqueIndex) key(normalized string) []byte {
	return append(append([]byte(nil), u.prefix...), []byte(normalized)...)
}

// Lookup returns the id owning normalized, if any.
func (u *UniqueIndex) Lookup(normalized string) (model.UUID, bool, error) {
	raw, err := u.db.Get(u.key(normalized))
	if err == storage.ErrKeyNotFound {
		return model.NilUUID, false, nil
	}
	if err != nil {
		return model.NilUUID, false, err
	}
	var id model.UUID
	copy(id[:], raw)
	return id, true, nil
}

// Reserve claims normalized for id, failing with stationerr.AlreadyExists if
// a different id already holds it. Reserving the same (normalized, id) pair
// again is a no-op, so renaming a field back to its own current value never
// errors.
func (u *UniqueIndex) Reserve(field, normalized string, id model.UUID) error {
	owner, exists, err := u.Lookup(normalized)
	if err != nil {
		return err
	}
	if exists && owner != id {
		return stationerr.AlreadyExists(field, "%s %q is already in use", field, normalized)
	}
	if exists {
		return nil
	}
	return u.db.Put(u.key(normalized), id[:])
}

// Release frees normalized, e.g. on rename or delete, so the prior value can
// be reused by a different entity.
func (u *UniqueIndex) Release(normalized string) error {
	return u.db.Delete(u.key(normalized))
}

// ReplaceReservation releases oldNormalized (when it differs from
// newNormalized) and reserves newNormalized for id, the sequence every
// rename-aware Put uses.
func (u *UniqueIndex) ReplaceReservation(field, oldNormalized, newNormalized string, id model.UUID) error {
	if oldNormalized == newNormalized {
		return u.Reserve(field, newNormalized, id)
	}
	if err := u.Reserve(field, newNormalized, id); err != nil {
		return err
	}
	return u.Release(oldNormalized)
}
