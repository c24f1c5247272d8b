package repository

import (
	"encoding/json"

	"github.com/station-labs/station/model"
	"github.com/station-labs/station/storage"
)

// permissionKey renders a Resource into a stable string identity. Two
// Resources with the same (Kind, Action, ID, IDAny, Target) are the same
// permission grant, per spec.md §3's "one Allow per Resource."
func permissionKey(r model.Resource) string {
	b, _ := json.Marshal(r)
	return string(b)
}

// PermissionRepository stores the single Allow grant for each distinct
// Resource. Unlike the entity repositories above, a Resource (not a UUID)
// is the natural primary key, so this wraps storage.Database directly
// rather than the generic Repository[T] built around model.UUID ids.
type PermissionRepository struct {
	db storage.Database
}

func NewPermissionRepository(db storage.Database) *PermissionRepository {
	return &PermissionRepository{db: db}
}

func (pr *PermissionRepository) key(r model.Resource) []byte {
	return append([]byte("permission/"), []byte(permissionKey(r))...)
}

// Get returns the Allow granted for r, defaulting to an empty Restricted
// Allow (permits nobody) when none has been explicitly set, matching
// spec.md §4.3's "resources with no explicit Permission default to denying
// every caller."
func (pr *PermissionRepository) Get(r model.Resource) (model.Allow, error) {
	raw, err := pr.db.Get(pr.key(r))
	if err == storage.ErrKeyNotFound {
		return model.Allow{Scope: model.AllowScopeRestricted}, nil
	}
	if err != nil {
		return model.Allow{}, err
	}
	var allow model.Allow
	if err := json.Unmarshal(raw, &allow); err != nil {
		return model.Allow{}, err
	}
	return allow, nil
}

// Put replaces the Allow granted for r.
func (pr *PermissionRepository) Put(r model.Resource, allow model.Allow) error {
	encoded, err := json.Marshal(allow)
	if err != nil {
		return err
	}
	return pr.db.Put(pr.key(r), encoded)
}

// All returns every explicitly-set (Resource, Allow) pair, for
// list_permissions.
func (pr *PermissionRepository) All() ([]model.Permission, error) {
	rows, err := pr.db.NewRange([]byte("permission/"), []byte("permission0"))
	if err != nil {
		return nil, err
	}
	out := make([]model.Permission, 0, len(rows))
	for _, row := range rows {
		var r model.Resource
		key := row.Key[len("permission/"):]
		if err := json.Unmarshal(key, &r); err != nil {
			continue
		}
		var allow model.Allow
		if err := json.Unmarshal(row.Value, &allow); err != nil {
			return nil, err
		}
		out = append(out, model.Permission{Resource: r, Allow: allow})
	}
	return out, nil
}
