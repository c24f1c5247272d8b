// Package repository implements the indexed persistent repository layer of
// spec.md §4.5: each entity kind lives in an ordered primary map keyed by id,
// plus a set of secondary indexes refreshed atomically with every write via
// the RefreshIndex discipline (compute indexes for the previous and the new
// value, delete previous\current, insert current\previous).
package repository

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/station-labs/station/model"
	"github.com/station-labs/station/stationerr"
	"github.com/station-labs/station/storage"
)

// IndexSpec describes one secondary index over a repository's entity type.
// KeysFor returns the full index keys (namespace-prefixed) a given entity
// value should appear under; Diff-ing two calls to KeysFor is how
// RefreshIndex decides what to insert/delete.
type IndexSpec[T any] struct {
	Name    string
	KeysFor func(T) [][]byte
}

// Repository is a generic indexed repository over one entity kind. It is
// deliberately not safe for concurrent callers on its own — spec.md §5
// requires every write to go through the single logical per-task mutex, so
// callers (the Request Service, factories, etc.) serialize access the same
// way the teacher serializes state-transition application in core/node.go.
type Repository[T any] struct {
	db      storage.Database
	prefix  []byte
	indexes []IndexSpec[T]
	encode  func(T) ([]byte, error)
	decode  func([]byte) (T, error)
}

// New constructs a Repository. prefix namespaces every primary key; encode/
// decode are typically json.Marshal/Unmarshal, matching the teacher's own
// JSON-first persistence idiom (see native/governance's `json:` struct tags).
func New[T any](db storage.Database, prefix string, indexes []IndexSpec[T], encode func(T) ([]byte, error), decode func([]byte) (T, error)) *Repository[T] {
	return &Repository[T]{
		db:      db,
		prefix:  append([]byte(prefix), '/'),
		indexes: indexes,
		encode:  encode,
		decode:  decode,
	}
}

// JSONCodec returns encode/decode funcs backed by encoding/json, the
// default for every concrete repository in this package.
func JSONCodec[T any]() (func(T) ([]byte, error), func([]byte) (T, error)) {
	encode := func(v T) ([]byte, error) { return json.Marshal(v) }
	decode := func(b []byte) (T, error) {
		var v T
		err := json.Unmarshal(b, &v)
		return v, err
	}
	return encode, decode
}

func (r *Repository[T]) primaryKey(id model.UUID) []byte {
	return append(append([]byte(nil), r.prefix...), id[:]...)
}

// Get fetches the entity stored at id.
func (r *Repository[T]) Get(id model.UUID) (T, bool, error) {
	raw, err := r.db.Get(r.primaryKey(id))
	var zero T
	if err == storage.ErrKeyNotFound {
		return zero, false, nil
	}
	if err != nil {
		return zero, false, err
	}
	v, err := r.decode(raw)
	if err != nil {
		return zero, false, err
	}
	return v, true, nil
}

// MustGet fetches the entity or returns a stationerr.NotFound.
func (r *Repository[T]) MustGet(id model.UUID) (T, error) {
	v, ok, err := r.Get(id)
	if err != nil {
		var zero T
		return zero, err
	}
	if !ok {
		var zero T
		return zero, stationerr.NotFound("entity %s not found", id)
	}
	return v, nil
}

// Put inserts or replaces the entity at id, refreshing every registered
// index atomically in the same batch as the primary write, per spec.md
// §4.5's RefreshIndex discipline and §5's "secondary indexes MUST be
// updated in the same task as the primary write."
func (r *Repository[T]) Put(id model.UUID, value T) error {
	previous, existed, err := r.Get(id)
	if err != nil {
		return err
	}
	encoded, err := r.encode(value)
	if err != nil {
		return err
	}
	batch := r.db.NewBatch()
	batch.Put(r.primaryKey(id), encoded)
	for _, idx := range r.indexes {
		var oldKeys [][]byte
		if existed {
			oldKeys = idx.KeysFor(previous)
		}
		newKeys := idx.KeysFor(value)
		refreshIndexBatch(batch, oldKeys, newKeys)
	}
	return batch.Commit()
}

// Remove deletes the entity at id, clearing every index entry it owned.
func (r *Repository[T]) Remove(id model.UUID) error {
	previous, existed, err := r.Get(id)
	if !existed {
		return nil
	}
	if err != nil {
		return err
	}
	batch := r.db.NewBatch()
	batch.Delete(r.primaryKey(id))
	for _, idx := range r.indexes {
		oldKeys := idx.KeysFor(previous)
		refreshIndexBatch(batch, oldKeys, nil)
	}
	return batch.Commit()
}

// refreshIndexBatch implements spec.md §4.5's RefreshIndex{previous,
// current}: delete the set-difference previous\current, insert the
// set-difference current\previous. Index values store the primary key so a
// scan can recover the id without a second lookup.
func refreshIndexBatch(batch storage.WriteBatch, oldKeys, newKeys [][]byte) {
	oldSet := toKeySet(oldKeys)
	newSet := toKeySet(newKeys)
	for k := range oldSet {
		if _, keep := newSet[k]; !keep {
			batch.Delete([]byte(k))
		}
	}
	for k := range newSet {
		if _, already := oldSet[k]; !already {
			batch.Put([]byte(k), []byte{1})
		}
	}
}

func toKeySet(keys [][]byte) map[string]struct{} {
	set := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		set[string(k)] = struct{}{}
	}
	return set
}

// Range scans the primary namespace for ids in [start, end), filling the
// tail of a partial key with model.MinUUID/model.MaxUUID sentinels per
// spec.md §4.5.
func (r *Repository[T]) Range(start, end model.UUID) ([]T, error) {
	startKey := r.primaryKey(start)
	endKey := r.primaryKey(end)
	// primaryKey(end) is an inclusive bound on end's id; NewRange's Limit is
	// exclusive, so advance past it by appending a terminal byte.
	endKey = append(endKey, 0x00)
	rows, err := r.db.NewRange(startKey, endKey)
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, len(rows))
	for _, row := range rows {
		v, err := r.decode(row.Value)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// All returns every entity in the repository, ordered by primary key.
func (r *Repository[T]) All() ([]T, error) {
	return r.Range(model.MinUUID, model.MaxUUID)
}

// IndexRange scans a secondary index namespace directly; callers pass the
// fully-built lower/upper bound keys (typically built with IndexKey below).
func (r *Repository[T]) IndexRange(start, end []byte) ([]storage.KV, error) {
	return r.db.NewRange(start, end)
}

// IndexKey joins an index namespace and its component parts with a
// separator that sorts correctly against model.MinUUID/MaxUUID sentinels
// (0x00 never appears inside a UUID or a normalized string component we
// control, since normalization never emits NUL).
func IndexKey(namespace string, parts ...[]byte) []byte {
	buf := bytes.NewBufferString(namespace)
	buf.WriteByte('/')
	for i, p := range parts {
		if i > 0 {
			buf.WriteByte(0x00)
		}
		buf.Write(p)
	}
	return buf.Bytes()
}

// ExtractID recovers the primary id appended as the final 16 bytes of an
// index key built with IndexKey(ns, ..., id[:]).
func ExtractID(key []byte) (model.UUID, error) {
	if len(key) < 16 {
		return model.NilUUID, fmt.Errorf("repository: index key too short to contain an id")
	}
	var id model.UUID
	copy(id[:], key[len(key)-16:])
	return id, nil
}
