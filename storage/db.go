// Package storage provides the ordered key-value store every indexed
// repository (package repository) is built on. It is adapted from the
// teacher's storage/db.go Database interface: the Put/Get/Close contract is
// unchanged, but Delete and an ordered Range iterator are added since
// spec.md §4.5's indexed repositories need lexicographic range scans
// ("Range queries use lexicographic bounds constructed by filling the tail
// with MIN_UUID/MAX_UUID sentinels") that a bare Put/Get map cannot serve. A
// WriteBatch is added for spec.md §4.5's "RefreshIndex" discipline, which
// must delete a set-difference and insert another set-difference as a single
// atomic write.
package storage

import (
	"bytes"
	"errors"
	"sort"
	"sync"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/util"
)

// ErrKeyNotFound is returned by Get when the key is absent, letting callers
// errors.Is against a single sentinel regardless of backend.
var ErrKeyNotFound = errors.New("storage: key not found")

// Database is the ordered key-value contract every repository is built on.
type Database interface {
	Put(key, value []byte) error
	Get(key []byte) ([]byte, error)
	Delete(key []byte) error
	// NewRange returns every (key, value) pair with start <= key < end,
	// ordered ascending by key. A nil end means "no upper bound".
	NewRange(start, end []byte) ([]KV, error)
	// NewBatch returns a WriteBatch applied atomically by Commit.
	NewBatch() WriteBatch
	Close() error
}

// KV is one row of a range scan.
type KV struct {
	Key   []byte
	Value []byte
}

// WriteBatch accumulates Put/Delete operations applied atomically, the
// mechanism RefreshIndex (package repository) uses to keep a primary write
// and its index deltas from ever being observed half-applied.
type WriteBatch interface {
	Put(key, value []byte)
	Delete(key []byte)
	Commit() error
}

// --- In-Memory DB (for testing) ---

// MemDB is an in-memory Database, adapted from the teacher's MemDB. Keys
// live in an unordered map; NewRange sorts the matching keys on every call
// to serve ordered range queries.
type MemDB struct {
	mu   sync.RWMutex
	data map[string][]byte
}

func NewMemDB() *MemDB {
	return &MemDB{data: make(map[string][]byte)}
}

func (db *MemDB) Put(key, value []byte) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	stored := make([]byte, len(value))
	copy(stored, value)
	db.data[string(key)] = stored
	return nil
}

func (db *MemDB) Get(key []byte) ([]byte, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	value, ok := db.data[string(key)]
	if !ok {
		return nil, ErrKeyNotFound
	}
	out := make([]byte, len(value))
	copy(out, value)
	return out, nil
}

func (db *MemDB) Delete(key []byte) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	delete(db.data, string(key))
	return nil
}

func (db *MemDB) NewRange(start, end []byte) ([]KV, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	keys := make([]string, 0, len(db.data))
	for k := range db.data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var out []KV
	for _, k := range keys {
		kb := []byte(k)
		if bytes.Compare(kb, start) < 0 {
			continue
		}
		if end != nil && bytes.Compare(kb, end) >= 0 {
			continue
		}
		out = append(out, KV{Key: kb, Value: append([]byte(nil), db.data[k]...)})
	}
	return out, nil
}

func (db *MemDB) NewBatch() WriteBatch { return &memBatch{db: db} }

// Close satisfies the Database interface for MemDB.
func (db *MemDB) Close() error { return nil }

type memOp struct {
	key    []byte
	value  []byte
	delete bool
}

type memBatch struct {
	db  *MemDB
	ops []memOp
}

func (b *memBatch) Put(key, value []byte) {
	b.ops = append(b.ops, memOp{key: key, value: value})
}

func (b *memBatch) Delete(key []byte) {
	b.ops = append(b.ops, memOp{key: key, delete: true})
}

func (b *memBatch) Commit() error {
	b.db.mu.Lock()
	defer b.db.mu.Unlock()
	for _, op := range b.ops {
		if op.delete {
			delete(b.db.data, string(op.key))
			continue
		}
		stored := make([]byte, len(op.value))
		copy(stored, op.value)
		b.db.data[string(op.key)] = stored
	}
	return nil
}

// --- Persistent DB (for mainnet) ---

// LevelDB is a persistent key-value store using LevelDB, unchanged from the
// teacher's backend choice.
type LevelDB struct {
	db *leveldb.DB
}

// NewLevelDB creates or opens a LevelDB database at the specified path.
func NewLevelDB(path string) (*LevelDB, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, err
	}
	return &LevelDB{db: db}, nil
}

// Put inserts or updates a key-value pair.
func (ldb *LevelDB) Put(key, value []byte) error {
	return ldb.db.Put(key, value, nil)
}

// Get retrieves a value for a given key.
func (ldb *LevelDB) Get(key []byte) ([]byte, error) {
	value, err := ldb.db.Get(key, nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return nil, ErrKeyNotFound
	}
	return value, err
}

// Delete removes a key, a no-op if it is absent.
func (ldb *LevelDB) Delete(key []byte) error {
	return ldb.db.Delete(key, nil)
}

// NewRange performs an ascending scan over [start, end) using goleveldb's
// native ordered iterator.
func (ldb *LevelDB) NewRange(start, end []byte) ([]KV, error) {
	iter := ldb.db.NewIterator(&util.Range{Start: start, Limit: end}, nil)
	defer iter.Release()
	var out []KV
	for iter.Next() {
		out = append(out, KV{
			Key:   append([]byte(nil), iter.Key()...),
			Value: append([]byte(nil), iter.Value()...),
		})
	}
	return out, iter.Error()
}

// NewBatch returns a leveldb.Batch wrapped to satisfy WriteBatch.
func (ldb *LevelDB) NewBatch() WriteBatch {
	return &levelBatch{db: ldb.db, batch: new(leveldb.Batch)}
}

type levelBatch struct {
	db    *leveldb.DB
	batch *leveldb.Batch
}

func (b *levelBatch) Put(key, value []byte) { b.batch.Put(key, value) }
func (b *levelBatch) Delete(key []byte)     { b.batch.Delete(key) }
func (b *levelBatch) Commit() error         { return b.db.Write(b.batch, nil) }

// Close closes the database connection.
func (ldb *LevelDB) Close() error {
	return ldb.db.Close()
}
