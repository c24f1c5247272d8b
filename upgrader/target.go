// Package upgrader: StationTarget, the Target implementation cmd/stationd
// registers for model.SystemUpgradeTargetStation. Stop/Start pause and
// resume the HTTP listener; Install writes a replacement binary to disk and
// relies on the surrounding process supervisor (systemd, a container
// orchestrator) to restart the process against it, the same division of
// responsibility the teacher's own deploy/ systemd units assume rather than
// the Go process re-exec'ing itself; Snapshot/Restore dump and reload the
// full KV keyspace through storage.Database's Range/Put primitives.
package upgrader

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/station-labs/station/model"
	"github.com/station-labs/station/storage"
)

func encodeSnapshotRows(rows []storage.KV) ([]byte, error) {
	return json.Marshal(rows)
}

func decodeSnapshotRows(blob []byte) ([]storage.KV, error) {
	var rows []storage.KV
	if err := json.Unmarshal(blob, &rows); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return rows, nil
}

// Stoppable is the subset of *http.Server StationTarget needs, narrowed so
// this file does not import net/http for a single method pair.
type Stoppable interface {
	Shutdown(ctx context.Context) error
}

// Startable restarts a previously-stopped listener. cmd/stationd supplies a
// closure that rebuilds and re-serves its *http.Server, since a
// net/http.Server cannot be reused after Shutdown.
type Startable func(ctx context.Context) error

// StationTarget adapts the running stationd process to the Target
// interface: its own HTTP server and its own database.
type StationTarget struct {
	DB          storage.Database
	BinaryPath  string
	Server      Stoppable
	StartServer Startable
}

// Stop shuts the HTTP server down, per trigger_upgrade's stop step.
func (t *StationTarget) Stop(ctx context.Context) error {
	if t.Server == nil {
		return nil
	}
	return t.Server.Shutdown(ctx)
}

// Start re-serves the HTTP server via the closure cmd/stationd registered.
func (t *StationTarget) Start(ctx context.Context) error {
	if t.StartServer == nil {
		return nil
	}
	return t.StartServer(ctx)
}

// Install writes moduleBytes to BinaryPath, replacing the on-disk binary a
// process supervisor will relaunch. extraChunks is appended after
// moduleBytes per spec.md §4.6's chunked-upload allowance for WASM-sized
// modules too large for a single RPC payload; mode is currently advisory
// since a binary replacement has no "reinstall vs. upgrade" distinction the
// way an actor's stable memory does.
func (t *StationTarget) Install(ctx context.Context, moduleBytes, extraChunks, arg []byte, mode model.InstallMode) error {
	return installBinary(t.BinaryPath, moduleBytes, extraChunks)
}

// installBinary atomically replaces path with moduleBytes||extraChunks,
// shared by StationTarget and ProcessTarget.
func installBinary(path string, moduleBytes, extraChunks []byte) error {
	if path == "" {
		return fmt.Errorf("upgrader: target has no binary path configured")
	}
	tmp := path + ".upgrade"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o755)
	if err != nil {
		return fmt.Errorf("open replacement binary: %w", err)
	}
	if _, err := f.Write(moduleBytes); err != nil {
		f.Close()
		return fmt.Errorf("write replacement binary: %w", err)
	}
	if len(extraChunks) > 0 {
		if _, err := f.Write(extraChunks); err != nil {
			f.Close()
			return fmt.Errorf("write replacement binary chunks: %w", err)
		}
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close replacement binary: %w", err)
	}
	return os.Rename(tmp, path)
}

// Snapshot dumps every key in DB into a Snapshot blob, JSON-encoded as a
// flat key/value array. Restore replays it key-for-key after first
// deleting the existing keyspace, so a restore never leaves stale rows a
// since-deleted key would have removed.
func (t *StationTarget) Snapshot(ctx context.Context) (Snapshot, error) {
	rows, err := t.DB.NewRange(nil, nil)
	if err != nil {
		return Snapshot{}, fmt.Errorf("range full keyspace: %w", err)
	}
	blob, err := encodeSnapshotRows(rows)
	if err != nil {
		return Snapshot{}, err
	}
	return Snapshot{ID: model.NewUUID().String(), Blob: blob}, nil
}

func (t *StationTarget) Restore(ctx context.Context, snap Snapshot) error {
	rows, err := decodeSnapshotRows(snap.Blob)
	if err != nil {
		return err
	}
	existing, err := t.DB.NewRange(nil, nil)
	if err != nil {
		return fmt.Errorf("range full keyspace: %w", err)
	}
	batch := t.DB.NewBatch()
	for _, row := range existing {
		batch.Delete(row.Key)
	}
	for _, row := range rows {
		batch.Put(row.Key, row.Value)
	}
	return batch.Commit()
}

// BinaryDir returns dataDir/bin, a directory for a StationTarget's
// replacement binary. cmd/stationd does not call it.
func BinaryDir(dataDir string) string {
	return filepath.Join(dataDir, "bin")
}
