package upgrader

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/station-labs/station/model"
	"github.com/station-labs/station/storage"
)

type fakeStoppable struct {
	stopErr  error
	stopped  bool
}

func (f *fakeStoppable) Shutdown(ctx context.Context) error {
	f.stopped = true
	return f.stopErr
}

func TestStationTargetStopStart(t *testing.T) {
	server := &fakeStoppable{}
	started := false
	target := &StationTarget{
		Server: server,
		StartServer: func(ctx context.Context) error {
			started = true
			return nil
		},
	}

	if err := target.Stop(context.Background()); err != nil {
		t.Fatalf("unexpected stop error: %v", err)
	}
	if !server.stopped {
		t.Fatal("expected Server.Shutdown to be called")
	}

	if err := target.Start(context.Background()); err != nil {
		t.Fatalf("unexpected start error: %v", err)
	}
	if !started {
		t.Fatal("expected StartServer to be called")
	}
}

func TestStationTargetSnapshotAndRestoreRoundTrip(t *testing.T) {
	db := storage.NewMemDB()
	if err := db.Put([]byte("alpha"), []byte("one")); err != nil {
		t.Fatalf("seed put: %v", err)
	}
	if err := db.Put([]byte("beta"), []byte("two")); err != nil {
		t.Fatalf("seed put: %v", err)
	}

	target := &StationTarget{DB: db}
	snap, err := target.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("unexpected snapshot error: %v", err)
	}
	if snap.Blob == nil {
		t.Fatal("expected a non-nil snapshot blob")
	}

	if err := db.Put([]byte("gamma"), []byte("three")); err != nil {
		t.Fatalf("put after snapshot: %v", err)
	}
	if err := db.Delete([]byte("alpha")); err != nil {
		t.Fatalf("delete after snapshot: %v", err)
	}

	if err := target.Restore(context.Background(), snap); err != nil {
		t.Fatalf("unexpected restore error: %v", err)
	}

	rows, err := db.NewRange(nil, nil)
	if err != nil {
		t.Fatalf("range after restore: %v", err)
	}
	got := map[string]string{}
	for _, r := range rows {
		got[string(r.Key)] = string(r.Value)
	}
	want := map[string]string{"alpha": "one", "beta": "two"}
	if len(got) != len(want) {
		t.Fatalf("expected exactly the restored keyspace, got %v", got)
	}
	for k, v := range want {
		if got[k] != v {
			t.Fatalf("expected %s=%s after restore, got %s", k, v, got[k])
		}
	}
}

func TestStationTargetInstallWritesExecutableBinary(t *testing.T) {
	dir := t.TempDir()
	binPath := filepath.Join(dir, "stationd")
	target := &StationTarget{BinaryPath: binPath}

	module := []byte("#!/bin/sh\necho hello\n")
	if err := target.Install(context.Background(), module, nil, nil, model.InstallModeUpgrade); err != nil {
		t.Fatalf("unexpected install error: %v", err)
	}

	info, err := os.Stat(binPath)
	if err != nil {
		t.Fatalf("expected installed binary to exist: %v", err)
	}
	if info.Mode()&0o111 == 0 {
		t.Fatal("expected the installed binary to be executable")
	}

	data, err := os.ReadFile(binPath)
	if err != nil {
		t.Fatalf("read installed binary: %v", err)
	}
	want := string(module)
	if string(data) != want {
		t.Fatalf("expected installed binary contents %q, got %q", want, string(data))
	}
}

func TestStationTargetInstallAppendsExtraChunks(t *testing.T) {
	dir := t.TempDir()
	binPath := filepath.Join(dir, "stationd")
	target := &StationTarget{BinaryPath: binPath}

	if err := target.Install(context.Background(), []byte("part-one-"), []byte("part-two"), nil, model.InstallModeInstall); err != nil {
		t.Fatalf("unexpected install error: %v", err)
	}

	data, err := os.ReadFile(binPath)
	if err != nil {
		t.Fatalf("read installed binary: %v", err)
	}
	if string(data) != "part-one-part-two" {
		t.Fatalf("expected concatenated module bytes, got %q", string(data))
	}
}

func TestBinaryDir(t *testing.T) {
	got := BinaryDir("/var/lib/station")
	want := filepath.Join("/var/lib/station", "bin")
	if got != want {
		t.Fatalf("expected %s, got %s", want, got)
	}
}
