package upgrader

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/station-labs/station/model"
)

func TestProcessTargetStartWritesPIDFileAndStopTerminatesIt(t *testing.T) {
	dir := t.TempDir()
	pidFile := filepath.Join(dir, "station.pid")
	target := &ProcessTarget{
		BinaryPath:  "/bin/sh",
		Args:        []string{"-c", "sleep 30"},
		PIDFile:     pidFile,
		StopTimeout: 5 * time.Second,
	}

	if err := target.Start(context.Background()); err != nil {
		t.Fatalf("unexpected start error: %v", err)
	}

	data, err := os.ReadFile(pidFile)
	if err != nil {
		t.Fatalf("expected pidfile to be written: %v", err)
	}
	if len(data) == 0 {
		t.Fatal("expected a non-empty pidfile")
	}

	if err := target.Stop(context.Background()); err != nil {
		t.Fatalf("unexpected stop error: %v", err)
	}
}

func TestProcessTargetStopWithMissingPIDFileIsNoOp(t *testing.T) {
	target := &ProcessTarget{PIDFile: filepath.Join(t.TempDir(), "does-not-exist.pid")}
	if err := target.Stop(context.Background()); err != nil {
		t.Fatalf("expected no error stopping a never-started target, got %v", err)
	}
}

func TestProcessTargetInstallWritesBinary(t *testing.T) {
	dir := t.TempDir()
	binPath := filepath.Join(dir, "stationd")
	target := &ProcessTarget{BinaryPath: binPath}

	if err := target.Install(context.Background(), []byte("binary-contents"), nil, nil, model.InstallModeUpgrade); err != nil {
		t.Fatalf("unexpected install error: %v", err)
	}

	data, err := os.ReadFile(binPath)
	if err != nil {
		t.Fatalf("read installed binary: %v", err)
	}
	if string(data) != "binary-contents" {
		t.Fatalf("unexpected installed binary contents: %q", string(data))
	}
}

func TestProcessTargetSnapshotAndRestoreAreUnsupported(t *testing.T) {
	target := &ProcessTarget{}
	if _, err := target.Snapshot(context.Background()); err == nil {
		t.Fatal("expected snapshot on a process target to fail")
	}
	if err := target.Restore(context.Background(), Snapshot{}); err == nil {
		t.Fatal("expected restore on a process target to fail")
	}
}
