package upgrader

import (
	"context"
	"fmt"
	"os"
	"syscall"

	"github.com/station-labs/station/model"
)

// SelfTarget lets cmd/upgraderd upgrade its own binary, registered under
// model.SystemUpgradeTargetUpgrader — the case ProcessTarget and
// StationTarget don't cover, since neither supervises the process actually
// executing the trigger_upgrade call.
type SelfTarget struct {
	BinaryPath string
	Args       []string
}

// Stop is a no-op: there is no separate listener to pause before Install
// and Start take over, unlike StationTarget's HTTP server.
func (t *SelfTarget) Stop(ctx context.Context) error { return nil }

// Install writes the replacement binary to BinaryPath without touching the
// process currently serving this call, the same atomic rename
// installBinary uses for ProcessTarget and StationTarget.
func (t *SelfTarget) Install(ctx context.Context, moduleBytes, extraChunks, arg []byte, mode model.InstallMode) error {
	return installBinary(t.BinaryPath, moduleBytes, extraChunks)
}

// Start replaces the running process image with the freshly installed
// binary via syscall.Exec, preserving the pid any external supervisor
// (systemd) already tracks. It only returns on failure to exec.
func (t *SelfTarget) Start(ctx context.Context) error {
	argv := append([]string{t.BinaryPath}, t.Args...)
	if err := syscall.Exec(t.BinaryPath, argv, os.Environ()); err != nil {
		return fmt.Errorf("re-exec %s: %w", t.BinaryPath, err)
	}
	return nil
}

// Snapshot and Restore are not meaningful for upgraderd itself: it holds no
// database of its own to dump, unlike StationTarget.
func (t *SelfTarget) Snapshot(ctx context.Context) (Snapshot, error) {
	return Snapshot{}, fmt.Errorf("upgrader: self target does not support snapshotting; use the station's own in-process target")
}

func (t *SelfTarget) Restore(ctx context.Context, snap Snapshot) error {
	return fmt.Errorf("upgrader: self target does not support restore; use the station's own in-process target")
}
