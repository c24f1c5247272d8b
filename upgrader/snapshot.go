package upgrader

import (
	"context"
	"sort"

	"github.com/station-labs/station/model"
	"github.com/station-labs/station/stationerr"
)

// maxSnapshotsPerTarget bounds retained snapshots per target. It is always
// this constant: ManageSystemInfo's MaxStationBackups
// (model.ManageSystemInfoOperation) is not read here.
const maxSnapshotsPerTarget = 10

// TakeSnapshot captures target's current state, evicting the oldest
// retained snapshot if at capacity.
func (s *Service) TakeSnapshot(ctx context.Context, target model.SystemUpgradeTarget) (Snapshot, error) {
	t, ok := s.targets[target]
	if !ok {
		return Snapshot{}, stationerr.Validation("unknown snapshot target %q", target)
	}
	snap, err := t.Snapshot(ctx)
	if err != nil {
		return Snapshot{}, stationerr.External("snapshot failed: " + err.Error())
	}
	snap.Target = target
	snap.Created = model.NextTime()

	s.mu.Lock()
	defer s.mu.Unlock()
	list := append(s.snapshots[target], snap)
	if len(list) > maxSnapshotsPerTarget {
		list = list[len(list)-maxSnapshotsPerTarget:]
	}
	s.snapshots[target] = list
	return snap, nil
}

// ListSnapshots returns target's retained snapshots, newest first.
func (s *Service) ListSnapshots(target model.SystemUpgradeTarget) []Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := append([]Snapshot(nil), s.snapshots[target]...)
	sort.Slice(list, func(i, j int) bool { return list[i].Created > list[j].Created })
	return list
}

// Restore implements SystemRestore{target, snapshot_id}: stop the target,
// restore it from the named snapshot, then restart it, retrying start
// after a restore failure the same way trigger_upgrade always retries
// start after an install failure.
func (s *Service) Restore(ctx context.Context, target model.SystemUpgradeTarget, snapshotID string) error {
	t, ok := s.targets[target]
	if !ok {
		return stationerr.Validation("unknown snapshot target %q", target)
	}
	s.mu.Lock()
	var found *Snapshot
	for i, snap := range s.snapshots[target] {
		if snap.ID == snapshotID {
			found = &s.snapshots[target][i]
			break
		}
	}
	s.mu.Unlock()
	if found == nil {
		return stationerr.NotFound("snapshot %q not found for target %q", snapshotID, target)
	}

	if err := t.Stop(ctx); err != nil {
		if startErr := t.Start(ctx); startErr != nil {
			return stationerr.External("stop failed: " + err.Error() + "; restart failed: " + startErr.Error())
		}
		return stationerr.External("stop failed: " + err.Error())
	}
	restoreErr := t.Restore(ctx, *found)
	if startErr := t.Start(ctx); startErr != nil {
		return stationerr.External("start failed after restore: " + startErr.Error())
	}
	if restoreErr != nil {
		return stationerr.External("restore failed: " + restoreErr.Error())
	}
	return nil
}
