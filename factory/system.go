package factory

import (
	"context"
	"time"

	"github.com/station-labs/station/model"
	"github.com/station-labs/station/stationerr"
)

// shortLivedExpiration bounds system-level requests (upgrade, restore) to a
// tighter window than the 7-day default, since an approved upgrade that sat
// unscheduled for days would be stale by the time it finally ran.
const shortLivedExpiration = 24 * time.Hour

// SystemUpgradeFactory implements the system_upgrade operation.
type SystemUpgradeFactory struct{}

func (SystemUpgradeFactory) Validate(ctx context.Context, op model.Operation, r Resolver) error {
	u := op.(*model.SystemUpgradeOperation)
	if u.Target != model.SystemUpgradeTargetStation && u.Target != model.SystemUpgradeTargetUpgrader {
		return stationerr.Validation("unknown system upgrade target %q", u.Target)
	}
	if len(u.ModuleBytes) == 0 {
		return stationerr.Validation("system upgrade requires module bytes")
	}
	switch u.InstallMode {
	case model.InstallModeInstall, model.InstallModeReinstall, model.InstallModeUpgrade:
	default:
		return stationerr.Validation("unknown install mode %q", u.InstallMode)
	}
	return nil
}

func (SystemUpgradeFactory) Title(op model.Operation) string {
	u := op.(*model.SystemUpgradeOperation)
	return "Upgrade " + string(u.Target) + " (" + string(u.InstallMode) + ")"
}

func (SystemUpgradeFactory) DefaultExpiration(op model.Operation) model.Timestamp {
	return model.NextTime().Add(shortLivedExpiration)
}

func (SystemUpgradeFactory) Resources(op model.Operation) []model.Resource {
	return []model.Resource{{Kind: model.ResourceKindSystemInfo, Action: model.ActionManageSystemInfo}}
}

func (SystemUpgradeFactory) Execute(ctx context.Context, req *model.Request, r Resolver) (Stage, error) {
	u := req.Operation.(*model.SystemUpgradeOperation)
	return r.TriggerSystemUpgrade(u)
}

// SystemRestoreFactory implements the system_restore operation.
type SystemRestoreFactory struct{}

func (SystemRestoreFactory) Validate(ctx context.Context, op model.Operation, r Resolver) error {
	s := op.(*model.SystemRestoreOperation)
	if s.Target != model.SystemUpgradeTargetStation && s.Target != model.SystemUpgradeTargetUpgrader {
		return stationerr.Validation("unknown system restore target %q", s.Target)
	}
	if s.SnapshotID == "" {
		return stationerr.Validation("system restore requires a snapshot id")
	}
	return nil
}

func (SystemRestoreFactory) Title(op model.Operation) string {
	s := op.(*model.SystemRestoreOperation)
	return "Restore " + string(s.Target) + " from snapshot " + s.SnapshotID
}

func (SystemRestoreFactory) DefaultExpiration(op model.Operation) model.Timestamp {
	return model.NextTime().Add(shortLivedExpiration)
}

func (SystemRestoreFactory) Resources(op model.Operation) []model.Resource {
	return []model.Resource{{Kind: model.ResourceKindSystemInfo, Action: model.ActionManageSystemInfo}}
}

func (SystemRestoreFactory) Execute(ctx context.Context, req *model.Request, r Resolver) (Stage, error) {
	s := req.Operation.(*model.SystemRestoreOperation)
	return r.TriggerSystemRestore(s)
}

// ManageSystemInfoFactory implements the manage_system_info operation.
type ManageSystemInfoFactory struct{}

func (ManageSystemInfoFactory) Validate(ctx context.Context, op model.Operation, r Resolver) error {
	m := op.(*model.ManageSystemInfoOperation)
	if m.Name == nil && m.UpgraderID == nil && m.MaxStationBackups == nil {
		return stationerr.Validation("manage_system_info requires at least one field")
	}
	return nil
}

func (ManageSystemInfoFactory) Title(op model.Operation) string {
	return "Update system info"
}

func (ManageSystemInfoFactory) DefaultExpiration(op model.Operation) model.Timestamp {
	return model.NextTime().Add(defaultRequestExpiration)
}

func (ManageSystemInfoFactory) Resources(op model.Operation) []model.Resource {
	return []model.Resource{{Kind: model.ResourceKindSystemInfo, Action: model.ActionManageSystemInfo}}
}

func (ManageSystemInfoFactory) Execute(ctx context.Context, req *model.Request, r Resolver) (Stage, error) {
	m := req.Operation.(*model.ManageSystemInfoOperation)
	if err := r.ManageSystemInfo(m); err != nil {
		return "", err
	}
	return StageCompleted, nil
}
