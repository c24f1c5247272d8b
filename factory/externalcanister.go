package factory

import (
	"context"

	"github.com/station-labs/station/model"
	"github.com/station-labs/station/stationerr"
)

// ChangeExternalCanisterFactory implements the change_external_canister
// operation.
type ChangeExternalCanisterFactory struct{}

func (ChangeExternalCanisterFactory) Validate(ctx context.Context, op model.Operation, r Resolver) error {
	c := op.(*model.ChangeExternalCanisterOperation)
	if c.CanisterID == "" {
		return stationerr.Validation("change_external_canister requires a canister id")
	}
	if len(c.ModuleBytes) == 0 {
		return stationerr.Validation("change_external_canister requires module bytes")
	}
	switch c.InstallMode {
	case model.InstallModeInstall, model.InstallModeReinstall, model.InstallModeUpgrade:
	default:
		return stationerr.Validation("unknown install mode %q", c.InstallMode)
	}
	return nil
}

func (ChangeExternalCanisterFactory) Title(op model.Operation) string {
	c := op.(*model.ChangeExternalCanisterOperation)
	return "Change external canister " + c.CanisterID
}

func (ChangeExternalCanisterFactory) DefaultExpiration(op model.Operation) model.Timestamp {
	return model.NextTime().Add(shortLivedExpiration)
}

func (ChangeExternalCanisterFactory) Resources(op model.Operation) []model.Resource {
	c := op.(*model.ChangeExternalCanisterOperation)
	return []model.Resource{{Kind: model.ResourceKindExternalCanist, Action: model.ActionChangeExternalCanister, Target: c.CanisterID}}
}

func (ChangeExternalCanisterFactory) Execute(ctx context.Context, req *model.Request, r Resolver) (Stage, error) {
	c := req.Operation.(*model.ChangeExternalCanisterOperation)
	return r.ChangeExternalCanister(c)
}

// ConfigureExternalCanisterFactory implements the
// configure_external_canister operation.
type ConfigureExternalCanisterFactory struct{}

func (ConfigureExternalCanisterFactory) Validate(ctx context.Context, op model.Operation, r Resolver) error {
	c := op.(*model.ConfigureExternalCanisterOperation)
	if c.CanisterID == "" {
		return stationerr.Validation("configure_external_canister requires a canister id")
	}
	if len(c.Settings) == 0 {
		return stationerr.Validation("configure_external_canister requires at least one setting")
	}
	return nil
}

func (ConfigureExternalCanisterFactory) Title(op model.Operation) string {
	c := op.(*model.ConfigureExternalCanisterOperation)
	return "Configure external canister " + c.CanisterID
}

func (ConfigureExternalCanisterFactory) DefaultExpiration(op model.Operation) model.Timestamp {
	return model.NextTime().Add(defaultRequestExpiration)
}

func (ConfigureExternalCanisterFactory) Resources(op model.Operation) []model.Resource {
	c := op.(*model.ConfigureExternalCanisterOperation)
	return []model.Resource{{Kind: model.ResourceKindExternalCanist, Action: model.ActionUpdate, Target: c.CanisterID}}
}

func (ConfigureExternalCanisterFactory) Execute(ctx context.Context, req *model.Request, r Resolver) (Stage, error) {
	c := req.Operation.(*model.ConfigureExternalCanisterOperation)
	if err := r.ConfigureExternalCanister(c); err != nil {
		return "", err
	}
	return StageCompleted, nil
}

// CallExternalCanisterFactory implements the call_external_canister
// operation.
type CallExternalCanisterFactory struct{}

func (CallExternalCanisterFactory) Validate(ctx context.Context, op model.Operation, r Resolver) error {
	c := op.(*model.CallExternalCanisterOperation)
	if c.CanisterID == "" || c.Method == "" {
		return stationerr.Validation("call_external_canister requires a canister id and method")
	}
	return nil
}

func (CallExternalCanisterFactory) Title(op model.Operation) string {
	c := op.(*model.CallExternalCanisterOperation)
	return "Call " + c.Method + " on external canister " + c.CanisterID
}

func (CallExternalCanisterFactory) DefaultExpiration(op model.Operation) model.Timestamp {
	return model.NextTime().Add(defaultRequestExpiration)
}

func (CallExternalCanisterFactory) Resources(op model.Operation) []model.Resource {
	c := op.(*model.CallExternalCanisterOperation)
	return []model.Resource{{Kind: model.ResourceKindExternalCanist, Action: model.ActionCallExternalCanister, Target: c.CanisterID}}
}

func (CallExternalCanisterFactory) Execute(ctx context.Context, req *model.Request, r Resolver) (Stage, error) {
	c := req.Operation.(*model.CallExternalCanisterOperation)
	return r.CallExternalCanister(c)
}
