package httpapi

import (
	"encoding/json"
	"fmt"

	"github.com/station-labs/station/model"
)

// operationEnvelope is the wire shape of a create-request call's operation
// field: a discriminator plus a raw JSON payload, decoded into the matching
// concrete model.Operation below. This mirrors repository's own
// requestDTO/decodeOperation split (repository/requests.go) one layer up,
// at the HTTP boundary rather than the storage boundary.
type operationEnvelope struct {
	Kind    model.OperationKind `json:"kind"`
	Payload json.RawMessage     `json:"payload"`
}

// decodeOperation recovers the concrete model.Operation a create-request
// call's JSON body names. Kept as a flat switch rather than a registered
// dispatch table because, unlike factory.Registry, this table can never be
// substituted at runtime — the wire format is fixed by spec.md §3's
// Operation tagged union.
func decodeOperation(env operationEnvelope) (model.Operation, error) {
	var op model.Operation
	switch env.Kind {
	case model.OperationTransfer:
		op = &model.TransferOperation{}
	case model.OperationAddAccount:
		op = &model.AddAccountOperation{}
	case model.OperationEditAccount:
		op = &model.EditAccountOperation{}
	case model.OperationAddUser:
		op = &model.AddUserOperation{}
	case model.OperationEditUser:
		op = &model.EditUserOperation{}
	case model.OperationAddUserGroup:
		op = &model.AddUserGroupOperation{}
	case model.OperationEditUserGroup:
		op = &model.EditUserGroupOperation{}
	case model.OperationRemoveUserGroup:
		op = &model.RemoveUserGroupOperation{}
	case model.OperationEditPermission:
		op = &model.EditPermissionOperation{}
	case model.OperationAddRequestPolicy:
		op = &model.AddRequestPolicyOperation{}
	case model.OperationEditRequestPolicy:
		op = &model.EditRequestPolicyOperation{}
	case model.OperationRemoveRequestPolicy:
		op = &model.RemoveRequestPolicyOperation{}
	case model.OperationAddAddressBookEntry:
		op = &model.AddAddressBookEntryOperation{}
	case model.OperationEditAddressBookEntry:
		op = &model.EditAddressBookEntryOperation{}
	case model.OperationRemoveAddressBookEntry:
		op = &model.RemoveAddressBookEntryOperation{}
	case model.OperationAddAsset:
		op = &model.AddAssetOperation{}
	case model.OperationEditAsset:
		op = &model.EditAssetOperation{}
	case model.OperationRemoveAsset:
		op = &model.RemoveAssetOperation{}
	case model.OperationAddNamedRule:
		op = &model.AddNamedRuleOperation{}
	case model.OperationEditNamedRule:
		op = &model.EditNamedRuleOperation{}
	case model.OperationRemoveNamedRule:
		op = &model.RemoveNamedRuleOperation{}
	case model.OperationSystemUpgrade:
		op = &model.SystemUpgradeOperation{}
	case model.OperationSystemRestore:
		op = &model.SystemRestoreOperation{}
	case model.OperationChangeExternalCanister:
		op = &model.ChangeExternalCanisterOperation{}
	case model.OperationConfigureExternalCanister:
		op = &model.ConfigureExternalCanisterOperation{}
	case model.OperationCallExternalCanister:
		op = &model.CallExternalCanisterOperation{}
	case model.OperationManageSystemInfo:
		op = &model.ManageSystemInfoOperation{}
	default:
		return nil, fmt.Errorf("httpapi: unknown operation kind %q", env.Kind)
	}
	if len(env.Payload) > 0 {
		if err := json.Unmarshal(env.Payload, op); err != nil {
			return nil, err
		}
	}
	return op, nil
}
