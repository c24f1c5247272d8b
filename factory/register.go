package factory

import "github.com/station-labs/station/model"

// NewStationRegistry builds the Registry binding every operation kind
// spec.md §3 defines to its concrete Factory.
func NewStationRegistry() *Registry {
	r := NewRegistry()
	r.Register(model.OperationTransfer, TransferFactory{})
	r.Register(model.OperationAddAccount, AddAccountFactory{})
	r.Register(model.OperationEditAccount, EditAccountFactory{})
	r.Register(model.OperationAddUser, AddUserFactory{})
	r.Register(model.OperationEditUser, EditUserFactory{})
	r.Register(model.OperationAddUserGroup, AddUserGroupFactory{})
	r.Register(model.OperationEditUserGroup, EditUserGroupFactory{})
	r.Register(model.OperationRemoveUserGroup, RemoveUserGroupFactory{})
	r.Register(model.OperationEditPermission, EditPermissionFactory{})
	r.Register(model.OperationAddRequestPolicy, AddRequestPolicyFactory{})
	r.Register(model.OperationEditRequestPolicy, EditRequestPolicyFactory{})
	r.Register(model.OperationRemoveRequestPolicy, RemoveRequestPolicyFactory{})
	r.Register(model.OperationAddAddressBookEntry, AddAddressBookEntryFactory{})
	r.Register(model.OperationEditAddressBookEntry, EditAddressBookEntryFactory{})
	r.Register(model.OperationRemoveAddressBookEntry, RemoveAddressBookEntryFactory{})
	r.Register(model.OperationAddAsset, AddAssetFactory{})
	r.Register(model.OperationEditAsset, EditAssetFactory{})
	r.Register(model.OperationRemoveAsset, RemoveAssetFactory{})
	r.Register(model.OperationAddNamedRule, AddNamedRuleFactory{})
	r.Register(model.OperationEditNamedRule, EditNamedRuleFactory{})
	r.Register(model.OperationRemoveNamedRule, RemoveNamedRuleFactory{})
	r.Register(model.OperationSystemUpgrade, SystemUpgradeFactory{})
	r.Register(model.OperationSystemRestore, SystemRestoreFactory{})
	r.Register(model.OperationChangeExternalCanister, ChangeExternalCanisterFactory{})
	r.Register(model.OperationConfigureExternalCanister, ConfigureExternalCanisterFactory{})
	r.Register(model.OperationCallExternalCanister, CallExternalCanisterFactory{})
	r.Register(model.OperationManageSystemInfo, ManageSystemInfoFactory{})
	return r
}
