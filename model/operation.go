package model

import "math/big"

// OperationKind tags the variant of Operation a Request carries, matching
// spec.md §3's Operation tagged union one-for-one. It is the dispatch key
// the factory registry (package factory) keys its table on, per DESIGN
// NOTES §9: "Operation polymorphism ... dispatch table keyed on the variant
// tag."
type OperationKind string

const (
	OperationTransfer                 OperationKind = "transfer"
	OperationAddAccount                OperationKind = "add_account"
	OperationEditAccount                OperationKind = "edit_account"
	OperationAddUser                    OperationKind = "add_user"
	OperationEditUser                   OperationKind = "edit_user"
	OperationAddUserGroup                OperationKind = "add_user_group"
	OperationEditUserGroup               OperationKind = "edit_user_group"
	OperationRemoveUserGroup             OperationKind = "remove_user_group"
	OperationEditPermission              OperationKind = "edit_permission"
	OperationAddRequestPolicy            OperationKind = "add_request_policy"
	OperationEditRequestPolicy           OperationKind = "edit_request_policy"
	OperationRemoveRequestPolicy         OperationKind = "remove_request_policy"
	OperationAddAddressBookEntry         OperationKind = "add_address_book_entry"
	OperationEditAddressBookEntry        OperationKind = "edit_address_book_entry"
	OperationRemoveAddressBookEntry      OperationKind = "remove_address_book_entry"
	OperationAddAsset                    OperationKind = "add_asset"
	OperationEditAsset                   OperationKind = "edit_asset"
	OperationRemoveAsset                 OperationKind = "remove_asset"
	OperationAddNamedRule                OperationKind = "add_named_rule"
	OperationEditNamedRule               OperationKind = "edit_named_rule"
	OperationRemoveNamedRule             OperationKind = "remove_named_rule"
	OperationSystemUpgrade               OperationKind = "system_upgrade"
	OperationSystemRestore               OperationKind = "system_restore"
	OperationChangeExternalCanister      OperationKind = "change_external_canister"
	OperationConfigureExternalCanister   OperationKind = "configure_external_canister"
	OperationCallExternalCanister        OperationKind = "call_external_canister"
	OperationManageSystemInfo            OperationKind = "manage_system_info"
)

// Operation is the tagged union of privileged actions a Request can carry.
// Each concrete *Operation type below implements it; Kind identifies which
// field of a decoded DTO to read, mirroring how the teacher's
// ProposalKind/ProposalStatus constants drive dispatch in
// native/governance.
type Operation interface {
	Kind() OperationKind
}

// TransferOperation moves value out of an account the station controls.
type TransferOperation struct {
	FromAccountID UUID
	FromAssetID   UUID
	To            string // address-book or raw address
	Amount        *big.Int
	Fee           *big.Int
	Memo          string
}

func (TransferOperation) Kind() OperationKind { return OperationTransfer }

// AddAccountOperation creates a new Account.
type AddAccountOperation struct {
	Name          string
	AssetIDs      []UUID
	Metadata      map[string]string
	TransferRule  *Rule
	ConfigsRule   *Rule
	AddressFormats []AddressFormat
}

func (AddAccountOperation) Kind() OperationKind { return OperationAddAccount }

// EditAccountOperation mutates an existing Account.
type EditAccountOperation struct {
	AccountID     UUID
	Name          *string
	AddAssetIDs   []UUID
	RemoveAssetIDs []UUID
	Metadata      map[string]string
	TransferRule  *Rule
	ConfigsRule   *Rule
}

func (EditAccountOperation) Kind() OperationKind { return OperationEditAccount }

// AddUserOperation creates a new User.
type AddUserOperation struct {
	Name       string
	Identities []Principal
	Groups     []UUID
	Status     UserStatus
}

func (AddUserOperation) Kind() OperationKind { return OperationAddUser }

// EditUserOperation mutates an existing User.
type EditUserOperation struct {
	UserID     UUID
	Name       *string
	Identities []Principal
	Groups     []UUID
	Status     *UserStatus
}

func (EditUserOperation) Kind() OperationKind { return OperationEditUser }

// AddUserGroupOperation creates a new UserGroup.
type AddUserGroupOperation struct {
	Name string
}

func (AddUserGroupOperation) Kind() OperationKind { return OperationAddUserGroup }

// EditUserGroupOperation renames a UserGroup.
type EditUserGroupOperation struct {
	GroupID UUID
	Name    string
}

func (EditUserGroupOperation) Kind() OperationKind { return OperationEditUserGroup }

// RemoveUserGroupOperation deletes a non-built-in UserGroup.
type RemoveUserGroupOperation struct {
	GroupID UUID
}

func (RemoveUserGroupOperation) Kind() OperationKind { return OperationRemoveUserGroup }

// EditPermissionOperation replaces the Allow on one Resource.
type EditPermissionOperation struct {
	Resource Resource
	Allow    Allow
}

func (EditPermissionOperation) Kind() OperationKind { return OperationEditPermission }

// RequestSpecifierKind tags how a Policy selects the requests its Rule
// applies to.
type RequestSpecifierKind string

const (
	SpecifierOperationKind RequestSpecifierKind = "operation_kind"
	SpecifierOperationKindWithIDs RequestSpecifierKind = "operation_kind_with_ids"
)

// RequestSpecifier selects which operations a Policy's Rule governs, per
// spec.md §3: "specifier selects which operations the rule applies to (by
// operation type and, for operations targeting an existing resource, by
// id-set membership)."
type RequestSpecifier struct {
	Kind          RequestSpecifierKind
	OperationKind OperationKind
	ResourceIDs   map[UUID]struct{} // meaningful when Kind == SpecifierOperationKindWithIDs; empty set means "any id"
}

// Matches reports whether s governs an operation of the given kind touching
// the given resource id (NilUUID when the operation has none, e.g. AddUser).
func (s RequestSpecifier) Matches(kind OperationKind, resourceID UUID) bool {
	if s.OperationKind != kind {
		return false
	}
	if s.Kind == SpecifierOperationKind {
		return true
	}
	if len(s.ResourceIDs) == 0 {
		return true
	}
	_, ok := s.ResourceIDs[resourceID]
	return ok
}

// AddRequestPolicyOperation creates a new Policy.
type AddRequestPolicyOperation struct {
	Specifier RequestSpecifier
	Rule      *Rule
}

func (AddRequestPolicyOperation) Kind() OperationKind { return OperationAddRequestPolicy }

// EditRequestPolicyOperation mutates an existing Policy.
type EditRequestPolicyOperation struct {
	PolicyID  UUID
	Specifier *RequestSpecifier
	Rule      *Rule
}

func (EditRequestPolicyOperation) Kind() OperationKind { return OperationEditRequestPolicy }

// RemoveRequestPolicyOperation deletes a Policy.
type RemoveRequestPolicyOperation struct {
	PolicyID UUID
}

func (RemoveRequestPolicyOperation) Kind() OperationKind { return OperationRemoveRequestPolicy }

// AddAddressBookEntryOperation creates a new AddressBookEntry.
type AddAddressBookEntryOperation struct {
	Blockchain string
	Standard   string
	Address    string
	Owner      string
	Metadata   map[string]string
	Labels     []string
}

func (AddAddressBookEntryOperation) Kind() OperationKind { return OperationAddAddressBookEntry }

// EditAddressBookEntryOperation mutates an AddressBookEntry.
type EditAddressBookEntryOperation struct {
	EntryID  UUID
	Owner    *string
	Metadata map[string]string
	Labels   []string
}

func (EditAddressBookEntryOperation) Kind() OperationKind { return OperationEditAddressBookEntry }

// RemoveAddressBookEntryOperation deletes an AddressBookEntry.
type RemoveAddressBookEntryOperation struct {
	EntryID UUID
}

func (RemoveAddressBookEntryOperation) Kind() OperationKind {
	return OperationRemoveAddressBookEntry
}

// AddAssetOperation creates a new Asset.
type AddAssetOperation struct {
	Blockchain string
	Standards  []string
	Symbol     string
	Decimals   uint32
	Metadata   map[string]string
}

func (AddAssetOperation) Kind() OperationKind { return OperationAddAsset }

// EditAssetOperation mutates an Asset.
type EditAssetOperation struct {
	AssetID  UUID
	Symbol   *string
	Metadata map[string]string
}

func (EditAssetOperation) Kind() OperationKind { return OperationEditAsset }

// RemoveAssetOperation deletes an Asset.
type RemoveAssetOperation struct {
	AssetID UUID
}

func (RemoveAssetOperation) Kind() OperationKind { return OperationRemoveAsset }

// AddNamedRuleOperation creates a new NamedRule.
type AddNamedRuleOperation struct {
	Name string
	Rule *Rule
}

func (AddNamedRuleOperation) Kind() OperationKind { return OperationAddNamedRule }

// EditNamedRuleOperation mutates a NamedRule.
type EditNamedRuleOperation struct {
	NamedRuleID UUID
	Name        *string
	Rule        *Rule
}

func (EditNamedRuleOperation) Kind() OperationKind { return OperationEditNamedRule }

// RemoveNamedRuleOperation deletes a NamedRule.
type RemoveNamedRuleOperation struct {
	NamedRuleID UUID
}

func (RemoveNamedRuleOperation) Kind() OperationKind { return OperationRemoveNamedRule }

// InstallMode mirrors spec.md §4.6's install_mode for both SystemUpgrade and
// ChangeExternalCanister.
type InstallMode string

const (
	InstallModeInstall   InstallMode = "install"
	InstallModeReinstall InstallMode = "reinstall"
	InstallModeUpgrade   InstallMode = "upgrade"
)

// SystemUpgradeOperation installs new code into the station itself or into
// its upgrader.
type SystemUpgradeTarget string

const (
	SystemUpgradeTargetStation  SystemUpgradeTarget = "station"
	SystemUpgradeTargetUpgrader SystemUpgradeTarget = "upgrader"
)

type SystemUpgradeOperation struct {
	Target            SystemUpgradeTarget
	ModuleBytes       []byte
	ModuleExtraChunks []byte
	Arg               []byte
	InstallMode       InstallMode
}

func (SystemUpgradeOperation) Kind() OperationKind { return OperationSystemUpgrade }

// SystemRestoreOperation restores the station or upgrader from a snapshot,
// per spec.md §4.6.
type SystemRestoreOperation struct {
	Target     SystemUpgradeTarget
	SnapshotID string
}

func (SystemRestoreOperation) Kind() OperationKind { return OperationSystemRestore }

// ChangeExternalCanisterOperation installs new code into a controlled
// canister.
type ChangeExternalCanisterOperation struct {
	CanisterID  string
	ModuleBytes []byte
	Arg         []byte
	InstallMode InstallMode
}

func (ChangeExternalCanisterOperation) Kind() OperationKind {
	return OperationChangeExternalCanister
}

// ConfigureExternalCanisterOperation changes non-code settings (compute
// allocation, controllers, labels) of a controlled canister.
type ConfigureExternalCanisterOperation struct {
	CanisterID string
	Settings   map[string]string
}

func (ConfigureExternalCanisterOperation) Kind() OperationKind {
	return OperationConfigureExternalCanister
}

// CallExternalCanisterOperation invokes an arbitrary method on a controlled
// canister.
type CallExternalCanisterOperation struct {
	CanisterID string
	Method     string
	Arg        []byte
	CyclesLimit uint64
}

func (CallExternalCanisterOperation) Kind() OperationKind { return OperationCallExternalCanister }

// ManageSystemInfoOperation updates station-level metadata not covered by a
// more specific operation (name, upgrader principal, maximum station
// backups).
type ManageSystemInfoOperation struct {
	Name             *string
	UpgraderID       *Principal
	MaxStationBackups *uint32
}

func (ManageSystemInfoOperation) Kind() OperationKind { return OperationManageSystemInfo }
