package factory_test

import (
	"context"
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/station-labs/station/factory"
	"github.com/station-labs/station/model"
	"github.com/station-labs/station/repository"
	"github.com/station-labs/station/storage"
)

func newTestResolver(t *testing.T) *factory.RepositoryResolver {
	t.Helper()
	db := storage.NewMemDB()
	return &factory.RepositoryResolver{
		Users:       repository.NewUserRepository(db),
		Groups:      repository.NewUserGroupRepository(db),
		Accounts:    repository.NewAccountRepository(db),
		Assets:      repository.NewAssetRepository(db),
		AddressBook: repository.NewAddressBookRepository(db),
		Policies:    repository.NewPolicyRepository(db),
		NamedRules:  repository.NewNamedRuleRepository(db),
		Permissions: repository.NewPermissionRepository(db),
	}
}

func TestNewStationRegistry_CoversEveryOperationKind(t *testing.T) {
	registry := factory.NewStationRegistry()
	kinds := []model.OperationKind{
		model.OperationTransfer, model.OperationAddAccount, model.OperationEditAccount,
		model.OperationAddUser, model.OperationEditUser, model.OperationAddUserGroup,
		model.OperationEditUserGroup, model.OperationRemoveUserGroup, model.OperationEditPermission,
		model.OperationAddRequestPolicy, model.OperationEditRequestPolicy, model.OperationRemoveRequestPolicy,
		model.OperationAddAddressBookEntry, model.OperationEditAddressBookEntry, model.OperationRemoveAddressBookEntry,
		model.OperationAddAsset, model.OperationEditAsset, model.OperationRemoveAsset,
		model.OperationAddNamedRule, model.OperationEditNamedRule, model.OperationRemoveNamedRule,
		model.OperationSystemUpgrade, model.OperationSystemRestore, model.OperationChangeExternalCanister,
		model.OperationConfigureExternalCanister, model.OperationCallExternalCanister, model.OperationManageSystemInfo,
	}
	for _, kind := range kinds {
		_, ok := registry.For(kind)
		require.Truef(t, ok, "no factory registered for %s", kind)
	}
}

func TestAddUserFactory_RejectsDuplicateName(t *testing.T) {
	r := newTestResolver(t)
	f := factory.AddUserFactory{}
	op := &model.AddUserOperation{
		Name:       "Alice",
		Identities: []model.Principal{{0x01}},
		Status:     model.UserStatusActive,
	}
	require.NoError(t, f.Validate(context.Background(), op, r))

	req := &model.Request{Operation: op}
	_, err := f.Execute(context.Background(), req, r)
	require.NoError(t, err)

	dup := &model.AddUserOperation{
		Name:       "alice",
		Identities: []model.Principal{{0x02}},
		Status:     model.UserStatusActive,
	}
	err = f.Validate(context.Background(), dup, r)
	require.Error(t, err)
}

func TestAddAssetFactory_RejectsDuplicateSymbolBlockchainPair(t *testing.T) {
	r := newTestResolver(t)
	f := factory.AddAssetFactory{}
	op := &model.AddAssetOperation{Blockchain: "ic", Symbol: "ICP", Decimals: 8}
	require.NoError(t, f.Validate(context.Background(), op, r))
	req := &model.Request{Operation: op}
	_, err := f.Execute(context.Background(), req, r)
	require.NoError(t, err)

	err = f.Validate(context.Background(), op, r)
	require.Error(t, err)
}

func TestAddAssetFactory_RejectsDecimalsOverMax(t *testing.T) {
	r := newTestResolver(t)
	f := factory.AddAssetFactory{}
	op := &model.AddAssetOperation{Blockchain: "ic", Symbol: "ICP", Decimals: 25}
	err := f.Validate(context.Background(), op, r)
	require.Error(t, err)
}

func TestTransferFactory_RejectsNonPositiveAmount(t *testing.T) {
	r := newTestResolver(t)
	account := &model.Account{ID: model.NewUUID(), Name: "treasury", Assets: map[model.UUID]struct{}{}}
	require.NoError(t, r.Accounts.Put(account))

	f := factory.TransferFactory{}
	op := &model.TransferOperation{FromAccountID: account.ID, To: "0xdead", Amount: big.NewInt(0)}
	err := f.Validate(context.Background(), op, r)
	require.Error(t, err)
}

func TestRemoveAssetFactory_RejectsWhenAssetInUse(t *testing.T) {
	r := newTestResolver(t)
	asset := &model.Asset{ID: model.NewUUID(), Blockchain: "ic", Symbol: "ICP", Standards: map[string]struct{}{}}
	require.NoError(t, r.Assets.Put(asset))
	account := &model.Account{ID: model.NewUUID(), Name: "treasury", Assets: map[model.UUID]struct{}{asset.ID: {}}}
	require.NoError(t, r.Accounts.Put(account))

	f := factory.RemoveAssetFactory{}
	err := f.Validate(context.Background(), &model.RemoveAssetOperation{AssetID: asset.ID}, r)
	require.Error(t, err)
}

func TestRemoveUserGroupFactory_RejectsBuiltInGroup(t *testing.T) {
	r := newTestResolver(t)
	f := factory.RemoveUserGroupFactory{}
	err := f.Validate(context.Background(), &model.RemoveUserGroupOperation{GroupID: model.AdminGroupID}, r)
	require.Error(t, err)
}
