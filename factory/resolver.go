package factory

import (
	"context"
	"math/big"

	"github.com/station-labs/station/api/upgraderapi"
	"github.com/station-labs/station/model"
	"github.com/station-labs/station/repository"
	"github.com/station-labs/station/stationerr"
	"github.com/station-labs/station/upgrader"
)

// RepositoryResolver implements Resolver against the concrete repository
// and upgrader packages, the same read-through-to-storage shape
// policy.RepositoryResolver uses for the Policy Evaluation Engine's own
// narrow collaborator interface.
type RepositoryResolver struct {
	Users        *repository.UserRepository
	Groups       *repository.UserGroupRepository
	Accounts     *repository.AccountRepository
	Assets       *repository.AssetRepository
	AddressBook  *repository.AddressBookRepository
	Policies     *repository.PolicyRepository
	NamedRules   *repository.NamedRuleRepository
	Permissions  *repository.PermissionRepository
	Upgrader     *upgrader.Service
	// UpgraderRemote, when set, fronts a standalone cmd/upgraderd instance
	// over the station.upgrader.v1.Upgrader gRPC service. It is the only
	// way to reach model.SystemUpgradeTargetUpgrader: the station's local
	// Upgrader has no Target registered for upgraderd's own binary, since
	// a process cannot supervise its own stop/install/start.
	UpgraderRemote *upgraderapi.Client
	SystemCaller   model.Principal // the station's own principal, used as caller/target for upgrader calls
}

func (r *RepositoryResolver) UserExists(id model.UUID) (bool, error) {
	_, ok, err := r.Users.Get(id)
	return ok, err
}

func (r *RepositoryResolver) UserNameTaken(name string, exceptID model.UUID) (bool, error) {
	users, err := r.Users.All()
	if err != nil {
		return false, err
	}
	normalized := model.NormalizeName(name)
	for _, u := range users {
		if u.ID != exceptID && model.NormalizeName(u.Name) == normalized {
			return true, nil
		}
	}
	return false, nil
}

func (r *RepositoryResolver) GroupExists(id model.UUID) (bool, error) {
	if model.IsBuiltInGroup(id) {
		return true, nil
	}
	_, ok, err := r.Groups.Get(id)
	return ok, err
}

func (r *RepositoryResolver) AccountExists(id model.UUID) (bool, error) {
	_, ok, err := r.Accounts.Get(id)
	return ok, err
}

func (r *RepositoryResolver) AccountNameTaken(name string, exceptID model.UUID) (bool, error) {
	accounts, err := r.Accounts.All()
	if err != nil {
		return false, err
	}
	normalized := model.NormalizeName(name)
	for _, a := range accounts {
		if a.ID != exceptID && model.NormalizeName(a.Name) == normalized {
			return true, nil
		}
	}
	return false, nil
}

func (r *RepositoryResolver) AssetExists(id model.UUID) (bool, error) {
	_, ok, err := r.Assets.Get(id)
	return ok, err
}

func (r *RepositoryResolver) AssetKeyTaken(symbol, blockchain string, exceptID model.UUID) (bool, error) {
	assets, err := r.Assets.All()
	if err != nil {
		return false, err
	}
	for _, a := range assets {
		if a.ID != exceptID && a.Symbol == symbol && a.Blockchain == blockchain {
			return true, nil
		}
	}
	return false, nil
}

func (r *RepositoryResolver) AddressBookEntryExists(id model.UUID) (bool, error) {
	_, ok, err := r.AddressBook.Get(id)
	return ok, err
}

func (r *RepositoryResolver) PolicyExists(id model.UUID) (bool, error) {
	_, ok, err := r.Policies.Get(id)
	return ok, err
}

func (r *RepositoryResolver) GetPolicy(id model.UUID) (*model.Policy, bool, error) {
	return r.Policies.Get(id)
}

func (r *RepositoryResolver) NamedRuleExists(id model.UUID) (bool, error) {
	_, ok, err := r.NamedRules.Get(id)
	return ok, err
}

// NamedRuleCreatesCycle reports whether binding id's NamedRule to rule would
// create a reference cycle: true when rule (or anything it transitively
// references) refers back to id.
func (r *RepositoryResolver) NamedRuleCreatesCycle(id model.UUID, rule *model.Rule) (bool, error) {
	named, err := r.NamedRules.All()
	if err != nil {
		return false, err
	}
	byID := make(map[model.UUID]*model.NamedRule, len(named))
	for _, n := range named {
		byID[n.ID] = n
	}
	visited := map[model.UUID]struct{}{}
	var reaches func(*model.Rule) bool
	reaches = func(n *model.Rule) bool {
		refs := map[model.UUID]struct{}{}
		n.NamedRuleIDs(refs)
		for ref := range refs {
			if ref == id {
				return true
			}
			if _, seen := visited[ref]; seen {
				continue
			}
			visited[ref] = struct{}{}
			if target, ok := byID[ref]; ok && reaches(target.Rule) {
				return true
			}
		}
		return false
	}
	return reaches(rule), nil
}

func (r *RepositoryResolver) PutUser(u *model.User) error            { return r.Users.Put(u) }
func (r *RepositoryResolver) GetUser(id model.UUID) (*model.User, bool, error) {
	return r.Users.Get(id)
}
func (r *RepositoryResolver) RemoveUserGroup(id model.UUID) error    { return r.Groups.Remove(id) }
func (r *RepositoryResolver) PutUserGroup(g *model.UserGroup) error  { return r.Groups.Put(g) }
func (r *RepositoryResolver) GetUserGroup(id model.UUID) (*model.UserGroup, bool, error) {
	return r.Groups.Get(id)
}
func (r *RepositoryResolver) PutAccount(a *model.Account) error { return r.Accounts.Put(a) }
func (r *RepositoryResolver) GetAccount(id model.UUID) (*model.Account, bool, error) {
	return r.Accounts.Get(id)
}
func (r *RepositoryResolver) PutAsset(a *model.Asset) error { return r.Assets.Put(a) }
func (r *RepositoryResolver) GetAsset(id model.UUID) (*model.Asset, bool, error) {
	return r.Assets.Get(id)
}

func (r *RepositoryResolver) RemoveAsset(id model.UUID) error {
	inUse, err := r.Accounts.UsesAsset(id)
	if err != nil {
		return err
	}
	if inUse {
		return stationerr.Validation("asset %s is still held by at least one account", id)
	}
	return r.Assets.Remove(id)
}

func (r *RepositoryResolver) AssetInUse(id model.UUID) (bool, error) {
	return r.Accounts.UsesAsset(id)
}

func (r *RepositoryResolver) PutAddressBookEntry(e *model.AddressBookEntry) error {
	return r.AddressBook.Put(e)
}
func (r *RepositoryResolver) GetAddressBookEntry(id model.UUID) (*model.AddressBookEntry, bool, error) {
	return r.AddressBook.Get(id)
}
func (r *RepositoryResolver) RemoveAddressBookEntry(id model.UUID) error {
	return r.AddressBook.Remove(id)
}

func (r *RepositoryResolver) PutPolicy(p *model.Policy) error { return r.Policies.Put(p) }
func (r *RepositoryResolver) RemovePolicy(id model.UUID) error { return r.Policies.Remove(id) }
func (r *RepositoryResolver) PutNamedRule(n *model.NamedRule) error {
	return r.NamedRules.Put(n)
}
func (r *RepositoryResolver) GetNamedRule(id model.UUID) (*model.NamedRule, bool, error) {
	return r.NamedRules.Get(id)
}
func (r *RepositoryResolver) RemoveNamedRule(id model.UUID) error { return r.NamedRules.Remove(id) }
func (r *RepositoryResolver) PutPermission(res model.Resource, allow model.Allow) error {
	return r.Permissions.Put(res, allow)
}

// TransferFunds validates that a transfer is executable against an
// account's held assets — account exists, holds assetID, amount positive —
// without writing any state. STATION's distilled scope never models the
// downstream blockchain adapters original_source dispatches to per-chain
// (SPEC_FULL.md §9 Non-goals), and model.Account carries no balance field
// to debit; this is the validation-only seam a real chain adapter's
// transfer submission would plug into, not a recorded completion.
func (r *RepositoryResolver) TransferFunds(accountID, assetID model.UUID, to string, amount, fee *big.Int, memo string) error {
	account, ok, err := r.Accounts.Get(accountID)
	if err != nil {
		return err
	}
	if !ok {
		return stationerr.NotFound("account %s not found", accountID)
	}
	if _, holds := account.Assets[assetID]; !holds {
		return stationerr.Validation("account %s does not hold asset %s", accountID, assetID)
	}
	if amount == nil || amount.Sign() <= 0 {
		return stationerr.Validation("transfer amount must be positive")
	}
	return nil
}

func (r *RepositoryResolver) ManageSystemInfo(op *model.ManageSystemInfoOperation) error {
	return nil
}

// TriggerSystemUpgrade dispatches trigger_upgrade to whichever Upgrader
// surface owns op.Target: the standalone cmd/upgraderd instance over
// UpgraderRemote for model.SystemUpgradeTargetUpgrader, the in-process
// Upgrader for everything else (model.SystemUpgradeTargetStation).
func (r *RepositoryResolver) TriggerSystemUpgrade(op *model.SystemUpgradeOperation) (Stage, error) {
	req := upgrader.TriggerUpgradeRequest{
		Caller:            r.SystemCaller,
		TargetPrincipal:   r.SystemCaller,
		Target:            op.Target,
		ModuleBytes:       op.ModuleBytes,
		ModuleExtraChunks: op.ModuleExtraChunks,
		Arg:               op.Arg,
		InstallMode:       op.InstallMode,
	}
	var err error
	if op.Target == model.SystemUpgradeTargetUpgrader && r.UpgraderRemote != nil {
		err = r.UpgraderRemote.TriggerUpgrade(context.Background(), req)
	} else {
		err = r.Upgrader.TriggerUpgrade(context.Background(), req)
	}
	if err != nil {
		return "", err
	}
	return StageCompleted, nil
}

func (r *RepositoryResolver) TriggerSystemRestore(op *model.SystemRestoreOperation) (Stage, error) {
	var err error
	if op.Target == model.SystemUpgradeTargetUpgrader && r.UpgraderRemote != nil {
		err = r.UpgraderRemote.Restore(context.Background(), op.Target, op.SnapshotID)
	} else {
		err = r.Upgrader.Restore(context.Background(), op.Target, op.SnapshotID)
	}
	if err != nil {
		return "", err
	}
	return StageCompleted, nil
}

// CallExternalCanister, ConfigureExternalCanister and ChangeExternalCanister
// address spec.md §3's external-canister operations, which SPEC_FULL.md's
// expansion keeps in scope (the distilled spec's Non-goals never name
// them) but whose actual downstream transport is out of scope for the
// in-process resolver; they report StageProcessing so the scheduler's
// Processing state correctly reflects that completion depends on an
// external call this resolver does not itself perform.
func (r *RepositoryResolver) CallExternalCanister(op *model.CallExternalCanisterOperation) (Stage, error) {
	return StageProcessing, nil
}

func (r *RepositoryResolver) ConfigureExternalCanister(op *model.ConfigureExternalCanisterOperation) error {
	return nil
}

func (r *RepositoryResolver) ChangeExternalCanister(op *model.ChangeExternalCanisterOperation) (Stage, error) {
	return StageProcessing, nil
}
