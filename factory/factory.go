// Package factory implements spec.md §4.6's per-operation Factory contract:
// validate inputs, describe the request for display, name the resources an
// authorize() call must check, and execute once the policy has approved.
package factory

import (
	"context"
	"math/big"

	"github.com/station-labs/station/model"
)

// Stage is a factory's report of how far Execute got, per spec.md §4.4:
// "dispatches execution ... Result<Stage, Err> with Stage ∈ {Completed,
// Processing}." Processing means the factory kicked off an external call
// and the request should stay Processing awaiting a later continuation;
// nothing in this in-process station ever resumes such a request on its
// own. RepositoryResolver's CallExternalCanister and ChangeExternalCanister
// return Processing; its upgrade and restore paths return Completed.
type Stage string

const (
	StageCompleted  Stage = "completed"
	StageProcessing Stage = "processing"
)

// Factory is the per-operation-kind contract every operation in spec.md §3
// implements: input validation, human-facing description, the resources an
// authorize() call must check before the request is created, and the
// execution step the scheduler invokes once a request's rule tree evaluates
// Approved.
type Factory interface {
	// Validate checks op's fields are well-formed and internally consistent,
	// independent of any live repository state beyond what resolver exposes.
	Validate(ctx context.Context, op model.Operation, resolver Resolver) error
	// Title renders a short human-facing summary of op for display.
	Title(op model.Operation) string
	// DefaultExpiration returns the Timestamp at which a freshly created
	// request carrying op expires if never decided.
	DefaultExpiration(op model.Operation) model.Timestamp
	// Resources names every Resource an authorize() call must admit before
	// a request carrying op may be created.
	Resources(op model.Operation) []model.Resource
	// Execute performs op's effect against live repository state once the
	// request's policy has evaluated Approved.
	Execute(ctx context.Context, req *model.Request, resolver Resolver) (Stage, error)
}

// Resolver is the slice of repository state a Factory needs, kept narrow
// and passed explicitly (rather than each factory importing package
// repository directly) so Validate/Execute stay testable against fakes,
// matching the teacher's own narrow-interface-at-the-call-site style (see
// native/governance.Engine's small collaborator interfaces).
type Resolver interface {
	UserExists(id model.UUID) (bool, error)
	UserNameTaken(name string, exceptID model.UUID) (bool, error)
	GroupExists(id model.UUID) (bool, error)
	AccountExists(id model.UUID) (bool, error)
	AccountNameTaken(name string, exceptID model.UUID) (bool, error)
	AssetExists(id model.UUID) (bool, error)
	AssetKeyTaken(symbol, blockchain string, exceptID model.UUID) (bool, error)
	AddressBookEntryExists(id model.UUID) (bool, error)
	PolicyExists(id model.UUID) (bool, error)
	GetPolicy(id model.UUID) (*model.Policy, bool, error)
	NamedRuleExists(id model.UUID) (bool, error)
	NamedRuleCreatesCycle(id model.UUID, rule *model.Rule) (bool, error)

	PutUser(u *model.User) error
	GetUser(id model.UUID) (*model.User, bool, error)
	RemoveUserGroup(id model.UUID) error
	PutUserGroup(g *model.UserGroup) error
	GetUserGroup(id model.UUID) (*model.UserGroup, bool, error)
	PutAccount(a *model.Account) error
	GetAccount(id model.UUID) (*model.Account, bool, error)
	PutAsset(a *model.Asset) error
	GetAsset(id model.UUID) (*model.Asset, bool, error)
	RemoveAsset(id model.UUID) error
	AssetInUse(id model.UUID) (bool, error)
	PutAddressBookEntry(e *model.AddressBookEntry) error
	GetAddressBookEntry(id model.UUID) (*model.AddressBookEntry, bool, error)
	RemoveAddressBookEntry(id model.UUID) error
	PutPolicy(p *model.Policy) error
	RemovePolicy(id model.UUID) error
	PutNamedRule(n *model.NamedRule) error
	GetNamedRule(id model.UUID) (*model.NamedRule, bool, error)
	RemoveNamedRule(id model.UUID) error
	PutPermission(r model.Resource, allow model.Allow) error
	TransferFunds(accountID, assetID model.UUID, to string, amount, fee *big.Int, memo string) error
	ManageSystemInfo(op *model.ManageSystemInfoOperation) error
	TriggerSystemUpgrade(op *model.SystemUpgradeOperation) (Stage, error)
	TriggerSystemRestore(op *model.SystemRestoreOperation) (Stage, error)
	CallExternalCanister(op *model.CallExternalCanisterOperation) (Stage, error)
	ConfigureExternalCanister(op *model.ConfigureExternalCanisterOperation) error
	ChangeExternalCanister(op *model.ChangeExternalCanisterOperation) (Stage, error)
}

// Registry is the dispatch table from an operation's kind to the Factory
// that handles it, keyed on the operation's variant tag — the same pattern
// the teacher uses for its own opcode-to-handler tables in core/.
type Registry struct {
	factories map[model.OperationKind]Factory
}

// NewRegistry builds an empty Registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[model.OperationKind]Factory)}
}

// Register binds kind to f. Re-registering a kind replaces the prior
// binding, useful for tests that substitute fakes.
func (r *Registry) Register(kind model.OperationKind, f Factory) {
	r.factories[kind] = f
}

// For looks up the Factory bound to kind.
func (r *Registry) For(kind model.OperationKind) (Factory, bool) {
	f, ok := r.factories[kind]
	return f, ok
}
