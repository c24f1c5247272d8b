package repository

import (
	"github.com/station-labs/station/model"
	"github.com/station-labs/station/storage"
)

const nsPolicyByOperationKind = "policy_by_operation_kind"

// PolicyRepository indexes Policy by the operation kind its specifier
// governs, so evaluating a freshly created Request only has to scan the
// policies relevant to its operation's kind instead of every policy in the
// station.
type PolicyRepository struct {
	repo *Repository[*model.Policy]
}

func NewPolicyRepository(db storage.Database) *PolicyRepository {
	encode, decode := JSONCodec[*model.Policy]()
	indexes := []IndexSpec[*model.Policy]{
		{
			Name: nsPolicyByOperationKind,
			KeysFor: func(p *model.Policy) [][]byte {
				return [][]byte{IndexKey(nsPolicyByOperationKind, []byte(p.Specifier.OperationKind), p.ID[:])}
			},
		},
	}
	return &PolicyRepository{repo: New(db, "policy", indexes, encode, decode)}
}

func (pr *PolicyRepository) Get(id model.UUID) (*model.Policy, bool, error) { return pr.repo.Get(id) }
func (pr *PolicyRepository) MustGet(id model.UUID) (*model.Policy, error)   { return pr.repo.MustGet(id) }
func (pr *PolicyRepository) Put(p *model.Policy) error                     { return pr.repo.Put(p.ID, p) }
func (pr *PolicyRepository) Remove(id model.UUID) error                    { return pr.repo.Remove(id) }
func (pr *PolicyRepository) All() ([]*model.Policy, error)                 { return pr.repo.All() }

// ByOperationKind returns every Policy whose specifier names kind,
// regardless of any id-set refinement (policy.SelectPolicy still consults
// RequestSpecifier.Matches against the concrete resource id).
func (pr *PolicyRepository) ByOperationKind(kind model.OperationKind) ([]*model.Policy, error) {
	start := IndexKey(nsPolicyByOperationKind, []byte(kind))
	end := IndexKey(nsPolicyByOperationKind, []byte(kind), model.MaxUUID[:])
	rows, err := pr.repo.IndexRange(start, append(end, 0xff))
	if err != nil {
		return nil, err
	}
	out := make([]*model.Policy, 0, len(rows))
	for _, row := range rows {
		id, err := ExtractID(row.Key)
		if err != nil {
			return nil, err
		}
		p, ok, err := pr.Get(id)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, p)
		}
	}
	return out, nil
}

// NamedRuleRepository indexes NamedRule by normalized name.
type NamedRuleRepository struct {
	repo  *Repository[*model.NamedRule]
	names *UniqueIndex
}

func NewNamedRuleRepository(db storage.Database) *NamedRuleRepository {
	encode, decode := JSONCodec[*model.NamedRule]()
	return &NamedRuleRepository{
		repo:  New[*model.NamedRule](db, "named_rule", nil, encode, decode),
		names: NewUniqueIndex(db, "named_rule_name"),
	}
}

func (nr *NamedRuleRepository) Get(id model.UUID) (*model.NamedRule, bool, error) {
	return nr.repo.Get(id)
}
func (nr *NamedRuleRepository) MustGet(id model.UUID) (*model.NamedRule, error) {
	return nr.repo.MustGet(id)
}
func (nr *NamedRuleRepository) All() ([]*model.NamedRule, error) { return nr.repo.All() }

func (nr *NamedRuleRepository) Put(n *model.NamedRule) error {
	existing, existed, err := nr.Get(n.ID)
	if err != nil {
		return err
	}
	oldName := ""
	if existed {
		oldName = model.NormalizeName(existing.Name)
	}
	if err := nr.names.ReplaceReservation("name", oldName, model.NormalizeName(n.Name), n.ID); err != nil {
		return err
	}
	return nr.repo.Put(n.ID, n)
}

func (nr *NamedRuleRepository) Remove(id model.UUID) error {
	n, ok, err := nr.Get(id)
	if err != nil || !ok {
		return err
	}
	if err := nr.names.Release(model.NormalizeName(n.Name)); err != nil {
		return err
	}
	return nr.repo.Remove(id)
}

// ReferencedBy reports which NamedRule and Policy entries reference target
// via a RuleNamedRule node. Nothing in the repository calls it; the
// edit-time cycle check is factory.RepositoryResolver.NamedRuleCreatesCycle's
// own traversal.
func ReferencedBy(namedRules []*model.NamedRule, policies []*model.Policy, target model.UUID) (namedRuleIDs, policyIDs []model.UUID) {
	for _, n := range namedRules {
		refs := map[model.UUID]struct{}{}
		n.Rule.NamedRuleIDs(refs)
		if _, ok := refs[target]; ok {
			namedRuleIDs = append(namedRuleIDs, n.ID)
		}
	}
	for _, p := range policies {
		refs := map[model.UUID]struct{}{}
		p.Rule.NamedRuleIDs(refs)
		if _, ok := refs[target]; ok {
			policyIDs = append(policyIDs, p.ID)
		}
	}
	return namedRuleIDs, policyIDs
}
