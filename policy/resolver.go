package policy

import (
	"github.com/station-labs/station/model"
	"github.com/station-labs/station/repository"
)

// RepositoryResolver is the production Resolver, reading live facts from
// the indexed repositories. It is the one place the otherwise-pure engine
// touches storage.
type RepositoryResolver struct {
	Users      *repository.UserRepository
	Groups     *repository.UserGroupRepository
	NamedRules *repository.NamedRuleRepository
	Addresses  *repository.AddressBookRepository
}

// ResolveUserSpec returns the active users named by spec.
func (r *RepositoryResolver) ResolveUserSpec(spec model.UserSpec) (map[model.UUID]struct{}, error) {
	out := map[model.UUID]struct{}{}
	switch spec.Kind {
	case model.UserSpecAny:
		all, err := r.Users.All()
		if err != nil {
			return nil, err
		}
		for _, u := range all {
			if u.IsActive() {
				out[u.ID] = struct{}{}
			}
		}
	case model.UserSpecID:
		for id := range spec.IDs {
			u, ok, err := r.Users.Get(id)
			if err != nil {
				return nil, err
			}
			if ok && u.IsActive() {
				out[id] = struct{}{}
			}
		}
	case model.UserSpecGroup:
		members, err := r.Users.ByGroup(spec.Group)
		if err != nil {
			return nil, err
		}
		for _, u := range members {
			if u.IsActive() {
				out[u.ID] = struct{}{}
			}
		}
	}
	return out, nil
}

// ResolveNamedRule looks up a named rule's body by id.
func (r *RepositoryResolver) ResolveNamedRule(id model.UUID) (*model.Rule, bool, error) {
	n, ok, err := r.NamedRules.Get(id)
	if err != nil || !ok {
		return nil, ok, err
	}
	return n.Rule, true, nil
}

// AddressBookEntryByAddress scans the address book for an entry whose
// rendered address matches addr, regardless of blockchain/standard —
// AllowListed rules only have a bare address string to check, not the full
// (blockchain, standard, address) key an AddressBookEntry is stored under.
func (r *RepositoryResolver) AddressBookEntryByAddress(addr string) (*model.AddressBookEntry, bool, error) {
	all, err := r.Addresses.All()
	if err != nil {
		return nil, false, err
	}
	for _, e := range all {
		if e.Address == addr {
			return e, true, nil
		}
	}
	return nil, false, nil
}
