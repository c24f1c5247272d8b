package policy

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/station-labs/station/model"
)

type fakeResolver struct {
	activeUsers map[model.UUID]bool
	groups      map[model.UUID][]model.UUID
	namedRules  map[model.UUID]*model.Rule
	addresses   map[string]*model.AddressBookEntry
}

func (f *fakeResolver) ResolveUserSpec(spec model.UserSpec) (map[model.UUID]struct{}, error) {
	out := map[model.UUID]struct{}{}
	switch spec.Kind {
	case model.UserSpecAny:
		for u, active := range f.activeUsers {
			if active {
				out[u] = struct{}{}
			}
		}
	case model.UserSpecID:
		for id := range spec.IDs {
			if f.activeUsers[id] {
				out[id] = struct{}{}
			}
		}
	case model.UserSpecGroup:
		for _, u := range f.groups[spec.Group] {
			if f.activeUsers[u] {
				out[u] = struct{}{}
			}
		}
	}
	return out, nil
}

func (f *fakeResolver) ResolveNamedRule(id model.UUID) (*model.Rule, bool, error) {
	r, ok := f.namedRules[id]
	return r, ok, nil
}

func (f *fakeResolver) AddressBookEntryByAddress(addr string) (*model.AddressBookEntry, bool, error) {
	e, ok := f.addresses[addr]
	return e, ok, nil
}

func newFakeResolver() *fakeResolver {
	return &fakeResolver{
		activeUsers: map[model.UUID]bool{},
		groups:      map[model.UUID][]model.UUID{},
		namedRules:  map[model.UUID]*model.Rule{},
		addresses:   map[string]*model.AddressBookEntry{},
	}
}

func TestEvaluate_AutoApproved(t *testing.T) {
	r := newFakeResolver()
	res, err := Evaluate(model.AutoApproved(), nil, &model.TransferOperation{}, r)
	require.NoError(t, err)
	require.Equal(t, Approved, res.Status)
	require.Empty(t, res.PossibleApprovers)
}

func TestEvaluate_Quorum(t *testing.T) {
	r := newFakeResolver()
	u1, u2, u3 := model.NewUUID(), model.NewUUID(), model.NewUUID()
	r.activeUsers[u1] = true
	r.activeUsers[u2] = true
	r.activeUsers[u3] = true
	spec := model.IDUserSpec(u1, u2, u3)
	rule := model.QuorumRule(spec, 2)

	res, err := Evaluate(rule, nil, &model.TransferOperation{}, r)
	require.NoError(t, err)
	require.Equal(t, Pending, res.Status)
	require.Len(t, res.PossibleApprovers, 3)

	approvals := []model.Approval{{User: u1, Decision: model.ApprovalApproved}}
	res, err = Evaluate(rule, approvals, &model.TransferOperation{}, r)
	require.NoError(t, err)
	require.Equal(t, Pending, res.Status)
	require.Len(t, res.PossibleApprovers, 2)

	approvals = append(approvals, model.Approval{User: u2, Decision: model.ApprovalApproved})
	res, err = Evaluate(rule, approvals, &model.TransferOperation{}, r)
	require.NoError(t, err)
	require.Equal(t, Approved, res.Status)
}

func TestEvaluate_QuorumUnreachable(t *testing.T) {
	r := newFakeResolver()
	u1, u2, u3 := model.NewUUID(), model.NewUUID(), model.NewUUID()
	r.activeUsers[u1] = true
	r.activeUsers[u2] = true
	r.activeUsers[u3] = true
	spec := model.IDUserSpec(u1, u2, u3)
	rule := model.QuorumRule(spec, 3)

	approvals := []model.Approval{
		{User: u1, Decision: model.ApprovalRejected},
		{User: u2, Decision: model.ApprovalRejected},
	}
	res, err := Evaluate(rule, approvals, &model.TransferOperation{}, r)
	require.NoError(t, err)
	require.Equal(t, Rejected, res.Status)
}

func TestEvaluate_QuorumPercentage(t *testing.T) {
	r := newFakeResolver()
	ids := make([]model.UUID, 4)
	for i := range ids {
		ids[i] = model.NewUUID()
		r.activeUsers[ids[i]] = true
	}
	spec := model.AnyUserSpec()
	rule := model.QuorumPercentageRule(spec, 50) // ceil(4*50/100) = 2

	approvals := []model.Approval{{User: ids[0], Decision: model.ApprovalApproved}}
	res, err := Evaluate(rule, approvals, &model.TransferOperation{}, r)
	require.NoError(t, err)
	require.Equal(t, Pending, res.Status)

	approvals = append(approvals, model.Approval{User: ids[1], Decision: model.ApprovalApproved})
	res, err = Evaluate(rule, approvals, &model.TransferOperation{}, r)
	require.NoError(t, err)
	require.Equal(t, Approved, res.Status)
}

func TestEvaluate_AllOfAnyOfNot(t *testing.T) {
	r := newFakeResolver()
	rule := model.AllOfRule(model.AutoApproved(), model.NotRule(model.AutoApproved()))
	res, err := Evaluate(rule, nil, &model.TransferOperation{}, r)
	require.NoError(t, err)
	require.Equal(t, Rejected, res.Status)

	rule2 := model.AnyOfRule(model.NotRule(model.AutoApproved()), model.AutoApproved())
	res, err = Evaluate(rule2, nil, &model.TransferOperation{}, r)
	require.NoError(t, err)
	require.Equal(t, Approved, res.Status)
}

func TestEvaluate_AllowListed(t *testing.T) {
	r := newFakeResolver()
	r.addresses["addr1"] = &model.AddressBookEntry{Address: "addr1", Metadata: map[string]string{"trusted": "yes"}}

	op := &model.TransferOperation{To: "addr1"}
	res, err := Evaluate(&model.Rule{Kind: model.RuleAllowListed}, nil, op, r)
	require.NoError(t, err)
	require.Equal(t, Approved, res.Status)

	res, err = Evaluate(&model.Rule{Kind: model.RuleAllowListed}, nil, &model.TransferOperation{To: "unknown"}, r)
	require.NoError(t, err)
	require.Equal(t, Rejected, res.Status)

	byMeta := &model.Rule{Kind: model.RuleAllowListedByMetadata, MetadataKey: "trusted", MetadataValue: "yes"}
	res, err = Evaluate(byMeta, nil, op, r)
	require.NoError(t, err)
	require.Equal(t, Approved, res.Status)

	byMetaMiss := &model.Rule{Kind: model.RuleAllowListedByMetadata, MetadataKey: "trusted", MetadataValue: "no"}
	res, err = Evaluate(byMetaMiss, nil, op, r)
	require.NoError(t, err)
	require.Equal(t, Rejected, res.Status)
}

func TestEvaluate_NamedRuleMissing(t *testing.T) {
	r := newFakeResolver()
	res, err := Evaluate(model.NamedRuleRef(model.NewUUID()), nil, &model.TransferOperation{}, r)
	require.NoError(t, err)
	require.Equal(t, Rejected, res.Status)
}

func TestEvaluate_NilRuleRejects(t *testing.T) {
	r := newFakeResolver()
	res, err := Evaluate(nil, nil, &model.TransferOperation{}, r)
	require.NoError(t, err)
	require.Equal(t, Rejected, res.Status)
}
