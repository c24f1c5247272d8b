package factory

import (
	"context"

	"github.com/station-labs/station/model"
	"github.com/station-labs/station/stationerr"
)

func validateRuleRefs(ctx context.Context, rule *model.Rule, r Resolver) error {
	if rule == nil {
		return stationerr.Validation("rule must not be nil")
	}
	if err := rule.Validate(); err != nil {
		return stationerr.Validation("%v", err)
	}
	refs := map[model.UUID]struct{}{}
	rule.NamedRuleIDs(refs)
	for id := range refs {
		exists, err := r.NamedRuleExists(id)
		if err != nil {
			return err
		}
		if !exists {
			return stationerr.NotFound("named rule %s not found", id)
		}
	}
	return nil
}

// AddRequestPolicyFactory implements the add_request_policy operation.
type AddRequestPolicyFactory struct{}

func (AddRequestPolicyFactory) Validate(ctx context.Context, op model.Operation, r Resolver) error {
	a := op.(*model.AddRequestPolicyOperation)
	return validateRuleRefs(ctx, a.Rule, r)
}

func (AddRequestPolicyFactory) Title(op model.Operation) string {
	a := op.(*model.AddRequestPolicyOperation)
	return "Add request policy for " + string(a.Specifier.OperationKind)
}

func (AddRequestPolicyFactory) DefaultExpiration(op model.Operation) model.Timestamp {
	return model.NextTime().Add(defaultRequestExpiration)
}

func (AddRequestPolicyFactory) Resources(op model.Operation) []model.Resource {
	return []model.Resource{{Kind: model.ResourceKindRequestPolicy, Action: model.ActionCreate}}
}

func (AddRequestPolicyFactory) Execute(ctx context.Context, req *model.Request, r Resolver) (Stage, error) {
	a := req.Operation.(*model.AddRequestPolicyOperation)
	p := &model.Policy{ID: model.NewUUID(), Specifier: a.Specifier, Rule: a.Rule}
	if err := r.PutPolicy(p); err != nil {
		return "", err
	}
	return StageCompleted, nil
}

// EditRequestPolicyFactory implements the edit_request_policy operation.
type EditRequestPolicyFactory struct{}

func (EditRequestPolicyFactory) Validate(ctx context.Context, op model.Operation, r Resolver) error {
	e := op.(*model.EditRequestPolicyOperation)
	exists, err := r.PolicyExists(e.PolicyID)
	if err != nil {
		return err
	}
	if !exists {
		return stationerr.NotFound("policy %s not found", e.PolicyID)
	}
	if e.Rule != nil {
		return validateRuleRefs(ctx, e.Rule, r)
	}
	return nil
}

func (EditRequestPolicyFactory) Title(op model.Operation) string {
	return "Edit request policy " + op.(*model.EditRequestPolicyOperation).PolicyID.String()
}

func (EditRequestPolicyFactory) DefaultExpiration(op model.Operation) model.Timestamp {
	return model.NextTime().Add(defaultRequestExpiration)
}

func (EditRequestPolicyFactory) Resources(op model.Operation) []model.Resource {
	e := op.(*model.EditRequestPolicyOperation)
	return []model.Resource{{Kind: model.ResourceKindRequestPolicy, Action: model.ActionUpdate, ID: e.PolicyID}}
}

func (EditRequestPolicyFactory) Execute(ctx context.Context, req *model.Request, r Resolver) (Stage, error) {
	e := req.Operation.(*model.EditRequestPolicyOperation)
	p, ok, err := r.GetPolicy(e.PolicyID)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", stationerr.NotFound("policy %s not found", e.PolicyID)
	}
	if e.Specifier != nil {
		p.Specifier = *e.Specifier
	}
	if e.Rule != nil {
		p.Rule = e.Rule
	}
	if err := r.PutPolicy(p); err != nil {
		return "", err
	}
	return StageCompleted, nil
}

// RemoveRequestPolicyFactory implements the remove_request_policy operation.
type RemoveRequestPolicyFactory struct{}

func (RemoveRequestPolicyFactory) Validate(ctx context.Context, op model.Operation, r Resolver) error {
	id := op.(*model.RemoveRequestPolicyOperation).PolicyID
	exists, err := r.PolicyExists(id)
	if err != nil {
		return err
	}
	if !exists {
		return stationerr.NotFound("policy %s not found", id)
	}
	return nil
}

func (RemoveRequestPolicyFactory) Title(op model.Operation) string {
	return "Remove request policy " + op.(*model.RemoveRequestPolicyOperation).PolicyID.String()
}

func (RemoveRequestPolicyFactory) DefaultExpiration(op model.Operation) model.Timestamp {
	return model.NextTime().Add(defaultRequestExpiration)
}

func (RemoveRequestPolicyFactory) Resources(op model.Operation) []model.Resource {
	e := op.(*model.RemoveRequestPolicyOperation)
	return []model.Resource{{Kind: model.ResourceKindRequestPolicy, Action: model.ActionDelete, ID: e.PolicyID}}
}

func (RemoveRequestPolicyFactory) Execute(ctx context.Context, req *model.Request, r Resolver) (Stage, error) {
	e := req.Operation.(*model.RemoveRequestPolicyOperation)
	if err := r.RemovePolicy(e.PolicyID); err != nil {
		return "", err
	}
	return StageCompleted, nil
}

// AddNamedRuleFactory implements the add_named_rule operation.
type AddNamedRuleFactory struct{}

func (AddNamedRuleFactory) Validate(ctx context.Context, op model.Operation, r Resolver) error {
	a := op.(*model.AddNamedRuleOperation)
	if model.NormalizeName(a.Name) == "" {
		return stationerr.Validation("named rule name must not be empty")
	}
	return validateRuleRefs(ctx, a.Rule, r)
}

func (AddNamedRuleFactory) Title(op model.Operation) string {
	return "Add named rule " + op.(*model.AddNamedRuleOperation).Name
}

func (AddNamedRuleFactory) DefaultExpiration(op model.Operation) model.Timestamp {
	return model.NextTime().Add(defaultRequestExpiration)
}

func (AddNamedRuleFactory) Resources(op model.Operation) []model.Resource {
	return []model.Resource{{Kind: model.ResourceKindNamedRule, Action: model.ActionCreate}}
}

func (AddNamedRuleFactory) Execute(ctx context.Context, req *model.Request, r Resolver) (Stage, error) {
	a := req.Operation.(*model.AddNamedRuleOperation)
	n := &model.NamedRule{ID: model.NewUUID(), Name: a.Name, Rule: a.Rule}
	if err := r.PutNamedRule(n); err != nil {
		return "", err
	}
	return StageCompleted, nil
}

// EditNamedRuleFactory implements the edit_named_rule operation.
type EditNamedRuleFactory struct{}

func (EditNamedRuleFactory) Validate(ctx context.Context, op model.Operation, r Resolver) error {
	e := op.(*model.EditNamedRuleOperation)
	exists, err := r.NamedRuleExists(e.NamedRuleID)
	if err != nil {
		return err
	}
	if !exists {
		return stationerr.NotFound("named rule %s not found", e.NamedRuleID)
	}
	if e.Rule != nil {
		if err := validateRuleRefs(ctx, e.Rule, r); err != nil {
			return err
		}
		creates, err := r.NamedRuleCreatesCycle(e.NamedRuleID, e.Rule)
		if err != nil {
			return err
		}
		if creates {
			return stationerr.Validation("editing named rule %s to this rule would create a reference cycle", e.NamedRuleID)
		}
	}
	return nil
}

func (EditNamedRuleFactory) Title(op model.Operation) string {
	return "Edit named rule " + op.(*model.EditNamedRuleOperation).NamedRuleID.String()
}

func (EditNamedRuleFactory) DefaultExpiration(op model.Operation) model.Timestamp {
	return model.NextTime().Add(defaultRequestExpiration)
}

func (EditNamedRuleFactory) Resources(op model.Operation) []model.Resource {
	e := op.(*model.EditNamedRuleOperation)
	return []model.Resource{{Kind: model.ResourceKindNamedRule, Action: model.ActionUpdate, ID: e.NamedRuleID}}
}

func (EditNamedRuleFactory) Execute(ctx context.Context, req *model.Request, r Resolver) (Stage, error) {
	e := req.Operation.(*model.EditNamedRuleOperation)
	n, ok, err := r.GetNamedRule(e.NamedRuleID)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", stationerr.NotFound("named rule %s not found", e.NamedRuleID)
	}
	if e.Name != nil {
		n.Name = *e.Name
	}
	if e.Rule != nil {
		n.Rule = e.Rule
	}
	if err := r.PutNamedRule(n); err != nil {
		return "", err
	}
	return StageCompleted, nil
}

// RemoveNamedRuleFactory implements the remove_named_rule operation.
type RemoveNamedRuleFactory struct{}

func (RemoveNamedRuleFactory) Validate(ctx context.Context, op model.Operation, r Resolver) error {
	id := op.(*model.RemoveNamedRuleOperation).NamedRuleID
	exists, err := r.NamedRuleExists(id)
	if err != nil {
		return err
	}
	if !exists {
		return stationerr.NotFound("named rule %s not found", id)
	}
	return nil
}

func (RemoveNamedRuleFactory) Title(op model.Operation) string {
	return "Remove named rule " + op.(*model.RemoveNamedRuleOperation).NamedRuleID.String()
}

func (RemoveNamedRuleFactory) DefaultExpiration(op model.Operation) model.Timestamp {
	return model.NextTime().Add(defaultRequestExpiration)
}

func (RemoveNamedRuleFactory) Resources(op model.Operation) []model.Resource {
	e := op.(*model.RemoveNamedRuleOperation)
	return []model.Resource{{Kind: model.ResourceKindNamedRule, Action: model.ActionDelete, ID: e.NamedRuleID}}
}

func (RemoveNamedRuleFactory) Execute(ctx context.Context, req *model.Request, r Resolver) (Stage, error) {
	e := req.Operation.(*model.RemoveNamedRuleOperation)
	if err := r.RemoveNamedRule(e.NamedRuleID); err != nil {
		return "", err
	}
	return StageCompleted, nil
}
