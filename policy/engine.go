// Package policy implements the Policy Evaluation Engine: a pure function
// over a snapshotted rule tree, the approvals recorded so far, and a small
// set of repository-backed facts, that jointly produces an EvaluationStatus
// and the possible-approvers set driving submit_approval's Forbidden check.
package policy

import (
	"math"

	"github.com/station-labs/station/model"
)

// EvaluationStatus is the tri-state result of evaluating one rule node.
type EvaluationStatus string

const (
	Approved EvaluationStatus = "approved"
	Rejected EvaluationStatus = "rejected"
	Pending  EvaluationStatus = "pending"
)

// Resolver supplies the facts evaluation needs but does not own: live user
// activity/group membership, NamedRule bodies, and address-book lookups.
// Implementations read through to the repository package; the engine itself
// touches no storage, keeping it the "pure function over snapshot+facts"
// spec.md §4.2 calls for.
type Resolver interface {
	// ResolveUserSpec returns the active users named by spec. Per spec.md
	// §4.2: "resolve(UserSpec) returns active users only."
	ResolveUserSpec(spec model.UserSpec) (map[model.UUID]struct{}, error)
	// ResolveNamedRule looks up a named rule's body by id.
	ResolveNamedRule(id model.UUID) (*model.Rule, bool, error)
	// AddressBookEntryByAddress finds the address-book entry for a raw
	// address string, used by AllowListed/AllowListedByMetadata.
	AddressBookEntryByAddress(address string) (*model.AddressBookEntry, bool, error)
}

// Result is the joint output of evaluating a rule tree.
type Result struct {
	Status            EvaluationStatus
	PossibleApprovers map[model.UUID]struct{}
}

func terminal(status EvaluationStatus) Result {
	return Result{Status: status, PossibleApprovers: map[model.UUID]struct{}{}}
}

// Evaluate evaluates rule against the approvals recorded on a request
// whose operation is op, using resolver for live facts. A nil rule (no
// applicable policy matched at creation time) evaluates to Rejected, the
// safe default per spec.md §4.3's "empty means deny by default" philosophy
// carried into the policy engine.
func Evaluate(rule *model.Rule, approvals []model.Approval, op model.Operation, resolver Resolver) (Result, error) {
	if rule == nil {
		return terminal(Rejected), nil
	}
	approvedBy, rejectedBy := splitApprovals(approvals)
	return evaluateNode(rule, approvedBy, rejectedBy, op, resolver)
}

func splitApprovals(approvals []model.Approval) (approved, rejected map[model.UUID]struct{}) {
	approved = map[model.UUID]struct{}{}
	rejected = map[model.UUID]struct{}{}
	for _, a := range approvals {
		switch a.Decision {
		case model.ApprovalApproved:
			approved[a.User] = struct{}{}
		case model.ApprovalRejected:
			rejected[a.User] = struct{}{}
		}
	}
	return approved, rejected
}

func evaluateNode(rule *model.Rule, approvedBy, rejectedBy map[model.UUID]struct{}, op model.Operation, resolver Resolver) (Result, error) {
	switch rule.Kind {
	case model.RuleAutoApproved:
		return terminal(Approved), nil

	case model.RuleQuorum:
		return evaluateQuorum(rule.Approvers, rule.MinCount, approvedBy, rejectedBy, resolver)

	case model.RuleQuorumPercentage:
		resolved, err := resolver.ResolveUserSpec(rule.Approvers)
		if err != nil {
			return Result{}, err
		}
		n := uint16(math.Ceil(float64(len(resolved)) * float64(rule.MinPercent) / 100))
		if n < 1 {
			n = 1
		}
		return evaluateQuorumResolved(resolved, n, approvedBy, rejectedBy)

	case model.RuleAllowListed:
		return evaluateAllowListed(op, resolver, "", "")

	case model.RuleAllowListedByMetadata:
		return evaluateAllowListed(op, resolver, rule.MetadataKey, rule.MetadataValue)

	case model.RuleAllOf:
		return evaluateAllOf(rule.Children, approvedBy, rejectedBy, op, resolver)

	case model.RuleAnyOf:
		return evaluateAnyOf(rule.Children, approvedBy, rejectedBy, op, resolver)

	case model.RuleNot:
		inner, err := evaluateNode(rule.Child, approvedBy, rejectedBy, op, resolver)
		if err != nil {
			return Result{}, err
		}
		switch inner.Status {
		case Approved:
			return terminal(Rejected), nil
		case Rejected:
			return terminal(Approved), nil
		default:
			return inner, nil
		}

	case model.RuleNamedRule:
		named, ok, err := resolver.ResolveNamedRule(rule.NamedRuleID)
		if err != nil {
			return Result{}, err
		}
		if !ok {
			return terminal(Rejected), nil
		}
		return evaluateNode(named, approvedBy, rejectedBy, op, resolver)

	default:
		return terminal(Rejected), nil
	}
}

func evaluateQuorum(spec model.UserSpec, n uint16, approvedBy, rejectedBy map[model.UUID]struct{}, resolver Resolver) (Result, error) {
	resolved, err := resolver.ResolveUserSpec(spec)
	if err != nil {
		return Result{}, err
	}
	return evaluateQuorumResolved(resolved, n, approvedBy, rejectedBy)
}

func evaluateQuorumResolved(resolved map[model.UUID]struct{}, n uint16, approvedBy, rejectedBy map[model.UUID]struct{}) (Result, error) {
	var approvedCount, rejectedCount int
	decided := map[model.UUID]struct{}{}
	for u := range resolved {
		if _, ok := approvedBy[u]; ok {
			approvedCount++
			decided[u] = struct{}{}
		}
		if _, ok := rejectedBy[u]; ok {
			rejectedCount++
			decided[u] = struct{}{}
		}
	}
	if approvedCount >= int(n) {
		return terminal(Approved), nil
	}
	if len(resolved)-rejectedCount < int(n) {
		return terminal(Rejected), nil
	}
	possible := map[model.UUID]struct{}{}
	for u := range resolved {
		if _, ok := decided[u]; !ok {
			possible[u] = struct{}{}
		}
	}
	return Result{Status: Pending, PossibleApprovers: possible}, nil
}

// targetAddress extracts the address an operation's AllowListed rule checks
// against. Only Transfer operations name a target address in spec.md §3;
// every other operation kind has no meaningful target and evaluates
// Rejected, matching "else Rejected" in the AllowListed semantics.
func targetAddress(op model.Operation) (string, bool) {
	t, ok := op.(*model.TransferOperation)
	if !ok {
		return "", false
	}
	return t.To, true
}

func evaluateAllowListed(op model.Operation, resolver Resolver, metadataKey, metadataValue string) (Result, error) {
	addr, ok := targetAddress(op)
	if !ok {
		return terminal(Rejected), nil
	}
	entry, found, err := resolver.AddressBookEntryByAddress(addr)
	if err != nil {
		return Result{}, err
	}
	if !found {
		return terminal(Rejected), nil
	}
	if metadataKey == "" {
		return terminal(Approved), nil
	}
	if entry.Metadata != nil && entry.Metadata[metadataKey] == metadataValue {
		return terminal(Approved), nil
	}
	return terminal(Rejected), nil
}

func evaluateAllOf(children []*model.Rule, approvedBy, rejectedBy map[model.UUID]struct{}, op model.Operation, resolver Resolver) (Result, error) {
	possible := map[model.UUID]struct{}{}
	anyPending := false
	for _, c := range children {
		r, err := evaluateNode(c, approvedBy, rejectedBy, op, resolver)
		if err != nil {
			return Result{}, err
		}
		switch r.Status {
		case Rejected:
			return terminal(Rejected), nil
		case Pending:
			anyPending = true
			for u := range r.PossibleApprovers {
				possible[u] = struct{}{}
			}
		}
	}
	if anyPending {
		return Result{Status: Pending, PossibleApprovers: possible}, nil
	}
	return terminal(Approved), nil
}

func evaluateAnyOf(children []*model.Rule, approvedBy, rejectedBy map[model.UUID]struct{}, op model.Operation, resolver Resolver) (Result, error) {
	possible := map[model.UUID]struct{}{}
	anyPending := false
	for _, c := range children {
		r, err := evaluateNode(c, approvedBy, rejectedBy, op, resolver)
		if err != nil {
			return Result{}, err
		}
		switch r.Status {
		case Approved:
			return terminal(Approved), nil
		case Pending:
			anyPending = true
			for u := range r.PossibleApprovers {
				possible[u] = struct{}{}
			}
		}
	}
	if anyPending {
		return Result{Status: Pending, PossibleApprovers: possible}, nil
	}
	return terminal(Rejected), nil
}
