package policy

import (
	"bytes"

	"github.com/station-labs/station/model"
	"github.com/station-labs/station/repository"
)

// SelectPolicy scans the policies governing op's operation kind and returns
// the applicable one's rule, cloned for snapshotting onto a new request per
// spec.md §4.2: "clones and snapshots its rule into the request so later
// policy edits do not affect in-flight requests."
//
// spec.md describes scanning for "the applicable policy" in the singular
// but does not say what happens when more than one policy's specifier
// matches (e.g. a general operation_kind policy alongside a more specific
// operation_kind_with_ids one for the same id). This implementation prefers
// the most specific match — a specifier naming an explicit id set beats one
// that doesn't — and breaks any remaining tie by policy id so selection
// stays deterministic, matching spec.md §4.2's "evaluation must be
// order-independent."
func SelectPolicy(op model.Operation, policies *repository.PolicyRepository) (*model.Rule, bool, error) {
	kind := op.Kind()
	resourceID := repository.ResourceIDOf(op)
	candidates, err := policies.ByOperationKind(kind)
	if err != nil {
		return nil, false, err
	}
	var best *model.Policy
	for _, p := range candidates {
		if !p.Specifier.Matches(kind, resourceID) {
			continue
		}
		if best == nil {
			best = p
			continue
		}
		bestSpecific := best.Specifier.Kind == model.SpecifierOperationKindWithIDs && len(best.Specifier.ResourceIDs) > 0
		candidateSpecific := p.Specifier.Kind == model.SpecifierOperationKindWithIDs && len(p.Specifier.ResourceIDs) > 0
		switch {
		case candidateSpecific && !bestSpecific:
			best = p
		case candidateSpecific == bestSpecific && bytes.Compare(p.ID[:], best.ID[:]) < 0:
			best = p
		}
	}
	if best == nil {
		return nil, false, nil
	}
	return best.Rule.Clone(), true, nil
}
