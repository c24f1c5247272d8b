package factory

import (
	"context"

	"github.com/station-labs/station/model"
	"github.com/station-labs/station/stationerr"
)

// EditPermissionFactory implements the edit_permission operation.
type EditPermissionFactory struct{}

func (EditPermissionFactory) Validate(ctx context.Context, op model.Operation, r Resolver) error {
	e := op.(*model.EditPermissionOperation)
	for g := range e.Allow.UserGroups {
		exists, err := r.GroupExists(g)
		if err != nil {
			return err
		}
		if !exists {
			return stationerr.NotFound("group %s not found", g)
		}
	}
	for u := range e.Allow.Users {
		exists, err := r.UserExists(u)
		if err != nil {
			return err
		}
		if !exists {
			return stationerr.NotFound("user %s not found", u)
		}
	}
	return nil
}

func (EditPermissionFactory) Title(op model.Operation) string {
	e := op.(*model.EditPermissionOperation)
	return "Edit permission for " + string(e.Resource.Kind) + "." + string(e.Resource.Action)
}

func (EditPermissionFactory) DefaultExpiration(op model.Operation) model.Timestamp {
	return model.NextTime().Add(defaultRequestExpiration)
}

func (EditPermissionFactory) Resources(op model.Operation) []model.Resource {
	return []model.Resource{{Kind: model.ResourceKindPermission, Action: model.ActionUpdate}}
}

func (EditPermissionFactory) Execute(ctx context.Context, req *model.Request, r Resolver) (Stage, error) {
	e := req.Operation.(*model.EditPermissionOperation)
	if err := r.PutPermission(e.Resource, e.Allow); err != nil {
		return "", err
	}
	return StageCompleted, nil
}
