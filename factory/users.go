package factory

import (
	"context"

	"github.com/station-labs/station/model"
	"github.com/station-labs/station/stationerr"
)

// AddUserFactory implements the add_user operation.
type AddUserFactory struct{}

func (AddUserFactory) Validate(ctx context.Context, op model.Operation, r Resolver) error {
	a := op.(*model.AddUserOperation)
	if model.NormalizeName(a.Name) == "" {
		return stationerr.Validation("user name must not be empty")
	}
	if len(a.Identities) == 0 {
		return stationerr.Validation("user requires at least one identity")
	}
	taken, err := r.UserNameTaken(a.Name, model.NilUUID)
	if err != nil {
		return err
	}
	if taken {
		return stationerr.AlreadyExists("name", "user name %q is already in use", a.Name)
	}
	for _, g := range a.Groups {
		exists, err := r.GroupExists(g)
		if err != nil {
			return err
		}
		if !exists {
			return stationerr.NotFound("group %s not found", g)
		}
	}
	if !a.Status.Valid() {
		return stationerr.Validation("invalid user status %q", a.Status)
	}
	return nil
}

func (AddUserFactory) Title(op model.Operation) string {
	return "Add user " + op.(*model.AddUserOperation).Name
}

func (AddUserFactory) DefaultExpiration(op model.Operation) model.Timestamp {
	return model.NextTime().Add(defaultRequestExpiration)
}

func (AddUserFactory) Resources(op model.Operation) []model.Resource {
	return []model.Resource{{Kind: model.ResourceKindUser, Action: model.ActionCreate}}
}

func (AddUserFactory) Execute(ctx context.Context, req *model.Request, r Resolver) (Stage, error) {
	a := req.Operation.(*model.AddUserOperation)
	identities := make(map[string]model.Principal, len(a.Identities))
	for _, p := range a.Identities {
		identities[p.String()] = p
	}
	groups := make(map[model.UUID]struct{}, len(a.Groups))
	for _, g := range a.Groups {
		groups[g] = struct{}{}
	}
	u := &model.User{
		ID:           model.NewUUID(),
		Identities:   identities,
		Groups:       groups,
		Name:         a.Name,
		Status:       a.Status,
		LastModified: model.NextTime(),
	}
	if err := r.PutUser(u); err != nil {
		return "", err
	}
	return StageCompleted, nil
}

// EditUserFactory implements the edit_user operation.
type EditUserFactory struct{}

func (EditUserFactory) Validate(ctx context.Context, op model.Operation, r Resolver) error {
	e := op.(*model.EditUserOperation)
	exists, err := r.UserExists(e.UserID)
	if err != nil {
		return err
	}
	if !exists {
		return stationerr.NotFound("user %s not found", e.UserID)
	}
	if e.Name != nil {
		if model.NormalizeName(*e.Name) == "" {
			return stationerr.Validation("user name must not be empty")
		}
		taken, err := r.UserNameTaken(*e.Name, e.UserID)
		if err != nil {
			return err
		}
		if taken {
			return stationerr.AlreadyExists("name", "user name %q is already in use", *e.Name)
		}
	}
	for _, g := range e.Groups {
		exists, err := r.GroupExists(g)
		if err != nil {
			return err
		}
		if !exists {
			return stationerr.NotFound("group %s not found", g)
		}
	}
	if e.Status != nil && !e.Status.Valid() {
		return stationerr.Validation("invalid user status %q", *e.Status)
	}
	return nil
}

func (EditUserFactory) Title(op model.Operation) string {
	return "Edit user " + op.(*model.EditUserOperation).UserID.String()
}

func (EditUserFactory) DefaultExpiration(op model.Operation) model.Timestamp {
	return model.NextTime().Add(defaultRequestExpiration)
}

func (EditUserFactory) Resources(op model.Operation) []model.Resource {
	e := op.(*model.EditUserOperation)
	return []model.Resource{{Kind: model.ResourceKindUser, Action: model.ActionUpdate, ID: e.UserID}}
}

func (EditUserFactory) Execute(ctx context.Context, req *model.Request, r Resolver) (Stage, error) {
	e := req.Operation.(*model.EditUserOperation)
	u, ok, err := r.GetUser(e.UserID)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", stationerr.NotFound("user %s not found", e.UserID)
	}
	if e.Name != nil {
		u.Name = *e.Name
	}
	if e.Identities != nil {
		identities := make(map[string]model.Principal, len(e.Identities))
		for _, p := range e.Identities {
			identities[p.String()] = p
		}
		u.Identities = identities
	}
	if e.Groups != nil {
		groups := make(map[model.UUID]struct{}, len(e.Groups))
		for _, g := range e.Groups {
			groups[g] = struct{}{}
		}
		u.Groups = groups
	}
	if e.Status != nil {
		u.Status = *e.Status
	}
	u.LastModified = model.NextTime()
	if err := r.PutUser(u); err != nil {
		return "", err
	}
	return StageCompleted, nil
}

// AddUserGroupFactory implements the add_user_group operation.
type AddUserGroupFactory struct{}

func (AddUserGroupFactory) Validate(ctx context.Context, op model.Operation, r Resolver) error {
	name := op.(*model.AddUserGroupOperation).Name
	if model.NormalizeName(name) == "" {
		return stationerr.Validation("group name must not be empty")
	}
	return nil
}

func (AddUserGroupFactory) Title(op model.Operation) string {
	return "Add user group " + op.(*model.AddUserGroupOperation).Name
}

func (AddUserGroupFactory) DefaultExpiration(op model.Operation) model.Timestamp {
	return model.NextTime().Add(defaultRequestExpiration)
}

func (AddUserGroupFactory) Resources(op model.Operation) []model.Resource {
	return []model.Resource{{Kind: model.ResourceKindUserGroup, Action: model.ActionCreate}}
}

func (AddUserGroupFactory) Execute(ctx context.Context, req *model.Request, r Resolver) (Stage, error) {
	a := req.Operation.(*model.AddUserGroupOperation)
	g := &model.UserGroup{ID: model.NewUUID(), Name: a.Name}
	if err := r.PutUserGroup(g); err != nil {
		return "", err
	}
	return StageCompleted, nil
}

// EditUserGroupFactory implements the edit_user_group operation.
type EditUserGroupFactory struct{}

func (EditUserGroupFactory) Validate(ctx context.Context, op model.Operation, r Resolver) error {
	e := op.(*model.EditUserGroupOperation)
	exists, err := r.GroupExists(e.GroupID)
	if err != nil {
		return err
	}
	if !exists {
		return stationerr.NotFound("group %s not found", e.GroupID)
	}
	if model.NormalizeName(e.Name) == "" {
		return stationerr.Validation("group name must not be empty")
	}
	return nil
}

func (EditUserGroupFactory) Title(op model.Operation) string {
	return "Rename user group " + op.(*model.EditUserGroupOperation).GroupID.String()
}

func (EditUserGroupFactory) DefaultExpiration(op model.Operation) model.Timestamp {
	return model.NextTime().Add(defaultRequestExpiration)
}

func (EditUserGroupFactory) Resources(op model.Operation) []model.Resource {
	e := op.(*model.EditUserGroupOperation)
	return []model.Resource{{Kind: model.ResourceKindUserGroup, Action: model.ActionUpdate, ID: e.GroupID}}
}

func (EditUserGroupFactory) Execute(ctx context.Context, req *model.Request, r Resolver) (Stage, error) {
	e := req.Operation.(*model.EditUserGroupOperation)
	g, ok, err := r.GetUserGroup(e.GroupID)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", stationerr.NotFound("group %s not found", e.GroupID)
	}
	g.Name = e.Name
	if err := r.PutUserGroup(g); err != nil {
		return "", err
	}
	return StageCompleted, nil
}

// RemoveUserGroupFactory implements the remove_user_group operation.
type RemoveUserGroupFactory struct{}

func (RemoveUserGroupFactory) Validate(ctx context.Context, op model.Operation, r Resolver) error {
	id := op.(*model.RemoveUserGroupOperation).GroupID
	if model.IsBuiltInGroup(id) {
		return stationerr.Forbidden("group %s is built-in and cannot be removed", id)
	}
	exists, err := r.GroupExists(id)
	if err != nil {
		return err
	}
	if !exists {
		return stationerr.NotFound("group %s not found", id)
	}
	return nil
}

func (RemoveUserGroupFactory) Title(op model.Operation) string {
	return "Remove user group " + op.(*model.RemoveUserGroupOperation).GroupID.String()
}

func (RemoveUserGroupFactory) DefaultExpiration(op model.Operation) model.Timestamp {
	return model.NextTime().Add(defaultRequestExpiration)
}

func (RemoveUserGroupFactory) Resources(op model.Operation) []model.Resource {
	e := op.(*model.RemoveUserGroupOperation)
	return []model.Resource{{Kind: model.ResourceKindUserGroup, Action: model.ActionDelete, ID: e.GroupID}}
}

func (RemoveUserGroupFactory) Execute(ctx context.Context, req *model.Request, r Resolver) (Stage, error) {
	e := req.Operation.(*model.RemoveUserGroupOperation)
	if err := r.RemoveUserGroup(e.GroupID); err != nil {
		return "", err
	}
	return StageCompleted, nil
}
