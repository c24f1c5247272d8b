package factory

import (
	"context"

	"github.com/station-labs/station/model"
	"github.com/station-labs/station/stationerr"
)

// AddAccountFactory implements the add_account operation.
type AddAccountFactory struct{}

func (AddAccountFactory) Validate(ctx context.Context, op model.Operation, r Resolver) error {
	a := op.(*model.AddAccountOperation)
	if model.NormalizeName(a.Name) == "" {
		return stationerr.Validation("account name must not be empty")
	}
	taken, err := r.AccountNameTaken(a.Name, model.NilUUID)
	if err != nil {
		return err
	}
	if taken {
		return stationerr.AlreadyExists("name", "account name %q is already in use", a.Name)
	}
	for _, assetID := range a.AssetIDs {
		exists, err := r.AssetExists(assetID)
		if err != nil {
			return err
		}
		if !exists {
			return stationerr.NotFound("asset %s not found", assetID)
		}
	}
	return nil
}

func (AddAccountFactory) Title(op model.Operation) string {
	return "Create account " + op.(*model.AddAccountOperation).Name
}

func (AddAccountFactory) DefaultExpiration(op model.Operation) model.Timestamp {
	return model.NextTime().Add(defaultRequestExpiration)
}

func (AddAccountFactory) Resources(op model.Operation) []model.Resource {
	return []model.Resource{{Kind: model.ResourceKindAccount, Action: model.ActionCreate}}
}

func (AddAccountFactory) Execute(ctx context.Context, req *model.Request, r Resolver) (Stage, error) {
	a := req.Operation.(*model.AddAccountOperation)
	seed, err := model.NewSeed()
	if err != nil {
		return "", stationerr.Internal(err)
	}
	assets := make(map[model.UUID]struct{}, len(a.AssetIDs))
	for _, id := range a.AssetIDs {
		assets[id] = struct{}{}
	}
	account := &model.Account{
		ID:           model.NewUUID(),
		Name:         a.Name,
		Assets:       assets,
		Metadata:     a.Metadata,
		TransferRule: a.TransferRule,
		ConfigsRule:  a.ConfigsRule,
		Seed:         seed,
		LastModified: model.NextTime(),
	}
	for _, format := range a.AddressFormats {
		if err := account.AddAddress(format, string(format)); err != nil {
			return "", stationerr.Internal(err)
		}
	}
	if err := r.PutAccount(account); err != nil {
		return "", err
	}
	return StageCompleted, nil
}

// EditAccountFactory implements the edit_account operation.
type EditAccountFactory struct{}

func (EditAccountFactory) Validate(ctx context.Context, op model.Operation, r Resolver) error {
	e := op.(*model.EditAccountOperation)
	exists, err := r.AccountExists(e.AccountID)
	if err != nil {
		return err
	}
	if !exists {
		return stationerr.NotFound("account %s not found", e.AccountID)
	}
	if e.Name != nil {
		if model.NormalizeName(*e.Name) == "" {
			return stationerr.Validation("account name must not be empty")
		}
		taken, err := r.AccountNameTaken(*e.Name, e.AccountID)
		if err != nil {
			return err
		}
		if taken {
			return stationerr.AlreadyExists("name", "account name %q is already in use", *e.Name)
		}
	}
	for _, assetID := range e.AddAssetIDs {
		exists, err := r.AssetExists(assetID)
		if err != nil {
			return err
		}
		if !exists {
			return stationerr.NotFound("asset %s not found", assetID)
		}
	}
	return nil
}

func (EditAccountFactory) Title(op model.Operation) string {
	return "Edit account " + op.(*model.EditAccountOperation).AccountID.String()
}

func (EditAccountFactory) DefaultExpiration(op model.Operation) model.Timestamp {
	return model.NextTime().Add(defaultRequestExpiration)
}

func (EditAccountFactory) Resources(op model.Operation) []model.Resource {
	e := op.(*model.EditAccountOperation)
	return []model.Resource{{Kind: model.ResourceKindAccount, Action: model.ActionUpdate, ID: e.AccountID}}
}

func (EditAccountFactory) Execute(ctx context.Context, req *model.Request, r Resolver) (Stage, error) {
	e := req.Operation.(*model.EditAccountOperation)
	account, ok, err := r.GetAccount(e.AccountID)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", stationerr.NotFound("account %s not found", e.AccountID)
	}
	if e.Name != nil {
		account.Name = *e.Name
	}
	for _, id := range e.AddAssetIDs {
		account.Assets[id] = struct{}{}
	}
	for _, id := range e.RemoveAssetIDs {
		delete(account.Assets, id)
	}
	if e.Metadata != nil {
		account.Metadata = e.Metadata
	}
	if e.TransferRule != nil {
		account.TransferRule = e.TransferRule
	}
	if e.ConfigsRule != nil {
		account.ConfigsRule = e.ConfigsRule
	}
	account.LastModified = model.NextTime()
	if err := r.PutAccount(account); err != nil {
		return "", err
	}
	return StageCompleted, nil
}
