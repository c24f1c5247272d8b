package factory

import (
	"context"

	"github.com/station-labs/station/model"
	"github.com/station-labs/station/stationerr"
)

// AddAssetFactory implements the add_asset operation.
type AddAssetFactory struct{}

func (AddAssetFactory) Validate(ctx context.Context, op model.Operation, r Resolver) error {
	a := op.(*model.AddAssetOperation)
	if a.Symbol == "" || a.Blockchain == "" {
		return stationerr.Validation("asset requires a symbol and blockchain")
	}
	if err := model.ValidateDecimals(a.Decimals); err != nil {
		return stationerr.Validation("%v", err)
	}
	taken, err := r.AssetKeyTaken(a.Symbol, a.Blockchain, model.NilUUID)
	if err != nil {
		return err
	}
	if taken {
		return stationerr.AlreadyExists("symbol", "asset %s on %s already exists", a.Symbol, a.Blockchain)
	}
	return nil
}

func (AddAssetFactory) Title(op model.Operation) string {
	return "Add asset " + op.(*model.AddAssetOperation).Symbol
}

func (AddAssetFactory) DefaultExpiration(op model.Operation) model.Timestamp {
	return model.NextTime().Add(defaultRequestExpiration)
}

func (AddAssetFactory) Resources(op model.Operation) []model.Resource {
	return []model.Resource{{Kind: model.ResourceKindAsset, Action: model.ActionCreate}}
}

func (AddAssetFactory) Execute(ctx context.Context, req *model.Request, r Resolver) (Stage, error) {
	a := req.Operation.(*model.AddAssetOperation)
	standards := make(map[string]struct{}, len(a.Standards))
	for _, s := range a.Standards {
		standards[s] = struct{}{}
	}
	asset := &model.Asset{
		ID:         model.NewUUID(),
		Blockchain: a.Blockchain,
		Standards:  standards,
		Symbol:     a.Symbol,
		Decimals:   a.Decimals,
		Metadata:   a.Metadata,
	}
	if err := r.PutAsset(asset); err != nil {
		return "", err
	}
	return StageCompleted, nil
}

// EditAssetFactory implements the edit_asset operation.
type EditAssetFactory struct{}

func (EditAssetFactory) Validate(ctx context.Context, op model.Operation, r Resolver) error {
	e := op.(*model.EditAssetOperation)
	exists, err := r.AssetExists(e.AssetID)
	if err != nil {
		return err
	}
	if !exists {
		return stationerr.NotFound("asset %s not found", e.AssetID)
	}
	return nil
}

func (EditAssetFactory) Title(op model.Operation) string {
	return "Edit asset " + op.(*model.EditAssetOperation).AssetID.String()
}

func (EditAssetFactory) DefaultExpiration(op model.Operation) model.Timestamp {
	return model.NextTime().Add(defaultRequestExpiration)
}

func (EditAssetFactory) Resources(op model.Operation) []model.Resource {
	e := op.(*model.EditAssetOperation)
	return []model.Resource{{Kind: model.ResourceKindAsset, Action: model.ActionUpdate, ID: e.AssetID}}
}

func (EditAssetFactory) Execute(ctx context.Context, req *model.Request, r Resolver) (Stage, error) {
	e := req.Operation.(*model.EditAssetOperation)
	asset, ok, err := r.GetAsset(e.AssetID)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", stationerr.NotFound("asset %s not found", e.AssetID)
	}
	if e.Symbol != nil {
		asset.Symbol = *e.Symbol
	}
	if e.Metadata != nil {
		asset.Metadata = e.Metadata
	}
	if err := r.PutAsset(asset); err != nil {
		return "", err
	}
	return StageCompleted, nil
}

// RemoveAssetFactory implements the remove_asset operation.
type RemoveAssetFactory struct{}

func (RemoveAssetFactory) Validate(ctx context.Context, op model.Operation, r Resolver) error {
	id := op.(*model.RemoveAssetOperation).AssetID
	exists, err := r.AssetExists(id)
	if err != nil {
		return err
	}
	if !exists {
		return stationerr.NotFound("asset %s not found", id)
	}
	inUse, err := r.AssetInUse(id)
	if err != nil {
		return err
	}
	if inUse {
		return stationerr.Validation("asset %s is still held by at least one account", id)
	}
	return nil
}

func (RemoveAssetFactory) Title(op model.Operation) string {
	return "Remove asset " + op.(*model.RemoveAssetOperation).AssetID.String()
}

func (RemoveAssetFactory) DefaultExpiration(op model.Operation) model.Timestamp {
	return model.NextTime().Add(defaultRequestExpiration)
}

func (RemoveAssetFactory) Resources(op model.Operation) []model.Resource {
	e := op.(*model.RemoveAssetOperation)
	return []model.Resource{{Kind: model.ResourceKindAsset, Action: model.ActionDelete, ID: e.AssetID}}
}

func (RemoveAssetFactory) Execute(ctx context.Context, req *model.Request, r Resolver) (Stage, error) {
	e := req.Operation.(*model.RemoveAssetOperation)
	if err := r.RemoveAsset(e.AssetID); err != nil {
		return "", err
	}
	return StageCompleted, nil
}
