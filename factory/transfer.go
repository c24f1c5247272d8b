package factory

import (
	"context"
	"time"

	"github.com/station-labs/station/model"
	"github.com/station-labs/station/stationerr"
)

// defaultRequestExpiration is the fallback lifetime spec.md §4.1 assigns a
// freshly created request when nothing more specific applies: "requests
// expire seven days after creation unless otherwise configured."
const defaultRequestExpiration = 7 * 24 * time.Hour

// TransferFactory implements the transfer operation.
type TransferFactory struct{}

func (TransferFactory) Validate(ctx context.Context, op model.Operation, r Resolver) error {
	t := op.(*model.TransferOperation)
	exists, err := r.AccountExists(t.FromAccountID)
	if err != nil {
		return err
	}
	if !exists {
		return stationerr.NotFound("account %s not found", t.FromAccountID)
	}
	if t.To == "" {
		return stationerr.Validation("transfer requires a destination")
	}
	if t.Amount == nil || t.Amount.Sign() <= 0 {
		return stationerr.Validation("transfer amount must be positive")
	}
	if t.Fee != nil && t.Fee.Sign() < 0 {
		return stationerr.Validation("transfer fee must not be negative")
	}
	return nil
}

func (TransferFactory) Title(op model.Operation) string {
	t := op.(*model.TransferOperation)
	return "Transfer from account " + t.FromAccountID.String() + " to " + t.To
}

func (TransferFactory) DefaultExpiration(op model.Operation) model.Timestamp {
	return model.NextTime().Add(defaultRequestExpiration)
}

func (TransferFactory) Resources(op model.Operation) []model.Resource {
	t := op.(*model.TransferOperation)
	return []model.Resource{{Kind: model.ResourceKindAccount, Action: model.ActionTransfer, Target: t.FromAccountID.String()}}
}

func (TransferFactory) Execute(ctx context.Context, req *model.Request, r Resolver) (Stage, error) {
	t := req.Operation.(*model.TransferOperation)
	if err := r.TransferFunds(t.FromAccountID, t.FromAssetID, t.To, t.Amount, t.Fee, t.Memo); err != nil {
		return "", err
	}
	return StageCompleted, nil
}
