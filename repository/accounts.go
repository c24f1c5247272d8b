package repository

import (
	"github.com/station-labs/station/model"
	"github.com/station-labs/station/storage"
)

const nsAccountByAsset = "account_by_asset"

// AccountRepository indexes Accounts by normalized name (uniqueness) and by
// the assets they hold, the latter serving RemoveAsset's "refuse while any
// account still references it" guard.
type AccountRepository struct {
	repo  *Repository[*model.Account]
	names *UniqueIndex
}

func NewAccountRepository(db storage.Database) *AccountRepository {
	encode, decode := JSONCodec[*model.Account]()
	indexes := []IndexSpec[*model.Account]{
		{
			Name: nsAccountByAsset,
			KeysFor: func(a *model.Account) [][]byte {
				keys := make([][]byte, 0, len(a.Assets))
				for assetID := range a.Assets {
					keys = append(keys, IndexKey(nsAccountByAsset, assetID[:], a.ID[:]))
				}
				return keys
			},
		},
	}
	return &AccountRepository{
		repo:  New(db, "account", indexes, encode, decode),
		names: NewUniqueIndex(db, "account_name"),
	}
}

func (ar *AccountRepository) Get(id model.UUID) (*model.Account, bool, error) { return ar.repo.Get(id) }
func (ar *AccountRepository) MustGet(id model.UUID) (*model.Account, error)   { return ar.repo.MustGet(id) }
func (ar *AccountRepository) All() ([]*model.Account, error)                 { return ar.repo.All() }

func (ar *AccountRepository) Put(a *model.Account) error {
	existing, existed, err := ar.Get(a.ID)
	if err != nil {
		return err
	}
	oldName := ""
	if existed {
		oldName = model.NormalizeName(existing.Name)
	}
	if err := ar.names.ReplaceReservation("name", oldName, model.NormalizeName(a.Name), a.ID); err != nil {
		return err
	}
	return ar.repo.Put(a.ID, a)
}

func (ar *AccountRepository) Remove(id model.UUID) error {
	a, ok, err := ar.Get(id)
	if err != nil || !ok {
		return err
	}
	if err := ar.names.Release(model.NormalizeName(a.Name)); err != nil {
		return err
	}
	return ar.repo.Remove(id)
}

// UsesAsset reports whether any account still references assetID, the guard
// RemoveAssetFactory consults before allowing the removal.
func (ar *AccountRepository) UsesAsset(assetID model.UUID) (bool, error) {
	start := IndexKey(nsAccountByAsset, assetID[:])
	end := IndexKey(nsAccountByAsset, assetID[:], model.MaxUUID[:])
	rows, err := ar.repo.IndexRange(start, append(end, 0xff))
	if err != nil {
		return false, err
	}
	return len(rows) > 0, nil
}
