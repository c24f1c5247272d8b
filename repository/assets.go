package repository

import (
	"github.com/station-labs/station/model"
	"github.com/station-labs/station/storage"
)

// assetKey uniquely identifies an Asset by its (symbol, blockchain) pair,
// per spec.md §3: "no duplicate (Symbol, Blockchain) pair."
func assetKey(symbol, blockchain string) string { return blockchain + "|" + symbol }

// AssetRepository indexes Assets by their (symbol, blockchain) pair.
type AssetRepository struct {
	repo *Repository[*model.Asset]
	keys *UniqueIndex
}

func NewAssetRepository(db storage.Database) *AssetRepository {
	encode, decode := JSONCodec[*model.Asset]()
	return &AssetRepository{
		repo: New[*model.Asset](db, "asset", nil, encode, decode),
		keys: NewUniqueIndex(db, "asset_symbol_blockchain"),
	}
}

func (ar *AssetRepository) Get(id model.UUID) (*model.Asset, bool, error) { return ar.repo.Get(id) }
func (ar *AssetRepository) MustGet(id model.UUID) (*model.Asset, error)   { return ar.repo.MustGet(id) }
func (ar *AssetRepository) All() ([]*model.Asset, error)                 { return ar.repo.All() }

func (ar *AssetRepository) Put(a *model.Asset) error {
	existing, existed, err := ar.Get(a.ID)
	if err != nil {
		return err
	}
	oldKey := ""
	if existed {
		oldKey = assetKey(existing.Symbol, existing.Blockchain)
	}
	newKey := assetKey(a.Symbol, a.Blockchain)
	if err := ar.keys.ReplaceReservation("symbol", oldKey, newKey, a.ID); err != nil {
		return err
	}
	return ar.repo.Put(a.ID, a)
}

func (ar *AssetRepository) Remove(id model.UUID) error {
	a, ok, err := ar.Get(id)
	if err != nil || !ok {
		return err
	}
	if err := ar.keys.Release(assetKey(a.Symbol, a.Blockchain)); err != nil {
		return err
	}
	return ar.repo.Remove(id)
}

// AddressBookRepository indexes AddressBookEntry by its (blockchain,
// standard, address) triple.
type AddressBookRepository struct {
	repo *Repository[*model.AddressBookEntry]
	keys *UniqueIndex
}

func NewAddressBookRepository(db storage.Database) *AddressBookRepository {
	encode, decode := JSONCodec[*model.AddressBookEntry]()
	return &AddressBookRepository{
		repo: New[*model.AddressBookEntry](db, "address_book", nil, encode, decode),
		keys: NewUniqueIndex(db, "address_book_key"),
	}
}

func (br *AddressBookRepository) Get(id model.UUID) (*model.AddressBookEntry, bool, error) {
	return br.repo.Get(id)
}
func (br *AddressBookRepository) MustGet(id model.UUID) (*model.AddressBookEntry, error) {
	return br.repo.MustGet(id)
}
func (br *AddressBookRepository) All() ([]*model.AddressBookEntry, error) { return br.repo.All() }

func (br *AddressBookRepository) Put(e *model.AddressBookEntry) error {
	existing, existed, err := br.Get(e.ID)
	if err != nil {
		return err
	}
	oldKey := ""
	if existed {
		oldKey = existing.Key()
	}
	if err := br.keys.ReplaceReservation("address", oldKey, e.Key(), e.ID); err != nil {
		return err
	}
	return br.repo.Put(e.ID, e)
}

func (br *AddressBookRepository) Remove(id model.UUID) error {
	e, ok, err := br.Get(id)
	if err != nil || !ok {
		return err
	}
	if err := br.keys.Release(e.Key()); err != nil {
		return err
	}
	return br.repo.Remove(id)
}
