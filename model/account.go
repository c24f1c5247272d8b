package model

import (
	"crypto/rand"
	"fmt"

	"lukechampine.com/blake3"
)

// Asset describes a blockchain asset the station can hold and transfer.
// Validation (enforced by factory.AddAssetFactory): decimals in 0..24 and no
// duplicate (Symbol, Blockchain) pair.
type Asset struct {
	ID        UUID
	Blockchain string
	Standards  map[string]struct{}
	Symbol     string
	Decimals   uint32
	Metadata   map[string]string
}

const MaxAssetDecimals = 24

// ValidateDecimals enforces spec.md §3's "rejects decimals outside 0..24".
func ValidateDecimals(decimals uint32) error {
	if decimals > MaxAssetDecimals {
		return fmt.Errorf("decimals %d exceeds maximum of %d", decimals, MaxAssetDecimals)
	}
	return nil
}

// AddressFormat names the textual encoding convention used for a derived
// account address (one per asset standard the account holds).
type AddressFormat string

// AccountAddress pairs a derivation format with its rendered address.
type AccountAddress struct {
	Format  AddressFormat
	Address string
}

// Account is a ledger sub-account the station owns. Seed is the 16-byte
// entropy every one of its addresses derives from.
type Account struct {
	ID            UUID
	Name          string
	Assets        map[UUID]struct{}
	Addresses     []AccountAddress
	Metadata      map[string]string
	TransferRule  *Rule
	ConfigsRule   *Rule
	Seed          [16]byte
	LastModified  Timestamp
}

// NewSeed generates fresh entropy for a new account.
func NewSeed() ([16]byte, error) {
	var seed [16]byte
	if _, err := rand.Read(seed[:]); err != nil {
		return seed, err
	}
	return seed, nil
}

// DeriveAddress computes the deterministic address for one (seed, standard)
// pair, per spec.md §6.3: "Addresses are derived from Account.seed
// concatenated with the asset's standard, hashed per the blockchain's
// convention." STATION is blockchain-agnostic at this layer, so the
// convention is a single blake3-based encoding (the teacher's own hashing
// dependency, see SPEC_FULL.md §9) shared by every format; a real multi-chain
// deployment would dispatch on standard here the way the distilled spec's
// source system dispatches on `blockchains/internet_computer.rs`.
func DeriveAddress(seed [16]byte, standard string) string {
	h := blake3.New(20, nil)
	h.Write(seed[:])
	h.Write([]byte(standard))
	sum := h.Sum(nil)
	return fmt.Sprintf("%x", sum)
}

// AddAddress appends a derived address for format/standard, enforcing the
// "at most one address per format" invariant.
func (a *Account) AddAddress(format AddressFormat, standard string) error {
	for _, existing := range a.Addresses {
		if existing.Format == format {
			return fmt.Errorf("account %s already has an address for format %q", a.ID, format)
		}
	}
	a.Addresses = append(a.Addresses, AccountAddress{
		Format:  format,
		Address: DeriveAddress(a.Seed, standard),
	})
	return nil
}

// AddressBookEntry is a reusable (blockchain, standard, address) record with
// an owner label and arbitrary metadata/labels, keyed uniquely by its triple.
type AddressBookEntry struct {
	ID         UUID
	Blockchain string
	Standard   string
	Address    string
	Owner      string
	Metadata   map[string]string
	Labels     []string
}

// Key returns the unique key spec.md §3 defines for address book entries.
func (e AddressBookEntry) Key() string {
	return e.Blockchain + "|" + e.Standard + "|" + e.Address
}
