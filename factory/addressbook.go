package factory

import (
	"context"

	"github.com/station-labs/station/model"
	"github.com/station-labs/station/stationerr"
)

// AddAddressBookEntryFactory implements the add_address_book_entry operation.
type AddAddressBookEntryFactory struct{}

func (AddAddressBookEntryFactory) Validate(ctx context.Context, op model.Operation, r Resolver) error {
	a := op.(*model.AddAddressBookEntryOperation)
	if a.Blockchain == "" || a.Standard == "" || a.Address == "" {
		return stationerr.Validation("address book entry requires blockchain, standard and address")
	}
	return nil
}

func (AddAddressBookEntryFactory) Title(op model.Operation) string {
	a := op.(*model.AddAddressBookEntryOperation)
	return "Add address book entry " + a.Address
}

func (AddAddressBookEntryFactory) DefaultExpiration(op model.Operation) model.Timestamp {
	return model.NextTime().Add(defaultRequestExpiration)
}

func (AddAddressBookEntryFactory) Resources(op model.Operation) []model.Resource {
	return []model.Resource{{Kind: model.ResourceKindAddressBook, Action: model.ActionCreate}}
}

func (AddAddressBookEntryFactory) Execute(ctx context.Context, req *model.Request, r Resolver) (Stage, error) {
	a := req.Operation.(*model.AddAddressBookEntryOperation)
	e := &model.AddressBookEntry{
		ID:         model.NewUUID(),
		Blockchain: a.Blockchain,
		Standard:   a.Standard,
		Address:    a.Address,
		Owner:      a.Owner,
		Metadata:   a.Metadata,
		Labels:     a.Labels,
	}
	if err := r.PutAddressBookEntry(e); err != nil {
		return "", err
	}
	return StageCompleted, nil
}

// EditAddressBookEntryFactory implements the edit_address_book_entry operation.
type EditAddressBookEntryFactory struct{}

func (EditAddressBookEntryFactory) Validate(ctx context.Context, op model.Operation, r Resolver) error {
	e := op.(*model.EditAddressBookEntryOperation)
	exists, err := r.AddressBookEntryExists(e.EntryID)
	if err != nil {
		return err
	}
	if !exists {
		return stationerr.NotFound("address book entry %s not found", e.EntryID)
	}
	return nil
}

func (EditAddressBookEntryFactory) Title(op model.Operation) string {
	return "Edit address book entry " + op.(*model.EditAddressBookEntryOperation).EntryID.String()
}

func (EditAddressBookEntryFactory) DefaultExpiration(op model.Operation) model.Timestamp {
	return model.NextTime().Add(defaultRequestExpiration)
}

func (EditAddressBookEntryFactory) Resources(op model.Operation) []model.Resource {
	e := op.(*model.EditAddressBookEntryOperation)
	return []model.Resource{{Kind: model.ResourceKindAddressBook, Action: model.ActionUpdate, ID: e.EntryID}}
}

func (EditAddressBookEntryFactory) Execute(ctx context.Context, req *model.Request, r Resolver) (Stage, error) {
	e := req.Operation.(*model.EditAddressBookEntryOperation)
	entry, ok, err := r.GetAddressBookEntry(e.EntryID)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", stationerr.NotFound("address book entry %s not found", e.EntryID)
	}
	if e.Owner != nil {
		entry.Owner = *e.Owner
	}
	if e.Metadata != nil {
		entry.Metadata = e.Metadata
	}
	if e.Labels != nil {
		entry.Labels = e.Labels
	}
	if err := r.PutAddressBookEntry(entry); err != nil {
		return "", err
	}
	return StageCompleted, nil
}

// RemoveAddressBookEntryFactory implements the remove_address_book_entry operation.
type RemoveAddressBookEntryFactory struct{}

func (RemoveAddressBookEntryFactory) Validate(ctx context.Context, op model.Operation, r Resolver) error {
	id := op.(*model.RemoveAddressBookEntryOperation).EntryID
	exists, err := r.AddressBookEntryExists(id)
	if err != nil {
		return err
	}
	if !exists {
		return stationerr.NotFound("address book entry %s not found", id)
	}
	return nil
}

func (RemoveAddressBookEntryFactory) Title(op model.Operation) string {
	return "Remove address book entry " + op.(*model.RemoveAddressBookEntryOperation).EntryID.String()
}

func (RemoveAddressBookEntryFactory) DefaultExpiration(op model.Operation) model.Timestamp {
	return model.NextTime().Add(defaultRequestExpiration)
}

func (RemoveAddressBookEntryFactory) Resources(op model.Operation) []model.Resource {
	e := op.(*model.RemoveAddressBookEntryOperation)
	return []model.Resource{{Kind: model.ResourceKindAddressBook, Action: model.ActionDelete, ID: e.EntryID}}
}

func (RemoveAddressBookEntryFactory) Execute(ctx context.Context, req *model.Request, r Resolver) (Stage, error) {
	e := req.Operation.(*model.RemoveAddressBookEntryOperation)
	if err := r.RemoveAddressBookEntry(e.EntryID); err != nil {
		return "", err
	}
	return StageCompleted, nil
}
