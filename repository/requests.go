package repository

import (
	"encoding/json"
	"fmt"

	"github.com/station-labs/station/model"
	"github.com/station-labs/station/storage"
)

// requestDTO is the on-disk shape of a model.Request. Operation is an
// interface, so it is split into a discriminator (OpKind) plus a raw JSON
// payload decoded into the matching concrete *Operation type on read —
// the same discriminated-envelope idiom the teacher uses for
// native/governance's ProposalKind-tagged payload field.
type requestDTO struct {
	ID            model.UUID
	Requester     model.UUID
	OpKind        model.OperationKind
	OpPayload     json.RawMessage
	Status        model.RequestStatus
	Approvals     []model.Approval
	Snapshot      *model.Rule
	Created       model.Timestamp
	Expiration    model.Timestamp
	LastModified  model.Timestamp
	ExecutionPlan model.ExecutionPlan
	Title         string
	Summary       string
}

func encodeRequest(r *model.Request) ([]byte, error) {
	payload, err := json.Marshal(r.Operation)
	if err != nil {
		return nil, err
	}
	dto := requestDTO{
		ID:            r.ID,
		Requester:     r.Requester,
		OpKind:        r.Operation.Kind(),
		OpPayload:     payload,
		Status:        r.Status,
		Approvals:     r.Approvals,
		Snapshot:      r.Snapshot,
		Created:       r.Created,
		Expiration:    r.Expiration,
		LastModified:  r.LastModified,
		ExecutionPlan: r.ExecutionPlan,
		Title:         r.Title,
		Summary:       r.Summary,
	}
	return json.Marshal(dto)
}

func decodeRequest(raw []byte) (*model.Request, error) {
	var dto requestDTO
	if err := json.Unmarshal(raw, &dto); err != nil {
		return nil, err
	}
	op, err := decodeOperation(dto.OpKind, dto.OpPayload)
	if err != nil {
		return nil, err
	}
	return &model.Request{
		ID:            dto.ID,
		Requester:     dto.Requester,
		Operation:     op,
		Status:        dto.Status,
		Approvals:     dto.Approvals,
		Snapshot:      dto.Snapshot,
		Created:       dto.Created,
		Expiration:    dto.Expiration,
		LastModified:  dto.LastModified,
		ExecutionPlan: dto.ExecutionPlan,
		Title:         dto.Title,
		Summary:       dto.Summary,
	}, nil
}

// decodeOperation recovers the concrete model.Operation value for kind from
// its raw JSON payload.
func decodeOperation(kind model.OperationKind, payload json.RawMessage) (model.Operation, error) {
	var op model.Operation
	switch kind {
	case model.OperationTransfer:
		op = &model.TransferOperation{}
	case model.OperationAddAccount:
		op = &model.AddAccountOperation{}
	case model.OperationEditAccount:
		op = &model.EditAccountOperation{}
	case model.OperationAddUser:
		op = &model.AddUserOperation{}
	case model.OperationEditUser:
		op = &model.EditUserOperation{}
	case model.OperationAddUserGroup:
		op = &model.AddUserGroupOperation{}
	case model.OperationEditUserGroup:
		op = &model.EditUserGroupOperation{}
	case model.OperationRemoveUserGroup:
		op = &model.RemoveUserGroupOperation{}
	case model.OperationEditPermission:
		op = &model.EditPermissionOperation{}
	case model.OperationAddRequestPolicy:
		op = &model.AddRequestPolicyOperation{}
	case model.OperationEditRequestPolicy:
		op = &model.EditRequestPolicyOperation{}
	case model.OperationRemoveRequestPolicy:
		op = &model.RemoveRequestPolicyOperation{}
	case model.OperationAddAddressBookEntry:
		op = &model.AddAddressBookEntryOperation{}
	case model.OperationEditAddressBookEntry:
		op = &model.EditAddressBookEntryOperation{}
	case model.OperationRemoveAddressBookEntry:
		op = &model.RemoveAddressBookEntryOperation{}
	case model.OperationAddAsset:
		op = &model.AddAssetOperation{}
	case model.OperationEditAsset:
		op = &model.EditAssetOperation{}
	case model.OperationRemoveAsset:
		op = &model.RemoveAssetOperation{}
	case model.OperationAddNamedRule:
		op = &model.AddNamedRuleOperation{}
	case model.OperationEditNamedRule:
		op = &model.EditNamedRuleOperation{}
	case model.OperationRemoveNamedRule:
		op = &model.RemoveNamedRuleOperation{}
	case model.OperationSystemUpgrade:
		op = &model.SystemUpgradeOperation{}
	case model.OperationSystemRestore:
		op = &model.SystemRestoreOperation{}
	case model.OperationChangeExternalCanister:
		op = &model.ChangeExternalCanisterOperation{}
	case model.OperationConfigureExternalCanister:
		op = &model.ConfigureExternalCanisterOperation{}
	case model.OperationCallExternalCanister:
		op = &model.CallExternalCanisterOperation{}
	case model.OperationManageSystemInfo:
		op = &model.ManageSystemInfoOperation{}
	default:
		return nil, fmt.Errorf("repository: unknown operation kind %q", kind)
	}
	if err := json.Unmarshal(payload, op); err != nil {
		return nil, err
	}
	return op, nil
}

// ResourceIDOf extracts the resource id a Request's operation targets, for
// the operation-type-with-refinement index below. Operations that create a
// new entity (AddAccount, AddUser, ...) or target none (Transfer targets an
// account, not a request-scoped resource id) return model.NilUUID.
func ResourceIDOf(op model.Operation) model.UUID {
	switch o := op.(type) {
	case *model.EditAccountOperation:
		return o.AccountID
	case *model.EditUserOperation:
		return o.UserID
	case *model.EditUserGroupOperation:
		return o.GroupID
	case *model.RemoveUserGroupOperation:
		return o.GroupID
	case *model.EditRequestPolicyOperation:
		return o.PolicyID
	case *model.RemoveRequestPolicyOperation:
		return o.PolicyID
	case *model.EditAddressBookEntryOperation:
		return o.EntryID
	case *model.RemoveAddressBookEntryOperation:
		return o.EntryID
	case *model.EditAssetOperation:
		return o.AssetID
	case *model.RemoveAssetOperation:
		return o.AssetID
	case *model.EditNamedRuleOperation:
		return o.NamedRuleID
	case *model.RemoveNamedRuleOperation:
		return o.NamedRuleID
	default:
		return model.NilUUID
	}
}

const (
	nsRequestByStatus    = "req_by_status"
	nsRequestByCreated   = "req_by_created"
	nsRequestByExpiry    = "req_by_expiry"
	nsRequestByScheduled = "req_by_scheduled"
	nsRequestByRequester = "req_by_requester"
	nsRequestByApprover  = "req_by_approver"
	nsRequestByOperation = "req_by_operation"
)

// timeKey renders a Timestamp as a fixed-width, lexicographically-ordered
// big-endian decimal so range scans over time-ordered indexes sort the way
// the timestamps themselves order.
func timeKey(t model.Timestamp) []byte {
	return []byte(fmt.Sprintf("%020d", int64(t)))
}

// RequestRepository is the indexed repository over model.Request, carrying
// every secondary index spec.md §4.4's scheduler and §6.1's list_requests
// query surface need: status+last-modified, creation time, expiration time,
// scheduled time, requester, approver, and operation-type with optional
// resource-id refinement.
type RequestRepository struct {
	repo *Repository[*model.Request]
}

// NewRequestRepository constructs the repository over db, registering every
// index a Request needs refreshed on each write.
func NewRequestRepository(db storage.Database) *RequestRepository {
	encode, decode := encodeRequest, decodeRequest
	indexes := []IndexSpec[*model.Request]{
		{
			Name: nsRequestByStatus,
			KeysFor: func(r *model.Request) [][]byte {
				return [][]byte{IndexKey(nsRequestByStatus, []byte(r.Status.Kind), timeKey(r.LastModified), r.ID[:])}
			},
		},
		{
			Name: nsRequestByCreated,
			KeysFor: func(r *model.Request) [][]byte {
				return [][]byte{IndexKey(nsRequestByCreated, timeKey(r.Created), r.ID[:])}
			},
		},
		{
			Name: nsRequestByExpiry,
			KeysFor: func(r *model.Request) [][]byte {
				if r.Status.Kind.Terminal() {
					return nil
				}
				return [][]byte{IndexKey(nsRequestByExpiry, timeKey(r.Expiration), r.ID[:])}
			},
		},
		{
			Name: nsRequestByScheduled,
			KeysFor: func(r *model.Request) [][]byte {
				if r.Status.Kind != model.RequestStatusScheduled {
					return nil
				}
				return [][]byte{IndexKey(nsRequestByScheduled, timeKey(r.Status.ScheduledAt), r.ID[:])}
			},
		},
		{
			Name: nsRequestByRequester,
			KeysFor: func(r *model.Request) [][]byte {
				return [][]byte{IndexKey(nsRequestByRequester, r.Requester[:], r.ID[:])}
			},
		},
		{
			Name: nsRequestByApprover,
			KeysFor: func(r *model.Request) [][]byte {
				keys := make([][]byte, 0, len(r.Approvals))
				for _, a := range r.Approvals {
					keys = append(keys, IndexKey(nsRequestByApprover, a.User[:], r.ID[:]))
				}
				return keys
			},
		},
		{
			Name: nsRequestByOperation,
			KeysFor: func(r *model.Request) [][]byte {
				kind := r.Operation.Kind()
				resourceID := ResourceIDOf(r.Operation)
				return [][]byte{IndexKey(nsRequestByOperation, []byte(kind), resourceID[:], r.ID[:])}
			},
		},
	}
	return &RequestRepository{repo: New(db, "request", indexes, encode, decode)}
}

func (rr *RequestRepository) Get(id model.UUID) (*model.Request, bool, error) { return rr.repo.Get(id) }
func (rr *RequestRepository) MustGet(id model.UUID) (*model.Request, error)   { return rr.repo.MustGet(id) }
func (rr *RequestRepository) Put(r *model.Request) error                     { return rr.repo.Put(r.ID, r) }
func (rr *RequestRepository) Remove(id model.UUID) error                     { return rr.repo.Remove(id) }
func (rr *RequestRepository) All() ([]*model.Request, error)                 { return rr.repo.All() }

// byIndex resolves an index range to concrete *model.Request values,
// preserving the index's own key order (chronological for time indexes).
func (rr *RequestRepository) byIndex(start, end []byte) ([]*model.Request, error) {
	rows, err := rr.repo.IndexRange(start, end)
	if err != nil {
		return nil, err
	}
	out := make([]*model.Request, 0, len(rows))
	for _, row := range rows {
		id, err := ExtractID(row.Key)
		if err != nil {
			return nil, err
		}
		req, ok, err := rr.Get(id)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, req)
		}
	}
	return out, nil
}

// ListByStatus returns requests with the given status ordered by
// LastModified ascending, per spec.md §6.1's list_requests sort option.
func (rr *RequestRepository) ListByStatus(status model.RequestStatusKind) ([]*model.Request, error) {
	start := IndexKey(nsRequestByStatus, []byte(status))
	end := IndexKey(nsRequestByStatus, []byte(status), timeKey(model.Timestamp(1<<62)))
	return rr.byIndex(start, append(end, 0xff))
}

// ListScheduledBefore returns Scheduled requests whose scheduled_at <= at,
// ordered ascending — exactly the batch the scheduler's
// ExecuteScheduledRequests job (package scheduler) needs each tick.
func (rr *RequestRepository) ListScheduledBefore(at model.Timestamp) ([]*model.Request, error) {
	start := IndexKey(nsRequestByScheduled, timeKey(0))
	end := IndexKey(nsRequestByScheduled, timeKey(at+1))
	return rr.byIndex(start, end)
}

// ListExpiredBefore returns non-terminal requests whose expiration <= at,
// for the Expire job.
func (rr *RequestRepository) ListExpiredBefore(at model.Timestamp) ([]*model.Request, error) {
	start := IndexKey(nsRequestByExpiry, timeKey(0))
	end := IndexKey(nsRequestByExpiry, timeKey(at+1))
	return rr.byIndex(start, end)
}

// ListByRequester returns every request a given user created.
func (rr *RequestRepository) ListByRequester(user model.UUID) ([]*model.Request, error) {
	start := IndexKey(nsRequestByRequester, user[:])
	end := IndexKey(nsRequestByRequester, user[:], model.MaxUUID[:])
	return rr.byIndex(start, append(end, 0xff))
}

// ListByApprover returns every request a given user has voted on, the
// basis for get_next_approvable_request's "already decided" exclusion.
func (rr *RequestRepository) ListByApprover(user model.UUID) ([]*model.Request, error) {
	start := IndexKey(nsRequestByApprover, user[:])
	end := IndexKey(nsRequestByApprover, user[:], model.MaxUUID[:])
	return rr.byIndex(start, append(end, 0xff))
}

// ListByOperationKind returns requests carrying the given operation kind,
// optionally refined to those whose target resource id is in ids (empty
// ids means unrefined — any target), per spec.md §6.1's filter surface.
func (rr *RequestRepository) ListByOperationKind(kind model.OperationKind, ids []model.UUID) ([]*model.Request, error) {
	if len(ids) == 0 {
		start := IndexKey(nsRequestByOperation, []byte(kind))
		end := IndexKey(nsRequestByOperation, []byte(kind), model.MaxUUID[:], model.MaxUUID[:])
		return rr.byIndex(start, append(end, 0xff))
	}
	var out []*model.Request
	seen := make(map[model.UUID]struct{})
	for _, id := range ids {
		start := IndexKey(nsRequestByOperation, []byte(kind), id[:])
		end := IndexKey(nsRequestByOperation, []byte(kind), id[:], model.MaxUUID[:])
		rows, err := rr.byIndex(start, append(end, 0xff))
		if err != nil {
			return nil, err
		}
		for _, r := range rows {
			if _, dup := seen[r.ID]; dup {
				continue
			}
			seen[r.ID] = struct{}{}
			out = append(out, r)
		}
	}
	return out, nil
}
