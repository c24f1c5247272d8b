package repository

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/station-labs/station/model"
	"github.com/station-labs/station/storage"
)

func newTestRequest(requester model.UUID, status model.RequestStatus, created, expiration model.Timestamp) *model.Request {
	return &model.Request{
		ID:         model.NewUUID(),
		Requester:  requester,
		Operation:  &model.TransferOperation{},
		Status:     status,
		Created:    created,
		Expiration: expiration,
	}
}

func TestRequestRepositoryPutGetRoundTrip(t *testing.T) {
	db := storage.NewMemDB()
	repo := NewRequestRepository(db)

	req := newTestRequest(model.NewUUID(), model.CreatedStatus(), model.Now(), model.Now()+1000)
	require.NoError(t, repo.Put(req))

	got, ok, err := repo.Get(req.ID)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, req.ID, got.ID)
	require.Equal(t, req.Requester, got.Requester)
	require.Equal(t, model.OperationTransfer, got.Operation.Kind())
}

func TestRequestRepositoryListByStatus(t *testing.T) {
	db := storage.NewMemDB()
	repo := NewRequestRepository(db)

	now := model.Now()
	created := newTestRequest(model.NewUUID(), model.CreatedStatus(), now, now+1000)
	scheduled := newTestRequest(model.NewUUID(), model.ScheduledStatus(now), now, now+1000)
	require.NoError(t, repo.Put(created))
	require.NoError(t, repo.Put(scheduled))

	got, err := repo.ListByStatus(model.RequestStatusCreated)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, created.ID, got[0].ID)
}

func TestRequestRepositoryListExpiredBeforeExcludesTerminal(t *testing.T) {
	db := storage.NewMemDB()
	repo := NewRequestRepository(db)

	now := model.Now()
	expiring := newTestRequest(model.NewUUID(), model.CreatedStatus(), now, now+10)
	alreadyRejected := newTestRequest(model.NewUUID(), model.RejectedStatus(), now, now+10)
	notYetExpired := newTestRequest(model.NewUUID(), model.CreatedStatus(), now, now+1_000_000)
	require.NoError(t, repo.Put(expiring))
	require.NoError(t, repo.Put(alreadyRejected))
	require.NoError(t, repo.Put(notYetExpired))

	got, err := repo.ListExpiredBefore(now + 20)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, expiring.ID, got[0].ID)
}

func TestRequestRepositoryListScheduledBefore(t *testing.T) {
	db := storage.NewMemDB()
	repo := NewRequestRepository(db)

	now := model.Now()
	due := newTestRequest(model.NewUUID(), model.ScheduledStatus(now-5), now-100, now+1000)
	notDue := newTestRequest(model.NewUUID(), model.ScheduledStatus(now+1000), now-100, now+2000)
	require.NoError(t, repo.Put(due))
	require.NoError(t, repo.Put(notDue))

	got, err := repo.ListScheduledBefore(now)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, due.ID, got[0].ID)
}

func TestRequestRepositoryListByRequesterAndApprover(t *testing.T) {
	db := storage.NewMemDB()
	repo := NewRequestRepository(db)

	requester := model.NewUUID()
	approver := model.NewUUID()
	now := model.Now()
	req := newTestRequest(requester, model.CreatedStatus(), now, now+1000)
	require.NoError(t, req.RecordApproval(model.Approval{User: approver, Decision: model.ApprovalApproved}))
	require.NoError(t, repo.Put(req))

	byRequester, err := repo.ListByRequester(requester)
	require.NoError(t, err)
	require.Len(t, byRequester, 1)
	require.Equal(t, req.ID, byRequester[0].ID)

	byApprover, err := repo.ListByApprover(approver)
	require.NoError(t, err)
	require.Len(t, byApprover, 1)
	require.Equal(t, req.ID, byApprover[0].ID)

	other, err := repo.ListByApprover(model.NewUUID())
	require.NoError(t, err)
	require.Empty(t, other)
}

func TestRequestRepositoryRemove(t *testing.T) {
	db := storage.NewMemDB()
	repo := NewRequestRepository(db)

	req := newTestRequest(model.NewUUID(), model.CreatedStatus(), model.Now(), model.Now()+1000)
	require.NoError(t, repo.Put(req))
	require.NoError(t, repo.Remove(req.ID))

	_, ok, err := repo.Get(req.ID)
	require.NoError(t, err)
	require.False(t, ok)
}
