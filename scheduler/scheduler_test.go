package scheduler

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/station-labs/station/factory"
	"github.com/station-labs/station/model"
	"github.com/station-labs/station/repository"
	"github.com/station-labs/station/storage"
)

type fakeFactory struct {
	stage factory.Stage
	err   error
}

func (f *fakeFactory) Validate(context.Context, model.Operation, factory.Resolver) error { return nil }
func (f *fakeFactory) Title(model.Operation) string                                      { return "fake" }
func (f *fakeFactory) DefaultExpiration(model.Operation) model.Timestamp                 { return model.Now() }
func (f *fakeFactory) Resources(model.Operation) []model.Resource                        { return nil }
func (f *fakeFactory) Execute(context.Context, *model.Request, factory.Resolver) (factory.Stage, error) {
	return f.stage, f.err
}

func newScheduledRequest(t *testing.T, created, scheduledAt model.Timestamp) *model.Request {
	t.Helper()
	return &model.Request{
		ID:        model.NewUUID(),
		Requester: model.NewUUID(),
		Operation: &model.TransferOperation{},
		Status:    model.ScheduledStatus(scheduledAt),
		Created:    created,
		Expiration: created + model.Timestamp(3600*1e9),
	}
}

func TestExecuteScheduledRequests_CompletesReadyBatch(t *testing.T) {
	db := storage.NewMemDB()
	requests := repository.NewRequestRepository(db)
	registry := factory.NewRegistry()
	registry.Register(model.OperationTransfer, &fakeFactory{stage: factory.StageCompleted})
	sched := New(requests, registry, nil)

	now := model.Now()
	req := newScheduledRequest(t, now-100, now-10)
	require.NoError(t, requests.Put(req))

	drained, err := sched.ExecuteScheduledRequests(context.Background(), now)
	require.NoError(t, err)
	require.True(t, drained)

	got, ok, err := requests.Get(req.ID)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, model.RequestStatusCompleted, got.Status.Kind)
}

func TestExecuteScheduledRequests_FailureTransitionsToFailed(t *testing.T) {
	db := storage.NewMemDB()
	requests := repository.NewRequestRepository(db)
	registry := factory.NewRegistry()
	registry.Register(model.OperationTransfer, &fakeFactory{err: errBoom{}})
	sched := New(requests, registry, nil)

	now := model.Now()
	req := newScheduledRequest(t, now-100, now-10)
	require.NoError(t, requests.Put(req))

	_, err := sched.ExecuteScheduledRequests(context.Background(), now)
	require.NoError(t, err)

	got, ok, err := requests.Get(req.ID)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, model.RequestStatusFailed, got.Status.Kind)
}

func TestExecuteScheduledRequests_RespectsBatchSize(t *testing.T) {
	db := storage.NewMemDB()
	requests := repository.NewRequestRepository(db)
	registry := factory.NewRegistry()
	registry.Register(model.OperationTransfer, &fakeFactory{stage: factory.StageCompleted})
	sched := New(requests, registry, nil)

	now := model.Now()
	for i := 0; i < MaxBatchSize+5; i++ {
		req := newScheduledRequest(t, now-model.Timestamp(1000-i), now-10)
		require.NoError(t, requests.Put(req))
	}

	drained, err := sched.ExecuteScheduledRequests(context.Background(), now)
	require.NoError(t, err)
	require.False(t, drained)

	completed, err := requests.ListByStatus(model.RequestStatusCompleted)
	require.NoError(t, err)
	require.Len(t, completed, MaxBatchSize)
}

func TestExpire_CancelsPastExpiration(t *testing.T) {
	db := storage.NewMemDB()
	requests := repository.NewRequestRepository(db)
	sched := New(requests, factory.NewRegistry(), nil)

	now := model.Now()
	req := &model.Request{
		ID:         model.NewUUID(),
		Requester:  model.NewUUID(),
		Operation:  &model.TransferOperation{},
		Status:     model.CreatedStatus(),
		Created:    now - 1000,
		Expiration: now - 10,
	}
	require.NoError(t, requests.Put(req))

	require.NoError(t, sched.Expire(now))

	got, ok, err := requests.Get(req.ID)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, model.RequestStatusCancelled, got.Status.Kind)
	require.Equal(t, "expired", got.Status.CancelReason)
}

type errBoom struct{}

func (errBoom) Error() string { return "boom" }
