// Package scheduler implements spec.md §4.4's cooperative, single-threaded
// scheduler: a periodic ExecuteScheduledRequests job that advances
// Scheduled requests whose time has come, and a periodic Expire job that
// cancels requests past their expiration. Both are safe to invoke
// concurrently with request-service calls only because every write goes
// through the same indexed repositories' atomic batches — there is no
// separate scheduler-only lock, matching spec.md §5's single logical
// per-task execution model.
package scheduler

import (
	"context"
	"fmt"
	"sort"

	"github.com/station-labs/station/factory"
	"github.com/station-labs/station/model"
	"github.com/station-labs/station/repository"
)

// MaxBatchSize bounds how many Scheduled requests ExecuteScheduledRequests
// advances per tick, per spec.md §4.4.
const MaxBatchSize = 20

// MaxProcessing caps the number of requests allowed to sit in Processing at
// once; once reached, ExecuteScheduledRequests stops dispatching new work
// until some finish, per spec.md §4.4's backpressure requirement.
const MaxProcessing = 400

// Scheduler drives the two periodic jobs over a RequestRepository and a
// factory.Registry.
type Scheduler struct {
	Requests  *repository.RequestRepository
	Factories *factory.Registry
	Resolver  factory.Resolver
}

// New constructs a Scheduler.
func New(requests *repository.RequestRepository, factories *factory.Registry, resolver factory.Resolver) *Scheduler {
	return &Scheduler{Requests: requests, Factories: factories, Resolver: resolver}
}

// ExecuteScheduledRequests advances up to MaxBatchSize Scheduled requests
// whose scheduled_at <= now to Processing and invokes their factory's
// Execute step, ordered by creation time within the batch per spec.md
// §4.4. It returns true when no more scheduled work remained after this
// tick's batch ("drained"), matching the teacher's own tick-job return
// convention (see services/governd's periodic job loop signaling whether a
// pass did anything).
func (s *Scheduler) ExecuteScheduledRequests(ctx context.Context, now model.Timestamp) (drained bool, err error) {
	processingCount, err := s.countProcessing()
	if err != nil {
		return false, err
	}
	if processingCount >= MaxProcessing {
		return false, nil
	}

	ready, err := s.Requests.ListScheduledBefore(now)
	if err != nil {
		return false, err
	}
	sort.Slice(ready, func(i, j int) bool { return ready[i].Created < ready[j].Created })

	capacity := MaxProcessing - processingCount
	batchSize := MaxBatchSize
	if capacity < batchSize {
		batchSize = capacity
	}
	if batchSize > len(ready) {
		batchSize = len(ready)
	}
	batch := ready[:batchSize]

	for _, req := range batch {
		if err := s.runOne(ctx, req, now); err != nil {
			return false, err
		}
	}
	return batchSize == len(ready), nil
}

func (s *Scheduler) countProcessing() (int, error) {
	processing, err := s.Requests.ListByStatus(model.RequestStatusProcessing)
	if err != nil {
		return 0, err
	}
	return len(processing), nil
}

// runOne transitions req to Processing, invokes its factory, and applies
// the resulting state transition, trapping any execution error — including
// a factory panic, recovered by execute below — into Failed{reason} per
// spec.md §4.1's "factory.execute Err(r) -> Failed{r}" edge and §4.4's
// requirement that one failing request never aborts the batch.
func (s *Scheduler) runOne(ctx context.Context, req *model.Request, now model.Timestamp) error {
	if err := req.Transition(model.ProcessingStatus(now)); err != nil {
		return err
	}
	if err := s.Requests.Put(req); err != nil {
		return err
	}

	stage, execErr := s.execute(ctx, req)
	if execErr != nil {
		if err := req.Transition(model.FailedStatus(execErr.Error())); err != nil {
			return err
		}
		return s.Requests.Put(req)
	}

	switch stage {
	case factory.StageCompleted:
		if err := req.Transition(model.CompletedStatus(model.NextTime())); err != nil {
			return err
		}
	case factory.StageProcessing:
		// stays Processing awaiting an external continuation (e.g. the
		// upgrader finishing an install); nothing to persist beyond the
		// Processing status already written above.
		return nil
	}
	return s.Requests.Put(req)
}

// execute invokes req's factory, recovering a panic (e.g. an unchecked
// operation type assertion inside a Factory.Execute implementation) into an
// error rather than letting it unwind out of the scheduler tick and take
// every other request in the batch down with it.
func (s *Scheduler) execute(ctx context.Context, req *model.Request) (stage factory.Stage, err error) {
	f, ok := s.Factories.For(req.Operation.Kind())
	if !ok {
		return "", fmt.Errorf("scheduler: no factory registered for operation kind %q", req.Operation.Kind())
	}
	defer func() {
		if r := recover(); r != nil {
			stage, err = "", fmt.Errorf("internal error: %v", r)
		}
	}()
	return f.Execute(ctx, req, s.Resolver)
}

// Expire moves every non-terminal request whose expiration has passed to
// Cancelled{reason="expired"}, per spec.md §4.1's background expiration
// sweep.
func (s *Scheduler) Expire(now model.Timestamp) error {
	expired, err := s.Requests.ListExpiredBefore(now)
	if err != nil {
		return err
	}
	for _, req := range expired {
		if req.IsTerminal() {
			continue
		}
		if err := req.Transition(model.CancelledStatus("expired")); err != nil {
			return err
		}
		if err := s.Requests.Put(req); err != nil {
			return err
		}
	}
	return nil
}
