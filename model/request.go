package model

import "fmt"

// RequestStatusKind tags the state-machine position of a Request, per
// spec.md §4.1.
type RequestStatusKind string

const (
	RequestStatusCreated    RequestStatusKind = "created"
	RequestStatusScheduled  RequestStatusKind = "scheduled"
	RequestStatusProcessing RequestStatusKind = "processing"
	RequestStatusCompleted  RequestStatusKind = "completed"
	RequestStatusFailed     RequestStatusKind = "failed"
	RequestStatusRejected   RequestStatusKind = "rejected"
	RequestStatusCancelled  RequestStatusKind = "cancelled"
)

// Terminal reports whether a status accepts no further transitions.
func (s RequestStatusKind) Terminal() bool {
	switch s {
	case RequestStatusCompleted, RequestStatusFailed, RequestStatusRejected, RequestStatusCancelled:
		return true
	default:
		return false
	}
}

// RequestStatus carries the kind plus whichever payload that kind defines.
type RequestStatus struct {
	Kind RequestStatusKind

	ScheduledAt  Timestamp // Scheduled
	StartedAt    Timestamp // Processing
	CompletedAt  Timestamp // Completed
	FailedReason string    // Failed
	CancelReason string    // Cancelled
}

func CreatedStatus() RequestStatus { return RequestStatus{Kind: RequestStatusCreated} }

func ScheduledStatus(at Timestamp) RequestStatus {
	return RequestStatus{Kind: RequestStatusScheduled, ScheduledAt: at}
}

func ProcessingStatus(startedAt Timestamp) RequestStatus {
	return RequestStatus{Kind: RequestStatusProcessing, StartedAt: startedAt}
}

func CompletedStatus(completedAt Timestamp) RequestStatus {
	return RequestStatus{Kind: RequestStatusCompleted, CompletedAt: completedAt}
}

func FailedStatus(reason string) RequestStatus {
	return RequestStatus{Kind: RequestStatusFailed, FailedReason: reason}
}

func RejectedStatus() RequestStatus { return RequestStatus{Kind: RequestStatusRejected} }

func CancelledStatus(reason string) RequestStatus {
	return RequestStatus{Kind: RequestStatusCancelled, CancelReason: reason}
}

// validTransitions enumerates the state machine edges from spec.md §4.1.
// Keyed by (from, to); Created->Created (an approval recorded without yet
// flipping the tree) is allowed because submit_approval always re-persists
// the request even when the rule tree is still Pending.
var validTransitions = map[RequestStatusKind]map[RequestStatusKind]bool{
	RequestStatusCreated: {
		RequestStatusCreated:   true,
		RequestStatusScheduled: true,
		RequestStatusRejected:  true,
		RequestStatusCancelled: true,
	},
	RequestStatusScheduled: {
		RequestStatusProcessing: true,
		RequestStatusCancelled:  true,
	},
	RequestStatusProcessing: {
		RequestStatusCompleted:  true,
		RequestStatusProcessing: true, // Ok(async): stays Processing awaiting continuation
		RequestStatusFailed:     true,
		RequestStatusCancelled:  true,
	},
}

// CanTransition reports whether moving from `from` to `to` is a legal edge
// of the state machine.
func CanTransition(from, to RequestStatusKind) bool {
	if from.Terminal() {
		return false
	}
	edges, ok := validTransitions[from]
	if !ok {
		return false
	}
	return edges[to]
}

// ApprovalDecision is a user's vote on a Request.
type ApprovalDecision string

const (
	ApprovalApproved ApprovalDecision = "approved"
	ApprovalRejected ApprovalDecision = "rejected"
)

// Approval records one user's Approved/Rejected vote. At most one Approval
// per (Request, user) — enforced by Request.RecordApproval.
type Approval struct {
	User      UUID
	Decision  ApprovalDecision
	Reason    string
	DecidedAt Timestamp
}

// ExecutionPlanKind tags when a completed-policy request should run.
type ExecutionPlanKind string

const (
	ExecutionImmediate ExecutionPlanKind = "immediate"
	ExecutionScheduled ExecutionPlanKind = "scheduled"
)

// ExecutionPlan is the requester's hint for when an Approved request should
// move to Scheduled; Immediate schedules at the moment of approval,
// Scheduled pins a future time.
type ExecutionPlan struct {
	Kind ExecutionPlanKind
	At   Timestamp // meaningful when Kind == ExecutionScheduled
}

func ImmediateExecution() ExecutionPlan { return ExecutionPlan{Kind: ExecutionImmediate} }
func ScheduledExecution(at Timestamp) ExecutionPlan {
	return ExecutionPlan{Kind: ExecutionScheduled, At: at}
}

// ResolveTime returns the Scheduled.at a Request should carry once its
// policy evaluates to Approved, per spec.md §4.1: "Scheduled{at = plan.time
// or now}".
func (p ExecutionPlan) ResolveTime(now Timestamp) Timestamp {
	if p.Kind == ExecutionScheduled && p.At > now {
		return p.At
	}
	return now
}

// Request is a proposed privileged action moving through the state machine.
type Request struct {
	ID          UUID
	Requester   UUID
	Operation   Operation
	Status      RequestStatus
	Approvals   []Approval
	Snapshot    *Rule // policy_snapshot: cloned at creation time, immutable thereafter
	Created     Timestamp
	Expiration  Timestamp
	LastModified Timestamp
	ExecutionPlan ExecutionPlan
	Title       string
	Summary     string
}

// ApprovalByUser returns the existing Approval for user, if any.
func (r *Request) ApprovalByUser(user UUID) (Approval, bool) {
	for _, a := range r.Approvals {
		if a.User == user {
			return a, true
		}
	}
	return Approval{}, false
}

// RecordApproval appends a new Approval. Callers must have already checked
// AlreadyDecided via ApprovalByUser; RecordApproval itself only enforces the
// invariant defensively.
func (r *Request) RecordApproval(a Approval) error {
	if _, exists := r.ApprovalByUser(a.User); exists {
		return fmt.Errorf("request %s: user %s already decided", r.ID, a.User)
	}
	r.Approvals = append(r.Approvals, a)
	return nil
}

// Transition moves the request to a new status, enforcing the state
// machine's legal edges and stamping LastModified via NextTime.
func (r *Request) Transition(to RequestStatus) error {
	if !CanTransition(r.Status.Kind, to.Kind) {
		return fmt.Errorf("request %s: illegal transition %s -> %s", r.ID, r.Status.Kind, to.Kind)
	}
	r.Status = to
	r.LastModified = NextTime()
	return nil
}

// IsTerminal reports whether the request can no longer change state.
func (r *Request) IsTerminal() bool {
	return r.Status.Kind.Terminal()
}
