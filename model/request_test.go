package model

import "testing"

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to RequestStatusKind
		want     bool
	}{
		{RequestStatusCreated, RequestStatusScheduled, true},
		{RequestStatusCreated, RequestStatusRejected, true},
		{RequestStatusCreated, RequestStatusProcessing, false},
		{RequestStatusScheduled, RequestStatusProcessing, true},
		{RequestStatusScheduled, RequestStatusScheduled, false},
		{RequestStatusProcessing, RequestStatusCompleted, true},
		{RequestStatusProcessing, RequestStatusProcessing, true},
		{RequestStatusCompleted, RequestStatusProcessing, false},
		{RequestStatusRejected, RequestStatusScheduled, false},
	}
	for _, c := range cases {
		if got := CanTransition(c.from, c.to); got != c.want {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", c.from, c.to, got, c.want)
		}
	}
}

func TestTerminal(t *testing.T) {
	for _, s := range []RequestStatusKind{RequestStatusCompleted, RequestStatusFailed, RequestStatusRejected, RequestStatusCancelled} {
		if !s.Terminal() {
			t.Errorf("%s should be terminal", s)
		}
	}
	for _, s := range []RequestStatusKind{RequestStatusCreated, RequestStatusScheduled, RequestStatusProcessing} {
		if s.Terminal() {
			t.Errorf("%s should not be terminal", s)
		}
	}
}

func TestRequestTransitionRejectsIllegalEdge(t *testing.T) {
	r := &Request{ID: NewUUID(), Status: CreatedStatus()}
	if err := r.Transition(ProcessingStatus(Now())); err == nil {
		t.Fatal("expected error transitioning Created -> Processing")
	}
	if r.Status.Kind != RequestStatusCreated {
		t.Fatalf("status should be unchanged after a rejected transition, got %s", r.Status.Kind)
	}
}

func TestRequestTransitionStampsLastModified(t *testing.T) {
	r := &Request{ID: NewUUID(), Status: CreatedStatus()}
	if err := r.Transition(ScheduledStatus(Now())); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.LastModified == 0 {
		t.Fatal("LastModified should be stamped on a successful transition")
	}
}

func TestRequestTransitionFromTerminalAlwaysFails(t *testing.T) {
	r := &Request{ID: NewUUID(), Status: CompletedStatus(Now())}
	if err := r.Transition(CancelledStatus("too late")); err == nil {
		t.Fatal("expected error transitioning out of a terminal status")
	}
}

func TestRecordApprovalRejectsDuplicateVoter(t *testing.T) {
	user := NewUUID()
	r := &Request{ID: NewUUID()}
	if err := r.RecordApproval(Approval{User: user, Decision: ApprovalApproved}); err != nil {
		t.Fatalf("unexpected error on first vote: %v", err)
	}
	if err := r.RecordApproval(Approval{User: user, Decision: ApprovalRejected}); err == nil {
		t.Fatal("expected error recording a second vote from the same user")
	}
	if len(r.Approvals) != 1 {
		t.Fatalf("expected exactly one recorded approval, got %d", len(r.Approvals))
	}
}

func TestApprovalByUser(t *testing.T) {
	user := NewUUID()
	r := &Request{ID: NewUUID()}
	if _, ok := r.ApprovalByUser(user); ok {
		t.Fatal("expected no approval before any vote is recorded")
	}
	if err := r.RecordApproval(Approval{User: user, Decision: ApprovalApproved}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, ok := r.ApprovalByUser(user)
	if !ok || got.Decision != ApprovalApproved {
		t.Fatalf("expected to find the recorded approval, got %+v, %v", got, ok)
	}
}

func TestExecutionPlanResolveTime(t *testing.T) {
	now := Timestamp(1000)
	if got := ImmediateExecution().ResolveTime(now); got != now {
		t.Fatalf("immediate execution should resolve to now, got %d", got)
	}
	future := Timestamp(5000)
	if got := ScheduledExecution(future).ResolveTime(now); got != future {
		t.Fatalf("scheduled execution in the future should resolve to its own time, got %d", got)
	}
	past := Timestamp(1)
	if got := ScheduledExecution(past).ResolveTime(now); got != now {
		t.Fatalf("scheduled execution already in the past should resolve to now, got %d", got)
	}
}

func TestIsTerminal(t *testing.T) {
	r := &Request{Status: RejectedStatus()}
	if !r.IsTerminal() {
		t.Fatal("rejected request should be terminal")
	}
	r.Status = CreatedStatus()
	if r.IsTerminal() {
		t.Fatal("created request should not be terminal")
	}
}
