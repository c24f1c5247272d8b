package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/station-labs/station/authz"
	"github.com/station-labs/station/model"
	"github.com/station-labs/station/observability"
	"github.com/station-labs/station/policy"
	"github.com/station-labs/station/stationerr"
)

// createRequestBody is the wire shape of a create_request call, per spec.md
// §4.1: a discriminated operation envelope plus the requester's hint for
// when an approved request should run.
type createRequestBody struct {
	Operation     operationEnvelope  `json:"operation"`
	ExecutionPlan *executionPlanBody `json:"execution_plan,omitempty"`
	Summary       string             `json:"summary,omitempty"`
}

type executionPlanBody struct {
	Kind string          `json:"kind"`
	At   model.Timestamp `json:"at,omitempty"`
}

func (b *executionPlanBody) toPlan() model.ExecutionPlan {
	if b == nil || b.Kind != "scheduled" {
		return model.ImmediateExecution()
	}
	return model.ScheduledExecution(b.At)
}

type requestDTO struct {
	ID            model.UUID          `json:"id"`
	Requester     model.UUID          `json:"requester"`
	OperationKind model.OperationKind `json:"operation_kind"`
	Status        string              `json:"status"`
	Title         string              `json:"title"`
	Summary       string              `json:"summary"`
	Created       model.Timestamp     `json:"created"`
	Expiration    model.Timestamp     `json:"expiration"`
	LastModified  model.Timestamp     `json:"last_modified"`
	Approvals     []approvalDTO       `json:"approvals"`
}

type approvalDTO struct {
	User      model.UUID      `json:"user"`
	Decision  string          `json:"decision"`
	Reason    string          `json:"reason,omitempty"`
	DecidedAt model.Timestamp `json:"decided_at"`
}

func encodeRequestDTO(r *model.Request) requestDTO {
	approvals := make([]approvalDTO, 0, len(r.Approvals))
	for _, a := range r.Approvals {
		approvals = append(approvals, approvalDTO{
			User:      a.User,
			Decision:  string(a.Decision),
			Reason:    a.Reason,
			DecidedAt: a.DecidedAt,
		})
	}
	return requestDTO{
		ID:            r.ID,
		Requester:     r.Requester,
		OperationKind: r.Operation.Kind(),
		Status:        string(r.Status.Kind),
		Title:         r.Title,
		Summary:       r.Summary,
		Created:       r.Created,
		Expiration:    r.Expiration,
		LastModified:  r.LastModified,
		Approvals:     approvals,
	}
}

// handleCreateRequest implements spec.md §4.1's create_request: validate,
// authorize, select and immediately evaluate the governing policy, then
// persist. Serialized through Config.Accessor along with every other
// mutating call, per spec.md §5's single logical per-task mutex.
func (s *Server) handleCreateRequest(w http.ResponseWriter, r *http.Request) {
	var body createRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, stationerr.Validation("malformed request body: %v", err))
		return
	}
	op, err := decodeOperation(body.Operation)
	if err != nil {
		writeError(w, stationerr.Validation("malformed operation: %v", err))
		return
	}

	caller := callerFromContext(r.Context())
	var req *model.Request
	err = s.cfg.Accessor.Do(func() error {
		req, err = s.createRequest(r.Context(), caller, op, body)
		return err
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, encodeRequestDTO(req))
}

func (s *Server) createRequest(ctx context.Context, caller authz.Caller, op model.Operation, body createRequestBody) (*model.Request, error) {
	f, ok := s.cfg.Factories.For(op.Kind())
	if !ok {
		return nil, stationerr.Validation("no factory registered for operation kind %s", op.Kind())
	}
	if err := f.Validate(ctx, op, s.cfg.Resolver); err != nil {
		return nil, err
	}
	resources := f.Resources(op)
	if err := s.cfg.Authz.Authorize(caller, resources, time.Now()); err != nil {
		observability.Authz().RecordDecision(string(op.Kind()), false)
		return nil, err
	}
	observability.Authz().RecordDecision(string(op.Kind()), true)

	now := model.NextTime()
	rule, _, err := policy.SelectPolicy(op, s.cfg.Policies)
	if err != nil {
		return nil, err
	}

	req := &model.Request{
		ID:            model.NewUUID(),
		Requester:     caller.User,
		Operation:     op,
		Status:        model.CreatedStatus(),
		Snapshot:      rule,
		Created:       now,
		Expiration:    f.DefaultExpiration(op),
		LastModified:  now,
		ExecutionPlan: body.ExecutionPlan.toPlan(),
		Title:         f.Title(op),
		Summary:       body.Summary,
	}

	result, err := policy.Evaluate(req.Snapshot, req.Approvals, req.Operation, s.cfg.PolicyResolver)
	if err != nil {
		return nil, err
	}
	if err := s.applyEvaluation(req, result); err != nil {
		return nil, err
	}

	if err := s.cfg.Requests.Put(req); err != nil {
		return nil, err
	}
	observability.Requests().RecordCreated(string(op.Kind()))
	observability.Requests().RecordDecided(string(op.Kind()), string(result.Status), time.Duration(req.LastModified-req.Created))
	s.notifyApprovers(req, result)
	return req, nil
}

// applyEvaluation transitions req according to a freshly computed policy
// Result: Approved schedules it per its ExecutionPlan, Rejected moves it to
// Rejected, Pending leaves it Created awaiting more approvals.
func (s *Server) applyEvaluation(req *model.Request, result policy.Result) error {
	switch result.Status {
	case policy.Approved:
		at := req.ExecutionPlan.ResolveTime(model.NextTime())
		return req.Transition(model.ScheduledStatus(at))
	case policy.Rejected:
		return req.Transition(model.RejectedStatus())
	default:
		return nil
	}
}

func (s *Server) notifyApprovers(req *model.Request, result policy.Result) {
	for user := range result.PossibleApprovers {
		n := &model.Notification{
			ID:         model.NewUUID(),
			TargetUser: user,
			RequestID:  req.ID,
			Kind:       model.NotificationApprovalNeeded,
			Created:    model.NextTime(),
		}
		_ = s.cfg.Notifications.Put(n)
	}
}

// submitApprovalBody is the wire shape of a submit_approval call.
type submitApprovalBody struct {
	Decision string `json:"decision"`
	Reason   string `json:"reason,omitempty"`
}

// handleSubmitApproval implements spec.md §4.1's submit_approval: reject a
// second decision from the same user, confirm the caller is among the
// policy's current possible approvers, record the vote, and re-evaluate.
func (s *Server) handleSubmitApproval(w http.ResponseWriter, r *http.Request) {
	id, err := model.ParseUUID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, stationerr.Validation("malformed request id: %v", err))
		return
	}
	var body submitApprovalBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, stationerr.Validation("malformed approval body: %v", err))
		return
	}
	decision := model.ApprovalDecision(body.Decision)
	if decision != model.ApprovalApproved && decision != model.ApprovalRejected {
		writeError(w, stationerr.Validation("decision must be \"approved\" or \"rejected\""))
		return
	}

	caller := callerFromContext(r.Context())
	var req *model.Request
	err = s.cfg.Accessor.Do(func() error {
		req, err = s.submitApproval(id, caller, decision, body.Reason)
		return err
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, encodeRequestDTO(req))
}

func (s *Server) submitApproval(id model.UUID, caller authz.Caller, decision model.ApprovalDecision, reason string) (*model.Request, error) {
	req, ok, err := s.cfg.Requests.Get(id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, stationerr.NotFound("request %s not found", id)
	}
	if req.IsTerminal() {
		return nil, stationerr.BadState("request %s is already %s", id, req.Status.Kind)
	}
	if _, exists := req.ApprovalByUser(caller.User); exists {
		return nil, stationerr.Forbidden("user %s already decided on request %s", caller.User, id)
	}

	before, err := policy.Evaluate(req.Snapshot, req.Approvals, req.Operation, s.cfg.PolicyResolver)
	if err != nil {
		return nil, err
	}
	if _, eligible := before.PossibleApprovers[caller.User]; !eligible {
		return nil, stationerr.Forbidden("user %s is not a possible approver for request %s", caller.User, id)
	}

	if err := req.RecordApproval(model.Approval{
		User:      caller.User,
		Decision:  decision,
		Reason:    reason,
		DecidedAt: model.NextTime(),
	}); err != nil {
		return nil, err
	}
	if req.Status.Kind == model.RequestStatusCreated {
		if err := req.Transition(model.CreatedStatus()); err != nil {
			return nil, err
		}
	}

	after, err := policy.Evaluate(req.Snapshot, req.Approvals, req.Operation, s.cfg.PolicyResolver)
	if err != nil {
		return nil, err
	}
	if err := s.applyEvaluation(req, after); err != nil {
		return nil, err
	}

	if err := s.cfg.Requests.Put(req); err != nil {
		return nil, err
	}
	if after.Status != policy.Pending {
		observability.Requests().RecordDecided(string(req.Operation.Kind()), string(after.Status), time.Duration(req.LastModified-req.Created))
	}
	s.notifyApprovers(req, after)
	return req, nil
}

// handleGetRequest returns a single request by id.
func (s *Server) handleGetRequest(w http.ResponseWriter, r *http.Request) {
	id, err := model.ParseUUID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, stationerr.Validation("malformed request id: %v", err))
		return
	}
	req, ok, err := s.cfg.Requests.Get(id)
	if err != nil {
		writeError(w, err)
		return
	}
	if !ok {
		writeError(w, stationerr.NotFound("request %s not found", id))
		return
	}
	writeJSON(w, http.StatusOK, encodeRequestDTO(req))
}

// handleListRequests lists requests filtered by at most one of
// status/requester/approver, matching RequestRepository's index methods.
func (s *Server) handleListRequests(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var (
		requests []*model.Request
		err      error
	)
	switch {
	case q.Get("status") != "":
		requests, err = s.cfg.Requests.ListByStatus(model.RequestStatusKind(q.Get("status")))
	case q.Get("requester") != "":
		var id model.UUID
		if id, err = model.ParseUUID(q.Get("requester")); err == nil {
			requests, err = s.cfg.Requests.ListByRequester(id)
		}
	case q.Get("approver") != "":
		var id model.UUID
		if id, err = model.ParseUUID(q.Get("approver")); err == nil {
			requests, err = s.cfg.Requests.ListByApprover(id)
		}
	default:
		requests, err = s.cfg.Requests.All()
	}
	if err != nil {
		writeError(w, err)
		return
	}
	dtos := make([]requestDTO, 0, len(requests))
	for _, req := range requests {
		dtos = append(dtos, encodeRequestDTO(req))
	}
	writeJSON(w, http.StatusOK, dtos)
}
