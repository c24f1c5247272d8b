package upgrader

import (
	"context"
	"crypto/sha256"

	"github.com/station-labs/station/model"
	"github.com/station-labs/station/stationerr"
)

// DisasterRecoveryRequest carries request_disaster_recovery's parameters.
type DisasterRecoveryRequest struct {
	Submitter   model.Principal
	ModuleBytes []byte
	Arg         []byte
	InstallMode model.InstallMode
}

// RequestDisasterRecovery implements spec.md §4.6's request_disaster_recovery:
// "per-identity recovery submission. The latest submission per identity is
// kept; submissions with identical (module_hash, arg_hash, mode) across >=
// quorum distinct identities of the committee trigger execution. Lesser
// submissions are retained pending further agreements." Returns whether
// quorum was reached and execution was triggered.
func (s *Service) RequestDisasterRecovery(ctx context.Context, req DisasterRecoveryRequest) (triggered bool, err error) {
	s.mu.Lock()
	if !s.committeeMemberLocked(req.Submitter) {
		s.mu.Unlock()
		return false, stationerr.Forbidden("submitter is not a member of the disaster recovery committee")
	}

	sub := drSubmission{
		moduleHash: sha256.Sum256(req.ModuleBytes),
		argHash:    sha256.Sum256(req.Arg),
		mode:       req.InstallMode,
		request: TriggerUpgradeRequest{
			Caller:            req.Submitter,
			TargetPrincipal:   req.Submitter,
			Target:            model.SystemUpgradeTargetStation,
			ModuleBytes:       req.ModuleBytes,
			ModuleExtraChunks: nil,
			Arg:               req.Arg,
			InstallMode:       req.InstallMode,
		},
	}
	s.submissions[req.Submitter.String()] = sub

	matching := s.matchingSubmittersLocked(sub)
	quorum := int(s.committee.Quorum)
	s.mu.Unlock()

	if len(matching) < quorum {
		return false, nil
	}

	// Quorum reached: run stop/install/start directly, bypassing the
	// authorization/controller-check layers that gate the normal
	// trigger_upgrade path — the committee's quorum agreement is itself the
	// authorization for a disaster recovery.
	target, ok := s.targets[model.SystemUpgradeTargetStation]
	if !ok {
		return false, stationerr.Internal(errNoStationTarget)
	}
	if err := target.Stop(ctx); err != nil {
		if startErr := target.Start(ctx); startErr != nil {
			return false, stationerr.External("stop failed: " + err.Error() + "; restart failed: " + startErr.Error())
		}
		return false, stationerr.External("stop failed: " + err.Error())
	}
	installErr := target.Install(ctx, sub.request.ModuleBytes, sub.request.ModuleExtraChunks, sub.request.Arg, sub.request.InstallMode)
	if startErr := target.Start(ctx); startErr != nil {
		return false, stationerr.External("start failed after disaster recovery install: " + startErr.Error())
	}
	if installErr != nil {
		return false, stationerr.External("install failed: " + installErr.Error())
	}
	return true, nil
}

func (s *Service) committeeMemberLocked(p model.Principal) bool {
	for _, m := range s.committee.Users {
		for _, id := range m.Identities {
			if id.Equal(p) {
				return true
			}
		}
	}
	return false
}

// matchingSubmittersLocked returns the distinct identities whose latest
// submission carries the same (module_hash, arg_hash, mode) triple as sub.
func (s *Service) matchingSubmittersLocked(sub drSubmission) []string {
	var matching []string
	for identity, other := range s.submissions {
		if other.moduleHash == sub.moduleHash && other.argHash == sub.argHash && other.mode == sub.mode {
			matching = append(matching, identity)
		}
	}
	return matching
}

var errNoStationTarget = stationNoTargetError("upgrader: no station target configured")

type stationNoTargetError string

func (e stationNoTargetError) Error() string { return string(e) }

// SetDisasterRecoveryCommittee implements spec.md §4.6's
// set_disaster_recovery_committee: only the target station may call it.
func (s *Service) SetDisasterRecoveryCommittee(caller, targetStation model.Principal, committee model.DisasterRecoveryCommittee) error {
	if !caller.Equal(targetStation) {
		return stationerr.Unauthorized("only the target station may set its disaster recovery committee")
	}
	if err := committee.Validate(); err != nil {
		return stationerr.Validation("%v", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.committee = committee
	s.submissions = make(map[string]drSubmission)
	return nil
}
