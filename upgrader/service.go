// Package upgrader implements spec.md §4.6's Upgrader Protocol: the
// cooperating second process that performs code replacement for the
// station it serves (or for itself) and can restore from snapshots. Service
// is a plain Go type with no generated gRPC/protobuf binding: api/upgraderapi
// serves it over gRPC (a hand-written service descriptor with a JSON codec)
// for cmd/upgraderd, and cmd/stationd also builds an in-process Service.
package upgrader

import (
	"context"
	"crypto/sha256"
	"fmt"
	"log/slog"
	"sync"

	"github.com/station-labs/station/model"
	"github.com/station-labs/station/stationerr"
)

// Target is the managed process the upgrader stops, installs into, and
// restarts — the station itself for a normal trigger_upgrade, or the
// upgrader's own supervisor for a self-upgrade.
type Target interface {
	Stop(ctx context.Context) error
	Install(ctx context.Context, moduleBytes, extraChunks, arg []byte, mode model.InstallMode) error
	Start(ctx context.Context) error
	Snapshot(ctx context.Context) (Snapshot, error)
	Restore(ctx context.Context, snap Snapshot) error
}

// Snapshot is an opaque point-in-time capture a Target can produce and
// later restore from.
type Snapshot struct {
	ID      string
	Target  model.SystemUpgradeTarget
	Created model.Timestamp
	Blob    []byte
}

// TriggerUpgradeRequest carries trigger_upgrade's parameters.
type TriggerUpgradeRequest struct {
	Caller            model.Principal
	TargetPrincipal   model.Principal
	Target            model.SystemUpgradeTarget
	ModuleBytes       []byte
	ModuleExtraChunks []byte
	Arg               []byte
	InstallMode       model.InstallMode
}

// drSubmission is one identity's latest disaster-recovery request.
type drSubmission struct {
	moduleHash [32]byte
	argHash    [32]byte
	mode       model.InstallMode
	request    TriggerUpgradeRequest
}

// Service implements the upgrader's RPC surface.
type Service struct {
	logger *slog.Logger

	targets map[model.SystemUpgradeTarget]Target

	mu         sync.Mutex
	controllers map[string]struct{} // hex-encoded principal set
	committee   model.DisasterRecoveryCommittee
	submissions map[string]drSubmission // keyed by submitter identity hex
	snapshots   map[model.SystemUpgradeTarget][]Snapshot
}

// NewService constructs a Service. targets maps each upgradeable surface
// (station, the upgrader itself) to its Target implementation.
func NewService(logger *slog.Logger, targets map[model.SystemUpgradeTarget]Target, controllers []model.Principal) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	set := make(map[string]struct{}, len(controllers))
	for _, c := range controllers {
		set[c.String()] = struct{}{}
	}
	return &Service{
		logger:      logger,
		targets:     targets,
		controllers: set,
		submissions: make(map[string]drSubmission),
		snapshots:   make(map[model.SystemUpgradeTarget][]Snapshot),
	}
}

func (s *Service) isController(p model.Principal) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.controllers[p.String()]
	return ok
}

// handler is the core trigger_upgrade work, wrapped by the middleware
// chain TriggerUpgrade assembles below.
type handler func(ctx context.Context, req TriggerUpgradeRequest) error

// middleware decorates a handler with one cross-cutting concern. Composed
// outermost-in per spec.md §4.6: "authorization -> controller check ->
// background-execution -> start -> stop -> install -> logging."
type middleware func(handler) handler

func chain(h handler, mws ...middleware) handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}

func (s *Service) authorizationMiddleware() middleware {
	return func(next handler) handler {
		return func(ctx context.Context, req TriggerUpgradeRequest) error {
			if !req.Caller.Equal(req.TargetPrincipal) {
				return stationerr.Unauthorized("trigger_upgrade caller is not the target")
			}
			return next(ctx, req)
		}
	}
}

func (s *Service) controllerCheckMiddleware() middleware {
	return func(next handler) handler {
		return func(ctx context.Context, req TriggerUpgradeRequest) error {
			if !s.isController(req.Caller) {
				return stationerr.NotController("caller is not a platform controller of this upgrader")
			}
			return next(ctx, req)
		}
	}
}

// backgroundExecutionMiddleware is a seam for dispatching the remainder of
// the chain onto a background goroutine so trigger_upgrade can return
// before the target finishes restarting; the in-process Service runs it
// synchronously today (there is nobody else to hand the work to), matching
// spec.md's non-goal of modeling a separate execution scheduler inside the
// upgrader itself.
func (s *Service) backgroundExecutionMiddleware() middleware {
	return func(next handler) handler {
		return func(ctx context.Context, req TriggerUpgradeRequest) error {
			return next(ctx, req)
		}
	}
}

func (s *Service) loggingMiddleware() middleware {
	return func(next handler) handler {
		return func(ctx context.Context, req TriggerUpgradeRequest) error {
			s.logger.Info("trigger_upgrade", "target", req.Target, "mode", req.InstallMode)
			err := next(ctx, req)
			if err != nil {
				s.logger.Error("trigger_upgrade failed", "target", req.Target, "error", err)
			} else {
				s.logger.Info("trigger_upgrade succeeded", "target", req.Target)
			}
			return err
		}
	}
}

// stopMiddleware, installMiddleware and startMiddleware each perform one
// step of the stop -> install -> start sequence and are composed as
// middleware layers (rather than called directly) so the authorization,
// controller and background-execution layers wrap all three steps, per
// spec.md's explicit middleware ordering. The logging layer is innermost
// and wraps only the terminal no-op handler.
func (s *Service) startMiddleware() middleware {
	return func(next handler) handler {
		return func(ctx context.Context, req TriggerUpgradeRequest) error {
			innerErr := next(ctx, req)
			target := s.targets[req.Target]
			if startErr := target.Start(ctx); startErr != nil {
				if innerErr != nil {
					return fmt.Errorf("start failed after prior error %v: %w", innerErr, startErr)
				}
				return fmt.Errorf("start failed: %w", startErr)
			}
			return innerErr
		}
	}
}

func (s *Service) stopMiddleware() middleware {
	return func(next handler) handler {
		return func(ctx context.Context, req TriggerUpgradeRequest) error {
			target := s.targets[req.Target]
			if err := target.Stop(ctx); err != nil {
				return fmt.Errorf("stop failed: %w", err)
			}
			return next(ctx, req)
		}
	}
}

func (s *Service) installMiddleware() middleware {
	return func(next handler) handler {
		return func(ctx context.Context, req TriggerUpgradeRequest) error {
			target := s.targets[req.Target]
			if err := target.Install(ctx, req.ModuleBytes, req.ModuleExtraChunks, req.Arg, req.InstallMode); err != nil {
				return fmt.Errorf("install failed: %w", err)
			}
			return next(ctx, req)
		}
	}
}

// TriggerUpgrade implements spec.md §4.6's trigger_upgrade. Failure
// semantics: "if stopping the target fails, the upgrade attempts to start
// it again before returning the stop error; if installing fails, the
// upgrader always attempts to start the target again before returning the
// install error" — captured by startMiddleware always running after
// stop/install regardless of their outcome.
func (s *Service) TriggerUpgrade(ctx context.Context, req TriggerUpgradeRequest) error {
	if _, ok := s.targets[req.Target]; !ok {
		return stationerr.Validation("unknown upgrade target %q", req.Target)
	}
	h := chain(func(ctx context.Context, req TriggerUpgradeRequest) error { return nil },
		s.authorizationMiddleware(),
		s.controllerCheckMiddleware(),
		s.backgroundExecutionMiddleware(),
		s.startMiddleware(),
		s.stopMiddleware(),
		s.installMiddleware(),
		s.loggingMiddleware(),
	)
	return h(ctx, req)
}
