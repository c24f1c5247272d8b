// Package upgraderapi exposes upgrader.Service as a gRPC service for
// cmd/upgraderd, the station↔upgrader channel SPEC_FULL.md §6.1 describes.
// Its method table (rpc.go) is hand-written against grpc.ServiceDesc rather
// than generated by protoc (this workspace never had a .proto to compile),
// and its wire messages travel as JSON via network.JSONCodec instead of
// protobuf. Transport security and authentication are assembled by
// network.BuildServerSecurity exactly as the teacher's own
// service-to-service gRPC servers do (services/governd/main.go), and every
// unary call is gated by a network.Authenticator the way
// consensus/service.Server's UnaryAuthInterceptor gates consensus RPCs.
package upgraderapi

import (
	"context"
	"log/slog"
	"net"

	"google.golang.org/grpc"

	"github.com/station-labs/station/config"
	"github.com/station-labs/station/model"
	"github.com/station-labs/station/network"
	"github.com/station-labs/station/upgrader"
)

// Config wires a Server to the upgrader.Service it fronts and the network
// security policy guarding every call.
type Config struct {
	Service  *upgrader.Service
	Security *config.NetworkSecurity
	BaseDir  string
	Lookup   func(string) (string, bool) // env lookup for NetworkSecurity.SharedSecretEnv; os.LookupEnv in production
	Logger   *slog.Logger
}

// Server is a gRPC server fronting an upgrader.Service.
type Server struct {
	cfg    Config
	logger *slog.Logger
	grpc   *grpc.Server
}

// New builds a Server, resolving cfg.Security into transport credentials and
// write/read Authenticators via network.BuildServerSecurity and registering
// the upgrader channel's service description against the result.
func New(cfg Config) (*Server, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	creds, writeAuth, readAuth, err := network.BuildServerSecurity(cfg.Security, cfg.BaseDir, cfg.Lookup)
	if err != nil {
		return nil, err
	}

	s := &Server{cfg: cfg, logger: logger}
	s.grpc = grpc.NewServer(
		grpc.Creds(creds),
		grpc.ForceServerCodec(network.JSONCodec{}),
		grpc.ChainUnaryInterceptor(unaryAuthInterceptor(writeAuth, readAuth)),
	)
	s.grpc.RegisterService(&serviceDesc, s)
	return s, nil
}

// Serve blocks accepting connections on lis until the server is stopped.
func (s *Server) Serve(lis net.Listener) error {
	return s.grpc.Serve(lis)
}

// GracefulStop stops accepting new RPCs and waits for in-flight ones to
// finish.
func (s *Server) GracefulStop() {
	s.grpc.GracefulStop()
}

// Stop terminates the server immediately, without waiting on in-flight RPCs.
func (s *Server) Stop() {
	s.grpc.Stop()
}

// unaryAuthInterceptor enforces writeAuth on every RPC except the read-only
// ones named by isReadMethod, which fall back to readAuth — the same
// method-name split network.BuildServerSecurity's AllowUnauthenticatedReads
// flag draws, adapted from the teacher's isMsgMethod pattern
// (services/lending/server/auth.go) to a two-tier read/write split instead
// of an all-or-nothing one.
func unaryAuthInterceptor(writeAuth, readAuth network.Authenticator) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		auth := writeAuth
		if isReadMethod(info.FullMethod) {
			auth = readAuth
		}
		if auth != nil {
			if err := auth.Authorize(ctx); err != nil {
				return nil, err
			}
		}
		return handler(ctx, req)
	}
}

func (s *Server) TriggerUpgrade(ctx context.Context, req *triggerUpgradeRequest) (*okResponse, error) {
	err := s.cfg.Service.TriggerUpgrade(ctx, upgrader.TriggerUpgradeRequest{
		Caller:            req.Caller,
		TargetPrincipal:   req.TargetPrincipal,
		Target:            req.Target,
		ModuleBytes:       req.ModuleBytes,
		ModuleExtraChunks: req.ModuleExtraChunks,
		Arg:               req.Arg,
		InstallMode:       req.InstallMode,
	})
	if err != nil {
		return nil, rpcError(err)
	}
	return &okResponse{OK: true}, nil
}

func (s *Server) RequestDisasterRecovery(ctx context.Context, req *disasterRecoveryRequest) (*disasterRecoveryResponse, error) {
	triggered, err := s.cfg.Service.RequestDisasterRecovery(ctx, upgrader.DisasterRecoveryRequest{
		Submitter:   req.Submitter,
		ModuleBytes: req.ModuleBytes,
		Arg:         req.Arg,
		InstallMode: req.InstallMode,
	})
	if err != nil {
		return nil, rpcError(err)
	}
	return &disasterRecoveryResponse{Triggered: triggered}, nil
}

func (s *Server) SetDisasterRecoveryCommittee(ctx context.Context, req *setCommitteeRequest) (*okResponse, error) {
	if err := s.cfg.Service.SetDisasterRecoveryCommittee(req.Caller, req.TargetStation, req.Committee); err != nil {
		return nil, rpcError(err)
	}
	return &okResponse{OK: true}, nil
}

func (s *Server) ListSnapshots(ctx context.Context, req *listSnapshotsRequest) (*listSnapshotsResponse, error) {
	target := req.Target
	if target == "" {
		target = model.SystemUpgradeTargetStation
	}
	return &listSnapshotsResponse{Snapshots: s.cfg.Service.ListSnapshots(target)}, nil
}

func (s *Server) Restore(ctx context.Context, req *restoreRequest) (*okResponse, error) {
	if err := s.cfg.Service.Restore(ctx, req.Target, req.SnapshotID); err != nil {
		return nil, rpcError(err)
	}
	return &okResponse{OK: true}, nil
}
