package upgraderapi

import (
	"context"

	"google.golang.org/grpc"

	"github.com/station-labs/station/model"
	"github.com/station-labs/station/upgrader"
)

// serviceName is the upgrader channel's fully-qualified gRPC service name.
// Nothing here was produced by protoc — the method table below is the same
// shape a generated *_grpc.pb.go would carry, hand-written against gRPC's
// public grpc.ServiceDesc contract and paired with network.JSONCodec so the
// wire messages can stay plain Go structs.
const serviceName = "station.upgrader.v1.Upgrader"

const (
	methodTriggerUpgrade              = "/" + serviceName + "/TriggerUpgrade"
	methodRequestDisasterRecovery     = "/" + serviceName + "/RequestDisasterRecovery"
	methodSetDisasterRecoveryCommittee = "/" + serviceName + "/SetDisasterRecoveryCommittee"
	methodListSnapshots                = "/" + serviceName + "/ListSnapshots"
	methodRestore                      = "/" + serviceName + "/Restore"
)

type triggerUpgradeRequest struct {
	Caller            model.Principal           `json:"caller"`
	TargetPrincipal   model.Principal           `json:"target_principal"`
	Target            model.SystemUpgradeTarget `json:"target"`
	ModuleBytes       []byte                    `json:"module_bytes"`
	ModuleExtraChunks []byte                    `json:"module_extra_chunks,omitempty"`
	Arg               []byte                    `json:"arg,omitempty"`
	InstallMode       model.InstallMode         `json:"install_mode"`
}

type okResponse struct {
	OK bool `json:"ok"`
}

type disasterRecoveryRequest struct {
	Submitter   model.Principal   `json:"submitter"`
	ModuleBytes []byte            `json:"module_bytes"`
	Arg         []byte            `json:"arg,omitempty"`
	InstallMode model.InstallMode `json:"install_mode"`
}

type disasterRecoveryResponse struct {
	Triggered bool `json:"triggered"`
}

type setCommitteeRequest struct {
	Caller        model.Principal                 `json:"caller"`
	TargetStation model.Principal                 `json:"target_station"`
	Committee     model.DisasterRecoveryCommittee  `json:"committee"`
}

type listSnapshotsRequest struct {
	Target model.SystemUpgradeTarget `json:"target"`
}

type listSnapshotsResponse struct {
	Snapshots []upgrader.Snapshot `json:"snapshots"`
}

type restoreRequest struct {
	Target     model.SystemUpgradeTarget `json:"target"`
	SnapshotID string                    `json:"snapshot_id"`
}

// rpcHandler is the interface the hand-written method table below dispatches
// onto; *Server implements it against the upgrader.Service it fronts.
type rpcHandler interface {
	TriggerUpgrade(ctx context.Context, req *triggerUpgradeRequest) (*okResponse, error)
	RequestDisasterRecovery(ctx context.Context, req *disasterRecoveryRequest) (*disasterRecoveryResponse, error)
	SetDisasterRecoveryCommittee(ctx context.Context, req *setCommitteeRequest) (*okResponse, error)
	ListSnapshots(ctx context.Context, req *listSnapshotsRequest) (*listSnapshotsResponse, error)
	Restore(ctx context.Context, req *restoreRequest) (*okResponse, error)
}

func triggerUpgradeHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(triggerUpgradeRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(rpcHandler).TriggerUpgrade(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: methodTriggerUpgrade}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(rpcHandler).TriggerUpgrade(ctx, req.(*triggerUpgradeRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func requestDisasterRecoveryHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(disasterRecoveryRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(rpcHandler).RequestDisasterRecovery(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: methodRequestDisasterRecovery}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(rpcHandler).RequestDisasterRecovery(ctx, req.(*disasterRecoveryRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func setDisasterRecoveryCommitteeHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(setCommitteeRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(rpcHandler).SetDisasterRecoveryCommittee(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: methodSetDisasterRecoveryCommittee}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(rpcHandler).SetDisasterRecoveryCommittee(ctx, req.(*setCommitteeRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func listSnapshotsHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(listSnapshotsRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(rpcHandler).ListSnapshots(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: methodListSnapshots}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(rpcHandler).ListSnapshots(ctx, req.(*listSnapshotsRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func restoreHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(restoreRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(rpcHandler).Restore(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: methodRestore}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(rpcHandler).Restore(ctx, req.(*restoreRequest))
	}
	return interceptor(ctx, in, info, handler)
}

// serviceDesc is the gRPC method table cmd/upgraderd registers the *Server
// against and api/upgraderapi.Client dials into.
var serviceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*rpcHandler)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "TriggerUpgrade", Handler: triggerUpgradeHandler},
		{MethodName: "RequestDisasterRecovery", Handler: requestDisasterRecoveryHandler},
		{MethodName: "SetDisasterRecoveryCommittee", Handler: setDisasterRecoveryCommitteeHandler},
		{MethodName: "ListSnapshots", Handler: listSnapshotsHandler},
		{MethodName: "Restore", Handler: restoreHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "station/upgrader/v1/upgrader.proto",
}

// isReadMethod reports whether fullMethod only reads upgrader state, the
// split network.BuildServerSecurity's AllowUnauthenticatedReads draws
// between its returned write and read Authenticators.
func isReadMethod(fullMethod string) bool {
	return fullMethod == methodListSnapshots
}
