package upgraderapi

import (
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/station-labs/station/stationerr"
)

// grpcCodeFor mirrors api/httpapi's stationerr.Code -> HTTP status table,
// translated to gRPC's status.Code space since the upgrader channel is a
// gRPC service rather than an HTTP one; duplicated rather than shared since
// the two transports' error surfaces are allowed to diverge independently.
func grpcCodeFor(code stationerr.Code) codes.Code {
	switch code {
	case stationerr.CodeValidation:
		return codes.InvalidArgument
	case stationerr.CodeNotFound:
		return codes.NotFound
	case stationerr.CodeForbidden:
		return codes.PermissionDenied
	case stationerr.CodeUnauthorized:
		return codes.Unauthenticated
	case stationerr.CodeNotController:
		return codes.PermissionDenied
	case stationerr.CodeBadState:
		return codes.FailedPrecondition
	case stationerr.CodeExternal:
		return codes.Unavailable
	default:
		return codes.Internal
	}
}

// rpcError wraps err as a *status.Status carrying its stationerr.Code, so a
// client that only speaks gRPC status codes still recovers the right
// failure class. Errors that already carry a gRPC status (e.g. raised by an
// Authenticator) pass through unchanged.
func rpcError(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}
	return status.Error(grpcCodeFor(stationerr.CodeOf(err)), err.Error())
}
