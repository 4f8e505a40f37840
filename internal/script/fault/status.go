package fault

import (
	"net/http"

	"google.golang.org/grpc/codes"
)

// HTTPStatus maps a Kind onto the status code returned by the HTTP endpoint.
func HTTPStatus(k Kind) int {
	switch k {
	case KindClientInput, KindCompile:
		return http.StatusBadRequest
	case KindDenied:
		return http.StatusForbidden
	case KindUnavailable:
		return http.StatusServiceUnavailable
	case KindNotSupported:
		return http.StatusNotImplemented
	default:
		return http.StatusInternalServerError
	}
}

// GRPCCode maps a Kind onto a gRPC status code.
func GRPCCode(k Kind) codes.Code {
	switch k {
	case KindClientInput, KindCompile:
		return codes.InvalidArgument
	case KindDenied:
		return codes.PermissionDenied
	case KindUnavailable:
		return codes.Unavailable
	case KindNotSupported:
		return codes.Unimplemented
	default:
		return codes.Internal
	}
}

// FromGRPCCode is the inverse of GRPCCode, used by clients.
func FromGRPCCode(c codes.Code) Kind {
	switch c {
	case codes.InvalidArgument:
		return KindClientInput
	case codes.PermissionDenied:
		return KindDenied
	case codes.Unavailable:
		return KindUnavailable
	case codes.Unimplemented:
		return KindNotSupported
	default:
		return KindInternal
	}
}
