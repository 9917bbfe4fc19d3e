package errors

import "net/http"

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// Request errors
	CodeInvalidArgument Code = "INVALID_ARGUMENT"
	CodeNotConfigured   Code = "NOT_CONFIGURED"

	// Transfer errors
	CodeCallerNotFound   Code = "TRANSFER_CALLER_NOT_FOUND"
	CodeTransferNotFound Code = "TRANSFER_NOT_FOUND"
	CodeTransferMismatch Code = "TRANSFER_TARGET_MISMATCH"

	// Upstream platform errors
	CodeRoomUnavailable     Code = "ROOM_PLATFORM_UNAVAILABLE"
	CodeDeliveryFailed      Code = "SIGNAL_DELIVERY_FAILED"
	CodeUpstreamUnavailable Code = "UPSTREAM_UNAVAILABLE"

	// Credential errors
	CodeGrantSigningFailed Code = "GRANT_SIGNING_FAILED"
)

// HTTPStatus maps the code to the HTTP status the service responds with.
func (c Code) HTTPStatus() int {
	switch c {
	case CodeInvalidArgument:
		return http.StatusBadRequest
	case CodeCallerNotFound, CodeTransferNotFound, CodeTransferMismatch:
		return http.StatusNotFound
	case CodeRoomUnavailable, CodeDeliveryFailed, CodeUpstreamUnavailable:
		return http.StatusBadGateway
	case CodeNotConfigured:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
