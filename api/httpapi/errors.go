package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/station-labs/station/stationerr"
)

// errorResponse is the JSON body every failed call returns, carrying
// stationerr's {code, message, field} shape verbatim onto the wire per
// spec.md §7: "propagated to the caller verbatim, by code."
type errorResponse struct {
	Code    stationerr.Code `json:"code"`
	Message string          `json:"message"`
	Field   string          `json:"field,omitempty"`
}

// statusFor maps a stationerr.Code to the HTTP status api/httpapi answers
// with. The mapping is the thin RPC-dispatch glue SPEC_FULL.md §1 calls
// explicitly out of scope to elaborate beyond a minimal table.
func statusFor(code stationerr.Code) int {
	switch code {
	case stationerr.CodeValidation:
		return http.StatusBadRequest
	case stationerr.CodeAlreadyExists:
		return http.StatusConflict
	case stationerr.CodeNotFound:
		return http.StatusNotFound
	case stationerr.CodeForbidden:
		return http.StatusForbidden
	case stationerr.CodeUnauthorized:
		return http.StatusUnauthorized
	case stationerr.CodeNotController:
		return http.StatusForbidden
	case stationerr.CodeBadState:
		return http.StatusConflict
	case stationerr.CodeRateLimited:
		return http.StatusTooManyRequests
	case stationerr.CodeExternal:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// writeError encodes err onto w as JSON, using its stationerr.Code to pick
// both the HTTP status and the wire body. Errors that never touched
// stationerr (a decode failure, a nil pointer) are reported as
// CodeInternal, the same default CodeOf itself falls back to.
func writeError(w http.ResponseWriter, err error) {
	code := stationerr.CodeOf(err)
	resp := errorResponse{Code: code, Message: err.Error()}
	var stationErr *stationerr.Error
	if se, ok := err.(*stationerr.Error); ok {
		stationErr = se
	}
	if stationErr != nil {
		resp.Message = stationErr.Message
		resp.Field = stationErr.Field
	}
	writeJSON(w, statusFor(code), resp)
}

// writeJSON encodes v onto w with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
