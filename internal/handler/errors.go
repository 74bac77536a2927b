package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/studentride/rideshare/backend/internal/domain"
	"github.com/studentride/rideshare/backend/internal/scheduler"
)

// ErrorDetail is the machine-readable code plus a human-readable message.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// errBadRequest marks input rejected before reaching the service layer
// (malformed JSON, unparseable path or query parameters).
var errBadRequest = errors.New("bad request")

// writeError maps a service error onto a status code and error body.
// Anything unrecognised is logged and reported as a generic 500.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := http.StatusInternalServerError, "internal_error"
	message := "internal server error"

	switch {
	case errors.Is(err, errBadRequest):
		status, code, message = http.StatusBadRequest, "bad_request", unwrapMessage(err, errBadRequest)
	case errors.Is(err, domain.ErrValidation):
		status, code, message = http.StatusUnprocessableEntity, "validation_error", unwrapMessage(err, domain.ErrValidation)
	case errors.Is(err, domain.ErrNotFound):
		status, code, message = http.StatusNotFound, "not_found", unwrapMessage(err, domain.ErrNotFound)
	case errors.Is(err, domain.ErrInvalidState):
		status, code, message = http.StatusConflict, "invalid_state", unwrapMessage(err, domain.ErrInvalidState)
	case errors.Is(err, scheduler.ErrSweepInProgress):
		status, code, message = http.StatusConflict, "sweep_in_progress", scheduler.ErrSweepInProgress.Error()
	case errors.Is(err, domain.ErrForbidden):
		status, code, message = http.StatusForbidden, "forbidden", unwrapMessage(err, domain.ErrForbidden)
	case errors.Is(err, domain.ErrUnauthorized):
		status, code, message = http.StatusUnauthorized, "unauthorized", "missing or invalid bearer token"
	default:
		s.log.ErrorContext(r.Context(), "request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"error", err,
		)
	}

	writeJSON(w, status, ErrorResponse{Error: ErrorDetail{Code: code, Message: message}})
}

// unwrapMessage extracts the human-readable part after a wrapped sentinel.
// e.g. "service.VoteService.CastVote: invalid state: request is full" → "request is full"
func unwrapMessage(err, sentinel error) string {
	msg := err.Error()
	prefix := sentinel.Error() + ": "
	if i := strings.Index(msg, prefix); i >= 0 {
		return msg[i+len(prefix):]
	}
	return sentinel.Error()
}

// writeJSON encodes v with the given status. Encoding errors after the header
// is sent cannot be reported to the client and are dropped.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// decodeJSON reads a JSON body into dst, rejecting unknown fields.
// A body over the MaxBodySize limit surfaces as 413 from the middleware's reader.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, ErrorResponse{Error: ErrorDetail{
				Code: "payload_too_large", Message: "request body too large",
			}})
			return false
		}
		writeJSON(w, http.StatusUnprocessableEntity, ErrorResponse{Error: ErrorDetail{
			Code: "validation_error", Message: "request body is not valid JSON: " + err.Error(),
		}})
		return false
	}
	return true
}
