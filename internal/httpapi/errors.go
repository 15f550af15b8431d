// Package httpapi wires the service packages into the REST/JSON and
// WebSocket surfaces of spec.md §6, grounded on the teacher's
// internal/api/server.go (mux wiring, inline middleware) and
// internal/handlers/session_audit.go (factory-function handlers).
package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/originpoint/backend/internal/domain"
)

// writeJSON encodes v as the response body with the given status code.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

// errorBody is the JSON shape every error response shares.
type errorBody struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

// kindStatus maps spec.md §7's abstract error taxonomy to HTTP status
// codes — the one place in the codebase this mapping is allowed to live;
// every service package returns a *domain.ServiceError and leaves the
// HTTP code to this boundary.
var kindStatus = map[domain.ErrorKind]int{
	domain.KindValidation:      http.StatusUnprocessableEntity,
	domain.KindAuth:            http.StatusUnauthorized,
	domain.KindRole:            http.StatusForbidden,
	domain.KindOutOfScope:      http.StatusNotFound,
	domain.KindNotFound:        http.StatusNotFound,
	domain.KindConflict:        http.StatusConflict,
	domain.KindPayloadTooLarge: http.StatusRequestEntityTooLarge,
	domain.KindPrecondition:    http.StatusBadRequest,
	domain.KindInternal:        http.StatusInternalServerError,
}

// writeError maps err to its spec.md §7 status code and writes the JSON
// error body. Unrecognized errors (a bug, not a typed service failure)
// fall back to 500 rather than leaking internals to the caller.
func writeError(w http.ResponseWriter, err error) {
	var svcErr *domain.ServiceError
	if errors.As(err, &svcErr) {
		status, ok := kindStatus[svcErr.Kind]
		if !ok {
			status = http.StatusInternalServerError
		}
		writeJSON(w, status, errorBody{Error: svcErr.Message, Fields: svcErr.Fields})
		return
	}
	writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal error"})
}

// decodeJSON reads and decodes the request body into dst, returning a
// KindValidation ServiceError on malformed JSON.
func decodeJSON(r *http.Request, dst interface{}) error {
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return domain.NewValidationError(map[string]string{"body": "malformed JSON: " + err.Error()})
	}
	return nil
}
