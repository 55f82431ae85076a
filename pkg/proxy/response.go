package proxy

import (
	"encoding/json"
	"fmt"
	"net/http"

	"ccproxy-hq/ccproxy/pkg/proxy/types"
)

// ContentTypeJSON is the content type of every JSON response ccproxy writes.
const ContentTypeJSON = "application/json; charset=utf-8"

// WriteJSONResponse writes a JSON response to the HTTP response writer.
// It sets the content-type header and the status code. Marshaling happens
// before anything is written, so a marshaling failure becomes a 500.
func WriteJSONResponse(w http.ResponseWriter, statusCode int, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		w.Header().Set("Content-Type", ContentTypeJSON)
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"internal_error"}`))
		return fmt.Errorf("failed to encode JSON response: %w", err)
	}

	w.Header().Set("Content-Type", ContentTypeJSON)
	w.WriteHeader(statusCode)
	if _, err := w.Write(payload); err != nil {
		return fmt.Errorf("failed to write JSON response: %w", err)
	}
	return nil
}

// WriteErrorResponse writes an ErrorBody with the given status.
func WriteErrorResponse(w http.ResponseWriter, statusCode int, body types.ErrorBody) error {
	return WriteJSONResponse(w, statusCode, body)
}

// WriteError writes an ErrorBody with no detail.
func WriteError(w http.ResponseWriter, statusCode int, code string) error {
	return WriteErrorResponse(w, statusCode, types.NewError(code))
}
