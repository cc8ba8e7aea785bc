package api

import (
	"encoding/json"
	"errors"
	"mime"
	"net/http"

	"github.com/hlemont/stream-automate/internal/apperr"
)

const (
	maxBodyBytes    = 1 << 20
	internalMessage = "internal server error"
)

type errorBody struct {
	Error   string           `json:"error"`
	Invalid []apperr.Invalid `json:"invalid,omitempty"`
	Index   *int             `json:"index,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError renders err with the status of its kind. Errors outside
// the taxonomy never leak their text.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := apperr.Status(err)

	body := errorBody{Error: internalMessage}
	var ae *apperr.Error
	if errors.As(err, &ae) && ae.Kind != apperr.KindInternal {
		body.Error = ae.Message
		body.Invalid = ae.Invalid
		if ae.Kind == apperr.KindExecutionFailed && ae.Index >= 0 {
			idx := ae.Index
			body.Index = &idx
		}
	}

	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "status", status, "error", err)
	} else {
		s.logger.Debug("request rejected", "method", r.Method, "path", r.URL.Path, "status", status, "error", err)
	}
	writeJSON(w, status, body)
}

// decodeJSON requires a JSON content type and decodes the body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil || mediaType != "application/json" {
		return apperr.Malformed(apperr.ContextContentType, "content type should be 'application/json'")
	}
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(v); err != nil {
		return apperr.Malformed(apperr.ContextBodyFormat, "invalid json format")
	}
	return nil
}
