// Package httpapi holds the JSON plumbing shared by gameswap's HTTP
// handler packages: one envelope for errors and one strict decoder for
// request bodies.
package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
)

// Error is the body of every non-2xx JSON response. Code is a stable
// machine-readable slug; Message is for humans.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorEnvelope nests Error under an "error" key so error bodies are
// distinguishable from success bodies at a glance.
type ErrorEnvelope struct {
	Error Error `json:"error"`
}

// WriteJSON writes v with the JSON content type and Cache-Control:
// no-store. Encoding failures after the header is out are dropped.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError writes the uniform error envelope.
func WriteError(w http.ResponseWriter, status int, code, msg string) {
	WriteJSON(w, status, ErrorEnvelope{Error: Error{Code: code, Message: msg}})
}

// DecodeJSON decodes the request body into dst. The body must be a
// single JSON value with no unknown fields and no trailing data, and
// may not exceed maxBytes.
func DecodeJSON(w http.ResponseWriter, r *http.Request, maxBytes int64, dst any) error {
	if r.Body == nil {
		return errors.New("empty body")
	}
	defer func() { _ = r.Body.Close() }()

	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return err
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return errors.New("trailing data after JSON value")
	}
	return nil
}
