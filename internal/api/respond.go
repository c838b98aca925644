package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/muktadirmaashif/itcf-2026/internal/auction"
	"github.com/muktadirmaashif/itcf-2026/internal/coordinator"
)

// maxBodyBytes bounds request bodies. A full player import fits easily.
const maxBodyBytes = 1 << 20

// errNotLoaded is reported while the replica has not seen a snapshot yet.
var errNotLoaded = errors.New("auction state not loaded yet")

// errorBody is the JSON shape of every failed request.
type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// statusOf maps an error to its HTTP status and machine-readable code.
func statusOf(err error) (int, string) {
	var rej *auction.Rejection
	if errors.As(err, &rej) {
		switch rej.Kind {
		case auction.KindValidation:
			return http.StatusUnprocessableEntity, rej.Code
		case auction.KindPrecondition:
			return http.StatusConflict, rej.Code
		case auction.KindNotFound:
			return http.StatusNotFound, rej.Code
		}
	}
	var bad *badRequestError
	switch {
	case errors.As(err, &bad):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, coordinator.ErrConflict):
		return http.StatusConflict, "conflict"
	case errors.Is(err, coordinator.ErrSyncFailure), errors.Is(err, errNotLoaded):
		return http.StatusServiceUnavailable, "unavailable"
	}
	return http.StatusInternalServerError, "internal"
}

func writeError(w http.ResponseWriter, err error) {
	code, name := statusOf(err)
	writeJSON(w, code, errorBody{Error: err.Error(), Code: name})
}

type badRequestError struct{ err error }

func (e *badRequestError) Error() string { return e.err.Error() }
func (e *badRequestError) Unwrap() error { return e.err }

func badRequest(format string, args ...any) error {
	return &badRequestError{err: fmt.Errorf(format, args...)}
}

// decode reads a single JSON value from the request body into v.
func decode(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return badRequest("request body is empty")
		}
		return badRequest("decoding request body: %w", err)
	}
	return nil
}
