package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/bluecheck/inquiries/internal/apperr"
	"github.com/bluecheck/inquiries/internal/checksum"
)

const maxBodyBytes = 1 << 20

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode failed", slog.String("error", err.Error()))
	}
}

// writeJSONWithETag writes v with an ETag and answers 304 when the client
// already holds the same representation.
func writeJSONWithETag(w http.ResponseWriter, r *http.Request, v any) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		slog.Error("json encode failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	etag := checksum.ETag(buf.Bytes())
	w.Header().Set("ETag", etag)
	w.Header().Set("Cache-Control", "no-cache")
	if checksum.Matches(r.Header.Get("If-None-Match"), etag) {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

type errResponse struct {
	Detail string            `json:"detail"`
	Errors map[string]string `json:"errors,omitempty"`
}

func errorBody(msg string) errResponse {
	return errResponse{Detail: msg}
}

// decodeJSON reads a single JSON object from the request body. An empty body
// is reported as io.EOF so callers can treat it as "no body".
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		return err
	}
	if dec.More() {
		return errors.New("unexpected data after JSON object")
	}
	return nil
}

// writeError maps service errors onto status codes. Anything that is not a
// validation or not-found error is logged and answered with a bare 500.
func writeError(w http.ResponseWriter, op string, err error, attrs ...any) {
	var verr *apperr.ValidationError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusUnprocessableEntity, errResponse{Detail: "validation failed", Errors: verr.Fields})
	case errors.Is(err, apperr.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody("Inquiry not found"))
	default:
		args := append([]any{slog.String("error", err.Error())}, attrs...)
		slog.Error(op+" failed", args...)
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
	}
}

func writeBadJSON(w http.ResponseWriter, err error) {
	msg := "invalid JSON body"
	if errors.Is(err, io.EOF) {
		msg = "request body is required"
	}
	writeJSON(w, http.StatusUnprocessableEntity, errorBody(msg))
}
