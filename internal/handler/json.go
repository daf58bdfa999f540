package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/templui/authgate/internal/ctxkeys"
	"github.com/templui/authgate/internal/validation"
)

// maxBodyBytes bounds request bodies; every payload here is a few fields.
const maxBodyBytes = 1 << 16

type errorResponse struct {
	Detail string                  `json:"detail"`
	Fields []validation.FieldError `json:"fields,omitempty"`
}

type messageResponse struct {
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	err := json.NewEncoder(w).Encode(v)
	if err != nil {
		slog.Warn("failed to write response", "error", err)
	}
}

func writeMessage(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusOK, messageResponse{Message: message})
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, errorResponse{Detail: detail})
}

// writeFault logs err with full detail and answers with a generic 500.
func writeFault(w http.ResponseWriter, r *http.Request, msg string, err error) {
	slog.Error(msg, "error", err, "path", r.URL.Path, "request_id", ctxkeys.RequestID(r.Context()))
	writeDetail(w, http.StatusInternalServerError, "Internal Server Error")
}

// decode reads a JSON body into dst and validates it. On failure it has
// already written a 422 response and returns false.
func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))

	err := dec.Decode(dst)
	if err != nil {
		detail := "Malformed JSON body."
		if errors.Is(err, io.EOF) {
			detail = "Request body is required."
		}
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Detail: detail})
		return false
	}

	err = validation.Struct(dst)
	if err != nil {
		var verr *validation.Error
		if errors.As(err, &verr) {
			writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Detail: "Validation failed.", Fields: verr.Fields})
			return false
		}
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Detail: err.Error()})
		return false
	}

	return true
}
