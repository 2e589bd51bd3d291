package main

import (
	"encoding/json"
	"errors"
	"net/http"

	"amplify-cloud/faults"
	"amplify-cloud/generation"
	"github.com/sirupsen/logrus"
)

type errorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string, err error) {
	resp := errorResponse{Error: msg}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// statusForError maps error kinds onto HTTP status codes.
func statusForError(err error) int {
	switch {
	case errors.Is(err, generation.ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, generation.ErrGenerationFailed):
		return http.StatusBadGateway
	}
	switch faults.KindOf(err) {
	case faults.KindNotFound:
		return http.StatusNotFound
	case faults.KindConfiguration:
		return http.StatusServiceUnavailable
	case faults.KindInvalidShape:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func failRequest(w http.ResponseWriter, logger logrus.FieldLogger, msg string, err error) {
	status := statusForError(err)
	if status >= http.StatusInternalServerError {
		logger.WithError(err).Error(msg)
	}
	writeError(w, status, msg, err)
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	defer r.Body.Close()
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	return dec.Decode(v)
}
