package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/sirupsen/logrus"

	"loan-topup/repository"
	"loan-topup/service"
)

// ActorHeader carries the already-authenticated actor id.
const ActorHeader = "X-Actor-ID"

type errorResponse struct {
	Error  string                    `json:"error"`
	Fields []service.ValidationError `json:"fields,omitempty"`
	Stage  string                    `json:"stage,omitempty"`
}

// writeJSON encodes into a buffer first so a failed encode does not leave
// a half-written 200.
func writeJSON(w http.ResponseWriter, log *logrus.Logger, status int, v any) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		log.WithError(err).Error("failed to encode response")
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := buf.WriteTo(w); err != nil {
		log.WithError(err).Warn("failed to write response")
	}
}

func writeError(w http.ResponseWriter, log *logrus.Logger, err error) {
	resp := errorResponse{Error: err.Error()}
	status := http.StatusInternalServerError

	var validation service.ValidationErrors
	var persistence *service.PersistenceError
	switch {
	case errors.As(err, &validation):
		status = http.StatusBadRequest
		resp.Fields = validation
	case errors.Is(err, service.ErrMissingActor):
		status = http.StatusBadRequest
	case errors.Is(err, repository.ErrNotFound), errors.Is(err, service.ErrSessionNotFound):
		status = http.StatusNotFound
	case errors.Is(err, service.ErrNotEligible),
		errors.Is(err, service.ErrNoStrategySelected),
		errors.Is(err, service.ErrStrategyUnavailable),
		errors.Is(err, service.ErrNoForwardTransition),
		errors.Is(err, service.ErrWrongStep),
		errors.Is(err, service.ErrStaleStrategies),
		errors.Is(err, service.ErrWizardCancelled),
		errors.Is(err, service.ErrSubmissionInFlight),
		errors.Is(err, service.ErrAlreadySubmitted),
		errors.Is(err, service.ErrInvalidTransition),
		errors.Is(err, service.ErrTerminalStatus):
		status = http.StatusConflict
	case errors.As(err, &persistence):
		status = http.StatusBadGateway
		resp.Stage = persistence.Stage
	}

	if status >= http.StatusInternalServerError {
		log.WithError(err).Error("request failed")
	}
	writeJSON(w, log, status, resp)
}

func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return service.ValidationErrors{{Field: "body", Message: "invalid request body"}}
	}
	return nil
}
