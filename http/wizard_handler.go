package http

import (
	"net/http"

	"github.com/sirupsen/logrus"

	"loan-topup/domain"
	"loan-topup/service"
)

type sessionResponse struct {
	SessionID string              `json:"session_id"`
	State     service.WizardState `json:"state"`
}

type selectRequest struct {
	Kind domain.StrategyKind `json:"kind"`
}

type WizardHandler struct {
	wizard *service.WizardService
	log    *logrus.Logger
}

func NewWizardHandler(wizard *service.WizardService, log *logrus.Logger) *WizardHandler {
	return &WizardHandler{wizard: wizard, log: log}
}

// Start opens a wizard session for the posted loan.
func (h *WizardHandler) Start(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var loan domain.Loan
	if err := decodeJSON(r, &loan); err != nil {
		writeError(w, h.log, err)
		return
	}

	session, err := h.wizard.Start(loan)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, h.log, http.StatusCreated, sessionResponse{SessionID: session.ID, State: session.State()})
}

// Session serves GET and DELETE on one session.
func (h *WizardHandler) Session(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	switch r.Method {
	case http.MethodGet:
		session, err := h.wizard.Session(id)
		if err != nil {
			writeError(w, h.log, err)
			return
		}
		writeJSON(w, h.log, http.StatusOK, sessionResponse{SessionID: id, State: session.State()})
	case http.MethodDelete:
		if err := h.wizard.Discard(id); err != nil {
			writeError(w, h.log, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// Action runs one wizard action: input, select, details, advance, back or submit.
func (h *WizardHandler) Action(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	id := r.PathValue("id")
	session, err := h.wizard.Session(id)
	if err != nil {
		writeError(w, h.log, err)
		return
	}

	var state service.WizardState
	switch action := r.PathValue("action"); action {
	case "input":
		var in domain.TopUpInput
		if err = decodeJSON(r, &in); err == nil {
			state, err = session.UpdateInput(r.Context(), in)
		}
	case "select":
		var req selectRequest
		if err = decodeJSON(r, &req); err == nil {
			state, err = session.Select(req.Kind)
		}
	case "details":
		var d domain.SubmissionDetails
		if err = decodeJSON(r, &d); err == nil {
			state, err = session.SetDetails(d)
		}
	case "advance":
		state, err = session.Advance(r.Context())
	case "back":
		state, err = session.Back()
	case "submit":
		submission, err := session.Submit(r.Context(), r.Header.Get(ActorHeader))
		if err != nil {
			writeError(w, h.log, err)
			return
		}
		writeJSON(w, h.log, http.StatusCreated, submission)
		return
	default:
		http.Error(w, "unknown wizard action", http.StatusNotFound)
		return
	}

	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, h.log, http.StatusOK, sessionResponse{SessionID: id, State: state})
}
