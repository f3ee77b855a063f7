package http

import (
	"net/http"

	"github.com/sirupsen/logrus"

	"loan-topup/domain"
	"loan-topup/service"
)

type strategyRequest struct {
	Loan  domain.Loan       `json:"loan"`
	Input domain.TopUpInput `json:"input"`
}

type TopUpHandler struct {
	strategies *service.StrategyService
	approvals  *service.ApprovalService
	stats      *service.StatsService
	log        *logrus.Logger
}

func NewTopUpHandler(
	strategies *service.StrategyService,
	approvals *service.ApprovalService,
	stats *service.StatsService,
	log *logrus.Logger,
) *TopUpHandler {
	return &TopUpHandler{strategies: strategies, approvals: approvals, stats: stats, log: log}
}

func (h *TopUpHandler) Eligibility(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var loan domain.Loan
	if err := decodeJSON(r, &loan); err != nil {
		writeError(w, h.log, err)
		return
	}
	if err := service.ValidateLoan(loan); err != nil {
		writeError(w, h.log, err)
		return
	}

	writeJSON(w, h.log, http.StatusOK, service.EvaluateEligibility(h.strategies.Policy(), loan))
}

func (h *TopUpHandler) Strategies(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req strategyRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.log, err)
		return
	}

	set, err := h.strategies.Generate(r.Context(), req.Loan, req.Input)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, h.log, http.StatusOK, set)
}

func (h *TopUpHandler) Comparison(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req strategyRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.log, err)
		return
	}

	set, err := h.strategies.Generate(r.Context(), req.Loan, req.Input)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, h.log, http.StatusOK, service.BuildComparison(req.Loan, set.Strategies))
}

func (h *TopUpHandler) Stats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	stats, err := h.stats.Portfolio(r.Context())
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, h.log, http.StatusOK, stats)
}

func (h *TopUpHandler) Steps(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	steps, err := h.approvals.Steps(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, h.log, http.StatusOK, steps)
}

func (h *TopUpHandler) Transition(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var in service.TransitionInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, h.log, err)
		return
	}
	in.RequestID = r.PathValue("id")
	if in.ReviewerID == "" {
		in.ReviewerID = r.Header.Get(ActorHeader)
	}

	req, err := h.approvals.Transition(r.Context(), in)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, h.log, http.StatusOK, req)
}
