package service

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"loan-topup/domain"
	"loan-topup/repository"
)

var allowedTransitions = map[domain.RequestStatus][]domain.RequestStatus{
	domain.StatusPendingCreditReview: {domain.StatusPendingSupervisor, domain.StatusRejected},
	domain.StatusPendingSupervisor:   {domain.StatusPendingCommittee, domain.StatusRejected},
	domain.StatusPendingCommittee:    {domain.StatusApproved, domain.StatusRejected},
	domain.StatusApproved:            {domain.StatusDisbursed, domain.StatusRejected},
}

// stageSteps names the workflow step that acts while a request sits in a status.
var stageSteps = map[domain.RequestStatus]domain.StepName{
	domain.StatusPendingCreditReview: domain.StepCreditOfficerReview,
	domain.StatusPendingSupervisor:   domain.StepSupervisorApproval,
	domain.StatusPendingCommittee:    domain.StepCommitteeApproval,
	domain.StatusApproved:            domain.StepDisbursement,
}

// CanTransition reports whether from → to is a legal pipeline move.
func CanTransition(from, to domain.RequestStatus) bool {
	for _, next := range allowedTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

type TransitionInput struct {
	RequestID  string               `json:"-"`
	To         domain.RequestStatus `json:"status"`
	ReviewerID string               `json:"reviewer_id"`
	Comment    string               `json:"comment"`
}

type ApprovalService struct {
	repo repository.TopUpRepository
	log  *logrus.Logger
	now  func() time.Time
}

func NewApprovalService(repo repository.TopUpRepository, log *logrus.Logger) *ApprovalService {
	return &ApprovalService{repo: repo, log: log, now: time.Now}
}

// Transition moves a request one stage along the pipeline (or to rejected)
// and marks the step of the stage being left as reviewed. The step is
// written before the request.
func (s *ApprovalService) Transition(ctx context.Context, in TransitionInput) (domain.TopUpRequest, error) {
	if in.ReviewerID == "" {
		return domain.TopUpRequest{}, ErrMissingActor
	}

	req, err := s.repo.GetRequest(ctx, in.RequestID)
	if err != nil {
		return domain.TopUpRequest{}, fmt.Errorf("load request %s: %w", in.RequestID, err)
	}
	if req.Status.IsTerminal() {
		return domain.TopUpRequest{}, fmt.Errorf("%w: %s", ErrTerminalStatus, req.Status)
	}
	if !CanTransition(req.Status, in.To) {
		return domain.TopUpRequest{}, fmt.Errorf("%w: %s → %s", ErrInvalidTransition, req.Status, in.To)
	}

	steps, err := s.repo.ListSteps(ctx, req.ID)
	if err != nil {
		return domain.TopUpRequest{}, fmt.Errorf("load steps for %s: %w", req.ID, err)
	}
	stepName := stageSteps[req.Status]
	var step *domain.ApprovalStep
	for i := range steps {
		if steps[i].StepName == stepName {
			step = &steps[i]
			break
		}
	}
	if step == nil {
		return domain.TopUpRequest{}, fmt.Errorf("step %s for %s: %w", stepName, req.ID, repository.ErrNotFound)
	}

	now := s.now().UTC()
	from := req.Status
	reviewer := in.ReviewerID
	req.Status = in.To
	req.UpdatedAt = now
	switch in.To {
	case domain.StatusApproved:
		req.ApprovedBy = &reviewer
		req.ApprovedAt = &now
	case domain.StatusDisbursed:
		req.DisbursedAt = &now
	case domain.StatusRejected:
		req.RejectedBy = &reviewer
		req.RejectedAt = &now
	}

	step.Status = stepOutcome(step.StepName, in.To)
	step.ReviewedBy = &reviewer
	step.ReviewedAt = &now
	if in.Comment != "" {
		comment := in.Comment
		step.Comments = &comment
	}

	// The step goes first: while the request keeps its old status the same
	// transition can be retried, and it overwrites the stamp.
	if err := s.repo.UpdateStep(ctx, *step); err != nil {
		return domain.TopUpRequest{}, &PersistenceError{Stage: StageWorkflowStep, Err: err}
	}
	if err := s.repo.UpdateRequest(ctx, req); err != nil {
		return domain.TopUpRequest{}, &PersistenceError{Stage: StageRequest, Err: err}
	}

	s.log.WithFields(logrus.Fields{
		"request_number": req.RequestNumber,
		"from":           from,
		"to":             in.To,
		"reviewer":       reviewer,
	}).Info("top-up request status changed")
	return req, nil
}

func stepOutcome(name domain.StepName, to domain.RequestStatus) domain.StepStatus {
	switch {
	case to == domain.StatusRejected:
		return domain.StepRejected
	case name == domain.StepDisbursement:
		return domain.StepCompleted
	default:
		return domain.StepApproved
	}
}

func (s *ApprovalService) Steps(ctx context.Context, requestID string) ([]domain.ApprovalStep, error) {
	if _, err := s.repo.GetRequest(ctx, requestID); err != nil {
		return nil, fmt.Errorf("load request %s: %w", requestID, err)
	}
	return s.repo.ListSteps(ctx, requestID)
}
