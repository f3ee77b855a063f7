package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"loan-topup/domain"
	"loan-topup/repository"
)

// Submission is the request and its workflow steps, built once per wizard
// run and reused on every retry.
type Submission struct {
	Request domain.TopUpRequest   `json:"request"`
	Steps   []domain.ApprovalStep `json:"steps"`
}

type SubmissionService struct {
	policy Policy
	repo   repository.TopUpRepository
	log    *logrus.Logger
	now    func() time.Time
}

func NewSubmissionService(
	policy Policy,
	repo repository.TopUpRepository,
	log *logrus.Logger,
) *SubmissionService {
	return &SubmissionService{policy: policy, repo: repo, log: log, now: time.Now}
}

// Draft validates a confirmed wizard state and builds the submission.
// Only the request-number sequence is touched in the store.
func (s *SubmissionService) Draft(
	ctx context.Context,
	state WizardState,
	actorID string,
) (Submission, error) {
	if actorID == "" {
		return Submission{}, ErrMissingActor
	}
	if state.Step != StepConfirmation {
		return Submission{}, fmt.Errorf("%w: submit at %s", ErrWrongStep, state.Step)
	}
	if !state.StrategiesCurrent() {
		return Submission{}, ErrStaleStrategies
	}
	strategy, ok := state.SelectedStrategy()
	if !ok {
		return Submission{}, ErrNoStrategySelected
	}
	if state.Details == nil {
		return Submission{}, ValidationErrors{{Field: "details", Message: "are required"}}
	}
	if err := ValidateDetails(*state.Details); err != nil {
		return Submission{}, err
	}

	figures := strategy.Calculation.Summary()
	tenure := tenureOr(state.Input.TenureMonths, figures.NewTenureMonths)
	if err := s.policy.validateRequest(state.Input.Amount, tenure); err != nil {
		return Submission{}, err
	}
	if err := validateCeiling(state.Input, state.Verdict); err != nil {
		return Submission{}, err
	}

	now := s.now().UTC()
	seq, err := s.repo.NextSequence(ctx, now.Year())
	if err != nil {
		return Submission{}, &PersistenceError{Stage: StageRequest, Err: fmt.Errorf("allocate request number: %w", err)}
	}

	fees := ComputeFees(s.policy, state.Input.Amount)
	details := *state.Details
	req := domain.TopUpRequest{
		ID:                  uuid.NewString(),
		RequestNumber:       FormatRequestNumber(now.Year(), seq),
		ClientID:            state.Loan.ClientID,
		ExistingLoanID:      state.Loan.ID,
		RequestedAmount:     state.Input.Amount,
		RequestedTenure:     tenure,
		SelectedStrategy:    strategy.Kind,
		StrategyDetails:     snapshotDetails(strategy.Calculation),
		DisbursementMethod:  details.DisbursementMethod,
		DisbursementDetails: details.DisbursementDetails,
		ProcessingFee:       fees.ProcessingFee,
		InsuranceFee:        fees.InsuranceFee,
		NetDisbursement:     fees.NetDisbursement,
		Requirements:        details.Requirements,
		StaffNotes:          details.StaffNotes,
		CreatedBy:           actorID,
		Status:              domain.StatusPendingCreditReview,
		CreatedAt:           now,
		UpdatedAt:           now,
	}

	// TODO: route DTI overrides to a real approver once product defines the
	// approval policy; until then the submitting officer is recorded.
	if figures.ResultingDTI > s.policy.DTIOverrideThreshold {
		reason := fmt.Sprintf("Resulting DTI of %.0f%% exceeds the %.0f%% policy limit",
			figures.ResultingDTI, s.policy.DTIOverrideThreshold)
		approver := actorID
		req.RequiresDTIOverride = true
		req.DTIOverrideReason = &reason
		req.DTIOverrideApprover = &approver
	}

	steps := make([]domain.ApprovalStep, len(domain.WorkflowStepNames))
	for i, name := range domain.WorkflowStepNames {
		steps[i] = domain.ApprovalStep{
			ID:             uuid.NewString(),
			TopUpRequestID: req.ID,
			StepName:       name,
			StepOrder:      i + 1,
			Status:         domain.StepPending,
		}
	}

	return Submission{Request: req, Steps: steps}, nil
}

// WriteRequest stores the request. A request already stored by an earlier
// attempt counts as written.
func (s *SubmissionService) WriteRequest(ctx context.Context, req domain.TopUpRequest) error {
	err := s.repo.CreateRequest(ctx, req)
	if err != nil && !errors.Is(err, repository.ErrAlreadyExists) {
		return &PersistenceError{Stage: StageRequest, Err: err}
	}
	return nil
}

func (s *SubmissionService) WriteSteps(ctx context.Context, steps []domain.ApprovalStep) error {
	err := s.repo.CreateSteps(ctx, steps)
	if err != nil && !errors.Is(err, repository.ErrAlreadyExists) {
		return &PersistenceError{Stage: StageWorkflowSteps, Err: err}
	}
	return nil
}

// FormatRequestNumber renders TR-YYYY-###### .
func FormatRequestNumber(year int, seq int64) string {
	return fmt.Sprintf("TR-%04d-%06d", year, seq)
}

// detailsSnapshot copies the figures a reviewer needs from each kind.
type detailsSnapshot struct {
	out domain.StrategyDetails
}

func (d *detailsSnapshot) Consolidation(c domain.ConsolidationCalculation) {
	d.out.NewLoanAmount = floatPtr(c.NewLoanAmount)
}

func (d *detailsSnapshot) SettlementPlusNew(c domain.SettlementCalculation) {
	d.out.SettlementAmount = floatPtr(c.Settlement.SettlementAmount)
	d.out.NewLoanAmount = floatPtr(c.NewLoanAmount)
}

func (d *detailsSnapshot) NetTopUp(c domain.NetTopUpCalculation) {
	d.out.LoanReductionAmount = floatPtr(c.Allocation.AppliedToLoan)
}

func (d *detailsSnapshot) Stacking(c domain.StackingCalculation) {
	d.out.NewLoanAmount = floatPtr(c.NewLoanAmount)
}

func snapshotDetails(calc domain.Calculation) domain.StrategyDetails {
	figures := calc.Summary()
	snap := &detailsSnapshot{out: domain.StrategyDetails{
		NetCashAmount:     figures.CashToClient,
		NewMonthlyPayment: figures.NewMonthlyPayment,
		ResultingDTI:      figures.ResultingDTI,
	}}
	calc.Accept(snap)
	return snap.out
}

func floatPtr(v float64) *float64 { return &v }
