package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"loan-topup/domain"
	"loan-topup/repository"
)

type wizardFixture struct {
	repo        *mockTopUpRepository
	submissions *SubmissionService
	wizard      *WizardService
}

func newWizardFixture(t *testing.T) *wizardFixture {
	repo := newMockTopUpRepository()
	log := testLogger()
	strategies := NewStrategyService(DefaultPolicy(), repository.NewMemoryCache(), time.Minute, log)
	submissions := NewSubmissionService(DefaultPolicy(), repo, log)
	wizard := NewWizardService(strategies, submissions, 30*time.Minute, log)
	t.Cleanup(wizard.Stop)
	return &wizardFixture{
		repo:        repo,
		submissions: submissions,
		wizard:      wizard,
	}
}

// toConfirmation walks a fresh session through every step.
func toConfirmation(t *testing.T, s *Session, in domain.TopUpInput, kind domain.StrategyKind) {
	t.Helper()
	ctx := context.Background()

	_, err := s.Advance(ctx)
	require.NoError(t, err)
	state, err := s.UpdateInput(ctx, in)
	require.NoError(t, err)
	require.NotEmpty(t, state.Strategies.Strategies)

	_, err = s.Select(kind)
	require.NoError(t, err)
	_, err = s.Advance(ctx)
	require.NoError(t, err)
	_, err = s.SetDetails(domain.SubmissionDetails{
		DisbursementMethod:  domain.DisbursementMpesa,
		DisbursementDetails: map[string]string{"phone": "+254700000000"},
		Requirements:        domain.RequirementsChecklist{IDVerified: true, TermsAccepted: true},
	})
	require.NoError(t, err)
	state, err = s.Advance(ctx)
	require.NoError(t, err)
	require.Equal(t, StepConfirmation, state.Step)
}

func TestSession_SubmitPersistsRequestAndSteps(t *testing.T) {
	f := newWizardFixture(t)
	f.submissions.now = func() time.Time { return time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC) }
	ctx := context.Background()

	s, err := f.wizard.Start(sampleLoan())
	require.NoError(t, err)
	toConfirmation(t, s, domain.TopUpInput{Amount: 200_000}, domain.StrategyNetTopUp)

	sub, err := s.Submit(ctx, "officer-7")
	require.NoError(t, err)

	req := sub.Request
	assert.Equal(t, "TR-2025-000001", req.RequestNumber)
	assert.Equal(t, domain.StatusPendingCreditReview, req.Status)
	assert.Equal(t, domain.StrategyNetTopUp, req.SelectedStrategy)
	assert.Equal(t, "officer-7", req.CreatedBy)
	assert.Equal(t, "loan-1", req.ExistingLoanID)
	assert.Equal(t, 10, req.RequestedTenure)
	assert.Equal(t, 2000.0, req.ProcessingFee)
	assert.Equal(t, 1000.0, req.InsuranceFee)
	assert.Equal(t, 197_000.0, req.NetDisbursement)
	require.NotNil(t, req.StrategyDetails.LoanReductionAmount)
	assert.Equal(t, 60_000.0, *req.StrategyDetails.LoanReductionAmount)
	assert.Equal(t, 140_000.0, req.StrategyDetails.NetCashAmount)
	assert.False(t, req.RequiresDTIOverride)
	assert.Nil(t, req.DTIOverrideApprover)

	stored, err := f.repo.GetRequest(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, req.RequestNumber, stored.RequestNumber)

	steps, err := f.repo.ListSteps(ctx, req.ID)
	require.NoError(t, err)
	require.Len(t, steps, 4)
	for i, step := range steps {
		assert.Equal(t, domain.WorkflowStepNames[i], step.StepName)
		assert.Equal(t, i+1, step.StepOrder)
		assert.Equal(t, domain.StepPending, step.Status)
	}
}

func TestSession_SubmitTwiceWritesOnce(t *testing.T) {
	f := newWizardFixture(t)
	ctx := context.Background()

	s, err := f.wizard.Start(sampleLoan())
	require.NoError(t, err)
	toConfirmation(t, s, domain.TopUpInput{Amount: 200_000}, domain.StrategyConsolidation)

	first, err := s.Submit(ctx, "officer-7")
	require.NoError(t, err)
	second, err := s.Submit(ctx, "officer-7")
	require.NoError(t, err)

	assert.Equal(t, first.Request.ID, second.Request.ID)
	requests, steps := f.repo.calls()
	assert.Equal(t, 1, requests)
	assert.Equal(t, 1, steps)

	all, err := f.repo.ListRequests(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestSession_RetryAfterStepsFailureWritesOnlySteps(t *testing.T) {
	f := newWizardFixture(t)
	f.repo.failSteps = 1
	ctx := context.Background()

	s, err := f.wizard.Start(sampleLoan())
	require.NoError(t, err)
	toConfirmation(t, s, domain.TopUpInput{Amount: 200_000}, domain.StrategyNetTopUp)

	_, err = s.Submit(ctx, "officer-7")
	var perr *PersistenceError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, StageWorkflowSteps, perr.Stage)

	// The request is stored, so the wizard no longer accepts edits.
	_, err = s.UpdateInput(ctx, domain.TopUpInput{Amount: 300_000})
	assert.ErrorIs(t, err, ErrAlreadySubmitted)

	sub, err := s.Submit(ctx, "officer-7")
	require.NoError(t, err)

	requests, steps := f.repo.calls()
	assert.Equal(t, 1, requests)
	assert.Equal(t, 2, steps)

	all, err := f.repo.ListRequests(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, sub.Request.ID, all[0].ID)

	stored, err := f.repo.ListSteps(ctx, sub.Request.ID)
	require.NoError(t, err)
	assert.Len(t, stored, 4)
}

func TestSession_RetryAfterRequestFailureKeepsNumber(t *testing.T) {
	f := newWizardFixture(t)
	f.repo.failRequest = 1
	ctx := context.Background()

	s, err := f.wizard.Start(sampleLoan())
	require.NoError(t, err)
	toConfirmation(t, s, domain.TopUpInput{Amount: 200_000}, domain.StrategyNetTopUp)

	_, err = s.Submit(ctx, "officer-7")
	var perr *PersistenceError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, StageRequest, perr.Stage)

	sub, err := s.Submit(ctx, "officer-7")
	require.NoError(t, err)
	assert.Contains(t, sub.Request.RequestNumber, "-000001")

	requests, steps := f.repo.calls()
	assert.Equal(t, 2, requests)
	assert.Equal(t, 1, steps)
}

func TestSession_SubmitInFlightIsRejected(t *testing.T) {
	f := newWizardFixture(t)
	f.repo.entered = make(chan struct{})
	f.repo.release = make(chan struct{})
	ctx := context.Background()

	s, err := f.wizard.Start(sampleLoan())
	require.NoError(t, err)
	toConfirmation(t, s, domain.TopUpInput{Amount: 200_000}, domain.StrategyNetTopUp)

	done := make(chan error, 1)
	go func() {
		_, err := s.Submit(ctx, "officer-7")
		done <- err
	}()
	<-f.repo.entered

	_, err = s.Submit(ctx, "officer-7")
	assert.ErrorIs(t, err, ErrSubmissionInFlight)
	_, err = s.Back()
	assert.ErrorIs(t, err, ErrSubmissionInFlight)
	assert.ErrorIs(t, s.Cancel(), ErrSubmissionInFlight)

	close(f.repo.release)
	require.NoError(t, <-done)

	requests, _ := f.repo.calls()
	assert.Equal(t, 1, requests)
}

func TestSession_DTIOverrideRecorded(t *testing.T) {
	f := newWizardFixture(t)
	ctx := context.Background()

	s, err := f.wizard.Start(sampleLoan())
	require.NoError(t, err)
	toConfirmation(t, s, domain.TopUpInput{Amount: 1_200_000, TenureMonths: 6}, domain.StrategyConsolidation)

	sub, err := s.Submit(ctx, "officer-7")
	require.NoError(t, err)

	req := sub.Request
	assert.True(t, req.RequiresDTIOverride)
	require.NotNil(t, req.DTIOverrideReason)
	assert.Contains(t, *req.DTIOverrideReason, "exceeds the 40% policy limit")
	require.NotNil(t, req.DTIOverrideApprover)
	assert.Equal(t, "officer-7", *req.DTIOverrideApprover)
	require.NotNil(t, req.StrategyDetails.NewLoanAmount)
	assert.Equal(t, 2_200_000.0, *req.StrategyDetails.NewLoanAmount)
}

func TestSession_IneligibleLoanPersistsNothing(t *testing.T) {
	f := newWizardFixture(t)
	ctx := context.Background()
	loan := sampleLoan()
	loan.OnTimePaymentPercent = 70

	s, err := f.wizard.Start(loan)
	require.NoError(t, err)
	assert.False(t, s.State().Verdict.Eligible)

	_, err = s.Advance(ctx)
	assert.ErrorIs(t, err, ErrNotEligible)
	assert.Equal(t, StepEligibility, s.State().Step)

	_, err = s.Submit(ctx, "officer-7")
	assert.ErrorIs(t, err, ErrWrongStep)

	requests, steps := f.repo.calls()
	assert.Zero(t, requests)
	assert.Zero(t, steps)
}

func TestSession_BackFromEligibilityCancels(t *testing.T) {
	f := newWizardFixture(t)
	ctx := context.Background()

	s, err := f.wizard.Start(sampleLoan())
	require.NoError(t, err)

	_, err = s.Back()
	assert.ErrorIs(t, err, ErrWizardCancelled)
	_, err = s.Advance(ctx)
	assert.ErrorIs(t, err, ErrWizardCancelled)
	_, err = s.Submit(ctx, "officer-7")
	assert.ErrorIs(t, err, ErrWizardCancelled)

	requests, steps := f.repo.calls()
	assert.Zero(t, requests)
	assert.Zero(t, steps)
	all, err := f.repo.ListRequests(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestSession_SubmitRequiresActor(t *testing.T) {
	f := newWizardFixture(t)
	ctx := context.Background()

	s, err := f.wizard.Start(sampleLoan())
	require.NoError(t, err)
	toConfirmation(t, s, domain.TopUpInput{Amount: 200_000}, domain.StrategyNetTopUp)

	_, err = s.Submit(ctx, "")
	assert.ErrorIs(t, err, ErrMissingActor)

	// The failed attempt released the guard.
	_, err = s.Submit(ctx, "officer-7")
	assert.NoError(t, err)
}

func TestSession_InvalidInputLeavesStateUntouched(t *testing.T) {
	f := newWizardFixture(t)
	ctx := context.Background()

	s, err := f.wizard.Start(sampleLoan())
	require.NoError(t, err)
	_, err = s.Advance(ctx)
	require.NoError(t, err)
	_, err = s.UpdateInput(ctx, domain.TopUpInput{Amount: 200_000})
	require.NoError(t, err)

	_, err = s.UpdateInput(ctx, domain.TopUpInput{Amount: 200_000, TenureMonths: 48})
	var verrs ValidationErrors
	require.True(t, errors.As(err, &verrs))

	state := s.State()
	assert.Equal(t, uint64(1), state.InputVersion)
	assert.Equal(t, 200_000.0, state.Strategies.Input.Amount)
}

func TestWizardService_SessionsAndDiscard(t *testing.T) {
	f := newWizardFixture(t)

	_, err := f.wizard.Start(domain.Loan{OutstandingBalance: -1})
	var verrs ValidationErrors
	require.True(t, errors.As(err, &verrs))

	s, err := f.wizard.Start(sampleLoan())
	require.NoError(t, err)

	got, err := f.wizard.Session(s.ID)
	require.NoError(t, err)
	assert.Same(t, s, got)

	require.NoError(t, f.wizard.Discard(s.ID))
	_, err = f.wizard.Session(s.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.ErrorIs(t, f.wizard.Discard(s.ID), ErrSessionNotFound)
}

func TestFormatRequestNumber(t *testing.T) {
	assert.Equal(t, "TR-2025-000042", FormatRequestNumber(2025, 42))
	assert.Equal(t, "TR-2026-123456", FormatRequestNumber(2026, 123456))
}

func TestSession_InputLockedAfterStrategyStep(t *testing.T) {
	f := newWizardFixture(t)
	ctx := context.Background()

	s, err := f.wizard.Start(sampleLoan())
	require.NoError(t, err)
	toConfirmation(t, s, domain.TopUpInput{Amount: 200_000}, domain.StrategyConsolidation)

	_, err = s.UpdateInput(ctx, domain.TopUpInput{Amount: 1_500_000})
	assert.ErrorIs(t, err, ErrWrongStep)

	_, err = s.Back()
	require.NoError(t, err)
	_, err = s.UpdateInput(ctx, domain.TopUpInput{Amount: 1_500_000})
	assert.ErrorIs(t, err, ErrWrongStep)
	assert.Equal(t, 200_000.0, s.State().Input.Amount)

	// Back on the strategy step the edit is accepted and the set follows it.
	_, err = s.Back()
	require.NoError(t, err)
	state, err := s.UpdateInput(ctx, domain.TopUpInput{Amount: 1_500_000})
	require.NoError(t, err)
	assert.True(t, state.StrategiesCurrent())
	assert.Equal(t, 1_500_000.0, state.Strategies.Input.Amount)
	assert.Equal(t, domain.StrategyConsolidation, state.Selected)

	_, err = s.Advance(ctx)
	require.NoError(t, err)
	_, err = s.Advance(ctx)
	require.NoError(t, err)

	sub, err := s.Submit(ctx, "officer-7")
	require.NoError(t, err)
	assert.Equal(t, 1_500_000.0, sub.Request.RequestedAmount)
	require.NotNil(t, sub.Request.StrategyDetails.NewLoanAmount)
	assert.Equal(t, 2_500_000.0, *sub.Request.StrategyDetails.NewLoanAmount)
	assert.Equal(t, 1_500_000.0, sub.Request.StrategyDetails.NetCashAmount)
}

func TestSubmissionService_DraftRejectsStaleStrategies(t *testing.T) {
	f := newWizardFixture(t)
	ctx := context.Background()

	s, err := f.wizard.Start(sampleLoan())
	require.NoError(t, err)
	toConfirmation(t, s, domain.TopUpInput{Amount: 200_000}, domain.StrategyConsolidation)

	state := s.State()
	state.Input.Amount = 1_500_000
	state.InputVersion++

	_, err = f.submissions.Draft(ctx, state, "officer-7")
	assert.ErrorIs(t, err, ErrStaleStrategies)

	// No request number was drawn for the rejected draft.
	sub, err := s.Submit(ctx, "officer-7")
	require.NoError(t, err)
	assert.Contains(t, sub.Request.RequestNumber, "-000001")
}

func TestSession_AmountCappedAtMaxTopUp(t *testing.T) {
	f := newWizardFixture(t)
	ctx := context.Background()

	s, err := f.wizard.Start(sampleLoan())
	require.NoError(t, err)
	_, err = s.Advance(ctx)
	require.NoError(t, err)

	_, err = s.UpdateInput(ctx, domain.TopUpInput{Amount: 2_000_000.01})
	var verrs ValidationErrors
	require.True(t, errors.As(err, &verrs))
	assert.Equal(t, "amount", verrs[0].Field)
	assert.Contains(t, verrs[0].Message, "2000000.00")
	assert.Zero(t, s.State().InputVersion)

	state, err := s.UpdateInput(ctx, domain.TopUpInput{Amount: 2_000_000})
	require.NoError(t, err)
	assert.Equal(t, uint64(1), state.InputVersion)
}

func TestSubmissionService_DraftChecksMaxTopUp(t *testing.T) {
	f := newWizardFixture(t)

	s, err := f.wizard.Start(sampleLoan())
	require.NoError(t, err)
	toConfirmation(t, s, domain.TopUpInput{Amount: 200_000}, domain.StrategyNetTopUp)

	state := s.State()
	state.Verdict.MaxTopUp = 150_000

	_, err = f.submissions.Draft(context.Background(), state, "officer-7")
	var verrs ValidationErrors
	require.True(t, errors.As(err, &verrs))
	assert.Equal(t, "amount", verrs[0].Field)
}

func TestWizardService_SweepsIdleAndCancelledSessions(t *testing.T) {
	f := newWizardFixture(t)
	clock := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
	f.wizard.now = func() time.Time { return clock }

	idle, err := f.wizard.Start(sampleLoan())
	require.NoError(t, err)
	cancelled, err := f.wizard.Start(sampleLoan())
	require.NoError(t, err)
	busy, err := f.wizard.Start(sampleLoan())
	require.NoError(t, err)

	_, err = cancelled.Back()
	require.ErrorIs(t, err, ErrWizardCancelled)

	clock = clock.Add(time.Minute)
	f.wizard.sweep()

	_, err = f.wizard.Session(cancelled.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	_, err = f.wizard.Session(idle.ID)
	require.NoError(t, err, "lookup refreshes the idle clock")

	busy.mu.Lock()
	busy.inFlight = true
	busy.mu.Unlock()

	clock = clock.Add(31 * time.Minute)
	f.wizard.sweep()

	_, err = f.wizard.Session(idle.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	_, err = f.wizard.Session(busy.ID)
	assert.NoError(t, err, "a submission in flight is never evicted")
}
