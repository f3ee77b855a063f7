package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"loan-topup/domain"
)

// Session drives one wizard run for one loan. It owns the in-flight guard
// and remembers which submission writes already succeeded.
type Session struct {
	ID string

	policy      Policy
	strategies  *StrategyService
	submissions *SubmissionService
	log         *logrus.Logger

	mu             sync.Mutex
	state          WizardState
	cancelled      bool
	inFlight       bool
	draft          *Submission
	requestWritten bool
	stepsWritten   bool
	lastSeen       time.Time
}

func (s *Session) State() WizardState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// editable must be called with mu held.
func (s *Session) editable() error {
	switch {
	case s.cancelled:
		return ErrWizardCancelled
	case s.inFlight:
		return ErrSubmissionInFlight
	case s.requestWritten:
		return ErrAlreadySubmitted
	}
	s.draft = nil
	return nil
}

// UpdateInput applies an edit of amount, tenure or allocation. Invalid input
// is rejected without touching the state. On the strategy step the set is
// recomputed; a result for an older edit never replaces a newer one.
func (s *Session) UpdateInput(ctx context.Context, in domain.TopUpInput) (WizardState, error) {
	s.mu.Lock()
	if err := s.editable(); err != nil {
		s.mu.Unlock()
		return WizardState{}, err
	}
	if !s.state.InputEditable() {
		step := s.state.Step
		s.mu.Unlock()
		return WizardState{}, fmt.Errorf("%w: edit input at %s", ErrWrongStep, step)
	}
	if err := s.policy.ValidateTopUpInput(in); err != nil {
		s.mu.Unlock()
		return WizardState{}, err
	}
	if err := validateCeiling(in, s.state.Verdict); err != nil {
		s.mu.Unlock()
		return WizardState{}, err
	}
	s.state = s.state.WithInput(in)
	state := s.state
	s.mu.Unlock()

	if !state.NeedsStrategies() {
		return state, nil
	}
	return s.refresh(ctx)
}

func (s *Session) refresh(ctx context.Context) (WizardState, error) {
	s.mu.Lock()
	loan, in, version := s.state.Loan, s.state.Input, s.state.InputVersion
	s.mu.Unlock()

	set, err := s.strategies.Generate(ctx, loan, in)
	if err != nil {
		return s.State(), err
	}
	set.Version = version

	s.mu.Lock()
	defer s.mu.Unlock()
	next, applied := s.state.ApplyStrategies(set)
	if !applied {
		s.log.WithFields(logrus.Fields{
			"session": s.ID,
			"version": version,
			"current": s.state.InputVersion,
		}).Debug("dropping stale strategy set")
	}
	s.state = next
	return s.state, nil
}

func (s *Session) Select(kind domain.StrategyKind) (WizardState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.editable(); err != nil {
		return WizardState{}, err
	}
	next, err := s.state.Select(kind)
	if err != nil {
		return s.state, err
	}
	s.state = next
	return s.state, nil
}

func (s *Session) SetDetails(d domain.SubmissionDetails) (WizardState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.editable(); err != nil {
		return WizardState{}, err
	}
	next, err := s.state.WithDetails(d)
	if err != nil {
		return s.state, err
	}
	s.state = next
	return s.state, nil
}

func (s *Session) Advance(ctx context.Context) (WizardState, error) {
	s.mu.Lock()
	if err := s.editable(); err != nil {
		s.mu.Unlock()
		return WizardState{}, err
	}
	next, err := s.state.Advance()
	if err != nil {
		state := s.state
		s.mu.Unlock()
		return state, err
	}
	s.state = next
	s.mu.Unlock()

	if !next.NeedsStrategies() {
		return next, nil
	}
	return s.refresh(ctx)
}

// Back steps back; from eligibility it cancels the session.
func (s *Session) Back() (WizardState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.editable(); err != nil {
		return WizardState{}, err
	}
	next, err := s.state.Back()
	if errors.Is(err, ErrWizardCancelled) {
		s.cancelled = true
		return s.state, err
	}
	s.state = next
	return s.state, nil
}

func (s *Session) Cancel() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inFlight {
		return ErrSubmissionInFlight
	}
	if s.requestWritten {
		return ErrAlreadySubmitted
	}
	s.cancelled = true
	s.draft = nil
	return nil
}

// Submit persists the request and then its four workflow steps. Repeated
// calls return the same submission; after a failure only the missing write
// is retried.
func (s *Session) Submit(ctx context.Context, actorID string) (Submission, error) {
	s.mu.Lock()
	switch {
	case s.cancelled:
		s.mu.Unlock()
		return Submission{}, ErrWizardCancelled
	case s.inFlight:
		s.mu.Unlock()
		return Submission{}, ErrSubmissionInFlight
	case s.stepsWritten:
		done := *s.draft
		s.mu.Unlock()
		return done, nil
	}
	s.inFlight = true
	state, draft, requestWritten := s.state, s.draft, s.requestWritten
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.inFlight = false
		s.mu.Unlock()
	}()

	if draft == nil {
		d, err := s.submissions.Draft(ctx, state, actorID)
		if err != nil {
			return Submission{}, err
		}
		draft = &d
		s.mu.Lock()
		s.draft = draft
		s.mu.Unlock()
	}

	logger := s.log.WithFields(logrus.Fields{
		"session":        s.ID,
		"request_number": draft.Request.RequestNumber,
		"actor":          actorID,
	})

	if !requestWritten {
		if err := s.submissions.WriteRequest(ctx, draft.Request); err != nil {
			logger.WithError(err).Error("failed to persist top-up request")
			return Submission{}, err
		}
		s.mu.Lock()
		s.requestWritten = true
		s.mu.Unlock()
	}

	if err := s.submissions.WriteSteps(ctx, draft.Steps); err != nil {
		logger.WithError(err).Error("failed to persist approval workflow steps")
		return Submission{}, err
	}
	s.mu.Lock()
	s.stepsWritten = true
	s.mu.Unlock()

	if draft.Request.RequiresDTIOverride {
		logger.WithField("dti", draft.Request.StrategyDetails.ResultingDTI).Warn("DTI override recorded with submitting officer as approver")
	}
	logger.WithField("strategy", draft.Request.SelectedStrategy).Info("top-up request submitted")
	return *draft, nil
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

// evictable reports whether the sweep may drop the session. A submission in
// flight is never dropped.
func (s *Session) evictable(now time.Time, idle time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inFlight {
		return false
	}
	return s.cancelled || now.Sub(s.lastSeen) > idle
}

const sessionSweepInterval = time.Minute

// WizardService keeps the open wizard sessions. Cancelled sessions and
// sessions idle for longer than idleTTL are swept periodically.
type WizardService struct {
	policy      Policy
	strategies  *StrategyService
	submissions *SubmissionService
	log         *logrus.Logger
	idleTTL     time.Duration
	now         func() time.Time

	mu          sync.RWMutex
	sessions    map[string]*Session
	stopCleanup chan struct{}
}

func NewWizardService(
	strategies *StrategyService,
	submissions *SubmissionService,
	idleTTL time.Duration,
	log *logrus.Logger,
) *WizardService {
	w := &WizardService{
		policy:      strategies.Policy(),
		strategies:  strategies,
		submissions: submissions,
		log:         log,
		idleTTL:     idleTTL,
		now:         time.Now,
		sessions:    make(map[string]*Session),
		stopCleanup: make(chan struct{}),
	}
	go w.cleanupLoop()
	return w
}

func (w *WizardService) cleanupLoop() {
	ticker := time.NewTicker(sessionSweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.sweep()
		case <-w.stopCleanup:
			return
		}
	}
}

func (w *WizardService) sweep() {
	w.mu.Lock()
	defer w.mu.Unlock()

	now := w.now()
	for id, session := range w.sessions {
		if session.evictable(now, w.idleTTL) {
			delete(w.sessions, id)
			w.log.WithField("session", id).Debug("evicted wizard session")
		}
	}
}

func (w *WizardService) Stop() {
	close(w.stopCleanup)
}

// Start evaluates eligibility and opens a session at the eligibility step.
func (w *WizardService) Start(loan domain.Loan) (*Session, error) {
	if err := ValidateLoan(loan); err != nil {
		return nil, err
	}
	session := &Session{
		ID:          uuid.NewString(),
		policy:      w.policy,
		strategies:  w.strategies,
		submissions: w.submissions,
		log:         w.log,
		state:       NewWizardState(w.policy, loan),
		lastSeen:    w.now(),
	}

	w.mu.Lock()
	w.sessions[session.ID] = session
	w.mu.Unlock()
	return session, nil
}

// Session looks up an open session and marks it as used.
func (w *WizardService) Session(id string) (*Session, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	session, ok := w.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	session.touch(w.now())
	return session, nil
}

// Discard cancels and forgets a session. Nothing was persisted unless it
// was submitted.
func (w *WizardService) Discard(id string) error {
	session, err := w.Session(id)
	if err != nil {
		return err
	}
	if err := session.Cancel(); err != nil && !errors.Is(err, ErrAlreadySubmitted) {
		return err
	}

	w.mu.Lock()
	delete(w.sessions, id)
	w.mu.Unlock()
	return nil
}
