package service

import (
	"context"
	"errors"
	"io"
	"sync"

	"github.com/sirupsen/logrus"

	"loan-topup/domain"
	"loan-topup/repository"
)

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

// sampleLoan is eligible: ceiling 3,000,000 and max top-up 2,000,000.
func sampleLoan() domain.Loan {
	return domain.Loan{
		ID:                   "loan-1",
		ClientID:             "client-1",
		OutstandingBalance:   1_000_000,
		InterestRate:         15,
		RemainingMonths:      10,
		MonthlyPayment:       108_000,
		MonthlyIncome:        500_000,
		OnTimePaymentPercent: 95,
		DaysPastDue:          0,
	}
}

// mockTopUpRepository wraps the memory store with forced failures and an
// optional gate that holds CreateRequest until released.
type mockTopUpRepository struct {
	*repository.TopUpRepositoryMemory

	mu           sync.Mutex
	requestCalls int
	stepCalls    int
	failRequest  int
	failSteps    int

	entered chan struct{}
	release chan struct{}
}

func newMockTopUpRepository() *mockTopUpRepository {
	return &mockTopUpRepository{TopUpRepositoryMemory: repository.NewTopUpRepositoryMemory()}
}

func (m *mockTopUpRepository) CreateRequest(ctx context.Context, req domain.TopUpRequest) error {
	if m.entered != nil {
		m.entered <- struct{}{}
		<-m.release
	}

	m.mu.Lock()
	m.requestCalls++
	fail := m.failRequest > 0
	if fail {
		m.failRequest--
	}
	m.mu.Unlock()

	if fail {
		return errors.New("save error")
	}
	return m.TopUpRepositoryMemory.CreateRequest(ctx, req)
}

func (m *mockTopUpRepository) CreateSteps(ctx context.Context, steps []domain.ApprovalStep) error {
	m.mu.Lock()
	m.stepCalls++
	fail := m.failSteps > 0
	if fail {
		m.failSteps--
	}
	m.mu.Unlock()

	if fail {
		return errors.New("save error")
	}
	return m.TopUpRepositoryMemory.CreateSteps(ctx, steps)
}

func (m *mockTopUpRepository) calls() (int, int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.requestCalls, m.stepCalls
}
