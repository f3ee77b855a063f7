package repository

import (
	"context"
	"errors"

	"loan-topup/domain"
)

var (
	ErrNotFound      = errors.New("record not found")
	ErrAlreadyExists = errors.New("record already exists")
)

// TopUpRepository persists submitted top-up requests and their approval
// workflow steps.
type TopUpRepository interface {
	// NextSequence returns the next request-number sequence for year, starting at 1.
	NextSequence(ctx context.Context, year int) (int64, error)

	CreateRequest(ctx context.Context, req domain.TopUpRequest) error
	GetRequest(ctx context.Context, id string) (domain.TopUpRequest, error)
	UpdateRequest(ctx context.Context, req domain.TopUpRequest) error
	ListRequests(ctx context.Context) ([]domain.TopUpRequest, error)

	// CreateSteps stores all steps or reports ErrAlreadyExists when they were
	// stored by an earlier attempt.
	CreateSteps(ctx context.Context, steps []domain.ApprovalStep) error
	ListSteps(ctx context.Context, requestID string) ([]domain.ApprovalStep, error)
	UpdateStep(ctx context.Context, step domain.ApprovalStep) error
}
