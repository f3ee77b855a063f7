package repository

import (
	"context"
	"sort"
	"sync"

	"loan-topup/domain"
)

// TopUpRepositoryMemory is an in-memory implementation of TopUpRepository.
type TopUpRepositoryMemory struct {
	mu        sync.RWMutex
	sequences map[int]int64
	requests  map[string]domain.TopUpRequest
	order     []string
	steps     map[string]domain.ApprovalStep
}

// NewTopUpRepositoryMemory creates a new in-memory top-up repository.
func NewTopUpRepositoryMemory() *TopUpRepositoryMemory {
	return &TopUpRepositoryMemory{
		sequences: make(map[int]int64),
		requests:  make(map[string]domain.TopUpRequest),
		steps:     make(map[string]domain.ApprovalStep),
	}
}

func (r *TopUpRepositoryMemory) NextSequence(_ context.Context, year int) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.sequences[year]++
	return r.sequences[year], nil
}

func (r *TopUpRepositoryMemory) CreateRequest(_ context.Context, req domain.TopUpRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.requests[req.ID]; exists {
		return ErrAlreadyExists
	}
	r.requests[req.ID] = req
	r.order = append(r.order, req.ID)
	return nil
}

func (r *TopUpRepositoryMemory) GetRequest(_ context.Context, id string) (domain.TopUpRequest, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	req, ok := r.requests[id]
	if !ok {
		return domain.TopUpRequest{}, ErrNotFound
	}
	return req, nil
}

func (r *TopUpRepositoryMemory) UpdateRequest(_ context.Context, req domain.TopUpRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.requests[req.ID]; !ok {
		return ErrNotFound
	}
	r.requests[req.ID] = req
	return nil
}

func (r *TopUpRepositoryMemory) ListRequests(_ context.Context) ([]domain.TopUpRequest, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.TopUpRequest, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.requests[id])
	}
	return out, nil
}

func (r *TopUpRepositoryMemory) CreateSteps(_ context.Context, steps []domain.ApprovalStep) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, step := range steps {
		if _, exists := r.steps[step.ID]; exists {
			return ErrAlreadyExists
		}
	}
	for _, step := range steps {
		r.steps[step.ID] = step
	}
	return nil
}

func (r *TopUpRepositoryMemory) ListSteps(_ context.Context, requestID string) ([]domain.ApprovalStep, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := []domain.ApprovalStep{}
	for _, step := range r.steps {
		if step.TopUpRequestID == requestID {
			out = append(out, step)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].StepOrder < out[j].StepOrder
	})
	return out, nil
}

func (r *TopUpRepositoryMemory) UpdateStep(_ context.Context, step domain.ApprovalStep) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.steps[step.ID]; !ok {
		return ErrNotFound
	}
	r.steps[step.ID] = step
	return nil
}
