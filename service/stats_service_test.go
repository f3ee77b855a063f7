package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"loan-topup/domain"
	"loan-topup/repository"
)

func TestPortfolioStats(t *testing.T) {
	requests := []domain.TopUpRequest{
		{Status: domain.StatusPendingCreditReview},
		{Status: domain.StatusPendingSupervisor},
		{Status: domain.StatusPendingCommittee},
		{Status: domain.StatusApproved},
		{Status: domain.StatusDisbursed},
		{Status: domain.StatusDisbursed},
		{Status: domain.StatusRejected},
	}

	got := PortfolioStats(requests)

	assert.Equal(t, domain.PortfolioStats{Total: 7, Pending: 3, Approved: 1, Disbursed: 2, Rejected: 1}, got)
	assert.Equal(t, domain.PortfolioStats{}, PortfolioStats(nil))
}

func TestStatsService_Portfolio(t *testing.T) {
	repo := repository.NewTopUpRepositoryMemory()
	ctx := context.Background()
	require.NoError(t, repo.CreateRequest(ctx, domain.TopUpRequest{ID: "a", Status: domain.StatusPendingCreditReview}))
	require.NoError(t, repo.CreateRequest(ctx, domain.TopUpRequest{ID: "b", Status: domain.StatusRejected}))

	stats, err := NewStatsService(repo).Portfolio(ctx)

	require.NoError(t, err)
	assert.Equal(t, 2, stats.Total)
	assert.Equal(t, 1, stats.Pending)
	assert.Equal(t, 1, stats.Rejected)
}

func TestBuildComparison(t *testing.T) {
	loan := sampleLoan()
	strategies, err := GenerateStrategies(DefaultPolicy(), loan, domain.TopUpInput{Amount: 200_000})
	require.NoError(t, err)

	matrix := BuildComparison(loan, strategies)

	assert.Equal(t, "current", matrix.Current.Status)
	assert.Equal(t, 108_000.0, matrix.Current.MonthlyPayment)
	assert.Equal(t, 22.0, matrix.Current.DTI)
	require.Len(t, matrix.Strategies, 3)

	net := matrix.Strategies[1]
	assert.Equal(t, domain.StrategyNetTopUp, net.Kind)
	assert.Equal(t, "recommended", net.Status)
	assert.Equal(t, -6.87, net.PaymentDelta)
	assert.True(t, net.Improvement)
	assert.Equal(t, 140_000.0, net.NetCash)

	stacking := matrix.Strategies[2]
	assert.Equal(t, domain.StrategyStacking, stacking.Kind)
	assert.Equal(t, "available", stacking.Status)
	assert.Equal(t, 16.71, stacking.PaymentDelta)
	assert.False(t, stacking.Improvement)
}

func TestBuildComparison_SkipsUnavailableAndZeroPayment(t *testing.T) {
	loan := sampleLoan()
	strategies, err := GenerateStrategies(DefaultPolicy(), loan, domain.TopUpInput{Amount: 900_000})
	require.NoError(t, err)
	loan.MonthlyPayment = 0

	matrix := BuildComparison(loan, strategies)

	for _, row := range matrix.Strategies {
		assert.NotEqual(t, domain.StrategySettlementPlusNew, row.Kind)
		assert.Zero(t, row.PaymentDelta)
		assert.False(t, row.Improvement)
	}
}
