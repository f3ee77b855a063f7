package service

import (
	"context"

	"loan-topup/domain"
	"loan-topup/repository"
)

// PortfolioStats counts requests by lifecycle bucket.
func PortfolioStats(requests []domain.TopUpRequest) domain.PortfolioStats {
	stats := domain.PortfolioStats{Total: len(requests)}
	for _, req := range requests {
		switch {
		case req.Status.IsPending():
			stats.Pending++
		case req.Status == domain.StatusApproved:
			stats.Approved++
		case req.Status == domain.StatusDisbursed:
			stats.Disbursed++
		case req.Status == domain.StatusRejected:
			stats.Rejected++
		}
	}
	return stats
}

// BuildComparison lays the current loan next to every available strategy.
// PaymentDelta is the percent change from the current payment; a strictly
// lower payment is an improvement.
func BuildComparison(loan domain.Loan, strategies []domain.Strategy) domain.ComparisonMatrix {
	current := domain.ComparisonRow{
		Label:          "Current loan",
		MonthlyPayment: loan.MonthlyPayment,
		TotalDebt:      loan.OutstandingBalance,
		TenureMonths:   loan.RemainingMonths,
		DTI:            DebtToIncome(loan.MonthlyPayment, loan.MonthlyIncome),
		Status:         "current",
	}

	rows := []domain.ComparisonRow{}
	for _, st := range strategies {
		if !st.Available {
			continue
		}
		f := st.Calculation.Summary()
		status := "available"
		if st.Recommended {
			status = "recommended"
		}

		var delta float64
		if loan.MonthlyPayment != 0 {
			delta = roundTo2Decimals((f.NewMonthlyPayment - loan.MonthlyPayment) / loan.MonthlyPayment * 100)
		}

		rows = append(rows, domain.ComparisonRow{
			Label:          strategyLabel(st.Kind),
			Kind:           st.Kind,
			MonthlyPayment: f.NewMonthlyPayment,
			TotalDebt:      f.TotalDebt,
			TenureMonths:   f.NewTenureMonths,
			DTI:            f.ResultingDTI,
			Status:         status,
			NetCash:        f.CashToClient,
			PaymentDelta:   delta,
			Improvement:    f.NewMonthlyPayment < loan.MonthlyPayment,
		})
	}

	return domain.ComparisonMatrix{Current: current, Strategies: rows}
}

func strategyLabel(kind domain.StrategyKind) string {
	switch kind {
	case domain.StrategyConsolidation:
		return "Consolidation"
	case domain.StrategySettlementPlusNew:
		return "Settlement + new loan"
	case domain.StrategyNetTopUp:
		return "Net top-up"
	case domain.StrategyStacking:
		return "Stacking"
	}
	return string(kind)
}

type StatsService struct {
	repo repository.TopUpRepository
}

func NewStatsService(repo repository.TopUpRepository) *StatsService {
	return &StatsService{repo: repo}
}

func (s *StatsService) Portfolio(ctx context.Context) (domain.PortfolioStats, error) {
	requests, err := s.repo.ListRequests(ctx)
	if err != nil {
		return domain.PortfolioStats{}, err
	}
	return PortfolioStats(requests), nil
}
