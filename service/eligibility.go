package service

import (
	"fmt"
	"math"

	"loan-topup/domain"
)

// EvaluateEligibility runs the four criteria in fixed order. All results are
// returned; the first failure becomes the verdict's reason.
func EvaluateEligibility(p Policy, loan domain.Loan) domain.EligibilityVerdict {
	dti := currentDTI(loan)
	ceiling := loan.MonthlyIncome * 12 * p.ExposureCeilingFactor

	criteria := []domain.CriterionResult{
		{
			Name:   domain.CriterionPaymentHistory,
			Passed: loan.OnTimePaymentPercent >= p.MinPaymentHistoryPercent,
			Value:  loan.OnTimePaymentPercent,
			Reason: fmt.Sprintf("On-time payment history of %.0f%% is below the required %.0f%%",
				loan.OnTimePaymentPercent, p.MinPaymentHistoryPercent),
		},
		{
			Name:   domain.CriterionDaysOverdue,
			Passed: loan.DaysPastDue <= p.MaxDaysPastDue,
			Value:  float64(loan.DaysPastDue),
			Reason: fmt.Sprintf("Loan is %d days past due", loan.DaysPastDue),
		},
		{
			Name:   domain.CriterionDebtToIncome,
			Passed: dti < p.MaxEligibilityDTI,
			Value:  dti,
			Reason: fmt.Sprintf("Debt-to-income ratio of %.2f%% is not below %.0f%%", dti, p.MaxEligibilityDTI),
		},
		{
			Name:   domain.CriterionExposure,
			Passed: loan.OutstandingBalance < ceiling,
			Value:  loan.OutstandingBalance,
			Reason: fmt.Sprintf("Outstanding balance of %.2f reaches the exposure ceiling of %.2f",
				loan.OutstandingBalance, ceiling),
		},
	}

	verdict := domain.EligibilityVerdict{
		Eligible:        true,
		Reason:          "Loan meets all top-up criteria",
		ExposureCeiling: roundTo2Decimals(ceiling),
	}
	for i := range criteria {
		if criteria[i].Passed {
			criteria[i].Reason = ""
			continue
		}
		if verdict.Eligible {
			verdict.Eligible = false
			verdict.Reason = criteria[i].Reason
		}
	}
	verdict.Criteria = criteria

	if verdict.Eligible {
		verdict.MaxTopUp = roundTo2Decimals(math.Min(
			ceiling-loan.OutstandingBalance,
			p.MaxTopUpIncomeMultiple*loan.MonthlyIncome,
		))
		verdict.RecommendedStrategy = SuggestStrategy(p, loan, 0)
	}
	return verdict
}

// SuggestStrategy picks a default kind from the top-up to balance ratio. It
// is a hint for the officer, never a gate.
func SuggestStrategy(p Policy, loan domain.Loan, amount float64) domain.StrategyKind {
	var ratio float64
	switch {
	case loan.OutstandingBalance > 0:
		ratio = amount / loan.OutstandingBalance
	case amount > 0:
		ratio = math.Inf(1)
	}

	switch {
	case ratio > p.SettlementRecommendRatio:
		return domain.StrategySettlementPlusNew
	case ratio >= p.ConsolidationRecommendRatio:
		return domain.StrategyConsolidation
	default:
		return domain.StrategyNetTopUp
	}
}
