package service

import (
	"fmt"

	"loan-topup/domain"
)

// GenerateStrategies builds every applicable strategy for the input in a
// fixed order: Consolidation, SettlementPlusNew (only for large top-ups),
// NetTopUp and Stacking.
func GenerateStrategies(p Policy, loan domain.Loan, in domain.TopUpInput) ([]domain.Strategy, error) {
	if err := ValidateLoan(loan); err != nil {
		return nil, err
	}
	if err := p.ValidateTopUpInput(in); err != nil {
		return nil, err
	}

	strategies := []domain.Strategy{consolidation(p, loan, in)}
	if in.Amount >= p.SettlementThreshold*loan.OutstandingBalance {
		strategies = append(strategies, settlementPlusNew(p, loan, in))
	}
	strategies = append(strategies,
		netTopUp(p, loan, in),
		stacking(p, loan, in),
	)
	return strategies, nil
}

func tenureOr(requested, fallback int) int {
	if requested > 0 {
		return requested
	}
	return fallback
}

func consolidation(p Policy, loan domain.Loan, in domain.TopUpInput) domain.Strategy {
	principal := roundTo2Decimals(loan.OutstandingBalance + in.Amount)
	tenure := tenureOr(in.TenureMonths, p.DefaultTenureMonths)
	payment := AmortizedPayment(principal, tenure, loan.InterestRate)

	s := domain.NewStrategy(domain.ConsolidationCalculation{
		Figures: domain.Figures{
			NewLoanAmount:     principal,
			CashToClient:      in.Amount,
			NewMonthlyPayment: payment,
			NewTenureMonths:   tenure,
			TotalDebt:         principal,
			ResultingDTI:      DebtToIncome(payment, loan.MonthlyIncome),
		},
		PreviousBalance: loan.OutstandingBalance,
	})
	s.Recommended = in.Amount >= p.ConsolidationRecommendRatio*loan.OutstandingBalance

	s.Benefits = append(s.Benefits,
		"Single loan with one monthly payment",
		fmt.Sprintf("Full top-up of %.2f paid out to the client", in.Amount),
	)
	if tenure != loan.RemainingMonths {
		s.Warnings = append(s.Warnings,
			fmt.Sprintf("Repayment period resets to %d months (%d currently remaining)", tenure, loan.RemainingMonths))
	}
	if in.Amount > loan.OutstandingBalance {
		s.Warnings = append(s.Warnings, "Top-up exceeds the outstanding balance; settling the loan may cost less")
	}
	return s
}

func settlementPlusNew(p Policy, loan domain.Loan, in domain.TopUpInput) domain.Strategy {
	quote := SettlementQuote(p, loan)
	principal := roundTo2Decimals(in.Amount - quote.SettlementAmount)
	tenure := tenureOr(in.TenureMonths, p.settlementTenure(principal))

	var payment float64
	if principal > 0 {
		payment = AmortizedPayment(principal, tenure, loan.InterestRate)
	}
	savings := quote.Rebate

	s := domain.NewStrategy(domain.SettlementCalculation{
		Figures: domain.Figures{
			NewLoanAmount:     principal,
			CashToClient:      principal,
			NewMonthlyPayment: payment,
			NewTenureMonths:   tenure,
			TotalDebt:         principal,
			ResultingDTI:      DebtToIncome(payment, loan.MonthlyIncome),
			InterestSavings:   &savings,
		},
		Settlement: quote,
	})

	s.Benefits = append(s.Benefits, "Closes the existing loan in full")
	if quote.Rebate > 0 {
		s.Benefits = append(s.Benefits, fmt.Sprintf("Interest rebate of %.2f on early settlement", quote.Rebate))
	}
	s.Benefits = append(s.Benefits, "Prepayment penalty waived")
	if quote.AccruedInterest > 0 {
		s.Warnings = append(s.Warnings,
			fmt.Sprintf("Settlement includes %.2f of interest accrued on overdue days", quote.AccruedInterest))
	}

	if principal <= 0 {
		s.Available = false
		s.UnavailableReason = fmt.Sprintf("Top-up of %.2f does not cover the settlement amount of %.2f",
			in.Amount, quote.SettlementAmount)
		return s
	}
	s.Recommended = in.Amount > p.SettlementRecommendRatio*loan.OutstandingBalance
	return s
}

func netTopUp(p Policy, loan domain.Loan, in domain.TopUpInput) domain.Strategy {
	alloc := DefaultAllocation(p, in.Amount)
	if in.Allocation != nil {
		alloc = *in.Allocation
	}
	newBalance := roundTo2Decimals(loan.OutstandingBalance - alloc.AppliedToLoan)
	tenure := tenureOr(in.TenureMonths, loan.RemainingMonths)
	payment := AmortizedPayment(newBalance, tenure, loan.InterestRate)
	savings := roundTo2Decimals(alloc.AppliedToLoan * (loan.InterestRate / 100) * (float64(loan.RemainingMonths) / 12))

	s := domain.NewStrategy(domain.NetTopUpCalculation{
		Figures: domain.Figures{
			NewLoanAmount:     newBalance,
			CashToClient:      alloc.CashToClient,
			NewMonthlyPayment: payment,
			NewTenureMonths:   tenure,
			TotalDebt:         newBalance,
			ResultingDTI:      DebtToIncome(payment, loan.MonthlyIncome),
			InterestSavings:   &savings,
		},
		Allocation: alloc,
		NewBalance: newBalance,
	})

	s.Benefits = append(s.Benefits,
		fmt.Sprintf("%.2f applied to reduce the outstanding balance", alloc.AppliedToLoan),
		fmt.Sprintf("%.2f paid out to the client", alloc.CashToClient),
	)
	if alloc.CashToClient == 0 {
		s.Warnings = append(s.Warnings, "No cash is paid out to the client")
	}

	if newBalance < 0 {
		s.Available = false
		s.UnavailableReason = fmt.Sprintf("Amount applied to the loan (%.2f) exceeds the outstanding balance of %.2f",
			alloc.AppliedToLoan, loan.OutstandingBalance)
		return s
	}
	s.Recommended = in.Amount < p.ConsolidationRecommendRatio*loan.OutstandingBalance
	return s
}

func stacking(p Policy, loan domain.Loan, in domain.TopUpInput) domain.Strategy {
	tenure := tenureOr(in.TenureMonths, p.DefaultTenureMonths)
	if tenure <= 0 {
		panic(fmt.Sprintf("stacking: non-positive tenure %d", tenure))
	}
	additional := AmortizedPayment(in.Amount, tenure, loan.InterestRate)
	combined := roundTo2Decimals(loan.MonthlyPayment + additional)
	dti := DebtToIncome(combined, loan.MonthlyIncome)

	s := domain.NewStrategy(domain.StackingCalculation{
		Figures: domain.Figures{
			NewLoanAmount:     in.Amount,
			CashToClient:      in.Amount,
			NewMonthlyPayment: combined,
			NewTenureMonths:   tenure,
			TotalDebt:         roundTo2Decimals(loan.OutstandingBalance + in.Amount),
			ResultingDTI:      dti,
		},
		ExistingPayment:   loan.MonthlyPayment,
		AdditionalPayment: additional,
		CombinedPayment:   combined,
	})

	s.Benefits = append(s.Benefits,
		"Existing loan terms stay unchanged",
		fmt.Sprintf("Full top-up of %.2f paid out to the client", in.Amount),
	)
	s.Warnings = append(s.Warnings,
		fmt.Sprintf("Client services two loans with a combined payment of %.2f", combined))

	if dti > p.StackingMaxDTI {
		s.Available = false
		s.UnavailableReason = fmt.Sprintf("Combined DTI of %.0f%% exceeds the %.0f%% limit for a second loan",
			dti, p.StackingMaxDTI)
	}
	return s
}
