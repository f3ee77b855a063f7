package service

import (
	"math"

	"github.com/shopspring/decimal"

	"loan-topup/domain"
)

// roundTo2Decimals rounds a float64 to 2 decimals.
func roundTo2Decimals(value float64) float64 {
	return math.Round(value*100) / 100
}

// AmortizedPayment returns the fixed monthly installment for principal over
// months at annualRate percent. With no rate or no term the principal is
// spread over twelve months.
func AmortizedPayment(principal float64, months int, annualRate float64) float64 {
	if months == 0 || annualRate == 0 {
		return principal / 12
	}

	monthlyRate := (annualRate / 100) / 12
	n := float64(months)

	payment := principal * (monthlyRate /
		(1 - math.Pow(1+monthlyRate, -n)))

	return roundTo2Decimals(payment)
}

// DebtToIncome is the whole-percent share of income taken by payment.
func DebtToIncome(payment, monthlyIncome float64) float64 {
	if monthlyIncome == 0 {
		return 0
	}
	return math.Round(100 * payment / monthlyIncome)
}

// currentDTI keeps two decimals so the eligibility gate is not rounded up.
func currentDTI(loan domain.Loan) float64 {
	if loan.MonthlyIncome == 0 {
		return 0
	}
	return roundTo2Decimals(100 * loan.MonthlyPayment / loan.MonthlyIncome)
}

// SettlementQuote prices early closure of the loan: accrued interest for the
// overdue days, minus a rebate on the interest not yet earned. The
// prepayment penalty is always waived.
func SettlementQuote(p Policy, loan domain.Loan) domain.SettlementBreakdown {
	rate := loan.InterestRate / 100
	accrued := loan.OutstandingBalance * rate * (float64(loan.DaysPastDue) / 30)
	unearned := loan.OutstandingBalance*rate*(float64(loan.RemainingMonths)/12) - accrued
	rebate := p.RebateRate * unearned

	return domain.SettlementBreakdown{
		AccruedInterest:   roundTo2Decimals(accrued),
		UnearnedInterest:  roundTo2Decimals(unearned),
		Rebate:            roundTo2Decimals(rebate),
		PrepaymentPenalty: 0,
		SettlementAmount:  roundTo2Decimals(loan.OutstandingBalance + accrued - rebate),
	}
}

// DefaultAllocation splits amount by the policy's applied share. The cash
// part is the remainder, so the two always add back to amount.
func DefaultAllocation(p Policy, amount float64) domain.Allocation {
	total := decimal.NewFromFloat(amount)
	applied := total.Mul(decimal.NewFromFloat(p.NetTopUpAppliedShare)).Round(2)
	cash := total.Sub(applied)

	return domain.Allocation{
		AppliedToLoan: applied.InexactFloat64(),
		CashToClient:  cash.InexactFloat64(),
	}
}

// ComputeFees charges the processing and insurance fees on amount; the
// rest is disbursed.
func ComputeFees(p Policy, amount float64) domain.FeeBreakdown {
	total := decimal.NewFromFloat(amount)
	processing := total.Mul(decimal.NewFromFloat(p.ProcessingFeeRate)).Round(2)
	insurance := total.Mul(decimal.NewFromFloat(p.InsuranceFeeRate)).Round(2)

	return domain.FeeBreakdown{
		ProcessingFee:   processing.InexactFloat64(),
		InsuranceFee:    insurance.InexactFloat64(),
		NetDisbursement: total.Sub(processing).Sub(insurance).InexactFloat64(),
	}
}

func allocationSumsTo(a domain.Allocation, amount float64) bool {
	sum := decimal.NewFromFloat(a.AppliedToLoan).Add(decimal.NewFromFloat(a.CashToClient))
	return sum.Round(2).Equal(decimal.NewFromFloat(amount).Round(2))
}
