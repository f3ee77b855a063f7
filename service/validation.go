package service

import "loan-topup/domain"

// ValidateLoan checks the figures the calculations rely on.
func ValidateLoan(loan domain.Loan) error {
	var errs ValidationErrors
	if loan.OutstandingBalance < 0 {
		errs.add("outstanding_balance", "must not be negative")
	}
	if loan.InterestRate < 0 {
		errs.add("interest_rate", "must not be negative")
	}
	if loan.RemainingMonths < 0 {
		errs.add("remaining_months", "must not be negative")
	}
	if loan.MonthlyIncome < 0 {
		errs.add("monthly_income", "must not be negative")
	}
	return errs.err()
}

// ValidateTopUpInput checks an edited input before any strategy is built.
func (p Policy) ValidateTopUpInput(in domain.TopUpInput) error {
	var errs ValidationErrors
	if in.Amount <= 0 {
		errs.add("amount", "must be greater than zero")
	}
	if in.TenureMonths != 0 &&
		(in.TenureMonths < p.MinTenureMonths || in.TenureMonths > p.MaxTenureMonths) {
		errs.add("tenure_months", "must be between %d and %d months", p.MinTenureMonths, p.MaxTenureMonths)
	}
	if a := in.Allocation; a != nil {
		if a.AppliedToLoan < 0 || a.CashToClient < 0 {
			errs.add("allocation", "parts must not be negative")
		} else if !allocationSumsTo(*a, in.Amount) {
			errs.add("allocation", "applied %.2f + cash %.2f must equal amount %.2f",
				a.AppliedToLoan, a.CashToClient, in.Amount)
		}
	}
	return errs.err()
}

// validateCeiling rejects an amount above the verdict's maximum top-up.
func validateCeiling(in domain.TopUpInput, verdict domain.EligibilityVerdict) error {
	var errs ValidationErrors
	if verdict.Eligible && in.Amount > verdict.MaxTopUp {
		errs.add("amount", "must not exceed the maximum top-up of %.2f", verdict.MaxTopUp)
	}
	return errs.err()
}

// ValidateDetails checks what the officer entered on the details step.
func ValidateDetails(d domain.SubmissionDetails) error {
	var errs ValidationErrors
	if !d.DisbursementMethod.Valid() {
		errs.add("disbursement_method", "must be one of mpesa, bank, cash")
	}
	return errs.err()
}

func (p Policy) validateRequest(amount float64, tenure int) error {
	var errs ValidationErrors
	if amount < p.MinRequestAmount {
		errs.add("requested_amount", "must be at least %.2f", p.MinRequestAmount)
	}
	if tenure < p.MinTenureMonths || tenure > p.MaxTenureMonths {
		errs.add("requested_tenure", "must be between %d and %d months", p.MinTenureMonths, p.MaxTenureMonths)
	}
	return errs.err()
}
