package domain

// Loan is the outstanding obligation a top-up is evaluated against.
// It is owned by the loan book; this module only reads it.
type Loan struct {
	ID                   string  `json:"id"`
	ClientID             string  `json:"client_id"`
	OutstandingBalance   float64 `json:"outstanding_balance"`
	InterestRate         float64 `json:"interest_rate"` // nominal annual, percent
	RemainingMonths      int     `json:"remaining_months"`
	MonthlyPayment       float64 `json:"monthly_payment"`
	MonthlyIncome        float64 `json:"monthly_income"`
	OnTimePaymentPercent float64 `json:"on_time_payment_percent"`
	DaysPastDue          int     `json:"days_past_due"`
}

// Allocation splits a net top-up between loan paydown and cash.
// AppliedToLoan + CashToClient always equals the top-up amount.
type Allocation struct {
	AppliedToLoan float64 `json:"applied_to_loan"`
	CashToClient  float64 `json:"cash_to_client"`
}

// TopUpInput is what the officer edits while comparing strategies.
type TopUpInput struct {
	Amount       float64     `json:"amount"`
	TenureMonths int         `json:"tenure_months,omitempty"` // 0 = strategy default
	Allocation   *Allocation `json:"allocation,omitempty"`
}
