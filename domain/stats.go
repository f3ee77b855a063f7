package domain

type PortfolioStats struct {
	Total     int `json:"total"`
	Pending   int `json:"pending"`
	Approved  int `json:"approved"`
	Disbursed int `json:"disbursed"`
	Rejected  int `json:"rejected"`
}

type ComparisonRow struct {
	Label          string       `json:"label"`
	Kind           StrategyKind `json:"kind,omitempty"`
	MonthlyPayment float64      `json:"monthly_payment"`
	TotalDebt      float64      `json:"total_debt"`
	TenureMonths   int          `json:"tenure_months"`
	DTI            float64      `json:"dti"`
	Status         string       `json:"status"`
	NetCash        float64      `json:"net_cash"`
	PaymentDelta   float64      `json:"payment_delta_percent"`
	Improvement    bool         `json:"improvement"`
}

// ComparisonMatrix puts the current loan next to every available strategy.
type ComparisonMatrix struct {
	Current    ComparisonRow   `json:"current"`
	Strategies []ComparisonRow `json:"strategies"`
}
