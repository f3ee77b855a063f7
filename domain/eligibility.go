package domain

type CriterionName string

const (
	CriterionPaymentHistory CriterionName = "payment_history"
	CriterionDaysOverdue    CriterionName = "days_overdue"
	CriterionDebtToIncome   CriterionName = "debt_to_income"
	CriterionExposure       CriterionName = "exposure"
)

type CriterionResult struct {
	Name   CriterionName `json:"name"`
	Passed bool          `json:"passed"`
	Value  float64       `json:"value"`
	Reason string        `json:"reason,omitempty"`
}

// EligibilityVerdict is recomputed from the loan every time; it is never stored.
type EligibilityVerdict struct {
	Eligible            bool              `json:"eligible"`
	Criteria            []CriterionResult `json:"criteria"`
	Reason              string            `json:"reason"`
	ExposureCeiling     float64           `json:"exposure_ceiling"`
	MaxTopUp            float64           `json:"max_top_up"`
	RecommendedStrategy StrategyKind      `json:"recommended_strategy,omitempty"`
}
