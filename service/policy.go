package service

import "loan-topup/config"

// TenureTier maps a new-loan size to its default repayment period.
type TenureTier struct {
	UpTo   float64
	Months int
}

// Policy holds every business threshold used by eligibility, strategy
// generation and submission.
type Policy struct {
	// Eligibility
	MinPaymentHistoryPercent float64
	MaxDaysPastDue           int
	MaxEligibilityDTI        float64
	ExposureCeilingFactor    float64 // share of annual income
	MaxTopUpIncomeMultiple   float64

	// Strategy generation
	SettlementThreshold         float64 // amount/balance needed to offer settlement
	SettlementRecommendRatio    float64
	ConsolidationRecommendRatio float64
	RebateRate                  float64
	NetTopUpAppliedShare        float64
	StackingMaxDTI              float64
	DefaultTenureMonths         int
	SettlementTenureTiers       []TenureTier
	SettlementMaxTierMonths     int

	// Submission
	MinRequestAmount     float64
	MinTenureMonths      int
	MaxTenureMonths      int
	DTIOverrideThreshold float64
	ProcessingFeeRate    float64
	InsuranceFeeRate     float64
}

func DefaultPolicy() Policy {
	return Policy{
		MinPaymentHistoryPercent: 80,
		MaxDaysPastDue:           0,
		MaxEligibilityDTI:        80,
		ExposureCeilingFactor:    0.5,
		MaxTopUpIncomeMultiple:   6,

		SettlementThreshold:         0.8,
		SettlementRecommendRatio:    1.0,
		ConsolidationRecommendRatio: 0.5,
		RebateRate:                  0.5,
		NetTopUpAppliedShare:        0.3,
		StackingMaxDTI:              40,
		DefaultTenureMonths:         12,
		SettlementTenureTiers: []TenureTier{
			{UpTo: 1000, Months: 6},
			{UpTo: 3000, Months: 9},
			{UpTo: 5000, Months: 12},
		},
		SettlementMaxTierMonths: 18,

		MinRequestAmount:     500,
		MinTenureMonths:      3,
		MaxTenureMonths:      36,
		DTIOverrideThreshold: 40,
		ProcessingFeeRate:    0.01,
		InsuranceFeeRate:     0.005,
	}
}

// WithOverrides returns a copy of p with every configured override applied.
func (p Policy) WithOverrides(o config.PolicyOverrides) Policy {
	if o.StackingMaxDTI != nil {
		p.StackingMaxDTI = *o.StackingMaxDTI
	}
	if o.RebateRate != nil {
		p.RebateRate = *o.RebateRate
	}
	if o.ProcessingFeeRate != nil {
		p.ProcessingFeeRate = *o.ProcessingFeeRate
	}
	if o.InsuranceFeeRate != nil {
		p.InsuranceFeeRate = *o.InsuranceFeeRate
	}
	return p
}

func (p Policy) settlementTenure(principal float64) int {
	for _, tier := range p.SettlementTenureTiers {
		if principal <= tier.UpTo {
			return tier.Months
		}
	}
	return p.SettlementMaxTierMonths
}
