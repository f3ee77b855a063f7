package domain

import (
	"encoding/json"
	"fmt"
)

type StrategyKind string

const (
	StrategyConsolidation     StrategyKind = "consolidation"
	StrategySettlementPlusNew StrategyKind = "settlement_plus_new"
	StrategyNetTopUp          StrategyKind = "net_topup"
	StrategyStacking          StrategyKind = "stacking"
)

func (k StrategyKind) Valid() bool {
	switch k {
	case StrategyConsolidation, StrategySettlementPlusNew, StrategyNetTopUp, StrategyStacking:
		return true
	}
	return false
}

// Figures are the projections every strategy reports, whatever its kind.
type Figures struct {
	NewLoanAmount     float64  `json:"new_loan_amount"`
	CashToClient      float64  `json:"cash_to_client"`
	NewMonthlyPayment float64  `json:"new_monthly_payment"`
	NewTenureMonths   int      `json:"new_tenure_months"`
	TotalDebt         float64  `json:"total_debt"`
	ResultingDTI      float64  `json:"resulting_dti"`
	InterestSavings   *float64 `json:"interest_savings,omitempty"`
}

// CalculationVisitor has one method per strategy kind. A new kind adds a
// method here, so every visitor stops compiling until it handles it.
type CalculationVisitor interface {
	Consolidation(ConsolidationCalculation)
	SettlementPlusNew(SettlementCalculation)
	NetTopUp(NetTopUpCalculation)
	Stacking(StackingCalculation)
}

// Calculation is implemented only by the four payload types below.
type Calculation interface {
	Summary() Figures
	Accept(CalculationVisitor)
	kind() StrategyKind
}

type ConsolidationCalculation struct {
	Figures
	PreviousBalance float64 `json:"previous_balance"`
}

// SettlementBreakdown is the early-closure quote for the existing loan.
type SettlementBreakdown struct {
	AccruedInterest   float64 `json:"accrued_interest"`
	UnearnedInterest  float64 `json:"unearned_interest"`
	Rebate            float64 `json:"rebate"`
	PrepaymentPenalty float64 `json:"prepayment_penalty"`
	SettlementAmount  float64 `json:"settlement_amount"`
}

type SettlementCalculation struct {
	Figures
	Settlement SettlementBreakdown `json:"settlement"`
}

type NetTopUpCalculation struct {
	Figures
	Allocation Allocation `json:"allocation"`
	NewBalance float64    `json:"new_balance"`
}

type StackingCalculation struct {
	Figures
	ExistingPayment   float64 `json:"existing_payment"`
	AdditionalPayment float64 `json:"additional_payment"`
	CombinedPayment   float64 `json:"combined_payment"`
}

func (c ConsolidationCalculation) Summary() Figures { return c.Figures }
func (c SettlementCalculation) Summary() Figures    { return c.Figures }
func (c NetTopUpCalculation) Summary() Figures      { return c.Figures }
func (c StackingCalculation) Summary() Figures      { return c.Figures }

func (c ConsolidationCalculation) Accept(v CalculationVisitor) { v.Consolidation(c) }
func (c SettlementCalculation) Accept(v CalculationVisitor)    { v.SettlementPlusNew(c) }
func (c NetTopUpCalculation) Accept(v CalculationVisitor)      { v.NetTopUp(c) }
func (c StackingCalculation) Accept(v CalculationVisitor)      { v.Stacking(c) }

func (ConsolidationCalculation) kind() StrategyKind { return StrategyConsolidation }
func (SettlementCalculation) kind() StrategyKind    { return StrategySettlementPlusNew }
func (NetTopUpCalculation) kind() StrategyKind      { return StrategyNetTopUp }
func (StackingCalculation) kind() StrategyKind      { return StrategyStacking }

// Strategy is one restructuring option. Strategies are regenerated on every
// input change and never stored on their own.
type Strategy struct {
	Kind              StrategyKind `json:"kind"`
	Available         bool         `json:"available"`
	UnavailableReason string       `json:"unavailable_reason,omitempty"`
	Recommended       bool         `json:"recommended"`
	Calculation       Calculation  `json:"calculation"`
	Benefits          []string     `json:"benefits"`
	Warnings          []string     `json:"warnings"`
}

// NewStrategy derives Kind from the payload so the two cannot disagree.
func NewStrategy(calc Calculation) Strategy {
	return Strategy{
		Kind:        calc.kind(),
		Available:   true,
		Calculation: calc,
		Benefits:    []string{},
		Warnings:    []string{},
	}
}

func (s *Strategy) UnmarshalJSON(data []byte) error {
	type plain Strategy
	var raw struct {
		plain
		Calculation json.RawMessage `json:"calculation"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	var calc Calculation
	var err error
	switch raw.Kind {
	case StrategyConsolidation:
		var c ConsolidationCalculation
		err = json.Unmarshal(raw.Calculation, &c)
		calc = c
	case StrategySettlementPlusNew:
		var c SettlementCalculation
		err = json.Unmarshal(raw.Calculation, &c)
		calc = c
	case StrategyNetTopUp:
		var c NetTopUpCalculation
		err = json.Unmarshal(raw.Calculation, &c)
		calc = c
	case StrategyStacking:
		var c StackingCalculation
		err = json.Unmarshal(raw.Calculation, &c)
		calc = c
	default:
		return fmt.Errorf("unknown strategy kind %q", raw.Kind)
	}
	if err != nil {
		return fmt.Errorf("decode %s calculation: %w", raw.Kind, err)
	}

	*s = Strategy(raw.plain)
	s.Calculation = calc
	return nil
}

// StrategySet is one generation of strategies, stamped with the input
// version it was computed for.
type StrategySet struct {
	Version    uint64       `json:"version"`
	Input      TopUpInput   `json:"input"`
	Strategies []Strategy   `json:"strategies"`
	Suggested  StrategyKind `json:"suggested"`
}

func (s StrategySet) Find(kind StrategyKind) (Strategy, bool) {
	for _, st := range s.Strategies {
		if st.Kind == kind {
			return st, true
		}
	}
	return Strategy{}, false
}
