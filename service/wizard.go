package service

import (
	"fmt"

	"loan-topup/domain"
)

type WizardStep int

const (
	StepEligibility WizardStep = iota
	StepStrategy
	StepDetails
	StepConfirmation
)

func (s WizardStep) String() string {
	switch s {
	case StepEligibility:
		return "eligibility"
	case StepStrategy:
		return "strategy"
	case StepDetails:
		return "details"
	case StepConfirmation:
		return "confirmation"
	}
	return fmt.Sprintf("WizardStep(%d)", int(s))
}

func (s WizardStep) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *WizardStep) UnmarshalText(text []byte) error {
	for step := StepEligibility; step <= StepConfirmation; step++ {
		if step.String() == string(text) {
			*s = step
			return nil
		}
	}
	return fmt.Errorf("unknown wizard step %q", text)
}

// WizardState is the value the submission wizard moves through. Every
// transition returns a new state or an error and leaves the receiver as is.
type WizardState struct {
	Step         WizardStep                `json:"step"`
	Loan         domain.Loan               `json:"loan"`
	Verdict      domain.EligibilityVerdict `json:"verdict"`
	Input        domain.TopUpInput         `json:"input"`
	InputVersion uint64                    `json:"input_version"`
	Strategies   domain.StrategySet        `json:"strategies"`
	Selected     domain.StrategyKind       `json:"selected,omitempty"`
	Details      *domain.SubmissionDetails `json:"details,omitempty"`
}

func NewWizardState(p Policy, loan domain.Loan) WizardState {
	return WizardState{
		Step:    StepEligibility,
		Loan:    loan,
		Verdict: EvaluateEligibility(p, loan),
	}
}

func (w WizardState) Advance() (WizardState, error) {
	switch w.Step {
	case StepEligibility:
		if !w.Verdict.Eligible {
			return w, fmt.Errorf("%w: %s", ErrNotEligible, w.Verdict.Reason)
		}
	case StepStrategy:
		if w.Selected == "" {
			return w, ErrNoStrategySelected
		}
		if !w.StrategiesCurrent() {
			return w, ErrStaleStrategies
		}
	case StepDetails:
	case StepConfirmation:
		return w, ErrNoForwardTransition
	}
	w.Step++
	return w, nil
}

// Back moves one step back. Going back from eligibility cancels the wizard.
func (w WizardState) Back() (WizardState, error) {
	if w.Step == StepEligibility {
		return w, ErrWizardCancelled
	}
	w.Step--
	return w, nil
}

// WithInput records an edit and bumps the input version. Strategy sets
// computed for older versions are rejected by ApplyStrategies.
func (w WizardState) WithInput(in domain.TopUpInput) WizardState {
	w.Input = in
	w.InputVersion++
	return w
}

// InputEditable reports whether the step still accepts amount, tenure or
// allocation edits. Later steps work from the selected strategy's figures.
func (w WizardState) InputEditable() bool {
	return w.Step <= StepStrategy
}

// StrategiesCurrent reports whether the shown set was computed for the
// latest input.
func (w WizardState) StrategiesCurrent() bool {
	return w.Strategies.Version == w.InputVersion
}

// NeedsStrategies reports whether the shown set is missing or out of date.
func (w WizardState) NeedsStrategies() bool {
	return w.Step == StepStrategy && w.Input.Amount > 0 && !w.StrategiesCurrent()
}

// ApplyStrategies swaps in set when it was computed for the current input
// version. A selection missing from the new set, or no longer available,
// is cleared.
func (w WizardState) ApplyStrategies(set domain.StrategySet) (WizardState, bool) {
	if set.Version != w.InputVersion {
		return w, false
	}
	w.Strategies = set
	if w.Selected != "" {
		if st, ok := set.Find(w.Selected); !ok || !st.Available {
			w.Selected = ""
		}
	}
	return w, true
}

func (w WizardState) Select(kind domain.StrategyKind) (WizardState, error) {
	if w.Step != StepStrategy {
		return w, fmt.Errorf("%w: select strategy at %s", ErrWrongStep, w.Step)
	}
	st, ok := w.Strategies.Find(kind)
	if !ok {
		return w, fmt.Errorf("%w: %s not offered for this input", ErrStrategyUnavailable, kind)
	}
	if !st.Available {
		return w, fmt.Errorf("%w: %s", ErrStrategyUnavailable, st.UnavailableReason)
	}
	w.Selected = kind
	return w, nil
}

func (w WizardState) WithDetails(d domain.SubmissionDetails) (WizardState, error) {
	if w.Step != StepDetails {
		return w, fmt.Errorf("%w: enter details at %s", ErrWrongStep, w.Step)
	}
	if err := ValidateDetails(d); err != nil {
		return w, err
	}
	w.Details = &d
	return w, nil
}

// SelectedStrategy returns the chosen strategy from the current set.
func (w WizardState) SelectedStrategy() (domain.Strategy, bool) {
	if w.Selected == "" {
		return domain.Strategy{}, false
	}
	return w.Strategies.Find(w.Selected)
}
