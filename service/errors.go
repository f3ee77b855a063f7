package service

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotEligible         = errors.New("loan is not eligible for a top-up")
	ErrNoStrategySelected  = errors.New("no strategy selected")
	ErrStrategyUnavailable = errors.New("strategy is not available")
	ErrNoForwardTransition = errors.New("confirmation has no next step; submit instead")
	ErrWrongStep           = errors.New("action not allowed at the current wizard step")
	ErrStaleStrategies     = errors.New("strategies are out of date for the current input")
	ErrWizardCancelled     = errors.New("wizard cancelled")
	ErrSubmissionInFlight  = errors.New("submission already in progress")
	ErrAlreadySubmitted    = errors.New("wizard already submitted")
	ErrMissingActor        = errors.New("actor id is required")
	ErrInvalidTransition   = errors.New("invalid status transition")
	ErrTerminalStatus      = errors.New("request is in a terminal status")
	ErrSessionNotFound     = errors.New("wizard session not found")
)

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors collects every failed field of one input.
type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	msgs := make([]string, len(v))
	for i, e := range v {
		msgs[i] = e.Error()
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

func (v *ValidationErrors) add(field, format string, args ...any) {
	*v = append(*v, ValidationError{Field: field, Message: fmt.Sprintf(format, args...)})
}

func (v ValidationErrors) err() error {
	if len(v) == 0 {
		return nil
	}
	return v
}

// Submission stages that perform a remote write.
const (
	StageRequest       = "request"
	StageWorkflowSteps = "workflow_steps"
	StageWorkflowStep  = "workflow_step"
)

// PersistenceError says which write failed so the caller can retry only that one.
type PersistenceError struct {
	Stage string
	Err   error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persist %s: %v", e.Stage, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
