package domain

import "time"

type RequestStatus string

const (
	StatusPendingCreditReview RequestStatus = "pending_credit_review"
	StatusPendingSupervisor   RequestStatus = "pending_supervisor"
	StatusPendingCommittee    RequestStatus = "pending_committee"
	StatusApproved            RequestStatus = "approved"
	StatusDisbursed           RequestStatus = "disbursed"
	StatusRejected            RequestStatus = "rejected"
)

// IsTerminal reports whether no further transition is possible.
func (s RequestStatus) IsTerminal() bool {
	return s == StatusDisbursed || s == StatusRejected
}

func (s RequestStatus) IsPending() bool {
	switch s {
	case StatusPendingCreditReview, StatusPendingSupervisor, StatusPendingCommittee:
		return true
	}
	return false
}

type DisbursementMethod string

const (
	DisbursementMpesa DisbursementMethod = "mpesa"
	DisbursementBank  DisbursementMethod = "bank"
	DisbursementCash  DisbursementMethod = "cash"
)

func (m DisbursementMethod) Valid() bool {
	return m == DisbursementMpesa || m == DisbursementBank || m == DisbursementCash
}

// StrategyDetails is the snapshot of the chosen strategy's key figures.
type StrategyDetails struct {
	SettlementAmount    *float64 `json:"settlement_amount,omitempty" bson:"settlement_amount,omitempty"`
	NewLoanAmount       *float64 `json:"new_loan_amount,omitempty" bson:"new_loan_amount,omitempty"`
	NetCashAmount       float64  `json:"net_cash_amount" bson:"net_cash_amount"`
	LoanReductionAmount *float64 `json:"loan_reduction_amount,omitempty" bson:"loan_reduction_amount,omitempty"`
	NewMonthlyPayment   float64  `json:"new_monthly_payment" bson:"new_monthly_payment"`
	ResultingDTI        float64  `json:"resulting_dti" bson:"resulting_dti"`
}

type RequirementsChecklist struct {
	IDVerified       bool `json:"id_verified" bson:"id_verified"`
	IncomeVerified   bool `json:"income_verified" bson:"income_verified"`
	GuarantorConsent bool `json:"guarantor_consent" bson:"guarantor_consent"`
	TermsAccepted    bool `json:"terms_accepted" bson:"terms_accepted"`
}

type FeeBreakdown struct {
	ProcessingFee   float64 `json:"processing_fee"`
	InsuranceFee    float64 `json:"insurance_fee"`
	NetDisbursement float64 `json:"net_disbursement"`
}

// SubmissionDetails is what the officer fills in on the details step.
type SubmissionDetails struct {
	DisbursementMethod  DisbursementMethod    `json:"disbursement_method"`
	DisbursementDetails map[string]string     `json:"disbursement_details,omitempty"`
	Requirements        RequirementsChecklist `json:"requirements_checklist"`
	StaffNotes          *string               `json:"staff_notes,omitempty"`
}

type TopUpRequest struct {
	ID                  string                `json:"id" bson:"_id"`
	RequestNumber       string                `json:"request_number" bson:"request_number"`
	ClientID            string                `json:"client_id" bson:"client_id"`
	ExistingLoanID      string                `json:"existing_loan_id" bson:"existing_loan_id"`
	RequestedAmount     float64               `json:"requested_amount" bson:"requested_amount"`
	RequestedTenure     int                   `json:"requested_tenure" bson:"requested_tenure"`
	SelectedStrategy    StrategyKind          `json:"selected_strategy" bson:"selected_strategy"`
	StrategyDetails     StrategyDetails       `json:"strategy_details" bson:"strategy_details"`
	DisbursementMethod  DisbursementMethod    `json:"disbursement_method" bson:"disbursement_method"`
	DisbursementDetails map[string]string     `json:"disbursement_details,omitempty" bson:"disbursement_details,omitempty"`
	ProcessingFee       float64               `json:"processing_fee" bson:"processing_fee"`
	InsuranceFee        float64               `json:"insurance_fee" bson:"insurance_fee"`
	NetDisbursement     float64               `json:"net_disbursement" bson:"net_disbursement"`
	Requirements        RequirementsChecklist `json:"requirements_checklist" bson:"requirements_checklist"`
	RequiresDTIOverride bool                  `json:"requires_dti_override" bson:"requires_dti_override"`
	DTIOverrideReason   *string               `json:"dti_override_reason" bson:"dti_override_reason"`
	DTIOverrideApprover *string               `json:"dti_override_approved_by" bson:"dti_override_approved_by"`
	StaffNotes          *string               `json:"staff_notes" bson:"staff_notes"`
	CreatedBy           string                `json:"created_by" bson:"created_by"`
	Status              RequestStatus         `json:"status" bson:"status"`
	ApprovedBy          *string               `json:"approved_by,omitempty" bson:"approved_by,omitempty"`
	ApprovedAt          *time.Time            `json:"approved_at,omitempty" bson:"approved_at,omitempty"`
	RejectedBy          *string               `json:"rejected_by,omitempty" bson:"rejected_by,omitempty"`
	RejectedAt          *time.Time            `json:"rejected_at,omitempty" bson:"rejected_at,omitempty"`
	DisbursedAt         *time.Time            `json:"disbursed_at,omitempty" bson:"disbursed_at,omitempty"`
	CreatedAt           time.Time             `json:"created_at" bson:"created_at"`
	UpdatedAt           time.Time             `json:"updated_at" bson:"updated_at"`
}

type StepName string

const (
	StepCreditOfficerReview StepName = "credit_officer_review"
	StepSupervisorApproval  StepName = "supervisor_approval"
	StepCommitteeApproval   StepName = "committee_approval"
	StepDisbursement        StepName = "disbursement"
)

// WorkflowStepNames is the fixed pipeline order; index+1 is step_order.
var WorkflowStepNames = []StepName{
	StepCreditOfficerReview,
	StepSupervisorApproval,
	StepCommitteeApproval,
	StepDisbursement,
}

type StepStatus string

const (
	StepPending   StepStatus = "pending"
	StepApproved  StepStatus = "approved"
	StepCompleted StepStatus = "completed"
	StepRejected  StepStatus = "rejected"
)

type ApprovalStep struct {
	ID             string     `json:"id" bson:"_id"`
	TopUpRequestID string     `json:"topup_request_id" bson:"topup_request_id"`
	StepName       StepName   `json:"step_name" bson:"step_name"`
	StepOrder      int        `json:"step_order" bson:"step_order"`
	Status         StepStatus `json:"status" bson:"status"`
	AssignedTo     *string    `json:"assigned_to" bson:"assigned_to"`
	ReviewedBy     *string    `json:"reviewed_by" bson:"reviewed_by"`
	ReviewedAt     *time.Time `json:"reviewed_at" bson:"reviewed_at"`
	Comments       *string    `json:"comments" bson:"comments"`
}
