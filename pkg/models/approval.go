package models

import (
	"encoding/json"
	"time"

	"github.com/bargom/hldclient/pkg/runtime"
)

// ApprovalStatus is the state of a tool-call approval.
type ApprovalStatus string

const (
	ApprovalStatusPending  ApprovalStatus = "pending"
	ApprovalStatusApproved ApprovalStatus = "approved"
	ApprovalStatusDenied   ApprovalStatus = "denied"
)

// Decision is the answer to a pending approval.
type Decision string

const (
	DecisionApprove Decision = "approve"
	DecisionDeny    Decision = "deny"
)

// Approval is a tool call waiting for (or having received) a human decision.
type Approval struct {
	ID          string          `json:"id" validate:"required"`
	RunID       string          `json:"run_id" validate:"required"`
	SessionID   string          `json:"session_id" validate:"required"`
	Status      ApprovalStatus  `json:"status" validate:"required"`
	CreatedAt   time.Time       `json:"created_at" validate:"required"`
	RespondedAt *time.Time      `json:"responded_at,omitempty"`
	ToolName    string          `json:"tool_name" validate:"required"`
	ToolInput   json.RawMessage `json:"tool_input,omitempty"`
	Comment     *string         `json:"comment,omitempty"`
}

// ApprovalsResponse wraps a list of approvals.
type ApprovalsResponse struct {
	Data []Approval `json:"data" validate:"required,dive"`
}

// DecideApprovalRequest is the body of POST /approvals/{id}/decide.
type DecideApprovalRequest struct {
	Decision Decision `json:"decision" validate:"required,oneof=approve deny"`
	Comment  *string  `json:"comment,omitempty"`
}

// DecideApprovalResponse acknowledges a decision.
type DecideApprovalResponse struct {
	Data DecideApprovalResult `json:"data"`
}

// DecideApprovalResult reports whether the decision was applied.
type DecideApprovalResult struct {
	Success bool    `json:"success"`
	Error   *string `json:"error,omitempty"`
}

// ApprovalFromJSON decodes an Approval.
func ApprovalFromJSON(data []byte) (*Approval, error) {
	return runtime.DecodeJSONPtr[Approval](data)
}

// ApprovalToJSON encodes an Approval.
func ApprovalToJSON(v Approval) ([]byte, error) {
	return runtime.JSONCodec[Approval]{}.ToWire(v)
}

// ApprovalsResponseFromJSON decodes an ApprovalsResponse.
func ApprovalsResponseFromJSON(data []byte) (*ApprovalsResponse, error) {
	return runtime.DecodeJSONPtr[ApprovalsResponse](data)
}

// DecideApprovalRequestToJSON encodes a DecideApprovalRequest.
func DecideApprovalRequestToJSON(v DecideApprovalRequest) ([]byte, error) {
	return runtime.JSONCodec[DecideApprovalRequest]{}.ToWire(v)
}

// DecideApprovalResponseFromJSON decodes a DecideApprovalResponse.
func DecideApprovalResponseFromJSON(data []byte) (*DecideApprovalResponse, error) {
	return runtime.DecodeJSONPtr[DecideApprovalResponse](data)
}
