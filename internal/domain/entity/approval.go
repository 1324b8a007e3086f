package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Approval lifecycle states. PENDING may move to any other state; ESCALATED is
// re-entrant and may escalate again or resolve; the rest are terminal.
type ApprovalStatus string

const (
	ApprovalStatusPending   ApprovalStatus = "PENDING"
	ApprovalStatusApproved  ApprovalStatus = "APPROVED"
	ApprovalStatusRejected  ApprovalStatus = "REJECTED"
	ApprovalStatusEscalated ApprovalStatus = "ESCALATED"
	ApprovalStatusExpired   ApprovalStatus = "EXPIRED"
)

// Manual decisions accepted by the gate.
type ApprovalDecision string

const (
	DecisionApprove ApprovalDecision = "APPROVE"
	DecisionReject  ApprovalDecision = "REJECT"
)

// SystemApprover marks auto-approved requests.
const SystemApprover = "system"

// MovementCandidate is the movement awaiting approval, snapshotted on the
// request so later decisions commit exactly what was assessed.
type MovementCandidate struct {
	TitleID                string           `json:"title_id"`
	WarehouseID            string           `json:"warehouse_id"`
	SourceWarehouseID      string           `json:"source_warehouse_id,omitempty"`
	DestinationWarehouseID string           `json:"destination_warehouse_id,omitempty"`
	Type                   MovementType     `json:"type"`
	Quantity               int64            `json:"quantity"`
	MovementDate           time.Time        `json:"movement_date"`
	RRP                    *decimal.Decimal `json:"rrp,omitempty"`
	UnitCost               *decimal.Decimal `json:"unit_cost,omitempty"`
	TradeDiscount          *decimal.Decimal `json:"trade_discount,omitempty"`
	ReferenceNumber        string           `json:"reference_number,omitempty"`
	Notes                  string           `json:"notes,omitempty"`
}

// ApprovalRequest wraps a pending movement candidate through the risk-scored
// approval state machine.
type ApprovalRequest struct {
	ID        string
	Candidate MovementCandidate
	Status    ApprovalStatus

	RiskScore              int
	RiskFactors            []string
	RequiresManualApproval bool

	// Index into the gate's ordered escalation levels; -1 until escalated.
	EscalationLevel int
	EscalatedTo     string

	RequestedBy   string
	RequestedAt   time.Time
	DeadlineAt    time.Time
	DecidedBy     string
	DecisionNotes string
	DecidedAt     *time.Time

	// Ledger id of the committed movement, once approved and applied.
	MovementID string
}

// Resolved reports whether the request reached a terminal state.
func (a *ApprovalRequest) Resolved() bool {
	switch a.Status {
	case ApprovalStatusApproved, ApprovalStatusRejected, ApprovalStatusExpired:
		return true
	}
	return false
}
